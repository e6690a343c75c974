// Package auth supplies session credentials to backend clients without those
// clients touching ambient storage.
package auth
