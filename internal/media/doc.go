// Package media models the finalized recording artifact handed from capture
// to upload, including the client-side size contract.
package media
