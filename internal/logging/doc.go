// Package logging configures slog output for the presence client and provides
// shared attribute helpers and field-name constants so log keys stay
// consistent across components.
package logging
