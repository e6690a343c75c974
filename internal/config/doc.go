// Package config loads, normalizes, and validates the presence client
// configuration from TOML.
package config
