// Package config loads the display name picker configuration from
// environment variables and validates it.
package config
