// Package config loads, normalizes, and validates the daemon's TOML
// configuration. Request-scoped generation and recognizer configuration is
// JSON and lives in the voice package; this package only covers process-level
// settings (directories, bind address, media tooling, logging).
package config
