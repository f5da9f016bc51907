// Package logging builds the process slog logger from configuration and
// provides the shared structured field names used across components.
package logging
