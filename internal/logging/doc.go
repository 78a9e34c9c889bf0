// Package logging assembles structured slog loggers and formatting helpers used
// across the lamin CLI.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes attribute helpers so packages tag log lines with the
// same keys (component, instance, transform uid). The package also provides a
// no-op logger for tests and wiring code that cannot fail.
//
// User-facing command output never goes through these loggers; it is written
// to the command's stdout so scripts can match on it.
package logging
