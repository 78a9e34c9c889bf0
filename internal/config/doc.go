// Package config loads, normalizes, and validates lamin CLI configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// LAMIN_SETTINGS_DIR. The Config type centralizes the knobs the CLI needs:
// where user and instance settings live, where the local cache sits, how
// cloud storage clients are built, and how logs are formatted.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
