package store

import "errors"

var (
	// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
	ErrSchemaMismatch = errors.New("schema version mismatch")

	// ErrTransformNotFound is returned when no transform matches a uid.
	ErrTransformNotFound = errors.New("transform not found")
)
