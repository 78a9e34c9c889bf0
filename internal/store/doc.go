// Package store persists transform identities and the run trace of a lamin
// instance in SQLite.
//
// Two record kinds live side by side. Saved identities are the Identity
// Store: one row per file path, written only by a successful save. Runs are
// the execution trace: every tracked execution appends a row carrying the
// identity the file declared at that moment. Transforms hold one row per
// (stem uid, version) so a transform can be looked up by uid later.
//
// The base schema lives in schema.sql and is guarded by schemaVersion.
// Additive changes go into migrations/*.sql and are applied in lexical order.
package store
