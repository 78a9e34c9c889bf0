package store

import (
	"time"

	"lamin/internal/transform"
)

// Transform is one version of a script or notebook known to the instance.
type Transform struct {
	UID        string    `json:"uid"`
	StemUID    string    `json:"stem_uid"`
	Version    string    `json:"version"`
	Name       string    `json:"name"`
	Kind       string    `json:"kind"`
	SourceKey  string    `json:"source_key,omitempty"`
	SourceHash string    `json:"source_hash,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Identity returns the (stem uid, version) pair of the transform.
func (t Transform) Identity() transform.Identity {
	return transform.Identity{StemUID: t.StemUID, Version: t.Version}
}

// Saved reports whether a source snapshot was uploaded for this version.
func (t Transform) Saved() bool {
	return t.SourceKey != ""
}

// Run is one tracked execution of a file.
type Run struct {
	UID          string             `json:"uid"`
	Path         string             `json:"path"`
	TransformUID string             `json:"transform_uid"`
	Identity     transform.Identity `json:"identity"`
	StartedAt    time.Time          `json:"started_at"`
	PyPackages   []string           `json:"pypackages,omitempty"`
}

// RunInput describes an execution about to be recorded. PyPackages names
// the python packages whose versions the run tracks.
type RunInput struct {
	Path       string
	Identity   transform.Identity
	Name       string
	Kind       string
	PyPackages []string
}

// SaveInfo carries the metadata written alongside a saved identity.
type SaveInfo struct {
	Name       string
	Kind       string
	SourceKey  string
	SourceHash string
}

// ColumnInfo describes one table column.
type ColumnInfo struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	NotNull    bool   `json:"not_null"`
	PrimaryKey bool   `json:"primary_key"`
}

// TableInfo describes one user table of the instance database.
type TableInfo struct {
	Name    string       `json:"name"`
	Rows    int          `json:"rows"`
	Columns []ColumnInfo `json:"columns"`
}

// MigrationStatus reports whether an embedded migration has been applied.
type MigrationStatus struct {
	Version string `json:"version"`
	Applied bool   `json:"applied"`
}
