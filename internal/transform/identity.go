package transform

import (
	"fmt"
	"time"
)

// Identity is the (stem uid, version) pair a transform declares.
type Identity struct {
	StemUID string `json:"stem_uid"`
	Version string `json:"version"`
}

func (i Identity) String() string {
	return fmt.Sprintf("stem_uid=%s version=%s", i.StemUID, i.Version)
}

// UID returns the full 16-character transform uid for this identity.
func (i Identity) UID() string {
	return UID(i)
}

// RecordedState is the identity last saved for a file path. A nil
// *RecordedState means the path is unrecorded.
type RecordedState struct {
	Identity
	UID        string
	Name       string
	SourceHash string
	SavedAt    time.Time
}

// Result is the outcome of reconciling a declared identity against the
// recorded state.
type Result int

const (
	// ResultUnrecorded means no identity was saved for the file yet.
	ResultUnrecorded Result = iota
	// ResultCurrent means the recorded identity matches the declared one exactly.
	ResultCurrent
	// ResultStale means the stem uid matches but the version moved on.
	ResultStale
)

func (r Result) String() string {
	switch r {
	case ResultUnrecorded:
		return "unrecorded"
	case ResultCurrent:
		return "current"
	case ResultStale:
		return "stale"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}
