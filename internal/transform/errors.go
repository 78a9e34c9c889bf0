package transform

import (
	"errors"
	"fmt"
)

var (
	// ErrNotTracked is the NotTrackedError: the file never declared an identity,
	// so there is nothing to reconcile.
	ErrNotTracked = errors.New("transform not tracked")

	// ErrIdentityMismatch matches any *IdentityMismatchError via errors.Is.
	ErrIdentityMismatch = errors.New("transform identity mismatch")

	// ErrInvalidStemUID is returned when a declared stem uid is malformed.
	ErrInvalidStemUID = errors.New("invalid stem uid")
)

// IdentityMismatchError reports that the stem uid recorded for a file differs
// from the one the file declares. The stem uid never changes for a file, so
// this needs a manual correction rather than an overwrite.
type IdentityMismatchError struct {
	Declared Identity
	Recorded Identity
}

func (e *IdentityMismatchError) Error() string {
	return fmt.Sprintf("%s: file declares stem_uid %q but %q is recorded",
		ErrIdentityMismatch, e.Declared.StemUID, e.Recorded.StemUID)
}

func (e *IdentityMismatchError) Is(target error) bool {
	return target == ErrIdentityMismatch
}

// ErrorKind classifies the error for exit-code mapping.
func (e *IdentityMismatchError) ErrorKind() string {
	return "user"
}
