package setup

import "errors"

var (
	// ErrNoInstance is returned when an operation needs a loaded instance.
	ErrNoInstance = errors.New("no instance loaded, run 'lamin init' or 'lamin load'")
	// ErrNotLoggedIn is returned when an operation needs a user.
	ErrNotLoggedIn = errors.New("not logged in, run 'lamin login'")
	// ErrInstanceNotFound is returned for unknown instance identifiers.
	ErrInstanceNotFound = errors.New("instance not found")
	// ErrInstanceExists is returned by Init for an already initialized instance.
	ErrInstanceExists = errors.New("instance already exists")
	// ErrUnsupportedDB is returned for database URLs other than sqlite.
	ErrUnsupportedDB = errors.New("unsupported database")
	// ErrConfirmationRequired is returned when a destructive operation needs
	// confirmation but no terminal is attached.
	ErrConfirmationRequired = errors.New("confirmation required, pass --force")
	// ErrAborted is returned when the user declines a confirmation prompt.
	ErrAborted = errors.New("aborted")
)
