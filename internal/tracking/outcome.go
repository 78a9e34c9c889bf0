package tracking

import (
	"fmt"

	"lamin/internal/store"
	"lamin/internal/transform"
)

const (
	// ExitOK is returned for successful and idempotent outcomes.
	ExitOK = 0
	// ExitUserAction is returned when the user has to change something first.
	ExitUserAction = 1
)

const updateSettingsHeader = "Please update your transform settings as follows:"

// Outcome is the user-facing result of a workflow.
type Outcome struct {
	Result    transform.Result `json:"result"`
	Message   string           `json:"message"`
	ExitCode  int              `json:"exit_code"`
	Transform *store.Transform `json:"transform,omitempty"`
	Run       *store.Run       `json:"run,omitempty"`
}

// UpdateRequiredError asks the user to change the identity a file declares
// before it can be tracked again.
type UpdateRequiredError struct {
	Path      string
	Suggested transform.Identity
	Cause     error
}

func (e *UpdateRequiredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("transform settings of %s need an update: %v", e.Path, e.Cause)
	}
	return fmt.Sprintf("transform settings of %s need an update", e.Path)
}

func (e *UpdateRequiredError) Unwrap() error {
	return e.Cause
}

// ErrorKind classifies the error for exit-code mapping.
func (e *UpdateRequiredError) ErrorKind() string {
	return "user"
}

// Guidance is the message shown to the user.
func (e *UpdateRequiredError) Guidance() string {
	return updateSettingsHeader + "\n\n" + transform.Settings(e.Suggested)
}

func updateRequired(path string, suggested transform.Identity, cause error) (Outcome, error) {
	err := &UpdateRequiredError{Path: path, Suggested: suggested, Cause: cause}
	return Outcome{Message: err.Guidance(), ExitCode: ExitUserAction}, err
}
