package tracking

import (
	"fmt"
	"path/filepath"

	"lamin/internal/transform"
)

// Context is the execution context of a tracked file: its path and the
// identity it declares. Declared is nil when the file declares none.
// PyPackages lists python packages to record on the run.
type Context struct {
	Path       string
	Declared   *transform.Identity
	PyPackages []string
}

// ContextFromFile resolves path and parses the identity it declares.
func ContextFromFile(path string) (Context, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Context{}, fmt.Errorf("resolve %s: %w", path, err)
	}
	declared, err := transform.ParseSource(abs)
	if err != nil {
		return Context{}, err
	}
	return Context{Path: abs, Declared: declared}, nil
}
