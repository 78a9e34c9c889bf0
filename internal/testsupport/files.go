package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lamin/internal/transform"
)

// WriteScript writes a Python script into dir. A non-nil identity is stamped
// into the script the way users declare it; nil leaves the script untracked.
func WriteScript(t testing.TB, dir, name string, identity *transform.Identity) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("import lamindb as ln\n\n")
	if identity != nil {
		b.WriteString(transform.Settings(*identity))
		b.WriteString("\n\n")
	}
	b.WriteString("if __name__ == \"__main__\":\n    ln.track()\n")
	return WriteFile(t, filepath.Join(dir, name), b.String())
}

// WriteFile writes contents to path, creating parent directories.
func WriteFile(t testing.TB, path, contents string) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// Stamp rewrites the identity declared by an existing script.
func Stamp(t testing.TB, path string, identity transform.Identity) {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	var kept []string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.HasPrefix(line, "ln.transform.") {
			continue
		}
		kept = append(kept, line)
	}
	header := fmt.Sprintf("%s\n", transform.Settings(identity))
	WriteFile(t, path, header+strings.Join(kept, "\n"))
}
