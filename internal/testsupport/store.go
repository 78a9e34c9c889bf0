package testsupport

import (
	"path/filepath"
	"testing"

	"lamin/internal/store"
)

// MustOpenStore opens a fresh instance database for tests and registers cleanup.
func MustOpenStore(t testing.TB) *store.Store {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "lamin.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}
