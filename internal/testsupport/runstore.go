package testsupport

import (
	"path/filepath"
	"testing"

	"creativeflow/internal/runstore"
)

// MustOpenRunStore opens a run store in a temp directory and closes it on cleanup.
func MustOpenRunStore(t testing.TB) *runstore.Store {
	t.Helper()
	store, err := runstore.Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open run store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
