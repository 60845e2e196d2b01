package testsupport

import (
	"testing"

	"quill/internal/config"
	"quill/internal/journal"
)

// MustOpenJournal opens a journal.Store for tests and registers cleanup.
// When no config is provided, a fresh temp-dir config is generated.
func MustOpenJournal(t testing.TB, cfg ...*config.Config) *journal.Store {
	t.Helper()

	var c *config.Config
	if len(cfg) > 0 && cfg[0] != nil {
		c = cfg[0]
	} else {
		c = NewConfig(t)
	}

	store, err := journal.Open(c)
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
