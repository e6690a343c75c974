package testsupport

import (
	"context"
	"testing"

	"presence/internal/config"
	"presence/internal/history"
)

// MustOpenStore opens a history.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewRun creates a run record for tests using the provided store.
func NewRun(t testing.TB, store *history.Store, entryPoint, phase string) *history.Run {
	t.Helper()

	run := &history.Run{EntryPoint: entryPoint, Phase: phase}
	if err := store.Create(context.Background(), run); err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return run
}
