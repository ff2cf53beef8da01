package testsupport

import (
	"context"
	"testing"

	"airtrack/internal/config"
	"airtrack/internal/takes"
)

// MustOpenStore opens a takes.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *takes.Store {
	t.Helper()

	store, err := takes.Open(cfg)
	if err != nil {
		t.Fatalf("takes.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// StageRecording stages audio for upload in tests using the provided store.
func StageRecording(t testing.TB, store *takes.Store, breakID int64, audioPath string, durationSeconds float64) *takes.StagedRecording {
	t.Helper()

	rec, err := store.Stage(context.Background(), breakID, audioPath, durationSeconds)
	if err != nil {
		t.Fatalf("store.Stage: %v", err)
	}
	return rec
}
