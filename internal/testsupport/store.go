package testsupport

import (
	"context"
	"testing"

	"voiceforge/internal/config"
	"voiceforge/internal/jobs"
	"voiceforge/internal/transcripts"
)

// MustOpenStore opens a jobs.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()

	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenTranscripts opens a transcript store rooted at the test config's
// transcripts directory.
func MustOpenTranscripts(t testing.TB, cfg *config.Config) *transcripts.Store {
	t.Helper()

	store, err := transcripts.NewStore(cfg.Paths.TranscriptsDir)
	if err != nil {
		t.Fatalf("transcripts.NewStore: %v", err)
	}
	return store
}

// NewJob creates a queued job row for tests using the provided store.
func NewJob(t testing.TB, store *jobs.Store, kind jobs.Kind, id string) *jobs.Job {
	t.Helper()

	job := &jobs.Job{ID: id, Kind: kind, Status: jobs.StatusQueued}
	if err := store.Create(context.Background(), job); err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return job
}
