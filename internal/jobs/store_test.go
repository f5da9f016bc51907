package jobs_test

import (
	"context"
	"errors"
	"testing"

	"voiceforge/internal/jobs"
	"voiceforge/internal/services"
	"voiceforge/internal/testsupport"
)

func TestCreateAndGet(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := testsupport.NewJob(t, store, jobs.KindGeneration, "job-1")

	fetched, err := store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if fetched.Status != jobs.StatusQueued {
		t.Fatalf("Status = %q, want queued", fetched.Status)
	}
	if fetched.Kind != jobs.KindGeneration {
		t.Fatalf("Kind = %q, want generation", fetched.Kind)
	}
	if fetched.CreatedAt.IsZero() || fetched.UpdatedAt.IsZero() {
		t.Fatal("timestamps not persisted")
	}
}

func TestGetMissingJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestPatchAppliesPartialUpdate(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.NewJob(t, store, jobs.KindGeneration, "job-2")

	status := jobs.StatusProcessing
	progress := 42.5
	message := "Synthesizing voice for Alice"
	if err := store.Patch(ctx, "job-2", jobs.Patch{
		Status:   &status,
		Progress: &progress,
		Message:  &message,
	}); err != nil {
		t.Fatalf("Patch: %v", err)
	}

	fetched, err := store.Get(ctx, "job-2")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if fetched.Status != jobs.StatusProcessing || fetched.Progress != 42.5 {
		t.Fatalf("job = %+v", fetched)
	}
	if fetched.Message != message {
		t.Fatalf("Message = %q", fetched.Message)
	}

	// An untouched field survives the next patch.
	done := jobs.StatusCompleted
	if err := store.Patch(ctx, "job-2", jobs.Patch{Status: &done}); err != nil {
		t.Fatalf("Patch: %v", err)
	}
	fetched, err = store.Get(ctx, "job-2")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if fetched.Progress != 42.5 {
		t.Fatalf("Progress = %v, want 42.5 preserved", fetched.Progress)
	}
}

func TestPatchMissingJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	status := jobs.StatusFailed
	err := store.Patch(context.Background(), "missing", jobs.Patch{Status: &status})
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	for _, id := range []string{"a", "b", "c"} {
		testsupport.NewJob(t, store, jobs.KindTranscription, id)
	}

	listed, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("len = %d, want 3", len(listed))
	}
}

func TestReopenKeepsRows(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	testsupport.NewJob(t, store, jobs.KindGeneration, "persisted")
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.Get(context.Background(), "persisted"); err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
}
