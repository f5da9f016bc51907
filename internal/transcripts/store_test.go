package transcripts

import (
	"errors"
	"strings"
	"testing"
	"time"

	"voiceforge/internal/services"
	"voiceforge/internal/srt"
)

func sampleSegments() []srt.Segment {
	return []srt.Segment{
		{Speaker: "Alice", Text: "hi", Start: 0, End: 2 * time.Second, Emotion: "happy", Tone: "warm"},
		{Speaker: "Bob", Text: "hey", Start: 2 * time.Second, End: 5 * time.Second, Emotion: "calm"},
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	srtText := srt.Compose(sampleSegments())
	meta, err := store.Save("call-001", "call.wav", srtText, sampleSegments())
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if meta.SegmentCount != 2 {
		t.Fatalf("SegmentCount = %d, want 2", meta.SegmentCount)
	}
	if len(meta.Speakers) != 2 || meta.Speakers[0] != "Alice" || meta.Speakers[1] != "Bob" {
		t.Fatalf("Speakers = %v", meta.Speakers)
	}
	if meta.DurationSeconds != 5 {
		t.Fatalf("DurationSeconds = %v, want 5", meta.DurationSeconds)
	}

	loaded, err := store.LoadSRT("call-001")
	if err != nil {
		t.Fatalf("LoadSRT: %v", err)
	}
	if loaded != srtText {
		t.Fatal("stored SRT text does not round-trip")
	}

	fetched, err := store.LoadMetadata("call-001")
	if err != nil {
		t.Fatalf("LoadMetadata: %v", err)
	}
	if fetched.ID != "call-001" || fetched.OriginalFilename != "call.wav" {
		t.Fatalf("metadata = %+v", fetched)
	}
}

func TestLoadMissingTranscript(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if _, err := store.LoadSRT("nope"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
	if _, err := store.LoadMetadata("nope"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestInvalidIDsRejected(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	for _, id := range []string{"", "../escape", "a/b", "a b", "x\x00y", "..", "café"} {
		if _, err := store.Save(id, "", "text", nil); !errors.Is(err, services.ErrValidation) {
			t.Errorf("Save(%q) err = %v, want validation error", id, err)
		}
		if _, err := store.LoadSRT(id); !errors.Is(err, services.ErrValidation) {
			t.Errorf("LoadSRT(%q) err = %v, want validation error", id, err)
		}
	}
}

func TestListNewestFirst(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	for _, id := range []string{"first", "second", "third"} {
		if _, err := store.Save(id, "", "text", sampleSegments()); err != nil {
			t.Fatalf("Save(%s): %v", id, err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	metas, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(metas) != 3 {
		t.Fatalf("len = %d, want 3", len(metas))
	}
	if metas[0].ID != "third" || metas[2].ID != "first" {
		ids := make([]string, len(metas))
		for i, m := range metas {
			ids[i] = m.ID
		}
		t.Fatalf("order = %s, want newest first", strings.Join(ids, ","))
	}
}
