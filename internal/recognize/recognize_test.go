package recognize

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"voiceforge/internal/services"
	"voiceforge/internal/voice"
)

func testProvider(baseURL string) voice.ProviderConfig {
	return voice.ProviderConfig{
		BaseURL:             baseURL,
		APIKey:              "test-key",
		PollIntervalSeconds: 0.01,
		PollTimeoutSeconds:  2,
	}
}

func TestMockReturnsTwoSegmentsCoveringEstimatedDuration(t *testing.T) {
	m := NewMock(nil)

	// Small upload: six second floor applies.
	segments, err := m.Transcribe(context.Background(), make([]byte, 1000), "tiny.wav")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(segments))
	}
	if segments[1].End != 6*time.Second {
		t.Fatalf("total = %v, want 6s floor", segments[1].End)
	}
	if segments[0].End != segments[1].Start {
		t.Fatalf("segments not contiguous: %v vs %v", segments[0].End, segments[1].Start)
	}
	if segments[0].Speaker == segments[1].Speaker {
		t.Fatal("expected two distinct speakers")
	}
	if segments[0].Emotion == "" || segments[0].Gender == "" {
		t.Fatal("expected emotion and gender metadata")
	}

	// Large upload: byte-rate estimate wins. 320000 bytes is ten seconds.
	segments, err = m.Transcribe(context.Background(), make([]byte, 320000), "long.wav")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if segments[1].End != 10*time.Second {
		t.Fatalf("total = %v, want 10s", segments[1].End)
	}
	// Split sits at 80% of the midpoint.
	if segments[0].End != 4*time.Second {
		t.Fatalf("split = %v, want 4s", segments[0].End)
	}
}

func TestMockRejectsEmptyUpload(t *testing.T) {
	m := NewMock(nil)
	_, err := m.Transcribe(context.Background(), nil, "x.wav")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestHTTPImmediateSegments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/transcribe" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			t.Errorf("Content-Type = %q, want multipart", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer auth")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"segments": []map[string]any{
				{"speaker": "Alice", "text": "hi", "start": 0.0, "end": 1.5, "emotion": "happy"},
				{"name": "Bob", "text": "hey", "start": 1.5, "end": 3.0, "gender": "Male"},
			},
		})
	}))
	defer server.Close()

	c := NewHTTP(testProvider(server.URL), nil)
	segments, err := c.Transcribe(context.Background(), []byte("fake-audio"), "call.wav")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(segments))
	}
	if segments[0].Speaker != "Alice" || segments[1].Speaker != "Bob" {
		t.Fatalf("speakers = %q, %q", segments[0].Speaker, segments[1].Speaker)
	}
	if segments[0].End != 1500*time.Millisecond {
		t.Fatalf("end = %v, want 1.5s", segments[0].End)
	}
	if segments[1].Gender != "male" {
		t.Fatalf("gender = %q, want normalized male", segments[1].Gender)
	}
}

func TestHTTPAsyncTaskWithNestedResult(t *testing.T) {
	var polls int32
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/transcribe", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"task_id": "t-1", "status": "submitted"})
	})
	mux.HandleFunc("/transcribe/t-1", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&polls, 1) == 1 {
			json.NewEncoder(w).Encode(map[string]string{"status": "processing"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status": "completed",
			"result": map[string]any{
				// Millisecond timestamps get normalized.
				"segments": []map[string]any{
					{"speaker": "Host", "text": "welcome", "start": 0, "end": 12000},
				},
			},
		})
	})

	c := NewHTTP(testProvider(server.URL), nil)
	segments, err := c.Transcribe(context.Background(), []byte("fake-audio"), "show.mp3")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("segments = %d, want 1", len(segments))
	}
	if segments[0].End != 12*time.Second {
		t.Fatalf("end = %v, want 12s from milliseconds", segments[0].End)
	}
	if got := atomic.LoadInt32(&polls); got != 2 {
		t.Fatalf("polls = %d, want 2", got)
	}
}

func TestHTTPAppIDAuthSendsRequestID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-App-Id") != "app-1" || r.Header.Get("X-Api-Access-Key") != "ak-1" {
			t.Errorf("missing app auth headers")
		}
		if r.Header.Get("X-Api-Request-Id") == "" {
			t.Errorf("missing request id header")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"segments": []map[string]any{{"speaker": "A", "text": "x", "start": 0, "end": 1}},
		})
	}))
	defer server.Close()

	provider := testProvider(server.URL)
	provider.APIKey = ""
	provider.AppID = "app-1"
	provider.AccessKey = "ak-1"
	c := NewHTTP(provider, nil)
	if _, err := c.Transcribe(context.Background(), []byte("x"), "a.wav"); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
}

func TestHTTPRequestIDSharedAcrossSubmitAndPolls(t *testing.T) {
	var mu sync.Mutex
	var ids []string
	record := func(r *http.Request) {
		mu.Lock()
		ids = append(ids, r.Header.Get("X-Api-Request-Id"))
		mu.Unlock()
	}

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/transcribe", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		json.NewEncoder(w).Encode(map[string]string{"task_id": "t-7"})
	})
	mux.HandleFunc("/transcribe/t-7", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		json.NewEncoder(w).Encode(map[string]any{
			"segments": []map[string]any{{"speaker": "A", "text": "x", "start": 0, "end": 1}},
		})
	})

	provider := testProvider(server.URL)
	provider.APIKey = ""
	provider.AppID = "app-1"
	provider.AccessKey = "ak-1"
	c := NewHTTP(provider, nil)
	if _, err := c.Transcribe(context.Background(), []byte("x"), "a.wav"); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(ids) < 2 {
		t.Fatalf("expected submit and at least one poll, got %d requests", len(ids))
	}
	if ids[0] == "" {
		t.Fatal("request id header missing")
	}
	for _, id := range ids[1:] {
		if id != ids[0] {
			t.Fatalf("request ids diverge: %q vs %q", ids[0], id)
		}
	}
}

func TestHTTPTaskFailure(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/transcribe", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"job_id": "t-2"})
	})
	mux.HandleFunc("/transcribe/t-2", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": "audio too noisy"})
	})

	c := NewHTTP(testProvider(server.URL), nil)
	_, err := c.Transcribe(context.Background(), []byte("x"), "a.wav")
	if !errors.Is(err, services.ErrProvider) {
		t.Fatalf("err = %v, want provider error", err)
	}
	if !strings.Contains(err.Error(), "audio too noisy") {
		t.Fatalf("error does not carry provider detail: %v", err)
	}
}

func TestHTTPPollTimeout(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/transcribe", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "t-3"})
	})
	mux.HandleFunc("/transcribe/t-3", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "pending"})
	})

	provider := testProvider(server.URL)
	provider.PollTimeoutSeconds = 0.05
	c := NewHTTP(provider, nil)
	_, err := c.Transcribe(context.Background(), []byte("x"), "a.wav")
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("err = %v, want timeout error", err)
	}
}

func TestHTTPErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewHTTP(testProvider(server.URL), nil)
	_, err := c.Transcribe(context.Background(), []byte("x"), "a.wav")
	if !errors.Is(err, services.ErrProvider) {
		t.Fatalf("err = %v, want provider error", err)
	}
}

func TestToSRTUsesMetadataConvention(t *testing.T) {
	m := NewMock(nil)
	segments, err := m.Transcribe(context.Background(), make([]byte, 1000), "a.wav")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	text := ToSRT(segments)
	if !strings.Contains(text, "Alice|emotion=happy|tone=warm|gender=female:") {
		t.Fatalf("missing metadata-annotated speaker prefix:\n%s", text)
	}
	if !strings.Contains(text, "-->") {
		t.Fatal("missing timestamp line")
	}
}
