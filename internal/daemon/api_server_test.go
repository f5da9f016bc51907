package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"testing"
	"time"

	"voiceforge/internal/daemon"
	"voiceforge/internal/jobs"
	"voiceforge/internal/testsupport"
)

func startDaemon(t *testing.T) (*daemon.Daemon, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	transcriptStore := testsupport.MustOpenTranscripts(t, cfg)
	coordinator := jobs.NewCoordinator(cfg, store, transcriptStore, nil, nil)

	d, err := daemon.New(cfg, store, coordinator, transcriptStore, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		d.Stop()
	})
	return d, "http://" + d.Addr()
}

func multipartUpload(t *testing.T, fileField, filename string, fileData []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(fileField, filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write(fileData); err != nil {
		t.Fatalf("write part: %v", err)
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("WriteField(%s): %v", key, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &body, writer.FormDataContentType()
}

func decodeJSON(t *testing.T, resp *http.Response, target any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func waitForJob(t *testing.T, base, jobID string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(base + "/api/status/" + jobID)
		if err != nil {
			t.Fatalf("status request: %v", err)
		}
		var status map[string]any
		decodeJSON(t, resp, &status)
		switch status["status"] {
		case "completed", "failed":
			return status
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("job did not reach a terminal state")
	return nil
}

func TestGenerateStatusDownloadFlow(t *testing.T) {
	_, base := startDaemon(t)

	body, contentType := multipartUpload(t, "file", "script.srt",
		[]byte(testsupport.SampleSRT), map[string]string{"config": testsupport.SampleRolesJSON})
	resp, err := http.Post(base+"/api/generate", contentType, body)
	if err != nil {
		t.Fatalf("generate request: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("generate status = %d, want 202", resp.StatusCode)
	}
	var accepted map[string]string
	decodeJSON(t, resp, &accepted)
	jobID := accepted["job_id"]
	if jobID == "" {
		t.Fatal("missing job_id")
	}

	// Download before completion is a 404.
	early, err := http.Get(base + "/api/download/" + jobID)
	if err != nil {
		t.Fatalf("early download: %v", err)
	}
	early.Body.Close()
	if early.StatusCode != http.StatusNotFound && early.StatusCode != http.StatusOK {
		t.Fatalf("early download status = %d", early.StatusCode)
	}

	status := waitForJob(t, base, jobID)
	if status["status"] != "completed" {
		t.Fatalf("job = %+v, want completed", status)
	}
	if status["progress"].(float64) != 100 {
		t.Fatalf("progress = %v, want 100", status["progress"])
	}

	download, err := http.Get(base + "/api/download/" + jobID)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer download.Body.Close()
	if download.StatusCode != http.StatusOK {
		t.Fatalf("download status = %d", download.StatusCode)
	}
	audio, err := io.ReadAll(download.Body)
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if len(audio) == 0 {
		t.Fatal("downloaded audio is empty")
	}
}

func TestGenerateValidationReturns400(t *testing.T) {
	_, base := startDaemon(t)

	// Valid file, config missing the roles mapping.
	body, contentType := multipartUpload(t, "file", "script.srt",
		[]byte(testsupport.SampleSRT), map[string]string{"config": `{}`})
	resp, err := http.Post(base+"/api/generate", contentType, body)
	if err != nil {
		t.Fatalf("generate request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGenerationWithUnmappedSpeakerFailsJob(t *testing.T) {
	_, base := startDaemon(t)

	body, contentType := multipartUpload(t, "file", "script.srt",
		[]byte(testsupport.SampleSRT),
		map[string]string{"config": `{"roles": {"Bob": {"voice_id": "voice-bob"}}}`})
	resp, err := http.Post(base+"/api/generate", contentType, body)
	if err != nil {
		t.Fatalf("generate request: %v", err)
	}
	var accepted map[string]string
	decodeJSON(t, resp, &accepted)

	status := waitForJob(t, base, accepted["job_id"])
	if status["status"] != "failed" {
		t.Fatalf("status = %v, want failed", status["status"])
	}
	if errText, _ := status["error"].(string); !bytes.Contains([]byte(errText), []byte("Alice")) {
		t.Fatalf("error = %q, want speaker named", errText)
	}
}

func TestStatusUnknownJob(t *testing.T) {
	_, base := startDaemon(t)
	resp, err := http.Get(base + "/api/status/nope")
	if err != nil {
		t.Fatalf("status request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestTranscribeAndTranscriptEndpoints(t *testing.T) {
	_, base := startDaemon(t)

	body, contentType := multipartUpload(t, "file", "meeting.wav", make([]byte, 64000), nil)
	resp, err := http.Post(base+"/api/transcribe", contentType, body)
	if err != nil {
		t.Fatalf("transcribe request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("transcribe status = %d, want 200", resp.StatusCode)
	}
	var result struct {
		TranscriptID string `json:"transcript_id"`
		SRT          string `json:"srt"`
	}
	decodeJSON(t, resp, &result)
	if result.TranscriptID == "" || result.SRT == "" {
		t.Fatalf("incomplete transcribe response: %+v", result)
	}

	listResp, err := http.Get(base + "/api/transcripts")
	if err != nil {
		t.Fatalf("list request: %v", err)
	}
	var listed struct {
		Transcripts []map[string]any `json:"transcripts"`
	}
	decodeJSON(t, listResp, &listed)
	if len(listed.Transcripts) != 1 {
		t.Fatalf("transcripts = %d, want 1", len(listed.Transcripts))
	}

	metaResp, err := http.Get(base + "/api/transcripts/" + result.TranscriptID)
	if err != nil {
		t.Fatalf("metadata request: %v", err)
	}
	var meta map[string]any
	decodeJSON(t, metaResp, &meta)
	if meta["segment_count"].(float64) != 2 {
		t.Fatalf("segment_count = %v, want 2", meta["segment_count"])
	}

	downloadResp, err := http.Get(base + "/api/transcripts/" + result.TranscriptID + "/download")
	if err != nil {
		t.Fatalf("download request: %v", err)
	}
	defer downloadResp.Body.Close()
	srtData, err := io.ReadAll(downloadResp.Body)
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if string(srtData) != result.SRT {
		t.Fatal("downloaded SRT differs from transcribe response")
	}

	// Re-synthesize the stored transcript.
	genResp, err := http.Post(base+"/api/transcripts/"+result.TranscriptID+"/generate",
		"application/json", bytes.NewBufferString(testsupport.SampleRolesJSON))
	if err != nil {
		t.Fatalf("regenerate request: %v", err)
	}
	if genResp.StatusCode != http.StatusAccepted {
		t.Fatalf("regenerate status = %d, want 202", genResp.StatusCode)
	}
	var accepted map[string]string
	decodeJSON(t, genResp, &accepted)
	status := waitForJob(t, base, accepted["job_id"])
	if status["status"] != "completed" {
		t.Fatalf("regenerated job = %+v, want completed", status)
	}
}

func TestHealthEndpoint(t *testing.T) {
	d, base := startDaemon(t)
	resp, err := http.Get(base + "/api/health")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	var status daemon.Status
	decodeJSON(t, resp, &status)
	if !status.Running {
		t.Fatal("daemon should report running")
	}
	if status.APIAddress != d.Addr() {
		t.Fatalf("api address = %q, want %q", status.APIAddress, d.Addr())
	}
	if len(status.Dependencies) == 0 {
		t.Fatal("expected dependency report in health status")
	}
	if status.Dependencies[0].Name != "FFmpeg" {
		t.Fatalf("unexpected dependency: %#v", status.Dependencies[0])
	}
}

func TestMethodChecks(t *testing.T) {
	_, base := startDaemon(t)
	for _, url := range []string{
		base + "/api/generate",
		base + "/api/transcribe",
	} {
		resp, err := http.Get(url)
		if err != nil {
			t.Fatalf("GET %s: %v", url, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("GET %s status = %d, want 405", url, resp.StatusCode)
		}
	}
}

func TestSecondInstanceRefused(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	transcriptStore := testsupport.MustOpenTranscripts(t, cfg)
	coordinator := jobs.NewCoordinator(cfg, store, transcriptStore, nil, nil)

	first, err := daemon.New(cfg, store, coordinator, transcriptStore, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer first.Stop()

	second, err := daemon.New(cfg, store, coordinator, transcriptStore, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second instance acquired the lock")
	} else if fmt.Sprint(err) == "" {
		t.Fatal("empty error")
	}
}
