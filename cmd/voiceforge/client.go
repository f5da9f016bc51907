package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// apiClient is a thin HTTP wrapper over the voiceforged API.
type apiClient struct {
	base       string
	httpClient *http.Client
}

func newAPIClient(base string) *apiClient {
	return &apiClient{
		base:       base,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

type jobStatus struct {
	ID              string  `json:"id"`
	Kind            string  `json:"kind"`
	Status          string  `json:"status"`
	Progress        float64 `json:"progress"`
	Message         string  `json:"message"`
	Error           string  `json:"error"`
	DownloadURL     string  `json:"download_url"`
	TranscriptID    string  `json:"transcript_id"`
	DurationSeconds float64 `json:"duration_seconds"`
}

type transcriptMetadata struct {
	ID               string   `json:"id"`
	OriginalFilename string   `json:"original_filename"`
	SegmentCount     int      `json:"segment_count"`
	Speakers         []string `json:"speakers"`
	DurationSeconds  float64  `json:"duration_seconds"`
	CreatedAt        string   `json:"created_at"`
}

type transcribeResult struct {
	TranscriptID string             `json:"transcript_id"`
	SRT          string             `json:"srt"`
	Metadata     transcriptMetadata `json:"metadata"`
}

// uploadJSONFile posts a multipart request containing the file at path plus an
// optional JSON sidecar field, and decodes the JSON response into out.
func (c *apiClient) upload(endpoint, path, jsonField, jsonPath string, out any) error {
	fileData, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if _, err := part.Write(fileData); err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if jsonPath != "" {
		sidecar, err := os.ReadFile(jsonPath)
		if err != nil {
			return fmt.Errorf("read %s: %w", jsonPath, err)
		}
		if err := writer.WriteField(jsonField, string(sidecar)); err != nil {
			return fmt.Errorf("build request: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Post(c.base+endpoint, writer.FormDataContentType(), &body)
	if err != nil {
		return fmt.Errorf("request %s: %w", endpoint, err)
	}
	return decodeResponse(resp, out)
}

func (c *apiClient) getJSON(endpoint string, out any) error {
	resp, err := c.httpClient.Get(c.base + endpoint)
	if err != nil {
		return fmt.Errorf("request %s: %w", endpoint, err)
	}
	return decodeResponse(resp, out)
}

func (c *apiClient) postJSON(endpoint string, payload []byte, out any) error {
	resp, err := c.httpClient.Post(c.base+endpoint, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("request %s: %w", endpoint, err)
	}
	return decodeResponse(resp, out)
}

// download streams an endpoint's body to a local file.
func (c *apiClient) download(endpoint, outputPath string) error {
	resp, err := c.httpClient.Get(c.base + endpoint)
	if err != nil {
		return fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return responseError(resp)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outputPath, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("write %s: %w", outputPath, err)
	}
	return nil
}

func (c *apiClient) jobStatus(jobID string) (jobStatus, error) {
	var status jobStatus
	err := c.getJSON("/api/status/"+jobID, &status)
	return status, err
}

// waitForJob polls a job until it reaches a terminal state, printing progress
// transitions as they happen.
func (c *apiClient) waitForJob(jobID string, interval time.Duration, report func(jobStatus)) (jobStatus, error) {
	var last jobStatus
	for {
		status, err := c.jobStatus(jobID)
		if err != nil {
			return jobStatus{}, err
		}
		if report != nil && (status.Status != last.Status || status.Progress != last.Progress || status.Message != last.Message) {
			report(status)
		}
		last = status
		if status.Status == "completed" || status.Status == "failed" {
			return status, nil
		}
		time.Sleep(interval)
	}
}

func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return responseError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func responseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return fmt.Errorf("daemon: %s (http %d)", payload.Error, resp.StatusCode)
	}
	detail := strings.TrimSpace(string(body))
	if detail == "" {
		detail = resp.Status
	}
	return fmt.Errorf("daemon: http %d: %s", resp.StatusCode, detail)
}
