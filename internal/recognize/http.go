package recognize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"voiceforge/internal/logging"
	"voiceforge/internal/services"
	"voiceforge/internal/srt"
	"voiceforge/internal/voice"
)

// HTTPClient calls an external transcription service. The submit call may
// answer with segments immediately or with a task id that is polled until the
// transcription finishes.
type HTTPClient struct {
	provider   voice.ProviderConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes the HTTP recognizer.
type Option func(*HTTPClient)

// WithHTTPClient overrides the default HTTP client (useful for tests).
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewHTTP constructs a recognizer backed by an external service.
func NewHTTP(provider voice.ProviderConfig, logger *slog.Logger, opts ...Option) *HTTPClient {
	if logger == nil {
		logger = logging.NewNop()
	}
	client := &HTTPClient{
		provider:   provider,
		httpClient: &http.Client{Timeout: provider.Timeout()},
		logger:     logger.With(slog.String(logging.FieldComponent, "recognize-http")),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type wireSegment struct {
	Speaker string      `json:"speaker"`
	Name    string      `json:"name"`
	Text    string      `json:"text"`
	Start   json.Number `json:"start"`
	End     json.Number `json:"end"`
	Emotion string      `json:"emotion"`
	Tone    string      `json:"tone"`
	Gender  string      `json:"gender"`
}

type transcribeResponse struct {
	Segments []wireSegment `json:"segments"`
	Result   *struct {
		Segments []wireSegment `json:"segments"`
	} `json:"result"`
	JobID   string `json:"job_id"`
	ID      string `json:"id"`
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Transcribe uploads the recording and resolves the provider's response into
// ordered subtitle segments.
func (c *HTTPClient) Transcribe(ctx context.Context, audio []byte, filename string) ([]srt.Segment, error) {
	if len(audio) == 0 {
		return nil, services.Wrap(services.ErrValidation, "recognize-http", "transcribe", "empty audio upload", nil)
	}
	if filename == "" {
		filename = "upload.wav"
	}
	// One correlation id covers the submit call and every poll for it.
	ctx = services.WithRequestID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, c.logger)

	endpoint, err := url.JoinPath(c.provider.BaseURL, "/transcribe")
	if err != nil {
		return nil, fmt.Errorf("recognize: build url: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("recognize: build multipart: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, fmt.Errorf("recognize: write multipart: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("recognize: close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("recognize: request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.authorize(req)

	payload, err := c.do(req, "submit")
	if err != nil {
		return nil, err
	}

	var decoded transcribeResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, services.Wrap(services.ErrProvider, "recognize-http", "submit", "unreadable response", err)
	}
	if segments, ok := decoded.segments(); ok {
		return convertSegments(segments)
	}
	if taskID := firstNonEmpty(decoded.JobID, decoded.ID, decoded.TaskID); taskID != "" {
		return c.pollTask(ctx, logger, taskID)
	}
	return nil, services.Wrap(services.ErrProvider, "recognize-http", "submit",
		"response carried neither segments nor a task id", nil)
}

func (c *HTTPClient) pollTask(ctx context.Context, logger *slog.Logger, taskID string) ([]srt.Segment, error) {
	endpoint, err := url.JoinPath(c.provider.BaseURL, "/transcribe", taskID)
	if err != nil {
		return nil, fmt.Errorf("recognize: build poll url: %w", err)
	}
	logger.Debug("provider returned async task, polling", slog.String("task_id", taskID))

	var result []srt.Segment
	step := func(ctx context.Context) (bool, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return false, fmt.Errorf("recognize: poll request: %w", err)
		}
		c.authorize(req)
		payload, err := c.do(req, "poll")
		if err != nil {
			return false, err
		}
		var status transcribeResponse
		if err := json.Unmarshal(payload, &status); err != nil {
			return false, services.Wrap(services.ErrProvider, "recognize-http", "poll", "unreadable status", err)
		}
		if isFailedStatus(status.Status) {
			detail := firstNonEmpty(status.Error, status.Message, status.Status)
			return false, services.Wrap(services.ErrProvider, "recognize-http", "poll",
				"task "+taskID+" failed: "+detail, nil)
		}
		if segments, ok := status.segments(); ok {
			converted, err := convertSegments(segments)
			if err != nil {
				return false, err
			}
			result = converted
			return true, nil
		}
		if isCompletedStatus(status.Status) {
			return false, services.Wrap(services.ErrProvider, "recognize-http", "poll",
				"task "+taskID+" completed without segments", nil)
		}
		return false, nil
	}

	if err := services.Poll(ctx, c.provider.PollInterval(), c.provider.PollTimeout(), step); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *HTTPClient) do(req *http.Request, operation string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrProvider, "recognize-http", operation, "request failed", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrProvider, "recognize-http", operation, "read body", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, services.Wrap(services.ErrProvider, "recognize-http", operation,
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload))), nil)
	}
	return payload, nil
}

func (c *HTTPClient) authorize(req *http.Request) {
	if c.provider.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.provider.APIKey)
	}
	if c.provider.AppID != "" {
		req.Header.Set("X-Api-App-Id", c.provider.AppID)
		req.Header.Set("X-Api-Access-Key", c.provider.AccessKey)
		rid, ok := services.RequestIDFromContext(req.Context())
		if !ok {
			rid = uuid.NewString()
		}
		req.Header.Set("X-Api-Request-Id", rid)
	}
}

// segments returns the segment list wherever the provider nested it.
func (r transcribeResponse) segments() ([]wireSegment, bool) {
	if len(r.Segments) > 0 {
		return r.Segments, true
	}
	if r.Result != nil && len(r.Result.Segments) > 0 {
		return r.Result.Segments, true
	}
	return nil, false
}

func convertSegments(wire []wireSegment) ([]srt.Segment, error) {
	segments := make([]srt.Segment, 0, len(wire))
	for i, ws := range wire {
		start, err := parseTimestampValue(ws.Start)
		if err != nil {
			return nil, services.Wrap(services.ErrProvider, "recognize-http", "convert",
				fmt.Sprintf("segment %d has invalid start", i), err)
		}
		end, err := parseTimestampValue(ws.End)
		if err != nil {
			return nil, services.Wrap(services.ErrProvider, "recognize-http", "convert",
				fmt.Sprintf("segment %d has invalid end", i), err)
		}
		speaker := firstNonEmpty(ws.Speaker, ws.Name)
		if speaker == "" {
			speaker = srt.DefaultSpeaker
		}
		segments = append(segments, srt.Segment{
			Speaker: speaker,
			Text:    strings.TrimSpace(ws.Text),
			Start:   start,
			End:     end,
			Emotion: strings.TrimSpace(ws.Emotion),
			Tone:    strings.TrimSpace(ws.Tone),
			Gender:  voice.NormalizeGender(ws.Gender),
		})
	}
	return segments, nil
}

// parseTimestampValue accepts seconds or milliseconds. Integral values above
// 10000 are taken as milliseconds, which is how the known providers report
// offsets longer than a few seconds.
func parseTimestampValue(raw json.Number) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	value, err := raw.Float64()
	if err != nil {
		return 0, err
	}
	if value > 10000 && value == math.Trunc(value) {
		return time.Duration(value) * time.Millisecond, nil
	}
	return time.Duration(value * float64(time.Second)), nil
}

var completedStatuses = map[string]struct{}{
	"completed": {}, "succeeded": {}, "ready": {}, "success": {}, "done": {},
}

var failedStatuses = map[string]struct{}{
	"failed": {}, "error": {}, "cancelled": {},
}

func isCompletedStatus(status string) bool {
	_, ok := completedStatuses[strings.ToLower(strings.TrimSpace(status))]
	return ok
}

func isFailedStatus(status string) bool {
	_, ok := failedStatuses[strings.ToLower(strings.TrimSpace(status))]
	return ok
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
