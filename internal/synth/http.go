package synth

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"voiceforge/internal/audio"
	"voiceforge/internal/logging"
	"voiceforge/internal/media/ffmpeg"
	"voiceforge/internal/services"
	"voiceforge/internal/srt"
	"voiceforge/internal/voice"
)

// HTTPClient calls an external synthesis service. The service contract is
// deliberately loose: the submit call may answer with raw audio bytes, a JSON
// body carrying base64 audio, a URL to download, or an async task id that is
// polled until it reaches a terminal status.
type HTTPClient struct {
	provider   voice.ProviderConfig
	httpClient *http.Client
	transcoder *ffmpeg.Transcoder
	logger     *slog.Logger
}

// Option customizes the HTTP synthesizer.
type Option func(*HTTPClient)

// WithHTTPClient overrides the default HTTP client (useful for tests).
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewHTTP constructs a synthesizer backed by an external service.
func NewHTTP(provider voice.ProviderConfig, transcoder *ffmpeg.Transcoder, logger *slog.Logger, opts ...Option) *HTTPClient {
	if logger == nil {
		logger = logging.NewNop()
	}
	client := &HTTPClient{
		provider:   provider,
		httpClient: &http.Client{Timeout: provider.Timeout()},
		transcoder: transcoder,
		logger:     logger.With(slog.String(logging.FieldComponent, "synth-http")),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// synthesisResponse covers every JSON shape the known providers return.
type synthesisResponse struct {
	Audio       string `json:"audio"`
	AudioBase64 string `json:"audio_base64"`
	Data        string `json:"data"`
	AudioURL    string `json:"audio_url"`
	JobID       string `json:"job_id"`
	ID          string `json:"id"`
	TaskID      string `json:"task_id"`
	Status      string `json:"status"`
	Format      string `json:"format"`
	Error       string `json:"error"`
	Message     string `json:"message"`
}

// Synthesize submits one segment and resolves whichever response shape the
// provider chose into audio bytes.
func (c *HTTPClient) Synthesize(ctx context.Context, seg srt.Segment, role voice.RoleConfig) (Audio, error) {
	body, err := json.Marshal(buildRequest(seg, role))
	if err != nil {
		return Audio{}, fmt.Errorf("synth: encode request: %w", err)
	}
	endpoint, err := url.JoinPath(c.provider.BaseURL, "/synthesize")
	if err != nil {
		return Audio{}, fmt.Errorf("synth: build url: %w", err)
	}

	data, contentType, err := c.postSynthesize(ctx, endpoint, body)
	if err != nil {
		return Audio{}, err
	}
	return c.finish(ctx, data, contentType, role)
}

// buildRequest assembles the outbound payload. Segment-level emotion and tone
// hints win over the role defaults, and any provider-specific extras on the
// role are forwarded verbatim.
func buildRequest(seg srt.Segment, role voice.RoleConfig) map[string]any {
	request := map[string]any{
		"voice_id":      role.VoiceID,
		"text":          seg.Text,
		"audio_format":  audio.NormalizeFormat(role.AudioFormat),
		"speaking_rate": role.SpeakingRate,
	}
	if role.Pitch != 0 {
		request["pitch"] = role.Pitch
	}
	if role.Gender != "" {
		request["gender"] = role.Gender
	}
	if role.ReferenceAudioPath != "" {
		request["reference_audio"] = role.ReferenceAudioPath
	}
	if emotion := firstNonEmpty(seg.Emotion, role.DefaultEmotion); emotion != "" {
		request["emotion"] = emotion
	}
	if tone := firstNonEmpty(seg.Tone, role.DefaultTone); tone != "" {
		request["tone"] = tone
	}
	for key, value := range role.Extra {
		request[key] = value
	}
	return request
}

// postSynthesize performs the submit call and unwraps the immediate response
// shapes, polling when it receives a task id instead of audio.
func (c *HTTPClient) postSynthesize(ctx context.Context, endpoint string, body []byte) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("synth: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", services.Wrap(services.ErrProvider, "synth-http", "submit", "request failed", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", services.Wrap(services.ErrProvider, "synth-http", "submit", "read body", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, "", statusError("submit", resp.StatusCode, payload)
	}

	contentType := resp.Header.Get("Content-Type")
	if isAudioContentType(contentType) || audio.IsWAV(payload) {
		return payload, contentType, nil
	}

	var decoded synthesisResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		// Not JSON and not a recognizable container header: assume the
		// provider streamed encoded audio without a content type.
		return payload, contentType, nil
	}

	if encoded := firstNonEmpty(decoded.Audio, decoded.AudioBase64, decoded.Data); encoded != "" {
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, "", services.Wrap(services.ErrProvider, "synth-http", "submit", "invalid base64 audio", err)
		}
		return raw, decoded.Format, nil
	}
	if decoded.AudioURL != "" {
		return c.download(ctx, decoded.AudioURL)
	}
	if taskID := firstNonEmpty(decoded.JobID, decoded.ID, decoded.TaskID); taskID != "" {
		return c.pollTask(ctx, taskID)
	}
	if isFailedStatus(decoded.Status) {
		detail := firstNonEmpty(decoded.Error, decoded.Message, decoded.Status)
		return nil, "", services.Wrap(services.ErrProvider, "synth-http", "submit",
			"synthesis failed: "+detail, nil)
	}
	return nil, "", services.Wrap(services.ErrProvider, "synth-http", "submit",
		"response carried neither audio nor a task id: "+truncate(payload), nil)
}

// pollTask polls the task status endpoint until the provider reports a
// terminal state or the configured deadline passes.
func (c *HTTPClient) pollTask(ctx context.Context, taskID string) ([]byte, string, error) {
	endpoint, err := url.JoinPath(c.provider.BaseURL, "/synthesize", taskID)
	if err != nil {
		return nil, "", fmt.Errorf("synth: build poll url: %w", err)
	}
	c.logger.Debug("provider returned async task, polling", slog.String("task_id", taskID))

	var (
		resultData        []byte
		resultContentType string
	)
	step := func(ctx context.Context) (bool, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return false, fmt.Errorf("synth: poll request: %w", err)
		}
		c.authorize(req)
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return false, services.Wrap(services.ErrProvider, "synth-http", "poll", "request failed", err)
		}
		defer resp.Body.Close()
		payload, err := io.ReadAll(resp.Body)
		if err != nil {
			return false, services.Wrap(services.ErrProvider, "synth-http", "poll", "read body", err)
		}
		if resp.StatusCode >= http.StatusBadRequest {
			return false, statusError("poll", resp.StatusCode, payload)
		}

		contentType := resp.Header.Get("Content-Type")
		if isAudioContentType(contentType) || audio.IsWAV(payload) {
			resultData, resultContentType = payload, contentType
			return true, nil
		}
		var status synthesisResponse
		if err := json.Unmarshal(payload, &status); err != nil {
			return false, services.Wrap(services.ErrProvider, "synth-http", "poll", "unreadable status: "+truncate(payload), err)
		}
		switch {
		case isFailedStatus(status.Status):
			detail := firstNonEmpty(status.Error, status.Message, status.Status)
			return false, services.Wrap(services.ErrProvider, "synth-http", "poll",
				"task "+taskID+" failed: "+detail, nil)
		case isCompletedStatus(status.Status):
			if encoded := firstNonEmpty(status.Audio, status.AudioBase64, status.Data); encoded != "" {
				raw, err := base64.StdEncoding.DecodeString(encoded)
				if err != nil {
					return false, services.Wrap(services.ErrProvider, "synth-http", "poll", "invalid base64 audio", err)
				}
				resultData, resultContentType = raw, status.Format
				return true, nil
			}
			if status.AudioURL != "" {
				data, contentType, err := c.download(ctx, status.AudioURL)
				if err != nil {
					return false, err
				}
				resultData, resultContentType = data, contentType
				return true, nil
			}
			return false, services.Wrap(services.ErrProvider, "synth-http", "poll",
				"task "+taskID+" completed without audio", nil)
		default:
			return false, nil
		}
	}

	if err := services.Poll(ctx, c.provider.PollInterval(), c.provider.PollTimeout(), step); err != nil {
		return nil, "", err
	}
	return resultData, resultContentType, nil
}

func (c *HTTPClient) download(ctx context.Context, audioURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("synth: download request: %w", err)
	}
	c.authorize(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", services.Wrap(services.ErrProvider, "synth-http", "download", "request failed", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", services.Wrap(services.ErrProvider, "synth-http", "download", "read body", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, "", statusError("download", resp.StatusCode, payload)
	}
	return payload, resp.Header.Get("Content-Type"), nil
}

// finish normalizes the downloaded audio toward the role's requested format.
// A wav result for an mp3 role is transcoded when ffmpeg is present, otherwise
// passed through unchanged since the compositor decodes both containers.
func (c *HTTPClient) finish(ctx context.Context, data []byte, contentType string, role voice.RoleConfig) (Audio, error) {
	if len(data) == 0 {
		return Audio{}, services.Wrap(services.ErrProvider, "synth-http", "finish", "provider returned empty audio", nil)
	}
	format := audio.DetectFormat(data, contentType)
	wantMP3 := audio.NormalizeFormat(role.AudioFormat) == audio.FormatMP3
	if format == audio.FormatWAV && wantMP3 && c.transcoder != nil && c.transcoder.Available() {
		transcoded, err := c.transcoder.TranscodeBytes(ctx, data)
		if err != nil {
			return Audio{}, services.Wrap(services.ErrProvider, "synth-http", "finish", "mp3 transcode", err)
		}
		return Audio{Data: transcoded, Format: audio.FormatMP3}, nil
	}
	return Audio{Data: data, Format: format}, nil
}

func (c *HTTPClient) authorize(req *http.Request) {
	if c.provider.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.provider.APIKey)
	}
	if c.provider.AppID != "" {
		req.Header.Set("X-Api-App-Id", c.provider.AppID)
		req.Header.Set("X-Api-Access-Key", c.provider.AccessKey)
	}
}

func statusError(operation string, code int, body []byte) error {
	return services.Wrap(services.ErrProvider, "synth-http", operation,
		fmt.Sprintf("http %d: %s", code, truncate(body)), nil)
}

func isAudioContentType(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "audio/")
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

func truncate(body []byte) string {
	const limit = 256
	text := strings.TrimSpace(string(body))
	if len(text) > limit {
		return text[:limit] + "..."
	}
	return text
}
