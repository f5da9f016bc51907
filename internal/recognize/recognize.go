// Package recognize converts speech audio back into speaker-attributed
// subtitle segments, through an offline mock or an external HTTP service.
package recognize

import (
	"context"
	"log/slog"

	"voiceforge/internal/logging"
	"voiceforge/internal/srt"
	"voiceforge/internal/voice"
)

// Recognizer transcribes an audio payload into ordered subtitle segments.
type Recognizer interface {
	Transcribe(ctx context.Context, audio []byte, filename string) ([]srt.Segment, error)
}

// New selects a recognizer for the given provider settings. A nil provider
// selects the offline mock.
func New(provider *voice.ProviderConfig, logger *slog.Logger) Recognizer {
	if logger == nil {
		logger = logging.NewNop()
	}
	if provider == nil || provider.BaseURL == "" {
		return NewMock(logger)
	}
	return NewHTTP(*provider, logger)
}

// ToSRT renders recognized segments as SRT text using the speaker metadata
// convention shared with the generation side.
func ToSRT(segments []srt.Segment) string {
	return srt.Compose(segments)
}
