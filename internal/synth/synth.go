// Package synth turns subtitle segments into speech audio, either through a
// deterministic offline tone generator or an external HTTP synthesis service.
package synth

import (
	"context"
	"log/slog"

	"voiceforge/internal/logging"
	"voiceforge/internal/media/ffmpeg"
	"voiceforge/internal/srt"
	"voiceforge/internal/voice"
)

// Audio is one synthesized clip plus its container format ("wav" or "mp3").
type Audio struct {
	Data   []byte
	Format string
}

// Synthesizer produces speech for a single subtitle segment using the
// resolved voice role.
type Synthesizer interface {
	Synthesize(ctx context.Context, seg srt.Segment, role voice.RoleConfig) (Audio, error)
}

// New selects a synthesizer for the given provider settings. A nil provider
// (no base_url configured) selects the offline mock.
func New(provider *voice.ProviderConfig, transcoder *ffmpeg.Transcoder, logger *slog.Logger) Synthesizer {
	if logger == nil {
		logger = logging.NewNop()
	}
	if provider == nil || provider.BaseURL == "" {
		return NewMock(logger)
	}
	return NewHTTP(*provider, transcoder, logger)
}
