package synth

import (
	"context"
	"hash/fnv"
	"log/slog"
	"strings"
	"time"

	"voiceforge/internal/audio"
	"voiceforge/internal/logging"
	"voiceforge/internal/services"
	"voiceforge/internal/srt"
	"voiceforge/internal/voice"
)

const (
	mockSampleRate   = 22050
	mockMinDuration  = 350 * time.Millisecond
	mockPerWord      = 320 * time.Millisecond
	mockFadeIn       = 40 * time.Millisecond
	mockFadeOut      = 80 * time.Millisecond
	mockBaseFreq     = 300
	mockFreqSpread   = 300
	mockGainDecibels = -3
)

// Mock is an offline synthesizer that emits a short sine tone per segment.
// Output is fully deterministic: the same voice id and text always yield the
// same bytes, which keeps pipeline tests stable without a provider.
type Mock struct {
	logger *slog.Logger
}

// NewMock constructs the offline tone synthesizer.
func NewMock(logger *slog.Logger) *Mock {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Mock{logger: logger.With(slog.String(logging.FieldComponent, "synth-mock"))}
}

// Synthesize renders a tone whose length tracks the word count and whose
// frequency is derived from the voice id, so distinct voices are audibly
// distinct in the mix. The mock only ever produces wav; a role asking for mp3
// is degraded with a log line rather than rejected.
func (m *Mock) Synthesize(ctx context.Context, seg srt.Segment, role voice.RoleConfig) (Audio, error) {
	if err := ctx.Err(); err != nil {
		return Audio{}, err
	}
	if role.VoiceID == "" {
		return Audio{}, services.Wrap(services.ErrValidation, "synth-mock", "synthesize", "voice id is required", nil)
	}

	words := len(strings.Fields(seg.Text))
	duration := time.Duration(words) * mockPerWord
	if duration < mockMinDuration {
		duration = mockMinDuration
	}

	clip := audio.Tone(toneFrequency(role.VoiceID), duration, mockSampleRate)
	clip.Gain(mockGainDecibels)
	clip.FadeIn(mockFadeIn)
	clip.FadeOut(mockFadeOut)

	data, err := audio.EncodeWAV(clip)
	if err != nil {
		return Audio{}, services.Wrap(services.ErrComposition, "synth-mock", "synthesize", "", err)
	}

	if audio.NormalizeFormat(role.AudioFormat) == audio.FormatMP3 {
		m.logger.Debug("mock synthesizer produces wav, degrading requested mp3",
			slog.String("voice_id", role.VoiceID))
	}
	return Audio{Data: data, Format: audio.FormatWAV}, nil
}

func toneFrequency(voiceID string) float64 {
	h := fnv.New32a()
	h.Write([]byte(voiceID))
	return float64(mockBaseFreq + h.Sum32()%mockFreqSpread)
}
