package recognize

import (
	"context"
	"log/slog"
	"time"

	"voiceforge/internal/logging"
	"voiceforge/internal/services"
	"voiceforge/internal/srt"
)

const (
	// Rough byte rate of 16-bit mono PCM at 16 kHz, used to estimate how
	// long an uploaded recording runs.
	mockBytesPerSecond = 32000
	mockMinTotal       = 6 * time.Second
	mockSplitFactor    = 0.8
)

// Mock is an offline recognizer returning two fixed illustrative segments
// spread across the estimated duration of the upload.
type Mock struct {
	logger *slog.Logger
}

// NewMock constructs the offline recognizer.
func NewMock(logger *slog.Logger) *Mock {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Mock{logger: logger.With(slog.String(logging.FieldComponent, "recognize-mock"))}
}

// Transcribe estimates the recording length from the payload size and splits
// it into two speaker turns at a skewed midpoint.
func (m *Mock) Transcribe(ctx context.Context, audio []byte, filename string) ([]srt.Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, services.Wrap(services.ErrValidation, "recognize-mock", "transcribe", "empty audio upload", nil)
	}

	total := time.Duration(len(audio)/mockBytesPerSecond) * time.Second
	if total < mockMinTotal {
		total = mockMinTotal
	}
	split := time.Duration(float64(total) / 2 * mockSplitFactor)

	m.logger.Debug("mock transcription",
		slog.String("filename", filename),
		slog.Float64("estimated_seconds", total.Seconds()))

	return []srt.Segment{
		{
			Speaker: "Alice",
			Text:    "Hello, thanks for calling in today.",
			Start:   0,
			End:     split,
			Emotion: "happy",
			Tone:    "warm",
			Gender:  "female",
		},
		{
			Speaker: "Bob",
			Text:    "Good to be here, let's get started.",
			Start:   split,
			End:     total,
			Emotion: "calm",
			Tone:    "serious",
			Gender:  "male",
		},
	}, nil
}
