// Package timeline composites per-segment speech clips onto a single
// time-aligned audio buffer and exports the mixed result.
package timeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"voiceforge/internal/audio"
	"voiceforge/internal/logging"
	"voiceforge/internal/media/ffmpeg"
	"voiceforge/internal/services"
	"voiceforge/internal/srt"
)

// Result describes an exported mix.
type Result struct {
	Path            string
	DurationSeconds float64
	// Format is the container actually written: mp3 when ffmpeg is
	// available, wav otherwise.
	Format string
}

type entry struct {
	segment srt.Segment
	clip    *audio.Clip
}

// Builder accumulates subtitle-aligned clips and mixes them into one file.
// Clips are decoded eagerly on Add so a corrupt payload fails the job at the
// segment that produced it rather than at export time.
type Builder struct {
	mixRate    int
	entries    []entry
	transcoder *ffmpeg.Transcoder
	logger     *slog.Logger
}

// NewBuilder constructs a Builder mixing at the given sample rate.
func NewBuilder(mixRate int, transcoder *ffmpeg.Transcoder, logger *slog.Logger) *Builder {
	if mixRate <= 0 {
		mixRate = 44100
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Builder{
		mixRate:    mixRate,
		transcoder: transcoder,
		logger:     logger.With(slog.String(logging.FieldComponent, "timeline")),
	}
}

// Add appends one clip aligned with a subtitle segment. Every accepted pair
// contributes to the final mix; nothing is discarded or truncated.
func (b *Builder) Add(seg srt.Segment, data []byte, format string) error {
	if len(data) == 0 {
		return services.Wrap(services.ErrComposition, "timeline", "add segment",
			"received empty audio payload from provider", nil)
	}
	clip, err := audio.Decode(data, format)
	if err != nil {
		return err
	}
	b.entries = append(b.entries, entry{segment: seg, clip: clip})
	return nil
}

// Len reports how many clips have been accepted.
func (b *Builder) Len() int {
	return len(b.entries)
}

// Export mixes all accumulated clips and writes a single file at path.
// Total duration is the furthest point any segment reaches, where a clip
// longer than its subtitle window extends the window, plus one second of
// trailing buffer.
func (b *Builder) Export(ctx context.Context, path string) (Result, error) {
	if len(b.entries) == 0 {
		return Result{}, services.Wrap(services.ErrComposition, "timeline", "export",
			"no audio segments were added to the timeline", nil)
	}

	var total time.Duration
	for _, e := range b.entries {
		effective := e.segment.Window()
		if d := e.clip.Duration(); d > effective {
			effective = d
		}
		if end := e.segment.Start + effective; end > total {
			total = end
		}
	}

	mix := audio.Silence(total+time.Second, b.mixRate)
	for _, e := range b.entries {
		mix.Overlay(e.clip, e.segment.Start)
	}

	wavData, err := audio.EncodeWAV(mix)
	if err != nil {
		return Result{}, services.Wrap(services.ErrComposition, "timeline", "export", "", err)
	}

	result := Result{Path: path, DurationSeconds: mix.Duration().Seconds(), Format: audio.FormatMP3}
	output := wavData
	if b.transcoder != nil && b.transcoder.Available() {
		transcoded, err := b.transcoder.TranscodeBytes(ctx, wavData)
		if err != nil {
			return Result{}, services.Wrap(services.ErrComposition, "timeline", "export", "mp3 transcode", err)
		}
		output = transcoded
	} else {
		b.logger.Warn("ffmpeg unavailable, exporting wav instead of mp3", slog.String("path", path))
		result.Format = audio.FormatWAV
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Result{}, fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, output, 0o644); err != nil {
		return Result{}, fmt.Errorf("write mixed audio: %w", err)
	}

	b.logger.Info("exported mixed timeline",
		slog.String("path", path),
		slog.Int("segments", len(b.entries)),
		slog.Float64("duration_seconds", result.DurationSeconds),
		slog.String("format", result.Format))
	return result, nil
}
