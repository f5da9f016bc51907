package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"voiceforge/internal/config"
	"voiceforge/internal/logging"
	"voiceforge/internal/media/ffmpeg"
	"voiceforge/internal/recognize"
	"voiceforge/internal/services"
	"voiceforge/internal/srt"
	"voiceforge/internal/synth"
	"voiceforge/internal/timeline"
	"voiceforge/internal/transcripts"
	"voiceforge/internal/voice"
)

// Coordinator validates incoming requests, records job rows, and runs the
// generation and transcription pipelines in background goroutines. Requests
// fail synchronously only on validation; everything after the job row exists
// lands in the job's terminal state instead.
type Coordinator struct {
	cfg         *config.Config
	store       *Store
	transcripts *transcripts.Store
	transcoder  *ffmpeg.Transcoder
	logger      *slog.Logger

	wg sync.WaitGroup
}

// NewCoordinator wires the job pipelines together.
func NewCoordinator(cfg *config.Config, store *Store, transcriptStore *transcripts.Store, transcoder *ffmpeg.Transcoder, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Coordinator{
		cfg:         cfg,
		store:       store,
		transcripts: transcriptStore,
		transcoder:  transcoder,
		logger:      logger.With(slog.String(logging.FieldComponent, "coordinator")),
	}
}

// Wait blocks until all in-flight jobs finish. Used on shutdown and in tests.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// SubmitGeneration validates the upload and role configuration, records a
// queued job, and starts the synthesis pipeline. Validation problems are
// returned directly and never create a job.
func (c *Coordinator) SubmitGeneration(ctx context.Context, srtData []byte, configJSON []byte) (string, error) {
	if len(srtData) == 0 {
		return "", services.Wrap(services.ErrValidation, "coordinator", "submit generation",
			"uploaded subtitle file is empty", nil)
	}
	genCfg, err := voice.ParseGenerationConfig(configJSON)
	if err != nil {
		return "", err
	}
	c.applyProviderFallbacks(genCfg.Provider)

	jobID := uuid.NewString()
	job := &Job{ID: jobID, Kind: KindGeneration, Status: StatusQueued, Message: "Queued"}
	if err := c.store.Create(ctx, job); err != nil {
		return "", err
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.runGeneration(jobID, srtData, genCfg)
	}()
	return jobID, nil
}

// SubmitGenerationFromTranscript re-synthesizes a stored transcript as a new
// generation job.
func (c *Coordinator) SubmitGenerationFromTranscript(ctx context.Context, transcriptID string, configJSON []byte) (string, error) {
	srtText, err := c.transcripts.LoadSRT(transcriptID)
	if err != nil {
		return "", err
	}
	return c.SubmitGeneration(ctx, []byte(srtText), configJSON)
}

// SubmitTranscription validates the upload, records a queued job, and starts
// the recognition pipeline in the background.
func (c *Coordinator) SubmitTranscription(ctx context.Context, audioData []byte, filename string, providerJSON []byte) (string, error) {
	jobID, provider, err := c.prepareTranscription(ctx, audioData, providerJSON)
	if err != nil {
		return "", err
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.runTranscription(jobID, audioData, filename, provider)
	}()
	return jobID, nil
}

// Transcribe runs the recognition pipeline inline and returns the stored
// transcript. The job row is still recorded so the request shows up in job
// listings alongside background work.
func (c *Coordinator) Transcribe(ctx context.Context, audioData []byte, filename string, providerJSON []byte) (transcripts.Metadata, string, error) {
	jobID, provider, err := c.prepareTranscription(ctx, audioData, providerJSON)
	if err != nil {
		return transcripts.Metadata{}, "", err
	}
	meta, srtText, err := c.runTranscription(jobID, audioData, filename, provider)
	if err != nil {
		return transcripts.Metadata{}, "", err
	}
	return meta, srtText, nil
}

func (c *Coordinator) prepareTranscription(ctx context.Context, audioData []byte, providerJSON []byte) (string, *voice.ProviderConfig, error) {
	if len(audioData) == 0 {
		return "", nil, services.Wrap(services.ErrValidation, "coordinator", "submit transcription",
			"uploaded audio file is empty", nil)
	}
	provider, err := voice.ParseProviderConfig(providerJSON)
	if err != nil {
		return "", nil, err
	}
	c.applyProviderFallbacks(provider)

	jobID := uuid.NewString()
	job := &Job{ID: jobID, Kind: KindTranscription, Status: StatusQueued, Message: "Queued"}
	if err := c.store.Create(ctx, job); err != nil {
		return "", nil, err
	}
	return jobID, provider, nil
}

// applyProviderFallbacks fills timing fields the request left unset from the
// daemon configuration. Request-supplied values always win.
func (c *Coordinator) applyProviderFallbacks(provider *voice.ProviderConfig) {
	if provider == nil {
		return
	}
	if provider.TimeoutSeconds <= 0 {
		provider.TimeoutSeconds = c.cfg.Providers.TimeoutSeconds
	}
	if provider.PollIntervalSeconds <= 0 {
		provider.PollIntervalSeconds = c.cfg.Providers.PollIntervalSeconds
	}
	if provider.PollTimeoutSeconds <= 0 {
		provider.PollTimeoutSeconds = c.cfg.Providers.PollTimeoutSeconds
	}
}

// runGeneration is the background synthesis pipeline. Jobs run to a terminal
// state exactly once; there is no cancellation.
func (c *Coordinator) runGeneration(jobID string, srtData []byte, genCfg *voice.GenerationConfig) {
	ctx := services.WithJobID(context.Background(), jobID)
	logger := logging.WithContext(ctx, c.logger)

	c.patch(ctx, jobID, processingPatch("Parsing subtitles"))

	segments := srt.Parse(string(srtData))
	if len(segments) == 0 {
		c.fail(ctx, jobID, logger, "no dialogue entries found in the subtitle file")
		return
	}

	synthesizer := synth.New(genCfg.Provider, c.transcoder, logger)
	builder := timeline.NewBuilder(c.cfg.Media.MixSampleRate, c.transcoder, logger)

	total := len(segments)
	for i, seg := range segments {
		role, err := genCfg.Resolve(seg.Speaker, seg.Gender)
		if err != nil {
			c.fail(ctx, jobID, logger, err.Error())
			return
		}
		c.patch(ctx, jobID, Patch{
			Message:  stringPtr(fmt.Sprintf("Synthesizing voice for %s", seg.Speaker)),
			Progress: floatPtr(progressPercent(i, total)),
		})
		logger.Debug("synthesizing segment",
			slog.String(logging.FieldSpeaker, seg.Speaker),
			slog.Int("index", i+1),
			slog.Int("total", total))
		result, err := synthesizer.Synthesize(ctx, seg, role)
		if err != nil {
			c.fail(ctx, jobID, logger, err.Error())
			return
		}
		if err := builder.Add(seg, result.Data, result.Format); err != nil {
			c.fail(ctx, jobID, logger, err.Error())
			return
		}
		c.patch(ctx, jobID, Patch{Progress: floatPtr(progressPercent(i+1, total))})
	}

	c.patch(ctx, jobID, Patch{Message: stringPtr("Mixing audio tracks")})

	ext := "mp3"
	if c.transcoder == nil || !c.transcoder.Available() {
		ext = "wav"
	}
	outputPath := filepath.Join(c.cfg.Paths.GeneratedDir, jobID+"."+ext)
	result, err := builder.Export(ctx, outputPath)
	if err != nil {
		c.fail(ctx, jobID, logger, err.Error())
		return
	}

	c.patch(ctx, jobID, Patch{
		Status:          statusPtr(StatusCompleted),
		Progress:        floatPtr(100),
		Message:         stringPtr("Audio composition completed"),
		OutputPath:      stringPtr(result.Path),
		DownloadURL:     stringPtr("/api/download/" + jobID),
		DurationSeconds: floatPtr(result.DurationSeconds),
	})
	logger.Info("generation job completed",
		slog.Int("segments", total),
		slog.Float64("duration_seconds", result.DurationSeconds),
		slog.String("output", result.Path))
}

// runTranscription is the recognition pipeline shared by the background and
// inline paths. It always drives the job row to a terminal state.
func (c *Coordinator) runTranscription(jobID string, audioData []byte, filename string, provider *voice.ProviderConfig) (transcripts.Metadata, string, error) {
	ctx := services.WithJobID(context.Background(), jobID)
	logger := logging.WithContext(ctx, c.logger)

	c.patch(ctx, jobID, processingPatch("Transcribing audio"))

	recognizer := recognize.New(provider, logger)
	segments, err := recognizer.Transcribe(ctx, audioData, filename)
	if err != nil {
		c.fail(ctx, jobID, logger, err.Error())
		return transcripts.Metadata{}, "", err
	}
	if len(segments) == 0 {
		err := services.Wrap(services.ErrProvider, "coordinator", "transcribe", "recognition returned no segments", nil)
		c.fail(ctx, jobID, logger, err.Error())
		return transcripts.Metadata{}, "", err
	}

	c.patch(ctx, jobID, Patch{Message: stringPtr("Writing transcript")})

	srtText := recognize.ToSRT(segments)
	meta, err := c.transcripts.Save(jobID, filename, srtText, segments)
	if err != nil {
		c.fail(ctx, jobID, logger, err.Error())
		return transcripts.Metadata{}, "", err
	}

	c.patch(ctx, jobID, Patch{
		Status:          statusPtr(StatusCompleted),
		Progress:        floatPtr(100),
		Message:         stringPtr("Transcription completed"),
		TranscriptID:    stringPtr(meta.ID),
		DurationSeconds: floatPtr(meta.DurationSeconds),
	})
	logger.Info("transcription job completed",
		slog.Int("segments", len(segments)),
		slog.String("transcript_id", meta.ID))
	return meta, srtText, nil
}

func (c *Coordinator) fail(ctx context.Context, jobID string, logger *slog.Logger, message string) {
	logger.Error("job failed", slog.String("error", message))
	c.patch(ctx, jobID, Patch{
		Status:  statusPtr(StatusFailed),
		Error:   stringPtr(message),
		Message: stringPtr("Job failed"),
	})
}

func (c *Coordinator) patch(ctx context.Context, jobID string, patch Patch) {
	if err := c.store.Patch(ctx, jobID, patch); err != nil {
		c.logger.Error("patch job state",
			slog.String(logging.FieldJobID, jobID),
			slog.String("error", err.Error()))
	}
}

func processingPatch(message string) Patch {
	return Patch{Status: statusPtr(StatusProcessing), Message: stringPtr(message)}
}

// progressPercent rounds done/total to two decimal places.
func progressPercent(done, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(done)/float64(total)*100*100) / 100
}

func statusPtr(s Status) *Status  { return &s }
func stringPtr(s string) *string  { return &s }
func floatPtr(f float64) *float64 { return &f }
