package jobs

import "time"

// Status is the lifecycle of a background job.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether a job in this status will never change again.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Kind distinguishes the two pipelines a job can run.
type Kind string

const (
	KindGeneration    Kind = "generation"
	KindTranscription Kind = "transcription"
)

// Job is one background unit of work and its externally visible state.
type Job struct {
	ID              string
	Kind            Kind
	Status          Status
	Progress        float64
	Message         string
	Error           string
	OutputPath      string
	DownloadURL     string
	TranscriptID    string
	DurationSeconds float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Patch is a partial job update. Nil fields are left untouched; last write
// wins.
type Patch struct {
	Status          *Status
	Progress        *float64
	Message         *string
	Error           *string
	OutputPath      *string
	DownloadURL     *string
	TranscriptID    *string
	DurationSeconds *float64
}
