// Package models defines data structures for the Scribeflow transcription pipeline.
package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// JobStatus tracks the lifecycle of a transcription job.
type JobStatus string

const (
	JobStatusDraft      JobStatus = "draft"
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusDiarizing  JobStatus = "diarizing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Valid reports whether s is one of the six known statuses.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusDraft, JobStatusQueued, JobStatusProcessing,
		JobStatusDiarizing, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// Bucket is a display grouping of job statuses.
type Bucket string

const (
	BucketDraft  Bucket = "draft"
	BucketQueued Bucket = "queued"
	BucketActive Bucket = "active"
	BucketDone   Bucket = "done"
)

// StatusBucket folds the six statuses into the four queue sections.
// processing and diarizing always land in the same "active" bucket.
func StatusBucket(s JobStatus) Bucket {
	switch s {
	case JobStatusDraft:
		return BucketDraft
	case JobStatusQueued:
		return BucketQueued
	case JobStatusProcessing, JobStatusDiarizing:
		return BucketActive
	default:
		return BucketDone
	}
}

// Job represents a persisted transcription job.
type Job struct {
	ID surrealmodels.RecordID `json:"id"`

	Filename     string `json:"filename"`
	OriginalPath string `json:"original_path"`
	OutputDir    string `json:"output_dir,omitempty"`
	SizeBytes    int64  `json:"size_bytes,omitempty"`

	// Processing settings
	Engine      string `json:"engine"`
	Model       string `json:"model"`
	Language    string `json:"language,omitempty"` // empty = auto-detect
	MinSpeakers *int   `json:"min_speakers,omitempty"`
	MaxSpeakers *int   `json:"max_speakers,omitempty"`
	Context     string `json:"context,omitempty"` // free text passed to engines as initial prompt

	// Status & progress
	Status   JobStatus `json:"status"`
	Progress float64   `json:"progress"`
	Error    *string   `json:"error_message,omitempty"`

	// Results
	DurationSeconds   *float64 `json:"duration_seconds,omitempty"`
	SpeakersCount     *int     `json:"speakers_count,omitempty"`
	LanguageDetected  string   `json:"language_detected,omitempty"`
	ProcessingSeconds *float64 `json:"processing_seconds,omitempty"`

	// Speaker id -> display name overrides ("SPEAKER_00": "Ivan")
	SpeakerNames map[string]string `json:"speaker_names,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// JobInput is the input structure for creating jobs.
type JobInput struct {
	Filename     string `json:"filename"`
	OriginalPath string `json:"original_path"`
	SizeBytes    int64  `json:"size_bytes,omitempty"`
	Engine       string `json:"engine"`
	Model        string `json:"model"`
	Language     string `json:"language,omitempty"`
	MinSpeakers  *int   `json:"min_speakers,omitempty"`
	MaxSpeakers  *int   `json:"max_speakers,omitempty"`
	Context      string `json:"context,omitempty"`
}

// JobResults carries the fields the worker fills in on completion.
type JobResults struct {
	OutputDir         string
	DurationSeconds   float64
	SpeakersCount     int
	LanguageDetected  string
	ProcessingSeconds float64
}
