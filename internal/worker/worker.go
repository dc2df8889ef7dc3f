// Package worker runs the transcription queue: a single loop that picks
// the oldest queued job, transcribes it, diarizes when the engine did
// not, and writes the transcript artifacts.
package worker

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/scribeflow/scribeflow/internal/artifact"
	"github.com/scribeflow/scribeflow/internal/config"
	"github.com/scribeflow/scribeflow/internal/diarize"
	"github.com/scribeflow/scribeflow/internal/engine"
	"github.com/scribeflow/scribeflow/internal/events"
	"github.com/scribeflow/scribeflow/internal/metrics"
	"github.com/scribeflow/scribeflow/internal/models"
)

// DefaultTick is how often the worker checks for queued jobs.
const DefaultTick = 2 * time.Second

// Store is the subset of the job store the worker needs.
type Store interface {
	QueryNextQueuedJob(ctx context.Context) (*models.Job, error)
	QueryMarkJobStarted(ctx context.Context, id string) error
	QueryUpdateJobStatus(ctx context.Context, id string, status models.JobStatus, progress float64, errMsg string) error
	QueryCompleteJob(ctx context.Context, id string, results models.JobResults) error
	QueryResetStuckJobs(ctx context.Context) (int, error)
}

// Engines resolves an engine id to a configured instance.
type Engines interface {
	Get(id string) (engine.Engine, error)
}

// Worker processes queued jobs one at a time.
type Worker struct {
	store     Store
	engines   Engines
	artifacts *artifact.Store
	settings  func() config.Settings
	bus       *events.Bus
	logger    *slog.Logger
	tick      time.Duration

	// Metrics is optional; when set, transcription timings and failures
	// are recorded on it.
	Metrics *metrics.Collector
}

func New(
	store Store,
	engines Engines,
	artifacts *artifact.Store,
	settings func() config.Settings,
	bus *events.Bus,
	logger *slog.Logger,
) *Worker {
	return &Worker{
		store:     store,
		engines:   engines,
		artifacts: artifacts,
		settings:  settings,
		bus:       bus,
		logger:    logger,
		tick:      DefaultTick,
	}
}

// Run polls for queued jobs until the context is cancelled. Jobs left in
// processing or diarizing by a previous crash are requeued first.
func (w *Worker) Run(ctx context.Context) error {
	reset, err := w.store.QueryResetStuckJobs(ctx)
	if err != nil {
		return err
	}
	if reset > 0 {
		w.logger.Warn("requeued stuck jobs", "count", reset)
	}

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

// drain processes queued jobs until the queue is empty or the context
// is cancelled.
func (w *Worker) drain(ctx context.Context) {
	for ctx.Err() == nil {
		pollStart := time.Now()
		job, err := w.store.QueryNextQueuedJob(ctx)
		if err != nil {
			if w.Metrics != nil {
				w.Metrics.RecordFailure(metrics.OpDBQuery)
			}
			w.logger.Error("poll queue", "error", err)
			return
		}
		if w.Metrics != nil {
			w.Metrics.RecordTiming(metrics.OpDBQuery, time.Since(pollStart))
		}
		if job == nil {
			return
		}
		w.ProcessJob(ctx, job)
	}
}

// ProcessJob runs one job through transcription, diarization and artifact
// writing. Failures are recorded on the job verbatim; the worker itself
// never stops on a job error.
func (w *Worker) ProcessJob(ctx context.Context, job *models.Job) {
	id := models.MustRecordIDString(job.ID)
	log := w.logger.With("job_id", id, "filename", job.Filename)
	started := time.Now()

	fail := func(err error) {
		log.Error("job failed", "error", err)
		if w.Metrics != nil {
			w.Metrics.RecordFailure(metrics.OpTranscribe)
		}
		if uerr := w.store.QueryUpdateJobStatus(ctx, id, models.JobStatusFailed, job.Progress, err.Error()); uerr != nil {
			log.Error("record job failure", "error", uerr)
		}
		w.publishStatus(id, models.JobStatusFailed, job.Progress, err.Error())
	}

	if err := w.store.QueryMarkJobStarted(ctx, id); err != nil {
		fail(err)
		return
	}
	job.Progress = 10
	w.publishStatus(id, models.JobStatusProcessing, 10, "")
	log.Info("job started", "engine", job.Engine, "model", job.Model)

	eng, err := w.engines.Get(job.Engine)
	if err != nil {
		fail(err)
		return
	}

	s := w.settings()
	minSpeakers := s.MinSpeakers
	if job.MinSpeakers != nil {
		minSpeakers = *job.MinSpeakers
	}
	maxSpeakers := s.MaxSpeakers
	if job.MaxSpeakers != nil {
		maxSpeakers = *job.MaxSpeakers
	}

	result, err := eng.Transcribe(ctx, job.OriginalPath, engine.Options{
		Model:         job.Model,
		Language:      job.Language,
		InitialPrompt: job.Context,
		Diarize:       s.DiarizationMethod != "none",
		MinSpeakers:   job.MinSpeakers,
		MaxSpeakers:   job.MaxSpeakers,
	})
	if err != nil {
		fail(err)
		return
	}

	if err := w.store.QueryUpdateJobStatus(ctx, id, models.JobStatusProcessing, 50, ""); err != nil {
		fail(err)
		return
	}
	job.Progress = 50
	w.publishStatus(id, models.JobStatusProcessing, 50, "")

	segments := result.Segments
	if !diarize.HasSpeakers(segments) && s.DiarizationMethod == "silence" {
		if err := w.store.QueryUpdateJobStatus(ctx, id, models.JobStatusDiarizing, 80, ""); err != nil {
			fail(err)
			return
		}
		job.Progress = 80
		w.publishStatus(id, models.JobStatusDiarizing, 80, "")

		turns, derr := diarize.NewSilence().Diarize(ctx, segments, minSpeakers, maxSpeakers)
		if derr != nil {
			fail(derr)
			return
		}
		segments = diarize.Merge(segments, turns)
	}

	dir, err := w.artifacts.CreateJobDir(job.OriginalPath, time.Now())
	if err != nil {
		fail(err)
		return
	}

	language := result.Language
	if language == "" {
		language = job.Language
	}
	processing := time.Since(started).Seconds()

	transcript := &models.Transcript{
		Metadata: models.TranscriptMetadata{
			ID:              id,
			Filename:        job.Filename,
			DurationSeconds: result.DurationSeconds,
			CreatedAt:       time.Now().UTC().Format(time.RFC3339),
			Engine:          job.Engine,
			Model:           job.Model,
			Language:        language,
		},
		Speakers: artifact.BuildSpeakers(segments),
		Segments: segments,
		Words:    result.Words,
		Stats: models.TranscriptStats{
			TotalWords:        countWords(segments),
			SpeakersCount:     diarize.CountSpeakers(segments),
			LanguageDetected:  language,
			ProcessingSeconds: processing,
		},
	}
	if err := w.artifacts.SaveTranscript(dir, transcript); err != nil {
		fail(err)
		return
	}

	if err := w.store.QueryCompleteJob(ctx, id, models.JobResults{
		OutputDir:         dir,
		DurationSeconds:   result.DurationSeconds,
		SpeakersCount:     diarize.CountSpeakers(segments),
		LanguageDetected:  language,
		ProcessingSeconds: processing,
	}); err != nil {
		fail(err)
		return
	}

	if w.Metrics != nil {
		w.Metrics.RecordTiming(metrics.OpTranscribe, time.Since(started))
	}
	w.publishStatus(id, models.JobStatusCompleted, 100, "")
	log.Info("job completed",
		"duration_seconds", result.DurationSeconds,
		"speakers", diarize.CountSpeakers(segments),
		"processing_seconds", processing)
}

func (w *Worker) publishStatus(id string, status models.JobStatus, progress float64, msg string) {
	if w.bus == nil {
		return
	}
	w.bus.Publish(events.Event{
		Type:     events.TypeJobStatus,
		JobID:    id,
		Status:   status,
		Progress: progress,
		Message:  msg,
	})
}

func countWords(segments []models.Segment) int {
	total := 0
	for _, seg := range segments {
		total += len(strings.Fields(seg.Text))
	}
	return total
}
