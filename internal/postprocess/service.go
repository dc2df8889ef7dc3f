// Package postprocess runs the LLM cleanup stage: the raw transcript is
// rewritten by an LLM using a cleanup template, producing the cleaned
// transcript artifact plus speaker suggestions. Runs are asynchronous;
// completion is observed through the operations list.
package postprocess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/scribeflow/scribeflow/internal/artifact"
	"github.com/scribeflow/scribeflow/internal/config"
	"github.com/scribeflow/scribeflow/internal/events"
	"github.com/scribeflow/scribeflow/internal/llm"
	"github.com/scribeflow/scribeflow/internal/metrics"
	"github.com/scribeflow/scribeflow/internal/models"
	"github.com/scribeflow/scribeflow/internal/template"
)

// ErrJobNotReady is returned when cleanup is requested for a job that
// has no transcript yet.
var ErrJobNotReady = errors.New("job has no transcript to clean")

// Completer is the LLM call the stage depends on.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (*llm.Response, error)
}

// ModelFactory builds an LLM client for a provider/model pair.
type ModelFactory func(ctx context.Context, provider, modelID string, s config.Settings) (Completer, error)

// Store is the subset of the database the stage needs.
type Store interface {
	QueryGetJob(ctx context.Context, id string) (*models.Job, error)
	QueryCreateOperation(ctx context.Context, input models.OperationInput) (*models.Operation, error)
	QueryFinishOperation(ctx context.Context, id string, result models.OperationResult) error
}

// Service starts and runs cleanup operations.
type Service struct {
	store     Store
	artifacts *artifact.Store
	templates *template.CleanupService
	catalog   *llm.Catalog
	settings  func() config.Settings
	bus       *events.Bus
	logger    *slog.Logger
	newModel  ModelFactory

	// Metrics is optional; when set, LLM usage and failures are
	// recorded on it.
	Metrics *metrics.Collector
}

func NewService(
	store Store,
	artifacts *artifact.Store,
	templates *template.CleanupService,
	catalog *llm.Catalog,
	settings func() config.Settings,
	bus *events.Bus,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:     store,
		artifacts: artifacts,
		templates: templates,
		catalog:   catalog,
		settings:  settings,
		bus:       bus,
		logger:    logger,
		newModel: func(ctx context.Context, provider, modelID string, s config.Settings) (Completer, error) {
			return llm.NewModel(ctx, provider, modelID, s)
		},
	}
}

// Start validates the request, records a running operation, and kicks
// off the cleanup in the background. The returned operation is the
// handle clients poll for completion.
func (s *Service) Start(ctx context.Context, jobID, templateID, provider, modelID string) (*models.Operation, error) {
	job, err := s.store.QueryGetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("job %s: not found", jobID)
	}
	if job.Status != models.JobStatusCompleted || job.OutputDir == "" {
		return nil, ErrJobNotReady
	}

	tpl, err := s.templates.Get(templateID)
	if err != nil {
		return nil, err
	}

	cfg := s.settings()
	if provider == "" {
		provider = cfg.CleanupProvider
	}
	if modelID == "" {
		modelID = cfg.CleanupModel
	}

	op, err := s.store.QueryCreateOperation(ctx, models.OperationInput{
		JobID:       jobID,
		Type:        models.OperationCleanup,
		Provider:    provider,
		Model:       modelID,
		TemplateID:  templateID,
		Temperature: tpl.Temperature,
	})
	if err != nil {
		return nil, err
	}

	opID := models.MustRecordIDString(op.ID)
	s.publish(events.TypeOperationStarted, jobID, opID)

	// The HTTP request that started the run is long gone before the
	// LLM answers.
	go s.run(context.WithoutCancel(ctx), opID, job, tpl, provider, modelID, cfg)

	return op, nil
}

func (s *Service) run(ctx context.Context, opID string, job *models.Job, tpl *template.CleanupTemplate, provider, modelID string, cfg config.Settings) {
	jobID := models.MustRecordIDString(job.ID)
	log := s.logger.With("operation_id", opID, "job_id", jobID, "provider", provider, "model", modelID)
	started := time.Now()

	fail := func(err error) {
		log.Error("cleanup failed", "error", err)
		if s.Metrics != nil {
			s.Metrics.RecordFailure(metrics.OpCleanup)
		}
		result := models.OperationResult{
			ProcessingSeconds: time.Since(started).Seconds(),
			Status:            models.OperationFailed,
			Error:             err.Error(),
		}
		if ferr := s.store.QueryFinishOperation(ctx, opID, result); ferr != nil {
			log.Error("record cleanup failure", "error", ferr)
		}
		s.publish(events.TypeOperationFinished, jobID, opID)
	}

	transcript, err := s.artifacts.LoadTranscript(job.OutputDir)
	if err != nil {
		fail(err)
		return
	}
	if len(transcript.Segments) == 0 {
		fail(errors.New("no segments in transcript"))
		return
	}

	model, err := s.newModel(ctx, provider, modelID, cfg)
	if err != nil {
		fail(err)
		return
	}

	log.Info("cleanup started", "template", tpl.ID, "segments", len(transcript.Segments))
	resp, err := model.Complete(ctx, tpl.SystemPrompt, artifact.FormatSegmentsForLLM(transcript.Segments), tpl.Temperature)
	if err != nil {
		fail(err)
		return
	}

	segments, suggestions, err := parseResponse(resp.Text)
	if err != nil {
		fail(err)
		return
	}

	cost := s.catalog.CostFor(provider, modelID, resp.InputTokens, resp.OutputTokens)
	processing := time.Since(started).Seconds()
	now := time.Now().UTC().Format(time.RFC3339)

	cleaned := &models.CleanedTranscript{
		Metadata: models.CleanedMetadata{
			ID:        jobID,
			Filename:  job.Filename,
			CleanedAt: now,
			Template:  tpl.ID,
			Provider:  provider,
			Model:     modelID,
		},
		Speakers: transcript.Speakers,
		Segments: segments,
		Stats: models.CleanedStats{
			OriginalSegments:  len(transcript.Segments),
			CleanedSegments:   len(segments),
			InputTokens:       resp.InputTokens,
			OutputTokens:      resp.OutputTokens,
			CostUSD:           cost,
			ProcessingSeconds: processing,
		},
	}
	if err := s.artifacts.SaveCleaned(job.OutputDir, cleaned); err != nil {
		fail(err)
		return
	}

	if err := s.artifacts.SaveSuggestions(job.OutputDir, &models.SuggestionSet{
		CreatedAt:   now,
		Template:    tpl.ID,
		Model:       modelID,
		Suggestions: suggestions,
	}); err != nil {
		fail(err)
		return
	}

	if err := s.artifacts.AppendCleanupLog(job.OutputDir, artifact.LogEntry{
		Timestamp:         now,
		Provider:          provider,
		Model:             modelID,
		Template:          tpl.ID,
		Temperature:       tpl.Temperature,
		InputTokens:       resp.InputTokens,
		OutputTokens:      resp.OutputTokens,
		CostUSD:           cost,
		ProcessingSeconds: processing,
		Status:            "success",
	}); err != nil {
		log.Warn("append cleanup log", "error", err)
	}

	if err := s.store.QueryFinishOperation(ctx, opID, models.OperationResult{
		InputTokens:       resp.InputTokens,
		OutputTokens:      resp.OutputTokens,
		CostUSD:           cost,
		ProcessingSeconds: processing,
		Status:            models.OperationSuccess,
	}); err != nil {
		log.Error("finish cleanup operation", "error", err)
		return
	}

	if s.Metrics != nil {
		s.Metrics.RecordLLMUsage(metrics.OpCleanup, time.Since(started),
			int64(resp.InputTokens), int64(resp.OutputTokens), cost)
	}
	s.publish(events.TypeOperationFinished, jobID, opID)
	log.Info("cleanup completed",
		"segments_in", len(transcript.Segments),
		"segments_out", len(segments),
		"suggestions", len(suggestions),
		"tokens_in", resp.InputTokens,
		"tokens_out", resp.OutputTokens,
		"processing_seconds", processing)
}

func (s *Service) publish(eventType events.Type, jobID, opID string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.Event{Type: eventType, JobID: jobID, OperationID: opID})
}
