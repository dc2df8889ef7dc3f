// Package insights runs the LLM insights stage: structured analysis of
// a transcript (original or cleaned) driven by an insight template,
// optionally with a markdown mindmap. Same asynchronous shape as the
// cleanup stage.
package insights

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

const (
	SourceOriginal = "original"
	SourceCleaned  = "cleaned"
)

var (
	// ErrJobNotReady is returned when insights are requested for a job
	// without a transcript.
	ErrJobNotReady = errors.New("job has no transcript to analyze")
	// ErrSourceUnavailable is returned when the cleaned source is
	// requested but no cleanup run has produced it yet.
	ErrSourceUnavailable = errors.New("requested source is not available")
	// ErrBadSource is returned for source values other than
	// original/cleaned.
	ErrBadSource = errors.New("source must be original or cleaned")
)

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

// Service starts and runs insights operations.
type Service struct {
	store     Store
	artifacts *artifact.Store
	templates *template.InsightService
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
	templates *template.InsightService,
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

// Sources reports which transcript sources are available for a job.
func (s *Service) Sources(job *models.Job) models.SourceAvailability {
	if job.OutputDir == "" {
		return models.SourceAvailability{}
	}
	return s.artifacts.SourceAvailability(job.OutputDir)
}

// List returns the stored insights documents of a job, newest first.
func (s *Service) List(job *models.Job) ([]models.InsightsSummary, error) {
	if job.OutputDir == "" {
		return nil, nil
	}
	return s.artifacts.ListInsights(job.OutputDir)
}

// Get returns the insights document for a template.
func (s *Service) Get(job *models.Job, templateID string) (*models.Insights, error) {
	if job.OutputDir == "" {
		return nil, artifact.ErrNotFound
	}
	return s.artifacts.LoadInsights(job.OutputDir, templateID)
}

// Start validates the request, records a running operation, and kicks
// off generation in the background.
func (s *Service) Start(ctx context.Context, jobID, templateID, source, provider, modelID string) (*models.Operation, error) {
	if source == "" {
		source = SourceOriginal
	}
	if source != SourceOriginal && source != SourceCleaned {
		return nil, fmt.Errorf("%w: %s", ErrBadSource, source)
	}

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

	available := s.artifacts.SourceAvailability(job.OutputDir)
	if source == SourceCleaned && !available.Cleaned {
		return nil, fmt.Errorf("%w: cleaned", ErrSourceUnavailable)
	}
	if source == SourceOriginal && !available.Original {
		return nil, fmt.Errorf("%w: original", ErrSourceUnavailable)
	}

	tpl, err := s.templates.Get(templateID)
	if err != nil {
		return nil, err
	}

	cfg := s.settings()
	if provider == "" {
		provider = cfg.InsightsProvider
	}
	if modelID == "" {
		modelID = cfg.InsightsModel
	}

	op, err := s.store.QueryCreateOperation(ctx, models.OperationInput{
		JobID:       jobID,
		Type:        models.OperationInsights,
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

	go s.run(context.WithoutCancel(ctx), opID, job, tpl, source, provider, modelID, cfg)

	return op, nil
}

func (s *Service) run(ctx context.Context, opID string, job *models.Job, tpl *template.InsightTemplate, source, provider, modelID string, cfg config.Settings) {
	jobID := models.MustRecordIDString(job.ID)
	log := s.logger.With("operation_id", opID, "job_id", jobID, "template", tpl.ID, "source", source)
	started := time.Now()

	fail := func(err error) {
		log.Error("insights failed", "error", err)
		if s.Metrics != nil {
			s.Metrics.RecordFailure(metrics.OpInsights)
		}
		result := models.OperationResult{
			ProcessingSeconds: time.Since(started).Seconds(),
			Status:            models.OperationFailed,
			Error:             err.Error(),
		}
		if ferr := s.store.QueryFinishOperation(ctx, opID, result); ferr != nil {
			log.Error("record insights failure", "error", ferr)
		}
		s.publish(events.TypeOperationFinished, jobID, opID)
	}

	segments, err := s.loadSegments(job.OutputDir, source)
	if err != nil {
		fail(err)
		return
	}
	if len(segments) == 0 {
		fail(errors.New("no segments in transcript"))
		return
	}

	model, err := s.newModel(ctx, provider, modelID, cfg)
	if err != nil {
		fail(err)
		return
	}

	log.Info("insights started", "provider", provider, "model", modelID, "segments", len(segments))
	resp, err := model.Complete(ctx, tpl.SystemPrompt, artifact.FormatSegmentsForLLM(segments), tpl.Temperature)
	if err != nil {
		fail(err)
		return
	}

	doc, err := parseResponse(resp.Text, tpl.IncludeMindmap)
	if err != nil {
		fail(err)
		return
	}

	cost := s.catalog.CostFor(provider, modelID, resp.InputTokens, resp.OutputTokens)
	processing := time.Since(started).Seconds()
	now := time.Now().UTC().Format(time.RFC3339)

	doc.Metadata = models.InsightsMetadata{
		JobID:        jobID,
		TemplateID:   tpl.ID,
		TemplateName: tpl.Name,
		Source:       source,
		CreatedAt:    now,
		Provider:     provider,
		Model:        modelID,
	}
	doc.Stats = models.InsightsStats{
		InputTokens:       resp.InputTokens,
		OutputTokens:      resp.OutputTokens,
		CostUSD:           cost,
		ProcessingSeconds: processing,
	}

	if err := s.artifacts.SaveInsights(job.OutputDir, doc); err != nil {
		fail(err)
		return
	}

	if err := s.artifacts.AppendInsightsLog(job.OutputDir, artifact.LogEntry{
		Timestamp:         now,
		Provider:          provider,
		Model:             modelID,
		Template:          tpl.Name,
		TemplateID:        tpl.ID,
		Source:            source,
		Temperature:       tpl.Temperature,
		InputTokens:       resp.InputTokens,
		OutputTokens:      resp.OutputTokens,
		CostUSD:           cost,
		ProcessingSeconds: processing,
		Status:            "success",
	}); err != nil {
		log.Warn("append insights log", "error", err)
	}

	if err := s.store.QueryFinishOperation(ctx, opID, models.OperationResult{
		InputTokens:       resp.InputTokens,
		OutputTokens:      resp.OutputTokens,
		CostUSD:           cost,
		ProcessingSeconds: processing,
		Status:            models.OperationSuccess,
	}); err != nil {
		log.Error("finish insights operation", "error", err)
		return
	}

	if s.Metrics != nil {
		s.Metrics.RecordLLMUsage(metrics.OpInsights, time.Since(started),
			int64(resp.InputTokens), int64(resp.OutputTokens), cost)
	}
	s.publish(events.TypeOperationFinished, jobID, opID)
	log.Info("insights completed",
		"sections", len(doc.Sections),
		"mindmap", doc.Mindmap != nil,
		"tokens_in", resp.InputTokens,
		"tokens_out", resp.OutputTokens,
		"processing_seconds", processing)
}

func (s *Service) loadSegments(dir, source string) ([]models.Segment, error) {
	if source == SourceCleaned {
		cleaned, err := s.artifacts.LoadCleaned(dir)
		if err != nil {
			return nil, err
		}
		return cleaned.Segments, nil
	}
	transcript, err := s.artifacts.LoadTranscript(dir)
	if err != nil {
		return nil, err
	}
	return transcript.Segments, nil
}

func (s *Service) publish(eventType events.Type, jobID, opID string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.Event{Type: eventType, JobID: jobID, OperationID: opID})
}
