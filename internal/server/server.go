// Package server exposes the transcription pipeline as a local REST API.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/scribeflow/scribeflow/internal/artifact"
	"github.com/scribeflow/scribeflow/internal/config"
	"github.com/scribeflow/scribeflow/internal/engine"
	"github.com/scribeflow/scribeflow/internal/events"
	"github.com/scribeflow/scribeflow/internal/insights"
	"github.com/scribeflow/scribeflow/internal/llm"
	"github.com/scribeflow/scribeflow/internal/metrics"
	"github.com/scribeflow/scribeflow/internal/models"
	"github.com/scribeflow/scribeflow/internal/postprocess"
	"github.com/scribeflow/scribeflow/internal/template"
)

// shutdownTimeout bounds graceful shutdown once the run context is cancelled.
const shutdownTimeout = 5 * time.Second

// Store is the database surface the HTTP handlers need.
type Store interface {
	QueryCreateJob(ctx context.Context, input models.JobInput, status models.JobStatus) (*models.Job, error)
	QueryGetJob(ctx context.Context, id string) (*models.Job, error)
	QueryListJobs(ctx context.Context, status *models.JobStatus, limit int) ([]models.Job, error)
	QuerySubmitJob(ctx context.Context, id string) (*models.Job, error)
	QueryUpdateJobContext(ctx context.Context, id string, jobContext string) error
	QueryUpdateSpeakerNames(ctx context.Context, id string, names map[string]string) error
	QueryDeleteJob(ctx context.Context, id string) (int, error)
	QueryClearJobs(ctx context.Context, failedOnly bool) (int, error)
	QueryListOperations(ctx context.Context, jobID string, opType *models.OperationType) ([]models.Operation, error)
	QueryAllOperations(ctx context.Context, limit int) ([]models.Operation, error)
}

// Deps bundles the services the server wires together.
type Deps struct {
	Store            Store
	Engines          *engine.Registry
	Artifacts        *artifact.Store
	Settings         *config.SettingsStore
	CleanupTemplates *template.CleanupService
	InsightTemplates *template.InsightService
	Catalog          *llm.Catalog
	Postprocess      *postprocess.Service
	Insights         *insights.Service
	Metrics          *metrics.Collector
	Bus              *events.Bus
}

// Server is the HTTP front of the pipeline.
type Server struct {
	cfg    config.Config
	deps   Deps
	logger *slog.Logger
	http   *http.Server
}

// New creates a server listening on cfg.ListenAddr.
func New(cfg config.Config, deps Deps, logger *slog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
	}

	s.http = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           LoggingMiddleware(logger)(s.Routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Routes builds the API mux. Exposed for httptest.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/transcribe/upload", s.handleUpload)
	mux.HandleFunc("GET /api/transcribe/queue", s.handleQueue)
	mux.HandleFunc("GET /api/transcribe/{id}", s.handleGetJob)
	mux.HandleFunc("GET /api/transcribe/{id}/transcript", s.handleTranscript)
	mux.HandleFunc("GET /api/transcribe/{id}/transcript.txt", s.handleTranscriptTxt)
	mux.HandleFunc("PATCH /api/transcribe/{id}/context", s.handleUpdateContext)
	mux.HandleFunc("POST /api/transcribe/start", s.handleStart)
	mux.HandleFunc("POST /api/transcribe/start-all", s.handleStartAll)
	mux.HandleFunc("DELETE /api/transcribe/{id}", s.handleDeleteJob)
	mux.HandleFunc("DELETE /api/transcribe", s.handleClearJobs)
	mux.HandleFunc("PUT /api/transcribe/{id}/speakers", s.handleUpdateSpeakers)

	mux.HandleFunc("GET /api/engines", s.handleEngines)
	mux.HandleFunc("GET /api/engines/{id}/models", s.handleEngineModels)
	mux.HandleFunc("GET /api/engines/{id}/capabilities", s.handleEngineCapabilities)

	mux.HandleFunc("GET /api/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /api/settings", s.handleUpdateSettings)

	mux.HandleFunc("GET /api/postprocess/templates", s.handleListCleanupTemplates)
	mux.HandleFunc("POST /api/postprocess/templates", s.handleSaveCleanupTemplate)
	mux.HandleFunc("GET /api/postprocess/templates/{id}", s.handleGetCleanupTemplate)
	mux.HandleFunc("PUT /api/postprocess/templates/{id}", s.handleSaveCleanupTemplate)
	mux.HandleFunc("DELETE /api/postprocess/templates/{id}", s.handleDeleteCleanupTemplate)
	mux.HandleFunc("GET /api/postprocess/models", s.handleGetModels)
	mux.HandleFunc("PUT /api/postprocess/models", s.handleUpdateModels)
	mux.HandleFunc("POST /api/postprocess/jobs/{id}", s.handleStartCleanup)
	mux.HandleFunc("GET /api/postprocess/jobs/{id}/cleaned", s.handleGetCleaned)
	mux.HandleFunc("GET /api/postprocess/operations", s.handleListOperations)
	mux.HandleFunc("GET /api/postprocess/jobs/{id}/suggestions", s.handleGetSuggestions)
	mux.HandleFunc("POST /api/postprocess/jobs/{id}/suggestions/{speaker}/apply", s.handleApplySuggestion)
	mux.HandleFunc("POST /api/postprocess/jobs/{id}/suggestions/apply-all", s.handleApplyAllSuggestions)

	mux.HandleFunc("GET /api/insights/templates", s.handleListInsightTemplates)
	mux.HandleFunc("POST /api/insights/templates", s.handleSaveInsightTemplate)
	mux.HandleFunc("GET /api/insights/templates/{id}", s.handleGetInsightTemplate)
	mux.HandleFunc("PUT /api/insights/templates/{id}", s.handleSaveInsightTemplate)
	mux.HandleFunc("DELETE /api/insights/templates/{id}", s.handleDeleteInsightTemplate)
	mux.HandleFunc("POST /api/insights/jobs/{id}", s.handleStartInsights)
	mux.HandleFunc("GET /api/insights/jobs/{id}/sources", s.handleInsightSources)
	mux.HandleFunc("GET /api/insights/jobs/{id}", s.handleListInsights)
	mux.HandleFunc("GET /api/insights/jobs/{id}/{template}", s.handleGetInsights)
	mux.HandleFunc("GET /api/insights/jobs/{id}/{template}/mindmap.md", s.handleDownloadMindmap)
	mux.HandleFunc("GET /api/insights/jobs/{id}/{template}/insights.md", s.handleDownloadInsights)

	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/events", s.handleEvents)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.logger.Info("http server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = s.http.Shutdown(shutdownCtx)
	}()

	s.logger.Info("http server listening", "addr", s.cfg.ListenAddr)
	if err := s.http.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
