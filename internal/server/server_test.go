package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

// fakeStore is an in-memory Store for handler tests.
type fakeStore struct {
	mu      sync.Mutex
	jobs    map[string]*models.Job
	ops     []models.Operation
	nextJob int
}

func newFakeStore() *fakeStore {
	return &fakeStore{jobs: map[string]*models.Job{}}
}

func (f *fakeStore) put(job *models.Job) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[models.MustRecordIDString(job.ID)] = job
}

func (f *fakeStore) QueryCreateJob(ctx context.Context, input models.JobInput, status models.JobStatus) (*models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextJob++
	id := fmt.Sprintf("job-%d", f.nextJob)
	job := &models.Job{
		ID:           surrealmodels.NewRecordID("job", id),
		Filename:     input.Filename,
		OriginalPath: input.OriginalPath,
		SizeBytes:    input.SizeBytes,
		Engine:       input.Engine,
		Model:        input.Model,
		Language:     input.Language,
		MinSpeakers:  input.MinSpeakers,
		MaxSpeakers:  input.MaxSpeakers,
		Context:      input.Context,
		Status:       status,
		CreatedAt:    time.Now(),
	}
	f.jobs[id] = job
	return job, nil
}

func (f *fakeStore) QueryGetJob(ctx context.Context, id string) (*models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jobs[id], nil
}

func (f *fakeStore) QueryListJobs(ctx context.Context, status *models.JobStatus, limit int) ([]models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Job
	for _, job := range f.jobs {
		if status != nil && job.Status != *status {
			continue
		}
		out = append(out, *job)
	}
	return out, nil
}

func (f *fakeStore) QuerySubmitJob(ctx context.Context, id string) (*models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: not found", id)
	}
	if job.Status != models.JobStatusDraft {
		return nil, fmt.Errorf("job %s: not a draft", id)
	}
	job.Status = models.JobStatusQueued
	return job, nil
}

func (f *fakeStore) QueryUpdateJobContext(ctx context.Context, id string, jobContext string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if job, ok := f.jobs[id]; ok {
		job.Context = jobContext
	}
	return nil
}

func (f *fakeStore) QueryUpdateSpeakerNames(ctx context.Context, id string, names map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if job, ok := f.jobs[id]; ok {
		job.SpeakerNames = names
	}
	return nil
}

func (f *fakeStore) QueryDeleteJob(ctx context.Context, id string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.jobs[id]; !ok {
		return 0, nil
	}
	delete(f.jobs, id)
	return 1, nil
}

func (f *fakeStore) QueryClearJobs(ctx context.Context, failedOnly bool) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	deleted := 0
	for id, job := range f.jobs {
		if failedOnly && job.Status != models.JobStatusFailed {
			continue
		}
		delete(f.jobs, id)
		deleted++
	}
	return deleted, nil
}

func (f *fakeStore) QueryListOperations(ctx context.Context, jobID string, opType *models.OperationType) ([]models.Operation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Operation
	for _, op := range f.ops {
		if op.JobID != jobID {
			continue
		}
		if opType != nil && op.Type != *opType {
			continue
		}
		out = append(out, op)
	}
	return out, nil
}

func (f *fakeStore) QueryAllOperations(ctx context.Context, limit int) ([]models.Operation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Operation, len(f.ops))
	copy(out, f.ops)
	return out, nil
}

func (f *fakeStore) QueryCreateOperation(ctx context.Context, input models.OperationInput) (*models.Operation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	op := models.Operation{
		ID:          surrealmodels.NewRecordID("operation", fmt.Sprintf("op-%d", len(f.ops)+1)),
		JobID:       input.JobID,
		Type:        input.Type,
		Provider:    input.Provider,
		Model:       input.Model,
		TemplateID:  input.TemplateID,
		Temperature: input.Temperature,
		Status:      models.OperationRunning,
		CreatedAt:   time.Now(),
	}
	f.ops = append(f.ops, op)
	return &op, nil
}

func (f *fakeStore) QueryFinishOperation(ctx context.Context, id string, result models.OperationResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.ops {
		if models.MustRecordIDString(f.ops[i].ID) != id {
			continue
		}
		f.ops[i].Status = result.Status
		f.ops[i].InputTokens = result.InputTokens
		f.ops[i].OutputTokens = result.OutputTokens
		f.ops[i].CostUSD = result.CostUSD
		f.ops[i].ProcessingSeconds = result.ProcessingSeconds
		if result.Error != "" {
			msg := result.Error
			f.ops[i].Error = &msg
		}
	}
	return nil
}

func newTestServer(t *testing.T) (*Server, *fakeStore) {
	t.Helper()

	base := t.TempDir()
	cfg := config.Config{
		BasePath:     base,
		SettingsPath: base + "/config.json",
		PricingPath:  base + "/llm_models.json",
		ListenAddr:   "127.0.0.1:0",
	}
	require.NoError(t, cfg.EnsureDirectories())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	settings, err := config.NewSettingsStore(cfg.SettingsPath)
	require.NoError(t, err)
	artifacts := artifact.NewStore(cfg.TranscribedPath(), logger)
	cleanupTemplates, err := template.NewCleanupService(cfg.TemplatesPath())
	require.NoError(t, err)
	insightTemplates, err := template.NewInsightService(cfg.InsightTemplatesPath())
	require.NoError(t, err)
	catalog, err := llm.NewCatalog(cfg.PricingPath)
	require.NoError(t, err)

	store := newFakeStore()
	bus := events.NewBus(0)

	srv := New(cfg, Deps{
		Store:            store,
		Engines:          engine.NewRegistry("http://localhost:9000", settings.Get),
		Artifacts:        artifacts,
		Settings:         settings,
		CleanupTemplates: cleanupTemplates,
		InsightTemplates: insightTemplates,
		Catalog:          catalog,
		Postprocess:      postprocess.NewService(store, artifacts, cleanupTemplates, catalog, settings.Get, bus, logger),
		Insights:         insights.NewService(store, artifacts, insightTemplates, catalog, settings.Get, bus, logger),
		Metrics:          metrics.NewCollector(),
		Bus:              bus,
	}, logger)

	return srv, store
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, filename string, fields map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte("not really audio"))
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/transcribe/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadCreatesDraftJob(t *testing.T) {
	srv, store := newTestServer(t)
	h := srv.Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "meeting.mp3", nil))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var job models.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, "meeting.mp3", job.Filename)
	assert.Equal(t, models.JobStatusDraft, job.Status)
	// Engine and model fall back to the defaults.
	assert.Equal(t, "whisper", job.Engine)
	assert.Equal(t, "large-v2", job.Model)

	stored, _ := store.QueryGetJob(context.Background(), "job-1")
	require.NotNil(t, stored)
}

func TestUploadRejectsUnknownExtension(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "notes.pdf", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadHonorsFormFields(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, uploadRequest(t, "standup.wav", map[string]string{
		"engine":       "deepgram",
		"model":        "nova-3",
		"language":     "de",
		"min_speakers": "3",
		"status":       "queued",
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var job models.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, "deepgram", job.Engine)
	assert.Equal(t, "nova-3", job.Model)
	assert.Equal(t, "de", job.Language)
	require.NotNil(t, job.MinSpeakers)
	assert.Equal(t, 3, *job.MinSpeakers)
	assert.Equal(t, models.JobStatusQueued, job.Status)
}

func TestGetJobNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Routes(), http.MethodGet, "/api/transcribe/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStartSubmitsDrafts(t *testing.T) {
	srv, store := newTestServer(t)
	h := srv.Routes()

	store.put(&models.Job{ID: surrealmodels.NewRecordID("job", "a"), Status: models.JobStatusDraft})
	store.put(&models.Job{ID: surrealmodels.NewRecordID("job", "b"), Status: models.JobStatusCompleted})

	rec := doJSON(t, h, http.MethodPost, "/api/transcribe/start", map[string]any{"ids": []string{"a", "b"}})
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Started int      `json:"started"`
		Errors  []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 1, out.Started)
	assert.Len(t, out.Errors, 1)

	job, _ := store.QueryGetJob(context.Background(), "a")
	assert.Equal(t, models.JobStatusQueued, job.Status)
}

func TestClearJobsRequiresFilter(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Routes(), http.MethodDelete, "/api/transcribe", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv.Routes(), http.MethodDelete, "/api/transcribe?filter=failed", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateContext(t *testing.T) {
	srv, store := newTestServer(t)
	store.put(&models.Job{ID: surrealmodels.NewRecordID("job", "a"), Status: models.JobStatusDraft})

	rec := doJSON(t, srv.Routes(), http.MethodPatch, "/api/transcribe/a/context",
		map[string]string{"context": "weekly sync of the data team"})
	require.Equal(t, http.StatusOK, rec.Code)

	job, _ := store.QueryGetJob(context.Background(), "a")
	assert.Equal(t, "weekly sync of the data team", job.Context)
}

func TestUpdateSpeakersMergesAndRewrites(t *testing.T) {
	srv, store := newTestServer(t)

	dir := t.TempDir()
	require.NoError(t, srv.deps.Artifacts.SaveTranscript(dir, &models.Transcript{
		Speakers: map[string]models.Speaker{
			"SPEAKER_00": {Name: "SPEAKER_00", Color: "#3B82F6"},
			"SPEAKER_01": {Name: "SPEAKER_01", Color: "#10B981"},
		},
		Segments: []models.Segment{{Start: 0, End: 1, Speaker: "SPEAKER_00", Text: "hi"}},
	}))

	store.put(&models.Job{
		ID:           surrealmodels.NewRecordID("job", "a"),
		Status:       models.JobStatusCompleted,
		OutputDir:    dir,
		SpeakerNames: map[string]string{"SPEAKER_01": "Ben"},
	})

	rec := doJSON(t, srv.Routes(), http.MethodPut, "/api/transcribe/a/speakers",
		map[string]string{"SPEAKER_00": "Anna"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	job, _ := store.QueryGetJob(context.Background(), "a")
	assert.Equal(t, map[string]string{"SPEAKER_00": "Anna", "SPEAKER_01": "Ben"}, job.SpeakerNames)

	transcript, err := srv.deps.Artifacts.LoadTranscript(dir)
	require.NoError(t, err)
	assert.Equal(t, "Anna", transcript.Speakers["SPEAKER_00"].Name)
}

func TestEnginesEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Routes()

	rec := doJSON(t, h, http.MethodGet, "/api/engines", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"whisper"`)

	rec = doJSON(t, h, http.MethodGet, "/api/engines/whisper/models", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "large-v3")

	rec = doJSON(t, h, http.MethodGet, "/api/engines/deepgram/capabilities", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"supports_diarization":true`)

	rec = doJSON(t, h, http.MethodGet, "/api/engines/bogus/models", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSettingsRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Routes()

	rec := doJSON(t, h, http.MethodPut, "/api/settings", map[string]any{
		"default_engine":     "deepgram",
		"deepgram_api_key":   "dg-secret",
		"diarization_method": "none",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var view config.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "deepgram", view.DefaultEngine)
	assert.Equal(t, "none", view.DiarizationMethod)
	assert.True(t, view.HasDeepgramKey)
	// The key itself never appears in the response.
	assert.NotContains(t, rec.Body.String(), "dg-secret")
}

func TestSettingsRejectsBadSpeakerBounds(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Routes(), http.MethodPut, "/api/settings", map[string]any{
		"min_speakers": 5,
		"max_speakers": 2,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCleanupTemplateCRUD(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Routes()

	rec := doJSON(t, h, http.MethodGet, "/api/postprocess/templates", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"standard"`)

	rec = doJSON(t, h, http.MethodPost, "/api/postprocess/templates", template.CleanupTemplate{
		ID: "meetings", Name: "Meetings", SystemPrompt: "clean it", Temperature: 0.2,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodGet, "/api/postprocess/templates/meetings", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/api/postprocess/templates/meetings", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Built-ins cannot be deleted.
	rec = doJSON(t, h, http.MethodDelete, "/api/postprocess/templates/standard", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartCleanupRejectsUnfinishedJob(t *testing.T) {
	srv, store := newTestServer(t)
	store.put(&models.Job{ID: surrealmodels.NewRecordID("job", "a"), Status: models.JobStatusProcessing})

	rec := doJSON(t, srv.Routes(), http.MethodPost, "/api/postprocess/jobs/a",
		map[string]string{"template_id": "standard"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartInsightsRejectsMissingCleanedSource(t *testing.T) {
	srv, store := newTestServer(t)

	dir := t.TempDir()
	require.NoError(t, srv.deps.Artifacts.SaveTranscript(dir, &models.Transcript{
		Segments: []models.Segment{{Start: 0, End: 1, Speaker: "SPEAKER_00", Text: "hi"}},
	}))
	store.put(&models.Job{ID: surrealmodels.NewRecordID("job", "a"), Status: models.JobStatusCompleted, OutputDir: dir})

	rec := doJSON(t, srv.Routes(), http.MethodPost, "/api/insights/jobs/a",
		map[string]string{"template_id": "it-meeting", "source": "cleaned"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInsightSources(t *testing.T) {
	srv, store := newTestServer(t)

	dir := t.TempDir()
	require.NoError(t, srv.deps.Artifacts.SaveTranscript(dir, &models.Transcript{
		Segments: []models.Segment{{Start: 0, End: 1, Speaker: "SPEAKER_00", Text: "hi"}},
	}))
	store.put(&models.Job{ID: surrealmodels.NewRecordID("job", "a"), Status: models.JobStatusCompleted, OutputDir: dir})

	rec := doJSON(t, srv.Routes(), http.MethodGet, "/api/insights/jobs/a/sources", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var avail models.SourceAvailability
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &avail))
	assert.True(t, avail.Original)
	assert.False(t, avail.Cleaned)
}

func TestSuggestionApplyFlow(t *testing.T) {
	srv, store := newTestServer(t)

	dir := t.TempDir()
	require.NoError(t, srv.deps.Artifacts.SaveTranscript(dir, &models.Transcript{
		Speakers: map[string]models.Speaker{
			"SPEAKER_00": {Name: "SPEAKER_00", Color: "#3B82F6"},
			"SPEAKER_01": {Name: "SPEAKER_01", Color: "#10B981"},
		},
		Segments: []models.Segment{{Start: 0, End: 1, Speaker: "SPEAKER_00", Text: "hi"}},
	}))
	require.NoError(t, srv.deps.Artifacts.SaveSuggestions(dir, &models.SuggestionSet{
		Suggestions: []models.SpeakerSuggestion{
			{SpeakerID: "SPEAKER_00", DisplayName: "Anna (PM)", Name: "Anna", Role: "PM"},
			{SpeakerID: "SPEAKER_01", DisplayName: "Ben"},
		},
	}))
	store.put(&models.Job{ID: surrealmodels.NewRecordID("job", "a"), Status: models.JobStatusCompleted, OutputDir: dir})

	h := srv.Routes()

	rec := doJSON(t, h, http.MethodPost, "/api/postprocess/jobs/a/suggestions/SPEAKER_00/apply", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	job, _ := store.QueryGetJob(context.Background(), "a")
	assert.Equal(t, "Anna (PM)", job.SpeakerNames["SPEAKER_00"])

	// Applying the same suggestion again is rejected.
	rec = doJSON(t, h, http.MethodPost, "/api/postprocess/jobs/a/suggestions/SPEAKER_00/apply", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// apply-all picks up the remaining pending suggestion.
	rec = doJSON(t, h, http.MethodPost, "/api/postprocess/jobs/a/suggestions/apply-all", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"applied":1`)

	set, err := srv.deps.Artifacts.LoadSuggestions(dir)
	require.NoError(t, err)
	assert.Empty(t, set.Pending())
}

func TestTranscriptTxtDownload(t *testing.T) {
	srv, store := newTestServer(t)

	dir := t.TempDir()
	require.NoError(t, srv.deps.Artifacts.SaveTranscript(dir, &models.Transcript{
		Speakers: map[string]models.Speaker{"SPEAKER_00": {Name: "Anna", Color: "#3B82F6"}},
		Segments: []models.Segment{{Start: 0, End: 2, Speaker: "SPEAKER_00", Text: "hello there"}},
	}))
	store.put(&models.Job{
		ID:        surrealmodels.NewRecordID("job", "a"),
		Filename:  "Weekly Sync.mp3",
		Status:    models.JobStatusCompleted,
		OutputDir: dir,
	})

	rec := doJSON(t, srv.Routes(), http.MethodGet, "/api/transcribe/a/transcript.txt", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "transcript-weekly-sync.txt")
	assert.Contains(t, rec.Body.String(), "hello there")
}

func TestStatsAggregatesOperations(t *testing.T) {
	srv, store := newTestServer(t)

	cost := 0.25
	store.ops = append(store.ops,
		models.Operation{Type: models.OperationCleanup, Status: models.OperationSuccess, InputTokens: 1000, OutputTokens: 200, CostUSD: &cost},
		models.Operation{Type: models.OperationCleanup, Status: models.OperationFailed},
		models.Operation{Type: models.OperationInsights, Status: models.OperationSuccess, InputTokens: 500, OutputTokens: 100},
	)

	rec := doJSON(t, srv.Routes(), http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Operations map[string]statsOperations `json:"operations"`
		TotalCost  *float64                   `json:"total_cost_usd"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))

	cleanup := out.Operations["cleanup"]
	assert.Equal(t, 2, cleanup.Count)
	assert.Equal(t, 1, cleanup.Failed)
	require.NotNil(t, cleanup.TotalCostUSD)
	assert.InDelta(t, 0.25, *cleanup.TotalCostUSD, 1e-9)

	insightsAgg := out.Operations["insights"]
	assert.Equal(t, 1, insightsAgg.Count)
	assert.Nil(t, insightsAgg.TotalCostUSD)

	require.NotNil(t, out.TotalCost)
	assert.InDelta(t, 0.25, *out.TotalCost, 1e-9)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv.Routes(), http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestLoggingMiddlewarePassesThrough(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/transcribe/queue?limit=5", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Contains(t, buf.String(), "request completed")
	assert.Contains(t, buf.String(), "limit=5")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	long := strings.Repeat("x", 300)
	got := truncate(long, 200)
	assert.Len(t, got, 200)
	assert.True(t, strings.HasSuffix(got, "..."))
}
