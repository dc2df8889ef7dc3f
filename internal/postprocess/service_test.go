package postprocess

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/scribeflow/scribeflow/internal/artifact"
	"github.com/scribeflow/scribeflow/internal/config"
	"github.com/scribeflow/scribeflow/internal/events"
	"github.com/scribeflow/scribeflow/internal/llm"
	"github.com/scribeflow/scribeflow/internal/models"
	"github.com/scribeflow/scribeflow/internal/template"
)

type fakeStore struct {
	mu       sync.Mutex
	job      *models.Job
	created  []models.OperationInput
	finished map[string]models.OperationResult
}

func newFakeStore(job *models.Job) *fakeStore {
	return &fakeStore{job: job, finished: make(map[string]models.OperationResult)}
}

func (f *fakeStore) QueryGetJob(context.Context, string) (*models.Job, error) {
	return f.job, nil
}

func (f *fakeStore) QueryCreateOperation(_ context.Context, input models.OperationInput) (*models.Operation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, input)
	return &models.Operation{
		ID:          surrealmodels.NewRecordID("operation", "op-1"),
		JobID:       input.JobID,
		Type:        input.Type,
		Provider:    input.Provider,
		Model:       input.Model,
		TemplateID:  input.TemplateID,
		Temperature: input.Temperature,
		Status:      models.OperationRunning,
	}, nil
}

func (f *fakeStore) QueryFinishOperation(_ context.Context, id string, result models.OperationResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished[id] = result
	return nil
}

func (f *fakeStore) result(id string) (models.OperationResult, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.finished[id]
	return r, ok
}

type fakeCompleter struct {
	text string
	err  error
}

func (f *fakeCompleter) Complete(context.Context, string, string, float64) (*llm.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Text: f.text, InputTokens: 1200, OutputTokens: 400}, nil
}

func newTestService(t *testing.T, store Store, completer Completer) (*Service, *artifact.Store, string) {
	t.Helper()
	base := t.TempDir()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	artifacts := artifact.NewStore(base, logger)

	templates, err := template.NewCleanupService(t.TempDir())
	require.NoError(t, err)
	catalog, err := llm.NewCatalog(t.TempDir() + "/models.json")
	require.NoError(t, err)

	svc := NewService(store, artifacts, templates, catalog, config.DefaultSettings, events.NewBus(50), logger)
	svc.newModel = func(context.Context, string, string, config.Settings) (Completer, error) {
		return completer, nil
	}
	return svc, artifacts, base
}

func completedJob(outputDir string) *models.Job {
	return &models.Job{
		ID:        surrealmodels.NewRecordID("job", "job-1"),
		Filename:  "standup.mp3",
		Status:    models.JobStatusCompleted,
		OutputDir: outputDir,
	}
}

func seedTranscript(t *testing.T, artifacts *artifact.Store, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, artifacts.SaveTranscript(dir, &models.Transcript{
		Metadata: models.TranscriptMetadata{ID: "job-1", Filename: "standup.mp3"},
		Speakers: map[string]models.Speaker{"SPEAKER_00": {Name: "SPEAKER_00", Color: "#3B82F6"}},
		Segments: []models.Segment{{Start: 0, End: 2, Text: "uh so um lets start", Speaker: "SPEAKER_00"}},
	}))
}

const cleanupJSON = `{
	"segments": [{"start": 0, "speaker": "SPEAKER_00", "text": "Let's start."}],
	"speaker_suggestions": [{
		"speaker_id": "SPEAKER_00",
		"name": "Anna", "name_confidence": 0.9, "name_reason": "introduced herself",
		"role": "PM", "role_confidence": 0.7, "role_reason": "runs the agenda"
	}]
}`

func waitFinished(t *testing.T, store *fakeStore, opID string) models.OperationResult {
	t.Helper()
	var result models.OperationResult
	require.Eventually(t, func() bool {
		r, ok := store.result(opID)
		result = r
		return ok
	}, 2*time.Second, 10*time.Millisecond)
	return result
}

func TestStartRunsCleanup(t *testing.T) {
	dir := t.TempDir() + "/2026-01-10_standup"
	store := newFakeStore(completedJob(dir))
	svc, artifacts, _ := newTestService(t, store, &fakeCompleter{text: cleanupJSON})
	seedTranscript(t, artifacts, dir)

	op, err := svc.Start(context.Background(), "job-1", "standard", "", "")
	require.NoError(t, err)
	require.Equal(t, models.OperationRunning, op.Status)
	// Provider/model fall back to settings defaults.
	assert.Equal(t, "gemini", op.Provider)
	assert.Equal(t, "gemini-2.5-flash", op.Model)

	result := waitFinished(t, store, "op-1")
	assert.Equal(t, models.OperationSuccess, result.Status)
	assert.Equal(t, 1200, result.InputTokens)
	assert.Equal(t, 400, result.OutputTokens)
	require.NotNil(t, result.CostUSD, "gemini-2.5-flash is priced")

	cleaned, err := artifacts.LoadCleaned(dir)
	require.NoError(t, err)
	assert.Equal(t, "Let's start.", cleaned.Segments[0].Text)
	assert.Equal(t, 1, cleaned.Stats.OriginalSegments)

	suggestions, err := artifacts.LoadSuggestions(dir)
	require.NoError(t, err)
	require.Len(t, suggestions.Suggestions, 1)
	assert.Equal(t, "Anna (PM)", suggestions.Suggestions[0].DisplayName)
	assert.False(t, suggestions.Suggestions[0].Applied)
}

func TestStartRejectsUnfinishedJob(t *testing.T) {
	job := completedJob("")
	job.Status = models.JobStatusProcessing
	store := newFakeStore(job)
	svc, _, _ := newTestService(t, store, &fakeCompleter{text: cleanupJSON})

	_, err := svc.Start(context.Background(), "job-1", "standard", "", "")
	assert.ErrorIs(t, err, ErrJobNotReady)
	assert.Empty(t, store.created)
}

func TestStartRejectsUnknownTemplate(t *testing.T) {
	dir := t.TempDir()
	store := newFakeStore(completedJob(dir))
	svc, _, _ := newTestService(t, store, &fakeCompleter{text: cleanupJSON})

	_, err := svc.Start(context.Background(), "job-1", "no-such-template", "", "")
	assert.ErrorIs(t, err, template.ErrNotFound)
}

func TestCleanupFailureRecordsVerbatimError(t *testing.T) {
	dir := t.TempDir() + "/2026-01-10_standup"
	store := newFakeStore(completedJob(dir))
	svc, artifacts, _ := newTestService(t, store, &fakeCompleter{err: errors.New("insufficient credit balance")})
	seedTranscript(t, artifacts, dir)

	_, err := svc.Start(context.Background(), "job-1", "standard", "gemini", "gemini-2.5-flash")
	require.NoError(t, err, "start itself succeeds; the failure is asynchronous")

	result := waitFinished(t, store, "op-1")
	assert.Equal(t, models.OperationFailed, result.Status)
	assert.Contains(t, result.Error, "insufficient credit balance")

	_, err = artifacts.LoadCleaned(dir)
	assert.ErrorIs(t, err, artifact.ErrNotFound, "failed run must not leave a cleaned artifact")
}

func TestCleanupBadJSONFails(t *testing.T) {
	dir := t.TempDir() + "/2026-01-10_standup"
	store := newFakeStore(completedJob(dir))
	svc, artifacts, _ := newTestService(t, store, &fakeCompleter{text: "Sure! Here is the cleaned transcript:"})
	seedTranscript(t, artifacts, dir)

	_, err := svc.Start(context.Background(), "job-1", "standard", "gemini", "gemini-2.5-flash")
	require.NoError(t, err)

	result := waitFinished(t, store, "op-1")
	assert.Equal(t, models.OperationFailed, result.Status)
}
