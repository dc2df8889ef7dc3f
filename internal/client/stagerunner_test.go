package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribeflow/scribeflow/internal/models"
)

// stageServer fakes the start + operations endpoints for one run.
type stageServer struct {
	mu    sync.Mutex
	op    models.Operation
	polls int
	// pollsUntilDone is how many operation polls return running before
	// the terminal status appears.
	pollsUntilDone int
	terminal       models.OperationStatus
	errMsg         string
}

func (s *stageServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost:
			s.mu.Lock()
			s.op = models.Operation{
				ID:         surrealmodels.NewRecordID("operation", "op-1"),
				JobID:      "job-1",
				Type:       models.OperationCleanup,
				TemplateID: "standard",
				Status:     models.OperationRunning,
				CreatedAt:  time.Now(),
			}
			op := s.op
			s.mu.Unlock()
			jsonHandler(t, http.StatusAccepted, op)(w, r)

		case strings.HasPrefix(r.URL.Path, "/api/postprocess/operations"):
			s.mu.Lock()
			s.polls++
			if s.polls >= s.pollsUntilDone {
				s.op.Status = s.terminal
				if s.errMsg != "" {
					msg := s.errMsg
					s.op.Error = &msg
				}
			}
			op := s.op
			s.mu.Unlock()
			jsonHandler(t, http.StatusOK, map[string]any{"operations": []models.Operation{op}, "count": 1})(w, r)

		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}
}

func fastRunner(c *Client, maxPolls int) *StageRunner {
	r := NewCleanupRunner(c)
	r.interval = 5 * time.Millisecond
	r.maxPolls = maxPolls
	return r
}

func TestStageRunnerSuccess(t *testing.T) {
	srv := &stageServer{pollsUntilDone: 3, terminal: models.OperationSuccess}
	ts := httptest.NewServer(srv.handler(t))
	defer ts.Close()

	runner := fastRunner(New(ts.URL), 50)
	op, err := runner.RunCleanup(context.Background(), "job-1", "standard", "", "")
	require.NoError(t, err)
	assert.Equal(t, models.OperationSuccess, op.Status)

	// The guard is released; a second run is allowed.
	srv.mu.Lock()
	srv.polls = 0
	srv.mu.Unlock()
	_, err = runner.RunCleanup(context.Background(), "job-1", "standard", "", "")
	require.NoError(t, err)
}

func TestStageRunnerFailureSurfacesVerbatimError(t *testing.T) {
	srv := &stageServer{pollsUntilDone: 1, terminal: models.OperationFailed, errMsg: "insufficient credit balance"}
	ts := httptest.NewServer(srv.handler(t))
	defer ts.Close()

	op, err := fastRunner(New(ts.URL), 50).RunCleanup(context.Background(), "job-1", "standard", "", "")
	require.Error(t, err)
	assert.Equal(t, "insufficient credit balance", err.Error())
	require.NotNil(t, op)
	assert.Equal(t, models.OperationFailed, op.Status)
}

func TestStageRunnerTimeoutIsDistinctFromFailure(t *testing.T) {
	srv := &stageServer{pollsUntilDone: 1000, terminal: models.OperationSuccess}
	ts := httptest.NewServer(srv.handler(t))
	defer ts.Close()

	_, err := fastRunner(New(ts.URL), 3).RunCleanup(context.Background(), "job-1", "standard", "", "")
	assert.ErrorIs(t, err, ErrStageTimeout)
}

func TestStageRunnerRejectsConcurrentStart(t *testing.T) {
	runner := fastRunner(New("http://localhost:1"), 3)
	runner.mu.Lock()
	runner.inFlight = true
	runner.mu.Unlock()

	_, err := runner.RunCleanup(context.Background(), "job-1", "standard", "", "")
	assert.ErrorIs(t, err, ErrStageInFlight)
}

func TestStageRunnerStopsOnContextCancel(t *testing.T) {
	srv := &stageServer{pollsUntilDone: 1000, terminal: models.OperationSuccess}
	ts := httptest.NewServer(srv.handler(t))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := fastRunner(New(ts.URL), 1000).RunCleanup(ctx, "job-1", "standard", "", "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStageRunnerCeilingsDiffer(t *testing.T) {
	c := New("http://localhost:1")
	assert.Equal(t, CleanupMaxPolls, NewCleanupRunner(c).maxPolls)
	assert.Equal(t, InsightsMaxPolls, NewInsightsRunner(c).maxPolls)
	assert.NotEqual(t, NewCleanupRunner(c).maxPolls, NewInsightsRunner(c).maxPolls)
}
