package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/scribeflow/scribeflow/internal/models"
)

// StagePollInterval is how often a running stage operation is polled.
const StagePollInterval = 2 * time.Second

// Poll ceilings per stage. Cleanup rewrites whole transcripts and can run
// for many minutes; insights responses are far smaller. Two separate
// knobs, never unified.
const (
	CleanupMaxPolls  = 500
	InsightsMaxPolls = 60
)

var (
	// ErrStageInFlight is returned when a second start is attempted
	// while a run is still being awaited.
	ErrStageInFlight = errors.New("a stage run is already in flight")

	// ErrStageTimeout is returned when the poll ceiling is reached. The
	// server side keeps running; timeout is a client-side give-up, not a
	// cancellation.
	ErrStageTimeout = errors.New("stage did not finish within the poll limit")
)

// StageRunner drives one optional pipeline stage: fire the accepted-only
// start request, then poll the operations list until the operation
// created by this run reaches a terminal status.
type StageRunner struct {
	client   *Client
	opType   models.OperationType
	interval time.Duration
	maxPolls int

	mu       sync.Mutex
	inFlight bool
}

// NewCleanupRunner creates a runner for the cleanup stage.
func NewCleanupRunner(c *Client) *StageRunner {
	return &StageRunner{
		client:   c,
		opType:   models.OperationCleanup,
		interval: StagePollInterval,
		maxPolls: CleanupMaxPolls,
	}
}

// NewInsightsRunner creates a runner for the insights stage.
func NewInsightsRunner(c *Client) *StageRunner {
	return &StageRunner{
		client:   c,
		opType:   models.OperationInsights,
		interval: StagePollInterval,
		maxPolls: InsightsMaxPolls,
	}
}

// RunCleanup starts cleanup for a job and blocks until the operation
// finishes, fails, or the poll ceiling is hit.
func (r *StageRunner) RunCleanup(ctx context.Context, jobID, templateID, provider, model string) (*models.Operation, error) {
	return r.run(ctx, jobID, templateID, func(ctx context.Context) (*models.Operation, error) {
		return r.client.StartCleanup(ctx, jobID, templateID, provider, model)
	})
}

// RunInsights starts insight generation and blocks like RunCleanup.
func (r *StageRunner) RunInsights(ctx context.Context, jobID, templateID, source, provider, model string) (*models.Operation, error) {
	return r.run(ctx, jobID, templateID, func(ctx context.Context) (*models.Operation, error) {
		return r.client.StartInsights(ctx, jobID, templateID, source, provider, model)
	})
}

func (r *StageRunner) run(ctx context.Context, jobID, templateID string, start func(context.Context) (*models.Operation, error)) (*models.Operation, error) {
	r.mu.Lock()
	if r.inFlight {
		r.mu.Unlock()
		return nil, ErrStageInFlight
	}
	r.inFlight = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.inFlight = false
		r.mu.Unlock()
	}()

	startMark := time.Now()

	op, err := start(ctx)
	if err != nil {
		return nil, err
	}

	return r.await(ctx, jobID, templateID, startMark, op)
}

// await polls the operations list until the operation of this run turns
// terminal. Matching is by type, template and creation at or after the
// local start mark, with the accepted operation's id as tie-breaker.
func (r *StageRunner) await(ctx context.Context, jobID, templateID string, startMark time.Time, accepted *models.Operation) (*models.Operation, error) {
	acceptedID := models.MustRecordIDString(accepted.ID)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for polls := 0; polls < r.maxPolls; polls++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		ops, err := r.client.Operations(ctx, jobID, 0)
		if err != nil {
			// Transient poll errors only consume attempts.
			continue
		}

		op := matchOperation(ops, r.opType, templateID, startMark, acceptedID)
		if op == nil || op.Status == models.OperationRunning {
			continue
		}

		if op.Status == models.OperationFailed {
			msg := "operation failed"
			if op.Error != nil {
				msg = *op.Error
			}
			return op, fmt.Errorf("%s", msg)
		}
		return op, nil
	}

	return nil, ErrStageTimeout
}

func matchOperation(ops []models.Operation, opType models.OperationType, templateID string, startMark time.Time, acceptedID string) *models.Operation {
	// The clock that stamped CreatedAt is the server's; allow a little
	// skew around the local start mark.
	cutoff := startMark.Add(-5 * time.Second)

	for i := range ops {
		op := &ops[i]
		if models.MustRecordIDString(op.ID) == acceptedID {
			return op
		}
		if op.Type == opType && op.TemplateID == templateID && !op.CreatedAt.Before(cutoff) {
			return op
		}
	}
	return nil
}
