package client

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/scribeflow/scribeflow/internal/models"
)

// QueuePollInterval is the fixed queue refresh interval.
const QueuePollInterval = 5 * time.Second

// BucketOrder is the display order of the queue sections.
var BucketOrder = []models.Bucket{
	models.BucketDraft,
	models.BucketQueued,
	models.BucketActive,
	models.BucketDone,
}

// QueueSnapshot is one recomputed view of the queue.
type QueueSnapshot struct {
	Jobs     []models.Job
	Sections map[models.Bucket][]models.Job
}

// QueueView polls the full job list on a fixed interval and keeps local
// selection and expansion state. State survives a refresh for jobs still
// present and is dropped for jobs that vanished.
type QueueView struct {
	client   *Client
	interval time.Duration
	limit    int

	mu       sync.Mutex
	jobs     []models.Job
	selected map[string]bool
	expanded map[string]bool
}

// NewQueueView creates a queue view polling at QueuePollInterval.
func NewQueueView(c *Client) *QueueView {
	return &QueueView{
		client:   c,
		interval: QueuePollInterval,
		limit:    200,
		selected: map[string]bool{},
		expanded: map[string]bool{},
	}
}

// Refresh fetches the job list once and recomputes the sections.
func (v *QueueView) Refresh(ctx context.Context) (QueueSnapshot, error) {
	jobs, err := v.client.Queue(ctx, v.limit)
	if err != nil {
		return QueueSnapshot{}, err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.jobs = jobs
	v.pruneState()
	return v.snapshotLocked(), nil
}

// Run refreshes immediately and then on every tick until ctx ends,
// invoking onUpdate with each snapshot. Poll errors are passed to onError
// and polling continues.
func (v *QueueView) Run(ctx context.Context, onUpdate func(QueueSnapshot), onError func(error)) {
	poll := func() {
		snap, err := v.Refresh(ctx)
		if err != nil {
			if onError != nil && ctx.Err() == nil {
				onError(err)
			}
			return
		}
		if onUpdate != nil {
			onUpdate(snap)
		}
	}

	poll()

	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			poll()
		}
	}
}

// Snapshot returns the current sections without polling.
func (v *QueueView) Snapshot() QueueSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

func (v *QueueView) snapshotLocked() QueueSnapshot {
	sections := map[models.Bucket][]models.Job{}
	for _, job := range v.jobs {
		bucket := models.StatusBucket(job.Status)
		sections[bucket] = append(sections[bucket], job)
	}
	return QueueSnapshot{Jobs: v.jobs, Sections: sections}
}

// pruneState drops selection and expansion entries for vanished jobs.
// Callers must hold v.mu.
func (v *QueueView) pruneState() {
	present := make(map[string]bool, len(v.jobs))
	for _, job := range v.jobs {
		present[models.MustRecordIDString(job.ID)] = true
	}
	for id := range v.selected {
		if !present[id] {
			delete(v.selected, id)
		}
	}
	for id := range v.expanded {
		if !present[id] {
			delete(v.expanded, id)
		}
	}
}

// ToggleSelect flips the selection of a job.
func (v *QueueView) ToggleSelect(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.selected[id] {
		delete(v.selected, id)
	} else {
		v.selected[id] = true
	}
}

// ToggleExpand flips the expansion of a job row.
func (v *QueueView) ToggleExpand(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.expanded[id] {
		delete(v.expanded, id)
	} else {
		v.expanded[id] = true
	}
}

// Selected returns the selected job ids, sorted.
func (v *QueueView) Selected() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]string, 0, len(v.selected))
	for id := range v.selected {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Expanded reports whether a job row is expanded.
func (v *QueueView) Expanded(id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.expanded[id]
}

// StartSelected submits the selected draft jobs.
func (v *QueueView) StartSelected(ctx context.Context) (*StartResult, error) {
	ids := v.Selected()
	if len(ids) == 0 {
		return &StartResult{}, nil
	}
	return v.client.Start(ctx, ids)
}

// StartAll submits every draft job.
func (v *QueueView) StartAll(ctx context.Context) (*StartResult, error) {
	return v.client.StartAll(ctx)
}

// ClearFailed deletes all failed jobs. Confirmation is the caller's duty.
func (v *QueueView) ClearFailed(ctx context.Context) (int, error) {
	return v.client.ClearJobs(ctx, "failed")
}

// ClearAll deletes every job. Confirmation is the caller's duty.
func (v *QueueView) ClearAll(ctx context.Context) (int, error) {
	return v.client.ClearJobs(ctx, "all")
}

// SaveContext persists a draft's context text, independent of starting it.
func (v *QueueView) SaveContext(ctx context.Context, id, text string) error {
	return v.client.UpdateContext(ctx, id, text)
}
