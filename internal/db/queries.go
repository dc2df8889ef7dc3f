// Package db provides SurrealDB query functions for jobs and operations.
package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"

	"github.com/scribeflow/scribeflow/internal/models"
)

// StatusCount represents a job status with its count.
type StatusCount struct {
	Status models.JobStatus `json:"status"`
	Count  int              `json:"count"`
}

// QueryCreateJob inserts a new job in the given initial status and returns it.
// The record ID is a fresh UUID.
func (c *Client) QueryCreateJob(
	ctx context.Context,
	input models.JobInput,
	status models.JobStatus,
) (*models.Job, error) {
	sql := `
		CREATE type::record("job", $id) SET
			filename = $filename,
			original_path = $original_path,
			size_bytes = $size_bytes,
			engine = $engine,
			model = $model,
			language = $language,
			min_speakers = $min_speakers,
			max_speakers = $max_speakers,
			context = $context,
			status = $status,
			progress = 0.0
		RETURN AFTER
	`

	vars := map[string]any{
		"id":            uuid.NewString(),
		"filename":      input.Filename,
		"original_path": input.OriginalPath,
		"size_bytes":    input.SizeBytes,
		"engine":        input.Engine,
		"model":         input.Model,
		"language":      optString(input.Language),
		"min_speakers":  input.MinSpeakers,
		"max_speakers":  input.MaxSpeakers,
		"context":       optString(input.Context),
		"status":        string(status),
	}

	results, err := surrealdb.Query[[]models.Job](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create job: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// QueryGetJob retrieves a job by ID.
// Returns nil if not found.
func (c *Client) QueryGetJob(ctx context.Context, id string) (*models.Job, error) {
	results, err := surrealdb.Query[[]models.Job](ctx, c.db, `
		SELECT * FROM type::record("job", $id)
	`, map[string]any{"id": id})

	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// QueryListJobs returns jobs ordered newest first, optionally filtered
// by status.
func (c *Client) QueryListJobs(
	ctx context.Context,
	status *models.JobStatus,
	limit int,
) ([]models.Job, error) {
	statusClause := ""
	vars := map[string]any{"limit": limit}
	if status != nil {
		statusClause = "WHERE status = $status"
		vars["status"] = string(*status)
	}

	sql := fmt.Sprintf(`
		SELECT * FROM job %s ORDER BY created_at DESC LIMIT $limit
	`, statusClause)

	results, err := surrealdb.Query[[]models.Job](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.Job{}, nil
	}
	return (*results)[0].Result, nil
}

// QueryNextQueuedJob returns the oldest queued job, or nil when the queue
// is empty.
func (c *Client) QueryNextQueuedJob(ctx context.Context) (*models.Job, error) {
	results, err := surrealdb.Query[[]models.Job](ctx, c.db, `
		SELECT * FROM job WHERE status = 'queued' ORDER BY created_at ASC LIMIT 1
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("next queued job: %w", err)
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, nil
	}
	return &(*results)[0].Result[0], nil
}

// QuerySubmitJob moves a draft job into the queue. Only drafts can be
// submitted; returns ErrNotDraft otherwise and ErrNotFound for unknown ids.
func (c *Client) QuerySubmitJob(ctx context.Context, id string) (*models.Job, error) {
	results, err := surrealdb.Query[[]models.Job](ctx, c.db, `
		UPDATE type::record("job", $id) SET status = 'queued'
		WHERE status = 'draft'
		RETURN AFTER
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("submit job: %w", wrapQueryError(err))
	}

	if results != nil && len(*results) > 0 && len((*results)[0].Result) > 0 {
		return &(*results)[0].Result[0], nil
	}

	// The WHERE clause matched nothing: either the job is missing or it
	// already left draft. Disambiguate for the caller.
	job, err := c.QueryGetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, ErrNotFound
	}
	return nil, ErrNotDraft
}

// QueryUpdateJobStatus sets status and progress on a job. A non-empty
// errMsg records the failure reason verbatim.
func (c *Client) QueryUpdateJobStatus(
	ctx context.Context,
	id string,
	status models.JobStatus,
	progress float64,
	errMsg string,
) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("job", $id) SET
			status = $status,
			progress = $progress,
			error_message = $error
	`, map[string]any{
		"id":       id,
		"status":   string(status),
		"progress": progress,
		"error":    optString(errMsg),
	})
	if err != nil {
		return fmt.Errorf("update job status: %w", wrapQueryError(err))
	}
	return nil
}

// QueryMarkJobStarted transitions a job to processing and stamps started_at.
func (c *Client) QueryMarkJobStarted(ctx context.Context, id string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("job", $id) SET
			status = 'processing',
			progress = 10.0,
			error_message = NONE,
			started_at = time::now()
	`, map[string]any{"id": id})
	if err != nil {
		return fmt.Errorf("mark job started: %w", wrapQueryError(err))
	}
	return nil
}

// QueryCompleteJob writes the worker's results and transitions the job
// to completed with progress 100.
func (c *Client) QueryCompleteJob(
	ctx context.Context,
	id string,
	results models.JobResults,
) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("job", $id) SET
			status = 'completed',
			progress = 100.0,
			output_dir = $output_dir,
			duration_seconds = $duration,
			speakers_count = $speakers,
			language_detected = $language,
			processing_seconds = $processing,
			completed_at = time::now()
	`, map[string]any{
		"id":         id,
		"output_dir": results.OutputDir,
		"duration":   results.DurationSeconds,
		"speakers":   results.SpeakersCount,
		"language":   optString(results.LanguageDetected),
		"processing": results.ProcessingSeconds,
	})
	if err != nil {
		return fmt.Errorf("complete job: %w", wrapQueryError(err))
	}
	return nil
}

// QueryUpdateJobContext updates the free-text context prompt of a job.
func (c *Client) QueryUpdateJobContext(ctx context.Context, id string, jobContext string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("job", $id) SET context = $context
	`, map[string]any{"id": id, "context": optString(jobContext)})
	if err != nil {
		return fmt.Errorf("update job context: %w", wrapQueryError(err))
	}
	return nil
}

// QueryUpdateJobSettings updates the processing settings of a draft job.
func (c *Client) QueryUpdateJobSettings(
	ctx context.Context,
	id string,
	engine, model, language string,
	minSpeakers, maxSpeakers *int,
) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("job", $id) SET
			engine = $engine,
			model = $model,
			language = $language,
			min_speakers = $min_speakers,
			max_speakers = $max_speakers
		WHERE status = 'draft'
	`, map[string]any{
		"id":           id,
		"engine":       engine,
		"model":        model,
		"language":     optString(language),
		"min_speakers": minSpeakers,
		"max_speakers": maxSpeakers,
	})
	if err != nil {
		return fmt.Errorf("update job settings: %w", wrapQueryError(err))
	}
	return nil
}

// QueryUpdateSpeakerNames replaces the speaker display-name overrides of a job.
func (c *Client) QueryUpdateSpeakerNames(
	ctx context.Context,
	id string,
	names map[string]string,
) error {
	if names == nil {
		names = map[string]string{}
	}

	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("job", $id) SET speaker_names = $names
	`, map[string]any{"id": id, "names": names})
	if err != nil {
		return fmt.Errorf("update speaker names: %w", wrapQueryError(err))
	}
	return nil
}

// QueryDeleteJob deletes a job and its operation records by ID.
// Returns count of deleted jobs (0 if not found - idempotent).
func (c *Client) QueryDeleteJob(ctx context.Context, id string) (int, error) {
	results, err := surrealdb.Query[[]models.Job](ctx, c.db, `
		DELETE operation WHERE job_id = $id;
		DELETE type::record("job", $id) RETURN BEFORE;
	`, map[string]any{"id": id})
	if err != nil {
		return 0, fmt.Errorf("delete job: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return 0, nil
	}
	// The DELETE job statement is the last result.
	return len((*results)[len(*results)-1].Result), nil
}

// QueryClearJobs bulk-deletes jobs and their operations. With failedOnly
// it removes only failed jobs, otherwise every job. Returns the count of
// deleted jobs.
func (c *Client) QueryClearJobs(ctx context.Context, failedOnly bool) (int, error) {
	statusClause := ""
	if failedOnly {
		statusClause = "WHERE status = 'failed'"
	}

	sql := fmt.Sprintf(`
		DELETE operation WHERE job_id IN (SELECT VALUE record::id(id) FROM job %s);
		DELETE job %s RETURN BEFORE;
	`, statusClause, statusClause)

	results, err := surrealdb.Query[[]models.Job](ctx, c.db, sql, nil)
	if err != nil {
		return 0, fmt.Errorf("clear jobs: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return 0, nil
	}
	return len((*results)[len(*results)-1].Result), nil
}

// QueryResetStuckJobs requeues jobs left in processing or diarizing, for
// example after a server crash. Returns the number of requeued jobs.
func (c *Client) QueryResetStuckJobs(ctx context.Context) (int, error) {
	results, err := surrealdb.Query[[]models.Job](ctx, c.db, `
		UPDATE job SET status = 'queued', progress = 0.0, started_at = NONE
		WHERE status IN ['processing', 'diarizing']
		RETURN AFTER
	`, nil)
	if err != nil {
		return 0, fmt.Errorf("reset stuck jobs: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return 0, nil
	}
	return len((*results)[0].Result), nil
}

// QueryJobCounts returns job counts grouped by status.
func (c *Client) QueryJobCounts(ctx context.Context) ([]StatusCount, error) {
	results, err := surrealdb.Query[[]StatusCount](ctx, c.db, `
		SELECT status, count() AS count FROM job GROUP BY status ORDER BY count DESC
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("job counts: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []StatusCount{}, nil
	}
	return (*results)[0].Result, nil
}

// QueryCreateOperation inserts a new running operation record.
func (c *Client) QueryCreateOperation(
	ctx context.Context,
	input models.OperationInput,
) (*models.Operation, error) {
	sql := `
		CREATE type::record("operation", $id) SET
			job_id = $job_id,
			type = $type,
			provider = $provider,
			model = $model,
			template_id = $template_id,
			temperature = $temperature,
			status = 'running'
		RETURN AFTER
	`

	results, err := surrealdb.Query[[]models.Operation](ctx, c.db, sql, map[string]any{
		"id":          uuid.NewString(),
		"job_id":      input.JobID,
		"type":        string(input.Type),
		"provider":    input.Provider,
		"model":       input.Model,
		"template_id": input.TemplateID,
		"temperature": input.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("create operation: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create operation: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// QueryFinishOperation writes the terminal fields of an operation.
// Finished operations are never touched again.
func (c *Client) QueryFinishOperation(
	ctx context.Context,
	id string,
	result models.OperationResult,
) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE type::record("operation", $id) SET
			input_tokens = $input_tokens,
			output_tokens = $output_tokens,
			cost_usd = $cost_usd,
			processing_seconds = $processing,
			status = $status,
			error_message = $error
		WHERE status = 'running'
	`, map[string]any{
		"id":            id,
		"input_tokens":  result.InputTokens,
		"output_tokens": result.OutputTokens,
		"cost_usd":      result.CostUSD,
		"processing":    result.ProcessingSeconds,
		"status":        string(result.Status),
		"error":         optString(result.Error),
	})
	if err != nil {
		return fmt.Errorf("finish operation: %w", wrapQueryError(err))
	}
	return nil
}

// QueryListOperations returns the operations of a job, newest first.
// With opType set, only operations of that type are returned.
func (c *Client) QueryListOperations(
	ctx context.Context,
	jobID string,
	opType *models.OperationType,
) ([]models.Operation, error) {
	typeClause := ""
	vars := map[string]any{"job_id": jobID}
	if opType != nil {
		typeClause = "AND type = $type"
		vars["type"] = string(*opType)
	}

	sql := fmt.Sprintf(`
		SELECT * FROM operation WHERE job_id = $job_id %s ORDER BY created_at DESC
	`, typeClause)

	results, err := surrealdb.Query[[]models.Operation](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("list operations: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.Operation{}, nil
	}
	return (*results)[0].Result, nil
}

// QueryAllOperations returns every operation record, newest first.
// Used for the usage statistics aggregation.
func (c *Client) QueryAllOperations(ctx context.Context, limit int) ([]models.Operation, error) {
	results, err := surrealdb.Query[[]models.Operation](ctx, c.db, `
		SELECT * FROM operation ORDER BY created_at DESC LIMIT $limit
	`, map[string]any{"limit": limit})
	if err != nil {
		return nil, fmt.Errorf("all operations: %w", err)
	}

	if results == nil || len(*results) == 0 {
		return []models.Operation{}, nil
	}
	return (*results)[0].Result, nil
}

// optString maps the empty string to nil so option<string> fields stay NONE.
func optString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
