// Package client provides the REST client for the Scribeflow server plus
// the polling view models the CLI builds on.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/scribeflow/scribeflow/internal/config"
	"github.com/scribeflow/scribeflow/internal/engine"
	"github.com/scribeflow/scribeflow/internal/events"
	"github.com/scribeflow/scribeflow/internal/llm"
	"github.com/scribeflow/scribeflow/internal/models"
	"github.com/scribeflow/scribeflow/internal/template"
)

// Client talks to the Scribeflow REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client. If baseURL is empty, uses SCRIBEFLOW_SERVER_URL
// env var or defaults to localhost:8090. Timeout can be configured via
// SCRIBEFLOW_CLIENT_TIMEOUT (default 10m, sized for large uploads).
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("SCRIBEFLOW_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8090"
	}

	timeout := 10 * time.Minute
	if t := os.Getenv("SCRIBEFLOW_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ErrNotFound reports that the server has no resource at the requested
// path, such as a job without a cleaned transcript yet.
var ErrNotFound = errors.New("not found")

// errorResponse is the server's JSON error envelope.
type errorResponse struct {
	Error string `json:"error"`
}

// do sends a request and decodes the JSON response into result.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp, result)
}

func decodeResponse(resp *http.Response, result any) error {
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var errResp errorResponse
		if json.Unmarshal(data, &errResp) == nil && errResp.Error != "" {
			if resp.StatusCode == http.StatusNotFound {
				return fmt.Errorf("%s: %w", errResp.Error, ErrNotFound)
			}
			return fmt.Errorf("server error: %s", errResp.Error)
		}
		if resp.StatusCode == http.StatusNotFound {
			return ErrNotFound
		}
		return fmt.Errorf("server error: %s - %s", resp.Status, string(data))
	}

	if result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// UploadOptions are the optional fields of an upload.
type UploadOptions struct {
	Engine      string
	Model       string
	Language    string
	MinSpeakers *int
	MaxSpeakers *int
	Context     string
	Queued      bool // submit immediately instead of creating a draft
}

// Upload posts one audio file and returns the created job.
func (c *Client) Upload(ctx context.Context, path string, opts UploadOptions) (*models.Job, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, err
	}

	fields := map[string]string{
		"engine":   opts.Engine,
		"model":    opts.Model,
		"language": opts.Language,
		"context":  opts.Context,
	}
	if opts.MinSpeakers != nil {
		fields["min_speakers"] = strconv.Itoa(*opts.MinSpeakers)
	}
	if opts.MaxSpeakers != nil {
		fields["max_speakers"] = strconv.Itoa(*opts.MaxSpeakers)
	}
	if opts.Queued {
		fields["status"] = string(models.JobStatusQueued)
	}
	for k, v := range fields {
		if v == "" {
			continue
		}
		if err := mw.WriteField(k, v); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/transcribe/upload", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	var job models.Job
	if err := decodeResponse(resp, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Queue returns jobs newest-first.
func (c *Client) Queue(ctx context.Context, limit int) ([]models.Job, error) {
	var out struct {
		Jobs []models.Job `json:"jobs"`
	}
	path := "/api/transcribe/queue"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

// GetJob retrieves one job.
func (c *Client) GetJob(ctx context.Context, id string) (*models.Job, error) {
	var job models.Job
	if err := c.do(ctx, http.MethodGet, "/api/transcribe/"+url.PathEscape(id), nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// Transcript retrieves the transcript artifact of a completed job.
func (c *Client) Transcript(ctx context.Context, id string) (*models.Transcript, error) {
	var t models.Transcript
	if err := c.do(ctx, http.MethodGet, "/api/transcribe/"+url.PathEscape(id)+"/transcript", nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// UpdateContext saves the free-text context of a job.
func (c *Client) UpdateContext(ctx context.Context, id, jobContext string) error {
	body := map[string]string{"context": jobContext}
	return c.do(ctx, http.MethodPatch, "/api/transcribe/"+url.PathEscape(id)+"/context", body, nil)
}

// StartResult reports a bulk start outcome.
type StartResult struct {
	Started int      `json:"started"`
	Errors  []string `json:"errors"`
}

// Start submits draft jobs into the queue.
func (c *Client) Start(ctx context.Context, ids []string) (*StartResult, error) {
	var out StartResult
	if err := c.do(ctx, http.MethodPost, "/api/transcribe/start", map[string]any{"ids": ids}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StartAll submits every draft job.
func (c *Client) StartAll(ctx context.Context) (*StartResult, error) {
	var out StartResult
	if err := c.do(ctx, http.MethodPost, "/api/transcribe/start-all", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteJob removes one job. Deleting an unknown id is not an error.
func (c *Client) DeleteJob(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/transcribe/"+url.PathEscape(id), nil, nil)
}

// ClearJobs bulk-deletes jobs; filter is "failed" or "all".
func (c *Client) ClearJobs(ctx context.Context, filter string) (int, error) {
	var out struct {
		Deleted int `json:"deleted"`
	}
	if err := c.do(ctx, http.MethodDelete, "/api/transcribe?filter="+url.QueryEscape(filter), nil, &out); err != nil {
		return 0, err
	}
	return out.Deleted, nil
}

// UpdateSpeakers sends a partial speaker id -> name map.
func (c *Client) UpdateSpeakers(ctx context.Context, id string, names map[string]string) error {
	return c.do(ctx, http.MethodPut, "/api/transcribe/"+url.PathEscape(id)+"/speakers", names, nil)
}

// Engines lists the transcription engines with availability.
func (c *Client) Engines(ctx context.Context) ([]engine.Info, error) {
	var out struct {
		Engines []engine.Info `json:"engines"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/engines", nil, &out); err != nil {
		return nil, err
	}
	return out.Engines, nil
}

// Settings retrieves the masked settings view.
func (c *Client) Settings(ctx context.Context) (*config.View, error) {
	var view config.View
	if err := c.do(ctx, http.MethodGet, "/api/settings", nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// UpdateSettings applies a partial settings patch.
func (c *Client) UpdateSettings(ctx context.Context, patch config.Patch) (*config.View, error) {
	var view config.View
	if err := c.do(ctx, http.MethodPut, "/api/settings", patch, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// CleanupTemplates lists the cleanup templates.
func (c *Client) CleanupTemplates(ctx context.Context) ([]template.CleanupTemplate, error) {
	var out struct {
		Templates []template.CleanupTemplate `json:"templates"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/postprocess/templates", nil, &out); err != nil {
		return nil, err
	}
	return out.Templates, nil
}

// SaveCleanupTemplate creates or replaces a user cleanup template.
func (c *Client) SaveCleanupTemplate(ctx context.Context, tpl template.CleanupTemplate) error {
	return c.do(ctx, http.MethodPost, "/api/postprocess/templates", tpl, nil)
}

// DeleteCleanupTemplate removes a user cleanup template.
func (c *Client) DeleteCleanupTemplate(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/postprocess/templates/"+url.PathEscape(id), nil, nil)
}

// Models retrieves the LLM pricing catalog grouped by provider.
func (c *Client) Models(ctx context.Context) (map[string][]llm.ModelInfo, error) {
	var out struct {
		Providers map[string][]llm.ModelInfo `json:"providers"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/postprocess/models", nil, &out); err != nil {
		return nil, err
	}
	return out.Providers, nil
}

// StartCleanup kicks off the cleanup stage and returns the accepted
// operation handle.
func (c *Client) StartCleanup(ctx context.Context, jobID, templateID, provider, model string) (*models.Operation, error) {
	body := map[string]string{"template_id": templateID, "provider": provider, "model": model}
	var op models.Operation
	if err := c.do(ctx, http.MethodPost, "/api/postprocess/jobs/"+url.PathEscape(jobID), body, &op); err != nil {
		return nil, err
	}
	return &op, nil
}

// Cleaned retrieves the cleaned transcript artifact.
func (c *Client) Cleaned(ctx context.Context, jobID string) (*models.CleanedTranscript, error) {
	var cleaned models.CleanedTranscript
	if err := c.do(ctx, http.MethodGet, "/api/postprocess/jobs/"+url.PathEscape(jobID)+"/cleaned", nil, &cleaned); err != nil {
		return nil, err
	}
	return &cleaned, nil
}

// Operations lists LLM operations, newest first, optionally for one job.
func (c *Client) Operations(ctx context.Context, jobID string, limit int) ([]models.Operation, error) {
	q := url.Values{}
	if jobID != "" {
		q.Set("job_id", jobID)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/postprocess/operations"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var out struct {
		Operations []models.Operation `json:"operations"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Operations, nil
}

// Suggestions retrieves the stored speaker suggestions of a job.
func (c *Client) Suggestions(ctx context.Context, jobID string) (*models.SuggestionSet, error) {
	var set models.SuggestionSet
	if err := c.do(ctx, http.MethodGet, "/api/postprocess/jobs/"+url.PathEscape(jobID)+"/suggestions", nil, &set); err != nil {
		return nil, err
	}
	return &set, nil
}

// ApplySuggestion applies the pending suggestion for one speaker.
func (c *Client) ApplySuggestion(ctx context.Context, jobID, speakerID string) error {
	path := "/api/postprocess/jobs/" + url.PathEscape(jobID) + "/suggestions/" + url.PathEscape(speakerID) + "/apply"
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// ApplyAllSuggestions applies every pending suggestion of a job and
// returns the applied count.
func (c *Client) ApplyAllSuggestions(ctx context.Context, jobID string) (int, error) {
	var out struct {
		Applied int `json:"applied"`
	}
	path := "/api/postprocess/jobs/" + url.PathEscape(jobID) + "/suggestions/apply-all"
	if err := c.do(ctx, http.MethodPost, path, nil, &out); err != nil {
		return 0, err
	}
	return out.Applied, nil
}

// InsightTemplates lists the insight templates.
func (c *Client) InsightTemplates(ctx context.Context) ([]template.InsightTemplate, error) {
	var out struct {
		Templates []template.InsightTemplate `json:"templates"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/insights/templates", nil, &out); err != nil {
		return nil, err
	}
	return out.Templates, nil
}

// StartInsights kicks off insight generation for a template and source.
func (c *Client) StartInsights(ctx context.Context, jobID, templateID, source, provider, model string) (*models.Operation, error) {
	body := map[string]string{
		"template_id": templateID,
		"source":      source,
		"provider":    provider,
		"model":       model,
	}
	var op models.Operation
	if err := c.do(ctx, http.MethodPost, "/api/insights/jobs/"+url.PathEscape(jobID), body, &op); err != nil {
		return nil, err
	}
	return &op, nil
}

// InsightSources reports which transcript sources a job offers.
func (c *Client) InsightSources(ctx context.Context, jobID string) (*models.SourceAvailability, error) {
	var avail models.SourceAvailability
	if err := c.do(ctx, http.MethodGet, "/api/insights/jobs/"+url.PathEscape(jobID)+"/sources", nil, &avail); err != nil {
		return nil, err
	}
	return &avail, nil
}

// ListInsights lists the stored insight documents of a job.
func (c *Client) ListInsights(ctx context.Context, jobID string) ([]models.InsightsSummary, error) {
	var out struct {
		Insights []models.InsightsSummary `json:"insights"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/insights/jobs/"+url.PathEscape(jobID), nil, &out); err != nil {
		return nil, err
	}
	return out.Insights, nil
}

// GetInsights retrieves the insight document for one template.
func (c *Client) GetInsights(ctx context.Context, jobID, templateID string) (*models.Insights, error) {
	var ins models.Insights
	path := "/api/insights/jobs/" + url.PathEscape(jobID) + "/" + url.PathEscape(templateID)
	if err := c.do(ctx, http.MethodGet, path, nil, &ins); err != nil {
		return nil, err
	}
	return &ins, nil
}

// Download fetches a raw artifact download such as
// /api/insights/jobs/{id}/{template}/mindmap.md.
func (c *Client) Download(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var errResp errorResponse
		if json.Unmarshal(data, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("server error: %s", errResp.Error)
		}
		return nil, fmt.Errorf("server error: %s", resp.Status)
	}
	return data, nil
}

// Stats retrieves the aggregated usage statistics as raw JSON.
func (c *Client) Stats(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.do(ctx, http.MethodGet, "/api/stats", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Health checks the server.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// WatchEvents connects to the event stream and delivers events on the
// returned channel until the context ends or the connection drops.
// Pass since > 0 to replay buffered events first.
func (c *Client) WatchEvents(ctx context.Context, since int64) (<-chan events.Event, error) {
	wsURL, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	switch wsURL.Scheme {
	case "https":
		wsURL.Scheme = "wss"
	default:
		wsURL.Scheme = "ws"
	}
	wsURL.Path = "/api/events"
	if since > 0 {
		wsURL.RawQuery = "since=" + strconv.FormatInt(since, 10)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("connect event stream: %w", err)
	}
	if resp != nil {
		resp.Body.Close()
	}

	out := make(chan events.Event, 16)
	go func() {
		defer close(out)
		defer conn.Close()
		for {
			var event events.Event
			if err := conn.ReadJSON(&event); err != nil {
				return
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	return out, nil
}
