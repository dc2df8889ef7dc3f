package server

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/scribeflow/scribeflow/internal/db"
	"github.com/scribeflow/scribeflow/internal/events"
	"github.com/scribeflow/scribeflow/internal/models"
)

// maxUploadMemory bounds the in-memory portion of a multipart upload;
// larger files spill to disk.
const maxUploadMemory = 64 << 20

// allowedExtensions is the audio upload allow-list. Everything else is
// rejected before any file is written.
var allowedExtensions = map[string]bool{
	".mp3":  true,
	".m4a":  true,
	".wav":  true,
	".ogg":  true,
	".flac": true,
	".webm": true,
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported file type %q", ext))
		return
	}

	// A short unique prefix keeps repeated uploads of the same file apart.
	storedName := fmt.Sprintf("%s_%s", uuid.NewString()[:8], filepath.Base(header.Filename))
	storedPath := filepath.Join(s.cfg.UploadsPath(), storedName)

	size, err := saveUpload(file, storedPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storing upload: "+err.Error())
		return
	}

	cfg := s.deps.Settings.Get()
	input := models.JobInput{
		Filename:     header.Filename,
		OriginalPath: storedPath,
		SizeBytes:    size,
		Engine:       formOr(r, "engine", cfg.DefaultEngine),
		Model:        formOr(r, "model", cfg.DefaultModel),
		Language:     r.FormValue("language"),
		Context:      r.FormValue("context"),
		MinSpeakers:  formInt(r, "min_speakers"),
		MaxSpeakers:  formInt(r, "max_speakers"),
	}

	status := models.JobStatusDraft
	if r.FormValue("status") == string(models.JobStatusQueued) {
		status = models.JobStatusQueued
	}

	job, err := s.deps.Store.QueryCreateJob(r.Context(), input, status)
	if err != nil {
		os.Remove(storedPath)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.deps.Bus.Publish(events.Event{
		Type:   events.TypeJobCreated,
		JobID:  models.MustRecordIDString(job.ID),
		Status: job.Status,
	})

	writeJSON(w, http.StatusCreated, job)
}

func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	var status *models.JobStatus
	if v := r.URL.Query().Get("status"); v != "" {
		st := models.JobStatus(v)
		if !st.Valid() {
			writeError(w, http.StatusBadRequest, "unknown status "+v)
			return
		}
		status = &st
	}

	jobs, err := s.deps.Store.QueryListJobs(r.Context(), status, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs, "count": len(jobs)})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobOr404(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleTranscript(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobOr404(w, r)
	if !ok {
		return
	}
	if job.OutputDir == "" {
		writeError(w, http.StatusNotFound, "transcript not available")
		return
	}

	t, err := s.deps.Artifacts.LoadTranscript(job.OutputDir)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleTranscriptTxt(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobOr404(w, r)
	if !ok {
		return
	}
	if job.OutputDir == "" {
		writeError(w, http.StatusNotFound, "transcript not available")
		return
	}

	data, err := os.ReadFile(filepath.Join(job.OutputDir, "transcript.txt"))
	if err != nil {
		writeError(w, http.StatusNotFound, "transcript not available")
		return
	}

	serveDownload(w, models.DownloadName("transcript", job.Filename, "txt"), "text/plain; charset=utf-8", data)
}

func (s *Server) handleUpdateContext(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobOr404(w, r)
	if !ok {
		return
	}

	var body struct {
		Context string `json:"context"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}

	id := models.MustRecordIDString(job.ID)
	if err := s.deps.Store.QueryUpdateJobContext(r.Context(), id, body.Context); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs []string `json:"ids"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	if len(body.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "no job ids given")
		return
	}

	started := 0
	var errs []string
	for _, id := range body.IDs {
		job, err := s.deps.Store.QuerySubmitJob(r.Context(), id)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %s", id, err))
			continue
		}
		started++
		s.deps.Bus.Publish(events.Event{
			Type:   events.TypeJobStatus,
			JobID:  id,
			Status: job.Status,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"started": started, "errors": errs})
}

func (s *Server) handleStartAll(w http.ResponseWriter, r *http.Request) {
	draft := models.JobStatusDraft
	jobs, err := s.deps.Store.QueryListJobs(r.Context(), &draft, 1000)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	started := 0
	for _, job := range jobs {
		id := models.MustRecordIDString(job.ID)
		if _, err := s.deps.Store.QuerySubmitJob(r.Context(), id); err != nil {
			continue
		}
		started++
		s.deps.Bus.Publish(events.Event{
			Type:   events.TypeJobStatus,
			JobID:  id,
			Status: models.JobStatusQueued,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"started": started})
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	deleted, err := s.deps.Store.QueryDeleteJob(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if deleted > 0 {
		s.deps.Bus.Publish(events.Event{Type: events.TypeJobDeleted, JobID: id})
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}

func (s *Server) handleClearJobs(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("filter")
	if filter != "failed" && filter != "all" {
		writeError(w, http.StatusBadRequest, "filter must be failed or all")
		return
	}

	deleted, err := s.deps.Store.QueryClearJobs(r.Context(), filter == "failed")
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}

func (s *Server) handleUpdateSpeakers(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobOr404(w, r)
	if !ok {
		return
	}

	var names map[string]string
	if err := decodeJSON(r, &names); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	if len(names) == 0 {
		writeError(w, http.StatusBadRequest, "no speaker names given")
		return
	}

	merged := make(map[string]string, len(job.SpeakerNames)+len(names))
	for id, name := range job.SpeakerNames {
		merged[id] = name
	}
	for id, name := range names {
		merged[id] = name
	}

	id := models.MustRecordIDString(job.ID)
	if err := s.deps.Store.QueryUpdateSpeakerNames(r.Context(), id, merged); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if job.OutputDir != "" {
		if err := s.deps.Artifacts.RegenerateTranscriptTxt(job.OutputDir, names); err != nil {
			s.logger.Warn("rewriting transcript artifacts", "job_id", id, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"id": id, "speaker_names": merged})
}

// jobOr404 resolves the {id} path value to a job, writing the error
// response itself when the job cannot be served.
func (s *Server) jobOr404(w http.ResponseWriter, r *http.Request) (*models.Job, bool) {
	id := r.PathValue("id")
	job, err := s.deps.Store.QueryGetJob(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "job not found")
		return nil, false
	}
	return job, true
}

func saveUpload(src io.Reader, dst string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, err
	}
	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	defer out.Close()
	return io.Copy(out, src)
}

func formOr(r *http.Request, field, fallback string) string {
	if v := r.FormValue(field); v != "" {
		return v
	}
	return fallback
}

func formInt(r *http.Request, field string) *int {
	v := r.FormValue(field)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}

func serveDownload(w http.ResponseWriter, filename, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

var _ Store = (*db.Client)(nil)
