package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/scribeflow/scribeflow/internal/llm"
	"github.com/scribeflow/scribeflow/internal/models"
	"github.com/scribeflow/scribeflow/internal/template"
)

func (s *Server) handleListCleanupTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.deps.CleanupTemplates.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": templates})
}

func (s *Server) handleGetCleanupTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, err := s.deps.CleanupTemplates.Get(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (s *Server) handleSaveCleanupTemplate(w http.ResponseWriter, r *http.Request) {
	var tpl template.CleanupTemplate
	if err := decodeJSON(r, &tpl); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	if id := r.PathValue("id"); id != "" {
		tpl.ID = id
	}

	if err := s.deps.CleanupTemplates.Save(tpl); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (s *Server) handleDeleteCleanupTemplate(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.CleanupTemplates.Delete(r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": r.PathValue("id")})
}

func (s *Server) handleGetModels(w http.ResponseWriter, r *http.Request) {
	out := make(map[string][]llm.ModelInfo)
	for _, provider := range s.deps.Catalog.Providers() {
		out[provider] = s.deps.Catalog.List(provider)
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": out})
}

func (s *Server) handleUpdateModels(w http.ResponseWriter, r *http.Request) {
	var body map[string][]llm.ModelInfo
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "no providers given")
		return
	}

	if err := s.deps.Catalog.Replace(body); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"providers": len(body)})
}

func (s *Server) handleStartCleanup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TemplateID string `json:"template_id"`
		Provider   string `json:"provider"`
		Model      string `json:"model"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	if body.TemplateID == "" {
		writeError(w, http.StatusBadRequest, "template_id is required")
		return
	}

	op, err := s.deps.Postprocess.Start(r.Context(), r.PathValue("id"), body.TemplateID, body.Provider, body.Model)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, op)
}

func (s *Server) handleGetCleaned(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobOr404(w, r)
	if !ok {
		return
	}
	if job.OutputDir == "" {
		writeError(w, http.StatusNotFound, "cleaned transcript not available")
		return
	}

	cleaned, err := s.deps.Artifacts.LoadCleaned(job.OutputDir)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cleaned)
}

func (s *Server) handleListOperations(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	var (
		ops []models.Operation
		err error
	)
	if jobID := r.URL.Query().Get("job_id"); jobID != "" {
		ops, err = s.deps.Store.QueryListOperations(r.Context(), jobID, nil)
	} else {
		ops, err = s.deps.Store.QueryAllOperations(r.Context(), limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(ops) > limit {
		ops = ops[:limit]
	}

	writeJSON(w, http.StatusOK, map[string]any{"operations": ops, "count": len(ops)})
}

func (s *Server) handleGetSuggestions(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobOr404(w, r)
	if !ok {
		return
	}
	if job.OutputDir == "" {
		writeError(w, http.StatusNotFound, "suggestions not available")
		return
	}

	set, err := s.deps.Artifacts.LoadSuggestions(job.OutputDir)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (s *Server) handleApplySuggestion(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobOr404(w, r)
	if !ok {
		return
	}
	if job.OutputDir == "" {
		writeError(w, http.StatusNotFound, "suggestions not available")
		return
	}

	set, err := s.deps.Artifacts.LoadSuggestions(job.OutputDir)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	speaker := r.PathValue("speaker")
	sug := set.Find(speaker)
	if sug == nil {
		writeError(w, http.StatusNotFound, "no suggestion for "+speaker)
		return
	}
	if sug.Applied || sug.DisplayName == "" {
		writeError(w, http.StatusBadRequest, "suggestion for "+speaker+" is not applicable")
		return
	}

	if err := s.applySuggestions(r.Context(), job, set, []*models.SpeakerSuggestion{sug}); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sug)
}

func (s *Server) handleApplyAllSuggestions(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobOr404(w, r)
	if !ok {
		return
	}
	if job.OutputDir == "" {
		writeError(w, http.StatusNotFound, "suggestions not available")
		return
	}

	set, err := s.deps.Artifacts.LoadSuggestions(job.OutputDir)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var pending []*models.SpeakerSuggestion
	for i := range set.Suggestions {
		sug := &set.Suggestions[i]
		if !sug.Applied && sug.DisplayName != "" {
			pending = append(pending, sug)
		}
	}
	if len(pending) == 0 {
		writeJSON(w, http.StatusOK, map[string]int{"applied": 0})
		return
	}

	if err := s.applySuggestions(r.Context(), job, set, pending); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"applied": len(pending)})
}

// applySuggestions renames the given speakers on the job and its
// artifacts, then marks the suggestions as applied. Partial failure
// leaves the suggestion set untouched so a retry stays possible.
func (s *Server) applySuggestions(ctx context.Context, job *models.Job, set *models.SuggestionSet, suggestions []*models.SpeakerSuggestion) error {
	names := make(map[string]string, len(suggestions))
	for _, sug := range suggestions {
		names[sug.SpeakerID] = sug.DisplayName
	}

	merged := make(map[string]string, len(job.SpeakerNames)+len(names))
	for id, name := range job.SpeakerNames {
		merged[id] = name
	}
	for id, name := range names {
		merged[id] = name
	}

	id := models.MustRecordIDString(job.ID)
	if err := s.deps.Store.QueryUpdateSpeakerNames(ctx, id, merged); err != nil {
		return err
	}
	if err := s.deps.Artifacts.RegenerateTranscriptTxt(job.OutputDir, names); err != nil {
		return err
	}

	for _, sug := range suggestions {
		sug.Applied = true
	}
	return s.deps.Artifacts.SaveSuggestions(job.OutputDir, set)
}
