package server

import (
	"net/http"

	"github.com/scribeflow/scribeflow/internal/config"
	"github.com/scribeflow/scribeflow/internal/engine"
)

func (s *Server) handleEngines(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"engines": s.deps.Engines.List()})
}

func (s *Server) handleEngineModels(w http.ResponseWriter, r *http.Request) {
	info, ok := s.engineInfo(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": info.Models})
}

func (s *Server) handleEngineCapabilities(w http.ResponseWriter, r *http.Request) {
	info, ok := s.engineInfo(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"requires_api_key":        info.RequiresAPIKey,
		"supports_diarization":    info.SupportsDiarization,
		"supports_initial_prompt": info.SupportsInitialPrompt,
		"available":               info.Available,
	})
}

func (s *Server) engineInfo(w http.ResponseWriter, r *http.Request) (engine.Info, bool) {
	id := r.PathValue("id")
	for _, e := range s.deps.Engines.List() {
		if e.ID == id {
			return e, true
		}
	}
	writeError(w, http.StatusNotFound, "unknown engine "+id)
	return engine.Info{}, false
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Settings.Get().View())
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch config.Patch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}

	updated, err := s.deps.Settings.Update(patch)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, updated.View())
}
