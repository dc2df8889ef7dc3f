package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/scribeflow/scribeflow/internal/artifact"
	"github.com/scribeflow/scribeflow/internal/insights"
	"github.com/scribeflow/scribeflow/internal/postprocess"
	"github.com/scribeflow/scribeflow/internal/template"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps known service errors onto status codes; anything
// unrecognized becomes a 500.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, template.ErrNotFound), errors.Is(err, artifact.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, template.ErrDefaultTemplate),
		errors.Is(err, template.ErrMissingID),
		errors.Is(err, postprocess.ErrJobNotReady),
		errors.Is(err, insights.ErrJobNotReady),
		errors.Is(err, insights.ErrSourceUnavailable),
		errors.Is(err, insights.ErrBadSource):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
