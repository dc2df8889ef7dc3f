package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribeflow/scribeflow/internal/models"
)

func editorTranscript() *models.Transcript {
	return &models.Transcript{
		Speakers: map[string]models.Speaker{
			"SPEAKER_00": {Name: "SPEAKER_00", Color: "#3B82F6"},
			"SPEAKER_01": {Name: "Ben", Color: "#10B981"},
		},
	}
}

func TestSpeakerEditorDirtyTracking(t *testing.T) {
	e := NewSpeakerEditor(New("http://localhost:1"), "job-1", editorTranscript())

	rows := e.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "SPEAKER_00", rows[0].ID)
	assert.Empty(t, e.Dirty())

	e.SetName("SPEAKER_00", "Anna")
	assert.Equal(t, []string{"SPEAKER_00"}, e.Dirty())

	// Setting the name back clears the dirty flag.
	e.SetName("SPEAKER_00", "SPEAKER_00")
	assert.Empty(t, e.Dirty())
}

func TestSpeakerEditorSaveSendsOnlyChanges(t *testing.T) {
	var sent map[string]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/transcribe/job-1/speakers", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sent))
		jsonHandler(t, http.StatusOK, map[string]string{"id": "job-1"})(w, r)
	}))
	defer ts.Close()

	e := NewSpeakerEditor(New(ts.URL), "job-1", editorTranscript())
	e.SetName("SPEAKER_00", "Anna")

	require.NoError(t, e.Save(context.Background()))
	assert.Equal(t, map[string]string{"SPEAKER_00": "Anna"}, sent)
	assert.Empty(t, e.Dirty())
}

func TestSpeakerEditorSaveNoopWhenClean(t *testing.T) {
	// No server: a clean save must not issue a request.
	e := NewSpeakerEditor(New("http://localhost:1"), "job-1", editorTranscript())
	assert.NoError(t, e.Save(context.Background()))
}

func TestSpeakerEditorReset(t *testing.T) {
	e := NewSpeakerEditor(New("http://localhost:1"), "job-1", editorTranscript())
	e.SetName("SPEAKER_00", "Anna")
	e.SetName("SPEAKER_01", "Bob")

	e.Reset()
	assert.Empty(t, e.Dirty())
	rows := e.Rows()
	assert.Equal(t, "SPEAKER_00", rows[0].Name)
	assert.Equal(t, "Ben", rows[1].Name)
}

func TestSpeakerEditorApplySuggestion(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/postprocess/jobs/job-1/suggestions/SPEAKER_00/apply", r.URL.Path)
		jsonHandler(t, http.StatusOK, map[string]string{"ok": "1"})(w, r)
	}))
	defer ts.Close()

	e := NewSpeakerEditor(New(ts.URL), "job-1", editorTranscript())
	err := e.ApplySuggestion(context.Background(), models.SpeakerSuggestion{
		SpeakerID:   "SPEAKER_00",
		DisplayName: "Anna (PM)",
	})
	require.NoError(t, err)

	assert.Equal(t, "Anna (PM)", e.Rows()[0].Name)
	// The applied name is the new server state, not a local edit.
	assert.Empty(t, e.Dirty())
}

func TestSpeakerEditorDismissIsLocal(t *testing.T) {
	e := NewSpeakerEditor(New("http://localhost:1"), "job-1", editorTranscript())

	set := &models.SuggestionSet{Suggestions: []models.SpeakerSuggestion{
		{SpeakerID: "SPEAKER_00", DisplayName: "Anna"},
		{SpeakerID: "SPEAKER_01", DisplayName: "Ben"},
	}}

	require.Len(t, e.VisibleSuggestions(set), 2)

	e.Dismiss("SPEAKER_00")
	visible := e.VisibleSuggestions(set)
	require.Len(t, visible, 1)
	assert.Equal(t, "SPEAKER_01", visible[0].SpeakerID)

	// The set itself is untouched: a fresh editor sees everything again.
	fresh := NewSpeakerEditor(New("http://localhost:1"), "job-1", editorTranscript())
	assert.Len(t, fresh.VisibleSuggestions(set), 2)
}
