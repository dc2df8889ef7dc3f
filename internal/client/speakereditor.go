package client

import (
	"context"
	"sort"

	"github.com/scribeflow/scribeflow/internal/models"
)

// SpeakerRow is one editable speaker line.
type SpeakerRow struct {
	ID    string
	Name  string
	Color string
}

// SpeakerEditor tracks local speaker renames against the server state.
// Only rows whose name actually changed are sent on Save.
type SpeakerEditor struct {
	client *Client
	jobID  string

	rows      []SpeakerRow
	original  map[string]string
	dismissed map[string]bool
}

// NewSpeakerEditor seeds the editor from a transcript's speaker map,
// sorted by speaker id.
func NewSpeakerEditor(c *Client, jobID string, t *models.Transcript) *SpeakerEditor {
	rows := make([]SpeakerRow, 0, len(t.Speakers))
	original := make(map[string]string, len(t.Speakers))
	for id, sp := range t.Speakers {
		rows = append(rows, SpeakerRow{ID: id, Name: sp.Name, Color: sp.Color})
		original[id] = sp.Name
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })

	return &SpeakerEditor{
		client:    c,
		jobID:     jobID,
		rows:      rows,
		original:  original,
		dismissed: map[string]bool{},
	}
}

// Rows returns the current editor rows.
func (e *SpeakerEditor) Rows() []SpeakerRow {
	out := make([]SpeakerRow, len(e.rows))
	copy(out, e.rows)
	return out
}

// SetName updates one row locally. Unknown ids are ignored.
func (e *SpeakerEditor) SetName(id, name string) {
	for i := range e.rows {
		if e.rows[i].ID == id {
			e.rows[i].Name = name
			return
		}
	}
}

// Dirty returns the ids whose name differs from the server state, sorted.
func (e *SpeakerEditor) Dirty() []string {
	var out []string
	for _, row := range e.rows {
		if row.Name != e.original[row.ID] {
			out = append(out, row.ID)
		}
	}
	sort.Strings(out)
	return out
}

// Save sends the changed names as a partial map and marks them clean.
// With nothing dirty, Save is a no-op.
func (e *SpeakerEditor) Save(ctx context.Context) error {
	names := map[string]string{}
	for _, row := range e.rows {
		if row.Name != e.original[row.ID] {
			names[row.ID] = row.Name
		}
	}
	if len(names) == 0 {
		return nil
	}

	if err := e.client.UpdateSpeakers(ctx, e.jobID, names); err != nil {
		return err
	}
	for id, name := range names {
		e.original[id] = name
	}
	return nil
}

// Reset discards local edits, restoring the server state.
func (e *SpeakerEditor) Reset() {
	for i := range e.rows {
		e.rows[i].Name = e.original[e.rows[i].ID]
	}
}

// Dismiss hides a suggestion for the rest of the session. Purely local:
// the server keeps the suggestion and a fresh editor will show it again.
func (e *SpeakerEditor) Dismiss(speakerID string) {
	e.dismissed[speakerID] = true
}

// VisibleSuggestions filters a set to the suggestions still worth showing:
// pending on the server and not dismissed in this session.
func (e *SpeakerEditor) VisibleSuggestions(set *models.SuggestionSet) []models.SpeakerSuggestion {
	var out []models.SpeakerSuggestion
	for _, sug := range set.Pending() {
		if !e.dismissed[sug.SpeakerID] {
			out = append(out, sug)
		}
	}
	return out
}

// ApplySuggestion applies one AI suggestion on the server and mirrors the
// result locally.
func (e *SpeakerEditor) ApplySuggestion(ctx context.Context, sug models.SpeakerSuggestion) error {
	if err := e.client.ApplySuggestion(ctx, e.jobID, sug.SpeakerID); err != nil {
		return err
	}
	e.SetName(sug.SpeakerID, sug.DisplayName)
	e.original[sug.SpeakerID] = sug.DisplayName
	return nil
}

// ApplyAllSuggestions applies every pending suggestion server-side and
// refreshes the affected rows from the given set.
func (e *SpeakerEditor) ApplyAllSuggestions(ctx context.Context, set *models.SuggestionSet) (int, error) {
	applied, err := e.client.ApplyAllSuggestions(ctx, e.jobID)
	if err != nil {
		return 0, err
	}
	for _, sug := range set.Pending() {
		e.SetName(sug.SpeakerID, sug.DisplayName)
		e.original[sug.SpeakerID] = sug.DisplayName
	}
	return applied, nil
}
