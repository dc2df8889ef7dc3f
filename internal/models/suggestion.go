package models

// SpeakerSuggestion is an AI-proposed rename/role for one speaker. Name and
// role carry independent confidences and justifications. A suggestion is
// one-shot: once applied it stays in the stored set only as a tombstone
// (Applied=true); the job's speaker map is the durable record.
type SpeakerSuggestion struct {
	SpeakerID      string  `json:"speaker_id"`
	DisplayName    string  `json:"display_name"`
	Name           string  `json:"name,omitempty"`
	NameConfidence float64 `json:"name_confidence"`
	NameReason     string  `json:"name_reason,omitempty"`
	Role           string  `json:"role,omitempty"`
	RoleConfidence float64 `json:"role_confidence"`
	RoleReason     string  `json:"role_reason,omitempty"`
	Applied        bool    `json:"applied"`
}

// SuggestionSet is the stored speaker_suggestions.json document.
type SuggestionSet struct {
	CreatedAt   string              `json:"created_at"`
	Template    string              `json:"template"`
	Model       string              `json:"model"`
	Suggestions []SpeakerSuggestion `json:"suggestions"`
}

// Pending returns the suggestions that are still applicable: not yet applied
// and carrying a non-empty display name.
func (s *SuggestionSet) Pending() []SpeakerSuggestion {
	var out []SpeakerSuggestion
	for _, sug := range s.Suggestions {
		if !sug.Applied && sug.DisplayName != "" {
			out = append(out, sug)
		}
	}
	return out
}

// Find returns a pointer to the suggestion for the given speaker, or nil.
func (s *SuggestionSet) Find(speakerID string) *SpeakerSuggestion {
	for i := range s.Suggestions {
		if s.Suggestions[i].SpeakerID == speakerID {
			return &s.Suggestions[i]
		}
	}
	return nil
}
