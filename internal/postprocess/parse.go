package postprocess

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/scribeflow/scribeflow/internal/llm"
	"github.com/scribeflow/scribeflow/internal/models"
)

type rawSegment struct {
	Start   float64 `json:"start"`
	Speaker string  `json:"speaker"`
	Text    string  `json:"text"`
}

type rawSuggestion struct {
	SpeakerID      string  `json:"speaker_id"`
	Name           string  `json:"name"`
	NameConfidence float64 `json:"name_confidence"`
	NameReason     string  `json:"name_reason"`
	Role           string  `json:"role"`
	RoleConfidence float64 `json:"role_confidence"`
	RoleReason     string  `json:"role_reason"`
}

type cleanupResponse struct {
	Segments           []rawSegment    `json:"segments"`
	SpeakerSuggestions []rawSuggestion `json:"speaker_suggestions"`
}

// parseResponse reads the strict-JSON cleanup answer. A bare array is
// accepted as segments-only for models that ignore the wrapper object.
func parseResponse(text string) ([]models.Segment, []models.SpeakerSuggestion, error) {
	body := llm.StripFences(text)

	var parsed cleanupResponse
	if strings.HasPrefix(body, "[") {
		if err := json.Unmarshal([]byte(body), &parsed.Segments); err != nil {
			return nil, nil, fmt.Errorf("parse LLM response: %w", err)
		}
	} else if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return nil, nil, fmt.Errorf("parse LLM response: %w", err)
	}

	segments := make([]models.Segment, 0, len(parsed.Segments))
	for _, seg := range parsed.Segments {
		speaker := seg.Speaker
		if speaker == "" {
			speaker = "SPEAKER_UNKNOWN"
		}
		segments = append(segments, models.Segment{
			Start:   seg.Start,
			Speaker: speaker,
			Text:    seg.Text,
		})
	}

	var suggestions []models.SpeakerSuggestion
	for _, sug := range parsed.SpeakerSuggestions {
		display := displayName(sug.Name, sug.Role)
		if display == "" {
			continue
		}
		suggestions = append(suggestions, models.SpeakerSuggestion{
			SpeakerID:      sug.SpeakerID,
			DisplayName:    display,
			Name:           sug.Name,
			NameConfidence: sug.NameConfidence,
			NameReason:     sug.NameReason,
			Role:           sug.Role,
			RoleConfidence: sug.RoleConfidence,
			RoleReason:     sug.RoleReason,
		})
	}

	return segments, suggestions, nil
}

func displayName(name, role string) string {
	switch {
	case name != "" && role != "":
		return fmt.Sprintf("%s (%s)", name, role)
	case name != "":
		return name
	default:
		return role
	}
}
