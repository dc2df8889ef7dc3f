package insights

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/scribeflow/scribeflow/internal/llm"
	"github.com/scribeflow/scribeflow/internal/models"
)

type rawInsights struct {
	Description string                  `json:"description"`
	Sections    []models.InsightSection `json:"sections"`
	Mindmap     *models.Mindmap         `json:"mindmap"`
}

// parseResponse reads the strict-JSON insights answer. The mindmap is
// kept only when the template asked for one; models occasionally return
// it anyway.
func parseResponse(text string, includeMindmap bool) (*models.Insights, error) {
	body := llm.StripFences(text)

	var parsed rawInsights
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return nil, fmt.Errorf("parse LLM response: %w", err)
	}
	if len(parsed.Sections) == 0 {
		return nil, fmt.Errorf("no sections in LLM response")
	}

	doc := &models.Insights{
		Description: parsed.Description,
		Sections:    parsed.Sections,
	}
	if includeMindmap && parsed.Mindmap != nil && strings.TrimSpace(parsed.Mindmap.Content) != "" {
		doc.Mindmap = &models.Mindmap{Format: "markdown", Content: parsed.Mindmap.Content}
	}
	return doc, nil
}
