package models

// InsightSection is one generated section of an insights document.
type InsightSection struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Mindmap is a markdown outline produced alongside insights.
type Mindmap struct {
	Format  string `json:"format"` // always "markdown"
	Content string `json:"content"`
}

// InsightsMetadata records how an insights document was produced.
type InsightsMetadata struct {
	JobID        string `json:"job_id"`
	TemplateID   string `json:"template_id"`
	TemplateName string `json:"template_name"`
	Source       string `json:"source"` // "original" | "cleaned"
	CreatedAt    string `json:"created_at"`
	Provider     string `json:"provider"`
	Model        string `json:"model"`
}

// InsightsStats captures token usage and cost of the generating call.
type InsightsStats struct {
	InputTokens       int      `json:"input_tokens"`
	OutputTokens      int      `json:"output_tokens"`
	CostUSD           *float64 `json:"cost_usd,omitempty"`
	ProcessingSeconds float64  `json:"processing_time_seconds"`
}

// Insights is the derived artifact of one insights generation. Regeneration
// for the same template fully replaces the prior document; documents for
// different templates coexist.
type Insights struct {
	Metadata    InsightsMetadata `json:"metadata"`
	Description string           `json:"description"`
	Sections    []InsightSection `json:"sections"`
	Mindmap     *Mindmap         `json:"mindmap,omitempty"`
	Stats       InsightsStats    `json:"stats"`
}

// InsightsSummary is the listing form of a stored insights document.
type InsightsSummary struct {
	TemplateID   string `json:"template_id"`
	TemplateName string `json:"template_name"`
	CreatedAt    string `json:"created_at"`
}

// SourceAvailability reports which transcript sources insights can read.
type SourceAvailability struct {
	Original bool `json:"original"`
	Cleaned  bool `json:"cleaned"`
}
