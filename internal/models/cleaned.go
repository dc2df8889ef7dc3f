package models

// CleanedMetadata records how a cleaned transcript was produced.
type CleanedMetadata struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	CleanedAt string `json:"cleaned_at"`
	Template  string `json:"template"`
	Provider  string `json:"provider"`
	Model     string `json:"model"`
}

// CleanedStats compares the cleaned transcript against its source and
// captures the LLM usage of the cleanup call.
type CleanedStats struct {
	OriginalSegments  int      `json:"original_segments"`
	CleanedSegments   int      `json:"cleaned_segments"`
	InputTokens       int      `json:"input_tokens"`
	OutputTokens      int      `json:"output_tokens"`
	CostUSD           *float64 `json:"cost_usd,omitempty"`
	ProcessingSeconds float64  `json:"processing_time_seconds"`
}

// CleanedTranscript is the derived artifact of a cleanup run. Rerunning
// cleanup replaces it wholesale; the original transcript is never modified.
type CleanedTranscript struct {
	Metadata CleanedMetadata    `json:"metadata"`
	Speakers map[string]Speaker `json:"speakers"`
	Segments []Segment          `json:"segments"`
	Stats    CleanedStats       `json:"stats"`
}
