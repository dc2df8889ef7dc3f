package models

// Segment is one attributed span of transcribed speech.
type Segment struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	Speaker    string  `json:"speaker,omitempty"` // "SPEAKER_00", ...
	Confidence float64 `json:"confidence,omitempty"`
}

// Word is a single word with timing, present when the engine supports it.
type Word struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Word    string  `json:"word"`
	Speaker string  `json:"speaker,omitempty"`
}

// Speaker is a per-job speaker identity.
type Speaker struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// TranscriptMetadata describes the job a transcript belongs to.
type TranscriptMetadata struct {
	ID              string  `json:"id"`
	Filename        string  `json:"filename"`
	DurationSeconds float64 `json:"duration_seconds"`
	CreatedAt       string  `json:"created_at"`
	Engine          string  `json:"engine"`
	Model           string  `json:"model"`
	Language        string  `json:"language"`
}

// TranscriptStats summarizes a transcript.
type TranscriptStats struct {
	TotalWords        int     `json:"total_words"`
	SpeakersCount     int     `json:"speakers_count"`
	LanguageDetected  string  `json:"language_detected"`
	ProcessingSeconds float64 `json:"processing_time_seconds"`
}

// Transcript is the primary per-job artifact: segments plus the speaker map.
type Transcript struct {
	Metadata TranscriptMetadata `json:"metadata"`
	Speakers map[string]Speaker `json:"speakers"`
	Segments []Segment          `json:"segments"`
	Words    []Word             `json:"words,omitempty"`
	Stats    TranscriptStats    `json:"stats"`
}

// RenameSpeakers applies a partial id -> display name map. Unknown ids are
// ignored; the color assignment is preserved.
func (t *Transcript) RenameSpeakers(names map[string]string) {
	for id, name := range names {
		if sp, ok := t.Speakers[id]; ok {
			sp.Name = name
			t.Speakers[id] = sp
		}
	}
}
