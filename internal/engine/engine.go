// Package engine provides pluggable transcription engines: a local
// whisper service plus cloud providers behind a shared interface.
package engine

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/scribeflow/scribeflow/internal/models"
)

// Options carries per-job transcription settings.
type Options struct {
	Model         string
	Language      string // empty = auto-detect
	InitialPrompt string // context hint, whisper only
	Diarize       bool
	MinSpeakers   *int
	MaxSpeakers   *int
}

// Result is the normalized output of one transcription call.
type Result struct {
	Text              string
	Segments          []models.Segment
	Words             []models.Word
	Language          string
	DurationSeconds   float64
	ProcessingSeconds float64
}

// Engine is a pluggable transcription backend.
type Engine interface {
	Name() string
	Transcribe(ctx context.Context, audioPath string, opts Options) (*Result, error)
}

func segment(start, end float64, text string) models.Segment {
	return models.Segment{Start: start, End: end, Text: text}
}

func wordAt(start, end float64, text string) models.Word {
	return models.Word{Start: start, End: end, Word: text}
}

// contentTypeFor maps an audio file extension to its MIME type.
func contentTypeFor(audioPath string) string {
	switch strings.ToLower(filepath.Ext(audioPath)) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".m4a":
		return "audio/mp4"
	case ".ogg":
		return "audio/ogg"
	case ".flac":
		return "audio/flac"
	case ".webm":
		return "audio/webm"
	default:
		return "audio/mpeg"
	}
}
