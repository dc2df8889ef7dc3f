package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/scribeflow/scribeflow/internal/models"
)

const elevenLabsDefaultBaseURL = "https://api.elevenlabs.io/v1"

// ElevenLabs transcribes through the Scribe speech-to-text API.
type ElevenLabs struct {
	BaseURL string

	apiKey string
	client *http.Client
}

// NewElevenLabs creates an ElevenLabs engine.
func NewElevenLabs(apiKey string) *ElevenLabs {
	return &ElevenLabs{
		BaseURL: elevenLabsDefaultBaseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Minute},
	}
}

func (e *ElevenLabs) Name() string { return "elevenlabs" }

type elevenLabsResponse struct {
	Text         string `json:"text"`
	LanguageCode string `json:"language_code"`
	Words        []struct {
		Type      string  `json:"type"` // "word" | "spacing" | "audio_event"
		Text      string  `json:"text"`
		Start     float64 `json:"start"`
		End       float64 `json:"end"`
		LogProb   float64 `json:"logprob"`
		SpeakerID string  `json:"speaker_id"` // "speaker_0", ...
	} `json:"words"`
}

// Transcribe sends the audio in one multipart request. Scribe returns
// word-level output only, so segments are rebuilt by grouping
// consecutive words of the same speaker.
func (e *ElevenLabs) Transcribe(ctx context.Context, audioPath string, opts Options) (*Result, error) {
	start := time.Now()

	f, err := os.Open(audioPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("model_id", opts.Model); err != nil {
		return nil, err
	}
	if err := mw.WriteField("tag_audio_events", "true"); err != nil {
		return nil, err
	}
	if err := mw.WriteField("diarize", strconv.FormatBool(opts.Diarize)); err != nil {
		return nil, err
	}
	fw, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.BaseURL+"/speech-to-text", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("elevenlabs http %d: %s", resp.StatusCode, string(b))
	}

	var parsed elevenLabsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parse elevenlabs response: %w", err)
	}

	result := &Result{
		Text:              parsed.Text,
		Language:          parsed.LanguageCode,
		ProcessingSeconds: time.Since(start).Seconds(),
	}

	var current *models.Segment
	for _, w := range parsed.Words {
		if w.Type != "word" {
			continue
		}

		speaker := normalizeScribeSpeaker(w.SpeakerID)
		confidence := math.Abs(w.LogProb) // logprob comes back negative

		result.Words = append(result.Words, models.Word{
			Start: w.Start, End: w.End, Word: w.Text, Speaker: speaker,
		})
		result.DurationSeconds = w.End

		if current != nil && current.Speaker == speaker {
			current.End = w.End
			current.Text += " " + w.Text
			continue
		}
		if current != nil {
			result.Segments = append(result.Segments, *current)
		}
		current = &models.Segment{
			Start: w.Start, End: w.End, Text: w.Text,
			Speaker: speaker, Confidence: confidence,
		}
	}
	if current != nil {
		result.Segments = append(result.Segments, *current)
	}

	return result, nil
}

// normalizeScribeSpeaker maps "speaker_0" style ids to SPEAKER_00.
func normalizeScribeSpeaker(id string) string {
	if id == "" {
		return "SPEAKER_00"
	}
	if num, ok := strings.CutPrefix(id, "speaker_"); ok {
		if n, err := strconv.Atoi(num); err == nil {
			return fmt.Sprintf("SPEAKER_%02d", n)
		}
		return "SPEAKER_00"
	}
	return id
}
