package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/scribeflow/scribeflow/internal/models"
)

const deepgramDefaultBaseURL = "https://api.deepgram.com/v1"

// Deepgram transcribes through the Deepgram prerecorded listen API.
type Deepgram struct {
	BaseURL string

	apiKey string
	client *http.Client
}

// NewDeepgram creates a Deepgram engine.
func NewDeepgram(apiKey string) *Deepgram {
	return &Deepgram{
		BaseURL: deepgramDefaultBaseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Minute},
	}
}

func (d *Deepgram) Name() string { return "deepgram" }

type deepgramResponse struct {
	Metadata struct {
		Duration         float64 `json:"duration"`
		DetectedLanguage string  `json:"detected_language"`
	} `json:"metadata"`
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string `json:"transcript"`
				Words      []struct {
					Word       string  `json:"word"`
					Start      float64 `json:"start"`
					End        float64 `json:"end"`
					Confidence float64 `json:"confidence"`
				} `json:"words"`
			} `json:"alternatives"`
		} `json:"channels"`
		Utterances []struct {
			Start      float64 `json:"start"`
			End        float64 `json:"end"`
			Transcript string  `json:"transcript"`
			Speaker    int     `json:"speaker"`
			Confidence float64 `json:"confidence"`
		} `json:"utterances"`
	} `json:"results"`
}

// Transcribe streams the audio file to the listen endpoint in one request.
func (d *Deepgram) Transcribe(ctx context.Context, audioPath string, opts Options) (*Result, error) {
	start := time.Now()

	f, err := os.Open(audioPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	params := url.Values{}
	params.Set("model", opts.Model)
	params.Set("smart_format", "true")
	params.Set("punctuate", "true")
	params.Set("diarize", strconv.FormatBool(opts.Diarize))
	params.Set("utterances", "true")
	if opts.Language != "" {
		params.Set("language", opts.Language)
	} else {
		params.Set("detect_language", "true")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.BaseURL+"/listen?"+params.Encode(), f)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+d.apiKey)
	req.Header.Set("Content-Type", contentTypeFor(audioPath))

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("deepgram http %d: %s", resp.StatusCode, string(b))
	}

	var parsed deepgramResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parse deepgram response: %w", err)
	}

	result := &Result{
		Language:          parsed.Metadata.DetectedLanguage,
		DurationSeconds:   parsed.Metadata.Duration,
		ProcessingSeconds: time.Since(start).Seconds(),
	}

	for _, u := range parsed.Results.Utterances {
		result.Segments = append(result.Segments, models.Segment{
			Start:      u.Start,
			End:        u.End,
			Text:       u.Transcript,
			Speaker:    fmt.Sprintf("SPEAKER_%02d", u.Speaker),
			Confidence: u.Confidence,
		})
	}

	if len(parsed.Results.Channels) > 0 && len(parsed.Results.Channels[0].Alternatives) > 0 {
		alt := parsed.Results.Channels[0].Alternatives[0]
		result.Text = strings.TrimSpace(alt.Transcript)
		for _, w := range alt.Words {
			result.Words = append(result.Words, wordAt(w.Start, w.End, w.Word))
		}
	}

	return result, nil
}
