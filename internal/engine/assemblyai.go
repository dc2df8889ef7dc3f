package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/scribeflow/scribeflow/internal/models"
)

const assemblyAIDefaultBaseURL = "https://api.assemblyai.com/v2"

// AssemblyAI transcribes through the AssemblyAI upload/poll API.
type AssemblyAI struct {
	BaseURL      string
	PollInterval time.Duration

	apiKey string
	client *http.Client
}

// NewAssemblyAI creates an AssemblyAI engine.
func NewAssemblyAI(apiKey string) *AssemblyAI {
	return &AssemblyAI{
		BaseURL:      assemblyAIDefaultBaseURL,
		PollInterval: 3 * time.Second,
		apiKey:       apiKey,
		client:       &http.Client{Timeout: 10 * time.Minute},
	}
}

func (a *AssemblyAI) Name() string { return "assemblyai" }

type assemblyAITranscript struct {
	ID            string  `json:"id"`
	Status        string  `json:"status"`
	Error         string  `json:"error"`
	Text          string  `json:"text"`
	LanguageCode  string  `json:"language_code"`
	AudioDuration float64 `json:"audio_duration"`
	Utterances    []struct {
		Start      float64 `json:"start"` // milliseconds
		End        float64 `json:"end"`
		Text       string  `json:"text"`
		Speaker    string  `json:"speaker"` // "A", "B", ...
		Confidence float64 `json:"confidence"`
	} `json:"utterances"`
	Words []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"words"`
}

// Transcribe uploads the audio, creates a transcript request with speaker
// labels, then polls until it completes.
func (a *AssemblyAI) Transcribe(ctx context.Context, audioPath string, opts Options) (*Result, error) {
	start := time.Now()

	audioURL, err := a.upload(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("assemblyai upload: %w", err)
	}

	request := map[string]any{
		"audio_url":      audioURL,
		"speech_model":   opts.Model,
		"speaker_labels": opts.Diarize,
	}
	if opts.Language != "" {
		request["language_code"] = opts.Language
	}

	payload, err := json.Marshal(request)
	if err != nil {
		return nil, err
	}
	var created assemblyAITranscript
	if err := a.do(ctx, http.MethodPost, "/transcript", bytes.NewReader(payload), "application/json", &created); err != nil {
		return nil, fmt.Errorf("assemblyai create transcript: %w", err)
	}

	transcript := created
	for transcript.Status != "completed" {
		if transcript.Status == "error" {
			return nil, fmt.Errorf("assemblyai: %s", transcript.Error)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(a.PollInterval):
		}

		if err := a.do(ctx, http.MethodGet, "/transcript/"+created.ID, nil, "", &transcript); err != nil {
			return nil, fmt.Errorf("assemblyai poll: %w", err)
		}
	}

	result := &Result{
		Text:              transcript.Text,
		Language:          transcript.LanguageCode,
		DurationSeconds:   transcript.AudioDuration,
		ProcessingSeconds: time.Since(start).Seconds(),
	}

	for _, u := range transcript.Utterances {
		result.Segments = append(result.Segments, models.Segment{
			Start:      u.Start / 1000, // ms to seconds
			End:        u.End / 1000,
			Text:       u.Text,
			Speaker:    "SPEAKER_" + u.Speaker,
			Confidence: u.Confidence,
		})
	}
	if len(result.Segments) == 0 && transcript.Text != "" {
		result.Segments = []models.Segment{{
			End: transcript.AudioDuration, Text: transcript.Text, Speaker: "SPEAKER_00",
		}}
	}
	for _, w := range transcript.Words {
		result.Words = append(result.Words, wordAt(w.Start/1000, w.End/1000, w.Text))
	}

	return result, nil
}

func (a *AssemblyAI) upload(ctx context.Context, audioPath string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var uploaded struct {
		UploadURL string `json:"upload_url"`
	}
	if err := a.do(ctx, http.MethodPost, "/upload", f, "application/octet-stream", &uploaded); err != nil {
		return "", err
	}
	return uploaded.UploadURL, nil
}

func (a *AssemblyAI) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", a.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("http %d: %s", resp.StatusCode, string(b))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
