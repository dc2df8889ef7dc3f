package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Whisper is a client for a whisper ASR webservice instance, the local
// no-API-key transcription path.
type Whisper struct {
	baseURL string
	client  *http.Client
}

// NewWhisper creates a whisper engine pointed at the given service URL.
func NewWhisper(baseURL string) *Whisper {
	return &Whisper{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Minute},
	}
}

func (w *Whisper) Name() string { return "whisper" }

type whisperResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
		Words []struct {
			Start float64 `json:"start"`
			End   float64 `json:"end"`
			Word  string  `json:"word"`
		} `json:"words"`
	} `json:"segments"`
}

// Transcribe uploads the audio file to the ASR service and normalizes
// the response. The service does not diarize; segments come back without
// speakers.
func (w *Whisper) Transcribe(ctx context.Context, audioPath string, opts Options) (*Result, error) {
	start := time.Now()

	f, err := os.Open(audioPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("audio_file", filepath.Base(audioPath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("task", "transcribe")
	params.Set("output", "json")
	params.Set("word_timestamps", "true")
	if opts.Language != "" {
		params.Set("language", opts.Language)
	}
	if opts.InitialPrompt != "" {
		params.Set("initial_prompt", opts.InitialPrompt)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/asr?"+params.Encode(), &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("whisper http %d: %s", resp.StatusCode, string(b))
	}

	var parsed whisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parse whisper response: %w", err)
	}

	result := &Result{
		Text:              strings.TrimSpace(parsed.Text),
		Language:          parsed.Language,
		ProcessingSeconds: time.Since(start).Seconds(),
	}
	for _, seg := range parsed.Segments {
		result.Segments = append(result.Segments, segment(seg.Start, seg.End, strings.TrimSpace(seg.Text)))
		for _, word := range seg.Words {
			result.Words = append(result.Words, wordAt(word.Start, word.End, strings.TrimSpace(word.Word)))
		}
		result.DurationSeconds = seg.End
	}

	return result, nil
}
