package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scribeflow/scribeflow/internal/config"
)

func writeTestAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meeting.mp3")
	require.NoError(t, os.WriteFile(path, []byte("fake audio bytes"), 0o644))
	return path
}

func TestRegistryAvailability(t *testing.T) {
	settings := config.DefaultSettings()
	registry := NewRegistry("http://localhost:9000", func() config.Settings { return settings })

	infos := registry.List()
	require.Len(t, infos, 4)
	assert.Equal(t, "whisper", infos[0].ID)
	assert.True(t, infos[0].Available, "local whisper needs no key")
	assert.True(t, infos[0].SupportsInitialPrompt)

	available := registry.Available()
	require.Len(t, available, 1)
	assert.Equal(t, "whisper", available[0].ID)

	settings.DeepgramKey = "dk-123"
	available = registry.Available()
	require.Len(t, available, 2)
	assert.Equal(t, "deepgram", available[1].ID)
}

func TestRegistryGet(t *testing.T) {
	settings := config.DefaultSettings()
	settings.AssemblyAIKey = "aai-1"
	registry := NewRegistry("http://localhost:9000", func() config.Settings { return settings })

	eng, err := registry.Get("whisper")
	require.NoError(t, err)
	assert.Equal(t, "whisper", eng.Name())

	eng, err = registry.Get("assemblyai")
	require.NoError(t, err)
	assert.Equal(t, "assemblyai", eng.Name())

	_, err = registry.Get("deepgram")
	assert.ErrorContains(t, err, "API key not configured")

	_, err = registry.Get("yandex")
	assert.ErrorContains(t, err, "unknown engine")
}

func TestWhisperTranscribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/asr", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("output"))
		assert.Equal(t, "de", r.URL.Query().Get("language"))
		assert.Equal(t, "weekly sync", r.URL.Query().Get("initial_prompt"))

		file, _, err := r.FormFile("audio_file")
		require.NoError(t, err)
		file.Close()

		json.NewEncoder(w).Encode(map[string]any{
			"text":     "Hallo zusammen. Fangen wir an.",
			"language": "de",
			"segments": []map[string]any{
				{"start": 0.0, "end": 2.5, "text": " Hallo zusammen.", "words": []map[string]any{
					{"start": 0.0, "end": 1.0, "word": " Hallo"},
					{"start": 1.0, "end": 2.5, "word": " zusammen."},
				}},
				{"start": 2.5, "end": 5.0, "text": " Fangen wir an."},
			},
		})
	}))
	defer server.Close()

	eng := NewWhisper(server.URL)
	result, err := eng.Transcribe(context.Background(), writeTestAudio(t), Options{
		Model: "large-v2", Language: "de", InitialPrompt: "weekly sync",
	})
	require.NoError(t, err)

	assert.Equal(t, "de", result.Language)
	assert.Equal(t, 5.0, result.DurationSeconds)
	require.Len(t, result.Segments, 2)
	assert.Equal(t, "Hallo zusammen.", result.Segments[0].Text)
	assert.Empty(t, result.Segments[0].Speaker, "whisper does not diarize")
	require.Len(t, result.Words, 2)
	assert.Equal(t, "Hallo", result.Words[0].Word)
}

func TestWhisperErrorSurface(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewWhisper(server.URL).Transcribe(context.Background(), writeTestAudio(t), Options{})
	require.Error(t, err)
	assert.ErrorContains(t, err, "whisper http 503")
	assert.ErrorContains(t, err, "model not loaded")
}

func TestAssemblyAIUploadAndPoll(t *testing.T) {
	polls := 0
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "aai-key", r.Header.Get("Authorization"))

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/upload":
			json.NewEncoder(w).Encode(map[string]string{"upload_url": server.URL + "/cdn/audio"})
		case r.Method == http.MethodPost && r.URL.Path == "/transcript":
			var req map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, server.URL+"/cdn/audio", req["audio_url"])
			assert.Equal(t, "best", req["speech_model"])
			assert.Equal(t, true, req["speaker_labels"])
			json.NewEncoder(w).Encode(map[string]string{"id": "tr_1", "status": "queued"})
		case r.Method == http.MethodGet && r.URL.Path == "/transcript/tr_1":
			polls++
			if polls < 2 {
				json.NewEncoder(w).Encode(map[string]string{"id": "tr_1", "status": "processing"})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"id": "tr_1", "status": "completed",
				"text": "Hello there. Hi.", "language_code": "en", "audio_duration": 8.0,
				"utterances": []map[string]any{
					{"start": 0, "end": 2000, "text": "Hello there.", "speaker": "A", "confidence": 0.97},
					{"start": 2000, "end": 3500, "text": "Hi.", "speaker": "B", "confidence": 0.92},
				},
				"words": []map[string]any{
					{"start": 0, "end": 900, "text": "Hello"},
					{"start": 900, "end": 2000, "text": "there."},
				},
			})
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	eng := NewAssemblyAI("aai-key")
	eng.BaseURL = server.URL
	eng.PollInterval = time.Millisecond

	result, err := eng.Transcribe(context.Background(), writeTestAudio(t), Options{Model: "best", Diarize: true})
	require.NoError(t, err)

	assert.Equal(t, 2, polls)
	assert.Equal(t, "en", result.Language)
	require.Len(t, result.Segments, 2)
	// Milliseconds are converted and speakers normalized.
	assert.Equal(t, 2.0, result.Segments[0].End)
	assert.Equal(t, "SPEAKER_A", result.Segments[0].Speaker)
	assert.Equal(t, "SPEAKER_B", result.Segments[1].Speaker)
	require.Len(t, result.Words, 2)
	assert.Equal(t, 0.9, result.Words[0].End)
}

func TestAssemblyAIErrorStatus(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/upload":
			json.NewEncoder(w).Encode(map[string]string{"upload_url": server.URL + "/cdn/audio"})
		case "/transcript":
			json.NewEncoder(w).Encode(map[string]string{
				"id": "tr_2", "status": "error", "error": "audio too short",
			})
		}
	}))
	defer server.Close()

	eng := NewAssemblyAI("aai-key")
	eng.BaseURL = server.URL
	eng.PollInterval = time.Millisecond

	_, err := eng.Transcribe(context.Background(), writeTestAudio(t), Options{Model: "best"})
	require.Error(t, err)
	assert.ErrorContains(t, err, "audio too short")
}

func TestDeepgramTranscribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/listen", r.URL.Path)
		assert.Equal(t, "Token dg-key", r.Header.Get("Authorization"))
		assert.Equal(t, "nova-3", r.URL.Query().Get("model"))
		assert.Equal(t, "true", r.URL.Query().Get("diarize"))
		assert.Equal(t, "true", r.URL.Query().Get("detect_language"))
		assert.Equal(t, "audio/mpeg", r.Header.Get("Content-Type"))

		json.NewEncoder(w).Encode(map[string]any{
			"metadata": map[string]any{"duration": 12.5, "detected_language": "en"},
			"results": map[string]any{
				"channels": []map[string]any{{
					"alternatives": []map[string]any{{
						"transcript": "Good morning everyone.",
						"words": []map[string]any{
							{"word": "good", "start": 0.1, "end": 0.4, "confidence": 0.99},
						},
					}},
				}},
				"utterances": []map[string]any{
					{"start": 0.1, "end": 3.0, "transcript": "Good morning everyone.", "speaker": 0, "confidence": 0.98},
					{"start": 3.2, "end": 4.0, "transcript": "Morning.", "speaker": 1, "confidence": 0.95},
				},
			},
		})
	}))
	defer server.Close()

	eng := NewDeepgram("dg-key")
	eng.BaseURL = server.URL

	result, err := eng.Transcribe(context.Background(), writeTestAudio(t), Options{Model: "nova-3", Diarize: true})
	require.NoError(t, err)

	assert.Equal(t, 12.5, result.DurationSeconds)
	require.Len(t, result.Segments, 2)
	assert.Equal(t, "SPEAKER_00", result.Segments[0].Speaker)
	assert.Equal(t, "SPEAKER_01", result.Segments[1].Speaker)
	assert.Equal(t, "Good morning everyone.", result.Text)
	require.Len(t, result.Words, 1)
}

func TestElevenLabsGroupsWordsBySpeaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/speech-to-text", r.URL.Path)
		assert.Equal(t, "xi-key", r.Header.Get("xi-api-key"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "scribe_v1", r.FormValue("model_id"))

		json.NewEncoder(w).Encode(map[string]any{
			"text":          "Hello there everyone. Hi.",
			"language_code": "en",
			"words": []map[string]any{
				{"type": "word", "text": "Hello", "start": 0.0, "end": 0.5, "logprob": -0.1, "speaker_id": "speaker_0"},
				{"type": "spacing", "text": " ", "start": 0.5, "end": 0.5},
				{"type": "word", "text": "there", "start": 0.5, "end": 0.9, "logprob": -0.2, "speaker_id": "speaker_0"},
				{"type": "audio_event", "text": "(laughs)", "start": 1.0, "end": 1.5},
				{"type": "word", "text": "Hi.", "start": 2.0, "end": 2.4, "logprob": -0.3, "speaker_id": "speaker_1"},
			},
		})
	}))
	defer server.Close()

	eng := NewElevenLabs("xi-key")
	eng.BaseURL = server.URL

	result, err := eng.Transcribe(context.Background(), writeTestAudio(t), Options{Model: "scribe_v1", Diarize: true})
	require.NoError(t, err)

	require.Len(t, result.Segments, 2)
	assert.Equal(t, "Hello there", result.Segments[0].Text)
	assert.Equal(t, "SPEAKER_00", result.Segments[0].Speaker)
	assert.Equal(t, "Hi.", result.Segments[1].Text)
	assert.Equal(t, "SPEAKER_01", result.Segments[1].Speaker)
	// Spacing and audio events are dropped from words.
	require.Len(t, result.Words, 3)
	assert.Equal(t, 2.4, result.DurationSeconds)
}

func TestNormalizeScribeSpeaker(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "SPEAKER_00"},
		{"speaker_0", "SPEAKER_00"},
		{"speaker_12", "SPEAKER_12"},
		{"speaker_x", "SPEAKER_00"},
		{"SPEAKER_03", "SPEAKER_03"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeScribeSpeaker(tt.in), "input %q", tt.in)
	}
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "audio/wav", contentTypeFor("/x/a.WAV"))
	assert.Equal(t, "audio/mp4", contentTypeFor("a.m4a"))
	assert.Equal(t, "audio/mpeg", contentTypeFor("a.unknown"))
}
