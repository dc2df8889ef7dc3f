package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// Settings holds the runtime configuration that is mutable through the API,
// persisted as a JSON file under the config directory. API keys are stored
// here but never returned through the API; callers expose View instead.
type Settings struct {
	DefaultEngine string `json:"default_engine"`
	DefaultModel  string `json:"default_model"`

	DiarizationMethod string `json:"diarization_method"` // "none" | "silence"
	MinSpeakers       int    `json:"min_speakers"`
	MaxSpeakers       int    `json:"max_speakers"`

	WhisperInitialPrompt string `json:"whisper_initial_prompt,omitempty"`

	CleanupProvider  string `json:"cleanup_provider"`
	CleanupModel     string `json:"cleanup_model"`
	InsightsProvider string `json:"insights_provider"`
	InsightsModel    string `json:"insights_model"`

	AssemblyAIKey string `json:"assemblyai_api_key,omitempty"`
	DeepgramKey   string `json:"deepgram_api_key,omitempty"`
	ElevenLabsKey string `json:"elevenlabs_api_key,omitempty"`
	GeminiKey     string `json:"gemini_api_key,omitempty"`
	OpenRouterKey string `json:"openrouter_api_key,omitempty"`
	AnthropicKey  string `json:"anthropic_api_key,omitempty"`
}

// DefaultSettings returns the settings used when no config file exists yet.
func DefaultSettings() Settings {
	return Settings{
		DefaultEngine:     "whisper",
		DefaultModel:      "large-v2",
		DiarizationMethod: "silence",
		MinSpeakers:       2,
		MaxSpeakers:       6,
		CleanupProvider:   "gemini",
		CleanupModel:      "gemini-2.5-flash",
		InsightsProvider:  "gemini",
		InsightsModel:     "gemini-2.5-flash",
	}
}

// APIKeyFor returns the stored key for an LLM or engine provider name,
// empty when not configured.
func (s Settings) APIKeyFor(provider string) string {
	switch provider {
	case "assemblyai":
		return s.AssemblyAIKey
	case "deepgram":
		return s.DeepgramKey
	case "elevenlabs":
		return s.ElevenLabsKey
	case "gemini":
		return s.GeminiKey
	case "openrouter":
		return s.OpenRouterKey
	case "anthropic":
		return s.AnthropicKey
	}

	return ""
}

// View is the API-safe projection of Settings: keys are reduced to
// presence booleans.
type View struct {
	DefaultEngine string `json:"default_engine"`
	DefaultModel  string `json:"default_model"`

	DiarizationMethod string `json:"diarization_method"`
	MinSpeakers       int    `json:"min_speakers"`
	MaxSpeakers       int    `json:"max_speakers"`

	WhisperInitialPrompt string `json:"whisper_initial_prompt,omitempty"`

	CleanupProvider  string `json:"cleanup_provider"`
	CleanupModel     string `json:"cleanup_model"`
	InsightsProvider string `json:"insights_provider"`
	InsightsModel    string `json:"insights_model"`

	HasAssemblyAIKey bool `json:"has_assemblyai_key"`
	HasDeepgramKey   bool `json:"has_deepgram_key"`
	HasElevenLabsKey bool `json:"has_elevenlabs_key"`
	HasGeminiKey     bool `json:"has_gemini_key"`
	HasOpenRouterKey bool `json:"has_openrouter_key"`
	HasAnthropicKey  bool `json:"has_anthropic_key"`
}

// View returns the masked projection of the settings.
func (s Settings) View() View {
	return View{
		DefaultEngine:        s.DefaultEngine,
		DefaultModel:         s.DefaultModel,
		DiarizationMethod:    s.DiarizationMethod,
		MinSpeakers:          s.MinSpeakers,
		MaxSpeakers:          s.MaxSpeakers,
		WhisperInitialPrompt: s.WhisperInitialPrompt,
		CleanupProvider:      s.CleanupProvider,
		CleanupModel:         s.CleanupModel,
		InsightsProvider:     s.InsightsProvider,
		InsightsModel:        s.InsightsModel,
		HasAssemblyAIKey:     s.AssemblyAIKey != "",
		HasDeepgramKey:       s.DeepgramKey != "",
		HasElevenLabsKey:     s.ElevenLabsKey != "",
		HasGeminiKey:         s.GeminiKey != "",
		HasOpenRouterKey:     s.OpenRouterKey != "",
		HasAnthropicKey:      s.AnthropicKey != "",
	}
}

// Patch is a partial settings update. Nil fields are left unchanged.
// Key fields are plain strings because they are write-only: an empty
// string means "keep the current key", so keys cannot be cleared through
// a read-modify-write of the view.
type Patch struct {
	DefaultEngine *string `json:"default_engine,omitempty"`
	DefaultModel  *string `json:"default_model,omitempty"`

	DiarizationMethod *string `json:"diarization_method,omitempty"`
	MinSpeakers       *int    `json:"min_speakers,omitempty"`
	MaxSpeakers       *int    `json:"max_speakers,omitempty"`

	WhisperInitialPrompt *string `json:"whisper_initial_prompt,omitempty"`

	CleanupProvider  *string `json:"cleanup_provider,omitempty"`
	CleanupModel     *string `json:"cleanup_model,omitempty"`
	InsightsProvider *string `json:"insights_provider,omitempty"`
	InsightsModel    *string `json:"insights_model,omitempty"`

	AssemblyAIKey string `json:"assemblyai_api_key,omitempty"`
	DeepgramKey   string `json:"deepgram_api_key,omitempty"`
	ElevenLabsKey string `json:"elevenlabs_api_key,omitempty"`
	GeminiKey     string `json:"gemini_api_key,omitempty"`
	OpenRouterKey string `json:"openrouter_api_key,omitempty"`
	AnthropicKey  string `json:"anthropic_api_key,omitempty"`
}

var (
	// ErrBadSpeakerBounds is returned when a patch would leave
	// min_speakers greater than max_speakers or below 1.
	ErrBadSpeakerBounds = errors.New("invalid speaker bounds")

	// ErrBadDiarizationMethod is returned for unknown diarization methods.
	ErrBadDiarizationMethod = errors.New("unknown diarization method")
)

func apply(s Settings, p Patch) (Settings, error) {
	if p.DefaultEngine != nil {
		s.DefaultEngine = *p.DefaultEngine
	}
	if p.DefaultModel != nil {
		s.DefaultModel = *p.DefaultModel
	}
	if p.DiarizationMethod != nil {
		switch *p.DiarizationMethod {
		case "none", "silence":
			s.DiarizationMethod = *p.DiarizationMethod
		default:
			return Settings{}, ErrBadDiarizationMethod
		}
	}
	if p.MinSpeakers != nil {
		s.MinSpeakers = *p.MinSpeakers
	}
	if p.MaxSpeakers != nil {
		s.MaxSpeakers = *p.MaxSpeakers
	}
	if s.MinSpeakers < 1 || s.MaxSpeakers < s.MinSpeakers {
		return Settings{}, ErrBadSpeakerBounds
	}
	if p.WhisperInitialPrompt != nil {
		s.WhisperInitialPrompt = *p.WhisperInitialPrompt
	}
	if p.CleanupProvider != nil {
		s.CleanupProvider = *p.CleanupProvider
	}
	if p.CleanupModel != nil {
		s.CleanupModel = *p.CleanupModel
	}
	if p.InsightsProvider != nil {
		s.InsightsProvider = *p.InsightsProvider
	}
	if p.InsightsModel != nil {
		s.InsightsModel = *p.InsightsModel
	}

	if p.AssemblyAIKey != "" {
		s.AssemblyAIKey = p.AssemblyAIKey
	}
	if p.DeepgramKey != "" {
		s.DeepgramKey = p.DeepgramKey
	}
	if p.ElevenLabsKey != "" {
		s.ElevenLabsKey = p.ElevenLabsKey
	}
	if p.GeminiKey != "" {
		s.GeminiKey = p.GeminiKey
	}
	if p.OpenRouterKey != "" {
		s.OpenRouterKey = p.OpenRouterKey
	}
	if p.AnthropicKey != "" {
		s.AnthropicKey = p.AnthropicKey
	}

	return s, nil
}

// SettingsStore persists mutable settings in a single JSON file and
// serializes concurrent access.
type SettingsStore struct {
	path string

	mu      sync.RWMutex
	current Settings
}

// NewSettingsStore loads settings from path, falling back to defaults
// when the file does not exist yet.
func NewSettingsStore(path string) (*SettingsStore, error) {
	st := &SettingsStore{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			st.current = DefaultSettings()
			return st, nil
		}

		return nil, err
	}

	s := DefaultSettings()
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}

	st.current = s

	return st, nil
}

// Get returns a copy of the current settings.
func (st *SettingsStore) Get() Settings {
	st.mu.RLock()
	defer st.mu.RUnlock()

	return st.current
}

// Update applies a patch, persists the result and returns the new settings.
func (st *SettingsStore) Update(p Patch) (Settings, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	next, err := apply(st.current, p)
	if err != nil {
		return Settings{}, err
	}

	if err := st.save(next); err != nil {
		return Settings{}, err
	}

	st.current = next

	return next, nil
}

func (st *SettingsStore) save(s Settings) error {
	if err := os.MkdirAll(filepath.Dir(st.path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	// Keys live in this file, keep it private to the user.
	return os.WriteFile(st.path, data, 0o600)
}
