package engine

import (
	"fmt"

	"github.com/scribeflow/scribeflow/internal/config"
)

// Info describes one engine for the engines API.
type Info struct {
	ID                    string   `json:"id"`
	Name                  string   `json:"name"`
	Models                []string `json:"models"`
	RequiresAPIKey        bool     `json:"requires_api_key"`
	SupportsDiarization   bool     `json:"supports_diarization"`
	SupportsInitialPrompt bool     `json:"supports_initial_prompt"`
	Available             bool     `json:"available"`
}

type provider struct {
	name                  string
	models                []string
	requiresAPIKey        bool
	supportsDiarization   bool
	supportsInitialPrompt bool
}

// providerOrder keeps the engines API listing stable.
var providerOrder = []string{"whisper", "assemblyai", "deepgram", "elevenlabs"}

var providers = map[string]provider{
	"whisper": {
		name:                  "Whisper (local)",
		models:                []string{"large-v3-turbo", "large-v3", "large-v2", "medium", "small", "base", "tiny"},
		supportsInitialPrompt: true,
		// Diarization happens separately via the silence diarizer.
	},
	"assemblyai": {
		name:                "AssemblyAI",
		models:              []string{"best", "nano"},
		requiresAPIKey:      true,
		supportsDiarization: true,
	},
	"deepgram": {
		name:                "Deepgram",
		models:              []string{"nova-3", "nova-2"},
		requiresAPIKey:      true,
		supportsDiarization: true,
	},
	"elevenlabs": {
		name:                "ElevenLabs Scribe",
		models:              []string{"scribe_v1"},
		requiresAPIKey:      true,
		supportsDiarization: true,
	},
}

// Registry resolves engine ids to configured engine instances. API keys
// are read from the settings store on every call so key changes apply
// without a restart.
type Registry struct {
	whisperURL string
	settings   func() config.Settings
}

// NewRegistry creates a registry. settings is called per lookup.
func NewRegistry(whisperURL string, settings func() config.Settings) *Registry {
	return &Registry{whisperURL: whisperURL, settings: settings}
}

// List returns all known engines with their availability. Cloud engines
// are available only when their API key is configured.
func (r *Registry) List() []Info {
	s := r.settings()

	out := make([]Info, 0, len(providerOrder))
	for _, id := range providerOrder {
		p := providers[id]
		available := true
		if p.requiresAPIKey {
			available = s.APIKeyFor(id) != ""
		}
		out = append(out, Info{
			ID:                    id,
			Name:                  p.name,
			Models:                p.models,
			RequiresAPIKey:        p.requiresAPIKey,
			SupportsDiarization:   p.supportsDiarization,
			SupportsInitialPrompt: p.supportsInitialPrompt,
			Available:             available,
		})
	}
	return out
}

// Available returns only the engines usable right now.
func (r *Registry) Available() []Info {
	var out []Info
	for _, info := range r.List() {
		if info.Available {
			out = append(out, info)
		}
	}
	return out
}

// Get returns a configured engine instance for the given id.
func (r *Registry) Get(id string) (Engine, error) {
	s := r.settings()

	switch id {
	case "whisper":
		return NewWhisper(r.whisperURL), nil
	case "assemblyai":
		key := s.AssemblyAIKey
		if key == "" {
			return nil, fmt.Errorf("assemblyai: API key not configured")
		}
		return NewAssemblyAI(key), nil
	case "deepgram":
		key := s.DeepgramKey
		if key == "" {
			return nil, fmt.Errorf("deepgram: API key not configured")
		}
		return NewDeepgram(key), nil
	case "elevenlabs":
		key := s.ElevenLabsKey
		if key == "" {
			return nil, fmt.Errorf("elevenlabs: API key not configured")
		}
		return NewElevenLabs(key), nil
	default:
		return nil, fmt.Errorf("unknown engine: %s", id)
	}
}
