// Package template manages the prompt templates for the cleanup and
// insights stages: built-in defaults in code, user templates as YAML
// files on disk.
package template

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrNotFound        = errors.New("template not found")
	ErrDefaultTemplate = errors.New("default templates cannot be deleted")
	ErrMissingID       = errors.New("template id is required")
)

// CleanupTemplate configures one transcript-cleanup pass.
type CleanupTemplate struct {
	ID           string  `yaml:"id" json:"id"`
	Name         string  `yaml:"name" json:"name"`
	Description  string  `yaml:"description" json:"description"`
	SystemPrompt string  `yaml:"system_prompt" json:"system_prompt"`
	Temperature  float64 `yaml:"temperature" json:"temperature"`
	BuiltIn      bool    `yaml:"-" json:"built_in"`
}

const cleanupBasePrompt = `You are an expert transcript editor. Clean up the following meeting transcript.

## INPUT FORMAT
The transcript contains timestamped dialogue:
[HH:MM:SS] SPEAKER_XX: text

## LANGUAGE HANDLING
- The transcript may contain mixed Russian and English (code-switching)
- Keep the original language of each utterance
- Preserve technical terms and proper nouns exactly

## CLEANUP RULES
%s

## SPEAKER IDENTIFICATION
While cleaning, watch for clues about who the speakers are: people
addressing each other by name, introducing themselves, or role hints
("as your PM", "from the QA side"). Report what you find as suggestions
with confidence between 0 and 1; do not guess.

## OUTPUT FORMAT (STRICT JSON)
Return a JSON object:

{
  "segments": [
    {"start": 12.5, "speaker": "SPEAKER_00", "text": "Cleaned text..."}
  ],
  "speaker_suggestions": [
    {
      "speaker_id": "SPEAKER_00",
      "name": "Anna",
      "name_confidence": 0.9,
      "name_reason": "Addressed as Anna at 00:01:12",
      "role": "Project Manager",
      "role_confidence": 0.6,
      "role_reason": "Runs the agenda"
    }
  ]
}

Keep segment start times from the input. Return ONLY the JSON object, no explanations.`

func cleanupPrompt(rules string) string {
	return fmt.Sprintf(cleanupBasePrompt, rules)
}

func defaultCleanupTemplates() []CleanupTemplate {
	return []CleanupTemplate{
		{
			ID:          "standard",
			Name:        "Standard Cleanup",
			Description: "Remove filler words, fix punctuation, merge broken sentences",
			SystemPrompt: cleanupPrompt(strings.TrimSpace(`
- Remove filler words (um, uh, you know, like) and false starts
- Fix punctuation and capitalization
- Merge fragments of one sentence split across consecutive segments of the same speaker
- Never change the meaning or drop substantive content`)),
			Temperature: 0.2,
			BuiltIn:     true,
		},
		{
			ID:          "light",
			Name:        "Light Touch",
			Description: "Punctuation and obvious transcription errors only",
			SystemPrompt: cleanupPrompt(strings.TrimSpace(`
- Fix punctuation, capitalization and obvious recognition errors
- Keep hesitations and repetitions as spoken
- Do not merge or reorder segments`)),
			Temperature: 0.1,
			BuiltIn:     true,
		},
		{
			ID:          "condensed",
			Name:        "Condensed",
			Description: "Aggressive cleanup: tighten wording, drop small talk",
			SystemPrompt: cleanupPrompt(strings.TrimSpace(`
- Remove filler words, false starts, and small talk with no informational content
- Tighten verbose phrasing while keeping every fact, decision, and commitment
- Merge consecutive segments of the same speaker where it reads better`)),
			Temperature: 0.3,
			BuiltIn:     true,
		},
	}
}

// CleanupService serves cleanup templates: built-ins plus user YAML
// files under dir. A user file with a built-in id shadows the built-in.
type CleanupService struct {
	dir string
}

func NewCleanupService(dir string) (*CleanupService, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create templates dir: %w", err)
	}
	return &CleanupService{dir: dir}, nil
}

// List returns all templates sorted by name.
func (s *CleanupService) List() ([]CleanupTemplate, error) {
	byID := make(map[string]CleanupTemplate)
	for _, t := range defaultCleanupTemplates() {
		byID[t.ID] = t
	}

	users, err := loadYAMLTemplates[CleanupTemplate](s.dir)
	if err != nil {
		return nil, err
	}
	for _, t := range users {
		byID[t.ID] = t
	}

	out := make([]CleanupTemplate, 0, len(byID))
	for _, t := range byID {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Get returns a template by id.
func (s *CleanupService) Get(id string) (*CleanupTemplate, error) {
	templates, err := s.List()
	if err != nil {
		return nil, err
	}
	for _, t := range templates {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Save creates or updates a user template.
func (s *CleanupService) Save(t CleanupTemplate) error {
	if t.ID == "" {
		return ErrMissingID
	}
	t.BuiltIn = false
	return writeYAMLTemplate(s.dir, t.ID, t)
}

// Delete removes a user template. Built-ins cannot be deleted.
func (s *CleanupService) Delete(id string) error {
	for _, t := range defaultCleanupTemplates() {
		if t.ID == id {
			return ErrDefaultTemplate
		}
	}
	return deleteYAMLTemplate(s.dir, id)
}

func loadYAMLTemplates[T any](dir string) ([]T, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read templates dir: %w", err)
	}

	var out []T
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read template %s: %w", entry.Name(), err)
		}
		var t T
		if err := yaml.Unmarshal(data, &t); err != nil {
			// Broken user files are skipped, not fatal.
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func writeYAMLTemplate(dir, id string, t any) error {
	data, err := yaml.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal template: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, id+".yaml"), data, 0o644); err != nil {
		return fmt.Errorf("write template: %w", err)
	}
	return nil
}

func deleteYAMLTemplate(dir, id string) error {
	path := filepath.Join(dir, id+".yaml")
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("delete template: %w", err)
	}
	return nil
}
