package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// ModelInfo is one selectable LLM with optional per-1M-token pricing.
// Cost is nil-able end to end: models without configured prices never
// produce a cost figure, they are not treated as free.
type ModelInfo struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	InputPricePer1M *float64 `json:"input_price_per_1m"`
	OutputPrice1M   *float64 `json:"output_price_per_1m"`
}

// Cost returns the USD cost for a call, or nil when pricing is not
// configured for the model.
func (m ModelInfo) Cost(inputTokens, outputTokens int) *float64 {
	if m.InputPricePer1M == nil || m.OutputPrice1M == nil {
		return nil
	}
	cost := (float64(inputTokens)*(*m.InputPricePer1M) + float64(outputTokens)*(*m.OutputPrice1M)) / 1_000_000
	return &cost
}

func priced(id, name string, in, out float64) ModelInfo {
	return ModelInfo{ID: id, Name: name, InputPricePer1M: &in, OutputPrice1M: &out}
}

func unpriced(id, name string) ModelInfo {
	return ModelInfo{ID: id, Name: name}
}

// defaultCatalog lists the models offered per provider, with prices in
// USD per 1M tokens.
func defaultCatalog() map[string][]ModelInfo {
	return map[string][]ModelInfo{
		"gemini": {
			priced("gemini-3-pro-preview", "Gemini 3 Pro Preview (1M)", 2.00, 12.00),
			priced("gemini-3-flash-preview", "Gemini 3 Flash Preview (1M)", 0.50, 3.00),
			priced("gemini-2.5-pro", "Gemini 2.5 Pro (1M)", 1.25, 10.00),
			priced("gemini-2.5-flash", "Gemini 2.5 Flash (1M)", 0.30, 2.50),
			priced("gemini-2.5-flash-lite", "Gemini 2.5 Flash Lite (1M)", 0.10, 0.40),
		},
		"openrouter": {
			priced("x-ai/grok-4.1-fast", "Grok 4.1 Fast (2M)", 0.20, 0.50),
			priced("google/gemini-3-pro-preview", "Gemini 3 Pro (via OR, 1M)", 2.00, 12.00),
			priced("google/gemini-3-flash-preview", "Gemini 3 Flash (via OR, 1M)", 0.50, 3.00),
			priced("google/gemini-2.5-pro", "Gemini 2.5 Pro (via OR, 1M)", 1.25, 10.00),
			priced("google/gemini-2.5-flash", "Gemini 2.5 Flash (via OR, 1M)", 0.30, 2.50),
			priced("google/gemini-2.5-flash-lite", "Gemini 2.5 Flash Lite (via OR, 1M)", 0.10, 0.40),
			priced("anthropic/claude-sonnet-4", "Claude Sonnet 4 (1M)", 3.00, 15.00),
			priced("openai/gpt-4.1-mini", "GPT-4.1 Mini (1M)", 0.40, 1.60),
			priced("meta-llama/llama-4-maverick", "Llama 4 Maverick (1M)", 0.15, 0.60),
			priced("qwen/qwen-turbo", "Qwen Turbo (1M)", 0.05, 0.20),
			priced("deepseek/deepseek-r1", "DeepSeek R1 (reasoning)", 0.70, 2.50),
		},
		"anthropic": {
			priced("claude-sonnet-4-20250514", "Claude Sonnet 4", 3.00, 15.00),
			priced("claude-3-5-haiku-20241022", "Claude 3.5 Haiku", 0.80, 4.00),
		},
		"ollama": {
			unpriced("llama3.1", "Llama 3.1 (local)"),
			unpriced("qwen2.5", "Qwen 2.5 (local)"),
		},
		"bedrock": {
			priced("anthropic.claude-sonnet-4-20250514-v1:0", "Claude Sonnet 4 (Bedrock)", 3.00, 15.00),
			unpriced("amazon.nova-pro-v1:0", "Amazon Nova Pro"),
		},
	}
}

// Catalog manages the per-provider model list, persisted as JSON so
// prices and custom models survive restarts.
type Catalog struct {
	path string

	mu     sync.RWMutex
	models map[string][]ModelInfo
}

// NewCatalog loads the model catalog from path, falling back to the
// built-in defaults when the file is absent or unreadable.
func NewCatalog(path string) (*Catalog, error) {
	c := &Catalog{path: path, models: defaultCatalog()}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read model catalog: %w", err)
	}

	var stored map[string][]ModelInfo
	if err := json.Unmarshal(data, &stored); err != nil {
		// A corrupt catalog falls back to defaults rather than
		// blocking startup.
		return c, nil
	}
	c.models = stored
	return c, nil
}

// List returns the models for a provider.
func (c *Catalog) List(provider string) []ModelInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]ModelInfo(nil), c.models[provider]...)
}

// Providers returns all provider ids with at least one model.
func (c *Catalog) Providers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, 0, len(c.models))
	for provider := range c.models {
		out = append(out, provider)
	}
	return out
}

// Get returns a model by provider and id, or nil when unknown.
func (c *Catalog) Get(provider, modelID string) *ModelInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, m := range c.models[provider] {
		if m.ID == modelID {
			info := m
			return &info
		}
	}
	return nil
}

// CostFor computes the cost of a call, nil when the model is unknown
// or unpriced.
func (c *Catalog) CostFor(provider, modelID string, inputTokens, outputTokens int) *float64 {
	m := c.Get(provider, modelID)
	if m == nil {
		return nil
	}
	return m.Cost(inputTokens, outputTokens)
}

// Replace swaps the whole catalog and persists it.
func (c *Catalog) Replace(models map[string][]ModelInfo) error {
	data, err := json.MarshalIndent(models, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal model catalog: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create catalog dir: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("write model catalog: %w", err)
	}

	c.mu.Lock()
	c.models = models
	c.mu.Unlock()
	return nil
}
