// Package llm provides text-generation clients for the cleanup and
// insights stages using langchaingo.
package llm

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/bedrock"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/scribeflow/scribeflow/internal/config"
)

// OpenRouterBaseURL is the OpenAI-compatible endpoint OpenRouter exposes.
const OpenRouterBaseURL = "https://openrouter.ai/api/v1"

// DefaultOllamaHost is used when no host override is configured.
const DefaultOllamaHost = "http://localhost:11434"

// Model wraps a langchaingo LLM for text generation.
type Model struct {
	llm      llms.Model
	provider string
	model    string
}

// Response carries the generated text plus token usage when the
// provider reports it.
type Response struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// NewModel creates an LLM client for the given provider and model id.
// API keys come from settings; bedrock uses the ambient AWS credential
// chain instead.
func NewModel(ctx context.Context, provider, modelID string, s config.Settings) (*Model, error) {
	var model llms.Model
	var err error

	switch provider {
	case "gemini":
		key := s.GeminiKey
		if key == "" {
			return nil, fmt.Errorf("Gemini API key required")
		}
		model, err = googleai.New(ctx,
			googleai.WithAPIKey(key),
			googleai.WithDefaultModel(modelID),
		)
		if err != nil {
			return nil, fmt.Errorf("create gemini model: %w", err)
		}

	case "openrouter":
		key := s.OpenRouterKey
		if key == "" {
			return nil, fmt.Errorf("OpenRouter API key required")
		}
		model, err = openai.New(
			openai.WithToken(key),
			openai.WithModel(modelID),
			openai.WithBaseURL(OpenRouterBaseURL),
		)
		if err != nil {
			return nil, fmt.Errorf("create openrouter model: %w", err)
		}

	case "anthropic":
		key := s.AnthropicKey
		if key == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(key),
			anthropic.WithModel(modelID),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	case "ollama":
		model, err = ollama.New(
			ollama.WithModel(modelID),
			ollama.WithServerURL(DefaultOllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case "bedrock":
		cfg, cfgErr := awsconfig.LoadDefaultConfig(ctx)
		if cfgErr != nil {
			return nil, fmt.Errorf("load aws config: %w", cfgErr)
		}
		model, err = bedrock.New(
			bedrock.WithClient(bedrockruntime.NewFromConfig(cfg)),
			bedrock.WithModel(modelID),
		)
		if err != nil {
			return nil, fmt.Errorf("create bedrock model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}

	return &Model{llm: model, provider: provider, model: modelID}, nil
}

// Complete generates text from a system and user prompt. API errors
// that retrying cannot fix (auth, billing, quota) come back wrapped in
// ErrFatalAPI.
func (m *Model) Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (*Response, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	response, err := m.llm.GenerateContent(ctx, messages, llms.WithTemperature(temperature))
	if err != nil {
		return nil, fmt.Errorf("generate: %w", wrapFatalError(err))
	}
	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no response choices")
	}

	choice := response.Choices[0]
	in, out := tokenUsage(choice.GenerationInfo)
	return &Response{
		Text:         choice.Content,
		InputTokens:  in,
		OutputTokens: out,
	}, nil
}

// Provider returns the provider id.
func (m *Model) Provider() string {
	return m.provider
}

// Model returns the model id.
func (m *Model) ModelID() string {
	return m.model
}

// tokenUsage reads token counts out of GenerationInfo. Key names vary
// per langchaingo backend, so every known spelling is tried.
func tokenUsage(info map[string]any) (in, out int) {
	in = firstInt(info, "PromptTokens", "prompt_tokens", "input_tokens", "InputTokens")
	out = firstInt(info, "CompletionTokens", "completion_tokens", "output_tokens", "OutputTokens")
	return in, out
}

func firstInt(info map[string]any, keys ...string) int {
	for _, key := range keys {
		switch v := info[key].(type) {
		case int:
			return v
		case int32:
			return int(v)
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return 0
}
