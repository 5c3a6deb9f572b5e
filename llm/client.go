// Package llm provides chat completion clients used for translation.
package llm

import (
	"context"

	"go.aimuz.me/transpeak/internal/types"
)

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options configures LLM completion behavior.
type Options struct {
	MaxTokens   int
	Temperature float64
}

// Completer performs chat completions.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, types.Usage, error)
}

// completerConfig holds all parameters needed by completers.
type completerConfig struct {
	apiKey      string
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
}

// NewCompleter creates a Completer for the given provider type:
// "claude", "openai" or "openai-compatible".
func NewCompleter(apiType, apiKey, baseURL, model string, opts Options) Completer {
	cfg := completerConfig{
		apiKey:      apiKey,
		baseURL:     baseURL,
		model:       model,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
	}

	switch apiType {
	case "claude":
		return newClaudeCompleter(cfg)
	default:
		return newOpenAICompleter(cfg, apiType == "openai-compatible")
	}
}
