// Package llm provides the chat/generate capability consumed by the
// conversation manager and the god loop. Providers are hidden behind the
// Client interface; the runtime never sees wire details.
package llm

import (
	"context"
	"fmt"
)

// Message is a single chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options tunes a single request.
type Options struct {
	Temperature float64 // 0 means provider default
	TopP        float64
	NumPredict  int  // max tokens to generate; 0 means provider default
	FormatJSON  bool // ask the provider for a JSON-constrained response
}

// Client is the LLM capability used by the core.
type Client interface {
	// Chat runs a multi-message exchange and returns the assistant text.
	Chat(ctx context.Context, messages []Message, system string, opts Options) (string, error)
	// Generate runs a single-prompt completion and returns the text.
	Generate(ctx context.Context, prompt string, system string, opts Options) (string, error)
	// Model returns the model name used by this client.
	Model() string
}

// Config holds provider connection settings.
type Config struct {
	BaseURL        string
	TimeoutSeconds int
}

// New constructs a client for the named provider. Supported providers are
// "ollama" and "mock".
func New(provider, model string, cfg Config) (Client, error) {
	switch provider {
	case "ollama", "":
		return NewOllamaClient(model, cfg), nil
	case "mock":
		return NewMock(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}
}
