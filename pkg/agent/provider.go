// Package agent abstracts the external completion services that generate
// chat responses. Providers receive the system prompt and an ordered
// message list and return a single assistant completion.
package agent

import (
	"context"
	"errors"
	"fmt"
)

// ErrUpstream marks a completion service failure. Callers must not
// persist a turn when a completion fails.
var ErrUpstream = errors.New("completion service failure")

// Message is one role/content entry sent to the provider.
type Message struct {
	Role    string
	Content string
}

// Request contains the parameters for a completion call.
type Request struct {
	Model        string
	SystemPrompt string
	Messages     []Message
	Temperature  float64
	MaxTokens    int
}

// Response contains the completion result.
type Response struct {
	Content      string
	InputTokens  int
	OutputTokens int
}

// Provider is an interface for completion API providers.
type Provider interface {
	// Complete makes a completion API call.
	Complete(ctx context.Context, request Request) (*Response, error)

	// Name returns the provider name.
	Name() string
}

// NewProvider creates a provider for the configured backend.
func NewProvider(name, apiKey string) (Provider, error) {
	switch name {
	case "openai":
		return NewOpenAIProvider(apiKey), nil
	case "anthropic":
		return NewAnthropicProvider(apiKey), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
}
