// Package provider wraps the cloud LLM SDKs behind a single chat-completion
// interface. Agents call a provider; they never talk to an SDK directly.
package provider

import (
	"context"
	"fmt"
	"sync"
)

// Provider defines the interface for LLM completion backends
type Provider interface {
	// CreateCompletion creates a chat completion and returns the response text
	CreateCompletion(ctx context.Context, request CompletionRequest) (string, error)

	// Name returns the provider name (e.g., "openai", "bedrock", "gemini")
	Name() string
}

// Message represents a chat message
type Message struct {
	Role    string `json:"role"`    // "system", "user", "assistant"
	Content string `json:"content"` // The message content
}

// CompletionRequest represents a completion request
type CompletionRequest struct {
	// Messages is the conversation to complete
	Messages []Message `json:"messages"`

	// Model overrides the provider's default model
	Model string `json:"model,omitempty"`

	// Temperature controls randomness (0.0-2.0)
	Temperature float64 `json:"temperature,omitempty"`

	// MaxTokens is the maximum number of tokens to generate
	MaxTokens int `json:"max_tokens,omitempty"`
}

// Factory builds a provider from a free-form config map.
type Factory func(config map[string]any) (Provider, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// RegisterFactory registers a provider factory under a name.
// Provider implementations call this from init().
func RegisterFactory(name string, factory Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = factory
}

// New builds a provider by factory name.
func New(name string, config map[string]any) (Provider, error) {
	factoriesMu.RLock()
	factory, ok := factories[name]
	factoriesMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("provider '%s' not registered", name)
	}
	return factory(config)
}

// configString reads an optional string key from a factory config map.
func configString(config map[string]any, key string) string {
	if v, ok := config[key].(string); ok {
		return v
	}
	return ""
}
