// Package agents contains the chat participants: LLM-backed agents built
// from config definitions plus an echo agent for local development.
package agents

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/nhcloud/agentframework-workshop-sub001/internal/observability"
	"github.com/nhcloud/agentframework-workshop-sub001/internal/provider"
)

// Instructions used when a definition does not carry its own.
const (
	GenericInstructions = "You are a helpful AI assistant. Provide clear, accurate, and helpful responses to user questions."

	PeopleLookupInstructions = "You are a specialized agent for finding people information within the organization. " +
		"Use your knowledge base and file search capabilities to provide accurate employee information."

	KnowledgeFinderInstructions = "You are a specialized agent for searching organizational knowledge. " +
		"Use your knowledge base and file search capabilities to provide accurate information about policies, documents, and procedures."
)

// LLMAgent answers through an LLM provider with a fixed system instruction.
type LLMAgent struct {
	name         string
	agentType    string
	instructions string
	provider     provider.Provider
	model        string
	temperature  float64
	maxTokens    int
}

// LLMOption configures an LLMAgent
type LLMOption func(*LLMAgent)

// WithModel overrides the provider's default model
func WithModel(model string) LLMOption {
	return func(a *LLMAgent) { a.model = model }
}

// WithTemperature sets the sampling temperature
func WithTemperature(t float64) LLMOption {
	return func(a *LLMAgent) { a.temperature = t }
}

// WithMaxTokens caps the response length
func WithMaxTokens(n int) LLMOption {
	return func(a *LLMAgent) { a.maxTokens = n }
}

// NewLLMAgent creates an LLM-backed agent
func NewLLMAgent(name, agentType, instructions string, p provider.Provider, opts ...LLMOption) *LLMAgent {
	if instructions == "" {
		instructions = GenericInstructions
	}
	a := &LLMAgent{
		name:         name,
		agentType:    agentType,
		instructions: instructions,
		provider:     p,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the agent name
func (a *LLMAgent) Name() string {
	return a.name
}

// Type returns the agent type label
func (a *LLMAgent) Type() string {
	return a.agentType
}

// Respond generates a reply to message. priorContext carries earlier
// conversation content and is folded into the user prompt.
func (a *LLMAgent) Respond(ctx context.Context, message, priorContext string) (string, error) {
	ctx, span := observability.StartSpan(ctx, "agent.respond",
		trace.WithAttributes(
			attribute.String("agent.name", a.name),
			attribute.String("agent.type", a.agentType),
			attribute.String("provider", a.provider.Name()),
		),
	)
	defer span.End()

	start := time.Now()
	resp, err := a.provider.CreateCompletion(ctx, provider.CompletionRequest{
		Messages: []provider.Message{
			{Role: "system", Content: a.instructions},
			{Role: "user", Content: buildPrompt(message, priorContext)},
		},
		Model:       a.model,
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("agent %s: %w", a.name, err)
	}

	log.Printf("[AGENT] %s responded in %v (%d chars)", a.name, time.Since(start).Round(time.Millisecond), len(resp))
	return resp, nil
}

// buildPrompt folds prior conversation content into the user prompt.
func buildPrompt(message, priorContext string) string {
	if priorContext == "" {
		return message
	}

	var b strings.Builder
	b.WriteString("Original user message: ")
	b.WriteString(message)
	b.WriteString("\n\nRecent conversation:\n")
	b.WriteString(priorContext)
	return b.String()
}
