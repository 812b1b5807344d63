// Package agent defines the agent capability the orchestration engine
// invokes, and a registry that doubles as the agent directory.
package agent

import (
	"context"
	"errors"
)

// Agent is a named proxy to a language-model-backed responder.
// External packages implement this interface for custom backends.
type Agent interface {
	// Name returns the unique identifier for this agent instance.
	// Agent names must be unique within a Registry.
	Name() string

	// Type returns the agent's type label (e.g. "generic", "people_lookup").
	Type() string

	// Respond processes a user message and returns the response text.
	// priorContext carries free-form context, typically the previous agent's
	// output during sequential hand-off. It may be empty.
	Respond(ctx context.Context, message, priorContext string) (string, error)
}

// Common errors for agent invocation.
var (
	// ErrUnavailable is returned when an agent identifier is unknown.
	ErrUnavailable = errors.New("agent unavailable")
	// ErrCallFailed is returned when an agent call fails on transport or
	// model error.
	ErrCallFailed = errors.New("agent call failed")
)

// Info describes a registered agent for directory listings.
type Info struct {
	// Name is the agent identifier.
	Name string `json:"name"`
	// Type is the agent's type label.
	Type string `json:"type"`
	// Capabilities are optional capability tags.
	Capabilities []string `json:"capabilities,omitempty"`
}
