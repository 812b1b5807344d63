package agents

import (
	"context"
	"fmt"
)

// EchoAgent repeats the incoming message back. Useful for wiring checks and
// local development without provider credentials.
type EchoAgent struct {
	name string
}

// NewEchoAgent creates an echo agent
func NewEchoAgent(name string) *EchoAgent {
	return &EchoAgent{name: name}
}

// Name returns the agent name
func (a *EchoAgent) Name() string {
	return a.name
}

// Type returns the agent type label
func (a *EchoAgent) Type() string {
	return "echo"
}

// Respond echoes the message
func (a *EchoAgent) Respond(ctx context.Context, message, priorContext string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return fmt.Sprintf("[%s] %s", a.name, message), nil
}
