// Package chat defines the wire types shared between the orchestration
// engine, the session store, and the HTTP layer: turns, requests, results,
// and the orchestration mode labels.
package chat

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserAgent is the reserved agent identifier for the originating user message.
const UserAgent = "user"

// TerminatedPrefix is the content convention an agent uses to end a
// conversation early. A turn is flagged terminated when its trimmed content
// starts with this token, case-insensitively.
const TerminatedPrefix = "TERMINATED"

// Mode identifies how a request is routed among the candidate agents.
type Mode string

const (
	// ModeSingle invokes exactly one agent.
	ModeSingle Mode = "single"
	// ModeParallel fans out to all candidates concurrently and collects
	// every response.
	ModeParallel Mode = "parallel"
	// ModeSequential runs the planned agent order one at a time, handing
	// each agent's output to the next as context.
	ModeSequential Mode = "sequential"
	// ModeHybrid runs the parallel fan-out, then asks the generic agent to
	// refine the best response.
	ModeHybrid Mode = "hybrid"
)

// String returns the mode label.
func (m Mode) String() string {
	return string(m)
}

// Turn is one produced message (by the user or an agent) within a session.
// Turns are immutable once created and append-only in the session log.
// Turn numbers are strictly increasing within a session; the initiating user
// message is always turn 0 with agent "user".
type Turn struct {
	// MessageID uniquely identifies this turn.
	MessageID string `json:"message_id"`
	// Content is the produced text. Empty content marks a failed fan-out call.
	Content string `json:"content"`
	// Agent is the producing agent identifier, or "user" for turn 0.
	Agent string `json:"agent"`
	// AgentType is the agent's type label (e.g. "generic", "people_lookup").
	AgentType string `json:"agent_type,omitempty"`
	// Turn is the monotonic turn number within the session.
	Turn int `json:"turn"`
	// Timestamp is when the turn was created.
	Timestamp time.Time `json:"timestamp"`
	// Terminated is true when the content carries the termination signal.
	Terminated bool `json:"terminated"`
}

// NewUserTurn creates turn 0 for the originating user message.
func NewUserTurn(content string) *Turn {
	return &Turn{
		MessageID: uuid.New().String(),
		Content:   content,
		Agent:     UserAgent,
		Turn:      0,
		Timestamp: time.Now().UTC(),
	}
}

// NewAgentTurn creates a turn for an agent response. The termination flag is
// derived from the content at construction time and never recomputed.
func NewAgentTurn(agent, agentType, content string, number int) *Turn {
	return &Turn{
		MessageID:  uuid.New().String(),
		Content:    content,
		Agent:      agent,
		AgentType:  agentType,
		Turn:       number,
		Timestamp:  time.Now().UTC(),
		Terminated: IsTerminated(content),
	}
}

// IsTerminated reports whether content carries the termination signal:
// after trimming whitespace it starts with the TERMINATED token,
// case-insensitively.
func IsTerminated(content string) bool {
	trimmed := strings.TrimSpace(content)
	if len(trimmed) < len(TerminatedPrefix) {
		return false
	}
	return strings.EqualFold(trimmed[:len(TerminatedPrefix)], TerminatedPrefix)
}

// Request is a single orchestration request. It is owned by the caller and
// read-only to the engine.
type Request struct {
	// Message is the user message to route.
	Message string `json:"message"`
	// Agents is the ordered candidate agent list. Empty means auto-select:
	// use every agent the directory lists.
	Agents []string `json:"agents,omitempty"`
	// SessionID continues an existing session; a new one is created if empty.
	SessionID string `json:"session_id,omitempty"`
	// Context is an optional free-form context string passed to the first
	// invoked agent.
	Context string `json:"context,omitempty"`
	// Format selects the response view: "detailed" (default) or "synthesized".
	Format string `json:"format,omitempty"`
}

// Result is the outcome of one orchestration request. It is built once per
// request and not persisted beyond the response.
type Result struct {
	// Turns is the full turn sequence including the user turn.
	Turns []*Turn `json:"messages"`
	// SessionID identifies the session the turns were appended to.
	SessionID string `json:"session_id"`
	// TotalTurns counts the non-user turns produced.
	TotalTurns int `json:"total_turns"`
	// AgentCount is the number of distinct contributing agents.
	AgentCount int `json:"agent_count"`
	// Mode is the orchestration mode label.
	Mode Mode `json:"mode"`
	// TerminatedAgents lists agents whose latest turn carries the
	// termination flag.
	TerminatedAgents []string `json:"terminated_agents"`
	// Duration is the total wall-clock processing time.
	Duration time.Duration `json:"total_processing_time"`
}
