package orchestration

import (
	"context"
	"fmt"
	"time"

	"github.com/nhcloud/agentframework-workshop-sub001/chat"
)

// NoResponsesMessage is returned by the synthesized view when no agent
// produced a turn.
const NoResponsesMessage = "No agent responses received."

// Summarizer produces a single prose answer from a turn sequence.
type Summarizer interface {
	Summarize(ctx context.Context, turns []*chat.Turn) (string, error)
}

// Assembler builds the orchestration result from the produced turns.
type Assembler struct {
	summarizer Summarizer
}

// NewAssembler creates an assembler. summarizer may be nil, in which case
// Synthesize falls back to concatenation.
func NewAssembler(summarizer Summarizer) *Assembler {
	return &Assembler{summarizer: summarizer}
}

// Assemble builds the detailed result: every turn verbatim plus the
// bookkeeping counters.
func (a *Assembler) Assemble(turns []*chat.Turn, mode chat.Mode, sessionID string, duration time.Duration) *chat.Result {
	totalTurns := 0
	agents := make(map[string]bool)
	lastTurn := make(map[string]*chat.Turn)

	for _, t := range turns {
		if t.Agent == chat.UserAgent {
			continue
		}
		totalTurns++
		agents[t.Agent] = true
		lastTurn[t.Agent] = t
	}

	// Terminated agents are those whose final turn carries the flag,
	// reported in first-contribution order.
	terminated := make([]string, 0)
	seen := make(map[string]bool)
	for _, t := range turns {
		if t.Agent == chat.UserAgent || seen[t.Agent] {
			continue
		}
		seen[t.Agent] = true
		if lastTurn[t.Agent].Terminated {
			terminated = append(terminated, t.Agent)
		}
	}

	return &chat.Result{
		Turns:            turns,
		SessionID:        sessionID,
		TotalTurns:       totalTurns,
		AgentCount:       len(agents),
		Mode:             mode,
		TerminatedAgents: terminated,
		Duration:         duration,
	}
}

// Synthesize produces the synthesized view of a turn sequence. With no agent
// turns it returns a fixed message without calling the summarizer; with a
// single contributing agent it returns that agent's latest content directly.
func (a *Assembler) Synthesize(ctx context.Context, turns []*chat.Turn) (string, error) {
	agentTurns := make([]*chat.Turn, 0, len(turns))
	agents := make(map[string]bool)
	for _, t := range turns {
		if t.Agent == chat.UserAgent {
			continue
		}
		agentTurns = append(agentTurns, t)
		agents[t.Agent] = true
	}

	if len(agentTurns) == 0 {
		return NoResponsesMessage, nil
	}
	if len(agents) == 1 {
		return agentTurns[len(agentTurns)-1].Content, nil
	}

	if a.summarizer == nil {
		return concatenate(agentTurns), nil
	}

	text, err := a.summarizer.Summarize(ctx, agentTurns)
	if err != nil {
		return "", fmt.Errorf("%w: synthesis: %v", ErrInternal, err)
	}
	return text, nil
}

// concatenate joins each agent's latest response with attribution.
func concatenate(agentTurns []*chat.Turn) string {
	latest := make(map[string]string)
	order := make([]string, 0)
	for _, t := range agentTurns {
		if _, ok := latest[t.Agent]; !ok {
			order = append(order, t.Agent)
		}
		latest[t.Agent] = t.Content
	}

	out := ""
	for _, agent := range order {
		if latest[agent] == "" {
			continue
		}
		if out != "" {
			out += "\n\n"
		}
		out += fmt.Sprintf("**%s:**\n%s", agent, latest[agent])
	}
	if out == "" {
		return NoResponsesMessage
	}
	return out
}
