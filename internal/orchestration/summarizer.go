package orchestration

import (
	"context"
	"strings"

	"github.com/nhcloud/agentframework-workshop-sub001/agent"
	"github.com/nhcloud/agentframework-workshop-sub001/chat"
)

// AgentSummarizer synthesizes multi-agent responses by prompting the generic
// agent through the registry.
type AgentSummarizer struct {
	registry  agent.Registry
	agentName string
}

// NewAgentSummarizer creates a summarizer backed by the named agent.
func NewAgentSummarizer(registry agent.Registry, agentName string) *AgentSummarizer {
	if agentName == "" {
		agentName = DefaultGenericAgent
	}
	return &AgentSummarizer{registry: registry, agentName: agentName}
}

// Summarize prompts the backing agent with each contributor's latest
// response and returns the synthesized prose.
func (s *AgentSummarizer) Summarize(ctx context.Context, turns []*chat.Turn) (string, error) {
	return s.registry.Invoke(ctx, s.agentName, buildSynthesisPrompt(turns), "")
}

// buildSynthesisPrompt lays out each agent's latest response followed by the
// synthesis directions.
func buildSynthesisPrompt(turns []*chat.Turn) string {
	latest := make(map[string]string)
	order := make([]string, 0)
	for _, t := range turns {
		if t.Agent == chat.UserAgent {
			continue
		}
		if _, ok := latest[t.Agent]; !ok {
			order = append(order, t.Agent)
		}
		latest[t.Agent] = t.Content
	}

	var b strings.Builder
	b.WriteString("Please synthesize the following responses from multiple specialized agents into a single, coherent, and helpful response for the user:\n\n")

	for _, agentName := range order {
		if latest[agentName] == "" {
			continue
		}
		b.WriteString("**" + agentName + " Response:**\n")
		b.WriteString(latest[agentName])
		b.WriteString("\n\n")
	}

	b.WriteString("Please create a unified response that:\n")
	b.WriteString("1. Combines the key information from all agents\n")
	b.WriteString("2. Removes any redundancy or conflicting information\n")
	b.WriteString("3. Maintains a natural, conversational tone\n")
	b.WriteString("4. Provides a complete answer to the user's original query\n\n")
	b.WriteString("Synthesized Response:")

	return b.String()
}
