package orchestration

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhcloud/agentframework-workshop-sub001/chat"
)

type fakeSummarizer struct {
	text  string
	err   error
	calls int
}

func (f *fakeSummarizer) Summarize(ctx context.Context, turns []*chat.Turn) (string, error) {
	f.calls++
	return f.text, f.err
}

func TestAssembleCounters(t *testing.T) {
	turns := []*chat.Turn{
		chat.NewUserTurn("hello"),
		chat.NewAgentTurn("a", "generic", "first", 1),
		chat.NewAgentTurn("b", "specialist", "second", 2),
		chat.NewAgentTurn("a", "generic", "third", 3),
	}

	result := NewAssembler(nil).Assemble(turns, chat.ModeParallel, "s1", 0)

	assert.Equal(t, 3, result.TotalTurns)
	assert.Equal(t, 2, result.AgentCount)
	assert.Equal(t, chat.ModeParallel, result.Mode)
	assert.Equal(t, "s1", result.SessionID)
	assert.Empty(t, result.TerminatedAgents)
	assert.Len(t, result.Turns, 4)
}

func TestAssembleTerminatedAgentsUsesLastTurn(t *testing.T) {
	turns := []*chat.Turn{
		chat.NewUserTurn("hello"),
		chat.NewAgentTurn("a", "", "TERMINATED early", 1),
		chat.NewAgentTurn("b", "", "fine", 2),
		chat.NewAgentTurn("a", "", "recovered", 3),
		chat.NewAgentTurn("b", "", "terminated: done here", 4),
	}

	result := NewAssembler(nil).Assemble(turns, chat.ModeSequential, "s1", 0)

	// a recovered in its last turn; b terminated in its last turn.
	assert.Equal(t, []string{"b"}, result.TerminatedAgents)
}

func TestSynthesizeNoAgentTurns(t *testing.T) {
	sum := &fakeSummarizer{text: "unused"}
	a := NewAssembler(sum)

	text, err := a.Synthesize(context.Background(), []*chat.Turn{chat.NewUserTurn("hello")})
	require.NoError(t, err)
	assert.Equal(t, NoResponsesMessage, text)
	assert.Zero(t, sum.calls)
}

func TestSynthesizeSingleAgentShortcut(t *testing.T) {
	sum := &fakeSummarizer{text: "unused"}
	a := NewAssembler(sum)

	turns := []*chat.Turn{
		chat.NewUserTurn("hello"),
		chat.NewAgentTurn("a", "", "first answer", 1),
		chat.NewAgentTurn("a", "", "latest answer", 2),
	}

	text, err := a.Synthesize(context.Background(), turns)
	require.NoError(t, err)
	assert.Equal(t, "latest answer", text)
	assert.Zero(t, sum.calls)
}

func TestSynthesizeDelegatesToSummarizer(t *testing.T) {
	sum := &fakeSummarizer{text: "combined answer"}
	a := NewAssembler(sum)

	turns := []*chat.Turn{
		chat.NewAgentTurn("a", "", "alpha", 1),
		chat.NewAgentTurn("b", "", "beta", 2),
	}

	text, err := a.Synthesize(context.Background(), turns)
	require.NoError(t, err)
	assert.Equal(t, "combined answer", text)
	assert.Equal(t, 1, sum.calls)
}

func TestSynthesizeSummarizerError(t *testing.T) {
	sum := &fakeSummarizer{err: errors.New("model down")}
	a := NewAssembler(sum)

	turns := []*chat.Turn{
		chat.NewAgentTurn("a", "", "alpha", 1),
		chat.NewAgentTurn("b", "", "beta", 2),
	}

	_, err := a.Synthesize(context.Background(), turns)
	assert.ErrorIs(t, err, ErrInternal)
}

func TestSynthesizeWithoutSummarizerConcatenates(t *testing.T) {
	a := NewAssembler(nil)

	turns := []*chat.Turn{
		chat.NewAgentTurn("a", "", "alpha", 1),
		chat.NewAgentTurn("b", "", "beta", 2),
	}

	text, err := a.Synthesize(context.Background(), turns)
	require.NoError(t, err)
	assert.Contains(t, text, "alpha")
	assert.Contains(t, text, "beta")
}

func TestBuildSynthesisPrompt(t *testing.T) {
	turns := []*chat.Turn{
		chat.NewAgentTurn("people_lookup", "", "Jane Doe runs payroll.", 1),
		chat.NewAgentTurn("knowledge_finder", "", "The policy is on the intranet.", 2),
	}

	prompt := buildSynthesisPrompt(turns)
	assert.Contains(t, prompt, "people_lookup Response:")
	assert.Contains(t, prompt, "Jane Doe runs payroll.")
	assert.Contains(t, prompt, "knowledge_finder Response:")
	assert.Contains(t, prompt, "Synthesized Response:")
}
