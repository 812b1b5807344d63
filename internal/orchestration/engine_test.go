package orchestration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhcloud/agentframework-workshop-sub001/agent"
	"github.com/nhcloud/agentframework-workshop-sub001/chat"
)

// scriptedAgent implements agent.Agent with a configurable response function.
type scriptedAgent struct {
	name    string
	typ     string
	respond func(ctx context.Context, message, priorContext string) (string, error)
}

func (a *scriptedAgent) Name() string { return a.name }
func (a *scriptedAgent) Type() string { return a.typ }
func (a *scriptedAgent) Respond(ctx context.Context, message, priorContext string) (string, error) {
	return a.respond(ctx, message, priorContext)
}

func staticAgent(name, reply string) *scriptedAgent {
	return &scriptedAgent{
		name: name,
		typ:  "test",
		respond: func(ctx context.Context, message, priorContext string) (string, error) {
			return reply, nil
		},
	}
}

// memStore is an in-memory SessionStore for engine tests.
type memStore struct {
	mu       sync.Mutex
	counter  int
	sessions map[string][]*chat.Turn
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string][]*chat.Turn)}
}

func (s *memStore) Create(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter++
	id := fmt.Sprintf("session-%d", s.counter)
	s.sessions[id] = nil
	return id, nil
}

func (s *memStore) Append(ctx context.Context, sessionID string, turn *chat.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = append(s.sessions[sessionID], turn)
	return nil
}

func (s *memStore) turns(sessionID string) []*chat.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[sessionID]
}

func newTestEngine(t *testing.T, store *memStore, agents ...agent.Agent) (*Engine, agent.Registry) {
	t.Helper()
	registry := agent.NewLocalRegistry()
	for _, a := range agents {
		require.NoError(t, registry.Register(a))
	}
	engine := NewEngine(registry, store, nil, nil, Config{})
	return engine, registry
}

func agentNames(turns []*chat.Turn) []string {
	names := make([]string, len(turns))
	for i, t := range turns {
		names[i] = t.Agent
	}
	return names
}

func TestOrchestrateSingle(t *testing.T) {
	store := newMemStore()
	engine, _ := newTestEngine(t, store, staticAgent("solo", "the answer"))

	result, err := engine.Orchestrate(context.Background(), &chat.Request{
		Message: "hello",
		Agents:  []string{"solo"},
	})
	require.NoError(t, err)

	assert.Equal(t, chat.ModeSingle, result.Mode)
	require.Len(t, result.Turns, 2)
	assert.Equal(t, chat.UserAgent, result.Turns[0].Agent)
	assert.Equal(t, 0, result.Turns[0].Turn)
	assert.Equal(t, "solo", result.Turns[1].Agent)
	assert.Equal(t, 1, result.Turns[1].Turn)
	assert.Equal(t, "the answer", result.Turns[1].Content)
	assert.Equal(t, 1, result.TotalTurns)
	assert.Equal(t, 1, result.AgentCount)
}

func TestOrchestrateSingleUnresolvableAgent(t *testing.T) {
	store := newMemStore()
	engine, _ := newTestEngine(t, store)

	result, err := engine.Orchestrate(context.Background(), &chat.Request{
		Message: "hello",
		Agents:  []string{"ghost"},
	})
	require.NoError(t, err)

	assert.Equal(t, chat.ModeSingle, result.Mode)
	assert.Equal(t, 0, result.TotalTurns)
	require.Len(t, result.Turns, 1)
	assert.Equal(t, chat.UserAgent, result.Turns[0].Agent)
}

func TestOrchestrateParallelOrderIndependentOfCompletion(t *testing.T) {
	store := newMemStore()

	// The first candidate finishes last; output order must not change.
	slow := &scriptedAgent{
		name: "a",
		typ:  "test",
		respond: func(ctx context.Context, message, priorContext string) (string, error) {
			time.Sleep(50 * time.Millisecond)
			return "slow reply", nil
		},
	}
	engine, _ := newTestEngine(t, store, slow, staticAgent("b", "fast b"), staticAgent("c", "fast c"))

	result, err := engine.Orchestrate(context.Background(), &chat.Request{
		Message: "compare the options",
		Agents:  []string{"a", "b", "c"},
	})
	require.NoError(t, err)

	assert.Equal(t, chat.ModeParallel, result.Mode)
	require.Len(t, result.Turns, 4)
	assert.Equal(t, []string{"user", "a", "b", "c"}, agentNames(result.Turns))
	assert.Equal(t, 1, result.Turns[1].Turn)
	assert.Equal(t, 2, result.Turns[2].Turn)
	assert.Equal(t, 3, result.Turns[3].Turn)
	assert.Equal(t, 3, result.TotalTurns)
	assert.Equal(t, 3, result.AgentCount)
}

func TestOrchestrateParallelSkipsUnknownAgents(t *testing.T) {
	store := newMemStore()
	engine, _ := newTestEngine(t, store, staticAgent("a", "alpha"), staticAgent("b", "beta"))

	result, err := engine.Orchestrate(context.Background(), &chat.Request{
		Message: "compare the options",
		Agents:  []string{"a", "ghost", "b"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"user", "a", "b"}, agentNames(result.Turns))
	assert.Equal(t, 1, result.Turns[1].Turn)
	assert.Equal(t, 2, result.Turns[2].Turn)
}

func TestOrchestrateParallelCallFailureProducesEmptyTurn(t *testing.T) {
	store := newMemStore()

	failing := &scriptedAgent{
		name: "b",
		typ:  "test",
		respond: func(ctx context.Context, message, priorContext string) (string, error) {
			return "", errors.New("model overloaded")
		},
	}
	engine, _ := newTestEngine(t, store, staticAgent("a", "alpha"), failing)

	result, err := engine.Orchestrate(context.Background(), &chat.Request{
		Message: "compare the options",
		Agents:  []string{"a", "b"},
	})
	require.NoError(t, err)

	require.Len(t, result.Turns, 3)
	assert.Equal(t, "b", result.Turns[2].Agent)
	assert.Empty(t, result.Turns[2].Content)
	assert.Equal(t, 2, result.TotalTurns)
}

func TestOrchestrateSequentialHandOff(t *testing.T) {
	store := newMemStore()

	var genericContext string
	specialist := staticAgent("people_lookup", "Jane Doe is the contact.")
	generic := &scriptedAgent{
		name: "generic_agent",
		typ:  "generic",
		respond: func(ctx context.Context, message, priorContext string) (string, error) {
			genericContext = priorContext
			return "Email drafted.", nil
		},
	}
	engine, _ := newTestEngine(t, store, specialist, generic)

	result, err := engine.Orchestrate(context.Background(), &chat.Request{
		Message: "first find the contact, then draft an email",
		Agents:  []string{"generic_agent", "people_lookup"},
	})
	require.NoError(t, err)

	assert.Equal(t, chat.ModeSequential, result.Mode)
	// people_lookup is planned first; the generic agent goes last and
	// receives the specialist's output as context.
	assert.Equal(t, []string{"user", "people_lookup", "generic_agent"}, agentNames(result.Turns))
	assert.Equal(t, "Jane Doe is the contact.", genericContext)
}

func TestOrchestrateSequentialStopsOnTermination(t *testing.T) {
	store := newMemStore()

	invoked := make([]string, 0)
	var mu sync.Mutex
	record := func(name, reply string) *scriptedAgent {
		return &scriptedAgent{
			name: name,
			typ:  "test",
			respond: func(ctx context.Context, message, priorContext string) (string, error) {
				mu.Lock()
				invoked = append(invoked, name)
				mu.Unlock()
				return reply, nil
			},
		}
	}

	engine, _ := newTestEngine(t, store,
		record("a", "keep going"),
		record("b", "terminated: nothing more to add"),
		record("c", "never reached"),
	)

	result, err := engine.Orchestrate(context.Background(), &chat.Request{
		Message: "first do a, next do b, after that do c",
		Agents:  []string{"a", "b", "c"},
	})
	require.NoError(t, err)

	assert.Equal(t, chat.ModeSequential, result.Mode)
	assert.Equal(t, []string{"a", "b"}, invoked)
	assert.Equal(t, []string{"user", "a", "b"}, agentNames(result.Turns))
	assert.True(t, result.Turns[2].Terminated)
	assert.Equal(t, []string{"b"}, result.TerminatedAgents)
}

func TestOrchestrateSequentialSkipsFailedAgent(t *testing.T) {
	store := newMemStore()

	failing := &scriptedAgent{
		name: "a",
		typ:  "test",
		respond: func(ctx context.Context, message, priorContext string) (string, error) {
			return "", errors.New("boom")
		},
	}
	engine, _ := newTestEngine(t, store, failing, staticAgent("b", "still fine"))

	result, err := engine.Orchestrate(context.Background(), &chat.Request{
		Message: "step one please",
		Agents:  []string{"a", "b"},
	})
	require.NoError(t, err)

	assert.Equal(t, chat.ModeSequential, result.Mode)
	assert.Equal(t, []string{"user", "b"}, agentNames(result.Turns))
	assert.Equal(t, 1, result.Turns[1].Turn)
}

func TestOrchestrateHybridRefinesBestResponse(t *testing.T) {
	store := newMemStore()

	var refinementContext string
	genericCalls := 0
	generic := &scriptedAgent{
		name: "generic_agent",
		typ:  "generic",
		respond: func(ctx context.Context, message, priorContext string) (string, error) {
			genericCalls++
			if genericCalls == 1 {
				return "short", nil
			}
			refinementContext = priorContext
			return "refined final answer", nil
		},
	}
	long := staticAgent("a", "a much longer and more detailed response")
	engine, _ := newTestEngine(t, store, long, generic)

	result, err := engine.Orchestrate(context.Background(), &chat.Request{
		Message: "hello there",
		Agents:  []string{"a", "generic_agent"},
	})
	require.NoError(t, err)

	assert.Equal(t, chat.ModeHybrid, result.Mode)
	require.Len(t, result.Turns, 4)
	assert.Equal(t, []string{"user", "a", "generic_agent", "generic_agent"}, agentNames(result.Turns))
	assert.Equal(t, "refined final answer", result.Turns[3].Content)
	assert.Equal(t, 3, result.Turns[3].Turn)
	assert.Equal(t, "a much longer and more detailed response", refinementContext)
}

func TestOrchestrateHybridNoRefinementWhenAllTerminated(t *testing.T) {
	store := newMemStore()

	genericCalls := 0
	generic := &scriptedAgent{
		name: "generic_agent",
		typ:  "generic",
		respond: func(ctx context.Context, message, priorContext string) (string, error) {
			genericCalls++
			return "TERMINATED", nil
		},
	}
	engine, _ := newTestEngine(t, store, staticAgent("a", "TERMINATED done"), generic)

	result, err := engine.Orchestrate(context.Background(), &chat.Request{
		Message: "hello there",
		Agents:  []string{"a", "generic_agent"},
	})
	require.NoError(t, err)

	assert.Equal(t, chat.ModeHybrid, result.Mode)
	assert.Equal(t, []string{"user", "a", "generic_agent"}, agentNames(result.Turns))
	assert.Equal(t, 1, genericCalls)
	assert.ElementsMatch(t, []string{"a", "generic_agent"}, result.TerminatedAgents)
}

func TestOrchestrateHybridNoRefinementWithoutGenericAgent(t *testing.T) {
	store := newMemStore()
	engine, _ := newTestEngine(t, store, staticAgent("a", "alpha"), staticAgent("b", "beta longer"))

	result, err := engine.Orchestrate(context.Background(), &chat.Request{
		Message: "hello there",
		Agents:  []string{"a", "b"},
	})
	require.NoError(t, err)

	assert.Equal(t, chat.ModeHybrid, result.Mode)
	assert.Equal(t, []string{"user", "a", "b"}, agentNames(result.Turns))
}

func TestOrchestrateAutoSelectUsesDirectory(t *testing.T) {
	store := newMemStore()
	engine, _ := newTestEngine(t, store,
		staticAgent("a", "alpha"),
		staticAgent("b", "beta"),
		staticAgent("c", "gamma"),
	)

	result, err := engine.Orchestrate(context.Background(), &chat.Request{
		Message: "compare the options",
	})
	require.NoError(t, err)

	assert.Equal(t, chat.ModeParallel, result.Mode)
	assert.Equal(t, []string{"user", "a", "b", "c"}, agentNames(result.Turns))
}

func TestOrchestrateEmptyRegistryFallsBackToDefaultAgent(t *testing.T) {
	store := newMemStore()
	registry := agent.NewLocalRegistry()
	engine := NewEngine(registry, store, nil, nil, Config{DefaultAgent: "generic_agent"})

	result, err := engine.Orchestrate(context.Background(), &chat.Request{Message: "hello"})
	require.NoError(t, err)

	assert.Equal(t, chat.ModeSingle, result.Mode)
	assert.Equal(t, 0, result.TotalTurns)

	text, err := engine.Assembler().Synthesize(context.Background(), result.Turns)
	require.NoError(t, err)
	assert.Equal(t, NoResponsesMessage, text)
}

func TestOrchestrateMaxAgentsCapsAutoSelect(t *testing.T) {
	store := newMemStore()
	registry := agent.NewLocalRegistry()
	for _, name := range []string{"a", "b", "c", "d"} {
		require.NoError(t, registry.Register(staticAgent(name, name+" reply")))
	}
	engine := NewEngine(registry, store, nil, nil, Config{MaxAgents: 2})

	result, err := engine.Orchestrate(context.Background(), &chat.Request{
		Message: "compare the options",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"user", "a", "b"}, agentNames(result.Turns))
}

func TestOrchestrateSessionContinuity(t *testing.T) {
	store := newMemStore()
	engine, _ := newTestEngine(t, store, staticAgent("solo", "reply"))

	first, err := engine.Orchestrate(context.Background(), &chat.Request{
		Message: "hello",
		Agents:  []string{"solo"},
	})
	require.NoError(t, err)

	second, err := engine.Orchestrate(context.Background(), &chat.Request{
		Message:   "hello again",
		Agents:    []string{"solo"},
		SessionID: first.SessionID,
	})
	require.NoError(t, err)

	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Len(t, store.turns(first.SessionID), 4)
}

func TestOrchestrateDeadlineExpiry(t *testing.T) {
	store := newMemStore()

	blocking := &scriptedAgent{
		name: "slow",
		typ:  "test",
		respond: func(ctx context.Context, message, priorContext string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
	registry := agent.NewLocalRegistry()
	require.NoError(t, registry.Register(blocking))
	engine := NewEngine(registry, store, nil, nil, Config{Deadline: 20 * time.Millisecond})

	_, err := engine.Orchestrate(context.Background(), &chat.Request{
		Message: "hello",
		Agents:  []string{"slow"},
	})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestOrchestrateCallerCancellation(t *testing.T) {
	store := newMemStore()

	blocking := &scriptedAgent{
		name: "slow",
		typ:  "test",
		respond: func(ctx context.Context, message, priorContext string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
	engine, _ := newTestEngine(t, store, blocking)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := engine.Orchestrate(ctx, &chat.Request{
		Message: "hello",
		Agents:  []string{"slow"},
	})
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestOrchestratePersistsTurnsAsProduced(t *testing.T) {
	store := newMemStore()
	engine, _ := newTestEngine(t, store, staticAgent("a", "alpha"), staticAgent("b", "beta"))

	result, err := engine.Orchestrate(context.Background(), &chat.Request{
		Message: "compare the options",
		Agents:  []string{"a", "b"},
	})
	require.NoError(t, err)

	persisted := store.turns(result.SessionID)
	require.Len(t, persisted, 3)
	assert.Equal(t, chat.UserAgent, persisted[0].Agent)
	for i, turn := range persisted {
		assert.Equal(t, i, turn.Turn)
		assert.False(t, strings.Contains(turn.MessageID, " "))
		assert.NotEmpty(t, turn.MessageID)
	}
}
