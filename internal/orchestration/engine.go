package orchestration

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/nhcloud/agentframework-workshop-sub001/agent"
	"github.com/nhcloud/agentframework-workshop-sub001/chat"
	"github.com/nhcloud/agentframework-workshop-sub001/internal/observability"
	pkgobs "github.com/nhcloud/agentframework-workshop-sub001/pkg/observability"
)

// DefaultDeadline bounds a whole orchestration request.
const DefaultDeadline = 4 * time.Minute

// SessionStore is the engine's view of session persistence. The engine only
// creates sessions and appends turns; it never reads other sessions.
type SessionStore interface {
	Create(ctx context.Context) (string, error)
	Append(ctx context.Context, sessionID string, turn *chat.Turn) error
}

// Config tunes the engine. Zero values fall back to workshop defaults.
type Config struct {
	// Deadline bounds each request (default 4 minutes).
	Deadline time.Duration
	// DefaultAgent handles requests with no resolvable candidates.
	DefaultAgent string
	// GenericAgent is the designated synthesis/fallback agent.
	GenericAgent string
	// MaxAgents caps auto-selected candidates. Zero means no cap.
	MaxAgents int
}

// Engine executes orchestration requests against the agent registry,
// persisting every produced turn as it is generated.
type Engine struct {
	registry  agent.Registry
	sessions  SessionStore
	planner   *Planner
	assembler *Assembler
	config    Config
}

// NewEngine creates an engine. planner and assembler may be nil, in which
// case defaults are built from config.
func NewEngine(registry agent.Registry, sessions SessionStore, planner *Planner, assembler *Assembler, config Config) *Engine {
	if config.Deadline <= 0 {
		config.Deadline = DefaultDeadline
	}
	if config.DefaultAgent == "" {
		config.DefaultAgent = DefaultGenericAgent
	}
	if config.GenericAgent == "" {
		config.GenericAgent = DefaultGenericAgent
	}
	if planner == nil {
		planner = NewPlanner("", "", config.GenericAgent)
	}
	if assembler == nil {
		assembler = NewAssembler(NewAgentSummarizer(registry, config.GenericAgent))
	}
	return &Engine{
		registry:  registry,
		sessions:  sessions,
		planner:   planner,
		assembler: assembler,
		config:    config,
	}
}

// Assembler returns the engine's response assembler.
func (e *Engine) Assembler() *Assembler {
	return e.assembler
}

// Orchestrate routes one request: selects the mode, executes it, and
// assembles the result. Fails with ErrTimeout or ErrCancelled when the
// deadline or the caller aborts the request.
func (e *Engine) Orchestrate(ctx context.Context, req *chat.Request) (*chat.Result, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, e.config.Deadline)
	defer cancel()

	candidates := e.resolveCandidates(req.Agents)
	mode := SelectMode(req.Message, candidates)

	ctx, span := observability.StartSpan(ctx, "orchestration.request",
		trace.WithAttributes(
			attribute.String("mode", mode.String()),
			attribute.Int("candidates", len(candidates)),
		),
	)
	defer span.End()

	sessionID := req.SessionID
	if sessionID == "" {
		var err error
		sessionID, err = e.sessions.Create(ctx)
		if err != nil {
			pkgobs.RecordOrchestration(mode.String(), "error", time.Since(start))
			return nil, fmt.Errorf("%w: creating session: %v", ErrInternal, err)
		}
	}

	userTurn := chat.NewUserTurn(req.Message)
	if err := e.sessions.Append(ctx, sessionID, userTurn); err != nil {
		pkgobs.RecordOrchestration(mode.String(), "error", time.Since(start))
		return nil, fmt.Errorf("%w: appending user turn: %v", ErrInternal, err)
	}

	log.Printf("[ENGINE] session=%s mode=%s candidates=%d", sessionID, mode, len(candidates))

	var (
		agentTurns []*chat.Turn
		err        error
	)
	types := e.agentTypes()

	switch mode {
	case chat.ModeSingle:
		agentTurns, err = e.runSingle(ctx, sessionID, candidates, req.Message, req.Context, types)
	case chat.ModeParallel:
		agentTurns, err = e.runParallel(ctx, sessionID, candidates, req.Message, req.Context, 1, types)
	case chat.ModeSequential:
		agentTurns, err = e.runSequential(ctx, sessionID, candidates, req.Message, req.Context, types)
	case chat.ModeHybrid:
		agentTurns, err = e.runHybrid(ctx, sessionID, candidates, req.Message, req.Context, types)
	default:
		err = fmt.Errorf("%w: unknown mode %q", ErrInternal, mode)
	}

	if err != nil {
		mapped := mapContextError(err)
		span.RecordError(mapped)
		pkgobs.RecordOrchestration(mode.String(), statusLabel(mapped), time.Since(start))
		return nil, mapped
	}

	turns := append([]*chat.Turn{userTurn}, agentTurns...)
	result := e.assembler.Assemble(turns, mode, sessionID, time.Since(start))

	pkgobs.RecordOrchestration(mode.String(), "ok", time.Since(start))
	return result, nil
}

// resolveCandidates applies the fallback chain: the request's agents, then
// the directory listing (capped), then the default agent.
func (e *Engine) resolveCandidates(requested []string) []string {
	if len(requested) > 0 {
		return requested
	}

	listed := e.registry.List()
	if e.config.MaxAgents > 0 && len(listed) > e.config.MaxAgents {
		listed = listed[:e.config.MaxAgents]
	}
	if len(listed) > 0 {
		return listed
	}

	return []string{e.config.DefaultAgent}
}

// agentTypes snapshots the directory's type labels for turn metadata.
func (e *Engine) agentTypes() map[string]string {
	types := make(map[string]string)
	for _, info := range e.registry.Describe() {
		types[info.Name] = info.Type
	}
	return types
}

// runSingle invokes the first candidate once. Unresolvable agents and call
// failures are logged and produce no turn.
func (e *Engine) runSingle(ctx context.Context, sessionID string, candidates []string, message, reqContext string, types map[string]string) ([]*chat.Turn, error) {
	name := candidates[0]

	content, err := e.registry.Invoke(ctx, name, message, reqContext)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("[ENGINE] single: skipping agent %s: %v", name, err)
		return nil, nil
	}

	turn := chat.NewAgentTurn(name, types[name], content, 1)
	if err := e.sessions.Append(ctx, sessionID, turn); err != nil {
		return nil, fmt.Errorf("%w: appending turn: %v", ErrInternal, err)
	}
	pkgobs.RecordTurnProduced(name)
	return []*chat.Turn{turn}, nil
}

// runParallel fans out to every candidate concurrently and waits for all of
// them. Turns are appended in candidate order, never completion order, with
// numbers assigned sequentially from firstTurn. Unknown agents produce no
// turn; call failures produce an empty-content turn.
func (e *Engine) runParallel(ctx context.Context, sessionID string, candidates []string, message, reqContext string, firstTurn int, types map[string]string) ([]*chat.Turn, error) {
	type outcome struct {
		content string
		err     error
	}
	outcomes := make([]outcome, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range candidates {
		g.Go(func() error {
			content, err := e.registry.Invoke(gctx, name, message, reqContext)
			outcomes[i] = outcome{content: content, err: err}
			// Failures are recorded per slot, never short-circuit the barrier.
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	turns := make([]*chat.Turn, 0, len(candidates))
	number := firstTurn
	for i, name := range candidates {
		if outcomes[i].err != nil {
			if errors.Is(outcomes[i].err, agent.ErrUnavailable) {
				log.Printf("[ENGINE] parallel: skipping agent %s: %v", name, outcomes[i].err)
				continue
			}
			log.Printf("[ENGINE] parallel: agent %s failed: %v", name, outcomes[i].err)
			outcomes[i].content = ""
		}

		turn := chat.NewAgentTurn(name, types[name], outcomes[i].content, number)
		if err := e.sessions.Append(ctx, sessionID, turn); err != nil {
			return nil, fmt.Errorf("%w: appending turn: %v", ErrInternal, err)
		}
		pkgobs.RecordTurnProduced(name)
		turns = append(turns, turn)
		number++
	}

	return turns, nil
}

// runSequential executes the planned order one agent at a time, threading
// each turn's content to the next agent as context. Failed agents are
// skipped; a terminated turn stops the chain.
func (e *Engine) runSequential(ctx context.Context, sessionID string, candidates []string, message, reqContext string, types map[string]string) ([]*chat.Turn, error) {
	order := e.planner.PlanOrder(candidates, message)

	turns := make([]*chat.Turn, 0, len(order))
	handoff := reqContext
	number := 1

	for _, name := range order {
		content, err := e.registry.Invoke(ctx, name, message, handoff)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Printf("[ENGINE] sequential: skipping agent %s: %v", name, err)
			continue
		}

		turn := chat.NewAgentTurn(name, types[name], content, number)
		if err := e.sessions.Append(ctx, sessionID, turn); err != nil {
			return nil, fmt.Errorf("%w: appending turn: %v", ErrInternal, err)
		}
		pkgobs.RecordTurnProduced(name)
		turns = append(turns, turn)
		number++

		if turn.Terminated {
			log.Printf("[ENGINE] sequential: agent %s terminated the chain", name)
			break
		}
		handoff = turn.Content
	}

	return turns, nil
}

// runHybrid runs the parallel fan-out, then asks the generic agent to refine
// the best non-terminated response. The best pick is the longest content,
// first maximal in candidate order.
func (e *Engine) runHybrid(ctx context.Context, sessionID string, candidates []string, message, reqContext string, types map[string]string) ([]*chat.Turn, error) {
	turns, err := e.runParallel(ctx, sessionID, candidates, message, reqContext, 1, types)
	if err != nil {
		return nil, err
	}

	var best *chat.Turn
	for _, t := range turns {
		if t.Terminated {
			continue
		}
		if best == nil || len(t.Content) > len(best.Content) {
			best = t
		}
	}
	if best == nil {
		return turns, nil
	}

	generic := e.config.GenericAgent
	if !contains(candidates, generic) {
		return turns, nil
	}

	content, err := e.registry.Invoke(ctx, generic, message, best.Content)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("[ENGINE] hybrid: refinement by %s failed: %v", generic, err)
		return turns, nil
	}

	turn := chat.NewAgentTurn(generic, types[generic], content, len(turns)+1)
	if err := e.sessions.Append(ctx, sessionID, turn); err != nil {
		return nil, fmt.Errorf("%w: appending turn: %v", ErrInternal, err)
	}
	pkgobs.RecordTurnProduced(generic)
	return append(turns, turn), nil
}

// mapContextError converts context errors to the public error kinds.
func mapContextError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrCancelled), errors.Is(err, ErrInternal):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
}

func statusLabel(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	default:
		return "error"
	}
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
