package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/nhcloud/agentframework-workshop-sub001/pkg/observability"
)

// Registry is the agent directory and invoker the engine works against.
// Implementations must be safe for concurrent use.
type Registry interface {
	// Register adds an agent to the registry.
	// Returns an error if an agent with the same name is already registered.
	Register(a Agent) error

	// Unregister removes an agent from the registry.
	Unregister(name string) error

	// List returns all registered agent names in registration order.
	List() []string

	// Describe returns directory information for all registered agents in
	// registration order.
	Describe() []Info

	// Invoke calls the named agent with a message and optional context.
	// Returns ErrUnavailable if the name is unknown and wraps ErrCallFailed
	// on transport or model errors.
	Invoke(ctx context.Context, name, message, priorContext string) (string, error)
}

// LocalRegistry is a single-process registry backed by an in-memory map.
// Invocations are rate limited per agent and recorded as metrics.
type LocalRegistry struct {
	mu      sync.RWMutex
	agents  map[string]Agent
	order   []string // Registration order for deterministic listing
	limiter *rate.Limiter
}

// LocalRegistryOption configures a LocalRegistry.
type LocalRegistryOption func(*LocalRegistry)

// WithRateLimit caps agent invocations at requestsPerSecond with the given
// burst. Zero or negative values disable limiting.
func WithRateLimit(requestsPerSecond float64, burst int) LocalRegistryOption {
	return func(r *LocalRegistry) {
		if requestsPerSecond > 0 && burst > 0 {
			r.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
		}
	}
}

// NewLocalRegistry creates a new local registry.
func NewLocalRegistry(opts ...LocalRegistryOption) *LocalRegistry {
	r := &LocalRegistry{
		agents: make(map[string]Agent),
		order:  make([]string, 0),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds an agent to the registry.
func (r *LocalRegistry) Register(a Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := a.Name()
	if _, exists := r.agents[name]; exists {
		return fmt.Errorf("agent %s already registered", name)
	}

	r.agents[name] = a
	r.order = append(r.order, name)
	return nil
}

// Unregister removes an agent from the registry.
func (r *LocalRegistry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.agents[name]; !exists {
		return fmt.Errorf("agent %s not found", name)
	}
	delete(r.agents, name)

	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// List returns all registered agent names in registration order.
func (r *LocalRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Describe returns directory information for all registered agents.
func (r *LocalRegistry) Describe() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.order))
	for _, name := range r.order {
		a := r.agents[name]
		infos = append(infos, Info{Name: a.Name(), Type: a.Type()})
	}
	return infos
}

// Invoke calls the named agent with a message and optional context.
func (r *LocalRegistry) Invoke(ctx context.Context, name, message, priorContext string) (string, error) {
	r.mu.RLock()
	a, exists := r.agents[name]
	r.mu.RUnlock()

	if !exists {
		observability.RecordAgentInvocation(name, "unavailable")
		return "", fmt.Errorf("%w: %s", ErrUnavailable, name)
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			observability.RecordAgentInvocation(name, "rate_limited")
			return "", fmt.Errorf("rate limit for agent %s: %w", name, err)
		}
	}

	start := time.Now()
	response, err := a.Respond(ctx, message, priorContext)
	observability.RecordAgentInvocationDuration(name, time.Since(start))

	if err != nil {
		// Context errors must stay visible to the engine's deadline handling.
		if ctx.Err() != nil {
			observability.RecordAgentInvocation(name, "cancelled")
			return "", ctx.Err()
		}
		observability.RecordAgentInvocation(name, "error")
		return "", fmt.Errorf("%w: agent %s: %v", ErrCallFailed, name, err)
	}

	observability.RecordAgentInvocation(name, "ok")
	return response, nil
}
