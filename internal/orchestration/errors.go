package orchestration

import "errors"

// Orchestration error kinds. Per-agent failures are handled inside the
// engine; only these surface to the caller.
var (
	// ErrTimeout is returned when the request deadline expires. Callers can
	// retry with fewer agents or a shorter message.
	ErrTimeout = errors.New("orchestration timed out")

	// ErrCancelled is returned when the caller cancels the request.
	ErrCancelled = errors.New("orchestration cancelled")

	// ErrInternal wraps unexpected planner, store, or assembler failures.
	ErrInternal = errors.New("internal orchestration error")
)
