package session

import (
	"context"
	"errors"

	"github.com/nhcloud/agentframework-workshop-sub001/chat"
)

// Common errors for storage operations.
var (
	// ErrSessionNotFound is returned when a session doesn't exist.
	ErrSessionNotFound = errors.New("session not found")
	// ErrStorageClosed is returned when operating on a closed storage backend.
	ErrStorageClosed = errors.New("storage backend is closed")
)

// StorageBackend abstracts session persistence.
// Implementations must be safe for concurrent use.
type StorageBackend interface {
	// SaveSession creates or updates session metadata.
	SaveSession(ctx context.Context, meta *Metadata) error

	// LoadSession retrieves session metadata by ID.
	// Returns ErrSessionNotFound if the session doesn't exist.
	LoadSession(ctx context.Context, sessionID string) (*Metadata, error)

	// DeleteSession removes a session and all its turns.
	DeleteSession(ctx context.Context, sessionID string) error

	// ListSessions returns session metadata matching the filter options,
	// ordered by session ID.
	ListSessions(ctx context.Context, opts ListOptions) ([]*Metadata, error)

	// AppendTurn adds a turn to a session's log (append-only).
	AppendTurn(ctx context.Context, sessionID string, turn *chat.Turn) error

	// LoadTurns retrieves all turns for a session in append order.
	LoadTurns(ctx context.Context, sessionID string) ([]*chat.Turn, error)

	// Close releases any resources held by the backend.
	Close() error
}

// ListOptions provides filtering for session listing.
type ListOptions struct {
	// Limit caps the number of results. Zero means no cap.
	Limit int
	// Offset skips the first N results.
	Offset int
}
