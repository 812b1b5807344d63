package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nhcloud/agentframework-workshop-sub001/chat"
	"github.com/nhcloud/agentframework-workshop-sub001/pkg/observability"
)

// Manager manages session lifecycle over a storage backend. It satisfies the
// orchestration engine's session store contract and adds history access,
// listing, and expiry cleanup. Manager is safe for concurrent use.
type Manager struct {
	backend StorageBackend
}

// NewManager creates a session manager with the given storage backend.
func NewManager(backend StorageBackend) *Manager {
	return &Manager{backend: backend}
}

// Create creates a new empty session and returns its ID.
func (m *Manager) Create(ctx context.Context) (string, error) {
	now := time.Now().UTC()
	meta := &Metadata{
		ID:        uuid.New().String(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := m.backend.SaveSession(ctx, meta); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}

	m.updateActiveSessions(ctx)
	return meta.ID, nil
}

// Append adds a turn to a session, creating the session on first use.
func (m *Manager) Append(ctx context.Context, sessionID string, turn *chat.Turn) error {
	meta, err := m.backend.LoadSession(ctx, sessionID)
	if errors.Is(err, ErrSessionNotFound) {
		now := time.Now().UTC()
		meta = &Metadata{ID: sessionID, CreatedAt: now, UpdatedAt: now}
	} else if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	if err := m.backend.AppendTurn(ctx, sessionID, turn); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}

	meta.TurnCount++
	meta.UpdatedAt = time.Now().UTC()
	if err := m.backend.SaveSession(ctx, meta); err != nil {
		return fmt.Errorf("update session metadata: %w", err)
	}
	return nil
}

// History returns a session's full turn sequence in append order.
// Returns ErrSessionNotFound for unknown sessions.
func (m *Manager) History(ctx context.Context, sessionID string) ([]*chat.Turn, error) {
	if _, err := m.backend.LoadSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return m.backend.LoadTurns(ctx, sessionID)
}

// List returns session metadata matching the filter options.
func (m *Manager) List(ctx context.Context, opts ListOptions) ([]*Metadata, error) {
	return m.backend.ListSessions(ctx, opts)
}

// Delete removes a session and all its turns.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	if err := m.backend.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	m.updateActiveSessions(ctx)
	return nil
}

// CleanupExpired deletes every session whose last update is older than
// maxAge and returns the number removed.
func (m *Manager) CleanupExpired(ctx context.Context, maxAge time.Duration) (int, error) {
	sessions, err := m.backend.ListSessions(ctx, ListOptions{})
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}

	cutoff := time.Now().UTC().Add(-maxAge)
	removed := 0
	for _, meta := range sessions {
		if meta.UpdatedAt.After(cutoff) {
			continue
		}
		if err := m.backend.DeleteSession(ctx, meta.ID); err != nil {
			return removed, fmt.Errorf("delete session %s: %w", meta.ID, err)
		}
		removed++
	}

	if removed > 0 {
		observability.RecordSessionsExpired(removed)
		m.updateActiveSessions(ctx)
	}
	return removed, nil
}

// Ping verifies the backend is reachable. Backends without a connection
// (memory, file) always report healthy.
func (m *Manager) Ping(ctx context.Context) error {
	type pinger interface {
		Ping(ctx context.Context) error
	}
	if p, ok := m.backend.(pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close releases the backend.
func (m *Manager) Close() error {
	return m.backend.Close()
}

func (m *Manager) updateActiveSessions(ctx context.Context) {
	sessions, err := m.backend.ListSessions(ctx, ListOptions{})
	if err != nil {
		return
	}
	observability.SetActiveSessions(len(sessions))
}
