package session

import (
	"context"
	"sort"
	"sync"

	"github.com/nhcloud/agentframework-workshop-sub001/chat"
)

// MemoryBackend implements StorageBackend with process-local maps. It is the
// default backend for workshops and tests; sessions do not survive restarts.
type MemoryBackend struct {
	mu     sync.RWMutex
	meta   map[string]*Metadata
	turns  map[string][]*chat.Turn
	closed bool
}

// NewMemoryBackend creates an in-memory storage backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		meta:  make(map[string]*Metadata),
		turns: make(map[string][]*chat.Turn),
	}
}

// SaveSession creates or updates session metadata.
func (b *MemoryBackend) SaveSession(ctx context.Context, meta *Metadata) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrStorageClosed
	}

	copied := *meta
	b.meta[meta.ID] = &copied
	return nil
}

// LoadSession retrieves session metadata by ID.
func (b *MemoryBackend) LoadSession(ctx context.Context, sessionID string) (*Metadata, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, ErrStorageClosed
	}

	meta, ok := b.meta[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	copied := *meta
	return &copied, nil
}

// DeleteSession removes a session and all its turns.
func (b *MemoryBackend) DeleteSession(ctx context.Context, sessionID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrStorageClosed
	}

	delete(b.meta, sessionID)
	delete(b.turns, sessionID)
	return nil
}

// ListSessions returns session metadata ordered by session ID.
func (b *MemoryBackend) ListSessions(ctx context.Context, opts ListOptions) ([]*Metadata, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, ErrStorageClosed
	}

	ids := make([]string, 0, len(b.meta))
	for id := range b.meta {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	start := opts.Offset
	if start >= len(ids) {
		return []*Metadata{}, nil
	}
	end := len(ids)
	if opts.Limit > 0 && start+opts.Limit < end {
		end = start + opts.Limit
	}

	sessions := make([]*Metadata, 0, end-start)
	for _, id := range ids[start:end] {
		copied := *b.meta[id]
		sessions = append(sessions, &copied)
	}
	return sessions, nil
}

// AppendTurn adds a turn to a session's log.
func (b *MemoryBackend) AppendTurn(ctx context.Context, sessionID string, turn *chat.Turn) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrStorageClosed
	}

	b.turns[sessionID] = append(b.turns[sessionID], turn)
	return nil
}

// LoadTurns retrieves all turns for a session in append order.
func (b *MemoryBackend) LoadTurns(ctx context.Context, sessionID string) ([]*chat.Turn, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, ErrStorageClosed
	}

	turns := make([]*chat.Turn, len(b.turns[sessionID]))
	copy(turns, b.turns[sessionID])
	return turns, nil
}

// Close releases the backend.
func (b *MemoryBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.meta = nil
	b.turns = nil
	return nil
}
