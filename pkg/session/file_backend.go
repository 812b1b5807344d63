package session

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/nhcloud/agentframework-workshop-sub001/chat"
)

// ErrInvalidPathComponent is returned when a path component contains unsafe characters.
var ErrInvalidPathComponent = errors.New("invalid path component: contains path separator or traversal sequence")

// validatePathComponent checks that a string is safe to use as a path component.
// It rejects empty strings, path separators, and traversal sequences.
func validatePathComponent(s string) error {
	if s == "" {
		return errors.New("path component cannot be empty")
	}
	if strings.ContainsAny(s, `/\`) || strings.Contains(s, "..") {
		return ErrInvalidPathComponent
	}
	return nil
}

// FileBackend implements StorageBackend using JSONL files.
// Storage layout:
//
//	<base-dir>/
//	  ├── sessions.json          # Session index
//	  └── <session-id>.jsonl     # Turn log, one turn per line
type FileBackend struct {
	baseDir string
	mu      sync.RWMutex
	closed  bool
}

// NewFileBackend creates a new file-based storage backend.
// If baseDir is empty, uses ~/.agent-workshop/sessions.
func NewFileBackend(baseDir string) (*FileBackend, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		baseDir = filepath.Join(home, ".agent-workshop", "sessions")
	}

	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create base directory: %w", err)
	}

	return &FileBackend{
		baseDir: baseDir,
	}, nil
}

func (f *FileBackend) indexPath() string {
	return filepath.Join(f.baseDir, "sessions.json")
}

func (f *FileBackend) turnsPath(sessionID string) string {
	return filepath.Join(f.baseDir, sessionID+".jsonl")
}

// loadIndex reads the session index. Caller must hold the lock.
func (f *FileBackend) loadIndex() (map[string]*Metadata, error) {
	index := make(map[string]*Metadata)

	data, err := os.ReadFile(f.indexPath())
	if err != nil {
		if os.IsNotExist(err) {
			return index, nil
		}
		return nil, fmt.Errorf("read sessions index: %w", err)
	}

	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("parse sessions index: %w", err)
	}
	return index, nil
}

// writeIndex persists the session index. Caller must hold the lock.
func (f *FileBackend) writeIndex(index map[string]*Metadata) error {
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sessions index: %w", err)
	}
	if err := os.WriteFile(f.indexPath(), data, 0600); err != nil {
		return fmt.Errorf("write sessions index: %w", err)
	}
	return nil
}

// SaveSession creates or updates session metadata.
func (f *FileBackend) SaveSession(ctx context.Context, meta *Metadata) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrStorageClosed
	}

	if err := validatePathComponent(meta.ID); err != nil {
		return fmt.Errorf("invalid session ID: %w", err)
	}

	index, err := f.loadIndex()
	if err != nil {
		return err
	}
	index[meta.ID] = meta
	return f.writeIndex(index)
}

// LoadSession retrieves session metadata by ID.
func (f *FileBackend) LoadSession(ctx context.Context, sessionID string) (*Metadata, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, ErrStorageClosed
	}

	if err := validatePathComponent(sessionID); err != nil {
		return nil, fmt.Errorf("invalid session ID: %w", err)
	}

	index, err := f.loadIndex()
	if err != nil {
		return nil, err
	}

	meta, ok := index[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return meta, nil
}

// DeleteSession removes a session and all its turns.
func (f *FileBackend) DeleteSession(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrStorageClosed
	}

	if err := validatePathComponent(sessionID); err != nil {
		return fmt.Errorf("invalid session ID: %w", err)
	}

	index, err := f.loadIndex()
	if err != nil {
		return err
	}
	delete(index, sessionID)
	if err := f.writeIndex(index); err != nil {
		return err
	}

	if err := os.Remove(f.turnsPath(sessionID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove turn log: %w", err)
	}
	return nil
}

// ListSessions returns session metadata ordered by session ID.
func (f *FileBackend) ListSessions(ctx context.Context, opts ListOptions) ([]*Metadata, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, ErrStorageClosed
	}

	index, err := f.loadIndex()
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(index))
	for id := range index {
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
		sessions = append(sessions, index[id])
	}
	return sessions, nil
}

// AppendTurn adds a turn to a session's JSONL log.
func (f *FileBackend) AppendTurn(ctx context.Context, sessionID string, turn *chat.Turn) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrStorageClosed
	}

	if err := validatePathComponent(sessionID); err != nil {
		return fmt.Errorf("invalid session ID: %w", err)
	}

	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}

	file, err := os.OpenFile(f.turnsPath(sessionID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600) // #nosec G304 - session ID validated
	if err != nil {
		return fmt.Errorf("open turn log: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

// LoadTurns retrieves all turns for a session in append order.
func (f *FileBackend) LoadTurns(ctx context.Context, sessionID string) ([]*chat.Turn, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.closed {
		return nil, ErrStorageClosed
	}

	if err := validatePathComponent(sessionID); err != nil {
		return nil, fmt.Errorf("invalid session ID: %w", err)
	}

	file, err := os.Open(f.turnsPath(sessionID)) // #nosec G304 - session ID validated
	if err != nil {
		if os.IsNotExist(err) {
			return []*chat.Turn{}, nil
		}
		return nil, fmt.Errorf("open turn log: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	turns := make([]*chat.Turn, 0)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var turn chat.Turn
		if err := json.Unmarshal(line, &turn); err != nil {
			return nil, fmt.Errorf("unmarshal turn: %w", err)
		}
		turns = append(turns, &turn)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan turn log: %w", err)
	}
	return turns, nil
}

// Close releases resources held by the backend.
func (f *FileBackend) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
