// Package session provides session persistence for the chat orchestrator.
// A session is an append-only turn log plus summary metadata, stored in
// memory, on disk, or in Redis.
package session

import (
	"time"
)

// Metadata holds session summary information.
// This is stored separately for quick listing without loading all turns.
type Metadata struct {
	// ID is the unique session identifier.
	ID string `json:"id"`
	// CreatedAt is when the session was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the session was last appended to.
	UpdatedAt time.Time `json:"updated_at"`
	// TurnCount is the number of turns in the session.
	TurnCount int `json:"turn_count"`
}
