// Package checkpoint provides durable session state storage so a
// conversation can resume after a crash or across turns.
//
// One session key maps to one stored snapshot: Save overwrites the previous
// snapshot for the key, Load returns the latest. Stores must isolate
// distinct keys from each other; write serialization within a key is the
// caller's job (the processing loop holds a per-session lock).
package checkpoint

import (
	"errors"
	"time"
)

// Store persists the latest snapshot per session.
// Implementations must be safe for concurrent use across sessions.
type Store interface {
	// Save stores the snapshot for a session, replacing any previous one.
	Save(sessionID string, data []byte) error

	// Load retrieves the latest snapshot for a session.
	// Returns ErrNotFound if the session has never been saved.
	Load(sessionID string) ([]byte, error)

	// Delete removes a session's snapshot.
	// Returns nil if the session doesn't exist.
	Delete(sessionID string) error

	// Sessions lists metadata for all stored sessions, most recent first.
	Sessions() ([]Info, error)

	// Close releases any resources (connections, files).
	Close() error
}

// Info provides session metadata without loading full state.
type Info struct {
	SessionID string
	Step      int
	Timestamp time.Time
	Size      int64
}

// Sentinel errors for snapshot operations.
var (
	// ErrNotFound indicates no snapshot exists for the session.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("checkpoint store closed")
)
