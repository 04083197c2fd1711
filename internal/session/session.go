// Package session defines the process-wide conversation registry: one record
// per session id accumulating messages and artifact snapshots.
package session

import (
	"errors"
	"time"
)

// ErrNotFound signals a reference to an unknown session id.
var ErrNotFound = errors.New("session not found")

// Message is one conversation entry.
type Message struct {
	Role      string    `json:"role"` // user or assistant
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is a named conversation thread. The registry owns the canonical
// record; Artifacts holds detached snapshots of artifacts produced during
// the session's turns, not live references.
type Session struct {
	ID           string           `json:"id"`
	CreatedAt    time.Time        `json:"created_at"`
	Messages     []Message        `json:"messages"`
	Artifacts    []map[string]any `json:"artifacts"`
	LastActivity time.Time        `json:"last_activity"`
}

// Summary is the listing view of a session.
type Summary struct {
	SessionID    string    `json:"session_id"`
	CreatedAt    time.Time `json:"created_at"`
	MessageCount int       `json:"message_count"`
	LastActivity time.Time `json:"last_activity"`
}

// Registry maps session ids to conversation state. Implementations must be
// safe for concurrent use.
type Registry interface {
	// GetOrCreate returns the session for id, creating it with empty
	// histories when absent. An empty id allocates a fresh one.
	GetOrCreate(id string) Session

	// Get returns a copy of the session or ErrNotFound.
	Get(id string) (Session, error)

	// AppendTurn records one completed turn: the user message, the assistant
	// reply, and snapshots of any artifacts produced.
	AppendTurn(id, userText, assistantText string, artifacts []map[string]any) error

	// List returns summaries of all sessions.
	List() []Summary

	// Delete removes the session or returns ErrNotFound.
	Delete(id string) error

	// ListArtifacts returns the artifact snapshots accumulated by a session.
	ListArtifacts(id string) ([]map[string]any, error)
}
