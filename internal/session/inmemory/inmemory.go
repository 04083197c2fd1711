// Package inmemory implements the session registry as a mutex-guarded map.
// Registry content is lost on process restart.
package inmemory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/atlasagent/atlas/internal/session"
)

type Registry struct {
	mu          sync.RWMutex
	sessions    map[string]*session.Session
	maxSessions int // 0 = unbounded
}

// New creates a registry holding at most maxSessions records; when the bound
// is reached, the least recently active session is evicted.
func New(maxSessions int) *Registry {
	return &Registry{
		sessions:    make(map[string]*session.Session),
		maxSessions: maxSessions,
	}
}

func (r *Registry) GetOrCreate(id string) session.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id != "" {
		if s, ok := r.sessions[id]; ok {
			return copySession(s)
		}
	}
	if id == "" {
		id = uuid.NewString()
	}
	if r.maxSessions > 0 && len(r.sessions) >= r.maxSessions {
		r.evictOldest()
	}
	now := time.Now()
	s := &session.Session{
		ID:           id,
		CreatedAt:    now,
		Messages:     []session.Message{},
		Artifacts:    []map[string]any{},
		LastActivity: now,
	}
	r.sessions[id] = s
	return copySession(s)
}

// evictOldest removes the least recently active session. Caller holds the lock.
func (r *Registry) evictOldest() {
	var oldest string
	var oldestAt time.Time
	for id, s := range r.sessions {
		if oldest == "" || s.LastActivity.Before(oldestAt) {
			oldest = id
			oldestAt = s.LastActivity
		}
	}
	if oldest != "" {
		delete(r.sessions, oldest)
	}
}

func (r *Registry) Get(id string) (session.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}
	return copySession(s), nil
}

func (r *Registry) AppendTurn(id, userText, assistantText string, artifacts []map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return session.ErrNotFound
	}
	now := time.Now()
	s.Messages = append(s.Messages,
		session.Message{Role: "user", Content: userText, Timestamp: now},
		session.Message{Role: "assistant", Content: assistantText, Timestamp: now},
	)
	s.Artifacts = append(s.Artifacts, artifacts...)
	s.LastActivity = now
	return nil
}

func (r *Registry) List() []session.Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]session.Summary, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, session.Summary{
			SessionID:    s.ID,
			CreatedAt:    s.CreatedAt,
			MessageCount: len(s.Messages),
			LastActivity: s.LastActivity,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return session.ErrNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *Registry) ListArtifacts(id string) ([]map[string]any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	out := make([]map[string]any, len(s.Artifacts))
	copy(out, s.Artifacts)
	return out, nil
}

func copySession(s *session.Session) session.Session {
	out := *s
	out.Messages = append([]session.Message(nil), s.Messages...)
	out.Artifacts = append([]map[string]any(nil), s.Artifacts...)
	return out
}
