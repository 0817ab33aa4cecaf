package notify

import (
	"sync"
	"time"

	"github.com/erazemk/zastavljalnica/internal/alerts"
)

// Session is one viewer's set of read alert ids. It is safe for concurrent use.
type Session struct {
	Viewer  alerts.Viewer
	expires time.Time

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewSession returns an empty session for viewer.
func NewSession(viewer alerts.Viewer) *Session {
	return &Session{Viewer: viewer, seen: make(map[string]struct{})}
}

// MarkRead records one alert id as read.
func (s *Session) MarkRead(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[id] = struct{}{}
}

// IsRead reports whether id has been read in this session.
func (s *Session) IsRead(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[id]
	return ok
}

// Sessions holds read-tracking sessions keyed by token id. Each session lives
// until its token expires.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessions returns an empty registry.
func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[string]*Session)}
}

// Get returns the session for key, creating it for viewer if needed.
// Sessions expired at now are dropped first.
func (r *Sessions) Get(key string, viewer alerts.Viewer, expires, now time.Time) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	for k, s := range r.sessions {
		if !s.expires.IsZero() && !s.expires.After(now) {
			delete(r.sessions, k)
		}
	}

	s, ok := r.sessions[key]
	if !ok || s.Viewer != viewer {
		s = NewSession(viewer)
		s.expires = expires
		r.sessions[key] = s
	}
	return s
}

// Len returns the number of live sessions.
func (r *Sessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Delete drops the session for key, if any.
func (r *Sessions) Delete(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, key)
}
