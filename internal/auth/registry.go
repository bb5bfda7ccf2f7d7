package auth

import (
	"sync"
	"time"

	"walley/internal/models"
)

// Session is an identity bound to a token at login time.
type Session struct {
	Identity models.Identity
	IssuedAt time.Time
}

// Registry maps session tokens to identities for the lifetime of the process.
// It is safe for concurrent use. Nothing is persisted: a restart logs everyone out.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]Session
	ttl      time.Duration
	now      func() time.Time
}

// NewRegistry creates an empty registry. A ttl of zero disables expiry.
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		sessions: make(map[string]Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// TTL returns the configured session lifetime, zero meaning unlimited.
func (r *Registry) TTL() time.Duration {
	return r.ttl
}

func (r *Registry) expired(s Session, now time.Time) bool {
	return r.ttl > 0 && now.Sub(s.IssuedAt) >= r.ttl
}

// Insert binds token to identity.
func (r *Registry) Insert(token string, identity models.Identity) Session {
	s := Session{Identity: identity, IssuedAt: r.now()}
	r.mu.Lock()
	r.sessions[token] = s
	r.mu.Unlock()
	return s
}

// Lookup returns the live session bound to token.
func (r *Registry) Lookup(token string) (Session, bool) {
	r.mu.RLock()
	s, ok := r.sessions[token]
	r.mu.RUnlock()
	if !ok || r.expired(s, r.now()) {
		return Session{}, false
	}
	return s, true
}

// Remove unbinds token. It reports whether a live session was bound to it.
func (r *Registry) Remove(token string) bool {
	r.mu.Lock()
	s, ok := r.sessions[token]
	delete(r.sessions, token)
	r.mu.Unlock()
	return ok && !r.expired(s, r.now())
}

// RemoveEmail unbinds every session of the user with the given email and
// returns how many were bound.
func (r *Registry) RemoveEmail(email string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for token, s := range r.sessions {
		if s.Identity.Email == email {
			delete(r.sessions, token)
			n++
		}
	}
	return n
}

// Sweep drops expired sessions and returns how many were dropped.
func (r *Registry) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for token, s := range r.sessions {
		if r.expired(s, now) {
			delete(r.sessions, token)
			n++
		}
	}
	return n
}

// Len returns the number of bound tokens, expired ones included until swept.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Clear drops every session.
func (r *Registry) Clear() {
	r.mu.Lock()
	clear(r.sessions)
	r.mu.Unlock()
}
