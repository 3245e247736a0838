package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/nimbuscast/dialogserver/internal/control"
	"github.com/nimbuscast/dialogserver/internal/metrics"
)

// Registry is the process-wide set of active sessions.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Create allocates a new session bound to the given persona and
// registers it under a fresh id.
func (r *Registry) Create(personaID string) *Session {
	defaults := control.PersonaDefaults(personaID)
	name := control.PersonaName(personaID)
	s := New(uuid.NewString(), personaID, name, defaults)

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	metrics.SessionsTotal.Inc()
	return s
}

// Get returns the session for id, or nil if it does not exist.
func (r *Registry) Get(id string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// GetOrErr returns the session for id, or an error if it does not exist.
func (r *Registry) GetOrErr(id string) (*Session, error) {
	s := r.Get(id)
	if s == nil {
		return nil, fmt.Errorf("session: %q not found", id)
	}
	return s, nil
}

// Close cancels any in-flight turn and removes the session from the registry.
func (r *Registry) Close(id string) {
	r.mu.Lock()
	s := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if s != nil {
		s.CancelCurrentTurn()
	}
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
