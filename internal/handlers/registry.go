package handlers

import (
	"sync"

	"github.com/pKa1/eg2/internal/engine"
)

// HostedSession pairs a session controller with its browser bridge.
type HostedSession struct {
	Controller *engine.Controller
	Bridge     *Bridge
}

// Registry holds the live sessions keyed by session id.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*HostedSession
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*HostedSession)}
}

func (r *Registry) Add(id string, s *HostedSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = s
}

func (r *Registry) Get(id string) (*HostedSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove unregisters and returns the session so the caller can tear it down.
func (r *Registry) Remove(id string) (*HostedSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	return s, ok
}
