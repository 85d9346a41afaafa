package sessions

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is an in-process session store keyed by identifier. It is the
// shared mutable state described by the flow; no locking beyond the map mutex
// is introduced, so two requests for the same identifier may interleave.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*PendingSession
}

// NewMemoryStore creates an empty in-process store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*PendingSession),
	}
}

// Get returns the session for the identifier, or nil if none exists
func (m *MemoryStore) Get(ctx context.Context, sessionID string) (*PendingSession, error) {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if s.Expired(time.Now()) {
		m.mu.Lock()
		delete(m.sessions, sessionID)
		m.mu.Unlock()
		return nil, nil
	}

	// Copy so callers cannot mutate the stored record.
	out := *s
	return &out, nil
}

// Put stores a session under its identifier
func (m *MemoryStore) Put(ctx context.Context, s *PendingSession) error {
	if s.ID == "" {
		return fmt.Errorf("sessions: missing session id")
	}

	stored := *s
	m.mu.Lock()
	m.sessions[s.ID] = &stored
	m.mu.Unlock()
	return nil
}

// Delete removes a session; absent identifiers are a no-op
func (m *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored sessions
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
