package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is how long an idle session is kept.
const DefaultTTL = 2 * time.Hour

// Manager holds the sessions of the HTTP driver, keyed by uuid.
type Manager struct {
	deps     Deps
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*Machine
	mu       sync.RWMutex
}

// NewManager creates a manager whose sessions share deps.
func NewManager(deps Deps, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		deps:     deps,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*Machine),
	}
}

// Create starts a new session in PhaseNotStarted.
func (m *Manager) Create() (string, *Machine) {
	id := uuid.NewString()
	mc := NewMachine(id, m.deps)
	mc.now = m.now
	mc.lastActive = m.now()

	m.mu.Lock()
	m.sessions[id] = mc
	m.mu.Unlock()
	return id, mc
}

// Get returns the session for id. Expired sessions are reported as missing
// even before the cleanup pass removes them.
func (m *Manager) Get(id string) (*Machine, error) {
	m.mu.RLock()
	mc, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || m.expired(mc, m.now()) {
		return nil, ErrNotFound
	}
	return mc, nil
}

// Delete drops a session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

// CleanupExpired removes idle sessions and returns how many went.
func (m *Manager) CleanupExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for id, mc := range m.sessions {
		if m.expired(mc, now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Stats returns session counts.
func (m *Manager) Stats() map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	stats := map[string]int{"total": len(m.sessions), "active": 0, "busy": 0, "concluded": 0}
	for _, mc := range m.sessions {
		if !m.expired(mc, now) {
			stats["active"]++
		}
		if mc.Busy() {
			stats["busy"]++
		}
		if mc.Phase() == PhaseConcluded {
			stats["concluded"]++
		}
	}
	return stats
}

// A session with an operation in flight never expires.
func (m *Manager) expired(mc *Machine, now time.Time) bool {
	return !mc.Busy() && now.Sub(mc.LastActive()) > m.ttl
}
