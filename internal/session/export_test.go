package session

import "time"

// SetClock replaces the manager clock; sessions created afterwards share it.
func (m *Manager) SetClock(now func() time.Time) { m.now = now }
