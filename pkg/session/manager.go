// Package session tracks client liveness. Idle sessions are warned and
// then destroyed by an explicit sweep; enforcement (disconnecting the
// client) is the transport layer's job.
package session

import (
	"sync"
	"time"

	"github.com/dropbox/godropbox/time2"
)

const (
	// DefaultIdleTimeout destroys a session with no activity for this long.
	DefaultIdleTimeout = 30 * time.Minute
	// DefaultWarnAfter issues a warning once a session has been idle this
	// long.
	DefaultWarnAfter = 25 * time.Minute
)

// Session is one client's liveness record.
type Session struct {
	ClientID      string
	Created       time.Time
	LastActivity  time.Time
	WarningIssued bool
}

// Manager owns all live sessions.
type Manager struct {
	mu          sync.Mutex
	clock       time2.Clock
	idleTimeout time.Duration
	warnAfter   time.Duration
	sessions    map[string]*Session
}

// NewManager creates a session manager; zero durations take the defaults.
func NewManager(clock time2.Clock, idleTimeout, warnAfter time.Duration) *Manager {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	if warnAfter <= 0 {
		warnAfter = DefaultWarnAfter
	}
	return &Manager{
		clock:       clock,
		idleTimeout: idleTimeout,
		warnAfter:   warnAfter,
		sessions:    make(map[string]*Session),
	}
}

// Touch records activity for the client, creating the session on first
// contact and clearing any idle warning.
func (m *Manager) Touch(clientID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()
	s, ok := m.sessions[clientID]
	if !ok {
		s = &Session{ClientID: clientID, Created: now}
		m.sessions[clientID] = s
	}
	s.LastActivity = now
	s.WarningIssued = false
	return s
}

// Get returns the session, or nil.
func (m *Manager) Get(clientID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[clientID]
}

// Destroy removes a session.
func (m *Manager) Destroy(clientID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, clientID)
}

// SweepIdle is the scheduled idle check: sessions idle past warnAfter get a
// warning once, and sessions idle past the timeout are destroyed. It
// returns the client ids warned and destroyed in this pass so the caller
// can notify and disconnect.
func (m *Manager) SweepIdle() (warned, destroyed []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()
	for id, s := range m.sessions {
		idle := now.Sub(s.LastActivity)
		if idle >= m.idleTimeout {
			delete(m.sessions, id)
			destroyed = append(destroyed, id)
			continue
		}
		if idle >= m.warnAfter && !s.WarningIssued {
			s.WarningIssued = true
			warned = append(warned, id)
		}
	}
	return warned, destroyed
}

// Len returns the live session count.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
