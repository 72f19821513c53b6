package session

import "sync"

// Manager tracks live sessions so the daemon can enumerate and tear them
// down on shutdown. Safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	// OnClose, when set, receives the summary of every session removed
	// through the manager (persistence hook).
	OnClose func(Summary)
}

// NewManager constructs an empty manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*Session)}
}

// Add registers a session.
func (m *Manager) Add(s *Session) {
	if s == nil {
		return
	}
	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
}

// Get looks up a live session by id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Count reports the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Remove closes the session and hands its summary to OnClose. Removing an
// unknown id is a no-op.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	hook := m.OnClose
	m.mu.Unlock()
	if !ok {
		return
	}
	summary := s.Close()
	if hook != nil {
		hook(summary)
	}
}

// CloseAll tears down every live session, used at daemon shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		all = append(all, id)
	}
	m.mu.Unlock()
	for _, id := range all {
		m.Remove(id)
	}
}
