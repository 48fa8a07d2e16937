package termsession

import (
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/vt100go/termengine/pkg/logging"
)

// Manager owns the registry of live sessions rooted at a control path on
// disk, mirroring how each session's directory holds its own info.json.
type Manager struct {
	controlPath string

	mu      sync.RWMutex
	running map[string]*Session
}

// NewManager returns a Manager rooted at controlPath.
func NewManager(controlPath string) *Manager {
	return &Manager{controlPath: controlPath, running: make(map[string]*Session)}
}

// CreateSession spawns a new shell+emulator session under a fresh ID.
func (m *Manager) CreateSession(cfg Config) (*Session, error) {
	if err := os.MkdirAll(m.controlPath, 0o755); err != nil {
		return nil, NewSessionErrorWithCause("failed to create control directory", ErrControlPathNotFound, "", err)
	}
	s, err := newSession(m.controlPath, cfg)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.running[s.ID] = s
	m.mu.Unlock()
	return s, nil
}

// CreateSessionWithID spawns a new session under a caller-chosen ID,
// failing if one is already registered under it.
func (m *Manager) CreateSessionWithID(id string, cfg Config) (*Session, error) {
	m.mu.RLock()
	_, exists := m.running[id]
	m.mu.RUnlock()
	if exists {
		return nil, NewSessionError("session already exists", ErrSessionAlreadyExists, id)
	}

	if err := os.MkdirAll(m.controlPath, 0o755); err != nil {
		return nil, NewSessionErrorWithCause("failed to create control directory", ErrControlPathNotFound, id, err)
	}
	s, err := newSessionWithID(m.controlPath, id, cfg)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.running[s.ID] = s
	m.mu.Unlock()
	return s, nil
}

// GetSession returns the session for id, preferring the live in-memory
// registry and falling back to the on-disk info for sessions created by
// a previous Manager instance (those carry Info only, no live emulator).
func (m *Manager) GetSession(id string) (*Session, error) {
	m.mu.RLock()
	if s, ok := m.running[id]; ok {
		m.mu.RUnlock()
		return s, nil
	}
	m.mu.RUnlock()
	return loadSession(m.controlPath, id)
}

// FindSession resolves nameOrID against every known session's ID, name,
// or ID prefix.
func (m *Manager) FindSession(nameOrID string) (*Session, error) {
	infos, err := m.ListSessions()
	if err != nil {
		return nil, err
	}
	for _, info := range infos {
		if info.ID == nameOrID || info.Name == nameOrID || strings.HasPrefix(info.ID, nameOrID) {
			return m.GetSession(info.ID)
		}
	}
	return nil, ErrSessionNotFoundError(nameOrID)
}

// ListSessions enumerates every session's metadata, refreshing each
// session's liveness status first.
func (m *Manager) ListSessions() ([]Info, error) {
	entries, err := os.ReadDir(m.controlPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	infos := make([]Info, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		s, err := m.GetSession(entry.Name())
		if err != nil {
			logging.Debugf("manager: skipping session %s: %v", entry.Name(), err)
			continue
		}
		if err := s.UpdateStatus(); err != nil {
			logging.Warnf("manager: failed to update status for %s: %v", entry.Name(), err)
		}
		infos = append(infos, s.Info())
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].StartedAt.After(infos[j].StartedAt) })
	return infos, nil
}

// RemoveSession stops (if running) and deletes a session's on-disk state.
func (m *Manager) RemoveSession(id string) error {
	m.mu.Lock()
	s, ok := m.running[id]
	delete(m.running, id)
	m.mu.Unlock()

	if ok {
		if err := s.Stop(); err != nil {
			logging.Warnf("manager: error stopping session %s: %v", id, err)
		}
	}
	return os.RemoveAll(sessionPath(m.controlPath, id))
}

// UpdateAllSessionStatuses refreshes the liveness status of every known
// session.
func (m *Manager) UpdateAllSessionStatuses() error {
	_, err := m.ListSessions()
	return err
}
