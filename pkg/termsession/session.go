package termsession

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/vt100go/termengine/pkg/emulator"
	"github.com/vt100go/termengine/pkg/logging"
	"github.com/vt100go/termengine/pkg/recording"
	"github.com/vt100go/termengine/pkg/termio"
)

// GenerateID returns a new unique session identifier.
func GenerateID() string { return uuid.New().String() }

// Status is the lifecycle state of a Session's underlying shell.
type Status string

const (
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusExited   Status = "exited"
)

// Config describes the shell a new Session should spawn.
type Config struct {
	Name   string
	Argv   []string
	Cwd    string
	Term   string
	Width  int
	Height int
	// RecordingDir, if non-empty, enables recording for the session's
	// emulator (see emulator.New).
	RecordingDir string
}

// Info is the on-disk, JSON-serializable metadata for a session.
type Info struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Cmdline   string    `json:"cmdline"`
	Cwd       string    `json:"cwd"`
	Pid       int       `json:"pid,omitempty"`
	Status    Status    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Term      string    `json:"term"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
}

// Session pairs a spawned shell with the emulator driving its screen
// state. A Session loaded back from disk (via Manager.ListSessions) only
// carries Info; pty and emu are nil until it's re-attached or recreated.
type Session struct {
	ID          string
	controlPath string

	mu       sync.RWMutex
	info     *Info
	pty      *termio.Pty
	emu      *emulator.Emulator
	recorder *recording.RecordingHandle
}

func sessionPath(controlPath, id string) string {
	return filepath.Join(controlPath, id)
}

func newSession(controlPath string, cfg Config) (*Session, error) {
	return newSessionWithID(controlPath, GenerateID(), cfg)
}

func newSessionWithID(controlPath, id string, cfg Config) (*Session, error) {
	path := sessionPath(controlPath, id)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, NewSessionErrorWithCause("failed to create session directory", ErrInternal, id, err)
	}

	if cfg.Name == "" {
		cfg.Name = shortID(id)
	}
	if len(cfg.Argv) == 0 {
		shell := os.Getenv("SHELL")
		if shell == "" {
			shell = "/bin/bash"
		}
		cfg.Argv = []string{shell}
	}
	if cfg.Cwd == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfg.Cwd = cwd
		} else {
			cfg.Cwd = os.Getenv("HOME")
		}
	}
	if cfg.Term == "" {
		cfg.Term = "xterm-256color"
	}
	if cfg.Width <= 0 {
		cfg.Width = emulator.TerminalWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = emulator.TerminalHeight
	}

	logging.Debugf("session %s: spawning %v in %s", shortID(id), cfg.Argv, cfg.Cwd)

	pty, err := termio.NewPty(cfg.Argv, cfg.Cwd, cfg.Term, cfg.Width, cfg.Height)
	if err != nil {
		return nil, ErrPTYCreationError(id, err)
	}

	emu, err := emulator.New(pty, cfg.RecordingDir)
	if err != nil {
		_ = pty.Close()
		return nil, NewSessionErrorWithCause("failed to create emulator", ErrSessionStartFailed, id, err)
	}
	if err := emu.SetWinSize(cfg.Width, cfg.Height); err != nil {
		_ = pty.Close()
		return nil, NewSessionErrorWithCause("failed to size emulator", ErrPTYResizeFailed, id, err)
	}

	info := &Info{
		ID:        id,
		Name:      cfg.Name,
		Cmdline:   strings.Join(cfg.Argv, " "),
		Cwd:       cfg.Cwd,
		Pid:       pty.Pid(),
		Status:    StatusRunning,
		StartedAt: time.Now(),
		Term:      cfg.Term,
		Width:     cfg.Width,
		Height:    cfg.Height,
	}

	s := &Session{ID: id, controlPath: controlPath, info: info, pty: pty, emu: emu}
	if err := s.saveInfo(); err != nil {
		logging.Warnf("session %s: failed to persist info: %v", shortID(id), err)
	}

	if cfg.RecordingDir != "" {
		handle, err := emu.StartRecording()
		if err != nil {
			logging.Warnf("session %s: failed to start recording: %v", shortID(id), err)
		} else {
			s.recorder = handle
		}
	}

	if err := s.createControlFIFO(); err != nil {
		logging.Warnf("session %s: control fifo unavailable: %v", shortID(id), err)
	} else {
		s.startControlListener()
	}

	return s, nil
}

func (s *Session) infoPath() string {
	return filepath.Join(sessionPath(s.controlPath, s.ID), "info.json")
}

func (s *Session) saveInfo() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.info, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	return os.WriteFile(s.infoPath(), data, 0o644)
}

func loadSession(controlPath, id string) (*Session, error) {
	data, err := os.ReadFile(filepath.Join(sessionPath(controlPath, id), "info.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSessionNotFoundError(id)
		}
		return nil, NewSessionErrorWithCause("failed to read session info", ErrControlFileCorrupted, id, err)
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, NewSessionErrorWithCause("failed to parse session info", ErrControlFileCorrupted, id, err)
	}
	return &Session{ID: id, controlPath: controlPath, info: &info}, nil
}

// Path returns the session's on-disk directory.
func (s *Session) Path() string { return sessionPath(s.controlPath, s.ID) }

// Info returns a copy of the session's current metadata.
func (s *Session) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.info
}

// Write sends a keystroke through to the shell.
func (s *Session) Write(input emulator.TerminalInput) error {
	s.mu.RLock()
	emu := s.emu
	s.mu.RUnlock()
	if emu == nil {
		return NewSessionError("session has no attached emulator", ErrSessionNotRunning, s.ID)
	}
	return emu.Write(input)
}

// WriteRaw forwards already-encoded bytes straight to the shell,
// bypassing the key-to-escape-sequence encoder. Used by StdinWatcher to
// relay a pre-encoded keystroke stream from an external writer.
func (s *Session) WriteRaw(data []byte) error {
	s.mu.RLock()
	pty := s.pty
	s.mu.RUnlock()
	if pty == nil {
		return NewSessionError("session has no attached pty", ErrSessionNotRunning, s.ID)
	}
	_, err := pty.Write(data)
	return err
}

// Pump drains everything currently buffered from the shell into the
// emulator's screen state. Call it after Write, or periodically from an
// event loop driving the session.
func (s *Session) Pump() error {
	s.mu.RLock()
	emu := s.emu
	s.mu.RUnlock()
	if emu == nil {
		return NewSessionError("session has no attached emulator", ErrSessionNotRunning, s.ID)
	}
	return emu.Read()
}

// Resize changes the session's terminal grid size.
func (s *Session) Resize(width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emu == nil {
		return NewSessionError("session has no attached emulator", ErrSessionNotRunning, s.ID)
	}
	if err := s.emu.SetWinSize(width, height); err != nil {
		return NewSessionErrorWithCause("failed to resize pty", ErrPTYResizeFailed, s.ID, err)
	}
	s.info.Width = width
	s.info.Height = height
	return s.saveInfoLocked()
}

func (s *Session) saveInfoLocked() error {
	data, err := json.MarshalIndent(s.info, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.infoPath(), data, 0o644)
}

// Emulator exposes the attached emulator for callers (e.g. the HTTP
// transport) that need direct access to screen/format/cursor data.
func (s *Session) Emulator() *emulator.Emulator {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.emu
}

// UpdateStatus checks whether the shell process is still alive and
// updates Info.Status (and persists it) accordingly.
func (s *Session) UpdateStatus() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.info.Status == StatusExited {
		return nil
	}
	if s.info.Pid == 0 || !processAlive(s.info.Pid) {
		s.info.Status = StatusExited
		return s.saveInfoLocked()
	}
	return nil
}

// Stop terminates the session's shell process.
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pty != nil {
		if err := s.pty.Close(); err != nil {
			logging.Warnf("session %s: error closing pty: %v", shortID(s.ID), err)
		}
	}
	if s.recorder != nil {
		if err := s.recorder.Close(); err != nil {
			logging.Warnf("session %s: error closing recording: %v", shortID(s.ID), err)
		}
	}
	s.info.Status = StatusExited
	return s.saveInfoLocked()
}

func processAlive(pid int) bool {
	exists, err := process.PidExists(int32(pid))
	if err != nil || !exists {
		return false
	}
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return false
	}
	status, err := proc.Status()
	if err != nil {
		return true
	}
	for _, s := range status {
		if strings.HasPrefix(s, "Z") {
			return false
		}
	}
	return true
}
