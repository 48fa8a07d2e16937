package termsession

import (
	"encoding/json"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/vt100go/termengine/pkg/logging"
)

// ControlCommand is a command sent through a session's control FIFO,
// letting an external process resize a session without going through
// the HTTP transport.
type ControlCommand struct {
	Cmd    string `json:"cmd"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

func (s *Session) controlFIFOPath() string {
	return filepath.Join(s.Path(), "control")
}

// createControlFIFO creates the session's control FIFO, replacing any
// stale one left over from a previous run.
func (s *Session) createControlFIFO() error {
	path := s.controlFIFOPath()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return NewSessionErrorWithCause("failed to remove stale control fifo", ErrInternal, s.ID, err)
	}
	if err := syscall.Mkfifo(path, 0o600); err != nil {
		return NewSessionErrorWithCause("failed to create control fifo", ErrInternal, s.ID, err)
	}
	return nil
}

// startControlListener runs a background goroutine decoding
// newline-delimited JSON ControlCommands from the session's control FIFO
// until the session exits.
func (s *Session) startControlListener() {
	path := s.controlFIFOPath()

	go func() {
		for {
			s.mu.RLock()
			exited := s.info.Status == StatusExited
			s.mu.RUnlock()
			if exited {
				return
			}

			fd, err := syscall.Open(path, syscall.O_RDONLY|syscall.O_NONBLOCK, 0)
			if err != nil {
				logging.Warnf("session %s: failed to open control fifo: %v", shortID(s.ID), err)
				time.Sleep(time.Second)
				continue
			}

			file := os.NewFile(uintptr(fd), path)
			decoder := json.NewDecoder(file)
			for {
				var cmd ControlCommand
				if err := decoder.Decode(&cmd); err != nil {
					break
				}
				s.handleControlCommand(&cmd)
			}
			file.Close()

			time.Sleep(100 * time.Millisecond)
		}
	}()
}

func (s *Session) handleControlCommand(cmd *ControlCommand) {
	switch cmd.Cmd {
	case "resize":
		if cmd.Width > 0 && cmd.Height > 0 {
			if err := s.Resize(cmd.Width, cmd.Height); err != nil {
				logging.Warnf("session %s: control resize failed: %v", shortID(s.ID), err)
			}
		}
	default:
		logging.Warnf("session %s: unknown control command %q", shortID(s.ID), cmd.Cmd)
	}
}

// SendControlCommand writes cmd to the control FIFO of the session
// rooted at sessionPath.
func SendControlCommand(sessionPath string, cmd ControlCommand) error {
	path := filepath.Join(sessionPath, "control")

	done := make(chan error, 1)
	go func() {
		f, err := os.OpenFile(path, os.O_WRONLY, 0)
		if err != nil {
			done <- err
			return
		}
		defer f.Close()
		done <- json.NewEncoder(f).Encode(cmd)
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(time.Second):
		return NewSessionError("timeout sending control command", ErrTimeout, "")
	}
}
