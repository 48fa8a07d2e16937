package termsession

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/vt100go/termengine/pkg/logging"
)

// Attach puts the controlling terminal into raw mode and drives sess
// interactively: local keystrokes go straight to the shell, and the
// emulator's visible screen is redrawn to stdout as it changes. It
// blocks until the session exits or stdin is closed.
func Attach(sess *Session) error {
	stdinFd := int(os.Stdin.Fd())
	if !term.IsTerminal(stdinFd) {
		return fmt.Errorf("termsession: Attach requires a terminal on stdin")
	}

	oldState, err := term.MakeRaw(stdinFd)
	if err != nil {
		return fmt.Errorf("termsession: failed to set raw mode: %w", err)
	}
	defer func() {
		if err := term.Restore(stdinFd, oldState); err != nil {
			logging.Warnf("attach: failed to restore terminal: %v", err)
		}
	}()

	resizeCh := make(chan os.Signal, 1)
	signal.Notify(resizeCh, syscall.SIGWINCH)
	defer signal.Stop(resizeCh)
	go func() {
		for range resizeCh {
			if w, h, err := term.GetSize(stdinFd); err == nil {
				if err := sess.Resize(w, h); err != nil {
					logging.Warnf("attach: resize failed: %v", err)
				}
			}
		}
	}()
	if w, h, err := term.GetSize(stdinFd); err == nil {
		if err := sess.Resize(w, h); err != nil {
			logging.Warnf("attach: initial resize failed: %v", err)
		}
	}

	errCh := make(chan error, 2)
	go func() { errCh <- copyStdinToSession(sess) }()
	go func() { errCh <- redrawLoop(sess) }()

	return <-errCh
}

func copyStdinToSession(sess *Session) error {
	buf := make([]byte, 4096)
	for {
		n, err := os.Stdin.Read(buf)
		if n > 0 {
			if writeErr := sess.WriteRaw(buf[:n]); writeErr != nil {
				return writeErr
			}
		}
		if err != nil {
			return err
		}
	}
}

func redrawLoop(sess *Session) error {
	ticker := time.NewTicker(16 * time.Millisecond)
	defer ticker.Stop()

	var lastVisible string
	for range ticker.C {
		if err := sess.Pump(); err != nil {
			return err
		}
		emu := sess.Emulator()
		if emu == nil {
			return nil
		}
		visible := string(emu.Data().Visible)
		if visible == lastVisible {
			continue
		}
		lastVisible = visible
		// Clear screen and home cursor, then redraw: simplest possible
		// terminal-agnostic full-repaint strategy for a reference client.
		fmt.Print("\x1b[2J\x1b[H" + visible)
	}
	return nil
}
