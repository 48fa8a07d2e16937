package termio

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"github.com/creack/pty"
)

// safeEnvVars mirrors the narrow environment whitelist this engine's
// teacher spawns child shells with: only variables a shell genuinely
// needs, nothing that could leak unrelated process state into the PTY.
var safeEnvVars = []string{"TERM", "SHELL", "LANG", "LC_ALL", "PATH", "USER", "HOME"}

// Pty is the live-shell Endpoint: it spawns a child process under a
// pseudo-terminal and exposes non-blocking reads/writes/resizes over it.
type Pty struct {
	cmd *exec.Cmd
	f   *os.File
}

// NewPty spawns shell (args[0]) with args[1:] under a PTY of the given
// size, in dir (if non-empty). term is exported to the child as TERM only
// when the parent environment has no TERM of its own.
func NewPty(args []string, dir, term string, width, height int) (*Pty, error) {
	if len(args) == 0 {
		return nil, errors.New("termio: NewPty requires at least a shell path")
	}

	cmd := exec.Command(args[0], args[1:]...)
	if dir != "" {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("working directory %q not accessible: %w", dir, err)
		}
		cmd.Dir = dir
	}

	cmd.Env = filteredEnv(term, args[0])

	f, err := pty.Start(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to start pty: %w", err)
	}

	if err := pty.Setsize(f, &pty.Winsize{Rows: uint16(height), Cols: uint16(width)}); err != nil {
		_ = f.Close()
		_ = cmd.Process.Kill()
		return nil, fmt.Errorf("failed to set pty size: %w", err)
	}

	if err := setNonblock(f); err != nil {
		_ = f.Close()
		_ = cmd.Process.Kill()
		return nil, fmt.Errorf("failed to set pty non-blocking: %w", err)
	}

	return &Pty{cmd: cmd, f: f}, nil
}

func filteredEnv(term, shell string) []string {
	env := make([]string, 0, len(safeEnvVars))
	for _, v := range os.Environ() {
		parts := strings.SplitN(v, "=", 2)
		if len(parts) != 2 {
			continue
		}
		for _, safe := range safeEnvVars {
			if parts[0] == safe {
				env = append(env, v)
				break
			}
		}
	}

	hasTerm, hasShell := false, false
	for _, v := range env {
		if strings.HasPrefix(v, "TERM=") {
			hasTerm = true
		}
		if strings.HasPrefix(v, "SHELL=") {
			hasShell = true
		}
	}
	if !hasTerm {
		env = append(env, "TERM="+term)
	}
	if !hasShell {
		env = append(env, "SHELL="+shell)
	}
	return env
}

func setNonblock(f *os.File) error {
	return syscall.SetNonblock(int(f.Fd()), true)
}

// Pid returns the child process's PID.
func (p *Pty) Pid() int { return p.cmd.Process.Pid }

// Read performs one non-blocking read. EAGAIN/EWOULDBLOCK map to
// ReadResponse{Empty: true}, matching the engine's read loop contract of
// "nothing more right now, stop looping" rather than an error.
func (p *Pty) Read(buf []byte) (ReadResponse, error) {
	n, err := p.f.Read(buf)
	if err != nil {
		if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK) {
			return ReadResponse{Empty: true}, nil
		}
		return ReadResponse{}, err
	}
	if n == 0 {
		return ReadResponse{Empty: true}, nil
	}
	return ReadResponse{N: n}, nil
}

func (p *Pty) Write(buf []byte) (int, error) {
	return p.f.Write(buf)
}

func (p *Pty) SetWinSize(width, height int) error {
	return pty.Setsize(p.f, &pty.Winsize{Rows: uint16(height), Cols: uint16(width)})
}

func (p *Pty) Close() error {
	err := p.f.Close()
	if killErr := p.cmd.Process.Kill(); killErr != nil && err == nil {
		err = killErr
	}
	return err
}
