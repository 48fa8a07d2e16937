package termsession

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

func openPipeWriter(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_WRONLY, 0)
}

func TestStdinWatcherForwardsBytesToSession(t *testing.T) {
	m := NewManager(t.TempDir())
	sess, err := m.CreateSession(Config{Argv: []string{"/bin/cat"}})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	defer m.RemoveSession(sess.ID)

	pipePath := filepath.Join(t.TempDir(), "stdin")
	if err := syscall.Mkfifo(pipePath, 0o600); err != nil {
		t.Fatalf("Mkfifo: %v", err)
	}

	watcher, err := NewStdinWatcher(pipePath, sess)
	if err != nil {
		t.Fatalf("NewStdinWatcher: %v", err)
	}
	watcher.Start()
	defer watcher.Stop()

	writer, err := openPipeWriter(pipePath)
	if err != nil {
		t.Fatalf("open pipe writer: %v", err)
	}
	defer writer.Close()

	if _, err := writer.Write([]byte("hello\n")); err != nil {
		t.Fatalf("write to pipe: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if err := sess.Pump(); err != nil {
		t.Fatalf("Pump: %v", err)
	}
}
