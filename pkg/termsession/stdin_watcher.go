package termsession

import (
	"errors"
	"io"
	"os"
	"sync"
	"syscall"

	"github.com/fsnotify/fsnotify"

	"github.com/vt100go/termengine/pkg/logging"
)

// StdinWatcher relays bytes written to a named pipe straight through to
// a session's shell, for callers that want to drive a session by writing
// raw pre-encoded keystrokes to a FIFO rather than through the HTTP API.
type StdinWatcher struct {
	sess *Session

	watcher  *fsnotify.Watcher
	pipeFile *os.File
	buf      []byte

	mu          sync.Mutex
	stopChan    chan struct{}
	stoppedChan chan struct{}
}

// NewStdinWatcher opens pipePath (expected to already exist as a FIFO)
// and prepares to forward its contents into sess.
func NewStdinWatcher(pipePath string, sess *Session) (*StdinWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, NewSessionErrorWithCause("failed to create fsnotify watcher", ErrInternal, sess.ID, err)
	}

	pipeFile, err := os.OpenFile(pipePath, os.O_RDONLY|syscall.O_NONBLOCK, 0)
	if err != nil {
		watcher.Close()
		return nil, NewSessionErrorWithCause("failed to open stdin pipe", ErrInternal, sess.ID, err)
	}

	if err := watcher.Add(pipePath); err != nil {
		pipeFile.Close()
		watcher.Close()
		return nil, NewSessionErrorWithCause("failed to watch stdin pipe", ErrInternal, sess.ID, err)
	}

	return &StdinWatcher{
		sess:        sess,
		watcher:     watcher,
		pipeFile:    pipeFile,
		buf:         make([]byte, 4096),
		stopChan:    make(chan struct{}),
		stoppedChan: make(chan struct{}),
	}, nil
}

// Start begins forwarding in a background goroutine.
func (sw *StdinWatcher) Start() { go sw.watchLoop() }

// Stop halts forwarding and releases the watcher and pipe file.
func (sw *StdinWatcher) Stop() {
	close(sw.stopChan)
	<-sw.stoppedChan
	sw.watcher.Close()
	sw.pipeFile.Close()
}

func (sw *StdinWatcher) watchLoop() {
	defer close(sw.stoppedChan)

	for {
		select {
		case <-sw.stopChan:
			return
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Write == fsnotify.Write {
				sw.drain()
			}
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			logging.Warnf("stdin watcher for %s: %v", shortID(sw.sess.ID), err)
		}
	}
}

func (sw *StdinWatcher) drain() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	for {
		n, err := sw.pipeFile.Read(sw.buf)
		if n > 0 {
			if writeErr := sw.sess.WriteRaw(sw.buf[:n]); writeErr != nil {
				logging.Warnf("stdin watcher for %s: write failed: %v", shortID(sw.sess.ID), writeErr)
				return
			}
		}
		if err != nil {
			if err == io.EOF || isEAGAIN(err) {
				return
			}
			logging.Warnf("stdin watcher for %s: read failed: %v", shortID(sw.sess.ID), err)
			return
		}
		if n < len(sw.buf) {
			return
		}
	}
}

func isEAGAIN(err error) bool {
	return errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK)
}
