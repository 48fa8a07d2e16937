package termio

import "errors"

// Replay is the recorded-session Endpoint: bytes arrive over an
// in-memory channel fed by a ReplayControl driver (pkg/recording)
// instead of a live process. Writes are discarded (there's no process on
// the other end to receive input) and resizes are no-ops -- the engine
// still calls SetWinSize during replay, it just has nowhere to send it.
type Replay struct {
	ch <-chan byte
}

// NewReplay wraps a byte channel as a Read-able Endpoint. The channel is
// meant to be fed by exactly one ReplayControl driver; constructing a
// second Replay over the same channel would race both readers.
func NewReplay(ch <-chan byte) *Replay {
	return &Replay{ch: ch}
}

// Read drains whatever bytes are currently buffered on the channel
// without blocking, matching the contract Pty upholds: nothing available
// right now reports Empty, not an error.
func (r *Replay) Read(buf []byte) (ReadResponse, error) {
	n := 0
	for n < len(buf) {
		select {
		case b, ok := <-r.ch:
			if !ok {
				if n == 0 {
					return ReadResponse{Empty: true}, nil
				}
				return ReadResponse{N: n}, nil
			}
			buf[n] = b
			n++
		default:
			if n == 0 {
				return ReadResponse{Empty: true}, nil
			}
			return ReadResponse{N: n}, nil
		}
	}
	return ReadResponse{N: n}, nil
}

// Write is a no-op: nothing downstream of a replay is listening for
// input. It still reports success so write-loops in the emulator don't
// spin.
func (r *Replay) Write(buf []byte) (int, error) { return len(buf), nil }

func (r *Replay) SetWinSize(width, height int) error { return nil }

func (r *Replay) Close() error { return nil }

// ErrReplayExhausted is a sentinel callers of a driver loop can check for
// once a recording has no more actions to feed.
var ErrReplayExhausted = errors.New("termio: replay exhausted")
