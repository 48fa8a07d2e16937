// Package termio defines the engine's only point of dynamic dispatch: the
// I/O endpoint capability an emulator.Emulator reads from, writes to, and
// resizes. Two concrete endpoints exist -- Pty (a live child shell) and
// Replay (a recorded session driven back in) -- and nothing in the
// engine core above this package needs to know which one it's talking
// to.
package termio

// ReadResponse distinguishes "nothing available right now" from "got N
// bytes", so a caller looping on Read can tell a non-blocking empty read
// apart from an actual zero-length result.
type ReadResponse struct {
	Empty bool
	N     int
}

// Endpoint is the capability interface every concrete I/O source
// implements. Read must not block (Pty puts its descriptor in
// non-blocking mode; Replay never waits on its channel); the engine's
// read loop treats ReadResponse{Empty:true} as "nothing more
// right now, stop looping".
type Endpoint interface {
	Read(buf []byte) (ReadResponse, error)
	Write(buf []byte) (int, error)
	SetWinSize(width, height int) error
	Close() error
}
