package recording

import (
	"github.com/vt100go/termengine/pkg/snapshot"
	"github.com/vt100go/termengine/pkg/termio"
)

// ControlAction is what the driver loop should do in response to one
// ReplayControl.Next call beyond feeding bytes into the endpoint, which
// happens internally.
type ControlAction struct {
	Resize        bool
	Width, Height int
}

type recordingTracker struct {
	itemIdx int
	itemPos int
}

func (t *recordingTracker) next(items []RecordingItem) (action int, b byte, width, height int) {
	const (
		actionNone = iota
		actionWrite
		actionResize
	)
	for {
		if t.itemIdx >= len(items) {
			return actionNone, 0, 0, 0
		}
		item := items[t.itemIdx]
		if t.itemPos >= item.Len() {
			t.itemIdx++
			t.itemPos = 0
			continue
		}
		switch item.Kind {
		case ItemWrite:
			b = item.Data[t.itemPos]
			t.itemPos++
			return actionWrite, b, 0, 0
		case ItemSetWinSize:
			t.itemPos++
			return actionResize, 0, item.Width, item.Height
		}
	}
}

// ReplayControl drives a loaded Recording's actions back through a
// termio.Replay endpoint one step at a time, letting a caller step
// through a session deterministically (e.g. for scrubbing a recorded
// playback UI).
type ReplayControl struct {
	recording      Recording
	tracker        recordingTracker
	segmentLengths []int
	totalLen       int
	ch             chan byte
	ioHandle       *termio.Replay
	issued         bool
}

func NewReplayControl(rec Recording) *ReplayControl {
	segmentLengths := make([]int, len(rec.Items))
	total := 0
	for i, it := range rec.Items {
		segmentLengths[i] = it.Len()
		total += it.Len()
	}
	ch := make(chan byte, 4096)
	return &ReplayControl{
		recording:      rec,
		segmentLengths: segmentLengths,
		totalLen:       total,
		ch:             ch,
		ioHandle:       termio.NewReplay(ch),
	}
}

// InitialState exposes the recorded initial component snapshots, keyed
// the same way Emulator.StartRecording wrote them (parser,
// terminal_buffer, format_tracker, decckm_mode, cursor_state).
func (c *ReplayControl) InitialState() map[string]snapshot.Item {
	return c.recording.InitialState
}

// IoHandle returns the Replay endpoint fed by Next. Must be called at
// most once; a second call panics, matching the one-shot handoff the
// reference implementation enforces.
func (c *ReplayControl) IoHandle() *termio.Replay {
	if c.issued {
		panic("recording: IoHandle should only be called once")
	}
	c.issued = true
	return c.ioHandle
}

// CurrentPos is how many steps (bytes + resizes) have been played so far.
func (c *ReplayControl) CurrentPos() int {
	pos := 0
	for i := 0; i < c.tracker.itemIdx && i < len(c.segmentLengths); i++ {
		pos += c.segmentLengths[i]
	}
	return pos + c.tracker.itemPos
}

// Len is the total number of steps in the recording.
func (c *ReplayControl) Len() int { return c.totalLen }

// Next advances the replay by one step, pushing a byte into the endpoint
// channel or reporting a resize the driver loop must apply itself (the
// endpoint's own SetWinSize is a no-op).
func (c *ReplayControl) Next() ControlAction {
	const (
		actionNone = iota
		actionWrite
		actionResize
	)
	action, b, width, height := c.tracker.next(c.recording.Items)
	switch action {
	case actionWrite:
		c.ch <- b
		return ControlAction{}
	case actionResize:
		return ControlAction{Resize: true, Width: width, Height: height}
	default:
		return ControlAction{}
	}
}
