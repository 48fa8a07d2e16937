// Package emulator wires the parser, buffer and format tracker into the
// stateful engine a caller drives: feed it bytes read from an endpoint,
// ask it for the rendered screen, or push encoded keystrokes back out.
package emulator

import (
	"fmt"

	"github.com/vt100go/termengine/pkg/logging"
	"github.com/vt100go/termengine/pkg/recording"
	"github.com/vt100go/termengine/pkg/screen"
	"github.com/vt100go/termengine/pkg/snapshot"
	"github.com/vt100go/termengine/pkg/termio"
	"github.com/vt100go/termengine/pkg/vtparser"
)

// TerminalWidth and TerminalHeight are the engine's fixed grid
// dimensions at construction; SetWinSize resizes a running Emulator.
const (
	TerminalWidth  = 50
	TerminalHeight = 16
)

// mode is a DEC private mode this engine tracks by name; anything else
// reported by the parser is logged and ignored.
type mode int

const (
	modeUnknown mode = iota
	modeDecckm
)

func modeFromParserMode(m vtparser.Mode) mode {
	if m.Decckm {
		return modeDecckm
	}
	return modeUnknown
}

// colorFromSgr maps a decoded SGR code to the foreground color it
// selects, if any.
func colorFromSgr(s vtparser.SgrCode) (screen.TerminalColor, bool) {
	switch s.Kind {
	case vtparser.SgrForegroundBlack:
		return screen.ColorBlack, true
	case vtparser.SgrForegroundRed:
		return screen.ColorRed, true
	case vtparser.SgrForegroundGreen:
		return screen.ColorGreen, true
	case vtparser.SgrForegroundYellow:
		return screen.ColorYellow, true
	case vtparser.SgrForegroundBlue:
		return screen.ColorBlue, true
	case vtparser.SgrForegroundMagenta:
		return screen.ColorMagenta, true
	case vtparser.SgrForegroundCyan:
		return screen.ColorCyan, true
	case vtparser.SgrForegroundWhite:
		return screen.ColorWhite, true
	default:
		return screen.ColorDefault, false
	}
}

// TerminalData splits a piece of derived state (bytes, format tags) into
// what belongs to scrollback and what belongs to the currently visible
// grid.
type TerminalData[T any] struct {
	Scrollback T
	Visible    T
}

func splitFormatDataForScrollback(tags []screen.FormatTag, scrollbackSplit int) TerminalData[[]screen.FormatTag] {
	var scrollback, visible []screen.FormatTag
	for _, tag := range tags {
		if tag.Start < scrollbackSplit {
			t := tag
			if t.End > scrollbackSplit {
				t.End = scrollbackSplit
			}
			scrollback = append(scrollback, t)
		}
		if tag.End > scrollbackSplit {
			t := tag
			if t.Start < scrollbackSplit {
				t.Start = 0
			} else {
				t.Start -= scrollbackSplit
			}
			if t.End != screen.EndOfBuffer {
				t.End -= scrollbackSplit
			}
			visible = append(visible, t)
		}
	}
	return TerminalData[[]screen.FormatTag]{Scrollback: scrollback, Visible: visible}
}

// Emulator is the engine's orchestration point: it owns the parser,
// buffer and format tracker, applies every parsed operation to them in
// order, and drives an underlying termio.Endpoint. Not safe for
// concurrent use -- callers serialize Read/Write/SetWinSize the way the
// rest of the engine's single-threaded components expect.
type Emulator struct {
	parser        *vtparser.AnsiParser
	buffer        *screen.Buffer
	formatTracker *screen.FormatTracker
	cursorState   screen.CursorState
	decckmMode    bool
	recorder      *recording.Recorder
	io            termio.Endpoint
}

// New constructs an Emulator around a live endpoint, sized to the
// engine's default grid and recording to recordingDir if StartRecording
// is later called.
func New(io termio.Endpoint, recordingDir string) (*Emulator, error) {
	if err := io.SetWinSize(TerminalWidth, TerminalHeight); err != nil {
		return nil, fmt.Errorf("emulator: set initial window size: %w", err)
	}
	return &Emulator{
		parser:        vtparser.New(),
		buffer:        screen.NewBuffer(TerminalWidth, TerminalHeight),
		formatTracker: screen.NewFormatTracker(),
		cursorState:   screen.CursorState{Color: screen.ColorDefault},
		recorder:      recording.NewRecorder(recordingDir),
		io:            io,
	}, nil
}

const (
	snapParserKey        = "parser"
	snapBufferKey        = "terminal_buffer"
	snapFormatTrackerKey = "format_tracker"
	snapDecckmKey        = "decckm_mode"
	snapCursorStateKey   = "cursor_state"
)

// FromSnapshot reconstructs an Emulator from a recording's initial state
// tree, driven by a replay endpoint instead of a live process.
func FromSnapshot(tree map[string]snapshot.Item, io termio.Endpoint) (*Emulator, error) {
	parserItem, ok := tree[snapParserKey]
	if !ok {
		return nil, fmt.Errorf("emulator: snapshot missing %q", snapParserKey)
	}
	parser, err := vtparser.FromSnapshot(parserItem)
	if err != nil {
		return nil, fmt.Errorf("emulator: load parser: %w", err)
	}

	bufferItem, ok := tree[snapBufferKey]
	if !ok {
		return nil, fmt.Errorf("emulator: snapshot missing %q", snapBufferKey)
	}
	buffer, err := screen.BufferFromSnapshot(bufferItem)
	if err != nil {
		return nil, fmt.Errorf("emulator: load buffer: %w", err)
	}

	formatItem, ok := tree[snapFormatTrackerKey]
	if !ok {
		return nil, fmt.Errorf("emulator: snapshot missing %q", snapFormatTrackerKey)
	}
	formatTracker, err := screen.FormatTrackerFromSnapshot(formatItem)
	if err != nil {
		return nil, fmt.Errorf("emulator: load format tracker: %w", err)
	}

	decckmItem, ok := tree[snapDecckmKey]
	if !ok {
		return nil, fmt.Errorf("emulator: snapshot missing %q", snapDecckmKey)
	}
	decckm, err := decckmItem.AsBool()
	if err != nil {
		return nil, fmt.Errorf("emulator: %s: %w", snapDecckmKey, err)
	}

	cursorItem, ok := tree[snapCursorStateKey]
	if !ok {
		return nil, fmt.Errorf("emulator: snapshot missing %q", snapCursorStateKey)
	}
	cursorState, err := screen.CursorStateFromSnapshot(cursorItem)
	if err != nil {
		return nil, fmt.Errorf("emulator: load cursor state: %w", err)
	}

	return &Emulator{
		parser:        parser,
		buffer:        buffer,
		formatTracker: formatTracker,
		cursorState:   cursorState,
		decckmMode:    decckm,
		recorder:      recording.NewRecorder("recordings"),
		io:            io,
	}, nil
}

func (e *Emulator) GetWinSize() (int, int) { return e.buffer.GetWinSize() }

// SetWinSize resizes the grid and, if anything actually changed,
// propagates the resize to the underlying endpoint and the active
// recording.
func (e *Emulator) SetWinSize(widthChars, heightChars int) error {
	resp := e.buffer.SetWinSize(widthChars, heightChars, e.cursorState.Pos)
	e.cursorState.Pos = resp.NewCursorPos

	if resp.Changed {
		if err := e.io.SetWinSize(widthChars, heightChars); err != nil {
			return err
		}
		e.recorder.SetWinSize(widthChars, heightChars)
	}
	return nil
}

// Write encodes input per the current cursor-keys mode and sends it to
// the endpoint, looping on short writes.
func (e *Emulator) Write(input TerminalInput) error {
	payload := input.ToPayload(e.decckmMode)
	for len(payload) > 0 {
		n, err := e.io.Write(payload)
		if err != nil {
			return err
		}
		payload = payload[n:]
	}
	return nil
}

func (e *Emulator) handleIncomingData(incoming []byte) {
	for _, segment := range e.parser.Push(incoming) {
		switch segment.Kind {
		case vtparser.OutData:
			resp := e.buffer.InsertData(e.cursorState.Pos, segment.Data)
			e.formatTracker.PushRangeAdjustment(resp.InsertionRange)
			e.formatTracker.PushRange(e.cursorState, resp.WrittenRange)
			e.cursorState.Pos = resp.NewCursorPos

		case vtparser.OutSetCursorPos:
			if segment.X != nil {
				e.cursorState.Pos.X = *segment.X - 1
			}
			if segment.Y != nil {
				e.cursorState.Pos.Y = *segment.Y - 1
			}

		case vtparser.OutSetCursorPosRel:
			if segment.X != nil {
				e.cursorState.Pos.X = maxInt(0, e.cursorState.Pos.X+*segment.X)
			}
			if segment.Y != nil {
				e.cursorState.Pos.Y = maxInt(0, e.cursorState.Pos.Y+*segment.Y)
			}

		case vtparser.OutClearForwards:
			if bufPos, ok := e.buffer.ClearForwards(e.cursorState.Pos); ok {
				e.formatTracker.PushRange(e.cursorState, screen.Range{Start: bufPos, End: screen.EndOfBuffer})
			}

		case vtparser.OutClearAll:
			e.formatTracker.PushRange(e.cursorState, screen.Range{Start: 0, End: screen.EndOfBuffer})
			e.buffer.ClearAll()

		case vtparser.OutClearLineForwards:
			if r, ok := e.buffer.ClearLineForwards(e.cursorState.Pos); ok {
				e.formatTracker.DeleteRange(r)
			}

		case vtparser.OutCarriageReturn:
			e.cursorState.Pos.X = 0

		case vtparser.OutNewline:
			e.cursorState.Pos.Y++

		case vtparser.OutBackspace:
			if e.cursorState.Pos.X >= 1 {
				e.cursorState.Pos.X--
			}

		case vtparser.OutInsertLines:
			resp := e.buffer.InsertLines(e.cursorState.Pos, segment.N)
			e.formatTracker.DeleteRange(resp.DeletedRange)
			e.formatTracker.PushRangeAdjustment(resp.InsertedRange)

		case vtparser.OutDelete:
			if r, ok := e.buffer.DeleteForwards(e.cursorState.Pos, segment.N); ok {
				e.formatTracker.DeleteRange(r)
			}

		case vtparser.OutSgr:
			if color, ok := colorFromSgr(segment.Sgr); ok {
				e.cursorState.Color = color
			} else if segment.Sgr.Kind == vtparser.SgrReset {
				e.cursorState.Color = screen.ColorDefault
				e.cursorState.Bold = false
			} else if segment.Sgr.Kind == vtparser.SgrBold {
				e.cursorState.Bold = true
			} else {
				logging.Warnf("emulator: unhandled sgr: %+v", segment.Sgr)
			}

		case vtparser.OutSetMode:
			if modeFromParserMode(segment.Mode) == modeDecckm {
				e.decckmMode = true
			} else {
				logging.Warnf("emulator: unhandled set mode: %+v", segment.Mode)
			}

		case vtparser.OutInsertSpaces:
			resp := e.buffer.InsertSpaces(e.cursorState.Pos, segment.N)
			e.formatTracker.PushRangeAdjustment(resp.InsertionRange)

		case vtparser.OutResetMode:
			if modeFromParserMode(segment.Mode) == modeDecckm {
				e.decckmMode = false
			} else {
				logging.Warnf("emulator: unhandled reset mode: %+v", segment.Mode)
			}

		case vtparser.OutInvalid:
			logging.Warnf("emulator: invalid escape sequence encountered")
		}
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Read drains everything currently available from the endpoint, feeding
// each chunk to the active recording and then to handleIncomingData,
// stopping as soon as the endpoint reports nothing more right now.
func (e *Emulator) Read() error {
	buf := make([]byte, 4096)
	for {
		resp, err := e.io.Read(buf)
		if err != nil {
			return fmt.Errorf("emulator: read from endpoint: %w", err)
		}
		if resp.Empty {
			return nil
		}
		incoming := buf[:resp.N]
		e.recorder.Write(incoming)
		e.handleIncomingData(incoming)
	}
}

// Data returns the current scrollback/visible byte split.
func (e *Emulator) Data() screen.Data { return e.buffer.Data() }

// FormatData returns the format tags covering Data, split the same way.
func (e *Emulator) FormatData() TerminalData[[]screen.FormatTag] {
	offset := len(e.buffer.Data().Scrollback)
	return splitFormatDataForScrollback(e.formatTracker.Tags(), offset)
}

func (e *Emulator) CursorPos() screen.CursorPos { return e.cursorState.Pos }

// StartRecording begins (or reuses) a recording of this Emulator,
// snapshotting every stateful component as the initial state.
func (e *Emulator) StartRecording() (*recording.RecordingHandle, error) {
	resp, err := e.recorder.StartRecording()
	if err != nil {
		return nil, fmt.Errorf("emulator: start recording: %w", err)
	}
	if resp.Existing != nil {
		return resp.Existing, nil
	}

	init := resp.New
	init.SnapshotItem(snapParserKey, e.parser.Snapshot())
	init.SnapshotItem(snapBufferKey, e.buffer.Snapshot())
	init.SnapshotItem(snapFormatTrackerKey, e.formatTracker.Snapshot())
	init.SnapshotItem(snapDecckmKey, snapshot.Bool(e.decckmMode))
	init.SnapshotItem(snapCursorStateKey, e.cursorState.Snapshot())
	return init.IntoHandle(), nil
}
