package screen

import (
	"fmt"

	"github.com/vt100go/termengine/pkg/snapshot"
)

// TerminalColor is the foreground color set via SGR.
type TerminalColor int

const (
	ColorDefault TerminalColor = iota
	ColorBlack
	ColorRed
	ColorGreen
	ColorYellow
	ColorBlue
	ColorMagenta
	ColorCyan
	ColorWhite
)

func (c TerminalColor) String() string {
	switch c {
	case ColorDefault:
		return "default"
	case ColorBlack:
		return "black"
	case ColorRed:
		return "red"
	case ColorGreen:
		return "green"
	case ColorYellow:
		return "yellow"
	case ColorBlue:
		return "blue"
	case ColorMagenta:
		return "magenta"
	case ColorCyan:
		return "cyan"
	case ColorWhite:
		return "white"
	default:
		return "default"
	}
}

func ParseTerminalColor(s string) (TerminalColor, error) {
	switch s {
	case "default":
		return ColorDefault, nil
	case "black":
		return ColorBlack, nil
	case "red":
		return ColorRed, nil
	case "green":
		return ColorGreen, nil
	case "yellow":
		return ColorYellow, nil
	case "blue":
		return ColorBlue, nil
	case "magenta":
		return ColorMagenta, nil
	case "cyan":
		return ColorCyan, nil
	case "white":
		return ColorWhite, nil
	default:
		return ColorDefault, fmt.Errorf("unknown terminal color %q", s)
	}
}

// CursorState is the cursor's position plus the SGR attributes that will
// be applied to the next run of written data.
type CursorState struct {
	Pos   CursorPos
	Bold  bool
	Color TerminalColor
}

const (
	cursorPosXKey     = "x"
	cursorPosYKey     = "y"
	cursorStatePosKey   = "pos"
	cursorStateBoldKey  = "bold"
	cursorStateColorKey = "color"
)

func (p CursorPos) snapshot() snapshot.Item {
	return snapshot.Map(map[string]snapshot.Item{
		cursorPosXKey: snapshot.Int(int64(p.X)),
		cursorPosYKey: snapshot.Int(int64(p.Y)),
	})
}

func cursorPosFromSnapshot(it snapshot.Item) (CursorPos, error) {
	x, err := fieldUint(it, "cursor_pos", cursorPosXKey)
	if err != nil {
		return CursorPos{}, err
	}
	y, err := fieldUint(it, "cursor_pos", cursorPosYKey)
	if err != nil {
		return CursorPos{}, err
	}
	return CursorPos{X: int(x), Y: int(y)}, nil
}

// Snapshot serializes cursor position, boldness and color for
// recording/replay resume.
func (c CursorState) Snapshot() snapshot.Item {
	return snapshot.Map(map[string]snapshot.Item{
		cursorStatePosKey:   c.Pos.snapshot(),
		cursorStateBoldKey:  snapshot.Bool(c.Bold),
		cursorStateColorKey: snapshot.String(c.Color.String()),
	})
}

// CursorStateFromSnapshot reconstructs a CursorState from a tree
// produced by Snapshot.
func CursorStateFromSnapshot(it snapshot.Item) (CursorState, error) {
	posItem, err := snapshot.Field(it, "cursor_state", cursorStatePosKey)
	if err != nil {
		return CursorState{}, err
	}
	pos, err := cursorPosFromSnapshot(posItem)
	if err != nil {
		return CursorState{}, err
	}
	boldItem, err := snapshot.Field(it, "cursor_state", cursorStateBoldKey)
	if err != nil {
		return CursorState{}, err
	}
	bold, err := boldItem.AsBool()
	if err != nil {
		return CursorState{}, fmt.Errorf("cursor_state.bold: %w", err)
	}
	colorStr, err := fieldString(it, "cursor_state", cursorStateColorKey)
	if err != nil {
		return CursorState{}, err
	}
	color, err := ParseTerminalColor(colorStr)
	if err != nil {
		return CursorState{}, fmt.Errorf("cursor_state.color: %w", err)
	}
	return CursorState{Pos: pos, Bold: bold, Color: color}, nil
}
