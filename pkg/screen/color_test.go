package screen

import "testing"

func TestCursorStateSnapshotRoundtrip(t *testing.T) {
	state := CursorState{
		Pos:   CursorPos{X: 10, Y: 50},
		Bold:  false,
		Color: ColorMagenta,
	}

	loaded, err := CursorStateFromSnapshot(state.Snapshot())
	if err != nil {
		t.Fatalf("CursorStateFromSnapshot: %v", err)
	}
	if loaded != state {
		t.Errorf("loaded = %+v, want %+v", loaded, state)
	}
}

func TestParseTerminalColorRoundtrip(t *testing.T) {
	colors := []TerminalColor{
		ColorDefault, ColorBlack, ColorRed, ColorGreen, ColorYellow,
		ColorBlue, ColorMagenta, ColorCyan, ColorWhite,
	}
	for _, c := range colors {
		parsed, err := ParseTerminalColor(c.String())
		if err != nil {
			t.Fatalf("ParseTerminalColor(%q): %v", c.String(), err)
		}
		if parsed != c {
			t.Errorf("ParseTerminalColor(%q) = %v, want %v", c.String(), parsed, c)
		}
	}
}
