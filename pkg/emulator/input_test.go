package emulator

import "testing"

func TestArrowPayloads(t *testing.T) {
	cases := []struct {
		in         TerminalInput
		decckm     bool
		want       string
	}{
		{ArrowRight, false, "\x1b[C"},
		{ArrowRight, true, "\x1bOC"},
		{ArrowLeft, false, "\x1b[D"},
		{ArrowLeft, true, "\x1bOD"},
		{ArrowUp, false, "\x1b[A"},
		{ArrowUp, true, "\x1bOA"},
		{ArrowDown, false, "\x1b[B"},
		{ArrowDown, true, "\x1bOB"},
		{Home, false, "\x1b[H"},
		{Home, true, "\x1bOH"},
		{End, false, "\x1b[F"},
		{End, true, "\x1bOF"},
		{Delete, false, "\x1b[3~"},
		{Insert, false, "\x1b[2~"},
		{PageUp, false, "\x1b[5~"},
		{PageDown, false, "\x1b[6~"},
		{Enter, false, "\n"},
		{Backspace, false, "\x7f"},
	}
	for _, c := range cases {
		if got := string(c.in.ToPayload(c.decckm)); got != c.want {
			t.Errorf("ToPayload(%+v, decckm=%v) = %q, want %q", c.in, c.decckm, got, c.want)
		}
	}
}

func TestAsciiAndCtrlPayloads(t *testing.T) {
	if got := string(Ascii('x').ToPayload(false)); got != "x" {
		t.Errorf("Ascii payload = %q, want %q", got, "x")
	}
	if got := Ctrl('c').ToPayload(false); len(got) != 1 || got[0] != 0x03 {
		t.Errorf("Ctrl('c') payload = %v, want [0x03]", got)
	}
	if got := Ctrl('a').ToPayload(false); got[0] != 0x01 {
		t.Errorf("Ctrl('a') payload = %v, want [0x01]", got)
	}
}
