package vtparser

import "testing"

func single(out []TerminalOutput) TerminalOutput {
	if len(out) != 1 {
		panic("expected exactly one output")
	}
	return out[0]
}

func TestSetCursorPosition(t *testing.T) {
	cases := []struct {
		name   string
		in     string
		wantX  *int
		wantY  *int
	}{
		{"both", "\x1b[32;15H", intPtr(15), intPtr(32)},
		{"default_row", "\x1b[;15H", intPtr(15), intPtr(1)},
		{"default_col", "\x1b[32;H", intPtr(1), intPtr(32)},
		{"defaults", "\x1b[;H", intPtr(1), intPtr(1)},
		{"no_params", "\x1b[H", intPtr(1), intPtr(1)},
		{"col_only", "\x1b[15G", intPtr(15), nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := New()
			got := single(p.Push([]byte(c.in)))
			if got.Kind != OutSetCursorPos {
				t.Fatalf("kind = %v, want OutSetCursorPos", got.Kind)
			}
			if (got.X == nil) != (c.wantX == nil) || (got.X != nil && *got.X != *c.wantX) {
				t.Errorf("x = %v, want %v", got.X, c.wantX)
			}
			if (got.Y == nil) != (c.wantY == nil) || (got.Y != nil && *got.Y != *c.wantY) {
				t.Errorf("y = %v, want %v", got.Y, c.wantY)
			}
		})
	}
}

func TestClear(t *testing.T) {
	p := New()
	if got := single(p.Push([]byte("\x1b[J"))).Kind; got != OutClearForwards {
		t.Errorf("J: got %v, want OutClearForwards", got)
	}
	p = New()
	if got := single(p.Push([]byte("\x1b[2J"))).Kind; got != OutClearAll {
		t.Errorf("2J: got %v, want OutClearAll", got)
	}
	p = New()
	if got := single(p.Push([]byte("\x1b[3J"))).Kind; got != OutClearAll {
		t.Errorf("3J: got %v, want OutClearAll", got)
	}
}

func TestInvalidClear(t *testing.T) {
	p := New()
	if got := single(p.Push([]byte("\x1b[8J"))).Kind; got != OutInvalid {
		t.Errorf("8J: got %v, want OutInvalid", got)
	}
}

func TestInvalidCsi(t *testing.T) {
	p := New()
	// The invalid byte is reported once the sequence's final byte arrives.
	out := p.Push([]byte("\x1b[\x00H"))
	if got := single(out).Kind; got != OutInvalid {
		t.Errorf("got %v, want OutInvalid", got)
	}
}

func TestParsingUnknownCsi(t *testing.T) {
	p := New()
	out := p.Push([]byte("\x1b[0z"))
	if got := single(out).Kind; got != OutInvalid {
		t.Errorf("got %v, want OutInvalid", got)
	}
}

func TestEmptySgr(t *testing.T) {
	p := New()
	out := p.Push([]byte("\x1b[m"))
	got := single(out)
	if got.Kind != OutSgr || got.Sgr.Kind != SgrReset {
		t.Errorf("got %+v, want Sgr(Reset)", got)
	}
}

func TestColorParsing(t *testing.T) {
	p := New()
	out := p.Push([]byte("\x1b[30m\x1b[31m\x1b[32m\x1b[33m\x1b[34m\x1b[35m\x1b[36m\x1b[37m" +
		"\x1b[90m\x1b[91m\x1b[92m\x1b[93m\x1b[94m\x1b[95m\x1b[96m\x1b[97m"))
	want := []Sgr{
		SgrForegroundBlack, SgrForegroundRed, SgrForegroundGreen, SgrForegroundYellow,
		SgrForegroundBlue, SgrForegroundMagenta, SgrForegroundCyan, SgrForegroundWhite,
		SgrForegroundBrightBlack, SgrForegroundBrightRed, SgrForegroundBrightGreen, SgrForegroundBrightYellow,
		SgrForegroundBrightBlue, SgrForegroundBrightMagenta, SgrForegroundBrightCyan, SgrForegroundBrightWhite,
	}
	if len(out) != len(want) {
		t.Fatalf("got %d outputs, want %d", len(out), len(want))
	}
	for i, w := range want {
		if out[i].Kind != OutSgr || out[i].Sgr.Kind != w {
			t.Errorf("op %d: got %+v, want Sgr(%v)", i, out[i], w)
		}
	}
}

func TestModeParsing(t *testing.T) {
	p := New()
	out := p.Push([]byte("\x1b[?1h"))
	got := single(out)
	if got.Kind != OutSetMode || !got.Mode.Decckm {
		t.Errorf("got %+v, want SetMode(Decckm)", got)
	}

	p = New()
	out = p.Push([]byte("\x1b[?1l"))
	got = single(out)
	if got.Kind != OutResetMode || !got.Mode.Decckm {
		t.Errorf("got %+v, want ResetMode(Decckm)", got)
	}
}

func TestRelMoveParsing(t *testing.T) {
	cases := []struct {
		seq       string
		wantX     *int
		wantY     *int
	}{
		{"\x1b[5A", nil, intPtr(-5)},
		{"\x1b[5B", nil, intPtr(5)},
		{"\x1b[5C", intPtr(5), nil},
		{"\x1b[5D", intPtr(-5), nil},
		{"\x1b[A", nil, intPtr(-1)},
	}
	for _, c := range cases {
		p := New()
		got := single(p.Push([]byte(c.seq)))
		if got.Kind != OutSetCursorPosRel {
			t.Fatalf("%q: kind = %v", c.seq, got.Kind)
		}
		if (got.X == nil) != (c.wantX == nil) || (got.X != nil && *got.X != *c.wantX) {
			t.Errorf("%q: x = %v, want %v", c.seq, got.X, c.wantX)
		}
		if (got.Y == nil) != (c.wantY == nil) || (got.Y != nil && *got.Y != *c.wantY) {
			t.Errorf("%q: y = %v, want %v", c.seq, got.Y, c.wantY)
		}
	}
}

func TestDataPassthrough(t *testing.T) {
	p := New()
	out := p.Push([]byte("hello"))
	got := single(out)
	if got.Kind != OutData || string(got.Data) != "hello" {
		t.Errorf("got %+v, want Data(hello)", got)
	}
}

func TestCsiParserSnapshotRoundtrip(t *testing.T) {
	p := New()
	// feed a partial CSI sequence, leaving the parser mid-CSI
	p.Push([]byte("\x1b[12;3"))
	snap := p.Snapshot()
	p2, err := FromSnapshot(snap)
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}
	out := p2.Push([]byte("H"))
	got := single(out)
	if got.Kind != OutSetCursorPos || *got.Y != 12 || *got.X != 3 {
		t.Errorf("got %+v, want SetCursorPos(y=12,x=3)", got)
	}
}

func TestAnsiParserSnapshotGroundState(t *testing.T) {
	p := New()
	snap := p.Snapshot()
	p2, err := FromSnapshot(snap)
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}
	out := p2.Push([]byte("\r"))
	if single(out).Kind != OutCarriageReturn {
		t.Errorf("expected carriage return after round-trip")
	}
}
