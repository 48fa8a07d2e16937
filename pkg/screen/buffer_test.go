package screen

import (
	"bytes"
	"testing"
)

func rangesEqual(a, b []Range) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCalcLineRanges(t *testing.T) {
	got := calcLineRanges([]byte("asdf\n0123456789\n012345678901"), 10)
	want := []Range{{0, 4}, {5, 15}, {16, 26}, {26, 28}}
	if !rangesEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBufferPadding(t *testing.T) {
	buf := []byte("asdf\n1234\nzxyw")
	resp := padBufferForWrite(&buf, 10, 10, CursorPos{X: 8, Y: 0}, 10)
	if !bytes.Equal(buf, []byte("asdf              \n1234\nzxyw")) {
		t.Errorf("buf = %q", buf)
	}
	if resp.writeIdx != 8 {
		t.Errorf("writeIdx = %d, want 8", resp.writeIdx)
	}
	if resp.insertedPadding != (Range{4, 18}) {
		t.Errorf("insertedPadding = %v, want {4 18}", resp.insertedPadding)
	}
}

func TestCanvasClearForwards(t *testing.T) {
	buffer := NewBuffer(5, 5)
	buffer.InsertData(CursorPos{0, 0}, []byte("012343456789\n0123456789\n1234"))
	want := []byte("3456789\n0123456789\n1234\n")
	if !bytes.Equal(buffer.Data().Visible, want) {
		t.Fatalf("visible = %q, want %q", buffer.Data().Visible, want)
	}
	buffer.ClearForwards(CursorPos{1, 1})
	want = []byte("345678\n\n\n\n")
	if !bytes.Equal(buffer.Data().Visible, want) {
		t.Errorf("after clear: visible = %q, want %q", buffer.Data().Visible, want)
	}

	// 1. truncating at start of line, previous char not a newline
	buffer = NewBuffer(5, 5)
	buffer.InsertData(CursorPos{0, 0}, []byte("012340123401234012340123401234"))
	buffer.ClearForwards(CursorPos{0, 1})
	if got := buffer.Data().Visible; !bytes.Equal(got, []byte("01234\n\n\n\n\n")) {
		t.Errorf("case 1: visible = %q", got)
	}

	// 2. truncating at start of line, previous char was a newline
	buffer = NewBuffer(5, 5)
	buffer.InsertData(CursorPos{0, 0}, []byte("01234\n0123401234012340123401234"))
	buffer.ClearForwards(CursorPos{0, 1})
	if got := buffer.Data().Visible; !bytes.Equal(got, []byte("01234\n\n\n\n\n")) {
		t.Errorf("case 2: visible = %q", got)
	}

	// 3. truncating on a newline
	buffer = NewBuffer(5, 5)
	buffer.InsertData(CursorPos{0, 0}, []byte("\n\n\n\n\n\n"))
	buffer.ClearForwards(CursorPos{0, 1})
	if got := buffer.Data().Visible; !bytes.Equal(got, []byte("\n\n\n\n\n")) {
		t.Errorf("case 3: visible = %q", got)
	}
}

func TestCanvasClear(t *testing.T) {
	buffer := NewBuffer(5, 5)
	buffer.InsertData(CursorPos{0, 0}, []byte("0123456789"))
	buffer.ClearAll()
	if got := buffer.Data().Visible; len(got) != 0 {
		t.Errorf("visible = %q, want empty", got)
	}
}

func TestOverwriteEarlyNewline(t *testing.T) {
	buffer := NewBuffer(5, 5)
	buffer.InsertData(CursorPos{0, 0}, []byte("012\n3456789"))
	if got := buffer.Data().Visible; !bytes.Equal(got, []byte("012\n3456789\n")) {
		t.Fatalf("visible = %q", got)
	}
	buffer.InsertData(CursorPos{2, 1}, []byte("test"))
	if got := buffer.Data().Visible; !bytes.Equal(got, []byte("012\n34test9\n")) {
		t.Errorf("visible = %q", got)
	}
}

func TestOverwriteNoNewline(t *testing.T) {
	buffer := NewBuffer(5, 5)
	buffer.InsertData(CursorPos{0, 0}, []byte("0123456789"))
	if got := buffer.Data().Visible; !bytes.Equal(got, []byte("0123456789\n")) {
		t.Fatalf("visible = %q", got)
	}
	buffer.InsertData(CursorPos{2, 1}, []byte("test"))
	if got := buffer.Data().Visible; !bytes.Equal(got, []byte("0123456test\n")) {
		t.Errorf("visible = %q", got)
	}
}

func TestOverwriteLateNewline(t *testing.T) {
	buffer := NewBuffer(5, 5)
	buffer.InsertData(CursorPos{0, 0}, []byte("01234\n56789"))
	if got := buffer.Data().Visible; !bytes.Equal(got, []byte("01234\n56789\n")) {
		t.Fatalf("visible = %q", got)
	}
	buffer.InsertData(CursorPos{2, 1}, []byte("test"))
	if got := buffer.Data().Visible; !bytes.Equal(got, []byte("01234\n56test\n")) {
		t.Errorf("visible = %q", got)
	}
}

func TestInsertUnallocatedData(t *testing.T) {
	buffer := NewBuffer(10, 10)
	buffer.InsertData(CursorPos{4, 5}, []byte("hello world"))
	want := []byte("\n\n\n\n\n    hello world\n")
	if got := buffer.Data().Visible; !bytes.Equal(got, want) {
		t.Fatalf("visible = %q, want %q", got, want)
	}
	buffer.InsertData(CursorPos{3, 2}, []byte("hello world"))
	want = []byte("\n\n   hello world\n\n\n    hello world\n")
	if got := buffer.Data().Visible; !bytes.Equal(got, want) {
		t.Errorf("visible = %q, want %q", got, want)
	}
}

func TestCanvasScrolling(t *testing.T) {
	canvas := NewBuffer(10, 3)
	crlf := func(pos CursorPos) CursorPos { return CursorPos{X: 0, Y: pos.Y + 1} }

	resp := canvas.InsertData(CursorPos{0, 0}, []byte("asdf"))
	resp2 := canvas.InsertData(crlf(resp.NewCursorPos), []byte("xyzw"))
	resp3 := canvas.InsertData(crlf(resp2.NewCursorPos), []byte("1234"))
	canvas.InsertData(crlf(resp3.NewCursorPos), []byte("5678"))

	if got := canvas.Data().Scrollback; !bytes.Equal(got, []byte("asdf\n")) {
		t.Errorf("scrollback = %q, want %q", got, "asdf\n")
	}
	if got := canvas.Data().Visible; !bytes.Equal(got, []byte("xyzw\n1234\n5678\n")) {
		t.Errorf("visible = %q", got)
	}
}

func TestCanvasDeleteForwards(t *testing.T) {
	canvas := NewBuffer(10, 5)
	canvas.InsertData(CursorPos{0, 0}, []byte("asdf\n123456789012345"))

	r, ok := canvas.DeleteForwards(CursorPos{1, 0}, 1)
	if !ok || r != (Range{1, 2}) {
		t.Fatalf("got %v %v, want {1 2} true", r, ok)
	}
	if got := canvas.Data().Visible; !bytes.Equal(got, []byte("adf\n123456789012345\n")) {
		t.Errorf("visible = %q", got)
	}

	r, ok = canvas.DeleteForwards(CursorPos{1, 0}, 10)
	if !ok || r != (Range{1, 3}) {
		t.Fatalf("got %v %v, want {1 3} true", r, ok)
	}
	if got := canvas.Data().Visible; !bytes.Equal(got, []byte("a\n123456789012345\n")) {
		t.Errorf("visible = %q", got)
	}

	r, ok = canvas.DeleteForwards(CursorPos{7, 1}, 10)
	if !ok || r != (Range{9, 12}) {
		t.Fatalf("got %v %v, want {9 12} true", r, ok)
	}
	if got := canvas.Data().Visible; !bytes.Equal(got, []byte("a\n1234567\n12345\n")) {
		t.Errorf("visible = %q", got)
	}

	_, ok = canvas.DeleteForwards(CursorPos{5, 5}, 10)
	if ok {
		t.Errorf("expected no deletion, got ok=true")
	}
	if got := canvas.Data().Visible; !bytes.Equal(got, []byte("a\n1234567\n12345\n")) {
		t.Errorf("visible = %q", got)
	}
}

func TestCanvasInsertSpaces(t *testing.T) {
	canvas := NewBuffer(10, 5)
	canvas.InsertData(CursorPos{0, 0}, []byte("asdf\n123456789012345"))

	resp := canvas.InsertSpaces(CursorPos{2, 0}, 2)
	if resp.WrittenRange != (Range{2, 4}) || resp.InsertionRange != (Range{2, 4}) || resp.NewCursorPos != (CursorPos{2, 0}) {
		t.Fatalf("resp = %+v", resp)
	}
	if got := canvas.Data().Visible; !bytes.Equal(got, []byte("as  df\n123456789012345\n")) {
		t.Errorf("visible = %q", got)
	}

	resp = canvas.InsertSpaces(CursorPos{2, 0}, 1000)
	if resp.WrittenRange != (Range{2, 10}) || resp.InsertionRange != (Range{2, 6}) {
		t.Fatalf("resp = %+v", resp)
	}
	if got := canvas.Data().Visible; !bytes.Equal(got, []byte("as        \n123456789012345\n")) {
		t.Errorf("visible = %q", got)
	}

	resp = canvas.InsertSpaces(CursorPos{4, 1}, 1000)
	if resp.WrittenRange != (Range{15, 21}) {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.InsertionRange.Len() != 0 {
		t.Errorf("expected empty insertion range, got %v", resp.InsertionRange)
	}
	if got := canvas.Data().Visible; !bytes.Equal(got, []byte("as        \n1234      12345\n")) {
		t.Errorf("visible = %q", got)
	}

	resp = canvas.InsertSpaces(CursorPos{2, 4}, 3)
	if resp.WrittenRange != (Range{30, 33}) || resp.InsertionRange != (Range{27, 34}) {
		t.Fatalf("resp = %+v", resp)
	}
	if got := canvas.Data().Visible; !bytes.Equal(got, []byte("as        \n1234      12345\n\n     \n")) {
		t.Errorf("visible = %q", got)
	}
}

func TestClearLineForwards(t *testing.T) {
	canvas := NewBuffer(10, 5)
	canvas.InsertData(CursorPos{0, 0}, []byte("asdf\n123456789012345"))

	_, ok := canvas.ClearLineForwards(CursorPos{5, 5})
	if ok {
		t.Errorf("expected no deletion")
	}

	r, ok := canvas.ClearLineForwards(CursorPos{2, 0})
	if !ok || r != (Range{2, 4}) {
		t.Fatalf("got %v %v", r, ok)
	}
	if got := canvas.Data().Visible; !bytes.Equal(got, []byte("as\n123456789012345\n")) {
		t.Errorf("visible = %q", got)
	}

	r, ok = canvas.ClearLineForwards(CursorPos{2, 1})
	if !ok || r != (Range{5, 13}) {
		t.Fatalf("got %v %v", r, ok)
	}
	if got := canvas.Data().Visible; !bytes.Equal(got, []byte("as\n1212345\n")) {
		t.Errorf("visible = %q", got)
	}
}

func TestResizeExpand(t *testing.T) {
	canvas := NewBuffer(10, 6)
	cursorPos := CursorPos{0, 0}

	simulateResize := func(width, height int, pos CursorPos) InsertResponse {
		resp := canvas.SetWinSize(width, height, pos)
		resp.NewCursorPos.X = 0
		spaces := bytes.Repeat([]byte{' '}, width)
		resp2 := canvas.InsertData(resp.NewCursorPos, spaces)
		resp2.NewCursorPos.X = 0
		return canvas.InsertData(resp2.NewCursorPos, []byte("$ "))
	}

	r1 := simulateResize(10, 5, cursorPos)
	r2 := simulateResize(10, 4, r1.NewCursorPos)
	r3 := simulateResize(10, 3, r2.NewCursorPos)
	simulateResize(10, 5, r3.NewCursorPos)

	if got := canvas.Data().Visible; !bytes.Equal(got, []byte("$         \n")) {
		t.Errorf("visible = %q", got)
	}
}

func TestInsertLines(t *testing.T) {
	canvas := NewBuffer(5, 5)

	resp := canvas.InsertLines(CursorPos{0, 0}, 3)
	if resp.DeletedRange.Len() != 0 || resp.InsertedRange.Len() != 0 {
		t.Fatalf("resp = %+v", resp)
	}
	if got := canvas.Data().Visible; len(got) != 0 {
		t.Errorf("visible = %q, want empty", got)
	}

	canvas.InsertData(CursorPos{0, 0}, []byte("0123456789asdf\nxyzw"))
	if got := canvas.Data().Visible; !bytes.Equal(got, []byte("0123456789asdf\nxyzw\n")) {
		t.Fatalf("visible = %q", got)
	}
	resp = canvas.InsertLines(CursorPos{3, 2}, 1)
	if got := canvas.Data().Visible; !bytes.Equal(got, []byte("0123456789\n\nasdf\nxyzw\n")) {
		t.Errorf("visible = %q", got)
	}
	if resp.DeletedRange.Len() != 0 || resp.InsertedRange != (Range{10, 12}) {
		t.Errorf("resp = %+v", resp)
	}

	resp = canvas.InsertLines(CursorPos{3, 2}, 1)
	if got := canvas.Data().Visible; !bytes.Equal(got, []byte("0123456789\n\n\nasdf\n")) {
		t.Errorf("visible = %q", got)
	}
	if resp.DeletedRange != (Range{17, 22}) || resp.InsertedRange != (Range{11, 12}) {
		t.Errorf("resp = %+v", resp)
	}
}

func TestBufferSnapshotRoundtrip(t *testing.T) {
	buf := &Buffer{buf: []byte{1, 5, 9, 11}, width: 342, height: 9999}
	snap := buf.Snapshot()
	loaded, err := BufferFromSnapshot(snap)
	if err != nil {
		t.Fatalf("BufferFromSnapshot: %v", err)
	}
	if !bytes.Equal(loaded.buf, buf.buf) || loaded.width != buf.width || loaded.height != buf.height {
		t.Errorf("loaded = %+v, want %+v", loaded, buf)
	}
}
