package screen

import "testing"

func tagsEqual(a, b []FormatTag) bool {
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

func TestBasicColorTracker(t *testing.T) {
	ft := NewFormatTracker()
	cursor := CursorState{Pos: CursorPos{0, 0}, Color: ColorDefault}

	cursor.Color = ColorYellow
	ft.PushRange(cursor, Range{3, 10})
	want := []FormatTag{
		{0, 3, ColorDefault, false},
		{3, 10, ColorYellow, false},
		{10, EndOfBuffer, ColorDefault, false},
	}
	if got := ft.Tags(); !tagsEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	cursor.Color = ColorBlue
	ft.PushRange(cursor, Range{5, 7})
	want = []FormatTag{
		{0, 3, ColorDefault, false},
		{3, 5, ColorYellow, false},
		{5, 7, ColorBlue, false},
		{7, 10, ColorYellow, false},
		{10, EndOfBuffer, ColorDefault, false},
	}
	if got := ft.Tags(); !tagsEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	cursor.Color = ColorGreen
	ft.PushRange(cursor, Range{7, 9})
	want = []FormatTag{
		{0, 3, ColorDefault, false},
		{3, 5, ColorYellow, false},
		{5, 7, ColorBlue, false},
		{7, 9, ColorGreen, false},
		{9, 10, ColorYellow, false},
		{10, EndOfBuffer, ColorDefault, false},
	}
	if got := ft.Tags(); !tagsEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	cursor.Color = ColorRed
	cursor.Bold = true
	ft.PushRange(cursor, Range{6, 11})
	want = []FormatTag{
		{0, 3, ColorDefault, false},
		{3, 5, ColorYellow, false},
		{5, 6, ColorBlue, false},
		{6, 11, ColorRed, true},
		{11, EndOfBuffer, ColorDefault, false},
	}
	if got := ft.Tags(); !tagsEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestRangeOverlap(t *testing.T) {
	cases := []struct {
		a, b Range
		want bool
	}{
		{Range{5, 10}, Range{7, 9}, true},
		{Range{5, 10}, Range{8, 12}, true},
		{Range{5, 10}, Range{3, 6}, true},
		{Range{5, 10}, Range{2, 12}, true},
		{Range{5, 10}, Range{10, 12}, false},
		{Range{5, 10}, Range{0, 5}, false},
	}
	for _, c := range cases {
		if got := rangesOverlap(c.a, c.b); got != c.want {
			t.Errorf("rangesOverlap(%v,%v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestFormatTrackerDeleteRange(t *testing.T) {
	ft := NewFormatTracker()
	cursor := CursorState{Color: ColorBlue}
	ft.PushRange(cursor, Range{0, 10})
	cursor.Color = ColorRed
	ft.PushRange(cursor, Range{10, 20})

	ft.DeleteRange(Range{0, 2})
	want := []FormatTag{
		{0, 8, ColorBlue, false},
		{8, 18, ColorRed, false},
		{18, EndOfBuffer, ColorDefault, false},
	}
	if got := ft.Tags(); !tagsEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	ft.DeleteRange(Range{2, 4})
	want = []FormatTag{
		{0, 6, ColorBlue, false},
		{6, 16, ColorRed, false},
		{16, EndOfBuffer, ColorDefault, false},
	}
	if got := ft.Tags(); !tagsEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	ft.DeleteRange(Range{4, 6})
	want = []FormatTag{
		{0, 4, ColorBlue, false},
		{4, 14, ColorRed, false},
		{14, EndOfBuffer, ColorDefault, false},
	}
	if got := ft.Tags(); !tagsEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	ft.DeleteRange(Range{2, 7})
	want = []FormatTag{
		{0, 2, ColorBlue, false},
		{2, 9, ColorRed, false},
		{9, EndOfBuffer, ColorDefault, false},
	}
	if got := ft.Tags(); !tagsEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestRangeAdjustment(t *testing.T) {
	ft := NewFormatTracker()
	cursor := CursorState{Color: ColorBlue}
	ft.PushRange(cursor, Range{0, 5})
	cursor.Color = ColorRed
	ft.PushRange(cursor, Range{5, 10})

	want := []FormatTag{
		{0, 5, ColorBlue, false},
		{5, 10, ColorRed, false},
		{10, EndOfBuffer, ColorDefault, false},
	}
	if got := ft.Tags(); !tagsEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	ft.PushRangeAdjustment(Range{0, 3})
	want = []FormatTag{
		{0, 8, ColorBlue, false},
		{8, 13, ColorRed, false},
		{13, EndOfBuffer, ColorDefault, false},
	}
	if got := ft.Tags(); !tagsEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	ft.PushRangeAdjustment(Range{15, 50})
	if got := ft.Tags(); !tagsEqual(got, want) {
		t.Fatalf("no-op adjustment changed tags: got %+v, want %+v", got, want)
	}

	ft.PushRangeAdjustment(Range{10, 12})
	want = []FormatTag{
		{0, 8, ColorBlue, false},
		{8, 15, ColorRed, false},
		{15, EndOfBuffer, ColorDefault, false},
	}
	if got := ft.Tags(); !tagsEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestFormatTagSnapshotRoundtrip(t *testing.T) {
	tag := FormatTag{Start: 0, End: EndOfBuffer, Color: ColorBlue, Bold: true}
	loaded, err := formatTagFromSnapshot(tag.snapshot())
	if err != nil {
		t.Fatalf("formatTagFromSnapshot: %v", err)
	}
	if loaded != tag {
		t.Errorf("loaded = %+v, want %+v", loaded, tag)
	}

	tag = FormatTag{Start: 50, End: 105, Color: ColorRed, Bold: false}
	loaded, err = formatTagFromSnapshot(tag.snapshot())
	if err != nil {
		t.Fatalf("formatTagFromSnapshot: %v", err)
	}
	if loaded != tag {
		t.Errorf("loaded = %+v, want %+v", loaded, tag)
	}
}

func TestFormatTrackerSnapshotRoundtrip(t *testing.T) {
	ft := &FormatTracker{colorInfo: []FormatTag{
		{0, 5, ColorBlack, false},
		{5, EndOfBuffer, ColorRed, true},
	}}
	loaded, err := FormatTrackerFromSnapshot(ft.Snapshot())
	if err != nil {
		t.Fatalf("FormatTrackerFromSnapshot: %v", err)
	}
	if !tagsEqual(loaded.colorInfo, ft.colorInfo) {
		t.Errorf("loaded = %+v, want %+v", loaded.colorInfo, ft.colorInfo)
	}
}
