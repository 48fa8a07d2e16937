// Package screen holds the two engine components that together model the
// visible grid and its scrollback: Buffer, a single linear byte vector
// addressed by a shared index space, and FormatTracker, the set of
// non-overlapping format runs keyed into that same space.
package screen

import (
	"errors"
	"fmt"
	"log"

	"github.com/vt100go/termengine/pkg/snapshot"
)

// Range is a half-open [Start, End) span into Buffer's linear index
// space. Both Buffer mutation responses and FormatTracker tags are
// expressed in this space.
type Range struct {
	Start int
	End   int
}

func (r Range) Len() int { return r.End - r.Start }

// CursorPos is a zero-based (column, row) position in the visible grid.
type CursorPos struct {
	X int
	Y int
}

// calcLineRanges splits buf into line ranges, breaking on '\n' (the
// separator is excluded from the range) and, failing that, every width
// bytes (the wrap point becomes the first byte of the next range).
func calcLineRanges(buf []byte, width int) []Range {
	var ret []Range
	currentStart := 0
	for i, c := range buf {
		if c == '\n' {
			ret = append(ret, Range{currentStart, i})
			currentStart = i + 1
			continue
		}
		if i-currentStart == width {
			ret = append(ret, Range{currentStart, i})
			currentStart = i
			continue
		}
	}
	if len(buf) > currentStart {
		ret = append(ret, Range{currentStart, len(buf)})
	}
	return ret
}

// ErrInvalidBufPos is returned when a position does not correspond to
// any visible line.
var ErrInvalidBufPos = errors.New("invalid buffer position")

func bufToCursorPos(buf []byte, width, height, bufPos int) (CursorPos, error) {
	lineRanges := calcLineRanges(buf, width)
	visible := lineRangesToVisibleLineRanges(lineRanges, height)

	for y, r := range visible {
		if r.End >= bufPos {
			if bufPos < r.Start {
				log.Printf("screen: old cursor position no longer on screen")
				return CursorPos{}, nil
			}
			return CursorPos{X: bufPos - r.Start, Y: y}, nil
		}
	}
	return CursorPos{}, fmt.Errorf("%w: pos %d, buf len %d", ErrInvalidBufPos, bufPos, len(buf))
}

func unwrappedLineEndPos(buf []byte, startPos int) int {
	for i := startPos; i < len(buf); i++ {
		if buf[i] == '\n' {
			return i
		}
	}
	return len(buf)
}

// lineRangesToVisibleLineRanges returns the trailing height entries of
// lineRanges, treating "visible" as the bottom N lines.
func lineRangesToVisibleLineRanges(lineRanges []Range, height int) []Range {
	if len(lineRanges) == 0 {
		return lineRanges
	}
	first := len(lineRanges) - height
	if first < 0 {
		first = 0
	}
	return lineRanges[first:]
}

type padBufferForWriteResponse struct {
	writeIdx        int
	insertedPadding Range
}

func padBufferForWrite(buf *[]byte, width, height int, cursorPos CursorPos, writeLen int) padBufferForWriteResponse {
	lineRanges := calcLineRanges(*buf, width)
	visibleLineRanges := append([]Range(nil), lineRangesToVisibleLineRanges(lineRanges, height)...)

	var paddingStartPos *int
	numInserted := 0

	verticalPaddingNeeded := 0
	if cursorPos.Y+1 > len(visibleLineRanges) {
		verticalPaddingNeeded = cursorPos.Y + 1 - len(visibleLineRanges)
	}

	if verticalPaddingNeeded != 0 {
		pos := len(*buf)
		paddingStartPos = &pos
		numInserted += verticalPaddingNeeded
	}

	for i := 0; i < verticalPaddingNeeded; i++ {
		*buf = append(*buf, '\n')
		newlinePos := len(*buf) - 1
		visibleLineRanges = append(visibleLineRanges, Range{newlinePos, newlinePos})
	}

	lineRange := visibleLineRanges[cursorPos.Y]

	desiredStart := lineRange.Start + cursorPos.X
	desiredEnd := desiredStart + writeLen

	// Only pad if an early newline was hit. If we wrapped because we hit
	// the edge of the screen, keep writing and overwrite what's there.
	actualEnd := unwrappedLineEndPos(*buf, lineRange.Start)

	if paddingStartPos == nil {
		paddingStartPos = &actualEnd
	}

	numberOfSpaces := 0
	if desiredEnd > actualEnd {
		numberOfSpaces = desiredEnd - actualEnd
	}
	numInserted += numberOfSpaces

	if numberOfSpaces > 0 {
		spaces := make([]byte, numberOfSpaces)
		for i := range spaces {
			spaces[i] = ' '
		}
		*buf = insertAt(*buf, actualEnd, spaces)
	}

	startBufPos := *paddingStartPos
	return padBufferForWriteResponse{
		writeIdx:        desiredStart,
		insertedPadding: Range{startBufPos, startBufPos + numInserted},
	}
}

// insertAt splices data into buf at idx, shifting the tail right.
func insertAt(buf []byte, idx int, data []byte) []byte {
	out := make([]byte, 0, len(buf)+len(data))
	out = append(out, buf[:idx]...)
	out = append(out, data...)
	out = append(out, buf[idx:]...)
	return out
}

func cursorToBufPosFromVisibleLineRanges(cursorPos CursorPos, visibleLineRanges []Range) (int, Range, bool) {
	if cursorPos.Y < 0 || cursorPos.Y >= len(visibleLineRanges) {
		return 0, Range{}, false
	}
	r := visibleLineRanges[cursorPos.Y]
	candidate := r.Start + cursorPos.X
	if candidate > r.End {
		return 0, Range{}, false
	}
	return candidate, r, true
}

func cursorToBufPos(buf []byte, cursorPos CursorPos, width, height int) (int, Range, bool) {
	lineRanges := calcLineRanges(buf, width)
	visible := lineRangesToVisibleLineRanges(lineRanges, height)
	return cursorToBufPosFromVisibleLineRanges(cursorPos, visible)
}

// InsertResponse describes the result of a data/spaces insertion.
type InsertResponse struct {
	WrittenRange   Range
	InsertionRange Range
	NewCursorPos   CursorPos
}

// InsertLineResponse describes the result of InsertLines.
type InsertLineResponse struct {
	DeletedRange  Range
	InsertedRange Range
}

// SetWinSizeResponse describes the result of SetWinSize.
type SetWinSizeResponse struct {
	Changed       bool
	InsertionRange Range
	NewCursorPos  CursorPos
}

const (
	bufKey    = "buf"
	widthKey  = "width"
	heightKey = "height"
)

// Buffer is the single-vector scrollback+visible-grid model: scrollback
// and the visible rows live concatenated in one byte slice, addressed by
// the same linear index space FormatTracker tags reference. Not safe for
// concurrent use.
type Buffer struct {
	buf    []byte
	width  int
	height int
}

func NewBuffer(width, height int) *Buffer {
	return &Buffer{width: width, height: height}
}

func BufferFromSnapshot(it snapshot.Item) (*Buffer, error) {
	bufItem, err := snapshot.Field(it, "buffer", bufKey)
	if err != nil {
		return nil, err
	}
	buf, err := bufItem.AsBytes()
	if err != nil {
		return nil, fmt.Errorf("buffer.buf: %w", err)
	}
	width, err := fieldUint(it, "buffer", widthKey)
	if err != nil {
		return nil, err
	}
	height, err := fieldUint(it, "buffer", heightKey)
	if err != nil {
		return nil, err
	}
	return &Buffer{buf: buf, width: int(width), height: int(height)}, nil
}

func fieldUint(it snapshot.Item, parent, key string) (uint, error) {
	f, err := snapshot.Field(it, parent, key)
	if err != nil {
		return 0, err
	}
	return f.AsUint()
}

func (b *Buffer) Snapshot() snapshot.Item {
	return snapshot.Map(map[string]snapshot.Item{
		bufKey:    snapshot.Bytes(b.buf),
		widthKey:  snapshot.Int(int64(b.width)),
		heightKey: snapshot.Int(int64(b.height)),
	})
}

// InsertData writes data at cursorPos, padding with newlines/spaces as
// needed to make the position addressable, and reports the resulting
// cursor position.
func (b *Buffer) InsertData(cursorPos CursorPos, data []byte) InsertResponse {
	resp := padBufferForWrite(&b.buf, b.width, b.height, cursorPos, len(data))
	writeRange := Range{resp.writeIdx, resp.writeIdx + len(data)}
	copy(b.buf[writeRange.Start:writeRange.End], data)
	newCursorPos, err := bufToCursorPos(b.buf, b.width, b.height, writeRange.End)
	if err != nil {
		panic("write range should be valid in buf: " + err.Error())
	}
	return InsertResponse{
		WrittenRange:   writeRange,
		InsertionRange: resp.insertedPadding,
		NewCursorPos:   newCursorPos,
	}
}

// InsertSpaces inserts up to width spaces at cursorPos without wrapping:
// if the line end is hit, insertion stops.
func (b *Buffer) InsertSpaces(cursorPos CursorPos, numSpaces int) InsertResponse {
	if numSpaces > b.width {
		numSpaces = b.width
	}

	bufPos, lineRange, ok := cursorToBufPos(b.buf, cursorPos, b.width, b.height)
	if ok {
		lineLen := lineRange.End - lineRange.Start
		numInserted := numSpaces
		if avail := b.width - lineLen; numInserted > avail {
			numInserted = avail
		}
		numOverwritten := numSpaces - numInserted
		if avail := lineRange.End - bufPos; numOverwritten > avail {
			numOverwritten = avail
		}

		for i := bufPos; i < bufPos+numOverwritten; i++ {
			b.buf[i] = ' '
		}
		if numInserted > 0 {
			spaces := make([]byte, numInserted)
			for i := range spaces {
				spaces[i] = ' '
			}
			b.buf = insertAt(b.buf, bufPos, spaces)
		}

		usedSpaces := numInserted + numOverwritten
		return InsertResponse{
			WrittenRange:   Range{bufPos, bufPos + usedSpaces},
			InsertionRange: Range{bufPos, bufPos + numInserted},
			NewCursorPos:   cursorPos,
		}
	}

	resp := padBufferForWrite(&b.buf, b.width, b.height, cursorPos, numSpaces)
	return InsertResponse{
		WrittenRange:   Range{resp.writeIdx, resp.writeIdx + numSpaces},
		InsertionRange: resp.insertedPadding,
		NewCursorPos:   cursorPos,
	}
}

// InsertLines inserts numLines blank lines at cursorPos's row, pushing
// later rows down; rows pushed past the bottom of the visible area are
// dropped.
func (b *Buffer) InsertLines(cursorPos CursorPos, numLines int) InsertLineResponse {
	lineRanges := calcLineRanges(b.buf, b.width)
	visibleLineRanges := lineRangesToVisibleLineRanges(lineRanges, b.height)

	if cursorPos.Y < 0 || cursorPos.Y >= len(visibleLineRanges) {
		return InsertLineResponse{DeletedRange: Range{0, 0}, InsertedRange: Range{0, 0}}
	}
	lineRange := visibleLineRanges[cursorPos.Y]

	availableSpace := b.height - len(visibleLineRanges)
	if max := b.height - cursorPos.Y; numLines > max {
		numLines = max
	}

	deletionRange := Range{0, 0}
	if numLines > availableSpace {
		numLinesRemoved := numLines - availableSpace
		removalStartIdx := visibleLineRanges[len(visibleLineRanges)-numLinesRemoved].Start
		deletionRange = Range{removalStartIdx, len(b.buf)}
		b.buf = b.buf[:removalStartIdx]
	}

	insertionPos := lineRange.Start

	// Edge case: if the previous line ended in a wrap (no newline), inserting
	// a line here won't free up an extra visible row unless we add one more.
	if insertionPos > 0 && b.buf[insertionPos-1] != '\n' {
		numLines++
	}

	newlines := make([]byte, numLines)
	for i := range newlines {
		newlines[i] = '\n'
	}
	b.buf = insertAt(b.buf, insertionPos, newlines)

	return InsertLineResponse{
		DeletedRange:  deletionRange,
		InsertedRange: Range{insertionPos, insertionPos + numLines},
	}
}

// ClearForwards truncates the buffer at cursorPos, returning the buffer
// position truncated at, or false if cursorPos has no buffer position.
func (b *Buffer) ClearForwards(cursorPos CursorPos) (int, bool) {
	lineRanges := calcLineRanges(b.buf, b.width)
	visibleLineRanges := lineRangesToVisibleLineRanges(lineRanges, b.height)

	bufPos, _, ok := cursorToBufPosFromVisibleLineRanges(cursorPos, visibleLineRanges)
	if !ok {
		return 0, false
	}

	previousLastChar := b.buf[bufPos]
	b.buf = b.buf[:bufPos]

	if (cursorPos.X == 0 && bufPos > 0 && b.buf[bufPos-1] != '\n') || previousLastChar == '\n' {
		b.buf = append(b.buf, '\n')
	}

	for _, line := range visibleLineRanges {
		if line.End > bufPos {
			b.buf = append(b.buf, '\n')
		}
	}

	return bufPos, true
}

// ClearLineForwards drains from cursorPos to the end of its line.
func (b *Buffer) ClearLineForwards(cursorPos CursorPos) (Range, bool) {
	bufPos, lineRange, ok := cursorToBufPos(b.buf, cursorPos, b.width, b.height)
	if !ok {
		return Range{}, false
	}
	delRange := Range{bufPos, lineRange.End}
	b.buf = append(b.buf[:delRange.Start], b.buf[delRange.End:]...)
	return delRange, true
}

// ClearAll discards the entire buffer, scrollback included.
func (b *Buffer) ClearAll() {
	b.buf = nil
}

// DeleteForwards removes up to numChars starting at cursorPos, clamped to
// the current line.
func (b *Buffer) DeleteForwards(cursorPos CursorPos, numChars int) (Range, bool) {
	bufPos, lineRange, ok := cursorToBufPos(b.buf, cursorPos, b.width, b.height)
	if !ok {
		return Range{}, false
	}

	deleteRange := Range{bufPos, bufPos + numChars}

	if deleteRange.End > lineRange.End && (lineRange.End >= len(b.buf) || b.buf[lineRange.End] != '\n') {
		b.buf = insertAt(b.buf, lineRange.End, []byte{'\n'})
	}

	if deleteRange.End > lineRange.End {
		deleteRange.End = lineRange.End
	}

	b.buf = append(b.buf[:deleteRange.Start], b.buf[deleteRange.End:]...)
	return deleteRange, true
}

// Data is the scrollback/visible split of a Buffer snapshot, as byte
// slices into the linear address space.
type Data struct {
	Scrollback []byte
	Visible    []byte
}

// Data returns the current scrollback/visible split.
func (b *Buffer) Data() Data {
	lineRanges := calcLineRanges(b.buf, b.width)
	visibleLineRanges := lineRangesToVisibleLineRanges(lineRanges, b.height)
	if len(b.buf) == 0 {
		return Data{Scrollback: nil, Visible: b.buf}
	}
	start := visibleLineRanges[0].Start
	return Data{Scrollback: b.buf[:start], Visible: b.buf[start:]}
}

func (b *Buffer) GetWinSize() (int, int) { return b.width, b.height }

// SetWinSize resizes the visible grid, remapping cursorPos into the new
// dimensions.
func (b *Buffer) SetWinSize(width, height int, cursorPos CursorPos) SetWinSizeResponse {
	changed := b.width != width || b.height != height
	if !changed {
		return SetWinSizeResponse{Changed: false, InsertionRange: Range{0, 0}, NewCursorPos: cursorPos}
	}

	padResp := padBufferForWrite(&b.buf, b.width, b.height, cursorPos, 0)
	bufPos := padResp.writeIdx
	insertedPadding := padResp.insertedPadding

	newCursorPos, err := bufToCursorPos(b.buf, width, height, bufPos)
	if err != nil {
		panic("buf pos should exist in buffer: " + err.Error())
	}

	b.width = width
	b.height = height

	return SetWinSizeResponse{
		Changed:        changed,
		InsertionRange: insertedPadding,
		NewCursorPos:   newCursorPos,
	}
}
