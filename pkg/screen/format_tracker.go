package screen

import (
	"fmt"
	"math"
	"sort"

	"github.com/vt100go/termengine/pkg/snapshot"
)

// EndOfBuffer is the sentinel "unbounded" end value a FormatTag carries
// when its run has no known end yet -- the Go stand-in for usize::MAX,
// serialized as -1 in a snapshot tree.
const EndOfBuffer = math.MaxInt

// FormatTag is one run of uniform formatting over [Start, End) of the
// buffer's linear index space. End == EndOfBuffer means "runs to whatever
// the buffer currently ends at".
type FormatTag struct {
	Start int
	End   int
	Color TerminalColor
	Bold  bool
}

const (
	tagStartKey = "start"
	tagEndKey   = "end"
	tagColorKey = "color"
	tagBoldKey  = "bold"
)

func (t FormatTag) snapshot() snapshot.Item {
	endI := int64(t.End)
	if t.End == EndOfBuffer {
		endI = -1
	}
	return snapshot.Map(map[string]snapshot.Item{
		tagStartKey: snapshot.Int(int64(t.Start)),
		tagEndKey:   snapshot.Int(endI),
		tagColorKey: snapshot.String(t.Color.String()),
		tagBoldKey:  snapshot.Bool(t.Bold),
	})
}

func formatTagFromSnapshot(it snapshot.Item) (FormatTag, error) {
	start, err := fieldUint(it, "format_tag", tagStartKey)
	if err != nil {
		return FormatTag{}, err
	}
	endItem, err := snapshot.Field(it, "format_tag", tagEndKey)
	if err != nil {
		return FormatTag{}, err
	}
	endI, err := endItem.AsInt64()
	if err != nil {
		return FormatTag{}, fmt.Errorf("format_tag.end: %w", err)
	}
	end := EndOfBuffer
	if endI != -1 {
		end = int(endI)
	}
	boldItem, err := snapshot.Field(it, "format_tag", tagBoldKey)
	if err != nil {
		return FormatTag{}, err
	}
	bold, err := boldItem.AsBool()
	if err != nil {
		return FormatTag{}, fmt.Errorf("format_tag.bold: %w", err)
	}
	colorStr, err := fieldString(it, "format_tag", tagColorKey)
	if err != nil {
		return FormatTag{}, err
	}
	color, err := ParseTerminalColor(colorStr)
	if err != nil {
		return FormatTag{}, fmt.Errorf("format_tag.color: %w", err)
	}
	return FormatTag{Start: int(start), End: end, Color: color, Bold: bold}, nil
}

func fieldString(it snapshot.Item, parent, key string) (string, error) {
	f, err := snapshot.Field(it, parent, key)
	if err != nil {
		return "", err
	}
	return f.AsString()
}

func rangesOverlap(a, b Range) bool {
	if a.End <= b.Start {
		return false
	}
	if a.Start >= b.End {
		return false
	}
	return true
}

// rangeFullyContains reports whether a fully contains b.
func rangeFullyContains(a, b Range) bool {
	return a.Start <= b.Start && a.End >= b.End
}

// rangeStartsOverlapping reports whether a starts inside b and ends past
// b's end, i.e. a overlaps b's right edge.
func rangeStartsOverlapping(a, b Range) bool {
	return a.Start > b.Start && a.End > b.End
}

func rangeEndsOverlapping(a, b Range) bool {
	return rangeStartsOverlapping(b, a)
}

type colorRangeAdjustment struct {
	shouldDelete bool
	toInsert     *FormatTag
}

func adjustExistingFormatRange(existing *FormatTag, r Range) colorRangeAdjustment {
	var ret colorRangeAdjustment
	existingRange := Range{existing.Start, existing.End}

	switch {
	case rangeFullyContains(r, existingRange):
		ret.shouldDelete = true
	case rangeFullyContains(existingRange, r):
		if existing.Start == r.Start {
			ret.shouldDelete = true
		}
		if r.End != existing.End {
			ins := FormatTag{Start: r.End, End: existing.End, Color: existing.Color, Bold: existing.Bold}
			ret.toInsert = &ins
		}
		existing.End = r.Start
	case rangeStartsOverlapping(r, existingRange):
		existing.End = r.Start
		if existing.Start == existing.End {
			ret.shouldDelete = true
		}
	case rangeEndsOverlapping(r, existingRange):
		existing.Start = r.End
		if existing.Start == existing.End {
			ret.shouldDelete = true
		}
	default:
		panic(fmt.Sprintf("unhandled case %d-%d, %d-%d", existing.Start, existing.End, r.Start, r.End))
	}
	return ret
}

func adjustExistingFormatRanges(existing *[]FormatTag, r Range) {
	var toDelete []int
	var toPush []FormatTag

	for i := range *existing {
		tag := &(*existing)[i]
		if !rangesOverlap(Range{tag.Start, tag.End}, r) {
			continue
		}
		adj := adjustExistingFormatRange(tag, r)
		if adj.shouldDelete {
			toDelete = append(toDelete, i)
		}
		if adj.toInsert != nil {
			toPush = append(toPush, *adj.toInsert)
		}
	}

	sort.Sort(sort.Reverse(sort.IntSlice(toDelete)))
	for _, idx := range toDelete {
		*existing = append((*existing)[:idx], (*existing)[idx+1:]...)
	}
	*existing = append(*existing, toPush...)
}

// FormatTracker holds the ordered, non-overlapping set of format runs
// covering the buffer's linear index space. Not safe for concurrent use.
type FormatTracker struct {
	colorInfo []FormatTag
}

func NewFormatTracker() *FormatTracker {
	return &FormatTracker{
		colorInfo: []FormatTag{{Start: 0, End: EndOfBuffer, Color: ColorDefault, Bold: false}},
	}
}

func FormatTrackerFromSnapshot(it snapshot.Item) (*FormatTracker, error) {
	arr, err := it.AsArray()
	if err != nil {
		return nil, fmt.Errorf("format_tracker: %w", err)
	}
	tags := make([]FormatTag, len(arr))
	for i, elem := range arr {
		tag, err := formatTagFromSnapshot(elem)
		if err != nil {
			return nil, fmt.Errorf("format_tracker[%d]: %w", i, err)
		}
		tags[i] = tag
	}
	return &FormatTracker{colorInfo: tags}, nil
}

func (f *FormatTracker) Snapshot() snapshot.Item {
	items := make([]snapshot.Item, len(f.colorInfo))
	for i, tag := range f.colorInfo {
		items[i] = tag.snapshot()
	}
	return snapshot.Array(items)
}

// PushRange records that [start,end) was just written with cursor's
// current color/bold attributes, adjusting or splitting any existing
// runs that overlap it.
func (f *FormatTracker) PushRange(cursor CursorState, r Range) {
	adjustExistingFormatRanges(&f.colorInfo, r)

	f.colorInfo = append(f.colorInfo, FormatTag{
		Start: r.Start,
		End:   r.End,
		Color: cursor.Color,
		Bold:  cursor.Bold,
	})

	// FIXME: insertion sort
	// FIXME: merge adjacent
	sort.Slice(f.colorInfo, func(i, j int) bool { return f.colorInfo[i].Start < f.colorInfo[j].Start })
}

// PushRangeAdjustment shifts every tag starting after range.Start forward
// by range.Len(), and extends any tag already covering range.Start. No
// gaps are allowed in the coverage, so exactly one run expands instead of
// the space being left uncovered.
func (f *FormatTracker) PushRangeAdjustment(r Range) {
	rangeLen := r.Len()
	for i := range f.colorInfo {
		info := &f.colorInfo[i]
		if info.End <= r.Start {
			continue
		}
		if info.Start > r.Start {
			info.Start += rangeLen
			if info.End != EndOfBuffer {
				info.End += rangeLen
			}
		} else if info.End != EndOfBuffer {
			info.End += rangeLen
		}
	}
}

// Tags returns a copy of the tracked format runs, ordered by Start.
func (f *FormatTracker) Tags() []FormatTag {
	out := make([]FormatTag, len(f.colorInfo))
	copy(out, f.colorInfo)
	return out
}

// DeleteRange removes [start,end) from the index space, shifting every
// tag after it back by range.Len() and clipping/splitting tags that
// overlapped the deleted span.
func (f *FormatTracker) DeleteRange(r Range) {
	var toDelete []int
	delSize := r.Len()

	for i := range f.colorInfo {
		info := &f.colorInfo[i]
		infoRange := Range{info.Start, info.End}
		if info.End <= r.Start {
			continue
		}

		if rangesOverlap(r, infoRange) {
			switch {
			case rangeFullyContains(r, infoRange):
				toDelete = append(toDelete, i)
			case rangeStartsOverlapping(r, infoRange):
				if info.End != EndOfBuffer {
					info.End = r.Start
				}
			case rangeEndsOverlapping(r, infoRange):
				info.Start = r.Start
				if info.End != EndOfBuffer {
					info.End -= delSize
				}
			case rangeFullyContains(infoRange, r):
				if info.End != EndOfBuffer {
					info.End -= delSize
				}
			default:
				panic("unhandled overlap")
			}
		} else {
			info.Start -= delSize
			if info.End != EndOfBuffer {
				info.End -= delSize
			}
		}
	}

	sort.Sort(sort.Reverse(sort.IntSlice(toDelete)))
	for _, idx := range toDelete {
		f.colorInfo = append(f.colorInfo[:idx], f.colorInfo[idx+1:]...)
	}
}
