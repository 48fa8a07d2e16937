// Package recording persists the initial snapshot state and subsequent
// write/resize actions of a session to disk as JSON, and can replay that
// JSON back through the termio.Endpoint interface to re-drive an
// Emulator deterministically. Recorder holds only a weak reference to
// the active recording so an idle session costs nothing once nobody is
// capturing it.
package recording

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"weak"

	"github.com/vt100go/termengine/pkg/snapshot"
)

// ItemKind identifies which action a RecordingItem records.
type ItemKind int

const (
	ItemSetWinSize ItemKind = iota
	ItemWrite
)

// RecordingItem is one recorded action: either a resize or a run of
// bytes read from the endpoint.
type RecordingItem struct {
	Kind   ItemKind
	Width  int
	Height int
	Data   []byte
}

// Len is the number of discrete steps ReplayControl advances through for
// this item: one per byte for a write, one for a resize.
func (it RecordingItem) Len() int {
	if it.Kind == ItemWrite {
		return len(it.Data)
	}
	return 1
}

type recordingItemJSON struct {
	Type   string `json:"type"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Data   []byte `json:"data,omitempty"`
}

func (it RecordingItem) MarshalJSON() ([]byte, error) {
	switch it.Kind {
	case ItemSetWinSize:
		return json.Marshal(recordingItemJSON{Type: "set_win_size", Width: it.Width, Height: it.Height})
	case ItemWrite:
		return json.Marshal(struct {
			Type string `json:"type"`
			Data []int  `json:"data"`
		}{Type: "write", Data: intsFromBytes(it.Data)})
	default:
		return nil, fmt.Errorf("recording: unknown item kind %d", it.Kind)
	}
}

func intsFromBytes(b []byte) []int {
	out := make([]int, len(b))
	for i, v := range b {
		out[i] = int(v)
	}
	return out
}

func (it *RecordingItem) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type   string `json:"type"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
		Data   []int  `json:"data"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Type {
	case "set_win_size":
		*it = RecordingItem{Kind: ItemSetWinSize, Width: raw.Width, Height: raw.Height}
	case "write":
		bytes := make([]byte, len(raw.Data))
		for i, v := range raw.Data {
			if v < 0 || v > 0xff {
				return fmt.Errorf("recording: write data element %d does not fit in a byte", v)
			}
			bytes[i] = byte(v)
		}
		*it = RecordingItem{Kind: ItemWrite, Data: bytes}
	default:
		return fmt.Errorf("recording: unexpected item type %q", raw.Type)
	}
	return nil
}

// Recording is the full persisted session: the component snapshots
// captured when recording started, plus the ordered actions since.
type Recording struct {
	InitialState map[string]snapshot.Item
	Items        []RecordingItem
}

type recordingJSON struct {
	InitialState map[string]json.RawMessage `json:"initial_state"`
	Items        []RecordingItem            `json:"items"`
}

// Load reads and parses a recording from path.
func Load(path string) (*Recording, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("recording: read %s: %w", path, err)
	}
	var raw recordingJSON
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("recording: parse %s: %w", path, err)
	}
	initial := make(map[string]snapshot.Item, len(raw.InitialState))
	for k, v := range raw.InitialState {
		item, err := jsonToSnapshot(v)
		if err != nil {
			return nil, fmt.Errorf("recording: initial_state[%s]: %w", k, err)
		}
		initial[k] = item
	}
	return &Recording{InitialState: initial, Items: raw.Items}, nil
}

func (r *Recording) save(path string) error {
	initial := make(map[string]json.RawMessage, len(r.InitialState))
	for k, v := range r.InitialState {
		raw, err := snapshotToJSON(v)
		if err != nil {
			return fmt.Errorf("recording: initial_state[%s]: %w", k, err)
		}
		initial[k] = raw
	}
	out, err := json.Marshal(recordingJSON{InitialState: initial, Items: r.Items})
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}

func jsonToSnapshot(raw json.RawMessage) (snapshot.Item, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return snapshot.Item{}, err
	}
	return anyToSnapshot(v)
}

func anyToSnapshot(v any) (snapshot.Item, error) {
	switch t := v.(type) {
	case bool:
		return snapshot.Bool(t), nil
	case float64:
		return snapshot.Int(int64(t)), nil
	case string:
		return snapshot.String(t), nil
	case []any:
		arr := make([]snapshot.Item, len(t))
		for i, elem := range t {
			item, err := anyToSnapshot(elem)
			if err != nil {
				return snapshot.Item{}, err
			}
			arr[i] = item
		}
		return snapshot.Array(arr), nil
	case map[string]any:
		m := make(map[string]snapshot.Item, len(t))
		for k, elem := range t {
			item, err := anyToSnapshot(elem)
			if err != nil {
				return snapshot.Item{}, err
			}
			m[k] = item
		}
		return snapshot.Map(m), nil
	case nil:
		return snapshot.Item{}, fmt.Errorf("recording: null values are not supported")
	default:
		return snapshot.Item{}, fmt.Errorf("recording: unsupported json value %T", v)
	}
}

func snapshotToJSON(it snapshot.Item) (json.RawMessage, error) {
	v, err := snapshotToAny(it)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func snapshotToAny(it snapshot.Item) (any, error) {
	switch it.Kind() {
	case snapshot.KindBool:
		v, _ := it.AsBool()
		return v, nil
	case snapshot.KindInt:
		v, _ := it.AsInt64()
		return v, nil
	case snapshot.KindString:
		v, _ := it.AsString()
		return v, nil
	case snapshot.KindArray:
		arr, _ := it.AsArray()
		out := make([]any, len(arr))
		for i, elem := range arr {
			v, err := snapshotToAny(elem)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case snapshot.KindMap:
		m, _ := it.AsMap()
		out := make(map[string]any, len(m))
		for k, elem := range m {
			v, err := snapshotToAny(elem)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("recording: snapshot item has no recognized shape")
	}
}

func findRecordingPath(dir string) string {
	for i := 0; ; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%d.json", i))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// handleInner is the shared, mutex-guarded recording state a Recorder
// holds only a weak reference to, and a RecordingHandle holds strongly.
type handleInner struct {
	mu        sync.Mutex
	recording Recording
	path      string
}

// RecordingHandle keeps a recording alive and, on Close, persists it to
// disk. This is the explicit stand-in for the reference implementation's
// drop-to-save behavior: Go has no destructors, so callers must Close
// the handle when the session ends.
type RecordingHandle struct {
	inner *handleInner
}

// Close writes the accumulated recording to its file. Safe to call once;
// the handle should then be discarded.
func (h *RecordingHandle) Close() error {
	h.inner.mu.Lock()
	defer h.inner.mu.Unlock()
	return h.inner.recording.save(h.inner.path)
}

// RecordingInitializer collects the component snapshots taken at the
// moment recording starts, before any action is appended.
type RecordingInitializer struct {
	inner *handleInner
}

func (r *RecordingInitializer) SnapshotItem(name string, item snapshot.Item) {
	r.inner.mu.Lock()
	defer r.inner.mu.Unlock()
	if r.inner.recording.InitialState == nil {
		r.inner.recording.InitialState = make(map[string]snapshot.Item)
	}
	r.inner.recording.InitialState[name] = item
}

func (r *RecordingInitializer) IntoHandle() *RecordingHandle {
	return &RecordingHandle{inner: r.inner}
}

// StartRecordingResponse is returned by Recorder.StartRecording: either a
// fresh recording that needs its initial snapshots filled in, or a
// handle to one already running.
type StartRecordingResponse struct {
	New      *RecordingInitializer
	Existing *RecordingHandle
}

// Recorder is embedded in an Emulator and fed every write/resize as it
// happens. It holds only a weak pointer to the active recording, so
// Write/SetWinSize are no-ops until something calls StartRecording and
// keeps the resulting handle alive.
type Recorder struct {
	recordingDir string
	handle       weak.Pointer[handleInner]
}

func NewRecorder(recordingDir string) *Recorder {
	return &Recorder{recordingDir: recordingDir}
}

func (r *Recorder) SetWinSize(width, height int) {
	inner := r.handle.Value()
	if inner == nil {
		return
	}
	inner.mu.Lock()
	defer inner.mu.Unlock()
	inner.recording.Items = append(inner.recording.Items, RecordingItem{Kind: ItemSetWinSize, Width: width, Height: height})
}

func (r *Recorder) Write(data []byte) {
	inner := r.handle.Value()
	if inner == nil {
		return
	}
	inner.mu.Lock()
	defer inner.mu.Unlock()
	items := inner.recording.Items
	if n := len(items); n > 0 && items[n-1].Kind == ItemWrite {
		items[n-1].Data = append(items[n-1].Data, data...)
		return
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	inner.recording.Items = append(inner.recording.Items, RecordingItem{Kind: ItemWrite, Data: buf})
}

// StartRecording begins capturing, or returns the handle to a capture
// already in progress.
func (r *Recorder) StartRecording() (StartRecordingResponse, error) {
	if err := os.MkdirAll(r.recordingDir, 0o755); err != nil {
		return StartRecordingResponse{}, fmt.Errorf("recording: create dir: %w", err)
	}

	if inner := r.handle.Value(); inner != nil {
		return StartRecordingResponse{Existing: &RecordingHandle{inner: inner}}, nil
	}

	path := findRecordingPath(r.recordingDir)
	inner := &handleInner{path: path}
	r.handle = weak.Make(inner)

	return StartRecordingResponse{New: &RecordingInitializer{inner: inner}}, nil
}
