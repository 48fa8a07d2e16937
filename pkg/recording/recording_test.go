package recording

import (
	"path/filepath"
	"testing"

	"github.com/vt100go/termengine/pkg/snapshot"
)

func TestRecorderPersistRoundtrip(t *testing.T) {
	dir := t.TempDir()
	r := NewRecorder(dir)

	resp, err := r.StartRecording()
	if err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	if resp.New == nil {
		t.Fatalf("expected a new recording initializer")
	}

	resp.New.SnapshotItem("test_arr", snapshot.Bytes([]byte{1, 2, 3, 4}))
	resp.New.SnapshotItem("test_map", snapshot.Map(map[string]snapshot.Item{
		"int":    snapshot.Int(1),
		"string": snapshot.String("hello"),
		"bool":   snapshot.Bool(true),
	}))

	handle := resp.New.IntoHandle()

	r.Write([]byte("asdf"))
	r.Write([]byte("1234"))
	r.SetWinSize(10, 20)
	r.Write([]byte("xyzw"))

	if err := handle.Close(); err != nil {
		t.Fatalf("handle.Close: %v", err)
	}

	loaded, err := Load(filepath.Join(dir, "0.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(loaded.Items) != 3 {
		t.Fatalf("loaded.Items = %+v, want 3 entries", loaded.Items)
	}
	if loaded.Items[0].Kind != ItemWrite || string(loaded.Items[0].Data) != "asdf1234" {
		t.Errorf("Items[0] = %+v, want coalesced write %q", loaded.Items[0], "asdf1234")
	}
	if loaded.Items[1].Kind != ItemSetWinSize || loaded.Items[1].Width != 10 || loaded.Items[1].Height != 20 {
		t.Errorf("Items[1] = %+v, want resize 10x20", loaded.Items[1])
	}
	if loaded.Items[2].Kind != ItemWrite || string(loaded.Items[2].Data) != "xyzw" {
		t.Errorf("Items[2] = %+v, want write %q", loaded.Items[2], "xyzw")
	}
}

func TestRecorderWriteBeforeStartIsNoop(t *testing.T) {
	r := NewRecorder(t.TempDir())
	r.Write([]byte("ignored"))
	r.SetWinSize(1, 1)
}

func TestRecorderStartRecordingReturnsExistingHandle(t *testing.T) {
	dir := t.TempDir()
	r := NewRecorder(dir)

	resp, err := r.StartRecording()
	if err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	handle := resp.New.IntoHandle()
	defer handle.Close()

	again, err := r.StartRecording()
	if err != nil {
		t.Fatalf("StartRecording (again): %v", err)
	}
	if again.Existing == nil {
		t.Fatalf("expected an existing handle on second StartRecording call")
	}
}
