package recording

import "testing"

func TestReplayControlDrivesBytesAndResizes(t *testing.T) {
	rec := Recording{
		Items: []RecordingItem{
			{Kind: ItemWrite, Data: []byte("ab")},
			{Kind: ItemSetWinSize, Width: 80, Height: 24},
			{Kind: ItemWrite, Data: []byte("c")},
		},
	}
	ctrl := NewReplayControl(rec)
	if got := ctrl.Len(); got != 4 {
		t.Fatalf("Len() = %d, want 4", got)
	}

	io := ctrl.IoHandle()

	ctrl.Next() // 'a'
	ctrl.Next() // 'b'
	action := ctrl.Next()
	if !action.Resize || action.Width != 80 || action.Height != 24 {
		t.Fatalf("Next() = %+v, want resize 80x24", action)
	}
	ctrl.Next() // 'c'

	if got := ctrl.CurrentPos(); got != 4 {
		t.Fatalf("CurrentPos() = %d, want 4", got)
	}

	buf := make([]byte, 8)
	resp, err := io.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(buf[:resp.N]) != "abc" {
		t.Fatalf("read %q, want %q", buf[:resp.N], "abc")
	}
}

func TestReplayControlIoHandlePanicsOnSecondCall(t *testing.T) {
	ctrl := NewReplayControl(Recording{})
	ctrl.IoHandle()
	defer func() {
		if recover() == nil {
			t.Fatal("expected second IoHandle call to panic")
		}
	}()
	ctrl.IoHandle()
}
