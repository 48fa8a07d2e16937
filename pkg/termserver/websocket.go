package termserver

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/vt100go/termengine/pkg/emulator"
	"github.com/vt100go/termengine/pkg/logging"
	"github.com/vt100go/termengine/pkg/termsession"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
	streamInterval = 33 * time.Millisecond // ~30Hz polling of the emulator
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// screenFrame is the JSON shape pushed to a subscriber on every poll tick.
type screenFrame struct {
	Type    string              `json:"type"`
	Cursor  cursorFrame         `json:"cursor"`
	Visible string              `json:"visible"`
	Formats []screenFormatFrame `json:"formats"`
}

type cursorFrame struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type screenFormatFrame struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Color string `json:"color"`
	Bold  bool   `json:"bold"`
}

func snapshotResponse(emu *emulator.Emulator) screenFrame {
	cursor := emu.CursorPos()
	data := emu.Data()
	fdata := emu.FormatData()

	formats := make([]screenFormatFrame, 0, len(fdata.Visible))
	for _, tag := range fdata.Visible {
		formats = append(formats, screenFormatFrame{
			Start: tag.Start,
			End:   tag.End,
			Color: tag.Color.String(),
			Bold:  tag.Bold,
		})
	}

	return screenFrame{
		Type:    "screen",
		Cursor:  cursorFrame{X: cursor.X, Y: cursor.Y},
		Visible: string(data.Visible),
		Formats: formats,
	}
}

// StreamHandler upgrades /ws/{id} to a WebSocket that periodically pushes
// screen frames and accepts {"type":"input",...} client messages.
type StreamHandler struct {
	manager *termsession.Manager
}

// NewStreamHandler builds a StreamHandler serving sessions out of manager.
func NewStreamHandler(manager *termsession.Manager) *StreamHandler {
	return &StreamHandler{manager: manager}
}

func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sess, err := h.manager.GetSession(id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if sess.Emulator() == nil {
		http.Error(w, "session has no attached emulator", http.StatusConflict)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warnf("termserver: upgrade failed for %s: %v", id, err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	send := make(chan []byte, 256)
	done := make(chan struct{})
	var closeOnce sync.Once
	closeDone := func() { closeOnce.Do(func() { close(done) }) }

	go h.writer(conn, send, done)
	go h.poll(sess, send, done)

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			closeDone()
			return
		}
		if messageType == websocket.TextMessage {
			h.handleMessage(sess, message)
		}
	}
}

func (h *StreamHandler) writer(conn *websocket.Conn, send <-chan []byte, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (h *StreamHandler) poll(sess *termsession.Session, send chan<- []byte, done chan struct{}) {
	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			emu := sess.Emulator()
			if emu == nil {
				return
			}
			if err := sess.Pump(); err != nil {
				logging.Warnf("termserver: pump failed for %s: %v", sess.ID, err)
			}
			frame, err := json.Marshal(snapshotResponse(emu))
			if err != nil {
				continue
			}
			safeSend(send, frame, done)
		case <-done:
			return
		}
	}
}

func (h *StreamHandler) handleMessage(sess *termsession.Session, message []byte) {
	var msg struct {
		Type   string `json:"type"`
		Key    string `json:"key"`
		Text   string `json:"text"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	}
	if err := json.Unmarshal(message, &msg); err != nil {
		logging.Warnf("termserver: failed to parse client message: %v", err)
		return
	}

	switch msg.Type {
	case "input":
		if msg.Key != "" {
			if in, ok := keyToInput(msg.Key); ok {
				_ = sess.Write(in)
			}
			return
		}
		for _, c := range []byte(msg.Text) {
			_ = sess.Write(emulator.Ascii(c))
		}
	case "resize":
		if msg.Width > 0 && msg.Height > 0 {
			if err := sess.Resize(msg.Width, msg.Height); err != nil {
				logging.Warnf("termserver: resize failed for %s: %v", sess.ID, err)
			}
		}
	}
}

// safeSend sends data on send unless done has already fired, recovering
// from a send on a closed channel (the writer goroutine may have torn
// down between the check and the send).
func safeSend(send chan<- []byte, data []byte, done chan struct{}) {
	defer func() { recover() }()
	select {
	case send <- data:
	case <-done:
	}
}
