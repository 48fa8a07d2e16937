// Package termserver is the HTTP+WebSocket transport in front of a
// termsession.Manager: REST endpoints to create/list/kill sessions and a
// WebSocket endpoint that streams screen snapshots and accepts keystrokes,
// the same shape as the teacher's own buffer-streaming WebSocket handler.
package termserver

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/vt100go/termengine/pkg/config"
	"github.com/vt100go/termengine/pkg/emulator"
	"github.com/vt100go/termengine/pkg/logging"
	"github.com/vt100go/termengine/pkg/termsession"
)

// Server wires an HTTP router around a session manager.
type Server struct {
	manager  *termsession.Manager
	password string
	cfg      *config.Config
}

// New builds a Server driving manager. An empty password disables basic
// auth on the /api routes. cfg supplies the recording settings applied to
// sessions created through the HTTP API.
func New(manager *termsession.Manager, password string, cfg *config.Config) *Server {
	return &Server{manager: manager, password: password, cfg: cfg}
}

// recordingDir returns the directory new sessions should record into, or
// "" if recording is disabled server-wide.
func (s *Server) recordingDir() string {
	if s.cfg == nil || !s.cfg.Recording.Enabled {
		return ""
	}
	return s.cfg.Recording.Dir
}

// Handler returns the fully-routed http.Handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	if s.password != "" {
		api.Use(s.basicAuthMiddleware)
	}
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleKillSession).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/snapshot", s.handleSnapshot).Methods("GET")
	api.HandleFunc("/sessions/{id}/input", s.handleSendInput).Methods("POST")
	api.HandleFunc("/sessions/{id}/resize", s.handleResize).Methods("POST")

	ws := NewStreamHandler(s.manager)
	if s.password != "" {
		r.Handle("/ws/{id}", s.basicAuthMiddleware(ws))
	} else {
		r.Handle("/ws/{id}", ws)
	}

	return r
}

func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin" || pass != s.password {
			w.Header().Set("WWW-Authenticate", `Basic realm="termengine"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	infos, err := s.manager.ListSessions()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name   string   `json:"name"`
		Argv   []string `json:"argv"`
		Cwd    string   `json:"cwd"`
		Width  int      `json:"width"`
		Height int      `json:"height"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sess, err := s.manager.CreateSession(termsession.Config{
		Name:         req.Name,
		Argv:         req.Argv,
		Cwd:          req.Cwd,
		Width:        req.Width,
		Height:       req.Height,
		RecordingDir: s.recordingDir(),
	})
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess.Info())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sess, err := s.manager.GetSession(id)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	if err := sess.UpdateStatus(); err != nil {
		logging.Warnf("termserver: failed to update status for %s: %v", id, err)
	}
	writeJSON(w, http.StatusOK, sess.Info())
}

func (s *Server) handleKillSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.manager.RemoveSession(id); err != nil {
		writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sess, err := s.manager.GetSession(id)
	if err != nil {
		writeSessionError(w, err)
		return
	}
	emu := sess.Emulator()
	if emu == nil {
		http.Error(w, "session has no attached emulator", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, snapshotResponse(emu))
}

func (s *Server) handleSendInput(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sess, err := s.manager.GetSession(id)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	var req struct {
		Key  string `json:"key"`
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.Key != "" {
		in, ok := keyToInput(req.Key)
		if !ok {
			http.Error(w, "unknown key: "+req.Key, http.StatusBadRequest)
			return
		}
		if err := sess.Write(in); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	for _, c := range []byte(req.Text) {
		if err := sess.Write(emulator.Ascii(c)); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	if err := sess.Pump(); err != nil {
		logging.Warnf("termserver: pump after input failed for %s: %v", id, err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResize(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sess, err := s.manager.GetSession(id)
	if err != nil {
		writeSessionError(w, err)
		return
	}

	var req struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Width <= 0 || req.Height <= 0 {
		http.Error(w, "width and height must be positive", http.StatusBadRequest)
		return
	}
	if err := sess.Resize(req.Width, req.Height); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func keyToInput(key string) (emulator.TerminalInput, bool) {
	switch strings.ToLower(key) {
	case "enter":
		return emulator.Enter, true
	case "backspace":
		return emulator.Backspace, true
	case "arrow_up":
		return emulator.ArrowUp, true
	case "arrow_down":
		return emulator.ArrowDown, true
	case "arrow_left":
		return emulator.ArrowLeft, true
	case "arrow_right":
		return emulator.ArrowRight, true
	case "home":
		return emulator.Home, true
	case "end":
		return emulator.End, true
	case "delete":
		return emulator.Delete, true
	case "insert":
		return emulator.Insert, true
	case "page_up":
		return emulator.PageUp, true
	case "page_down":
		return emulator.PageDown, true
	}
	return emulator.TerminalInput{}, false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Errorf("termserver: failed to encode response: %v", err)
	}
}

func writeSessionError(w http.ResponseWriter, err error) {
	if termsession.IsSessionError(err, termsession.ErrSessionNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
