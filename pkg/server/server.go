// Package server contains the realtime transport: a websocket event channel
// per client session plus a small HTTP surface for health, reset, debug
// presets and game history.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/herohde/twofold/pkg/game"
	"github.com/herohde/twofold/pkg/history"
	"github.com/herohde/twofold/pkg/session"
	"github.com/seekerror/build"
	"github.com/seekerror/logw"
	"go.uber.org/atomic"
)

var version = build.NewVersion(1, 2, 0)

// Version returns the server version.
func Version() string {
	return fmt.Sprintf("%v", version)
}

// Server routes websocket sessions and HTTP requests to the session layer.
type Server struct {
	mgr   *session.Manager
	store history.Store
	debug bool

	conns    atomic.Int64
	upgrader websocket.Upgrader
}

// New returns a server. The store may be nil to disable the history surface.
// Debug enables the scenario endpoint and must be off in production.
func New(mgr *session.Manager, store history.Store, debug bool) *Server {
	return &Server{
		mgr:   mgr,
		store: store,
		debug: debug,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The browser client is served from a different origin.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP handler with all routes bound.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	mux.HandleFunc("/api/reset", s.handleReset)
	mux.HandleFunc("/api/debug/setup/", s.handleDebugSetup)
	mux.HandleFunc("/api/games", s.handleGames)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/detailed", s.handleHealthDetailed)
	return mux
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logw.Warningf(ctx, "Upgrade failed: %v", err)
		return
	}

	c := newClient(conn, s)
	s.conns.Inc()
	logw.Infof(ctx, "Session %v connected from %v", c.id, r.RemoteAddr)

	// The pumps own the connection; detach from the request context so the
	// session survives the handler returning.
	go c.writePump(context.Background())
	go c.readPump(context.Background())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var p roomPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.Room == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	room, ok := s.mgr.Room(p.Room)
	if !ok {
		http.Error(w, session.ErrRoomNotFound.Error(), http.StatusNotFound)
		return
	}
	room.ForceReset(r.Context())
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleDebugSetup installs a preset game state into a room. Only available
// with the debug flag; hidden otherwise.
func (s *Server) handleDebugSetup(w http.ResponseWriter, r *http.Request) {
	if !s.debug {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	scenario := game.Scenario(strings.TrimPrefix(r.URL.Path, "/api/debug/setup/"))

	var p roomPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.Room == "" {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	room, ok := s.mgr.Room(p.Room)
	if !ok {
		http.Error(w, session.ErrRoomNotFound.Error(), http.StatusNotFound)
		return
	}
	if err := room.InstallScenario(r.Context(), scenario); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]string{"status": "ok", "scenario": string(scenario)})
}

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "history disabled", http.StatusNotImplemented)
		return
	}

	switch r.Method {
	case http.MethodPost:
		var rec history.Record
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil || rec.Room == "" {
			http.Error(w, "invalid payload", http.StatusBadRequest)
			return
		}
		if rec.FinishedAt.IsZero() {
			rec.FinishedAt = time.Now()
		}
		if err := s.store.Put(r.Context(), rec); err != nil {
			logw.Errorf(r.Context(), "Persist game failed: %v", err)
			http.Error(w, "persist failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]string{"status": "ok"})

	case http.MethodGet:
		recs, err := s.store.List(r.Context(), 100)
		if err != nil {
			logw.Errorf(r.Context(), "List games failed: %v", err)
			http.Error(w, "list failed", http.StatusInternalServerError)
			return
		}
		if recs == nil {
			recs = []history.Record{}
		}
		writeJSON(w, recs)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleHealthDetailed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":      "ok",
		"version":     Version(),
		"rooms":       s.mgr.RoomCount(),
		"lobbies":     len(s.mgr.Lobbies()),
		"connections": s.conns.Load(),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
