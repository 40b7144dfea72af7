package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"roomlobby/internal/db"
	"roomlobby/internal/events"
	"roomlobby/internal/lobby"
	"roomlobby/internal/metrics"
	"roomlobby/internal/rooms"
	"roomlobby/internal/wshub"

	"github.com/coder/websocket"
)

const maxMessageBytes = 4096

// History is the recorded lobby history. *db.DB implements it.
type History interface {
	Ping() error
	Summary() (*db.HistorySummary, error)
	RoomEvents(roomCode string) ([]events.RoomEvent, error)
}

var _ History = (*db.DB)(nil)

type Server struct {
	Lobby      *lobby.Coordinator
	Rooms      *rooms.Store
	Hub        *wshub.Hub
	Metrics    *metrics.Metrics
	DB         History // nil if no database configured
	SendBuffer int
	StaticDir  string
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Printf("[Server] WebSocket accept error: %v\n", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxMessageBytes)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	client := wshub.NewClient(conn, s.SendBuffer)
	id := s.Lobby.Connect(client)
	log.Printf("[Server] Connection %s opened\n", id)
	go client.WritePump(ctx)

	defer func() {
		s.Lobby.Disconnect(id)
		log.Printf("[Server] Connection %s closed\n", id)
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				log.Printf("[Server] Read error on %s: %v\n", id, err)
			}
			return
		}
		s.Lobby.HandleRaw(id, data)
	}
}

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.DB != nil {
		if err := s.DB.Ping(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "db_error", Error: err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

type statsResponse struct {
	Rooms       int                `json:"rooms"`
	Seated      int                `json:"seated"`
	Connections int                `json:"connections"`
	RoomSize    int                `json:"room_size"`
	History     *db.HistorySummary `json:"history,omitempty"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{
		Rooms:       s.Rooms.Len(),
		Seated:      s.Rooms.Seated(),
		Connections: s.Hub.Len(),
		RoomSize:    s.Rooms.Capacity(),
	}
	if s.DB != nil {
		summary, err := s.DB.Summary()
		if err != nil {
			log.Printf("[DB] Summary error: %v\n", err)
		} else {
			resp.History = summary
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

type roomHistoryResponse struct {
	RoomID string             `json:"room_id"`
	Events []events.RoomEvent `json:"events"`
}

// handleRoomHistory serves the recorded events of one room code, including
// rooms that have since closed.
func (s *Server) handleRoomHistory(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "history not available"})
		return
	}
	code := strings.ToUpper(strings.TrimSpace(r.PathValue("code")))
	evs, err := s.DB.RoomEvents(code)
	if err != nil {
		log.Printf("[DB] RoomEvents error: %v\n", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "history lookup failed"})
		return
	}
	if evs == nil {
		evs = []events.RoomEvent{}
	}
	writeJSON(w, http.StatusOK, roomHistoryResponse{RoomID: code, Events: evs})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Println(err)
	}
}
