package server

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"roomlobby/internal/config"
	"roomlobby/internal/db"
	"roomlobby/internal/events"
	"roomlobby/internal/lobby"
	"roomlobby/internal/metrics"
	"roomlobby/internal/rooms"
	"roomlobby/internal/wshub"
)

func Run() error {
	appCfg := config.Load()

	m := metrics.New()
	hub := wshub.NewHub(m)
	roomStore := rooms.NewStore(appCfg.MaxRoomSize)
	defer roomStore.Close()

	srv := &Server{
		Rooms:      roomStore,
		Hub:        hub,
		Metrics:    m,
		SendBuffer: appCfg.SendBuffer,
		StaticDir:  appCfg.StaticDir,
	}

	// Optional database connection
	var bus *events.Bus
	if appCfg.DatabaseURL != "" {
		database, err := db.Connect(appCfg.DatabaseURL)
		if err != nil {
			log.Printf("[DB] Failed to connect: %v (running without database)\n", err)
		} else {
			if err := database.Migrate(); err != nil {
				log.Printf("[DB] Migration failed: %v\n", err)
			}
			srv.DB = database
			bus = events.NewBus(1000)
			go historyWriter(database, bus.RoomEvents)
			log.Println("[DB] Database connected and migrations applied")
		}
	} else {
		log.Println("[DB] DATABASE_URL not set, running without database")
	}

	srv.Lobby = lobby.New(hub, roomStore, bus, m)

	addr := "0.0.0.0:" + appCfg.Port
	fmt.Printf("Server listening on http://localhost:%s (rooms hold %d players)\n", appCfg.Port, roomStore.Capacity())
	return http.ListenAndServe(addr, srv.routes())
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("GET /rooms/{code}/history", s.handleRoomHistory)
	mux.Handle("/metrics", s.Metrics.Handler())
	mux.Handle("/", http.FileServer(http.Dir(s.StaticDir)))
	return mux
}

// historyWriter batches lobby events into the database, flushing every
// 50 events or every 500ms.
func historyWriter(database *db.DB, buffer <-chan events.RoomEvent) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	batch := make([]events.RoomEvent, 0, 50)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := database.BatchRecordEvents(batch); err != nil {
			log.Printf("[DB] BatchRecordEvents error: %v\n", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case ev, ok := <-buffer:
			if !ok {
				flush()
				return
			}
			batch = append(batch, ev)
			if len(batch) >= 50 {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
