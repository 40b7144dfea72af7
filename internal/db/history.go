package db

import (
	"fmt"

	"roomlobby/internal/events"

	"github.com/lib/pq"
)

// BatchRecordEvents writes evs in one transaction using COPY.
func (d *DB) BatchRecordEvents(evs []events.RoomEvent) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(pq.CopyIn("room_events", "kind", "room_code", "connection_id", "player_name", "occurred_at"))
	if err != nil {
		return fmt.Errorf("preparing copy: %w", err)
	}

	for _, ev := range evs {
		if _, err := stmt.Exec(string(ev.Kind), ev.RoomID, ev.ConnID, ev.Name, ev.At); err != nil {
			stmt.Close()
			return fmt.Errorf("copying room event: %w", err)
		}
	}
	if _, err := stmt.Exec(); err != nil {
		stmt.Close()
		return fmt.Errorf("flushing copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("closing copy: %w", err)
	}

	return tx.Commit()
}

type HistorySummary struct {
	RoomsCreated    int `json:"rooms_created"`
	RoomsClosed     int `json:"rooms_closed"`
	Joins           int `json:"joins"`
	DistinctPlayers int `json:"distinct_players"`
}

func (d *DB) Summary() (*HistorySummary, error) {
	var s HistorySummary
	err := d.conn.QueryRow(`
		SELECT
			COUNT(*) FILTER (WHERE kind = 'room_created'),
			COUNT(*) FILTER (WHERE kind = 'room_closed'),
			COUNT(*) FILTER (WHERE kind = 'player_joined'),
			COUNT(DISTINCT player_name) FILTER (WHERE player_name <> '')
		FROM room_events
	`).Scan(&s.RoomsCreated, &s.RoomsClosed, &s.Joins, &s.DistinctPlayers)
	if err != nil {
		return nil, fmt.Errorf("summarising room events: %w", err)
	}
	return &s, nil
}

// RoomEvents returns the recorded history of a room code, oldest first.
func (d *DB) RoomEvents(roomCode string) ([]events.RoomEvent, error) {
	rows, err := d.conn.Query(`
		SELECT kind, room_code, connection_id, player_name, occurred_at
		FROM room_events WHERE room_code = $1 ORDER BY occurred_at, id
	`, roomCode)
	if err != nil {
		return nil, fmt.Errorf("getting room events: %w", err)
	}
	defer rows.Close()

	var evs []events.RoomEvent
	for rows.Next() {
		var ev events.RoomEvent
		var kind string
		if err := rows.Scan(&kind, &ev.RoomID, &ev.ConnID, &ev.Name, &ev.At); err != nil {
			return nil, err
		}
		ev.Kind = events.Kind(kind)
		evs = append(evs, ev)
	}
	return evs, rows.Err()
}
