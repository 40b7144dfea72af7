package db

import (
	"os"
	"testing"
	"time"

	"roomlobby/internal/events"
)

func getTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database tests")
	}
	database, err := Connect(dsn)
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	if err := database.Migrate(); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}
	t.Cleanup(func() {
		// Clean up test data
		database.conn.Exec("DELETE FROM room_events")
		database.Close()
	})
	return database
}

func TestConnect(t *testing.T) {
	database := getTestDB(t)
	if err := database.Ping(); err != nil {
		t.Errorf("Ping() error: %v", err)
	}
}

func TestMigrate(t *testing.T) {
	database := getTestDB(t)

	var exists bool
	err := database.conn.QueryRow(`
		SELECT EXISTS (SELECT FROM information_schema.tables WHERE table_name = $1)
	`, "room_events").Scan(&exists)
	if err != nil {
		t.Fatalf("checking table: %v", err)
	}
	if !exists {
		t.Error("table room_events does not exist")
	}

	// Migrations are idempotent
	if err := database.Migrate(); err != nil {
		t.Errorf("second Migrate() error: %v", err)
	}
}

func TestRoomEvents(t *testing.T) {
	database := getTestDB(t)

	err := database.BatchRecordEvents([]events.RoomEvent{{
		Kind:   events.RoomCreated,
		RoomID: "ABC234",
		ConnID: "550e8400-e29b-41d4-a716-446655440000",
		Name:   "Alice",
		At:     time.Now(),
	}})
	if err != nil {
		t.Fatalf("BatchRecordEvents() error: %v", err)
	}

	evs, err := database.RoomEvents("ABC234")
	if err != nil {
		t.Fatalf("RoomEvents() error: %v", err)
	}
	if len(evs) != 1 || evs[0].Kind != events.RoomCreated || evs[0].Name != "Alice" {
		t.Errorf("RoomEvents() = %+v, want one room_created for Alice", evs)
	}

	evs, err = database.RoomEvents("NONE23")
	if err != nil {
		t.Fatal(err)
	}
	if len(evs) != 0 {
		t.Errorf("RoomEvents() for unknown code = %+v, want none", evs)
	}
}

func TestBatchRecordEvents(t *testing.T) {
	database := getTestDB(t)

	now := time.Now()
	evs := []events.RoomEvent{
		{Kind: events.RoomCreated, RoomID: "QRST23", ConnID: "c1", Name: "Alice", At: now},
		{Kind: events.PlayerJoined, RoomID: "QRST23", ConnID: "c2", Name: "Bob", At: now.Add(time.Millisecond)},
		{Kind: events.PlayerLeft, RoomID: "QRST23", ConnID: "c2", At: now.Add(2 * time.Millisecond)},
		{Kind: events.PlayerLeft, RoomID: "QRST23", ConnID: "c1", At: now.Add(3 * time.Millisecond)},
		{Kind: events.RoomClosed, RoomID: "QRST23", At: now.Add(4 * time.Millisecond)},
	}

	if err := database.BatchRecordEvents(evs); err != nil {
		t.Fatalf("BatchRecordEvents() error: %v", err)
	}

	got, err := database.RoomEvents("QRST23")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(evs) {
		t.Fatalf("event count = %d, want %d", len(got), len(evs))
	}
	for i := range evs {
		if got[i].Kind != evs[i].Kind {
			t.Errorf("event %d kind = %q, want %q", i, got[i].Kind, evs[i].Kind)
		}
	}

	s, err := database.Summary()
	if err != nil {
		t.Fatalf("Summary() error: %v", err)
	}
	if s.RoomsCreated != 1 || s.RoomsClosed != 1 || s.Joins != 1 || s.DistinctPlayers != 2 {
		t.Errorf("Summary() = %+v, want 1 created, 1 closed, 1 join, 2 players", s)
	}
}
