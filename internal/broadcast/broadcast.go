package broadcast

import (
	"log"

	"roomlobby/internal/protocol"
	"roomlobby/internal/rooms"
)

// Sender delivers a message to a single connection without blocking.
type Sender interface {
	Send(connID string, msg protocol.Outbound) bool
}

// RosterSource provides point-in-time room membership.
type RosterSource interface {
	Snapshot(roomID string) (rooms.Snapshot, error)
}

type Dispatcher struct {
	sender Sender
	source RosterSource
}

func NewDispatcher(sender Sender, source RosterSource) *Dispatcher {
	return &Dispatcher{sender: sender, source: source}
}

// BroadcastRoster sends one PreGameUI built from snap to every member in it
// and returns how many deliveries were queued. A failed delivery does not
// affect the others.
func (d *Dispatcher) BroadcastRoster(snap rooms.Snapshot) int {
	msg := protocol.PreGameUI{RoomID: snap.RoomID, Players: snap.Names()}
	delivered := 0
	for _, m := range snap.Members {
		if d.sender.Send(m.ConnID, msg) {
			delivered++
		}
	}
	if delivered < len(snap.Members) {
		log.Printf("[Broadcast] Room %s: delivered roster to %d of %d members\n", snap.RoomID, delivered, len(snap.Members))
	}
	return delivered
}

// BroadcastRoom reads the room's current roster and broadcasts it.
func (d *Dispatcher) BroadcastRoom(roomID string) (int, error) {
	snap, err := d.source.Snapshot(roomID)
	if err != nil {
		return 0, err
	}
	return d.BroadcastRoster(snap), nil
}
