package events

import "time"

type Kind string

const (
	RoomCreated  = Kind("room_created")
	PlayerJoined = Kind("player_joined")
	PlayerLeft   = Kind("player_left")
	RoomClosed   = Kind("room_closed")
)

// RoomEvent is a lobby lifecycle change.
type RoomEvent struct {
	Kind   Kind      `json:"kind"`
	RoomID string    `json:"room_id"`
	ConnID string    `json:"connection_id"`
	Name   string    `json:"name,omitempty"`
	At     time.Time `json:"at"`
}

type Bus struct {
	RoomEvents chan RoomEvent
}

func NewBus(size int) *Bus {
	return &Bus{
		RoomEvents: make(chan RoomEvent, size),
	}
}

// Publish queues ev without blocking. It reports false when the buffer is
// full and the event was dropped. A nil Bus drops everything.
func (b *Bus) Publish(ev RoomEvent) bool {
	if b == nil {
		return false
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	select {
	case b.RoomEvents <- ev:
		return true
	default:
		return false
	}
}
