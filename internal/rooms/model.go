package rooms

import (
	"sync"
	"time"
)

type Phase string

const (
	PhaseWaiting = Phase("waiting")
	PhaseStarted = Phase("started")
)

type Member struct {
	ConnID string
	Name   string
}

type Room struct {
	ID        string
	Capacity  int
	CreatedAt time.Time

	mu      sync.Mutex
	members []Member
	phase   Phase
	closed  bool // set when the last member leaves; the room is unreachable afterwards
}

// Snapshot is a point-in-time copy of a room's membership.
type Snapshot struct {
	RoomID  string
	Members []Member
}

func (s Snapshot) Names() []string {
	names := make([]string, len(s.Members))
	for i, m := range s.Members {
		names[i] = m.Name
	}
	return names
}

func (r *Room) snapshotLocked() Snapshot {
	members := make([]Member, len(r.members))
	copy(members, r.members)
	return Snapshot{RoomID: r.ID, Members: members}
}

func (r *Room) checkAdmitLocked(name string) error {
	if r.closed {
		return ErrRoomNotFound
	}
	if r.phase != PhaseWaiting {
		return ErrRoomStarted
	}
	if len(r.members) >= r.Capacity {
		return ErrRoomFull
	}
	for _, m := range r.members {
		if m.Name == name {
			return ErrNameTaken
		}
	}
	return nil
}

func (r *Room) removeLocked(connID string) bool {
	for i, m := range r.members {
		if m.ConnID == connID {
			r.members = append(r.members[:i], r.members[i+1:]...)
			return true
		}
	}
	return false
}
