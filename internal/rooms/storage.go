package rooms

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

const DefaultCapacity = 10

// Codes of deleted rooms are not reissued for this long so that a stale
// client cannot land in an unrelated room.
const retireTTL = 15 * time.Minute

const maxCodeAttempts = 10

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomFull      = errors.New("room is full")
	ErrAlreadyInRoom = errors.New("already in a room")
	ErrRoomStarted   = errors.New("game already started")
	ErrNameTaken     = errors.New("name taken")
	ErrInternal      = errors.New("internal failure")
)

// Store tracks open rooms and which room each connection sits in.
//
// Lock order: claimsMu is always taken last. mu and a Room's mu are never
// held together, and no operation touches two rooms. A member is added to
// or removed from a room in the same critical section that updates its
// claim, so the two never disagree.
type Store struct {
	mu      sync.RWMutex
	rooms   map[string]*Room
	retired map[string]time.Time

	claimsMu sync.Mutex
	claims   map[string]string // connection id -> room id

	capacity int
	generate func() (string, error)

	stop     chan struct{}
	stopOnce sync.Once
}

// NewStore creates a Store whose rooms hold at most capacity members.
// A non-positive capacity selects DefaultCapacity.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	s := &Store{
		rooms:    make(map[string]*Room),
		retired:  make(map[string]time.Time),
		claims:   make(map[string]string),
		capacity: capacity,
		generate: GenerateCode,
		stop:     make(chan struct{}),
	}
	go s.sweepRetired()
	return s
}

// Close stops the background sweeper.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Store) Capacity() int {
	return s.capacity
}

// Create opens a new room with connID as its first member.
func (s *Store) Create(connID, name string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for range maxCodeAttempts {
		code, err := s.generate()
		if err != nil {
			return Snapshot{}, fmt.Errorf("generating room code: %v: %w", err, ErrInternal)
		}
		if _, exists := s.rooms[code]; exists {
			continue
		}
		if _, recent := s.retired[code]; recent {
			continue
		}

		if !s.claim(connID, code) {
			return Snapshot{}, fmt.Errorf("creating room: %w", ErrAlreadyInRoom)
		}

		room := &Room{
			ID:        code,
			Capacity:  s.capacity,
			CreatedAt: time.Now(),
			members:   []Member{{ConnID: connID, Name: name}},
			phase:     PhaseWaiting,
		}
		s.rooms[code] = room
		return room.snapshotLocked(), nil
	}
	return Snapshot{}, fmt.Errorf("failed to generate unique room code after %d attempts: %w", maxCodeAttempts, ErrInternal)
}

// Join appends connID to the room. The capacity, phase, name and
// membership checks and the append happen under the room's lock.
func (s *Store) Join(roomID, connID, name string) (Snapshot, error) {
	room := s.get(roomID)
	if room == nil {
		return Snapshot{}, fmt.Errorf("joining room %q: %w", roomID, ErrRoomNotFound)
	}

	room.mu.Lock()
	err := room.checkAdmitLocked(name)
	if err == nil && !s.claim(connID, roomID) {
		err = ErrAlreadyInRoom
	}
	if err == nil {
		room.members = append(room.members, Member{ConnID: connID, Name: name})
	}
	snap := room.snapshotLocked()
	room.mu.Unlock()

	if err != nil {
		return Snapshot{}, fmt.Errorf("joining room %q: %w", roomID, err)
	}
	return snap, nil
}

// Leave removes connID from its room, deleting the room once empty. The
// returned snapshot holds the remaining members; ok is false when there is
// nobody left to notify, including when connID was not in a room.
func (s *Store) Leave(connID string) (snap Snapshot, ok bool) {
	for {
		roomID, seated := s.RoomOf(connID)
		if !seated {
			return Snapshot{}, false
		}
		room := s.get(roomID)
		if room == nil {
			s.release(connID, roomID)
			return Snapshot{}, false
		}

		room.mu.Lock()
		s.claimsMu.Lock()
		if s.claims[connID] != roomID {
			// Moved between the lookup and the lock; look again.
			s.claimsMu.Unlock()
			room.mu.Unlock()
			continue
		}
		delete(s.claims, connID)
		s.claimsMu.Unlock()

		removed := room.removeLocked(connID)
		empty := len(room.members) == 0
		if empty {
			room.closed = true
		}
		snap = room.snapshotLocked()
		room.mu.Unlock()

		if !removed {
			return Snapshot{}, false
		}
		if empty {
			s.mu.Lock()
			if s.rooms[roomID] == room {
				delete(s.rooms, roomID)
				s.retired[roomID] = time.Now()
			}
			s.mu.Unlock()
			return snap, false
		}
		return snap, true
	}
}

// Start moves a room out of the waiting phase; later joins fail with ErrRoomStarted.
func (s *Store) Start(roomID string) error {
	room := s.get(roomID)
	if room == nil {
		return fmt.Errorf("starting room %q: %w", roomID, ErrRoomNotFound)
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.closed {
		return fmt.Errorf("starting room %q: %w", roomID, ErrRoomNotFound)
	}
	room.phase = PhaseStarted
	return nil
}

func (s *Store) Snapshot(roomID string) (Snapshot, error) {
	room := s.get(roomID)
	if room == nil {
		return Snapshot{}, fmt.Errorf("room %q: %w", roomID, ErrRoomNotFound)
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.closed {
		return Snapshot{}, fmt.Errorf("room %q: %w", roomID, ErrRoomNotFound)
	}
	return room.snapshotLocked(), nil
}

// Roster returns the room's member names in join order.
func (s *Store) Roster(roomID string) ([]string, error) {
	snap, err := s.Snapshot(roomID)
	if err != nil {
		return nil, err
	}
	return snap.Names(), nil
}

// RoomOf reports the room connID currently sits in.
func (s *Store) RoomOf(connID string) (string, bool) {
	s.claimsMu.Lock()
	defer s.claimsMu.Unlock()
	roomID, ok := s.claims[connID]
	return roomID, ok
}

// Len returns the number of open rooms.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// Seated returns the number of connections sitting in a room.
func (s *Store) Seated() int {
	s.claimsMu.Lock()
	defer s.claimsMu.Unlock()
	return len(s.claims)
}

func (s *Store) get(roomID string) *Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms[roomID]
}

func (s *Store) claim(connID, roomID string) bool {
	s.claimsMu.Lock()
	defer s.claimsMu.Unlock()
	if _, seated := s.claims[connID]; seated {
		return false
	}
	s.claims[connID] = roomID
	return true
}

func (s *Store) release(connID, roomID string) {
	s.claimsMu.Lock()
	defer s.claimsMu.Unlock()
	if s.claims[connID] == roomID {
		delete(s.claims, connID)
	}
}

func (s *Store) sweepRetired() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.forgetRetired(now)
		}
	}
}

func (s *Store) forgetRetired(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for code, at := range s.retired {
		if now.Sub(at) > retireTTL {
			delete(s.retired, code)
		}
	}
}
