package lobby

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"roomlobby/internal/broadcast"
	"roomlobby/internal/events"
	"roomlobby/internal/metrics"
	"roomlobby/internal/protocol"
	"roomlobby/internal/rooms"
	"roomlobby/internal/wshub"
)

// State is where a connection stands in the lobby.
type State int

const (
	StateAnonymous State = iota
	StateInRoom
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateInRoom:
		return "in_room"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

const (
	alertAlreadyInRoom = "already in a room"
	alertEmptyName     = "name cannot be empty"
	alertRoomNotFound  = "room not found"
	alertNameTaken     = "name taken"
	alertRoomStarted   = "game already started"
	alertCreateFailed  = "could not create room"
	alertJoinFailed    = "could not join room"
	alertMalformed     = "malformed message"
)

// session serialises the requests and the disconnect of one connection.
type session struct {
	mu     sync.Mutex
	state  State
	roomID string
	closed bool
}

// Coordinator turns client requests into room store mutations and sends
// the resulting rosters and alerts.
type Coordinator struct {
	hub      *wshub.Hub
	store    *rooms.Store
	dispatch *broadcast.Dispatcher
	bus      *events.Bus
	metrics  *metrics.Metrics

	mu       sync.Mutex
	sessions map[string]*session
}

// New wires a Coordinator. bus and m may be nil.
func New(hub *wshub.Hub, store *rooms.Store, bus *events.Bus, m *metrics.Metrics) *Coordinator {
	return &Coordinator{
		hub:      hub,
		store:    store,
		dispatch: broadcast.NewDispatcher(hub, store),
		bus:      bus,
		metrics:  m,
		sessions: make(map[string]*session),
	}
}

// Connect registers a new client and returns its connection id.
func (c *Coordinator) Connect(client *wshub.Client) string {
	id := c.hub.Register(client)
	c.mu.Lock()
	c.sessions[id] = &session{}
	c.mu.Unlock()
	return id
}

// State reports the lobby state of a connection and its room, if any.
func (c *Coordinator) State(connID string) (State, string) {
	s := c.lookup(connID)
	if s == nil {
		return StateAnonymous, ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.roomID
}

// HandleRaw decodes a client frame and handles it.
func (c *Coordinator) HandleRaw(connID string, data []byte) {
	msg, err := protocol.Decode(data)
	if err != nil {
		log.Printf("[Lobby] %s: %v\n", connID, err)
		c.metrics.Request("Malformed", "rejected")
		c.hub.Send(connID, protocol.SendAlert{Text: alertMalformed})
		return
	}
	c.Handle(connID, msg)
}

// Handle processes one inbound message for connID.
func (c *Coordinator) Handle(connID string, msg protocol.Inbound) {
	s := c.lookup(connID)
	if s == nil {
		log.Printf("[Lobby] Ignoring message from unknown connection %s\n", connID)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	switch m := msg.(type) {
	case protocol.CreateRoom:
		c.createRoom(connID, s, m)
	case protocol.JoinRoom:
		c.joinRoom(connID, s, m)
	case protocol.Unknown:
		c.reject(connID, "Unknown", "unknown_type", fmt.Sprintf("unknown message type: %q", m.Type))
	default:
		c.reject(connID, "Unknown", "unknown_type", fmt.Sprintf("unknown message type: %T", msg))
	}
}

func (c *Coordinator) createRoom(connID string, s *session, m protocol.CreateRoom) {
	if s.state == StateInRoom {
		c.reject(connID, protocol.TypeCreateRoom, "already_in_room", alertAlreadyInRoom)
		return
	}
	name, ok := c.validName(connID, m.Name, protocol.TypeCreateRoom)
	if !ok {
		return
	}

	snap, err := c.store.Create(connID, name)
	if err != nil {
		log.Printf("[Lobby] Create room for %s failed: %v\n", connID, err)
		result, text := c.describe(err, alertCreateFailed)
		c.reject(connID, protocol.TypeCreateRoom, result, text)
		return
	}

	c.seat(connID, s, snap.RoomID, name)
	c.metrics.Request(protocol.TypeCreateRoom, "ok")
	c.metrics.RoomOpened()
	c.bus.Publish(events.RoomEvent{Kind: events.RoomCreated, RoomID: snap.RoomID, ConnID: connID, Name: name})
	log.Printf("[Lobby] %s created room %s\n", name, snap.RoomID)

	c.dispatch.BroadcastRoster(snap)
}

func (c *Coordinator) joinRoom(connID string, s *session, m protocol.JoinRoom) {
	if s.state == StateInRoom {
		c.reject(connID, protocol.TypeJoinRoom, "already_in_room", alertAlreadyInRoom)
		return
	}
	name, ok := c.validName(connID, m.Name, protocol.TypeJoinRoom)
	if !ok {
		return
	}

	roomID := strings.ToUpper(strings.TrimSpace(m.RoomID))
	snap, err := c.store.Join(roomID, connID, name)
	if err != nil {
		log.Printf("[Lobby] %s could not join room %q: %v\n", name, roomID, err)
		result, text := c.describe(err, alertJoinFailed)
		c.reject(connID, protocol.TypeJoinRoom, result, text)
		return
	}

	c.seat(connID, s, snap.RoomID, name)
	c.metrics.Request(protocol.TypeJoinRoom, "ok")
	c.bus.Publish(events.RoomEvent{Kind: events.PlayerJoined, RoomID: snap.RoomID, ConnID: connID, Name: name})
	log.Printf("[Lobby] %s joined room %s (%d/%d)\n", name, snap.RoomID, len(snap.Members), c.store.Capacity())

	c.dispatch.BroadcastRoster(snap)
}

// Disconnect removes connID from its room, notifies the remaining members
// and drops the connection from the hub. Safe to call more than once.
func (c *Coordinator) Disconnect(connID string) {
	c.mu.Lock()
	s := c.sessions[connID]
	delete(c.sessions, connID)
	c.mu.Unlock()

	if s != nil {
		s.mu.Lock()
		s.closed = true
	}
	snap, notify := c.store.Leave(connID)
	if s != nil {
		s.state = StateAnonymous
		s.roomID = ""
		s.mu.Unlock()
	}

	c.hub.Unregister(connID)

	if snap.RoomID == "" {
		return
	}
	c.bus.Publish(events.RoomEvent{Kind: events.PlayerLeft, RoomID: snap.RoomID, ConnID: connID})
	if !notify {
		c.bus.Publish(events.RoomEvent{Kind: events.RoomClosed, RoomID: snap.RoomID})
		c.metrics.RoomClosed()
		log.Printf("[Lobby] Room %s closed\n", snap.RoomID)
		return
	}
	log.Printf("[Lobby] %s left room %s (%d remaining)\n", connID, snap.RoomID, len(snap.Members))
	c.dispatch.BroadcastRoster(snap)
}

// validName trims the requested display name. It alerts the requester
// and returns false when nothing is left.
func (c *Coordinator) validName(connID, requested, msgType string) (string, bool) {
	name := strings.TrimSpace(requested)
	if name == "" {
		c.reject(connID, msgType, "empty_name", alertEmptyName)
		return "", false
	}
	return name, true
}

// seat records a successful create or join. The display name is fixed only
// once the connection holds a seat.
func (c *Coordinator) seat(connID string, s *session, roomID, name string) {
	s.state = StateInRoom
	s.roomID = roomID
	if err := c.hub.SetName(connID, name); err != nil {
		log.Printf("[Lobby] %v\n", err)
	}
}

// describe maps a room store error to a metrics label and alert text.
func (c *Coordinator) describe(err error, fallback string) (string, string) {
	switch {
	case errors.Is(err, rooms.ErrRoomNotFound):
		return "room_not_found", alertRoomNotFound
	case errors.Is(err, rooms.ErrRoomFull):
		n := c.store.Capacity()
		return "room_full", fmt.Sprintf("room is full (%d/%d players)", n, n)
	case errors.Is(err, rooms.ErrAlreadyInRoom):
		return "already_in_room", alertAlreadyInRoom
	case errors.Is(err, rooms.ErrRoomStarted):
		return "room_started", alertRoomStarted
	case errors.Is(err, rooms.ErrNameTaken):
		return "name_taken", alertNameTaken
	default:
		return "internal", fallback
	}
}

func (c *Coordinator) reject(connID, msgType, result, text string) {
	c.metrics.Request(msgType, result)
	c.hub.Send(connID, protocol.SendAlert{Text: text})
}

func (c *Coordinator) lookup(connID string) *session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions[connID]
}
