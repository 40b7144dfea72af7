package wshub

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"roomlobby/internal/metrics"
	"roomlobby/internal/protocol"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

var (
	ErrAlreadyNamed      = errors.New("connection already has a name")
	ErrUnknownConnection = errors.New("unknown connection")
)

// Client represents a single WebSocket connection in the hub.
type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte

	name string // guarded by Hub.mu
}

// NewClient wraps conn with an outbound queue of the given capacity.
func NewClient(conn *websocket.Conn, buffer int) *Client {
	return &Client{
		Conn: conn,
		Send: make(chan []byte, buffer),
	}
}

// WritePump reads from the Send channel and writes to the WebSocket connection.
func (c *Client) WritePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.Send:
			if !ok {
				return
			}
			if err := c.Conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}
}

// Hub is the registry of live connections.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	metrics *metrics.Metrics
}

// NewHub creates a new Hub. m may be nil.
func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		metrics: m,
	}
}

// Register assigns the client a fresh connection id and adds it to the hub.
func (h *Hub) Register(c *Client) string {
	id := uuid.New().String()

	h.mu.Lock()
	c.ID = id
	h.clients[id] = c
	h.mu.Unlock()

	h.metrics.ConnectionOpened()
	return id
}

// Unregister removes a client and closes its Send channel.
func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		close(c.Send)
		delete(h.clients, id)
	}
	h.mu.Unlock()

	if ok {
		h.metrics.ConnectionClosed()
	}
}

// SetName fixes the display name of a connection. Repeating the current
// name is accepted; a different name is rejected with ErrAlreadyNamed.
func (h *Hub) SetName(id, name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[id]
	if !ok {
		return fmt.Errorf("setting name for %s: %w", id, ErrUnknownConnection)
	}
	if c.name != "" && c.name != name {
		return fmt.Errorf("setting name for %s: %w", id, ErrAlreadyNamed)
	}
	c.name = name
	return nil
}

func (h *Hub) Name(id string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[id]
	if !ok || c.name == "" {
		return "", false
	}
	return c.name, true
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Send queues msg for a single connection. Non-blocking: drops if the
// connection is gone or its channel is full.
func (h *Hub) Send(id string, msg protocol.Outbound) bool {
	data, err := protocol.Encode(msg)
	if err != nil {
		log.Printf("[WSHub] Marshal error: %v\n", err)
		return false
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.clients[id]
	if !ok {
		log.Printf("[WSHub] Dropping message for disconnected client %s\n", id)
		h.metrics.SendDropped()
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		log.Printf("[WSHub] Send buffer full for client %s, dropping message\n", id)
		h.metrics.SendDropped()
		return false
	}
}
