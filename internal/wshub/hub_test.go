package wshub

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"roomlobby/internal/metrics"
	"roomlobby/internal/protocol"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestClient(buffer int) *Client {
	return &Client{Send: make(chan []byte, buffer)}
}

func TestRegisterAssignsUniqueIDs(t *testing.T) {
	h := NewHub(nil)

	c1 := newTestClient(16)
	c2 := newTestClient(16)
	id1 := h.Register(c1)
	id2 := h.Register(c2)

	if id1 == "" || id2 == "" {
		t.Fatal("Register() returned empty id")
	}
	if id1 == id2 {
		t.Fatalf("Register() returned duplicate id %q", id1)
	}
	if c1.ID != id1 {
		t.Errorf("c1.ID = %q, want %q", c1.ID, id1)
	}
	if h.Len() != 2 {
		t.Errorf("Len() = %d, want 2", h.Len())
	}
}

func TestSendDeliversToOneClient(t *testing.T) {
	h := NewHub(nil)

	c1 := newTestClient(16)
	c2 := newTestClient(16)
	id1 := h.Register(c1)
	h.Register(c2)

	if !h.Send(id1, protocol.SendAlert{Text: "room not found"}) {
		t.Fatal("Send() = false, want true")
	}

	select {
	case data := <-c1.Send:
		var got map[string]string
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got["type"] != "SendAlert" || got["text"] != "room not found" {
			t.Fatalf("unexpected message: %v", got)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("c1 did not receive message")
	}

	select {
	case <-c2.Send:
		t.Fatal("c2 should not receive c1's message")
	default:
		// expected
	}
}

func TestUnregisterClosesSend(t *testing.T) {
	h := NewHub(nil)

	c := newTestClient(16)
	id := h.Register(c)
	h.Unregister(id)

	_, ok := <-c.Send
	if ok {
		t.Fatal("c.Send should be closed")
	}
	if h.Len() != 0 {
		t.Errorf("Len() = %d, want 0", h.Len())
	}
}

func TestUnregisterNonexistent(t *testing.T) {
	h := NewHub(nil)
	// Should not panic
	h.Unregister("nonexistent")
}

func TestUnregisterTwice(t *testing.T) {
	h := NewHub(nil)
	id := h.Register(newTestClient(1))
	h.Unregister(id)
	// Second call must not close the channel again
	h.Unregister(id)
}

func TestSendAfterUnregister(t *testing.T) {
	m := metrics.New()
	h := NewHub(m)

	id := h.Register(newTestClient(16))
	h.Unregister(id)

	if h.Send(id, protocol.SendAlert{Text: "late"}) {
		t.Fatal("Send() to a disconnected client should report false")
	}
	if got := testutil.ToFloat64(m.DroppedSends); got != 1 {
		t.Errorf("dropped sends = %v, want 1", got)
	}
}

func TestSendDropsWhenFull(t *testing.T) {
	h := NewHub(nil)

	// Channel with capacity 1
	c := newTestClient(1)
	id := h.Register(c)

	// Fill the channel
	c.Send <- []byte("filler")

	// This should not block — message dropped
	if h.Send(id, protocol.SendAlert{Text: "overflow"}) {
		t.Fatal("Send() on a full queue should report false")
	}

	data := <-c.Send
	if string(data) != "filler" {
		t.Fatalf("expected filler, got: %s", data)
	}

	select {
	case <-c.Send:
		t.Fatal("should be empty after draining filler")
	default:
		// expected
	}
}

func TestSetName(t *testing.T) {
	h := NewHub(nil)
	id := h.Register(newTestClient(1))

	if _, ok := h.Name(id); ok {
		t.Fatal("new connection should have no name")
	}
	if err := h.SetName(id, "Alice"); err != nil {
		t.Fatalf("SetName() error: %v", err)
	}
	if name, _ := h.Name(id); name != "Alice" {
		t.Errorf("Name() = %q, want %q", name, "Alice")
	}

	// Same name again is accepted
	if err := h.SetName(id, "Alice"); err != nil {
		t.Errorf("SetName() with same name error: %v", err)
	}

	// Renaming is rejected and leaves the name unchanged
	err := h.SetName(id, "Mallory")
	if !errors.Is(err, ErrAlreadyNamed) {
		t.Fatalf("SetName() error = %v, want ErrAlreadyNamed", err)
	}
	if name, _ := h.Name(id); name != "Alice" {
		t.Errorf("Name() after rejected rename = %q, want %q", name, "Alice")
	}
}

func TestSetNameUnknownConnection(t *testing.T) {
	h := NewHub(nil)
	err := h.SetName("ghost", "Alice")
	if !errors.Is(err, ErrUnknownConnection) {
		t.Fatalf("SetName() error = %v, want ErrUnknownConnection", err)
	}
}

func TestConnectionGauge(t *testing.T) {
	m := metrics.New()
	h := NewHub(m)

	id1 := h.Register(newTestClient(1))
	h.Register(newTestClient(1))
	h.Unregister(id1)

	if got := testutil.ToFloat64(m.Connections); got != 1 {
		t.Errorf("connections = %v, want 1", got)
	}
}
