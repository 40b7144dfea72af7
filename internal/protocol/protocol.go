package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Message type tags carried in the "type" field.
const (
	TypeCreateRoom = "CreateRoom"
	TypeJoinRoom   = "JoinRoom"
	TypeSendAlert  = "SendAlert"
	TypePreGameUI  = "PreGameUI"
)

var ErrMalformed = errors.New("malformed message")

// Inbound is a message received from a client. The concrete type is one of
// CreateRoom, JoinRoom or Unknown.
type Inbound interface {
	inbound()
}

type CreateRoom struct {
	Name string
}

type JoinRoom struct {
	Name   string
	RoomID string
}

// Unknown is decoded for any well-formed message whose type tag is not recognised.
type Unknown struct {
	Type string
}

func (CreateRoom) inbound() {}
func (JoinRoom) inbound()   {}
func (Unknown) inbound()    {}

type inboundWire struct {
	Type   string `json:"type"`
	Name   string `json:"name"`
	RoomID string `json:"room_id"`
}

// Decode parses a single client message.
func Decode(data []byte) (Inbound, error) {
	var w inboundWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch w.Type {
	case TypeCreateRoom:
		return CreateRoom{Name: w.Name}, nil
	case TypeJoinRoom:
		return JoinRoom{Name: w.Name, RoomID: w.RoomID}, nil
	default:
		return Unknown{Type: w.Type}, nil
	}
}

// Outbound is a message sent to a client. The concrete type is SendAlert or PreGameUI.
type Outbound interface {
	outbound()
}

// SendAlert is a notice addressed to a single connection.
type SendAlert struct {
	Text string
}

// PreGameUI carries a room's roster to every member.
type PreGameUI struct {
	RoomID  string
	Players []string
}

func (SendAlert) outbound() {}
func (PreGameUI) outbound() {}

type sendAlertWire struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type preGameUIWire struct {
	Type    string   `json:"type"`
	RoomID  string   `json:"room_id"`
	Players []string `json:"players"`
}

// Encode serialises an outbound message with its type tag.
func Encode(msg Outbound) ([]byte, error) {
	switch m := msg.(type) {
	case SendAlert:
		return json.Marshal(sendAlertWire{Type: TypeSendAlert, Text: m.Text})
	case PreGameUI:
		players := m.Players
		if players == nil {
			players = []string{}
		}
		return json.Marshal(preGameUIWire{Type: TypePreGameUI, RoomID: m.RoomID, Players: players})
	default:
		return nil, fmt.Errorf("encoding %T: unsupported outbound message", msg)
	}
}
