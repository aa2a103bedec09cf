package domain

import (
	"encoding/json"
	"errors"
)

// Kind is the edit record type carried in the wire "type" field.
type Kind string

const (
	KindCreate   Kind = "Create"
	KindUpdate   Kind = "Update"
	KindDelete   Kind = "Delete"
	KindPosition Kind = "Position"
)

// Valid reports whether k is one of the recognized record kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindCreate, KindUpdate, KindDelete, KindPosition:
		return true
	}
	return false
}

// Position is a canvas coordinate pair, replaced wholesale by Position records.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// EditRecord is one structured canvas edit, both the wire message and the
// stored log entry. Inputs is opaque to the server; its semantics belong to
// the client application.
type EditRecord struct {
	ID            string          `json:"id,omitempty"`
	Kind          Kind            `json:"type"`
	ComponentName string          `json:"componentName,omitempty"`
	Inputs        json.RawMessage `json:"inputs,omitempty"`
	Position      *Position       `json:"position,omitempty"`
}

var (
	// ErrUnknownID signals an Update/Position referencing an id absent
	// from the room's log. The log is left untouched.
	ErrUnknownID = errors.New("unknown record id")

	// ErrMissingRoom signals a connection without a roomName parameter.
	ErrMissingRoom = errors.New("missing roomName parameter")

	// ErrSendBufferFull signals a client whose outbound queue cannot
	// accept another frame. The client is skipped for that frame.
	ErrSendBufferFull = errors.New("send buffer full")

	// ErrMissingPosition signals a Position record without coordinates.
	ErrMissingPosition = errors.New("position record without coordinates")
)

type Connection interface {
	ID() string
	RoomName() string
	// Replay hands the connection its room's history, once, at join.
	// Delivery is guaranteed and precedes any frame later given to Send.
	Replay(frames [][]byte)
	// Send enqueues one live frame, best effort.
	Send(data []byte) error
	Close() error
}

// Relay binds connections to rooms and applies decoded edits.
type Relay interface {
	Register(conn Connection)
	Unregister(conn Connection)
	Apply(conn Connection, rec EditRecord) error
	Stats() (rooms, clients int)
}

type MessageHandler interface {
	Handle(conn Connection, data []byte)
}
