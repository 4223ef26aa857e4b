// Package protocol translates between WebSocket text frames and session
// commands and events. Frames are "<Kind>;<JSON payload>".
package protocol

import (
	"github.com/canvas-session/server/internal/session"
)

type Kind string

// Client to server.
const (
	KindMoveRectangle   Kind = "MoveRectangle"
	KindCreateRectangle Kind = "CreateRectangle"
)

// Server to client.
const (
	KindClientConnected    Kind = "ClientConnected"
	KindClientDisconnected Kind = "ClientDisconnected"
	KindStateSent          Kind = "StateSent"
	KindRectangleMoved     Kind = "RectangleMoved"
	KindRectangleCreated   Kind = "RectangleCreated"
)

const delimiter = ";"

type MoveRectanglePayload struct {
	UUID  string  `json:"uuid"`
	DiffX float64 `json:"diff_x"`
	DiffY float64 `json:"diff_y"`
}

type CreateRectanglePayload struct {
	Width  uint32  `json:"width"`
	Height uint32  `json:"height"`
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
}

type ClientConnectedPayload struct {
	ID session.ConnectionID `json:"id"`
}

type ClientDisconnectedPayload struct {
	ID session.ConnectionID `json:"id"`
}

type ConnectionPayload struct {
	ID session.ConnectionID `json:"id"`
}

// StateSentPayload keys connections by id and rectangles by uuid.
type StateSentPayload struct {
	Connections map[session.ConnectionID]ConnectionPayload `json:"connections"`
	Rectangles  map[string]session.Rectangle                `json:"rectangles"`
}

type RectangleMovedPayload struct {
	UUID  string  `json:"uuid"`
	DiffX float64 `json:"diff_x"`
	DiffY float64 `json:"diff_y"`
}

type RectangleCreatedPayload struct {
	Rectangle session.Rectangle `json:"rectangle"`
}

// Wire shapes used for decoding. Pointer fields let the decoder tell a
// missing field from a zero value.
type moveRectangleWire struct {
	UUID  *string  `json:"uuid"`
	DiffX *float64 `json:"diff_x"`
	DiffY *float64 `json:"diff_y"`
}

type createRectangleWire struct {
	Width  *uint32  `json:"width"`
	Height *uint32  `json:"height"`
	Left   *float64 `json:"left"`
	Top    *float64 `json:"top"`
}
