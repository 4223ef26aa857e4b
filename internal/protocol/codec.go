package protocol

import (
	"encoding/json"
	"errors"
	"io"
	"slices"
	"strings"

	"github.com/canvas-session/server/internal/session"
)

// Decode parses a client frame into a command. It never panics; every
// failure is an *Error wrapping ErrProtocol.
func Decode(frame string) (session.Command, error) {
	kind, payload, ok := strings.Cut(frame, delimiter)
	if !ok {
		return nil, newError("", ErrMalformedFrame, "missing %q delimiter", delimiter)
	}
	kind = strings.TrimSpace(kind)
	if kind == "" {
		return nil, newError("", ErrMalformedFrame, "empty kind")
	}

	switch Kind(kind) {
	case KindMoveRectangle:
		var w moveRectangleWire
		if err := decodeStrict(payload, &w); err != nil {
			return nil, newError(KindMoveRectangle, ErrInvalidPayload, "%v", err)
		}
		switch {
		case w.UUID == nil:
			return nil, missingField(KindMoveRectangle, "uuid")
		case w.DiffX == nil:
			return nil, missingField(KindMoveRectangle, "diff_x")
		case w.DiffY == nil:
			return nil, missingField(KindMoveRectangle, "diff_y")
		}
		return session.MoveRectangle{ID: *w.UUID, DX: *w.DiffX, DY: *w.DiffY}, nil

	case KindCreateRectangle:
		var w createRectangleWire
		if err := decodeStrict(payload, &w); err != nil {
			return nil, newError(KindCreateRectangle, ErrInvalidPayload, "%v", err)
		}
		switch {
		case w.Width == nil:
			return nil, missingField(KindCreateRectangle, "width")
		case w.Height == nil:
			return nil, missingField(KindCreateRectangle, "height")
		case w.Left == nil:
			return nil, missingField(KindCreateRectangle, "left")
		case w.Top == nil:
			return nil, missingField(KindCreateRectangle, "top")
		}
		return session.CreateRectangle{Width: *w.Width, Height: *w.Height, Left: *w.Left, Top: *w.Top}, nil

	default:
		return nil, newError(Kind(kind), ErrUnknownKind, "%q", kind)
	}
}

// Encode renders an event as a server frame.
func Encode(event session.Event) (string, error) {
	switch e := event.(type) {
	case session.ClientConnected:
		return frame(KindClientConnected, ClientConnectedPayload{ID: e.ID})
	case session.ClientDisconnected:
		return frame(KindClientDisconnected, ClientDisconnectedPayload{ID: e.ID})
	case session.FullStateSent:
		p := StateSentPayload{
			Connections: make(map[session.ConnectionID]ConnectionPayload, len(e.Connections)),
			Rectangles:  make(map[string]session.Rectangle, len(e.Rectangles)),
		}
		for _, id := range e.Connections {
			p.Connections[id] = ConnectionPayload{ID: id}
		}
		for id, r := range e.Rectangles {
			p.Rectangles[id] = r
		}
		return frame(KindStateSent, p)
	case session.RectangleMoved:
		return frame(KindRectangleMoved, RectangleMovedPayload{UUID: e.ID, DiffX: e.DX, DiffY: e.DY})
	case session.RectangleCreated:
		return frame(KindRectangleCreated, RectangleCreatedPayload{Rectangle: e.Rectangle})
	default:
		return "", newError("", ErrUnencodable, "event %T", event)
	}
}

// EncodeCommand renders a client command as a frame Decode accepts. Only
// commands that exist on the wire are supported.
func EncodeCommand(cmd session.Command) (string, error) {
	switch c := cmd.(type) {
	case session.MoveRectangle:
		return frame(KindMoveRectangle, MoveRectanglePayload{UUID: c.ID, DiffX: c.DX, DiffY: c.DY})
	case session.CreateRectangle:
		return frame(KindCreateRectangle, CreateRectanglePayload{Width: c.Width, Height: c.Height, Left: c.Left, Top: c.Top})
	default:
		return "", newError("", ErrUnknownKind, "command %T has no wire form", cmd)
	}
}

func frame(kind Kind, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", newError(kind, ErrUnencodable, "%v", err)
	}
	return string(kind) + delimiter + string(data), nil
}

// decodeStrict rejects unknown fields and trailing data.
func decodeStrict(payload string, v any) error {
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&json.RawMessage{}); !errors.Is(err, io.EOF) {
		return errors.New("trailing data after payload")
	}
	return nil
}

func missingField(kind Kind, field string) *Error {
	return newError(kind, ErrInvalidPayload, "missing field %q", field)
}

// DecodeEvent parses a server frame. It is the client-side counterpart of
// Encode.
func DecodeEvent(frame string) (session.Event, error) {
	kind, payload, ok := strings.Cut(frame, delimiter)
	if !ok {
		return nil, newError("", ErrMalformedFrame, "missing %q delimiter", delimiter)
	}

	switch Kind(kind) {
	case KindClientConnected:
		var p ClientConnectedPayload
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, newError(KindClientConnected, ErrInvalidPayload, "%v", err)
		}
		return session.ClientConnected{ID: p.ID}, nil
	case KindClientDisconnected:
		var p ClientDisconnectedPayload
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, newError(KindClientDisconnected, ErrInvalidPayload, "%v", err)
		}
		return session.ClientDisconnected{ID: p.ID}, nil
	case KindStateSent:
		var p StateSentPayload
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, newError(KindStateSent, ErrInvalidPayload, "%v", err)
		}
		ev := session.FullStateSent{
			Connections: make([]session.ConnectionID, 0, len(p.Connections)),
			Rectangles:  p.Rectangles,
		}
		for _, c := range p.Connections {
			ev.Connections = append(ev.Connections, c.ID)
		}
		slices.Sort(ev.Connections)
		if ev.Rectangles == nil {
			ev.Rectangles = map[string]session.Rectangle{}
		}
		return ev, nil
	case KindRectangleMoved:
		var p RectangleMovedPayload
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, newError(KindRectangleMoved, ErrInvalidPayload, "%v", err)
		}
		return session.RectangleMoved{ID: p.UUID, DX: p.DiffX, DY: p.DiffY}, nil
	case KindRectangleCreated:
		var p RectangleCreatedPayload
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, newError(KindRectangleCreated, ErrInvalidPayload, "%v", err)
		}
		return session.RectangleCreated{Rectangle: p.Rectangle}, nil
	default:
		return nil, newError(Kind(kind), ErrUnknownKind, "%q", kind)
	}
}
