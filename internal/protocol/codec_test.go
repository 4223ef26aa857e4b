package protocol

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/canvas-session/server/internal/session"
)

func TestDecodeMoveRectangle(t *testing.T) {
	cmd, err := Decode(`MoveRectangle;{"uuid":"r1","diff_x":1.5,"diff_y":-2}`)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	move, ok := cmd.(session.MoveRectangle)
	if !ok {
		t.Fatalf("Decode() = %T, want session.MoveRectangle", cmd)
	}
	if move.ID != "r1" || move.DX != 1.5 || move.DY != -2 {
		t.Errorf("Decode() = %+v, want {r1 1.5 -2}", move)
	}
}

func TestDecodeCreateRectangle(t *testing.T) {
	cmd, err := Decode(`CreateRectangle;{"width":40,"height":20,"left":-3.25,"top":8}`)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	want := session.CreateRectangle{Width: 40, Height: 20, Left: -3.25, Top: 8}
	if cmd != want {
		t.Errorf("Decode() = %+v, want %+v", cmd, want)
	}
}

func TestDecodeSplitsOnFirstDelimiter(t *testing.T) {
	cmd, err := Decode(`MoveRectangle;{"uuid":"a;b","diff_x":0,"diff_y":0}`)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if got := cmd.(session.MoveRectangle).ID; got != "a;b" {
		t.Errorf("uuid = %q, want %q", got, "a;b")
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  error
	}{
		{"Empty", "", ErrMalformedFrame},
		{"NoDelimiter", `MoveRectangle{"uuid":"r1"}`, ErrMalformedFrame},
		{"EmptyKind", `;{"uuid":"r1","diff_x":1,"diff_y":1}`, ErrMalformedFrame},
		{"UnknownKind", `DeleteRectangle;{"uuid":"r1"}`, ErrUnknownKind},
		{"ServerKindFromClient", `RectangleMoved;{"uuid":"r1","diff_x":1,"diff_y":1}`, ErrUnknownKind},
		{"EmptyPayload", `MoveRectangle;`, ErrInvalidPayload},
		{"BadJSON", `MoveRectangle;{"uuid":`, ErrInvalidPayload},
		{"WrongType", `MoveRectangle;{"uuid":"r1","diff_x":"far","diff_y":1}`, ErrInvalidPayload},
		{"MissingUUID", `MoveRectangle;{"diff_x":1,"diff_y":1}`, ErrInvalidPayload},
		{"MissingDiffY", `MoveRectangle;{"uuid":"r1","diff_x":1}`, ErrInvalidPayload},
		{"NullPayload", `MoveRectangle;null`, ErrInvalidPayload},
		{"NullUUID", `MoveRectangle;{"uuid":null,"diff_x":1,"diff_y":1}`, ErrInvalidPayload},
		{"NullDiffX", `MoveRectangle;{"uuid":"r1","diff_x":null,"diff_y":1}`, ErrInvalidPayload},
		{"NullWidth", `CreateRectangle;{"width":null,"height":1,"left":0,"top":0}`, ErrInvalidPayload},
		{"UnknownField", `MoveRectangle;{"uuid":"r1","diff_x":1,"diff_y":1,"diff_z":1}`, ErrInvalidPayload},
		{"TrailingData", `MoveRectangle;{"uuid":"r1","diff_x":1,"diff_y":1}{}`, ErrInvalidPayload},
		{"NegativeWidth", `CreateRectangle;{"width":-1,"height":1,"left":0,"top":0}`, ErrInvalidPayload},
		{"MissingTop", `CreateRectangle;{"width":1,"height":1,"left":0}`, ErrInvalidPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := Decode(tt.frame)
			if err == nil {
				t.Fatalf("Decode(%q) = %+v, want error", tt.frame, cmd)
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode(%q) error = %v, want %v", tt.frame, err, tt.want)
			}
			if !errors.Is(err, ErrProtocol) {
				t.Errorf("error %v does not wrap ErrProtocol", err)
			}
			if got := session.OutcomeOf(err); got != session.OutcomeProtocolError {
				t.Errorf("OutcomeOf = %q, want %q", got, session.OutcomeProtocolError)
			}
		})
	}
}

func TestEncodeEvents(t *testing.T) {
	tests := []struct {
		name  string
		event session.Event
		want  string
	}{
		{"ClientConnected", session.ClientConnected{ID: 3}, `ClientConnected;{"id":3}`},
		{"ClientDisconnected", session.ClientDisconnected{ID: 7}, `ClientDisconnected;{"id":7}`},
		{"RectangleMoved", session.RectangleMoved{ID: "r1", DX: 10, DY: -5}, `RectangleMoved;{"uuid":"r1","diff_x":10,"diff_y":-5}`},
		{
			"RectangleCreated",
			session.RectangleCreated{Rectangle: session.Rectangle{ID: "r2", Width: 1, Height: 2, Left: 3, Top: 4}},
			`RectangleCreated;{"rectangle":{"uuid":"r2","width":1,"height":2,"left":3,"top":4}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.event)
			if err != nil {
				t.Fatalf("Encode() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Encode() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEncodeStateSent(t *testing.T) {
	ev := session.FullStateSent{
		Connections: []session.ConnectionID{1, 2},
		Rectangles: map[string]session.Rectangle{
			"r0": {ID: "r0", Width: 100, Height: 100, Left: 110, Top: 95},
		},
	}
	frame, err := Encode(ev)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	kind, payload, _ := strings.Cut(frame, ";")
	if kind != "StateSent" {
		t.Fatalf("kind = %q, want StateSent", kind)
	}

	var got struct {
		Connections map[string]struct {
			ID int `json:"id"`
		} `json:"connections"`
		Rectangles map[string]map[string]any `json:"rectangles"`
	}
	if err := json.Unmarshal([]byte(payload), &got); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if len(got.Connections) != 2 || got.Connections["1"].ID != 1 || got.Connections["2"].ID != 2 {
		t.Errorf("connections = %+v, want ids 1 and 2 keyed by id", got.Connections)
	}
	r0 := got.Rectangles["r0"]
	if r0["uuid"] != "r0" || r0["left"] != 110.0 || r0["top"] != 95.0 || r0["width"] != 100.0 {
		t.Errorf("rectangles[r0] = %v", r0)
	}
}

func TestEncodeStateSentEmptyIsObjects(t *testing.T) {
	frame, err := Encode(session.FullStateSent{})
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if want := `StateSent;{"connections":{},"rectangles":{}}`; frame != want {
		t.Errorf("Encode() = %s, want %s", frame, want)
	}
}

func TestEncodeRejectsNonFiniteAndUnknown(t *testing.T) {
	_, err := Encode(session.RectangleMoved{ID: "r1", DX: math.NaN()})
	if !errors.Is(err, ErrUnencodable) {
		t.Errorf("Encode(NaN) error = %v, want ErrUnencodable", err)
	}
	if _, err := Encode(nil); !errors.Is(err, ErrUnencodable) {
		t.Errorf("Encode(nil) error = %v, want ErrUnencodable", err)
	}
}

func TestCommandRoundTrip(t *testing.T) {
	cmds := []session.Command{
		session.MoveRectangle{ID: "r1", DX: 1.5, DY: -2.0},
		session.MoveRectangle{ID: "", DX: 0, DY: 0},
		session.MoveRectangle{ID: "ünïcode", DX: 1e-9, DY: -123456.789},
		session.CreateRectangle{Width: 1, Height: 4294967295, Left: -0.5, Top: 1e6},
	}
	for _, cmd := range cmds {
		frame, err := EncodeCommand(cmd)
		if err != nil {
			t.Fatalf("EncodeCommand(%+v) error: %v", cmd, err)
		}
		got, err := Decode(frame)
		if err != nil {
			t.Fatalf("Decode(%q) error: %v", frame, err)
		}
		if got != cmd {
			t.Errorf("round trip %+v -> %q -> %+v", cmd, frame, got)
		}
	}
}

func TestEncodeCommandRejectsInternalCommands(t *testing.T) {
	if _, err := EncodeCommand(session.Disconnect{ID: 1}); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("EncodeCommand(Disconnect) error = %v, want ErrUnknownKind", err)
	}
}

func TestEventRoundTrip(t *testing.T) {
	events := []session.Event{
		session.ClientConnected{ID: 1},
		session.ClientDisconnected{ID: 2},
		session.RectangleMoved{ID: "r1", DX: 10, DY: -5},
		session.RectangleCreated{Rectangle: session.Rectangle{ID: "r2", Width: 5, Height: 6, Left: 7, Top: 8}},
	}
	for _, ev := range events {
		frame, err := Encode(ev)
		if err != nil {
			t.Fatalf("Encode(%+v) error: %v", ev, err)
		}
		got, err := DecodeEvent(frame)
		if err != nil {
			t.Fatalf("DecodeEvent(%q) error: %v", frame, err)
		}
		if got != ev {
			t.Errorf("round trip %+v -> %q -> %+v", ev, frame, got)
		}
	}
}

func TestStateSentRoundTrip(t *testing.T) {
	ev := session.FullStateSent{
		Connections: []session.ConnectionID{2, 5, 9},
		Rectangles:  map[string]session.Rectangle{"r0": {ID: "r0", Width: 1, Height: 1}},
	}
	frame, err := Encode(ev)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	got, err := DecodeEvent(frame)
	if err != nil {
		t.Fatalf("DecodeEvent() error: %v", err)
	}
	state := got.(session.FullStateSent)
	if len(state.Connections) != 3 || state.Connections[0] != 2 || state.Connections[2] != 9 {
		t.Errorf("connections = %v, want [2 5 9]", state.Connections)
	}
	if state.Rectangles["r0"] != ev.Rectangles["r0"] {
		t.Errorf("rectangles = %v", state.Rectangles)
	}
}
