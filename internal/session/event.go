package session

// EventKind classifies facts the actor broadcasts to connections.
type EventKind int

const (
	KindClientConnected    EventKind = iota // a connection joined
	KindClientDisconnected                  // a connection left or was evicted
	KindFullStateSent                       // snapshot sent after a join
	KindRectangleMoved                      // a rectangle was translated
	KindRectangleCreated                    // a rectangle was added to the scene
)

var eventKindNames = map[EventKind]string{
	KindClientConnected:    "client_connected",
	KindClientDisconnected: "client_disconnected",
	KindFullStateSent:      "full_state_sent",
	KindRectangleMoved:     "rectangle_moved",
	KindRectangleCreated:   "rectangle_created",
}

func (k EventKind) String() string {
	if s, ok := eventKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Event is a committed state transition. Events only carry copies of actor
// state, so they are safe to hand to other goroutines.
type Event interface {
	Kind() EventKind
}

type ClientConnected struct {
	ID ConnectionID
}

type ClientDisconnected struct {
	ID ConnectionID
}

// FullStateSent is the scene as seen right after a join. Connections is
// sorted ascending.
type FullStateSent struct {
	Connections []ConnectionID
	Rectangles  map[string]Rectangle
}

type RectangleMoved struct {
	ID string
	DX float64
	DY float64
}

type RectangleCreated struct {
	Rectangle Rectangle
}

func (ClientConnected) Kind() EventKind    { return KindClientConnected }
func (ClientDisconnected) Kind() EventKind { return KindClientDisconnected }
func (FullStateSent) Kind() EventKind      { return KindFullStateSent }
func (RectangleMoved) Kind() EventKind     { return KindRectangleMoved }
func (RectangleCreated) Kind() EventKind   { return KindRectangleCreated }
