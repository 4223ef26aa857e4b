package session

// Command is a client intent handed to the actor. The set is closed: only
// types in this package implement it.
type Command interface {
	command() string
}

// Join registers a connection and the sink its events are delivered to.
type Join struct {
	ID   ConnectionID
	Sink *Sink
}

// Disconnect removes a connection. Disconnecting an unknown id is a no-op.
type Disconnect struct {
	ID ConnectionID
}

// MoveRectangle translates rectangle ID by (DX, DY).
type MoveRectangle struct {
	ID string
	DX float64
	DY float64
}

// CreateRectangle adds a rectangle; the actor assigns its id.
type CreateRectangle struct {
	Width  uint32
	Height uint32
	Left   float64
	Top    float64
}

// snapshotRequest is answered from inside the actor loop so reads are ordered
// with writes.
type snapshotRequest struct {
	reply chan Snapshot
}

func (Join) command() string            { return "join" }
func (Disconnect) command() string      { return "disconnect" }
func (MoveRectangle) command() string   { return "move_rectangle" }
func (CreateRectangle) command() string { return "create_rectangle" }
func (snapshotRequest) command() string { return "snapshot" }

// CommandName returns the metrics/log label for cmd.
func CommandName(cmd Command) string {
	if cmd == nil {
		return "unknown"
	}
	return cmd.command()
}
