package session

import (
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/google/uuid"
)

// scene is the shared state. It is accessed only from the actor goroutine,
// so it has no mutex.
type scene struct {
	connections map[ConnectionID]*Sink
	rectangles  map[string]Rectangle
}

func newScene(seed []Rectangle) *scene {
	if len(seed) == 0 {
		seed = []Rectangle{DefaultRectangle()}
	}
	s := &scene{
		connections: make(map[ConnectionID]*Sink),
		rectangles:  make(map[string]Rectangle, len(seed)),
	}
	for _, r := range seed {
		s.rectangles[r.ID] = r
	}
	return s
}

func (s *scene) join(id ConnectionID, sink *Sink) error {
	if sink == nil {
		return fmt.Errorf("%w: connection %d", ErrNilSink, id)
	}
	if _, ok := s.connections[id]; ok {
		return fmt.Errorf("%w: %d", ErrDuplicateConnection, id)
	}
	s.connections[id] = sink
	return nil
}

// leave removes id and closes its sink. It reports whether id was joined.
func (s *scene) leave(id ConnectionID) bool {
	sink, ok := s.connections[id]
	if !ok {
		return false
	}
	delete(s.connections, id)
	sink.close()
	return true
}

func (s *scene) moveRectangle(id string, dx, dy float64) error {
	r, ok := s.rectangles[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRectangle, id)
	}
	r.MoveBy(dx, dy)
	if !finite(r.Left) || !finite(r.Top) {
		return fmt.Errorf("%w: %q by (%g, %g)", ErrInvalidMove, id, dx, dy)
	}
	s.rectangles[id] = r
	return nil
}

func (s *scene) createRectangle(c CreateRectangle) (Rectangle, error) {
	if c.Width == 0 || c.Height == 0 {
		return Rectangle{}, fmt.Errorf("%w: size %dx%d", ErrInvalidRectangle, c.Width, c.Height)
	}
	if !finite(c.Left) || !finite(c.Top) {
		return Rectangle{}, fmt.Errorf("%w: position (%g, %g)", ErrInvalidRectangle, c.Left, c.Top)
	}
	r := Rectangle{
		ID:     uuid.NewString(),
		Width:  c.Width,
		Height: c.Height,
		Left:   c.Left,
		Top:    c.Top,
	}
	s.rectangles[r.ID] = r
	return r, nil
}

func (s *scene) connectionIDs() []ConnectionID {
	ids := slices.Sorted(maps.Keys(s.connections))
	if ids == nil {
		ids = []ConnectionID{}
	}
	return ids
}

func (s *scene) snapshot() Snapshot {
	return Snapshot{
		Connections: s.connectionIDs(),
		Rectangles:  maps.Clone(s.rectangles),
	}
}

// finite reports whether v can be encoded as a JSON number.
func finite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}
