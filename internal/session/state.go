package session

import (
	"math/rand"

	"github.com/google/uuid"
)

// ConnectionID is assigned by the listener when a connection is accepted.
// Ids increase monotonically and are never reused.
type ConnectionID uint64

const (
	defaultRectSize = 100
	defaultRectLeft = 100.0
	defaultRectTop  = 100.0
)

// Rectangle is a movable scene node. ID never changes after creation.
type Rectangle struct {
	ID     string  `json:"uuid"`
	Width  uint32  `json:"width"`
	Height uint32  `json:"height"`
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
}

// MoveBy translates the rectangle. Positions are not clamped.
func (r *Rectangle) MoveBy(dx, dy float64) {
	r.Left += dx
	r.Top += dy
}

// DefaultRectangle is the rectangle every session starts with.
func DefaultRectangle() Rectangle {
	return Rectangle{
		ID:     uuid.NewString(),
		Width:  defaultRectSize,
		Height: defaultRectSize,
		Left:   defaultRectLeft,
		Top:    defaultRectTop,
	}
}

// SeedRectangles returns n rectangles: the default one first, the rest
// scattered over a square of side spread centred on the origin.
func SeedRectangles(n int, spread float64) []Rectangle {
	if n < 1 {
		n = 1
	}
	rects := make([]Rectangle, 0, n)
	rects = append(rects, DefaultRectangle())
	for i := 1; i < n; i++ {
		rects = append(rects, Rectangle{
			ID:     uuid.NewString(),
			Width:  defaultRectSize,
			Height: defaultRectSize,
			Left:   (rand.Float64() - 0.5) * spread,
			Top:    (rand.Float64() - 0.5) * spread,
		})
	}
	return rects
}

// Snapshot is a copy of the scene at one point of the timeline.
type Snapshot struct {
	Connections []ConnectionID       `json:"connections"`
	Rectangles  map[string]Rectangle `json:"rectangles"`
}
