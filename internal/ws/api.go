package ws

import (
	"github.com/canvas-session/server/internal/procstats"
	"github.com/canvas-session/server/internal/session"
)

type HealthPayload struct {
	Status      string           `json:"status"`
	Connections int              `json:"connections"`
	Process     *procstats.Stats `json:"process,omitempty"`
}

type StatePayload struct {
	Connections []session.ConnectionID       `json:"connections"`
	Rectangles  map[string]session.Rectangle `json:"rectangles"`
}
