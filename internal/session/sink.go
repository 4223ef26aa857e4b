package session

import "sync"

// DefaultSinkCapacity is the per-connection event buffer used when none is
// configured.
const DefaultSinkCapacity = 64

// Sink is the bounded event queue of one connection. The actor is the only
// writer and the only party that closes it; the connection's writer drains
// Events until the channel is closed.
type Sink struct {
	id        ConnectionID
	events    chan Event
	closeOnce sync.Once
}

func NewSink(id ConnectionID, capacity int) *Sink {
	if capacity < 1 {
		capacity = DefaultSinkCapacity
	}
	return &Sink{
		id:     id,
		events: make(chan Event, capacity),
	}
}

func (s *Sink) ID() ConnectionID { return s.id }

// Events is closed once the actor has dropped the connection.
func (s *Sink) Events() <-chan Event { return s.events }

// Len reports how many events are queued.
func (s *Sink) Len() int { return len(s.events) }

// offer queues e without blocking. It reports false when the buffer is full.
func (s *Sink) offer(e Event) bool {
	select {
	case s.events <- e:
		return true
	default:
		return false
	}
}

func (s *Sink) close() {
	s.closeOnce.Do(func() { close(s.events) })
}
