package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/canvas-session/server/internal/metrics"
)

// DefaultCommandBuffer is the command queue size used when none is configured.
const DefaultCommandBuffer = 256

type Config struct {
	// CommandBuffer bounds the queue between connections and the actor.
	// Producers block while it is full.
	CommandBuffer int
	// Seed is the initial scene. Empty means one DefaultRectangle.
	Seed []Rectangle
}

// Actor is the single owner of the scene. Every mutation goes through its
// command queue and is applied by the goroutine running Run, one command at a
// time, in arrival order.
type Actor struct {
	commands chan Command
	done     chan struct{}
	started  atomic.Bool
	logger   zerolog.Logger

	// scene is touched only by the goroutine running Run.
	scene *scene
}

func NewActor(cfg Config, logger zerolog.Logger) *Actor {
	size := cfg.CommandBuffer
	if size < 1 {
		size = DefaultCommandBuffer
	}
	return &Actor{
		commands: make(chan Command, size),
		done:     make(chan struct{}),
		logger:   logger.With().Str("component", "session").Logger(),
		scene:    newScene(cfg.Seed),
	}
}

// Run processes commands until ctx is cancelled. It may be called once;
// on return every remaining sink has been closed.
func (a *Actor) Run(ctx context.Context) error {
	if !a.started.CompareAndSwap(false, true) {
		return ErrActorRunning
	}
	defer close(a.done)
	defer a.shutdown()

	a.logger.Info().
		Int("rectangles", len(a.scene.rectangles)).
		Int("command_buffer", cap(a.commands)).
		Msg("session actor started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-a.commands:
			a.handle(cmd)
		}
	}
}

// Done is closed once Run has returned.
func (a *Actor) Done() <-chan struct{} { return a.done }

// Submit queues cmd, blocking while the queue is full. It fails with
// ErrActorStopped once the actor has exited, or with ctx.Err().
func (a *Actor) Submit(ctx context.Context, cmd Command) error {
	select {
	case <-a.done:
		return ErrActorStopped
	default:
	}
	select {
	case a.commands <- cmd:
		return nil
	case <-a.done:
		return ErrActorStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the scene as of the moment the request reaches the front
// of the command queue.
func (a *Actor) Snapshot(ctx context.Context) (Snapshot, error) {
	req := snapshotRequest{reply: make(chan Snapshot, 1)}
	if err := a.Submit(ctx, req); err != nil {
		return Snapshot{}, err
	}
	select {
	case snap := <-req.reply:
		return snap, nil
	case <-a.done:
		return Snapshot{}, ErrActorStopped
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (a *Actor) handle(cmd Command) {
	name := CommandName(cmd)
	err := a.apply(cmd)
	outcome := OutcomeOf(err)
	metrics.RecordCommand(name, string(outcome))
	if err != nil {
		a.logger.Warn().Err(err).Str("command", name).Str("outcome", string(outcome)).Msg("command rejected")
		return
	}
	a.logger.Debug().Str("command", name).Msg("command applied")
}

func (a *Actor) apply(cmd Command) error {
	switch c := cmd.(type) {
	case Join:
		if err := a.scene.join(c.ID, c.Sink); err != nil {
			if errors.Is(err, ErrDuplicateConnection) && a.scene.connections[c.ID] != c.Sink {
				c.Sink.close()
			}
			return err
		}
		metrics.SetConnections(len(a.scene.connections))
		a.broadcast(ClientConnected{ID: c.ID})
		snap := a.scene.snapshot()
		a.broadcast(FullStateSent{Connections: snap.Connections, Rectangles: snap.Rectangles})
		return nil

	case Disconnect:
		if !a.scene.leave(c.ID) {
			a.logger.Debug().Uint64("connection", uint64(c.ID)).Msg("disconnect for unknown connection ignored")
			return nil
		}
		metrics.SetConnections(len(a.scene.connections))
		a.broadcast(ClientDisconnected{ID: c.ID})
		return nil

	case MoveRectangle:
		if err := a.scene.moveRectangle(c.ID, c.DX, c.DY); err != nil {
			return err
		}
		a.broadcast(RectangleMoved{ID: c.ID, DX: c.DX, DY: c.DY})
		return nil

	case CreateRectangle:
		r, err := a.scene.createRectangle(c)
		if err != nil {
			return err
		}
		a.broadcast(RectangleCreated{Rectangle: r})
		return nil

	case snapshotRequest:
		c.reply <- a.scene.snapshot()
		return nil

	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedCommand, cmd)
	}
}

// broadcast offers e to every joined connection. A connection whose buffer is
// full is evicted and the remaining connections are told it left; this repeats
// until a round evicts nobody.
func (a *Actor) broadcast(e Event) {
	pending := []Event{e}
	for len(pending) > 0 {
		ev := pending[0]
		pending = pending[1:]

		var evicted []ConnectionID
		for id, sink := range a.scene.connections {
			if !sink.offer(ev) {
				evicted = append(evicted, id)
			}
		}
		metrics.RecordEvent(ev.Kind().String(), len(a.scene.connections)-len(evicted))

		slices.Sort(evicted)
		for _, id := range evicted {
			a.scene.leave(id)
			metrics.RecordEviction()
			a.logger.Warn().
				Uint64("connection", uint64(id)).
				Str("event", ev.Kind().String()).
				Msg("event buffer full, disconnecting slow connection")
			pending = append(pending, ClientDisconnected{ID: id})
		}
		if len(evicted) > 0 {
			metrics.SetConnections(len(a.scene.connections))
		}
	}
}

func (a *Actor) shutdown() {
	ids := a.scene.connectionIDs()
	for _, id := range ids {
		a.scene.leave(id)
	}
	metrics.SetConnections(0)
	a.logger.Info().Int("connections_closed", len(ids)).Msg("session actor stopped")
}
