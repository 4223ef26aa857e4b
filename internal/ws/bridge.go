package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/canvas-session/server/internal/config"
	"github.com/canvas-session/server/internal/metrics"
	"github.com/canvas-session/server/internal/protocol"
	"github.com/canvas-session/server/internal/session"
)

var ErrTooManyConnections = errors.New("ws: too many connections")

type BridgeOptions struct {
	EventBuffer     int
	MaxConnections  int // 0 = unlimited
	WriteTimeout    time.Duration
	PongTimeout     time.Duration // 0 disables read deadlines
	PingInterval    time.Duration // 0 disables pings
	MaxMessageBytes int64
}

func OptionsFromConfig(cfg *config.Config) BridgeOptions {
	return BridgeOptions{
		EventBuffer:     cfg.Session.EventBuffer,
		MaxConnections:  cfg.Server.MaxConnections,
		WriteTimeout:    cfg.Bridge.WriteTimeout,
		PongTimeout:     cfg.Bridge.PongTimeout,
		PingInterval:    cfg.Bridge.PingInterval,
		MaxMessageBytes: cfg.Bridge.MaxMessageBytes,
	}
}

// Bridge attaches sockets to the session actor. Each attached socket gets a
// fresh ConnectionID, a sink, and a reader and writer goroutine that share
// nothing but the socket.
type Bridge struct {
	actor  *session.Actor
	opts   BridgeOptions
	logger zerolog.Logger
	nextID atomic.Uint64
	active atomic.Int64
}

func NewBridge(actor *session.Actor, opts BridgeOptions, logger zerolog.Logger) *Bridge {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	return &Bridge{
		actor:  actor,
		opts:   opts,
		logger: logger.With().Str("component", "bridge").Logger(),
	}
}

// ActiveCount reports attached connections whose goroutines are still running.
func (b *Bridge) ActiveCount() int {
	return int(b.active.Load())
}

// Full reports whether another connection would exceed MaxConnections.
func (b *Bridge) Full() bool {
	return b.opts.MaxConnections > 0 && b.ActiveCount() >= b.opts.MaxConnections
}

func (b *Bridge) reserve() bool {
	for {
		n := b.active.Load()
		if b.opts.MaxConnections > 0 && n >= int64(b.opts.MaxConnections) {
			return false
		}
		if b.active.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Attach joins conn to the session and starts its reader and writer. The
// bridge owns conn from here on, even when an error is returned.
func (b *Bridge) Attach(ctx context.Context, conn *websocket.Conn) (session.ConnectionID, error) {
	if !b.reserve() {
		deadline := time.Now().Add(b.opts.WriteTimeout)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too many connections"), deadline)
		conn.Close()
		return 0, ErrTooManyConnections
	}

	id := session.ConnectionID(b.nextID.Add(1))
	sink := session.NewSink(id, b.opts.EventBuffer)
	if err := b.actor.Submit(ctx, session.Join{ID: id, Sink: sink}); err != nil {
		b.active.Add(-1)
		conn.Close()
		return 0, fmt.Errorf("joining connection %d: %w", id, err)
	}

	c := &connection{
		id:     id,
		conn:   conn,
		sink:   sink,
		bridge: b,
		logger: b.logger.With().Uint64("connection", uint64(id)).Str("remote", conn.RemoteAddr().String()).Logger(),
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.writePump()
	}()
	go func() {
		defer wg.Done()
		c.readPump()
	}()
	go func() {
		wg.Wait()
		b.active.Add(-1)
		c.logger.Info().Msg("connection closed")
	}()

	c.logger.Info().Msg("connection joined")
	return id, nil
}

type connection struct {
	id     session.ConnectionID
	conn   *websocket.Conn
	sink   *session.Sink
	bridge *Bridge
	logger zerolog.Logger
}

// readPump turns frames into commands. Whatever ends it, the actor is told
// the connection is gone.
func (c *connection) readPump() {
	defer c.leave()

	opts := c.bridge.opts
	if opts.MaxMessageBytes > 0 {
		c.conn.SetReadLimit(opts.MaxMessageBytes)
	}
	if opts.PongTimeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(opts.PongTimeout))
		c.conn.SetPongHandler(func(string) error {
			return c.conn.SetReadDeadline(time.Now().Add(opts.PongTimeout))
		})
	}

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug().Err(err).Msg("read failed")
			}
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			// Reserved; nothing is defined for binary payloads yet.
			metrics.RecordFrameReceived("binary", false)
			c.logger.Debug().Int("bytes", len(data)).Msg("binary frame ignored")

		case websocket.TextMessage:
			cmd, err := protocol.Decode(string(data))
			if err != nil {
				outcome := session.OutcomeOf(err)
				metrics.RecordFrameReceived("text", false)
				metrics.RecordCommand("decode", string(outcome))
				c.logger.Warn().Err(err).Str("outcome", string(outcome)).Msg("frame discarded")
				continue
			}
			metrics.RecordFrameReceived("text", true)
			if err := c.bridge.actor.Submit(context.Background(), cmd); err != nil {
				c.logger.Debug().Err(err).Msg("command not delivered")
				return
			}
		}
	}
}

func (c *connection) leave() {
	if err := c.bridge.actor.Submit(context.Background(), session.Disconnect{ID: c.id}); err != nil {
		c.logger.Debug().Err(err).Msg("disconnect not delivered")
	}
}

// writePump drains the sink onto the socket. It owns every data write and
// closes the socket when it returns.
func (c *connection) writePump() {
	opts := c.bridge.opts

	var ping <-chan time.Time
	if opts.PingInterval > 0 {
		ticker := time.NewTicker(opts.PingInterval)
		defer ticker.Stop()
		ping = ticker.C
	}
	defer c.conn.Close()

	for {
		select {
		case ev, ok := <-c.sink.Events():
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(opts.WriteTimeout))
				return
			}
			frame, err := protocol.Encode(ev)
			if err != nil {
				c.logger.Error().Err(err).Str("event", ev.Kind().String()).Msg("event not encodable")
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				c.logger.Debug().Err(err).Msg("write failed")
				return
			}
			metrics.RecordFrameSent()

		case <-ping:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(opts.WriteTimeout)); err != nil {
				c.logger.Debug().Err(err).Msg("ping failed")
				return
			}

		case <-c.bridge.actor.Done():
			return
		}
	}
}
