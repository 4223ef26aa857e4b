// Package client is a minimal WebSocket client for the session server.
package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/canvas-session/server/internal/protocol"
	"github.com/canvas-session/server/internal/session"
)

const writeTimeout = 10 * time.Second

type Client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex // serialises all conn writes
}

func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &Client{conn: conn}, nil
}

// Send encodes cmd and writes it as a text frame.
func (c *Client) Send(cmd session.Command) error {
	frame, err := protocol.EncodeCommand(cmd)
	if err != nil {
		return err
	}
	return c.SendRaw(websocket.TextMessage, []byte(frame))
}

// SendRaw writes an arbitrary data frame.
func (c *Client) SendRaw(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(messageType, data)
}

// Next reads the next event, waiting at most timeout.
func (c *Client) Next(timeout time.Duration) (session.Event, error) {
	c.conn.SetReadDeadline(time.Now().Add(timeout))
	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if msgType != websocket.TextMessage {
			continue
		}
		return protocol.DecodeEvent(string(data))
	}
}

// Close performs the closing handshake, then closes the socket.
func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
	c.writeMu.Unlock()
	return c.conn.Close()
}

// Drop closes the socket without a close frame, as a crashed peer would.
func (c *Client) Drop() error {
	return c.conn.UnderlyingConn().Close()
}
