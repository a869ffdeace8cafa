package ws

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"
)

var (
	ErrBackpressure = errors.New("ws: send buffer full")
	ErrClosed       = errors.New("ws: connection closed")
)

type frame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Client wraps one upgraded connection. Gorilla connections permit a single
// concurrent writer, so every outbound frame funnels through the send channel
// into writePump.
type Client struct {
	id     string
	userID string
	conn   *websocket.Conn
	send   chan frame

	mu     sync.RWMutex
	closed bool
}

func newClient(id, userID string, conn *websocket.Conn, buffer int) *Client {
	return &Client{
		id:     id,
		userID: userID,
		conn:   conn,
		send:   make(chan frame, buffer),
	}
}

func (c *Client) ID() string { return c.id }

func (c *Client) UserID() string { return c.userID }

// Send queues one outbound event without blocking. A full buffer means the
// peer is not draining its socket; the frame is dropped and the caller
// decides whether that matters.
func (c *Client) Send(event string, data any) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- frame{Event: event, Data: data}:
		return nil
	default:
		return ErrBackpressure
	}
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.send)
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
