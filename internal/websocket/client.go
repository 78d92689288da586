package websocket

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // must stay below pongWait
	maxInboundSize = 512
	outboundQueue  = 256
)

// Client is one live connection of a user. Its workspace follows the user's
// active workspace: a switch moves the connection instead of dropping it.
type Client struct {
	id    string
	email string
	conn  *websocket.Conn
	hub   *Hub
	queue chan []byte

	mu          sync.RWMutex
	workspaceID uuid.UUID
	closed      bool
	closeOnce   sync.Once
}

// NewClient creates a client bound to one user and their active workspace
func NewClient(conn *websocket.Conn, workspaceID uuid.UUID, userEmail string, hub *Hub) *Client {
	return &Client{
		id:          uuid.New().String(),
		email:       userEmail,
		conn:        conn,
		hub:         hub,
		queue:       make(chan []byte, outboundQueue),
		workspaceID: workspaceID,
	}
}

func (c *Client) ID() string { return c.id }

// UserEmail returns the email of the connected user
func (c *Client) UserEmail() string { return c.email }

// WorkspaceID returns the workspace the client currently receives events for
func (c *Client) WorkspaceID() uuid.UUID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.workspaceID
}

// MoveTo rescopes the client. Only the hub calls this, under its own lock.
func (c *Client) MoveTo(workspaceID uuid.UUID) {
	c.mu.Lock()
	c.workspaceID = workspaceID
	c.mu.Unlock()
}

// Send queues an encoded event. A full queue means the peer is not keeping up
// and is treated the same as a closed connection.
func (c *Client) Send(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.queue <- data:
		return nil
	default:
		return ErrClientClosed
	}
}

// Close is idempotent
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.queue)
		c.mu.Unlock()
		err = c.conn.Close()
	})
	return err
}

// IsClosed reports whether Close has run
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Serve runs the connection until the peer goes away. It blocks; the writer
// runs on its own goroutine and the client is unregistered on return.
func (c *Client) Serve() {
	go c.writeLoop()
	c.readLoop()
}

// readLoop only services control frames. The connection is server-push.
func (c *Client) readLoop() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.Close()
	}()

	c.conn.SetReadLimit(maxInboundSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger().Warn().Err(err).Msg("WebSocket unexpected close")
			}
			return
		}
	}
}

func (c *Client) writeLoop() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case data, ok := <-c.queue:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger().Warn().Err(err).Msg("WebSocket write error")
				return
			}
		case <-ping.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) logger() *zerolog.Logger {
	l := log.With().
		Str("client_id", c.id).
		Str("user_email", c.email).
		Str("workspace_id", c.WorkspaceID().String()).
		Logger()
	return &l
}
