package websocket

import (
	"context"
	"errors"
	"sync"
	"time"

	"tickcast/pkg/logger"
	"tickcast/pkg/metrics"
	"tickcast/pkg/registry"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	evictWait      = time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

var ErrClientClosed = errors.New("client connection is closed")

// Client is the registry handle for one WebSocket connection.
type Client struct {
	id       string
	conn     *websocket.Conn
	registry *registry.Registry
	logger   *logger.Logger
	onClose  func(*Client)

	writeMu   sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
}

// newClient wraps conn. onClose, if set, runs once when the client is cleaned up.
func newClient(id string, conn *websocket.Conn, reg *registry.Registry, log *logger.Logger, onClose func(*Client)) *Client {
	return &Client{
		id:       id,
		conn:     conn,
		registry: reg,
		logger:   log.WithField("client_id", id),
		onClose:  onClose,
		done:     make(chan struct{}),
	}
}

func (c *Client) ID() string {
	return c.id
}

// Send writes payload as a text frame. The write deadline is the earlier of
// ctx's deadline and writeWait from now.
func (c *Client) Send(ctx context.Context, payload string) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, []byte(payload))
}

// readMessages keeps the connection alive and detects close and transport
// errors. Inbound payloads are not used.
func (c *Client) readMessages() {
	var err error
	defer func() {
		if r := recover(); r != nil {
			c.logger.PrintfError("Panic recovered in readMessages: %v", r)
		}
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.PrintfInfo("Connection closed normally")
			} else {
				c.logger.PrintfWarning("Connection error: %v", err)
			}
		}
		c.cleanup()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err = c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var message []byte
		if _, message, err = c.conn.ReadMessage(); err != nil {
			return
		}
		c.logger.PrintfDebug("Ignoring inbound message of %d bytes", len(message))
	}
}

func (c *Client) writePings() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if r := recover(); r != nil {
			c.logger.PrintfError("Panic recovered in writePings: %v", r)
		}
	}()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				c.logger.PrintfWarning("Failed to write ping: %v", err)
				c.cleanup()
				return
			}
		}
	}
}

func (c *Client) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

// Close releases the connection after the broadcaster gave up on it. The peer
// is asked to reconnect later.
func (c *Client) Close() error {
	c.closeWith(websocket.CloseTryAgainLater, "delivery failed", evictWait)
	return nil
}

// closeGraceful tells the peer why it is being disconnected before cleaning up.
func (c *Client) closeGraceful(reason string) {
	c.closeWith(websocket.CloseGoingAway, reason, writeWait)
}

func (c *Client) closeWith(code int, reason string, wait time.Duration) {
	select {
	case <-c.done:
		return
	default:
	}

	msg := websocket.FormatCloseMessage(code, reason)
	if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wait)); err != nil {
		c.logger.PrintfDebug("Failed to write close frame: %v", err)
	}
	c.cleanup()
}

// cleanup runs once, whichever of the read loop, the ping loop, eviction or
// shutdown gets there first.
func (c *Client) cleanup() {
	c.closeOnce.Do(func() {
		close(c.done)

		if err := c.conn.Close(); err != nil {
			c.logger.PrintfDebug("Error closing connection: %v", err)
		}

		c.registry.Remove(c.id)
		metrics.ConnectedClients.Dec()
		if c.onClose != nil {
			c.onClose(c)
		}

		c.logger.PrintfInfo("Client disconnected and cleaned up")
	})
}
