package hub

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/abhaypanchalprogrammer/HasText/internal/editor"
)

// Client is one WebSocket participant in a room. Its editor session carries
// the reconciliation state that decides which feed events reach the wire.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	connID  string
	session *editor.Session

	// send is never closed; shutdown closes done instead, so goroutines
	// holding a reference can still enqueue safely after the client is gone.
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient wraps an upgraded connection and its editor session.
func NewClient(hub *Hub, conn *websocket.Conn, session *editor.Session) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		connID:  uuid.NewString(),
		session: session,
		send:    make(chan []byte, 256),
		done:    make(chan struct{}),
	}
}

// Run starts the read and write pumps.
func (c *Client) Run() {
	go c.WritePump()
	go c.ReadPump()
}

// Session returns the client's editor session.
func (c *Client) Session() *editor.Session { return c.session }

// RoomCode returns the room the client is attached to.
func (c *Client) RoomCode() string { return c.session.RoomCode() }

// UserID returns the authenticated user id.
func (c *Client) UserID() uint { return c.session.UserID() }

// ConnID returns the connection's unique id, used in logs.
func (c *Client) ConnID() string { return c.connID }

// CloseConn tears the client down without going through the hub.
func (c *Client) CloseConn() { c.shutdown() }

// shutdown marks the client dead and closes the connection. Idempotent.
func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// enqueue hands a frame to the write pump. Returns false when the client is
// shut down or its buffer is full; it never panics, so it is safe from any
// goroutine regardless of the client's lifecycle state.
func (c *Client) enqueue(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

func (c *Client) logCtx() *logrus.Entry {
	return logrus.WithFields(logrus.Fields{
		"conn_id": c.connID,
		"room":    c.session.RoomCode(),
		"user_id": c.session.UserID(),
	})
}

// ReadPump pumps frames from the connection into the hub channel. Runs in
// its own goroutine; exiting triggers unregistration.
func (c *Client) ReadPump() {
	defer func() {
		unregisterMsg := HubMessage{Type: "unregister", RoomCode: c.RoomCode(), Client: c}
		select {
		case c.hub.messageChan <- unregisterMsg:
		case <-time.After(1 * time.Second):
			c.logCtx().Warn("Timeout sending unregister message to hub channel")
		}
		c.conn.Close()
		c.logCtx().Info("readPump exited, unregistered client")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logCtx().WithError(err).Warn("WebSocket read error (unexpected close)")
			} else {
				c.logCtx().Debug("WebSocket connection closed")
			}
			break
		}
		if messageType != websocket.TextMessage {
			c.logCtx().Debugf("Ignoring non-text message type: %d", messageType)
			continue
		}

		saveMsg := HubMessage{
			Type:     "save",
			RoomCode: c.RoomCode(),
			Client:   c,
			RawData:  message,
		}
		select {
		case c.hub.messageChan <- saveMsg:
		default:
			c.logCtx().Warn("Hub message channel full, dropping client message")
		}
	}
}

// WritePump pumps frames from the send channel to the connection and keeps
// the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.logCtx().Info("writePump exited")
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logCtx().WithError(err).Warn("Failed to write message to websocket")
				return
			}
			_ = c.conn.SetWriteDeadline(time.Time{})

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logCtx().WithError(err).Warn("Failed to send ping message")
				return
			}
			_ = c.conn.SetWriteDeadline(time.Time{})
		}
	}
}
