package ws

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"codenames/internal/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait     = 10 * time.Second
	readLimit     = 4096
	sendBufferLen = 64
	joinTimeout   = 5 * time.Second
)

// Client is one session endpoint: it owns the socket and the heartbeat
// timer, translates frames into hub requests and serializes hub events
// back onto the wire. The hub reaches it only through Deliver and Kick.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	room string

	// 0 until the hub has assigned a session
	sessionID uint64

	send chan EventMessage

	lastHeartbeat atomic.Int64
	timedOut      atomic.Bool
	closeOnce     sync.Once
	done          chan struct{}
}

func NewClient(hub *Hub, conn *websocket.Conn, room string) *Client {
	c := &Client{
		hub:  hub,
		conn: conn,
		room: room,
		send: make(chan EventMessage, sendBufferLen),
		done: make(chan struct{}),
	}
	c.touch()
	return c
}

// Deliver queues an outbound event; false reports a full buffer.
func (c *Client) Deliver(msg EventMessage) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Kick closes the socket; the read loop then runs the disconnect path.
func (c *Client) Kick() {
	c.close()
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *Client) touch() {
	c.lastHeartbeat.Store(time.Now().UnixNano())
}

func (c *Client) sinceHeartbeat() time.Duration {
	return time.Since(time.Unix(0, c.lastHeartbeat.Load()))
}

// Run drives the endpoint through its lifecycle: join the hub, pump
// frames until the socket dies, then notify the hub exactly once with
// Disconnect (client close, transport error) or TimedOut (heartbeat
// expiry).
func (c *Client) Run() {
	ActiveConnections.Inc()
	defer ActiveConnections.Dec()

	go c.writePump()

	ctx, cancel := context.WithTimeout(context.Background(), joinTimeout)
	sess, err := c.hub.Join(ctx, c.room, c)
	cancel()
	if err != nil {
		logger.Error("join failed", "room", c.room, "error", err)
		c.close()
		return
	}
	c.sessionID = sess.ID
	logger.Debug("client joined", "session", c.sessionID, "room", c.room)

	c.readPump()

	reqType := TypeDisconnect
	if c.timedOut.Load() {
		reqType = TypeTimedOut
	}
	c.hub.Post(ClientRequest{
		SenderID: c.sessionID,
		Room:     c.room,
		Body:     RequestBody{Type: reqType, ID: c.sessionID},
	})
	c.close()
}

func (c *Client) readPump() {
	c.conn.SetReadLimit(readLimit)
	c.conn.SetPingHandler(func(payload string) error {
		c.touch()
		return c.conn.WriteControl(websocket.PongMessage, []byte(payload), time.Now().Add(writeWait))
	})
	c.conn.SetPongHandler(func(string) error {
		c.touch()
		return nil
	})

	for {
		msgType, raw, err := c.conn.ReadMessage()
		if err != nil {
			logger.Debug("read loop done", "session", c.sessionID, "error", err)
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		body, err := ParseRequest(raw)
		if err != nil {
			DroppedFrames.Inc()
			logger.Warn("dropping malformed frame", "session", c.sessionID, "error", err)
			continue
		}
		c.hub.Post(ClientRequest{SenderID: c.sessionID, Room: c.room, Body: body})
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.cfg.HeartbeatInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return

		case msg := <-c.send:
			raw, err := json.Marshal(msg)
			if err != nil {
				logger.Error("could not encode event", "session", c.sessionID, "error", err)
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				logger.Debug("write failed", "session", c.sessionID, "error", err)
				return
			}

		case <-ticker.C:
			if c.sinceHeartbeat() > c.hub.cfg.ClientTimeout {
				logger.Info("client timed out", "session", c.sessionID, "room", c.room)
				c.timedOut.Store(true)
				deadline := time.Now().Add(writeWait)
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "heartbeat timeout"), deadline)
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
