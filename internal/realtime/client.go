package realtime

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	sendBuffer     = 64
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameSize   = 4096
	framesPerSec   = 20
	frameBurstSize = 40
)

// Client is one websocket connection owned by a user. conn is nil for
// hub-internal test clients; pumps are only started for real connections.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	connID string

	send    chan Event
	limiter *rate.Limiter

	rooms map[string]struct{} // guarded by hub.mu

	sendMu sync.Mutex // guards closed and the close/send race on send
	closed bool
}

func newClient(h *Hub, conn *websocket.Conn, userID, connID string) *Client {
	return &Client{
		hub:     h,
		conn:    conn,
		userID:  userID,
		connID:  connID,
		send:    make(chan Event, sendBuffer),
		limiter: rate.NewLimiter(rate.Limit(framesPerSec), frameBurstSize),
		rooms:   make(map[string]struct{}),
	}
}

func (c *Client) UserID() string { return c.userID }
func (c *Client) ConnID() string { return c.connID }

// trySend queues the event without blocking; a slow consumer loses
// events rather than stalling the hub. Sends after close are dropped:
// broadcasters snapshot targets outside hub.mu, so a client may be
// unregistered between snapshot and delivery.
func (c *Client) trySend(ev Event) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- ev:
	default:
	}
}

func (c *Client) close() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// clientFrame is the envelope for inbound websocket frames.
type clientFrame struct {
	Event string `json:"event"`
	Data  struct {
		ChatID string `json:"chat_id"`
		To     string `json:"to"`
	} `json:"data"`
}

// readPump consumes inbound frames until the connection drops, then
// unregisters. Frames beyond the rate limit are dropped silently.
func (c *Client) readPump(ctx context.Context) {
	defer c.hub.Unregister(c)

	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] read conn=%s user=%s: %v", c.connID, c.userID, err)
			}
			return
		}
		if !c.limiter.Allow() {
			continue
		}

		var frame clientFrame
		if err := json.Unmarshal(payload, &frame); err != nil {
			continue
		}
		c.handleFrame(ctx, frame)
	}
}

func (c *Client) handleFrame(ctx context.Context, frame clientFrame) {
	switch frame.Event {
	case FrameJoinChat:
		if frame.Data.ChatID != "" {
			c.hub.JoinRoom(ctx, c, frame.Data.ChatID)
		}
	case FrameLeaveChat:
		if frame.Data.ChatID != "" {
			c.hub.LeaveRoom(c, frame.Data.ChatID)
		}
	case FrameTypingStart:
		c.hub.SetTyping(c, frame.Data.ChatID, true)
	case FrameTypingStop:
		c.hub.SetTyping(c, frame.Data.ChatID, false)
	case FrameCallUser:
		if frame.Data.To != "" {
			c.hub.SendToUser(frame.Data.To, Event{
				Name: EventIncomingCall,
				Data: map[string]any{"user_id": c.userID},
			})
		}
	case FrameCallAccepted:
		if frame.Data.To != "" {
			c.hub.TrackCall(c.userID, frame.Data.To)
			c.hub.SendToUser(frame.Data.To, Event{
				Name: EventCallAccepted,
				Data: map[string]any{"user_id": c.userID},
			})
		}
	case FrameEndCall:
		if peer, ok := c.hub.EndCall(c.userID); ok {
			c.hub.SendToUser(peer, Event{
				Name: EventCallEnded,
				Data: map[string]any{"user_id": c.userID},
			})
		}
	}
}

// writePump drains the send queue onto the socket and keeps the
// connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
