package gateway

import (
	"chat-gateway/domain"
	"chat-gateway/domain/event"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong before the connection is declared dead.
	pongWait = 60 * time.Second

	// Ping cadence, must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound frame size. Media travels out of band, so frames stay
	// small.
	maxFrameSize = 64 * 1024

	// Outbound buffer per connection. When it is full the consumer is too
	// slow and loses events rather than stalling the room.
	sendBuffer = 256
)

// envelope is the wire framing in both directions.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Client is one authenticated websocket connection. It is the ConnSink the
// routing side delivers to; the identity is fixed at upgrade time and never
// re-validated per frame.
type Client struct {
	log      *slog.Logger
	conn     *websocket.Conn
	identity domain.Identity

	send      chan envelope
	closeOnce sync.Once
	done      chan struct{}
}

func NewClient(log *slog.Logger, conn *websocket.Conn, identity domain.Identity) *Client {
	return &Client{
		log:      log.With("user_id", identity.ID),
		conn:     conn,
		identity: identity,
		send:     make(chan envelope, sendBuffer),
		done:     make(chan struct{}),
	}
}

func (c *Client) Identity() domain.Identity { return c.identity }

// Deliver enqueues an event for the write pump. It never blocks: a full
// buffer drops the event and the client catches up through history.
func (c *Client) Deliver(e event.Outbound) {
	data, err := json.Marshal(e)
	if err != nil {
		c.log.Error("Failed to encode outbound event", "event", e.EventName(), "error", err)
		return
	}
	select {
	case c.send <- envelope{Event: e.EventName(), Data: data}:
	case <-c.done:
	default:
		c.log.Warn("Dropping event for slow consumer", "event", e.EventName())
	}
}

// Close tears the connection down exactly once. Safe from any goroutine.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
	return nil
}

// ReadPump consumes inbound frames and hands them to the dispatcher. It owns
// the read side of the connection and returns when the peer goes away.
func (c *Client) ReadPump(dispatch func(*Client, []byte)) {
	defer c.Close()

	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("Connection closed unexpectedly", "error", err)
			}
			return
		}
		dispatch(c, raw)
	}
}

// WritePump serializes all writes to the connection: queued events and
// keepalive pings. Exactly one WritePump runs per client.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case env := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(env); err != nil {
				c.log.Debug("Write failed, dropping connection", "error", err)
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
