package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/vedran77/chord/internal/apperr"
	"github.com/vedran77/chord/internal/events"
	"github.com/vedran77/chord/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 8192
	sendBufSize    = 256
	publishTimeout = 5 * time.Second
)

// Client represents a single WebSocket connection.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	profileID uuid.UUID
	log       zerolog.Logger
	limiter   *rate.Limiter

	// subs holds the event names this client listens to.
	subs map[string]struct{}
	mu   sync.RWMutex

	sendMu sync.Mutex
	send   chan []byte
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn, profileID uuid.UUID) *Client {
	conn.SetReadLimit(maxMessageSize)
	return &Client{
		hub:       hub,
		conn:      conn,
		profileID: profileID,
		log:       hub.log.With().Str("profile_id", profileID.String()).Logger(),
		limiter:   hub.limiter(),
		subs:      make(map[string]struct{}),
		send:      make(chan []byte, sendBufSize),
	}
}

func (c *Client) isSubscribed(event string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.subs[event]
	return ok
}

func (c *Client) subscribe(event string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs[event] = struct{}{}
}

func (c *Client) unsubscribe(event string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subs, event)
}

// enqueue queues data for the write pump. It reports false when the buffer
// is full or the client is closed.
func (c *Client) enqueue(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump reads frames until the connection fails, then unregisters.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.remove(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		var frame events.Frame
		if err := wsjson.Read(ctx, c.conn, &frame); err != nil {
			if websocket.CloseStatus(err) != -1 {
				c.log.Debug().Msg("client closed connection")
			} else {
				c.log.Debug().Err(err).Msg("read failed")
			}
			return
		}
		c.handleFrame(ctx, &frame)
	}
}

// WritePump writes queued frames and pings until the send channel closes.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				c.log.Debug().Err(err).Msg("write failed")
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), writeWait)
			err := c.conn.Ping(ctx)
			cancel()
			if err != nil {
				c.log.Debug().Err(err).Msg("ping failed")
				return
			}
		}
	}
}

func (c *Client) handleFrame(ctx context.Context, f *events.Frame) {
	switch f.Op {
	case events.OpSubscribe:
		name, err := events.ParseName(f.Event)
		if err != nil {
			c.reply(f.ID, err.Error())
			return
		}
		if err := c.hub.auth.CanSubscribe(ctx, c.profileID, name); err != nil {
			c.reply(f.ID, c.publicMessage(err))
			return
		}
		c.subscribe(name.Raw)
		c.reply(f.ID, "")

	case events.OpUnsubscribe:
		c.unsubscribe(f.Event)
		c.reply(f.ID, "")

	case events.OpEmit:
		c.handleEmit(ctx, f)

	case events.OpPing:
		c.write(&events.Frame{Op: events.OpPong, ID: f.ID})

	case events.OpPong:

	default:
		c.reply(f.ID, "unknown op: "+f.Op)
	}
}

// handleEmit accepts typing updates only. The member id is resolved on the
// server so a client cannot speak for someone else.
func (c *Client) handleEmit(ctx context.Context, f *events.Frame) {
	if !c.limiter.Allow() {
		metrics.EmitsRejected.WithLabelValues("rate").Inc()
		c.reply(f.ID, "rate limited")
		return
	}

	name, err := events.ParseName(f.Event)
	if err != nil || name.Kind != events.KindTyping {
		metrics.EmitsRejected.WithLabelValues("kind").Inc()
		c.reply(f.ID, "event not accepted from clients: "+f.Event)
		return
	}

	var typing events.Typing
	if err := json.Unmarshal(f.Payload, &typing); err != nil {
		metrics.EmitsRejected.WithLabelValues("payload").Inc()
		c.reply(f.ID, "invalid typing payload")
		return
	}

	member, err := c.hub.auth.ChatMember(ctx, c.profileID, name.Scope)
	if err != nil {
		metrics.EmitsRejected.WithLabelValues("forbidden").Inc()
		c.reply(f.ID, c.publicMessage(err))
		return
	}
	typing.ChatID = name.Scope
	typing.MemberID = member.ID

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := c.hub.out.Publish(pubCtx, name.Raw, typing); err != nil {
		c.log.Error().Err(err).Str("event", name.Raw).Msg("publishing typing failed")
		c.reply(f.ID, "could not deliver event")
		return
	}
	c.reply(f.ID, "")
}

// reply acknowledges a frame that carried an id. Refusals without an id are
// reported as error frames.
func (c *Client) reply(id, errMsg string) {
	switch {
	case id != "":
		c.write(&events.Frame{Op: events.OpAck, ID: id, Error: errMsg})
	case errMsg != "":
		c.write(&events.Frame{Op: events.OpError, Error: errMsg})
	}
}

func (c *Client) publicMessage(err error) string {
	if apperr.KindOf(err) == apperr.Internal {
		c.log.Error().Err(err).Msg("authorization lookup failed")
		return "internal error"
	}
	return err.Error()
}

func (c *Client) write(f *events.Frame) {
	data, err := encodeFrame(f)
	if err != nil {
		return
	}
	c.enqueue(data)
}

func encodeFrame(f *events.Frame) ([]byte, error) {
	return json.Marshal(f)
}
