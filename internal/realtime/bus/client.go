// Package bus is the client side of the signaling connection: one shared
// WebSocket per session, reconnecting on its own, with name-based
// subscriptions and acknowledged emits.
package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/vedran77/chord/internal/events"
)

var (
	ErrNotConnected = errors.New("bus: not connected")
	ErrAckTimeout   = errors.New("bus: ack timeout")
	ErrConnLost     = errors.New("bus: connection lost before ack")
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

type Config struct {
	// URL of the signaling endpoint, e.g. ws://localhost:8080/ws.
	URL   string
	Token string

	ReconnectBaseDelay time.Duration
	ReconnectMaxDelay  time.Duration
	HeartbeatInterval  time.Duration
	AckTimeout         time.Duration
	ReadLimit          int64
}

func (c *Config) defaults() {
	if c.ReconnectBaseDelay == 0 {
		c.ReconnectBaseDelay = 500 * time.Millisecond
	}
	if c.ReconnectMaxDelay == 0 {
		c.ReconnectMaxDelay = 30 * time.Second
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = 25 * time.Second
	}
	if c.AckTimeout == 0 {
		c.AckTimeout = 10 * time.Second
	}
	if c.ReadLimit == 0 {
		c.ReadLimit = 64 << 10
	}
}

type ackResult struct {
	err error
}

type Client struct {
	cfg Config
	log zerolog.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	state   State
	nextID  uint64
	subs    map[string]map[uint64]func(events.Payload)
	states  map[uint64]func(State)
	errs    map[uint64]func(error)
	pending map[string]chan ackResult

	recon backoff
}

func New(cfg Config, logger zerolog.Logger) *Client {
	cfg.defaults()
	return &Client{
		cfg:     cfg,
		log:     logger.With().Str("component", "bus").Logger(),
		state:   StateDisconnected,
		subs:    make(map[string]map[uint64]func(events.Payload)),
		states:  make(map[uint64]func(State)),
		errs:    make(map[uint64]func(error)),
		pending: make(map[string]chan ackResult),
		recon: backoff{
			base:        cfg.ReconnectBaseDelay,
			max:         cfg.ReconnectMaxDelay,
			stableAfter: time.Minute,
		},
	}
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers h for the named event. Handlers for one name run in
// delivery order on the connection's read goroutine, so they must not block
// on EmitWithAck.
func (c *Client) Subscribe(name string, h func(events.Payload)) (unsubscribe func()) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	first := len(c.subs[name]) == 0
	if first {
		c.subs[name] = make(map[uint64]func(events.Payload))
	}
	c.subs[name][id] = h
	conn := c.conn
	c.mu.Unlock()

	if first && conn != nil {
		c.sendControl(conn, events.OpSubscribe, name)
	}

	var once sync.Once
	return func() {
		once.Do(func() { c.unsubscribe(name, id) })
	}
}

func (c *Client) unsubscribe(name string, id uint64) {
	c.mu.Lock()
	handlers := c.subs[name]
	delete(handlers, id)
	last := len(handlers) == 0
	if last {
		delete(c.subs, name)
	}
	conn := c.conn
	c.mu.Unlock()

	if last && conn != nil {
		c.sendControl(conn, events.OpUnsubscribe, name)
	}
}

// OnState registers fn for connection state changes.
func (c *Client) OnState(fn func(State)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	c.states[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.states, id)
	}
}

// OnError registers fn for transport-level failures.
func (c *Client) OnError(fn func(error)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	c.errs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.errs, id)
	}
}

// EmitWithAck sends an event and waits for the server to acknowledge it.
func (c *Client) EmitWithAck(ctx context.Context, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("bus: encoding %s payload: %w", name, err)
	}

	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	id := uuid.NewString()
	ch := make(chan ackResult, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	frame := events.Frame{Op: events.OpEmit, ID: id, Event: name, Payload: data}
	if err := c.write(ctx, conn, &frame); err != nil {
		return err
	}

	timer := time.NewTimer(c.cfg.AckTimeout)
	defer timer.Stop()
	select {
	case res := <-ch:
		return res.err
	case <-timer.C:
		return ErrAckTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run keeps the connection up until ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	first := true
	for {
		if first {
			c.setState(StateConnecting)
		} else {
			c.setState(StateReconnecting)
		}
		first = false

		err := c.session(ctx)
		c.dropConn(err)

		if ctx.Err() != nil {
			c.setState(StateDisconnected)
			return ctx.Err()
		}
		c.setState(StateDisconnected)
		if err != nil {
			c.reportError(err)
		}

		delay := c.recon.next(time.Now())
		c.log.Debug().Dur("delay", delay).Msg("reconnecting")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// session runs one connection to completion.
func (c *Client) session(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	conn.SetReadLimit(c.cfg.ReadLimit)

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	c.conn = conn
	names := make([]string, 0, len(c.subs))
	for name := range c.subs {
		names = append(names, name)
	}
	c.mu.Unlock()

	for _, name := range names {
		c.sendControl(conn, events.OpSubscribe, name)
	}
	c.recon.markConnected(time.Now())
	c.setState(StateConnected)
	c.log.Info().Str("url", c.cfg.URL).Int("subscriptions", len(names)).Msg("connected")

	go c.heartbeat(connCtx, conn)
	return c.readLoop(connCtx, conn)
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("bus: invalid url: %w", err)
	}
	if c.cfg.Token != "" {
		q := u.Query()
		q.Set("token", c.cfg.Token)
		u.RawQuery = q.Encode()
	}

	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("bus: dial: %w", err)
	}
	return conn, nil
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		var frame events.Frame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return err
		}

		switch frame.Op {
		case events.OpEvent:
			c.dispatch(&frame)
		case events.OpAck:
			c.resolve(&frame)
		case events.OpError:
			c.reportError(fmt.Errorf("bus: server error: %s", frame.Error))
			if frame.ID != "" {
				c.resolve(&frame)
			}
		case events.OpPing:
			_ = c.write(ctx, conn, &events.Frame{Op: events.OpPong})
		case events.OpPong:
		default:
			c.log.Warn().Str("op", frame.Op).Msg("unknown frame op")
		}
	}
}

func (c *Client) dispatch(frame *events.Frame) {
	payload, err := events.Decode(frame.Event, frame.Payload)
	if err != nil {
		c.log.Warn().Err(err).Str("event", frame.Event).Msg("dropping malformed event")
		return
	}

	c.mu.Lock()
	subs := c.subs[frame.Event]
	ids := make([]uint64, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	handlers := make([]func(events.Payload), 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, subs[id])
	}
	c.mu.Unlock()

	for _, h := range handlers {
		h(payload)
	}
}

func (c *Client) resolve(frame *events.Frame) {
	c.mu.Lock()
	ch, ok := c.pending[frame.ID]
	c.mu.Unlock()
	if !ok {
		return
	}
	var res ackResult
	if frame.Error != "" {
		res.err = errors.New(frame.Error)
	}
	select {
	case ch <- res:
	default:
	}
}

func (c *Client) heartbeat(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, c.cfg.AckTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				c.log.Warn().Err(err).Msg("heartbeat failed")
				conn.Close(websocket.StatusGoingAway, "heartbeat timeout")
				return
			}
		}
	}
}

func (c *Client) sendControl(conn *websocket.Conn, op, name string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.AckTimeout)
	defer cancel()
	if err := c.write(ctx, conn, &events.Frame{Op: op, Event: name}); err != nil {
		c.log.Warn().Err(err).Str("op", op).Str("event", name).Msg("control frame not sent")
	}
}

func (c *Client) write(ctx context.Context, conn *websocket.Conn, frame *events.Frame) error {
	if err := wsjson.Write(ctx, conn, frame); err != nil {
		return fmt.Errorf("bus: write: %w", err)
	}
	return nil
}

func (c *Client) dropConn(cause error) {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	pending := c.pending
	c.pending = make(map[string]chan ackResult)
	c.mu.Unlock()

	if conn != nil {
		conn.Close(websocket.StatusNormalClosure, "")
	}
	for _, ch := range pending {
		select {
		case ch <- ackResult{err: ErrConnLost}:
		default:
		}
	}
	if cause != nil {
		c.log.Debug().Err(cause).Msg("connection closed")
	}
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	c.state = s
	fns := make([]func(State), 0, len(c.states))
	for _, fn := range c.states {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}

func (c *Client) reportError(err error) {
	c.log.Error().Err(err).Msg("transport error")
	c.mu.Lock()
	fns := make([]func(error), 0, len(c.errs))
	for _, fn := range c.errs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(err)
	}
}
