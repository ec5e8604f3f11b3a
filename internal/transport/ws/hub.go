package ws

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/vedran77/chord/internal/domain"
	"github.com/vedran77/chord/internal/events"
	"github.com/vedran77/chord/internal/metrics"
)

var ErrHubStopped = errors.New("ws: hub stopped")

// Publisher fans a named event out to its subscribers.
type Publisher interface {
	Publish(ctx context.Context, name string, payload any) error
}

// Authorizer decides which event names a profile may listen to and which
// member it speaks as inside a chat.
type Authorizer interface {
	CanSubscribe(ctx context.Context, profileID uuid.UUID, name events.Name) error
	ChatMember(ctx context.Context, profileID, chatID uuid.UUID) (*domain.Member, error)
}

type Options struct {
	// EmitRate and EmitBurst bound client emits per connection.
	EmitRate  float64
	EmitBurst int

	// AllowedOrigins lists browser origins (e.g. https://chat.example, or
	// "*") allowed to open a connection. Empty allows same-origin only.
	AllowedOrigins []string
}

// Hub manages all active WebSocket clients and routes events to the ones
// subscribed to each name.
type Hub struct {
	auth Authorizer
	log  zerolog.Logger
	opts Options
	// out receives client emits; the hub itself unless a relay is attached.
	out Publisher

	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMsg
	stopped    chan struct{}
}

type broadcastMsg struct {
	event string
	data  []byte
}

func NewHub(auth Authorizer, opts Options, logger zerolog.Logger) *Hub {
	if opts.EmitRate <= 0 {
		opts.EmitRate = 10
	}
	if opts.EmitBurst <= 0 {
		opts.EmitBurst = 20
	}
	h := &Hub{
		auth:       auth,
		log:        logger.With().Str("component", "hub").Logger(),
		opts:       opts,
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *broadcastMsg, 256),
		stopped:    make(chan struct{}),
	}
	h.out = h
	return h
}

// SetPublisher routes client emits through p, typically a relay that
// delivers them to every node.
func (h *Hub) SetPublisher(p Publisher) {
	h.out = p
}

func (h *Hub) limiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(h.opts.EmitRate), h.opts.EmitBurst)
}

// Run is the hub's event loop. It returns when ctx is done, closing every
// connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			metrics.WSConnections.Inc()
			h.log.Debug().Str("profile_id", c.profileID.String()).Int("total", len(h.clients)).Msg("client connected")

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
				h.log.Debug().Str("profile_id", c.profileID.String()).Int("total", len(h.clients)).Msg("client disconnected")
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				if !c.isSubscribed(msg.event) {
					continue
				}
				if !c.enqueue(msg.data) {
					// Send buffer full.
					metrics.SlowClientsDropped.Inc()
					h.log.Warn().Str("profile_id", c.profileID.String()).Msg("dropping slow client")
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) drop(c *Client) {
	delete(h.clients, c)
	c.close()
	metrics.WSConnections.Dec()
}

func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.stopped:
		return false
	}
}

func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stopped:
	}
}

// Publish delivers an event to the subscribers connected to this hub.
func (h *Hub) Publish(ctx context.Context, name string, payload any) error {
	frame, err := events.NewEvent(name, payload)
	if err != nil {
		return err
	}
	data, err := encodeFrame(frame)
	if err != nil {
		return err
	}
	if n, err := events.ParseName(name); err == nil {
		metrics.EventsPublished.WithLabelValues(string(n.Kind)).Inc()
	}

	select {
	case h.broadcast <- &broadcastMsg{event: name, data: data}:
		return nil
	case <-h.stopped:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}
