// Package surface binds one open chat (a channel or a conversation) to the
// realtime core: its message cache, typing indicator and bus subscriptions
// live and die together.
package surface

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vedran77/chord/internal/domain"
	"github.com/vedran77/chord/internal/events"
	"github.com/vedran77/chord/internal/realtime/api"
	"github.com/vedran77/chord/internal/realtime/bus"
	"github.com/vedran77/chord/internal/realtime/clock"
	"github.com/vedran77/chord/internal/realtime/msgcache"
	"github.com/vedran77/chord/internal/realtime/typing"
)

type MessageAPI interface {
	FetchMessages(ctx context.Context, chat domain.ChatRef, cursor string) (domain.MessagePage, error)
	SendMessage(ctx context.Context, chat domain.ChatRef, req api.SendMessageRequest) (*domain.Message, error)
}

type Bus interface {
	Subscribe(name string, h func(events.Payload)) (unsubscribe func())
	EmitWithAck(ctx context.Context, name string, payload any) error
	State() bus.State
}

type Options struct {
	Clock        clock.Clock
	TypingIdle   time.Duration
	PollInterval time.Duration
}

type Surface struct {
	chat   domain.ChatRef
	self   uuid.UUID
	api    MessageAPI
	bus    Bus
	clock  clock.Clock
	poll   time.Duration
	log    zerolog.Logger
	cache  *msgcache.Cache
	typing *typing.Tracker

	mu     sync.Mutex
	unsubs []func()
	closed bool
}

// New creates the surface for chat as seen by member self. Nothing is
// fetched or subscribed until Open.
func New(chat domain.ChatRef, self uuid.UUID, a MessageAPI, b Bus, opts Options, logger zerolog.Logger) *Surface {
	if opts.Clock == nil {
		opts.Clock = clock.Real
	}
	if opts.TypingIdle == 0 {
		opts.TypingIdle = typing.DefaultIdle
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = time.Second
	}
	return &Surface{
		chat:   chat,
		self:   self,
		api:    a,
		bus:    b,
		clock:  opts.Clock,
		poll:   opts.PollInterval,
		log:    logger.With().Str("component", "surface").Str("chat", chat.String()).Logger(),
		cache:  msgcache.New(chat),
		typing: typing.New(opts.Clock, opts.TypingIdle, self),
	}
}

func (s *Surface) Cache() *msgcache.Cache   { return s.cache }
func (s *Surface) Typing() *typing.Tracker { return s.typing }

// Open subscribes to the chat's events and loads the latest page.
func (s *Surface) Open(ctx context.Context) error {
	s.mu.Lock()
	s.unsubs = append(s.unsubs,
		s.bus.Subscribe(events.ChatMessages(s.chat.ID), s.onAdded),
		s.bus.Subscribe(events.ChatMessagesUpdate(s.chat.ID), s.onUpdated),
		s.bus.Subscribe(events.ChatTyping(s.chat.ID), s.onTyping),
	)
	s.mu.Unlock()

	return s.Refresh(ctx)
}

func (s *Surface) onAdded(p events.Payload) {
	if ev, ok := p.(events.MessageAdded); ok && ev.Message.Chat() == s.chat {
		s.cache.Prepend(ev.Message)
	}
}

func (s *Surface) onUpdated(p events.Payload) {
	if ev, ok := p.(events.MessageUpdated); ok {
		s.cache.Reconcile(ev.Message)
	}
}

func (s *Surface) onTyping(p events.Payload) {
	if ev, ok := p.(events.Typing); ok && ev.ChatID == s.chat.ID {
		s.typing.Apply(ev)
	}
}

// Refresh replaces the cached pages with the latest page from the server.
func (s *Surface) Refresh(ctx context.Context) error {
	page, err := s.api.FetchMessages(ctx, s.chat, "")
	if err != nil {
		return err
	}
	s.cache.Rebuild(page)
	return nil
}

// LoadMore fetches the next older page. It reports false when the history
// is exhausted.
func (s *Surface) LoadMore(ctx context.Context) (bool, error) {
	if !s.cache.Loaded() {
		return true, s.Refresh(ctx)
	}
	if !s.cache.HasMore() {
		return false, nil
	}
	page, err := s.api.FetchMessages(ctx, s.chat, s.cache.Cursor())
	if err != nil {
		return true, err
	}
	s.cache.PageAppend(page)
	return s.cache.HasMore(), nil
}

// Send shows the message immediately and replaces it with the server's copy
// once the request succeeds. A failed send removes the optimistic copy.
func (s *Surface) Send(ctx context.Context, content string, fileURL *string) (*domain.Message, error) {
	clientID := uuid.NewString()
	now := s.clock.Now()
	opt := domain.Message{
		ID:        clientID,
		Content:   content,
		FileURL:   fileURL,
		MemberID:  s.self,
		CreatedAt: now,
		UpdatedAt: now,
		ClientID:  clientID,
	}
	chatID := s.chat.ID
	if s.chat.Kind == domain.ChatConversation {
		opt.ConversationID = &chatID
	} else {
		opt.ChannelID = &chatID
	}
	if err := s.cache.InsertOptimistic(opt); err != nil {
		return nil, err
	}

	msg, err := s.api.SendMessage(ctx, s.chat, api.SendMessageRequest{Content: content, FileURL: fileURL, ClientID: clientID})
	if err != nil {
		s.cache.Discard(clientID)
		s.log.Warn().Err(err).Str("client_id", clientID).Msg("send failed")
		return nil, err
	}
	if msg.ClientID == "" {
		msg.ClientID = clientID
	}
	s.cache.Confirm(*msg)
	return msg, nil
}

// SetTyping tells the other participants whether the local member is typing.
func (s *Surface) SetTyping(ctx context.Context, isTyping bool) error {
	return s.bus.EmitWithAck(ctx, events.ChatTyping(s.chat.ID), events.Typing{
		ChatID:   s.chat.ID,
		MemberID: s.self,
		IsTyping: isTyping,
	})
}

// RunPolling refreshes the first page on an interval while the bus is not
// connected, so the surface keeps moving without live events.
func (s *Surface) RunPolling(ctx context.Context) {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.bus.State() == bus.StateConnected {
				continue
			}
			if err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
				s.log.Warn().Err(err).Msg("poll failed")
			}
		}
	}
}

// Close drops the surface's subscriptions and timers.
func (s *Surface) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsubs := s.unsubs
	s.unsubs = nil
	s.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
	s.typing.Close()
}
