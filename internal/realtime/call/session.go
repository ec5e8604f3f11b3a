// Package call drives one conversation's call lifecycle on the client:
// ringing, answering and hanging up, kept in step with the server through
// HTTP actions and call signals from the bus.
package call

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vedran77/chord/internal/domain"
	"github.com/vedran77/chord/internal/events"
)

var ErrInvalidTransition = errors.New("call: invalid transition")

type State string

const (
	StateNone            State = "NONE"
	StatePendingOutgoing State = "PENDING_OUTGOING"
	StatePendingIncoming State = "PENDING_INCOMING"
	StateActive          State = "ACTIVE"
	StateEnded           State = "ENDED"
)

// idle reports states from which a new call may start.
func (s State) idle() bool {
	return s == StateNone || s == StateEnded
}

// API is the subset of the HTTP client the session needs.
type API interface {
	CreateCall(ctx context.Context, conversationID uuid.UUID, typ domain.CallType) (*domain.Call, error)
	PatchCall(ctx context.Context, callID uuid.UUID, patch domain.CallPatch) (*domain.Call, error)
	EndCall(ctx context.Context, callID uuid.UUID) (*domain.Call, error)
}

// Navigator moves the user between the conversation view and a media room.
type Navigator interface {
	OpenRoom(callID uuid.UUID)
	ReturnToConversation(conversationID uuid.UUID)
}

type Subscriber interface {
	Subscribe(name string, h func(events.Payload)) (unsubscribe func())
}

type Session struct {
	conversationID uuid.UUID
	self           uuid.UUID
	api            API
	nav            Navigator
	log            zerolog.Logger

	mu        sync.Mutex
	state     State
	call      *domain.Call
	listeners []func(State, *domain.Call)
	// early holds signals that arrive while Create is in flight and the
	// new call's id is still unknown.
	early []events.CallSignal
}

// NewSession creates the call session for one conversation. self is the
// local member id.
func NewSession(conversationID, self uuid.UUID, api API, nav Navigator, logger zerolog.Logger) *Session {
	return &Session{
		conversationID: conversationID,
		self:           self,
		api:            api,
		nav:            nav,
		log: logger.With().
			Str("component", "call").
			Str("conversation_id", conversationID.String()).
			Logger(),
		state: StateNone,
	}
}

func (s *Session) OnChange(fn func(State, *domain.Call)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ActiveCall returns the call in progress, or nil when there is none.
func (s *Session) ActiveCall() *domain.Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.idle() || s.call == nil {
		return nil
	}
	c := *s.call
	return &c
}

func (s *Session) CanInitiate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.idle()
}

// Create starts an outgoing call. The session is PENDING_OUTGOING while the
// request is in flight and falls back to NONE if the server refuses it.
func (s *Session) Create(ctx context.Context, typ domain.CallType) (*domain.Call, error) {
	if !typ.Valid() {
		return nil, fmt.Errorf("call: invalid type %q", typ)
	}
	s.mu.Lock()
	if !s.state.idle() {
		s.mu.Unlock()
		return nil, ErrInvalidTransition
	}
	s.setLocked(StatePendingOutgoing, nil)
	s.early = nil
	s.mu.Unlock()
	s.notify()

	c, err := s.api.CreateCall(ctx, s.conversationID, typ)

	s.mu.Lock()
	early := s.early
	s.early = nil
	if err != nil {
		s.setLocked(StateNone, nil)
		s.mu.Unlock()
		s.notify()
		return nil, err
	}
	s.setLocked(StatePendingOutgoing, c)
	s.mu.Unlock()
	s.notify()

	s.log.Info().Str("call_id", c.ID.String()).Str("type", string(typ)).Msg("call created")

	// Replay what arrived before the id was known; anything for an older
	// call is a late echo and is dropped.
	for _, sig := range early {
		if sig.Call.ID != c.ID {
			s.log.Debug().Str("call_id", sig.Call.ID.String()).Str("signal", string(sig.Signal)).Msg("stale signal dropped")
			continue
		}
		if err := s.HandleSignal(sig); err != nil {
			s.log.Warn().Err(err).Str("signal", string(sig.Signal)).Msg("call signal rejected")
		}
	}

	cp := *c
	return &cp, nil
}

// Incoming registers a call rung by the other member.
func (s *Session) Incoming(c domain.Call) error {
	if c.ConversationID != s.conversationID || c.CallerID == s.self || !c.Pending() {
		return ErrInvalidTransition
	}
	s.mu.Lock()
	if !s.state.idle() {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	s.setLocked(StatePendingIncoming, &c)
	s.mu.Unlock()
	s.notify()
	return nil
}

// Cancel withdraws an outgoing call before it is answered.
func (s *Session) Cancel(ctx context.Context) error {
	id, err := s.current(StatePendingOutgoing)
	if err != nil {
		return err
	}
	if _, err := s.api.PatchCall(ctx, id, domain.CallPatch{Cancelled: true}); err != nil {
		return err
	}
	s.settle(id, StatePendingOutgoing, StateNone, nil)
	return nil
}

// Decline refuses an incoming call.
func (s *Session) Decline(ctx context.Context) error {
	id, err := s.current(StatePendingIncoming)
	if err != nil {
		return err
	}
	if _, err := s.api.PatchCall(ctx, id, domain.CallPatch{Declined: true}); err != nil {
		return err
	}
	s.settle(id, StatePendingIncoming, StateNone, nil)
	return nil
}

// Answer accepts an incoming call and opens its media room.
func (s *Session) Answer(ctx context.Context) error {
	id, err := s.current(StatePendingIncoming)
	if err != nil {
		return err
	}
	c, err := s.api.PatchCall(ctx, id, domain.CallPatch{Answered: true})
	if err != nil {
		return err
	}
	if s.settle(id, StatePendingIncoming, StateActive, c) {
		s.nav.OpenRoom(id)
	}
	return nil
}

// Disconnect hangs up an active call and returns to the conversation.
func (s *Session) Disconnect(ctx context.Context) error {
	id, err := s.current(StateActive)
	if err != nil {
		return err
	}
	c, err := s.api.EndCall(ctx, id)
	if err != nil {
		return err
	}
	if s.settle(id, StateActive, StateEnded, c) {
		s.nav.ReturnToConversation(s.conversationID)
	}
	return nil
}

// HandleSignal applies a call signal pushed by the server. Signals for other
// conversations or other calls are ignored.
func (s *Session) HandleSignal(sig events.CallSignal) error {
	c := sig.Call
	if c.ConversationID != s.conversationID {
		return nil
	}
	if sig.Signal == events.CallIncoming {
		if c.CallerID == s.self {
			return nil
		}
		return s.Incoming(c)
	}

	s.mu.Lock()
	if s.state == StatePendingOutgoing && s.call == nil {
		s.early = append(s.early, sig)
		s.mu.Unlock()
		return nil
	}
	if s.call == nil || s.call.ID != c.ID {
		s.mu.Unlock()
		return nil
	}

	var next State
	var nav func()
	switch sig.Signal {
	case events.CallAnswered:
		switch s.state {
		case StateActive:
			s.mu.Unlock()
			return nil
		case StatePendingOutgoing:
			next = StateActive
			nav = func() { s.nav.OpenRoom(c.ID) }
		}
	case events.CallDeclined:
		if s.state == StatePendingOutgoing {
			next = StateNone
		}
	case events.CallCancelled:
		if s.state == StatePendingIncoming {
			next = StateNone
		}
	case events.CallEnded:
		switch s.state {
		case StateEnded:
			s.mu.Unlock()
			return nil
		case StateActive:
			next = StateEnded
			nav = func() { s.nav.ReturnToConversation(s.conversationID) }
		}
	}

	if next == "" {
		// Our own decline or cancel echoes back after the state already reset.
		if s.state == StateNone {
			s.mu.Unlock()
			return nil
		}
		state := s.state
		s.mu.Unlock()
		s.log.Debug().Str("signal", string(sig.Signal)).Str("state", string(state)).Msg("signal ignored")
		return ErrInvalidTransition
	}

	if next == StateNone {
		s.setLocked(next, nil)
	} else {
		s.setLocked(next, &c)
	}
	s.mu.Unlock()
	s.notify()
	if nav != nil {
		nav()
	}
	return nil
}

// Watch feeds call signals for profileID into the session.
func (s *Session) Watch(sub Subscriber, profileID uuid.UUID) (unsubscribe func()) {
	return sub.Subscribe(events.ProfileCalls(profileID), func(p events.Payload) {
		sig, ok := p.(events.CallSignal)
		if !ok {
			return
		}
		if err := s.HandleSignal(sig); err != nil {
			s.log.Warn().Err(err).Str("signal", string(sig.Signal)).Msg("call signal rejected")
		}
	})
}

// current returns the id of the known call if the session is in want.
func (s *Session) current(want State) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != want || s.call == nil {
		return uuid.Nil, ErrInvalidTransition
	}
	return s.call.ID, nil
}

// settle moves from -> to if the session still holds call id in state from.
// It reports whether the transition happened.
func (s *Session) settle(id uuid.UUID, from, to State, c *domain.Call) bool {
	s.mu.Lock()
	if s.state != from || s.call == nil || s.call.ID != id {
		s.mu.Unlock()
		return false
	}
	if c == nil && to != StateNone {
		c = s.call
	}
	s.setLocked(to, c)
	s.mu.Unlock()
	s.notify()
	return true
}

func (s *Session) setLocked(state State, c *domain.Call) {
	s.state = state
	if c != nil {
		cp := *c
		c = &cp
	}
	s.call = c
}

func (s *Session) notify() {
	s.mu.Lock()
	state := s.state
	var c *domain.Call
	if s.call != nil {
		cp := *s.call
		c = &cp
	}
	fns := append([]func(State, *domain.Call){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range fns {
		fn(state, c)
	}
}
