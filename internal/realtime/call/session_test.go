package call

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedran77/chord/internal/apperr"
	"github.com/vedran77/chord/internal/domain"
	"github.com/vedran77/chord/internal/events"
)

type fakeAPI struct {
	mu        sync.Mutex
	createErr error
	patchErr  error
	caller    uuid.UUID
	patches   []domain.CallPatch
	ended     []uuid.UUID
	// onCreate runs while the create request is still outstanding.
	onCreate func(*domain.Call)
}

func (f *fakeAPI) CreateCall(_ context.Context, conversationID uuid.UUID, typ domain.CallType) (*domain.Call, error) {
	f.mu.Lock()
	if f.createErr != nil {
		f.mu.Unlock()
		return nil, f.createErr
	}
	now := time.Now()
	c := &domain.Call{ID: uuid.New(), ConversationID: conversationID, CallerID: f.caller, Type: typ, CreatedAt: now, UpdatedAt: now}
	hook := f.onCreate
	f.mu.Unlock()

	if hook != nil {
		hook(c)
	}
	return c, nil
}

func (f *fakeAPI) PatchCall(_ context.Context, callID uuid.UUID, patch domain.CallPatch) (*domain.Call, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.patchErr != nil {
		return nil, f.patchErr
	}
	f.patches = append(f.patches, patch)
	c := &domain.Call{ID: callID, Answered: patch.Answered, Declined: patch.Declined, Cancelled: patch.Cancelled}
	c.Active = patch.Answered
	return c, nil
}

func (f *fakeAPI) EndCall(_ context.Context, callID uuid.UUID) (*domain.Call, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ended = append(f.ended, callID)
	return &domain.Call{ID: callID, Answered: true, Ended: true}, nil
}

type fakeNav struct {
	mu       sync.Mutex
	rooms    []uuid.UUID
	returned []uuid.UUID
}

func (n *fakeNav) OpenRoom(id uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rooms = append(n.rooms, id)
}

func (n *fakeNav) ReturnToConversation(id uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.returned = append(n.returned, id)
}

func newTestSession() (*Session, *fakeAPI, *fakeNav, uuid.UUID, uuid.UUID) {
	conv, self := uuid.New(), uuid.New()
	api := &fakeAPI{caller: self}
	nav := &fakeNav{}
	return NewSession(conv, self, api, nav, zerolog.Nop()), api, nav, conv, self
}

func incomingCall(conv uuid.UUID) domain.Call {
	return domain.Call{ID: uuid.New(), ConversationID: conv, CallerID: uuid.New(), Type: domain.CallAudio}
}

func TestActionsFromNoneRejected(t *testing.T) {
	s, api, _, _, _ := newTestSession()
	ctx := context.Background()

	assert.ErrorIs(t, s.Cancel(ctx), ErrInvalidTransition)
	assert.ErrorIs(t, s.Decline(ctx), ErrInvalidTransition)
	assert.ErrorIs(t, s.Answer(ctx), ErrInvalidTransition)
	assert.ErrorIs(t, s.Disconnect(ctx), ErrInvalidTransition)

	assert.Equal(t, StateNone, s.State())
	assert.Empty(t, api.patches)
	assert.Empty(t, api.ended)
}

func TestOutgoingAnsweredThenEnded(t *testing.T) {
	s, _, nav, conv, _ := newTestSession()
	ctx := context.Background()

	var states []State
	s.OnChange(func(st State, _ *domain.Call) { states = append(states, st) })

	c, err := s.Create(ctx, domain.CallVideo)
	require.NoError(t, err)
	assert.Equal(t, StatePendingOutgoing, s.State())
	require.NotNil(t, s.ActiveCall())
	assert.False(t, s.CanInitiate())

	_, err = s.Create(ctx, domain.CallVideo)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	answered := *c
	answered.Answered, answered.Active = true, true
	require.NoError(t, s.HandleSignal(events.CallSignal{Signal: events.CallAnswered, Call: answered}))
	assert.Equal(t, StateActive, s.State())
	assert.Equal(t, []uuid.UUID{c.ID}, nav.rooms)

	ended := answered
	ended.Active, ended.Ended = false, true
	require.NoError(t, s.HandleSignal(events.CallSignal{Signal: events.CallEnded, Call: ended}))
	assert.Equal(t, StateEnded, s.State())
	assert.Nil(t, s.ActiveCall())
	assert.True(t, s.CanInitiate())
	assert.Equal(t, []uuid.UUID{conv}, nav.returned)

	// Duplicate end is absorbed.
	require.NoError(t, s.HandleSignal(events.CallSignal{Signal: events.CallEnded, Call: ended}))

	assert.Equal(t, []State{StatePendingOutgoing, StatePendingOutgoing, StateActive, StateEnded}, states)
}

func TestCreateFailureResetsToNone(t *testing.T) {
	s, api, _, _, _ := newTestSession()
	api.createErr = apperr.New(apperr.Conflict, "a call is already in progress")

	_, err := s.Create(context.Background(), domain.CallAudio)
	assert.True(t, apperr.IsKind(err, apperr.Conflict))
	assert.Equal(t, StateNone, s.State())
	assert.True(t, s.CanInitiate())
}

func TestCreateRejectsInvalidType(t *testing.T) {
	s, _, _, _, _ := newTestSession()
	_, err := s.Create(context.Background(), "SMOKE")
	assert.Error(t, err)
	assert.Equal(t, StateNone, s.State())
}

func TestIncomingAnswerDisconnect(t *testing.T) {
	s, api, nav, conv, _ := newTestSession()
	ctx := context.Background()
	c := incomingCall(conv)

	require.NoError(t, s.HandleSignal(events.CallSignal{Signal: events.CallIncoming, Call: c}))
	assert.Equal(t, StatePendingIncoming, s.State())
	assert.ErrorIs(t, s.Cancel(ctx), ErrInvalidTransition)

	require.NoError(t, s.Answer(ctx))
	assert.Equal(t, StateActive, s.State())
	assert.Equal(t, []uuid.UUID{c.ID}, nav.rooms)
	assert.Equal(t, []domain.CallPatch{{Answered: true}}, api.patches)

	require.NoError(t, s.Disconnect(ctx))
	assert.Equal(t, StateEnded, s.State())
	assert.Equal(t, []uuid.UUID{c.ID}, api.ended)
	assert.Equal(t, []uuid.UUID{conv}, nav.returned)

	// ENDED starts over on the next ring.
	next := incomingCall(conv)
	require.NoError(t, s.Incoming(next))
	assert.Equal(t, next.ID, s.ActiveCall().ID)
}

func TestDeclineAndRemoteCancel(t *testing.T) {
	s, api, _, conv, _ := newTestSession()
	ctx := context.Background()

	require.NoError(t, s.Incoming(incomingCall(conv)))
	require.NoError(t, s.Decline(ctx))
	assert.Equal(t, StateNone, s.State())
	assert.Equal(t, []domain.CallPatch{{Declined: true}}, api.patches)

	c := incomingCall(conv)
	require.NoError(t, s.Incoming(c))
	c.Cancelled = true
	require.NoError(t, s.HandleSignal(events.CallSignal{Signal: events.CallCancelled, Call: c}))
	assert.Equal(t, StateNone, s.State())
	assert.Nil(t, s.ActiveCall())

	// The echo of our own cancel is harmless.
	require.NoError(t, s.HandleSignal(events.CallSignal{Signal: events.CallCancelled, Call: c}))
}

func TestPatchFailureKeepsState(t *testing.T) {
	s, api, _, conv, _ := newTestSession()
	require.NoError(t, s.Incoming(incomingCall(conv)))
	api.patchErr = apperr.New(apperr.Conflict, "call is no longer ringing")

	err := s.Answer(context.Background())
	assert.True(t, apperr.IsKind(err, apperr.Conflict))
	assert.Equal(t, StatePendingIncoming, s.State())
}

func TestSignalsForOtherCallsIgnored(t *testing.T) {
	s, _, _, conv, _ := newTestSession()
	c := incomingCall(conv)
	require.NoError(t, s.Incoming(c))

	other := incomingCall(uuid.New())
	require.NoError(t, s.HandleSignal(events.CallSignal{Signal: events.CallCancelled, Call: other}))
	stale := incomingCall(conv)
	require.NoError(t, s.HandleSignal(events.CallSignal{Signal: events.CallCancelled, Call: stale}))
	assert.Equal(t, StatePendingIncoming, s.State())

	// A second ring while one is pending is refused.
	assert.ErrorIs(t, s.Incoming(incomingCall(conv)), ErrInvalidTransition)
}

func TestRemoteEndWhilePendingRejected(t *testing.T) {
	s, _, _, conv, _ := newTestSession()
	c := incomingCall(conv)
	require.NoError(t, s.Incoming(c))

	err := s.HandleSignal(events.CallSignal{Signal: events.CallEnded, Call: c})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StatePendingIncoming, s.State())
}

type fakeSubscriber struct {
	handlers map[string]func(events.Payload)
}

func (f *fakeSubscriber) Subscribe(name string, h func(events.Payload)) func() {
	f.handlers[name] = h
	return func() { delete(f.handlers, name) }
}

func TestWatchRoutesSignals(t *testing.T) {
	s, _, _, conv, _ := newTestSession()
	profile := uuid.New()
	sub := &fakeSubscriber{handlers: map[string]func(events.Payload){}}

	unsub := s.Watch(sub, profile)
	h := sub.handlers[events.ProfileCalls(profile)]
	require.NotNil(t, h)

	h(events.CallSignal{Signal: events.CallIncoming, Call: incomingCall(conv)})
	assert.Equal(t, StatePendingIncoming, s.State())

	unsub()
	assert.Empty(t, sub.handlers)
}

func TestLateEchoDuringCreateIsDropped(t *testing.T) {
	s, api, nav, conv, self := newTestSession()
	ctx := context.Background()

	// We declined a ring from the peer and call back at once; the echo of
	// that decline reaches us while the new call is being created.
	previous := incomingCall(conv)
	require.NoError(t, s.Incoming(previous))
	require.NoError(t, s.Decline(ctx))

	declined := previous
	declined.Declined = true
	api.onCreate = func(*domain.Call) {
		require.NoError(t, s.HandleSignal(events.CallSignal{Signal: events.CallDeclined, Call: declined}))
		assert.Equal(t, StatePendingOutgoing, s.State())
	}

	c, err := s.Create(ctx, domain.CallVideo)
	require.NoError(t, err)
	assert.Equal(t, StatePendingOutgoing, s.State())
	require.NotNil(t, s.ActiveCall())
	assert.Equal(t, c.ID, s.ActiveCall().ID)
	assert.Equal(t, self, s.ActiveCall().CallerID)
	assert.False(t, s.CanInitiate())

	answered := *c
	answered.Answered, answered.Active = true, true
	require.NoError(t, s.HandleSignal(events.CallSignal{Signal: events.CallAnswered, Call: answered}))
	assert.Equal(t, StateActive, s.State())
	assert.Equal(t, []uuid.UUID{c.ID}, nav.rooms)
}

func TestAnswerBeforeCreateResponseIsReplayed(t *testing.T) {
	s, api, nav, _, _ := newTestSession()

	api.onCreate = func(c *domain.Call) {
		answered := *c
		answered.Answered, answered.Active = true, true
		require.NoError(t, s.HandleSignal(events.CallSignal{Signal: events.CallAnswered, Call: answered}))
	}

	c, err := s.Create(context.Background(), domain.CallAudio)
	require.NoError(t, err)
	assert.Equal(t, StateActive, s.State())
	assert.Equal(t, []uuid.UUID{c.ID}, nav.rooms)
}

func TestCreateFailureDropsEarlySignals(t *testing.T) {
	s, api, nav, conv, _ := newTestSession()
	api.createErr = apperr.New(apperr.Conflict, "a call is already in progress")

	_, err := s.Create(context.Background(), domain.CallAudio)
	require.Error(t, err)

	stray := incomingCall(conv)
	require.NoError(t, s.HandleSignal(events.CallSignal{Signal: events.CallAnswered, Call: stray}))
	assert.Equal(t, StateNone, s.State())
	assert.Empty(t, nav.rooms)
}
