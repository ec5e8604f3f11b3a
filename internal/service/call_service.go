package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/chord/internal/domain"
	"github.com/vedran77/chord/internal/events"
	"github.com/vedran77/chord/internal/metrics"
	"github.com/vedran77/chord/internal/repository"
)

// CallService owns the server side of a call's lifecycle. The store
// guarantees at most one open call per conversation, so concurrent creates
// resolve to one winner.
type CallService struct {
	access
	callRepo repository.CallRepository
	notifier Notifier
}

func NewCallService(
	callRepo repository.CallRepository,
	conversationRepo repository.ConversationRepository,
	memberRepo repository.MemberRepository,
) *CallService {
	return &CallService{
		access:   access{members: memberRepo, conversations: conversationRepo},
		callRepo: callRepo,
		notifier: nopNotifier{},
	}
}

func (s *CallService) SetNotifier(n Notifier) {
	s.notifier = n
}

type CreateCallInput struct {
	ConversationID uuid.UUID       `json:"conversationId"`
	Type           domain.CallType `json:"type"`
}

func (s *CallService) Create(ctx context.Context, profileID uuid.UUID, input CreateCallInput) (*domain.Call, error) {
	if !input.Type.Valid() {
		return nil, ErrInvalidCallType
	}
	conv, me, err := s.conversation(ctx, profileID, input.ConversationID)
	if err != nil {
		return nil, err
	}

	ts := now()
	call := &domain.Call{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		CallerID:       me.ID,
		Type:           input.Type,
		CreatedAt:      ts,
		UpdatedAt:      ts,
	}
	if err := s.callRepo.Create(ctx, call); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			metrics.CallConflicts.Inc()
			return nil, ErrCallInProgress
		}
		return nil, fmt.Errorf("creating call: %w", err)
	}
	metrics.CallsStarted.WithLabelValues(string(call.Type)).Inc()

	s.signal(ctx, []uuid.UUID{conv.Other(me.ID)}, events.CallIncoming, call)
	return call, nil
}

func (s *CallService) Get(ctx context.Context, profileID, callID uuid.UUID) (*domain.Call, error) {
	call, _, _, err := s.load(ctx, profileID, callID)
	return call, err
}

// Patch answers, declines or cancels a ringing call.
func (s *CallService) Patch(ctx context.Context, profileID, callID uuid.UUID, patch domain.CallPatch) (*domain.Call, error) {
	if !patch.Valid() {
		return nil, ErrInvalidCallPatch
	}
	call, conv, me, err := s.load(ctx, profileID, callID)
	if err != nil {
		return nil, err
	}
	if !call.Pending() {
		return nil, ErrCallNotPending
	}

	isCaller := call.CallerID == me.ID
	var signal events.CallSignalKind
	switch {
	case patch.Answered:
		if isCaller {
			return nil, ErrNotCallee
		}
		call.Answered, call.Active = true, true
		signal = events.CallAnswered
	case patch.Declined:
		if isCaller {
			return nil, ErrNotCallee
		}
		call.Declined = true
		signal = events.CallDeclined
	case patch.Cancelled:
		if !isCaller {
			return nil, ErrNotCaller
		}
		call.Cancelled = true
		signal = events.CallCancelled
	}

	if err := s.update(ctx, call); err != nil {
		return nil, err
	}
	s.signal(ctx, []uuid.UUID{conv.MemberOneID, conv.MemberTwoID}, signal, call)
	return call, nil
}

// End hangs up an active call. Ending an already ended call is a no-op so
// both sides may hang up at once.
func (s *CallService) End(ctx context.Context, profileID, callID uuid.UUID) (*domain.Call, error) {
	call, conv, _, err := s.load(ctx, profileID, callID)
	if err != nil {
		return nil, err
	}
	if call.Ended {
		return call, nil
	}
	if !call.Active {
		return nil, ErrCallNotActive
	}

	call.Active, call.Ended = false, true
	if err := s.update(ctx, call); err != nil {
		return nil, err
	}
	s.signal(ctx, []uuid.UUID{conv.MemberOneID, conv.MemberTwoID}, events.CallEnded, call)
	return call, nil
}

func (s *CallService) load(ctx context.Context, profileID, callID uuid.UUID) (*domain.Call, *domain.Conversation, *domain.Member, error) {
	call, err := s.callRepo.GetByID(ctx, callID)
	if err != nil {
		return nil, nil, nil, err
	}
	if call == nil {
		return nil, nil, nil, ErrCallNotFound
	}
	conv, me, err := s.conversation(ctx, profileID, call.ConversationID)
	if err != nil {
		return nil, nil, nil, err
	}
	return call, conv, me, nil
}

func (s *CallService) update(ctx context.Context, call *domain.Call) error {
	prev := call.UpdatedAt
	call.UpdatedAt = now()
	if !call.UpdatedAt.After(prev) {
		call.UpdatedAt = prev.Add(time.Microsecond)
	}
	if err := s.callRepo.Update(ctx, call, prev); err != nil {
		if errors.Is(err, repository.ErrStale) {
			return ErrCallChanged
		}
		return fmt.Errorf("updating call: %w", err)
	}
	return nil
}

// signal fans a call event out to the profiles behind memberIDs.
func (s *CallService) signal(ctx context.Context, memberIDs []uuid.UUID, kind events.CallSignalKind, call *domain.Call) {
	profiles := make([]uuid.UUID, 0, len(memberIDs))
	for _, id := range memberIDs {
		p, err := s.profileOf(ctx, id)
		if err != nil {
			continue
		}
		profiles = append(profiles, p)
	}
	s.notifier.CallSignal(profiles, events.CallSignal{Signal: kind, Call: *call})
}
