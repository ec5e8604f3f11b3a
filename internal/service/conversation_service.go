package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vedran77/chord/internal/domain"
	"github.com/vedran77/chord/internal/repository"
)

type ConversationService struct {
	access
}

func NewConversationService(
	conversationRepo repository.ConversationRepository,
	memberRepo repository.MemberRepository,
) *ConversationService {
	return &ConversationService{access{members: memberRepo, conversations: conversationRepo}}
}

type ConversationInput struct {
	ServerID uuid.UUID `json:"serverId"`
	MemberID uuid.UUID `json:"memberId"`
}

// GetOrCreate finds or creates the conversation between the caller and
// another member of the same server.
func (s *ConversationService) GetOrCreate(ctx context.Context, profileID uuid.UUID, input ConversationInput) (*domain.Conversation, error) {
	me, err := s.member(ctx, input.ServerID, profileID)
	if err != nil {
		return nil, err
	}
	if me.ID == input.MemberID {
		return nil, ErrSelfConversation
	}

	other, err := s.members.GetByID(ctx, input.MemberID)
	if err != nil {
		return nil, err
	}
	if other == nil || other.ServerID != input.ServerID {
		return nil, ErrMemberNotFound
	}

	one, two := domain.CanonicalPair(me.ID, other.ID)
	conv, err := s.conversations.GetByMembers(ctx, one, two)
	if err != nil {
		return nil, err
	}
	if conv != nil {
		return conv, nil
	}

	conv = &domain.Conversation{
		ID:          uuid.New(),
		ServerID:    input.ServerID,
		MemberOneID: one,
		MemberTwoID: two,
		CreatedAt:   now(),
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		// Lost a race with the other member opening the same conversation.
		if errors.Is(err, repository.ErrDuplicate) {
			return s.conversations.GetByMembers(ctx, one, two)
		}
		return nil, fmt.Errorf("creating conversation: %w", err)
	}
	return conv, nil
}

func (s *ConversationService) Get(ctx context.Context, profileID, conversationID uuid.UUID) (*domain.Conversation, error) {
	conv, _, err := s.conversation(ctx, profileID, conversationID)
	return conv, err
}
