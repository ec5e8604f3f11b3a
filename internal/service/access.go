package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/vedran77/chord/internal/domain"
	"github.com/vedran77/chord/internal/events"
	"github.com/vedran77/chord/internal/repository"
)

// access resolves who a profile is inside a server or conversation.
type access struct {
	members       repository.MemberRepository
	channels      repository.ChannelRepository
	conversations repository.ConversationRepository
}

func (a access) member(ctx context.Context, serverID, profileID uuid.UUID) (*domain.Member, error) {
	m, err := a.members.GetByProfile(ctx, serverID, profileID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrNotMember
	}
	return m, nil
}

func (a access) channel(ctx context.Context, profileID, channelID uuid.UUID) (*domain.Channel, *domain.Member, error) {
	ch, err := a.channels.GetByID(ctx, channelID)
	if err != nil {
		return nil, nil, err
	}
	if ch == nil {
		return nil, nil, ErrChannelNotFound
	}
	m, err := a.member(ctx, ch.ServerID, profileID)
	if err != nil {
		return nil, nil, err
	}
	return ch, m, nil
}

func (a access) conversation(ctx context.Context, profileID, conversationID uuid.UUID) (*domain.Conversation, *domain.Member, error) {
	conv, err := a.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}
	if conv == nil {
		return nil, nil, ErrConversationNotFound
	}
	m, err := a.member(ctx, conv.ServerID, profileID)
	if err != nil {
		return nil, nil, err
	}
	if !conv.HasMember(m.ID) {
		return nil, nil, ErrNotParticipant
	}
	return conv, m, nil
}

// chat checks that profileID may read and write chat. The conversation is
// nil for channels.
func (a access) chat(ctx context.Context, profileID uuid.UUID, chat domain.ChatRef) (*domain.Member, *domain.Conversation, error) {
	if chat.Kind == domain.ChatConversation {
		conv, m, err := a.conversation(ctx, profileID, chat.ID)
		return m, conv, err
	}
	_, m, err := a.channel(ctx, profileID, chat.ID)
	return m, nil, err
}

// profileOf maps a member id to its profile id.
func (a access) profileOf(ctx context.Context, memberID uuid.UUID) (uuid.UUID, error) {
	m, err := a.members.GetByID(ctx, memberID)
	if err != nil {
		return uuid.Nil, err
	}
	if m == nil {
		return uuid.Nil, ErrMemberNotFound
	}
	return m.ProfileID, nil
}

// AccessService answers authorization questions for the signaling hub.
type AccessService struct {
	access
}

func NewAccessService(
	members repository.MemberRepository,
	channels repository.ChannelRepository,
	conversations repository.ConversationRepository,
) *AccessService {
	return &AccessService{access{members: members, channels: channels, conversations: conversations}}
}

// ChatMember resolves the caller's member in the channel or conversation
// with the given id.
func (s *AccessService) ChatMember(ctx context.Context, profileID, chatID uuid.UUID) (*domain.Member, error) {
	ch, err := s.channels.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if ch != nil {
		return s.member(ctx, ch.ServerID, profileID)
	}
	_, m, err := s.conversation(ctx, profileID, chatID)
	return m, err
}

// CanSubscribe reports whether profileID may listen to the named event.
func (s *AccessService) CanSubscribe(ctx context.Context, profileID uuid.UUID, name events.Name) error {
	switch name.Kind {
	case events.KindMessageAdded, events.KindMessageUpdated, events.KindTyping:
		_, err := s.ChatMember(ctx, profileID, name.Scope)
		return err
	case events.KindChannelCreated, events.KindChannelDeleted:
		_, err := s.member(ctx, name.Scope, profileID)
		return err
	case events.KindNotification:
		if name.Profile != profileID {
			return ErrNotMember
		}
		_, err := s.member(ctx, name.Scope, profileID)
		return err
	case events.KindCall:
		if name.Scope != profileID {
			return ErrNotParticipant
		}
		return nil
	}
	return ErrNotMember
}
