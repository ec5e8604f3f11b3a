package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/vedran77/chord/internal/domain"
	"github.com/vedran77/chord/internal/repository"
)

type ChannelService struct {
	access
	notifier Notifier
}

func NewChannelService(channelRepo repository.ChannelRepository, memberRepo repository.MemberRepository) *ChannelService {
	return &ChannelService{
		access:   access{members: memberRepo, channels: channelRepo},
		notifier: nopNotifier{},
	}
}

func (s *ChannelService) SetNotifier(n Notifier) {
	s.notifier = n
}

type CreateChannelInput struct {
	Name string             `json:"name"`
	Type domain.ChannelType `json:"type"`
}

// Create adds a channel to a server. Moderators and admins only.
func (s *ChannelService) Create(ctx context.Context, profileID, serverID uuid.UUID, input CreateChannelInput) (*domain.Channel, error) {
	member, err := s.member(ctx, serverID, profileID)
	if err != nil {
		return nil, err
	}
	if !member.Role.AtLeast(domain.RoleModerator) {
		return nil, ErrInsufficientRole
	}

	name := strings.TrimSpace(input.Name)
	if name == domain.GeneralChannel {
		return nil, ErrGeneralChannel
	}
	chType := input.Type
	if chType == "" {
		chType = domain.ChannelText
	}

	ch := &domain.Channel{
		ID:        uuid.New(),
		ServerID:  serverID,
		Name:      name,
		Type:      chType,
		ProfileID: profileID,
		CreatedAt: now(),
	}
	if err := s.channels.Create(ctx, ch); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrChannelNameTaken
		}
		return nil, fmt.Errorf("creating channel: %w", err)
	}

	s.notifier.ChannelCreated(ch)
	return ch, nil
}

func (s *ChannelService) List(ctx context.Context, profileID, serverID uuid.UUID) ([]domain.Channel, error) {
	if _, err := s.member(ctx, serverID, profileID); err != nil {
		return nil, err
	}
	channels, err := s.channels.ListByServer(ctx, serverID)
	if err != nil {
		return nil, err
	}
	if channels == nil {
		channels = []domain.Channel{}
	}
	return channels, nil
}

// Delete removes a channel and its messages. The general channel stays.
func (s *ChannelService) Delete(ctx context.Context, profileID, channelID uuid.UUID) error {
	ch, member, err := s.channel(ctx, profileID, channelID)
	if err != nil {
		return err
	}
	if !member.Role.AtLeast(domain.RoleModerator) {
		return ErrInsufficientRole
	}
	if ch.Name == domain.GeneralChannel {
		return ErrGeneralChannel
	}

	if err := s.channels.Delete(ctx, ch.ID); err != nil {
		return fmt.Errorf("deleting channel: %w", err)
	}

	s.notifier.ChannelDeleted(ch.ServerID, ch.ID)
	return nil
}
