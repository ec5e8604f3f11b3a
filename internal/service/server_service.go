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

type ServerService struct {
	access
	serverRepo repository.ServerRepository
}

func NewServerService(
	serverRepo repository.ServerRepository,
	memberRepo repository.MemberRepository,
	channelRepo repository.ChannelRepository,
) *ServerService {
	return &ServerService{
		access:     access{members: memberRepo, channels: channelRepo},
		serverRepo: serverRepo,
	}
}

type CreateServerInput struct {
	Name string `json:"name"`
}

// ServerView is a server as seen by one of its members.
type ServerView struct {
	Server   *domain.Server   `json:"server"`
	Member   *domain.Member   `json:"member"`
	Channels []domain.Channel `json:"channels"`
}

// Create makes a server owned by profileID, who joins as ADMIN, with its
// general channel.
func (s *ServerService) Create(ctx context.Context, profileID uuid.UUID, input CreateServerInput) (*ServerView, error) {
	ts := now()
	server := &domain.Server{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(input.Name),
		ProfileID: profileID,
		CreatedAt: ts,
	}
	if err := s.serverRepo.Create(ctx, server); err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}

	member := &domain.Member{
		ID:        uuid.New(),
		ProfileID: profileID,
		ServerID:  server.ID,
		Role:      domain.RoleAdmin,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	if err := s.members.Create(ctx, member); err != nil {
		return nil, fmt.Errorf("adding owner as member: %w", err)
	}

	general := domain.Channel{
		ID:        uuid.New(),
		ServerID:  server.ID,
		Name:      domain.GeneralChannel,
		Type:      domain.ChannelText,
		ProfileID: profileID,
		CreatedAt: ts,
	}
	if err := s.channels.Create(ctx, &general); err != nil {
		return nil, fmt.Errorf("creating general channel: %w", err)
	}

	return &ServerView{Server: server, Member: member, Channels: []domain.Channel{general}}, nil
}

// Join adds profileID to a server as a GUEST.
func (s *ServerService) Join(ctx context.Context, profileID, serverID uuid.UUID) (*domain.Member, error) {
	server, err := s.serverRepo.GetByID(ctx, serverID)
	if err != nil {
		return nil, err
	}
	if server == nil {
		return nil, ErrServerNotFound
	}

	ts := now()
	member := &domain.Member{
		ID:        uuid.New(),
		ProfileID: profileID,
		ServerID:  serverID,
		Role:      domain.RoleGuest,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	if err := s.members.Create(ctx, member); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyMember
		}
		return nil, fmt.Errorf("joining server: %w", err)
	}
	return member, nil
}

func (s *ServerService) Get(ctx context.Context, profileID, serverID uuid.UUID) (*ServerView, error) {
	member, err := s.member(ctx, serverID, profileID)
	if err != nil {
		return nil, err
	}
	server, err := s.serverRepo.GetByID(ctx, serverID)
	if err != nil {
		return nil, err
	}
	if server == nil {
		return nil, ErrServerNotFound
	}
	channels, err := s.channels.ListByServer(ctx, serverID)
	if err != nil {
		return nil, err
	}
	return &ServerView{Server: server, Member: member, Channels: channels}, nil
}
