package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/chord/internal/domain"
)

// Lookups return (nil, nil) when nothing matches.

var (
	// ErrDuplicate reports a unique constraint violation.
	ErrDuplicate = errors.New("duplicate")
	// ErrStale reports an update that lost a race with another writer.
	ErrStale = errors.New("stale update")
)

type ServerRepository interface {
	Create(ctx context.Context, server *domain.Server) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Server, error)
}

type MemberRepository interface {
	Create(ctx context.Context, member *domain.Member) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Member, error)
	GetByProfile(ctx context.Context, serverID, profileID uuid.UUID) (*domain.Member, error)
	ListByServer(ctx context.Context, serverID uuid.UUID) ([]domain.Member, error)
	UpdateRole(ctx context.Context, member *domain.Member) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type ChannelRepository interface {
	Create(ctx context.Context, channel *domain.Channel) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Channel, error)
	ListByServer(ctx context.Context, serverID uuid.UUID) ([]domain.Channel, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ConversationRepository interface {
	Create(ctx context.Context, conv *domain.Conversation) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error)
	// GetByMembers expects the pair in canonical order.
	GetByMembers(ctx context.Context, memberOneID, memberTwoID uuid.UUID) (*domain.Conversation, error)
}

// MessageRepository stores messages with their content already sealed; the
// plaintext fields are ignored on write and empty on read.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id string) (*domain.Message, error)
	// ListByChat returns up to limit messages newest first, strictly older
	// than the message with id cursor when cursor is set.
	ListByChat(ctx context.Context, chat domain.ChatRef, cursor string, limit int) ([]domain.Message, error)
	Update(ctx context.Context, msg *domain.Message) error
}

type CallRepository interface {
	// Create fails with ErrDuplicate while the conversation has an open call.
	Create(ctx context.Context, call *domain.Call) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Call, error)
	GetOpenByConversation(ctx context.Context, conversationID uuid.UUID) (*domain.Call, error)
	// Update writes call if its stored UpdatedAt still equals prevUpdatedAt,
	// else returns ErrStale.
	Update(ctx context.Context, call *domain.Call, prevUpdatedAt time.Time) error
}
