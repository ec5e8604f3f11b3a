package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/vedran77/chord/internal/crypto"
	"github.com/vedran77/chord/internal/domain"
	"github.com/vedran77/chord/internal/events"
	"github.com/vedran77/chord/internal/metrics"
	"github.com/vedran77/chord/internal/repository"
)

// NotificationDirectMessage is the notification type for a new direct message.
const NotificationDirectMessage = "direct_message"

const previewLen = 80

// MessageService serves both channel messages and direct messages; the
// chat reference decides which.
type MessageService struct {
	access
	messageRepo repository.MessageRepository
	sealer      *crypto.Sealer
	notifier    Notifier
}

func NewMessageService(
	messageRepo repository.MessageRepository,
	channelRepo repository.ChannelRepository,
	conversationRepo repository.ConversationRepository,
	memberRepo repository.MemberRepository,
	sealer *crypto.Sealer,
) *MessageService {
	return &MessageService{
		access:      access{members: memberRepo, channels: channelRepo, conversations: conversationRepo},
		messageRepo: messageRepo,
		sealer:      sealer,
		notifier:    nopNotifier{},
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *MessageService) SetNotifier(n Notifier) {
	s.notifier = n
}

type SendMessageInput struct {
	Content  string  `json:"content"`
	FileURL  *string `json:"fileUrl,omitempty"`
	ClientID string  `json:"clientId,omitempty"`
}

type EditMessageInput struct {
	Content string `json:"content"`
}

func (s *MessageService) Send(ctx context.Context, profileID uuid.UUID, chat domain.ChatRef, input SendMessageInput) (*domain.Message, error) {
	if strings.TrimSpace(input.Content) == "" && input.FileURL == nil {
		return nil, ErrEmptyMessage
	}
	member, conv, err := s.chat(ctx, profileID, chat)
	if err != nil {
		return nil, err
	}

	ts := now()
	msg := &domain.Message{
		ID:        ulid.Make().String(),
		Content:   input.Content,
		FileURL:   input.FileURL,
		MemberID:  member.ID,
		CreatedAt: ts,
		UpdatedAt: ts,
		ClientID:  input.ClientID,
	}
	chatID := chat.ID
	if chat.Kind == domain.ChatConversation {
		msg.ConversationID = &chatID
	} else {
		msg.ChannelID = &chatID
	}

	if err := s.seal(msg); err != nil {
		return nil, err
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}
	metrics.MessagesSent.WithLabelValues(string(chat.Kind)).Inc()

	msg.Sent = true
	s.notifier.MessageAdded(msg)

	if conv != nil {
		s.notifyRecipient(ctx, conv, member, msg)
	}
	return msg, nil
}

func (s *MessageService) notifyRecipient(ctx context.Context, conv *domain.Conversation, from *domain.Member, msg *domain.Message) {
	profileID, err := s.profileOf(ctx, conv.Other(from.ID))
	if err != nil {
		// The peer left the server; the message itself is already stored.
		return
	}
	preview := msg.Content
	if r := []rune(preview); len(r) > previewLen {
		preview = string(r[:previewLen]) + "…"
	}
	s.notifier.Notify(conv.ServerID, profileID, events.Notification{
		Type:           NotificationDirectMessage,
		ServerID:       conv.ServerID,
		ConversationID: conv.ID,
		FromMemberID:   from.ID,
		Preview:        preview,
	})
}

// List returns one page of history, newest first.
func (s *MessageService) List(ctx context.Context, profileID uuid.UUID, chat domain.ChatRef, cursor string) (domain.MessagePage, error) {
	if _, _, err := s.chat(ctx, profileID, chat); err != nil {
		return domain.MessagePage{}, err
	}

	messages, err := s.messageRepo.ListByChat(ctx, chat, cursor, domain.PageSize)
	if err != nil {
		return domain.MessagePage{}, err
	}
	for i := range messages {
		if err := s.open(&messages[i]); err != nil {
			return domain.MessagePage{}, err
		}
	}
	return domain.NewMessagePage(messages), nil
}

func (s *MessageService) Edit(ctx context.Context, profileID uuid.UUID, messageID string, input EditMessageInput) (*domain.Message, error) {
	if strings.TrimSpace(input.Content) == "" {
		return nil, ErrEmptyMessage
	}
	msg, member, err := s.load(ctx, profileID, messageID)
	if err != nil {
		return nil, err
	}
	if msg.MemberID != member.ID {
		return nil, ErrNotMessageOwner
	}

	msg.Content = input.Content
	msg.UpdatedAt = now()
	if err := s.seal(msg); err != nil {
		return nil, err
	}
	if err := s.messageRepo.Update(ctx, msg); err != nil {
		return nil, fmt.Errorf("updating message: %w", err)
	}

	s.notifier.MessageUpdated(msg)
	return msg, nil
}

// Delete soft-deletes a message. Channel messages may also be removed by
// moderators and admins of the server.
func (s *MessageService) Delete(ctx context.Context, profileID uuid.UUID, messageID string) (*domain.Message, error) {
	msg, member, err := s.load(ctx, profileID, messageID)
	if err != nil {
		return nil, err
	}
	owner := msg.MemberID == member.ID
	moderator := msg.ChannelID != nil && member.Role.AtLeast(domain.RoleModerator)
	if !owner && !moderator {
		return nil, ErrNotMessageOwner
	}

	msg.MarkDeleted(now())
	if err := s.seal(msg); err != nil {
		return nil, err
	}
	if err := s.messageRepo.Update(ctx, msg); err != nil {
		return nil, fmt.Errorf("deleting message: %w", err)
	}

	s.notifier.MessageUpdated(msg)
	return msg, nil
}

// load fetches a live message the caller can see, decrypted.
func (s *MessageService) load(ctx context.Context, profileID uuid.UUID, messageID string) (*domain.Message, *domain.Member, error) {
	msg, err := s.messageRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, nil, err
	}
	if msg == nil || msg.Deleted {
		return nil, nil, ErrMessageNotFound
	}
	member, _, err := s.chat(ctx, profileID, msg.Chat())
	if err != nil {
		return nil, nil, err
	}
	if err := s.open(msg); err != nil {
		return nil, nil, err
	}
	return msg, member, nil
}

func (s *MessageService) seal(msg *domain.Message) error {
	content, err := s.sealer.SealString(msg.Content)
	if err != nil {
		return fmt.Errorf("sealing content: %w", err)
	}
	msg.ContentSealed = content
	msg.FileURLSealed = nil
	if msg.FileURL != nil {
		if msg.FileURLSealed, err = s.sealer.SealString(*msg.FileURL); err != nil {
			return fmt.Errorf("sealing file url: %w", err)
		}
	}
	return nil
}

func (s *MessageService) open(msg *domain.Message) error {
	content, err := s.sealer.OpenString(msg.ContentSealed)
	if err != nil {
		return fmt.Errorf("opening message %s: %w", msg.ID, err)
	}
	msg.Content = content
	msg.FileURL = nil
	if msg.FileURLSealed != nil {
		u, err := s.sealer.OpenString(msg.FileURLSealed)
		if err != nil {
			return fmt.Errorf("opening file url of %s: %w", msg.ID, err)
		}
		msg.FileURL = &u
	}
	msg.Sent = true
	return nil
}
