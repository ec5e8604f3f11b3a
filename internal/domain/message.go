package domain

import (
	"time"

	"github.com/google/uuid"
)

// DeletedPlaceholder replaces the content of a soft-deleted message.
const DeletedPlaceholder = "This message has been deleted"

// PageSize is the number of messages served per history page.
const PageSize = 10

type Message struct {
	ID             string     `json:"id"`
	Content        string     `json:"content"`
	FileURL        *string    `json:"fileUrl"`
	MemberID       uuid.UUID  `json:"memberId"`
	ChannelID      *uuid.UUID `json:"channelId,omitempty"`
	ConversationID *uuid.UUID `json:"conversationId,omitempty"`
	Deleted        bool       `json:"deleted"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	// ClientID is the sender's correlation id, echoed back in broadcasts.
	ClientID string `json:"clientId,omitempty"`
	// Sent is client-only: false while an optimistic copy awaits the server.
	Sent bool `json:"sent"`

	// Sealed columns, never serialized.
	ContentSealed []byte `json:"-"`
	FileURLSealed []byte `json:"-"`
}

// Chat returns the surface the message belongs to.
func (m *Message) Chat() ChatRef {
	if m.ConversationID != nil {
		return ChatRef{Kind: ChatConversation, ID: *m.ConversationID}
	}
	if m.ChannelID != nil {
		return ChatRef{Kind: ChatChannel, ID: *m.ChannelID}
	}
	return ChatRef{}
}

// MarkDeleted applies the soft-delete projection. The row itself is kept.
func (m *Message) MarkDeleted(now time.Time) {
	m.Content = DeletedPlaceholder
	m.FileURL = nil
	m.Deleted = true
	m.UpdatedAt = now
}

// Newer reports whether m sorts before other in newest-first order.
func (m *Message) Newer(other *Message) bool {
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.After(other.CreatedAt)
	}
	return m.ID > other.ID
}

// MessagePage is one batch of history, newest first.
type MessagePage struct {
	Items      []Message `json:"items"`
	NextCursor *string   `json:"nextCursor"`
}

// NewMessagePage derives the cursor from a fetched batch: a full batch
// points at its oldest message, a partial one ends the history.
func NewMessagePage(items []Message) MessagePage {
	if items == nil {
		items = []Message{}
	}
	page := MessagePage{Items: items}
	if len(items) == PageSize {
		cursor := items[len(items)-1].ID
		page.NextCursor = &cursor
	}
	return page
}
