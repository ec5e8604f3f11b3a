package domain

import (
	"fmt"

	"github.com/google/uuid"
)

type ChatKind string

const (
	ChatChannel      ChatKind = "channel"
	ChatConversation ChatKind = "conversation"
)

// ChatRef identifies one chat surface: a server channel or a direct conversation.
type ChatRef struct {
	Kind ChatKind  `json:"kind"`
	ID   uuid.UUID `json:"id"`
}

func (c ChatRef) IsZero() bool {
	return c.Kind == "" || c.ID == uuid.Nil
}

func (c ChatRef) String() string {
	return fmt.Sprintf("%s/%s", c.Kind, c.ID)
}
