package events

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Kind is the family an event name belongs to; it fixes the payload type.
type Kind string

const (
	KindMessageAdded   Kind = "message.added"
	KindMessageUpdated Kind = "message.updated"
	KindTyping         Kind = "typing"
	KindChannelCreated Kind = "channel.created"
	KindChannelDeleted Kind = "channel.deleted"
	KindNotification   Kind = "notification"
	KindCall           Kind = "call"
)

func ChatMessages(chatID uuid.UUID) string {
	return fmt.Sprintf("chat:%s:messages", chatID)
}

func ChatMessagesUpdate(chatID uuid.UUID) string {
	return fmt.Sprintf("chat:%s:messages:update", chatID)
}

func ChatTyping(chatID uuid.UUID) string {
	return fmt.Sprintf("chat:%s:typing", chatID)
}

func ServerChannelCreated(serverID uuid.UUID) string {
	return fmt.Sprintf("server:%s:channel:created", serverID)
}

func ServerChannelDeleted(serverID uuid.UUID) string {
	return fmt.Sprintf("server:%s:channel:deleted", serverID)
}

func Notifications(serverID, profileID uuid.UUID) string {
	return fmt.Sprintf("server:%s:notifications:%s", serverID, profileID)
}

func ProfileCalls(profileID uuid.UUID) string {
	return fmt.Sprintf("profile:%s:calls", profileID)
}

// Name is a parsed event name.
type Name struct {
	Raw   string
	Kind  Kind
	Scope uuid.UUID // chat, server or profile id
	// Profile is set for per-profile notification names.
	Profile uuid.UUID
}

// ParseName recognizes the hierarchical names this system emits.
func ParseName(raw string) (Name, error) {
	parts := strings.Split(raw, ":")
	n := Name{Raw: raw}
	if len(parts) < 3 {
		return n, fmt.Errorf("unknown event name %q", raw)
	}
	scope, err := uuid.Parse(parts[1])
	if err != nil {
		return n, fmt.Errorf("event name %q: invalid scope id", raw)
	}
	n.Scope = scope

	switch parts[0] {
	case "chat":
		switch {
		case len(parts) == 3 && parts[2] == "messages":
			n.Kind = KindMessageAdded
		case len(parts) == 4 && parts[2] == "messages" && parts[3] == "update":
			n.Kind = KindMessageUpdated
		case len(parts) == 3 && parts[2] == "typing":
			n.Kind = KindTyping
		}
	case "server":
		switch {
		case len(parts) == 4 && parts[2] == "channel" && parts[3] == "created":
			n.Kind = KindChannelCreated
		case len(parts) == 4 && parts[2] == "channel" && parts[3] == "deleted":
			n.Kind = KindChannelDeleted
		case len(parts) == 4 && parts[2] == "notifications":
			profile, err := uuid.Parse(parts[3])
			if err != nil {
				return n, fmt.Errorf("event name %q: invalid profile id", raw)
			}
			n.Profile = profile
			n.Kind = KindNotification
		}
	case "profile":
		if len(parts) == 3 && parts[2] == "calls" {
			n.Kind = KindCall
		}
	}

	if n.Kind == "" {
		return n, fmt.Errorf("unknown event name %q", raw)
	}
	return n, nil
}
