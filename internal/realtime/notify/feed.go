package notify

import (
	"github.com/google/uuid"
	"github.com/vedran77/chord/internal/events"
)

// Subscriber is the part of the event bus the feed needs.
type Subscriber interface {
	Subscribe(name string, h func(events.Payload)) (unsubscribe func())
}

// Feed pushes every notification addressed to profileID on serverID into q.
func Feed(sub Subscriber, q *Queue, serverID, profileID uuid.UUID) (unsubscribe func()) {
	return sub.Subscribe(events.Notifications(serverID, profileID), func(p events.Payload) {
		n, ok := p.(events.Notification)
		if !ok {
			return
		}
		q.Push(Notification{
			Type:           n.Type,
			Title:          titleFor(n.Type),
			Body:           n.Preview,
			ServerID:       n.ServerID,
			ConversationID: n.ConversationID,
		})
	})
}

func titleFor(kind string) string {
	switch kind {
	case "direct_message":
		return "New direct message"
	}
	return "Notification"
}
