package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/chord/internal/domain"
	"github.com/vedran77/chord/internal/events"
)

// Notifier broadcasts real-time events to connected clients.
type Notifier interface {
	MessageAdded(msg *domain.Message)
	MessageUpdated(msg *domain.Message)
	ChannelCreated(ch *domain.Channel)
	ChannelDeleted(serverID, channelID uuid.UUID)
	Notify(serverID, profileID uuid.UUID, n events.Notification)
	CallSignal(profileIDs []uuid.UUID, sig events.CallSignal)
}

// nopNotifier keeps services usable before SetNotifier is called.
type nopNotifier struct{}

func (nopNotifier) MessageAdded(*domain.Message) {}
func (nopNotifier) MessageUpdated(*domain.Message) {}
func (nopNotifier) ChannelCreated(*domain.Channel) {}
func (nopNotifier) ChannelDeleted(uuid.UUID, uuid.UUID) {}
func (nopNotifier) Notify(uuid.UUID, uuid.UUID, events.Notification) {}
func (nopNotifier) CallSignal([]uuid.UUID, events.CallSignal) {}

// now is the service clock. PostgreSQL keeps microseconds, so timestamps
// are truncated to round-trip exactly.
var now = func() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
