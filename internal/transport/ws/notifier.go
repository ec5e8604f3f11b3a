package ws

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vedran77/chord/internal/domain"
	"github.com/vedran77/chord/internal/events"
)

const notifyTimeout = 5 * time.Second

// HubNotifier implements service.Notifier by publishing typed payloads
// under their hierarchical event names.
type HubNotifier struct {
	pub Publisher
	log zerolog.Logger
}

func NewHubNotifier(pub Publisher, logger zerolog.Logger) *HubNotifier {
	return &HubNotifier{pub: pub, log: logger.With().Str("component", "notifier").Logger()}
}

func (n *HubNotifier) publish(name string, payload any) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := n.pub.Publish(ctx, name, payload); err != nil {
		n.log.Error().Err(err).Str("event", name).Msg("publish failed")
	}
}

func (n *HubNotifier) MessageAdded(msg *domain.Message) {
	n.publish(events.ChatMessages(msg.Chat().ID), events.MessageAdded{Message: *msg})
}

func (n *HubNotifier) MessageUpdated(msg *domain.Message) {
	n.publish(events.ChatMessagesUpdate(msg.Chat().ID), events.MessageUpdated{Message: *msg})
}

func (n *HubNotifier) ChannelCreated(ch *domain.Channel) {
	n.publish(events.ServerChannelCreated(ch.ServerID), events.ChannelCreated{Channel: *ch})
}

func (n *HubNotifier) ChannelDeleted(serverID, channelID uuid.UUID) {
	n.publish(events.ServerChannelDeleted(serverID), events.ChannelDeleted{ServerID: serverID, ChannelID: channelID})
}

func (n *HubNotifier) Notify(serverID, profileID uuid.UUID, note events.Notification) {
	n.publish(events.Notifications(serverID, profileID), note)
}

func (n *HubNotifier) CallSignal(profileIDs []uuid.UUID, sig events.CallSignal) {
	for _, p := range profileIDs {
		n.publish(events.ProfileCalls(p), sig)
	}
}
