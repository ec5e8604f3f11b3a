package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/chord/internal/crypto"
	"github.com/vedran77/chord/internal/domain"
	"github.com/vedran77/chord/internal/events"
	"github.com/vedran77/chord/internal/repository/memory"
)

type recordingNotifier struct {
	mu            sync.Mutex
	added         []domain.Message
	updated       []domain.Message
	channels      []domain.Channel
	deleted       []uuid.UUID
	notifications map[uuid.UUID][]events.Notification
	signals       map[uuid.UUID][]events.CallSignal
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{
		notifications: make(map[uuid.UUID][]events.Notification),
		signals:       make(map[uuid.UUID][]events.CallSignal),
	}
}

func (n *recordingNotifier) MessageAdded(msg *domain.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.added = append(n.added, *msg)
}

func (n *recordingNotifier) MessageUpdated(msg *domain.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updated = append(n.updated, *msg)
}

func (n *recordingNotifier) ChannelCreated(ch *domain.Channel) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.channels = append(n.channels, *ch)
}

func (n *recordingNotifier) ChannelDeleted(_, channelID uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deleted = append(n.deleted, channelID)
}

func (n *recordingNotifier) Notify(_, profileID uuid.UUID, note events.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications[profileID] = append(n.notifications[profileID], note)
}

func (n *recordingNotifier) CallSignal(profileIDs []uuid.UUID, sig events.CallSignal) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, p := range profileIDs {
		n.signals[p] = append(n.signals[p], sig)
	}
}

func (n *recordingNotifier) signalsFor(profileID uuid.UUID) []events.CallSignalKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	var kinds []events.CallSignalKind
	for _, s := range n.signals[profileID] {
		kinds = append(kinds, s.Signal)
	}
	return kinds
}

type fixture struct {
	servers       *memory.ServerRepo
	members       *memory.MemberRepo
	channels      *memory.ChannelRepo
	conversations *memory.ConversationRepo
	messageRepo   *memory.MessageRepo
	callRepo      *memory.CallRepo
	notifier      *recordingNotifier

	server        *ServerService
	member        *MemberService
	channel       *ChannelService
	conversation  *ConversationService
	message       *MessageService
	call          *CallService
	access        *AccessService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sealer, err := crypto.NewSealer("test-message-key")
	require.NoError(t, err)

	f := &fixture{
		servers:       memory.NewServerRepo(),
		members:       memory.NewMemberRepo(),
		channels:      memory.NewChannelRepo(),
		conversations: memory.NewConversationRepo(),
		messageRepo:   memory.NewMessageRepo(),
		callRepo:      memory.NewCallRepo(),
		notifier:      newRecordingNotifier(),
	}
	f.server = NewServerService(f.servers, f.members, f.channels)
	f.member = NewMemberService(f.members)
	f.channel = NewChannelService(f.channels, f.members)
	f.conversation = NewConversationService(f.conversations, f.members)
	f.message = NewMessageService(f.messageRepo, f.channels, f.conversations, f.members, sealer)
	f.call = NewCallService(f.callRepo, f.conversations, f.members)
	f.access = NewAccessService(f.members, f.channels, f.conversations)

	f.channel.SetNotifier(f.notifier)
	f.message.SetNotifier(f.notifier)
	f.call.SetNotifier(f.notifier)
	return f
}

// community creates a server owned by a fresh profile and joins n more
// profiles as guests.
type community struct {
	view     *ServerView
	owner    uuid.UUID
	profiles []uuid.UUID
	members  []*domain.Member
}

func (f *fixture) community(t *testing.T, guests int) community {
	t.Helper()
	ctx := context.Background()
	owner := uuid.New()
	view, err := f.server.Create(ctx, owner, CreateServerInput{Name: "hangout"})
	require.NoError(t, err)

	c := community{view: view, owner: owner}
	for i := 0; i < guests; i++ {
		p := uuid.New()
		m, err := f.server.Join(ctx, p, view.Server.ID)
		require.NoError(t, err)
		c.profiles = append(c.profiles, p)
		c.members = append(c.members, m)
	}
	return c
}

func (c community) general() domain.ChatRef {
	return domain.ChatRef{Kind: domain.ChatChannel, ID: c.view.Channels[0].ID}
}

// pair opens a conversation between the first two guests.
func (f *fixture) pair(t *testing.T, c community) *domain.Conversation {
	t.Helper()
	conv, err := f.conversation.GetOrCreate(context.Background(), c.profiles[0], ConversationInput{
		ServerID: c.view.Server.ID,
		MemberID: c.members[1].ID,
	})
	require.NoError(t, err)
	return conv
}
