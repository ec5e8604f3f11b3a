package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/chord/internal/domain"
)

func TestMessageSendSealsContent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.community(t, 1)

	msg, err := f.message.Send(ctx, c.profiles[0], c.general(), SendMessageInput{Content: "hello there", ClientID: "c-1"})
	require.NoError(t, err)
	assert.True(t, msg.Sent)
	assert.Equal(t, "c-1", msg.ClientID)
	assert.Equal(t, c.members[0].ID, msg.MemberID)

	raw, err := f.messageRepo.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Empty(t, raw.Content)
	assert.NotContains(t, string(raw.ContentSealed), "hello there")

	require.Len(t, f.notifier.added, 1)
	assert.Equal(t, "hello there", f.notifier.added[0].Content)
}

func TestMessageSendValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.community(t, 1)

	_, err := f.message.Send(ctx, c.profiles[0], c.general(), SendMessageInput{Content: "   "})
	assert.ErrorIs(t, err, ErrEmptyMessage)

	outsider := f.community(t, 0).owner
	_, err = f.message.Send(ctx, outsider, c.general(), SendMessageInput{Content: "hi"})
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestMessageListPages(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.community(t, 1)

	for i := 0; i < 23; i++ {
		_, err := f.message.Send(ctx, c.profiles[0], c.general(), SendMessageInput{Content: fmt.Sprintf("m%02d", i)})
		require.NoError(t, err)
	}

	var contents []string
	cursor := ""
	pages := 0
	for {
		page, err := f.message.List(ctx, c.owner, c.general(), cursor)
		require.NoError(t, err)
		pages++
		for _, m := range page.Items {
			contents = append(contents, m.Content)
		}
		if page.NextCursor == nil {
			break
		}
		cursor = *page.NextCursor
	}

	assert.Equal(t, 3, pages)
	require.Len(t, contents, 23)
	assert.Equal(t, "m22", contents[0])
	assert.Equal(t, "m00", contents[22])
}

func TestMessageEditAndDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.community(t, 2)

	msg, err := f.message.Send(ctx, c.profiles[0], c.general(), SendMessageInput{Content: "first"})
	require.NoError(t, err)

	_, err = f.message.Edit(ctx, c.profiles[1], msg.ID, EditMessageInput{Content: "hijack"})
	assert.ErrorIs(t, err, ErrNotMessageOwner)

	edited, err := f.message.Edit(ctx, c.profiles[0], msg.ID, EditMessageInput{Content: "second"})
	require.NoError(t, err)
	assert.Equal(t, "second", edited.Content)
	assert.True(t, edited.UpdatedAt.After(msg.UpdatedAt) || edited.UpdatedAt.Equal(msg.UpdatedAt))

	_, err = f.message.Delete(ctx, c.profiles[1], msg.ID)
	assert.ErrorIs(t, err, ErrNotMessageOwner)

	// The server admin may remove channel messages.
	deleted, err := f.message.Delete(ctx, c.owner, msg.ID)
	require.NoError(t, err)
	assert.True(t, deleted.Deleted)
	assert.Equal(t, domain.DeletedPlaceholder, deleted.Content)

	page, err := f.message.List(ctx, c.profiles[1], c.general(), "")
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, domain.DeletedPlaceholder, page.Items[0].Content)
	assert.True(t, page.Items[0].Deleted)

	_, err = f.message.Edit(ctx, c.profiles[0], msg.ID, EditMessageInput{Content: "again"})
	assert.ErrorIs(t, err, ErrMessageNotFound)

	assert.Len(t, f.notifier.updated, 2)
}

func TestDirectMessageNotifiesPeer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.community(t, 3)
	conv := f.pair(t, c)
	chat := domain.ChatRef{Kind: domain.ChatConversation, ID: conv.ID}

	long := strings.Repeat("é", 100)
	_, err := f.message.Send(ctx, c.profiles[0], chat, SendMessageInput{Content: long})
	require.NoError(t, err)

	notes := f.notifier.notifications[c.profiles[1]]
	require.Len(t, notes, 1)
	assert.Equal(t, NotificationDirectMessage, notes[0].Type)
	assert.Equal(t, conv.ID, notes[0].ConversationID)
	assert.Equal(t, c.members[0].ID, notes[0].FromMemberID)
	assert.Len(t, []rune(notes[0].Preview), previewLen+1)
	assert.Empty(t, f.notifier.notifications[c.profiles[0]])

	// The third guest is not part of the conversation.
	_, err = f.message.Send(ctx, c.profiles[2], chat, SendMessageInput{Content: "hi"})
	assert.ErrorIs(t, err, ErrNotParticipant)

	// Even admins cannot delete someone else's direct message.
	page, err := f.message.List(ctx, c.profiles[1], chat, "")
	require.NoError(t, err)
	_, err = f.message.Delete(ctx, c.owner, page.Items[0].ID)
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestConversationGetOrCreate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.community(t, 2)

	first := f.pair(t, c)
	second, err := f.conversation.GetOrCreate(ctx, c.profiles[1], ConversationInput{
		ServerID: c.view.Server.ID,
		MemberID: c.members[0].ID,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	_, err = f.conversation.GetOrCreate(ctx, c.profiles[0], ConversationInput{
		ServerID: c.view.Server.ID,
		MemberID: c.members[0].ID,
	})
	assert.ErrorIs(t, err, ErrSelfConversation)

	other := f.community(t, 1)
	_, err = f.conversation.GetOrCreate(ctx, c.profiles[0], ConversationInput{
		ServerID: c.view.Server.ID,
		MemberID: other.members[0].ID,
	})
	assert.ErrorIs(t, err, ErrMemberNotFound)
}
