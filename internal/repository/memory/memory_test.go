package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedran77/chord/internal/domain"
	"github.com/vedran77/chord/internal/repository"
)

func TestListByChatPagesNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewMessageRepo()
	chatID := uuid.New()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 25; i++ {
		at := base.Add(time.Duration(i) * time.Second)
		require.NoError(t, repo.Create(ctx, &domain.Message{
			ID: fmt.Sprintf("m%02d", i), ChannelID: &chatID, Content: "plain",
			ContentSealed: []byte{1}, CreatedAt: at, UpdatedAt: at,
		}))
	}
	// Another chat's rows never leak in.
	other := uuid.New()
	require.NoError(t, repo.Create(ctx, &domain.Message{ID: "x", ChannelID: &other, CreatedAt: base}))

	chat := domain.ChatRef{Kind: domain.ChatChannel, ID: chatID}
	first, err := repo.ListByChat(ctx, chat, "", 10)
	require.NoError(t, err)
	require.Len(t, first, 10)
	assert.Equal(t, "m24", first[0].ID)
	assert.Equal(t, "m15", first[9].ID)
	assert.Empty(t, first[0].Content, "plaintext is never stored")

	second, err := repo.ListByChat(ctx, chat, first[9].ID, 10)
	require.NoError(t, err)
	assert.Equal(t, "m14", second[0].ID)

	last, err := repo.ListByChat(ctx, chat, "m05", 10)
	require.NoError(t, err)
	assert.Len(t, last, 5)

	unknown, err := repo.ListByChat(ctx, chat, "nope", 10)
	require.NoError(t, err)
	assert.Empty(t, unknown)
}

func TestCallRepoOneOpenCallAndStaleUpdate(t *testing.T) {
	ctx := context.Background()
	repo := NewCallRepo()
	conv := uuid.New()
	now := time.Now()

	first := &domain.Call{ID: uuid.New(), ConversationID: conv, Type: domain.CallAudio, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.Create(ctx, first))

	second := &domain.Call{ID: uuid.New(), ConversationID: conv, Type: domain.CallAudio, CreatedAt: now, UpdatedAt: now}
	assert.ErrorIs(t, repo.Create(ctx, second), repository.ErrDuplicate)

	declined := *first
	declined.Declined = true
	declined.UpdatedAt = now.Add(time.Second)
	require.NoError(t, repo.Update(ctx, &declined, now))
	assert.ErrorIs(t, repo.Update(ctx, &declined, now), repository.ErrStale)

	open, err := repo.GetOpenByConversation(ctx, conv)
	require.NoError(t, err)
	assert.Nil(t, open)

	require.NoError(t, repo.Create(ctx, second))
}

func TestUniqueConstraints(t *testing.T) {
	ctx := context.Background()
	server := uuid.New()

	members := NewMemberRepo()
	profile := uuid.New()
	require.NoError(t, members.Create(ctx, &domain.Member{ID: uuid.New(), ServerID: server, ProfileID: profile}))
	assert.ErrorIs(t, members.Create(ctx, &domain.Member{ID: uuid.New(), ServerID: server, ProfileID: profile}), repository.ErrDuplicate)

	channels := NewChannelRepo()
	require.NoError(t, channels.Create(ctx, &domain.Channel{ID: uuid.New(), ServerID: server, Name: "general"}))
	assert.ErrorIs(t, channels.Create(ctx, &domain.Channel{ID: uuid.New(), ServerID: server, Name: "general"}), repository.ErrDuplicate)

	convs := NewConversationRepo()
	a, b := domain.CanonicalPair(uuid.New(), uuid.New())
	require.NoError(t, convs.Create(ctx, &domain.Conversation{ID: uuid.New(), ServerID: server, MemberOneID: a, MemberTwoID: b}))
	assert.ErrorIs(t, convs.Create(ctx, &domain.Conversation{ID: uuid.New(), ServerID: server, MemberOneID: a, MemberTwoID: b}), repository.ErrDuplicate)

	got, err := convs.GetByMembers(ctx, a, b)
	require.NoError(t, err)
	require.NotNil(t, got)
	missing, err := convs.GetByMembers(ctx, b, a)
	require.NoError(t, err)
	assert.Nil(t, missing)
}
