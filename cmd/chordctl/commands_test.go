package main

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vedran77/chord/internal/domain"
)

// pagedHistory serves total messages newest first, PageSize at a time.
type pagedHistory struct {
	total   int
	fetches int
}

func (p *pagedHistory) FetchMessages(_ context.Context, _ domain.ChatRef, cursor string) (domain.MessagePage, error) {
	p.fetches++
	start := 0
	if cursor != "" {
		fmt.Sscanf(cursor, "m%03d", &start)
		start = p.total - start
	}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var items []domain.Message
	for i := start; i < p.total && len(items) < domain.PageSize; i++ {
		n := p.total - 1 - i
		items = append(items, domain.Message{
			ID:        fmt.Sprintf("m%03d", n),
			Content:   fmt.Sprintf("message %d", n),
			CreatedAt: base.Add(time.Duration(n) * time.Minute),
		})
	}
	return domain.NewMessagePage(items), nil
}

func TestLoadHistoryStopsAtPageLimit(t *testing.T) {
	src := &pagedHistory{total: 25}
	chat := domain.ChatRef{Kind: domain.ChatChannel, ID: uuid.New()}

	cache, err := loadHistory(context.Background(), src, chat, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, src.fetches)
	assert.Equal(t, 20, cache.Len())
	assert.True(t, cache.HasMore())

	display := cache.Display()
	assert.Equal(t, "m005", display[0].ID)
	assert.Equal(t, "m024", display[len(display)-1].ID)
}

func TestLoadHistoryAll(t *testing.T) {
	src := &pagedHistory{total: 25}
	chat := domain.ChatRef{Kind: domain.ChatConversation, ID: uuid.New()}

	cache, err := loadHistory(context.Background(), src, chat, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, src.fetches)
	assert.Equal(t, 25, cache.Len())
	assert.False(t, cache.HasMore())
	assert.Equal(t, "m000", cache.Display()[0].ID)
}

func TestPrintNavigatorShowsRoomURL(t *testing.T) {
	var out bytes.Buffer
	nav := printNavigator{out: &out, mediaURL: "http://localhost:7880"}
	id := uuid.MustParse("5f1e2d3c-4b5a-4968-8776-a5b4c3d2e1f0")

	nav.OpenRoom(id)
	assert.Equal(t, "-- joining call room http://localhost:7880/calls/5f1e2d3c-4b5a-4968-8776-a5b4c3d2e1f0\n", out.String())
}
