package notify

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/chord/internal/events"
	"github.com/vedran77/chord/internal/realtime/clock"
)

func TestDwellPopsExactlyOne(t *testing.T) {
	clk := clock.NewFake(time.Now())
	q := New(clk, Options{})
	first := q.Push(Notification{Type: "direct_message"})
	q.Push(Notification{Type: "direct_message"})
	q.Push(Notification{Type: "direct_message"})

	clk.Advance(DefaultDwell - time.Millisecond)
	assert.Equal(t, 3, q.Len())

	clk.Advance(time.Millisecond)
	require.Equal(t, 2, q.Len())
	for _, n := range q.Items() {
		assert.NotEqual(t, first.ID, n.ID)
	}
}

func TestTimerRearmsWhileNonEmpty(t *testing.T) {
	clk := clock.NewFake(time.Now())
	q := New(clk, Options{Dwell: 6 * time.Second})
	q.Push(Notification{})
	q.Push(Notification{})

	clk.Advance(12 * time.Second)
	assert.Zero(t, q.Len())
	assert.Zero(t, clk.Pending())
}

func TestPushRestartsDwell(t *testing.T) {
	clk := clock.NewFake(time.Now())
	q := New(clk, Options{})
	q.Push(Notification{})
	clk.Advance(4 * time.Second)
	q.Push(Notification{})

	clk.Advance(4 * time.Second)
	assert.Equal(t, 2, q.Len())
	clk.Advance(2 * time.Second)
	assert.Equal(t, 1, q.Len())
}

func TestCloseRemovesOutOfOrder(t *testing.T) {
	clk := clock.NewFake(time.Now())
	q := New(clk, Options{})
	a := q.Push(Notification{Title: "a"})
	b := q.Push(Notification{Title: "b"})
	c := q.Push(Notification{Title: "c"})

	require.True(t, q.Close(b.ID))
	assert.False(t, q.Close(b.ID))

	items := q.Items()
	require.Len(t, items, 2)
	assert.Equal(t, a.ID, items[0].ID)
	assert.Equal(t, c.ID, items[1].ID)
}

func TestCapacityBound(t *testing.T) {
	q := New(clock.NewFake(time.Now()), Options{Capacity: 2})
	q.Push(Notification{Title: "a"})
	q.Push(Notification{Title: "b"})
	q.Push(Notification{Title: "c"})

	items := q.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "b", items[0].Title)
	assert.Equal(t, "c", items[1].Title)
}

func TestLengthNeverExceedsAddedMinusRemoved(t *testing.T) {
	clk := clock.NewFake(time.Now())
	q := New(clk, Options{Capacity: 100})
	added, removed := 0, 0
	q.OnChange(func(items []Notification) {
		assert.LessOrEqual(t, len(items), added-removed)
	})

	for i := 0; i < 20; i++ {
		added++
		n := q.Push(Notification{})
		if i%3 == 0 {
			if q.Close(n.ID) {
				removed++
			}
		}
		if i%5 == 0 {
			before := q.Len()
			clk.Advance(DefaultDwell)
			removed += before - q.Len()
		}
		assert.Equal(t, added-removed, q.Len())
	}
}

func TestStopClearsTimer(t *testing.T) {
	clk := clock.NewFake(time.Now())
	q := New(clk, Options{})
	q.Push(Notification{})
	q.Stop()
	assert.Zero(t, clk.Pending())
	assert.Zero(t, q.Len())
}

func TestPushAfterStopIsDropped(t *testing.T) {
	clk := clock.NewFake(time.Now())
	q := New(clk, Options{})
	changes := 0
	q.OnChange(func([]Notification) { changes++ })
	q.Stop()

	n := q.Push(Notification{Title: "late"})
	assert.NotEqual(t, uuid.Nil, n.ID)
	clk.Advance(time.Minute)
	assert.Zero(t, q.Len())
	assert.Zero(t, clk.Pending())
	assert.Zero(t, changes)
}

type fakeSubscriber struct {
	handlers map[string]func(events.Payload)
}

func (f *fakeSubscriber) Subscribe(name string, h func(events.Payload)) func() {
	f.handlers[name] = h
	return func() { delete(f.handlers, name) }
}

func TestFeedPushesNotifications(t *testing.T) {
	sub := &fakeSubscriber{handlers: make(map[string]func(events.Payload))}
	q := New(clock.NewFake(time.Now()), Options{})
	server, profile := uuid.New(), uuid.New()

	unsubscribe := Feed(sub, q, server, profile)
	h := sub.handlers[events.Notifications(server, profile)]
	require.NotNil(t, h)

	h(events.Notification{Type: "direct_message", ServerID: server, ConversationID: uuid.New(), Preview: "hey"})
	require.Equal(t, 1, q.Len())
	assert.Equal(t, "New direct message", q.Items()[0].Title)
	assert.Equal(t, "hey", q.Items()[0].Body)

	unsubscribe()
	assert.Empty(t, sub.handlers)
}
