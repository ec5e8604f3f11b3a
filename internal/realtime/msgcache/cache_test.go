package msgcache

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/chord/internal/domain"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newChat() domain.ChatRef {
	return domain.ChatRef{Kind: domain.ChatChannel, ID: uuid.New()}
}

func msg(chat domain.ChatRef, id string, at time.Time) domain.Message {
	chatID := chat.ID
	return domain.Message{
		ID:        id,
		Content:   "content " + id,
		MemberID:  uuid.New(),
		ChannelID: &chatID,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func ids(msgs []domain.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}

func assertNewestFirst(t *testing.T, msgs []domain.Message) {
	t.Helper()
	for i := 1; i < len(msgs); i++ {
		if !msgs[i-1].Newer(&msgs[i]) {
			t.Fatalf("cache out of order at %d: %s (%s) before %s (%s)",
				i, msgs[i-1].ID, msgs[i-1].CreatedAt, msgs[i].ID, msgs[i].CreatedAt)
		}
	}
}

func TestPrependCreatesFirstPage(t *testing.T) {
	chat := newChat()
	c := New(chat)

	c.Prepend(msg(chat, "m1", base))

	assert.Equal(t, 1, c.PageCount())
	require.Len(t, c.Messages(), 1)
	assert.True(t, c.Messages()[0].Sent)
}

func TestPrependGoesToHead(t *testing.T) {
	chat := newChat()
	c := New(chat)
	c.PageAppend(domain.NewMessagePage([]domain.Message{
		msg(chat, "m2", base.Add(2*time.Second)),
		msg(chat, "m1", base.Add(time.Second)),
	}))

	c.Prepend(msg(chat, "m3", base.Add(3*time.Second)))

	assert.Equal(t, []string{"m3", "m2", "m1"}, ids(c.Messages()))
	assert.Equal(t, []string{"m1", "m2", "m3"}, ids(c.Display()))
}

func TestReconcileReplacesAcrossPages(t *testing.T) {
	chat := newChat()
	c := New(chat)
	first := make([]domain.Message, 0, domain.PageSize)
	for i := domain.PageSize; i > 0; i-- {
		first = append(first, msg(chat, fmt.Sprintf("a%02d", i), base.Add(time.Duration(100+i)*time.Second)))
	}
	c.PageAppend(domain.NewMessagePage(first))
	c.PageAppend(domain.NewMessagePage([]domain.Message{msg(chat, "old", base)}))

	edited := msg(chat, "old", base)
	edited.Content = "edited"
	edited.UpdatedAt = base.Add(time.Hour)

	require.True(t, c.Reconcile(edited))
	all := c.Messages()
	assert.Equal(t, "edited", all[len(all)-1].Content)
	assert.False(t, all[len(all)-1].Deleted)
}

func TestReconcileUnknownIsNoop(t *testing.T) {
	chat := newChat()
	c := New(chat)
	c.Prepend(msg(chat, "m1", base))
	before := c.Messages()

	changes := 0
	c.OnChange(func() { changes++ })

	assert.False(t, c.Reconcile(msg(chat, "missing", base)))
	assert.Equal(t, before, c.Messages())
	assert.Zero(t, changes)
}

func TestPageAppendHasMore(t *testing.T) {
	chat := newChat()
	c := New(chat)

	full := make([]domain.Message, 0, domain.PageSize)
	for i := domain.PageSize; i > 0; i-- {
		full = append(full, msg(chat, fmt.Sprintf("m%02d", i), base.Add(time.Duration(i)*time.Minute)))
	}
	c.PageAppend(domain.NewMessagePage(full))
	assert.True(t, c.HasMore())
	assert.Equal(t, "m01", c.Cursor())

	c.PageAppend(domain.NewMessagePage([]domain.Message{msg(chat, "m00", base)}))
	assert.False(t, c.HasMore())
	assert.Equal(t, "m00", c.Cursor())
	assert.Equal(t, 2, c.PageCount())
}

func TestOptimisticMessageIsReplacedByConfirmation(t *testing.T) {
	chat := newChat()
	c := New(chat)
	c.Prepend(msg(chat, "srv-1", base))

	optimistic := msg(chat, "tmp-1", base.Add(time.Second))
	optimistic.Content = "hello"
	optimistic.ClientID = "corr-1"
	require.NoError(t, c.InsertOptimistic(optimistic))
	assert.False(t, c.Messages()[0].Sent)
	assert.Equal(t, 1, c.Pending())

	confirmed := msg(chat, "srv-9", base.Add(2*time.Second))
	confirmed.Content = "hello"
	confirmed.ClientID = "corr-1"
	c.Prepend(confirmed)
	// The sender's HTTP response lands after the broadcast.
	c.Confirm(confirmed)

	all := c.Messages()
	hello := 0
	for _, m := range all {
		if m.Content == "hello" {
			hello++
			assert.Equal(t, "srv-9", m.ID)
			assert.True(t, m.Sent)
		}
	}
	assert.Equal(t, 1, hello)
	assert.Equal(t, 2, len(all))
	assert.Zero(t, c.Pending())
}

func TestConfirmBeforeBroadcast(t *testing.T) {
	chat := newChat()
	c := New(chat)

	optimistic := msg(chat, "tmp-1", base)
	optimistic.ClientID = "corr-1"
	require.NoError(t, c.InsertOptimistic(optimistic))

	confirmed := msg(chat, "srv-9", base.Add(time.Second))
	confirmed.ClientID = "corr-1"
	c.Confirm(confirmed)
	c.Prepend(confirmed)

	assert.Equal(t, []string{"srv-9"}, ids(c.Messages()))
}

func TestInsertOptimisticRequiresClientID(t *testing.T) {
	chat := newChat()
	c := New(chat)
	assert.ErrorIs(t, c.InsertOptimistic(msg(chat, "tmp-1", base)), ErrMissingClientID)
	assert.Zero(t, c.Len())
}

func TestPrependWithoutClientIDDoesNotDedup(t *testing.T) {
	chat := newChat()
	c := New(chat)
	m := msg(chat, "m1", base)
	c.Prepend(m)
	c.Prepend(m)
	assert.Equal(t, 2, c.Len())
}

func TestDeletedMessageProjection(t *testing.T) {
	chat := newChat()
	c := New(chat)
	m1 := msg(chat, "m1", base)
	url := "https://cdn.example/file.png"
	m1.FileURL = &url
	c.Prepend(m1)

	deleted := m1
	deleted.MarkDeleted(base.Add(time.Minute))
	require.True(t, c.Reconcile(deleted))

	got := c.Messages()[0]
	assert.Equal(t, "This message has been deleted", got.Content)
	assert.Nil(t, got.FileURL)
	assert.True(t, got.Deleted)
	assert.Equal(t, base.Add(time.Minute), got.UpdatedAt)
}

func TestSoftDeleteLocal(t *testing.T) {
	chat := newChat()
	c := New(chat)
	c.Prepend(msg(chat, "m1", base))

	require.True(t, c.SoftDelete("m1", base.Add(time.Second)))
	assert.True(t, c.Messages()[0].Deleted)
	assert.False(t, c.SoftDelete("nope", base))
}

func TestRebuildKeepsUnsettledOptimistic(t *testing.T) {
	chat := newChat()
	c := New(chat)
	c.Prepend(msg(chat, "stale", base))

	a := msg(chat, "tmp-a", base.Add(10*time.Second))
	a.ClientID = "corr-a"
	b := msg(chat, "tmp-b", base.Add(11*time.Second))
	b.ClientID = "corr-b"
	require.NoError(t, c.InsertOptimistic(a))
	require.NoError(t, c.InsertOptimistic(b))

	settled := msg(chat, "srv-a", base.Add(5*time.Second))
	settled.ClientID = "corr-a"
	c.Rebuild(domain.NewMessagePage([]domain.Message{settled, msg(chat, "srv-0", base.Add(time.Second))}))

	assert.Equal(t, []string{"tmp-b", "srv-a", "srv-0"}, ids(c.Messages()))
	assert.Equal(t, 1, c.Pending())
	assert.False(t, c.HasMore())

	// A late broadcast for the settled message must not duplicate it.
	c.Prepend(settled)
	assert.Equal(t, 3, c.Len())
}

func TestSettledIDsStayBounded(t *testing.T) {
	chat := newChat()
	c := New(chat)

	// Other members' traffic carries their own client ids.
	for i := 0; i < 50; i++ {
		m := msg(chat, fmt.Sprintf("live-%02d", i), base.Add(time.Duration(i)*time.Second))
		m.ClientID = fmt.Sprintf("theirs-%02d", i)
		c.Prepend(m)
	}
	assert.Empty(t, c.settled)

	mine := msg(chat, "tmp-1", base.Add(time.Minute))
	mine.ClientID = "mine-1"
	require.NoError(t, c.InsertOptimistic(mine))
	confirmed := msg(chat, "srv-1", base.Add(time.Minute))
	confirmed.ClientID = "mine-1"
	c.Confirm(confirmed)
	assert.Len(t, c.settled, 1)

	pending := msg(chat, "tmp-2", base.Add(2*time.Minute))
	pending.ClientID = "mine-2"
	require.NoError(t, c.InsertOptimistic(pending))

	fresh := msg(chat, "srv-9", base.Add(90*time.Second))
	fresh.ClientID = "theirs-99"
	c.Rebuild(domain.NewMessagePage([]domain.Message{fresh, confirmed}))
	assert.Equal(t, map[string]string{"theirs-99": "srv-9", "mine-1": "srv-1"}, c.settled)
	assert.Equal(t, 1, c.Pending())

	// The late broadcast of our confirmed send is still absorbed.
	c.Prepend(confirmed)
	assert.Equal(t, []string{"tmp-2", "srv-9", "srv-1"}, ids(c.Messages()))
}

// Live events are newer than anything cached and history pages are older,
// which is what the server delivers; under that contract the flattened
// cache stays newest-first after every operation.
func TestOrderingInvariantUnderRandomOps(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 50; run++ {
		chat := newChat()
		c := New(chat)
		newest := base
		oldest := base
		seq := 0
		var known []string

		for step := 0; step < 200; step++ {
			switch op := rng.Intn(4); op {
			case 0:
				newest = newest.Add(time.Duration(1+rng.Intn(3)) * time.Second)
				seq++
				id := fmt.Sprintf("n%05d", seq)
				c.Prepend(msg(chat, id, newest))
				known = append(known, id)
			case 1:
				if len(known) == 0 {
					continue
				}
				id := known[rng.Intn(len(known))]
				for _, m := range c.Messages() {
					if m.ID == id {
						m.Content = "edit"
						if rng.Intn(2) == 0 {
							m.MarkDeleted(newest)
						}
						c.Reconcile(m)
						break
					}
				}
			case 2:
				n := rng.Intn(domain.PageSize + 1)
				items := make([]domain.Message, 0, n)
				for i := 0; i < n; i++ {
					oldest = oldest.Add(-time.Duration(1+rng.Intn(3)) * time.Second)
					seq++
					id := fmt.Sprintf("o%05d", seq)
					items = append(items, msg(chat, id, oldest))
					known = append(known, id)
				}
				c.PageAppend(domain.NewMessagePage(items))
				assert.Equal(t, n == domain.PageSize, c.HasMore())
			case 3:
				newest = newest.Add(time.Second)
				seq++
				clientID := fmt.Sprintf("c%05d", seq)
				tmp := msg(chat, "tmp-"+clientID, newest)
				tmp.ClientID = clientID
				require.NoError(t, c.InsertOptimistic(tmp))
				if rng.Intn(2) == 0 {
					newest = newest.Add(time.Second)
					confirmed := msg(chat, "srv-"+clientID, newest)
					confirmed.ClientID = clientID
					c.Prepend(confirmed)
				}
			}
			assertNewestFirst(t, c.Messages())
		}
	}
}

func TestDiscardDropsFailedSend(t *testing.T) {
	chat := newChat()
	c := New(chat)
	opt := msg(chat, "tmp-1", base)
	opt.ClientID = "c1"
	require.NoError(t, c.InsertOptimistic(opt))

	assert.True(t, c.Discard("c1"))
	assert.False(t, c.Discard("c1"))
	assert.Zero(t, c.Len())
	assert.Zero(t, c.Pending())
}
