// Package msgcache keeps the client-side projection of one chat surface's
// messages: a list of newest-first pages that live events and history
// fetches are reconciled into.
package msgcache

import (
	"errors"
	"sync"
	"time"

	"github.com/vedran77/chord/internal/domain"
)

var ErrMissingClientID = errors.New("optimistic message needs a client id")

// Cache is safe for concurrent use; every mutation holds the cache lock.
type Cache struct {
	mu    sync.Mutex
	chat  domain.ChatRef
	pages [][]*domain.Message

	hasMore bool
	cursor  string
	loaded  bool

	// pending maps a correlation id to the slot of its optimistic copy.
	pending map[string]*domain.Message
	// settled remembers correlation ids of our own sends already matched, so
	// the second confirmation path (HTTP response or broadcast) is absorbed.
	// Rebuild trims it to the ids of the fresh page.
	settled map[string]string

	listeners []func()
}

func New(chat domain.ChatRef) *Cache {
	return &Cache{
		chat:    chat,
		pending: make(map[string]*domain.Message),
		settled: make(map[string]string),
	}
}

func (c *Cache) Chat() domain.ChatRef {
	return c.chat
}

// OnChange registers fn to run after every mutation, outside the lock.
func (c *Cache) OnChange(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *Cache) notify() {
	c.mu.Lock()
	fns := append([]func(){}, c.listeners...)
	c.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Prepend applies a "message added" event. A message whose client id
// matches a pending optimistic copy replaces that copy; anything else is
// inserted at the head without id dedup.
func (c *Cache) Prepend(m domain.Message) {
	c.mu.Lock()
	changed := c.settleLocked(m, false)
	c.mu.Unlock()
	if changed {
		c.notify()
	}
}

// Confirm applies the sender's own HTTP response for a message it sent.
// It is idempotent with the broadcast that carries the same client id.
func (c *Cache) Confirm(m domain.Message) {
	c.mu.Lock()
	changed := c.settleLocked(m, true)
	c.mu.Unlock()
	if changed {
		c.notify()
	}
}

func (c *Cache) settleLocked(m domain.Message, fromResponse bool) bool {
	m.Sent = true
	if m.ClientID != "" {
		if slot, ok := c.pending[m.ClientID]; ok {
			c.removeLocked(slot)
			delete(c.pending, m.ClientID)
			c.settled[m.ClientID] = m.ID
			// A refresh may have brought the confirmed row in already.
			if existing := c.findLocked(m.ID); existing != nil {
				*existing = m
				return true
			}
			c.insertLocked(&m)
			return true
		}
		if _, ok := c.settled[m.ClientID]; ok {
			return false
		}
	}
	if fromResponse {
		if slot := c.findLocked(m.ID); slot != nil {
			if m.ClientID != "" {
				c.settled[m.ClientID] = m.ID
			}
			*slot = m
			return true
		}
	}
	if fromResponse && m.ClientID != "" {
		c.settled[m.ClientID] = m.ID
	}
	c.insertLocked(&m)
	return true
}

// InsertOptimistic shows a locally synthesized message before the server
// has acknowledged it.
func (c *Cache) InsertOptimistic(m domain.Message) error {
	if m.ClientID == "" {
		return ErrMissingClientID
	}
	m.Sent = false

	c.mu.Lock()
	slot := &m
	c.insertLocked(slot)
	c.pending[m.ClientID] = slot
	c.mu.Unlock()

	c.notify()
	return nil
}

// Discard removes an optimistic copy whose send failed.
func (c *Cache) Discard(clientID string) bool {
	c.mu.Lock()
	slot, ok := c.pending[clientID]
	if ok {
		c.removeLocked(slot)
		delete(c.pending, clientID)
	}
	c.mu.Unlock()
	if ok {
		c.notify()
	}
	return ok
}

// Reconcile applies a "message updated" event (edit or soft delete).
// It reports false and leaves the cache untouched when the id is unknown.
func (c *Cache) Reconcile(m domain.Message) bool {
	c.mu.Lock()
	slot := c.findLocked(m.ID)
	if slot == nil {
		c.mu.Unlock()
		return false
	}
	m.Sent = true
	*slot = m
	c.mu.Unlock()

	c.notify()
	return true
}

// SoftDelete applies the deleted projection locally.
func (c *Cache) SoftDelete(id string, now time.Time) bool {
	c.mu.Lock()
	slot := c.findLocked(id)
	if slot == nil {
		c.mu.Unlock()
		return false
	}
	slot.MarkDeleted(now)
	c.mu.Unlock()

	c.notify()
	return true
}

// PageAppend adds an older history page at the tail.
func (c *Cache) PageAppend(page domain.MessagePage) {
	c.mu.Lock()
	c.appendLocked(page)
	c.mu.Unlock()
	c.notify()
}

// Rebuild replaces the cache with a freshly fetched first page. Optimistic
// copies that the page does not settle are kept.
func (c *Cache) Rebuild(page domain.MessagePage) {
	c.mu.Lock()
	var keep []*domain.Message
	for clientID, slot := range c.pending {
		if settledBy(page, clientID) {
			delete(c.pending, clientID)
			continue
		}
		keep = append(keep, slot)
	}
	c.settled = make(map[string]string)
	for _, m := range page.Items {
		if m.ClientID != "" {
			c.settled[m.ClientID] = m.ID
		}
	}
	c.pages = nil
	c.hasMore = false
	c.cursor = ""
	c.appendLocked(page)
	for _, slot := range keep {
		c.insertLocked(slot)
	}
	c.mu.Unlock()

	c.notify()
}

func settledBy(page domain.MessagePage, clientID string) bool {
	for _, m := range page.Items {
		if m.ClientID == clientID {
			return true
		}
	}
	return false
}

func (c *Cache) appendLocked(page domain.MessagePage) {
	items := make([]*domain.Message, 0, len(page.Items))
	for i := range page.Items {
		m := page.Items[i]
		m.Sent = true
		items = append(items, &m)
	}
	c.pages = append(c.pages, items)
	c.loaded = true
	c.hasMore = len(page.Items) == domain.PageSize
	switch {
	case page.NextCursor != nil:
		c.cursor = *page.NextCursor
	case len(items) > 0:
		c.cursor = items[len(items)-1].ID
	}
}

// insertLocked places m at its creation-order position, which for live
// traffic is the head of the first page.
func (c *Cache) insertLocked(m *domain.Message) {
	if len(c.pages) == 0 {
		c.pages = [][]*domain.Message{{m}}
		return
	}
	for p, page := range c.pages {
		for i, existing := range page {
			if m.Newer(existing) {
				c.pages[p] = insertAt(page, i, m)
				return
			}
		}
	}
	last := len(c.pages) - 1
	c.pages[last] = append(c.pages[last], m)
}

func insertAt(page []*domain.Message, i int, m *domain.Message) []*domain.Message {
	page = append(page, nil)
	copy(page[i+1:], page[i:])
	page[i] = m
	return page
}

func (c *Cache) removeLocked(slot *domain.Message) {
	for p, page := range c.pages {
		for i, existing := range page {
			if existing == slot {
				c.pages[p] = append(page[:i], page[i+1:]...)
				return
			}
		}
	}
}

func (c *Cache) findLocked(id string) *domain.Message {
	for _, page := range c.pages {
		for _, m := range page {
			if m.ID == id {
				return m
			}
		}
	}
	return nil
}

// Messages returns a copy of the flattened cache, newest first.
func (c *Cache) Messages() []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.Message
	for _, page := range c.pages {
		for _, m := range page {
			out = append(out, *m)
		}
	}
	return out
}

// Display returns the messages oldest first, the order they render in.
func (c *Cache) Display() []domain.Message {
	msgs := c.Messages()
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, page := range c.pages {
		n += len(page)
	}
	return n
}

func (c *Cache) PageCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pages)
}

// HasMore reports whether the last fetched batch was full.
func (c *Cache) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasMore
}

// Cursor is the id of the oldest message of the last fetched batch.
func (c *Cache) Cursor() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

// Loaded reports whether at least one page was fetched.
func (c *Cache) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Pending returns the number of optimistic messages awaiting confirmation.
func (c *Cache) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
