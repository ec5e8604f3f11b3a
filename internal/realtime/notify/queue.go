// Package notify holds short-lived alerts (new direct messages and the like)
// that expire on their own.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/chord/internal/realtime/clock"
)

const (
	DefaultDwell    = 6 * time.Second
	DefaultCapacity = 5
)

type Notification struct {
	ID             uuid.UUID `json:"id"`
	Type           string    `json:"type"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	ServerID       uuid.UUID `json:"serverId"`
	ConversationID uuid.UUID `json:"conversationId"`
	CreatedAt      time.Time `json:"createdAt"`
}

type Options struct {
	Dwell    time.Duration
	Capacity int
}

// Queue is a bounded FIFO. One shared timer pops the oldest entry after
// Dwell; it is re-armed on every change while the queue is non-empty.
type Queue struct {
	mu       sync.Mutex
	clock    clock.Clock
	dwell    time.Duration
	capacity int
	items    []Notification
	timer    clock.Timer
	gen      uint64
	stopped  bool
	onChange []func([]Notification)
}

func New(clk clock.Clock, opts Options) *Queue {
	if clk == nil {
		clk = clock.Real
	}
	if opts.Dwell <= 0 {
		opts.Dwell = DefaultDwell
	}
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	return &Queue{clock: clk, dwell: opts.Dwell, capacity: opts.Capacity}
}

func (q *Queue) OnChange(fn func([]Notification)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onChange = append(q.onChange, fn)
}

// Push appends n, assigning an id and timestamp when missing. A full queue
// drops its oldest entry first. After Stop, Push only stamps n.
func (q *Queue) Push(n Notification) Notification {
	q.mu.Lock()
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = q.clock.Now()
	}
	if q.stopped {
		q.mu.Unlock()
		return n
	}
	if len(q.items) >= q.capacity {
		q.items = q.items[1:]
	}
	q.items = append(q.items, n)
	q.rearmLocked()
	snapshot := q.snapshotLocked()
	q.mu.Unlock()

	q.fire(snapshot)
	return n
}

// Close removes the entry with the given id, wherever it sits.
func (q *Queue) Close(id uuid.UUID) bool {
	q.mu.Lock()
	idx := -1
	for i, n := range q.items {
		if n.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items[:idx], q.items[idx+1:]...)
	q.rearmLocked()
	snapshot := q.snapshotLocked()
	q.mu.Unlock()

	q.fire(snapshot)
	return true
}

func (q *Queue) pop(gen uint64) {
	q.mu.Lock()
	if gen != q.gen || len(q.items) == 0 {
		q.mu.Unlock()
		return
	}
	q.items = q.items[1:]
	q.timer = nil
	q.rearmLocked()
	snapshot := q.snapshotLocked()
	q.mu.Unlock()

	q.fire(snapshot)
}

func (q *Queue) rearmLocked() {
	q.gen++
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	if q.stopped || len(q.items) == 0 {
		return
	}
	gen := q.gen
	q.timer = q.clock.AfterFunc(q.dwell, func() { q.pop(gen) })
}

func (q *Queue) snapshotLocked() []Notification {
	return append([]Notification(nil), q.items...)
}

func (q *Queue) fire(items []Notification) {
	q.mu.Lock()
	fns := append([]func([]Notification){}, q.onChange...)
	q.mu.Unlock()
	for _, fn := range fns {
		fn(items)
	}
}

// Items returns the queued notifications, oldest first.
func (q *Queue) Items() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Stop disarms the timer and clears the queue.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.stopped = true
	q.items = nil
	q.rearmLocked()
	q.mu.Unlock()
}
