// Package typing tracks whether someone is typing on a chat surface.
package typing

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/chord/internal/events"
	"github.com/vedran77/chord/internal/realtime/clock"
)

// DefaultIdle clears the indicator when no new "is typing" event arrives.
const DefaultIdle = 4 * time.Second

type Tracker struct {
	mu     sync.Mutex
	clock  clock.Clock
	idle   time.Duration
	self   uuid.UUID
	typing bool
	who    uuid.UUID
	timer  clock.Timer
	// gen invalidates a timer that fired after being superseded.
	gen      uint64
	onChange []func(bool)
}

// New returns a tracker that ignores typing events from self.
func New(clk clock.Clock, idle time.Duration, self uuid.UUID) *Tracker {
	if clk == nil {
		clk = clock.Real
	}
	if idle <= 0 {
		idle = DefaultIdle
	}
	return &Tracker{clock: clk, idle: idle, self: self}
}

// OnChange registers fn for flag transitions.
func (t *Tracker) OnChange(fn func(typing bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onChange = append(t.onChange, fn)
}

// Apply sets the flag from the latest typing event.
func (t *Tracker) Apply(ev events.Typing) {
	if ev.MemberID == t.self && t.self != uuid.Nil {
		return
	}

	t.mu.Lock()
	was := t.typing
	t.stopLocked()
	t.typing = ev.IsTyping
	if ev.IsTyping {
		t.who = ev.MemberID
		gen := t.gen
		t.timer = t.clock.AfterFunc(t.idle, func() { t.expire(gen) })
	} else {
		t.who = uuid.Nil
	}
	changed := was != t.typing
	t.mu.Unlock()

	if changed {
		t.fire(ev.IsTyping)
	}
}

func (t *Tracker) expire(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || !t.typing {
		t.mu.Unlock()
		return
	}
	t.typing = false
	t.who = uuid.Nil
	t.timer = nil
	t.mu.Unlock()

	t.fire(false)
}

func (t *Tracker) stopLocked() {
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *Tracker) fire(typing bool) {
	t.mu.Lock()
	fns := append([]func(bool){}, t.onChange...)
	t.mu.Unlock()
	for _, fn := range fns {
		fn(typing)
	}
}

func (t *Tracker) IsTyping() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.typing
}

// Who returns the member currently typing, or uuid.Nil.
func (t *Tracker) Who() uuid.UUID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.who
}

// Close clears the flag and stops the idle timer.
func (t *Tracker) Close() {
	t.mu.Lock()
	t.stopLocked()
	t.typing = false
	t.who = uuid.Nil
	t.mu.Unlock()
}
