// Package typing holds the ephemeral "who is typing" state of a channel
// subscription and the rate-limited emitter on the sending side.
package typing

import (
	"sync"
	"time"
)

// DefaultTimeout is how long a name stays in the set without renewal.
const DefaultTimeout = 3 * time.Second

type entry struct {
	gen   uint64
	timer *time.Timer
}

// Tracker is a per-subscription set of typing display names. Each name
// carries its own self-clearing timer; a renewal re-arms it.
type Tracker struct {
	mu       sync.Mutex
	timeout  time.Duration
	self     string
	entries  map[string]*entry
	order    []string
	stopped  bool
	onExpire func(names []string)
}

// NewTracker builds a Tracker. self is never reported. onExpire, when set,
// receives the remaining names after a timer removes one.
func NewTracker(self string, timeout time.Duration, onExpire func(names []string)) *Tracker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Tracker{
		timeout:  timeout,
		self:     self,
		entries:  make(map[string]*entry),
		onExpire: onExpire,
	}
}

// Observe records a typing signal for name and reports whether the visible
// set changed.
func (t *Tracker) Observe(name string) bool {
	if name == "" {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return false
	}

	e, ok := t.entries[name]
	if ok {
		e.timer.Stop()
		e.gen++
	} else {
		e = &entry{}
		t.entries[name] = e
		t.order = append(t.order, name)
	}
	gen := e.gen
	e.timer = time.AfterFunc(t.timeout, func() { t.expire(name, gen) })

	return !ok && name != t.self
}

// Names returns the typing names in first-seen order, excluding self.
func (t *Tracker) Names() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.namesLocked()
}

// Stop cancels every pending timer. Later signals are ignored.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	for _, e := range t.entries {
		e.timer.Stop()
	}
	t.entries = map[string]*entry{}
	t.order = nil
}

func (t *Tracker) expire(name string, gen uint64) {
	t.mu.Lock()
	e, ok := t.entries[name]
	if t.stopped || !ok || e.gen != gen {
		// renewed or torn down since this timer was armed
		t.mu.Unlock()
		return
	}
	t.remove(name)
	names := t.namesLocked()
	cb := t.onExpire
	t.mu.Unlock()

	if cb != nil && name != t.self {
		cb(names)
	}
}

func (t *Tracker) remove(name string) bool {
	e, ok := t.entries[name]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(t.entries, name)
	for i, n := range t.order {
		if n == name {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

func (t *Tracker) namesLocked() []string {
	names := make([]string, 0, len(t.order))
	for _, n := range t.order {
		if n != t.self {
			names = append(names, n)
		}
	}
	return names
}
