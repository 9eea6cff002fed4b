package urlstate

import (
	"sync"
	"time"
)

// DefaultSearchDelay is the quiet period before a search term is committed.
const DefaultSearchDelay = 350 * time.Millisecond

// Timer is a cancellable delayed callback.
type Timer interface {
	Stop() bool
}

// Clock schedules delayed callbacks. Tests substitute a manual clock.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// RealClock uses the runtime timers.
var RealClock Clock = realClock{}

// Debouncer commits only the last value triggered within a quiet period.
// Each Trigger cancels the in-flight timer; a timer that already fired but
// lost the race to a newer Trigger is ignored via the generation counter.
type Debouncer[T any] struct {
	mu      sync.Mutex
	clock   Clock
	delay   time.Duration
	commit  func(T)
	timer   Timer
	gen     uint64
	value   T
	pending bool
}

// NewDebouncer returns a debouncer that calls commit after delay of quiet.
func NewDebouncer[T any](clock Clock, delay time.Duration, commit func(T)) *Debouncer[T] {
	if clock == nil {
		clock = RealClock
	}
	return &Debouncer[T]{clock: clock, delay: delay, commit: commit}
}

// Trigger records v and restarts the quiet period.
func (d *Debouncer[T]) Trigger(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.value = v
	d.pending = true
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(gen) })
}

// Flush commits a pending value immediately.
func (d *Debouncer[T]) Flush() {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return
	}
	v := d.value
	d.cancelLocked()
	d.mu.Unlock()
	d.commit(v)
}

// Stop drops any pending value without committing it.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
}

// Pending returns the value waiting to be committed, if any.
func (d *Debouncer[T]) Pending() (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.value, d.pending
}

func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || !d.pending {
		d.mu.Unlock()
		return
	}
	v := d.value
	d.pending = false
	d.timer = nil
	d.mu.Unlock()
	d.commit(v)
}

func (d *Debouncer[T]) cancelLocked() {
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = false
}
