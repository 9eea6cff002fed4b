package urlstate

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

type recorder struct {
	mu  sync.Mutex
	got []string
}

func (r *recorder) commit(v string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, v)
}

func (r *recorder) values() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.got...)
}

func TestDebouncer_OnlyLastKeystrokeCommits(t *testing.T) {
	clock := &manualClock{}
	rec := &recorder{}
	d := NewDebouncer(clock, DefaultSearchDelay, rec.commit)

	for _, v := range []string{"深", "深圳", "深圳万"} {
		d.Trigger(v)
		clock.Advance(100 * time.Millisecond)
	}
	assert.Empty(t, rec.values())
	assert.Equal(t, 1, clock.active(), "earlier timers are cancelled, not queued")

	clock.Advance(249 * time.Millisecond)
	assert.Empty(t, rec.values())

	clock.Advance(time.Millisecond)
	assert.Equal(t, []string{"深圳万"}, rec.values())

	clock.Advance(time.Second)
	assert.Equal(t, []string{"深圳万"}, rec.values())
}

func TestDebouncer_StaleFireIgnored(t *testing.T) {
	clock := &manualClock{}
	rec := &recorder{}
	d := NewDebouncer(clock, DefaultSearchDelay, rec.commit)

	d.Trigger("a")
	gen := d.gen
	d.Trigger("ab")
	d.fire(gen) // a callback that was already running when the second keystroke landed
	assert.Empty(t, rec.values())

	clock.Advance(DefaultSearchDelay)
	assert.Equal(t, []string{"ab"}, rec.values())
}

func TestDebouncer_FlushAndStop(t *testing.T) {
	clock := &manualClock{}
	rec := &recorder{}
	d := NewDebouncer(clock, DefaultSearchDelay, rec.commit)

	d.Trigger("x")
	v, ok := d.Pending()
	assert.True(t, ok)
	assert.Equal(t, "x", v)

	d.Flush()
	assert.Equal(t, []string{"x"}, rec.values())
	clock.Advance(DefaultSearchDelay)
	assert.Equal(t, []string{"x"}, rec.values(), "flushed value is not committed twice")

	d.Trigger("y")
	d.Stop()
	clock.Advance(DefaultSearchDelay)
	assert.Equal(t, []string{"x"}, rec.values())
	_, ok = d.Pending()
	assert.False(t, ok)

	d.Flush()
	assert.Equal(t, []string{"x"}, rec.values(), "flush with nothing pending is a no-op")
}

func TestDebouncer_RealClock(t *testing.T) {
	defer goleak.VerifyNone(t)

	done := make(chan string, 1)
	d := NewDebouncer(nil, 5*time.Millisecond, func(v string) { done <- v })
	d.Trigger("a")
	d.Trigger("b")

	select {
	case v := <-done:
		assert.Equal(t, "b", v)
	case <-time.After(2 * time.Second):
		t.Fatal("debounced value never committed")
	}

	d.Trigger("c")
	d.Stop()
}
