package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/dataset"
	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/eventbus"
	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/filter"
	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/types"
	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/urlstate"
)

type fakeNow struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeNow) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeNow) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func testData() *dataset.Dataset {
	return dataset.New(
		[]types.Store{
			{ID: "s1", Name: "深圳万象城", Brand: types.BrandDJI, Province: "广东", City: "深圳"},
			{ID: "s2", Name: "北京国贸", Brand: types.BrandInsta, Province: "北京", City: "北京"},
		},
		[]types.Mall{{MallID: "m1", MallName: "万象城", City: "深圳", DJIOpened: true}},
	)
}

func newManager(clock *fakeNow) *Manager {
	return NewManager(testData(), Options{
		MaxAge:      time.Hour,
		IdleTimeout: 10 * time.Minute,
		Now:         clock.Now,
	})
}

func TestManager_CreateRestoresQuery(t *testing.T) {
	clock := &fakeNow{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	m := newManager(clock)

	sink := urlstate.NewMemorySink("view=region&brand=dji")
	s := m.Create(context.Background(), sink, nil)
	require.NotEmpty(t, s.ID)
	assert.Same(t, s, m.Get(s.ID))

	snap := s.Store.Snapshot()
	assert.Equal(t, filter.ViewRegion, snap.View)
	assert.Equal(t, []types.Brand{types.BrandDJI}, snap.Applied.Brands.Sorted())

	s.Store.SelectStore("s1")
	assert.Contains(t, sink.Query(), "storeId=s1")
}

func TestManager_Expiry(t *testing.T) {
	clock := &fakeNow{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	m := newManager(clock)
	idle := m.Create(context.Background(), urlstate.NewMemorySink(""), nil)
	busy := m.Create(context.Background(), urlstate.NewMemorySink(""), nil)

	clock.Advance(9 * time.Minute)
	busy.Touch(clock.Now())
	clock.Advance(2 * time.Minute)

	assert.Nil(t, m.Get(idle.ID), "idle past timeout")
	assert.NotNil(t, m.Get(busy.ID))

	for i := 0; i < 6; i++ {
		clock.Advance(9 * time.Minute)
		busy.Touch(clock.Now())
	}
	assert.Equal(t, 1, m.Cleanup(), "max age applies even to active sessions")
	assert.Zero(t, m.Len())
}

func TestManager_RemoveStopsWriting(t *testing.T) {
	clock := &fakeNow{t: time.Now()}
	m := newManager(clock)
	sink := urlstate.NewMemorySink("")
	s := m.Create(context.Background(), sink, nil)

	m.Remove(s.ID)
	s.Store.SetView(filter.ViewCompetition)
	assert.Empty(t, sink.Replaced())
	assert.Nil(t, m.Get(s.ID))

	s.Close() // second close is harmless
}

func TestManager_AttachedSessionsNeverIdle(t *testing.T) {
	clock := &fakeNow{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	m := newManager(clock)
	held := m.Create(context.Background(), urlstate.NewMemorySink(""), nil)
	held.Attach()
	loose := m.Create(context.Background(), urlstate.NewMemorySink(""), nil)

	clock.Advance(30 * time.Minute)
	assert.Equal(t, 1, m.Cleanup())
	assert.Same(t, held, m.Get(held.ID))
	assert.Nil(t, m.Get(loose.ID))

	clock.Advance(time.Hour)
	assert.Nil(t, m.Get(held.ID), "max age still applies")
}

type recorder struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (r *recorder) Publish(evt eventbus.Event) {
	r.mu.Lock()
	r.events = append(r.events, evt)
	r.mu.Unlock()
}

func (r *recorder) summary() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = string(e.Type) + ":" + e.Reason
	}
	return out
}

func TestManager_PublishesLifecycle(t *testing.T) {
	clock := &fakeNow{t: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	rec := &recorder{}
	m := NewManager(testData(), Options{
		MaxAge:      time.Hour,
		IdleTimeout: 10 * time.Minute,
		Now:         clock.Now,
		Events:      rec,
	})

	gone := m.Create(context.Background(), urlstate.NewMemorySink(""), nil)
	idle := m.Create(context.Background(), urlstate.NewMemorySink(""), nil)
	m.Remove(gone.ID)
	m.Remove(gone.ID)

	clock.Advance(11 * time.Minute)
	assert.Nil(t, m.Get(idle.ID))
	assert.Zero(t, m.Cleanup())

	assert.Equal(t, []string{
		"session_created:",
		"session_created:",
		"session_closed:disconnect",
		"session_expired:idle",
	}, rec.summary())
	assert.Equal(t, idle.ID, rec.events[3].SessionID)
	assert.Equal(t, clock.Now(), rec.events[3].OccurredAt)
}

func TestManager_RunClosesOnShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := NewManager(testData(), Options{})
	s := m.Create(context.Background(), urlstate.NewMemorySink(""), nil)
	s.Sync.Search(urlstate.FieldKeyword, "深圳")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, time.Millisecond) }()
	cancel()
	require.NoError(t, <-done)

	assert.Zero(t, m.Len())
	time.Sleep(urlstate.DefaultSearchDelay + 50*time.Millisecond)
	assert.Empty(t, s.Store.Snapshot().Applied.Keyword, "pending search was cancelled")
}
