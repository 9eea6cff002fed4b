package urlstate

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/filter"
	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/types"
)

// Search fields accepted by Synchronizer.Search.
const (
	FieldKeyword     = "keyword"
	FieldMallKeyword = "mall_keyword"
)

// Synchronizer restores store state from the Sink once, then replace-writes
// the persisted slice whenever it changes. Free-text search goes through
// per-field debouncers before reaching the store.
type Synchronizer struct {
	store   *filter.Store
	sink    Sink
	locator Locator
	clock   Clock
	delay   time.Duration
	logger  *zap.Logger

	keyword     *Debouncer[string]
	mallKeyword *Debouncer[string]

	mu          sync.Mutex
	initialized bool
	closed      bool
	last        string
	unsubscribe func()
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithClock replaces the runtime clock used by the search debouncers.
func WithClock(c Clock) Option { return func(s *Synchronizer) { s.clock = c } }

// WithDelay sets the search quiet period.
func WithDelay(d time.Duration) Option { return func(s *Synchronizer) { s.delay = d } }

// WithLocator supplies the initial map center when the query has none.
func WithLocator(l Locator) Option { return func(s *Synchronizer) { s.locator = l } }

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option { return func(s *Synchronizer) { s.logger = l } }

// New wires a synchronizer between store and sink. Nothing is read or
// written until Init.
func New(store *filter.Store, sink Sink, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		store:  store,
		sink:   sink,
		clock:  RealClock,
		delay:  DefaultSearchDelay,
		logger: zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	s.keyword = NewDebouncer(s.clock, s.delay, store.SetKeyword)
	s.mallKeyword = NewDebouncer(s.clock, s.delay, store.SetMallKeyword)
	return s
}

// Init parses the sink's query, applies it to the store and starts writing
// changes back. Calling it more than once is a no-op.
func (s *Synchronizer) Init(ctx context.Context) Params {
	s.mu.Lock()
	if s.initialized || s.closed {
		s.mu.Unlock()
		return FromSnapshot(s.store.Snapshot())
	}
	s.mu.Unlock()

	p, dropped := Parse(s.sink.Query())
	if len(dropped) > 0 {
		s.logger.Debug("dropped malformed query params", zap.Strings("params", dropped))
	}

	if p.Center == nil && s.locator != nil {
		if pos, ok := s.locator.Locate(ctx); ok {
			p.Center = &pos
		}
	}
	s.apply(p)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = true
	s.last = s.encode(s.store.Snapshot())
	s.unsubscribe = s.store.Subscribe(filter.ObserverFunc(s.observe))
	return p
}

func (s *Synchronizer) apply(p Params) {
	if p.View != "" {
		s.store.SetView(p.View)
	}
	if len(p.Brands) > 0 {
		brands := types.NewSet(p.Brands...)
		s.store.UpdateFilters(filter.Patch{Brands: &brands})
	}
	if p.StoreID != "" {
		s.store.SelectStore(p.StoreID)
	}
	if p.MallID != "" {
		s.store.SelectMall(p.MallID)
	}
	if p.Center != nil || p.Zoom != nil {
		s.store.SetViewport(filter.Viewport{Center: p.Center, Zoom: p.Zoom})
	}
}

func (s *Synchronizer) observe(snap filter.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized || s.closed {
		return
	}
	q := s.encode(snap)
	if q == s.last {
		return
	}
	s.last = q
	s.sink.Replace(q)
}

func (s *Synchronizer) encode(snap filter.Snapshot) string {
	base, _ := url.ParseQuery(strings.TrimPrefix(s.sink.Query(), "?"))
	return Encode(FromSnapshot(snap), base)
}

// Search feeds one keystroke for field. It reports false for unknown fields.
func (s *Synchronizer) Search(field, value string) bool {
	switch field {
	case FieldKeyword:
		s.keyword.Trigger(value)
	case FieldMallKeyword:
		s.mallKeyword.Trigger(value)
	default:
		return false
	}
	return true
}

// Flush commits pending search terms without waiting.
func (s *Synchronizer) Flush() {
	s.keyword.Flush()
	s.mallKeyword.Flush()
}

// Close cancels pending search terms and stops writing to the sink.
func (s *Synchronizer) Close() {
	s.keyword.Stop()
	s.mallKeyword.Stop()

	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.closed = true
	s.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}
