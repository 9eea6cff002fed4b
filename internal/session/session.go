// Package session manages per-client dashboard sessions.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/dataset"
	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/eventbus"
	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/filter"
	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/urlstate"
)

// Session holds one client's filter store and its query synchronizer.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Store *filter.Store          `json:"-"`
	Sync  *urlstate.Synchronizer `json:"-"`

	mu           sync.Mutex
	lastActiveAt time.Time
	attached     bool
	closeOnce    sync.Once
}

// Touch updates the last activity timestamp.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	s.lastActiveAt = now
	s.mu.Unlock()
}

// LastActiveAt returns the last time the session was touched.
func (s *Session) LastActiveAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActiveAt
}

// Attach marks the session as held by a live connection. Attached sessions
// are never idle; max age still applies.
func (s *Session) Attach() {
	s.mu.Lock()
	s.attached = true
	s.mu.Unlock()
}

// Attached reports whether a live connection holds the session.
func (s *Session) Attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attached
}

// staleReason names why a session is no longer usable, or "" if it is.
func (s *Session) staleReason(maxAge, idle time.Duration, now time.Time) string {
	switch {
	case s.IsExpired(maxAge, now):
		return "max_age"
	case !s.Attached() && s.IsIdle(idle, now):
		return "idle"
	}
	return ""
}

// IsExpired returns true if the session has exceeded the given max age.
func (s *Session) IsExpired(maxAge time.Duration, now time.Time) bool {
	return now.Sub(s.CreatedAt) > maxAge
}

// IsIdle returns true if the session has been idle longer than the timeout.
func (s *Session) IsIdle(timeout time.Duration, now time.Time) bool {
	return now.Sub(s.LastActiveAt()) > timeout
}

// Close cancels pending searches and detaches the synchronizer.
func (s *Session) Close() {
	s.closeOnce.Do(s.Sync.Close)
}

// Options tune a Manager. Zero values take the defaults noted per field.
type Options struct {
	MaxAge      time.Duration // 24h
	IdleTimeout time.Duration // 30m
	SearchDelay time.Duration // urlstate.DefaultSearchDelay
	Clock       urlstate.Clock
	Logger      *zap.Logger
	Now         func() time.Time
	Events      eventbus.Publisher // optional lifecycle events
}

// Manager handles session creation, lookup, and cleanup.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	data        *dataset.Dataset
	maxAge      time.Duration
	idleTimeout time.Duration
	searchDelay time.Duration
	clock       urlstate.Clock
	logger      *zap.Logger
	now         func() time.Time
	events      eventbus.Publisher
}

// NewManager creates a session manager over a loaded dataset.
func NewManager(data *dataset.Dataset, opts Options) *Manager {
	m := &Manager{
		sessions:    make(map[string]*Session),
		data:        data,
		maxAge:      opts.MaxAge,
		idleTimeout: opts.IdleTimeout,
		searchDelay: opts.SearchDelay,
		clock:       opts.Clock,
		logger:      opts.Logger,
		now:         opts.Now,
		events:      opts.Events,
	}
	if m.maxAge <= 0 {
		m.maxAge = 24 * time.Hour
	}
	if m.idleTimeout <= 0 {
		m.idleTimeout = 30 * time.Minute
	}
	if m.searchDelay <= 0 {
		m.searchDelay = urlstate.DefaultSearchDelay
	}
	if m.clock == nil {
		m.clock = urlstate.RealClock
	}
	if m.logger == nil {
		m.logger = zap.NewNop()
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// Data returns the dataset sessions are built over.
func (m *Manager) Data() *dataset.Dataset { return m.data }

// Now returns the manager's current time.
func (m *Manager) Now() time.Time { return m.now() }

// Create builds a session whose query string lives in sink, restores state
// from it and registers the session. locator may be nil.
func (m *Manager) Create(ctx context.Context, sink urlstate.Sink, locator urlstate.Locator) *Session {
	now := m.now()
	store := filter.New(m.data.Stores(), m.data.Malls())
	opts := []urlstate.Option{
		urlstate.WithClock(m.clock),
		urlstate.WithDelay(m.searchDelay),
		urlstate.WithLogger(m.logger),
	}
	if locator != nil {
		opts = append(opts, urlstate.WithLocator(locator))
	}
	s := &Session{
		ID:           uuid.New().String(),
		CreatedAt:    now,
		Store:        store,
		Sync:         urlstate.New(store, sink, opts...),
		lastActiveAt: now,
	}
	s.Sync.Init(ctx)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	m.logger.Info("session created", zap.String("session_id", s.ID))
	m.publish(eventbus.SessionCreated, s.ID, "")
	return s
}

// Get retrieves a session by ID. Returns nil if not found or expired.
func (m *Manager) Get(id string) *Session {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	if reason := s.staleReason(m.maxAge, m.idleTimeout, m.now()); reason != "" {
		if m.detach(id) != nil {
			s.Close()
			m.publish(eventbus.SessionExpired, id, reason)
		}
		return nil
	}
	return s
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Remove closes and deletes a session.
func (m *Manager) Remove(id string) {
	if s := m.detach(id); s != nil {
		s.Close()
		m.publish(eventbus.SessionClosed, id, "disconnect")
	}
}

func (m *Manager) detach(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil
	}
	delete(m.sessions, id)
	return s
}

// Cleanup removes all expired and idle sessions and returns how many it removed.
func (m *Manager) Cleanup() int {
	type staleSession struct {
		s      *Session
		reason string
	}
	now := m.now()
	var stale []staleSession
	m.mu.Lock()
	for id, s := range m.sessions {
		if reason := s.staleReason(m.maxAge, m.idleTimeout, now); reason != "" {
			delete(m.sessions, id)
			stale = append(stale, staleSession{s, reason})
		}
	}
	m.mu.Unlock()

	for _, st := range stale {
		st.s.Close()
		m.logger.Info("session expired", zap.String("session_id", st.s.ID), zap.String("reason", st.reason))
		m.publish(eventbus.SessionExpired, st.s.ID, st.reason)
	}
	return len(stale)
}

// Run calls Cleanup every interval until ctx is done, then closes every
// remaining session.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			return nil
		case <-ticker.C:
			m.Cleanup()
		}
	}
}

func (m *Manager) closeAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for id, s := range all {
		s.Close()
		m.publish(eventbus.SessionClosed, id, "shutdown")
	}
}

func (m *Manager) publish(typ eventbus.Type, id, reason string) {
	if m.events != nil {
		m.events.Publish(eventbus.NewEvent(typ, id, m.now(), reason))
	}
}
