package urlstate

import (
	"context"
	"sync"

	"github.com/njrhts2kvv-star/StoreMap-China-sub001/internal/types"
)

// Sink is the page's query string. Replace must not append a history entry.
type Sink interface {
	Query() string
	Replace(query string)
}

// MemorySink keeps the query in memory and records every replacement.
type MemorySink struct {
	mu       sync.Mutex
	query    string
	replaced []string
}

// NewMemorySink starts with the given query.
func NewMemorySink(query string) *MemorySink {
	return &MemorySink{query: query}
}

func (m *MemorySink) Query() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.query
}

func (m *MemorySink) Replace(query string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.query = query
	m.replaced = append(m.replaced, query)
}

// Replaced returns every query written so far, oldest first.
func (m *MemorySink) Replaced() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.replaced...)
}

// Locator is the geolocation collaborator. ok is false when the position is
// unavailable or denied.
type Locator interface {
	Locate(ctx context.Context) (pos types.LatLng, ok bool)
}

// LocatorFunc adapts a plain function to the Locator interface.
type LocatorFunc func(ctx context.Context) (types.LatLng, bool)

func (f LocatorFunc) Locate(ctx context.Context) (types.LatLng, bool) { return f(ctx) }

// StaticLocator reports a fixed position, typically one the client sent.
func StaticLocator(pos *types.LatLng) Locator {
	return LocatorFunc(func(context.Context) (types.LatLng, bool) {
		if pos == nil || !pos.Valid() {
			return types.LatLng{}, false
		}
		return *pos, true
	})
}
