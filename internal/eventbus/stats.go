package eventbus

import (
	"context"
	"sync"
)

// Stats counts events by type.
type Stats struct {
	mu     sync.Mutex
	counts map[Type]int64
}

func NewStats() *Stats { return &Stats{counts: make(map[Type]int64)} }

func (s *Stats) HandleEvent(_ context.Context, evt Event) error {
	s.mu.Lock()
	s.counts[evt.Type]++
	s.mu.Unlock()
	return nil
}

// Counts returns a copy of the per-type totals.
func (s *Stats) Counts() map[Type]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[Type]int64, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}
