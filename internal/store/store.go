package store

import (
	"sync"
	"time"

	"github.com/morroisback/exchange-observer/internal/venue"
)

// Key addresses one venue's book top for one symbol
type Key struct {
	Venue  venue.Venue
	Symbol string
}

// PriceStore holds the most recent quote per (venue, symbol). Writers
// overwrite, readers copy out. There is no backpressure: missed
// intermediate ticks are acceptable, only the latest state matters.
type PriceStore struct {
	mu     sync.RWMutex
	quotes map[Key]venue.Quote
	now    func() time.Time
}

// New creates an empty price store
func New() *PriceStore {
	return &PriceStore{
		quotes: make(map[Key]venue.Quote),
		now:    time.Now,
	}
}

// Update upserts a quote and stamps its update time. Per-key timestamps
// never move backwards even when the wall clock does.
func (s *PriceStore) Update(q venue.Quote) {
	now := s.now().UTC()

	s.mu.Lock()
	key := Key{Venue: q.Venue, Symbol: q.Symbol}
	if prev, ok := s.quotes[key]; ok && now.Before(prev.UpdatedAt) {
		now = prev.UpdatedAt
	}
	q.UpdatedAt = now
	s.quotes[key] = q
	s.mu.Unlock()
}

// Get returns a copy of the stored quote for one key
func (s *PriceStore) Get(v venue.Venue, symbol string) (venue.Quote, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quotes[Key{Venue: v, Symbol: symbol}]
	return q, ok
}

// Len returns the number of stored quotes
func (s *PriceStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.quotes)
}

// Snapshot returns a copy of the whole store
func (s *PriceStore) Snapshot() map[Key]venue.Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make(map[Key]venue.Quote, len(s.quotes))
	for k, q := range s.quotes {
		snap[k] = q
	}
	return snap
}
