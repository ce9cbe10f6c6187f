package memory

import (
	"context"
	"sync"

	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/audit"
)

const defaultListLimit = 100

// Store is an in-memory append-only event log. Suited to tests and
// single-process deployments; nothing is evicted.
type Store struct {
	mu     sync.RWMutex
	events []audit.Event
}

func New() *Store {
	return &Store{}
}

func (s *Store) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// List returns all events in append order.
func (s *Store) List(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events...), nil
}

// ListByPseudonym returns events for one principal pseudonym, oldest first,
// capped at limit rows.
func (s *Store) ListByPseudonym(_ context.Context, pseudonym string, limit int) ([]audit.Event, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	for _, e := range s.events {
		if e.Pseudonym == pseudonym {
			out = append(out, e)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// ListRecent returns the newest events across all principals, newest first.
func (s *Store) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit > len(s.events) {
		limit = len(s.events)
	}
	out := make([]audit.Event, 0, limit)
	for i := len(s.events) - 1; i >= len(s.events)-limit; i-- {
		out = append(out, s.events[i])
	}
	return out, nil
}

// Len reports the number of stored events.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
