package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/budget"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/domain"
)

type window struct {
	used  float64
	start time.Time
}

// Store is an in-memory budget ledger. Windows are created on first use and
// reset once their period elapses.
type Store struct {
	mu     sync.Mutex
	spend  map[domain.PrincipalID]*window
	limits budget.Limits
	now    func() time.Time
}

// New creates an in-memory ledger with the given limits.
func New(limits budget.Limits) *Store {
	return &Store{
		spend:  make(map[domain.PrincipalID]*window),
		limits: limits,
		now:    time.Now,
	}
}

// Consume spends eps from the principal's window if it fits.
func (s *Store) Consume(_ context.Context, principal domain.PrincipalID, eps float64) (budget.Grant, error) {
	if principal.IsZero() {
		return budget.Grant{}, fmt.Errorf("budget: empty principal")
	}
	if eps < 0 {
		return budget.Grant{}, fmt.Errorf("budget: negative epsilon %v", eps)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, exists := s.spend[principal]
	if !exists {
		w = &window{start: now}
		s.spend[principal] = w
	}
	if now.Sub(w.start) >= s.limits.Window {
		w.used = 0
		w.start = now
	}

	if w.used+eps > s.limits.Cap+budget.CapSlack {
		return budget.Grant{Granted: false, Remaining: remaining(s.limits.Cap, w.used)}, nil
	}
	w.used += eps
	return budget.Grant{Granted: true, Remaining: remaining(s.limits.Cap, w.used)}, nil
}

// Spent reports the principal's current window usage.
func (s *Store) Spent(principal domain.PrincipalID) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.spend[principal]; ok {
		return w.used
	}
	return 0
}

func remaining(cap, used float64) float64 {
	if r := cap - used; r > 0 {
		return r
	}
	return 0
}
