package consent

import (
	"context"
	"sync"
	"time"

	"github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/domain"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/platform/sentinel"
)

// MemoryStore keeps consent decisions in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[domain.PrincipalID][]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[domain.PrincipalID][]Record)}
}

func (s *MemoryStore) Save(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.Principal] = append(s.records[record.Principal], record)
	return nil
}

func (s *MemoryStore) ListByPrincipal(_ context.Context, principal domain.PrincipalID) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Record{}, s.records[principal]...), nil
}

// Revoke marks every active record for the purpose as revoked.
func (s *MemoryStore) Revoke(_ context.Context, principal domain.PrincipalID, purpose Purpose, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	revoked := false
	records := s.records[principal]
	for i := range records {
		if records[i].Purpose != purpose || !records[i].IsActive(at) {
			continue
		}
		ts := at
		records[i].RevokedAt = &ts
		revoked = true
	}
	if !revoked {
		return sentinel.ErrNotFound
	}
	return nil
}
