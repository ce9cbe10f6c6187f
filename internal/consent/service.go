package consent

import (
	"context"
	"time"

	"github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/domain"
	dErrors "github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/domain-errors"
)

// Service persists consent decisions and provides purpose-aware checks. It
// keeps orchestration out of handlers and domain logic thin.
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Grant records consent for a purpose. A zero ttl grants without expiry.
func (s *Service) Grant(ctx context.Context, principal domain.PrincipalID, purpose Purpose, ttl time.Duration) (Record, error) {
	now := s.now()
	record := Record{
		Principal: principal,
		Purpose:   purpose,
		GrantedAt: now,
	}
	if ttl > 0 {
		record.ExpiresAt = now.Add(ttl)
	}
	if err := s.store.Save(ctx, record); err != nil {
		return Record{}, dErrors.Wrap(dErrors.CodeInternal, "save consent", err)
	}
	return record, nil
}

// Require returns an error unless active consent exists for the purpose.
func (s *Service) Require(ctx context.Context, principal domain.PrincipalID, purpose Purpose) error {
	records, err := s.store.ListByPrincipal(ctx, principal)
	if err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "list consent", err)
	}
	now := s.now()
	for _, record := range records {
		if record.Purpose == purpose && record.IsActive(now) {
			return nil
		}
	}
	return dErrors.New(dErrors.CodeConsentRequired, "consent not granted for required purpose")
}

// Revoke withdraws consent for a purpose from now on.
func (s *Service) Revoke(ctx context.Context, principal domain.PrincipalID, purpose Purpose) error {
	if err := s.store.Revoke(ctx, principal, purpose, s.now()); err != nil {
		return dErrors.Wrap(dErrors.CodeInvalidInput, "revoke consent", err)
	}
	return nil
}

// List returns every consent record held for the principal, active or not.
func (s *Service) List(ctx context.Context, principal domain.PrincipalID) ([]Record, error) {
	records, err := s.store.ListByPrincipal(ctx, principal)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "list consent", err)
	}
	return records, nil
}
