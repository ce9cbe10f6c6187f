package consent

import (
	"context"
	"time"

	"github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/domain"
)

// Store persists consent decisions.
type Store interface {
	Save(ctx context.Context, record Record) error
	ListByPrincipal(ctx context.Context, principal domain.PrincipalID) ([]Record, error)
	Revoke(ctx context.Context, principal domain.PrincipalID, purpose Purpose, at time.Time) error
}
