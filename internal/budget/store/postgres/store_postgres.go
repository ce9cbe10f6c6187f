package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/budget"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/domain"
)

// Store is a Postgres-backed budget ledger. Each principal holds one row;
// consumption runs in a transaction with the row locked.
type Store struct {
	pool   *pgxpool.Pool
	limits budget.Limits
	now    func() time.Time
}

// New creates a Postgres ledger with the given limits.
func New(pool *pgxpool.Pool, limits budget.Limits) *Store {
	return &Store{pool: pool, limits: limits, now: time.Now}
}

// EnsureSchema installs the budget table. Idempotent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS privacy_budget (
			principal    TEXT PRIMARY KEY,
			used         DOUBLE PRECISION NOT NULL DEFAULT 0,
			window_start TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("budget: ensure schema: %w", err)
	}
	return nil
}

// Consume spends eps from the principal's window if it fits. Transport
// errors surface to the caller, which treats them as denials.
func (s *Store) Consume(ctx context.Context, principal domain.PrincipalID, eps float64) (budget.Grant, error) {
	if principal.IsZero() {
		return budget.Grant{}, fmt.Errorf("budget: empty principal")
	}
	if eps < 0 {
		return budget.Grant{}, fmt.Errorf("budget: negative epsilon %v", eps)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return budget.Grant{}, fmt.Errorf("budget: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	now := s.now().UTC()
	if _, err := tx.Exec(ctx, `
		INSERT INTO privacy_budget (principal, used, window_start)
		VALUES ($1, 0, $2)
		ON CONFLICT (principal) DO NOTHING
	`, principal.String(), now); err != nil {
		return budget.Grant{}, fmt.Errorf("budget: init row: %w", err)
	}

	var used float64
	var windowStart time.Time
	if err := tx.QueryRow(ctx, `
		SELECT used, window_start FROM privacy_budget
		WHERE principal = $1
		FOR UPDATE
	`, principal.String()).Scan(&used, &windowStart); err != nil {
		return budget.Grant{}, fmt.Errorf("budget: read row: %w", err)
	}

	if now.Sub(windowStart) >= s.limits.Window {
		used = 0
		windowStart = now
	}

	granted := used+eps <= s.limits.Cap+budget.CapSlack
	if granted {
		used += eps
	}

	if _, err := tx.Exec(ctx, `
		UPDATE privacy_budget SET used = $2, window_start = $3
		WHERE principal = $1
	`, principal.String(), used, windowStart); err != nil {
		return budget.Grant{}, fmt.Errorf("budget: write row: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return budget.Grant{}, fmt.Errorf("budget: commit: %w", err)
	}

	remaining := s.limits.Cap - used
	if remaining < 0 {
		remaining = 0
	}
	return budget.Grant{Granted: granted, Remaining: remaining}, nil
}
