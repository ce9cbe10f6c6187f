package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/audit"
	txcontext "github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/platform/tx"
)

// Store persists audit events in PostgreSQL. Inserts are idempotent on the
// event ID so replays from an async worker never duplicate rows.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// execer returns the caller's transaction when one rides the context, so an
// audit append can commit or roll back atomically with the caller's writes.
func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// EnsureSchema creates the audit_events table when it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS audit_events (
			event_id            TEXT PRIMARY KEY,
			ts                  TIMESTAMPTZ NOT NULL,
			event_type          TEXT NOT NULL,
			principal_pseudonym TEXT NOT NULL,
			details             JSONB NOT NULL,
			signature           TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS audit_events_pseudonym_idx
			ON audit_events (principal_pseudonym, ts)
	`)
	if err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	details, err := json.Marshal(event.Details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}

	query := `
		INSERT INTO audit_events (event_id, ts, event_type, principal_pseudonym, details, signature)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id) DO NOTHING
	`
	if _, err := s.execer(ctx).ExecContext(ctx, query,
		event.ID,
		event.Timestamp,
		string(event.Type),
		event.Pseudonym,
		details,
		event.Signature,
	); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByPseudonym returns events for one principal pseudonym, oldest first,
// capped at limit rows.
func (s *Store) ListByPseudonym(ctx context.Context, pseudonym string, limit int) ([]audit.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT event_id, ts, event_type, principal_pseudonym, details, signature
		FROM audit_events
		WHERE principal_pseudonym = $1
		ORDER BY ts ASC
		LIMIT $2
	`
	rows, err := s.db.QueryContext(ctx, query, pseudonym, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListRecent returns the newest events across all principals, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT event_id, ts, event_type, principal_pseudonym, details, signature
		FROM audit_events
		ORDER BY ts DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			event   audit.Event
			typ     string
			details []byte
		)
		if err := rows.Scan(&event.ID, &event.Timestamp, &typ, &event.Pseudonym, &details, &event.Signature); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Type = audit.EventType(typ)
		if err := json.Unmarshal(details, &event.Details); err != nil {
			return nil, fmt.Errorf("unmarshal audit details: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
