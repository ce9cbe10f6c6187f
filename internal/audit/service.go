package audit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/platform/metrics"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/vault"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/domain"
)

// Store persists audit events. Implementations must be append-only; the
// trail never updates or deletes what it has written.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Trail builds, pseudonymizes, signs, and appends audit events. It is the
// only writer; policy around degraded operation lives here, not in stores.
type Trail struct {
	store     Store
	pseudoKey *vault.KeyHandle
	signKey   *vault.KeyHandle
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// Option configures a Trail.
type Option func(*Trail)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Trail) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Trail) {
		t.metrics = m
	}
}

// WithKeys provides the pseudonym and integrity keys. Omitting either one
// puts the corresponding capability into degraded mode rather than failing
// construction; operators choose availability over completeness here.
func WithKeys(pseudonym, integrity *vault.KeyHandle) Option {
	return func(t *Trail) {
		t.pseudoKey = pseudonym
		t.signKey = integrity
	}
}

// New builds a Trail writing to store.
func New(store Store, opts ...Option) *Trail {
	t := &Trail{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Record builds one event and appends it. The raw principal never reaches
// the store when the pseudonym key is usable; when it is not, the event is
// rewritten to the unpseudonymized type with the plaintext principal in a
// named detail field and an error-level log line.
func (t *Trail) Record(ctx context.Context, typ EventType, principal domain.PrincipalID, details map[string]string) (Event, error) {
	event := Event{
		ID:        uuid.NewString(),
		Timestamp: t.now().UTC(),
		Type:      typ,
		Details:   make(map[string]string, len(details)+2),
	}
	for k, v := range details {
		event.Details[k] = v
	}

	if t.pseudoKey.Usable() {
		event.Pseudonym = Pseudonymize(t.pseudoKey, principal.String())
	} else {
		event.Type = EventUnpseudonymized
		event.Details["intended_event_type"] = string(typ)
		event.Details["principal_plaintext"] = principal.String()
		t.logger.ErrorContext(ctx, "audit pseudonym key unavailable, recording plaintext principal",
			slog.String("event_id", event.ID),
			slog.String("event_type", string(typ)),
		)
	}

	if t.signKey.Usable() {
		if err := event.Sign(t.signKey); err != nil {
			return Event{}, fmt.Errorf("audit: sign %s: %w", typ, err)
		}
	} else {
		t.logger.ErrorContext(ctx, "audit integrity key unavailable, appending unsigned event",
			slog.String("event_id", event.ID),
			slog.String("event_type", string(event.Type)),
		)
	}

	if err := t.store.Append(ctx, event); err != nil {
		t.metrics.IncAuditWriteFailure()
		return Event{}, fmt.Errorf("audit: append %s: %w", event.Type, err)
	}
	return event, nil
}

// Verify checks one event against the trail's integrity key.
func (t *Trail) Verify(event *Event) error {
	return event.Verify(t.signKey)
}

// Pseudonym derives the stable pseudonym recorded for a principal. Readers
// query stores with it so the raw ID never reaches storage.
func (t *Trail) Pseudonym(principal domain.PrincipalID) (string, error) {
	if !t.pseudoKey.Usable() {
		return "", fmt.Errorf("audit: pseudonym: %w", vault.ErrKeyUnavailable)
	}
	return Pseudonymize(t.pseudoKey, principal.String()), nil
}
