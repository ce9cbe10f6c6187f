package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/audit"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/platform/metrics"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/vault"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/domain"
	dErrors "github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/domain-errors"
)

// CollectSealed opens vault envelopes holding JSON-encoded records, then
// runs the standard pipeline on the plaintext. The consent gate fires before
// the first envelope is opened. Integrity failures are fatal and audited;
// they are never downgraded to a partial result.
func (c *Collector) CollectSealed(ctx context.Context, sealed []vault.Envelope, opts Options) (Summary, error) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "collector.collect_sealed", trace.WithAttributes(
		attribute.Int("envelopes.count", len(sealed)),
	))
	defer span.End()

	if c.vault == nil {
		err := dErrors.New(dErrors.CodeEncryptionUnavailable, "no vault configured for sealed records")
		c.finish(span, start, metrics.OutcomeError, err)
		return Summary{}, err
	}
	if err := c.gate(ctx, span, start, opts, len(sealed)); err != nil {
		return Summary{}, err
	}

	records := make([]domain.Record, len(sealed))
	for i, env := range sealed {
		plaintext, err := c.vault.Open(env)
		if err != nil {
			return Summary{}, c.sealedFailure(ctx, span, start, opts.Principal, i, err)
		}
		var rec domain.Record
		if err := json.Unmarshal(plaintext, &rec); err != nil {
			derr := dErrors.Wrap(dErrors.CodeInvalidInput, fmt.Sprintf("decode sealed record %d", i), err)
			c.finish(span, start, metrics.OutcomeError, derr)
			return Summary{}, derr
		}
		records[i] = rec
	}

	// The delegate call observes its own outcome; this span only covers the
	// unseal stage.
	return c.Collect(ctx, records, opts)
}

func (c *Collector) sealedFailure(ctx context.Context, span trace.Span, start time.Time, principal domain.PrincipalID, index int, err error) error {
	outcome := metrics.OutcomeError
	if errors.Is(err, vault.ErrIntegrity) || errors.Is(err, vault.ErrDecrypt) || errors.Is(err, vault.ErrEnvelopeVersion) {
		outcome = metrics.OutcomeIntegrityError
		c.record(ctx, audit.EventIntegrityFailure, principal, map[string]string{
			"envelope_index": strconv.Itoa(index),
		})
	}
	wrapped := fmt.Errorf("collector: open sealed record %d: %w", index, err)
	c.finish(span, start, outcome, wrapped)
	return wrapped
}
