// Package collector orchestrates a collection run: consent gate, PII
// sanitization, scoring, privacy-budget accounting, noise injection, and a
// signed audit record of the outcome.
package collector

//go:generate mockgen -destination=mocks/scorer.go -package=mocks github.com/CrisisCore-Systems/pain-tracker-sub006/internal/scoring Scorer
//go:generate mockgen -destination=mocks/ledger.go -package=mocks github.com/CrisisCore-Systems/pain-tracker-sub006/internal/budget Ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/audit"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/budget"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/platform/metrics"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/privacy"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/sanitize"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/scoring"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/vault"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/domain"
	dErrors "github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/domain-errors"
)

// ErrConsentRequired is returned when policy mandates consent and the caller
// has not granted it. It propagates to the caller unchanged and is never
// retried automatically.
var ErrConsentRequired = errors.New("consent required")

// Options controls one collection run. Nil pointers take policy defaults:
// sanitization on, differential privacy on, engine default epsilon.
type Options struct {
	Principal           domain.PrincipalID
	ConsentGranted      bool
	Sanitize            *bool
	DifferentialPrivacy *bool
	NoiseEpsilon        *float64
}

// Summary is the caller-visible outcome of a collection run.
type Summary struct {
	Metrics        domain.MetricBundle
	RedactionCount int
	NoiseInjected  bool
}

// Collector wires the pipeline stages together. Construct once and share;
// all methods are safe for concurrent use.
type Collector struct {
	scorer          scoring.Scorer
	engine          *privacy.Engine
	sanitizer       *sanitize.Sanitizer
	ledger          budget.Ledger
	trail           *audit.Trail
	vault           *vault.Vault
	logger          *slog.Logger
	metrics         *metrics.Metrics
	tracer          trace.Tracer
	consentRequired bool
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithLedger enables budget enforcement. Without a ledger the documented
// policy default is "allow".
func WithLedger(l budget.Ledger) CollectorOption {
	return func(c *Collector) {
		c.ledger = l
	}
}

// WithTrail enables audit recording.
func WithTrail(t *audit.Trail) CollectorOption {
	return func(c *Collector) {
		c.trail = t
	}
}

// WithVault enables sealed-record collection.
func WithVault(v *vault.Vault) CollectorOption {
	return func(c *Collector) {
		c.vault = v
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) CollectorOption {
	return func(c *Collector) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) CollectorOption {
	return func(c *Collector) {
		c.metrics = m
	}
}

// WithTracer overrides the OpenTelemetry tracer.
func WithTracer(t trace.Tracer) CollectorOption {
	return func(c *Collector) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithConsentRequired sets the consent policy. Default is required.
func WithConsentRequired(required bool) CollectorOption {
	return func(c *Collector) {
		c.consentRequired = required
	}
}

// New builds a Collector around the scorer and privacy engine.
func New(scorer scoring.Scorer, engine *privacy.Engine, opts ...CollectorOption) *Collector {
	c := &Collector{
		scorer:          scorer,
		engine:          engine,
		sanitizer:       sanitize.New(),
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:          otel.Tracer("pain-tracker/collector"),
		consentRequired: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Collect runs the full pipeline over the records. The consent gate comes
// first; no record content is touched before it passes. Budget denial and
// audit write failure are normal outcomes reflected in the summary and the
// audit trail, never errors. Exactly one audit event is recorded per call
// and its type reflects the outcome.
func (c *Collector) Collect(ctx context.Context, records []domain.Record, opts Options) (Summary, error) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "collector.collect", trace.WithAttributes(
		attribute.Int("records.count", len(records)),
	))
	defer span.End()

	if err := c.gate(ctx, span, start, opts, len(records)); err != nil {
		return Summary{}, err
	}

	sanitizeOn := boolValue(opts.Sanitize, true)
	dpOn := boolValue(opts.DifferentialPrivacy, true)
	span.SetAttributes(
		attribute.Bool("sanitize", sanitizeOn),
		attribute.Bool("differential_privacy", dpOn),
	)

	working := records
	redactions := 0
	if sanitizeOn {
		working = make([]domain.Record, len(records))
		for i, rec := range records {
			res := c.sanitizer.Sanitize(rec)
			clean, _ := res.Value.(domain.Record)
			working[i] = clean
			redactions += res.Redactions
		}
	}
	c.metrics.ObserveRedactions(redactions)

	bundle, err := c.scorer.Score(ctx, working)
	if err != nil {
		err = fmt.Errorf("collector: score records: %w", err)
		c.finish(span, start, metrics.OutcomeError, err)
		return Summary{}, err
	}
	bundle.Clamp()

	summary := Summary{RedactionCount: redactions}
	details := map[string]string{
		"record_count": strconv.Itoa(len(records)),
		"redactions":   strconv.Itoa(redactions),
	}
	eventType := audit.EventMetricsCollected
	outcome := metrics.OutcomeOK

	if dpOn {
		eps := c.engine.DefaultEpsilon()
		if opts.NoiseEpsilon != nil {
			eps = *opts.NoiseEpsilon
		}
		norm, apply := c.engine.NormalizeEpsilon(eps)
		details["epsilon"] = formatFloat(norm)
		if apply {
			grant, consumeErr := c.consumeBudget(ctx, opts.Principal, norm)
			switch {
			case consumeErr != nil:
				// Ledger failure reads as denial; the ledger never fails open.
				eventType = audit.EventBudgetDenied
				outcome = metrics.OutcomeBudgetDenied
				details["ledger_error"] = "true"
				c.metrics.IncBudgetDenied()
			case !grant.Granted:
				eventType = audit.EventBudgetDenied
				outcome = metrics.OutcomeBudgetDenied
				details["remaining_budget"] = formatFloat(grant.Remaining)
				c.metrics.IncBudgetDenied()
			default:
				noisy, guardErr := c.engine.GuardBundle(ctx, bundle, norm)
				if guardErr != nil {
					guardErr = fmt.Errorf("collector: guard bundle: %w", guardErr)
					c.finish(span, start, metrics.OutcomeError, guardErr)
					return Summary{}, guardErr
				}
				bundle = noisy
				summary.NoiseInjected = true
				eventType = audit.EventNoiseApplied
				c.metrics.ObserveNoiseEpsilon(norm)
			}
		}
	}

	summary.Metrics = bundle
	details["noise_injected"] = strconv.FormatBool(summary.NoiseInjected)

	c.record(ctx, eventType, opts.Principal, details)
	c.finish(span, start, outcome, nil)
	return summary, nil
}

// gate enforces input validity and the consent policy before any record
// content is processed.
func (c *Collector) gate(ctx context.Context, span trace.Span, start time.Time, opts Options, recordCount int) error {
	if opts.Principal.IsZero() {
		err := dErrors.New(dErrors.CodeInvalidInput, "principal required")
		c.finish(span, start, metrics.OutcomeError, err)
		return err
	}
	if c.consentRequired && !opts.ConsentGranted {
		c.record(ctx, audit.EventConsentRejected, opts.Principal, map[string]string{
			"record_count": strconv.Itoa(recordCount),
		})
		c.finish(span, start, metrics.OutcomeConsentDenied, ErrConsentRequired)
		return ErrConsentRequired
	}
	return nil
}

func (c *Collector) consumeBudget(ctx context.Context, principal domain.PrincipalID, eps float64) (budget.Grant, error) {
	if c.ledger == nil {
		return budget.Grant{Granted: true}, nil
	}
	grant, err := c.ledger.Consume(ctx, principal, eps)
	if err != nil {
		c.logger.WarnContext(ctx, "budget ledger error, treating as denied",
			slog.Float64("epsilon", eps),
			slog.String("error", err.Error()),
		)
		return budget.Grant{}, err
	}
	return grant, nil
}

// record appends one audit event. Failures are absorbed: the collection
// result still stands, the gap is logged and counted.
func (c *Collector) record(ctx context.Context, typ audit.EventType, principal domain.PrincipalID, details map[string]string) {
	if c.trail == nil {
		return
	}
	if _, err := c.trail.Record(ctx, typ, principal, details); err != nil {
		c.logger.WarnContext(ctx, "audit write failed",
			slog.String("event_type", string(typ)),
			slog.String("error", err.Error()),
		)
	}
}

func (c *Collector) finish(span trace.Span, start time.Time, outcome string, err error) {
	c.metrics.ObserveCollect(outcome, time.Since(start).Seconds())
	span.SetAttributes(attribute.String("outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		return
	}
	span.SetStatus(codes.Ok, "")
}

func boolValue(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
