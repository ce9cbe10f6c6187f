package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the pipeline. Methods are safe on
// a nil receiver so services can run without metrics wired.
type Metrics struct {
	CollectsTotal       *prometheus.CounterVec
	CollectDuration     prometheus.Histogram
	RedactionsPerRun    prometheus.Histogram
	NoiseEpsilon        prometheus.Histogram
	BudgetDenials       prometheus.Counter
	AuditWriteFailures  prometheus.Counter
	AuditDropped        prometheus.Counter
	VaultSecurityEvents *prometheus.CounterVec
}

// Collect outcomes recorded on CollectsTotal.
const (
	OutcomeOK             = "ok"
	OutcomeConsentDenied  = "consent_denied"
	OutcomeBudgetDenied   = "budget_denied"
	OutcomeError          = "error"
	OutcomeIntegrityError = "integrity_error"
)

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		CollectsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pain_tracker_collects_total",
			Help: "Total number of metric collection runs by outcome",
		}, []string{"outcome"}),
		CollectDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pain_tracker_collect_duration_seconds",
			Help:    "Wall time of a full collection run",
			Buckets: prometheus.DefBuckets,
		}),
		RedactionsPerRun: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pain_tracker_redactions_per_run",
			Help:    "PII redactions applied per collection run",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),
		NoiseEpsilon: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pain_tracker_noise_epsilon",
			Help:    "Normalized epsilon used when noise was injected",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		}),
		BudgetDenials: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pain_tracker_budget_denials_total",
			Help: "Total number of privacy budget denials",
		}),
		AuditWriteFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pain_tracker_audit_write_failures_total",
			Help: "Total number of audit events that failed to persist",
		}),
		AuditDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pain_tracker_audit_dropped_total",
			Help: "Total number of audit events dropped due to a full buffer",
		}),
		VaultSecurityEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pain_tracker_vault_security_events_total",
			Help: "Total number of vault security events by kind",
		}, []string{"kind"}),
	}
}

// ObserveCollect records one finished collection run.
func (m *Metrics) ObserveCollect(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.CollectsTotal.WithLabelValues(outcome).Inc()
	m.CollectDuration.Observe(seconds)
}

// ObserveRedactions records the redaction count of one run.
func (m *Metrics) ObserveRedactions(n int) {
	if m == nil {
		return
	}
	m.RedactionsPerRun.Observe(float64(n))
}

// ObserveNoiseEpsilon records the epsilon actually spent on a run.
func (m *Metrics) ObserveNoiseEpsilon(eps float64) {
	if m == nil {
		return
	}
	m.NoiseEpsilon.Observe(eps)
}

// IncBudgetDenied increments the budget denial counter.
func (m *Metrics) IncBudgetDenied() {
	if m == nil {
		return
	}
	m.BudgetDenials.Inc()
}

// IncAuditWriteFailure increments the audit persistence failure counter.
func (m *Metrics) IncAuditWriteFailure() {
	if m == nil {
		return
	}
	m.AuditWriteFailures.Inc()
}

// IncAuditDropped increments the dropped audit event counter.
func (m *Metrics) IncAuditDropped() {
	if m == nil {
		return
	}
	m.AuditDropped.Inc()
}

// IncVaultSecurityEvent increments the vault security event counter for a kind.
func (m *Metrics) IncVaultSecurityEvent(kind string) {
	if m == nil {
		return
	}
	m.VaultSecurityEvents.WithLabelValues(kind).Inc()
}
