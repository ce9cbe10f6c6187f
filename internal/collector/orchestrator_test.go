package collector

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/audit"
	auditmem "github.com/CrisisCore-Systems/pain-tracker-sub006/internal/audit/store/memory"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/budget"
	budgetmem "github.com/CrisisCore-Systems/pain-tracker-sub006/internal/budget/store/memory"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/collector/mocks"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/privacy"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/sanitize"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/scoring"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/vault"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/domain"
	dErrors "github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/domain-errors"
)

type testHarness struct {
	vault      *vault.Vault
	auditStore *auditmem.Store
	trail      *audit.Trail
	engine     *privacy.Engine
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	v, err := vault.New(bytes.Repeat([]byte{0x42}, 32))
	require.NoError(t, err)
	store := auditmem.New()
	return &testHarness{
		vault:      v,
		auditStore: store,
		trail:      audit.New(store, audit.WithKeys(v.PseudonymKey(), v.IntegrityKey())),
		engine:     privacy.New(privacy.DefaultPolicy()),
	}
}

func (h *testHarness) events(t *testing.T) []audit.Event {
	t.Helper()
	events, err := h.auditStore.List(context.Background())
	require.NoError(t, err)
	return events
}

func testBundle() domain.MetricBundle {
	var b domain.MetricBundle
	i := 0.0
	b.VisitFields(func(_ string, v *float64) {
		*v = 20 + 5*i
		i++
	})
	return b
}

func ptrBool(v bool) *bool        { return &v }
func ptrFloat(v float64) *float64 { return &v }

func TestCollectSanitizesBeforeScoring(t *testing.T) {
	h := newHarness(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	var seen []domain.Record
	scorer := mocks.NewMockScorer(ctrl)
	scorer.EXPECT().Score(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, records []domain.Record) (domain.MetricBundle, error) {
			seen = records
			return testBundle(), nil
		})

	c := New(scorer, h.engine, WithTrail(h.trail))
	records := []domain.Record{
		{"note": "Contact me at test@example.com or 555-123-4567", "pain_level": 6},
	}

	summary, err := c.Collect(context.Background(), records, Options{
		Principal:           "patient-1042",
		ConsentGranted:      true,
		DifferentialPrivacy: ptrBool(false),
	})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, summary.RedactionCount, 2)
	assert.False(t, summary.NoiseInjected)
	assert.Equal(t, testBundle(), summary.Metrics, "without noise the scorer output passes through exactly")

	require.Len(t, seen, 1)
	note := seen[0]["note"].(string)
	assert.NotContains(t, note, "test@example.com")
	assert.NotContains(t, note, "555-123-4567")
	assert.Contains(t, note, sanitize.Marker)
	assert.Equal(t, 6, seen[0]["pain_level"], "non-PII fields pass through")

	rawNote := records[0]["note"].(string)
	assert.Contains(t, rawNote, "test@example.com", "caller records are never mutated")
}

func TestCollectConsentGateBlocksAllWork(t *testing.T) {
	h := newHarness(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// No expectations: the scorer must never run.
	scorer := mocks.NewMockScorer(ctrl)

	c := New(scorer, h.engine, WithTrail(h.trail))
	summary, err := c.Collect(context.Background(), []domain.Record{{"note": "anything"}}, Options{
		Principal:      "patient-1042",
		ConsentGranted: false,
	})

	assert.ErrorIs(t, err, ErrConsentRequired)
	assert.Zero(t, summary)

	events := h.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, audit.EventConsentRejected, events[0].Type)
	assert.Equal(t, "1", events[0].Details["record_count"])
}

func TestCollectConsentOptionalPolicy(t *testing.T) {
	h := newHarness(t)

	c := New(scoring.NewStatic(testBundle()), h.engine,
		WithTrail(h.trail),
		WithConsentRequired(false),
	)
	summary, err := c.Collect(context.Background(), nil, Options{
		Principal:           "patient-1042",
		ConsentGranted:      false,
		DifferentialPrivacy: ptrBool(false),
	})
	require.NoError(t, err)
	assert.Equal(t, testBundle(), summary.Metrics)
}

func TestCollectSanitizeDisabled(t *testing.T) {
	h := newHarness(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	var seen []domain.Record
	scorer := mocks.NewMockScorer(ctrl)
	scorer.EXPECT().Score(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, records []domain.Record) (domain.MetricBundle, error) {
			seen = records
			return testBundle(), nil
		})

	c := New(scorer, h.engine, WithTrail(h.trail))
	_, err := c.Collect(context.Background(), []domain.Record{{"note": "reach me at test@example.com"}}, Options{
		Principal:           "patient-1042",
		ConsentGranted:      true,
		Sanitize:            ptrBool(false),
		DifferentialPrivacy: ptrBool(false),
	})
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Contains(t, seen[0]["note"], "test@example.com", "explicit opt-out skips redaction")
}

func TestCollectAppliesNoiseWithinBudget(t *testing.T) {
	h := newHarness(t)
	ledger := budgetmem.New(budget.Limits{Cap: 20, Window: time.Hour})

	c := New(scoring.NewStatic(testBundle()), h.engine,
		WithTrail(h.trail),
		WithLedger(ledger),
	)
	summary, err := c.Collect(context.Background(), []domain.Record{{"note": "steady"}}, Options{
		Principal:      "patient-1042",
		ConsentGranted: true,
		NoiseEpsilon:   ptrFloat(2.0),
	})
	require.NoError(t, err)

	assert.True(t, summary.NoiseInjected)
	summary.Metrics.VisitFields(func(name string, v *float64) {
		assert.GreaterOrEqual(t, *v, domain.ScoreMin, "%s stays in range", name)
		assert.LessOrEqual(t, *v, domain.ScoreMax, "%s stays in range", name)
	})

	events := h.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, audit.EventNoiseApplied, events[0].Type)
	assert.Equal(t, "2", events[0].Details["epsilon"])
	assert.Equal(t, "true", events[0].Details["noise_injected"])
	assert.Equal(t, float64(2), ledger.Spent("patient-1042"))
}

func TestCollectBudgetDeniedIsNormalOutcome(t *testing.T) {
	h := newHarness(t)
	ledger := budgetmem.New(budget.Limits{Cap: 0.5, Window: time.Hour})

	c := New(scoring.NewStatic(testBundle()), h.engine,
		WithTrail(h.trail),
		WithLedger(ledger),
	)
	summary, err := c.Collect(context.Background(), []domain.Record{{"note": "steady"}}, Options{
		Principal:      "patient-1042",
		ConsentGranted: true,
		NoiseEpsilon:   ptrFloat(1.0),
	})
	require.NoError(t, err, "budget denial is not an error")

	assert.False(t, summary.NoiseInjected)
	assert.Equal(t, testBundle(), summary.Metrics, "denied runs return the exact clamped bundle")

	events := h.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, audit.EventBudgetDenied, events[0].Type)
	assert.Equal(t, "0.5", events[0].Details["remaining_budget"])
	assert.Equal(t, "false", events[0].Details["noise_injected"])
}

func TestCollectLedgerErrorFailsClosed(t *testing.T) {
	h := newHarness(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ledger := mocks.NewMockLedger(ctrl)
	ledger.EXPECT().Consume(gomock.Any(), domain.PrincipalID("patient-1042"), gomock.Any()).
		Return(budget.Grant{}, errors.New("ledger unreachable"))

	c := New(scoring.NewStatic(testBundle()), h.engine,
		WithTrail(h.trail),
		WithLedger(ledger),
	)
	summary, err := c.Collect(context.Background(), []domain.Record{{"note": "steady"}}, Options{
		Principal:      "patient-1042",
		ConsentGranted: true,
	})
	require.NoError(t, err, "ledger failure degrades to no-noise, not an error")

	assert.False(t, summary.NoiseInjected)
	events := h.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, audit.EventBudgetDenied, events[0].Type)
	assert.Equal(t, "true", events[0].Details["ledger_error"])
}

func TestCollectZeroEpsilonSkipsNoiseAndLedger(t *testing.T) {
	h := newHarness(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// No expectations: a zero epsilon must not reach the ledger.
	ledger := mocks.NewMockLedger(ctrl)

	c := New(scoring.NewStatic(testBundle()), h.engine,
		WithTrail(h.trail),
		WithLedger(ledger),
	)
	summary, err := c.Collect(context.Background(), []domain.Record{{"note": "steady"}}, Options{
		Principal:      "patient-1042",
		ConsentGranted: true,
		NoiseEpsilon:   ptrFloat(0),
	})
	require.NoError(t, err)

	assert.False(t, summary.NoiseInjected)
	assert.Equal(t, testBundle(), summary.Metrics)

	events := h.events(t)
	require.Len(t, events, 1)
	assert.Equal(t, audit.EventMetricsCollected, events[0].Type)
	assert.Equal(t, "0", events[0].Details["epsilon"])
}

func TestCollectWithoutLedgerAllows(t *testing.T) {
	h := newHarness(t)

	c := New(scoring.NewStatic(testBundle()), h.engine, WithTrail(h.trail))
	summary, err := c.Collect(context.Background(), []domain.Record{{"note": "steady"}}, Options{
		Principal:      "patient-1042",
		ConsentGranted: true,
	})
	require.NoError(t, err)
	assert.True(t, summary.NoiseInjected, "no ledger means budget enforcement is off")
}

func TestCollectAuditFailureNonFatal(t *testing.T) {
	h := newHarness(t)
	failing := &failingStore{err: errors.New("sink down")}
	trail := audit.New(failing, audit.WithKeys(h.vault.PseudonymKey(), h.vault.IntegrityKey()))

	c := New(scoring.NewStatic(testBundle()), h.engine, WithTrail(trail))
	summary, err := c.Collect(context.Background(), []domain.Record{{"note": "steady"}}, Options{
		Principal:           "patient-1042",
		ConsentGranted:      true,
		DifferentialPrivacy: ptrBool(false),
	})
	require.NoError(t, err, "a failed audit write never blocks the result")
	assert.Equal(t, testBundle(), summary.Metrics)
}

func TestCollectWithoutTrail(t *testing.T) {
	h := newHarness(t)

	c := New(scoring.NewStatic(testBundle()), h.engine)
	summary, err := c.Collect(context.Background(), []domain.Record{{"note": "steady"}}, Options{
		Principal:           "patient-1042",
		ConsentGranted:      true,
		DifferentialPrivacy: ptrBool(false),
	})
	require.NoError(t, err)
	assert.Equal(t, testBundle(), summary.Metrics)
}

func TestCollectScorerError(t *testing.T) {
	h := newHarness(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	scorer := mocks.NewMockScorer(ctrl)
	scoreErr := errors.New("model offline")
	scorer.EXPECT().Score(gomock.Any(), gomock.Any()).Return(domain.MetricBundle{}, scoreErr)

	c := New(scorer, h.engine, WithTrail(h.trail))
	_, err := c.Collect(context.Background(), []domain.Record{{"note": "steady"}}, Options{
		Principal:      "patient-1042",
		ConsentGranted: true,
	})
	assert.ErrorIs(t, err, scoreErr)
	assert.Empty(t, h.events(t), "aborted runs record nothing")
}

func TestCollectRequiresPrincipal(t *testing.T) {
	h := newHarness(t)

	c := New(scoring.NewStatic(testBundle()), h.engine, WithTrail(h.trail))
	_, err := c.Collect(context.Background(), nil, Options{ConsentGranted: true})

	assert.Equal(t, dErrors.CodeInvalidInput, dErrors.CodeOf(err))
	assert.Empty(t, h.events(t))
}

func TestCollectScorerOutputClamped(t *testing.T) {
	h := newHarness(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	wild := domain.MetricBundle{}
	wild.Resilience.Composure = 900
	wild.Traits.Openness = -50

	scorer := mocks.NewMockScorer(ctrl)
	scorer.EXPECT().Score(gomock.Any(), gomock.Any()).Return(wild, nil)

	c := New(scorer, h.engine)
	summary, err := c.Collect(context.Background(), nil, Options{
		Principal:           "patient-1042",
		ConsentGranted:      true,
		DifferentialPrivacy: ptrBool(false),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ScoreMax, summary.Metrics.Resilience.Composure)
	assert.Equal(t, domain.ScoreMin, summary.Metrics.Traits.Openness)
}

func TestCollectAuditEventIsPseudonymizedAndSigned(t *testing.T) {
	h := newHarness(t)

	c := New(scoring.NewStatic(testBundle()), h.engine, WithTrail(h.trail))
	_, err := c.Collect(context.Background(), []domain.Record{{"note": "steady"}}, Options{
		Principal:      "patient-1042",
		ConsentGranted: true,
	})
	require.NoError(t, err)

	events := h.events(t)
	require.Len(t, events, 1)
	event := events[0]

	assert.Equal(t, audit.Pseudonymize(h.vault.PseudonymKey(), "patient-1042"), event.Pseudonym)
	assert.NotContains(t, event.Pseudonym, "patient-1042")
	assert.NoError(t, event.Verify(h.vault.IntegrityKey()), "stored fields recompute to the stored signature")

	canonical, err := event.Canonical()
	require.NoError(t, err)
	assert.NotContains(t, string(canonical), "patient-1042")
}

type failingStore struct {
	err error
}

func (s *failingStore) Append(context.Context, audit.Event) error {
	return s.err
}
