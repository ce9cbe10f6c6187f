package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/domain"
)

type captureStore struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (s *captureStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func (s *captureStore) list() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event{}, s.events...)
}

func TestTrailRecord(t *testing.T) {
	pseudo, integrity := testKeys(t)
	store := &captureStore{}
	fixed := time.Date(2026, 5, 12, 9, 30, 0, 0, time.UTC)

	trail := New(store, WithKeys(pseudo, integrity))
	trail.now = func() time.Time { return fixed }

	event, err := trail.Record(context.Background(), EventMetricsCollected, "patient-1042", map[string]string{
		"record_count": "3",
	})
	require.NoError(t, err)

	_, err = uuid.Parse(event.ID)
	assert.NoError(t, err, "event ID is a UUID")
	assert.Equal(t, fixed, event.Timestamp)
	assert.Equal(t, EventMetricsCollected, event.Type)
	assert.Equal(t, Pseudonymize(pseudo, "patient-1042"), event.Pseudonym)
	assert.Equal(t, "3", event.Details["record_count"])
	assert.True(t, event.Signed())
	assert.NoError(t, event.Verify(integrity))

	stored := store.list()
	require.Len(t, stored, 1)
	assert.Equal(t, event, stored[0])
}

func TestTrailRecordPseudonymStable(t *testing.T) {
	pseudo, integrity := testKeys(t)
	store := &captureStore{}
	trail := New(store, WithKeys(pseudo, integrity))

	first, err := trail.Record(context.Background(), EventMetricsCollected, "patient-1042", nil)
	require.NoError(t, err)
	second, err := trail.Record(context.Background(), EventBudgetDenied, "patient-1042", nil)
	require.NoError(t, err)
	other, err := trail.Record(context.Background(), EventMetricsCollected, "patient-9999", nil)
	require.NoError(t, err)

	assert.Equal(t, first.Pseudonym, second.Pseudonym, "same principal joins across events")
	assert.NotEqual(t, first.Pseudonym, other.Pseudonym)
	assert.NotEqual(t, "patient-1042", first.Pseudonym)
}

func TestTrailRecordDegradedWithoutPseudonymKey(t *testing.T) {
	_, integrity := testKeys(t)
	store := &captureStore{}
	trail := New(store, WithKeys(nil, integrity))

	event, err := trail.Record(context.Background(), EventMetricsCollected, "patient-1042", map[string]string{
		"record_count": "3",
	})
	require.NoError(t, err, "degraded audit still records")

	assert.Equal(t, EventUnpseudonymized, event.Type)
	assert.Empty(t, event.Pseudonym)
	assert.Equal(t, "patient-1042", event.Details["principal_plaintext"])
	assert.Equal(t, string(EventMetricsCollected), event.Details["intended_event_type"])
	assert.Equal(t, "3", event.Details["record_count"], "original details survive")
	assert.True(t, event.Signed(), "degraded events are still signed")
	assert.NoError(t, event.Verify(integrity))
}

func TestTrailRecordUnsignedWithoutIntegrityKey(t *testing.T) {
	pseudo, _ := testKeys(t)
	store := &captureStore{}
	trail := New(store, WithKeys(pseudo, nil))

	event, err := trail.Record(context.Background(), EventMetricsCollected, "patient-1042", nil)
	require.NoError(t, err)

	assert.False(t, event.Signed())
	assert.Empty(t, event.Signature)
	assert.Len(t, store.list(), 1, "unsigned events are still appended")
}

func TestTrailRecordAppendFailure(t *testing.T) {
	pseudo, integrity := testKeys(t)
	sinkErr := errors.New("sink down")
	store := &captureStore{err: sinkErr}
	trail := New(store, WithKeys(pseudo, integrity))

	event, err := trail.Record(context.Background(), EventMetricsCollected, "patient-1042", nil)
	assert.ErrorIs(t, err, sinkErr)
	assert.Zero(t, event)
}

func TestTrailRecordCopiesDetails(t *testing.T) {
	pseudo, integrity := testKeys(t)
	store := &captureStore{}
	trail := New(store, WithKeys(pseudo, integrity))

	details := map[string]string{"record_count": "3"}
	event, err := trail.Record(context.Background(), EventMetricsCollected, "patient-1042", details)
	require.NoError(t, err)

	details["record_count"] = "changed"
	assert.Equal(t, "3", event.Details["record_count"])
	assert.NoError(t, event.Verify(integrity), "later caller mutation cannot invalidate the stored event")
}

func TestTrailRecordNilDetails(t *testing.T) {
	pseudo, integrity := testKeys(t)
	store := &captureStore{}
	trail := New(store, WithKeys(pseudo, integrity))

	event, err := trail.Record(context.Background(), EventConsentRejected, "patient-1042", nil)
	require.NoError(t, err)
	assert.NotNil(t, event.Details)
	assert.Empty(t, event.Details)
}

func TestTrailVerify(t *testing.T) {
	pseudo, integrity := testKeys(t)
	store := &captureStore{}
	trail := New(store, WithKeys(pseudo, integrity))

	event, err := trail.Record(context.Background(), EventMetricsCollected, "patient-1042", nil)
	require.NoError(t, err)
	require.NoError(t, trail.Verify(&event))

	event.Details["injected"] = "true"
	assert.ErrorIs(t, trail.Verify(&event), ErrSignatureInvalid)
}

func TestTrailPseudonym(t *testing.T) {
	pseudo, integrity := testKeys(t)
	store := &captureStore{}
	trail := New(store, WithKeys(pseudo, integrity))

	event, err := trail.Record(context.Background(), EventMetricsCollected, "patient-1042", nil)
	require.NoError(t, err)

	derived, err := trail.Pseudonym("patient-1042")
	require.NoError(t, err)
	assert.Equal(t, event.Pseudonym, derived, "reader derivation joins with recorded events")

	degraded := New(store, WithKeys(nil, integrity))
	_, err = degraded.Pseudonym("patient-1042")
	assert.Error(t, err)
}

func TestTrailRecordPrincipalIsolation(t *testing.T) {
	pseudo, integrity := testKeys(t)
	store := &captureStore{}
	trail := New(store, WithKeys(pseudo, integrity))

	var raw domain.PrincipalID = "patient-1042"
	event, err := trail.Record(context.Background(), EventMetricsCollected, raw, map[string]string{
		"note": "routine",
	})
	require.NoError(t, err)

	canonical, err := event.Canonical()
	require.NoError(t, err)
	assert.NotContains(t, string(canonical), string(raw), "raw principal never serialized in normal mode")
}
