package audit

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/vault"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/platform/sentinel"
)

func testKeys(t *testing.T) (pseudonym, integrity *vault.KeyHandle) {
	t.Helper()
	v, err := vault.New(bytes.Repeat([]byte{0x42}, 32))
	require.NoError(t, err)
	return v.PseudonymKey(), v.IntegrityKey()
}

func testEvent() Event {
	return Event{
		ID:        "f6b7c1ce-9f5a-4f9e-80f4-61f5f3f05a10",
		Timestamp: time.Date(2026, 5, 12, 9, 30, 0, 0, time.UTC),
		Type:      EventMetricsCollected,
		Pseudonym: "cHNldWRv",
		Details:   map[string]string{"record_count": "3", "redactions": "1"},
	}
}

func TestEventSignAndVerify(t *testing.T) {
	_, integrity := testKeys(t)

	event := testEvent()
	require.False(t, event.Signed())

	require.NoError(t, event.Sign(integrity))
	assert.True(t, event.Signed())
	require.NotEmpty(t, event.Signature)

	_, err := base64.StdEncoding.DecodeString(event.Signature)
	require.NoError(t, err, "signature is standard base64")

	assert.NoError(t, event.Verify(integrity))
}

func TestEventSignTwiceRejected(t *testing.T) {
	_, integrity := testKeys(t)

	event := testEvent()
	require.NoError(t, event.Sign(integrity))

	err := event.Sign(integrity)
	assert.ErrorIs(t, err, sentinel.ErrInvalidState)
}

func TestEventSignatureCoversAllFields(t *testing.T) {
	_, integrity := testKeys(t)

	signed := testEvent()
	require.NoError(t, signed.Sign(integrity))

	mutations := map[string]func(*Event){
		"id":        func(e *Event) { e.ID = "00000000-0000-0000-0000-000000000000" },
		"timestamp": func(e *Event) { e.Timestamp = e.Timestamp.Add(time.Second) },
		"type":      func(e *Event) { e.Type = EventBudgetDenied },
		"pseudonym": func(e *Event) { e.Pseudonym = "c29tZW9uZSBlbHNl" },
		"details":   func(e *Event) { e.Details["record_count"] = "4" },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			tampered := signed
			tampered.Details = make(map[string]string, len(signed.Details))
			for k, v := range signed.Details {
				tampered.Details[k] = v
			}
			mutate(&tampered)
			assert.ErrorIs(t, tampered.Verify(integrity), ErrSignatureInvalid)
		})
	}
}

func TestEventVerifyRejectsMissingOrMalformedSignature(t *testing.T) {
	_, integrity := testKeys(t)

	t.Run("missing", func(t *testing.T) {
		event := testEvent()
		assert.ErrorIs(t, event.Verify(integrity), ErrSignatureInvalid)
	})

	t.Run("not base64", func(t *testing.T) {
		event := testEvent()
		require.NoError(t, event.Sign(integrity))
		event.Signature = "%%% not base64 %%%"
		assert.ErrorIs(t, event.Verify(integrity), ErrSignatureInvalid)
	})
}

func TestEventKeyUnavailable(t *testing.T) {
	event := testEvent()
	assert.ErrorIs(t, event.Sign(nil), vault.ErrKeyUnavailable)
	assert.ErrorIs(t, event.Verify(nil), vault.ErrKeyUnavailable)
}

func TestEventCanonicalExcludesSignature(t *testing.T) {
	_, integrity := testKeys(t)

	event := testEvent()
	before, err := event.Canonical()
	require.NoError(t, err)

	require.NoError(t, event.Sign(integrity))
	after, err := event.Canonical()
	require.NoError(t, err)

	assert.Equal(t, before, after)
}

func TestEventWireFormat(t *testing.T) {
	_, integrity := testKeys(t)

	event := testEvent()
	require.NoError(t, event.Sign(integrity))

	raw, err := json.Marshal(event)
	require.NoError(t, err)
	wire := string(raw)

	order := []string{`"eventId"`, `"timestamp"`, `"eventType"`, `"principalPseudonym"`, `"details"`, `"signature"`}
	last := -1
	for _, field := range order {
		idx := strings.Index(wire, field)
		require.GreaterOrEqual(t, idx, 0, "wire format carries %s", field)
		assert.Greater(t, idx, last, "%s keeps its position", field)
		last = idx
	}

	// A reader holding only the wire form and the key can still verify.
	var decoded Event
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.False(t, decoded.Signed(), "signing state does not travel")
	assert.NoError(t, decoded.Verify(integrity))
}

func TestEventWireFormatOmitsEmptySignature(t *testing.T) {
	raw, err := json.Marshal(testEvent())
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"signature"`)
}

func TestPseudonymize(t *testing.T) {
	pseudoA, integrityA := testKeys(t)

	otherVault, err := vault.New(bytes.Repeat([]byte{0x7F}, 32))
	require.NoError(t, err)
	pseudoB := otherVault.PseudonymKey()

	p1 := Pseudonymize(pseudoA, "patient-1042")
	p2 := Pseudonymize(pseudoA, "patient-1042")
	assert.Equal(t, p1, p2, "stable under one key")

	assert.NotEqual(t, p1, Pseudonymize(pseudoA, "patient-1043"), "distinct principals differ")
	assert.NotEqual(t, p1, Pseudonymize(pseudoB, "patient-1042"), "distinct keys differ")
	assert.NotEqual(t, p1, Pseudonymize(integrityA, "patient-1042"), "pseudonym and integrity keys are independent")

	assert.NotContains(t, p1, "patient-1042", "raw principal never appears")
	_, err = base64.StdEncoding.DecodeString(p1)
	assert.NoError(t, err)
}
