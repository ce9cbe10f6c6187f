package audit

import (
	"crypto/hmac"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/vault"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/platform/sentinel"
)

// EventType classifies an audit event.
type EventType string

const (
	EventMetricsCollected EventType = "metrics.collected"
	EventNoiseApplied     EventType = "metrics.noise_applied"
	EventBudgetDenied     EventType = "budget.denied"
	EventConsentRejected  EventType = "consent.rejected"
	EventIntegrityFailure EventType = "vault.integrity_failure"

	// EventUnpseudonymized is the degraded-mode type emitted when the
	// pseudonym key is unavailable. It carries the plaintext principal in a
	// clearly named detail field so the gap stays visible, never silent.
	EventUnpseudonymized EventType = "audit.unpseudonymized"
)

// ErrSignatureInvalid means an event signature did not verify.
var ErrSignatureInvalid = errors.New("audit signature invalid")

// Event is the wire format for one audit entry. Details values are plain
// strings so canonical serialization stays deterministic; encoding/json
// sorts map keys on marshal.
type Event struct {
	ID        string            `json:"eventId"`
	Timestamp time.Time         `json:"timestamp"`
	Type      EventType         `json:"eventType"`
	Pseudonym string            `json:"principalPseudonym"`
	Details   map[string]string `json:"details"`
	Signature string            `json:"signature,omitempty"`

	signed bool
}

// unsignedEvent mirrors Event without the signature. Its marshaled form is
// exactly what the signature covers.
type unsignedEvent struct {
	ID        string            `json:"eventId"`
	Timestamp time.Time         `json:"timestamp"`
	Type      EventType         `json:"eventType"`
	Pseudonym string            `json:"principalPseudonym"`
	Details   map[string]string `json:"details"`
}

// Canonical returns the bytes the signature covers.
func (e *Event) Canonical() ([]byte, error) {
	raw, err := json.Marshal(unsignedEvent{
		ID:        e.ID,
		Timestamp: e.Timestamp,
		Type:      e.Type,
		Pseudonym: e.Pseudonym,
		Details:   e.Details,
	})
	if err != nil {
		return nil, fmt.Errorf("audit: canonicalize event: %w", err)
	}
	return raw, nil
}

// Sign computes the event signature with the integrity key. An event signs
// once; a second call is an invalid state transition.
func (e *Event) Sign(key *vault.KeyHandle) error {
	if e.signed {
		return fmt.Errorf("audit: event %s already signed: %w", e.ID, sentinel.ErrInvalidState)
	}
	if !key.Usable() {
		return fmt.Errorf("audit: sign event: %w", vault.ErrKeyUnavailable)
	}
	canonical, err := e.Canonical()
	if err != nil {
		return err
	}
	e.Signature = base64.StdEncoding.EncodeToString(key.MAC(canonical))
	e.signed = true
	return nil
}

// Signed reports whether the signature has been computed for this event.
func (e *Event) Signed() bool {
	return e.signed
}

// Verify recomputes the signature and compares in constant time.
func (e *Event) Verify(key *vault.KeyHandle) error {
	if !key.Usable() {
		return fmt.Errorf("audit: verify event: %w", vault.ErrKeyUnavailable)
	}
	if e.Signature == "" {
		return fmt.Errorf("audit: event %s carries no signature: %w", e.ID, ErrSignatureInvalid)
	}
	got, err := base64.StdEncoding.DecodeString(e.Signature)
	if err != nil {
		return fmt.Errorf("audit: event %s signature encoding: %w", e.ID, ErrSignatureInvalid)
	}
	canonical, err := e.Canonical()
	if err != nil {
		return err
	}
	if !hmac.Equal(got, key.MAC(canonical)) {
		return fmt.Errorf("audit: event %s: %w", e.ID, ErrSignatureInvalid)
	}
	return nil
}

// Pseudonymize derives the stable pseudonym for a principal under the given
// key. Trail writers and event readers share this so joins line up.
func Pseudonymize(key *vault.KeyHandle, principal string) string {
	return base64.StdEncoding.EncodeToString(key.MAC([]byte(principal)))
}
