// Package vault provides authenticated encryption and key lifecycle for
// records at rest. Sealed data travels as a versioned Envelope; every
// envelope carries a separate keyed integrity tag that is verified before
// any decryption is attempted.
package vault

import (
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/platform/metrics"
)

// Sentinel errors for crypto outcomes. Callers branch with errors.Is; the
// distinction between integrity and decryption failures is load-bearing and
// never collapsed.
var (
	// ErrIntegrity means the envelope's integrity tag did not verify. The
	// ciphertext was not decrypted.
	ErrIntegrity = errors.New("integrity tag mismatch")
	// ErrDecrypt means the AEAD rejected the ciphertext after the integrity
	// tag verified.
	ErrDecrypt = errors.New("decryption failed")
	// ErrEnvelopeVersion means the envelope was sealed under an unknown or
	// mismatched format version.
	ErrEnvelopeVersion = errors.New("unsupported envelope version")
	// ErrKeyUnavailable means the vault's key material is missing or zeroized.
	ErrKeyUnavailable = errors.New("key unavailable")
	// ErrEncryptionUnavailable means no usable vault is configured.
	ErrEncryptionUnavailable = errors.New("encryption unavailable")
)

// Vault holds the working key set. Construct with New; the zero value is not
// usable.
type Vault struct {
	suite     Suite
	version   string
	dataAEAD  cipher.AEAD
	wrapAEAD  cipher.AEAD
	integrity *KeyHandle
	pseudonym *KeyHandle
	dataKey   *KeyHandle
	wrapKey   *KeyHandle

	events  *eventRing
	logger  *slog.Logger
	metrics *metrics.Metrics
	closed  bool
}

// Option configures a Vault.
type Option func(*Vault)

// WithSuite selects the AEAD suite. Default is AES-256-GCM.
func WithSuite(s Suite) Option {
	return func(v *Vault) {
		v.suite = s
	}
}

// WithLogger sets a logger for security-relevant warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Vault) {
		v.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(v *Vault) {
		v.metrics = m
	}
}

// WithEventCapacity bounds the security-event ring. Default 256.
func WithEventCapacity(n int) Option {
	return func(v *Vault) {
		v.events = newEventRing(n)
	}
}

// New builds a vault from a 32-byte root secret. The root is expanded into
// purpose-bound subkeys; the caller's slice is copied and may be discarded.
func New(root []byte, opts ...Option) (*Vault, error) {
	if len(root) != keySize {
		return nil, fmt.Errorf("vault: root must be %d bytes, got %d", keySize, len(root))
	}

	v := &Vault{
		suite:  SuiteAESGCM,
		events: newEventRing(0),
	}
	for _, opt := range opts {
		opt(v)
	}
	if !v.suite.valid() {
		return nil, fmt.Errorf("vault: unknown cipher suite %q", v.suite)
	}
	v.version = v.suite.version()

	rootCopy := make([]byte, keySize)
	copy(rootCopy, root)

	for _, sub := range []struct {
		info string
		dst  **KeyHandle
	}{
		{infoDataKey, &v.dataKey},
		{infoWrapKey, &v.wrapKey},
		{infoIntegrityKey, &v.integrity},
		{infoPseudonymKey, &v.pseudonym},
	} {
		key, err := deriveSubkey(rootCopy, sub.info)
		if err != nil {
			return nil, fmt.Errorf("vault: init keys: %w", err)
		}
		*sub.dst = newKeyHandle(sub.info, key)
	}
	for i := range rootCopy {
		rootCopy[i] = 0
	}

	var err error
	if v.dataAEAD, err = v.suite.newAEAD(v.dataKey.key); err != nil {
		return nil, fmt.Errorf("vault: init data cipher: %w", err)
	}
	if v.wrapAEAD, err = v.suite.newAEAD(v.wrapKey.key); err != nil {
		return nil, fmt.Errorf("vault: init wrap cipher: %w", err)
	}
	return v, nil
}

// NewFromPassphrase derives the root from a passphrase and salt using the
// build profile's Argon2id parameters, then constructs the vault.
func NewFromPassphrase(passphrase, salt []byte, opts ...Option) (*Vault, error) {
	root, err := DeriveRoot(passphrase, salt, DefaultKDFParams())
	if err != nil {
		return nil, err
	}
	defer func() {
		for i := range root {
			root[i] = 0
		}
	}()
	return New(root, opts...)
}

// Seal encrypts plaintext under the data key with a fresh random nonce and
// attaches a separate keyed integrity tag over the envelope contents.
func (v *Vault) Seal(plaintext []byte) (Envelope, error) {
	if v == nil {
		return Envelope{}, ErrEncryptionUnavailable
	}
	if v.closed || !v.dataKey.Usable() {
		return Envelope{}, fmt.Errorf("seal: %w", ErrEncryptionUnavailable)
	}
	return v.seal(v.dataAEAD, purposeData, plaintext)
}

// Open verifies the envelope's integrity tag and, only after it passes,
// decrypts the ciphertext.
func (v *Vault) Open(env Envelope) ([]byte, error) {
	if v == nil {
		return nil, ErrEncryptionUnavailable
	}
	if v.closed || !v.dataKey.Usable() {
		return nil, fmt.Errorf("open: %w", ErrKeyUnavailable)
	}
	return v.open(v.dataAEAD, purposeData, env)
}

// WrapKey seals another key's material under the vault's wrap key so it can
// be stored or transported inside an envelope.
func (v *Vault) WrapKey(handle *KeyHandle) (Envelope, error) {
	if v == nil {
		return Envelope{}, ErrEncryptionUnavailable
	}
	if v.closed || !v.wrapKey.Usable() {
		return Envelope{}, fmt.Errorf("wrap key: %w", ErrEncryptionUnavailable)
	}
	if !handle.Usable() {
		return Envelope{}, fmt.Errorf("wrap key: %w", ErrKeyUnavailable)
	}
	payload, err := json.Marshal(wrapPayload{Name: handle.name, Key: handle.key})
	if err != nil {
		return Envelope{}, fmt.Errorf("wrap key: encode: %w", err)
	}
	return v.seal(v.wrapAEAD, purposeWrap, payload)
}

// UnwrapKey opens a wrapped key envelope and returns a fresh handle.
func (v *Vault) UnwrapKey(env Envelope) (*KeyHandle, error) {
	if v == nil {
		return nil, ErrEncryptionUnavailable
	}
	if v.closed || !v.wrapKey.Usable() {
		return nil, fmt.Errorf("unwrap key: %w", ErrKeyUnavailable)
	}
	payload, err := v.open(v.wrapAEAD, purposeWrap, env)
	if err != nil {
		v.securityEvent(EventUnwrapFailure, "key unwrap rejected")
		return nil, err
	}
	var wp wrapPayload
	if err := json.Unmarshal(payload, &wp); err != nil {
		v.securityEvent(EventUnwrapFailure, "wrapped payload malformed")
		return nil, fmt.Errorf("unwrap key: decode: %w", err)
	}
	return newKeyHandle(wp.Name, wp.Key), nil
}

type wrapPayload struct {
	Name string `json:"name"`
	Key  []byte `json:"key"`
}

func (v *Vault) seal(aead cipher.AEAD, purpose macPurpose, plaintext []byte) (Envelope, error) {
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return Envelope{}, fmt.Errorf("seal: nonce: %w", err)
	}
	ciphertext := aead.Seal(nil, nonce, plaintext, nil)
	tag := v.integrity.MAC(macInput(purpose, v.version, nonce, ciphertext))
	return Envelope{
		Version:    v.version,
		Ciphertext: ciphertext,
		Nonce:      nonce,
		Tag:        tag,
	}, nil
}

func (v *Vault) open(aead cipher.AEAD, purpose macPurpose, env Envelope) ([]byte, error) {
	if env.Version != v.version {
		v.securityEvent(EventEnvelopeVersion, fmt.Sprintf("envelope version %q, suite expects %q", env.Version, v.version))
		return nil, fmt.Errorf("open: version %q: %w", env.Version, ErrEnvelopeVersion)
	}

	want := v.integrity.MAC(macInput(purpose, env.Version, env.Nonce, env.Ciphertext))
	if !hmac.Equal(want, env.Tag) {
		v.securityEvent(EventIntegrityMismatch, "envelope integrity tag mismatch")
		return nil, fmt.Errorf("open: %w", ErrIntegrity)
	}

	plaintext, err := aead.Open(nil, env.Nonce, env.Ciphertext, nil)
	if err != nil {
		v.securityEvent(EventDecryptFailure, "aead rejected ciphertext")
		return nil, fmt.Errorf("open: %w", ErrDecrypt)
	}
	return plaintext, nil
}

// IntegrityKey returns the handle used for envelope tags and audit
// signatures.
func (v *Vault) IntegrityKey() *KeyHandle {
	if v == nil {
		return nil
	}
	return v.integrity
}

// PseudonymKey returns the handle used to pseudonymize principal IDs.
func (v *Vault) PseudonymKey() *KeyHandle {
	if v == nil {
		return nil
	}
	return v.pseudonym
}

// SecurityEvents returns a snapshot of the bounded event ring, oldest first.
func (v *Vault) SecurityEvents() []SecurityEvent {
	if v == nil {
		return nil
	}
	return v.events.snapshot()
}

// DroppedSecurityEvents reports how many events were discarded to keep the
// ring bounded.
func (v *Vault) DroppedSecurityEvents() int64 {
	if v == nil {
		return 0
	}
	return v.events.droppedCount()
}

// Close zeroizes all key material. The vault is unusable afterwards.
func (v *Vault) Close() error {
	if v == nil || v.closed {
		return nil
	}
	v.closed = true
	v.dataKey.zero()
	v.wrapKey.zero()
	v.integrity.zero()
	v.pseudonym.zero()
	v.dataAEAD = nil
	v.wrapAEAD = nil
	v.securityEvent(EventKeysZeroized, "vault closed")
	return nil
}

func (v *Vault) securityEvent(kind, detail string) {
	v.events.record(SecurityEvent{Time: time.Now().UTC(), Kind: kind, Detail: detail})
	v.metrics.IncVaultSecurityEvent(kind)
	if v.logger != nil {
		v.logger.Warn("vault security event", "kind", kind, "detail", detail)
	}
}
