package vault

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/crypto/hkdf"
)

// keySize is the byte length of every vault subkey.
const keySize = 32

// HKDF info strings for subkey derivation. Each purpose gets its own subkey
// so compromise or misuse of one never crosses into another.
const (
	infoDataKey      = "pain-tracker/vault/v1/data"
	infoWrapKey      = "pain-tracker/vault/v1/wrap"
	infoIntegrityKey = "pain-tracker/vault/v1/integrity"
	infoPseudonymKey = "pain-tracker/vault/v1/pseudonym"
)

// KeyHandle is an opaque reference to key material. The raw bytes never leave
// the vault package; external callers get a fingerprint for display and a
// keyed MAC operation for pseudonymization and signing.
type KeyHandle struct {
	name string
	fp   string
	key  []byte
}

func newKeyHandle(name string, key []byte) *KeyHandle {
	sum := sha256.Sum256(key)
	return &KeyHandle{
		name: name,
		fp:   hex.EncodeToString(sum[:4]),
		key:  key,
	}
}

// Name identifies the handle's purpose.
func (h *KeyHandle) Name() string {
	if h == nil {
		return ""
	}
	return h.name
}

// Fingerprint returns a short, non-reversible identifier for the key.
func (h *KeyHandle) Fingerprint() string {
	if h == nil {
		return ""
	}
	return h.fp
}

// MAC computes a keyed HMAC-SHA-256 over data. The key itself stays inside
// the handle.
func (h *KeyHandle) MAC(data []byte) []byte {
	if h == nil || len(h.key) == 0 {
		return nil
	}
	mac := hmac.New(sha256.New, h.key)
	mac.Write(data)
	return mac.Sum(nil)
}

// Usable reports whether the handle still holds key material.
func (h *KeyHandle) Usable() bool {
	return h != nil && len(h.key) > 0
}

// String renders the handle without exposing key bytes.
func (h *KeyHandle) String() string {
	if h == nil {
		return "key(nil)"
	}
	return fmt.Sprintf("key(%s#%s)", h.name, h.fp)
}

// GoString keeps %#v output free of key bytes.
func (h *KeyHandle) GoString() string {
	return h.String()
}

// LogValue keeps slog output free of key bytes.
func (h *KeyHandle) LogValue() slog.Value {
	return slog.StringValue(h.String())
}

// MarshalJSON renders the fingerprint only. Handles are not serializable key
// material; use WrapKey for transport.
func (h *KeyHandle) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", h.String())), nil
}

// zero wipes the key material. The handle reports unusable afterwards.
func (h *KeyHandle) zero() {
	if h == nil {
		return
	}
	for i := range h.key {
		h.key[i] = 0
	}
	h.key = nil
}

// deriveSubkey expands the root into a purpose-bound subkey via HKDF-SHA-256.
func deriveSubkey(root []byte, info string) ([]byte, error) {
	r := hkdf.New(sha256.New, root, nil, []byte(info))
	key := make([]byte, keySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("hkdf expand %s: %w", info, err)
	}
	return key, nil
}
