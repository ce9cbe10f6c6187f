package vault

import (
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// KDFParams is the Argon2id cost profile for passphrase-derived roots.
type KDFParams struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
}

// saltSize is the minimum accepted salt length for passphrase derivation.
const saltSize = 16

// DefaultKDFParams returns the build profile's cost parameters. The default
// build carries the expensive production profile; the vaultfast build tag
// swaps in a cheap profile for test suites only.
func DefaultKDFParams() KDFParams {
	return KDFParams{
		Time:      kdfTime,
		MemoryKiB: kdfMemoryKiB,
		Threads:   kdfThreads,
	}
}

// NewSalt returns a fresh random salt for passphrase derivation.
func NewSalt() ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("vault: generate salt: %w", err)
	}
	return salt, nil
}

// DeriveRoot stretches a passphrase into a 32-byte vault root with Argon2id.
// The salt must be at least 16 bytes and should be stored alongside the
// sealed data; it is not secret.
func DeriveRoot(passphrase, salt []byte, p KDFParams) ([]byte, error) {
	if len(passphrase) == 0 {
		return nil, fmt.Errorf("vault: empty passphrase")
	}
	if len(salt) < saltSize {
		return nil, fmt.Errorf("vault: salt must be at least %d bytes, got %d", saltSize, len(salt))
	}
	if p.Time == 0 || p.MemoryKiB == 0 || p.Threads == 0 {
		return nil, fmt.Errorf("vault: KDF parameters must be positive")
	}
	return argon2.IDKey(passphrase, salt, p.Time, p.MemoryKiB, p.Threads, keySize), nil
}
