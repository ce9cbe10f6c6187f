package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Suite selects the AEAD used for sealing. The envelope version encodes the
// suite so Open can reject envelopes sealed under a different one.
type Suite string

const (
	SuiteAESGCM   Suite = "aes-gcm"
	SuiteChaCha20 Suite = "chacha20"
)

// Envelope versions, one per suite. New suites get new versions; versions are
// never reused.
const (
	versionAESGCM   = "v1"
	versionChaCha20 = "v2"
)

func (s Suite) version() string {
	switch s {
	case SuiteChaCha20:
		return versionChaCha20
	default:
		return versionAESGCM
	}
}

func (s Suite) valid() bool {
	return s == SuiteAESGCM || s == SuiteChaCha20
}

// newAEAD builds the AEAD for this suite from a 32-byte key.
func (s Suite) newAEAD(key []byte) (cipher.AEAD, error) {
	switch s {
	case SuiteAESGCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("aes cipher: %w", err)
		}
		aead, err := cipher.NewGCM(block)
		if err != nil {
			return nil, fmt.Errorf("gcm mode: %w", err)
		}
		return aead, nil
	case SuiteChaCha20:
		aead, err := chacha20poly1305.New(key)
		if err != nil {
			return nil, fmt.Errorf("chacha20poly1305: %w", err)
		}
		return aead, nil
	default:
		return nil, fmt.Errorf("unknown cipher suite %q", s)
	}
}
