package consent

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/domain"
	dErrors "github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/domain-errors"
)

// AttestationClaims are the JWT claims carried by a consent attestation.
// The subject is the principal; purpose and granted travel as private claims.
type AttestationClaims struct {
	Purpose Purpose `json:"purpose"`
	Granted bool    `json:"granted"`
	jwt.RegisteredClaims
}

// Attestor issues and validates signed consent attestations so upstream
// services can hand the collector a portable proof of consent.
type Attestor struct {
	signingKey []byte
	issuer     string
}

func NewAttestor(signingKey string, issuer string) *Attestor {
	return &Attestor{
		signingKey: []byte(signingKey),
		issuer:     issuer,
	}
}

// Issue signs an attestation for the principal and purpose.
func (a *Attestor) Issue(principal domain.PrincipalID, purpose Purpose, granted bool, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AttestationClaims{
		Purpose: purpose,
		Granted: granted,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    a.issuer,
			ID:        uuid.NewString(),
		},
	})

	signed, err := token.SignedString(a.signingKey)
	if err != nil {
		return "", dErrors.Wrap(dErrors.CodeInternal, "sign attestation", err)
	}
	return signed, nil
}

// Verify validates the attestation and returns whether consent was granted.
// The token must be bound to the given principal and purpose; an attestation
// for another subject or flow proves nothing here.
func (a *Attestor) Verify(tokenString string, principal domain.PrincipalID, purpose Purpose) (bool, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &AttestationClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return a.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return false, dErrors.New(dErrors.CodeUnauthorized, "attestation has expired")
		}
		return false, dErrors.New(dErrors.CodeUnauthorized, "invalid attestation")
	}
	if !parsed.Valid {
		return false, dErrors.New(dErrors.CodeUnauthorized, "invalid attestation")
	}

	claims, ok := parsed.Claims.(*AttestationClaims)
	if !ok {
		return false, dErrors.New(dErrors.CodeUnauthorized, "invalid attestation claims")
	}
	if claims.Subject != principal.String() {
		return false, dErrors.New(dErrors.CodeUnauthorized, "attestation subject mismatch")
	}
	if claims.Purpose != purpose {
		return false, dErrors.New(dErrors.CodeUnauthorized, "attestation purpose mismatch")
	}
	return claims.Granted, nil
}
