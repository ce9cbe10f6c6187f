package consent

import (
	"time"

	"github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/domain"
	dErrors "github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/domain-errors"
)

// Purpose labels why data is processed. Purpose binding allows selective
// revocation without affecting other flows.
type Purpose string

const (
	// PurposeMetrics covers wellness metric collection and derivation.
	PurposeMetrics Purpose = "metrics_collection"
	// PurposeResearch covers aggregate research exports.
	PurposeResearch Purpose = "research_export"
)

// ParsePurpose validates a wire-format purpose string.
func ParsePurpose(s string) (Purpose, error) {
	switch Purpose(s) {
	case PurposeMetrics, PurposeResearch:
		return Purpose(s), nil
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown consent purpose %q", s)
}

// Record captures a principal's decision for a specific purpose.
type Record struct {
	Principal domain.PrincipalID
	Purpose   Purpose
	GrantedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// IsActive returns true when consent is currently valid.
func (r Record) IsActive(now time.Time) bool {
	if r.RevokedAt != nil && !r.RevokedAt.After(now) {
		return false
	}
	return r.ExpiresAt.IsZero() || now.Before(r.ExpiresAt)
}
