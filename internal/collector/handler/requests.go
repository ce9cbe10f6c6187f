package handler

import (
	"errors"
	"strings"

	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/vault"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/domain"
	dErrors "github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/domain-errors"
)

// CollectRequest is the HTTP request body for POST /collect. Exactly one of
// consent_granted or consent_attestation conveys the consent decision.
type CollectRequest struct {
	Principal           string          `json:"principal"`
	Records             []domain.Record `json:"records"`
	ConsentGranted      bool            `json:"consent_granted"`
	ConsentAttestation  string          `json:"consent_attestation,omitempty"`
	Sanitize            *bool           `json:"sanitize,omitempty"`
	DifferentialPrivacy *bool           `json:"differential_privacy,omitempty"`
	NoiseEpsilon        *float64        `json:"noise_epsilon,omitempty"`

	// Parsed values (populated by Validate)
	parsedPrincipal domain.PrincipalID
}

// Validate validates and parses the request.
func (r *CollectRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request body is required")
	}

	r.Principal = strings.TrimSpace(r.Principal)
	if r.Principal == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "principal is required")
	}
	r.parsedPrincipal = domain.PrincipalID(r.Principal)

	if len(r.Records) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "records are required")
	}
	if r.NoiseEpsilon != nil && *r.NoiseEpsilon <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "noise_epsilon must be positive")
	}

	return nil
}

// ParsedPrincipal returns the validated principal identifier.
func (r *CollectRequest) ParsedPrincipal() domain.PrincipalID {
	return r.parsedPrincipal
}

// CollectSealedRequest is the HTTP request body for POST /collect/sealed.
// Records arrive as encrypted envelopes and are only opened after the
// consent gate passes.
type CollectSealedRequest struct {
	Principal           string           `json:"principal"`
	Envelopes           []vault.Envelope `json:"envelopes"`
	ConsentGranted      bool             `json:"consent_granted"`
	ConsentAttestation  string           `json:"consent_attestation,omitempty"`
	Sanitize            *bool            `json:"sanitize,omitempty"`
	DifferentialPrivacy *bool            `json:"differential_privacy,omitempty"`
	NoiseEpsilon        *float64         `json:"noise_epsilon,omitempty"`

	parsedPrincipal domain.PrincipalID
}

// Validate validates and parses the request.
func (r *CollectSealedRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request body is required")
	}

	r.Principal = strings.TrimSpace(r.Principal)
	if r.Principal == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "principal is required")
	}
	r.parsedPrincipal = domain.PrincipalID(r.Principal)

	if len(r.Envelopes) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "envelopes are required")
	}
	if r.NoiseEpsilon != nil && *r.NoiseEpsilon <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "noise_epsilon must be positive")
	}

	return nil
}

// ParsedPrincipal returns the validated principal identifier.
func (r *CollectSealedRequest) ParsedPrincipal() domain.PrincipalID {
	return r.parsedPrincipal
}

// CollectBatchRequest is the HTTP request body for POST /collect/batch.
type CollectBatchRequest struct {
	Items       []CollectRequest `json:"items"`
	Concurrency int              `json:"concurrency,omitempty"`
}

// Validate validates the batch and every item in it. Item errors carry the
// offending index so clients can fix the right entry.
func (r *CollectBatchRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "request body is required")
	}
	if len(r.Items) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "items are required")
	}
	if r.Concurrency < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "concurrency must not be negative")
	}
	for i := range r.Items {
		if err := r.Items[i].Validate(); err != nil {
			return dErrors.Newf(dErrors.CodeInvalidInput, "items[%d]: %s", i, errMessage(err))
		}
	}
	return nil
}

func errMessage(err error) string {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return de.Message()
	}
	return err.Error()
}
