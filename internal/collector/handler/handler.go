package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/collector"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/consent"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/vault"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/domain"
	dErrors "github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/domain-errors"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/platform/httputil"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/collector-mocks.go -package=mocks Service

// Service defines the collection operations exposed over HTTP.
type Service interface {
	Collect(ctx context.Context, records []domain.Record, opts collector.Options) (collector.Summary, error)
	CollectSealed(ctx context.Context, sealed []vault.Envelope, opts collector.Options) (collector.Summary, error)
	CollectBatch(ctx context.Context, items []collector.BatchItem, limit int) []collector.BatchResult
}

// Attestor verifies consent attestation tokens presented in place of an
// explicit consent flag.
type Attestor interface {
	Verify(token string, principal domain.PrincipalID, purpose consent.Purpose) (bool, error)
}

// Handler wires collection endpoints to the collector service.
type Handler struct {
	service  Service
	attestor Attestor
	logger   *slog.Logger
}

// New constructs a collection handler. A nil attestor rejects attestation
// tokens; callers must then send the consent flag explicitly.
func New(service Service, attestor Attestor, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		attestor: attestor,
		logger:   logger,
	}
}

// Register mounts collection endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/collect", h.HandleCollect)
	r.Post("/collect/sealed", h.HandleCollectSealed)
	r.Post("/collect/batch", h.HandleCollectBatch)
}

// HandleCollect handles POST /collect requests.
func (h *Handler) HandleCollect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.Decode[CollectRequest](w, r)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	granted, err := h.resolveConsent(req.ParsedPrincipal(), req.ConsentGranted, req.ConsentAttestation)
	if err != nil {
		h.logger.WarnContext(ctx, "consent attestation rejected",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	summary, err := h.service.Collect(ctx, req.Records, collector.Options{
		Principal:           req.ParsedPrincipal(),
		ConsentGranted:      granted,
		Sanitize:            req.Sanitize,
		DifferentialPrivacy: req.DifferentialPrivacy,
		NoiseEpsilon:        req.NoiseEpsilon,
	})
	if err != nil {
		err = translateError(err)
		h.logger.ErrorContext(ctx, "collection failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "metrics collected",
		"request_id", requestID,
		"records", len(req.Records),
		"redactions", summary.RedactionCount,
		"noise_injected", summary.NoiseInjected,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromSummary(summary))
}

// HandleCollectSealed handles POST /collect/sealed requests.
func (h *Handler) HandleCollectSealed(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.Decode[CollectSealedRequest](w, r)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	granted, err := h.resolveConsent(req.ParsedPrincipal(), req.ConsentGranted, req.ConsentAttestation)
	if err != nil {
		h.logger.WarnContext(ctx, "consent attestation rejected",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	summary, err := h.service.CollectSealed(ctx, req.Envelopes, collector.Options{
		Principal:           req.ParsedPrincipal(),
		ConsentGranted:      granted,
		Sanitize:            req.Sanitize,
		DifferentialPrivacy: req.DifferentialPrivacy,
		NoiseEpsilon:        req.NoiseEpsilon,
	})
	if err != nil {
		err = translateError(err)
		h.logger.ErrorContext(ctx, "sealed collection failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "sealed metrics collected",
		"request_id", requestID,
		"envelopes", len(req.Envelopes),
		"redactions", summary.RedactionCount,
		"noise_injected", summary.NoiseInjected,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromSummary(summary))
}

// HandleCollectBatch handles POST /collect/batch requests.
func (h *Handler) HandleCollectBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.Decode[CollectBatchRequest](w, r)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	items := make([]collector.BatchItem, len(req.Items))
	for i := range req.Items {
		item := &req.Items[i]
		granted, err := h.resolveConsent(item.ParsedPrincipal(), item.ConsentGranted, item.ConsentAttestation)
		if err != nil {
			// A bad token demotes that item to not granted rather than
			// failing the whole batch.
			h.logger.WarnContext(ctx, "batch attestation rejected",
				"request_id", requestID,
				"index", i,
				"error", err,
			)
			granted = false
		}
		items[i] = collector.BatchItem{
			Records: item.Records,
			Options: collector.Options{
				Principal:           item.ParsedPrincipal(),
				ConsentGranted:      granted,
				Sanitize:            item.Sanitize,
				DifferentialPrivacy: item.DifferentialPrivacy,
				NoiseEpsilon:        item.NoiseEpsilon,
			},
		}
	}

	results := h.service.CollectBatch(ctx, items, req.Concurrency)

	h.logger.InfoContext(ctx, "batch collected",
		"request_id", requestID,
		"items", len(items),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromBatchResults(results))
}

// resolveConsent settles the effective consent decision for one item. An
// attestation token is only consulted when the explicit flag is false.
func (h *Handler) resolveConsent(principal domain.PrincipalID, granted bool, token string) (bool, error) {
	if granted || token == "" {
		return granted, nil
	}
	if h.attestor == nil {
		return false, dErrors.New(dErrors.CodeInvalidInput, "consent attestations are not accepted")
	}
	return h.attestor.Verify(token, principal, consent.PurposeMetrics)
}

// translateError maps pipeline sentinels onto coded domain errors so the
// response envelope carries a stable classification.
func translateError(err error) error {
	switch {
	case errors.Is(err, collector.ErrConsentRequired):
		return dErrors.New(dErrors.CodeConsentRequired, "consent not granted for metrics collection")
	case errors.Is(err, vault.ErrIntegrity):
		return dErrors.Wrap(dErrors.CodeIntegrityViolation, "sealed record failed integrity verification", err)
	case errors.Is(err, vault.ErrDecrypt), errors.Is(err, vault.ErrEnvelopeVersion):
		return dErrors.Wrap(dErrors.CodeDecryptionFailed, "sealed record could not be opened", err)
	}
	return err
}
