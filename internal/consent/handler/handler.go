package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/consent"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/domain"
	dErrors "github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/domain-errors"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/platform/httputil"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/requestcontext"
)

// Service defines the interface for consent operations.
type Service interface {
	Grant(ctx context.Context, principal domain.PrincipalID, purpose consent.Purpose, ttl time.Duration) (consent.Record, error)
	Revoke(ctx context.Context, principal domain.PrincipalID, purpose consent.Purpose) error
	List(ctx context.Context, principal domain.PrincipalID) ([]consent.Record, error)
}

// Issuer mints portable attestation tokens for granted consent.
type Issuer interface {
	Issue(principal domain.PrincipalID, purpose consent.Purpose, granted bool, ttl time.Duration) (string, error)
}

// Handler handles consent-related endpoints.
type Handler struct {
	consent Service
	issuer  Issuer
	logger  *slog.Logger
}

// New creates a new consent Handler. A nil issuer skips attestation tokens
// in grant responses.
func New(consent Service, issuer Issuer, logger *slog.Logger) *Handler {
	return &Handler{
		consent: consent,
		issuer:  issuer,
		logger:  logger,
	}
}

// Register registers the consent routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/consent", h.handleGrant)
	r.Post("/consent/revoke", h.handleRevoke)
	r.Get("/consent", h.handleList)
}

// GrantRequest is the HTTP request body for POST /consent.
type GrantRequest struct {
	Principal  string `json:"principal"`
	Purpose    string `json:"purpose"`
	TTLSeconds int    `json:"ttl_seconds,omitempty"`
}

// RevokeRequest is the HTTP request body for POST /consent/revoke.
type RevokeRequest struct {
	Principal string `json:"principal"`
	Purpose   string `json:"purpose"`
}

// ConsentResponse is one consent record on the wire.
type ConsentResponse struct {
	Principal   string     `json:"principal"`
	Purpose     string     `json:"purpose"`
	Status      string     `json:"status"`
	GrantedAt   time.Time  `json:"granted_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
	Attestation string     `json:"attestation,omitempty"`
}

func fromRecord(record consent.Record, now time.Time) ConsentResponse {
	resp := ConsentResponse{
		Principal: record.Principal.String(),
		Purpose:   string(record.Purpose),
		Status:    "active",
		GrantedAt: record.GrantedAt,
		RevokedAt: record.RevokedAt,
	}
	if !record.ExpiresAt.IsZero() {
		resp.ExpiresAt = &record.ExpiresAt
	}
	if !record.IsActive(now) {
		resp.Status = "inactive"
	}
	return resp
}

func (h *Handler) handleGrant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.Decode[GrantRequest](w, r)
	if !ok {
		return
	}
	principal, purpose, err := parseSubject(req.Principal, req.Purpose)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.TTLSeconds < 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "ttl_seconds must not be negative"))
		return
	}
	ttl := time.Duration(req.TTLSeconds) * time.Second

	record, err := h.consent.Grant(ctx, principal, purpose, ttl)
	if err != nil {
		h.logger.ErrorContext(ctx, "consent grant failed",
			"request_id", requestID,
			"purpose", purpose,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	resp := fromRecord(record, time.Now())
	if h.issuer != nil {
		token, err := h.issuer.Issue(principal, purpose, true, ttl)
		if err != nil {
			h.logger.ErrorContext(ctx, "attestation issue failed",
				"request_id", requestID,
				"error", err,
			)
			httputil.WriteError(w, err)
			return
		}
		resp.Attestation = token
	}

	h.logger.InfoContext(ctx, "consent granted",
		"request_id", requestID,
		"purpose", purpose,
		"ttl_seconds", req.TTLSeconds,
	)
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.Decode[RevokeRequest](w, r)
	if !ok {
		return
	}
	principal, purpose, err := parseSubject(req.Principal, req.Purpose)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.consent.Revoke(ctx, principal, purpose); err != nil {
		h.logger.WarnContext(ctx, "consent revoke failed",
			"request_id", requestID,
			"purpose", purpose,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "consent revoked",
		"request_id", requestID,
		"purpose", purpose,
	)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	principal := strings.TrimSpace(r.URL.Query().Get("principal"))
	if principal == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "principal is required"))
		return
	}

	records, err := h.consent.List(ctx, domain.PrincipalID(principal))
	if err != nil {
		h.logger.ErrorContext(ctx, "consent list failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	now := time.Now()
	out := make([]ConsentResponse, 0, len(records))
	for _, record := range records {
		out = append(out, fromRecord(record, now))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"consents": out})
}

func parseSubject(principal, purpose string) (domain.PrincipalID, consent.Purpose, error) {
	principal = strings.TrimSpace(principal)
	if principal == "" {
		return "", "", dErrors.New(dErrors.CodeInvalidInput, "principal is required")
	}
	parsed, err := consent.ParsePurpose(purpose)
	if err != nil {
		return "", "", err
	}
	return domain.PrincipalID(principal), parsed, nil
}
