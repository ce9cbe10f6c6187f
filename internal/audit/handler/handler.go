package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/audit"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/internal/vault"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/domain"
	dErrors "github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/domain-errors"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/platform/httputil"
	"github.com/CrisisCore-Systems/pain-tracker-sub006/pkg/requestcontext"
)

// Reader lists stored audit events. The memory and Postgres stores satisfy
// it; the Kafka stream store does not, its events are consumed downstream.
type Reader interface {
	ListByPseudonym(ctx context.Context, pseudonym string, limit int) ([]audit.Event, error)
	ListRecent(ctx context.Context, limit int) ([]audit.Event, error)
}

// Verifier resolves principals to pseudonyms and checks event signatures.
// The audit Trail satisfies it; key material stays on the server side.
type Verifier interface {
	Pseudonym(principal domain.PrincipalID) (string, error)
	Verify(event *audit.Event) error
}

// Handler serves read-only audit inspection endpoints.
type Handler struct {
	reader   Reader
	verifier Verifier
	logger   *slog.Logger
}

// New constructs an audit Handler.
func New(reader Reader, verifier Verifier, logger *slog.Logger) *Handler {
	return &Handler{
		reader:   reader,
		verifier: verifier,
		logger:   logger,
	}
}

// Register mounts the audit routes on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/audit/events", h.handleListByPrincipal)
	r.Get("/audit/events/recent", h.handleListRecent)
}

// EventResponse is one audit event on the wire. The signature itself stays
// server-side; clients get the verification outcome instead.
type EventResponse struct {
	ID             string            `json:"event_id"`
	Timestamp      time.Time         `json:"timestamp"`
	Type           string            `json:"event_type"`
	Pseudonym      string            `json:"principal_pseudonym"`
	Details        map[string]string `json:"details"`
	SignatureValid bool              `json:"signature_valid"`
}

// EventsResponse wraps one page of events.
type EventsResponse struct {
	Events []EventResponse `json:"events"`
	Total  int             `json:"total"`
}

func (h *Handler) handleListByPrincipal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	principal := strings.TrimSpace(r.URL.Query().Get("principal"))
	if principal == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "principal is required"))
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	pseudonym, err := h.verifier.Pseudonym(domain.PrincipalID(principal))
	if err != nil {
		if errors.Is(err, vault.ErrKeyUnavailable) {
			err = dErrors.New(dErrors.CodeUnavailable, "pseudonym key unavailable")
		}
		httputil.WriteError(w, err)
		return
	}

	events, err := h.reader.ListByPseudonym(ctx, pseudonym, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "audit event list failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(dErrors.CodeInternal, "list audit events", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.page(events))
}

func (h *Handler) handleListRecent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	limit, err := parseLimit(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	events, err := h.reader.ListRecent(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "audit recent list failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(dErrors.CodeInternal, "list recent audit events", err))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.page(events))
}

// page verifies each event against the trail key on the way out, so tampered
// or unsigned rows are visible to operators without failing the whole read.
func (h *Handler) page(events []audit.Event) EventsResponse {
	out := make([]EventResponse, 0, len(events))
	for i := range events {
		event := events[i]
		out = append(out, EventResponse{
			ID:             event.ID,
			Timestamp:      event.Timestamp,
			Type:           string(event.Type),
			Pseudonym:      event.Pseudonym,
			Details:        event.Details,
			SignatureValid: h.verifier.Verify(&event) == nil,
		})
	}
	return EventsResponse{Events: out, Total: len(out)}
}

func parseLimit(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "limit must be a non-negative integer")
	}
	return limit, nil
}
