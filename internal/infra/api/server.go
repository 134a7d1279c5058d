package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"discount-code-engine/internal/domain"
	"discount-code-engine/internal/domain/ports/adapter"
	"discount-code-engine/internal/infra/metrics"
	"discount-code-engine/internal/usecase"
)

// Server exposes the engine's operations over JSON. Issue and confirm are
// called by the student app and partner terminals respectively; status is
// open to any poller.
type Server struct {
	issueUC   *usecase.IssueUseCase
	confirmUC *usecase.ConfirmUseCase
	statusUC  *usecase.StatusUseCase
	sweepUC   *usecase.SweepUseCase
	clock     adapter.Clock
	log       *zerolog.Logger
}

func NewServer(
	issueUC *usecase.IssueUseCase,
	confirmUC *usecase.ConfirmUseCase,
	statusUC *usecase.StatusUseCase,
	sweepUC *usecase.SweepUseCase,
	clock adapter.Clock,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "api.Server").Logger()
	return &Server{issueUC: issueUC, confirmUC: confirmUC, statusUC: statusUC, sweepUC: sweepUC, clock: clock, log: &l}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return Chain(next, TraceID(), RequestLog(s.log))
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/codes", func(r chi.Router) {
		r.Post("/", s.handleIssue)
		r.Post("/confirm", s.handleConfirm)
		r.Get("/{code}", s.handleStatus)
	})
	r.Post("/api/v1/sweep", s.handleSweep)
	return r
}

type issueRequest struct {
	VenueID  string  `json:"venueId"`
	IssuerID *string `json:"issuerId,omitempty"`
}

type issueResponse struct {
	Code      string    `json:"code"`
	Slug      string    `json:"slug"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *Server) handleIssue(w http.ResponseWriter, r *http.Request) {
	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.VenueID == "" {
		writeRejection(w, domain.ErrInvalidArgument)
		return
	}
	rc, err := s.issueUC.Issue(r.Context(), req.VenueID, req.IssuerID)
	if err != nil {
		writeRejection(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, issueResponse{Code: rc.Code, Slug: rc.Slug, ExpiresAt: rc.ExpiresAt})
}

type confirmRequest struct {
	Code    string `json:"code"`
	VenueID string `json:"venueId"`
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRejection(w, domain.ErrInvalidArgument)
		return
	}
	if err := s.confirmUC.Confirm(r.Context(), req.Code, req.VenueID); err != nil {
		if reason, ok := rejectionReason(err); ok {
			metrics.IncConfirmRejection(reason)
		}
		writeRejection(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": "CONFIRMED"})
}

type statusResponse struct {
	Status      string     `json:"status"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	ConfirmedAt *time.Time `json:"confirmedAt,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	rc, err := s.statusUC.Status(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeRejection(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Status:      string(rc.Status),
		ExpiresAt:   rc.ExpiresAt,
		ConfirmedAt: rc.ConfirmedAt,
	})
}

type sweepRequest struct {
	Now *time.Time `json:"now,omitempty"`
}

type sweepResponse struct {
	TransitionedCount int `json:"transitionedCount"`
}

// handleSweep lets the external scheduler trigger an expiry pass. The cutoff
// defaults to the current time.
func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	var req sweepRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeRejection(w, domain.ErrInvalidArgument)
			return
		}
	}
	now := s.clock.Now()
	if req.Now != nil {
		now = *req.Now
	}
	n, err := s.sweepUC.Sweep(r.Context(), now)
	if err != nil {
		writeRejection(w, err)
		return
	}
	if n > 0 {
		metrics.IncCodesExpired(n)
	}
	writeJSON(w, http.StatusOK, sweepResponse{TransitionedCount: n})
}

// rejectionReason maps expected domain outcomes to the stable reason strings
// on the wire.
func rejectionReason(err error) (string, bool) {
	switch {
	case errors.Is(err, domain.ErrCodeNotFound):
		return "NOT_FOUND", true
	case errors.Is(err, domain.ErrCodeAlreadyUsed):
		return "ALREADY_USED", true
	case errors.Is(err, domain.ErrCodeExpired):
		return "EXPIRED", true
	case errors.Is(err, domain.ErrWrongVenue):
		return "WRONG_VENUE", true
	case errors.Is(err, domain.ErrMissingIssuer):
		return "DATA_INTEGRITY", true
	case errors.Is(err, domain.ErrVenueNotFound):
		return "VENUE_NOT_FOUND", true
	case errors.Is(err, domain.ErrRateLimited):
		return "RATE_LIMITED", true
	case errors.Is(err, domain.ErrInvalidArgument):
		return "INVALID_ARGUMENT", true
	}
	return "", false
}

func rejectionStatus(reason string) int {
	switch reason {
	case "NOT_FOUND", "VENUE_NOT_FOUND":
		return http.StatusNotFound
	case "ALREADY_USED":
		return http.StatusConflict
	case "EXPIRED":
		return http.StatusGone
	case "WRONG_VENUE":
		return http.StatusForbidden
	case "DATA_INTEGRITY":
		return http.StatusUnprocessableEntity
	case "RATE_LIMITED":
		return http.StatusTooManyRequests
	case "INVALID_ARGUMENT":
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeRejection(w http.ResponseWriter, err error) {
	reason, ok := rejectionReason(err)
	if !ok {
		// store/connectivity fault; no detail leaks to the caller
		writeJSON(w, http.StatusInternalServerError, map[string]string{"reason": "INTERNAL"})
		return
	}
	writeJSON(w, rejectionStatus(reason), map[string]string{"reason": reason})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
