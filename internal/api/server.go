// Package api provides the HTTP server for the circulation core.
// It exposes a small JSON API over the catalog, patrons, loans, fines
// and the overdue sweep, plus a Prometheus /metrics endpoint.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/circulo/circulo/internal/app/circulation"
	"github.com/circulo/circulo/internal/domain"
)

// Server is the circulation HTTP API server.
type Server struct {
	svc            *circulation.Service
	metricsEnabled bool
}

// NewServer creates a new API server around the circulation service.
func NewServer(svc *circulation.Service) *Server {
	return &Server{svc: svc}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/authors", s.handleCreateAuthor)

		r.Post("/titles", s.handleCreateTitle)
		r.Get("/titles", s.handleListTitles)
		r.Get("/titles/{id}/availability", s.handleTitleAvailability)

		r.Post("/patrons", s.handleCreatePatron)
		r.Get("/patrons", s.handleListPatrons)
		r.Post("/patrons/{id}/deactivate", s.handleDeactivatePatron)

		r.Post("/loans", s.handleCreateDraft)
		r.Get("/loans/{code}", s.handleGetLoan)
		r.Post("/loans/{code}/patron", s.handleAssignPatron)
		r.Post("/loans/{code}/activate", s.handleActivate)
		r.Post("/loans/{code}/return", s.handleReturn)
		r.Get("/loans/{code}/fines", s.handleLoanFines)
		r.Post("/loans/{code}/notify", s.handleNotify)

		r.Post("/fines/{code}/pay", s.handlePayFine)

		r.Post("/sweep", s.handleSweep)
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// ─── JSON Helpers ───────────────────────────────────────────────────────────

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    "error",
		},
	})
}

// writeDomainError maps a service error onto an HTTP status.
func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, httpStatus(err), err.Error())
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidFormat),
		errors.Is(err, domain.ErrInvalidRegion),
		errors.Is(err, domain.ErrInvalidChecksum):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAlreadyActivated),
		errors.Is(err, domain.ErrMissingPatron),
		errors.Is(err, domain.ErrNotReturnable),
		errors.Is(err, domain.ErrNoCopiesAvailable),
		errors.Is(err, domain.ErrReferentialBlock):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotificationFailed):
		return http.StatusBadGateway
	default:
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			return http.StatusBadRequest
		}
		return http.StatusInternalServerError
	}
}
