// Package httpapi is the thin HTTP layer. Handlers delegate to domain
// services so transport concerns remain isolated.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"careledger/internal/platform/middleware"
	dErrors "careledger/pkg/domainerrors"
)

// NewRouter wires all endpoints. The audit trail and claim administration
// live under authenticated routes; policy checks happen per handler.
func NewRouter(h *Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)

	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, logger))
		r.Get("/admin/audit-events", h.handleListAuditEvents)
		r.Post("/admin/claims", h.handleGrantClaim)
		r.Delete("/admin/claims", h.handleRevokeClaim)
		r.Post("/patients", h.handleCreatePatient)
	})

	return r
}

// writeError translates domain errors into consistent JSON envelopes.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(dErrors.ToHTTPStatus(code))
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": string(code),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
