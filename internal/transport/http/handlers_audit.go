package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"careledger/internal/audit"
	"careledger/internal/authz"
	"careledger/internal/platform/middleware"
	dErrors "careledger/pkg/domainerrors"
)

// AuditQueryService is the read side of the audit pipeline.
type AuditQueryService interface {
	List(ctx context.Context, filter audit.Filter, page audit.Page) ([]audit.Event, int, error)
}

// PolicyEvaluator decides named authorization predicates per caller.
type PolicyEvaluator interface {
	Evaluate(ctx context.Context, policy string, caller authz.Identity) (bool, error)
}

// Handler holds the transport dependencies.
type Handler struct {
	logger       *slog.Logger
	auditQuery   AuditQueryService
	recorder     *audit.Recorder
	evaluator    PolicyEvaluator
	claimsAdmin  ClaimsAdmin
	claimsCache  ClaimsCache
	jwtValidator middleware.JWTValidator
}

// HandlerOption configures optional handler dependencies.
type HandlerOption func(*Handler)

// WithClaimsCache attaches a cache to evict after claim grants and revokes.
func WithClaimsCache(c ClaimsCache) HandlerOption {
	return func(h *Handler) { h.claimsCache = c }
}

// NewHandler creates the HTTP handler set.
func NewHandler(
	auditQuery AuditQueryService,
	recorder *audit.Recorder,
	evaluator PolicyEvaluator,
	claimsAdmin ClaimsAdmin,
	jwtValidator middleware.JWTValidator,
	logger *slog.Logger,
	opts ...HandlerOption,
) *Handler {
	h := &Handler{
		logger:       logger,
		auditQuery:   auditQuery,
		recorder:     recorder,
		evaluator:    evaluator,
		claimsAdmin:  claimsAdmin,
		jwtValidator: jwtValidator,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type auditEventResponse struct {
	ID          string    `json:"id"`
	ActionName  string    `json:"action_name"`
	Description string    `json:"description"`
	ActorID     string    `json:"actor_id,omitempty"`
	Payload     string    `json:"payload,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type auditListResponse struct {
	Items      []auditEventResponse `json:"items"`
	TotalCount int                  `json:"total_count"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"page_size"`
}

// handleListAuditEvents serves the paginated audit trail, gated by the
// CanViewAuditLog policy.
func (h *Handler) handleListAuditEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caller := middleware.GetIdentity(ctx)

	allowed, err := h.evaluator.Evaluate(ctx, authz.PolicyViewAuditLog, caller)
	if err != nil {
		h.logger.ErrorContext(ctx, "policy evaluation failed",
			"policy", authz.PolicyViewAuditLog,
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
		writeError(w, dErrors.New(dErrors.CodeInternal, "authorization check failed"))
		return
	}
	if !allowed {
		writeError(w, dErrors.New(dErrors.CodeForbidden, "not permitted to view the audit log"))
		return
	}

	filter, page, err := parseAuditQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	items, total, err := h.auditQuery.List(ctx, filter, page)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeBadRequest) {
			writeError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "audit query failed",
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
		writeError(w, dErrors.New(dErrors.CodeInternal, "failed to query audit events"))
		return
	}

	resp := auditListResponse{
		Items:      make([]auditEventResponse, 0, len(items)),
		TotalCount: total,
		Page:       page.Number,
		PageSize:   page.Size,
	}
	for _, e := range items {
		item := auditEventResponse{
			ID:          e.ID.String(),
			ActionName:  e.ActionName,
			Description: e.Description,
			Payload:     e.Payload,
			OccurredAt:  e.OccurredAt,
		}
		if e.ActorID != nil {
			item.ActorID = e.ActorID.String()
		}
		resp.Items = append(resp.Items, item)
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseAuditQuery(r *http.Request) (audit.Filter, audit.Page, error) {
	q := r.URL.Query()

	filter := audit.Filter{ActionName: q.Get("action")}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return audit.Filter{}, audit.Page{}, dErrors.New(dErrors.CodeBadRequest, "invalid 'from' timestamp")
		}
		filter.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return audit.Filter{}, audit.Page{}, dErrors.New(dErrors.CodeBadRequest, "invalid 'to' timestamp")
		}
		filter.To = &t
	}
	if v := q.Get("actor_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return audit.Filter{}, audit.Page{}, dErrors.New(dErrors.CodeBadRequest, "invalid actor_id")
		}
		filter.ActorID = &id
	}

	page := audit.Page{Number: 1, Size: 20}
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return audit.Filter{}, audit.Page{}, dErrors.New(dErrors.CodeBadRequest, "invalid page")
		}
		page.Number = n
	}
	if v := q.Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return audit.Filter{}, audit.Page{}, dErrors.New(dErrors.CodeBadRequest, "invalid page_size")
		}
		page.Size = n
	}
	return filter, page, nil
}
