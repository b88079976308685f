package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"careledger/internal/audit"
	"careledger/internal/authz"
	"careledger/internal/platform/middleware"
	dErrors "careledger/pkg/domainerrors"
)

// ClaimsAdmin is the write side of the claims store.
type ClaimsAdmin interface {
	Grant(ctx context.Context, subjectID uuid.UUID, claim authz.AccessClaim) error
	Revoke(ctx context.Context, subjectID uuid.UUID, claim authz.AccessClaim) error
}

// ClaimsCache evicts cached claims after an administrative change so a grant
// or revoke takes effect immediately instead of after the TTL.
type ClaimsCache interface {
	Invalidate(ctx context.Context, subjectID uuid.UUID)
}

type claimRequest struct {
	SubjectID  string `json:"subject_id"`
	ClaimType  string `json:"claim_type"`
	ClaimValue string `json:"claim_value"`
}

func (r claimRequest) parse() (uuid.UUID, authz.AccessClaim, error) {
	subjectID, err := uuid.Parse(r.SubjectID)
	if err != nil {
		return uuid.Nil, authz.AccessClaim{}, dErrors.New(dErrors.CodeBadRequest, "invalid subject_id")
	}
	if strings.TrimSpace(r.ClaimType) == "" || strings.TrimSpace(r.ClaimValue) == "" {
		return uuid.Nil, authz.AccessClaim{}, dErrors.New(dErrors.CodeBadRequest, "claim_type and claim_value are required")
	}
	return subjectID, authz.AccessClaim{Type: r.ClaimType, Value: r.ClaimValue}, nil
}

// handleGrantClaim grants an access claim to a subject, gated by the
// CanManagePrivilegedAccounts policy.
func (h *Handler) handleGrantClaim(w http.ResponseWriter, r *http.Request) {
	h.handleClaimChange(w, r, "claim.grant", h.claimsAdmin.Grant)
}

// handleRevokeClaim removes an access claim from a subject, gated by the
// CanManagePrivilegedAccounts policy.
func (h *Handler) handleRevokeClaim(w http.ResponseWriter, r *http.Request) {
	h.handleClaimChange(w, r, "claim.revoke", h.claimsAdmin.Revoke)
}

func (h *Handler) handleClaimChange(
	w http.ResponseWriter,
	r *http.Request,
	actionKey string,
	apply func(context.Context, uuid.UUID, authz.AccessClaim) error,
) {
	ctx := r.Context()
	caller := middleware.GetIdentity(ctx)

	allowed, err := h.evaluator.Evaluate(ctx, authz.PolicyManagePrivilegedAccounts, caller)
	if err != nil {
		h.logger.ErrorContext(ctx, "policy evaluation failed",
			"policy", authz.PolicyManagePrivilegedAccounts,
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
		writeError(w, dErrors.New(dErrors.CodeInternal, "authorization check failed"))
		return
	}
	if !allowed {
		writeError(w, dErrors.New(dErrors.CodeForbidden, "not permitted to manage privileged accounts"))
		return
	}

	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	subjectID, claim, err := req.parse()
	if err != nil {
		writeError(w, err)
		return
	}

	if err := apply(ctx, subjectID, claim); err != nil {
		h.logger.ErrorContext(ctx, "claim change failed",
			"action", actionKey,
			"subject_id", subjectID,
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
		writeError(w, dErrors.New(dErrors.CodeInternal, "failed to update claims"))
		return
	}
	if h.claimsCache != nil {
		h.claimsCache.Invalidate(ctx, subjectID)
	}

	snapshot, _ := json.Marshal(req)
	h.recorder.RecordAction(ctx, actionKey,
		audit.WithActor(caller.SubjectID),
		audit.WithPayload(string(snapshot)),
	)

	w.WriteHeader(http.StatusNoContent)
}
