// Package authz decides authorization outcomes that need a claims lookup
// beyond what the signed session token carries. Role assertions travel in the
// token; supplementary claims live in the identity store because they are
// unbounded in number and may change without re-authentication.
package authz

import (
	"context"

	"github.com/google/uuid"
)

// Role and claim vocabulary shared with the identity store.
const (
	RoleAdmin = "admin"

	ClaimTypeAdminTier     = "admin-tier"
	ClaimTypeCertification = "certification"

	TierSuper    = "Super"
	TierStandard = "Standard"
)

// phiCertifications lists certification claim values that clear access to
// protected health information.
var phiCertifications = map[string]struct{}{
	"HIPAA":      {},
	"PHI-Access": {},
}

// Identity describes the authenticated caller as resolved from the session
// token. Unauthenticated callers carry Authenticated=false and are denied by
// every policy without a store lookup.
type Identity struct {
	SubjectID     uuid.UUID
	Role          string
	Authenticated bool
}

// AccessClaim is one (type, value) attribute of a subject in the identity
// store.
type AccessClaim struct {
	Type  string
	Value string
}

// ClaimsStore looks up a subject's supplementary claims. Implementations
// return sentinel.ErrNotFound (possibly wrapped) when the subject has no
// record; the evaluator treats that as an empty claim set and denies.
type ClaimsStore interface {
	ClaimsFor(ctx context.Context, subjectID uuid.UUID) ([]AccessClaim, error)
}
