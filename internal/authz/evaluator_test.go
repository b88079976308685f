package authz

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careledger/pkg/sentinel"
)

// fakeClaimsStore counts lookups so tests can assert the evaluator skips the
// store for unauthenticated callers and short-circuits on token role.
type fakeClaimsStore struct {
	claims  map[uuid.UUID][]AccessClaim
	err     error
	lookups atomic.Int32
}

func (s *fakeClaimsStore) ClaimsFor(_ context.Context, subjectID uuid.UUID) ([]AccessClaim, error) {
	s.lookups.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	claims, ok := s.claims[subjectID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return claims, nil
}

func authenticated(role string) Identity {
	return Identity{SubjectID: uuid.New(), Role: role, Authenticated: true}
}

func TestCanViewAuditLogAdminRoleSkipsLookup(t *testing.T) {
	store := &fakeClaimsStore{}
	e := NewEvaluator(store, nil)

	allowed, err := e.CanViewAuditLog(context.Background(), authenticated(RoleAdmin))
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, int32(0), store.lookups.Load(), "admin role needs no claims lookup")
}

func TestCanViewAuditLogAnyAdminTierClaim(t *testing.T) {
	caller := authenticated("practitioner")
	store := &fakeClaimsStore{claims: map[uuid.UUID][]AccessClaim{
		caller.SubjectID: {{Type: ClaimTypeAdminTier, Value: TierStandard}},
	}}
	e := NewEvaluator(store, nil)

	allowed, err := e.CanViewAuditLog(context.Background(), caller)
	require.NoError(t, err)
	assert.True(t, allowed, "any admin-tier value suffices")
	assert.Equal(t, int32(1), store.lookups.Load())
}

func TestCanViewAuditLogDeniesWithoutRoleOrClaim(t *testing.T) {
	caller := authenticated("practitioner")
	store := &fakeClaimsStore{claims: map[uuid.UUID][]AccessClaim{
		caller.SubjectID: {{Type: ClaimTypeCertification, Value: "HIPAA"}},
	}}
	e := NewEvaluator(store, nil)

	allowed, err := e.CanViewAuditLog(context.Background(), caller)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestPoliciesDenyUnauthenticatedWithoutLookup(t *testing.T) {
	store := &fakeClaimsStore{}
	e := NewEvaluator(store, nil)
	anonymous := Identity{}

	for _, policy := range []string{
		PolicyViewAuditLog,
		PolicyManagePrivilegedAccounts,
		PolicyAccessProtectedHealthInfo,
	} {
		allowed, err := e.Evaluate(context.Background(), policy, anonymous)
		require.NoError(t, err)
		assert.False(t, allowed, "policy %s must deny unauthenticated callers", policy)
	}
	assert.Equal(t, int32(0), store.lookups.Load())
}

func TestCanManagePrivilegedAccounts(t *testing.T) {
	super := authenticated("practitioner")
	standard := authenticated("practitioner")
	none := authenticated(RoleAdmin) // role alone is not enough here

	store := &fakeClaimsStore{claims: map[uuid.UUID][]AccessClaim{
		super.SubjectID:    {{Type: ClaimTypeAdminTier, Value: TierSuper}},
		standard.SubjectID: {{Type: ClaimTypeAdminTier, Value: TierStandard}},
	}}
	e := NewEvaluator(store, nil)

	allowed, err := e.CanManagePrivilegedAccounts(context.Background(), super)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = e.CanManagePrivilegedAccounts(context.Background(), standard)
	require.NoError(t, err)
	assert.False(t, allowed, "Standard tier must be denied")

	allowed, err = e.CanManagePrivilegedAccounts(context.Background(), none)
	require.NoError(t, err)
	assert.False(t, allowed, "absent claim must be denied")
}

func TestCanAccessProtectedHealthInformation(t *testing.T) {
	hipaa := authenticated("practitioner")
	phi := authenticated("practitioner")
	uncertified := authenticated("practitioner")

	store := &fakeClaimsStore{claims: map[uuid.UUID][]AccessClaim{
		hipaa.SubjectID:       {{Type: ClaimTypeCertification, Value: "HIPAA"}},
		phi.SubjectID:         {{Type: ClaimTypeCertification, Value: "PHI-Access"}},
		uncertified.SubjectID: {{Type: ClaimTypeCertification, Value: "FirstAid"}},
	}}
	e := NewEvaluator(store, nil)

	allowed, err := e.CanAccessProtectedHealthInformation(context.Background(), hipaa)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = e.CanAccessProtectedHealthInformation(context.Background(), phi)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = e.CanAccessProtectedHealthInformation(context.Background(), uncertified)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestEvaluatorDeniesOnStoreError(t *testing.T) {
	store := &fakeClaimsStore{err: errors.New("identity store down")}
	e := NewEvaluator(store, nil)

	allowed, err := e.CanManagePrivilegedAccounts(context.Background(), authenticated("practitioner"))
	require.Error(t, err)
	assert.False(t, allowed)
}

func TestEvaluateUnknownPolicyDenies(t *testing.T) {
	e := NewEvaluator(&fakeClaimsStore{}, nil)
	allowed, err := e.Evaluate(context.Background(), "CanDoAnything", authenticated(RoleAdmin))
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestMissingSubjectRecordDenies(t *testing.T) {
	store := &fakeClaimsStore{}
	e := NewEvaluator(store, nil)

	allowed, err := e.CanViewAuditLog(context.Background(), authenticated("practitioner"))
	require.NoError(t, err)
	assert.False(t, allowed)
}
