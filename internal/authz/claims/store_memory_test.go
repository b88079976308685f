package claims

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careledger/internal/authz"
	"careledger/pkg/sentinel"
)

func TestInMemoryStoreGrantAndLookup(t *testing.T) {
	store := NewInMemoryStore()
	subject := uuid.New()

	require.NoError(t, store.Grant(context.Background(), subject,
		authz.AccessClaim{Type: authz.ClaimTypeAdminTier, Value: authz.TierSuper}))
	require.NoError(t, store.Grant(context.Background(), subject,
		authz.AccessClaim{Type: authz.ClaimTypeCertification, Value: "HIPAA"}))

	claims, err := store.ClaimsFor(context.Background(), subject)
	require.NoError(t, err)
	assert.Len(t, claims, 2)
}

func TestInMemoryStoreUnknownSubject(t *testing.T) {
	store := NewInMemoryStore()
	_, err := store.ClaimsFor(context.Background(), uuid.New())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemoryStoreRevoke(t *testing.T) {
	store := NewInMemoryStore()
	subject := uuid.New()
	claim := authz.AccessClaim{Type: authz.ClaimTypeAdminTier, Value: authz.TierStandard}
	keep := authz.AccessClaim{Type: authz.ClaimTypeCertification, Value: "HIPAA"}

	require.NoError(t, store.Grant(context.Background(), subject, claim))
	require.NoError(t, store.Grant(context.Background(), subject, keep))
	require.NoError(t, store.Revoke(context.Background(), subject, claim))

	claims, err := store.ClaimsFor(context.Background(), subject)
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, keep, claims[0])
}
