//go:build integration

package claims_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"careledger/internal/authz"
	"careledger/internal/authz/claims"
	"careledger/internal/platform/logger"
	"careledger/pkg/sentinel"
	"careledger/pkg/testutil/containers"
)

type CachedStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	inner *claims.InMemoryStore
	store *claims.CachedStore
}

func TestCachedStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(CachedStoreSuite))
}

func (s *CachedStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
}

func (s *CachedStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
	s.inner = claims.NewInMemoryStore()
	s.store = claims.NewCachedStore(s.inner, s.redis.Client, 30*time.Second, logger.New())
}

func (s *CachedStoreSuite) TestReadThroughCachesClaims() {
	ctx := context.Background()
	subject := uuid.New()
	claim := authz.AccessClaim{Type: authz.ClaimTypeAdminTier, Value: authz.TierSuper}
	s.Require().NoError(s.inner.Grant(ctx, subject, claim))

	first, err := s.store.ClaimsFor(ctx, subject)
	s.Require().NoError(err)
	s.Require().Len(first, 1)

	// Mutating the inner store without invalidation must not be visible
	// while the cached entry is live.
	s.Require().NoError(s.inner.Revoke(ctx, subject, claim))

	second, err := s.store.ClaimsFor(ctx, subject)
	s.Require().NoError(err)
	s.Len(second, 1)
}

func (s *CachedStoreSuite) TestCachesNotFound() {
	ctx := context.Background()
	subject := uuid.New()

	_, err := s.store.ClaimsFor(ctx, subject)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	// The miss is cached, so a later grant stays invisible until eviction.
	s.Require().NoError(s.inner.Grant(ctx, subject,
		authz.AccessClaim{Type: authz.ClaimTypeCertification, Value: "HIPAA"}))

	_, err = s.store.ClaimsFor(ctx, subject)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *CachedStoreSuite) TestInvalidateEvictsEntry() {
	ctx := context.Background()
	subject := uuid.New()
	claim := authz.AccessClaim{Type: authz.ClaimTypeAdminTier, Value: authz.TierStandard}
	s.Require().NoError(s.inner.Grant(ctx, subject, claim))

	_, err := s.store.ClaimsFor(ctx, subject)
	s.Require().NoError(err)

	s.Require().NoError(s.inner.Revoke(ctx, subject, claim))
	s.store.Invalidate(ctx, subject)

	_, err = s.store.ClaimsFor(ctx, subject)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *CachedStoreSuite) TestCorruptEntryFallsThrough() {
	ctx := context.Background()
	subject := uuid.New()
	s.Require().NoError(s.inner.Grant(ctx, subject,
		authz.AccessClaim{Type: authz.ClaimTypeCertification, Value: "PHI-Access"}))

	key := "authz:claims:" + subject.String()
	s.Require().NoError(s.redis.Client.Set(ctx, key, "{not json", time.Minute).Err())

	got, err := s.store.ClaimsFor(ctx, subject)
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal("PHI-Access", got[0].Value)
}
