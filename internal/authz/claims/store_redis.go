package claims

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"careledger/internal/authz"
	"careledger/pkg/sentinel"
)

const claimsKeyPrefix = "authz:claims:"

// missMarker caches the not-found fact so absent subjects do not hammer the
// identity store on every denial.
const missMarker = "__miss__"

// CachedStore is a Redis read-through cache around a ClaimsStore. Entries
// expire after a bounded TTL, so stale claims can grant or withhold privilege
// for at most that window; cache failures fall through to the inner store so
// a Redis outage degrades latency, never correctness.
type CachedStore struct {
	inner  authz.ClaimsStore
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedStore wraps inner with a TTL-bounded cache.
func NewCachedStore(inner authz.ClaimsStore, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedStore {
	return &CachedStore{inner: inner, client: client, ttl: ttl, logger: logger}
}

func (s *CachedStore) ClaimsFor(ctx context.Context, subjectID uuid.UUID) ([]authz.AccessClaim, error) {
	key := claimsKeyPrefix + subjectID.String()

	cached, err := s.client.Get(ctx, key).Result()
	if err == nil {
		if cached == missMarker {
			return nil, sentinel.ErrNotFound
		}
		var claims []authz.AccessClaim
		if jsonErr := json.Unmarshal([]byte(cached), &claims); jsonErr == nil {
			return claims, nil
		}
		// Corrupt entry: drop it and fall through to the store.
		s.client.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		s.logger.WarnContext(ctx, "claims cache read failed", "error", err)
	}

	claims, err := s.inner.ClaimsFor(ctx, subjectID)
	if errors.Is(err, sentinel.ErrNotFound) {
		s.set(ctx, key, missMarker)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	if encoded, jsonErr := json.Marshal(claims); jsonErr == nil {
		s.set(ctx, key, string(encoded))
	}
	return claims, nil
}

// Invalidate evicts a subject after a claim grant/revoke so the staleness
// window only applies to out-of-band identity-store changes.
func (s *CachedStore) Invalidate(ctx context.Context, subjectID uuid.UUID) {
	if err := s.client.Del(ctx, claimsKeyPrefix+subjectID.String()).Err(); err != nil {
		s.logger.WarnContext(ctx, "claims cache invalidation failed", "error", err)
	}
}

func (s *CachedStore) set(ctx context.Context, key, value string) {
	if err := s.client.Set(ctx, key, value, s.ttl).Err(); err != nil {
		s.logger.WarnContext(ctx, "claims cache write failed", "error", err)
	}
}
