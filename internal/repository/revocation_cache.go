package repository

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/token-service/internal/domain"
)

const (
	revokedCachePrefix = "jwt:revoked:"
	revokedCacheTTL    = time.Hour
)

// CachedRevocationRepository fronts a RevocationRepository with a Redis
// cache for hot IsRevoked lookups. Only positive hits are cached: a revoked
// token never becomes valid again, while caching "not revoked" would delay
// revocation taking effect. Marker lookups always go to the database for the
// same reason. The cache is best effort; Redis failures fall through to the
// backing store.
type CachedRevocationRepository struct {
	inner RevocationRepository
	cache *redis.Client
}

// NewCachedRevocationRepository wraps inner with a Redis read cache.
func NewCachedRevocationRepository(inner RevocationRepository, cache *redis.Client) *CachedRevocationRepository {
	return &CachedRevocationRepository{inner: inner, cache: cache}
}

func (r *CachedRevocationRepository) Add(ctx context.Context, record domain.RevokedToken) error {
	if err := r.inner.Add(ctx, record); err != nil {
		return err
	}
	if r.cache != nil {
		_ = r.cache.Set(ctx, revokedCachePrefix+record.JTI, "1", revokedCacheTTL).Err()
	}
	return nil
}

func (r *CachedRevocationRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if r.cache != nil {
		if hit, err := r.cache.Get(ctx, revokedCachePrefix+jti).Result(); err == nil && hit == "1" {
			return true, nil
		}
	}

	revoked, err := r.inner.IsRevoked(ctx, jti)
	if err != nil {
		return false, err
	}
	if revoked && r.cache != nil {
		_ = r.cache.Set(ctx, revokedCachePrefix+jti, "1", revokedCacheTTL).Err()
	}
	return revoked, nil
}

func (r *CachedRevocationRepository) MarkerRevokedAt(ctx context.Context, jti string) (int64, bool, error) {
	return r.inner.MarkerRevokedAt(ctx, jti)
}

func (r *CachedRevocationRepository) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	return r.inner.DeleteExpired(ctx, now)
}

func (r *CachedRevocationRepository) ListByUser(ctx context.Context, userID int64) ([]domain.RevokedToken, error) {
	return r.inner.ListByUser(ctx, userID)
}
