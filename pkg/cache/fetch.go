package cache

import (
	"context"
	"time"

	"github.com/matzehuels/edgeprint/pkg/observability"
)

// Fetch returns the cached value for key, or computes it with fn and stores
// the result with ttl. Cache read and write failures count as misses so a
// broken cache never fails the caller. keyType labels observability events.
func Fetch(ctx context.Context, c Cache, keyType, key string, ttl time.Duration, fn func() ([]byte, error)) ([]byte, error) {
	if c == nil {
		return fn()
	}
	if data, hit, err := c.Get(ctx, key); err == nil && hit {
		observability.Cache().OnCacheHit(ctx, keyType)
		return data, nil
	}
	observability.Cache().OnCacheMiss(ctx, keyType)

	data, err := fn()
	if err != nil {
		return nil, err
	}
	if err := c.Set(ctx, key, data, ttl); err == nil {
		observability.Cache().OnCacheSet(ctx, keyType, len(data))
	}
	return data, nil
}
