package geocode

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// CacheStore persists geocode results keyed by normalized address hash.
// Negative results (Matched=false) are cached too so repeated misses don't
// burn external quota.
type CacheStore interface {
	Get(ctx context.Context, key string) (*Result, error)
	Put(ctx context.Context, key string, result *Result) error
}

// CacheKey returns SHA-256 hex of the normalized address for cache lookup.
func CacheKey(address string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(address), " "))
	h := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", h)
}

// CachedClient consults the cache store before the external geocoder and
// writes fresh results back. QuotaError from the external client passes
// through untouched.
type CachedClient struct {
	cache    CacheStore
	external Client
}

// NewCachedClient wraps external with a cache-first lookup.
func NewCachedClient(cache CacheStore, external Client) *CachedClient {
	return &CachedClient{cache: cache, external: external}
}

// Geocode implements Client.
func (c *CachedClient) Geocode(ctx context.Context, address string) (*Result, error) {
	if address == "" {
		return &Result{Matched: false}, nil
	}
	key := CacheKey(address)

	if cached, err := c.cache.Get(ctx, key); err == nil && cached != nil {
		zap.L().Debug("geocode cache hit",
			zap.String("key", key[:12]),
			zap.Bool("matched", cached.Matched),
		)
		return cached, nil
	}

	result, err := c.external.Geocode(ctx, address)
	if err != nil {
		return nil, err
	}

	if putErr := c.cache.Put(ctx, key, result); putErr != nil {
		zap.L().Warn("geocode cache write failed", zap.Error(putErr))
	}
	return result, nil
}
