package store

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/metrolist/listing-sync/internal/db"
	"github.com/metrolist/listing-sync/pkg/geocode"
)

// PostgresGeocodeCache implements geocode.CacheStore on the
// geo.geocode_cache table. Non-matches are stored too so repeated misses
// stay off the external service.
type PostgresGeocodeCache struct {
	pool    db.Pool
	ttlDays int
}

// NewPostgresGeocodeCache creates a geocode cache. ttlDays <= 0 disables
// expiry.
func NewPostgresGeocodeCache(pool db.Pool, ttlDays int) *PostgresGeocodeCache {
	return &PostgresGeocodeCache{pool: pool, ttlDays: ttlDays}
}

// Get implements geocode.CacheStore.
func (c *PostgresGeocodeCache) Get(ctx context.Context, key string) (*geocode.Result, error) {
	query := `SELECT latitude, longitude, matched FROM geo.geocode_cache WHERE address_hash = $1`
	if c.ttlDays > 0 {
		query += fmt.Sprintf(" AND cached_at > now() - interval '%d days'", c.ttlDays)
	}

	var r geocode.Result
	row := c.pool.QueryRow(ctx, query, key)
	if err := row.Scan(&r.Latitude, &r.Longitude, &r.Matched); err != nil {
		return nil, err // no row or scan error — caller falls through to external
	}
	return &r, nil
}

// Put implements geocode.CacheStore.
func (c *PostgresGeocodeCache) Put(ctx context.Context, key string, result *geocode.Result) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO geo.geocode_cache (address_hash, latitude, longitude, matched, cached_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (address_hash) DO UPDATE SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			matched = EXCLUDED.matched,
			cached_at = now()`,
		key, result.Latitude, result.Longitude, result.Matched,
	)
	return eris.Wrap(err, "geocache: store result")
}
