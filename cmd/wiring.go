package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/metrolist/listing-sync/internal/db"
	"github.com/metrolist/listing-sync/internal/enrich"
	"github.com/metrolist/listing-sync/internal/resilience"
	"github.com/metrolist/listing-sync/internal/store"
	"github.com/metrolist/listing-sync/internal/syncer"
	"github.com/metrolist/listing-sync/pkg/geocode"
	"github.com/metrolist/listing-sync/pkg/places"
)

// listingPool creates the shared Postgres pool for the listing stores.
func listingPool(ctx context.Context) (*pgxpool.Pool, error) {
	if cfg.Store.DatabaseURL == "" {
		return nil, eris.New("no database_url configured (set store.database_url or LISTINGSYNC_STORE_DATABASE_URL)")
	}
	return db.NewPool(ctx, cfg.Store.DatabaseURL, &db.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
}

// caches wires the geocode and place caches on the configured backend. The
// returned cleanup closes whatever was opened.
func caches(ctx context.Context, pool db.Pool) (geocode.CacheStore, store.PlaceCache, func(), error) {
	switch cfg.Store.CacheDriver {
	case "sqlite":
		c, err := store.NewSQLiteCache(cfg.Store.CachePath)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := c.Migrate(ctx); err != nil {
			c.Close() //nolint:errcheck
			return nil, nil, nil, err
		}
		return c, c, func() { c.Close() }, nil //nolint:errcheck
	default:
		gc := store.NewPostgresGeocodeCache(pool, cfg.Geocode.CacheTTLDays)
		pc := store.NewPostgresPlaceCache(pool)
		return gc, pc, func() {}, nil
	}
}

func syncConfig(dlq *resilience.DLQ) syncer.Config {
	return syncer.Config{
		PageSize:  cfg.Sync.PageSize,
		BatchSize: cfg.Sync.BatchSize,
		Retry:     resilience.UpsertRetryConfig(),
		DLQ:       dlq,
	}
}

func openDLQ() (*resilience.DLQ, error) {
	if cfg.DLQ.Dir == "" {
		return nil, nil
	}
	return resilience.NewDLQ(cfg.DLQ.Dir)
}

// geocoder wires the cache-first geocoding cascade.
func geocoder(listings store.ListingStore, cache geocode.CacheStore) *enrich.Geocoder {
	external := geocode.NewClient(cfg.Geocode.Key, geocode.WithBaseURL(cfg.Geocode.BaseURL))
	client := geocode.NewCachedClient(cache, external)
	return enrich.NewGeocoder(listings, client, enrich.GeocoderConfig{
		Cap:      cfg.Geocode.Cap,
		Delay:    time.Duration(cfg.Geocode.DelayMillis) * time.Millisecond,
		PageSize: cfg.Sync.PageSize,
	})
}

// placesEnricher wires the cache-first places cascade with a circuit breaker
// around the external client.
func placesEnricher(cache store.PlaceCache) *enrich.PlacesEnricher {
	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{})
	client := places.NewClient(cfg.Places.Key,
		places.WithBaseURL(cfg.Places.BaseURL),
		places.WithBreaker(breaker),
	)
	return enrich.NewPlacesEnricher(cache, client, enrich.PlacesConfig{
		RadiusKM:        cfg.Places.RadiusKM,
		PerGroupResults: cfg.Places.PerGroupResults,
	})
}
