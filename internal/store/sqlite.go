package store

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/metrolist/listing-sync/internal/geo"
	"github.com/metrolist/listing-sync/internal/model"
	"github.com/metrolist/listing-sync/pkg/geocode"
)

// SQLiteCache implements the geocode and place caches on a local SQLite
// file. Used for dev and offline runs where no Postgres is available; the
// raw/sold/clean stores remain Postgres-only.
type SQLiteCache struct {
	db *sql.DB
}

// NewSQLiteCache opens (or creates) a SQLite cache database in WAL mode.
func NewSQLiteCache(dsn string) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteCache{db: db}, nil
}

const sqliteCacheMigration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	address_hash TEXT PRIMARY KEY,
	latitude     REAL NOT NULL DEFAULT 0,
	longitude    REAL NOT NULL DEFAULT 0,
	matched      INTEGER NOT NULL DEFAULT 0,
	cached_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS places (
	place_id   TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	kind       TEXT NOT NULL,
	category   TEXT NOT NULL,
	address    TEXT NOT NULL DEFAULT '',
	city       TEXT NOT NULL DEFAULT '',
	region     TEXT NOT NULL DEFAULT '',
	latitude   REAL NOT NULL,
	longitude  REAL NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_places_kind ON places(kind);
CREATE INDEX IF NOT EXISTS idx_places_lat_lng ON places(latitude, longitude);
`

// Migrate creates the cache tables if they do not exist.
func (s *SQLiteCache) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteCacheMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the underlying database.
func (s *SQLiteCache) Close() error {
	return s.db.Close()
}

// Get implements geocode.CacheStore.
func (s *SQLiteCache) Get(ctx context.Context, key string) (*geocode.Result, error) {
	var r geocode.Result
	var matched int
	err := s.db.QueryRowContext(ctx,
		`SELECT latitude, longitude, matched FROM geocode_cache WHERE address_hash = ?`, key,
	).Scan(&r.Latitude, &r.Longitude, &matched)
	if err != nil {
		return nil, err
	}
	r.Matched = matched != 0
	return &r, nil
}

// Put implements geocode.CacheStore.
func (s *SQLiteCache) Put(ctx context.Context, key string, result *geocode.Result) error {
	matched := 0
	if result.Matched {
		matched = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO geocode_cache (address_hash, latitude, longitude, matched, cached_at)
		VALUES (?, ?, ?, ?, datetime('now'))
		ON CONFLICT (address_hash) DO UPDATE SET
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			matched = excluded.matched,
			cached_at = datetime('now')`,
		key, result.Latitude, result.Longitude, matched,
	)
	return eris.Wrap(err, "sqlite: store geocode result")
}

// Nearby implements PlaceCache with the same bbox-then-haversine strategy as
// the Postgres backend.
func (s *SQLiteCache) Nearby(ctx context.Context, lat, lng, radiusKM float64, kind model.PlaceKind, limit int) ([]model.Place, error) {
	box := geo.BoundingBox(lat, lng, radiusKM)

	rows, err := s.db.QueryContext(ctx, `
		SELECT place_id, name, kind, category, address, city, region, latitude, longitude, updated_at
		FROM places
		WHERE kind = ?
		  AND latitude BETWEEN ? AND ?
		  AND longitude BETWEEN ? AND ?`,
		string(kind), box.MinLat, box.MaxLat, box.MinLng, box.MaxLng,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: nearby query")
	}
	defer rows.Close() //nolint:errcheck

	var candidates []model.Place
	for rows.Next() {
		var p model.Place
		var kindStr string
		var updatedAt time.Time
		if err := rows.Scan(&p.ID, &p.Name, &kindStr, &p.Category, &p.Address, &p.City, &p.Region,
			&p.Latitude, &p.Longitude, &updatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan place")
		}
		p.Kind = model.PlaceKind(kindStr)
		p.UpdatedAt = updatedAt
		p.DistanceKM = geo.HaversineKM(lat, lng, p.Latitude, p.Longitude)
		if p.DistanceKM <= radiusKM {
			candidates = append(candidates, p)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate places")
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].DistanceKM < candidates[j].DistanceKM
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// UpsertPlaces implements PlaceCache.
func (s *SQLiteCache) UpsertPlaces(ctx context.Context, places []model.Place) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO places (place_id, name, kind, category, address, city, region, latitude, longitude, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (place_id) DO UPDATE SET
			name = excluded.name,
			kind = excluded.kind,
			category = excluded.category,
			address = excluded.address,
			city = excluded.city,
			region = excluded.region,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			updated_at = excluded.updated_at`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare upsert")
	}
	defer stmt.Close() //nolint:errcheck

	for i := range places {
		p := &places[i]
		if _, err := stmt.ExecContext(ctx, p.ID, p.Name, string(p.Kind), p.Category,
			p.Address, p.City, p.Region, p.Latitude, p.Longitude, p.UpdatedAt); err != nil {
			return eris.Wrapf(err, "sqlite: upsert place %s", p.ID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit upsert")
}
