package store

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/metrolist/listing-sync/internal/db"
	"github.com/metrolist/listing-sync/internal/geo"
	"github.com/metrolist/listing-sync/internal/model"
)

// PostgresPlaceCache implements PlaceCache on the geo.places table.
type PostgresPlaceCache struct {
	pool db.Pool
}

// NewPostgresPlaceCache creates a place cache backed by the given pool.
func NewPostgresPlaceCache(pool db.Pool) *PostgresPlaceCache {
	return &PostgresPlaceCache{pool: pool}
}

// Nearby implements PlaceCache. A bounding-box predicate prefilters in SQL;
// the exact haversine check, sort, and cap happen here. The radius boundary
// is inclusive: a place at exactly radiusKM is returned.
func (c *PostgresPlaceCache) Nearby(ctx context.Context, lat, lng, radiusKM float64, kind model.PlaceKind, limit int) ([]model.Place, error) {
	box := geo.BoundingBox(lat, lng, radiusKM)

	rows, err := c.pool.Query(ctx, `
		SELECT place_id, name, kind, category, address, city, region, latitude, longitude, updated_at
		FROM geo.places
		WHERE kind = $1
		  AND latitude BETWEEN $2 AND $3
		  AND longitude BETWEEN $4 AND $5`,
		string(kind), box.MinLat, box.MaxLat, box.MinLng, box.MaxLng,
	)
	if err != nil {
		return nil, eris.Wrap(err, "placecache: nearby query")
	}
	defer rows.Close()

	var candidates []model.Place
	for rows.Next() {
		var p model.Place
		var kindStr string
		if err := rows.Scan(&p.ID, &p.Name, &kindStr, &p.Category, &p.Address, &p.City, &p.Region,
			&p.Latitude, &p.Longitude, &p.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "placecache: scan row")
		}
		p.Kind = model.PlaceKind(kindStr)
		p.DistanceKM = geo.HaversineKM(lat, lng, p.Latitude, p.Longitude)
		if p.DistanceKM <= radiusKM {
			candidates = append(candidates, p)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "placecache: iterate rows")
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].DistanceKM < candidates[j].DistanceKM
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

var placeSpec = db.UpsertSpec{
	Table:        "geo.places",
	Columns:      []string{"place_id", "name", "kind", "category", "address", "city", "region", "latitude", "longitude", "updated_at"},
	ConflictKeys: []string{"place_id"},
}

// UpsertPlaces implements PlaceCache.
func (c *PostgresPlaceCache) UpsertPlaces(ctx context.Context, places []model.Place) error {
	rows := make([][]any, 0, len(places))
	for i := range places {
		p := &places[i]
		rows = append(rows, []any{
			p.ID, p.Name, string(p.Kind), p.Category, p.Address, p.City, p.Region,
			p.Latitude, p.Longitude, p.UpdatedAt,
		})
	}
	_, err := db.BulkUpsert(ctx, c.pool, placeSpec, rows)
	return err
}
