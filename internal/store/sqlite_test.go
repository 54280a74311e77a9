package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metrolist/listing-sync/internal/model"
	"github.com/metrolist/listing-sync/pkg/geocode"
)

func newTestCache(t *testing.T) *SQLiteCache {
	t.Helper()
	cache, err := NewSQLiteCache(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	require.NoError(t, cache.Migrate(context.Background()))
	t.Cleanup(func() { cache.Close() }) //nolint:errcheck
	return cache
}

func TestSQLiteGeocodeCache(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	_, err := cache.Get(ctx, "missing")
	assert.Error(t, err)

	require.NoError(t, cache.Put(ctx, "k1", &geocode.Result{Latitude: 45.5, Longitude: -73.57, Matched: true}))
	got, err := cache.Get(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, got.Matched)
	assert.Equal(t, 45.5, got.Latitude)

	// Upsert on same key replaces the coordinates.
	require.NoError(t, cache.Put(ctx, "k1", &geocode.Result{Matched: false}))
	got, err = cache.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, got.Matched)
}

func TestSQLitePlaceCacheNearby(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	// Union Station is ~0.5km from the query point; the Mississauga stop is
	// ~20km out and must be filtered even though a generous bbox admits it.
	// p4 sits 0.135 deg due north, exactly 15.0km after rounding, and the
	// inclusive radius keeps it.
	places := []model.Place{
		{ID: "p1", Name: "Union Station", Kind: model.KindTransit, Category: "train",
			Latitude: 43.6453, Longitude: -79.3806, UpdatedAt: now},
		{ID: "p2", Name: "Cooksville GO", Kind: model.KindTransit, Category: "train",
			Latitude: 43.5764, Longitude: -79.6185, UpdatedAt: now},
		{ID: "p3", Name: "Jarvis Collegiate", Kind: model.KindSchool, Category: "secondary",
			Latitude: 43.6631, Longitude: -79.3754, UpdatedAt: now},
		{ID: "p4", Name: "Edge GO", Kind: model.KindTransit, Category: "train",
			Latitude: 43.7839, Longitude: -79.3817, UpdatedAt: now},
	}
	require.NoError(t, cache.UpsertPlaces(ctx, places))

	got, err := cache.Nearby(ctx, 43.6489, -79.3817, 15, model.KindTransit, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "p1", got[0].ID)
	assert.Equal(t, 0.4, got[0].DistanceKM)
	assert.Equal(t, "p4", got[1].ID)
	assert.Equal(t, 15.0, got[1].DistanceKM)

	schools, err := cache.Nearby(ctx, 43.6489, -79.3817, 15, model.KindSchool, 10)
	require.NoError(t, err)
	require.Len(t, schools, 1)
	assert.Equal(t, "p3", schools[0].ID)
}

func TestSQLitePlaceCacheUpsertReplaces(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	p := model.Place{ID: "p1", Name: "Old Name", Kind: model.KindTransit, Category: "bus",
		Latitude: 43.65, Longitude: -79.38, UpdatedAt: now}
	require.NoError(t, cache.UpsertPlaces(ctx, []model.Place{p}))

	p.Name = "New Name"
	p.Category = "subway"
	require.NoError(t, cache.UpsertPlaces(ctx, []model.Place{p}))

	got, err := cache.Nearby(ctx, 43.65, -79.38, 1, model.KindTransit, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "New Name", got[0].Name)
	assert.Equal(t, "subway", got[0].Category)
}
