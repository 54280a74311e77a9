// Package store holds the persistence layer: the raw listing store, the
// derived sold/clean stores, the geocode and place caches, and the sync log.
package store

import (
	"context"

	"github.com/metrolist/listing-sync/internal/model"
)

// ListingStore reads and writes the unified raw listing table.
type ListingStore interface {
	// Page returns one fixed-size window of listings ordered by updated_at
	// descending. A short page signals end of data.
	Page(ctx context.Context, offset, limit int) ([]model.Listing, error)

	// Upsert inserts or replaces one raw listing by listing key.
	Upsert(ctx context.Context, l *model.Listing) error

	// MergeCoordinates merges latitude/longitude into the public payload of
	// the listing without touching unrelated fields.
	MergeCoordinates(ctx context.Context, listingKey string, lat, lng float64) error
}

// SoldStore upserts classified terminal listings. Rows are never deleted by
// the pipeline, even when a listing later re-enters active status.
type SoldStore interface {
	UpsertBatch(ctx context.Context, rows []model.SoldListing) error
	UpsertOne(ctx context.Context, row model.SoldListing) error
}

// CleanStore upserts the sparse read projection.
type CleanStore interface {
	UpsertBatch(ctx context.Context, rows []model.CleanListing) error
	UpsertOne(ctx context.Context, row model.CleanListing) error
}

// PlaceCache stores points of interest for proximity lookup. Upsert-only; no
// component deletes cache rows.
type PlaceCache interface {
	// Nearby returns cached places of the given kind within radiusKM of the
	// center (boundary inclusive), sorted ascending by distance, capped to
	// limit.
	Nearby(ctx context.Context, lat, lng, radiusKM float64, kind model.PlaceKind, limit int) ([]model.Place, error)

	// UpsertPlaces inserts or replaces places by identifier.
	UpsertPlaces(ctx context.Context, places []model.Place) error
}
