package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/metrolist/listing-sync/internal/db"
	"github.com/metrolist/listing-sync/internal/model"
)

// PostgresCleanStore implements CleanStore on the listings.clean table.
type PostgresCleanStore struct {
	pool db.Pool
}

// NewPostgresCleanStore creates a clean-projection store backed by the given pool.
func NewPostgresCleanStore(pool db.Pool) *PostgresCleanStore {
	return &PostgresCleanStore{pool: pool}
}

var cleanSpec = db.UpsertSpec{
	Table:        "listings.clean",
	Columns:      []string{"listing_key", "public_payload", "restricted_payload", "updated_at"},
	ConflictKeys: []string{"listing_key"},
}

// UpsertBatch implements CleanStore.
func (s *PostgresCleanStore) UpsertBatch(ctx context.Context, rows []model.CleanListing) error {
	data := make([][]any, 0, len(rows))
	for i := range rows {
		vals, err := cleanRow(&rows[i])
		if err != nil {
			return err
		}
		data = append(data, vals)
	}
	_, err := db.BulkUpsert(ctx, s.pool, cleanSpec, data)
	return err
}

// UpsertOne implements CleanStore.
func (s *PostgresCleanStore) UpsertOne(ctx context.Context, row model.CleanListing) error {
	vals, err := cleanRow(&row)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO listings.clean (listing_key, public_payload, restricted_payload, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (listing_key) DO UPDATE SET
			public_payload = EXCLUDED.public_payload,
			restricted_payload = EXCLUDED.restricted_payload,
			updated_at = EXCLUDED.updated_at`,
		vals...,
	)
	return eris.Wrapf(err, "clean: upsert %s", row.ListingKey)
}

func cleanRow(r *model.CleanListing) ([]any, error) {
	pub, res, err := encodePayloads(r.Public, r.Restricted)
	if err != nil {
		return nil, eris.Wrapf(err, "clean: encode payloads for %s", r.ListingKey)
	}
	return []any{r.ListingKey, pub, res, r.UpdatedAt}, nil
}
