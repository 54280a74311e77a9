package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/metrolist/listing-sync/internal/db"
	"github.com/metrolist/listing-sync/internal/model"
)

// PostgresSoldStore implements SoldStore on the listings.sold table.
type PostgresSoldStore struct {
	pool db.Pool
}

// NewPostgresSoldStore creates a sold store backed by the given pool.
func NewPostgresSoldStore(pool db.Pool) *PostgresSoldStore {
	return &PostgresSoldStore{pool: pool}
}

var soldSpec = db.UpsertSpec{
	Table:        "listings.sold",
	Columns:      []string{"listing_key", "public_payload", "restricted_payload", "status", "closed_date", "updated_at"},
	ConflictKeys: []string{"listing_key"},
}

// UpsertBatch implements SoldStore with one COPY-backed bulk upsert.
func (s *PostgresSoldStore) UpsertBatch(ctx context.Context, rows []model.SoldListing) error {
	data := make([][]any, 0, len(rows))
	for i := range rows {
		vals, err := soldRow(&rows[i])
		if err != nil {
			return err
		}
		data = append(data, vals)
	}
	_, err := db.BulkUpsert(ctx, s.pool, soldSpec, data)
	return err
}

// UpsertOne implements SoldStore; the per-row fallback path of the sync engine.
func (s *PostgresSoldStore) UpsertOne(ctx context.Context, row model.SoldListing) error {
	vals, err := soldRow(&row)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO listings.sold (listing_key, public_payload, restricted_payload, status, closed_date, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (listing_key) DO UPDATE SET
			public_payload = EXCLUDED.public_payload,
			restricted_payload = EXCLUDED.restricted_payload,
			status = EXCLUDED.status,
			closed_date = EXCLUDED.closed_date,
			updated_at = EXCLUDED.updated_at`,
		vals...,
	)
	return eris.Wrapf(err, "sold: upsert %s", row.ListingKey)
}

func soldRow(r *model.SoldListing) ([]any, error) {
	pub, res, err := encodePayloads(r.Public, r.Restricted)
	if err != nil {
		return nil, eris.Wrapf(err, "sold: encode payloads for %s", r.ListingKey)
	}
	var closed any
	if r.ClosedDate != nil {
		closed = *r.ClosedDate
	}
	return []any{r.ListingKey, pub, res, r.Status, closed, r.UpdatedAt}, nil
}
