package store

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/metrolist/listing-sync/internal/db"
	"github.com/metrolist/listing-sync/internal/model"
)

// PostgresListingStore implements ListingStore on the listings.raw table.
type PostgresListingStore struct {
	pool db.Pool
}

// NewPostgresListingStore creates a listing store backed by the given pool.
func NewPostgresListingStore(pool db.Pool) *PostgresListingStore {
	return &PostgresListingStore{pool: pool}
}

// Page implements ListingStore. Most recently touched rows come first so a
// capped run always sees fresh data.
func (s *PostgresListingStore) Page(ctx context.Context, offset, limit int) ([]model.Listing, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT listing_key, public_payload, restricted_payload, updated_at
		FROM listings.raw
		ORDER BY updated_at DESC
		OFFSET $1 LIMIT $2`,
		offset, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "listings: page query")
	}
	defer rows.Close()

	var out []model.Listing
	for rows.Next() {
		var l model.Listing
		var pub, res []byte
		if err := rows.Scan(&l.ListingKey, &pub, &res, &l.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "listings: scan row")
		}
		if l.Public, err = decodePayload(pub); err != nil {
			return nil, eris.Wrapf(err, "listings: decode public payload for %s", l.ListingKey)
		}
		if l.Restricted, err = decodePayload(res); err != nil {
			return nil, eris.Wrapf(err, "listings: decode restricted payload for %s", l.ListingKey)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "listings: iterate rows")
	}
	return out, nil
}

// Upsert implements ListingStore.
func (s *PostgresListingStore) Upsert(ctx context.Context, l *model.Listing) error {
	pub, res, err := encodePayloads(l.Public, l.Restricted)
	if err != nil {
		return eris.Wrapf(err, "listings: encode payloads for %s", l.ListingKey)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO listings.raw (listing_key, public_payload, restricted_payload, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (listing_key) DO UPDATE SET
			public_payload = EXCLUDED.public_payload,
			restricted_payload = EXCLUDED.restricted_payload,
			updated_at = EXCLUDED.updated_at`,
		l.ListingKey, pub, res, l.UpdatedAt,
	)
	return eris.Wrapf(err, "listings: upsert %s", l.ListingKey)
}

// MergeCoordinates implements ListingStore via jsonb concatenation, so only
// the Latitude/Longitude keys change.
func (s *PostgresListingStore) MergeCoordinates(ctx context.Context, listingKey string, lat, lng float64) error {
	patch, err := json.Marshal(map[string]float64{"Latitude": lat, "Longitude": lng})
	if err != nil {
		return eris.Wrap(err, "listings: marshal coordinate patch")
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE listings.raw
		SET public_payload = coalesce(public_payload, '{}'::jsonb) || $2::jsonb,
		    updated_at = now()
		WHERE listing_key = $1`,
		listingKey, patch,
	)
	return eris.Wrapf(err, "listings: merge coordinates for %s", listingKey)
}

func decodePayload(raw []byte) (model.Payload, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var p model.Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return p, nil
}

// encodePayloads marshals both payload maps; a nil restricted payload stays
// NULL in the database.
func encodePayloads(public, restricted model.Payload) ([]byte, []byte, error) {
	if public == nil {
		public = model.Payload{}
	}
	pub, err := json.Marshal(public)
	if err != nil {
		return nil, nil, err
	}
	var res []byte
	if restricted != nil {
		if res, err = json.Marshal(restricted); err != nil {
			return nil, nil, err
		}
	}
	return pub, res, nil
}
