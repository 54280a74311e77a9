// Package clean builds the sparse read projection of raw listing payloads.
package clean

import "github.com/metrolist/listing-sync/internal/model"

// Clean returns a copy of p with every null-valued and empty-array key
// removed. All other values pass through unchanged, including empty objects,
// zero, false, and empty strings. Idempotent: Clean(Clean(p)) == Clean(p).
// A nil payload stays nil so absent restricted payloads survive round trips.
func Clean(p model.Payload) model.Payload {
	if p == nil {
		return nil
	}
	out := make(model.Payload, len(p))
	for k, v := range p {
		if v == nil {
			continue
		}
		if arr, ok := v.([]any); ok && len(arr) == 0 {
			continue
		}
		out[k] = v
	}
	return out
}

// Listing derives the clean projection of a raw listing. Pure transform; the
// projection is never edited independently of its raw row.
func Listing(l *model.Listing) *model.CleanListing {
	return &model.CleanListing{
		ListingKey: l.ListingKey,
		Public:     Clean(l.Public),
		Restricted: Clean(l.Restricted),
		UpdatedAt:  l.UpdatedAt,
	}
}
