package syncer

import (
	"context"

	"github.com/metrolist/listing-sync/internal/clean"
	"github.com/metrolist/listing-sync/internal/model"
	"github.com/metrolist/listing-sync/internal/status"
	"github.com/metrolist/listing-sync/internal/store"
)

// NewSoldEngine builds the raw-to-sold sync: listings whose classified
// lifecycle state is terminal are carried into the sold table with their
// status label and parsed close date. On-market listings are skipped even
// when the restricted payload already carries close fields.
func NewSoldEngine(source Source, sink store.SoldStore, cfg Config) *Engine[model.SoldListing] {
	cfg.Stage = "sold"
	transform := func(l model.Listing) (model.SoldListing, bool) {
		st := status.Classify(&l)
		if !st.Terminal() {
			return model.SoldListing{}, false
		}
		return model.SoldListing{
			ListingKey: l.ListingKey,
			Public:     l.Public,
			Restricted: l.Restricted,
			Status:     string(st),
			ClosedDate: status.ClosedDate(&l),
			UpdatedAt:  l.UpdatedAt,
		}, true
	}
	key := func(r model.SoldListing) string { return r.ListingKey }
	return NewEngine(source, soldSink{sink}, transform, key, cfg)
}

// NewCleanEngine builds the raw-to-clean sync: every listing passes through
// with null-valued and empty-array keys dropped from both payloads.
func NewCleanEngine(source Source, sink store.CleanStore, cfg Config) *Engine[model.CleanListing] {
	cfg.Stage = "clean"
	transform := func(l model.Listing) (model.CleanListing, bool) {
		return *clean.Listing(&l), true
	}
	key := func(r model.CleanListing) string { return r.ListingKey }
	return NewEngine(source, cleanSink{sink}, transform, key, cfg)
}

// soldSink and cleanSink adapt the store interfaces to the engine's Sink.

type soldSink struct{ s store.SoldStore }

func (a soldSink) UpsertBatch(ctx context.Context, rows []model.SoldListing) error {
	return a.s.UpsertBatch(ctx, rows)
}

func (a soldSink) UpsertOne(ctx context.Context, row model.SoldListing) error {
	return a.s.UpsertOne(ctx, row)
}

type cleanSink struct{ s store.CleanStore }

func (a cleanSink) UpsertBatch(ctx context.Context, rows []model.CleanListing) error {
	return a.s.UpsertBatch(ctx, rows)
}

func (a cleanSink) UpsertOne(ctx context.Context, row model.CleanListing) error {
	return a.s.UpsertOne(ctx, row)
}
