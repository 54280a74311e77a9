// Package enrich holds the two enrichment cascades: coordinate backfill via
// geocoding and nearby points of interest via the places cache.
package enrich

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/metrolist/listing-sync/internal/geo"
	"github.com/metrolist/listing-sync/internal/model"
	"github.com/metrolist/listing-sync/internal/store"
	"github.com/metrolist/listing-sync/pkg/geocode"
)

// Feeds emit these keys in whatever casing their source system uses.
var (
	latitudeKeys  = []string{"Latitude", "latitude", "LATITUDE", "Lat", "lat"}
	longitudeKeys = []string{"Longitude", "longitude", "LONGITUDE", "Lng", "lng", "Long", "long"}
)

// Coordinates probes both payloads for a valid coordinate pair. The public
// payload is checked first.
func Coordinates(l *model.Listing) (lat, lng float64, ok bool) {
	for _, p := range []model.Payload{l.Public, l.Restricted} {
		la, okLat := p.FirstFloat(latitudeKeys...)
		ln, okLng := p.FirstFloat(longitudeKeys...)
		if okLat && okLng && geo.ValidCoordinate(la, ln) {
			return la, ln, true
		}
	}
	return 0, 0, false
}

// GeocoderConfig tunes one geocoding pass.
type GeocoderConfig struct {
	// Cap bounds external spend per pass; remaining candidates wait for the
	// next scheduled run. Default 30.
	Cap int

	// Delay is the pause after each lookup. Default 150ms.
	Delay time.Duration

	// PageSize for scanning the raw store. Default 500.
	PageSize int
}

// GeocodeResult summarizes one pass.
type GeocodeResult struct {
	Scanned   int // listings examined
	Attempted int // lookups issued
	Updated   int // coordinates written back
	Misses    int // lookups with no match
}

// Geocoder backfills coordinates on listings that lack them.
type Geocoder struct {
	listings store.ListingStore
	client   geocode.Client
	cfg      GeocoderConfig
}

// NewGeocoder creates a geocoder. Wrap client in geocode.NewCachedClient to
// get cache-first lookups.
func NewGeocoder(listings store.ListingStore, client geocode.Client, cfg GeocoderConfig) *Geocoder {
	if cfg.Cap <= 0 {
		cfg.Cap = 30
	}
	if cfg.Delay <= 0 {
		cfg.Delay = 150 * time.Millisecond
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 500
	}
	return &Geocoder{listings: listings, client: client, cfg: cfg}
}

// Run scans the raw store for listings without valid coordinates and fills
// them in, up to the configured cap. A quota error from the geocoding service
// aborts the pass; ZERO_RESULTS and unparseable addresses just skip the
// listing.
func (g *Geocoder) Run(ctx context.Context) (*GeocodeResult, error) {
	log := zap.L().With(zap.String("component", "enrich.geocoder"))
	res := &GeocodeResult{}

	for offset := 0; res.Attempted < g.cfg.Cap; offset += g.cfg.PageSize {
		page, err := g.listings.Page(ctx, offset, g.cfg.PageSize)
		if err != nil {
			return res, eris.Wrapf(err, "geocoder: read page at offset %d", offset)
		}

		for i := range page {
			if res.Attempted >= g.cfg.Cap {
				break
			}
			l := &page[i]
			res.Scanned++

			if _, _, ok := Coordinates(l); ok {
				continue
			}
			address := geocode.BuildAddress(l.Public, l.Restricted)
			if address == "" {
				continue
			}

			result, err := g.lookup(ctx, address)
			res.Attempted++
			if err != nil {
				return res, err
			}
			if !result.Matched {
				res.Misses++
				continue
			}

			if err := g.listings.MergeCoordinates(ctx, l.ListingKey, result.Latitude, result.Longitude); err != nil {
				return res, eris.Wrapf(err, "geocoder: write back %s", l.ListingKey)
			}
			res.Updated++
			log.Debug("coordinates backfilled",
				zap.String("listing_key", l.ListingKey),
				zap.Float64("lat", result.Latitude),
				zap.Float64("lng", result.Longitude),
			)
		}

		if len(page) < g.cfg.PageSize {
			break
		}
	}

	log.Info("geocoding pass complete",
		zap.Int("scanned", res.Scanned),
		zap.Int("attempted", res.Attempted),
		zap.Int("updated", res.Updated),
		zap.Int("misses", res.Misses),
	)
	return res, nil
}

// lookup calls the geocoder and applies the inter-call delay. Quota errors
// surface unchanged so the caller can abort the pass.
func (g *Geocoder) lookup(ctx context.Context, address string) (*geocode.Result, error) {
	result, err := g.client.Geocode(ctx, address)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(g.cfg.Delay):
	}

	if err != nil {
		var quota *geocode.QuotaError
		if errors.As(err, &quota) {
			return nil, eris.Wrap(err, "geocoder: quota exhausted, aborting pass")
		}
		return nil, eris.Wrapf(err, "geocoder: lookup %q", address)
	}
	return result, nil
}
