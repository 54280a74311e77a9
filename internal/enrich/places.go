package enrich

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/metrolist/listing-sync/internal/geo"
	"github.com/metrolist/listing-sync/internal/model"
	"github.com/metrolist/listing-sync/internal/store"
	"github.com/metrolist/listing-sync/pkg/places"
)

// categoryGroup is one external search call: a set of provider type tags and
// the user-facing label they map to.
type categoryGroup struct {
	Types []string
	Label string
}

// Group order doubles as labeling priority: the first group whose tag appears
// in a place's type list names its category.
var categoryGroups = map[model.PlaceKind][]categoryGroup{
	model.KindTransit: {
		{Types: []string{"subway_station"}, Label: "subway"},
		{Types: []string{"light_rail_station"}, Label: "light-rail"},
		{Types: []string{"train_station"}, Label: "train"},
		{Types: []string{"bus_station", "bus_stop"}, Label: "bus"},
		{Types: []string{"airport"}, Label: "airport"},
		{Types: []string{"transit_station"}, Label: "transit"},
	},
	model.KindSchool: {
		{Types: []string{"preschool"}, Label: "preschool"},
		{Types: []string{"primary_school"}, Label: "primary"},
		{Types: []string{"secondary_school"}, Label: "secondary"},
		{Types: []string{"university"}, Label: "university"},
		{Types: []string{"school"}, Label: "school"},
	},
}

// CategoryLabel maps a place's provider type tags to a user-facing category.
// First matching group in priority order wins; an unrecognized tag set gets
// the kind's generic label.
func CategoryLabel(kind model.PlaceKind, types []string) string {
	tagSet := make(map[string]bool, len(types))
	for _, t := range types {
		tagSet[t] = true
	}
	for _, g := range categoryGroups[kind] {
		for _, tag := range g.Types {
			if tagSet[tag] {
				return g.Label
			}
		}
	}
	return string(kind)
}

// PlacesConfig tunes the enricher.
type PlacesConfig struct {
	// RadiusKM is the search radius. The boundary is inclusive. Default 15.
	RadiusKM float64

	// PerGroupResults caps each external group call. Default 20.
	PerGroupResults int
}

// PlacesEnricher answers nearby-place queries cache-first and fans out to the
// external service only when the cache has nothing at all for a coordinate.
type PlacesEnricher struct {
	cache  store.PlaceCache
	client places.Client
	cfg    PlacesConfig

	wg sync.WaitGroup
}

// NewPlacesEnricher creates an enricher.
func NewPlacesEnricher(cache store.PlaceCache, client places.Client, cfg PlacesConfig) *PlacesEnricher {
	if cfg.RadiusKM <= 0 {
		cfg.RadiusKM = 15
	}
	if cfg.PerGroupResults <= 0 {
		cfg.PerGroupResults = 20
	}
	return &PlacesEnricher{cache: cache, client: client, cfg: cfg}
}

// Nearby returns up to limit places of the given kind around the coordinate,
// sorted ascending by distance. Any cached data, even partial, short-circuits
// the external service.
func (e *PlacesEnricher) Nearby(ctx context.Context, lat, lng float64, kind model.PlaceKind, limit int) ([]model.Place, error) {
	log := zap.L().With(zap.String("component", "enrich.places"), zap.String("kind", string(kind)))

	cached, err := e.cache.Nearby(ctx, lat, lng, e.cfg.RadiusKM, kind, limit)
	if err != nil {
		log.Warn("place cache lookup failed, falling through to external", zap.Error(err))
	}
	if len(cached) > 0 {
		return cached, nil
	}

	fetched, err := e.fanOut(ctx, lat, lng, kind)
	if err != nil {
		return nil, err
	}

	result := e.rank(lat, lng, kind, fetched, limit)

	// Best-effort write-back off the request path.
	if len(result) > 0 {
		persist := make([]model.Place, len(result))
		copy(persist, result)
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			if err := e.cache.UpsertPlaces(context.WithoutCancel(ctx), persist); err != nil {
				log.Warn("place cache write-back failed", zap.Error(err))
			}
		}()
	}
	return result, nil
}

// Wait blocks until pending cache write-backs finish. Call before shutdown.
func (e *PlacesEnricher) Wait() {
	e.wg.Wait()
}

// fanOut runs one external search per category group concurrently. Each
// goroutine writes only its own slot; results merge after the group joins.
func (e *PlacesEnricher) fanOut(ctx context.Context, lat, lng float64, kind model.PlaceKind) ([]places.Place, error) {
	groups := categoryGroups[kind]
	slots := make([][]places.Place, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	for i, grp := range groups {
		g.Go(func() error {
			found, err := e.client.SearchNearby(gctx, places.NearbyQuery{
				Latitude:      lat,
				Longitude:     lng,
				RadiusMeters:  e.cfg.RadiusKM * 1000,
				IncludedTypes: grp.Types,
				MaxResults:    e.cfg.PerGroupResults,
			})
			if err != nil {
				return err
			}
			slots[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []places.Place
	for _, s := range slots {
		all = append(all, s...)
	}
	return all, nil
}

// rank normalizes, dedups, distance-filters, sorts, and truncates raw
// provider results.
func (e *PlacesEnricher) rank(lat, lng float64, kind model.PlaceKind, raw []places.Place, limit int) []model.Place {
	now := time.Now().UTC()
	seen := make(map[string]bool, len(raw))
	out := make([]model.Place, 0, len(raw))

	for _, p := range raw {
		if !geo.ValidCoordinate(p.Location.Latitude, p.Location.Longitude) {
			continue
		}
		id := p.ID
		if id == "" {
			id = model.SyntheticPlaceID(p.Location.Latitude, p.Location.Longitude)
		}
		if seen[id] {
			continue
		}
		seen[id] = true

		d := geo.HaversineKM(lat, lng, p.Location.Latitude, p.Location.Longitude)
		if d > e.cfg.RadiusKM {
			continue
		}

		address, city, region := splitAddress(p.FormattedAddress)
		out = append(out, model.Place{
			ID:         id,
			Name:       p.DisplayName.Text,
			Kind:       kind,
			Category:   CategoryLabel(kind, p.Types),
			Address:    address,
			City:       city,
			Region:     region,
			Latitude:   p.Location.Latitude,
			Longitude:  p.Location.Longitude,
			DistanceKM: d,
			UpdatedAt:  now,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].DistanceKM < out[j].DistanceKM })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// splitAddress pulls street, city, and region out of a provider-formatted
// address like "65 Front St W, Toronto, ON M5J 1E6, Canada".
func splitAddress(formatted string) (address, city, region string) {
	parts := strings.Split(formatted, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) > 0 {
		address = parts[0]
	}
	if len(parts) > 1 {
		city = parts[1]
	}
	if len(parts) > 2 {
		// "ON M5J 1E6" — the province code leads, postal code follows.
		if fields := strings.Fields(parts[2]); len(fields) > 0 {
			region = fields[0]
		}
	}
	return address, city, region
}
