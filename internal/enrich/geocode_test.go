package enrich

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metrolist/listing-sync/internal/model"
	"github.com/metrolist/listing-sync/pkg/geocode"
)

type fakeListings struct {
	listings []model.Listing
	merged   map[string][2]float64
}

func (f *fakeListings) Page(_ context.Context, offset, limit int) ([]model.Listing, error) {
	if offset >= len(f.listings) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.listings) {
		end = len(f.listings)
	}
	return f.listings[offset:end], nil
}

func (f *fakeListings) Upsert(context.Context, *model.Listing) error { return nil }

func (f *fakeListings) MergeCoordinates(_ context.Context, key string, lat, lng float64) error {
	if f.merged == nil {
		f.merged = map[string][2]float64{}
	}
	f.merged[key] = [2]float64{lat, lng}
	return nil
}

type scriptedGeocoder struct {
	results map[string]*geocode.Result
	err     error
	calls   []string
}

func (s *scriptedGeocoder) Geocode(_ context.Context, address string) (*geocode.Result, error) {
	s.calls = append(s.calls, address)
	if s.err != nil {
		return nil, s.err
	}
	if r, ok := s.results[address]; ok {
		return r, nil
	}
	return &geocode.Result{Matched: false}, nil
}

func fastGeocoderConfig() GeocoderConfig {
	return GeocoderConfig{Cap: 30, Delay: time.Millisecond, PageSize: 100}
}

func TestCoordinatesProbesCasingVariants(t *testing.T) {
	cases := []struct {
		name string
		l    model.Listing
		ok   bool
	}{
		{"canonical", model.Listing{Public: model.Payload{"Latitude": 43.65, "Longitude": -79.38}}, true},
		{"lowercase", model.Listing{Public: model.Payload{"latitude": 43.65, "longitude": -79.38}}, true},
		{"short keys in restricted", model.Listing{Restricted: model.Payload{"Lat": 43.65, "Lng": -79.38}}, true},
		{"string values", model.Listing{Public: model.Payload{"Latitude": "43.65", "Longitude": "-79.38"}}, true},
		{"zero pair rejected", model.Listing{Public: model.Payload{"Latitude": 0.0, "Longitude": 0.0}}, false},
		{"out of range", model.Listing{Public: model.Payload{"Latitude": 95.0, "Longitude": -79.38}}, false},
		{"missing", model.Listing{Public: model.Payload{"City": "Toronto"}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, ok := Coordinates(&tc.l)
			assert.Equal(t, tc.ok, ok)
		})
	}
}

func TestGeocoderBackfillsMissingCoordinates(t *testing.T) {
	listings := &fakeListings{listings: []model.Listing{
		{ListingKey: "HAS", Public: model.Payload{"Latitude": 43.65, "Longitude": -79.38}},
		{ListingKey: "MISS", Public: model.Payload{
			"StreetNumber": "65", "StreetName": "Front", "StreetSuffix": "St",
			"City": "Toronto", "StateOrProvince": "ON", "PostalCode": "M5J 1E6",
		}},
		{ListingKey: "NOADDR", Public: model.Payload{"ListPrice": 100}},
	}}
	client := &scriptedGeocoder{results: map[string]*geocode.Result{
		"65 Front St, Toronto, ON, M5J 1E6": {Latitude: 43.6453, Longitude: -79.3806, Matched: true},
	}}

	g := NewGeocoder(listings, client, fastGeocoderConfig())
	res, err := g.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, res.Scanned)
	assert.Equal(t, 1, res.Attempted)
	assert.Equal(t, 1, res.Updated)
	assert.Zero(t, res.Misses)
	assert.Equal(t, [2]float64{43.6453, -79.3806}, listings.merged["MISS"])

	// Listings with valid coordinates or no constructible address never reach
	// the external service.
	require.Len(t, client.calls, 1)
}

func TestGeocoderCountsMisses(t *testing.T) {
	listings := &fakeListings{listings: []model.Listing{
		{ListingKey: "M1", Public: model.Payload{"StreetNumber": "1", "StreetName": "Nowhere"}},
	}}
	client := &scriptedGeocoder{}

	g := NewGeocoder(listings, client, fastGeocoderConfig())
	res, err := g.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Misses)
	assert.Zero(t, res.Updated)
	assert.Empty(t, listings.merged)
}

func TestGeocoderQuotaAbortsPass(t *testing.T) {
	listings := &fakeListings{listings: []model.Listing{
		{ListingKey: "M1", Public: model.Payload{"StreetNumber": "1", "StreetName": "First"}},
		{ListingKey: "M2", Public: model.Payload{"StreetNumber": "2", "StreetName": "Second"}},
	}}
	client := &scriptedGeocoder{err: &geocode.QuotaError{Status: "OVER_QUERY_LIMIT"}}

	g := NewGeocoder(listings, client, fastGeocoderConfig())
	_, err := g.Run(context.Background())
	require.ErrorContains(t, err, "quota exhausted")
	assert.Len(t, client.calls, 1)
}

func TestGeocoderHonorsCap(t *testing.T) {
	var many []model.Listing
	for i := 0; i < 50; i++ {
		many = append(many, model.Listing{
			ListingKey: "K",
			Public:     model.Payload{"StreetNumber": "1", "StreetName": "Main"},
		})
	}
	listings := &fakeListings{listings: many}
	client := &scriptedGeocoder{}

	cfg := fastGeocoderConfig()
	cfg.Cap = 5
	g := NewGeocoder(listings, client, cfg)
	res, err := g.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, res.Attempted)
	assert.Len(t, client.calls, 5)
}
