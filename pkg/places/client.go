// Package places wraps the Google Places (New) Nearby Search API used to
// discover schools and transit stops around a coordinate.
package places

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/metrolist/listing-sync/internal/resilience"
)

const defaultBaseURL = "https://places.googleapis.com/v1"

// fieldMask limits the response to the fields the enrichment cascade reads.
const fieldMask = "places.id,places.displayName,places.formattedAddress,places.location,places.types"

// Client performs nearby place searches.
type Client interface {
	// SearchNearby returns up to maxResults places of the included types
	// within radiusMeters of the center.
	SearchNearby(ctx context.Context, q NearbyQuery) ([]Place, error)
}

// NearbyQuery describes one nearby search call.
type NearbyQuery struct {
	Latitude      float64
	Longitude     float64
	RadiusMeters  float64
	IncludedTypes []string
	MaxResults    int
}

// Place is a single result from the Places API.
type Place struct {
	ID               string      `json:"id"`
	DisplayName      DisplayName `json:"displayName"`
	FormattedAddress string      `json:"formattedAddress"`
	Location         Location    `json:"location"`
	Types            []string    `json:"types"`
}

// DisplayName holds the place's display name.
type DisplayName struct {
	Text string `json:"text"`
}

// Location is a WGS84 coordinate.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithBreaker installs a circuit breaker around external calls so a flapping
// Places backend is rejected fast instead of hammered.
func WithBreaker(cb *resilience.CircuitBreaker) Option {
	return func(c *httpClient) {
		c.breaker = cb
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	breaker *resilience.CircuitBreaker
}

// NewClient creates a Places API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type searchNearbyRequest struct {
	IncludedTypes       []string            `json:"includedTypes"`
	MaxResultCount      int                 `json:"maxResultCount"`
	LocationRestriction locationRestriction `json:"locationRestriction"`
}

type locationRestriction struct {
	Circle circle `json:"circle"`
}

type circle struct {
	Center Location `json:"center"`
	Radius float64  `json:"radius"`
}

type searchNearbyResponse struct {
	Places []Place `json:"places"`
}

func (c *httpClient) SearchNearby(ctx context.Context, q NearbyQuery) ([]Place, error) {
	if c.breaker == nil {
		return c.searchNearby(ctx, q)
	}
	return resilience.ExecuteVal(ctx, c.breaker, func(ctx context.Context) ([]Place, error) {
		return c.searchNearby(ctx, q)
	})
}

func (c *httpClient) searchNearby(ctx context.Context, q NearbyQuery) ([]Place, error) {
	body, err := json.Marshal(searchNearbyRequest{
		IncludedTypes:  q.IncludedTypes,
		MaxResultCount: q.MaxResults,
		LocationRestriction: locationRestriction{
			Circle: circle{
				Center: Location{Latitude: q.Latitude, Longitude: q.Longitude},
				Radius: q.RadiusMeters,
			},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "places: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/places:searchNearby", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "places: create request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "places: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "places: read response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("places: unexpected status %d: %s", resp.StatusCode, string(respBody))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var result searchNearbyResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "places: unmarshal response")
	}

	return result.Places, nil
}
