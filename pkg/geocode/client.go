// Package geocode resolves listing addresses to coordinates via the Google
// Geocoding API, cache-first, under an explicit request budget.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api/geocode/json"

// Client geocodes free-text addresses.
type Client interface {
	// Geocode resolves a single address. A ZERO_RESULTS response is not an
	// error: it returns a Result with Matched=false.
	Geocode(ctx context.Context, address string) (*Result, error)
}

// Result holds the geocoding output for an address.
type Result struct {
	Latitude  float64
	Longitude float64
	Matched   bool
}

// QuotaError signals sustained quota exhaustion from the geocoding service.
// It must abort the remaining enrichment pass rather than be swallowed as an
// empty result.
type QuotaError struct {
	Status string
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("geocode: quota exceeded (status %s)", e.Status)
}

// Option configures the geocoder.
type Option func(*googleClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *googleClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *googleClient) {
		c.http = hc
	}
}

// WithRateLimit sets the requests-per-second limit for external calls. The
// default of 5 rps gives the ~200ms inter-call spacing the API quota expects.
func WithRateLimit(rps float64) Option {
	return func(c *googleClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

type googleClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Google geocoding client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &googleClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(5, 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type geocodeResponse struct {
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
	Status string `json:"status"`
}

func (c *googleClient) Geocode(ctx context.Context, address string) (*Result, error) {
	if address == "" {
		return &Result{Matched: false}, nil
	}

	// The limiter paces every external call, success or not.
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: rate limit wait")
	}

	params := url.Values{
		"address": {address},
		"key":     {c.apiKey},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: build request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var parsed geocodeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "geocode: parse response")
	}

	// Only OK and ZERO_RESULTS are non-fatal; anything else (notably
	// OVER_QUERY_LIMIT) must surface as a hard error.
	switch parsed.Status {
	case "OK":
	case "ZERO_RESULTS":
		return &Result{Matched: false}, nil
	case "OVER_QUERY_LIMIT", "OVER_DAILY_LIMIT", "RESOURCE_EXHAUSTED":
		return nil, &QuotaError{Status: parsed.Status}
	default:
		return nil, eris.Errorf("geocode: service returned status %s", parsed.Status)
	}

	if len(parsed.Results) == 0 {
		return &Result{Matched: false}, nil
	}
	loc := parsed.Results[0].Geometry.Location
	return &Result{Latitude: loc.Lat, Longitude: loc.Lng, Matched: true}, nil
}
