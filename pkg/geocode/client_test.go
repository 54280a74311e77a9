package geocode

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-key", WithBaseURL(srv.URL), WithRateLimit(1000))
}

func TestGeocode_Match(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "101 Main St, Toronto, ON, M5V 2T6", r.URL.Query().Get("address"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"status": "OK",
			"results": [{"geometry": {"location": {"lat": 43.6426, "lng": -79.3871}}}]
		}`)
	})

	result, err := c.Geocode(context.Background(), "101 Main St, Toronto, ON, M5V 2T6")
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.InDelta(t, 43.6426, result.Latitude, 0.0001)
	assert.InDelta(t, -79.3871, result.Longitude, 0.0001)
}

func TestGeocode_ZeroResultsIsNotAnError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status": "ZERO_RESULTS", "results": []}`)
	})

	result, err := c.Geocode(context.Background(), "000 Nonexistent, Nowhere")
	require.NoError(t, err)
	assert.False(t, result.Matched)
}

func TestGeocode_QuotaExceededIsHardError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status": "OVER_QUERY_LIMIT", "results": []}`)
	})

	_, err := c.Geocode(context.Background(), "101 Main St")
	require.Error(t, err)

	var qe *QuotaError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, "OVER_QUERY_LIMIT", qe.Status)
}

func TestGeocode_UnknownStatusIsError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status": "REQUEST_DENIED", "results": []}`)
	})

	_, err := c.Geocode(context.Background(), "101 Main St")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REQUEST_DENIED")
}

func TestGeocode_HTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := c.Geocode(context.Background(), "101 Main St")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}

func TestGeocode_EmptyAddressSkipsCall(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		called = true
	})

	result, err := c.Geocode(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.False(t, called)
}

func TestGeocode_OKWithoutResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status": "OK", "results": []}`)
	})

	result, err := c.Geocode(context.Background(), "101 Main St")
	require.NoError(t, err)
	assert.False(t, result.Matched)
}
