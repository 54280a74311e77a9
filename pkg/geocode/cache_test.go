package geocode

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCache struct {
	entries map[string]*Result
	putErr  error
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]*Result)}
}

func (m *memCache) Get(_ context.Context, key string) (*Result, error) {
	r, ok := m.entries[key]
	if !ok {
		return nil, errors.New("no rows in result set")
	}
	return r, nil
}

func (m *memCache) Put(_ context.Context, key string, result *Result) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.entries[key] = result
	return nil
}

type stubClient struct {
	result *Result
	err    error
	calls  int
}

func (s *stubClient) Geocode(_ context.Context, _ string) (*Result, error) {
	s.calls++
	return s.result, s.err
}

func TestCachedClient_HitSkipsExternal(t *testing.T) {
	cache := newMemCache()
	cache.entries[CacheKey("101 Main St, Toronto")] = &Result{Latitude: 43.6, Longitude: -79.4, Matched: true}
	ext := &stubClient{}

	c := NewCachedClient(cache, ext)
	result, err := c.Geocode(context.Background(), "101 Main St, Toronto")
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Zero(t, ext.calls)
}

func TestCachedClient_NegativeHitSkipsExternal(t *testing.T) {
	cache := newMemCache()
	cache.entries[CacheKey("000 Nowhere")] = &Result{Matched: false}
	ext := &stubClient{}

	c := NewCachedClient(cache, ext)
	result, err := c.Geocode(context.Background(), "000 Nowhere")
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Zero(t, ext.calls)
}

func TestCachedClient_MissFallsThroughAndWritesBack(t *testing.T) {
	cache := newMemCache()
	ext := &stubClient{result: &Result{Latitude: 45.5, Longitude: -73.55, Matched: true}}

	c := NewCachedClient(cache, ext)
	result, err := c.Geocode(context.Background(), "200 Rue Principale, Montreal")
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, 1, ext.calls)

	cached, err := cache.Get(context.Background(), CacheKey("200 Rue Principale, Montreal"))
	require.NoError(t, err)
	assert.Equal(t, 45.5, cached.Latitude)
}

func TestCachedClient_QuotaErrorPassesThrough(t *testing.T) {
	cache := newMemCache()
	ext := &stubClient{err: &QuotaError{Status: "OVER_QUERY_LIMIT"}}

	c := NewCachedClient(cache, ext)
	_, err := c.Geocode(context.Background(), "101 Main St")
	var qe *QuotaError
	require.True(t, errors.As(err, &qe))
}

func TestCachedClient_CacheWriteFailureIsBestEffort(t *testing.T) {
	cache := newMemCache()
	cache.putErr = errors.New("disk full")
	ext := &stubClient{result: &Result{Matched: true, Latitude: 1, Longitude: 2}}

	c := NewCachedClient(cache, ext)
	result, err := c.Geocode(context.Background(), "101 Main St")
	require.NoError(t, err)
	assert.True(t, result.Matched)
}
