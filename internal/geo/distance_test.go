package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineKM_KnownDistances(t *testing.T) {
	// Toronto Union Station to Ottawa station, roughly 352 km.
	d := HaversineKM(43.6453, -79.3806, 45.4161, -75.6517)
	assert.InDelta(t, 352, d, 5)

	// Same point.
	assert.Equal(t, 0.0, HaversineKM(43.65, -79.38, 43.65, -79.38))
}

func TestHaversineKM_RoundedToTenthKM(t *testing.T) {
	d := HaversineKM(43.6532, -79.3832, 43.6453, -79.3806)
	assert.Equal(t, math.Round(d*10), d*10, "distance carries at most one decimal")
	assert.Greater(t, d, 0.0)
}

func TestValidCoordinate(t *testing.T) {
	assert.True(t, ValidCoordinate(43.65, -79.38))
	assert.True(t, ValidCoordinate(-90, 180))
	assert.False(t, ValidCoordinate(91, 0))
	assert.False(t, ValidCoordinate(0, -181))
	assert.False(t, ValidCoordinate(0, 0), "null island treated as unset")
}

func TestBoundingBox_ContainsRadius(t *testing.T) {
	box := BoundingBox(43.65, -79.38, 15)
	assert.Less(t, box.MinLat, 43.65)
	assert.Greater(t, box.MaxLat, 43.65)
	assert.Less(t, box.MinLng, -79.38)
	assert.Greater(t, box.MaxLng, -79.38)

	// A point 15km due north must fall inside the box.
	assert.GreaterOrEqual(t, box.MaxLat, 43.65+15.0/111.0)
}
