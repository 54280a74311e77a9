// Package geo provides the coordinate validation and great-circle distance
// helpers shared by the enrichment cascades and the place cache.
package geo

import "math"

const earthRadiusKM = 6371.0

// HaversineKM returns the great-circle distance between two coordinates,
// rounded to 0.1 km.
func HaversineKM(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	d := 2 * earthRadiusKM * math.Asin(math.Sqrt(a))

	return math.Round(d*10) / 10
}

// ValidCoordinate reports whether lat/lng form a usable WGS84 coordinate.
func ValidCoordinate(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180 && !(lat == 0 && lng == 0)
}

// BBox is a lat/lng bounding box used as a cheap SQL prefilter before the
// exact haversine check.
type BBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// BoundingBox returns a box that fully contains the circle of radiusKM
// around the center. Longitude span widens with latitude; near the poles it
// degenerates to the full range.
func BoundingBox(lat, lng, radiusKM float64) BBox {
	latDelta := radiusKM / 111.0 // ~111km per degree of latitude
	lngDelta := 180.0
	if cos := math.Cos(radians(lat)); cos > 1e-6 {
		lngDelta = radiusKM / (111.0 * cos)
	}
	return BBox{
		MinLat: lat - latDelta,
		MaxLat: lat + latDelta,
		MinLng: lng - lngDelta,
		MaxLng: lng + lngDelta,
	}
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
