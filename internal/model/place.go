package model

import (
	"fmt"
	"time"
)

// PlaceKind distinguishes the point-of-interest families the enrichment
// cascade knows how to search for.
type PlaceKind string

const (
	KindSchool  PlaceKind = "school"
	KindTransit PlaceKind = "transit"
)

// Place is a point of interest near a listing: a school or a transit stop.
// ID is the external place identifier, or a coordinate-derived identifier
// when the provider returned none.
type Place struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Kind       PlaceKind `json:"kind"`
	Category   string    `json:"category"`
	Address    string    `json:"address,omitempty"`
	City       string    `json:"city,omitempty"`
	Region     string    `json:"region,omitempty"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	DistanceKM float64   `json:"distance_km"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SyntheticPlaceID derives a stable identifier from coordinates for places
// the provider returned without one. Five decimals keeps it stable at ~1m.
func SyntheticPlaceID(lat, lng float64) string {
	return fmt.Sprintf("xy:%.5f,%.5f", lat, lng)
}

// MetroCenter is one entry of the fixed metro-area table used to pre-warm the
// place cache across every serviced region.
type MetroCenter struct {
	Name      string
	Latitude  float64
	Longitude float64
}
