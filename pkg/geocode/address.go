package geocode

import (
	"strings"

	"github.com/metrolist/listing-sync/internal/model"
)

// streetKeys are the address components concatenated in fixed order to form
// the street line.
var streetKeys = []string{
	"StreetNumber",
	"StreetDirPrefix",
	"StreetName",
	"StreetSuffix",
	"StreetDirSuffix",
}

// BuildAddress assembles a geocodable postal address from both payload maps.
// Public keys win over restricted keys on collision. Returns "" when no
// street component survives, which callers treat as "skip this listing".
func BuildAddress(public, restricted model.Payload) string {
	merged := public.Merge(restricted)

	var streetParts []string
	for _, k := range streetKeys {
		if v := strings.TrimSpace(merged.String(k)); v != "" {
			streetParts = append(streetParts, v)
		}
	}
	if len(streetParts) == 0 {
		return ""
	}

	segments := []string{strings.Join(streetParts, " ")}
	for _, k := range []string{"City", "StateOrProvince", "PostalCode"} {
		if v := strings.TrimSpace(merged.String(k)); v != "" {
			segments = append(segments, v)
		}
	}
	return strings.Join(segments, ", ")
}
