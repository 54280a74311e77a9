// Package model defines the core domain types shared across the sync and
// enrichment pipeline: raw listings, their derived projections, and places.
package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Payload is a semi-structured per-source listing payload as decoded from
// JSONB. Values follow encoding/json conventions: nil, float64, string, bool,
// []any, or map[string]any.
type Payload map[string]any

// Has reports whether the key is present, regardless of its value.
func (p Payload) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// String returns the value under key as a string. Numeric values are
// formatted; nil, absent, and non-scalar values return "".
func (p Payload) String(key string) string {
	v, ok := p[key]
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}

// Float returns the value under key as a float64 and whether it was a usable
// number. Numeric strings are parsed, so "43.65" and 43.65 behave alike.
func (p Payload) Float(key string) (float64, bool) {
	v, ok := p[key]
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// FirstString returns the first non-empty string value found among keys.
func (p Payload) FirstString(keys ...string) string {
	for _, k := range keys {
		if s := strings.TrimSpace(p.String(k)); s != "" {
			return s
		}
	}
	return ""
}

// FirstFloat returns the first usable numeric value found among keys.
func (p Payload) FirstFloat(keys ...string) (float64, bool) {
	for _, k := range keys {
		if f, ok := p.Float(k); ok {
			return f, true
		}
	}
	return 0, false
}

// Merge returns a copy of p with keys from other added where p has none.
// Existing keys in p always win.
func (p Payload) Merge(other Payload) Payload {
	merged := make(Payload, len(p)+len(other))
	for k, v := range other {
		merged[k] = v
	}
	for k, v := range p {
		merged[k] = v
	}
	return merged
}
