// Package geo repairs and validates untrusted coordinate payloads coming in
// from the backend feed. Every function here is pure: bad input degrades to
// an exclusion, never to a panic or an error that could abort a render.
package geo

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/adityaverma/transitlens/internal/core/domain"
)

// Accepted key spellings per logical field, resolved by first match.
// Kept data-driven so a new upstream alias is an append, not a new branch.
var (
	latAliases = []string{"lat", "latitude", "Lat", "Latitude", "LAT"}
	lngAliases = []string{"lng", "lon", "longitude", "Lng", "Lon", "Longitude", "LNG"}
)

// NormalizePoint converts one raw coordinate record of unknown shape into a
// validated GeoPoint. The second return is false when the record is not
// repairable: missing fields, non-numeric values, or out-of-bounds after the
// single swap attempt.
func NormalizePoint(raw domain.RawCoordinate) (domain.GeoPoint, bool) {
	if raw == nil {
		return domain.GeoPoint{}, false
	}

	latVal, latOK := resolveField(raw, latAliases)
	lngVal, lngOK := resolveField(raw, lngAliases)

	// Some payloads nest the point one level down inside the longitude
	// field. Recurse exactly one level.
	if nested, ok := lngVal.(map[string]any); ok {
		latVal, latOK = resolveField(nested, latAliases)
		lngVal, lngOK = resolveField(nested, lngAliases)
	}
	if !latOK || !lngOK {
		return domain.GeoPoint{}, false
	}

	lat, ok := coerceFloat(latVal)
	if !ok {
		return domain.GeoPoint{}, false
	}
	lng, ok := coerceFloat(lngVal)
	if !ok {
		return domain.GeoPoint{}, false
	}

	// A known upstream bug transposes the two fields. Swap at most once:
	// a point with both axes out of range is unrecoverable.
	if math.Abs(lat) > 90 && math.Abs(lng) <= 90 {
		lat, lng = lng, lat
	}

	if math.Abs(lat) > 90 || math.Abs(lng) > 180 {
		return domain.GeoPoint{}, false
	}
	return domain.GeoPoint{Lat: lat, Lng: lng}, true
}

// resolveField returns the value of the first alias present in the record.
// Keys carrying surrounding whitespace match their trimmed spelling.
func resolveField(raw map[string]any, aliases []string) (any, bool) {
	for _, alias := range aliases {
		if v, ok := raw[alias]; ok {
			return v, true
		}
		for k, v := range raw {
			if strings.TrimSpace(k) == alias {
				return v, true
			}
		}
	}
	return nil, false
}

// coerceFloat turns a raw JSON value into a finite float64.
// Strings are trimmed before parsing; NaN and ±Inf are rejected.
func coerceFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
