package geo

import (
	"math"

	"github.com/adityaverma/transitlens/internal/core/domain"
)

// DefaultEpsilon is the coordinate delta (in degrees) below which two
// consecutive polyline points are treated as the same physical point.
const DefaultEpsilon = 1e-6

// SanitizePolyline maps a route's raw coordinate list through NormalizePoint,
// drops unrepairable entries, and collapses consecutive near-duplicates.
// A single bad vertex never invalidates the whole route; fully-invalid input
// yields an empty polyline, which downstream treats as "no route to draw".
func SanitizePolyline(raw []domain.RawCoordinate, epsilon float64) domain.Polyline {
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}

	polyline := make(domain.Polyline, 0, len(raw))
	for _, rc := range raw {
		pt, ok := NormalizePoint(rc)
		if !ok {
			continue
		}
		// Compare against the last kept point only: non-adjacent repeats
		// stay, the route may legitimately revisit a point.
		if n := len(polyline); n > 0 {
			prev := polyline[n-1]
			if math.Abs(pt.Lat-prev.Lat) < epsilon && math.Abs(pt.Lng-prev.Lng) < epsilon {
				continue
			}
		}
		polyline = append(polyline, pt)
	}
	return polyline
}
