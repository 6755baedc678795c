package geo

import "github.com/adityaverma/transitlens/internal/core/domain"

// ResolveCenter derives a map center from a sanitized polyline: the first
// point when one exists, else the given fallback anchor.
func ResolveCenter(polyline domain.Polyline, fallback domain.GeoPoint) domain.GeoPoint {
	if len(polyline) > 0 {
		return polyline[0]
	}
	return fallback
}

// ResolveBounds computes a bounding box covering every polyline point plus a
// fixed padding margin (degrees). It returns ok=false for an empty polyline
// or a degenerate box (all points within epsilon of one another), in which
// case the caller should leave the current viewport unchanged.
func ResolveBounds(polyline domain.Polyline, padding float64) (domain.Bounds, bool) {
	if len(polyline) == 0 {
		return domain.Bounds{}, false
	}

	b := domain.Bounds{
		MinLat: polyline[0].Lat, MaxLat: polyline[0].Lat,
		MinLng: polyline[0].Lng, MaxLng: polyline[0].Lng,
	}
	for _, pt := range polyline[1:] {
		if pt.Lat < b.MinLat {
			b.MinLat = pt.Lat
		}
		if pt.Lat > b.MaxLat {
			b.MaxLat = pt.Lat
		}
		if pt.Lng < b.MinLng {
			b.MinLng = pt.Lng
		}
		if pt.Lng > b.MaxLng {
			b.MaxLng = pt.Lng
		}
	}

	if b.MaxLat-b.MinLat < DefaultEpsilon && b.MaxLng-b.MinLng < DefaultEpsilon {
		return domain.Bounds{}, false
	}

	b.MinLat -= padding
	b.MaxLat += padding
	b.MinLng -= padding
	b.MaxLng += padding
	return b, true
}
