package geo

import (
	"math"

	"github.com/adityaverma/transitlens/internal/core/domain"
)

// ProjectMarkers validates live bus records into renderable marker positions.
// Entries whose coordinates do not coerce to finite in-bounds numbers are
// dropped. The first record matching highlightID is tagged for highlighted
// styling; all others keep the default classification.
//
// Records sharing a bus id are NOT deduplicated: both are rendered, surfacing
// backend inconsistency instead of masking it.
func ProjectMarkers(raw []domain.RawBusRecord, highlightID string) []domain.BusPosition {
	markers := make([]domain.BusPosition, 0, len(raw))
	highlighted := false

	for _, rec := range raw {
		lat, ok := coerceFloat(rec.Latitude)
		if !ok {
			continue
		}
		lng, ok := coerceFloat(rec.Longitude)
		if !ok {
			continue
		}
		if math.Abs(lat) > 90 || math.Abs(lng) > 180 {
			continue
		}

		m := domain.BusPosition{
			BusID:       rec.BusID,
			RouteID:     rec.RouteID,
			RouteName:   rec.RouteName,
			Location:    domain.GeoPoint{Lat: lat, Lng: lng},
			CrowdLevel:  rec.CrowdLevel,
			LastUpdated: rec.LastUpdated,
		}
		if !highlighted && highlightID != "" && rec.BusID == highlightID {
			m.Highlighted = true
			highlighted = true
		}
		markers = append(markers, m)
	}
	return markers
}
