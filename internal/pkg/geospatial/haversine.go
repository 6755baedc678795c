package geospatial

import (
	"math"

	"github.com/adityaverma/transitlens/internal/core/domain"
)

const earthRadiusKm = 6371.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000 // meters
}

// PathLength sums the great-circle distance in meters along a polyline.
// Zero or one point yields 0.
func PathLength(polyline domain.Polyline) float64 {
	var total float64
	for i := 1; i < len(polyline); i++ {
		total += Haversine(
			polyline[i-1].Lat, polyline[i-1].Lng,
			polyline[i].Lat, polyline[i].Lng,
		)
	}
	return total
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
