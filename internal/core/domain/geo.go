package domain

// GeoPoint is a validated geographic coordinate (WGS 84):
// Lat in [-90, 90], Lng in [-180, 180]. A GeoPoint is never mutated
// in place, only replaced.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Polyline is an ordered sequence of GeoPoints describing a route path.
// Adjacent near-duplicates have been collapsed; non-adjacent repeats are
// legitimate (a route may revisit a point).
type Polyline []GeoPoint

// Bounds is a geographic bounding box framing a map viewport.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}
