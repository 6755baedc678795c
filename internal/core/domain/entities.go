package domain

import "time"

// RawCoordinate is one untrusted coordinate record as received from the
// backend. No shape is guaranteed: the point may live under any of several
// key-name conventions, values may be strings or numbers, and a point may be
// nested one level inside another field.
type RawCoordinate map[string]any

// RawRoute is a route as returned by the backend's search endpoint,
// coordinates still unvalidated.
type RawRoute struct {
	ID            string          `json:"id"`
	RouteNumber   string          `json:"route_number"`
	RouteName     string          `json:"route_name"`
	StartingPoint string          `json:"starting_point"`
	EndingPoint   string          `json:"ending_point"`
	Stops         []string        `json:"stops"`
	Coordinates   []RawCoordinate `json:"coordinates"`
}

// RawBusRecord is one live bus entry as received from the backend.
// Latitude and Longitude are deliberately untyped: the feed has been observed
// to send them as numbers and as strings.
type RawBusRecord struct {
	ID          string `json:"id"`
	BusID       string `json:"bus_id"`
	RouteID     string `json:"route_id"`
	RouteName   string `json:"route_name"`
	Latitude    any    `json:"latitude"`
	Longitude   any    `json:"longitude"`
	CrowdLevel  string `json:"crowd_level"`
	LastUpdated string `json:"last_updated"`
}

// Route is a validated route ready for display: backend metadata plus the
// sanitized polyline and the viewport derived from it.
type Route struct {
	ID            string    `json:"id"`
	RouteNumber   string    `json:"route_number"`
	RouteName     string    `json:"route_name"`
	StartingPoint string    `json:"starting_point"`
	EndingPoint   string    `json:"ending_point"`
	Stops         []string  `json:"stops"`
	Polyline      Polyline  `json:"polyline"`
	Center        GeoPoint  `json:"center"`
	Bounds        *Bounds   `json:"bounds,omitempty"`
	LengthMeters  float64   `json:"length_meters"`
	FetchedAt     time.Time `json:"fetched_at"`
}

// BusPosition is a renderable marker. Produced fresh each poll cycle;
// a previous cycle's position for the same bus is discarded, never merged.
type BusPosition struct {
	BusID       string   `json:"bus_id"`
	RouteID     string   `json:"route_id,omitempty"`
	RouteName   string   `json:"route_name,omitempty"`
	Location    GeoPoint `json:"location"`
	CrowdLevel  string   `json:"crowd_level,omitempty"`
	Highlighted bool     `json:"highlighted"`
	LastUpdated string   `json:"last_updated,omitempty"`
}

// BusSnapshot is one complete poll cycle's worth of projected markers.
// The UI always reflects the latest complete snapshot, never a diff.
type BusSnapshot struct {
	Markers []BusPosition `json:"markers"`
	TakenAt time.Time     `json:"taken_at"`
}

// RenderState is the composed, render-ready map state for one route:
// recomputed as a whole whenever any of its inputs change, never patched
// incrementally, and with no identity beyond the current render pass.
type RenderState struct {
	RouteID     string        `json:"route_id,omitempty"`
	Center      GeoPoint      `json:"center"`
	Bounds      *Bounds       `json:"bounds,omitempty"`
	Polyline    Polyline      `json:"polyline"`
	Markers     []BusPosition `json:"markers"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// ETAStop is one row of a bus's ETA table, computed by the external ETA
// service and only displayed here.
type ETAStop struct {
	Stop           string  `json:"stop"`
	DistanceMeters float64 `json:"distance_meters"`
	ETASeconds     float64 `json:"eta_seconds"`
}

// BusETA is the external ETA service's payload for one bus.
type BusETA struct {
	BusID            string    `json:"bus_id"`
	CurrentSpeedKmph float64   `json:"current_speed_kmph"`
	Stops            []ETAStop `json:"eta"`
	FetchedAt        time.Time `json:"fetched_at"`
}
