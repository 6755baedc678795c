package geo

import (
	"testing"

	"github.com/adityaverma/transitlens/internal/core/domain"
)

func TestResolveCenter(t *testing.T) {
	anchor := domain.GeoPoint{Lat: 28.6139, Lng: 77.2090}

	polyline := domain.Polyline{{Lat: 12.97, Lng: 77.59}, {Lat: 12.98, Lng: 77.60}}
	if got := ResolveCenter(polyline, anchor); got != polyline[0] {
		t.Errorf("expected first point, got %+v", got)
	}

	if got := ResolveCenter(nil, anchor); got != anchor {
		t.Errorf("expected anchor fallback, got %+v", got)
	}
}

func TestResolveBounds(t *testing.T) {
	polyline := domain.Polyline{
		{Lat: 12.97, Lng: 77.59},
		{Lat: 13.01, Lng: 77.55},
		{Lat: 12.95, Lng: 77.62},
	}
	b, ok := ResolveBounds(polyline, 0.01)
	if !ok {
		t.Fatal("expected bounds")
	}
	want := domain.Bounds{MinLat: 12.94, MaxLat: 13.02, MinLng: 77.54, MaxLng: 77.63}
	const tol = 1e-9
	if diff(b.MinLat, want.MinLat) > tol || diff(b.MaxLat, want.MaxLat) > tol ||
		diff(b.MinLng, want.MinLng) > tol || diff(b.MaxLng, want.MaxLng) > tol {
		t.Errorf("got %+v, want %+v", b, want)
	}
}

func TestResolveBoundsEmpty(t *testing.T) {
	if _, ok := ResolveBounds(nil, 0.01); ok {
		t.Error("empty polyline should yield no bounds")
	}
}

func TestResolveBoundsDegenerate(t *testing.T) {
	polyline := domain.Polyline{
		{Lat: 12.97, Lng: 77.59},
		{Lat: 12.97, Lng: 77.59},
	}
	if _, ok := ResolveBounds(polyline, 0.01); ok {
		t.Error("single-point box should yield no bounds")
	}
}

func TestResolveBoundsSingleAxisSpread(t *testing.T) {
	// Spread on one axis only is still a drawable box.
	polyline := domain.Polyline{
		{Lat: 12.97, Lng: 77.59},
		{Lat: 12.99, Lng: 77.59},
	}
	b, ok := ResolveBounds(polyline, 0)
	if !ok {
		t.Fatal("expected bounds")
	}
	if b.MinLat != 12.97 || b.MaxLat != 12.99 {
		t.Errorf("unexpected box: %+v", b)
	}
}

func diff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
