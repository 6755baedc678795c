package geo

import (
	"testing"

	"github.com/adityaverma/transitlens/internal/core/domain"
)

func rawPt(lat, lng float64) domain.RawCoordinate {
	return domain.RawCoordinate{"lat": lat, "lng": lng}
}

func TestSanitizePolyline(t *testing.T) {
	raw := []domain.RawCoordinate{
		rawPt(1, 1),
		rawPt(1.0000001, 1.0000001), // within epsilon of previous
		rawPt(2, 2),
		rawPt(1, 1), // non-adjacent revisit, kept
	}
	got := SanitizePolyline(raw, 1e-6)
	want := domain.Polyline{
		{Lat: 1, Lng: 1},
		{Lat: 2, Lng: 2},
		{Lat: 1, Lng: 1},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d points, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("point %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSanitizePolylineDropsBadVertices(t *testing.T) {
	raw := []domain.RawCoordinate{
		rawPt(12.97, 77.59),
		{"lat": "garbage", "lng": 77.60},
		nil,
		rawPt(12.98, 77.61),
	}
	got := SanitizePolyline(raw, 1e-6)
	if len(got) != 2 {
		t.Fatalf("got %d points, want 2: %+v", len(got), got)
	}
	if got[0] != (domain.GeoPoint{Lat: 12.97, Lng: 77.59}) || got[1] != (domain.GeoPoint{Lat: 12.98, Lng: 77.61}) {
		t.Errorf("order not preserved: %+v", got)
	}
}

func TestSanitizePolylineDedupeOneAxisOnly(t *testing.T) {
	// Near-duplicate requires BOTH axes within epsilon.
	raw := []domain.RawCoordinate{
		rawPt(1, 1),
		rawPt(1, 1.5),
	}
	if got := SanitizePolyline(raw, 1e-6); len(got) != 2 {
		t.Fatalf("points differing on one axis must both be kept, got %+v", got)
	}
}

func TestSanitizePolylineAllInvalid(t *testing.T) {
	raw := []domain.RawCoordinate{
		{"lat": "x", "lng": "y"},
		{},
	}
	got := SanitizePolyline(raw, 1e-6)
	if len(got) != 0 {
		t.Fatalf("expected empty polyline, got %+v", got)
	}
}

func TestSanitizePolylineIdempotent(t *testing.T) {
	raw := []domain.RawCoordinate{
		rawPt(1, 1),
		rawPt(1.0000001, 1.0000001),
		rawPt(2, 2),
	}
	first := SanitizePolyline(raw, 1e-6)

	asRaw := make([]domain.RawCoordinate, len(first))
	for i, pt := range first {
		asRaw[i] = rawPt(pt.Lat, pt.Lng)
	}
	second := SanitizePolyline(asRaw, 1e-6)

	if len(second) != len(first) {
		t.Fatalf("sanitize not idempotent: %d then %d points", len(first), len(second))
	}
	for i := range first {
		if second[i] != first[i] {
			t.Errorf("point %d changed on second pass: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestSanitizePolylineDefaultEpsilon(t *testing.T) {
	raw := []domain.RawCoordinate{rawPt(1, 1), rawPt(1, 1)}
	if got := SanitizePolyline(raw, 0); len(got) != 1 {
		t.Fatalf("zero epsilon should fall back to default, got %+v", got)
	}
}
