package geo

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func TestDistanceMetersKnownPoints(t *testing.T) {
	// Roughly 1 degree of longitude at the equator is ~111km.
	a := Point{0, 0}
	b := Point{1, 0}
	d := DistanceMeters(a, b)
	if d < 110000 || d > 112000 {
		t.Errorf("DistanceMeters(0,0 -> 1,0) = %v, want ~111km", d)
	}
}

func TestAngularDifferenceWrapsAround(t *testing.T) {
	if got := AngularDifference(350, 10); math.Abs(got-20) > 1e-9 {
		t.Errorf("AngularDifference(350,10) = %v, want 20", got)
	}
	if got := AngularDifference(10, 350); math.Abs(got-20) > 1e-9 {
		t.Errorf("AngularDifference(10,350) = %v, want 20", got)
	}
}

func TestStepAlongLineIncludesEndpoints(t *testing.T) {
	line := orb.LineString{{0, 0}, {0, 1}}
	pts := StepAlongLine(line, 50)
	if len(pts) < 2 {
		t.Fatalf("expected multiple sample points, got %d", len(pts))
	}
	if pts[0] != line[0] {
		t.Errorf("first point = %v, want %v", pts[0], line[0])
	}
	if pts[len(pts)-1] != line[len(line)-1] {
		t.Errorf("last point = %v, want %v", pts[len(pts)-1], line[len(line)-1])
	}
}

func TestStepAlongLineDeterministic(t *testing.T) {
	line := orb.LineString{{-118.2, 34.0}, {-118.2, 34.1}, {-118.1, 34.1}}
	a := StepAlongLine(line, 50)
	b := StepAlongLine(line, 50)
	if len(a) != len(b) {
		t.Fatalf("non-deterministic point counts: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("point %d differs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestClosedPixelPolygonWKTIsClosedRing(t *testing.T) {
	w := ClosedPixelPolygonWKT(-118.2, 34.0, 0.025, 0.025)
	if w == "" {
		t.Fatal("expected non-empty WKT")
	}
}

func TestCentroidOfWKTRoundTripsPixelCenter(t *testing.T) {
	w := ClosedPixelPolygonWKT(-118.2, 34.0, 0.025, 0.025)
	lon, lat, err := CentroidOfWKT(w)
	if err != nil {
		t.Fatalf("CentroidOfWKT: %v", err)
	}
	if math.Abs(lon-(-118.2)) > 1e-9 || math.Abs(lat-34.0) > 1e-9 {
		t.Errorf("centroid = (%v, %v), want (-118.2, 34.0)", lon, lat)
	}
}
