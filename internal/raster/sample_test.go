package raster

import (
	"testing"

	"github.com/paulmach/orb"
)

func buildTestGrid() *Grid {
	// 10x10 grid covering lon [-119,-118), lat [33,34) increasing north to south storage.
	gt := GeoTransform{OriginLon: -119, OriginLat: 34, PixelWidth: 0.1, PixelHeight: -0.1}
	g := NewGrid(10, 10, gt, -9999)
	for row := 0; row < 10; row++ {
		for col := 0; col < 10; col++ {
			g.Set(col, row, float32(col)/10.0)
		}
	}
	return g
}

func TestSampleAlongLineDeterministic(t *testing.T) {
	g := buildTestGrid()
	line := orb.LineString{{-118.95, 33.95}, {-118.05, 33.05}}
	m1, ok1 := SampleAlongLine(g, line)
	m2, ok2 := SampleAlongLine(g, line)
	if ok1 != ok2 || m1 != m2 {
		t.Errorf("SampleAlongLine not deterministic: (%v,%v) vs (%v,%v)", m1, ok1, m2, ok2)
	}
	if !ok1 {
		t.Fatal("expected valid sample")
	}
}

func TestSampleAlongLineFallbackWhenNilGrid(t *testing.T) {
	line := orb.LineString{{-118.9, 33.9}, {-118.1, 33.1}}
	mean, ok := SampleAlongLine(nil, line)
	if ok {
		t.Error("expected ok=false for nil raster")
	}
	if mean != DefaultFallbackUPES {
		t.Errorf("mean = %v, want fallback %v", mean, DefaultFallbackUPES)
	}
}

func TestSampleMaxAlongLine(t *testing.T) {
	g := buildTestGrid()
	line := orb.LineString{{-118.95, 33.5}, {-118.05, 33.5}}
	max, ok := SampleMaxAlongLine(g, line)
	if !ok {
		t.Fatal("expected valid sample")
	}
	if max < 0.8 {
		t.Errorf("max = %v, want close to 0.9 (rightmost column)", max)
	}
}

func TestScanRowMajorOrder(t *testing.T) {
	g := NewGrid(2, 2, GeoTransform{OriginLon: 0, OriginLat: 0, PixelWidth: 1, PixelHeight: -1}, -9999)
	g.Set(0, 0, 1)
	g.Set(1, 0, 2)
	g.Set(0, 1, 3)
	g.Set(1, 1, 4)

	var seen []float32
	g.ScanRowMajor(func(col, row int, lon, lat float64, value float32, valid bool) {
		if valid {
			seen = append(seen, value)
		}
	})
	want := []float32{1, 2, 3, 4}
	if len(seen) != len(want) {
		t.Fatalf("got %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("seen[%d] = %v, want %v", i, seen[i], want[i])
		}
	}
}
