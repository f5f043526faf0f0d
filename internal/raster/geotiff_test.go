package raster

import (
	"path/filepath"
	"testing"
)

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "final_score_20260101_00.tif")

	g := NewGrid(3, 2, GeoTransform{OriginLon: -10, OriginLat: 50, PixelWidth: 1, PixelHeight: -1}, -9999)
	g.Set(0, 0, 0.25)
	g.Set(1, 0, 0.75)
	g.Set(2, 1, 1.0)

	if err := WriteFile(path, g); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got.Width != 3 || got.Height != 2 {
		t.Fatalf("dims = %dx%d, want 3x2", got.Width, got.Height)
	}
	if v, ok := got.At(0, 0); !ok || v != 0.25 {
		t.Errorf("At(0,0) = %v,%v want 0.25,true", v, ok)
	}
	if v, ok := got.At(2, 1); !ok || v != 1.0 {
		t.Errorf("At(2,1) = %v,%v want 1.0,true", v, ok)
	}
	if _, ok := got.At(1, 1); ok {
		t.Errorf("At(1,1) should be NoData")
	}
}

func TestWriteFileIsAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.tif")
	g := NewGrid(1, 1, GeoTransform{}, -9999)
	g.Set(0, 0, 0.5)
	if err := WriteFile(path, g); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	entries, err := filepathGlobTmp(dir)
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("leftover temp files after WriteFile: %v", entries)
	}
}

func filepathGlobTmp(dir string) ([]string, error) {
	return filepath.Glob(filepath.Join(dir, ".tmp-*"))
}

func TestColRowToLonLat(t *testing.T) {
	gt := GeoTransform{OriginLon: -10, OriginLat: 50, PixelWidth: 0.5, PixelHeight: -0.5}
	lon, lat := gt.ColRowToLonLat(0, 0)
	if lon != -9.75 || lat != 49.75 {
		t.Errorf("ColRowToLonLat(0,0) = (%v,%v), want (-9.75,49.75)", lon, lat)
	}
}
