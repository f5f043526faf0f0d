package normalizer

import (
	"testing"
	"time"

	"github.com/aeris-platform/aeris/internal/domain"
	"github.com/aeris-platform/aeris/internal/models"
	"github.com/aeris-platform/aeris/internal/raster"
)

func buildGrid(t *testing.T, width, height int, value float32) *raster.Grid {
	t.Helper()
	transform := raster.GeoTransform{OriginLon: -120, OriginLat: 40, PixelWidth: 0.1, PixelHeight: -0.1}
	g := raster.NewGrid(width, height, transform, -9999)
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			g.Set(col, row, value)
		}
	}
	return g
}

func TestStrideKeepsUnderMaxCells(t *testing.T) {
	stride := Stride(100, 100, 500)
	emitted := ((100 / stride) + 1) * ((100 / stride) + 1)
	if emitted > 500 {
		t.Errorf("stride %d still emits up to %d cells, want <= 500", stride, emitted)
	}
}

func TestStrideIsOneWhenUnderBudget(t *testing.T) {
	if got := Stride(10, 10, 5000); got != 1 {
		t.Errorf("Stride = %d, want 1", got)
	}
}

func TestNormalizeChunksAndClassifies(t *testing.T) {
	g := buildGrid(t, 10, 10, 6e15) // moderate NO2 value (severity 1)
	ts := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)

	var rowCount int
	var chunkSizes []int
	err := Normalize(g, domain.GasNO2, ts, 5000, 30, func(chunk []models.PollutionGridCell) error {
		chunkSizes = append(chunkSizes, len(chunk))
		rowCount += len(chunk)
		for _, row := range chunk {
			if row.SeverityLevel != 1 {
				t.Errorf("SeverityLevel = %d, want 1", row.SeverityLevel)
			}
			if row.GasType != domain.GasNO2 {
				t.Errorf("GasType = %q, want NO2", row.GasType)
			}
			if !row.Timestamp.Equal(ts) {
				t.Errorf("Timestamp = %v, want %v", row.Timestamp, ts)
			}
			if row.GeomWKT == "" {
				t.Error("expected non-empty GeomWKT")
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if rowCount != 100 {
		t.Errorf("rowCount = %d, want 100", rowCount)
	}
	for i, size := range chunkSizes {
		if i < len(chunkSizes)-1 && size != 30 {
			t.Errorf("chunk %d size = %d, want 30", i, size)
		}
	}
	if len(chunkSizes) != 4 {
		t.Errorf("len(chunkSizes) = %d, want 4 (three of 30, one of 10)", len(chunkSizes))
	}
}

func TestNormalizeSkipsNoDataPixels(t *testing.T) {
	transform := raster.GeoTransform{OriginLon: -120, OriginLat: 40, PixelWidth: 0.1, PixelHeight: -0.1}
	g := raster.NewGrid(2, 2, transform, -9999)
	g.Set(0, 0, float32(6e15))
	// (1,0), (0,1), (1,1) left as NoData and must be skipped.

	var rows int
	err := Normalize(g, domain.GasNO2, time.Now().UTC(), 5000, 10, func(chunk []models.PollutionGridCell) error {
		rows += len(chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if rows != 1 {
		t.Errorf("emitted rows = %d, want 1", rows)
	}
}

func TestNormalizeAppliesStrideUnderMaxCells(t *testing.T) {
	g := buildGrid(t, 20, 20, 6e15)
	var rows int
	err := Normalize(g, domain.GasNO2, time.Now().UTC(), 100, 1000, func(chunk []models.PollutionGridCell) error {
		rows += len(chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if rows > 100 {
		t.Errorf("emitted %d rows, want <= 100 under max_cells budget", rows)
	}
}
