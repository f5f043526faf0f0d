// Package normalizer turns a decoded raster into the row stream ingestion
// bulk-inserts: subsample to respect max_cells, emit a half-pixel bounding
// polygon per surviving pixel, classify severity, and chunk the output for
// the caller's transactional insert.
package normalizer

import (
	"fmt"
	"time"

	"github.com/aeris-platform/aeris/internal/domain"
	"github.com/aeris-platform/aeris/internal/geo"
	"github.com/aeris-platform/aeris/internal/models"
	"github.com/aeris-platform/aeris/internal/raster"
)

const (
	DefaultMaxCells  = 5000
	DefaultChunkSize = 2000
)

// Stride returns the subsample stride needed so that a width x height raster
// emits at most maxCells pixels, sampling every stride-th row and column.
func Stride(width, height, maxCells int) int {
	if maxCells <= 0 {
		maxCells = DefaultMaxCells
	}
	total := width * height
	if total <= maxCells {
		return 1
	}
	stride := 1
	for (width/stride+1)*(height/stride+1) > maxCells {
		stride++
	}
	return stride
}

// ChunkFunc receives one bulk-insertable chunk of rows.
type ChunkFunc func(chunk []models.PollutionGridCell) error

// Normalize reads g row-major starting at (north, west), the shared grid
// scan order every consumer of a raster.Grid assumes, selects pixels at the
// computed stride, and
// invokes emit once per chunkSize rows (and once more for a final partial
// chunk). A NaN/no-data pixel is skipped entirely, never emitted as a row.
func Normalize(g *raster.Grid, gas domain.GasType, timestamp time.Time, maxCells, chunkSize int, emit ChunkFunc) error {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	stride := Stride(g.Width, g.Height, maxCells)

	halfWidth := g.Transform.PixelWidth / 2
	halfHeight := g.Transform.PixelHeight / 2

	var chunk []models.PollutionGridCell
	for row := 0; row < g.Height; row += stride {
		for col := 0; col < g.Width; col += stride {
			value, ok := g.At(col, row)
			if !ok {
				continue
			}
			lon, lat := g.Transform.ColRowToLonLat(col, row)
			severity, err := domain.ClassifyPollutionLevel(float64(value), gas)
			if err != nil {
				return fmt.Errorf("normalizer: classify severity: %w", err)
			}
			chunk = append(chunk, models.PollutionGridCell{
				Timestamp:      timestamp,
				GasType:        gas,
				GeomWKT:        geo.ClosedPixelPolygonWKT(lon, lat, halfWidth, halfHeight),
				PollutionValue: float64(value),
				SeverityLevel:  severity,
			})
			if len(chunk) == chunkSize {
				if err := emit(chunk); err != nil {
					return err
				}
				chunk = nil
			}
		}
	}
	if len(chunk) > 0 {
		if err := emit(chunk); err != nil {
			return err
		}
	}
	return nil
}
