package raster

import (
	"math"

	"github.com/aeris-platform/aeris/internal/geo"
	"github.com/paulmach/orb"
)

// DefaultFallbackUPES is what SampleAlongLine and SampleMaxAlongLine return
// when g is nil or no sample along the line is valid.
const DefaultFallbackUPES = 0.5

// stepMeters is the geodesic sampling interval the route edge sampler and
// the alert route sampler both use.
const stepMeters = 50.0

// lonLatToColRow inverts a GeoTransform to find the pixel containing (lon, lat).
func lonLatToColRow(gt GeoTransform, lon, lat float64) (col, row int) {
	col = int(math.Floor((lon - gt.OriginLon) / gt.PixelWidth))
	row = int(math.Floor((lat - gt.OriginLat) / gt.PixelHeight))
	return col, row
}

// ValueAt reads the raster value at a WGS84 coordinate, or false if the
// coordinate falls outside the grid or on a NoData cell.
func (g *Grid) ValueAt(lon, lat float64) (float64, bool) {
	col, row := lonLatToColRow(g.Transform, lon, lat)
	v, ok := g.At(col, row)
	if !ok {
		return 0, false
	}
	return float64(v), true
}

// SampleAlongLine steps line in ~50m geodesic intervals, reads the raster at
// each point, and averages the valid samples. If g is nil or no sample is
// valid, it returns the fallback value and false.
//
// SampleAlongLine is deterministic given its inputs: two calls on the same
// raster and line return the same mean, since StepAlongLine always produces
// the same point sequence.
func SampleAlongLine(g *Grid, line orb.LineString) (mean float64, ok bool) {
	if g == nil {
		return DefaultFallbackUPES, false
	}
	points := geo.StepAlongLine(line, stepMeters)
	var sum float64
	var count int
	for _, p := range points {
		if v, valid := g.ValueAt(p[0], p[1]); valid {
			sum += v
			count++
		}
	}
	if count == 0 {
		return DefaultFallbackUPES, false
	}
	return sum / float64(count), true
}

// SampleMaxAlongLine is like SampleAlongLine but returns the maximum valid
// sample.
func SampleMaxAlongLine(g *Grid, line orb.LineString) (max float64, ok bool) {
	if g == nil {
		return DefaultFallbackUPES, false
	}
	points := geo.StepAlongLine(line, stepMeters)
	var found bool
	for _, p := range points {
		if v, valid := g.ValueAt(p[0], p[1]); valid {
			if !found || v > max {
				max = v
				found = true
			}
		}
	}
	if !found {
		return DefaultFallbackUPES, false
	}
	return max, true
}

// ScanRowMajor iterates every cell of the grid in the row-major,
// north-to-west order the raster file contract specifies, invoking
// fn(col, row, lon, lat, value, valid) for each.
func (g *Grid) ScanRowMajor(fn func(col, row int, lon, lat float64, value float32, valid bool)) {
	for row := 0; row < g.Height; row++ {
		for col := 0; col < g.Width; col++ {
			lon, lat := g.Transform.ColRowToLonLat(col, row)
			v, ok := g.At(col, row)
			fn(col, row, lon, lat, v, ok)
		}
	}
}
