// Package geo wraps github.com/paulmach/orb's geodesic helpers (great-circle
// distance, bearing, WKT encoding) for the WGS84 geometry AERIS works with:
// grid cell polygons, road edge polylines, and saved-route sampling lines.
package geo

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geo"
)

// Point is a WGS84 (lon, lat) coordinate in degrees.
type Point = orb.Point

// DistanceMeters returns the great-circle distance between two points.
func DistanceMeters(a, b Point) float64 {
	return geo.Distance(a, b)
}

// BearingDegrees returns the initial bearing from a to b in degrees [0, 360).
func BearingDegrees(a, b Point) float64 {
	b360 := geo.Bearing(a, b)
	if b360 < 0 {
		b360 += 360
	}
	return b360
}

// AngularDifference returns the absolute difference between two bearings in
// degrees, taking the shorter way around the compass, in [0, 180].
func AngularDifference(a, b float64) float64 {
	d := a - b
	for d > 180 {
		d -= 360
	}
	for d < -180 {
		d += 360
	}
	if d < 0 {
		d = -d
	}
	return d
}

// LineLengthMeters sums the great-circle length of consecutive points.
func LineLengthMeters(line orb.LineString) float64 {
	var total float64
	for i := 1; i < len(line); i++ {
		total += DistanceMeters(line[i-1], line[i])
	}
	return total
}

// StepAlongLine returns points spaced approximately stepMeters apart along
// line, always including the first and last vertex. Used by the route
// engine's edge sampler and the alert/route-exposure scorer's straight-line
// sampler, both of which sample in ~50m geodesic intervals.
func StepAlongLine(line orb.LineString, stepMeters float64) []Point {
	if len(line) == 0 {
		return nil
	}
	if len(line) == 1 || stepMeters <= 0 {
		return []Point{line[0]}
	}

	points := []Point{line[0]}
	var carry float64
	for i := 1; i < len(line); i++ {
		segStart := line[i-1]
		segEnd := line[i]
		segLen := DistanceMeters(segStart, segEnd)
		if segLen == 0 {
			continue
		}
		d := stepMeters - carry
		for d < segLen {
			f := d / segLen
			points = append(points, interpolate(segStart, segEnd, f))
			d += stepMeters
		}
		carry = d - segLen
	}
	last := line[len(line)-1]
	if points[len(points)-1] != last {
		points = append(points, last)
	}
	return points
}

func interpolate(a, b Point, f float64) Point {
	return Point{
		a[0] + (b[0]-a[0])*f,
		a[1] + (b[1]-a[1])*f,
	}
}

// ClosedPixelPolygonWKT builds the half-pixel axis-aligned bounding polygon
// around a pixel center, as a closed WGS84 linear ring (five points, first ==
// last).
func ClosedPixelPolygonWKT(centerLon, centerLat, halfWidth, halfHeight float64) string {
	ring := orb.Ring{
		{centerLon - halfWidth, centerLat - halfHeight},
		{centerLon + halfWidth, centerLat - halfHeight},
		{centerLon + halfWidth, centerLat + halfHeight},
		{centerLon - halfWidth, centerLat + halfHeight},
		{centerLon - halfWidth, centerLat - halfHeight},
	}
	poly := orb.Polygon{ring}
	return wkt.MarshalString(poly)
}

// BoundingBoxWKT renders an envelope as a WKT POLYGON, used for alert
// metadata's bbox bounds.
func BoundingBoxWKT(west, south, east, north float64) string {
	return ClosedPixelPolygonWKT((west+east)/2, (south+north)/2, (east-west)/2, (north-south)/2)
}

// CentroidOfWKT parses a "POLYGON((lon lat, lon lat, ...))" ring (as
// produced by ClosedPixelPolygonWKT) and returns the mean of its distinct
// vertices, which is exact for the axis-aligned rectangles the normalizer
// emits. Used by the UPES aggregation step to re-bucket pollution_grid rows
// onto the coarser scoring grid. Parsed by hand rather
// than through orb's WKT decoder since the ring shape is entirely our own
// and fixed.
func CentroidOfWKT(s string) (lon, lat float64, err error) {
	open := strings.Index(s, "((")
	closeIdx := strings.LastIndex(s, "))")
	if open < 0 || closeIdx < 0 || closeIdx <= open {
		return 0, 0, fmt.Errorf("geo: malformed polygon wkt %q", s)
	}
	body := s[open+2 : closeIdx]

	seen := make(map[[2]float64]bool)
	var sumLon, sumLat float64
	var n int
	for _, pair := range strings.Split(body, ",") {
		fields := strings.Fields(strings.TrimSpace(pair))
		if len(fields) != 2 {
			return 0, 0, fmt.Errorf("geo: malformed polygon vertex %q in %q", pair, s)
		}
		var x, y float64
		if _, err := fmt.Sscanf(fields[0], "%g", &x); err != nil {
			return 0, 0, fmt.Errorf("geo: parse lon %q: %w", fields[0], err)
		}
		if _, err := fmt.Sscanf(fields[1], "%g", &y); err != nil {
			return 0, 0, fmt.Errorf("geo: parse lat %q: %w", fields[1], err)
		}
		key := [2]float64{x, y}
		if seen[key] {
			continue
		}
		seen[key] = true
		sumLon += x
		sumLat += y
		n++
	}
	if n == 0 {
		return 0, 0, fmt.Errorf("geo: no vertices parsed from %q", s)
	}
	return sumLon / float64(n), sumLat / float64(n), nil
}

// FormatLineStringGeoJSON renders line as a GeoJSON LineString geometry
// object, for the /api/route/optimized response.
func FormatLineStringGeoJSON(line orb.LineString) string {
	var b strings.Builder
	b.WriteString(`{"type":"LineString","coordinates":[`)
	for i, p := range line {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, "[%g,%g]", p[0], p[1])
	}
	b.WriteString("]}")
	return b.String()
}
