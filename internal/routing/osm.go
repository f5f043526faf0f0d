package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/aeris-platform/aeris/internal/geo"
)

// RoadNetworkSource fetches the raw road segments inside a bounding box.
// The real implementation queries an Overpass API instance; tests use a
// fake in-memory source instead of a live query.
type RoadNetworkSource interface {
	FetchEdges(ctx context.Context, bbox BoundingBox) ([]RawEdge, error)
}

// BoundingBox is a (west, south, east, north) WGS84 envelope in degrees.
type BoundingBox struct {
	West, South, East, North float64
}

// Expand grows the box by km kilometers on every side, mirroring the
// configured route_osm_buffer_km margin applied around a route's endpoints.
func (b BoundingBox) Expand(km float64) BoundingBox {
	const kmPerDegLat = 111.0
	dLat := km / kmPerDegLat
	dLon := km / (kmPerDegLat * cosApprox(b.centerLat()))
	return BoundingBox{West: b.West - dLon, South: b.South - dLat, East: b.East + dLon, North: b.North + dLat}
}

func (b BoundingBox) centerLat() float64 { return (b.South + b.North) / 2 }

func cosApprox(latDeg float64) float64 {
	rad := latDeg * 3.14159265358979 / 180
	c := 1 - rad*rad/2 + rad*rad*rad*rad/24
	if c < 0.1 {
		return 0.1
	}
	return c
}

// OverpassSource fetches road segments from a public or self-hosted
// Overpass API endpoint, the standard way to query OpenStreetMap data
// without running a full planet import.
type OverpassSource struct {
	http    *http.Client
	baseURL string
}

// NewOverpassSource builds an OverpassSource. baseURL defaults to the public
// overpass-api.de interpreter endpoint.
func NewOverpassSource(baseURL string, client *http.Client) *OverpassSource {
	if baseURL == "" {
		baseURL = "https://overpass-api.de/api/interpreter"
	}
	if client == nil {
		client = &http.Client{}
	}
	return &OverpassSource{http: client, baseURL: baseURL}
}

type overpassElement struct {
	Type string            `json:"type"`
	ID   int64             `json:"id"`
	Lat  float64           `json:"lat"`
	Lon  float64           `json:"lon"`
	Nodes []int64          `json:"nodes"`
	Tags map[string]string `json:"tags"`
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

// FetchEdges queries Overpass for every highway way intersecting bbox and
// converts each way into one RawEdge per consecutive node pair.
func (s *OverpassSource) FetchEdges(ctx context.Context, bbox BoundingBox) ([]RawEdge, error) {
	query := fmt.Sprintf(`[out:json][timeout:25];way["highway"](%f,%f,%f,%f);(._;>;);out body;`,
		bbox.South, bbox.West, bbox.North, bbox.East)

	form := url.Values{"data": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("routing: build overpass request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("routing: overpass request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("routing: overpass returned %d", resp.StatusCode)
	}

	var parsed overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("routing: decode overpass response: %w", err)
	}
	return waysToEdges(parsed.Elements), nil
}

func waysToEdges(elements []overpassElement) []RawEdge {
	nodePoints := make(map[int64]geo.Point)
	var ways []overpassElement
	for _, el := range elements {
		switch el.Type {
		case "node":
			nodePoints[el.ID] = geo.Point{el.Lon, el.Lat}
		case "way":
			ways = append(ways, el)
		}
	}

	var edges []RawEdge
	for _, way := range ways {
		line := make([]geo.Point, 0, len(way.Nodes))
		for _, nid := range way.Nodes {
			p, ok := nodePoints[nid]
			if !ok {
				continue
			}
			line = append(line, p)
		}
		if len(line) < 2 {
			continue
		}
		_, hasCycleway := way.Tags["cycleway"]
		oneway := way.Tags["oneway"] == "yes" || way.Tags["oneway"] == "1"
		speed := parseSpeedTag(way.Tags["maxspeed"])
		for i := 1; i < len(line); i++ {
			edges = append(edges, RawEdge{
				Geometry:    []geo.Point{line[i-1], line[i]},
				Highway:     way.Tags["highway"],
				SpeedKPH:    speed,
				Accessible:  way.Tags["foot"] == "yes" || way.Tags["bicycle"] == "yes",
				HasCycleway: hasCycleway,
				OneWay:      oneway,
			})
		}
	}
	return edges
}

func parseSpeedTag(raw string) float64 {
	if raw == "" {
		return 0
	}
	raw = strings.TrimSuffix(strings.TrimSpace(raw), " mph")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}
