package routing

import (
	"context"
	"log/slog"

	"github.com/paulmach/orb"

	"github.com/aeris-platform/aeris/internal/apierr"
	"github.com/aeris-platform/aeris/internal/config"
	"github.com/aeris-platform/aeris/internal/domain"
	"github.com/aeris-platform/aeris/internal/geo"
	"github.com/aeris-platform/aeris/internal/logging"
	"github.com/aeris-platform/aeris/internal/metrics"
)

// Request is the route query contract for /api/route/optimized and
// /api/route/analyze.
type Request struct {
	StartLat, StartLon float64
	EndLat, EndLon     float64
	Mode               string
	Alternatives       int // 0..10
}

// Route is one candidate route in the response.
type Route struct {
	Nodes      []string
	GeoJSON    string
	Exposure   float64
	DistanceKM float64
	TimeMin    float64
	Cost       float64
}

// Result holds every route returned for one request; an empty slice (not an
// error) covers both "no road network in bbox" and "no path found".
type Result struct {
	Routes []Route
}

// RasterSample reads the UPES final-score raster at (lon, lat), returning
// ok=false when there is no value there. The engine falls back to
// FallbackExposure when this is nil or every sample misses.
type RasterSample func(lon, lat float64) (float64, bool)

// Engine builds a bounded road graph per request and runs Dijkstra/Yen's
// over it. It holds no long-lived graph state: each Route call fetches,
// builds, and discards its own bbox-scoped graph. Graph build and
// pathfinding are CPU-bound and run synchronously on the calling
// goroutine; the HTTP handlers call Route directly from the request's own
// goroutine.
type Engine struct {
	Enabled  bool
	BufferKM float64
	Source   RoadNetworkSource
	Metrics  *metrics.Registry

	// FinalScoreAt resolves the latest UPES final-score raster sample
	// function for the current request. Returning nil means no raster
	// exists yet; every edge then uses FallbackExposure.
	FinalScoreAt func() RasterSample

	log *slog.Logger
}

// New wires an Engine from process config.
func New(cfg config.RouteConfig, source RoadNetworkSource) *Engine {
	bufferKM := cfg.OSMBufferKM
	if bufferKM <= 0 {
		bufferKM = 3.0
	}
	return &Engine{
		Enabled:  cfg.Enabled,
		BufferKM: bufferKM,
		Source:   source,
		log:      logging.New("routing"),
	}
}

// Route computes up to req.Alternatives+1 pollution-aware routes.
func (e *Engine) Route(ctx context.Context, req Request) (Result, error) {
	if !e.Enabled {
		return Result{}, apierr.FeatureDisabled("route optimization is disabled")
	}

	start := geo.Point{req.StartLon, req.StartLat}
	end := geo.Point{req.EndLon, req.EndLat}
	bbox := envelopeOf(start, end).Expand(e.BufferKM)

	raw, err := e.Source.FetchEdges(ctx, bbox)
	if err != nil {
		e.recordOutcome(req.Mode, "fetch_error")
		return Result{}, apierr.UpstreamTransient(err, "routing: fetch road network")
	}
	if len(raw) == 0 {
		e.recordOutcome(req.Mode, "empty_network")
		return Result{}, nil
	}

	graph := BuildGraph(raw)
	startNode, ok := graph.NearestNode(start)
	if !ok {
		e.recordOutcome(req.Mode, "no_start_node")
		return Result{}, nil
	}
	endNode, ok := graph.NearestNode(end)
	if !ok {
		e.recordOutcome(req.Mode, "no_end_node")
		return Result{}, nil
	}

	mode := domain.NormalizeMode(req.Mode)
	sample := e.sampler()
	scored := ScoreEdges(graph, mode, sample)

	paths := KShortestSimplePaths(scored, startNode, endNode, clampAlternatives(req.Alternatives))
	if len(paths) == 0 {
		e.recordOutcome(req.Mode, "no_path")
		return Result{}, nil
	}

	routes := make([]Route, 0, len(paths))
	for _, p := range paths {
		routes = append(routes, aggregatePath(p))
	}
	e.recordOutcome(req.Mode, "ok")
	return Result{Routes: routes}, nil
}

func (e *Engine) sampler() exposureSampler {
	if e.FinalScoreAt == nil {
		return func([]geo.Point) float64 { return FallbackExposure }
	}
	at := e.FinalScoreAt()
	if at == nil {
		return func([]geo.Point) float64 { return FallbackExposure }
	}
	return rasterSampler(at)
}

func (e *Engine) recordOutcome(rawMode, outcome string) {
	if e.Metrics == nil {
		return
	}
	e.Metrics.RouteQueriesTotal.WithLabelValues(string(domain.NormalizeMode(rawMode)), outcome).Inc()
}

func clampAlternatives(n int) int {
	if n < 0 {
		return 0
	}
	if n > 10 {
		return 10
	}
	return n
}

func envelopeOf(a, b geo.Point) BoundingBox {
	west, east := a[0], b[0]
	if west > east {
		west, east = east, west
	}
	south, north := a[1], b[1]
	if south > north {
		south, north = north, south
	}
	return BoundingBox{West: west, South: south, East: east, North: north}
}

// aggregatePath concatenates edge polylines (dropping duplicated junction
// points) and sums distance/time/exposure/cost across the path's edges.
func aggregatePath(p Path) Route {
	var allPoints []geo.Point
	nodes := make([]string, 0, len(p.Edges)+1)
	var distanceKM, timeH, exposureKM float64

	for i, e := range p.Edges {
		pts := e.Geometry
		if i > 0 {
			pts = pts[1:]
		}
		allPoints = append(allPoints, pts...)
		nodes = append(nodes, string(e.From))
		distanceKM += e.LengthKM
		timeH += e.TimeH
		exposureKM += e.MeanUPES * e.LengthKM
	}
	if len(p.Edges) > 0 {
		nodes = append(nodes, string(p.Edges[len(p.Edges)-1].To))
	}

	return Route{
		Nodes:      nodes,
		GeoJSON:    geo.FormatLineStringGeoJSON(orb.LineString(allPoints)),
		Exposure:   exposureKM,
		DistanceKM: distanceKM,
		TimeMin:    60 * timeH,
		Cost:       p.Cost,
	}
}
