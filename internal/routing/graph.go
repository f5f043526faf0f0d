// Package routing implements the pollution-aware road routing engine: build
// a bounded graph from the road network, weight edges by mode-specific
// exposure/distance/time cost, and return up to alternatives+1 routes via
// Dijkstra/Yen's k-shortest-simple-paths.
package routing

import (
	"fmt"
	"math"

	"github.com/aeris-platform/aeris/internal/domain"
	"github.com/aeris-platform/aeris/internal/geo"
)

// nodePrecision quantizes coordinates to ~1.1cm so that shared OSM way
// endpoints collapse onto the same graph node without needing real node IDs.
const nodePrecision = 1e7

// NodeID identifies a graph node by its quantized coordinate.
type NodeID string

func nodeID(p geo.Point) NodeID {
	return NodeID(fmt.Sprintf("%d:%d", int64(math.Round(p[0]*nodePrecision)), int64(math.Round(p[1]*nodePrecision))))
}

// RawEdge is one directed-or-undirected road segment as returned by a
// RoadNetworkSource, before mode weighting. Geometry runs from the segment's
// start to its end; for a two-way road, Graph inserts both directions.
type RawEdge struct {
	Geometry      []geo.Point
	Highway       string
	HighwayTags   []string
	SpeedKPH      float64 // 0 means "use the highway-class default"
	Accessible    bool
	HasCycleway   bool
	IsLeisurePark bool
	OneWay        bool
}

// Edge is one directed edge in the built Graph, already carrying its
// geometry and the length/speed/time inputs mode weighting needs.
type Edge struct {
	From, To NodeID
	Geometry []geo.Point
	LengthM  float64
	SpeedKPH float64
	Tags     domain.EdgeTags
}

// Graph is an adjacency-list directed multigraph over quantized road nodes.
type Graph struct {
	Nodes map[NodeID]geo.Point
	Out   map[NodeID][]Edge
}

// BuildGraph converts raw road segments into a Graph, creating both
// directions for any edge not tagged OneWay.
func BuildGraph(raw []RawEdge) *Graph {
	g := &Graph{Nodes: make(map[NodeID]geo.Point), Out: make(map[NodeID][]Edge)}
	for _, r := range raw {
		if len(r.Geometry) < 2 {
			continue
		}
		highway := r.Highway
		if len(r.HighwayTags) > 0 {
			highway = domain.FirstHighwayTag(r.HighwayTags)
		}
		tags := domain.EdgeTags{
			Highway: highway, Accessible: r.Accessible,
			HasCycleway: r.HasCycleway, IsLeisurePark: r.IsLeisurePark,
		}
		g.addDirected(r.Geometry, r.SpeedKPH, tags)
		if !r.OneWay {
			g.addDirected(reverseLine(r.Geometry), r.SpeedKPH, tags)
		}
	}
	return g
}

func (g *Graph) addDirected(geometry []geo.Point, speedKPH float64, tags domain.EdgeTags) {
	from := nodeID(geometry[0])
	to := nodeID(geometry[len(geometry)-1])
	g.Nodes[from] = geometry[0]
	g.Nodes[to] = geometry[len(geometry)-1]

	line := make([]geo.Point, len(geometry))
	copy(line, geometry)
	length := lineLengthMeters(line)

	g.Out[from] = append(g.Out[from], Edge{
		From: from, To: to, Geometry: line, LengthM: length, SpeedKPH: speedKPH, Tags: tags,
	})
}

func lineLengthMeters(line []geo.Point) float64 {
	var total float64
	for i := 1; i < len(line); i++ {
		total += geo.DistanceMeters(line[i-1], line[i])
	}
	return total
}

func reverseLine(line []geo.Point) []geo.Point {
	out := make([]geo.Point, len(line))
	for i, p := range line {
		out[len(line)-1-i] = p
	}
	return out
}

// NearestNode returns the graph node closest to p by straight-line
// (Euclidean, in degrees) distance, the snapping rule used to pin a route
// endpoint onto the road graph.
func (g *Graph) NearestNode(p geo.Point) (NodeID, bool) {
	var best NodeID
	bestDist := math.Inf(1)
	found := false
	for id, np := range g.Nodes {
		dLon := np[0] - p[0]
		dLat := np[1] - p[1]
		d := dLon*dLon + dLat*dLat
		if d < bestDist {
			bestDist = d
			best = id
			found = true
		}
	}
	return best, found
}
