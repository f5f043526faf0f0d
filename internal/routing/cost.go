package routing

import (
	"math"

	"github.com/aeris-platform/aeris/internal/domain"
	"github.com/aeris-platform/aeris/internal/geo"
)

// exposureSampler returns the mean UPES exposure along a polyline: step the
// edge polyline in ~50m geodesic intervals, read the current UPES raster at
// each point, and average the valid samples. FallbackExposure (0.5) is
// returned directly when no raster is wired.
type exposureSampler func(line []geo.Point) float64

// FallbackExposure is used when no UPES raster exists yet.
const FallbackExposure = 0.5

const sampleStepMeters = 50.0

// rasterSampler builds an exposureSampler backed by a grid reader callback,
// so routing never imports the raster package's file layout directly.
func rasterSampler(at func(lon, lat float64) (float64, bool)) exposureSampler {
	return func(line []geo.Point) float64 {
		points := geo.StepAlongLine(line, sampleStepMeters)
		var sum float64
		var n int
		for _, p := range points {
			v, ok := at(p[0], p[1])
			if !ok {
				continue
			}
			sum += v
			n++
		}
		if n == 0 {
			return FallbackExposure
		}
		return sum / float64(n)
	}
}

// ScoredEdge is a graph Edge with its mode-specific cost fields computed.
type ScoredEdge struct {
	Edge
	LengthKM float64
	TimeH    float64
	MeanUPES float64
	Modifier float64
	Weight   float64
}

// ScoredGraph is a Graph with every edge weighted for one mode.
type ScoredGraph struct {
	Nodes map[NodeID]geo.Point
	Out   map[NodeID][]ScoredEdge
}

// ScoreEdges computes length/speed/time/mean_upes/modifier/weight for every
// edge in g under mode, applying the mode's exposure weighting.
func ScoreEdges(g *Graph, mode domain.Mode, sample exposureSampler) *ScoredGraph {
	weights := domain.ModeWeights[mode]
	sg := &ScoredGraph{Nodes: g.Nodes, Out: make(map[NodeID][]ScoredEdge, len(g.Out))}
	for from, edges := range g.Out {
		scored := make([]ScoredEdge, len(edges))
		for i, e := range edges {
			speed := e.SpeedKPH
			if speed <= 0 {
				speed = domain.HighwaySpeedKPH[e.Tags.Highway]
				if speed == 0 {
					speed = domain.DefaultSpeedKPH
				}
			}
			lengthKM := e.LengthM / 1000
			timeH := lengthKM / math.Max(speed, 5)
			meanUPES := sample(e.Geometry)
			modifier := domain.ModeModifier(e.Tags, mode)
			weight := modifier * (weights.Alpha*meanUPES + weights.Beta*lengthKM + weights.Gamma*timeH)
			scored[i] = ScoredEdge{
				Edge: e, LengthKM: lengthKM, TimeH: timeH,
				MeanUPES: meanUPES, Modifier: modifier, Weight: weight,
			}
		}
		sg.Out[from] = scored
	}
	return sg
}
