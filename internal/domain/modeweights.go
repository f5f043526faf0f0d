package domain

import "strings"

// Mode is a saved route's or route-query's activity type.
type Mode string

const (
	ModeCommute Mode = "commute"
	ModeJogger  Mode = "jogger"
	ModeCyclist Mode = "cyclist"
)

// ModeWeight is the (alpha, beta, gamma) cost-blend tuple for a mode.
type ModeWeight struct {
	Alpha float64 // weight on mean UPES exposure
	Beta  float64 // weight on distance (km)
	Gamma float64 // weight on time (h)
}

// ModeWeights is the shared α/β/γ exposure/distance/time cost weighting
// table, one entry per travel mode. Every entry sums to 1.0.
var ModeWeights = map[Mode]ModeWeight{
	ModeCommute: {Alpha: 0.2, Beta: 0.4, Gamma: 0.4},
	ModeJogger:  {Alpha: 0.7, Beta: 0.15, Gamma: 0.15},
	ModeCyclist: {Alpha: 0.4, Beta: 0.3, Gamma: 0.3},
}

// modeAliases maps informal spellings to the canonical mode.
var modeAliases = map[string]Mode{
	"commuter": ModeCommute,
	"jog":      ModeJogger,
	"cycle":    ModeCyclist,
}

// NormalizeMode lowercases, trims, resolves aliases, and defaults unknown
// modes to commute, so cache keys built from mode are deterministic
// regardless of how a caller spelled or cased it.
func NormalizeMode(raw string) Mode {
	m := strings.ToLower(strings.TrimSpace(raw))
	if alias, ok := modeAliases[m]; ok {
		return alias
	}
	switch Mode(m) {
	case ModeCommute, ModeJogger, ModeCyclist:
		return Mode(m)
	default:
		return ModeCommute
	}
}

const (
	minModifier = 0.1
	maxModifier = 5.0
)

// EdgeTags is the minimal set of OSM-ish tags ModeModifier needs from a road edge.
type EdgeTags struct {
	Highway      string // first element if the source tag was a list
	Accessible   bool   // explicitly tagged as foot/bike accessible despite Highway
	HasCycleway  bool
	IsLeisurePark bool
}

// ModeModifier computes the penalty/bonus multiplier for an edge under a
// mode, clamped to [0.1, 5.0] so a single bad tag combination can't zero out
// or blow up an edge's weight.
func ModeModifier(tags EdgeTags, mode Mode) float64 {
	m := 1.0
	switch mode {
	case ModeCommute:
		if isFootway(tags.Highway) && !tags.Accessible {
			m *= 1.2
		}
	case ModeJogger:
		if isMotorwayOrTrunk(tags.Highway) {
			m *= 2.0
		}
		if isFootway(tags.Highway) || tags.IsLeisurePark {
			m *= 0.5
		}
	case ModeCyclist:
		if isMotorwayOrTrunkStrict(tags.Highway) {
			m *= 1.5
		}
		if tags.HasCycleway {
			m *= 0.7
		}
	}
	return clamp(m, minModifier, maxModifier)
}

func isFootway(highway string) bool {
	switch highway {
	case "footway", "path", "pedestrian":
		return true
	}
	return false
}

func isMotorwayOrTrunk(highway string) bool {
	switch highway {
	case "motorway", "motorway_link", "trunk", "trunk_link":
		return true
	}
	return false
}

func isMotorwayOrTrunkStrict(highway string) bool {
	switch highway {
	case "motorway", "trunk":
		return true
	}
	return false
}

func clamp(v, low, high float64) float64 {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

// HighwaySpeedKPH gives the default free-flow speed for a highway class when
// no explicit speed tag is present.
var HighwaySpeedKPH = map[string]float64{
	"motorway":     100,
	"trunk":        80,
	"primary":      60,
	"secondary":    50,
	"tertiary":     40,
	"residential":  30,
	"unclassified": 30,
	"service":      20,
	"path":         5,
	"foot":         5,
}

// DefaultSpeedKPH is used when the highway class is absent from the table.
const DefaultSpeedKPH = 30.0

// FirstHighwayTag returns the governing class when an edge's highway tag is
// a list: the first element wins.
func FirstHighwayTag(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return tags[0]
}
