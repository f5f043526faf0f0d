package httpapi

import (
	"net/http"
	"time"

	"github.com/aeris-platform/aeris/internal/domain"
	"github.com/aeris-platform/aeris/internal/geo"
	"github.com/aeris-platform/aeris/internal/models"
)

// nearbyCell is one pollution_grid row reduced to what the analyze/hotspots
// handlers expose: its centroid, gas, value, and derived severity.
type nearbyCell struct {
	Gas       domain.GasType
	Lat, Lon  float64
	Value     float64
	Severity  int
	Timestamp time.Time
}

// nearbyCells fetches the latest one-hour window for each requested gas and
// keeps only cells whose centroid falls within radiusKM of (lat, lon). The
// grid store's ST_Intersects query covers polygon/bbox lookups, not
// point-radius, so filtering happens here the same way
// internal/alerts.sourcePoint narrows a bbox query to a point.
func (h *handlers) nearbyCells(r *http.Request, gases []domain.GasType, lat, lon, radiusKM float64) ([]nearbyCell, error) {
	center := geo.Point{lon, lat}
	var out []nearbyCell
	for _, gas := range gases {
		latest, err := h.d.Store.LatestTimestamp(r.Context(), gas)
		if err != nil {
			return nil, err
		}
		if latest.IsZero() {
			continue
		}
		cells, err := h.d.Store.CellsInWindow(r.Context(), gas, latest.Add(-time.Hour), latest)
		if err != nil {
			return nil, err
		}
		for _, c := range cells {
			clon, clat, err := geo.CentroidOfWKT(c.GeomWKT)
			if err != nil {
				continue
			}
			if geo.DistanceMeters(center, geo.Point{clon, clat}) > radiusKM*1000 {
				continue
			}
			out = append(out, nearbyCell{
				Gas: gas, Lat: clat, Lon: clon, Value: c.PollutionValue,
				Severity: c.SeverityLevel, Timestamp: c.Timestamp,
			})
		}
	}
	return out, nil
}

// severityLabel renders the 0..4 severity_level scale from the pollution
// thresholds table as the band name consumers expect.
func severityLabel(level int) string {
	switch level {
	case 4:
		return "hazardous"
	case 3:
		return "very_unhealthy"
	case 2:
		return "unhealthy"
	case 1:
		return "moderate"
	default:
		return "good"
	}
}

// unitsFor builds the gas -> unit map for the requested gases, straight off
// the shared thresholds table.
func unitsFor(gases []domain.GasType) map[domain.GasType]string {
	units := make(map[domain.GasType]string, len(gases))
	for _, g := range gases {
		units[g] = domain.PollutionThresholds[g].Unit
	}
	return units
}

// maxSeverityCell returns the highest-severity cell in cells, or ok=false
// when cells is empty.
func maxSeverityCell(cells []nearbyCell) (models.PollutionGridCell, bool) {
	var best nearbyCell
	var found bool
	for _, c := range cells {
		if !found || c.Severity > best.Severity {
			best = c
			found = true
		}
	}
	if !found {
		return models.PollutionGridCell{}, false
	}
	return models.PollutionGridCell{GasType: best.Gas, PollutionValue: best.Value, SeverityLevel: best.Severity}, true
}
