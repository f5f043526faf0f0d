package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aeris-platform/aeris/internal/apierr"
	"github.com/aeris-platform/aeris/internal/domain"
	"github.com/aeris-platform/aeris/internal/store/cache"
	"github.com/aeris-platform/aeris/internal/weather"
)

// resolveLocation honors the /api/analyze contract: latitude/longitude take
// precedence when present; otherwise location is resolved through the
// geocode client.
func (h *handlers) resolveLocation(r *http.Request) (lat, lon float64, displayName string, err error) {
	latRaw, lonRaw := param(r, "latitude"), param(r, "longitude")
	if latRaw != "" && lonRaw != "" {
		lat, err = requireFloat(r, "latitude")
		if err != nil {
			return 0, 0, "", err
		}
		lon, err = requireFloat(r, "longitude")
		if err != nil {
			return 0, 0, "", err
		}
		return lat, lon, "", nil
	}
	location := param(r, "location")
	if location == "" {
		return 0, 0, "", apierr.Validation("either location or latitude+longitude is required")
	}
	if h.d.Geocode == nil {
		return 0, 0, "", apierr.FeatureDisabled("location geocoding is not configured")
	}
	pt, err := h.d.Geocode.Resolve(r.Context(), location)
	if err != nil {
		return 0, 0, "", err
	}
	return pt.Lat, pt.Lon, pt.DisplayName, nil
}

type hotspotEntry struct {
	Gas      string  `json:"gas"`
	Severity int     `json:"severity"`
	Label    string  `json:"label"`
	Value    float64 `json:"value"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
}

type analyzeResponse struct {
	Location struct {
		Lat         float64 `json:"lat"`
		Lon         float64 `json:"lon"`
		DisplayName string  `json:"display_name,omitempty"`
	} `json:"location"`
	RadiusKM float64                   `json:"radius_km"`
	Hotspots []hotspotEntry            `json:"hotspots"`
	Alerts   []string                  `json:"alerts"`
	Units    map[domain.GasType]string `json:"units"`
	ImageURL string                    `json:"image_url"`
	Weather  any                       `json:"weather,omitempty"`
}

// analyze handles POST /api/analyze: a form request resolving a location
// (by name or lat/lon), gathering nearby pollution hotspots, and attaching
// weather when include_weather is set. The include_pollutant_prediction
// field is not read, and no pollutant-movement prediction is attached.
func (h *handlers) analyze(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, h.log, apierr.Validation("malformed form body"))
		return
	}
	lat, lon, displayName, err := h.resolveLocation(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	radiusKM, err := optionalFloat(r, "radius", 10)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	gases := parseGases(r)

	cells, err := h.nearbyCells(r, gases, lat, lon, radiusKM)
	if err != nil {
		writeError(w, h.log, apierr.Internal(err, "load nearby cells"))
		return
	}

	resp := analyzeResponse{RadiusKM: radiusKM, Units: unitsFor(gases), ImageURL: "/api/upes/heatmap"}
	resp.Location.Lat, resp.Location.Lon, resp.Location.DisplayName = lat, lon, displayName
	resp.Hotspots = make([]hotspotEntry, 0, len(cells))
	for _, c := range cells {
		if c.Severity < 1 {
			continue
		}
		resp.Hotspots = append(resp.Hotspots, hotspotEntry{
			Gas: string(c.Gas), Severity: c.Severity, Label: severityLabel(c.Severity),
			Value: c.Value, Lat: c.Lat, Lon: c.Lon,
		})
		resp.Alerts = append(resp.Alerts, fmt.Sprintf("%s levels are %s near this location", c.Gas, severityLabel(c.Severity)))
	}

	if optionalBool(r, "include_weather", false) && h.d.Weather != nil {
		if snap, err := h.d.Weather.Fetch(r.Context(), lat, lon, 1); err == nil {
			resp.Weather = snap
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

type hotspotFeature struct {
	Type       string         `json:"type"`
	Geometry   map[string]any `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type featureCollection struct {
	Type     string           `json:"type"`
	Features []hotspotFeature `json:"features"`
}

// hotspots handles GET /api/hotspots: a GeoJSON FeatureCollection of circle
// points, one per above-moderate pollution_grid cell in the requested
// window.
func (h *handlers) hotspots(w http.ResponseWriter, r *http.Request) {
	lat, err := requireFloat(r, "lat")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	lon, err := requireFloat(r, "lon")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	radiusKM, err := optionalFloat(r, "radius", 25)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	gases := parseGases(r)

	cells, err := h.nearbyCells(r, gases, lat, lon, radiusKM)
	if err != nil {
		writeError(w, h.log, apierr.Internal(err, "load nearby cells"))
		return
	}

	fc := featureCollection{Type: "FeatureCollection"}
	for _, c := range cells {
		if c.Severity < 1 {
			continue
		}
		fc.Features = append(fc.Features, hotspotFeature{
			Type:     "Feature",
			Geometry: map[string]any{"type": "Point", "coordinates": []float64{c.Lon, c.Lat}},
			Properties: map[string]any{
				"gas": c.Gas, "severity": c.Severity, "label": severityLabel(c.Severity),
				"value": c.Value, "radius_km": 1.0,
			},
		})
	}
	writeJSON(w, http.StatusOK, fc)
}

// weatherHandler handles GET /api/weather?lat=&lon=&days=.
func (h *handlers) weatherHandler(w http.ResponseWriter, r *http.Request) {
	lat, err := requireFloat(r, "lat")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	lon, err := requireFloat(r, "lon")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	days, err := optionalInt(r, "days", 1)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if h.d.Weather == nil {
		writeError(w, h.log, apierr.FeatureDisabled("weather provider is not configured"))
		return
	}
	snap, err := h.d.Weather.Fetch(r.Context(), lat, lon, days)
	if err != nil {
		writeError(w, h.log, apierr.UpstreamTransient(err, "fetch weather"))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type pollutantMovementResponse struct {
	Lat               float64 `json:"lat"`
	Lon               float64 `json:"lon"`
	WindKPH           float64 `json:"wind_kph"`
	WindDegree        float64 `json:"wind_degree"`
	NextHoursTrend    string  `json:"next_hours_trend"`
	ForecastWindowMin int     `json:"forecast_window_minutes"`
}

// pollutantMovement handles GET /api/pollutant_movement?lat=&lon=,
// predicting whether near-surface pollution is likely to disperse or
// accumulate over the next three hours based on the wind-speed trend in the
// weather forecast, cached independently of the weather client's own cache
// under the pollutant_movement:{lat}:{lon} key (TTL 600s).
func (h *handlers) pollutantMovement(w http.ResponseWriter, r *http.Request) {
	lat, err := requireFloat(r, "lat")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	lon, err := requireFloat(r, "lon")
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	key := cache.PollutantMovementKey(lat, lon)
	if cached, ok := h.d.Cache.Get(r.Context(), key); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(cached))
		return
	}

	if h.d.Weather == nil {
		writeError(w, h.log, apierr.FeatureDisabled("weather provider is not configured"))
		return
	}
	snap, err := h.d.Weather.Fetch(r.Context(), lat, lon, 1)
	if err != nil {
		writeError(w, h.log, apierr.UpstreamTransient(err, "fetch weather"))
		return
	}

	resp := pollutantMovementResponse{
		Lat: lat, Lon: lon, WindKPH: snap.Current.WindKPH, WindDegree: snap.Current.WindDegree,
		ForecastWindowMin: 180, NextHoursTrend: dispersionTrend(snap.Current.WindKPH, snap.Hourly),
	}
	if encoded, err := json.Marshal(resp); err == nil {
		h.d.Cache.Set(r.Context(), key, string(encoded), 600*time.Second)
	}
	writeJSON(w, http.StatusOK, resp)
}

// dispersionTrend labels the next-3-hour outlook: rising wind over the
// forecast's first three hourly entries favors dispersal, falling or
// already-calm wind favors accumulation.
func dispersionTrend(currentWindKPH float64, hourly []weather.HourForecast) string {
	window := hourly
	if len(window) > 3 {
		window = window[:3]
	}
	avgFuture := currentWindKPH
	if len(window) > 0 {
		var sum float64
		for _, hf := range window {
			sum += hf.WindKPH
		}
		avgFuture = sum / float64(len(window))
	}
	if avgFuture >= currentWindKPH && avgFuture >= 5 {
		return "dispersing"
	}
	return "accumulating"
}

type combinedAnalysisResponse struct {
	Lat           float64        `json:"lat"`
	Lon           float64        `json:"lon"`
	Satellite     []hotspotEntry `json:"satellite"`
	Weather       any            `json:"weather,omitempty"`
	OverallStatus string         `json:"overall_status"`
}

// combinedAnalysis handles GET /api/combined_analysis?lat=&lon=, folding
// satellite pollution readings and live weather into one overall status
// label.
func (h *handlers) combinedAnalysis(w http.ResponseWriter, r *http.Request) {
	lat, err := requireFloat(r, "lat")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	lon, err := requireFloat(r, "lon")
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	radiusKM, err := optionalFloat(r, "radius", 10)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	cells, err := h.nearbyCells(r, domain.AllGases, lat, lon, radiusKM)
	if err != nil {
		writeError(w, h.log, apierr.Internal(err, "load nearby cells"))
		return
	}

	resp := combinedAnalysisResponse{Lat: lat, Lon: lon, OverallStatus: "unknown"}
	for _, c := range cells {
		if c.Severity < 1 {
			continue
		}
		resp.Satellite = append(resp.Satellite, hotspotEntry{
			Gas: string(c.Gas), Severity: c.Severity, Label: severityLabel(c.Severity),
			Value: c.Value, Lat: c.Lat, Lon: c.Lon,
		})
	}
	if worst, ok := maxSeverityCell(cells); ok {
		resp.OverallStatus = severityLabel(worst.SeverityLevel)
	}
	if h.d.Weather != nil {
		if snap, err := h.d.Weather.Fetch(r.Context(), lat, lon, 1); err == nil {
			resp.Weather = snap
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
