// Package alerts implements the two scheduled alert tasks: score every
// saved route against the latest UPES raster, then run the four
// detection rules over the resulting exposure history and dispatch a best
// effort webhook batch of whatever triggered.
package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/aeris-platform/aeris/internal/config"
	"github.com/aeris-platform/aeris/internal/domain"
	"github.com/aeris-platform/aeris/internal/geo"
	"github.com/aeris-platform/aeris/internal/logging"
	"github.com/aeris-platform/aeris/internal/metrics"
	"github.com/aeris-platform/aeris/internal/models"
	"github.com/aeris-platform/aeris/internal/raster"
	"github.com/aeris-platform/aeris/internal/store"
	"github.com/aeris-platform/aeris/internal/weather"
)

// epsilon guards the route_deterioration ratio's denominator against a
// previous score of exactly zero.
const epsilon = 1e-6

const sampleStepMeters = 50.0

// Engine owns the saved-route scoring task and the alert detection pipeline.
type Engine struct {
	Grids    store.GridStore
	Routes   store.SavedRouteStore
	Users    store.UserStore
	History  store.RouteExposureHistoryStore
	AlertLog store.AlertLogStore
	Weather  *weather.Client
	Metrics  *metrics.Registry

	UPESOutputBase       string
	DeteriorationBasePct float64
	HazardThreshold      float64
	WindSpeedMinKPH      float64
	WindAngleDegrees     float64
	WebhookURL           string
	WebhookTimeout       time.Duration

	http *http.Client
	log  *slog.Logger
}

// New wires an Engine from process config. upesOutputBase must match the
// UPES engine's own OutputBase so both read/write the same raster tree.
func New(cfg config.AlertsConfig, upesOutputBase string, grids store.GridStore, routes store.SavedRouteStore,
	users store.UserStore, history store.RouteExposureHistoryStore, alertLog store.AlertLogStore, wx *weather.Client) *Engine {
	timeout := cfg.WebhookTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	basePct := cfg.DeteriorationBasePct
	if basePct <= 0 {
		basePct = 0.15
	}
	hazard := cfg.HazardThreshold
	if hazard <= 0 {
		hazard = 0.85
	}
	windMin := cfg.WindSpeedMinKPH
	if windMin <= 0 {
		windMin = 5.0
	}
	windAngle := cfg.WindAngleDegrees
	if windAngle <= 0 {
		windAngle = 45.0
	}
	return &Engine{
		Grids: grids, Routes: routes, Users: users, History: history, AlertLog: alertLog, Weather: wx,
		UPESOutputBase:       upesOutputBase,
		DeteriorationBasePct: basePct,
		HazardThreshold:      hazard,
		WindSpeedMinKPH:      windMin,
		WindAngleDegrees:     windAngle,
		WebhookURL:           cfg.N8NWebhookURL,
		WebhookTimeout:       timeout,
		http:                 &http.Client{Timeout: timeout},
		log:                  logging.New("alerts"),
	}
}

// ScoreResult summarizes one compute_saved_route_upes_scores run.
type ScoreResult struct {
	Skipped      bool
	RoutesScored int
}

// ScoreSavedRoutes samples the latest final_score raster along every saved
// route's straight origin-destination polyline, recording mean/max exposure
// into route_exposure_history and denormalizing the mean into the route's
// last_upes_score. It skips entirely if no raster exists yet.
func (e *Engine) ScoreSavedRoutes(ctx context.Context, now time.Time) (ScoreResult, error) {
	grid, err := e.latestFinalScoreRaster()
	if err != nil {
		e.log.Info("alert scoring skipped, no final_score raster on disk", "err", err)
		return ScoreResult{Skipped: true}, nil
	}

	routes, err := e.Routes.ListAllSavedRoutes(ctx)
	if err != nil {
		return ScoreResult{}, fmt.Errorf("alerts: list saved routes: %w", err)
	}

	var scored int
	for _, r := range routes {
		mean, max, ok := sampleRoute(grid, r)
		if !ok {
			continue
		}
		ts := now.UTC()
		if _, err := e.History.AppendRouteExposureHistory(ctx, models.RouteExposureHistory{
			RouteID: r.ID, Timestamp: ts, UPESScore: mean, MaxUPESAlongRoute: max,
			ScoreSource: models.ScoreSourceScheduled,
		}); err != nil {
			e.log.Error("append route exposure history failed", "route_id", r.ID, "err", err)
			continue
		}
		if err := e.Routes.UpdateSavedRouteLastScore(ctx, r.ID, mean, ts); err != nil {
			e.log.Error("update saved route last score failed", "route_id", r.ID, "err", err)
		}
		scored++
	}
	return ScoreResult{RoutesScored: scored}, nil
}

func sampleRoute(grid *raster.Grid, r models.SavedRoute) (mean, max float64, ok bool) {
	line := []geo.Point{{r.OriginLon, r.OriginLat}, {r.DestinationLon, r.DestinationLat}}
	points := geo.StepAlongLine(line, sampleStepMeters)
	var sum float64
	var n int
	for _, p := range points {
		v, sampled := grid.AtLonLat(p[0], p[1])
		if !sampled {
			continue
		}
		sum += float64(v)
		n++
		if float64(v) > max {
			max = float64(v)
		}
	}
	if n == 0 {
		return 0, 0, false
	}
	return sum / float64(n), max, true
}

// latestFinalScoreRaster reads the final_score_*.tif with the lexicographically
// greatest name (the filename's YYYYMMDD_HH stamp sorts chronologically):
// whatever is newest at the moment the task starts.
func (e *Engine) latestFinalScoreRaster() (*raster.Grid, error) {
	dir := filepath.Join(e.UPESOutputBase, "hourly_scores", "final_score")
	matches, err := filepath.Glob(filepath.Join(dir, "final_score_*.tif"))
	if err != nil {
		return nil, fmt.Errorf("alerts: glob final_score rasters: %w", err)
	}
	if len(matches) == 0 {
		return nil, os.ErrNotExist
	}
	sort.Strings(matches)
	return raster.ReadFile(matches[len(matches)-1])
}

// triggeredAlert is one detection result pending persistence and dispatch.
type triggeredAlert struct {
	log     models.AlertLog
	message string
}

// PipelineResult summarizes one run_alert_pipeline call.
type PipelineResult struct {
	Triggered int
}

// RunAlertPipeline evaluates the four detection rules for every saved route,
// persists each triggered alert, and dispatches one best-effort webhook
// batch covering everything triggered this run.
func (e *Engine) RunAlertPipeline(ctx context.Context, now time.Time) (PipelineResult, error) {
	routes, err := e.Routes.ListAllSavedRoutes(ctx)
	if err != nil {
		return PipelineResult{}, fmt.Errorf("alerts: list saved routes: %w", err)
	}
	hourStart := now.UTC().Truncate(time.Hour)

	var triggered []triggeredAlert
	for _, r := range routes {
		current, previous, hasCurrent, hasPrevious := e.History.LatestTwoRouteExposureHistory(ctx, r.ID)
		if !hasCurrent {
			continue
		}
		user, err := e.Users.GetUserByID(ctx, r.UserID)
		if err != nil {
			e.log.Error("load user for saved route failed", "route_id", r.ID, "err", err)
			continue
		}

		if hasPrevious {
			if t, ok := e.checkDeterioration(ctx, r, user, current, previous, hourStart); ok {
				triggered = append(triggered, t)
			}
		}
		if t, ok := e.checkHazard(ctx, r, current, hourStart); ok {
			triggered = append(triggered, t)
		}
		if t, ok := e.checkWindShift(ctx, r, hourStart); ok {
			triggered = append(triggered, t)
		}
		if t, ok := e.checkTimeBased(ctx, r, current, now, hourStart); ok {
			triggered = append(triggered, t)
		}
	}

	persisted := make([]triggeredAlert, 0, len(triggered))
	for _, t := range triggered {
		t.log.CreatedAt = now.UTC()
		saved, err := e.AlertLog.AppendAlertLog(ctx, t.log)
		if err != nil {
			e.log.Error("append alert log failed", "route_id", t.log.RouteID, "alert_type", t.log.AlertType, "err", err)
			continue
		}
		t.log = saved
		persisted = append(persisted, t)
		if e.Metrics != nil {
			e.Metrics.AlertsTriggeredTotal.WithLabelValues(string(t.log.AlertType)).Inc()
		}
	}

	if len(persisted) > 0 {
		e.dispatchWebhook(ctx, persisted, now)
	}
	return PipelineResult{Triggered: len(persisted)}, nil
}

func (e *Engine) checkDeterioration(ctx context.Context, r models.SavedRoute, user models.User,
	current, previous models.RouteExposureHistory, hourStart time.Time) (triggeredAlert, bool) {
	threshold := e.DeteriorationBasePct * domain.SensitivityScale(user.ExposureSensitivityLevel)
	denom := math.Max(previous.UPESScore, epsilon)
	ratio := (current.UPESScore - previous.UPESScore) / denom
	if ratio < threshold {
		return triggeredAlert{}, false
	}
	if exists, err := e.AlertLog.AlertExistsInWindow(ctx, r.ID, domain.AlertRouteDeterioration, hourStart); err != nil {
		e.log.Error("alert dedup check failed", "route_id", r.ID, "err", err)
		return triggeredAlert{}, false
	} else if exists {
		return triggeredAlert{}, false
	}
	return triggeredAlert{
		log: models.AlertLog{
			UserID: r.UserID, RouteID: r.ID, AlertType: domain.AlertRouteDeterioration,
			ScoreBefore: previous.UPESScore, ScoreAfter: current.UPESScore, Threshold: threshold,
			AlertMetadata:    map[string]any{"ratio": ratio},
			NotifiedChannels: nil,
		},
		message: fmt.Sprintf("Pollution exposure on your saved route rose from %.2f to %.2f.", previous.UPESScore, current.UPESScore),
	}, true
}

func (e *Engine) checkHazard(ctx context.Context, r models.SavedRoute, current models.RouteExposureHistory, hourStart time.Time) (triggeredAlert, bool) {
	if current.MaxUPESAlongRoute < e.HazardThreshold {
		return triggeredAlert{}, false
	}
	if exists, err := e.AlertLog.AlertExistsInWindow(ctx, r.ID, domain.AlertHazard, hourStart); err != nil {
		e.log.Error("alert dedup check failed", "route_id", r.ID, "err", err)
		return triggeredAlert{}, false
	} else if exists {
		return triggeredAlert{}, false
	}
	return triggeredAlert{
		log: models.AlertLog{
			UserID: r.UserID, RouteID: r.ID, AlertType: domain.AlertHazard,
			ScoreBefore: current.UPESScore, ScoreAfter: current.MaxUPESAlongRoute, Threshold: e.HazardThreshold,
		},
		message: fmt.Sprintf("Hazardous pollution exposure (%.2f) detected along your saved route.", current.MaxUPESAlongRoute),
	}, true
}

// checkWindShift needs a "source point", the centroid of the highest-valued
// recent pollution_grid cell near the route (see sourcePoint); if none
// exists this check is skipped entirely.
func (e *Engine) checkWindShift(ctx context.Context, r models.SavedRoute, hourStart time.Time) (triggeredAlert, bool) {
	if e.Weather == nil {
		return triggeredAlert{}, false
	}
	src, ok := e.sourcePoint(ctx, r)
	if !ok {
		return triggeredAlert{}, false
	}
	mid := geo.Point{(r.OriginLon + r.DestinationLon) / 2, (r.OriginLat + r.DestinationLat) / 2}
	bearing := geo.BearingDegrees(src, mid)

	snap, err := e.Weather.Fetch(ctx, mid[1], mid[0], 1)
	if err != nil {
		e.log.Warn("wind shift check: weather fetch failed", "route_id", r.ID, "err", err)
		return triggeredAlert{}, false
	}
	if snap.Current.WindKPH < e.WindSpeedMinKPH {
		return triggeredAlert{}, false
	}
	diff := geo.AngularDifference(snap.Current.WindDegree, bearing)
	if diff > e.WindAngleDegrees {
		return triggeredAlert{}, false
	}

	if exists, err := e.AlertLog.AlertExistsInWindow(ctx, r.ID, domain.AlertWindShift, hourStart); err != nil {
		e.log.Error("alert dedup check failed", "route_id", r.ID, "err", err)
		return triggeredAlert{}, false
	} else if exists {
		return triggeredAlert{}, false
	}

	return triggeredAlert{
		log: models.AlertLog{
			UserID: r.UserID, RouteID: r.ID, AlertType: domain.AlertWindShift,
			ScoreBefore: 0, ScoreAfter: 0, Threshold: e.WindAngleDegrees,
			AlertMetadata: map[string]any{
				"wind_kph": snap.Current.WindKPH, "wind_degree": snap.Current.WindDegree,
				"bearing_degrees": bearing, "source_lon": src[0], "source_lat": src[1],
			},
		},
		message: "Wind is carrying a nearby pollution source toward your saved route.",
	}, true
}

// sourcePoint finds the pollution_grid cell with the highest value inside
// the route's bbox expanded by 0.1 degree on every side, across the latest
// window of every gas. Returns ok=false
// when nothing is found, which skips the wind-shift check entirely.
func (e *Engine) sourcePoint(ctx context.Context, r models.SavedRoute) (geo.Point, bool) {
	west, east := r.OriginLon, r.DestinationLon
	if west > east {
		west, east = east, west
	}
	south, north := r.OriginLat, r.DestinationLat
	if south > north {
		south, north = north, south
	}
	const bufferDeg = 0.1
	west -= bufferDeg
	east += bufferDeg
	south -= bufferDeg
	north += bufferDeg

	var best geo.Point
	var bestValue float64
	found := false
	for _, gas := range domain.AllGases {
		latest, err := e.Grids.LatestTimestamp(ctx, gas)
		if err != nil || latest.IsZero() {
			continue
		}
		cells, err := e.Grids.CellsInWindow(ctx, gas, latest.Add(-time.Hour), latest)
		if err != nil {
			continue
		}
		for _, c := range cells {
			lon, lat, err := geo.CentroidOfWKT(c.GeomWKT)
			if err != nil || lon < west || lon > east || lat < south || lat > north {
				continue
			}
			if !found || c.PollutionValue > bestValue {
				best = geo.Point{lon, lat}
				bestValue = c.PollutionValue
				found = true
			}
		}
	}
	return best, found
}

func (e *Engine) checkTimeBased(ctx context.Context, r models.SavedRoute, current models.RouteExposureHistory, now time.Time, hourStart time.Time) (triggeredAlert, bool) {
	since := now.UTC().Add(-24 * time.Hour)
	history, err := e.History.RouteExposureHistorySince(ctx, r.ID, since)
	if err != nil || len(history) == 0 {
		return triggeredAlert{}, false
	}
	minUPES := history[0].UPESScore
	for _, h := range history[1:] {
		if h.UPESScore < minUPES {
			minUPES = h.UPESScore
		}
	}
	threshold := minUPES + 0.15
	if current.UPESScore < threshold {
		return triggeredAlert{}, false
	}
	if exists, err := e.AlertLog.AlertExistsInWindow(ctx, r.ID, domain.AlertTimeBased, hourStart); err != nil {
		e.log.Error("alert dedup check failed", "route_id", r.ID, "err", err)
		return triggeredAlert{}, false
	} else if exists {
		return triggeredAlert{}, false
	}
	return triggeredAlert{
		log: models.AlertLog{
			UserID: r.UserID, RouteID: r.ID, AlertType: domain.AlertTimeBased,
			ScoreBefore: minUPES, ScoreAfter: current.UPESScore, Threshold: threshold,
		},
		message: fmt.Sprintf("Pollution exposure on your saved route (%.2f) exceeds its 24h low by more than 0.15.", current.UPESScore),
	}, true
}

// webhookAlert is the per-alert shape in the dispatch batch.
type webhookAlert struct {
	AlertID     int64    `json:"alert_id"`
	UserID      string   `json:"user_id"`
	RouteID     string   `json:"route_id"`
	AlertType   string   `json:"alert_type"`
	Message     string   `json:"message"`
	ScoreBefore float64  `json:"score_before"`
	ScoreAfter  float64  `json:"score_after"`
	Channels    []string `json:"channels"`
}

type webhookBody struct {
	Alerts    []webhookAlert `json:"alerts"`
	Timestamp time.Time      `json:"timestamp"`
}

// dispatchWebhook POSTs the triggered batch. A failure is logged and never
// rolls back the already-persisted AlertLog rows.
func (e *Engine) dispatchWebhook(ctx context.Context, triggered []triggeredAlert, now time.Time) {
	if e.WebhookURL == "" {
		return
	}

	body := webhookBody{Timestamp: now.UTC()}
	for _, t := range triggered {
		user, err := e.Users.GetUserByID(ctx, t.log.UserID)
		var channels []string
		if err == nil {
			channels = enabledChannels(user.NotificationPreferences)
		}
		body.Alerts = append(body.Alerts, webhookAlert{
			AlertID: t.log.ID, UserID: t.log.UserID.String(), RouteID: t.log.RouteID.String(),
			AlertType: string(t.log.AlertType), Message: t.message,
			ScoreBefore: t.log.ScoreBefore, ScoreAfter: t.log.ScoreAfter, Channels: channels,
		})
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		e.log.Error("marshal webhook body failed", "err", err)
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx, e.WebhookTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, e.WebhookURL, bytes.NewReader(encoded))
	if err != nil {
		e.log.Error("build webhook request failed", "err", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.http.Do(req)
	if err != nil {
		e.log.Warn("webhook dispatch failed", "err", err)
		if e.Metrics != nil {
			e.Metrics.WebhookAttemptsTotal.WithLabelValues("error").Inc()
		}
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		e.log.Warn("webhook dispatch returned non-2xx", "status", resp.StatusCode)
		if e.Metrics != nil {
			e.Metrics.WebhookAttemptsTotal.WithLabelValues("rejected").Inc()
		}
		return
	}
	if e.Metrics != nil {
		e.Metrics.WebhookAttemptsTotal.WithLabelValues("ok").Inc()
	}
}

func enabledChannels(prefs map[string]bool) []string {
	var out []string
	for _, ch := range domain.AllChannels {
		if prefs[string(ch)] {
			out = append(out, string(ch))
		}
	}
	return out
}
