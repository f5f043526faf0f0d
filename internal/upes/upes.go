// Package upes computes the Unified Pollution Exposure Score grid, spec
// §4.3's hourly scoring run: aggregate raw pollution_grid rows onto a
// regular grid, normalize per gas, weight into a satellite score, fold in
// weather/traffic factors, optionally EMA-smooth against the previous hour,
// and write the satellite_score/final_score rasters plus a JSON run log.
package upes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/aeris-platform/aeris/internal/config"
	"github.com/aeris-platform/aeris/internal/domain"
	"github.com/aeris-platform/aeris/internal/geo"
	"github.com/aeris-platform/aeris/internal/logging"
	"github.com/aeris-platform/aeris/internal/metrics"
	"github.com/aeris-platform/aeris/internal/models"
	"github.com/aeris-platform/aeris/internal/raster"
	"github.com/aeris-platform/aeris/internal/store"
	"github.com/aeris-platform/aeris/internal/store/cache"
	"github.com/aeris-platform/aeris/internal/weather"
)

const noData = float32(-9999)

// Engine owns one process's UPES scoring run. It is re-entrant-safe to call
// concurrently with itself only insofar as the filesystem write is atomic;
// the scheduler's cron dispatch is expected to guarantee single dispatch.
type Engine struct {
	Grids   store.GridStore
	Weather *weather.Client
	Cache   cache.Client
	Metrics *metrics.Registry

	OutputBase     string
	GridResolution float64
	TrafficAlpha   float64
	EMALambda      float64
	EMAEnabled     bool
	BBox           config.BoundingBox

	// OnScored runs after a run that produced a final raster; cmd/aeris
	// binds it to rescore saved routes and run the alert pipeline, without
	// upes knowing anything about routes or alerts.
	OnScored func(ctx context.Context) error

	log *slog.Logger
}

// New wires an Engine from process config.
func New(cfg config.UPESConfig, grids store.GridStore, wx *weather.Client, ca cache.Client) *Engine {
	resolution := cfg.GridResolution
	if resolution <= 0 {
		resolution = 0.05
	}
	lambda := cfg.EMALambda
	if lambda <= 0 {
		lambda = 0.6
	}
	return &Engine{
		Grids:          grids,
		Weather:        wx,
		Cache:          ca,
		OutputBase:     cfg.OutputBase,
		GridResolution: resolution,
		TrafficAlpha:   cfg.TrafficAlpha,
		EMALambda:      lambda,
		EMAEnabled:     cfg.EMAEnabled,
		BBox:           cfg.BBox,
		log:            logging.New("upes"),
	}
}

// RunLog is the JSON record written alongside each hour's rasters.
type RunLog struct {
	Timestamp      time.Time              `json:"timestamp"`
	GasCellCounts  map[domain.GasType]int `json:"gas_cell_counts"`
	HDF            float64                `json:"hdf"`
	WTF            float64                `json:"wtf"`
	TF             float64                `json:"tf"`
	EMAApplied     bool                   `json:"ema_applied"`
	SatelliteScore string                 `json:"satellite_score_path"`
	FinalScore     string                 `json:"final_score_path"`
}

// Result summarizes one run for the caller and for metrics.
type Result struct {
	Skipped bool
	Log     RunLog
}

// Run aggregates the latest hour of pollution_grid into the UPES grid and
// writes the satellite/final score rasters. If every gas has zero rows in
// its own latest window, Run skips entirely (DataMissing) and returns
// Result{Skipped: true} without touching the filesystem or cache.
func (e *Engine) Run(ctx context.Context, now time.Time) (Result, error) {
	cols, rows := e.gridDims()
	if cols <= 0 || rows <= 0 {
		return Result{}, fmt.Errorf("upes: invalid grid dimensions for bbox %+v at resolution %v", e.BBox, e.GridResolution)
	}
	transform := raster.GeoTransform{
		OriginLon: e.BBox.West, OriginLat: e.BBox.North,
		PixelWidth: e.GridResolution, PixelHeight: -e.GridResolution,
	}

	gasGrids := make(map[domain.GasType]*raster.Grid)
	counts := make(map[domain.GasType]int)
	var anyRows bool

	for _, gas := range domain.AllGases {
		latest, err := e.Grids.LatestTimestamp(ctx, gas)
		if err != nil {
			return Result{}, fmt.Errorf("upes: latest timestamp for %s: %w", gas, err)
		}
		if latest.IsZero() {
			continue
		}
		cells, err := e.Grids.CellsInWindow(ctx, gas, latest.Add(-time.Hour), latest)
		if err != nil {
			return Result{}, fmt.Errorf("upes: cells in window for %s: %w", gas, err)
		}
		if len(cells) == 0 {
			continue
		}
		anyRows = true
		counts[gas] = len(cells)
		gasGrids[gas] = aggregateToGrid(cells, cols, rows, transform)
	}

	if !anyRows {
		e.log.Info("upes run skipped, no pollution_grid rows in any gas window")
		if e.Metrics != nil {
			e.Metrics.UPESRunsTotal.WithLabelValues("skipped").Inc()
		}
		return Result{Skipped: true}, nil
	}

	for gas, g := range gasGrids {
		normalizeInPlace(g, gas)
	}

	satScore := combineSatelliteScore(gasGrids, cols, rows, transform)

	centerLat := (e.BBox.South + e.BBox.North) / 2
	centerLon := (e.BBox.West + e.BBox.East) / 2
	hdf, wtf := 1.0, 1.0
	if e.Weather != nil {
		if snap, err := e.Weather.Fetch(ctx, centerLat, centerLon, 1); err != nil {
			e.log.Warn("weather fetch failed, using neutral HDF/WTF", "err", err)
		} else {
			hdf = humidityDispersionFactor(snap.Current.Humidity)
			wtf = windFactor(snap.Current.WindKPH)
		}
	}
	tf := 1 + e.TrafficAlpha*0 // no traffic source wired; density is always 0.

	rawFinal := raster.NewGrid(cols, rows, transform, noData)
	for i := range rawFinal.Data {
		v, ok := satScore.At(i%cols, i/cols)
		if !ok {
			continue
		}
		combined := float64(v) * hdf * wtf * tf
		rawFinal.Set(i%cols, i/cols, float32(clamp01(combined)))
	}

	dateHour := now.UTC().Format("20060102_15")
	satPath := filepath.Join(e.OutputBase, "hourly_scores", "satellite_score", fmt.Sprintf("satellite_score_%s.tif", dateHour))
	finalPath := filepath.Join(e.OutputBase, "hourly_scores", "final_score", fmt.Sprintf("final_score_%s.tif", dateHour))
	logPath := filepath.Join(e.OutputBase, "hourly_scores", "logs", fmt.Sprintf("upes_%s.json", dateHour))

	emaApplied := false
	finalGrid := rawFinal
	if e.EMAEnabled {
		prevPath := filepath.Join(e.OutputBase, "hourly_scores", "final_score", fmt.Sprintf("final_score_%s.tif", now.UTC().Add(-time.Hour).Format("20060102_15")))
		if prev, err := raster.ReadFile(prevPath); err == nil {
			finalGrid = emaBlend(rawFinal, prev, e.EMALambda)
			emaApplied = true
		}
	}

	if err := raster.WriteFile(satPath, satScore); err != nil {
		return Result{}, fmt.Errorf("upes: write satellite_score raster: %w", err)
	}
	if err := raster.WriteFile(finalPath, finalGrid); err != nil {
		return Result{}, fmt.Errorf("upes: write final_score raster: %w", err)
	}

	runLog := RunLog{
		Timestamp: now.UTC(), GasCellCounts: counts,
		HDF: hdf, WTF: wtf, TF: tf, EMAApplied: emaApplied,
		SatelliteScore: satPath, FinalScore: finalPath,
	}
	if err := writeRunLog(logPath, runLog); err != nil {
		return Result{}, fmt.Errorf("upes: write run log: %w", err)
	}

	e.Cache.Set(ctx, cache.UPESLastUpdateKey, now.UTC().Format(time.RFC3339), time.Hour)
	if e.Metrics != nil {
		e.Metrics.UPESRunsTotal.WithLabelValues("ok").Inc()
	}
	if e.OnScored != nil {
		if err := e.OnScored(ctx); err != nil {
			e.log.Error("downstream hook failed", "err", err)
		}
	}

	return Result{Log: runLog}, nil
}

func (e *Engine) gridDims() (cols, rows int) {
	if e.GridResolution <= 0 {
		return 0, 0
	}
	cols = int(math.Ceil((e.BBox.East - e.BBox.West) / e.GridResolution))
	rows = int(math.Ceil((e.BBox.North - e.BBox.South) / e.GridResolution))
	return cols, rows
}

// aggregateToGrid buckets raw pollution_grid cells onto the coarser UPES
// grid by their polygon centroid, averaging values that land in the same
// bucket. Cells outside the bbox are dropped.
func aggregateToGrid(cells []models.PollutionGridCell, cols, rows int, transform raster.GeoTransform) *raster.Grid {
	sums := make([]float64, cols*rows)
	counts := make([]int, cols*rows)

	for _, c := range cells {
		lon, lat, err := geo.CentroidOfWKT(c.GeomWKT)
		if err != nil {
			continue
		}
		col := int((lon - transform.OriginLon) / transform.PixelWidth)
		row := int((lat - transform.OriginLat) / transform.PixelHeight)
		if col < 0 || col >= cols || row < 0 || row >= rows {
			continue
		}
		idx := row*cols + col
		sums[idx] += c.PollutionValue
		counts[idx]++
	}

	g := raster.NewGrid(cols, rows, transform, noData)
	for i := range sums {
		if counts[i] == 0 {
			continue
		}
		g.Set(i%cols, i/cols, float32(sums[i]/float64(counts[i])))
	}
	return g
}

// normalizeInPlace rescales gas's grid values to [0,1] using the shared
// percentile-equivalent bounds table.
func normalizeInPlace(g *raster.Grid, gas domain.GasType) {
	low, high := domain.NormalizationBounds(gas)
	span := high - low
	for i, v := range g.Data {
		if v == g.NoData {
			continue
		}
		n := (float64(v) - low) / span
		g.Data[i] = float32(clamp01(n))
	}
}

// combineSatelliteScore weights each gas's normalized grid by
// domain.UPESDefaultWeights, dropping and cell-wise renormalizing missing
// gases. A cell with no gas present stays missing.
func combineSatelliteScore(gasGrids map[domain.GasType]*raster.Grid, cols, rows int, transform raster.GeoTransform) *raster.Grid {
	out := raster.NewGrid(cols, rows, transform, noData)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			var weightedSum, weightTotal float64
			var present bool
			for gas, g := range gasGrids {
				v, ok := g.At(col, row)
				if !ok {
					continue
				}
				w := domain.UPESDefaultWeights[gas]
				weightedSum += float64(v) * w
				weightTotal += w
				present = true
			}
			if !present || weightTotal == 0 {
				continue
			}
			out.Set(col, row, float32(weightedSum/weightTotal))
		}
	}
	return out
}

// humidityDispersionFactor scales exposure up in still, humid air and down
// in dry air, clamped to [0.85, 1.15].
func humidityDispersionFactor(humidityPct float64) float64 {
	hdf := 1 + 0.3*(humidityPct/100-0.5)
	if hdf < 0.85 {
		return 0.85
	}
	if hdf > 1.15 {
		return 1.15
	}
	return hdf
}

// windFactor scales exposure down as wind speed increases (faster dispersal),
// clamped to [0.7, 1.0].
func windFactor(windKPH float64) float64 {
	wtf := 1 - 0.02*windKPH
	if wtf < 0.7 {
		return 0.7
	}
	if wtf > 1.0 {
		return 1.0
	}
	return wtf
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// emaBlend computes final = lambda*raw + (1-lambda)*previous cell-wise.
// Cells missing in either grid fall back to whichever side is present.
func emaBlend(raw, previous *raster.Grid, lambda float64) *raster.Grid {
	out := raster.NewGrid(raw.Width, raw.Height, raw.Transform, raw.NoData)
	for row := 0; row < raw.Height; row++ {
		for col := 0; col < raw.Width; col++ {
			rv, rok := raw.At(col, row)
			pv, pok := previous.At(col, row)
			switch {
			case rok && pok:
				out.Set(col, row, float32(lambda*float64(rv)+(1-lambda)*float64(pv)))
			case rok:
				out.Set(col, row, rv)
			case pok:
				out.Set(col, row, pv)
			}
		}
	}
	return out
}

func writeRunLog(path string, log RunLog) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("upes: create log dir: %w", err)
	}
	body, err := json.MarshalIndent(log, "", "  ")
	if err != nil {
		return fmt.Errorf("upes: marshal log: %w", err)
	}
	return os.WriteFile(path, body, 0o644)
}
