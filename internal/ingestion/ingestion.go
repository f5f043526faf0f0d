// Package ingestion runs the hourly satellite fetch worker: for each gas,
// fetch the last completed UTC hour over the configured bounding box,
// normalize the raster into grid cells, and bulk-insert them.
package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aeris-platform/aeris/internal/apierr"
	"github.com/aeris-platform/aeris/internal/config"
	"github.com/aeris-platform/aeris/internal/domain"
	"github.com/aeris-platform/aeris/internal/logging"
	"github.com/aeris-platform/aeris/internal/metrics"
	"github.com/aeris-platform/aeris/internal/models"
	"github.com/aeris-platform/aeris/internal/normalizer"
	"github.com/aeris-platform/aeris/internal/raster"
	"github.com/aeris-platform/aeris/internal/satellite"
	"github.com/aeris-platform/aeris/internal/store"
	"github.com/aeris-platform/aeris/internal/store/cache"
	"github.com/aeris-platform/aeris/internal/store/objectstore"
)

// Engine owns the fetch -> normalize -> persist pipeline for one run of
// fetch_tempo_hourly. It is constructed once per process and reused across
// scheduled runs, matching the teacher's pattern of a long-lived pipeline
// wired up from injected dependencies rather than globals.
type Engine struct {
	Satellite *satellite.Client
	Grids     store.GridStore
	Files     store.NetcdfFileStore
	Objects   objectstore.Store
	Cache     cache.Client
	Metrics   *metrics.Registry

	BBox      satellite.BoundingBox
	MaxCells  int
	ChunkSize int

	// OnIngested runs after a hour's worth of gases finish, only when at
	// least one gas produced rows. cmd/aeris binds this to run the UPES
	// engine, whose own OnScored hook then rescores saved routes; ingestion
	// itself has no knowledge of those downstream tasks.
	OnIngested func(ctx context.Context) error

	log *slog.Logger
}

// New wires an Engine from process config and its injected dependencies.
func New(cfg config.IngestionConfig, sat *satellite.Client, grids store.GridStore, files store.NetcdfFileStore, objects objectstore.Store, ca cache.Client) *Engine {
	maxCells := cfg.MaxCells
	if maxCells <= 0 {
		maxCells = normalizer.DefaultMaxCells
	}
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = normalizer.DefaultChunkSize
	}
	return &Engine{
		Satellite: sat,
		Grids:     grids,
		Files:     files,
		Objects:   objects,
		Cache:     ca,
		BBox: satellite.BoundingBox{
			West: cfg.BBox.West, South: cfg.BBox.South,
			East: cfg.BBox.East, North: cfg.BBox.North,
		},
		MaxCells:  maxCells,
		ChunkSize: chunkSize,
		log:       logging.New("ingestion"),
	}
}

// GasResult reports the outcome of one gas's fetch+normalize+persist step.
type GasResult struct {
	Gas   domain.GasType
	Rows  int
	Empty bool
	Err   error
}

// Result is the overall outcome of one fetch_tempo_hourly run.
type Result struct {
	Window  satellite.Window
	Gases   []GasResult
	AnyRows bool
}

// hourWindow computes [floor(now-1h, hour), floor(now, hour)), the
// last-completed UTC hour.
func hourWindow(now time.Time) satellite.Window {
	now = now.UTC()
	end := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), 0, 0, 0, time.UTC)
	return satellite.Window{Start: end.Add(-time.Hour), End: end}
}

// Run fetches and persists every gas in domain.AllGases for the
// last-completed UTC hour, sequentially so one gas's failure never races
// another's insert. A fatal error for one gas is recorded on its GasResult
// and does not stop
// the remaining gases. Once every gas has been attempted, if any gas
// produced at least one row, the tempo:last_update cache key is refreshed
// and OnIngested runs.
func (e *Engine) Run(ctx context.Context, now time.Time) Result {
	window := hourWindow(now)
	result := Result{Window: window}

	for _, gas := range domain.AllGases {
		gr := e.runGas(ctx, gas, window)
		result.Gases = append(result.Gases, gr)
		if gr.Rows > 0 {
			result.AnyRows = true
		}
		if e.Metrics != nil {
			e.Metrics.IngestionRowsTotal.WithLabelValues(string(gas)).Add(float64(gr.Rows))
			if gr.Err != nil {
				e.Metrics.IngestionErrorsTotal.WithLabelValues(string(gas), string(apierr.KindOf(gr.Err))).Inc()
			}
		}
	}

	if result.AnyRows {
		e.Cache.Set(ctx, cache.TempoLastUpdateKey, window.End.Format(time.RFC3339), time.Hour)
		if e.OnIngested != nil {
			if err := e.OnIngested(ctx); err != nil {
				e.log.Error("downstream hook failed", "err", err)
			}
		}
	}

	return result
}

func (e *Engine) runGas(ctx context.Context, gas domain.GasType, window satellite.Window) GasResult {
	fetched, err := e.Satellite.Fetch(ctx, gas, e.BBox, window)
	if err != nil {
		e.log.Error("fetch failed", "gas", gas, "err", err)
		return GasResult{Gas: gas, Err: err}
	}
	if fetched.Empty {
		e.log.Info("no matching granules", "gas", gas, "window_end", window.End)
		return GasResult{Gas: gas, Empty: true}
	}
	defer os.Remove(fetched.TempFilePath)

	if e.Objects != nil && e.Objects.Configured() {
		if body, rerr := os.ReadFile(fetched.TempFilePath); rerr == nil {
			key := objectstore.AuditGeotiffKey(window.End.Format("2006-01-02"), string(gas), window.End.Hour())
			if perr := e.Objects.Put(ctx, key, body); perr != nil {
				e.log.Warn("audit upload failed", "gas", gas, "err", perr)
			}
		}
	}

	grid, err := raster.ReadProviderGeoTIFF(fetched.TempFilePath)
	if err != nil {
		e.log.Error("decode raster failed", "gas", gas, "err", err)
		return GasResult{Gas: gas, Err: fmt.Errorf("ingestion: decode %s raster: %w", gas, err)}
	}

	rows := 0
	insertErr := normalizer.Normalize(grid, gas, window.End, e.MaxCells, e.ChunkSize, func(chunk []models.PollutionGridCell) error {
		if err := e.Grids.InsertCells(ctx, chunk); err != nil {
			return fmt.Errorf("ingestion: insert %s chunk: %w", gas, err)
		}
		rows += len(chunk)
		return nil
	})
	if insertErr != nil {
		e.log.Error("normalize/insert failed", "gas", gas, "rows_before_failure", rows, "err", insertErr)
		return GasResult{Gas: gas, Rows: rows, Err: insertErr}
	}

	if err := e.Files.InsertFile(ctx, models.NetcdfFile{
		FileName:   fmt.Sprintf("%s_%s.tif", gas, window.End.Format("20060102_15")),
		BucketPath: objectstore.AuditGeotiffKey(window.End.Format("2006-01-02"), string(gas), window.End.Hour()),
		Timestamp:  window.End,
		GasType:    gas,
	}); err != nil {
		e.log.Warn("netcdf file index insert failed", "gas", gas, "err", err)
	}

	e.log.Info("ingested", "gas", gas, "rows", rows, "window_end", window.End)
	return GasResult{Gas: gas, Rows: rows}
}
