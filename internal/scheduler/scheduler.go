// Package scheduler drives the four hourly tasks on a single robfig/cron/v3
// dispatcher, the same "one periodic driver
// owns every background job" shape the teacher's engine/resources.Manager
// uses for its own ticker-driven maintenance loop, generalized here from a
// plain time.Ticker to cron's minute-level schedule since the four tasks run
// at different, fixed minutes within the hour rather than on one interval.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/aeris-platform/aeris/internal/alerts"
	"github.com/aeris-platform/aeris/internal/ingestion"
	"github.com/aeris-platform/aeris/internal/upes"
)

// Engines bundles the four task owners the scheduler dispatches into. Each
// is independently optional: a nil engine's task is skipped rather than
// scheduled, so a worker process can run a subset (e.g. routing-only,
// no ingestion) without the caller threading flags through this package.
type Engines struct {
	Ingestion *ingestion.Engine
	UPES      *upes.Engine
	Alerts    *alerts.Engine
	Clock     func() time.Time
}

// Scheduler owns the cron dispatcher and its entry IDs.
type Scheduler struct {
	cron *cron.Cron
	log  *slog.Logger
	eng  Engines
}

// New builds a Scheduler wired to eng. Call Start to begin dispatching.
func New(eng Engines, log *slog.Logger) *Scheduler {
	if eng.Clock == nil {
		eng.Clock = time.Now
	}
	return &Scheduler{
		cron: cron.New(),
		log:  log,
		eng:  eng,
	}
}

// Start registers the hourly schedule below and begins the cron dispatcher
// in its own goroutine:
//
//	:00 ingestion.Engine.Run       (fetch the last-completed hour of gases)
//	:15 upes.Engine.Run            (score the grid from the hour ingestion just wrote)
//	:20 alerts.Engine.ScoreSavedRoutes (sample every saved route against that score)
//	:25 alerts.Engine.RunAlertPipeline (detect and dispatch triggered alerts)
//
// The fifteen-minute stagger between ingestion and scoring, and the further
// five-minute stagger before scoring saved routes, gives each upstream task
// room to finish before its consumer runs. This ordering is a soft
// guarantee, not a hard barrier, so a slow ingestion run simply means the
// next UPES tick scores whatever is already on disk.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.eng.Ingestion != nil {
		if _, err := s.cron.AddFunc("0 * * * *", func() { s.runIngestion(ctx) }); err != nil {
			return err
		}
	}
	if s.eng.UPES != nil {
		if _, err := s.cron.AddFunc("15 * * * *", func() { s.runUPES(ctx) }); err != nil {
			return err
		}
	}
	if s.eng.Alerts != nil {
		if _, err := s.cron.AddFunc("20 * * * *", func() { s.runScoreSavedRoutes(ctx) }); err != nil {
			return err
		}
		if _, err := s.cron.AddFunc("25 * * * *", func() { s.runAlertPipeline(ctx) }); err != nil {
			return err
		}
	}
	s.cron.Start()
	return nil
}

// Stop blocks until any in-flight task finishes, then halts the dispatcher.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runIngestion(ctx context.Context) {
	now := s.eng.Clock()
	result := s.eng.Ingestion.Run(ctx, now)
	s.log.Info("ingestion run complete", "any_rows", result.AnyRows, "gases", len(result.Gases))
}

func (s *Scheduler) runUPES(ctx context.Context) {
	now := s.eng.Clock()
	result, err := s.eng.UPES.Run(ctx, now)
	if err != nil {
		s.log.Error("upes run failed", "error", err)
		return
	}
	s.log.Info("upes run complete", "skipped", result.Skipped)
}

func (s *Scheduler) runScoreSavedRoutes(ctx context.Context) {
	now := s.eng.Clock()
	result, err := s.eng.Alerts.ScoreSavedRoutes(ctx, now)
	if err != nil {
		s.log.Error("score saved routes failed", "error", err)
		return
	}
	s.log.Info("saved routes scored", "scored", result.RoutesScored, "skipped", result.Skipped)
}

func (s *Scheduler) runAlertPipeline(ctx context.Context) {
	now := s.eng.Clock()
	result, err := s.eng.Alerts.RunAlertPipeline(ctx, now)
	if err != nil {
		s.log.Error("alert pipeline failed", "error", err)
		return
	}
	s.log.Info("alert pipeline complete", "triggered", result.Triggered)
}
