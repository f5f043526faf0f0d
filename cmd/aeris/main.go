// Command aeris is the process entrypoint for the AERIS backend: an HTTP
// API server, a background scheduler for the hourly ingestion/scoring/alert
// tasks, and a database migration runner, selected by cobra subcommand the
// way the teacher's own CLI (cli/cmd/ariadne) parses flags into an
// engine.Config and starts a single engine, generalized here from one flat
// flag.Parse call into a cobra command tree since this process has three
// independent run modes instead of one.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/aeris-platform/aeris/internal/alerts"
	"github.com/aeris-platform/aeris/internal/auth"
	"github.com/aeris-platform/aeris/internal/config"
	"github.com/aeris-platform/aeris/internal/geocode"
	"github.com/aeris-platform/aeris/internal/httpapi"
	"github.com/aeris-platform/aeris/internal/ingestion"
	"github.com/aeris-platform/aeris/internal/logging"
	"github.com/aeris-platform/aeris/internal/metrics"
	"github.com/aeris-platform/aeris/internal/raster"
	"github.com/aeris-platform/aeris/internal/routing"
	"github.com/aeris-platform/aeris/internal/satellite"
	"github.com/aeris-platform/aeris/internal/scheduler"
	"github.com/aeris-platform/aeris/internal/store"
	"github.com/aeris-platform/aeris/internal/store/cache"
	"github.com/aeris-platform/aeris/internal/store/memstore"
	"github.com/aeris-platform/aeris/internal/store/objectstore"
	"github.com/aeris-platform/aeris/internal/store/postgis"
	"github.com/aeris-platform/aeris/internal/telemetry"
	"github.com/aeris-platform/aeris/internal/upes"
	"github.com/aeris-platform/aeris/internal/weather"
)

var configPath string

func main() {
	logging.Init(slog.LevelInfo, true)
	otel.SetTracerProvider(telemetry.NewProvider(os.Getenv("OTEL_TRACES_ENABLED") == "true", nil))

	root := &cobra.Command{
		Use:   "aeris",
		Short: "AERIS pollution-aware navigation and alerting backend",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "optional YAML config file overlaid before environment variables")

	root.AddCommand(serveCmd(), workerCmd(), migrateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// components holds every long-lived dependency shared by serve and worker,
// built once from config the way the teacher's engine.New wires its own
// worker pools and clients from a single Config value.
type components struct {
	cfg       *config.Config
	st        store.Store
	cacheCli  cache.Client
	reg       *prometheus.Registry
	metricsR  *metrics.Registry
	wx        *weather.Client
	geo       geocode.Resolver
	tokens    *auth.TokenIssuer
	ingestion *ingestion.Engine
	upesEng   *upes.Engine
	routeEng  *routing.Engine
	alertsEng *alerts.Engine
	log       *slog.Logger
}

func buildComponents(ctx context.Context) (*components, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logging.New("main")

	var st store.Store
	if cfg.DatabaseURL != "" {
		pg, err := postgis.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgis: %w", err)
		}
		st = pg
	} else {
		log.Warn("DATABASE_URL not set, falling back to in-memory store")
		st = memstore.New()
	}

	var cacheCli cache.Client
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedis(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		cacheCli = rc
	} else {
		log.Warn("REDIS_URL not set, caching disabled")
		cacheCli = cache.None()
	}

	reg := prometheus.NewRegistry()
	metricsR := metrics.New(reg)

	var wx *weather.Client
	if cfg.WeatherAPIKey != "" {
		wx = weather.New(weather.Config{APIKey: cfg.WeatherAPIKey, Timeout: 10 * time.Second}, cacheCli)
	}

	var geocoder geocode.Resolver
	if cfg.Geocode.BaseURL != "" {
		geocoder = geocode.New(cfg.Geocode)
	}

	objStore, err := objectstore.New(ctx, objectstore.Config{
		Provider: cfg.ObjectStorage.Provider, EndpointURL: cfg.ObjectStorage.EndpointURL,
		Bucket: cfg.ObjectStorage.Bucket, Region: cfg.ObjectStorage.Region,
		AccessKeyID: cfg.ObjectStorage.AccessKeyID, SecretKey: cfg.ObjectStorage.SecretKey,
	}, cfg.ObjectStorage.LocalFallbackDir)
	if err != nil {
		return nil, fmt.Errorf("open object store: %w", err)
	}

	satClient := satellite.NewClient(satellite.Config{
		HarmonyBase: cfg.Ingestion.HarmonyBase, BearerToken: cfg.Ingestion.BearerToken,
		EarthdataUsername: cfg.Ingestion.EarthdataUsername, EarthdataPassword: cfg.Ingestion.EarthdataPassword,
		Retry: satellite.RetryConfig{
			BaseDelay: cfg.Ingestion.RetryBaseDelay, MaxDelay: cfg.Ingestion.RetryMaxDelay,
			MaxAttempts: cfg.Ingestion.RetryMaxAttempts,
		},
		TokenFetchTimeout: cfg.Ingestion.TokenFetchTimeout, SubmitTimeout: cfg.Ingestion.SubmitTimeout,
		PollTimeout: cfg.Ingestion.PollTimeout, DownloadTimeout: cfg.Ingestion.DownloadTimeout,
		PollInterval: cfg.Ingestion.PollInterval,
	})
	ingestionEng := ingestion.New(cfg.Ingestion, satClient, st, st, objStore, cacheCli)

	upesEng := upes.New(cfg.UPES, st, wx, cacheCli)
	ingestionEng.OnIngested = func(ctx context.Context) error {
		_, err := upesEng.Run(ctx, time.Now())
		return err
	}

	osmSource := routing.NewOverpassSource("", nil)
	routeEng := routing.New(cfg.Route, osmSource)
	routeEng.Metrics = metricsR
	routeEng.FinalScoreAt = func() routing.RasterSample {
		grid, err := latestFinalScoreGrid(cfg.UPES.OutputBase)
		if err != nil {
			return nil
		}
		return func(lon, lat float64) (float64, bool) {
			v, ok := grid.AtLonLat(lon, lat)
			return float64(v), ok
		}
	}

	alertsEng := alerts.New(cfg.Alerts, cfg.UPES.OutputBase, st, st, st, st, st, wx)
	upesEng.OnScored = func(ctx context.Context) error {
		if _, err := alertsEng.ScoreSavedRoutes(ctx, time.Now()); err != nil {
			return err
		}
		_, err := alertsEng.RunAlertPipeline(ctx, time.Now())
		return err
	}

	tokens := auth.NewTokenIssuer(cfg.SecretKey, cfg.AccessTokenExpireMinutes)

	return &components{
		cfg: cfg, st: st, cacheCli: cacheCli, reg: reg, metricsR: metricsR,
		wx: wx, geo: geocoder, tokens: tokens,
		ingestion: ingestionEng, upesEng: upesEng, routeEng: routeEng, alertsEng: alertsEng,
		log: log,
	}, nil
}

// latestFinalScoreGrid loads the lexicographically greatest
// final_score_*.tif under base/hourly_scores/final_score, mirroring the
// same glob-and-sort convention internal/alerts and internal/httpapi each
// use independently to locate the latest dated raster.
func latestFinalScoreGrid(base string) (*raster.Grid, error) {
	dir := filepath.Join(base, "hourly_scores", "final_score")
	matches, err := filepath.Glob(filepath.Join(dir, "final_score_*.tif"))
	if err != nil || len(matches) == 0 {
		return nil, fmt.Errorf("no final_score raster available")
	}
	sort.Strings(matches)
	return raster.ReadFile(matches[len(matches)-1])
}

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background scheduler in one process",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			c, err := buildComponents(ctx)
			if err != nil {
				return err
			}
			if pg, ok := c.st.(*postgis.Store); ok {
				defer pg.Close()
			}

			if addr == "" {
				addr = c.cfg.HTTPAddr
			}

			deps := httpapi.Deps{
				Config: c.cfg, Store: c.st, Routing: c.routeEng, Weather: c.wx,
				Geocode: c.geo, Cache: c.cacheCli, Tokens: c.tokens, Metrics: c.metricsR,
			}
			mux := http.NewServeMux()
			mux.Handle("/", httpapi.NewRouter(deps))
			mux.Handle("/metrics", promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}))

			sched := scheduler.New(scheduler.Engines{
				Ingestion: c.ingestion, UPES: c.upesEng, Alerts: c.alertsEng,
			}, c.log)
			if err := sched.Start(ctx); err != nil {
				return fmt.Errorf("start scheduler: %w", err)
			}
			defer sched.Stop()

			srv := &http.Server{Addr: addr, Handler: mux}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			c.log.Info("aeris serving", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address, default from HTTP_ADDR")
	return cmd
}

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run only the background scheduler (ingestion/UPES/alerts), no HTTP surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			c, err := buildComponents(ctx)
			if err != nil {
				return err
			}
			if pg, ok := c.st.(*postgis.Store); ok {
				defer pg.Close()
			}

			sched := scheduler.New(scheduler.Engines{
				Ingestion: c.ingestion, UPES: c.upesEng, Alerts: c.alertsEng,
			}, c.log)
			if err := sched.Start(ctx); err != nil {
				return fmt.Errorf("start scheduler: %w", err)
			}
			defer sched.Stop()

			c.log.Info("aeris worker running")
			<-ctx.Done()
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending PostGIS schema migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required for migrate")
			}
			ctx := cmd.Context()
			pg, err := postgis.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("open postgis: %w", err)
			}
			defer pg.Close()
			if err := pg.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Println("migrations applied")
			return nil
		},
	}
}
