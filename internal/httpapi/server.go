// Package httpapi wires the HTTP surface: a stateless request/response
// layer over the engines in internal/routing, internal/upes,
// internal/alerts, internal/weather, and internal/geocode, with every
// dependency injected through Deps rather than read off global state.
//
// Handlers follow the teacher's telemetryhttp idiom (NewXHandler(opts)
// constructors returning a plain http.Handler, options-struct injection,
// explicit status codes) generalized to a full route table. Routing itself
// uses go-chi/chi/v5, an ecosystem router the teacher's own services don't
// happen to need (its HTTP surface is a handful of health/metrics
// endpoints), but whose handlers are still bare http.Handler values wired
// the same way (see DESIGN.md).
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/aeris-platform/aeris/internal/auth"
	"github.com/aeris-platform/aeris/internal/config"
	"github.com/aeris-platform/aeris/internal/geocode"
	"github.com/aeris-platform/aeris/internal/logging"
	"github.com/aeris-platform/aeris/internal/metrics"
	"github.com/aeris-platform/aeris/internal/routing"
	"github.com/aeris-platform/aeris/internal/store"
	"github.com/aeris-platform/aeris/internal/store/cache"
	"github.com/aeris-platform/aeris/internal/telemetry"
	"github.com/aeris-platform/aeris/internal/weather"
)

// Deps is every collaborator the HTTP surface needs. Each request handler
// closes over Deps rather than touching a package-level global, so tests
// can substitute memstore/fakes for every field.
type Deps struct {
	Config   *config.Config
	Store    store.Store
	Routing  *routing.Engine
	Weather  *weather.Client
	Geocode  geocode.Resolver
	Cache    cache.Client
	Tokens   *auth.TokenIssuer
	Metrics  *metrics.Registry

	// Clock overrides time.Now in tests.
	Clock func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Clock != nil {
		return d.Clock()
	}
	return time.Now()
}

// NewRouter assembles the full route table over d.
func NewRouter(d Deps) http.Handler {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	log := logging.New("httpapi")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(tracingMiddleware)
	r.Use(requestLogger(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))

	h := &handlers{d: d, log: log}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)
			r.Get("/me", h.getMe)
			r.Patch("/me", h.patchMe)
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze", h.analyze)
		r.Get("/hotspots", h.hotspots)
		r.Get("/weather", h.weatherHandler)
		r.Get("/pollutant_movement", h.pollutantMovement)
		r.Get("/combined_analysis", h.combinedAnalysis)

		r.Post("/route/analyze", h.routeAnalyze)
		r.Get("/route/optimized", h.routeOptimized)
		r.Post("/route/optimized", h.routeOptimized)

		r.Get("/upes/latest", h.upesLatest)
		r.Get("/upes/grid", h.upesGrid)
		r.Get("/upes/heatmap", h.upesHeatmap)

		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)
			r.Post("/saved-routes", h.createSavedRoute)
			r.Get("/saved-routes", h.listSavedRoutes)
			r.Get("/saved-routes/{id}", h.getSavedRoute)
			r.Delete("/saved-routes/{id}", h.deleteSavedRoute)
			r.Get("/alerts", h.listAlerts)
		})
	})

	return r
}

// tracingMiddleware opens one otel span per request, named after the
// request method and URL path.
func tracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := telemetry.StartSpan(r.Context(), r.Method+" "+r.URL.Path)
		defer span.End()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLogger logs method/path/status/duration the way the teacher's
// handlers log one line per significant state transition, generalized to
// every request rather than just health probes.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("request", "method", r.Method, "path", r.URL.Path,
				"status", ww.Status(), "duration_ms", time.Since(start).Milliseconds())
		})
	}
}

type handlers struct {
	d   Deps
	log *slog.Logger
}
