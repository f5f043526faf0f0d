package alerts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aeris-platform/aeris/internal/config"
	"github.com/aeris-platform/aeris/internal/domain"
	"github.com/aeris-platform/aeris/internal/models"
	"github.com/aeris-platform/aeris/internal/raster"
	"github.com/aeris-platform/aeris/internal/store/memstore"
	"github.com/aeris-platform/aeris/internal/weather"
)

type memCache struct{ m map[string]string }

func newMemCache() *memCache { return &memCache{m: make(map[string]string)} }
func (c *memCache) Get(ctx context.Context, key string) (string, bool) {
	v, ok := c.m[key]
	return v, ok
}
func (c *memCache) Set(ctx context.Context, key, value string, ttl time.Duration) {
	c.m[key] = value
}

func writeFinalScoreRaster(t *testing.T, base string, now time.Time, fill float32) {
	t.Helper()
	transform := raster.GeoTransform{OriginLon: -119.5, OriginLat: 35.5, PixelWidth: 0.1, PixelHeight: -0.1}
	g := raster.NewGrid(20, 20, transform, -9999)
	for i := range g.Data {
		g.Data[i] = fill
	}
	path := filepath.Join(base, "hourly_scores", "final_score", "final_score_"+now.UTC().Format("20060102_15")+".tif")
	if err := raster.WriteFile(path, g); err != nil {
		t.Fatalf("write raster: %v", err)
	}
}

func testEngine(t *testing.T, outputBase string, alertsCfg config.AlertsConfig, wx *weather.Client) (*Engine, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	e := New(alertsCfg, outputBase, st, st, st, st, st, wx)
	return e, st
}

func TestScoreSavedRoutesSkipsWhenNoRasterExists(t *testing.T) {
	e, _ := testEngine(t, t.TempDir(), config.AlertsConfig{}, nil)
	result, err := e.ScoreSavedRoutes(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("ScoreSavedRoutes: %v", err)
	}
	if !result.Skipped {
		t.Error("expected Skipped=true with no raster on disk")
	}
}

func TestScoreSavedRoutesRecordsHistoryAndLastScore(t *testing.T) {
	base := t.TempDir()
	now := time.Date(2026, 7, 29, 20, 0, 0, 0, time.UTC)
	writeFinalScoreRaster(t, base, now, 0.6)

	e, st := testEngine(t, base, config.AlertsConfig{}, nil)
	user, _ := st.CreateUser(context.Background(), models.User{Email: "a@example.com"})
	route, _ := st.CreateSavedRoute(context.Background(), models.SavedRoute{
		UserID: user.ID, OriginLat: 34.0, OriginLon: -118.3, DestinationLat: 34.0, DestinationLon: -118.2,
		ActivityType: domain.ActivityCommute,
	})

	result, err := e.ScoreSavedRoutes(context.Background(), now)
	if err != nil {
		t.Fatalf("ScoreSavedRoutes: %v", err)
	}
	if result.Skipped || result.RoutesScored != 1 {
		t.Fatalf("result = %+v, want one route scored", result)
	}

	current, _, hasCurrent, _ := st.LatestTwoRouteExposureHistory(context.Background(), route.ID)
	if !hasCurrent {
		t.Fatal("expected a history row")
	}
	if current.UPESScore < 0.59 || current.UPESScore > 0.61 {
		t.Errorf("UPESScore = %v, want ~0.6", current.UPESScore)
	}

	updated, err := st.GetSavedRoute(context.Background(), route.ID)
	if err != nil {
		t.Fatalf("GetSavedRoute: %v", err)
	}
	if updated.LastUPESScore == nil || *updated.LastUPESScore < 0.59 {
		t.Errorf("LastUPESScore = %v, want ~0.6", updated.LastUPESScore)
	}
}

func TestRunAlertPipelineDeteriorationSensitivityScaling(t *testing.T) {
	now := time.Date(2026, 7, 29, 20, 25, 0, 0, time.UTC)

	for _, tc := range []struct {
		name      string
		level     int
		previous  float64
		current   float64
		wantAlert bool
	}{
		{"level1_33pct_triggers", 1, 0.30, 0.40, true},
		{"level5_33pct_triggers", 5, 0.30, 0.40, true},
		{"level1_5pct_no_trigger", 1, 0.40, 0.42, false},
		{"level5_5pct_triggers", 5, 0.40, 0.42, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			e, st := testEngine(t, t.TempDir(), config.AlertsConfig{}, nil)
			user, _ := st.CreateUser(context.Background(), models.User{
				Email: tc.name + "@example.com", ExposureSensitivityLevel: tc.level,
			})
			route, _ := st.CreateSavedRoute(context.Background(), models.SavedRoute{
				UserID: user.ID, OriginLat: 34.0, OriginLon: -118.3, DestinationLat: 34.0, DestinationLon: -118.2,
			})
			st.AppendRouteExposureHistory(context.Background(), models.RouteExposureHistory{
				RouteID: route.ID, Timestamp: now.Add(-time.Hour), UPESScore: tc.previous, MaxUPESAlongRoute: tc.previous,
			})
			st.AppendRouteExposureHistory(context.Background(), models.RouteExposureHistory{
				RouteID: route.ID, Timestamp: now, UPESScore: tc.current, MaxUPESAlongRoute: tc.current,
			})

			result, err := e.RunAlertPipeline(context.Background(), now)
			if err != nil {
				t.Fatalf("RunAlertPipeline: %v", err)
			}
			alerts, err := st.ListAlertsByUser(context.Background(), user.ID, nil, nil, now.Add(-time.Hour))
			if err != nil {
				t.Fatalf("ListAlertsByUser: %v", err)
			}
			var gotDeterioration bool
			for _, a := range alerts {
				if a.AlertType == domain.AlertRouteDeterioration {
					gotDeterioration = true
				}
			}
			if gotDeterioration != tc.wantAlert {
				t.Errorf("deterioration alert present = %v, want %v (pipeline result=%+v)", gotDeterioration, tc.wantAlert, result)
			}
		})
	}
}

func TestRunAlertPipelineHazardDispatchesWebhookWithFilteredChannels(t *testing.T) {
	now := time.Date(2026, 7, 29, 20, 25, 0, 0, time.UTC)

	var receivedBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		receivedBody = buf
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	e, st := testEngine(t, t.TempDir(), config.AlertsConfig{N8NWebhookURL: srv.URL}, nil)
	user, _ := st.CreateUser(context.Background(), models.User{
		Email: "hazard@example.com",
		NotificationPreferences: map[string]bool{
			"email": true, "in_app": true, "push": false,
		},
	})
	route, _ := st.CreateSavedRoute(context.Background(), models.SavedRoute{
		UserID: user.ID, OriginLat: 34.0, OriginLon: -118.3, DestinationLat: 34.0, DestinationLon: -118.2,
	})
	st.AppendRouteExposureHistory(context.Background(), models.RouteExposureHistory{
		RouteID: route.ID, Timestamp: now, UPESScore: 0.5, MaxUPESAlongRoute: 0.9,
	})

	result, err := e.RunAlertPipeline(context.Background(), now)
	if err != nil {
		t.Fatalf("RunAlertPipeline: %v", err)
	}
	if result.Triggered != 1 {
		t.Fatalf("Triggered = %d, want 1", result.Triggered)
	}
	if len(receivedBody) == 0 {
		t.Fatal("expected webhook POST body")
	}
	body := string(receivedBody)
	if !strings.Contains(body, `"alert_type":"hazard"`) || !strings.Contains(body, `"email"`) || !strings.Contains(body, `"in_app"`) {
		t.Errorf("webhook body missing expected fields: %s", body)
	}
	if strings.Contains(body, `"push"`) {
		t.Errorf("webhook body should not list disabled push channel: %s", body)
	}
}

func TestRunAlertPipelineWindShiftNeedsSourcePointAndAlignedWind(t *testing.T) {
	now := time.Date(2026, 7, 29, 20, 25, 0, 0, time.UTC)

	wxSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"current":{"wind_kph":20,"wind_degree":90,"humidity":50},"forecast":{"forecastday":[]}}`))
	}))
	defer wxSrv.Close()
	wx := weather.New(weather.Config{BaseURL: wxSrv.URL}, newMemCache())

	e, st := testEngine(t, t.TempDir(), config.AlertsConfig{}, wx)
	user, _ := st.CreateUser(context.Background(), models.User{Email: "wind@example.com"})
	route, _ := st.CreateSavedRoute(context.Background(), models.SavedRoute{
		UserID: user.ID, OriginLat: 34.00, OriginLon: -118.30, DestinationLat: 34.00, DestinationLon: -118.20,
	})
	st.AppendRouteExposureHistory(context.Background(), models.RouteExposureHistory{
		RouteID: route.ID, Timestamp: now, UPESScore: 0.4, MaxUPESAlongRoute: 0.4,
	})

	// A high-pollution cell west of the route midpoint, with wind blowing
	// toward the east (wind_degree 90, matching the source->midpoint
	// bearing), should trigger the wind-shift check.
	st.InsertCells(context.Background(), []models.PollutionGridCell{
		{Timestamp: now, GasType: domain.GasNO2, GeomWKT: "POLYGON((-118.35 33.99,-118.34 33.99,-118.34 34.01,-118.35 34.01,-118.35 33.99))", PollutionValue: 0.9},
	})

	result, err := e.RunAlertPipeline(context.Background(), now)
	if err != nil {
		t.Fatalf("RunAlertPipeline: %v", err)
	}
	alerts, _ := st.ListAlertsByUser(context.Background(), user.ID, nil, nil, now.Add(-time.Hour))
	var gotWindShift bool
	for _, a := range alerts {
		if a.AlertType == domain.AlertWindShift {
			gotWindShift = true
		}
	}
	if !gotWindShift {
		t.Errorf("expected a wind_shift alert, pipeline result=%+v alerts=%+v", result, alerts)
	}
}

func TestRunAlertPipelineDeterioationDedupesWithinHour(t *testing.T) {
	now := time.Date(2026, 7, 29, 20, 25, 0, 0, time.UTC)
	e, st := testEngine(t, t.TempDir(), config.AlertsConfig{}, nil)
	user, _ := st.CreateUser(context.Background(), models.User{Email: "dedupe@example.com", ExposureSensitivityLevel: 1})
	route, _ := st.CreateSavedRoute(context.Background(), models.SavedRoute{
		UserID: user.ID, OriginLat: 34.0, OriginLon: -118.3, DestinationLat: 34.0, DestinationLon: -118.2,
	})
	st.AppendRouteExposureHistory(context.Background(), models.RouteExposureHistory{
		RouteID: route.ID, Timestamp: now.Add(-time.Minute), UPESScore: 0.30, MaxUPESAlongRoute: 0.30,
	})
	st.AppendRouteExposureHistory(context.Background(), models.RouteExposureHistory{
		RouteID: route.ID, Timestamp: now, UPESScore: 0.40, MaxUPESAlongRoute: 0.40,
	})

	if _, err := e.RunAlertPipeline(context.Background(), now); err != nil {
		t.Fatalf("first RunAlertPipeline: %v", err)
	}
	result, err := e.RunAlertPipeline(context.Background(), now.Add(time.Minute))
	if err != nil {
		t.Fatalf("second RunAlertPipeline: %v", err)
	}
	if result.Triggered != 0 {
		t.Errorf("second run Triggered = %d, want 0 (deduped within the hour)", result.Triggered)
	}
}
