package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aeris-platform/aeris/internal/apierr"
	"github.com/aeris-platform/aeris/internal/auth"
	"github.com/aeris-platform/aeris/internal/config"
	"github.com/aeris-platform/aeris/internal/domain"
	"github.com/aeris-platform/aeris/internal/geocode"
	"github.com/aeris-platform/aeris/internal/models"
	"github.com/aeris-platform/aeris/internal/store/cache"
	"github.com/aeris-platform/aeris/internal/store/memstore"
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

var _ cache.Client = (*memCache)(nil)

type stubGeocode struct{ pt geocode.Point }

func (g stubGeocode) Resolve(ctx context.Context, query string) (geocode.Point, error) {
	return g.pt, nil
}

func testDeps(t *testing.T) (Deps, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	return Deps{
		Config:  &config.Config{Route: config.RouteConfig{ResultCacheTTL: 5 * time.Minute}},
		Store:   st,
		Cache:   newMemCache(),
		Tokens:  auth.NewTokenIssuer("test-secret", 60),
		Geocode: stubGeocode{pt: geocode.Point{Lat: 34.0, Lon: -118.2, DisplayName: "Somewhere"}},
	}, st
}

func doRequest(t *testing.T, handler http.Handler, method, path string, body []byte, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRegisterLoginAndMe(t *testing.T) {
	deps, _ := testDeps(t)
	router := NewRouter(deps)

	regBody, _ := json.Marshal(registerRequest{Email: "a@example.com", Password: "hunter22"})
	rec := doRequest(t, router, http.MethodPost, "/auth/register", regBody, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body=%s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, router, http.MethodPost, "/auth/register", regBody, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register status = %d, want 409", rec.Code)
	}

	loginBody, _ := json.Marshal(loginRequest{Email: "a@example.com", Password: "hunter22"})
	rec = doRequest(t, router, http.MethodPost, "/auth/login", loginBody, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body=%s", rec.Code, rec.Body.String())
	}
	var tok tokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &tok); err != nil {
		t.Fatalf("decode token response: %v", err)
	}
	if tok.AccessToken == "" || tok.TokenType != "bearer" {
		t.Fatalf("unexpected token response: %+v", tok)
	}

	rec = doRequest(t, router, http.MethodGet, "/auth/me", nil, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated /auth/me status = %d, want 401", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/auth/me", nil, tok.AccessToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("/auth/me status = %d, body=%s", rec.Code, rec.Body.String())
	}
	var me userResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &me); err != nil {
		t.Fatalf("decode me response: %v", err)
	}
	if me.Email != "a@example.com" {
		t.Errorf("me.Email = %q", me.Email)
	}

	loginBody, _ = json.Marshal(loginRequest{Email: "a@example.com", Password: "wrong"})
	rec = doRequest(t, router, http.MethodPost, "/auth/login", loginBody, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password status = %d, want 401", rec.Code)
	}
}

func registerAndLogin(t *testing.T, router http.Handler, email string) string {
	t.Helper()
	regBody, _ := json.Marshal(registerRequest{Email: email, Password: "hunter22"})
	if rec := doRequest(t, router, http.MethodPost, "/auth/register", regBody, ""); rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d", rec.Code)
	}
	loginBody, _ := json.Marshal(loginRequest{Email: email, Password: "hunter22"})
	rec := doRequest(t, router, http.MethodPost, "/auth/login", loginBody, "")
	var tok tokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &tok); err != nil {
		t.Fatalf("decode token: %v", err)
	}
	return tok.AccessToken
}

func TestSavedRoutesCRUDScopedToOwner(t *testing.T) {
	deps, _ := testDeps(t)
	router := NewRouter(deps)

	tokA := registerAndLogin(t, router, "owner@example.com")
	tokB := registerAndLogin(t, router, "other@example.com")

	createBody, _ := json.Marshal(savedRouteRequest{
		OriginLat: 34.0, OriginLon: -118.3, DestinationLat: 34.0, DestinationLon: -118.2, ActivityType: "jogger",
	})
	rec := doRequest(t, router, http.MethodPost, "/api/saved-routes", createBody, tokA)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body=%s", rec.Code, rec.Body.String())
	}
	var created savedRouteResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created route: %v", err)
	}
	if created.ActivityType != "jogger" {
		t.Errorf("ActivityType = %q, want jogger", created.ActivityType)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/saved-routes", nil, tokA)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var list []savedRouteResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("list len = %d, want 1", len(list))
	}

	rec = doRequest(t, router, http.MethodGet, "/api/saved-routes/"+created.ID, nil, tokB)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("other user get status = %d, want 404 (opaque forbidden)", rec.Code)
	}

	rec = doRequest(t, router, http.MethodDelete, "/api/saved-routes/"+created.ID, nil, tokA)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = doRequest(t, router, http.MethodGet, "/api/saved-routes/"+created.ID, nil, tokA)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestRouteOptimizedFeatureDisabledReturns503(t *testing.T) {
	deps, _ := testDeps(t)
	router := NewRouter(deps)

	rec := doRequest(t, router, http.MethodGet,
		"/api/route/optimized?start_lat=34.0&start_lon=-118.3&end_lat=34.0&end_lon=-118.2&mode=commute", nil, "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503, body=%s", rec.Code, rec.Body.String())
	}
}

func TestHotspotsReturnsOnlyAboveModerateCells(t *testing.T) {
	deps, st := testDeps(t)
	router := NewRouter(deps)

	ctx := context.Background()
	now := time.Now()
	_ = st.InsertCells(ctx, []models.PollutionGridCell{
		{Timestamp: now, GasType: domain.GasNO2, GeomWKT: "POLYGON((-118.21 33.99,-118.19 33.99,-118.19 34.01,-118.21 34.01,-118.21 33.99))", PollutionValue: 3e16, SeverityLevel: 4},
		{Timestamp: now, GasType: domain.GasNO2, GeomWKT: "POLYGON((-110.21 33.99,-110.19 33.99,-110.19 34.01,-110.21 34.01,-110.21 33.99))", PollutionValue: 1e15, SeverityLevel: 0},
	})

	rec := doRequest(t, router, http.MethodGet, "/api/hotspots?lat=34.0&lon=-118.2&radius=50", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rec.Code, rec.Body.String())
	}
	var fc featureCollection
	if err := json.Unmarshal(rec.Body.Bytes(), &fc); err != nil {
		t.Fatalf("decode feature collection: %v", err)
	}
	if len(fc.Features) != 1 {
		t.Fatalf("features = %d, want 1 (only the severity-4 cell within radius)", len(fc.Features))
	}
}

func TestAlertsListScopedToCallerAndValidatesDays(t *testing.T) {
	deps, st := testDeps(t)
	router := NewRouter(deps)
	token := registerAndLogin(t, router, "alerts@example.com")

	rec := doRequest(t, router, http.MethodGet, "/api/alerts?days=0", nil, token)
	if apierr.HTTPStatus(apierr.KindValidation) != rec.Code {
		t.Fatalf("status = %d, want %d", rec.Code, apierr.HTTPStatus(apierr.KindValidation))
	}

	rec = doRequest(t, router, http.MethodGet, "/api/alerts?days=7", nil, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rec.Code, rec.Body.String())
	}
	var alerts []alertResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &alerts); err != nil {
		t.Fatalf("decode alerts: %v", err)
	}
	if len(alerts) != 0 {
		t.Fatalf("alerts = %d, want 0", len(alerts))
	}
	_ = st
}

func TestAnalyzeResolvesLocationByName(t *testing.T) {
	deps, _ := testDeps(t)
	router := NewRouter(deps)

	form := "location=Los+Angeles&radius=10"
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", bytes.NewReader([]byte(form)))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rec.Code, rec.Body.String())
	}
	var resp analyzeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode analyze response: %v", err)
	}
	if resp.Location.DisplayName != "Somewhere" {
		t.Errorf("DisplayName = %q, want Somewhere", resp.Location.DisplayName)
	}
}
