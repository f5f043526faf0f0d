package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aeris-platform/aeris/internal/store/cache"
)

const fixtureBody = `{
  "current": {"temp_c": 21.5, "humidity": 60, "wind_kph": 12.3, "wind_degree": 200, "wind_dir": "SSW", "condition": {"text": "Clear"}, "vis_km": 10},
  "forecast": {"forecastday": [{"hour": [{"time_epoch": 100, "temp_c": 20, "humidity": 55, "wind_kph": 10, "wind_degree": 190, "chance_of_rain": 5}]}]}
}`

type memCache struct {
	values map[string]string
}

func newMemCache() *memCache { return &memCache{values: map[string]string{}} }

func (c *memCache) Get(_ context.Context, key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

func (c *memCache) Set(_ context.Context, key, value string, _ time.Duration) {
	c.values[key] = value
}

func TestFetchDecodesCurrentAndHourly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(fixtureBody))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "k", BaseURL: srv.URL}, cache.None())
	snap, err := c.Fetch(context.Background(), 34.05, -118.25, 1)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if snap.Current.Humidity != 60 {
		t.Errorf("Current.Humidity = %v, want 60", snap.Current.Humidity)
	}
	if snap.Current.WindKPH != 12.3 {
		t.Errorf("Current.WindKPH = %v, want 12.3", snap.Current.WindKPH)
	}
	if len(snap.Hourly) != 1 || snap.Hourly[0].TempC != 20 {
		t.Errorf("Hourly = %+v, want one entry with TempC 20", snap.Hourly)
	}
}

func TestFetchUsesCacheOnSecondCall(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(fixtureBody))
	}))
	defer srv.Close()

	ca := newMemCache()
	c := New(Config{APIKey: "k", BaseURL: srv.URL}, ca)

	if _, err := c.Fetch(context.Background(), 34.05, -118.25, 1); err != nil {
		t.Fatalf("Fetch (1): %v", err)
	}
	if _, err := c.Fetch(context.Background(), 34.05, -118.25, 1); err != nil {
		t.Fatalf("Fetch (2): %v", err)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Errorf("provider hits = %d, want 1 (second call should be served from cache)", hits)
	}
}
