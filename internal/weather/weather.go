// Package weather wraps the WeatherAPI current.json/forecast.json endpoints
// consumed by the UPES engine's humidity/wind factors and the alert
// engine's wind-shift rule, caching responses the way internal/store/cache
// documents for weather:{lat}:{lon}:{days} (TTL 600s).
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/aeris-platform/aeris/internal/store/cache"
)

const defaultBaseURL = "https://api.weatherapi.com/v1"

// Config carries the WEATHER_API_KEY setting and transport timeouts.
type Config struct {
	APIKey  string
	BaseURL string // overridable for tests; defaults to the real WeatherAPI host.
	Timeout time.Duration
}

// Client fetches and caches weather.Snapshot for a (lat, lon, days) query.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	cache   cache.Client
}

// New builds a Client. ca may be cache.None() when no cache is configured;
// every call still works, just without memoization.
func New(cfg Config, ca cache.Client) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		cache:   ca,
	}
}

// Condition is the WeatherAPI current.condition sub-object.
type Condition struct {
	Text string `json:"text"`
}

// Current mirrors the current.json/forecast.json "current" fields this
// package consumes: temp_c, humidity, wind_kph, wind_degree, wind_dir,
// condition.text, vis_km, and the optional air_quality block.
type Current struct {
	TempC      float64            `json:"temp_c"`
	Humidity   float64            `json:"humidity"`
	WindKPH    float64            `json:"wind_kph"`
	WindDegree float64            `json:"wind_degree"`
	WindDir    string             `json:"wind_dir"`
	Condition  Condition          `json:"condition"`
	VisKM      float64            `json:"vis_km"`
	AirQuality map[string]float64 `json:"air_quality,omitempty"`
}

// HourForecast is one entry of forecast.forecastday[].hour[], used for the
// next-3-hour pollutant movement prediction.
type HourForecast struct {
	TimeEpoch  int64   `json:"time_epoch"`
	TempC      float64 `json:"temp_c"`
	Humidity   float64 `json:"humidity"`
	WindKPH    float64 `json:"wind_kph"`
	WindDegree float64 `json:"wind_degree"`
	ChanceRain float64 `json:"chance_of_rain"`
}

type forecastDay struct {
	Hour []HourForecast `json:"hour"`
}

type forecast struct {
	ForecastDay []forecastDay `json:"forecastday"`
}

// Snapshot is the decoded subset of a forecast.json response AERIS cares
// about: the current reading plus the flattened hourly forecast.
type Snapshot struct {
	Current Current        `json:"current"`
	Hourly  []HourForecast `json:"hourly,omitempty"`
}

type rawResponse struct {
	Current  Current  `json:"current"`
	Forecast forecast `json:"forecast"`
}

// Fetch returns weather for (lat, lon) with days of forecast (1..10),
// serving a cache hit under cache.WeatherKey(lat, lon, days) when present and
// refreshing it with a 600s TTL on a live fetch.
func (c *Client) Fetch(ctx context.Context, lat, lon float64, days int) (*Snapshot, error) {
	if days <= 0 {
		days = 1
	}
	key := cache.WeatherKey(lat, lon, days)
	if cached, ok := c.cache.Get(ctx, key); ok {
		var snap Snapshot
		if err := json.Unmarshal([]byte(cached), &snap); err == nil {
			return &snap, nil
		}
	}

	snap, err := c.fetchLive(ctx, lat, lon, days)
	if err != nil {
		return nil, err
	}
	if encoded, err := json.Marshal(snap); err == nil {
		c.cache.Set(ctx, key, string(encoded), 600*time.Second)
	}
	return snap, nil
}

func (c *Client) fetchLive(ctx context.Context, lat, lon float64, days int) (*Snapshot, error) {
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("q", fmt.Sprintf("%g,%g", lat, lon))
	q.Set("days", fmt.Sprintf("%d", days))
	q.Set("aqi", "yes")

	reqURL := c.baseURL + "/forecast.json?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("weather: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather: provider returned %d", resp.StatusCode)
	}

	var raw rawResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("weather: decode response: %w", err)
	}

	snap := &Snapshot{Current: raw.Current}
	for _, day := range raw.Forecast.ForecastDay {
		snap.Hourly = append(snap.Hourly, day.Hour...)
	}
	return snap, nil
}
