// Package geocode resolves a free-text place name to coordinates for
// /api/analyze's optional location field. Geocoding providers are an
// external black box, so this is a thin Resolver interface plus one
// HTTP-backed implementation, grounded in the same
// build-request/decode-JSON idiom as internal/satellite and internal/weather
// rather than any vendor SDK (none appears in the reference corpus).
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/aeris-platform/aeris/internal/apierr"
	"github.com/aeris-platform/aeris/internal/config"
)

// Point is a resolved location.
type Point struct {
	Lat float64
	Lon float64
	// DisplayName is the provider's canonical label for the match, returned
	// to the caller so a UI can show what "location" was actually resolved to.
	DisplayName string
}

// Resolver turns free text into coordinates.
type Resolver interface {
	Resolve(ctx context.Context, query string) (Point, error)
}

// HTTPResolver queries a Nominatim-compatible search endpoint. Nominatim's
// /search contract (q=, format=jsonv2, limit=1) is the de facto standard
// for this kind of free text-to-point lookup and needs no API key, which is
// why it is the default rather than a named commercial provider.
type HTTPResolver struct {
	http    *http.Client
	baseURL string
}

// New builds an HTTPResolver from process config.
func New(cfg config.GeocodeConfig) *HTTPResolver {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://nominatim.openstreetmap.org"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPResolver{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Resolve looks up query and returns its best match. A query that matches
// nothing returns apierr.NotFound: the resource the client asked about does
// not exist.
func (r *HTTPResolver) Resolve(ctx context.Context, query string) (Point, error) {
	u := fmt.Sprintf("%s/search?%s", r.baseURL, url.Values{
		"q":      {query},
		"format": {"jsonv2"},
		"limit":  {"1"},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Point{}, fmt.Errorf("geocode: build request: %w", err)
	}
	req.Header.Set("User-Agent", "aeris/1.0")

	resp, err := r.http.Do(req)
	if err != nil {
		return Point{}, apierr.UpstreamTransient(err, "geocode: request")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Point{}, apierr.UpstreamTransient(fmt.Errorf("status %d", resp.StatusCode), "geocode: unexpected status")
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return Point{}, apierr.UpstreamFatal(err, "geocode: decode response")
	}
	if len(results) == 0 {
		return Point{}, apierr.NotFound("geocode: no match for %q", query)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return Point{}, apierr.UpstreamFatal(err, "geocode: parse latitude")
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return Point{}, apierr.UpstreamFatal(err, "geocode: parse longitude")
	}

	return Point{Lat: lat, Lon: lon, DisplayName: results[0].DisplayName}, nil
}
