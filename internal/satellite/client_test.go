package satellite

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aeris-platform/aeris/internal/apierr"
	"github.com/aeris-platform/aeris/internal/domain"
)

func testWindow() Window {
	now := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	return Window{Start: now.Add(-time.Hour), End: now}
}

func testBBox() BoundingBox {
	return BoundingBox{West: -125, South: 24, East: -66, North: 50}
}

func TestFetchSyncBinaryWritesTempFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("missing expected bearer header, got %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "image/tiff")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("fake-tiff-bytes"))
	}))
	defer srv.Close()

	c := NewClient(Config{HarmonyBase: srv.URL, BearerToken: "test-token"})
	result, err := c.Fetch(context.Background(), domain.GasNO2, testBBox(), testWindow())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if result.Empty {
		t.Fatal("expected a non-empty result")
	}
	defer os.Remove(result.TempFilePath)

	body, err := os.ReadFile(result.TempFilePath)
	if err != nil {
		t.Fatalf("read temp file: %v", err)
	}
	if string(body) != "fake-tiff-bytes" {
		t.Errorf("temp file body = %q, want %q", body, "fake-tiff-bytes")
	}
}

func TestFetchNoMatchingGranulesIsEmptyNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":"NoMatchingGranules","description":"no matching granules found"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{HarmonyBase: srv.URL, BearerToken: "test-token"})
	result, err := c.Fetch(context.Background(), domain.GasCH2O, testBBox(), testWindow())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !result.Empty {
		t.Error("expected Empty = true for a no-matching-granules response")
	}
}

func TestFetchRetriesOn5xxThenSucceeds(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("recovered-bytes"))
	}))
	defer srv.Close()

	c := NewClient(Config{
		HarmonyBase: srv.URL,
		BearerToken: "test-token",
		Retry:       RetryConfig{BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, MaxAttempts: 5},
	})
	result, err := c.Fetch(context.Background(), domain.GasAI, testBBox(), testWindow())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	defer os.Remove(result.TempFilePath)
	if atomic.LoadInt32(&attempts) != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestFetchDoesNotRetryOn401(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(Config{
		HarmonyBase: srv.URL,
		BearerToken: "test-token",
		Retry:       RetryConfig{BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, MaxAttempts: 5},
	})
	_, err := c.Fetch(context.Background(), domain.GasPM, testBBox(), testWindow())
	if err == nil {
		t.Fatal("expected an error for a 401 response")
	}
	if apierr.KindOf(err) != apierr.KindAuth {
		t.Errorf("KindOf(err) = %v, want KindAuth", apierr.KindOf(err))
	}
	if atomic.LoadInt32(&attempts) != 1 {
		t.Errorf("attempts = %d, want 1 (no retry on 401)", attempts)
	}
}

func TestFetchFollowsRedirectAndPollsJob(t *testing.T) {
	var pollCount int32
	var srv *httptest.Server
	mux := http.NewServeMux()

	mux.HandleFunc("/rangeset", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", srv.URL+"/jobs/abc123")
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("/jobs/abc123", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if atomic.AddInt32(&pollCount, 1) < 2 {
			_, _ = w.Write([]byte(`{"status":"running","links":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"successful","links":[{"rel":"data","href":"` + srv.URL + `/download"}]}`))
	})
	mux.HandleFunc("/download", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("job-result-bytes"))
	})

	srv = httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(Config{
		HarmonyBase:  srv.URL,
		BearerToken:  "test-token",
		PollInterval: time.Millisecond,
		PollTimeout:  time.Second,
	})

	result, retryable, err := c.fetchOnce(context.Background(), srv.URL+"/rangeset", "test-token")
	if err != nil {
		t.Fatalf("fetchOnce: %v (retryable=%v)", err, retryable)
	}
	defer os.Remove(result.TempFilePath)

	body, err := os.ReadFile(result.TempFilePath)
	if err != nil {
		t.Fatalf("read temp file: %v", err)
	}
	if string(body) != "job-result-bytes" {
		t.Errorf("temp file body = %q, want %q", body, "job-result-bytes")
	}
	if atomic.LoadInt32(&pollCount) != 2 {
		t.Errorf("pollCount = %d, want 2", pollCount)
	}
}
