package cache

import (
	"context"
	"testing"
	"time"
)

func TestNoneClientAlwaysMissesAndNoops(t *testing.T) {
	c := None()
	ctx := context.Background()

	if _, ok := c.Get(ctx, "anything"); ok {
		t.Error("None().Get should always miss")
	}
	// Set must not panic and subsequent Get must still miss.
	c.Set(ctx, "anything", "value", time.Minute)
	if _, ok := c.Get(ctx, "anything"); ok {
		t.Error("None().Set should be a no-op")
	}
}

func TestRouteOptKeyDeterministicUnderModeAliasing(t *testing.T) {
	base := RouteOptKey(34.0, -118.2, 34.1, -118.2, "commute")
	variants := []string{"commute", "Commute", "  commuter "}
	for _, v := range variants {
		got := RouteOptKey(34.0, -118.2, 34.1, -118.2, v)
		if got != base {
			t.Errorf("RouteOptKey(mode=%q) = %q, want %q", v, got, base)
		}
	}
}

func TestWeatherKeyShape(t *testing.T) {
	got := WeatherKey(34.05, -118.25, 3)
	want := "weather:34.05:-118.25:3"
	if got != want {
		t.Errorf("WeatherKey = %q, want %q", got, want)
	}
}
