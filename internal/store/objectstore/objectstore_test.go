package objectstore

import (
	"context"
	"testing"
)

func TestLocalFallbackPutGetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalFallback(dir)
	ctx := context.Background()

	if store.Configured() {
		t.Error("LocalFallback should report Configured() == false")
	}

	key := AuditGeotiffKey("2026-07-29", "NO2", 14)
	if err := store.Put(ctx, key, []byte("raw-bytes")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "raw-bytes" {
		t.Errorf("Get = %q, want %q", got, "raw-bytes")
	}
}

func TestAuditGeotiffKeyShape(t *testing.T) {
	got := AuditGeotiffKey("2026-07-29", "O3", 5)
	want := "audit/geotiff/2026-07-29/O3_05.tif"
	if got != want {
		t.Errorf("AuditGeotiffKey = %q, want %q", got, want)
	}
}

func TestNewWithEmptyBucketReturnsLocalFallback(t *testing.T) {
	dir := t.TempDir()
	store, err := New(context.Background(), Config{}, dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if store.Configured() {
		t.Error("expected unconfigured store when bucket is empty")
	}
}
