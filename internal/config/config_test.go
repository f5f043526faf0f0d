package config

import (
	"os"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ingestion.MaxCells != 5000 {
		t.Errorf("MaxCells = %d, want 5000", cfg.Ingestion.MaxCells)
	}
	if cfg.Ingestion.ChunkSize != 2000 {
		t.Errorf("ChunkSize = %d, want 2000", cfg.Ingestion.ChunkSize)
	}
	if cfg.Alerts.HazardThreshold != 0.85 {
		t.Errorf("HazardThreshold = %v, want 0.85", cfg.Alerts.HazardThreshold)
	}
	if cfg.Ingestion.BBox != defaultContinentalBBox {
		t.Errorf("BBox = %+v, want default continental bbox", cfg.Ingestion.BBox)
	}
	if cfg.Ingestion.RetryMaxAttempts != 5 {
		t.Errorf("RetryMaxAttempts = %d, want 5", cfg.Ingestion.RetryMaxAttempts)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ALERTS_HAZARD_THRESHOLD", "0.5")
	t.Setenv("TEMPO_BBOX_WEST", "-100")
	t.Setenv("TEMPO_BBOX_SOUTH", "20")
	t.Setenv("TEMPO_BBOX_EAST", "-80")
	t.Setenv("TEMPO_BBOX_NORTH", "40")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Alerts.HazardThreshold != 0.5 {
		t.Errorf("HazardThreshold = %v, want 0.5 from env", cfg.Alerts.HazardThreshold)
	}
	if cfg.Ingestion.BBox.West != -100 {
		t.Errorf("BBox.West = %v, want -100", cfg.Ingestion.BBox.West)
	}
	_ = os.Unsetenv("ALERTS_HAZARD_THRESHOLD")
}
