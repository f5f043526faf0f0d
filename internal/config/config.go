// Package config loads AERIS settings the way the teacher's runtime config
// does (a typed struct unmarshaled from YAML, see
// engine/internal/runtime/runtime.go), with every field overridable from the
// environment via spf13/viper's env binding, using the exact variable names
// the ops runbook documents.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// BoundingBox is a (west, south, east, north) WGS84 envelope in degrees.
type BoundingBox struct {
	West  float64
	South float64
	East  float64
	North float64
}

// IngestionConfig controls the hourly satellite fetch.
type IngestionConfig struct {
	HarmonyBase         string
	BearerToken         string
	EarthdataUsername   string
	EarthdataPassword   string
	BBox                BoundingBox
	MaxCells            int
	ChunkSize           int
	TokenFetchTimeout   time.Duration
	SubmitTimeout       time.Duration
	PollTimeout         time.Duration
	PollInterval        time.Duration
	DownloadTimeout     time.Duration
	RetryBaseDelay      time.Duration
	RetryMaxDelay       time.Duration
	RetryMaxAttempts    int
}

// UPESConfig controls the hourly scoring run.
type UPESConfig struct {
	OutputBase      string
	GridResolution  float64
	TrafficAlpha    float64
	EMALambda       float64
	EMAEnabled      bool
	BBox            BoundingBox
}

// RouteConfig controls the pollution-aware routing engine.
type RouteConfig struct {
	Enabled          bool
	OSMBufferKM      float64
	ResultCacheTTL   time.Duration
}

// AlertsConfig controls alert detection and dispatch.
type AlertsConfig struct {
	DeteriorationBasePct float64
	HazardThreshold      float64
	WindSpeedMinKPH      float64
	WindAngleDegrees     float64
	N8NWebhookURL        string
	WebhookTimeout       time.Duration
}

// GeocodeConfig controls the free-text location resolver backing
// /api/analyze's optional location field.
type GeocodeConfig struct {
	BaseURL string
	Timeout time.Duration
}

// ObjectStorageConfig controls the optional S3-compatible blob store.
type ObjectStorageConfig struct {
	Provider    string
	EndpointURL string
	Bucket      string
	Region      string
	AccessKeyID string
	SecretKey   string
	LocalFallbackDir string
}

// Config is the complete process configuration tree.
type Config struct {
	DatabaseURL              string
	RedisURL                 string
	SecretKey                string
	AccessTokenExpireMinutes int
	PersistPollutionGrid     bool
	WeatherAPIKey            string
	GroqAPIKey               string
	HTTPAddr                 string

	ObjectStorage ObjectStorageConfig
	Ingestion     IngestionConfig
	UPES          UPESConfig
	Route         RouteConfig
	Alerts        AlertsConfig
	Geocode       GeocodeConfig
}

// defaultContinentalBBox is the default ingestion/UPES bounding box when the
// operator has not overridden TEMPO_BBOX_*.
var defaultContinentalBBox = BoundingBox{West: -125, South: 24, East: -66, North: 50}

// Load builds a Config from environment variables, falling back to the
// defaults below. yamlPath, when non-empty, is read first and then overlaid
// with environment variables, matching the teacher's layered "file
// defaults, env overrides" precedence.
func Load(yamlPath string) (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if yamlPath != "" {
		v.SetConfigFile(yamlPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", yamlPath, err)
		}
	}

	for _, key := range recognizedEnvVars {
		_ = v.BindEnv(key, key)
	}

	cfg := &Config{
		DatabaseURL:              v.GetString("DATABASE_URL"),
		RedisURL:                 v.GetString("REDIS_URL"),
		SecretKey:                v.GetString("SECRET_KEY"),
		AccessTokenExpireMinutes: v.GetInt("ACCESS_TOKEN_EXPIRE_MINUTES"),
		PersistPollutionGrid:     v.GetBool("PERSIST_POLLUTION_GRID"),
		WeatherAPIKey:            v.GetString("WEATHER_API_KEY"),
		GroqAPIKey:               v.GetString("GROQ_API_KEY"),
		HTTPAddr:                 v.GetString("HTTP_ADDR"),

		ObjectStorage: ObjectStorageConfig{
			Provider:         v.GetString("OBJECT_STORAGE_PROVIDER"),
			EndpointURL:      v.GetString("OBJECT_STORAGE_ENDPOINT_URL"),
			Bucket:           v.GetString("OBJECT_STORAGE_BUCKET"),
			Region:           v.GetString("AWS_REGION"),
			AccessKeyID:      v.GetString("AWS_ACCESS_KEY_ID"),
			SecretKey:        v.GetString("AWS_SECRET_ACCESS_KEY"),
			LocalFallbackDir: v.GetString("OBJECT_STORAGE_LOCAL_FALLBACK_DIR"),
		},
		Ingestion: IngestionConfig{
			HarmonyBase:       v.GetString("HARMONY_BASE"),
			BearerToken:       v.GetString("BEARER_TOKEN"),
			EarthdataUsername: v.GetString("EARTHDATA_USERNAME"),
			EarthdataPassword: v.GetString("EARTHDATA_PASSWORD"),
			BBox: BoundingBox{
				West:  v.GetFloat64("TEMPO_BBOX_WEST"),
				South: v.GetFloat64("TEMPO_BBOX_SOUTH"),
				East:  v.GetFloat64("TEMPO_BBOX_EAST"),
				North: v.GetFloat64("TEMPO_BBOX_NORTH"),
			},
			MaxCells:         v.GetInt("TEMPO_MAX_CELLS"),
			ChunkSize:        v.GetInt("TEMPO_CHUNK_SIZE"),
			TokenFetchTimeout: v.GetDuration("INGESTION_TOKEN_TIMEOUT"),
			SubmitTimeout:    v.GetDuration("INGESTION_SUBMIT_TIMEOUT"),
			PollTimeout:      v.GetDuration("INGESTION_POLL_TIMEOUT"),
			PollInterval:     v.GetDuration("INGESTION_POLL_INTERVAL"),
			DownloadTimeout:  v.GetDuration("INGESTION_DOWNLOAD_TIMEOUT"),
			RetryBaseDelay:   v.GetDuration("INGESTION_RETRY_BASE_DELAY"),
			RetryMaxDelay:    v.GetDuration("INGESTION_RETRY_MAX_DELAY"),
			RetryMaxAttempts: v.GetInt("INGESTION_RETRY_MAX_ATTEMPTS"),
		},
		UPES: UPESConfig{
			OutputBase:     v.GetString("UPES_OUTPUT_BASE"),
			GridResolution: v.GetFloat64("UPES_GRID_RESOLUTION_DEG"),
			TrafficAlpha:   v.GetFloat64("UPES_TRAFFIC_ALPHA"),
			EMALambda:      v.GetFloat64("UPES_EMA_LAMBDA"),
			EMAEnabled:     v.GetBool("UPES_EMA_ENABLED"),
			BBox: BoundingBox{
				West:  v.GetFloat64("TEMPO_BBOX_WEST"),
				South: v.GetFloat64("TEMPO_BBOX_SOUTH"),
				East:  v.GetFloat64("TEMPO_BBOX_EAST"),
				North: v.GetFloat64("TEMPO_BBOX_NORTH"),
			},
		},
		Route: RouteConfig{
			Enabled:        v.GetBool("ROUTE_OPTIMIZATION_ENABLED"),
			OSMBufferKM:    v.GetFloat64("ROUTE_OSM_BUFFER_KM"),
			ResultCacheTTL: v.GetDuration("ROUTE_RESULT_CACHE_TTL"),
		},
		Alerts: AlertsConfig{
			DeteriorationBasePct: v.GetFloat64("ALERTS_DETERIORATION_BASE_PCT"),
			HazardThreshold:      v.GetFloat64("ALERTS_HAZARD_THRESHOLD"),
			WindSpeedMinKPH:      v.GetFloat64("ALERTS_WIND_SPEED_MIN_KPH"),
			WindAngleDegrees:     v.GetFloat64("ALERTS_WIND_ANGLE_DEG"),
			N8NWebhookURL:        v.GetString("ALERTS_N8N_WEBHOOK_URL"),
			WebhookTimeout:       v.GetDuration("ALERTS_WEBHOOK_TIMEOUT"),
		},
		Geocode: GeocodeConfig{
			BaseURL: v.GetString("GEOCODE_BASE_URL"),
			Timeout: v.GetDuration("GEOCODE_TIMEOUT"),
		},
	}

	if cfg.Ingestion.BBox == (BoundingBox{}) {
		cfg.Ingestion.BBox = defaultContinentalBBox
	}
	if cfg.UPES.BBox == (BoundingBox{}) {
		cfg.UPES.BBox = defaultContinentalBBox
	}
	return cfg, nil
}

var recognizedEnvVars = []string{
	"DATABASE_URL", "REDIS_URL", "SECRET_KEY", "ACCESS_TOKEN_EXPIRE_MINUTES",
	"OBJECT_STORAGE_PROVIDER", "OBJECT_STORAGE_ENDPOINT_URL", "OBJECT_STORAGE_BUCKET",
	"AWS_REGION", "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "PERSIST_POLLUTION_GRID",
	"BEARER_TOKEN", "EARTHDATA_USERNAME", "EARTHDATA_PASSWORD",
	"TEMPO_BBOX_WEST", "TEMPO_BBOX_SOUTH", "TEMPO_BBOX_EAST", "TEMPO_BBOX_NORTH",
	"ROUTE_OPTIMIZATION_ENABLED", "ROUTE_OSM_BUFFER_KM", "ROUTE_RESULT_CACHE_TTL",
	"ALERTS_N8N_WEBHOOK_URL", "WEATHER_API_KEY", "GROQ_API_KEY",
	"GEOCODE_BASE_URL", "GEOCODE_TIMEOUT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("TEMPO_MAX_CELLS", 5000)
	v.SetDefault("TEMPO_CHUNK_SIZE", 2000)
	v.SetDefault("INGESTION_TOKEN_TIMEOUT", 30*time.Second)
	v.SetDefault("INGESTION_SUBMIT_TIMEOUT", 60*time.Second)
	v.SetDefault("INGESTION_POLL_TIMEOUT", 600*time.Second)
	v.SetDefault("INGESTION_POLL_INTERVAL", 5*time.Second)
	v.SetDefault("INGESTION_DOWNLOAD_TIMEOUT", 300*time.Second)
	v.SetDefault("INGESTION_RETRY_BASE_DELAY", 1*time.Second)
	v.SetDefault("INGESTION_RETRY_MAX_DELAY", 30*time.Second)
	v.SetDefault("INGESTION_RETRY_MAX_ATTEMPTS", 5)

	v.SetDefault("UPES_OUTPUT_BASE", "./data/upes")
	v.SetDefault("UPES_GRID_RESOLUTION_DEG", 0.05)
	v.SetDefault("UPES_TRAFFIC_ALPHA", 0.0)
	v.SetDefault("UPES_EMA_LAMBDA", 0.6)
	v.SetDefault("UPES_EMA_ENABLED", true)

	v.SetDefault("ROUTE_OPTIMIZATION_ENABLED", true)
	v.SetDefault("ROUTE_OSM_BUFFER_KM", 3.0)
	v.SetDefault("ROUTE_RESULT_CACHE_TTL", 300*time.Second)

	v.SetDefault("ALERTS_DETERIORATION_BASE_PCT", 0.15)
	v.SetDefault("ALERTS_HAZARD_THRESHOLD", 0.85)
	v.SetDefault("ALERTS_WIND_SPEED_MIN_KPH", 5.0)
	v.SetDefault("ALERTS_WIND_ANGLE_DEG", 45.0)
	v.SetDefault("ALERTS_WEBHOOK_TIMEOUT", 10*time.Second)

	v.SetDefault("ACCESS_TOKEN_EXPIRE_MINUTES", 60)
	v.SetDefault("HTTP_ADDR", ":8080")

	v.SetDefault("GEOCODE_BASE_URL", "https://nominatim.openstreetmap.org")
	v.SetDefault("GEOCODE_TIMEOUT", 10*time.Second)
}
