// Package cache wraps the optional key/value cache: when unavailable, reads
// return a miss and writes are no-ops, so consumers never need a nil check.
package cache

import (
	"context"
	"time"

	"github.com/aeris-platform/aeris/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Client is the minimal get/set-with-TTL contract every consumer needs.
type Client interface {
	// Get returns the stored value and true, or ("", false) on a miss or
	// when the cache is unavailable.
	Get(ctx context.Context, key string) (string, bool)
	// Set stores value under key with the given TTL. It never returns an
	// error to the caller; a disabled or unreachable cache silently no-ops.
	Set(ctx context.Context, key, value string, ttl time.Duration)
}

// redisClient is the real implementation, backed by redis/go-redis/v9.
type redisClient struct {
	rdb *redis.Client
	log func(format string, args ...any)
}

// NewRedis builds a Client from a redis:// URL. Connection failures surface
// only at call time (Get/Set degrade to miss/no-op), matching the "never
// fail the caller" contract.
func NewRedis(redisURL string) (Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &redisClient{rdb: redis.NewClient(opts)}, nil
}

func (c *redisClient) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

func (c *redisClient) Set(ctx context.Context, key, value string, ttl time.Duration) {
	_ = c.rdb.Set(ctx, key, value, ttl).Err()
}

// noneClient is the "cache client equal to none" sentinel: Get always
// misses, Set is always a no-op, and neither panics.
type noneClient struct{}

// None returns the disabled cache sentinel, used when REDIS_URL is unset.
func None() Client { return noneClient{} }

func (noneClient) Get(context.Context, string) (string, bool) { return "", false }
func (noneClient) Set(context.Context, string, string, time.Duration) {}

// Key helpers matching the exact cache key shapes every consumer expects.
// RouteOptKey normalizes mode itself before interpolating it, so "commute",
// "Commute", and "  commuter " all produce the same key.
func WeatherKey(lat, lon float64, days int) string {
	return formatKey("weather", fmtFloat(lat), fmtFloat(lon), fmtInt(days))
}

func PollutantMovementKey(lat, lon float64) string {
	return formatKey("pollutant_movement", fmtFloat(lat), fmtFloat(lon))
}

const TempoLastUpdateKey = "tempo:last_update"
const UPESLastUpdateKey = "upes:last_update"

func RouteOptKey(startLat, startLon, endLat, endLon float64, mode string) string {
	normalized := string(domain.NormalizeMode(mode))
	return formatKey("route_opt", fmtFloat(startLat), fmtFloat(startLon), fmtFloat(endLat), fmtFloat(endLon), normalized)
}
