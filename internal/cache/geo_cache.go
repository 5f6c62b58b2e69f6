package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/axellelanca/clickstream/internal/models"
)

// DefaultGeoTTL is how long a geolocation result stays cached.
const DefaultGeoTTL = 24 * time.Hour

const geoKeyPrefix = "geo:"

// GeoCache stores JSON-encoded geolocation results under "geo:{ip}".
type GeoCache struct {
	client  redis.Cmdable
	ttl     time.Duration
	timeout time.Duration
}

// NewGeoCache creates a geo cache. A zero ttl falls back to DefaultGeoTTL.
func NewGeoCache(client redis.Cmdable, ttl, timeout time.Duration) *GeoCache {
	if ttl <= 0 {
		ttl = DefaultGeoTTL
	}
	return &GeoCache{client: client, ttl: ttl, timeout: timeout}
}

// Get returns the cached geolocation of ip. An undecodable entry counts as a miss.
func (c *GeoCache) Get(ctx context.Context, ip string) (Lookup[models.GeoInfo], error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.client.Get(ctx, geoKeyPrefix+ip).Bytes()
	if errors.Is(err, redis.Nil) {
		return Miss[models.GeoInfo](), nil
	}
	if err != nil {
		return Miss[models.GeoInfo](), fmt.Errorf("geo cache get %s: %w", ip, err)
	}

	var info models.GeoInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return Miss[models.GeoInfo](), fmt.Errorf("geo cache decode %s: %w", ip, err)
	}
	return Hit(info), nil
}

// Set stores the geolocation of ip with the configured expiry.
func (c *GeoCache) Set(ctx context.Context, ip string, info models.GeoInfo) error {
	raw, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("geo cache encode %s: %w", ip, err)
	}

	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.client.Set(ctx, geoKeyPrefix+ip, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("geo cache set %s: %w", ip, err)
	}
	return nil
}
