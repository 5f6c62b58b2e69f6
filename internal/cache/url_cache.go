package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultURLTTL is how long a destination URL stays cached.
const DefaultURLTTL = 30 * 24 * time.Hour

const urlKeyPrefix = "url:"

// URLCache maps short codes to destination URLs under "url:{code}".
type URLCache struct {
	client  redis.Cmdable
	ttl     time.Duration
	timeout time.Duration
}

// NewURLCache creates a URL cache. A zero ttl falls back to DefaultURLTTL and a
// zero timeout leaves the caller's context deadline in charge.
func NewURLCache(client redis.Cmdable, ttl, timeout time.Duration) *URLCache {
	if ttl <= 0 {
		ttl = DefaultURLTTL
	}
	return &URLCache{client: client, ttl: ttl, timeout: timeout}
}

// Get returns the cached destination for shortCode.
func (c *URLCache) Get(ctx context.Context, shortCode string) (Lookup[string], error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	val, err := c.client.Get(ctx, urlKeyPrefix+shortCode).Result()
	if errors.Is(err, redis.Nil) {
		return Miss[string](), nil
	}
	if err != nil {
		return Miss[string](), fmt.Errorf("url cache get %s: %w", shortCode, err)
	}
	return Hit(val), nil
}

// Set stores the destination for shortCode with the configured expiry.
func (c *URLCache) Set(ctx context.Context, shortCode, destination string) error {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.client.Set(ctx, urlKeyPrefix+shortCode, destination, c.ttl).Err(); err != nil {
		return fmt.Errorf("url cache set %s: %w", shortCode, err)
	}
	return nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
