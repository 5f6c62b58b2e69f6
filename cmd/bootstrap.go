package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/axellelanca/clickstream/internal/cache"
	"github.com/axellelanca/clickstream/internal/config"
	"github.com/axellelanca/clickstream/internal/geo"
	"github.com/axellelanca/clickstream/internal/monitor"
	"github.com/axellelanca/clickstream/internal/queue"
	"github.com/axellelanca/clickstream/internal/quota"
	"github.com/axellelanca/clickstream/internal/workers"
)

// OpenRedis connects to redis.url. An unreachable server is only a warning:
// caches degrade to the database and the client reconnects on its own.
func OpenRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Printf("WARNING: Redis at %s is unreachable: %v", opts.Addr, err)
	} else {
		log.Printf("Connected to Redis at %s", opts.Addr)
	}
	return client, nil
}

// OpenClickQueue returns the click queue selected by analytics.queue.
// For Redis the stream and its consumer group are created when missing.
func OpenClickQueue(ctx context.Context, cfg *config.Config, client *redis.Client) (queue.Queue, error) {
	if cfg.Analytics.Queue == "memory" {
		log.Println("[QUEUE] Using in-memory click queue; pending clicks are lost on exit.")
		return queue.NewMemory(cfg.BlockTimeout()), nil
	}

	stream := queue.NewRedisStream(client, queue.StreamConfig{
		Stream:   cfg.Analytics.Stream,
		Group:    cfg.Analytics.Group,
		Consumer: ConsumerName(cfg),
		Block:    cfg.BlockTimeout(),
		MaxLen:   cfg.Analytics.MaxLen,
	})
	if err := stream.EnsureGroup(ctx); err != nil {
		return nil, err
	}
	return stream, nil
}

// ConsumerName is analytics.consumer, or hostname plus a random suffix so that
// several processes on one host stay distinct inside the group.
func ConsumerName(cfg *config.Config) string {
	if cfg.Analytics.Consumer != "" {
		return cfg.Analytics.Consumer
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "consumer"
	}
	return host + "-" + uuid.NewString()[:8]
}

// OpenGeoLocator opens the MaxMind database behind a Redis cache. When the file
// cannot be opened clicks are still recorded, just without location.
func OpenGeoLocator(cfg *config.Config, client *redis.Client) (*geo.Locator, io.Closer) {
	geoCache := cache.NewGeoCache(client, cfg.GeoTTL(), cfg.CacheTimeout())

	reader, err := geo.Open(cfg.Geo.DatabasePath)
	if err != nil {
		log.Printf("[GEO] WARNING: %v; clicks will be stored without location", err)
		return geo.NewLocator(geo.Unavailable{}, geoCache), nopCloser{}
	}
	log.Printf("[GEO] Geo database loaded from %s", cfg.Geo.DatabasePath)
	return geo.NewLocator(reader, geoCache), reader
}

// NewQuotaChecker returns the user service client, or Unlimited when quota.enabled is false.
func NewQuotaChecker(cfg *config.Config) quota.Checker {
	if !cfg.Quota.Enabled {
		log.Println("Quota checks disabled.")
		return quota.Unlimited{}
	}
	return quota.NewHTTPChecker(cfg.Quota.BaseURL, cfg.QuotaTimeout())
}

// StartIngestion runs the click consumer and its pending monitor inside g.
func StartIngestion(ctx context.Context, g *errgroup.Group, cfg *config.Config, consumer *workers.ClickConsumer) {
	g.Go(func() error {
		return consumer.Run(ctx)
	})

	pendingMonitor := monitor.NewPendingMonitor(consumer, cfg.MonitorInterval(), cfg.MinIdle())
	g.Go(func() error {
		pendingMonitor.Start(ctx)
		return nil
	})
}

// ConsumerConfig maps the analytics section onto the consumer settings.
func ConsumerConfig(cfg *config.Config) workers.ConsumerConfig {
	return workers.ConsumerConfig{
		BatchSize:      cfg.Analytics.BatchSize,
		ProcessTimeout: cfg.ProcessTimeout(),
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
