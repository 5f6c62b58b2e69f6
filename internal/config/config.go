package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"

	customerrors "github.com/axellelanca/clickstream/internal/errors"
)

// Config represents the main structure mapping the entire application configuration.
// This struct uses mapstructure tags to map YAML keys to Go struct fields.
type Config struct {
	// Server configuration section containing HTTP server settings
	Server struct {
		Port                   int    `mapstructure:"port"`                     // HTTP server port (default: 8080)
		BaseURL                string `mapstructure:"base_url"`                 // Base URL for short links; empty means "use the request host"
		ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds"` // Grace period for in-flight requests
	} `mapstructure:"server"`

	// Database configuration section (durable store for mappings and clicks)
	Database struct {
		Driver       string `mapstructure:"driver"` // "sqlite" or "postgres"
		Name         string `mapstructure:"name"`   // SQLite database file name
		DSN          string `mapstructure:"dsn"`    // PostgreSQL connection string
		MaxOpenConns int    `mapstructure:"max_open_conns"`
		MaxIdleConns int    `mapstructure:"max_idle_conns"`
	} `mapstructure:"database"`

	// Redis hosts the URL cache, the geo cache, the short code set and the click stream
	Redis struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"redis"`

	// Cache lifetimes and the per-call timeout applied to cache round trips
	Cache struct {
		URLTTLHours int `mapstructure:"url_ttl_hours"`
		GeoTTLHours int `mapstructure:"geo_ttl_hours"`
		TimeoutMs   int `mapstructure:"timeout_ms"`
	} `mapstructure:"cache"`

	// Analytics configuration for asynchronous click tracking
	Analytics struct {
		Queue                 string `mapstructure:"queue"`                   // "redis" or "memory"
		Stream                string `mapstructure:"stream"`                  // Redis stream carrying click events
		Group                 string `mapstructure:"group"`                   // Consumer group name
		Consumer              string `mapstructure:"consumer"`                // Consumer name; generated when empty
		BufferSize            int    `mapstructure:"buffer_size"`             // Size of the in-process publish buffer
		PublisherWorkers      int    `mapstructure:"publisher_workers"`       // Goroutines forwarding events to the queue
		BatchSize             int    `mapstructure:"batch_size"`              // Messages fetched per poll
		BlockMs               int    `mapstructure:"block_ms"`                // How long a poll waits for new messages
		ProcessTimeoutSeconds int    `mapstructure:"process_timeout_seconds"` // Deadline for enriching and persisting one message
		MaxLen                int64  `mapstructure:"max_len"`                 // Approximate stream cap, 0 means unbounded
	} `mapstructure:"analytics"`

	// Monitor configuration for reclaiming unacknowledged click messages
	Monitor struct {
		IntervalSeconds int `mapstructure:"interval_seconds"`
		MinIdleSeconds  int `mapstructure:"min_idle_seconds"`
	} `mapstructure:"monitor"`

	// Geo database (MaxMind City .mmdb)
	Geo struct {
		DatabasePath string `mapstructure:"database_path"`
	} `mapstructure:"geo"`

	// Quota collaborator (external user service)
	Quota struct {
		Enabled        bool   `mapstructure:"enabled"`
		BaseURL        string `mapstructure:"base_url"`
		TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	} `mapstructure:"quota"`

	// Auth holds the secret used to verify owner JWTs
	Auth struct {
		JWTSecret string `mapstructure:"jwt_secret"`
	} `mapstructure:"auth"`

	// RateLimit applies to link creation
	RateLimit struct {
		Enabled bool   `mapstructure:"enabled"`
		Rate    string `mapstructure:"rate"` // ulule/limiter format, e.g. "20-M"
	} `mapstructure:"rate_limit"`

	// Log output; an empty file keeps logs on stderr only
	Log struct {
		File       string `mapstructure:"file"`
		MaxSizeMB  int    `mapstructure:"max_size_mb"`
		MaxBackups int    `mapstructure:"max_backups"`
		MaxAgeDays int    `mapstructure:"max_age_days"`
	} `mapstructure:"log"`
}

// LoadConfig loads the application configuration using Viper.
// It supports environment variable overrides and YAML configuration files.
// Returns a populated Config struct or an error if configuration loading fails.
func LoadConfig() (*Config, error) {
	// Enable automatic environment variable binding
	viper.AutomaticEnv()

	// Replace dots with underscores in environment variable names
	// e.g., "server.port" becomes "SERVER_PORT"
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.AddConfigPath("./configs")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	setDefaults()

	// Attempt to read the config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// This is not a fatal error - we'll use default values
			log.Println("Config file not found, using default values")
		} else {
			// Any other error (permissions, malformed YAML, etc.) is fatal
			return nil, customerrors.ErrConfigLoad{Path: viper.ConfigFileUsed(), Reason: err.Error()}
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, customerrors.ErrConfigLoad{Path: viper.ConfigFileUsed(), Reason: err.Error()}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log.Printf("Configuration loaded: Server Port=%d, DB Driver=%s, Queue=%s, Stream=%s, Monitor Interval=%ds",
		cfg.Server.Port, cfg.Database.Driver, cfg.Analytics.Queue, cfg.Analytics.Stream, cfg.Monitor.IntervalSeconds)

	return &cfg, nil
}

// setDefaults registers a default for every key so the service runs without a config file.
func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.base_url", "")
	viper.SetDefault("server.shutdown_timeout_seconds", 10)

	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.name", "url_shortener.db")
	viper.SetDefault("database.dsn", "")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)

	viper.SetDefault("redis.url", "redis://localhost:6379/0")

	viper.SetDefault("cache.url_ttl_hours", 30*24)
	viper.SetDefault("cache.geo_ttl_hours", 24)
	viper.SetDefault("cache.timeout_ms", 200)

	viper.SetDefault("analytics.queue", "redis")
	viper.SetDefault("analytics.stream", "clicks")
	viper.SetDefault("analytics.group", "analytics")
	viper.SetDefault("analytics.consumer", "")
	viper.SetDefault("analytics.buffer_size", 1000)
	viper.SetDefault("analytics.publisher_workers", 2)
	viper.SetDefault("analytics.batch_size", 10)
	viper.SetDefault("analytics.block_ms", 2000)
	viper.SetDefault("analytics.process_timeout_seconds", 5)
	viper.SetDefault("analytics.max_len", 0)

	viper.SetDefault("monitor.interval_seconds", 30)
	viper.SetDefault("monitor.min_idle_seconds", 60)

	viper.SetDefault("geo.database_path", "GeoLite2-City.mmdb")

	viper.SetDefault("quota.enabled", true)
	viper.SetDefault("quota.base_url", "http://user-service:8080")
	viper.SetDefault("quota.timeout_seconds", 3)

	viper.SetDefault("auth.jwt_secret", "")

	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.rate", "20-M")

	viper.SetDefault("log.file", "")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 3)
	viper.SetDefault("log.max_age_days", 28)
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	switch c.Analytics.Queue {
	case "redis", "memory":
	default:
		return fmt.Errorf("unsupported analytics queue %q", c.Analytics.Queue)
	}
	if c.Analytics.BatchSize <= 0 {
		return fmt.Errorf("analytics.batch_size must be positive, got %d", c.Analytics.BatchSize)
	}
	return nil
}

// URLTTL is how long a resolved destination stays in the URL cache.
func (c *Config) URLTTL() time.Duration {
	return time.Duration(c.Cache.URLTTLHours) * time.Hour
}

// GeoTTL is how long a geolocation result stays in the geo cache.
func (c *Config) GeoTTL() time.Duration {
	return time.Duration(c.Cache.GeoTTLHours) * time.Hour
}

// CacheTimeout bounds every single cache round trip.
func (c *Config) CacheTimeout() time.Duration {
	return time.Duration(c.Cache.TimeoutMs) * time.Millisecond
}

// BlockTimeout is how long one consumer poll waits for new messages.
func (c *Config) BlockTimeout() time.Duration {
	return time.Duration(c.Analytics.BlockMs) * time.Millisecond
}

// ProcessTimeout bounds the enrichment and persistence of a single click message.
func (c *Config) ProcessTimeout() time.Duration {
	return time.Duration(c.Analytics.ProcessTimeoutSeconds) * time.Second
}

// MonitorInterval is the period between two reclaim passes.
func (c *Config) MonitorInterval() time.Duration {
	return time.Duration(c.Monitor.IntervalSeconds) * time.Second
}

// MinIdle is how long a message must stay unacknowledged before it is redelivered.
func (c *Config) MinIdle() time.Duration {
	return time.Duration(c.Monitor.MinIdleSeconds) * time.Second
}

// QuotaTimeout bounds calls to the user service.
func (c *Config) QuotaTimeout() time.Duration {
	return time.Duration(c.Quota.TimeoutSeconds) * time.Second
}

// ShutdownTimeout is the grace period given to the HTTP server on shutdown.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}
