package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "redis", cfg.Analytics.Queue)
	assert.Equal(t, "clicks", cfg.Analytics.Stream)
	assert.Equal(t, 30*24*time.Hour, cfg.URLTTL())
	assert.Equal(t, 24*time.Hour, cfg.GeoTTL())
	assert.Equal(t, 200*time.Millisecond, cfg.CacheTimeout())
	assert.Equal(t, "20-M", cfg.RateLimit.Rate)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("ANALYTICS_QUEUE", "memory")
	t.Setenv("MONITOR_MIN_IDLE_SECONDS", "5")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Analytics.Queue)
	assert.Equal(t, 5*time.Second, cfg.MinIdle())
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "unknown driver", key: "DATABASE_DRIVER", value: "mysql"},
		{name: "unknown queue", key: "ANALYTICS_QUEUE", value: "kafka"},
		{name: "empty batch", key: "ANALYTICS_BATCH_SIZE", value: "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}
