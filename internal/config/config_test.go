package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MemoryDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("DATABASE_URL", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 1.0, cfg.CorrelationRadius)
	assert.Equal(t, 3*time.Hour, cfg.CorrelationRecencyWindow)
	assert.Equal(t, 5, cfg.CorrelationMaxAttempts)
	assert.Equal(t, 64, cfg.BroadcastBufferSize)
	assert.Equal(t, 2*time.Second, cfg.PredictionTimeout)
	assert.Equal(t, "high_probability", cfg.AlertMinConfidence)
	assert.Equal(t, "incidents.updates", cfg.NATSSubject)
	assert.Equal(t, 30*time.Minute, cfg.SourcesInterval)
}

func TestLoadConfig_PostgresRequiresDatabaseURL(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_ParsesOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("CORRELATION_RADIUS", "2.5")
	t.Setenv("CORRELATION_RECENCY_WINDOW", "90m")
	t.Setenv("SOURCES_ENABLED", "false")
	t.Setenv("API_KEYS", " key-1 , ,key-2")
	t.Setenv("ALERT_MIN_CONFIDENCE", "confirmed")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 2.5, cfg.CorrelationRadius)
	assert.Equal(t, 90*time.Minute, cfg.CorrelationRecencyWindow)
	assert.False(t, cfg.SourcesEnabled)
	assert.Equal(t, []string{"key-1", "key-2"}, cfg.APIKeys)
	assert.Equal(t, "confirmed", cfg.AlertMinConfidence)
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			StoreDriver:              StoreDriverMemory,
			AlertMinConfidence:       "high_probability",
			AlertConcurrency:         1,
			CorrelationRadius:        1,
			CorrelationRecencyWindow: time.Hour,
			CorrelationMaxAttempts:   1,
			RedisAddr:                "localhost:6379",
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{name: "unknown driver", mutate: func(c *Config) { c.StoreDriver = "sqlite" }},
		{name: "dismissed as alert minimum", mutate: func(c *Config) { c.AlertMinConfidence = "dismissed" }},
		{name: "zero radius", mutate: func(c *Config) { c.CorrelationRadius = 0 }},
		{name: "zero window", mutate: func(c *Config) { c.CorrelationRecencyWindow = 0 }},
		{name: "zero attempts", mutate: func(c *Config) { c.CorrelationMaxAttempts = 0 }},
		{name: "zero concurrency", mutate: func(c *Config) { c.AlertConcurrency = 0 }},
		{name: "sources without interval", mutate: func(c *Config) { c.SourcesEnabled = true }},
		{name: "webhook without redis", mutate: func(c *Config) { c.WebhookURL = "http://hook"; c.RedisAddr = "" }},
	}

	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
