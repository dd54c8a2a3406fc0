package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config - структура для хранения конфигурации приложения
type Config struct {
	StoreDriver string `env:"STORE_DRIVER" envDefault:"postgres"`
	DatabaseURL string `env:"DATABASE_URL"`
	DBMaxConns  int    `env:"DB_MAX_CONNS" envDefault:"10"`
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"json"`

	// Redis Config
	RedisAddr        string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass        string        `env:"REDIS_PASSWORD"`
	RedisDB          int           `env:"REDIS_DB" envDefault:"0"`
	IncidentCacheTTL time.Duration `env:"INCIDENT_CACHE_TTL" envDefault:"5m"`

	// Webhook Config
	WebhookURL        string        `env:"WEBHOOK_URL"`
	WebhookSecret     string        `env:"WEBHOOK_SECRET"`
	WebhookTimeout    time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"5s"`
	WebhookMaxRetries int           `env:"WEBHOOK_MAX_RETRIES" envDefault:"3"`
	WebhookBaseDelay  time.Duration `env:"WEBHOOK_BASE_DELAY" envDefault:"1s"`

	// NATS Config
	NATSURL     string `env:"NATS_URL"`
	NATSSubject string `env:"NATS_SUBJECT" envDefault:"incidents.updates"`

	// Prediction / Alert View Config
	PredictionURL      string        `env:"PREDICTION_URL"`
	PredictionTimeout  time.Duration `env:"PREDICTION_TIMEOUT" envDefault:"2s"`
	AlertMinConfidence string        `env:"ALERT_MIN_CONFIDENCE" envDefault:"high_probability"`
	AlertConcurrency   int           `env:"ALERT_CONCURRENCY" envDefault:"8"`

	// Correlation Config
	CorrelationRadius        float64       `env:"CORRELATION_RADIUS" envDefault:"1"`
	CorrelationRecencyWindow time.Duration `env:"CORRELATION_RECENCY_WINDOW" envDefault:"3h"`
	CorrelationMaxAttempts   int           `env:"CORRELATION_MAX_ATTEMPTS" envDefault:"5"`

	BroadcastBufferSize int `env:"BROADCAST_BUFFER_SIZE" envDefault:"64"`

	// Synthetic official source
	SourcesEnabled  bool          `env:"SOURCES_ENABLED" envDefault:"true"`
	SourcesInterval time.Duration `env:"SOURCES_INTERVAL" envDefault:"30m"`

	// API Keys for authentication
	APIKeys []string `env:"API_KEYS"`
}

// LoadConfig загружает конфигурацию из переменных окружения и .env файла
func LoadConfig() (*Config, error) {
	// Загрузка переменных окружения из .env файла (если есть)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("ошибка загрузки файла .env: %w", err)
	}

	cfg := &Config{
		StoreDriver:              strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		DatabaseURL:              os.Getenv("DATABASE_URL"),
		DBMaxConns:               getEnvAsInt("DB_MAX_CONNS", 10),
		HTTPPort:                 getEnv("HTTP_PORT", "8080"),
		LogLevel:                 getEnv("LOG_LEVEL", "info"),
		LogFormat:                getEnv("LOG_FORMAT", "json"),
		RedisAddr:                getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:                os.Getenv("REDIS_PASSWORD"),
		RedisDB:                  getEnvAsInt("REDIS_DB", 0),
		IncidentCacheTTL:         getEnvAsDuration("INCIDENT_CACHE_TTL", 5*time.Minute),
		WebhookURL:               os.Getenv("WEBHOOK_URL"),
		WebhookSecret:            os.Getenv("WEBHOOK_SECRET"),
		WebhookTimeout:           getEnvAsDuration("WEBHOOK_TIMEOUT", 5*time.Second),
		WebhookMaxRetries:        getEnvAsInt("WEBHOOK_MAX_RETRIES", 3),
		WebhookBaseDelay:         getEnvAsDuration("WEBHOOK_BASE_DELAY", time.Second),
		NATSURL:                  os.Getenv("NATS_URL"),
		NATSSubject:              getEnv("NATS_SUBJECT", "incidents.updates"),
		PredictionURL:            os.Getenv("PREDICTION_URL"),
		PredictionTimeout:        getEnvAsDuration("PREDICTION_TIMEOUT", 2*time.Second),
		AlertMinConfidence:       getEnv("ALERT_MIN_CONFIDENCE", "high_probability"),
		AlertConcurrency:         getEnvAsInt("ALERT_CONCURRENCY", 8),
		CorrelationRadius:        getEnvAsFloat("CORRELATION_RADIUS", 1),
		CorrelationRecencyWindow: getEnvAsDuration("CORRELATION_RECENCY_WINDOW", 3*time.Hour),
		CorrelationMaxAttempts:   getEnvAsInt("CORRELATION_MAX_ATTEMPTS", 5),
		BroadcastBufferSize:      getEnvAsInt("BROADCAST_BUFFER_SIZE", 64),
		SourcesEnabled:           getEnvAsBool("SOURCES_ENABLED", true),
		SourcesInterval:          getEnvAsDuration("SOURCES_INTERVAL", 30*time.Minute),
	}

	// Загрузка API ключей
	apiKeysStr := os.Getenv("API_KEYS")
	if apiKeysStr != "" {
		for _, key := range strings.Split(apiKeysStr, ",") {
			if key = strings.TrimSpace(key); key != "" {
				cfg.APIKeys = append(cfg.APIKeys, key)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate проверяет согласованность параметров
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL environment variable is required")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.AlertMinConfidence {
	case "confirmed", "high_probability", "under_observation":
	default:
		return fmt.Errorf("unsupported ALERT_MIN_CONFIDENCE %q", c.AlertMinConfidence)
	}

	if c.CorrelationRadius <= 0 {
		return fmt.Errorf("CORRELATION_RADIUS must be positive")
	}
	if c.CorrelationRecencyWindow <= 0 {
		return fmt.Errorf("CORRELATION_RECENCY_WINDOW must be positive")
	}
	if c.CorrelationMaxAttempts < 1 {
		return fmt.Errorf("CORRELATION_MAX_ATTEMPTS must be at least 1")
	}
	if c.AlertConcurrency < 1 {
		return fmt.Errorf("ALERT_CONCURRENCY must be at least 1")
	}
	if c.SourcesEnabled && c.SourcesInterval <= 0 {
		return fmt.Errorf("SOURCES_INTERVAL must be positive")
	}
	if c.WebhookURL != "" && c.RedisAddr == "" {
		return fmt.Errorf("WEBHOOK_URL requires REDIS_ADDR")
	}
	return nil
}

// getEnv возвращает значение переменной окружения или значение по умолчанию
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt возвращает значение переменной окружения как int или значение по умолчанию
func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat возвращает значение переменной окружения как float64 или значение по умолчанию
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsBool возвращает значение переменной окружения как bool или значение по умолчанию
func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration возвращает значение переменной окружения как time.Duration или значение по умолчанию
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if durationValue, err := time.ParseDuration(value); err == nil {
			return durationValue
		}
	}
	return defaultValue
}
