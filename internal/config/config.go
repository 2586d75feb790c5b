// Package config loads service settings from environment variables, with
// an optional .env file for local development.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Default window bounds; requests and config clamp to these.
const (
	minWindowWeeks = 1
	maxWindowWeeks = 12
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	PostgresDSN   string
	MigrationsDir string

	// Redis is optional: an empty addr disables the cache layer.
	RedisAddr string
	CacheTTL  time.Duration

	// Kafka is optional: no brokers disables result publishing.
	KafkaBrokers    []string
	KafkaIndexTopic string
	KafkaAlertTopic string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	BatchConcurrency int
	WindowWeeks      int
	ScoreInterval    time.Duration
	DetectAnomalies  bool
}

// Load reads configuration from the environment, applying defaults where
// unset. A .env file in the working directory is merged in first; its
// absence is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parseDuration("CACHE_TTL", "1h")
	if err != nil {
		return nil, err
	}
	scoreInterval, err := parseDuration("SCORE_INTERVAL", "24h")
	if err != nil {
		return nil, err
	}

	concurrency, err := parseInt("BATCH_CONCURRENCY", 8)
	if err != nil {
		return nil, err
	}
	windowWeeks, err := parseInt("WINDOW_WEEKS", 4)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		MigrationsDir: envOrDefault("MIGRATIONS_DIR", "migrations"),

		RedisAddr: os.Getenv("REDIS_ADDR"),
		CacheTTL:  cacheTTL,

		KafkaBrokers:    parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaIndexTopic: envOrDefault("KAFKA_INDEX_TOPIC", "computed-comfort-index"),
		KafkaAlertTopic: envOrDefault("KAFKA_ALERT_TOPIC", "anomaly-alerts"),

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		BatchConcurrency: concurrency,
		WindowWeeks:      windowWeeks,
		ScoreInterval:    scoreInterval,
		DetectAnomalies:  envOrDefault("DETECT_ANOMALIES", "true") == "true",
	}

	if cfg.PostgresDSN == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}
	if cfg.BatchConcurrency < 1 {
		return nil, errors.New("BATCH_CONCURRENCY must be at least 1")
	}
	if cfg.WindowWeeks < minWindowWeeks || cfg.WindowWeeks > maxWindowWeeks {
		return nil, fmt.Errorf("WINDOW_WEEKS must be in [%d,%d]", minWindowWeeks, maxWindowWeeks)
	}
	if cfg.ScoreInterval < time.Minute {
		return nil, errors.New("SCORE_INTERVAL must be at least 1m")
	}
	if len(cfg.KafkaBrokers) > 0 {
		if cfg.KafkaIndexTopic == "" || cfg.KafkaAlertTopic == "" {
			return nil, errors.New("KAFKA_INDEX_TOPIC and KAFKA_ALERT_TOPIC are required when KAFKA_BROKERS is set")
		}
	}

	return cfg, nil
}

// KafkaEnabled reports whether result publishing is configured.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// RedisEnabled reports whether the cache layer is configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseBrokers(raw string) []string {
	if raw == "" {
		return nil
	}
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parseDuration(key, def string) (time.Duration, error) {
	raw := envOrDefault(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return d, nil
}

func parseInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return n, nil
}
