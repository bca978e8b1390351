package api

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
)

// Config carries environment-driven settings for the API and worker processes.
type Config struct {
	Port                 string
	Environment          string
	LogLevel             slog.Level
	PostgresDSN          string
	PostgresMaxOpenConns int
	AutoMigrate          bool
	StatementTimeout     time.Duration
	LockTimeout          time.Duration
	CatalogSeedFile      string
	TemporalAddress      string
	TemporalNamespace    string
	TemporalDisabled     bool
	OTLPEndpoint         string
	OTLPInsecure         bool
	TraceSampleRatio     float64
}

// LoadConfig loads an optional .env file (ENV_FILE overrides the path), then reads
// environment variables, applies defaults, and validates basic constraints.
// Variables already present in the environment win over the file.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(envDefault("ENV_FILE", ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	cfg := Config{
		Port:              envDefault("PORT", "8080"),
		Environment:       envDefault("ENVIRONMENT", "local"),
		PostgresDSN:       strings.TrimSpace(os.Getenv("POSTGRES_DSN")),
		AutoMigrate:       !isFalsy(os.Getenv("POSTGRES_AUTO_MIGRATE")),
		CatalogSeedFile:   strings.TrimSpace(os.Getenv("CATALOG_SEED_FILE")),
		TemporalAddress:   envDefault("TEMPORAL_ADDRESS", client.DefaultHostPort),
		TemporalNamespace: envDefault("TEMPORAL_NAMESPACE", client.DefaultNamespace),
		TemporalDisabled:  isTruthy(os.Getenv("TEMPORAL_DISABLED")),
		OTLPEndpoint:      strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		OTLPInsecure:      !isFalsy(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")),
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(envDefault("LOG_LEVEL", "INFO"))); err != nil {
		return Config{}, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	var err error
	if cfg.PostgresMaxOpenConns, err = positiveInt("POSTGRES_MAX_OPEN_CONNS", 20); err != nil {
		return Config{}, err
	}
	if cfg.StatementTimeout, err = positiveDuration("ORDER_TX_STATEMENT_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.LockTimeout, err = positiveDuration("ORDER_TX_LOCK_TIMEOUT", 2*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.TraceSampleRatio, err = sampleRatio("OTEL_TRACES_SAMPLE_RATIO", 1); err != nil {
		return Config{}, err
	}
	if cfg.LockTimeout > cfg.StatementTimeout {
		return Config{}, fmt.Errorf("ORDER_TX_LOCK_TIMEOUT (%s) must not exceed ORDER_TX_STATEMENT_TIMEOUT (%s)", cfg.LockTimeout, cfg.StatementTimeout)
	}
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

func sampleRatio(key string, fallback float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	ratio, err := strconv.ParseFloat(raw, 64)
	if err != nil || ratio < 0 || ratio > 1 {
		return 0, fmt.Errorf("%s must be a number between 0 and 1, got %q", key, raw)
	}
	return ratio, nil
}

func positiveInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", key)
	}
	return value, nil
}

func positiveDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration such as 2s", key)
	}
	return value, nil
}

func envDefault(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func isTruthy(value string) bool {
	value = strings.TrimSpace(strings.ToLower(value))
	return value == "1" || value == "true" || value == "yes"
}

func isFalsy(value string) bool {
	value = strings.TrimSpace(strings.ToLower(value))
	return value == "0" || value == "false" || value == "no"
}
