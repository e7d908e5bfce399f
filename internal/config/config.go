// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/liamcoop/payrollrisk/internal/logger"
	"github.com/liamcoop/payrollrisk/tiers"
)

// Config is the runtime configuration shared by the server and CLI.
type Config struct {
	DatabaseURL        string
	Port               string
	LogLevel           string
	LogFormat          string
	DefaultTier        tiers.Tier
	PersistBatchSize   int
	ProcessConcurrency int
	OTelEnabled        bool
	OTelServiceName    string
	OTelEndpoint       string
	OTelInsecure       bool
}

// Load reads a .env file if one exists, then the environment.
// DATABASE_URL may be empty; callers fall back to in-memory stores.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using system environment variables")
	}

	cfg := &Config{
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		Port:            getenv("PORT", "8080"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		LogFormat:       getenv("LOG_FORMAT", "json"),
		OTelServiceName: getenv("OTEL_SERVICE_NAME", "payrollrisk"),
		OTelEndpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
	}

	tier, err := tiers.Parse(getenv("DEFAULT_TIER", string(tiers.Starter)))
	if err != nil {
		return nil, fmt.Errorf("DEFAULT_TIER: %w", err)
	}
	cfg.DefaultTier = tier

	if cfg.PersistBatchSize, err = positiveInt("PERSIST_BATCH_SIZE", 500); err != nil {
		return nil, err
	}
	if cfg.ProcessConcurrency, err = positiveInt("PROCESS_CONCURRENCY", 4); err != nil {
		return nil, err
	}
	if cfg.OTelEnabled, err = boolean("OTEL_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.OTelInsecure, err = boolean("OTEL_EXPORTER_OTLP_INSECURE", true); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func positiveInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, raw)
	}
	return n, nil
}

func boolean(key string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, raw)
	}
	return b, nil
}
