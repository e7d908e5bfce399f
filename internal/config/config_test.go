package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamcoop/payrollrisk/tiers"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"DATABASE_URL", "PORT", "LOG_LEVEL", "LOG_FORMAT", "DEFAULT_TIER",
		"PERSIST_BATCH_SIZE", "PROCESS_CONCURRENCY", "OTEL_ENABLED",
		"OTEL_SERVICE_NAME", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_INSECURE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, tiers.Starter, cfg.DefaultTier)
	assert.Equal(t, 500, cfg.PersistBatchSize)
	assert.Equal(t, 4, cfg.ProcessConcurrency)
	assert.False(t, cfg.OTelEnabled)
	assert.Equal(t, "payrollrisk", cfg.OTelServiceName)
	assert.Empty(t, cfg.DatabaseURL)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/payroll")
	t.Setenv("PORT", "9090")
	t.Setenv("DEFAULT_TIER", "Enterprise")
	t.Setenv("PERSIST_BATCH_SIZE", "50")
	t.Setenv("PROCESS_CONCURRENCY", "8")
	t.Setenv("OTEL_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/payroll", cfg.DatabaseURL)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, tiers.Enterprise, cfg.DefaultTier)
	assert.Equal(t, 50, cfg.PersistBatchSize)
	assert.Equal(t, 8, cfg.ProcessConcurrency)
	assert.True(t, cfg.OTelEnabled)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"DEFAULT_TIER", "platinum"},
		{"PERSIST_BATCH_SIZE", "0"},
		{"PERSIST_BATCH_SIZE", "many"},
		{"PROCESS_CONCURRENCY", "-2"},
		{"OTEL_ENABLED", "sometimes"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
