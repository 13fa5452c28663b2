package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsInDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, defaultAppName, cfg.AppName)
	assert.Equal(t, ":8080", cfg.Address())
	assert.Equal(t, time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, defaultShutdownDelay, cfg.ShutdownPeriod)
	assert.Equal(t, 30*time.Second, cfg.SagaTimeout)
	assert.Equal(t, 2*time.Second, cfg.GatewayMinLatency)
	assert.Equal(t, 5*time.Second, cfg.GatewayMaxLatency)
	assert.InDelta(t, 0.05, cfg.GatewayFailureRate, 1e-9)
	assert.Equal(t, "clearing.outcomes", cfg.KafkaTopic)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.True(t, cfg.Development())
}

func TestLoadRequiresStoresOutsideDevelopment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")

	_, err := Load()
	assert.ErrorContains(t, err, "DATABASE_URL")

	t.Setenv("DATABASE_URL", "postgres://clearing@localhost/clearing")
	_, err = Load()
	assert.ErrorContains(t, err, "REDIS_URL")

	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Development())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("PORT", ":9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("IDEMPOTENCY_TTL", "90m")
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "3")
	t.Setenv("SAGA_TIMEOUT", "45s")
	t.Setenv("SAGA_CREDIT_ATTEMPTS", "9")
	t.Setenv("SAGA_DEBIT_ATTEMPTS", "2")
	t.Setenv("SAGA_IDEMPOTENCY_ATTEMPTS", "5")
	t.Setenv("SAGA_RETRY_BASE_DELAY", "250ms")
	t.Setenv("SAGA_RETRY_MAX_DELAY", "4s")
	t.Setenv("SAGA_RETRY_JITTER", "0.5")
	t.Setenv("GATEWAY_FAILURE_RATE", "0")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Address())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 90*time.Minute, cfg.IdempotencyTTL)
	assert.Equal(t, 3*time.Second, cfg.ShutdownPeriod)
	assert.Equal(t, 45*time.Second, cfg.SagaTimeout)
	assert.Equal(t, 9, cfg.CreditAttempts)
	assert.Equal(t, 2, cfg.DebitAttempts)
	assert.Equal(t, 5, cfg.IdempotencyAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryBaseDelay)
	assert.Equal(t, 4*time.Second, cfg.RetryMaxDelay)
	assert.InDelta(t, 0.5, cfg.RetryJitter, 1e-9)
	assert.Zero(t, cfg.GatewayFailureRate)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	t.Setenv("IDEMPOTENCY_TTL_SECONDS", "soon")
	_, err := Load()
	assert.ErrorContains(t, err, "IDEMPOTENCY_TTL_SECONDS")

	t.Setenv("IDEMPOTENCY_TTL_SECONDS", "")
	t.Setenv("GATEWAY_FAILURE_RATE", "1.5")
	_, err = Load()
	assert.ErrorContains(t, err, "GATEWAY_FAILURE_RATE")

	t.Setenv("GATEWAY_FAILURE_RATE", "")
	t.Setenv("SAGA_RETRY_JITTER", "2")
	_, err = Load()
	assert.ErrorContains(t, err, "SAGA_RETRY_JITTER")

	t.Setenv("SAGA_RETRY_JITTER", "")
	t.Setenv("SAGA_RETRY_BASE_DELAY", "5s")
	t.Setenv("SAGA_RETRY_MAX_DELAY", "1s")
	_, err = Load()
	assert.ErrorContains(t, err, "SAGA_RETRY_MAX_DELAY")
}
