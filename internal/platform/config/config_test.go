package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("CONFIRMATION_TTL", "")
	t.Setenv("CONFIRMATION_CAPACITY", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 5*time.Minute, cfg.Confirmation.TTL)
	assert.Equal(t, 1000, cfg.Confirmation.Capacity)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("COMMUNE_ADDR", ":9090")
	t.Setenv("CONFIRMATION_TTL", "10m")
	t.Setenv("CONFIRMATION_CAPACITY", "50")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("RATELIMIT_WINDOW", "30s")
	t.Setenv("RATELIMIT_DISABLED", "true")
	t.Setenv("ADMIN_TOKEN", "s3cret")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 10*time.Minute, cfg.Confirmation.TTL)
	assert.Equal(t, 50, cfg.Confirmation.Capacity)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	assert.True(t, cfg.RateLimit.Disabled)
	assert.Equal(t, "s3cret", cfg.Server.AdminToken)
}

func TestFromEnv_InvalidValuesReportedTogether(t *testing.T) {
	t.Setenv("CONFIRMATION_TTL", "soon")
	t.Setenv("CONFIRMATION_CAPACITY", "-1")
	t.Setenv("SMTP_PORT", "smtp")
	t.Setenv("RATELIMIT_DISABLED", "sometimes")
	t.Setenv("RATELIMIT_WINDOW", "0s")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CONFIRMATION_TTL")
	assert.Contains(t, err.Error(), "CONFIRMATION_CAPACITY must be positive")
	assert.Contains(t, err.Error(), "SMTP_PORT")
	assert.Contains(t, err.Error(), "RATELIMIT_DISABLED")
	assert.Contains(t, err.Error(), "RATELIMIT_WINDOW must be positive")
}
