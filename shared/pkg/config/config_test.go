package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("PG_DSN", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 3*time.Second, cfg.Postgres.ProbeTimeout)
	assert.Equal(t, 720*time.Hour, cfg.Redis.CartTTL)
	assert.Equal(t, "America/Sao_Paulo", cfg.Storefront.Timezone)
	assert.Equal(t, 10*time.Second, cfg.Fulfillment.NotifyTimeout)
	assert.False(t, cfg.Fulfillment.AllOrNothing)
	assert.False(t, cfg.SMTP.Configured())
	assert.Equal(t, 500*time.Millisecond, cfg.Outbox.PollInterval)
	assert.Equal(t, 10, cfg.Outbox.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Notification.RetryDelay)
	assert.ErrorIs(t, cfg.RequirePostgres(), ErrNoPostgres)
}

func TestJWTSecretHasNoFallback(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.Auth.JWTSecret)
	assert.ErrorIs(t, cfg.RequireJWTSecret(), ErrNoJWTSecret)

	t.Setenv("JWT_SECRET", "s3cret")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.NoError(t, cfg.RequireJWTSecret())
}

func TestLoadLegacyDSN(t *testing.T) {
	t.Setenv("POSTGRES_DSN", "")
	t.Setenv("PG_DSN", "postgres://legacy")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://legacy", cfg.Postgres.DSN)
	assert.NoError(t, cfg.RequirePostgres())

	t.Setenv("POSTGRES_DSN", "postgres://primary")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://primary", cfg.Postgres.DSN)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("FULFILLMENT_ALL_OR_NOTHING", "true")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("SMTP_HOST", "smtp.test")
	t.Setenv("SMTP_USER", "shop@test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Fulfillment.AllOrNothing)
	assert.Equal(t, 30*time.Minute, cfg.Auth.SessionTTL)
	assert.True(t, cfg.SMTP.Configured())
}
