package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DB_DSN", "postgres://localhost/test")
	t.Setenv("JWT_SECRET", "jwt-secret")
	t.Setenv("PAYMENT_SIGNING_SECRET", "pay-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.False(t, cfg.IsProduction)
	assert.Equal(t, 15*time.Minute, cfg.HoldDuration)
	assert.Equal(t, time.Duration(0), cfg.DraftRetention)
	assert.Equal(t, 3*time.Second, cfg.DBLockTimeout)
	assert.Equal(t, 3, cfg.DBTxMaxAttempts)
	assert.Equal(t, "INR", cfg.Currency)
	assert.Equal(t, 1000, cfg.CommissionBPS)
	assert.Equal(t, 48*time.Hour, cfg.RefundFullWindow)
	assert.Equal(t, 24*time.Hour, cfg.RefundPartialWindow)
	assert.Equal(t, 50, cfg.RefundPartialPercent)
	assert.Equal(t, "reservation.events", cfg.EventsExchange)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("PROD_ORIGINS", "https://sojourn.example.com")
	t.Setenv("HOLD_DURATION", "5m")
	t.Setenv("CURRENCY", "usd")
	t.Setenv("SWEEP_BATCH_SIZE", "10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction)
	assert.Equal(t, 5*time.Minute, cfg.HoldDuration)
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, 10, cfg.SweepBatchSize)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"malformed duration", "HOLD_DURATION", "soon"},
		{"malformed int", "DB_TX_MAX_ATTEMPTS", "three"},
		{"zero hold", "HOLD_DURATION", "0s"},
		{"percent out of range", "REFUND_PARTIAL_PERCENT", "150"},
		{"windows inverted", "REFUND_FULL_WINDOW", "1h"},
		{"bad currency", "CURRENCY", "RUPEE"},
		{"production without origins", "APP_ENV", "prod"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tt.key, tt.val)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadRequiresSecrets(t *testing.T) {
	for _, key := range []string{"DB_DSN", "JWT_SECRET", "PAYMENT_SIGNING_SECRET"} {
		t.Run(key, func(t *testing.T) {
			setRequired(t)
			t.Setenv(key, "")

			_, err := Load()
			assert.ErrorContains(t, err, key)
		})
	}
}
