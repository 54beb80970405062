package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, 6.0, cfg.Billing.FXRate)
	assert.Equal(t, 2.5, cfg.Billing.MarginMultiplier)
	assert.Equal(t, int64(10), cfg.Billing.MinTaskCost)
	assert.Equal(t, 30, cfg.Billing.RenewalDays)
	assert.Equal(t, 2000, cfg.Engine.TickMs)
	assert.Equal(t, 3, cfg.Engine.MaxRetries)
	assert.Equal(t, 5, cfg.Health.BreakerThreshold)
	assert.Equal(t, 40, cfg.Health.DegradedFloor)
	assert.Equal(t, 60, cfg.Margin.IntervalMinutes)
	assert.Equal(t, 900000, cfg.Recovery.CheckoutTimeoutMs)
	assert.Equal(t, 60000, cfg.Recovery.SweepIntervalMs)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ORCH_SERVER_PORT", "9191")
	t.Setenv("ORCH_SERVER_LOG_LEVEL", "debug")
	t.Setenv("ORCH_BILLING_FX_RATE", "5.25")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 5.25, cfg.Billing.FXRate)
}

func TestLoadRejectsInvalidLogLevel(t *testing.T) {
	t.Setenv("ORCH_SERVER_LOG_LEVEL", "verbose")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "validation")
}
