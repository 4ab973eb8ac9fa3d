package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := &Config{}
	err := LoadConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, "aidrelay", cfg.App.Name)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 8, cfg.Auth.MinPasswordLength)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, 24*time.Hour, cfg.Auth.ConfirmationExpiry)
	assert.Equal(t, time.Hour, cfg.Auth.PasswordResetExpiry)
	assert.Equal(t, 30*time.Minute, cfg.Session.Expiry)
	assert.False(t, cfg.Revocation.Enabled)
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("AIDRELAY_SERVER_PORT", "9090")
	t.Setenv("AIDRELAY_AUTH_MIN_PASSWORD_LENGTH", "12")
	t.Setenv("AIDRELAY_SESSION_EXPIRY", "15m")
	t.Setenv("AIDRELAY_REVOCATION_ENABLED", "true")

	cfg := &Config{}
	err := LoadConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 12, cfg.Auth.MinPasswordLength)
	assert.Equal(t, 15*time.Minute, cfg.Session.Expiry)
	assert.True(t, cfg.Revocation.Enabled)
}

func TestLoadConfig_SessionExpiryClamped(t *testing.T) {
	t.Run("expiry above the cap is clamped", func(t *testing.T) {
		t.Setenv("AIDRELAY_SESSION_EXPIRY", "2h")

		cfg := &Config{}
		err := LoadConfig(cfg)
		require.NoError(t, err)
		assert.Equal(t, MaxSessionExpiry, cfg.Session.Expiry)
	})

	t.Run("non-positive expiry falls back to the cap", func(t *testing.T) {
		t.Setenv("AIDRELAY_SESSION_EXPIRY", "0s")

		cfg := &Config{}
		err := LoadConfig(cfg)
		require.NoError(t, err)
		assert.Equal(t, MaxSessionExpiry, cfg.Session.Expiry)
	})
}
