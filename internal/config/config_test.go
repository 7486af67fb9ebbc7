package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 30*time.Second, cfg.API.Timeout)
		assert.Equal(t, 3, cfg.Retry.MaxAttempts)
		assert.Equal(t, 5*time.Second, cfg.Retry.Wait)
		assert.Equal(t, "info", cfg.Logging.Level)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("REDCAP_URL", "https://redcap.test/api/")
		t.Setenv("REDCAP_TOKEN", "ABC123")
		t.Setenv("REDCAP_RETRY_ATTEMPTS", "5")
		t.Setenv("REDCAP_RETRY_WAIT", "250ms")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "https://redcap.test/api/", cfg.API.URL)
		assert.Equal(t, "ABC123", cfg.API.Token)
		assert.Equal(t, 5, cfg.Retry.MaxAttempts)
		assert.Equal(t, 250*time.Millisecond, cfg.Retry.Wait)
	})
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.Validate())

	cfg.API.URL = "https://redcap.test/api/"
	assert.Error(t, cfg.Validate())

	cfg.API.Token = "ABC123"
	assert.NoError(t, cfg.Validate())
}
