// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, 10, cfg.Logger.MaxBackups)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, DesktopUserAgent, cfg.Browser.UserAgent)
	assert.Equal(t, int64(256*1024*1024), cfg.Browser.CacheMaxBytes)
	assert.Equal(t, "https://steamcommunity.com/", cfg.Shell.HomeURL)
	assert.Equal(t, 5*time.Second, cfg.Health.ReloadCooldown)
	assert.Equal(t, 150*time.Millisecond, cfg.Health.RecoveryDelay)
	assert.Equal(t, 3, cfg.Health.MaxBlankRetries)
	assert.Contains(t, cfg.Health.FatalConsoleErrors, "ChunkLoadError")
	assert.Equal(t, 120*time.Millisecond, cfg.Downloads.ProgressInterval)
}

func TestConfigValidation(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())

	bad := *cfg
	bad.Health.ReloadCooldown = 0
	err := bad.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "reload_cooldown")

	bad = *cfg
	bad.Health.MaxBlankRetries = 0
	err = bad.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "max_blank_retries")

	bad = *cfg
	bad.Downloads.ProgressInterval = 0
	err = bad.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "progress_interval")

	bad = *cfg
	bad.Browser.UserAgent = ""
	err = bad.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "user_agent")
}

func TestNewConfigFromViper(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")

	yaml := []byte(`
shell:
  home_url: "https://store.steampowered.com/"
  data_dir: "/tmp/multisteam-test"
health:
  reload_cooldown: 7s
  max_blank_retries: 2
browser:
  headless: true
`)
	require.NoError(t, v.ReadConfig(bytes.NewBuffer(yaml)))

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "https://store.steampowered.com/", cfg.Shell.HomeURL)
	assert.Equal(t, 7*time.Second, cfg.Health.ReloadCooldown)
	assert.Equal(t, 2, cfg.Health.MaxBlankRetries)
	assert.True(t, cfg.Browser.Headless)
	// Defaults survive a partial file.
	assert.Equal(t, 150*time.Millisecond, cfg.Health.RecoveryDelay)

	assert.Equal(t, "/tmp/multisteam-test/profiles", cfg.ProfilesDir())
	assert.Equal(t, "/tmp/multisteam-test/logs", cfg.LogsDir())
	assert.Equal(t, "/tmp/multisteam-test/config.json", cfg.StatePath())
}

func TestResolveDataDirDefaultsToHome(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.ResolveDataDir())
	assert.NotEmpty(t, cfg.Shell.DataDir)
	assert.Contains(t, cfg.Shell.DataDir, ".multisteam")
}
