package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, DefaultTransport, cfg.AssetSource.Transport)
	assert.True(t, cfg.SolutionCache.EnableLogging)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*GatewayConfig)
	}{
		{"negative port", func(c *GatewayConfig) { c.Port = -1 }},
		{"port too large", func(c *GatewayConfig) { c.Port = 70000 }},
		{"bad timeout", func(c *GatewayConfig) { c.Timeout = "soon" }},
		{"empty asset address", func(c *GatewayConfig) { c.AssetSource.Address = "" }},
		{"unknown transport", func(c *GatewayConfig) { c.AssetSource.Transport = "carrier-pigeon" }},
		{"bad dial timeout", func(c *GatewayConfig) { c.AssetSource.DialTimeout = "whenever" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
port: 9090
timeout: 45s
asset_source:
  address: assets.internal:9257
  request_timeout: 1m
logging:
  level: debug
solution_cache:
  enable_logging: true
  materialization_log_level: trace
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "assets.internal:9257", cfg.AssetSource.Address)
	assert.Equal(t, DefaultTransport, cfg.AssetSource.Transport, "transport should default when omitted")
	assert.Equal(t, time.Minute, cfg.AssetSource.RequestTimeoutDuration())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "trace", cfg.SolutionCache.MaterializationLogLevel)
}

func TestLoadConfigDefaultsPort(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("asset_source:\n  address: localhost:9257\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSaveConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := DefaultConfig()
	cfg.Port = 8123
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8123, loaded.Port)
	assert.Equal(t, cfg.AssetSource.Address, loaded.AssetSource.Address)
}

func TestSaveConfigRejectsInvalid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Port = -5
	err := SaveConfig(cfg, filepath.Join(t.TempDir(), "config.yaml"))
	require.Error(t, err)
}
