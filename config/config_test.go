package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STEEL_CONFIG_FILE", "")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000", cfg.Steel.APIURL)
	assert.Equal(t, 30000, cfg.Steel.TimeoutMS)
	assert.Equal(t, 30*time.Second, cfg.Steel.Timeout())
	assert.Equal(t, 3, cfg.Steel.Retries)
	assert.Equal(t, EngineSteel, cfg.Steel.Engine)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.False(t, cfg.Auth.Enabled)
	assert.Zero(t, cfg.Cache.TTL)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("STEEL_CONFIG_FILE", "")
	t.Setenv("STEEL_API_URL", "http://steel.internal:3000/")
	t.Setenv("STEEL_TIMEOUT", "45000")
	t.Setenv("STEEL_RETRIES", "0")
	t.Setenv("STEEL_ENGINE", "local")
	t.Setenv("STEEL_API_KEYS", "a, b ,,c")
	t.Setenv("STEEL_AUTH_ENABLED", "true")
	t.Setenv("STEEL_CACHE_TTL", "2m")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "http://steel.internal:3000/", cfg.Steel.APIURL)
	assert.Equal(t, 45*time.Second, cfg.Steel.Timeout())
	assert.Equal(t, 0, cfg.Steel.Retries)
	assert.Equal(t, EngineLocal, cfg.Steel.Engine)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Auth.APIKeys)
	assert.True(t, cfg.Auth.Enabled)
	assert.Equal(t, 2*time.Minute, cfg.Cache.TTL)
}

func TestLoad_IgnoresUnparseableEnv(t *testing.T) {
	t.Setenv("STEEL_CONFIG_FILE", "")
	t.Setenv("STEEL_TIMEOUT", "soon")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 30000, cfg.Steel.TimeoutMS)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
steel:
  api_url: http://from-file:3000
  retries: 5
  health_timeout: 2s
server:
  port: 9090
log:
  format: text
`), 0o600))
	t.Setenv("STEEL_CONFIG_FILE", path)
	t.Setenv("STEEL_RETRIES", "1")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "http://from-file:3000", cfg.Steel.APIURL)
	assert.Equal(t, 1, cfg.Steel.Retries)
	assert.Equal(t, 2*time.Second, cfg.Steel.HealthTimeout)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 30000, cfg.Steel.TimeoutMS)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("STEEL_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	_, err := Load()

	assert.ErrorContains(t, err, "failed to read config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad engine", func(c *Config) { c.Steel.Engine = "rod" }, "steel.engine"},
		{"zero timeout", func(c *Config) { c.Steel.TimeoutMS = 0 }, "steel.timeout_ms"},
		{"negative retries", func(c *Config) { c.Steel.Retries = -1 }, "steel.retries"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"auth without keys", func(c *Config) { c.Auth.Enabled = true }, "api key"},
		{"zero health timeout", func(c *Config) { c.Steel.HealthTimeout = 0 }, "steel.health_timeout"},
		{"negative health timeout", func(c *Config) { c.Steel.HealthTimeout = -time.Second }, "steel.health_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}

	assert.NoError(t, Default().Validate())
}
