package adminauth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.SigningSecret = "0123456789abcdef0123456789abcdef"
	return cfg
}

func TestDefaultConfigValidatesWithSecret(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing secret", func(c *Config) { c.SigningSecret = "" }},
		{"short secret", func(c *Config) { c.SigningSecret = "short" }},
		{"zero access ttl", func(c *Config) { c.AccessTTL = 0 }},
		{"refresh not longer than access", func(c *Config) { c.RefreshTTL = c.AccessTTL }},
		{"zero max attempts", func(c *Config) { c.Login.MaxAttempts = 0 }},
		{"zero window", func(c *Config) { c.Login.Window = 0 }},
		{"score out of range", func(c *Config) { c.Captcha.MinScore = 1.5 }},
		{"unknown backend", func(c *Config) { c.Store.Backend = "etcd" }},
		{"redis without addr", func(c *Config) { c.Store.Backend = "redis"; c.Store.RedisAddr = "" }},
		{"empty cookie name", func(c *Config) { c.Cookies.AccessName = "" }},
		{"colliding cookie names", func(c *Config) { c.Cookies.RefreshName = c.Cookies.AccessName }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestProductionFlag(t *testing.T) {
	cfg := validConfig()
	assert.False(t, cfg.Production())

	cfg.Env = "production"
	assert.True(t, cfg.Production())
	cfg.Env = "prod"
	assert.True(t, cfg.Production())
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, time.Hour, cfg.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, 5, cfg.Login.MaxAttempts)
	assert.Equal(t, 15*time.Minute, cfg.Login.Window)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, "admin_access_token", cfg.Cookies.AccessName)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "adminauth.yaml")
	body := []byte(`
env: production
signing_secret: 0123456789abcdef0123456789abcdef
access_ttl: 30m
login:
  max_attempts: 3
  window: 5m
store:
  backend: redis
  redis_addr: redis:6379
`)
	require.NoError(t, os.WriteFile(path, body, 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, 30*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 3, cfg.Login.MaxAttempts)
	assert.Equal(t, 5*time.Minute, cfg.Login.Window)
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, "redis:6379", cfg.Store.RedisAddr)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("ADMINAUTH_LOGIN_MAX_ATTEMPTS", "9")
	t.Setenv("ADMINAUTH_SIGNING_SECRET", "0123456789abcdef0123456789abcdef")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.Login.MaxAttempts)
	require.NoError(t, cfg.Validate())
}
