package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "seqkit", cfg.Seqkit.Path)
	assert.Equal(t, 30*time.Second, cfg.Seqkit.StatsTimeout)
	assert.Equal(t, 60*time.Second, cfg.Seqkit.CommandTimeout)
	assert.Equal(t, int64(50<<20), cfg.Limits.MaxContentBytes)
	assert.False(t, cfg.Limits.EnforceMaxContent)
	assert.Equal(t, 1000, cfg.Audit.MaxRecords)
	assert.True(t, cfg.Security.AllowUnauthenticated)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"server port 0", func(c *Config) { c.Server.Port = 0 }, true},
		{"server port 99999", func(c *Config) { c.Server.Port = 99999 }, true},
		{"unknown backend", func(c *Config) { c.Seqkit.Backend = "containerd" }, true},
		{"docker backend", func(c *Config) { c.Seqkit.Backend = "docker" }, false},
		{"empty seqkit path", func(c *Config) { c.Seqkit.Path = "" }, true},
		{"zero stats timeout", func(c *Config) { c.Seqkit.StatsTimeout = 0 }, true},
		{"max_concurrent 0", func(c *Config) { c.Seqkit.MaxConcurrent = 0 }, true},
		{"memory_mb < 16", func(c *Config) { c.Seqkit.Limits.MemoryMB = 8 }, true},
		{"audit max_records 0", func(c *Config) { c.Audit.MaxRecords = 0 }, true},
		{"negative rate limit", func(c *Config) { c.Security.RateLimitRPS = -1 }, true},
		{"TLS enabled without cert", func(c *Config) {
			c.TLS.Enabled = true
		}, true},
		{"TLS enabled with cert+key", func(c *Config) {
			c.TLS.Enabled = true
			c.TLS.CertFile = "/etc/ssl/cert.pem"
			c.TLS.KeyFile = "/etc/ssl/key.pem"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
server:
  port: 9090
seqkit:
  path: /opt/bin/seqkit
  command_timeout: 90s
limits:
  enforce_max_content: true
audit:
  max_records: 50
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/opt/bin/seqkit", cfg.Seqkit.Path)
	assert.Equal(t, 90*time.Second, cfg.Seqkit.CommandTimeout)
	assert.Equal(t, 30*time.Second, cfg.Seqkit.StatsTimeout, "unset fields keep defaults")
	assert.True(t, cfg.Limits.EnforceMaxContent)
	assert.Equal(t, 50, cfg.Audit.MaxRecords)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("server:\n  port: 0\n"), 0o600))
	_, err = Load(bad)
	assert.ErrorContains(t, err, "server.port")
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PORT":           "9001",
		"SEQKIT_PATH":    "/usr/local/bin/seqkit",
		"DATABASE_DSN":   "postgres://fastx@db/fastx",
		"FASTX_API_KEYS": "a, b,,c",
	}
	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyEnv(func(k string) string { return env[k] }))

	assert.Equal(t, 9001, cfg.Server.Port)
	assert.Equal(t, "/usr/local/bin/seqkit", cfg.Seqkit.Path)
	assert.Equal(t, "postgres://fastx@db/fastx", cfg.Database.DSN)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Security.AllowedKeys)

	err := DefaultConfig().ApplyEnv(func(k string) string {
		if k == "PORT" {
			return "http"
		}
		return ""
	})
	assert.Error(t, err)
}

func TestAddress(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 8123
	assert.Equal(t, "127.0.0.1:8123", cfg.Address())
}
