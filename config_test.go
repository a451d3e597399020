package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigManager_WritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hatdriver.toml")
	cm := NewConfigManager(path)

	require.NoError(t, cm.Load())
	assert.Equal(t, DefaultConfig(), cm.Get())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Regexp(t, `board = ['"]hat['"]`, string(data))
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestConfigManager_DefaultPath(t *testing.T) {
	assert.Equal(t, "hatdriver.toml", NewConfigManager("").Path())
}

func TestConfigManager_LoadKeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hatdriver.toml")
	content := `
board = "hat-zero"
backend = "sim"

[loop]
rate_hz = 50.0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cm := NewConfigManager(path)
	require.NoError(t, cm.Load())
	cfg := cm.Get()

	assert.Equal(t, "hat-zero", cfg.Board)
	assert.Equal(t, "sim", cfg.Backend)
	assert.Equal(t, 50.0, cfg.Loop.RateHz)
	assert.Equal(t, PolicyAbort, cfg.OnInitFailure)
	assert.Equal(t, "SPI0.0", cfg.SPI.Bus)
	assert.Equal(t, int64(1_400_000), cfg.SPI.SpeedHz)
}

func TestConfigManager_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hatdriver.toml")
	require.NoError(t, os.WriteFile(path, []byte("board = [unterminated"), 0o600))

	err := NewConfigManager(path).Load()
	assert.ErrorContains(t, err, "invalid hatdriver.toml")
}

func TestConfigManager_UpdatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "hatdriver.toml")
	cm := NewConfigManager(path)
	require.NoError(t, cm.Load())

	require.NoError(t, cm.Update(func(c *Config) error {
		c.Status.Listen = "127.0.0.1:8080"
		return nil
	}))

	again := NewConfigManager(path)
	require.NoError(t, again.Load())
	assert.Equal(t, "127.0.0.1:8080", again.Get().Status.Listen)
}

func TestConfigManager_OverrideDoesNotPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hatdriver.toml")
	cm := NewConfigManager(path)
	require.NoError(t, cm.Load())

	cm.Override(func(c *Config) { c.Board = "hat-zero" })
	assert.Equal(t, "hat-zero", cm.Get().Board)

	again := NewConfigManager(path)
	require.NoError(t, again.Load())
	assert.Equal(t, "hat", again.Get().Board)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"board", func(c *Config) { c.Board = "brick" }, `unknown board "brick"`},
		{"backend", func(c *Config) { c.Backend = "wiringpi" }, `unknown backend "wiringpi"`},
		{"policy", func(c *Config) { c.OnInitFailure = "retry" }, "on_init_failure"},
		{"rate", func(c *Config) { c.Loop.RateHz = -1 }, "loop.rate_hz"},
		{"speed", func(c *Config) { c.SPI.SpeedHz = 0 }, "spi.speed_hz"},
		{"tls", func(c *Config) { c.Status.CertFile = "server.crt" }, "cert_file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestConfigValidate_BackendCaseInsensitive(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = "SIM"
	assert.NoError(t, cfg.Validate())
}

func TestConfigManager_RejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hatdriver.toml")
	require.NoError(t, os.WriteFile(path, []byte("board = 'hat'\non_init_failur = 'continue'\n"), 0o600))

	err := NewConfigManager(path).Load()
	assert.ErrorContains(t, err, "invalid hatdriver.toml")
}
