package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, int64(10), cfg.Table.SmallBlind)
	assert.Equal(t, int64(20), cfg.Table.BigBlind)
	assert.Equal(t, 60*time.Second, cfg.Table.TurnTimeout)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte(`
table:
  smallBlind: 25
  bigBlind: 50
  turnTimeout: 30s
ledger:
  kind: file
log:
  level: debug
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(25), cfg.Table.SmallBlind)
	assert.Equal(t, int64(50), cfg.Table.BigBlind)
	assert.Equal(t, 30*time.Second, cfg.Table.TurnTimeout)
	assert.Equal(t, 5*time.Second, cfg.Table.NextHandDelay, "unset keys keep their defaults")
	assert.Equal(t, "file", cfg.Ledger.Kind)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte("table: [1, 2"), 0o600))
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero small blind", func(c *Config) { c.Table.SmallBlind = 0 }},
		{"big below small", func(c *Config) { c.Table.BigBlind = 5 }},
		{"negative buy-in", func(c *Config) { c.Table.BuyIn = -1 }},
		{"one player", func(c *Config) { c.Table.MaxPlayers = 1 }},
		{"negative timeout", func(c *Config) { c.Table.TurnTimeout = -time.Second }},
		{"unknown ledger", func(c *Config) { c.Ledger.Kind = "redis" }},
		{"negative rate", func(c *Config) { c.Gateway.Rate = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestLoadConfigAppliesFlags(t *testing.T) {
	dir := t.TempDir()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	flags := RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{
		"-datadir", dir,
		"-ledger", "file",
		"-bigblind", "100",
		"-buyin", "500",
		"-debuglevel", "trace",
	}))

	cfg, err := LoadConfig(flags, "holdem")
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, int64(50), cfg.Table.SmallBlind)
	assert.Equal(t, int64(100), cfg.Table.BigBlind)
	assert.Equal(t, int64(500), cfg.Table.BuyIn)
	assert.Equal(t, filepath.Join(dir, "data", "points.json"), cfg.Ledger.Path)
	assert.Equal(t, filepath.Join(dir, "logs", "holdem.log"), cfg.Log.File)

	sc := cfg.ServerConfig()
	assert.Equal(t, int64(500), sc.BuyIn)
	assert.Equal(t, 60*time.Second, sc.TurnTimeout)
	assert.Equal(t, "trace", cfg.LogBackendConfig().DebugLevel)
	assert.Equal(t, 2, cfg.GatewayConfig().Burst)
}

func TestLoadConfigInvalid(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	flags := RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"-datadir", t.TempDir(), "-ledger", "redis"}))
	_, err := LoadConfig(flags, "holdem")
	require.Error(t, err)
}
