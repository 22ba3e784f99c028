package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telinkmesh/telinkmesh-go/pkg/mesh"
)

const sampleConfig = `
network:
  name: home
  password: secret
ledger:
  backend: file
  path: ledger.json
session:
  pacing_interval: 150ms
  min_rssi: -80
pairing:
  scan_window: 3s
ota:
  dir: ./firmware
  settle_delay: 2s
log_level: debug
effects:
  party:
    - target: 0xFFFF
      delay: 500ms
      on: true
      rgb: 0xFF0000
    - target: 0xFFFF
      brightness: 20
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meshctl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, mesh.Network{Name: "home", Password: "secret"}, cfg.MeshNetwork())
	assert.Equal(t, LedgerFile, cfg.Ledger.Backend)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())

	sess := cfg.SessionConfig(nil)
	assert.Equal(t, 150*time.Millisecond, sess.PacingInterval)
	assert.Equal(t, -80, sess.MinRSSI)

	pcfg := cfg.PairingConfig(nil)
	assert.Equal(t, 3*time.Second, pcfg.ScanWindow)
	assert.Equal(t, 8*time.Second, pcfg.ConnectTimeout)

	assert.Equal(t, 2*time.Second, cfg.OTAConfig(nil).SettleDelay)

	effects, err := cfg.EffectActions()
	require.NoError(t, err)
	party := effects["party"]
	require.Len(t, party, 2)
	assert.Equal(t, uint16(0xFFFF), party[0].Target)
	assert.Equal(t, 500*time.Millisecond, party[0].Delay)
	require.NotNil(t, party[0].RGB)
	assert.Equal(t, 0xFF0000, *party[0].RGB)
	assert.Equal(t, time.Second, party[1].Delay)
	assert.Nil(t, party[1].On)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadConfig(writeConfig(t, "network: [unclosed"))
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		cfg := DefaultConfig()
		cfg.Network = NetworkConfig{Name: "home", Password: "secret"}
		return cfg
	}

	cfg := valid()
	assert.NoError(t, cfg.Validate())

	tests := []struct {
		name string
		edit func(*Config)
	}{
		{"no network", func(c *Config) { c.Network = NetworkConfig{} }},
		{"factory network", func(c *Config) {
			c.Network = NetworkConfig{Name: mesh.FactoryNetwork.Name, Password: mesh.FactoryNetwork.Password}
		}},
		{"unknown backend", func(c *Config) { c.Ledger.Backend = "redis" }},
		{"sqlite without path", func(c *Config) { c.Ledger.Backend = LedgerSQLite }},
		{"bad effect", func(c *Config) {
			level := 500
			c.Effects = map[string][]ActionConfig{"bad": {{Target: 1, Brightness: &level}}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.edit(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestFlagsOverrideConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	f := Flags{Network: "office", Ledger: LedgerSQLite, LedgerPath: "x.db"}
	f.apply(&cfg)

	assert.Equal(t, "office", cfg.Network.Name)
	assert.Equal(t, "secret", cfg.Network.Password)
	assert.Equal(t, LedgerSQLite, cfg.Ledger.Backend)
	assert.Equal(t, "x.db", cfg.Ledger.Path)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestOpenLedger(t *testing.T) {
	dir := t.TempDir()
	network := mesh.Network{Name: "home", Password: "secret"}

	for _, backend := range []string{LedgerMemory, LedgerFile, LedgerSQLite} {
		t.Run(backend, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Ledger = LedgerConfig{Backend: backend, Path: filepath.Join(dir, backend+".ledger")}

			led, closeFn, err := cfg.OpenLedger()
			require.NoError(t, err)
			defer func() { require.NoError(t, closeFn()) }()

			added, err := led.RecordUsed(context.Background(), network, 1, 2)
			require.NoError(t, err)
			assert.Equal(t, []uint16{1, 2}, added)

			free, err := led.AvailableAddresses(context.Background(), network)
			require.NoError(t, err)
			assert.Len(t, free, 253)
		})
	}
}
