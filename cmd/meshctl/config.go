package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/telinkmesh/telinkmesh-go/pkg/address"
	"github.com/telinkmesh/telinkmesh-go/pkg/entertainment"
	"github.com/telinkmesh/telinkmesh-go/pkg/ledger"
	"github.com/telinkmesh/telinkmesh-go/pkg/mesh"
	"github.com/telinkmesh/telinkmesh-go/pkg/ota"
	"github.com/telinkmesh/telinkmesh-go/pkg/pairing"
	"github.com/telinkmesh/telinkmesh-go/pkg/session"
)

// Ledger backends.
const (
	LedgerMemory = "memory"
	LedgerFile   = "file"
	LedgerSQLite = "sqlite"
)

// Config is the meshctl configuration file. Zero values keep the library
// defaults.
type Config struct {
	Network  NetworkConfig             `yaml:"network"`
	Ledger   LedgerConfig              `yaml:"ledger"`
	Session  SessionConfig             `yaml:"session"`
	Pairing  PairingConfig             `yaml:"pairing"`
	OTA      OTAConfig                 `yaml:"ota"`
	LogLevel string                    `yaml:"log_level"`
	Capture  string                    `yaml:"capture"`
	Effects  map[string][]ActionConfig `yaml:"effects"`
}

// NetworkConfig names the mesh network to control.
type NetworkConfig struct {
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
}

// LedgerConfig selects where used addresses are recorded.
type LedgerConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// SessionConfig overrides session timings.
type SessionConfig struct {
	PacingInterval time.Duration `yaml:"pacing_interval"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	MinRSSI        int           `yaml:"min_rssi"`
}

// PairingConfig overrides pairing timeouts.
type PairingConfig struct {
	ConnectTimeout       time.Duration `yaml:"connect_timeout"`
	AddressChangeTimeout time.Duration `yaml:"address_change_timeout"`
	ScanWindow           time.Duration `yaml:"scan_window"`
}

// OTAConfig locates firmware images.
type OTAConfig struct {
	Dir         string        `yaml:"dir"`
	SettleDelay time.Duration `yaml:"settle_delay"`
}

// ActionConfig is one step of a named effect.
type ActionConfig struct {
	Target           uint16         `yaml:"target"`
	Delay            *time.Duration `yaml:"delay"`
	On               *bool          `yaml:"on"`
	Brightness       *int           `yaml:"brightness"`
	White            *int           `yaml:"white"`
	ColorTemperature *int           `yaml:"color_temperature"`
	RGB              *int           `yaml:"rgb"`
}

// DefaultConfig returns the configuration used without a file.
func DefaultConfig() Config {
	return Config{
		Ledger:   LedgerConfig{Backend: LedgerMemory},
		LogLevel: "info",
	}
}

// LoadConfig reads a YAML configuration file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the network and the ledger backend.
func (c *Config) Validate() error {
	if err := c.MeshNetwork().Validate(); err != nil {
		return err
	}
	if c.MeshNetwork().IsFactory() {
		return errors.New("network: the factory network cannot be managed")
	}
	switch c.Ledger.Backend {
	case LedgerMemory:
	case LedgerFile, LedgerSQLite:
		if c.Ledger.Path == "" {
			return fmt.Errorf("ledger: %s backend needs a path", c.Ledger.Backend)
		}
	default:
		return fmt.Errorf("ledger: unknown backend %q (use memory, file or sqlite)", c.Ledger.Backend)
	}
	if _, err := c.EffectActions(); err != nil {
		return err
	}
	return nil
}

// MeshNetwork returns the configured network.
func (c *Config) MeshNetwork() mesh.Network {
	return mesh.Network{Name: c.Network.Name, Password: c.Network.Password}
}

// SlogLevel maps LogLevel to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SessionConfig applies the overrides to the session defaults.
func (c *Config) SessionConfig(logger *slog.Logger) session.Config {
	cfg := session.DefaultConfig()
	if c.Session.PacingInterval > 0 {
		cfg.PacingInterval = c.Session.PacingInterval
	}
	if c.Session.ConnectTimeout > 0 {
		cfg.ConnectTimeout = c.Session.ConnectTimeout
	}
	if c.Session.MinRSSI < 0 {
		cfg.MinRSSI = c.Session.MinRSSI
	}
	cfg.Logger = logger
	return cfg
}

// PairingConfig applies the overrides to the pairing defaults.
func (c *Config) PairingConfig(logger *slog.Logger) pairing.Config {
	cfg := pairing.DefaultConfig()
	if c.Pairing.ConnectTimeout > 0 {
		cfg.ConnectTimeout = c.Pairing.ConnectTimeout
	}
	if c.Pairing.AddressChangeTimeout > 0 {
		cfg.AddressChangeTimeout = c.Pairing.AddressChangeTimeout
	}
	if c.Pairing.ScanWindow > 0 {
		cfg.ScanWindow = c.Pairing.ScanWindow
	}
	cfg.Logger = logger
	return cfg
}

// OTAConfig applies the overrides to the transfer defaults.
func (c *Config) OTAConfig(logger *slog.Logger) ota.Config {
	cfg := ota.DefaultConfig()
	if c.OTA.SettleDelay > 0 {
		cfg.SettleDelay = c.OTA.SettleDelay
	}
	cfg.Logger = logger
	return cfg
}

// EffectActions converts the configured effects.
func (c *Config) EffectActions() (map[string][]entertainment.Action, error) {
	out := make(map[string][]entertainment.Action, len(c.Effects))
	for name, steps := range c.Effects {
		actions := make([]entertainment.Action, 0, len(steps))
		for i, s := range steps {
			a := entertainment.NewAction(s.Target)
			if s.Delay != nil {
				a.Delay = *s.Delay
			}
			a.On = s.On
			a.Brightness = s.Brightness
			a.White = s.White
			a.ColorTemperature = s.ColorTemperature
			a.RGB = s.RGB
			if err := a.Validate(); err != nil {
				return nil, fmt.Errorf("effect %s step %d: %w", name, i, err)
			}
			actions = append(actions, a)
		}
		out[name] = actions
	}
	return out, nil
}

// OpenLedger opens the configured backend. The returned close function
// releases it.
func (c *Config) OpenLedger() (address.Ledger, func() error, error) {
	noop := func() error { return nil }
	switch c.Ledger.Backend {
	case LedgerFile:
		return ledger.NewFile(c.Ledger.Path), noop, nil
	case LedgerSQLite:
		db, err := ledger.NewSQLite(c.Ledger.Path)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	default:
		return ledger.NewMemory(), noop, nil
	}
}
