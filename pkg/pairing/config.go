package pairing

import (
	"errors"
	"log/slog"
	"time"
)

// Pairing errors. The terminal ones are delivered in EventFailed.
var (
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrRunning            = errors.New("pairing already running")
	ErrNoMoreNewAddresses = errors.New("no more new addresses")
	ErrNoNewDevices       = errors.New("no new devices")
	ErrLoginFailed        = errors.New("failed to login node")
	ErrUnsupportedDevice  = errors.New("unsupported device")
	ErrFactoryTarget      = errors.New("target network is the factory network")
)

// Config holds the phase timeouts.
type Config struct {
	// ConnectTimeout bounds scanning, connecting and login.
	ConnectTimeout time.Duration

	// DeviceTypeTimeout bounds the MAC and device type query of Single.
	DeviceTypeTimeout time.Duration

	// AddressChangeTimeout is the wait after an address change with MAC.
	// Mesh adds one pacing interval per pending node.
	AddressChangeTimeout time.Duration

	// AddressSetTimeout bounds the address change of Auto.
	AddressSetTimeout time.Duration

	// NetworkSetTimeout is the wait after provisioning.
	NetworkSetTimeout time.Duration

	// ScanWindow is how long Mesh listens for reports after the last one.
	ScanWindow time.Duration

	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger
}

// DefaultConfig returns the timings nodes are known to work with.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout:       8 * time.Second,
		DeviceTypeTimeout:    4 * time.Second,
		AddressChangeTimeout: 8 * time.Second,
		AddressSetTimeout:    4 * time.Second,
		NetworkSetTimeout:    4 * time.Second,
		ScanWindow:           2 * time.Second,
	}
}

// Validate checks if the config is valid.
func (c *Config) Validate() error {
	for _, d := range []time.Duration{
		c.ConnectTimeout,
		c.DeviceTypeTimeout,
		c.AddressChangeTimeout,
		c.AddressSetTimeout,
		c.NetworkSetTimeout,
		c.ScanWindow,
	} {
		if d <= 0 {
			return ErrInvalidConfig
		}
	}
	return nil
}
