package session

import (
	"errors"
	"log/slog"
	"time"

	"github.com/telinkmesh/telinkmesh-go/pkg/log"
	"github.com/telinkmesh/telinkmesh-go/pkg/mesh"
	"github.com/telinkmesh/telinkmesh-go/pkg/meshcrypto"
	"github.com/telinkmesh/telinkmesh-go/pkg/wire"
)

// Session errors.
var (
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrClosed           = errors.New("session closed")
	ErrNotReady         = errors.New("session not ready")
	ErrNoNetwork        = errors.New("no network selected")
	ErrNetworkRejected  = errors.New("node rejected network")
	ErrLoginTimeout     = errors.New("login timed out")
	ErrProvisionPending = errors.New("network provisioning already running")
)

// Config configures a Session.
type Config struct {
	// Crypto supplies the session cipher. Defaults to meshcrypto.Telink.
	Crypto meshcrypto.Primitives

	// Sequence stamps outbound frames. Defaults to wire.DefaultSequence,
	// shared by every session in the process.
	Sequence *wire.Sequence

	// PacingInterval is the delay after each command write.
	PacingInterval time.Duration

	// RFPAPacingInterval replaces PacingInterval for RF-PA repeaters.
	RFPAPacingInterval time.Duration

	// ConnectTimeout bounds connect, discovery and login together.
	ConnectTimeout time.Duration

	// WriteTimeout bounds a single characteristic write or read.
	WriteTimeout time.Duration

	// NetworkWriteInterval separates the network provisioning writes.
	NetworkWriteInterval time.Duration

	// MinRSSI drops weaker advertisements. Zero accepts all.
	MinRSSI int

	// Rescan configures the delay before an auto-login session scans again
	// after losing its link.
	Rescan BackoffConfig

	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// ProtocolLogger receives a capture of all link traffic. Optional.
	ProtocolLogger log.Logger
}

// DefaultConfig returns a Config with the timings nodes expect.
func DefaultConfig() Config {
	return Config{
		Crypto:               meshcrypto.Telink{},
		Sequence:             wire.DefaultSequence,
		PacingInterval:       mesh.DefaultPacingInterval,
		RFPAPacingInterval:   mesh.RFPAPacingInterval,
		ConnectTimeout:       10 * time.Second,
		WriteTimeout:         2 * time.Second,
		NetworkWriteInterval: 50 * time.Millisecond,
		MinRSSI:              -75,
		Rescan: BackoffConfig{
			Initial:    1 * time.Second,
			Max:        30 * time.Second,
			Multiplier: 2.0,
			Jitter:     0.25,
		},
	}
}

// Validate checks if the config is valid.
func (c *Config) Validate() error {
	if c.PacingInterval <= 0 || c.RFPAPacingInterval <= 0 {
		return ErrInvalidConfig
	}
	if c.ConnectTimeout <= 0 || c.WriteTimeout <= 0 {
		return ErrInvalidConfig
	}
	if c.NetworkWriteInterval < 0 {
		return ErrInvalidConfig
	}
	if c.MinRSSI > 0 {
		return ErrInvalidConfig
	}
	return nil
}
