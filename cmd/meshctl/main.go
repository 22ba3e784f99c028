// Command meshctl controls a Telink BLE mesh from the host Bluetooth
// adapter.
//
// Usage:
//
//	meshctl [flags]
//
// Flags:
//
//	-config string       YAML configuration file
//	-network string      Mesh network name
//	-password string     Mesh network password
//	-log-level string    Log level: debug, info, warn, error (default "info")
//	-ledger string       Address ledger: memory, file, sqlite (default "memory")
//	-ledger-path string  Ledger file or database path
//	-capture string      Write a protocol capture (.mlog) to this file
//	-ota-dir string      Directory of firmware images
//	-interactive         Enable interactive command mode (default true)
//	-simulate int        Run against that many simulated factory lights
//
// Examples:
//
//	# Control the home network, remembering used addresses
//	meshctl -network home -password secret -ledger sqlite -ledger-path ~/.meshctl/ledger.db
//
//	# Try the commands without hardware
//	meshctl -network home -password secret -simulate 3
//
//	# Keep the link up and log what the mesh reports
//	meshctl -config meshctl.yaml -interactive=false
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/telinkmesh/telinkmesh-go/cmd/meshctl/shell"
	"github.com/telinkmesh/telinkmesh-go/internal/meshsim"
	"github.com/telinkmesh/telinkmesh-go/pkg/log"
	"github.com/telinkmesh/telinkmesh-go/pkg/mesh"
	"github.com/telinkmesh/telinkmesh-go/pkg/session"
	"github.com/telinkmesh/telinkmesh-go/pkg/transport"
	"github.com/telinkmesh/telinkmesh-go/pkg/transport/ble"
)

// Flags holds the command line. Set flags override the config file.
type Flags struct {
	ConfigFile  string
	Network     string
	Password    string
	LogLevel    string
	Ledger      string
	LedgerPath  string
	Capture     string
	OTADir      string
	Interactive bool
	Simulate    int
}

var flags Flags

func init() {
	flag.StringVar(&flags.ConfigFile, "config", "", "YAML configuration file")
	flag.StringVar(&flags.Network, "network", "", "Mesh network name")
	flag.StringVar(&flags.Password, "password", "", "Mesh network password")
	flag.StringVar(&flags.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.StringVar(&flags.Ledger, "ledger", "", "Address ledger: memory, file, sqlite")
	flag.StringVar(&flags.LedgerPath, "ledger-path", "", "Ledger file or database path")
	flag.StringVar(&flags.Capture, "capture", "", "Write a protocol capture (.mlog) to this file")
	flag.StringVar(&flags.OTADir, "ota-dir", "", "Directory of firmware images")
	flag.BoolVar(&flags.Interactive, "interactive", true, "Enable interactive command mode")
	flag.IntVar(&flags.Simulate, "simulate", 0, "Run against that many simulated factory lights")
}

// apply overrides cfg with the flags that were set.
func (f *Flags) apply(cfg *Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Network.Name, f.Network)
	set(&cfg.Network.Password, f.Password)
	set(&cfg.LogLevel, f.LogLevel)
	set(&cfg.Ledger.Backend, f.Ledger)
	set(&cfg.Ledger.Path, f.LedgerPath)
	set(&cfg.Capture, f.Capture)
	set(&cfg.OTA.Dir, f.OTADir)
}

// switchWriter lets log output move to the readline prompt once the
// shell exists.
type switchWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *switchWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func (s *switchWriter) set(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w = w
}

func main() {
	flag.Parse()

	cfg := DefaultConfig()
	if flags.ConfigFile != "" {
		loaded, err := LoadConfig(flags.ConfigFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	flags.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	out := &switchWriter{w: os.Stderr}
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	if err := run(cfg, logger, out); err != nil {
		logger.Error("meshctl failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg Config, logger *slog.Logger, out *switchWriter) error {
	logger.Info("meshctl starting", "network", cfg.Network.Name, "ledger", cfg.Ledger.Backend)

	led, closeLedger, err := cfg.OpenLedger()
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer func() {
		if err := closeLedger(); err != nil {
			logger.Warn("closing ledger", "error", err)
		}
	}()

	tr, err := openTransport(logger)
	if err != nil {
		return err
	}

	sessCfg := cfg.SessionConfig(logger)
	var protocol []log.Logger
	if cfg.Capture != "" {
		capture, err := log.NewFileLogger(cfg.Capture)
		if err != nil {
			return err
		}
		defer func() {
			if err := capture.Close(); err != nil {
				logger.Warn("closing capture", "error", err)
			}
			if err := capture.Err(); err != nil {
				logger.Warn("capture stopped early", "path", cfg.Capture, "error", err)
			}
			logger.Info("capture closed", "path", cfg.Capture, "events", capture.Written())
		}()
		protocol = append(protocol, capture)
		logger.Info("capturing protocol", "path", cfg.Capture)
	}
	if cfg.SlogLevel() == slog.LevelDebug {
		protocol = append(protocol, log.NewSlogAdapter(logger))
	}
	sessCfg.ProtocolLogger = log.Tee(protocol...)

	sess, err := session.New(tr, sessCfg)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	defer sess.Close()

	effects, err := cfg.EffectActions()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if flags.Interactive {
		sh, err := shell.New(shell.Options{
			Session: sess,
			Ledger:  led,
			Network: cfg.MeshNetwork(),
			Pairing: cfg.PairingConfig(logger),
			OTA:     cfg.OTAConfig(logger),
			OTADir:  cfg.OTA.Dir,
			Effects: effects,
			Logger:  logger,
		})
		if err != nil {
			return err
		}
		defer sh.Close()
		out.set(sh.Stdout())
		go sh.Run(ctx, cancel)
	} else {
		sess.OnEvent(func(e session.Event) {
			logger.Info("event", "type", e.Type, "node", e.Node.MACString(), "error", e.Err)
		})
		if err := sess.Scan(cfg.MeshNetwork(), true, false); err != nil {
			return err
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal", "signal", sig)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	return nil
}

// openTransport returns the host adapter, or a simulated mesh with
// -simulate.
func openTransport(logger *slog.Logger) (transport.Transport, error) {
	if flags.Simulate <= 0 {
		adapter, err := ble.New(logger)
		if err != nil {
			return nil, fmt.Errorf("bluetooth: %w", err)
		}
		return adapter, nil
	}

	sim := meshsim.New()
	for i := 0; i < flags.Simulate && i < 250; i++ {
		sim.Add(meshsim.NodeConfig{
			MAC:     [6]byte{0xA4, 0xC1, 0x38, 0x00, byte(i >> 8), byte(i + 1)},
			Address: 1,
			RSSI:    -40 - i,
		})
	}
	logger.Info("simulating factory lights", "count", flags.Simulate, "network", mesh.FactoryNetwork.Name)
	return sim, nil
}
