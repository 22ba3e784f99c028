// Package shell provides the interactive command line of meshctl.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"

	"github.com/telinkmesh/telinkmesh-go/pkg/address"
	"github.com/telinkmesh/telinkmesh-go/pkg/entertainment"
	"github.com/telinkmesh/telinkmesh-go/pkg/mesh"
	"github.com/telinkmesh/telinkmesh-go/pkg/ota"
	"github.com/telinkmesh/telinkmesh-go/pkg/pairing"
	"github.com/telinkmesh/telinkmesh-go/pkg/session"
	"github.com/telinkmesh/telinkmesh-go/pkg/wire"
)

// Options wires the shell to a session.
type Options struct {
	Session *session.Session
	Ledger  address.Ledger
	Network mesh.Network

	Pairing pairing.Config
	OTA     ota.Config
	OTADir  string

	// Effects are the named entertainment loops for the play command.
	Effects map[string][]entertainment.Action

	Logger *slog.Logger
}

// stopper is a running pairing orchestrator.
type stopper interface {
	Stop()
	State() pairing.State
	PhaseRemaining() (time.Duration, bool)
}

// Shell runs meshctl commands.
type Shell struct {
	opts   Options
	rl     *readline.Instance
	out    io.Writer
	player *entertainment.Player

	mu       sync.Mutex
	nodes    map[string]mesh.Node
	active   stopper
	single   *pairing.Single
	transfer *ota.Transfer
}

// New creates a shell reading from the terminal.
func New(opts Options) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "mesh> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	s := newShell(opts, rl.Stdout())
	s.rl = rl
	return s, nil
}

func newShell(opts Options, out io.Writer) *Shell {
	s := &Shell{
		opts:   opts,
		out:    out,
		player: entertainment.NewPlayer(opts.Session, opts.Logger),
		nodes:  make(map[string]mesh.Node),
	}
	opts.Session.OnEvent(s.handleSessionEvent)
	return s
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (s *Shell) Stdout() io.Writer {
	return s.out
}

// Run starts the interactive command loop.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}
		if !s.Exec(ctx, line) {
			cancel()
			return
		}
	}
}

// Close stops whatever the shell started.
func (s *Shell) Close() {
	s.player.Stop()
	s.mu.Lock()
	active, transfer := s.active, s.transfer
	s.active = nil
	s.mu.Unlock()
	if active != nil {
		active.Stop()
	}
	if transfer != nil {
		transfer.Stop()
	}
}

// Exec runs one command line. It returns false when the shell should exit.
func (s *Shell) Exec(ctx context.Context, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return true
	}
	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	var err error
	switch cmd {
	case "help", "?":
		s.printHelp()
	case "scan":
		err = s.cmdScan(args)
	case "stop":
		err = s.cmdStop()
	case "nodes", "ls":
		s.cmdNodes()
	case "connect":
		err = s.cmdConnect(args)
	case "login":
		err = s.opts.Session.Scan(s.opts.Network, true, false)
	case "disconnect":
		err = s.opts.Session.Disconnect()
	case "devices":
		err = s.opts.Session.ScanMeshDevices()
	case "firmware":
		err = s.opts.Session.ReadFirmware()
	case "on", "off":
		err = s.cmdOnOff(cmd == "on", args)
	case "bright", "brightness":
		err = s.cmdValue(args, wire.SetBrightness, true)
	case "white":
		err = s.cmdValue(args, wire.SetWhite, false)
	case "cct":
		err = s.cmdValue(args, wire.SetColorTemperature, false)
	case "rgb":
		err = s.cmdRGB(args)
	case "reset":
		err = s.cmdReset(args)
	case "pair":
		err = s.cmdPair(ctx, args)
	case "ota":
		err = s.cmdOTA(args)
	case "play":
		err = s.cmdPlay(args)
	case "free":
		err = s.cmdFree(ctx)
	case "status":
		s.cmdStatus()
	case "quit", "exit", "q":
		fmt.Fprintln(s.out, "Exiting...")
		return false
	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
	}
	return true
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
Mesh Commands:
  Discovery & Connection:
    scan [factory]                    - Scan the network (or the factory network)
    stop                              - Stop scanning, pairing, OTA and effects
    nodes                             - List discovered nodes
    connect <mac|address>             - Connect and log in to a discovered node
    login                             - Log in to the nearest node of the network
    disconnect                        - Drop the link

  Control:
    on|off <address>                  - Switch a node or group (0xFFFF for all)
    bright <address> <0-100>          - Set brightness
    white <address> <0-255>           - Set white channel
    cct <address> <0-100>             - Set color temperature
    rgb <address> <RRGGBB>            - Set color
    devices                           - Ask connected mesh for device status
    firmware                          - Read firmware of the connected node
    reset <address>                   - Return a node to the factory network

  Pairing:
    pair auto                         - Pair factory nodes one after another
    pair mesh                         - Pair all factory nodes in one batch
    pair single [mac]                 - Scan factory nodes, then pair one
    free                              - Show addresses still free in the network

  Firmware & Effects:
    ota <address> [file]              - Update a node (newest image by default)
    play <effect>                     - Loop a configured effect

  General:
    status                            - Show session status
    help                              - Show this help
    quit                              - Exit`)
}

func (s *Shell) handleSessionEvent(e session.Event) {
	switch e.Type {
	case session.EventNodeDiscovered:
		s.mu.Lock()
		_, known := s.nodes[e.Node.MACString()]
		s.nodes[e.Node.MACString()] = e.Node
		s.mu.Unlock()
		if !known {
			fmt.Fprintf(s.out, "[EVENT] Node discovered: %s\n", e.Node)
		}
	case session.EventLoginSucceeded:
		fmt.Fprintf(s.out, "[EVENT] Logged in: %s\n", e.Node)
	case session.EventLoginFailed, session.EventConnectFailed:
		fmt.Fprintf(s.out, "[EVENT] %s: %v\n", e.Type, e.Err)
	case session.EventDisconnected:
		fmt.Fprintf(s.out, "[EVENT] Disconnected from %s\n", e.Node.MACString())
	case session.EventDevicesUpdated:
		if r, ok := e.Notification.(wire.DeviceStatusReport); ok {
			for _, d := range r.Devices {
				fmt.Fprintf(s.out, "[NOTIFY] Device %d: %s brightness %d\n", d.Address, d.State, d.Brightness)
			}
		}
	case session.EventFirmwareRead:
		fmt.Fprintf(s.out, "[EVENT] Firmware: %s\n", e.Firmware)
	case session.EventNetworkSet:
		if e.Err != nil {
			fmt.Fprintf(s.out, "[EVENT] Network not set: %v\n", e.Err)
		} else {
			fmt.Fprintf(s.out, "[EVENT] Network set: %s\n", e.Network)
		}
	}
}

func (s *Shell) handlePairingEvent(e pairing.Event) {
	switch e.Type {
	case pairing.EventDiscovered:
		fmt.Fprintf(s.out, "[PAIR] Factory node: %s\n", e.Node)
	case pairing.EventProgress:
		fmt.Fprintf(s.out, "[PAIR] %.0f%%\n", e.Progress*100)
	case pairing.EventAdded:
		fmt.Fprintf(s.out, "[PAIR] Added address %d\n", e.Address)
	case pairing.EventUnsupported:
		fmt.Fprintf(s.out, "[PAIR] Unsupported device at %d: %s\n", e.Address, e.DeviceType)
	case pairing.EventFinished:
		fmt.Fprintln(s.out, "[PAIR] Finished")
	case pairing.EventFailed:
		fmt.Fprintf(s.out, "[PAIR] Failed: %v\n", e.Err)
	}
}

func (s *Shell) handleOTAEvent(e ota.Event) {
	switch e.Type {
	case ota.EventProgress:
		fmt.Fprintf(s.out, "[OTA] %.0f%%\n", e.Progress*100)
	case ota.EventCompleted:
		fmt.Fprintln(s.out, "[OTA] Completed")
	case ota.EventFailed:
		fmt.Fprintf(s.out, "[OTA] Failed: %v\n", e.Err)
	}
}

func (s *Shell) cmdScan(args []string) error {
	network := s.opts.Network
	if len(args) > 0 && strings.EqualFold(args[0], "factory") {
		network = mesh.FactoryNetwork
	}
	s.mu.Lock()
	s.nodes = make(map[string]mesh.Node)
	s.mu.Unlock()
	fmt.Fprintf(s.out, "Scanning %s...\n", network)
	return s.opts.Session.Scan(network, false, false)
}

func (s *Shell) cmdStop() error {
	s.Close()
	return s.opts.Session.StopScan()
}

func (s *Shell) sortedNodes() []mesh.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	nodes := make([]mesh.Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].RSSI > nodes[j].RSSI })
	return nodes
}

func (s *Shell) cmdNodes() {
	nodes := s.sortedNodes()
	if len(nodes) == 0 {
		fmt.Fprintln(s.out, "No nodes discovered")
		return
	}
	fmt.Fprintf(s.out, "\nDiscovered Nodes (%d):\n", len(nodes))
	fmt.Fprintln(s.out, "-------------------------------------------")
	for _, n := range nodes {
		fmt.Fprintf(s.out, "  %s  addr %-3d %-12s %s rssi %d\n",
			n.MACString(), n.ShortAddress, n.DeviceType.Category(), n.Name, n.RSSI)
	}
}

// findNode resolves a MAC or short address among discovered nodes.
func (s *Shell) findNode(arg string) (mesh.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.nodes[strings.ToUpper(arg)]; ok {
		return n, nil
	}
	if addr, err := parseAddress(arg); err == nil {
		for _, n := range s.nodes {
			if n.ShortAddress == addr {
				return n, nil
			}
		}
	}
	return mesh.Node{}, fmt.Errorf("node not found: %s (use 'nodes')", arg)
}

func (s *Shell) cmdConnect(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: connect <mac|address>")
	}
	n, err := s.findNode(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Connecting to %s...\n", n.MACString())
	return s.opts.Session.Connect(n)
}

// parseAddress accepts decimal or 0x-prefixed hex.
func parseAddress(arg string) (uint16, error) {
	v, err := strconv.ParseUint(arg, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", arg)
	}
	return uint16(v), nil
}

func (s *Shell) cmdOnOff(on bool, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: on|off <address>")
	}
	addr, err := parseAddress(args[0])
	if err != nil {
		return err
	}
	return s.opts.Session.Send(wire.TurnOnOff(addr, on, 0))
}

// cmdValue sends a single value command. Sliders go through the sample
// queue so a burst keeps only the latest value.
func (s *Shell) cmdValue(args []string, build func(uint16, int) wire.Command, percent bool) error {
	if len(args) < 2 {
		return errors.New("usage: <command> <address> <value>")
	}
	addr, err := parseAddress(args[0])
	if err != nil {
		return err
	}
	v, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid value %q", args[1])
	}
	hi := 255
	if percent {
		hi = 100
	}
	if v < 0 || v > hi {
		return fmt.Errorf("value %d out of range [0, %d]", v, hi)
	}
	return s.opts.Session.SendSample(build(addr, v))
}

func (s *Shell) cmdRGB(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: rgb <address> <RRGGBB>")
	}
	addr, err := parseAddress(args[0])
	if err != nil {
		return err
	}
	rgb, err := strconv.ParseUint(strings.TrimPrefix(args[1], "#"), 16, 24)
	if err != nil {
		return fmt.Errorf("invalid color %q", args[1])
	}
	return s.opts.Session.SendSample(wire.SetRGB(addr, int(rgb>>16)&0xFF, int(rgb>>8)&0xFF, int(rgb)&0xFF))
}

func (s *Shell) cmdReset(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: reset <address>")
	}
	addr, err := parseAddress(args[0])
	if err != nil {
		return err
	}
	return s.opts.Session.Send(wire.ResetNetwork(addr))
}

// setActive stops the running orchestrator and records the new one. A
// pairing run also stops a running OTA transfer, both need the session.
func (s *Shell) setActive(next stopper) {
	s.mu.Lock()
	prev, tr := s.active, s.transfer
	s.active = next
	s.mu.Unlock()
	if prev != nil {
		prev.Stop()
	}
	if next != nil && tr != nil {
		tr.Stop()
	}
}

func (s *Shell) cmdPair(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: pair auto|mesh|single [mac]")
	}
	sess, led, cfg := s.opts.Session, s.opts.Ledger, s.opts.Pairing

	switch strings.ToLower(args[0]) {
	case "auto":
		p, err := pairing.NewAuto(sess, led, cfg, s.handlePairingEvent)
		if err != nil {
			return err
		}
		s.setActive(p)
		return p.Start(ctx, s.opts.Network)

	case "mesh":
		p, err := pairing.NewMesh(sess, led, cfg, s.handlePairingEvent)
		if err != nil {
			return err
		}
		s.setActive(p)
		return p.Start(ctx, s.opts.Network)

	case "single":
		s.mu.Lock()
		p := s.single
		s.mu.Unlock()
		if len(args) < 2 {
			p, err := pairing.NewSingle(sess, led, cfg, s.handlePairingEvent)
			if err != nil {
				return err
			}
			s.setActive(p)
			s.mu.Lock()
			s.single = p
			s.nodes = make(map[string]mesh.Node)
			s.mu.Unlock()
			fmt.Fprintln(s.out, "Scanning factory nodes, then run 'pair single <mac>'")
			return p.StartScanning()
		}
		if p == nil {
			return errors.New("run 'pair single' first")
		}
		n, err := s.findNode(args[1])
		if err != nil {
			return err
		}
		return p.Start(ctx, s.opts.Network, n)
	}
	return fmt.Errorf("unknown pairing mode %q", args[0])
}

func (s *Shell) cmdOTA(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: ota <address> [file]")
	}
	addr, err := parseAddress(args[0])
	if err != nil {
		return err
	}

	var file ota.File
	if len(args) > 1 {
		if file, err = ota.ParseFile(args[1]); err != nil {
			return err
		}
	} else {
		n, err := s.findNode(args[0])
		if err != nil {
			return err
		}
		if s.opts.OTADir == "" {
			return errors.New("no firmware directory configured")
		}
		f, ok, err := ota.LatestFile(s.opts.OTADir, n.DeviceType)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no firmware for %s in %s", n.DeviceType, s.opts.OTADir)
		}
		file = f
	}

	s.mu.Lock()
	tr := s.transfer
	s.mu.Unlock()
	if tr == nil {
		tr, err = ota.NewTransfer(s.opts.Session, s.opts.OTA, s.handleOTAEvent)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.transfer = tr
		s.mu.Unlock()
	}
	s.setActive(nil)

	id, err := tr.Start(addr, s.opts.Network, file)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "OTA %s: %s to %d\n", id[:8], file.Name, addr)
	return nil
}

func (s *Shell) cmdPlay(args []string) error {
	if len(args) < 1 {
		names := make([]string, 0, len(s.opts.Effects))
		for name := range s.opts.Effects {
			names = append(names, name)
		}
		sort.Strings(names)
		return fmt.Errorf("usage: play <effect> (configured: %s)", strings.Join(names, ", "))
	}
	actions, ok := s.opts.Effects[args[0]]
	if !ok {
		return fmt.Errorf("unknown effect %q", args[0])
	}
	return s.player.Start(actions, 0)
}

func (s *Shell) cmdFree(ctx context.Context) error {
	free, err := s.opts.Ledger.AvailableAddresses(ctx, s.opts.Network)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%d free addresses in %s\n", len(free), s.opts.Network)
	return nil
}

func (s *Shell) cmdStatus() {
	sess := s.opts.Session
	fmt.Fprintf(s.out, "Network:  %s\n", s.opts.Network)
	fmt.Fprintf(s.out, "Session:  %s\n", sess.State())
	if n, ok := sess.Node(); ok {
		fmt.Fprintf(s.out, "Node:     %s\n", n)
	}
	fmt.Fprintf(s.out, "Pacing:   %s\n", sess.PacingInterval())
	if s.player.Running() {
		fmt.Fprintf(s.out, "Effect:   playing, next step %d\n", s.player.Index())
	}
	s.mu.Lock()
	active, tr := s.active, s.transfer
	s.mu.Unlock()
	if active != nil && active.State() != pairing.StateStopped {
		if left, ok := active.PhaseRemaining(); ok {
			fmt.Fprintf(s.out, "Pairing:  %s (%s left)\n", active.State(), left.Round(100*time.Millisecond))
		} else {
			fmt.Fprintf(s.out, "Pairing:  %s\n", active.State())
		}
	}
	if tr != nil && tr.State() != ota.StateStopped {
		fmt.Fprintf(s.out, "OTA:      %s\n", tr.State())
	}
}
