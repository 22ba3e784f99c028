package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/telinkmesh/telinkmesh-go/pkg/log"
	"github.com/telinkmesh/telinkmesh-go/pkg/mesh"
	"github.com/telinkmesh/telinkmesh-go/pkg/meshcrypto"
	"github.com/telinkmesh/telinkmesh-go/pkg/transport"
	"github.com/telinkmesh/telinkmesh-go/pkg/wire"
)

// Session is the single active connection to a mesh. It is safe for
// concurrent use.
type Session struct {
	transport transport.Transport
	cfg       Config
	crypto    meshcrypto.Primitives
	seq       *wire.Sequence
	logger    *slog.Logger
	capture   *log.Capture
	rescan    *backoff

	mu sync.Mutex

	state  State
	gen    uint64
	closed bool

	network    mesh.Network
	hasNetwork bool
	autoLogin  bool
	ignoreName bool

	node         mesh.Node
	hasNode      bool
	link         transport.Link
	key          meshcrypto.Key
	loggedIn     bool
	cancel       context.CancelFunc
	provisioning bool
	rescanTimer  *time.Timer

	// Outbound queues, drained by sendLoop.
	queue   []wire.Command
	samples map[wire.SampleKey]wire.Command
	order   []wire.SampleKey
	wake    chan struct{}

	// Event queue, drained by dispatchLoop.
	events     []Event
	eventsWake chan struct{}
	sink       Sink
	handlers   []EventHandler

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a Session over t and starts its sender and dispatcher.
func New(t transport.Transport, cfg Config) (*Session, error) {
	if t == nil {
		return nil, ErrInvalidConfig
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Crypto == nil {
		cfg.Crypto = meshcrypto.Telink{}
	}
	if cfg.Sequence == nil {
		cfg.Sequence = wire.DefaultSequence
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Session{
		transport:  t,
		cfg:        cfg,
		crypto:     cfg.Crypto,
		seq:        cfg.Sequence,
		logger:     logger,
		capture:    log.NewCapture(cfg.ProtocolLogger),
		rescan:     newBackoff(cfg.Rescan),
		samples:    make(map[wire.SampleKey]wire.Command),
		wake:       make(chan struct{}, 1),
		eventsWake: make(chan struct{}, 1),
		done:       make(chan struct{}),
	}

	s.wg.Add(2)
	go s.sendLoop()
	go s.dispatchLoop()
	return s, nil
}

// Scan starts discovery of nodes advertising network. Nodes whose name is
// not the network name are skipped unless ignoreName is set. With
// autoLogin the session connects to the first discovered node whose
// category is safe to connect to, and scans again after losing its link.
// Any existing link is dropped.
func (s *Session) Scan(network mesh.Network, autoLogin, ignoreName bool) error {
	if err := network.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	old := s.teardownLocked("scan", true)
	s.network = network
	s.hasNetwork = true
	s.autoLogin = autoLogin
	s.ignoreName = ignoreName
	s.setStateLocked(StateScanning, "scan")
	gen := s.gen
	s.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}

	s.logger.Debug("Session: scanning", "network", network.Name, "autoLogin", autoLogin)
	_ = s.transport.StopScan()
	err := s.transport.StartScan(func(adv transport.Advertisement) {
		s.onAdvertisement(gen, adv)
	})
	if err != nil {
		s.mu.Lock()
		if s.gen == gen && s.state == StateScanning {
			s.setStateLocked(StateIdle, "scan failed")
		}
		s.mu.Unlock()
		return fmt.Errorf("start scan: %w", err)
	}
	return nil
}

// StopScan ends discovery. It does not touch an existing link.
func (s *Session) StopScan() error {
	s.mu.Lock()
	if s.state == StateScanning {
		s.gen++
		s.setStateLocked(StateIdle, "stop scan")
	}
	s.mu.Unlock()
	return s.transport.StopScan()
}

func (s *Session) onAdvertisement(gen uint64, adv transport.Advertisement) {
	node, err := mesh.NodeFromAdvertisement(adv.PeerAddress, adv.Name, adv.RSSI, adv.ManufacturerData)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen || s.state != StateScanning {
		return
	}
	if s.cfg.MinRSSI != 0 && node.RSSI < s.cfg.MinRSSI {
		return
	}
	if !s.ignoreName && node.Name != s.network.Name {
		return
	}

	s.enqueueLocked(Event{Type: EventNodeDiscovered, Node: node})
	if s.autoLogin && node.DeviceType.IsSafeConnection() {
		s.logger.Debug("Session: auto connecting", "node", node)
		s.connectLocked(node)
	}
}

// Connect stops scanning and connects to node, logging in with the network
// of the last Scan.
func (s *Session) Connect(node mesh.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if !s.hasNetwork {
		return ErrNoNetwork
	}
	s.connectLocked(node)
	return nil
}

func (s *Session) connectLocked(node mesh.Node) {
	old := s.teardownLocked("connect", true)
	s.node = node
	s.hasNode = true
	s.setStateLocked(StateConnecting, node.MACString())

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ConnectTimeout)
	s.cancel = cancel
	go s.runConnect(ctx, s.gen, node, s.network, old)
}

// runConnect drives one connection attempt from Connecting to Ready.
func (s *Session) runConnect(ctx context.Context, gen uint64, node mesh.Node, network mesh.Network, old transport.Link) {
	if old != nil {
		_ = old.Close()
	}
	_ = s.transport.StopScan()

	link, err := s.transport.Connect(ctx, node.PeerAddress)
	if err != nil {
		s.fail(gen, EventConnectFailed, phaseError(ctx, "connect", err))
		return
	}
	if !s.attach(gen, link, node, network) {
		_ = link.Close()
		return
	}
	go s.watch(gen, link)

	if err := link.Discover(ctx); err != nil {
		s.fail(gen, EventConnectFailed, phaseError(ctx, "discover", err))
		return
	}
	err = link.Subscribe(transport.RoleNotify, func(data []byte) {
		s.onNotify(gen, data)
	})
	if err != nil {
		s.fail(gen, EventConnectFailed, phaseError(ctx, "subscribe", err))
		return
	}
	if !s.advance(gen, StateAwaitingLogin) {
		return
	}

	key, err := s.login(ctx, link, network)
	if err != nil {
		s.fail(gen, EventLoginFailed, phaseError(ctx, "login", err))
		return
	}
	if !s.ready(gen, key) {
		return
	}
	s.readFirmware(gen, link)
}

// phaseError tags err with the phase it happened in, and marks deadline
// expiry as a login timeout.
func phaseError(ctx context.Context, phase string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %v", phase, ErrLoginTimeout, err)
	}
	return fmt.Errorf("%s: %w", phase, err)
}

func (s *Session) login(ctx context.Context, link transport.Link, network mesh.Network) (meshcrypto.Key, error) {
	h, err := meshcrypto.NewHandshake(s.crypto, network)
	if err != nil {
		return meshcrypto.Key{}, err
	}
	req := h.Request()
	s.capture.Link(log.DirectionOut, transport.RolePairing.String(), req)
	if err := link.Write(ctx, transport.RolePairing, req, true); err != nil {
		return meshcrypto.Key{}, err
	}
	resp, err := link.Read(ctx, transport.RolePairing)
	if err != nil {
		return meshcrypto.Key{}, err
	}
	s.capture.Link(log.DirectionIn, transport.RolePairing.String(), resp)
	return h.Complete(resp)
}

// attach records a freshly connected link.
func (s *Session) attach(gen uint64, link transport.Link, node mesh.Node, network mesh.Network) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen || s.closed {
		return false
	}
	s.link = link
	s.capture.Begin(node, network.Name)
	s.setStateLocked(StateAwaitingServices, "")
	return true
}

func (s *Session) advance(gen uint64, state State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen || s.closed {
		return false
	}
	s.setStateLocked(state, "")
	if state == StateAwaitingLogin {
		s.enqueueLocked(Event{Type: EventConnected, Node: s.node})
	}
	return true
}

func (s *Session) ready(gen uint64, key meshcrypto.Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen || s.closed {
		return false
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.key = key
	s.loggedIn = true
	s.rescan.Reset()
	s.setStateLocked(StateReady, "login")
	s.enqueueLocked(Event{Type: EventLoginSucceeded, Node: s.node})
	s.logger.Info("Session: logged in", "node", s.node, "network", s.network.Name)
	return true
}

// fail ends the attempt of generation gen with an event of type t.
func (s *Session) fail(gen uint64, t EventType, err error) {
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	node := s.node
	s.logger.Warn("Session: "+strings.ToLower(t.String()), "node", node, "error", err)
	s.capture.Error(log.LayerSession, t.String(), err)
	link := s.teardownLocked(t.String(), false)
	s.enqueueLocked(Event{Type: t, Node: node, Err: err})
	s.scheduleRescanLocked()
	s.mu.Unlock()

	if link != nil {
		_ = link.Close()
	}
}

// watch turns a dropped link into a disconnect of its generation.
func (s *Session) watch(gen uint64, link transport.Link) {
	select {
	case <-link.Disconnected():
	case <-s.done:
		return
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.logger.Info("Session: link lost", "node", s.node)
	stale := s.teardownLocked("link lost", true)
	s.scheduleRescanLocked()
	s.mu.Unlock()

	if stale != nil {
		_ = stale.Close()
	}
}

// Disconnect drops the link or stops the scan, and turns auto-login off.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.autoLogin = false
	link := s.teardownLocked("disconnect", true)
	s.mu.Unlock()

	if link != nil {
		_ = link.Close()
	}
	return s.transport.StopScan()
}

// teardownLocked resets all link scoped state and returns the link for the
// caller to close after unlocking. With notify, losing an established link
// queues EventDisconnected.
func (s *Session) teardownLocked(reason string, notify bool) transport.Link {
	s.gen++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.rescanTimer != nil {
		s.rescanTimer.Stop()
		s.rescanTimer = nil
	}

	link := s.link
	wasConnected := s.state.connected()

	s.link = nil
	s.key = meshcrypto.Key{}
	s.loggedIn = false
	s.provisioning = false
	s.queue = nil
	clear(s.samples)
	s.order = nil

	if wasConnected {
		if notify {
			s.enqueueLocked(Event{Type: EventDisconnected, Node: s.node})
		}
		s.capture.End()
	}
	if s.state != StateIdle {
		s.setStateLocked(StateIdle, reason)
	}
	return link
}

func (s *Session) scheduleRescanLocked() {
	if !s.autoLogin || s.closed || !s.hasNetwork {
		return
	}
	gen := s.gen
	delay := s.rescan.Next()
	s.logger.Debug("Session: rescan scheduled", "delay", delay, "attempt", s.rescan.Attempts())
	s.rescanTimer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		if s.gen != gen || s.state != StateIdle || s.closed {
			s.mu.Unlock()
			return
		}
		network, ignoreName := s.network, s.ignoreName
		s.mu.Unlock()

		if err := s.Scan(network, true, ignoreName); err != nil {
			s.logger.Warn("Session: rescan failed", "error", err)
		}
	})
}

func (s *Session) setStateLocked(state State, reason string) {
	old := s.state
	s.state = state
	s.capture.State(log.StateEntitySession, old.String(), state.String(), reason)
	s.logger.Debug("Session: state", "from", old, "to", state, "reason", reason)
}

// Close disconnects and stops the sender and dispatcher. Events queued
// before Close are delivered before it returns, so it must not be called
// from a Sink or event handler.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.autoLogin = false
	link := s.teardownLocked("close", true)
	s.closed = true
	close(s.done)
	s.mu.Unlock()

	if link != nil {
		_ = link.Close()
	}
	_ = s.transport.StopScan()
	s.wg.Wait()
	return nil
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Node returns the node being connected to or connected, if any.
func (s *Session) Node() (mesh.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state < StateConnecting {
		return mesh.Node{}, false
	}
	return s.node, s.hasNode
}

// Network returns the network of the last Scan or SetNetwork.
func (s *Session) Network() mesh.Network {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.network
}

// IsLoggedIn reports whether the session holds a session key.
func (s *Session) IsLoggedIn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loggedIn
}

// PacingInterval returns the post-send delay for the connected node.
func (s *Session) PacingInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pacingLocked()
}

func (s *Session) pacingLocked() time.Duration {
	if s.hasNode && s.node.DeviceType.Category() == mesh.CategoryRFPA {
		return s.cfg.RFPAPacingInterval
	}
	return s.cfg.PacingInterval
}

// Crypto returns the primitives the session encrypts with.
func (s *Session) Crypto() meshcrypto.Primitives {
	return s.crypto
}

// Acquire makes sink the receiver of session events ahead of OnEvent
// handlers, replacing any previous sink.
func (s *Session) Acquire(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = sink
}

// Release clears sink if it is the active sink.
func (s *Session) Release(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sink == sink {
		s.sink = nil
	}
}

// OnEvent registers a handler for every event.
func (s *Session) OnEvent(handler EventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers[:len(s.handlers):len(s.handlers)], handler)
}

func (s *Session) enqueueLocked(e Event) {
	s.events = append(s.events, e)
	select {
	case s.eventsWake <- struct{}{}:
	default:
	}
}

// dispatchLoop delivers queued events in order.
func (s *Session) dispatchLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.eventsWake:
		case <-s.done:
		}
		for {
			s.mu.Lock()
			if len(s.events) == 0 {
				closed := s.closed
				s.mu.Unlock()
				if closed {
					return
				}
				break
			}
			e := s.events[0]
			s.events[0] = Event{}
			s.events = s.events[1:]
			sink, handlers := s.sink, s.handlers
			s.mu.Unlock()

			if sink != nil {
				sink.HandleSessionEvent(e)
			}
			for _, h := range handlers {
				h(e)
			}
		}
	}
}
