package pairing

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/telinkmesh/telinkmesh-go/pkg/address"
	"github.com/telinkmesh/telinkmesh-go/pkg/mesh"
	"github.com/telinkmesh/telinkmesh-go/pkg/phase"
	"github.com/telinkmesh/telinkmesh-go/pkg/session"
	"github.com/telinkmesh/telinkmesh-go/pkg/wire"
)

// machine is the phase machinery shared by the orchestrators. All fields
// after mu are guarded by it. Events emitted while the lock is held are
// delivered by unlock.
type machine struct {
	name    string
	sess    Session
	ledger  address.Ledger
	cfg     Config
	logger  *slog.Logger
	handler Handler
	sink    session.Sink

	timer phase.Timer

	mu       sync.Mutex
	state    State
	network  mesh.Network
	acquired bool
	out      []Event
}

func newMachine(name string, sess Session, ledger address.Ledger, cfg Config, handler Handler) (*machine, error) {
	if sess == nil || ledger == nil {
		return nil, ErrInvalidConfig
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &machine{
		name:    name,
		sess:    sess,
		ledger:  ledger,
		cfg:     cfg,
		logger:  logger,
		handler: handler,
	}, nil
}

// unlock releases mu and delivers the events emitted under it.
func (m *machine) unlock() {
	out := m.out
	m.out = nil
	m.mu.Unlock()

	if m.handler == nil {
		return
	}
	for _, e := range out {
		m.handler(e)
	}
}

func (m *machine) emitLocked(e Event) {
	m.out = append(m.out, e)
}

func (m *machine) setStateLocked(s State) {
	if m.state == s {
		return
	}
	m.logger.Debug(m.name+": state change", "from", m.state, "to", s)
	m.state = s
}

func (m *machine) acquireLocked() {
	if !m.acquired {
		m.sess.Acquire(m.sink)
		m.acquired = true
	}
}

// armLocked replaces the phase timer. fn runs with the lock held, and only
// if no other phase was entered in between.
func (m *machine) armLocked(d time.Duration, fn func()) {
	m.timer.Arm(d, func(id uint64) {
		m.mu.Lock()
		defer m.unlock()
		if !m.timer.Claim(id) || m.state == StateStopped {
			return
		}
		fn()
	})
}

// stopLocked cancels the timer and lets go of the session.
func (m *machine) stopLocked() {
	m.timer.Cancel()
	if m.state == StateStopped && !m.acquired {
		return
	}
	m.setStateLocked(StateStopped)
	_ = m.sess.StopScan()
	_ = m.sess.Disconnect()
	if m.acquired {
		m.sess.Release(m.sink)
		m.acquired = false
	}
}

func (m *machine) failLocked(err error) {
	m.logger.Debug(m.name+": failed", "error", err)
	m.stopLocked()
	m.emitLocked(Event{Type: EventFailed, Err: err})
}

// recordLocked writes addrs to the ledger and returns the new ones.
func (m *machine) recordLocked(addrs ...uint16) []uint16 {
	added, err := m.ledger.RecordUsed(context.Background(), m.network, addrs...)
	if err != nil {
		m.logger.Warn(m.name+": failed to record addresses", "network", m.network.Name, "error", err)
	}
	return added
}

func (m *machine) sendLocked(cmd wire.Command) {
	if err := m.sess.Send(cmd); err != nil {
		m.logger.Warn(m.name+": send", "tag", cmd.Tag, "error", err)
	}
}

// State returns the current phase.
func (m *machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// PhaseRemaining returns the time left before the current phase times out.
// ok is false when no phase timer is running.
func (m *machine) PhaseRemaining() (d time.Duration, ok bool) {
	if !m.timer.Armed() {
		return 0, false
	}
	return m.timer.Remaining(), true
}

// Stop ends the run without an event and releases the session.
func (m *machine) Stop() {
	m.mu.Lock()
	defer m.unlock()
	m.logger.Debug(m.name + ": stop")
	m.stopLocked()
}
