package pairing

import (
	"context"

	"github.com/telinkmesh/telinkmesh-go/pkg/address"
	"github.com/telinkmesh/telinkmesh-go/pkg/mesh"
	"github.com/telinkmesh/telinkmesh-go/pkg/session"
	"github.com/telinkmesh/telinkmesh-go/pkg/wire"
)

// Auto pairs factory nodes one after another until stopped:
//
//	Scanning -> Connecting -> AddressSetting -> NetworkSetting -> Scanning
//
// Every phase timeout starts over from scanning. The only terminal event
// is EventFailed with ErrNoMoreNewAddresses.
type Auto struct {
	*machine

	pool       *address.Allocator
	node       mesh.Node
	newAddr    uint16
	networkSet bool
}

var _ session.Sink = (*Auto)(nil)

// NewAuto creates an auto pairing orchestrator.
func NewAuto(sess Session, ledger address.Ledger, cfg Config, handler Handler) (*Auto, error) {
	m, err := newMachine("AutoPairing", sess, ledger, cfg, handler)
	if err != nil {
		return nil, err
	}
	p := &Auto{machine: m}
	m.sink = p
	return p, nil
}

// Start begins pairing factory nodes into network.
func (p *Auto) Start(ctx context.Context, network mesh.Network) error {
	if err := network.Validate(); err != nil {
		return err
	}
	if network.IsFactory() {
		return ErrFactoryTarget
	}

	p.mu.Lock()
	defer p.unlock()

	if p.state != StateStopped {
		return ErrRunning
	}
	p.network = network
	return p.restartLocked(ctx)
}

// restartLocked takes a fresh snapshot of the free addresses and scans.
func (p *Auto) restartLocked(ctx context.Context) error {
	pool, err := address.FromLedger(ctx, p.ledger, p.network)
	if err != nil {
		p.stopLocked()
		return err
	}
	p.pool = pool
	p.newAddr = 0
	p.networkSet = false
	if pool.Len() == 0 {
		p.failLocked(ErrNoMoreNewAddresses)
		return nil
	}

	p.acquireLocked()
	p.timer.Cancel()
	p.setStateLocked(StateScanning)
	return p.sess.Scan(mesh.FactoryNetwork, false, false)
}

func (p *Auto) restartTimeoutLocked() {
	p.logger.Debug("AutoPairing: phase timed out, restarting", "state", p.state)
	if err := p.restartLocked(context.Background()); err != nil {
		p.failLocked(err)
	}
}

// HandleSessionEvent implements session.Sink.
func (p *Auto) HandleSessionEvent(e session.Event) {
	p.mu.Lock()
	defer p.unlock()

	switch p.state {
	case StateScanning:
		if e.Type != session.EventNodeDiscovered || !e.Node.DeviceType.IsSafeConnection() {
			return
		}
		p.node = e.Node
		p.setStateLocked(StateConnecting)
		p.armLocked(p.cfg.ConnectTimeout, p.restartTimeoutLocked)
		_ = p.sess.StopScan()
		if err := p.sess.Connect(e.Node); err != nil {
			p.logger.Warn("AutoPairing: connect", "error", err)
		}

	case StateConnecting:
		if e.Type != session.EventLoginSucceeded {
			return
		}
		newAddr, ok := p.pool.Take(e.Node.ShortAddress)
		if !ok {
			p.failLocked(ErrNoMoreNewAddresses)
			return
		}
		p.node = e.Node
		p.newAddr = newAddr
		p.setStateLocked(StateAddressSetting)
		p.armLocked(p.cfg.AddressSetTimeout, p.restartTimeoutLocked)
		p.sendLocked(wire.ChangeAddressWithoutMAC(mesh.ConnectedNode, int(newAddr)))

	case StateAddressSetting:
		r, ok := e.Notification.(wire.AddressReport)
		if !ok || e.Type != session.EventAddressChanged || r.NewAddress != p.newAddr {
			return
		}
		p.recordLocked(p.newAddr)
		p.setStateLocked(StateNetworkSetting)
		p.armLocked(p.cfg.NetworkSetTimeout, p.restartTimeoutLocked)
		if err := p.sess.SetNetwork(p.network, false); err != nil {
			p.logger.Warn("AutoPairing: set network", "error", err)
		}

	case StateNetworkSetting:
		if !e.Node.SameDevice(p.node) {
			return
		}
		switch e.Type {
		case session.EventNetworkSet:
			if e.Err != nil {
				p.logger.Warn("AutoPairing: network rejected", "node", p.node, "error", e.Err)
				return
			}
			p.networkSet = true
			return
		case session.EventFirmwareRead:
			// Only the read that follows the accepted network counts; the
			// one queued after login may still be in flight.
			if !p.networkSet {
				return
			}
		default:
			return
		}
		p.logger.Debug("AutoPairing: node added", "node", p.node, "address", p.newAddr)
		p.emitLocked(Event{Type: EventAdded, Node: p.node, Address: p.newAddr})
		if err := p.restartLocked(context.Background()); err != nil {
			p.failLocked(err)
		}
	}
}
