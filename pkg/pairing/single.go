package pairing

import (
	"context"
	"fmt"

	"github.com/telinkmesh/telinkmesh-go/pkg/address"
	"github.com/telinkmesh/telinkmesh-go/pkg/mesh"
	"github.com/telinkmesh/telinkmesh-go/pkg/session"
	"github.com/telinkmesh/telinkmesh-go/pkg/wire"
)

// Single pairs one node chosen by the caller:
//
//	Connecting -> DeviceTypeGetting -> AddressChanging -> NetworkSetting
//
// Expiry while connecting or waiting for the MAC fails the run. An address
// change that is never confirmed moves on to provisioning after
// AddressChangeTimeout, and the run finishes NetworkSetTimeout after the
// network was written.
type Single struct {
	*machine

	pool    *address.Allocator
	node    mesh.Node
	oldAddr uint16
	newAddr uint16
}

var _ session.Sink = (*Single)(nil)

// NewSingle creates a single node orchestrator.
func NewSingle(sess Session, ledger address.Ledger, cfg Config, handler Handler) (*Single, error) {
	m, err := newMachine("SinglePairing", sess, ledger, cfg, handler)
	if err != nil {
		return nil, err
	}
	p := &Single{machine: m}
	m.sink = p
	return p, nil
}

// StartScanning scans the factory network and reports every node seen as
// EventDiscovered.
func (p *Single) StartScanning() error {
	p.mu.Lock()
	defer p.unlock()

	if p.state != StateStopped && p.state != StateScanning {
		return ErrRunning
	}
	p.timer.Cancel()
	p.acquireLocked()
	p.setStateLocked(StateScanning)
	if err := p.sess.Scan(mesh.FactoryNetwork, false, false); err != nil {
		p.stopLocked()
		return fmt.Errorf("scan factory network: %w", err)
	}
	return nil
}

// Start pairs node into network. node must be a factory node, normally one
// reported by StartScanning.
func (p *Single) Start(ctx context.Context, network mesh.Network, node mesh.Node) error {
	if err := network.Validate(); err != nil {
		return err
	}
	if network.IsFactory() {
		return ErrFactoryTarget
	}
	pool, err := address.FromLedger(ctx, p.ledger, network)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.unlock()

	if p.state != StateStopped && p.state != StateScanning {
		return ErrRunning
	}
	scanning := p.state == StateScanning
	p.timer.Cancel()
	p.network = network
	p.pool = pool
	p.node = node
	p.oldAddr, p.newAddr = 0, 0

	if pool.Len() == 0 {
		p.failLocked(ErrNoMoreNewAddresses)
		return nil
	}
	if !node.DeviceType.SupportsSingleAdd() {
		p.emitLocked(Event{Type: EventUnsupported, Node: node, DeviceType: node.DeviceType})
		p.failLocked(fmt.Errorf("%w: %s", ErrUnsupportedDevice, node.DeviceType))
		return nil
	}

	p.acquireLocked()
	if !scanning {
		// Selects the factory network for the login.
		if err := p.sess.Scan(mesh.FactoryNetwork, false, false); err != nil {
			p.stopLocked()
			return fmt.Errorf("scan factory network: %w", err)
		}
	}
	p.logger.Debug("SinglePairing: connecting", "node", node, "network", network.Name)
	p.setStateLocked(StateConnecting)
	p.armLocked(p.cfg.ConnectTimeout, p.loginTimeoutLocked)
	if err := p.sess.Connect(node); err != nil {
		p.stopLocked()
		return fmt.Errorf("connect: %w", err)
	}
	return nil
}

// HandleSessionEvent implements session.Sink.
func (p *Single) HandleSessionEvent(e session.Event) {
	p.mu.Lock()
	defer p.unlock()

	switch p.state {
	case StateScanning:
		if e.Type == session.EventNodeDiscovered {
			p.emitLocked(Event{Type: EventDiscovered, Node: e.Node})
		}

	case StateConnecting:
		switch e.Type {
		case session.EventLoginSucceeded:
			p.oldAddr = e.Node.ShortAddress
			p.setStateLocked(StateDeviceTypeGetting)
			p.armLocked(p.cfg.DeviceTypeTimeout, p.loginTimeoutLocked)
			p.sendLocked(wire.RequestMACDeviceType(mesh.ConnectedNode))
		case session.EventLoginFailed, session.EventConnectFailed:
			p.failLocked(fmt.Errorf("%w: %v", ErrLoginFailed, e.Err))
		}

	case StateDeviceTypeGetting:
		if r, ok := e.Notification.(wire.MACReport); ok && e.Type == session.EventMACReported {
			p.onMACLocked(r)
		}

	case StateAddressChanging:
		if r, ok := e.Notification.(wire.AddressReport); ok && e.Type == session.EventAddressChanged && r.NewAddress == p.newAddr {
			p.setNetworkLocked()
		}
	}
}

func (p *Single) onMACLocked(r wire.MACReport) {
	if r.From() != p.oldAddr {
		return
	}
	newAddr, ok := p.pool.Take(p.oldAddr)
	if !ok {
		p.failLocked(ErrNoMoreNewAddresses)
		return
	}
	p.newAddr = newAddr
	p.logger.Debug("SinglePairing: changing address", "from", p.oldAddr, "to", newAddr)
	p.setStateLocked(StateAddressChanging)
	p.armLocked(p.cfg.AddressChangeTimeout, p.setNetworkLocked)
	p.sendLocked(wire.ChangeAddress(mesh.ConnectedNode, int(newAddr), r.MAC[:]))
}

func (p *Single) setNetworkLocked() {
	p.setStateLocked(StateNetworkSetting)
	p.armLocked(p.cfg.NetworkSetTimeout, p.finishLocked)
	if err := p.sess.SetNetwork(p.network, false); err != nil {
		p.logger.Warn("SinglePairing: set network", "error", err)
	}
}

// finishLocked ends the run once provisioning had time to complete.
func (p *Single) finishLocked() {
	p.recordLocked(p.newAddr)
	p.logger.Debug("SinglePairing: finished", "address", p.newAddr)
	p.stopLocked()
	p.emitLocked(Event{Type: EventAdded, Node: p.node, Address: p.newAddr})
	p.emitLocked(Event{Type: EventFinished})
}

func (p *Single) loginTimeoutLocked() {
	p.failLocked(ErrLoginFailed)
}
