package pairing

import (
	"context"
	"fmt"
	"time"

	"github.com/telinkmesh/telinkmesh-go/pkg/address"
	"github.com/telinkmesh/telinkmesh-go/pkg/mesh"
	"github.com/telinkmesh/telinkmesh-go/pkg/session"
	"github.com/telinkmesh/telinkmesh-go/pkg/wire"
)

// Progress milestones reported by Mesh.
const (
	ProgressExistingScanned = 0.14
	ProgressFactoryLoggedIn = 0.28
	ProgressMACsCollected   = 0.42
	ProgressAddressesSet    = 0.56
	ProgressNetworkSet      = 0.70
	ProgressNetworkLoggedIn = 0.84
	ProgressDone            = 1.0
)

// pendingAddress is an address change waiting to be sent.
type pendingAddress struct {
	Old, New uint16
	MAC      [6]byte
}

// Mesh pairs every factory node in range over the RF mesh:
//
//  1. log into the target network and record the addresses in use,
//  2. log into the factory network and query every node's MAC,
//  3. give each node a new address,
//  4. provision the target network on all of them at once,
//  5. log into the target network and report the addresses that appeared.
//
// Nodes that cannot join a mesh are reported as EventUnsupported and left
// alone.
type Mesh struct {
	*machine

	pool     *address.Allocator
	loggedIn bool
	pending  map[uint32]pendingAddress
	order    []uint32
}

var _ session.Sink = (*Mesh)(nil)

// NewMesh creates a mesh orchestrator.
func NewMesh(sess Session, ledger address.Ledger, cfg Config, handler Handler) (*Mesh, error) {
	m, err := newMachine("MeshPairing", sess, ledger, cfg, handler)
	if err != nil {
		return nil, err
	}
	p := &Mesh{machine: m}
	m.sink = p
	return p, nil
}

// Start runs one batch into network.
func (p *Mesh) Start(ctx context.Context, network mesh.Network) error {
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

	if p.state != StateStopped {
		return ErrRunning
	}
	p.network = network
	p.pool = pool
	p.pending = make(map[uint32]pendingAddress)
	p.order = nil

	if pool.Len() == 0 {
		p.failLocked(ErrNoMoreNewAddresses)
		return nil
	}

	p.acquireLocked()
	p.scanLocked(StateExistDeviceScanning, network, p.connectFactoryLocked)
	return nil
}

// scanLocked enters a phase that logs into network through the first node
// found. onTimeout runs if no login happens within ConnectTimeout.
func (p *Mesh) scanLocked(state State, network mesh.Network, onTimeout func()) {
	p.loggedIn = false
	p.setStateLocked(state)
	p.armLocked(p.cfg.ConnectTimeout, onTimeout)
	if err := p.sess.Scan(network, true, false); err != nil {
		p.logger.Warn("MeshPairing: scan", "network", network.Name, "error", err)
	}
}

func (p *Mesh) progressLocked(v float64) {
	p.emitLocked(Event{Type: EventProgress, Progress: v})
}

func (p *Mesh) connectFactoryLocked() {
	// Addresses recorded while scanning the target network are no longer
	// free.
	pool, err := address.FromLedger(context.Background(), p.ledger, p.network)
	if err != nil {
		p.failLocked(err)
		return
	}
	p.pool = pool
	if pool.Len() == 0 {
		p.failLocked(ErrNoMoreNewAddresses)
		return
	}
	p.scanLocked(StateFactoryConnecting, mesh.FactoryNetwork, func() {
		p.failLocked(ErrNoNewDevices)
	})
}

func (p *Mesh) changePendingLocked() {
	p.progressLocked(ProgressMACsCollected)
	if len(p.order) == 0 {
		p.setNetworkLocked()
		return
	}

	p.setStateLocked(StateAddressChanging)
	wait := p.cfg.AddressChangeTimeout + time.Duration(len(p.order))*p.sess.PacingInterval()
	p.armLocked(wait, p.setNetworkLocked)
	for _, key := range p.order {
		pa := p.pending[key]
		p.logger.Debug("MeshPairing: changing address", "from", pa.Old, "to", pa.New)
		p.sendLocked(wire.ChangeAddress(pa.Old, int(pa.New), pa.MAC[:]))
	}
}

func (p *Mesh) setNetworkLocked() {
	p.progressLocked(ProgressAddressesSet)
	p.setStateLocked(StateNetworkSetting)
	p.armLocked(p.cfg.NetworkSetTimeout, func() {
		p.progressLocked(ProgressNetworkSet)
		p.scanLocked(StateNetworkConnecting, p.network, func() {
			p.failLocked(ErrNoNewDevices)
		})
	})
	if err := p.sess.SetNetwork(p.network, true); err != nil {
		p.logger.Warn("MeshPairing: set network", "error", err)
	}
}

func (p *Mesh) finishLocked() {
	p.progressLocked(ProgressDone)
	p.stopLocked()
	p.pending = nil
	p.order = nil
	p.emitLocked(Event{Type: EventFinished})
}

// HandleSessionEvent implements session.Sink.
func (p *Mesh) HandleSessionEvent(e session.Event) {
	p.mu.Lock()
	defer p.unlock()

	switch e.Type {
	case session.EventLoginSucceeded:
		p.onLoginLocked()
	case session.EventDevicesUpdated:
		if r, ok := e.Notification.(wire.DeviceStatusReport); ok {
			p.onDevicesLocked(r)
		}
	case session.EventMACReported:
		if r, ok := e.Notification.(wire.MACReport); ok && p.state == StateMACScanning {
			p.onMACLocked(r)
		}
	}
}

func (p *Mesh) onLoginLocked() {
	if p.loggedIn {
		return
	}
	switch p.state {
	case StateExistDeviceScanning:
		p.loggedIn = true
		p.armLocked(p.cfg.ScanWindow, p.connectFactoryLocked)
		p.scanMeshLocked()
		p.progressLocked(ProgressExistingScanned)

	case StateFactoryConnecting:
		p.loggedIn = true
		p.setStateLocked(StateMACScanning)
		p.armLocked(p.cfg.ScanWindow, p.changePendingLocked)
		p.sendLocked(wire.RequestMACDeviceType(mesh.Broadcast))
		p.progressLocked(ProgressFactoryLoggedIn)

	case StateNetworkConnecting:
		p.loggedIn = true
		p.setStateLocked(StateNewDeviceScanning)
		p.armLocked(p.cfg.ScanWindow, p.finishLocked)
		p.scanMeshLocked()
		p.progressLocked(ProgressNetworkLoggedIn)
	}
}

func (p *Mesh) scanMeshLocked() {
	if err := p.sess.ScanMeshDevices(); err != nil {
		p.logger.Warn("MeshPairing: scan mesh devices", "error", err)
	}
}

func (p *Mesh) onDevicesLocked(r wire.DeviceStatusReport) {
	addrs := make([]uint16, 0, len(r.Devices))
	for _, d := range r.Devices {
		addrs = append(addrs, uint16(d.Address))
	}

	switch {
	case p.state == StateExistDeviceScanning && p.loggedIn:
		p.recordLocked(addrs...)
		p.armLocked(p.cfg.ScanWindow, p.connectFactoryLocked)

	case p.state == StateNewDeviceScanning:
		added := p.recordLocked(addrs...)
		p.armLocked(p.cfg.ScanWindow, p.finishLocked)
		for _, d := range r.Devices {
			for _, a := range added {
				if uint16(d.Address) == a {
					p.emitLocked(Event{Type: EventAdded, Address: a, Device: d})
				}
			}
		}
	}
}

func (p *Mesh) onMACLocked(r wire.MACReport) {
	if !r.DeviceType.SupportsMeshAdd() {
		p.emitLocked(Event{
			Type:       EventUnsupported,
			Address:    r.From(),
			DeviceType: r.DeviceType,
			MAC:        r.MAC,
		})
		return
	}
	key := r.MACValue()
	if _, ok := p.pending[key]; ok {
		return
	}
	newAddr, ok := p.pool.Take(r.From())
	if !ok {
		if len(p.pending) == 0 {
			p.failLocked(ErrNoMoreNewAddresses)
		}
		return
	}
	p.pending[key] = pendingAddress{Old: r.From(), New: newAddr, MAC: r.MAC}
	p.order = append(p.order, key)
	p.logger.Debug("MeshPairing: node pending", "mac", fmt.Sprintf("%X", r.MAC), "old", r.From(), "new", newAddr)
	p.armLocked(p.cfg.ScanWindow, p.changePendingLocked)
}
