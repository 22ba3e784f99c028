// Package meshsim simulates mesh nodes behind the transport interfaces.
//
// A Mesh holds any number of Nodes. It advertises every node that has no
// link, accepts connections, runs the node side of the login handshake and
// network provisioning, and answers commands with encrypted notifications
// the way real nodes do. Commands sent through one node reach every node of
// the same network, as over the RF mesh.
package meshsim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/telinkmesh/telinkmesh-go/pkg/mesh"
	"github.com/telinkmesh/telinkmesh-go/pkg/meshcrypto"
	"github.com/telinkmesh/telinkmesh-go/pkg/transport"
)

// ErrConnectRefused is returned by Connect for nodes configured to refuse.
var ErrConnectRefused = errors.New("meshsim: connection refused")

// ErrBusy is returned by Connect when the node already has a link.
var ErrBusy = errors.New("meshsim: node already connected")

// DefaultAdvertiseInterval is the time between two advertising rounds.
const DefaultAdvertiseInterval = 20 * time.Millisecond

// Mesh is a simulated set of nodes. It implements transport.Transport.
type Mesh struct {
	// AdvertiseInterval overrides DefaultAdvertiseInterval when set before
	// the first scan.
	AdvertiseInterval time.Duration

	crypto meshcrypto.Telink

	mu       sync.Mutex
	nodes    []*Node
	scanGen  uint64
	scanning bool
	scans    int
}

var _ transport.Transport = (*Mesh)(nil)

// New returns an empty mesh.
func New() *Mesh {
	return &Mesh{}
}

// Add creates a node from cfg.
func (m *Mesh) Add(cfg NodeConfig) *Node {
	if cfg.Peer == "" {
		cfg.Peer = fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X",
			cfg.MAC[0], cfg.MAC[1], cfg.MAC[2], cfg.MAC[3], cfg.MAC[4], cfg.MAC[5])
	}
	if cfg.Network == (mesh.Network{}) {
		cfg.Network = mesh.FactoryNetwork
	}
	if cfg.RSSI == 0 {
		cfg.RSSI = -50
	}
	if cfg.Firmware == "" {
		cfg.Firmware = "V1.00"
	}
	if cfg.DeviceType == (mesh.DeviceType{}) {
		cfg.DeviceType = mesh.NewDeviceType(mesh.RawTypeLight, 0x35)
	}

	n := &Node{
		mesh:    m,
		cfg:     cfg,
		network: cfg.Network,
		address: cfg.Address,
	}

	m.mu.Lock()
	m.nodes = append(m.nodes, n)
	m.mu.Unlock()
	return n
}

// Nodes returns every node of the mesh.
func (m *Mesh) Nodes() []*Node {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Node(nil), m.nodes...)
}

// Scans returns how many times StartScan was called.
func (m *Mesh) Scans() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scans
}

// Scanning reports whether a scan is running.
func (m *Mesh) Scanning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scanning
}

// StartScan advertises every unconnected node to handler until StopScan.
func (m *Mesh) StartScan(handler transport.ScanHandler) error {
	m.mu.Lock()
	m.scanGen++
	m.scanning = true
	m.scans++
	gen := m.scanGen
	interval := m.AdvertiseInterval
	if interval <= 0 {
		interval = DefaultAdvertiseInterval
	}
	m.mu.Unlock()

	go m.advertise(gen, interval, handler)
	return nil
}

// StopScan ends the running scan.
func (m *Mesh) StopScan() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scanGen++
	m.scanning = false
	return nil
}

func (m *Mesh) advertise(gen uint64, interval time.Duration, handler transport.ScanHandler) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		m.mu.Lock()
		if m.scanGen != gen {
			m.mu.Unlock()
			return
		}
		var adverts []transport.Advertisement
		for _, n := range m.nodes {
			if n.link == nil && !n.cfg.Hidden {
				adverts = append(adverts, n.advertisementLocked())
			}
		}
		m.mu.Unlock()

		for _, a := range adverts {
			handler(a)
		}
		<-ticker.C
	}
}

// Connect opens a link to the node advertising as peer.
func (m *Mesh) Connect(ctx context.Context, peer string) (transport.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var node *Node
	for _, n := range m.nodes {
		if n.cfg.Peer == peer {
			node = n
			break
		}
	}
	switch {
	case node == nil:
		return nil, fmt.Errorf("%w: %s", transport.ErrUnknownPeer, peer)
	case node.cfg.RefuseConnect:
		return nil, ErrConnectRefused
	case node.link != nil:
		return nil, ErrBusy
	}

	l := newLink(node)
	node.link = l
	node.connects++
	return l, nil
}

// peersLocked returns the nodes reachable over RF from n, n included.
func (m *Mesh) peersLocked(n *Node) []*Node {
	var out []*Node
	for _, p := range m.nodes {
		if p.network == n.network {
			out = append(out, p)
		}
	}
	return out
}
