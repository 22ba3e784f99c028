package meshsim

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/telinkmesh/telinkmesh-go/pkg/mesh"
	"github.com/telinkmesh/telinkmesh-go/pkg/meshcrypto"
	"github.com/telinkmesh/telinkmesh-go/pkg/transport"
	"github.com/telinkmesh/telinkmesh-go/pkg/wire"
)

const (
	pairingReject byte = 0x0E
	outboxSize         = 256
)

// link is the node side of a connection. Fields other than the channels
// are guarded by the mesh lock.
type link struct {
	node *Node

	key      meshcrypto.Key
	loggedIn bool
	pairing  []byte
	staged   mesh.Network
	seq      *wire.Sequence
	handler  transport.NotifyHandler

	outbox    chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

var _ transport.Link = (*link)(nil)

func newLink(n *Node) *link {
	l := &link{
		node:   n,
		seq:    wire.NewSequence(0),
		outbox: make(chan []byte, outboxSize),
		done:   make(chan struct{}),
	}
	go l.deliver()
	return l
}

// deliver hands notifications to the subscriber in order.
func (l *link) deliver() {
	m := l.node.mesh
	for {
		select {
		case data := <-l.outbox:
			m.mu.Lock()
			h := l.handler
			m.mu.Unlock()
			if h != nil {
				h(data)
			}
		case <-l.done:
			return
		}
	}
}

func (l *link) closedLocked() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

func (l *link) closeLocked() {
	l.closeOnce.Do(func() { close(l.done) })
	if l.node.link == l {
		l.node.link = nil
	}
}

// Discover fails for nodes configured without the mesh service.
func (l *link) Discover(ctx context.Context) error {
	m := l.node.mesh
	m.mu.Lock()
	defer m.mu.Unlock()
	if l.closedLocked() {
		return transport.ErrLinkClosed
	}
	if l.node.cfg.MissingService {
		return fmt.Errorf("%w: %s", transport.ErrMissingCharacteristic, transport.RolePairing)
	}
	return ctx.Err()
}

// Write handles a characteristic write as the node would.
func (l *link) Write(ctx context.Context, role transport.Role, data []byte, withResponse bool) error {
	m := l.node.mesh
	m.mu.Lock()
	defer m.mu.Unlock()

	if l.closedLocked() {
		return transport.ErrLinkClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	switch role {
	case transport.RolePairing:
		l.pairingLocked(data)
	case transport.RoleCommand:
		l.commandLocked(data)
	case transport.RoleNotify:
		if l.loggedIn && bytes.Equal(data, []byte{0x01}) {
			for _, p := range m.peersLocked(l.node) {
				if p.cfg.DeviceType.RawType == mesh.RawTypeLight {
					l.replyLocked(p.statusReport())
				}
			}
		}
	case transport.RoleOTA:
		l.otaLocked(data)
	default:
		return fmt.Errorf("%w: %s", transport.ErrMissingCharacteristic, role)
	}
	return nil
}

// Read returns the pairing status or the firmware revision.
func (l *link) Read(ctx context.Context, role transport.Role) ([]byte, error) {
	m := l.node.mesh
	m.mu.Lock()
	defer m.mu.Unlock()

	if l.closedLocked() {
		return nil, transport.ErrLinkClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch role {
	case transport.RolePairing:
		if l.pairing == nil {
			return []byte{0x00}, nil
		}
		return append([]byte(nil), l.pairing...), nil
	case transport.RoleFirmware:
		return []byte(l.node.cfg.Firmware), nil
	default:
		return nil, fmt.Errorf("%w: %s is not readable", transport.ErrMissingCharacteristic, role)
	}
}

// Subscribe accepts only the notify characteristic.
func (l *link) Subscribe(role transport.Role, handler transport.NotifyHandler) error {
	if role != transport.RoleNotify {
		return fmt.Errorf("%w: %s does not notify", transport.ErrMissingCharacteristic, role)
	}
	m := l.node.mesh
	m.mu.Lock()
	defer m.mu.Unlock()
	if l.closedLocked() {
		return transport.ErrLinkClosed
	}
	l.handler = handler
	return nil
}

// Disconnected is closed when the link goes down.
func (l *link) Disconnected() <-chan struct{} {
	return l.done
}

// Close drops the link.
func (l *link) Close() error {
	m := l.node.mesh
	m.mu.Lock()
	defer m.mu.Unlock()
	l.closeLocked()
	return nil
}

func (l *link) pairingLocked(data []byte) {
	if len(data) == 0 {
		return
	}
	n := l.node
	crypto := n.mesh.crypto

	switch data[0] {
	case meshcrypto.OpLoginRequest:
		l.loggedIn = false
		if n.cfg.RejectLogin {
			l.pairing = []byte{pairingReject}
			return
		}
		remote, err := crypto.RandomBytes(meshcrypto.NonceSize)
		if err != nil {
			l.pairing = []byte{pairingReject}
			return
		}
		resp, key, err := meshcrypto.LoginResponse(crypto, n.network, data, remote)
		if err != nil {
			l.pairing = []byte{pairingReject}
			return
		}
		l.key = key
		l.loggedIn = true
		l.pairing = resp

	case meshcrypto.OpNetworkName:
		if v, ok := l.networkValue(data); ok {
			l.staged.Name = string(bytes.TrimRight(v[:], "\x00"))
		}

	case meshcrypto.OpNetworkPassword:
		if v, ok := l.networkValue(data); ok {
			l.staged.Password = string(bytes.TrimRight(v[:], "\x00"))
		}

	case meshcrypto.OpNetworkLTK:
		v, ok := l.networkValue(data)
		target := l.staged
		l.staged = mesh.Network{}
		if !ok || n.cfg.RejectNetwork || target.Validate() != nil || v != meshcrypto.DeriveLTK(target) {
			l.pairing = []byte{pairingReject}
			return
		}
		movers := []*Node{n}
		if len(data) > 17 && data[17] == 0x01 {
			movers = n.mesh.peersLocked(n)
		}
		for _, p := range movers {
			p.network = target
		}
		l.pairing = []byte{meshcrypto.OpNetworkConfirmed}
	}
}

func (l *link) networkValue(data []byte) ([16]byte, bool) {
	var enc [16]byte
	if !l.loggedIn || len(data) < 17 {
		return enc, false
	}
	copy(enc[:], data[1:17])
	return l.node.mesh.crypto.DecryptNetworkValue(enc, l.key), true
}

func (l *link) commandLocked(data []byte) {
	if !l.loggedIn {
		return
	}
	n := l.node
	frame, ok := n.mesh.crypto.DecryptCommand(data, n.cryptoMAC(), l.key)
	if !ok {
		return
	}
	cmd, seq, ok := wire.Decode(frame[:])
	if !ok {
		return
	}
	n.received = append(n.received, Received{Command: cmd, Seq: seq, At: time.Now()})
	if n.cfg.Mute {
		return
	}
	for _, t := range l.targetsLocked(cmd.Dst) {
		t.handleLocked(l, cmd)
	}
}

// targetsLocked resolves a destination address over the RF mesh.
func (l *link) targetsLocked(dst uint16) []*Node {
	peers := l.node.mesh.peersLocked(l.node)
	switch {
	case dst == mesh.ConnectedNode:
		return []*Node{l.node}
	case dst == mesh.Broadcast || mesh.IsGroupAddress(dst):
		return peers
	}
	var out []*Node
	for _, p := range peers {
		if uint16(p.address) == dst {
			out = append(out, p)
		}
	}
	return out
}

func (l *link) otaLocked(data []byte) {
	n := l.node
	n.otaWrites++
	if idx, chunk, ok := meshcrypto.ParseOtaChunk(data); ok {
		if n.otaChunks == nil {
			n.otaChunks = make(map[int][]byte)
		}
		n.otaChunks[idx] = append([]byte(nil), chunk...)
	} else if total, ok := meshcrypto.ParseOtaEndMarker(data); ok {
		n.otaEnd = total
		n.otaEnded = true
	}
	if n.cfg.DropAfterOtaWrites > 0 && n.otaWrites >= n.cfg.DropAfterOtaWrites {
		l.closeLocked()
	}
}

// replyLocked encrypts cmd as a notification and queues it.
func (l *link) replyLocked(cmd wire.Command) {
	if !l.loggedIn {
		return
	}
	frame := cmd.EncodeWith(l.seq)
	l.push(l.node.mesh.crypto.EncryptNotification(frame, l.node.cryptoMAC(), l.key))
}

func (l *link) push(data []byte) {
	select {
	case l.outbox <- data:
	default:
	}
}
