package meshsim

import (
	"encoding/binary"
	"time"

	"github.com/telinkmesh/telinkmesh-go/pkg/mesh"
	"github.com/telinkmesh/telinkmesh-go/pkg/transport"
	"github.com/telinkmesh/telinkmesh-go/pkg/wire"
)

// NodeConfig describes a simulated node. Zero values get defaults: the
// factory network, an RGB+CCT light, RSSI -50 and firmware "V1.00".
type NodeConfig struct {
	// Peer is the transport address. Defaults to the MAC as text.
	Peer string

	// MAC is most significant byte first.
	MAC      [6]byte
	Address  uint8
	MeshUUID uint16

	DeviceType mesh.DeviceType
	Network    mesh.Network
	RSSI       int
	Firmware   string

	RefuseConnect  bool // Connect fails
	MissingService bool // Discover fails
	RejectLogin    bool // login answered with a reject status
	RejectNetwork  bool // provisioning read back as not confirmed
	Mute           bool // commands are recorded but never answered
	Hidden         bool // never advertises

	// DropAfterOtaWrites closes the link after that many OTA writes.
	DropAfterOtaWrites int
}

// Received is a command as decrypted by the node it was written to.
type Received struct {
	Command wire.Command
	Seq     uint32
	At      time.Time
}

// Node is one simulated node. All state is guarded by the mesh lock.
type Node struct {
	mesh *Mesh
	cfg  NodeConfig

	network    mesh.Network
	address    uint8
	on         bool
	brightness uint8

	link     *link
	connects int
	received []Received

	otaChunks map[int][]byte
	otaWrites int
	otaEnd    int
	otaEnded  bool
}

// Address returns the current short address.
func (n *Node) Address() uint8 {
	n.mesh.mu.Lock()
	defer n.mesh.mu.Unlock()
	return n.address
}

// Network returns the network the node belongs to.
func (n *Node) Network() mesh.Network {
	n.mesh.mu.Lock()
	defer n.mesh.mu.Unlock()
	return n.network
}

// MAC returns the configured MAC.
func (n *Node) MAC() [6]byte {
	return n.cfg.MAC
}

// MACValue returns the MAC value a mesh.Node built from this node's
// advertisement reports.
func (n *Node) MACValue() uint32 {
	return binary.BigEndian.Uint32(n.cfg.MAC[2:6])
}

// Peer returns the transport address.
func (n *Node) Peer() string {
	return n.cfg.Peer
}

// On reports the light state.
func (n *Node) On() bool {
	n.mesh.mu.Lock()
	defer n.mesh.mu.Unlock()
	return n.on
}

// Brightness returns the light brightness.
func (n *Node) Brightness() uint8 {
	n.mesh.mu.Lock()
	defer n.mesh.mu.Unlock()
	return n.brightness
}

// Connected reports whether the node has a link.
func (n *Node) Connected() bool {
	n.mesh.mu.Lock()
	defer n.mesh.mu.Unlock()
	return n.link != nil
}

// Connects returns the number of links opened to the node.
func (n *Node) Connects() int {
	n.mesh.mu.Lock()
	defer n.mesh.mu.Unlock()
	return n.connects
}

// Received returns the commands written to the node's command
// characteristic, in arrival order.
func (n *Node) Received() []Received {
	n.mesh.mu.Lock()
	defer n.mesh.mu.Unlock()
	return append([]Received(nil), n.received...)
}

// OtaChunks returns the number of distinct OTA chunks received.
func (n *Node) OtaChunks() int {
	n.mesh.mu.Lock()
	defer n.mesh.mu.Unlock()
	return len(n.otaChunks)
}

// OtaEnd returns the chunk count of the end marker, if one arrived.
func (n *Node) OtaEnd() (int, bool) {
	n.mesh.mu.Lock()
	defer n.mesh.mu.Unlock()
	return n.otaEnd, n.otaEnded
}

// OtaImage joins the received chunks in index order, padding included.
func (n *Node) OtaImage() []byte {
	n.mesh.mu.Lock()
	defer n.mesh.mu.Unlock()
	var out []byte
	for i := 0; i < len(n.otaChunks); i++ {
		out = append(out, n.otaChunks[i]...)
	}
	return out
}

// Drop closes the node's link as a radio loss would.
func (n *Node) Drop() {
	n.mesh.mu.Lock()
	defer n.mesh.mu.Unlock()
	if n.link != nil {
		n.link.closeLocked()
	}
}

// InjectRaw delivers data on the notify characteristic unchanged.
func (n *Node) InjectRaw(data []byte) {
	n.mesh.mu.Lock()
	defer n.mesh.mu.Unlock()
	if n.link != nil {
		n.link.push(append([]byte(nil), data...))
	}
}

// Report sends cmd as an encrypted notification over the node's link.
func (n *Node) Report(cmd wire.Command) {
	n.mesh.mu.Lock()
	defer n.mesh.mu.Unlock()
	if n.link != nil {
		n.link.replyLocked(cmd)
	}
}

func (n *Node) cryptoMAC() []byte {
	return []byte{n.cfg.MAC[5], n.cfg.MAC[4], n.cfg.MAC[3], n.cfg.MAC[2]}
}

func (n *Node) advertisementLocked() transport.Advertisement {
	data := make([]byte, 20)
	binary.BigEndian.PutUint16(data[0:2], mesh.VendorID)
	binary.BigEndian.PutUint16(data[2:4], n.cfg.MeshUUID)
	data[4], data[5], data[6], data[7] = n.cfg.MAC[5], n.cfg.MAC[4], n.cfg.MAC[3], n.cfg.MAC[2]
	binary.BigEndian.PutUint16(data[8:10], mesh.VendorID)
	data[14] = n.cfg.DeviceType.RawType
	data[15] = n.cfg.DeviceType.RawSubType
	data[17] = n.address
	return transport.Advertisement{
		PeerAddress:      n.cfg.Peer,
		Name:             n.network.Name,
		RSSI:             n.cfg.RSSI,
		ManufacturerData: data,
	}
}

func (n *Node) macMatches(reversed []byte) bool {
	for i := 0; i < 6; i++ {
		if reversed[i] != n.cfg.MAC[5-i] {
			return false
		}
	}
	return true
}

// handleLocked applies cmd to n and answers through l.
func (n *Node) handleLocked(l *link, cmd wire.Command) {
	switch cmd.Tag {
	case wire.TagReplaceAddress:
		switch {
		case cmd.Param == 0xFF && cmd.Payload[0] == 0xFF:
		case cmd.Payload[1] == 0x01 && cmd.Payload[2] == 0x10:
			if !n.macMatches(cmd.Payload[3:9]) {
				return
			}
			n.address = cmd.Param
		default:
			n.address = cmd.Param
		}
		l.replyLocked(n.addressReport())

	case wire.TagAppToNode:
		if wire.Identifier(cmd.Payload[0]) == wire.IdentMAC {
			l.replyLocked(n.macReport())
		}

	case wire.TagGetFirmware:
		r := wire.Command{Src: uint16(n.address), Tag: wire.TagFirmwareResponse}
		copy(r.Payload[:4], n.cfg.Firmware)
		l.replyLocked(r)

	case wire.TagOnOff:
		n.on = cmd.Param == 0x01
		if n.on && n.brightness == 0 {
			n.brightness = 100
		}
		l.replyLocked(n.statusReport())

	case wire.TagBrightness:
		n.brightness = cmd.Param
		l.replyLocked(n.statusReport())

	case wire.TagResetNetwork:
		n.network = mesh.FactoryNetwork
	}
}

func (n *Node) addressReport() wire.Command {
	return wire.Command{Src: uint16(n.address), Tag: wire.TagAddressNotify, Param: n.address}
}

func (n *Node) macReport() wire.Command {
	r := wire.Command{Src: uint16(n.address), Tag: wire.TagNodeToApp, Param: wire.DefaultParam}
	r.Payload[0] = byte(wire.IdentMAC)
	r.Payload[1] = n.cfg.DeviceType.RawType
	r.Payload[2] = n.cfg.DeviceType.RawSubType
	for i := 0; i < 6; i++ {
		r.Payload[8-i] = n.cfg.MAC[i]
	}
	return r
}

func (n *Node) statusReport() wire.Command {
	r := wire.Command{Src: uint16(n.address), Tag: wire.TagLightStatus, Param: n.address}
	r.Payload[0] = 0x01
	if n.on {
		r.Payload[1] = n.brightness
	}
	return r
}
