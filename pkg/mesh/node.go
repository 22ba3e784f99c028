package mesh

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// VendorID is the manufacturer id every mesh node advertises.
const VendorID uint16 = 0x1102

// minManufacturerDataLen is the shortest manufacturer data that still
// carries the short address byte.
const minManufacturerDataLen = 18

// Advertisement decoding errors.
var (
	ErrShortManufacturerData = errors.New("manufacturer data too short")
	ErrForeignVendor         = errors.New("manufacturer id is not a mesh vendor")
)

// Node is a mesh peripheral seen in an advertisement. Nodes are rebuilt on
// every advertisement; two nodes are the same device when their MAC values
// are equal.
type Node struct {
	// PeerAddress is the transport level identifier used to connect.
	PeerAddress string

	Name      string
	RSSI      int
	MeshUUID  uint16
	ProductID uint16

	// MAC holds the four low bytes of the device MAC, most significant first.
	MAC [4]byte

	ShortAddress uint16
	DeviceType   DeviceType
}

// NodeFromAdvertisement decodes a node from the raw manufacturer data of an
// advertisement. The first two bytes must be the manufacturer id as sent on
// air (little-endian, so 0x11 0x02).
func NodeFromAdvertisement(peer, name string, rssi int, data []byte) (Node, error) {
	if len(data) < minManufacturerDataLen {
		return Node{}, fmt.Errorf("%w: %d bytes", ErrShortManufacturerData, len(data))
	}
	if id := binary.BigEndian.Uint16(data[0:2]); id != VendorID {
		return Node{}, fmt.Errorf("%w: 0x%04X", ErrForeignVendor, id)
	}
	if product := binary.BigEndian.Uint16(data[8:10]); product != VendorID {
		return Node{}, fmt.Errorf("%w: product 0x%04X", ErrForeignVendor, product)
	}

	n := Node{
		PeerAddress:  peer,
		Name:         name,
		RSSI:         rssi,
		MeshUUID:     binary.BigEndian.Uint16(data[2:4]),
		ProductID:    binary.BigEndian.Uint16(data[14:16]),
		ShortAddress: uint16(data[17]),
	}
	n.MAC = [4]byte{data[7], data[6], data[5], data[4]}
	n.DeviceType = NewDeviceType(data[14], data[15])
	return n, nil
}

// MACValue returns the MAC bytes as an integer. It identifies the device.
func (n Node) MACValue() uint32 {
	return binary.BigEndian.Uint32(n.MAC[:])
}

// CryptoMAC returns the MAC in the byte order the session cipher expects
// (least significant byte first).
func (n Node) CryptoMAC() []byte {
	return []byte{n.MAC[3], n.MAC[2], n.MAC[1], n.MAC[0]}
}

// MACString returns the MAC as upper case hex.
func (n Node) MACString() string {
	return fmt.Sprintf("%02X%02X%02X%02X", n.MAC[0], n.MAC[1], n.MAC[2], n.MAC[3])
}

// SameDevice reports whether both nodes describe the same device.
func (n Node) SameDevice(other Node) bool {
	return n.MACValue() == other.MACValue()
}

// String returns a short description for logs.
func (n Node) String() string {
	return fmt.Sprintf("%s mac=%s addr=%d type=%s rssi=%d", n.Name, n.MACString(), n.ShortAddress, n.DeviceType, n.RSSI)
}
