package transport

import (
	"context"
	"errors"

	"github.com/telinkmesh/telinkmesh-go/pkg/mesh"
)

// Role identifies a characteristic of the mesh service.
type Role uint8

const (
	RoleNotify Role = iota
	RoleCommand
	RolePairing
	RoleOTA
	RoleFirmware
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleNotify:
		return "NOTIFY"
	case RoleCommand:
		return "COMMAND"
	case RolePairing:
		return "PAIRING"
	case RoleOTA:
		return "OTA"
	case RoleFirmware:
		return "FIRMWARE"
	default:
		return "UNKNOWN"
	}
}

// UUID returns the characteristic UUID of the role.
func (r Role) UUID() string {
	switch r {
	case RoleNotify:
		return mesh.NotifyCharacteristicUUID
	case RoleCommand:
		return mesh.CommandCharacteristicUUID
	case RolePairing:
		return mesh.PairingCharacteristicUUID
	case RoleOTA:
		return mesh.OTACharacteristicUUID
	case RoleFirmware:
		return mesh.FirmwareCharacteristicUUID
	default:
		return ""
	}
}

// Roles lists every role a link must resolve during discovery.
var Roles = []Role{RoleNotify, RoleCommand, RolePairing, RoleOTA, RoleFirmware}

// Transport errors.
var (
	ErrUnknownPeer           = errors.New("peer not seen in scan")
	ErrMissingCharacteristic = errors.New("characteristic not found")
	ErrLinkClosed            = errors.New("link closed")
	ErrScanning              = errors.New("scan already running")
)

// Advertisement is one scan result carrying manufacturer data.
type Advertisement struct {
	// PeerAddress identifies the peripheral for Connect.
	PeerAddress string
	Name        string
	RSSI        int

	// ManufacturerData starts with the two company id bytes as sent on air.
	ManufacturerData []byte
}

// ScanHandler receives advertisements. It may be called from any goroutine.
type ScanHandler func(Advertisement)

// NotifyHandler receives characteristic notifications.
type NotifyHandler func(data []byte)

// Transport discovers and connects mesh peripherals.
type Transport interface {
	// StartScan begins discovery of the mesh service. Calling it while a
	// scan runs replaces the handler.
	StartScan(handler ScanHandler) error

	// StopScan ends discovery. It is a no-op when no scan runs.
	StopScan() error

	// Connect opens a link to a peer previously seen in a scan.
	Connect(ctx context.Context, peerAddress string) (Link, error)
}

// Link is a connection to one peripheral.
type Link interface {
	// Discover resolves every role. It fails with ErrMissingCharacteristic
	// when the peripheral lacks one.
	Discover(ctx context.Context) error

	Write(ctx context.Context, role Role, data []byte, withResponse bool) error
	Read(ctx context.Context, role Role) ([]byte, error)

	// Subscribe enables notifications of role and routes them to handler.
	Subscribe(role Role, handler NotifyHandler) error

	// Disconnected is closed when the link drops for any reason.
	Disconnected() <-chan struct{}

	Close() error
}
