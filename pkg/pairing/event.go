package pairing

import (
	"github.com/telinkmesh/telinkmesh-go/pkg/mesh"
	"github.com/telinkmesh/telinkmesh-go/pkg/wire"
)

// State is the phase an orchestrator is in.
type State uint8

const (
	StateStopped State = iota
	StateScanning
	StateConnecting
	StateDeviceTypeGetting
	StateAddressChanging
	StateAddressSetting
	StateNetworkSetting
	StateExistDeviceScanning
	StateFactoryConnecting
	StateMACScanning
	StateNetworkConnecting
	StateNewDeviceScanning
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "STOPPED"
	case StateScanning:
		return "SCANNING"
	case StateConnecting:
		return "CONNECTING"
	case StateDeviceTypeGetting:
		return "DEVICE_TYPE_GETTING"
	case StateAddressChanging:
		return "ADDRESS_CHANGING"
	case StateAddressSetting:
		return "ADDRESS_SETTING"
	case StateNetworkSetting:
		return "NETWORK_SETTING"
	case StateExistDeviceScanning:
		return "EXIST_DEVICE_SCANNING"
	case StateFactoryConnecting:
		return "FACTORY_CONNECTING"
	case StateMACScanning:
		return "MAC_SCANNING"
	case StateNetworkConnecting:
		return "NETWORK_CONNECTING"
	case StateNewDeviceScanning:
		return "NEW_DEVICE_SCANNING"
	default:
		return "UNKNOWN"
	}
}

// EventType identifies a pairing event.
type EventType uint8

const (
	// EventDiscovered reports a factory node seen while Single scans.
	EventDiscovered EventType = iota
	// EventProgress reports Mesh progress in Event.Progress.
	EventProgress
	// EventAdded reports a node that joined the network.
	EventAdded
	// EventUnsupported reports a node whose device type cannot be paired
	// this way.
	EventUnsupported
	// EventFinished ends a successful run.
	EventFinished
	// EventFailed ends a run. Event.Err tells why.
	EventFailed
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventDiscovered:
		return "DISCOVERED"
	case EventProgress:
		return "PROGRESS"
	case EventAdded:
		return "ADDED"
	case EventUnsupported:
		return "UNSUPPORTED"
	case EventFinished:
		return "FINISHED"
	case EventFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Event is delivered to the Handler of an orchestrator.
type Event struct {
	Type EventType

	// Node is set by Single and Auto for discovered, unsupported and added
	// nodes.
	Node mesh.Node

	// Address is the new address of an added node, or the address of an
	// unsupported node reported by Mesh.
	Address uint16

	// DeviceType and MAC are set for nodes reported by MAC query.
	DeviceType mesh.DeviceType
	MAC        [6]byte

	// Device is the status entry Mesh saw for an added node.
	Device wire.DeviceStatus

	Progress float64

	Err error
}

// Handler receives pairing events. It is never called with an
// orchestrator lock held, so it may call Stop.
type Handler func(Event)
