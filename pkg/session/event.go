package session

import (
	"github.com/telinkmesh/telinkmesh-go/pkg/mesh"
	"github.com/telinkmesh/telinkmesh-go/pkg/wire"
)

// EventType identifies a session event.
type EventType uint8

const (
	// EventNodeDiscovered reports an advertisement matching the scan.
	EventNodeDiscovered EventType = iota
	// EventConnected reports that the link is up and services resolved.
	EventConnected
	// EventConnectFailed reports a connect or discovery failure.
	EventConnectFailed
	// EventLoginSucceeded reports the session is Ready.
	EventLoginSucceeded
	// EventLoginFailed reports a rejected or unverifiable login.
	EventLoginFailed
	// EventDisconnected reports the loss of an established link.
	EventDisconnected
	// EventDevicesUpdated carries a wire.DeviceStatusReport.
	EventDevicesUpdated
	// EventMACReported carries a wire.MACReport.
	EventMACReported
	// EventAddressChanged carries a wire.AddressReport.
	EventAddressChanged
	// EventNetworkSet reports the outcome of SetNetwork. Err is nil when
	// the node confirmed the new network.
	EventNetworkSet
	// EventFirmwareRead carries the firmware characteristic value.
	EventFirmwareRead
	// EventTelemetry carries any other decoded report.
	EventTelemetry
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventNodeDiscovered:
		return "NODE_DISCOVERED"
	case EventConnected:
		return "CONNECTED"
	case EventConnectFailed:
		return "CONNECT_FAILED"
	case EventLoginSucceeded:
		return "LOGIN_SUCCEEDED"
	case EventLoginFailed:
		return "LOGIN_FAILED"
	case EventDisconnected:
		return "DISCONNECTED"
	case EventDevicesUpdated:
		return "DEVICES_UPDATED"
	case EventMACReported:
		return "MAC_REPORTED"
	case EventAddressChanged:
		return "ADDRESS_CHANGED"
	case EventNetworkSet:
		return "NETWORK_SET"
	case EventFirmwareRead:
		return "FIRMWARE_READ"
	case EventTelemetry:
		return "TELEMETRY"
	default:
		return "UNKNOWN"
	}
}

// Event is delivered to the active Sink and to OnEvent handlers.
type Event struct {
	Type EventType

	// Node is the node the event concerns: the discovered node, or the
	// connected node for link events.
	Node mesh.Node

	// Notification is set for events decoded from notifications.
	Notification wire.Notification

	// Firmware is set for EventFirmwareRead.
	Firmware string

	// Network is set for EventNetworkSet.
	Network mesh.Network

	Err error
}

// Sink receives session events while it holds the session. Orchestrators
// implement Sink and call Acquire before driving the session. Sinks are
// compared with ==, so implementations should be pointer types.
type Sink interface {
	HandleSessionEvent(Event)
}

// EventHandler is called for every event after the active Sink.
type EventHandler func(Event)

// eventTypeFor maps a report to the event that carries it.
func eventTypeFor(n wire.Notification) EventType {
	switch n.(type) {
	case wire.DeviceStatusReport:
		return EventDevicesUpdated
	case wire.MACReport:
		return EventMACReported
	case wire.AddressReport:
		return EventAddressChanged
	default:
		return EventTelemetry
	}
}
