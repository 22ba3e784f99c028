// Package transport defines the BLE link a mesh session runs over.
//
// A Transport scans for advertisements and opens Links. A Link exposes the
// mesh service of one connected node through five characteristic roles:
//
//	┌──────────────┬───────────────────────────────┐
//	│ Role         │ Use                           │
//	├──────────────┼───────────────────────────────┤
//	│ Notify       │ inbound encrypted frames      │
//	│ Command      │ outbound encrypted frames     │
//	│ Pairing      │ login and network provisioning│
//	│ OTA          │ firmware chunks               │
//	│ Firmware     │ firmware revision (read only) │
//	└──────────────┴───────────────────────────────┘
//
// The ble subpackage implements Transport on top of tinygo.org/x/bluetooth.
// Tests use the in-process simulator in internal/meshsim.
package transport
