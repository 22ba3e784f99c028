// Package mesh defines the data model shared by every layer of the mesh
// client: short addresses, network credentials, nodes decoded from BLE
// advertisements, and the device type tables.
//
// # Addresses
//
// Short addresses are 16-bit values:
//   - 0x0000: the node currently connected over BLE
//   - 0x0001-0x00FF: device addresses
//   - bit 15 set: group addresses
//   - 0xFFFF: broadcast to every node of the mesh
//
// # Networks
//
// Unprovisioned devices join the well-known factory network. Pairing moves a
// device from the factory network into a user network identified by its
// name and password.
package mesh
