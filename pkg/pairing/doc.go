// Package pairing assigns addresses to factory nodes and moves them into a
// mesh network.
//
// Three orchestrators drive a session.Session through fixed phases, each
// guarded by a single-shot timer:
//
//   - Single pairs one chosen node: connect, read its MAC, change its
//     address, provision the network.
//   - Mesh pairs every factory node in range at once over the RF mesh.
//   - Auto loops over factory nodes one at a time until stopped.
//
// A timer expiring does not always mean failure. Address changes and
// network provisioning are not acknowledged by every node, so several
// phases complete when their timer runs out. Terminal outcomes are
// delivered to the Handler as EventFinished or EventFailed.
package pairing
