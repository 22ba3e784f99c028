// Package session owns the single BLE link to a mesh node.
//
// A Session scans for nodes, connects, logs in with the network credentials
// and then carries encrypted commands and notifications for as long as the
// link stays up.
//
// # State Machine
//
//	Idle → Scanning → Connecting → AwaitingServices → AwaitingLogin → Ready
//
// Any state drops back to Idle on a transport failure or Disconnect. Each
// drop bumps a connection generation; callbacks from an older link
// are recognized by their generation and ignored.
//
// # Outbound Pacing
//
// All commands go through one sender goroutine. After each write the sender
// waits the pacing interval of the connected node (200 ms, or 500 ms for
// RF-PA repeaters) before the next one. Ordinary commands are sent in FIFO
// order. Sample commands, used for slider-style controls, are coalesced per
// logical control: a newer sample for the same control replaces the pending
// one, so only the latest value goes out. Ordinary commands take priority.
//
// Commands submitted while the session is not Ready are dropped.
//
// # Events
//
// Events are delivered in order on one dispatcher goroutine, first to the
// active Sink (see Acquire) and then to every handler registered with
// OnEvent. No Session lock is held while they run, so handlers may call
// back into the Session.
package session
