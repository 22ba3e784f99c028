// Package wire implements the fixed 20-byte application frame of the mesh
// protocol and the per-command payload layouts.
//
// # Frame Layout
//
//	[0..2]   sequence number, big-endian (outbound only, stamped at encode time)
//	[3..4]   source address, little-endian
//	[5..6]   destination address, little-endian
//	[7]      tag
//	[8..9]   vendor id 0x11 0x02
//	[10]     param
//	[11..19] payload
//
// The same layout is used in both directions. Frames of any other length and
// frames carrying an unknown tag do not decode.
//
// # Builders
//
// Command builders are pure functions of (address, arguments). They panic
// when an argument is outside its documented range; such a call is a
// programming error, not a runtime condition.
//
// # Notifications
//
// ParseNotification turns a decoded inbound Command into a typed report.
// Generic node-to-app frames carry a secondary identifier in payload[0]
// that selects the report type; unknown identifiers are ignored.
package wire
