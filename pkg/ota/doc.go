// Package ota updates node firmware over the session's OTA characteristic.
//
// Firmware images are named "0X<type>#<subtype>#V<version>.bin", for
// example "0X01#30#V1.23.bin". A Transfer logs into the node with a given
// short address and streams the image in 16-byte chunks followed by an
// end marker. Nodes do not acknowledge the image; a transfer counts as
// complete when the link stays up for a settle delay after the end marker.
package ota
