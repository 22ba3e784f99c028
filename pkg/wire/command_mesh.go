package wire

import "fmt"

// checkRange panics when v is outside [lo, hi].
func checkRange(name string, v, lo, hi int) {
	if v < lo || v > hi {
		panic(fmt.Sprintf("wire: %s %d out of range [%d, %d]", name, v, lo, hi))
	}
}

// RequestAddressMAC asks nodes to report their address and MAC.
func RequestAddressMAC(addr uint16) Command {
	c := newCommand(TagReplaceAddress, addr)
	c.Param = 0xFF
	c.Payload[0] = 0xFF
	c.Payload[1] = 0x01
	c.Payload[2] = 0x10
	return c
}

// ChangeAddress assigns newAddr (1..255) to the node with the given 6-byte
// MAC. The MAC selects the target when several nodes share addr.
func ChangeAddress(addr uint16, newAddr int, mac []byte) Command {
	checkRange("new address", newAddr, 1, 0xFF)
	if len(mac) != 6 {
		panic(fmt.Sprintf("wire: mac must be 6 bytes, got %d", len(mac)))
	}
	c := newCommand(TagReplaceAddress, addr)
	c.Param = uint8(newAddr)
	c.Payload[0] = 0x00
	c.Payload[1] = 0x01
	c.Payload[2] = 0x10
	for i := 0; i < 6; i++ {
		c.Payload[3+i] = mac[5-i]
	}
	return c
}

// ChangeAddressWithoutMAC assigns newAddr (1..255) to whichever node
// answers on addr, normally the connected node.
func ChangeAddressWithoutMAC(addr uint16, newAddr int) Command {
	checkRange("new address", newAddr, 1, 0xFF)
	c := newCommand(TagReplaceAddress, addr)
	c.Param = uint8(newAddr)
	return c
}

// ResetNetwork returns the node to the factory network.
func ResetNetwork(addr uint16) Command {
	c := newCommand(TagResetNetwork, addr)
	c.Param = 0x01
	return c
}

// RequestMACDeviceType asks nodes to report their MAC and device type.
func RequestMACDeviceType(addr uint16) Command {
	c := newCommand(TagAppToNode, addr)
	c.Payload[0] = byte(IdentMAC)
	return c
}

// GetFirmwareVersion asks for the firmware version string.
func GetFirmwareVersion(addr uint16) Command {
	return newCommand(TagGetFirmware, addr)
}
