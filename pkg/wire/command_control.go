package wire

import "time"

// TurnOnOff switches the node on or off after delay milliseconds.
func TurnOnOff(addr uint16, on bool, delay uint16) Command {
	c := newCommand(TagOnOff, addr)
	c.Param = 0x00
	if on {
		c.Param = 0x01
	}
	c.Payload[0] = byte(delay)
	c.Payload[1] = byte(delay >> 8)
	return c
}

// SetBrightness sets brightness in percent (0..100).
func SetBrightness(addr uint16, value int) Command {
	checkRange("brightness", value, 0, 100)
	c := newCommand(TagBrightness, addr)
	c.Param = uint8(value)
	return c
}

// SetColorTemperature sets color temperature in percent (0..100), 0 being
// the coolest.
func SetColorTemperature(addr uint16, value int) Command {
	checkRange("color temperature", value, 0, 100)
	c := newCommand(TagSingleChannel, addr)
	c.Param = uint8(ChannelColorTemperature)
	c.Payload[0] = uint8(value)
	c.Payload[1] = 0x00
	return c
}

// SetWhite sets the white channel (0..255).
func SetWhite(addr uint16, value int) Command {
	checkRange("white", value, 0, 255)
	c := newCommand(TagSingleChannel, addr)
	c.Param = uint8(ChannelColorTemperature)
	c.Payload[0] = uint8(value)
	c.Payload[1] = 0x10
	return c
}

func singleChannel(addr uint16, ch Channel, name string, value int) Command {
	checkRange(name, value, 0, 255)
	c := newCommand(TagSingleChannel, addr)
	c.Param = uint8(ch)
	c.Payload[0] = uint8(value)
	return c
}

// SetRed sets the red channel (0..255).
func SetRed(addr uint16, value int) Command {
	return singleChannel(addr, ChannelRed, "red", value)
}

// SetGreen sets the green channel (0..255).
func SetGreen(addr uint16, value int) Command {
	return singleChannel(addr, ChannelGreen, "green", value)
}

// SetBlue sets the blue channel (0..255).
func SetBlue(addr uint16, value int) Command {
	return singleChannel(addr, ChannelBlue, "blue", value)
}

// SetRGB sets all three color channels (0..255 each).
func SetRGB(addr uint16, red, green, blue int) Command {
	checkRange("red", red, 0, 255)
	checkRange("green", green, 0, 255)
	checkRange("blue", blue, 0, 255)
	c := newCommand(TagSingleChannel, addr)
	c.Param = uint8(ChannelRGB)
	c.Payload[0] = uint8(red)
	c.Payload[1] = uint8(green)
	c.Payload[2] = uint8(blue)
	return c
}

// SyncDatetime sets the node clock to t, in t's location.
func SyncDatetime(addr uint16, t time.Time) Command {
	c := newCommand(TagSyncDatetime, addr)
	year := t.Year()
	c.Param = uint8(year)
	c.Payload[0] = uint8(year >> 8)
	c.Payload[1] = uint8(t.Month())
	c.Payload[2] = uint8(t.Day())
	c.Payload[3] = uint8(t.Hour())
	c.Payload[4] = uint8(t.Minute())
	c.Payload[5] = uint8(t.Second())
	return c
}

// GetDatetime asks for the node clock.
func GetDatetime(addr uint16) Command {
	return newCommand(TagGetDatetime, addr)
}
