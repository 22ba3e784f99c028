package wire

import (
	"encoding/binary"
	"math"
)

func lightControl(addr uint16, mode ControlMode) Command {
	c := newCommand(TagAppToNode, addr)
	c.Payload[0] = byte(IdentLightControlMode)
	c.Payload[1] = byte(mode)
	return c
}

// SetLightOnOffDuration sets the fade time of on/off transitions in
// seconds (1..0xFFFF).
func SetLightOnOffDuration(addr uint16, seconds int) Command {
	checkRange("on/off duration", seconds, 1, 0xFFFF)
	c := lightControl(addr, ModeOnOffDuration)
	c.Payload[2] = opSet
	c.Payload[3] = uint8(seconds)
	c.Payload[4] = uint8(seconds >> 8)
	return c
}

// GetLightOnOffDuration asks for the on/off fade time.
func GetLightOnOffDuration(addr uint16) Command {
	c := lightControl(addr, ModeOnOffDuration)
	c.Payload[2] = opGet
	return c
}

// RunningState selects what a running light effect plays.
type RunningState uint8

// Running states.
const (
	RunningStopped RunningState = 0x00
	RunningDefault RunningState = 0x01
	RunningCustom  RunningState = 0x02
)

// CustomModeType is the transition style of a custom running mode.
type CustomModeType uint8

// Custom mode transition styles.
const (
	CustomAscendShade  CustomModeType = 0x01
	CustomDescendShade CustomModeType = 0x02
	CustomAscDescShade CustomModeType = 0x03
	CustomMixedShade   CustomModeType = 0x04
	CustomJump         CustomModeType = 0x05
	CustomStrobe       CustomModeType = 0x06
)

// RunningMode is the running light effect state of a node.
type RunningMode struct {
	State         RunningState
	DefaultModeID uint8
	CustomModeID  uint8
	CustomType    CustomModeType
	Speed         uint8
}

// GetLightRunningMode asks for the running light effect state.
func GetLightRunningMode(addr uint16) Command {
	return lightControl(addr, ModeGetRunningMode)
}

// SetLightRunningMode starts or stops a running light effect. Default
// mode ids are 1..20, custom mode ids 1..16.
func SetLightRunningMode(addr uint16, mode RunningMode) Command {
	c := lightControl(addr, ModeSetRunningMode)
	c.Payload[2] = uint8(mode.State)
	switch mode.State {
	case RunningDefault:
		checkRange("default mode id", int(mode.DefaultModeID), 1, 20)
		c.Payload[3] = mode.DefaultModeID
	case RunningCustom:
		checkRange("custom mode id", int(mode.CustomModeID), 1, 16)
		c.Payload[3] = mode.CustomModeID
		c.Payload[4] = uint8(mode.CustomType)
	}
	return c
}

// SetLightRunningSpeed sets the effect speed (1..15).
func SetLightRunningSpeed(addr uint16, speed int) Command {
	checkRange("running speed", speed, 1, 15)
	c := lightControl(addr, ModeRunningSpeed)
	c.Payload[2] = uint8(speed)
	return c
}

// GetCustomRunningModeIDs asks which custom modes are stored on the node.
func GetCustomRunningModeIDs(addr uint16) Command {
	c := lightControl(addr, ModeCustomRunningMode)
	c.Payload[2] = opGet
	c.Payload[3] = 0x00
	return c
}

// GetCustomRunningModeColors asks for the colors of custom mode id (1..16).
func GetCustomRunningModeColors(addr uint16, id int) Command {
	checkRange("custom mode id", id, 1, 16)
	c := lightControl(addr, ModeCustomRunningMode)
	c.Payload[2] = opGet
	c.Payload[3] = uint8(id)
	return c
}

// Color is an RGB triple.
type Color struct {
	Red, Green, Blue uint8
}

// SetCustomRunningModeColor stores color number index (1..count) of custom
// mode id (1..16) holding count colors (1..5).
func SetCustomRunningModeColor(addr uint16, id, count, index int, color Color) Command {
	checkRange("custom mode id", id, 1, 16)
	checkRange("color count", count, 1, 5)
	checkRange("color index", index, 1, count)
	c := lightControl(addr, ModeCustomRunningMode)
	c.Payload[2] = opSet
	c.Payload[3] = uint8(id)
	c.Payload[4] = uint8(count)
	c.Payload[5] = uint8(index)
	c.Payload[6] = color.Red
	c.Payload[7] = color.Green
	c.Payload[8] = color.Blue
	return c
}

// DeleteCustomRunningMode removes custom mode id (1..16).
func DeleteCustomRunningMode(addr uint16, id int) Command {
	checkRange("custom mode id", id, 1, 16)
	c := lightControl(addr, ModeCustomRunningMode)
	c.Payload[2] = 0x02
	c.Payload[3] = uint8(id)
	return c
}

// GetLightPwmFrequency asks for the PWM frequency.
func GetLightPwmFrequency(addr uint16) Command {
	c := lightControl(addr, ModePwmFrequency)
	c.Payload[2] = opGet
	return c
}

// SetLightPwmFrequency sets the PWM frequency in Hz (500..10000).
func SetLightPwmFrequency(addr uint16, hz int) Command {
	checkRange("pwm frequency", hz, 500, 10000)
	c := lightControl(addr, ModePwmFrequency)
	c.Payload[2] = opSet
	c.Payload[3] = uint8(hz)
	c.Payload[4] = uint8(hz >> 8)
	return c
}

// GetRGBIndependence asks whether RGB and white channels run independently.
func GetRGBIndependence(addr uint16) Command {
	c := lightControl(addr, ModeChannelMode)
	c.Payload[2] = 0x04
	c.Payload[3] = opGet
	return c
}

// SetRGBIndependence enables or disables independent RGB/white channels.
func SetRGBIndependence(addr uint16, enabled bool) Command {
	c := lightControl(addr, ModeChannelMode)
	c.Payload[2] = 0x04
	c.Payload[3] = opSet
	if enabled {
		c.Payload[4] = 0x01
	}
	return c
}

// SwitchType is the wall switch wiring a node expects.
type SwitchType uint8

// Switch types.
const (
	SwitchNormalOnOff   SwitchType = 0x01
	SwitchPushButton    SwitchType = 0x02
	SwitchThreeChannels SwitchType = 0x03
)

func (s SwitchType) valid() bool {
	return s >= SwitchNormalOnOff && s <= SwitchThreeChannels
}

// GetLightSwitchType asks for the wall switch type.
func GetLightSwitchType(addr uint16) Command {
	c := newCommand(TagAppToNode, addr)
	c.Payload[0] = byte(IdentLightSwitchType)
	c.Payload[1] = opGet
	return c
}

// SetLightSwitchType sets the wall switch type.
func SetLightSwitchType(addr uint16, st SwitchType) Command {
	if !st.valid() {
		panic("wire: unknown switch type")
	}
	c := newCommand(TagAppToNode, addr)
	c.Payload[0] = byte(IdentLightSwitchType)
	c.Payload[1] = opSet
	c.Payload[2] = uint8(st)
	return c
}

// GetTimezone asks for the timezone and today's sunrise/sunset times.
func GetTimezone(addr uint16) Command {
	c := newCommand(TagAppToNode, addr)
	c.Payload[0] = byte(IdentTimezone)
	c.Payload[1] = opGet
	return c
}

// SetTimezone sets the UTC offset, hour 0..12, minute 0..59.
func SetTimezone(addr uint16, hour, minute int, negative bool) Command {
	checkRange("timezone hour", hour, 0, 12)
	checkRange("timezone minute", minute, 0, 59)
	c := newCommand(TagAppToNode, addr)
	c.Payload[0] = byte(IdentTimezone)
	c.Payload[1] = opSet
	c.Payload[2] = uint8(hour)
	if negative {
		c.Payload[2] |= 0x80
	}
	c.Payload[3] = uint8(minute)
	return c
}

// GetLocation asks for the configured geolocation.
func GetLocation(addr uint16) Command {
	c := newCommand(TagAppToNode, addr)
	c.Payload[0] = byte(IdentGetLocation)
	return c
}

// SetLocation sets longitude (-180..180) and latitude (-90..90).
func SetLocation(addr uint16, longitude, latitude float32) Command {
	if longitude < -180 || longitude > 180 || latitude < -90 || latitude > 90 {
		panic("wire: location out of range")
	}
	c := newCommand(TagAppToNode, addr)
	c.Payload[0] = byte(IdentSetLocation)
	binary.LittleEndian.PutUint32(c.Payload[1:5], math.Float32bits(longitude))
	binary.LittleEndian.PutUint32(c.Payload[5:9], math.Float32bits(latitude))
	return c
}

// SunEvent selects sunrise or sunset.
type SunEvent uint8

// Sun events.
const (
	Sunrise SunEvent = SunEvent(IdentSunrise)
	Sunset  SunEvent = SunEvent(IdentSunset)
)

// SunActionType is what a sunrise/sunset rule does.
type SunActionType uint8

// Sunrise/sunset action types.
const (
	SunActionOnOff  SunActionType = 0x00
	SunActionScene  SunActionType = 0x01
	SunActionCustom SunActionType = 0x02

	// sunActionQuery is not a valid action type; it marks a read request.
	sunActionQuery uint8 = 0x7F
)

// SunAction is a sunrise or sunset rule.
type SunAction struct {
	Event   SunEvent
	Type    SunActionType
	Enabled bool

	// on/off
	On bool

	// scene
	SceneID uint8

	// custom
	Brightness uint8
	Color      Color
	CtOrW      uint8

	// Duration is the transition time in seconds (on/off and custom).
	Duration uint16
}

// GetSunAction asks for the sunrise or sunset rule.
func GetSunAction(addr uint16, ev SunEvent) Command {
	checkSunEvent(ev)
	c := newCommand(TagAppToNode, addr)
	c.Payload[0] = byte(ev)
	c.Payload[1] = sunActionQuery | 0x80
	return c
}

// SetSunAction stores a sunrise or sunset rule.
func SetSunAction(addr uint16, a SunAction) Command {
	checkSunEvent(a.Event)
	c := newCommand(TagAppToNode, addr)
	c.Payload[0] = byte(a.Event)
	c.Payload[1] = uint8(a.Type)
	if !a.Enabled {
		c.Payload[1] |= 0x80
	}
	switch a.Type {
	case SunActionOnOff:
		if a.On {
			c.Payload[2] = 0x01
		}
		c.Payload[6] = uint8(a.Duration)
		c.Payload[7] = uint8(a.Duration >> 8)
	case SunActionScene:
		checkRange("scene id", int(a.SceneID), 1, 16)
		c.Payload[2] = a.SceneID
	case SunActionCustom:
		checkRange("brightness", int(a.Brightness), 0, 100)
		c.Payload[2] = a.Brightness
		c.Payload[3] = a.Color.Red
		c.Payload[4] = a.Color.Green
		c.Payload[5] = a.Color.Blue
		c.Payload[6] = a.CtOrW
		c.Payload[7] = uint8(a.Duration)
		c.Payload[8] = uint8(a.Duration >> 8)
	default:
		panic("wire: unknown sun action type")
	}
	return c
}

func checkSunEvent(ev SunEvent) {
	if ev != Sunrise && ev != Sunset {
		panic("wire: sun event must be Sunrise or Sunset")
	}
}
