package wire

import (
	"encoding/binary"
	"math"
	"strings"
	"time"

	"github.com/telinkmesh/telinkmesh-go/pkg/mesh"
)

// Notification is a typed report decoded from an inbound frame.
type Notification interface {
	// From returns the address of the reporting node.
	From() uint16
}

// Source is embedded in every report.
type Source struct {
	Address uint16
}

// From returns the address of the reporting node.
func (s Source) From() uint16 { return s.Address }

// DeviceState is the power state of a device in a status report.
type DeviceState uint8

// Device states.
const (
	DeviceOffline DeviceState = iota
	DeviceOn
	DeviceOff
)

// String returns the state name.
func (s DeviceState) String() string {
	switch s {
	case DeviceOn:
		return "ON"
	case DeviceOff:
		return "OFF"
	default:
		return "OFFLINE"
	}
}

// DeviceStatus is one entry of a light status report.
type DeviceStatus struct {
	Address    uint8
	State      DeviceState
	Brightness uint8
}

// DeviceStatusReport lists up to two devices per frame.
type DeviceStatusReport struct {
	Source
	Devices []DeviceStatus
}

// MACReport answers RequestMACDeviceType.
type MACReport struct {
	Source
	DeviceType mesh.DeviceType
	// MAC is most significant byte first.
	MAC [6]byte
}

// MACValue returns the four low MAC bytes as an integer, matching
// mesh.Node.MACValue for the same device.
func (r MACReport) MACValue() uint32 {
	return binary.BigEndian.Uint32(r.MAC[2:6])
}

// AddressReport confirms an address change. NewAddress is the address the
// node now answers on.
type AddressReport struct {
	Source
	NewAddress uint16
}

// DatetimeReport carries the node clock.
type DatetimeReport struct {
	Source
	Time time.Time
}

// FirmwareReport carries the firmware version string.
type FirmwareReport struct {
	Source
	Version string
}

// GroupsReport lists the groups of a node as group addresses.
type GroupsReport struct {
	Source
	Groups []uint16
}

// SceneReport carries one stored scene.
type SceneReport struct {
	Source
	Scene Scene
}

// AlarmReport carries one stored alarm.
type AlarmReport struct {
	Source
	Alarm Alarm
}

// OnOffDurationReport carries the on/off fade time in seconds.
type OnOffDurationReport struct {
	Source
	Seconds uint16
}

// RunningModeReport carries the running light effect state.
type RunningModeReport struct {
	Source
	Mode RunningMode
}

// CustomModeIDsReport lists the stored custom running modes.
type CustomModeIDsReport struct {
	Source
	IDs []int
}

// CustomModeColorReport carries one color of a custom running mode.
type CustomModeColorReport struct {
	Source
	ID    int
	Count int
	Index int
	Color Color
}

// PwmFrequencyReport carries the PWM frequency in Hz.
type PwmFrequencyReport struct {
	Source
	Hz int
}

// RGBIndependenceReport tells whether RGB and white run independently.
type RGBIndependenceReport struct {
	Source
	Enabled bool
}

// SwitchTypeReport carries the wall switch type.
type SwitchTypeReport struct {
	Source
	Type SwitchType
}

// TimezoneReport carries the UTC offset and today's sun times.
type TimezoneReport struct {
	Source
	Hour          int
	Minute        int
	Negative      bool
	SunriseHour   int
	SunriseMinute int
	SunsetHour    int
	SunsetMinute  int
}

// LocationReport carries the configured geolocation.
type LocationReport struct {
	Source
	Longitude float32
	Latitude  float32
}

// SunActionReport carries a sunrise or sunset rule.
type SunActionReport struct {
	Source
	Action SunAction
}

// ParseNotification decodes the report carried by c. It returns false for
// frames that carry no report, including unknown identifiers.
func ParseNotification(c Command) (Notification, bool) {
	src := Source{Address: c.Src}
	switch c.Tag {
	case TagLightStatus:
		return parseLightStatus(src, c)
	case TagNodeToApp, TagAppToNode:
		return parseNodeToApp(src, c)
	case TagAddressNotify:
		return AddressReport{Source: src, NewAddress: uint16(c.Param)}, true
	case TagDatetimeResponse:
		return parseDatetime(src, c)
	case TagFirmwareResponse:
		return parseFirmware(src, c), true
	case TagGroupsResponse:
		return parseGroups(src, c)
	case TagSceneResponse:
		return parseScene(src, c)
	case TagAlarmResponse:
		return parseAlarm(src, c)
	default:
		return nil, false
	}
}

func parseLightStatus(src Source, c Command) (Notification, bool) {
	r := DeviceStatusReport{Source: src}
	entries := [2][3]uint8{
		{c.Param, c.Payload[0], c.Payload[1]},
		{c.Payload[3], c.Payload[4], c.Payload[5]},
	}
	for _, e := range entries {
		if e[0] == 0 {
			continue
		}
		st := DeviceOffline
		if e[1] != 0 {
			st = DeviceOff
			if e[2] > 0 {
				st = DeviceOn
			}
		}
		r.Devices = append(r.Devices, DeviceStatus{Address: e[0], State: st, Brightness: e[2]})
	}
	if len(r.Devices) == 0 {
		return nil, false
	}
	return r, true
}

func parseNodeToApp(src Source, c Command) (Notification, bool) {
	p := c.Payload
	switch Identifier(p[0]) {
	case IdentMAC:
		r := MACReport{Source: src, DeviceType: mesh.NewDeviceType(p[1], p[2])}
		for i := 0; i < 6; i++ {
			r.MAC[i] = p[8-i]
		}
		return r, true
	case IdentLightControlMode:
		return parseLightControl(src, c)
	case IdentLightSwitchType:
		st := SwitchType(p[2])
		if !st.valid() {
			return nil, false
		}
		return SwitchTypeReport{Source: src, Type: st}, true
	case IdentTimezone:
		return parseTimezone(src, c)
	case IdentGetLocation:
		return parseLocation(src, c)
	case IdentSunrise, IdentSunset:
		return parseSunAction(src, c)
	default:
		return nil, false
	}
}

func parseLightControl(src Source, c Command) (Notification, bool) {
	p := c.Payload
	switch ControlMode(p[1]) {
	case ModeOnOffDuration:
		if p[2] != opGet {
			return nil, false
		}
		return OnOffDurationReport{Source: src, Seconds: uint16(p[3]) | uint16(p[4])<<8}, true
	case ModeGetRunningMode:
		st := RunningState(p[3])
		if st > RunningCustom {
			return nil, false
		}
		return RunningModeReport{Source: src, Mode: RunningMode{
			Speed:         p[2],
			State:         st,
			DefaultModeID: p[4],
			CustomModeID:  p[5],
			CustomType:    CustomModeType(p[6]),
		}}, true
	case ModeCustomRunningMode:
		if p[2] != opGet {
			return nil, false
		}
		if p[3] == 0x00 {
			mask := int(p[4])<<8 | int(p[5])
			r := CustomModeIDsReport{Source: src, IDs: []int{}}
			for i := 0; i < 16; i++ {
				if mask&(1<<i) != 0 {
					r.IDs = append(r.IDs, i+1)
				}
			}
			return r, true
		}
		if p[3] > 0x10 {
			return nil, false
		}
		return CustomModeColorReport{
			Source: src,
			ID:     int(p[3]),
			Count:  int(p[4]),
			Index:  int(p[5]),
			Color:  Color{Red: p[6], Green: p[7], Blue: p[8]},
		}, true
	case ModePwmFrequency:
		hz := int(p[4])<<8 | int(p[3])
		if hz == 0 {
			return nil, false
		}
		return PwmFrequencyReport{Source: src, Hz: hz}, true
	case ModeChannelMode:
		if p[2] != 0x04 || p[3] != opGet {
			return nil, false
		}
		return RGBIndependenceReport{Source: src, Enabled: p[4] == 0x01}, true
	default:
		return nil, false
	}
}

func parseTimezone(src Source, c Command) (Notification, bool) {
	p := c.Payload
	if allZero(p[2:9]) {
		return nil, false
	}
	return TimezoneReport{
		Source:        src,
		Hour:          int(p[2] & 0x7F),
		Negative:      p[2]&0x80 != 0,
		Minute:        int(p[3]),
		SunriseHour:   int(p[5]),
		SunriseMinute: int(p[6]),
		SunsetHour:    int(p[7]),
		SunsetMinute:  int(p[8]),
	}, true
}

func parseLocation(src Source, c Command) (Notification, bool) {
	p := c.Payload
	if allZero(p[1:5]) || allZero(p[5:9]) {
		return nil, false
	}
	return LocationReport{
		Source:    src,
		Longitude: math.Float32frombits(binary.LittleEndian.Uint32(p[1:5])),
		Latitude:  math.Float32frombits(binary.LittleEndian.Uint32(p[5:9])),
	}, true
}

func parseSunAction(src Source, c Command) (Notification, bool) {
	p := c.Payload
	a := SunAction{
		Event:   SunEvent(p[0]),
		Type:    SunActionType(p[1] & 0x7F),
		Enabled: p[1]&0x80 == 0,
	}
	switch a.Type {
	case SunActionOnOff:
		a.On = p[2] == 0x01
		a.Duration = uint16(p[6]) | uint16(p[7])<<8
	case SunActionScene:
		a.SceneID = p[2]
	case SunActionCustom:
		a.Brightness = p[2]
		a.Color = Color{Red: p[3], Green: p[4], Blue: p[5]}
		a.CtOrW = p[6]
		a.Duration = uint16(p[7]) | uint16(p[8])<<8
	default:
		return nil, false
	}
	return SunActionReport{Source: src, Action: a}, true
}

func parseDatetime(src Source, c Command) (Notification, bool) {
	p := c.Payload
	year := int(c.Param) | int(p[0])<<8
	month, day := int(p[1]), int(p[2])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return nil, false
	}
	t := time.Date(year, time.Month(month), day, int(p[3]), int(p[4]), int(p[5]), 0, time.Local)
	return DatetimeReport{Source: src, Time: t}, true
}

func parseFirmware(src Source, c Command) Notification {
	v := strings.TrimRight(string(c.Payload[0:4]), "\x00")
	if !strings.Contains(v, "V") {
		v = "V0.1"
	}
	return FirmwareReport{Source: src, Version: v}
}

func parseGroups(src Source, c Command) (Notification, bool) {
	if c.Param == 0xFF {
		return nil, false
	}
	groups := []uint16{uint16(c.Param) | mesh.GroupFlag}
	seen := map[uint16]bool{groups[0]: true}
	for _, b := range c.Payload {
		if b == 0xFF {
			continue
		}
		g := uint16(b) | mesh.GroupFlag
		if seen[g] {
			continue
		}
		seen[g] = true
		groups = append(groups, g)
	}
	return GroupsReport{Source: src, Groups: groups}, true
}

func parseScene(src Source, c Command) (Notification, bool) {
	if c.Param < 1 || c.Param > 16 {
		return nil, false
	}
	p := c.Payload
	return SceneReport{Source: src, Scene: Scene{
		ID:         c.Param,
		Brightness: p[0],
		Color:      Color{Red: p[1], Green: p[2], Blue: p[3]},
		CtOrW:      p[4],
		Duration:   uint16(p[5]) | uint16(p[6])<<8,
	}}, true
}

// parseAlarm reads an alarm response. The payload mirrors the edit alarm
// layout; an id of 0 means the node has no alarm to report.
func parseAlarm(src Source, c Command) (Notification, bool) {
	p := c.Payload
	if p[0] < 1 || p[0] > 16 {
		return nil, false
	}
	a := Alarm{
		ID:      p[0],
		Action:  AlarmAction(p[1] & 0x0F),
		Type:    AlarmType((p[1] >> 4) & 0x07),
		Enabled: p[1]&0x80 != 0,
		Month:   p[2],
		Hour:    p[4],
		Minute:  p[5],
		Second:  p[6],
		SceneID: p[7],
	}
	if a.Action > AlarmScene || a.Type > AlarmWeek {
		return nil, false
	}
	if a.Type == AlarmWeek {
		a.Week = p[3]
	} else {
		a.Day = p[3]
	}
	return AlarmReport{Source: src, Alarm: a}, true
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
