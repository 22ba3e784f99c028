package wire

import (
	"fmt"
	"strconv"
	"strings"
)

// Tag selects the command or notification carried by a frame.
type Tag uint8

// Command and notification tags.
const (
	TagAppToNode        Tag = 0xEA
	TagNodeToApp        Tag = 0xEB
	TagLightStatus      Tag = 0xDC
	TagOnOff            Tag = 0xD0
	TagBrightness       Tag = 0xD2
	TagSingleChannel    Tag = 0xE2
	TagReplaceAddress   Tag = 0xE0
	TagAddressNotify    Tag = 0xE1
	TagResetNetwork     Tag = 0xE3
	TagSyncDatetime     Tag = 0xE4
	TagGetDatetime      Tag = 0xE8
	TagDatetimeResponse Tag = 0xE9
	TagGetFirmware      Tag = 0xC7
	TagFirmwareResponse Tag = 0xC8
	TagGetGroups        Tag = 0xDD
	TagGroupsResponse   Tag = 0xD4
	TagGroupAction      Tag = 0xD7
	TagScene            Tag = 0xEE
	TagLoadScene        Tag = 0xEF
	TagGetScene         Tag = 0xC0
	TagSceneResponse    Tag = 0xC1
	TagGetAlarm         Tag = 0xE6
	TagAlarmResponse    Tag = 0xE7
	TagEditAlarm        Tag = 0xE5
)

var tagNames = map[Tag]string{
	TagAppToNode:        "APP_TO_NODE",
	TagNodeToApp:        "NODE_TO_APP",
	TagLightStatus:      "LIGHT_STATUS",
	TagOnOff:            "ON_OFF",
	TagBrightness:       "BRIGHTNESS",
	TagSingleChannel:    "SINGLE_CHANNEL",
	TagReplaceAddress:   "REPLACE_ADDRESS",
	TagAddressNotify:    "ADDRESS_NOTIFY",
	TagResetNetwork:     "RESET_NETWORK",
	TagSyncDatetime:     "SYNC_DATETIME",
	TagGetDatetime:      "GET_DATETIME",
	TagDatetimeResponse: "DATETIME_RESPONSE",
	TagGetFirmware:      "GET_FIRMWARE",
	TagFirmwareResponse: "FIRMWARE_RESPONSE",
	TagGetGroups:        "GET_GROUPS",
	TagGroupsResponse:   "GROUPS_RESPONSE",
	TagGroupAction:      "GROUP_ACTION",
	TagScene:            "SCENE",
	TagLoadScene:        "LOAD_SCENE",
	TagGetScene:         "GET_SCENE",
	TagSceneResponse:    "SCENE_RESPONSE",
	TagGetAlarm:         "GET_ALARM",
	TagAlarmResponse:    "ALARM_RESPONSE",
	TagEditAlarm:        "EDIT_ALARM",
}

// Known reports whether t is part of the protocol.
func (t Tag) Known() bool {
	_, ok := tagNames[t]
	return ok
}

// String returns the tag name.
func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(0x%02X)", uint8(t))
}

// ParseTag accepts a tag name such as on_off, or the raw byte as 0xD0.
func ParseTag(s string) (Tag, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseUint(s[2:], 16, 8)
		if err != nil {
			return 0, fmt.Errorf("invalid tag %q: %w", s, err)
		}
		return Tag(v), nil
	}
	name := strings.ToUpper(s)
	for t, n := range tagNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown tag %q", s)
}

// Identifier is the secondary selector stored in payload[0] of app-to-node
// and node-to-app frames.
type Identifier uint8

// Identifiers.
const (
	IdentLightControlMode Identifier = 0x01
	IdentLightSwitchType  Identifier = 0x07
	IdentSpecial          Identifier = 0x12
	IdentSetLocation      Identifier = 0x1A
	IdentSunrise          Identifier = 0x1B
	IdentSunset           Identifier = 0x1C
	IdentGetLocation      Identifier = 0x1D
	IdentTimezone         Identifier = 0x1E
	IdentMAC              Identifier = 0x76
)

// ControlMode is the sub-selector in payload[1] of light control mode frames.
type ControlMode uint8

// Light control modes.
const (
	ModeGetRunningMode    ControlMode = 0x00
	ModeCustomRunningMode ControlMode = 0x01
	ModeRunningSpeed      ControlMode = 0x03
	ModeSetRunningMode    ControlMode = 0x05
	ModeChannelMode       ControlMode = 0x07
	ModePwmFrequency      ControlMode = 0x0A
	ModeOnOffDuration     ControlMode = 0x0F
)

// Channel is the param of single channel frames.
type Channel uint8

// Channels.
const (
	ChannelRed              Channel = 0x01
	ChannelGreen            Channel = 0x02
	ChannelBlue             Channel = 0x03
	ChannelRGB              Channel = 0x04
	ChannelColorTemperature Channel = 0x05
)

// get/set markers used inside light control payloads.
const (
	opGet uint8 = 0x00
	opSet uint8 = 0x01
)
