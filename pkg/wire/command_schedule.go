package wire

// Group operations carried in the param of group action frames.
const (
	groupDelete uint8 = 0x00
	groupAdd    uint8 = 0x01
)

// GetGroups asks for the groups the node belongs to.
func GetGroups(addr uint16) Command {
	c := newCommand(TagGetGroups, addr)
	c.Param = 0x08
	c.Payload[0] = 0x01
	return c
}

// AddGroup puts the node at addr into group (0..254).
func AddGroup(group int, addr uint16) Command {
	return groupAction(group, addr, groupAdd)
}

// DeleteGroup removes the node at addr from group (0..254).
func DeleteGroup(group int, addr uint16) Command {
	return groupAction(group, addr, groupDelete)
}

func groupAction(group int, addr uint16, op uint8) Command {
	checkRange("group", group, 0, 0xFE)
	c := newCommand(TagGroupAction, addr)
	c.Param = op
	c.Payload[0] = uint8(group)
	c.Payload[1] = 0x80
	return c
}

// Scene operations carried in the param of scene frames.
const (
	sceneDelete uint8 = 0x00
	sceneAdd    uint8 = 0x01
)

// Scene is a stored light state.
type Scene struct {
	ID         uint8
	Brightness uint8
	Color      Color
	CtOrW      uint8
	// Duration is the transition time in seconds.
	Duration uint16
}

// AddOrUpdateScene stores scene (id 1..16, brightness 0..100) on the node.
func AddOrUpdateScene(addr uint16, s Scene) Command {
	checkRange("scene id", int(s.ID), 1, 16)
	checkRange("brightness", int(s.Brightness), 0, 100)
	c := newCommand(TagScene, addr)
	c.Param = sceneAdd
	c.Payload[0] = s.ID
	c.Payload[1] = s.Brightness
	c.Payload[2] = s.Color.Red
	c.Payload[3] = s.Color.Green
	c.Payload[4] = s.Color.Blue
	c.Payload[5] = s.CtOrW
	c.Payload[6] = uint8(s.Duration)
	c.Payload[7] = uint8(s.Duration >> 8)
	return c
}

// DeleteScene removes scene id (1..16).
func DeleteScene(addr uint16, id int) Command {
	checkRange("scene id", id, 1, 16)
	c := newCommand(TagScene, addr)
	c.Param = sceneDelete
	c.Payload[0] = uint8(id)
	return c
}

// LoadScene plays scene id (1..16).
func LoadScene(addr uint16, id int) Command {
	checkRange("scene id", id, 1, 16)
	c := newCommand(TagLoadScene, addr)
	c.Param = uint8(id)
	return c
}

// GetSceneDetail asks for the content of scene id (1..16).
func GetSceneDetail(addr uint16, id int) Command {
	checkRange("scene id", id, 1, 16)
	c := newCommand(TagGetScene, addr)
	c.Payload[0] = uint8(id)
	return c
}

// Alarm operations carried in the param of edit alarm frames.
const (
	alarmAdd     uint8 = 0x00
	alarmDelete  uint8 = 0x01
	alarmEnable  uint8 = 0x02
	alarmDisable uint8 = 0x03
	alarmModify  uint8 = 0x04
)

// AlarmAction is what an alarm does when it fires.
type AlarmAction uint8

// Alarm actions.
const (
	AlarmOff   AlarmAction = 0x00
	AlarmOn    AlarmAction = 0x01
	AlarmScene AlarmAction = 0x02
)

// AlarmType selects how the alarm date is interpreted.
type AlarmType uint8

// Alarm types.
const (
	// AlarmDay fires once on Month/Day.
	AlarmDay AlarmType = 0x00
	// AlarmWeek fires on the weekdays set in Week (bit 0 is Sunday).
	AlarmWeek AlarmType = 0x01
)

// Alarm is a scheduled action stored on a node.
type Alarm struct {
	ID      uint8
	Action  AlarmAction
	Type    AlarmType
	Enabled bool
	Month   uint8
	Day     uint8
	Week    uint8
	Hour    uint8
	Minute  uint8
	Second  uint8
	SceneID uint8
}

func (a Alarm) flags() uint8 {
	f := uint8(a.Action)&0x0F | (uint8(a.Type)&0x07)<<4
	if a.Enabled {
		f |= 0x80
	}
	return f
}

func (a Alarm) check() {
	if a.Action > AlarmScene {
		panic("wire: unknown alarm action")
	}
	switch a.Type {
	case AlarmDay:
		checkRange("alarm month", int(a.Month), 1, 12)
		checkRange("alarm day", int(a.Day), 1, 31)
	case AlarmWeek:
		checkRange("alarm week", int(a.Week), 1, 0x7F)
	default:
		panic("wire: unknown alarm type")
	}
	checkRange("alarm hour", int(a.Hour), 0, 23)
	checkRange("alarm minute", int(a.Minute), 0, 59)
	checkRange("alarm second", int(a.Second), 0, 59)
	if a.Action == AlarmScene {
		checkRange("scene id", int(a.SceneID), 1, 16)
	}
}

func editAlarm(addr uint16, op uint8, a Alarm) Command {
	c := newCommand(TagEditAlarm, addr)
	c.Param = op
	c.Payload[0] = a.ID
	c.Payload[1] = a.flags()
	c.Payload[2] = a.Month
	if a.Type == AlarmWeek {
		c.Payload[3] = a.Week
	} else {
		c.Payload[3] = a.Day
	}
	c.Payload[4] = a.Hour
	c.Payload[5] = a.Minute
	c.Payload[6] = a.Second
	c.Payload[7] = a.SceneID
	return c
}

// AddAlarm stores a new alarm. ID 0 lets the node pick a free slot.
func AddAlarm(addr uint16, a Alarm) Command {
	checkRange("alarm id", int(a.ID), 0, 16)
	a.check()
	return editAlarm(addr, alarmAdd, a)
}

// UpdateAlarm replaces alarm a.ID (1..16).
func UpdateAlarm(addr uint16, a Alarm) Command {
	checkRange("alarm id", int(a.ID), 1, 16)
	a.check()
	return editAlarm(addr, alarmModify, a)
}

func alarmOp(addr uint16, op uint8, id int) Command {
	checkRange("alarm id", id, 1, 16)
	c := newCommand(TagEditAlarm, addr)
	c.Param = op
	c.Payload[0] = uint8(id)
	return c
}

// EnableAlarm enables alarm id (1..16).
func EnableAlarm(addr uint16, id int) Command {
	return alarmOp(addr, alarmEnable, id)
}

// DisableAlarm disables alarm id (1..16).
func DisableAlarm(addr uint16, id int) Command {
	return alarmOp(addr, alarmDisable, id)
}

// DeleteAlarm removes alarm id (1..16).
func DeleteAlarm(addr uint16, id int) Command {
	return alarmOp(addr, alarmDelete, id)
}

// GetAlarm asks for alarm id (1..16), or every alarm when id is 0.
func GetAlarm(addr uint16, id int) Command {
	checkRange("alarm id", id, 0, 16)
	c := newCommand(TagGetAlarm, addr)
	c.Payload[0] = uint8(id)
	return c
}
