package mesh

import (
	"fmt"
	"strings"
	"time"
)

// Category is the closed set of device families.
type Category uint8

const (
	CategoryUnsupported Category = iota
	CategoryLight
	CategoryRemote
	CategorySensor
	CategoryTransmitter
	CategoryPeripheral
	CategoryCurtain
	CategoryOutlet
	CategoryBridge
	CategoryRFPA
	CategoryCustomPanel
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryLight:
		return "LIGHT"
	case CategoryRemote:
		return "REMOTE"
	case CategorySensor:
		return "SENSOR"
	case CategoryTransmitter:
		return "TRANSMITTER"
	case CategoryPeripheral:
		return "PERIPHERAL"
	case CategoryCurtain:
		return "CURTAIN"
	case CategoryOutlet:
		return "OUTLET"
	case CategoryBridge:
		return "BRIDGE"
	case CategoryRFPA:
		return "RF_PA"
	case CategoryCustomPanel:
		return "CUSTOM_PANEL"
	default:
		return "UNSUPPORTED"
	}
}

// Capabilities is a set of light control flags.
type Capabilities uint8

const (
	CapOnOff Capabilities = 1 << iota
	CapBrightness
	CapColorTemperature
	CapWhite
	CapRGB
)

// Has reports whether every flag of c is set.
func (cs Capabilities) Has(c Capabilities) bool {
	return cs&c == c
}

// String lists the set flags.
func (cs Capabilities) String() string {
	if cs == 0 {
		return "NONE"
	}
	var names []string
	for _, e := range []struct {
		flag Capabilities
		name string
	}{
		{CapOnOff, "ON_OFF"},
		{CapBrightness, "BRIGHTNESS"},
		{CapColorTemperature, "COLOR_TEMPERATURE"},
		{CapWhite, "WHITE"},
		{CapRGB, "RGB"},
	} {
		if cs.Has(e.flag) {
			names = append(names, e.name)
		}
	}
	return strings.Join(names, "|")
}

// Raw device type values found in the product id of an advertisement.
const (
	RawTypeLight       uint8 = 0x01
	RawTypeSensor      uint8 = 0x04
	RawTypeTransmitter uint8 = 0x05
	RawTypePeripheral  uint8 = 0x06
	RawTypeCurtain     uint8 = 0x07
	RawTypeOutlet      uint8 = 0x08
	RawTypeCustomPanel uint8 = 0x15
	RawTypeBridge      uint8 = 0x50

	// LightSubTypeRFPA is the light sub type used by RF power amplifier repeaters.
	LightSubTypeRFPA uint8 = 0x3A
)

// Pacing intervals between two outbound commands.
const (
	DefaultPacingInterval = 200 * time.Millisecond
	RFPAPacingInterval    = 500 * time.Millisecond
)

var remoteTypes = map[uint8]bool{
	0x02: true, 0x03: true, 0x0A: true, 0x0B: true, 0x0C: true,
	0x0D: true, 0x0E: true, 0x12: true, 0x13: true, 0x14: true,
}

var lightCapabilities = map[uint8]Capabilities{
	0x08: CapOnOff, // endpoint 6 PWM
	0x11: CapOnOff | CapBrightness,
	0x12: CapOnOff,
	0x13: CapOnOff | CapBrightness,
	0x14: CapOnOff,
	0x30: CapOnOff,
	0x31: CapOnOff | CapBrightness,
	0x32: CapOnOff | CapBrightness | CapColorTemperature,
	0x33: CapOnOff | CapBrightness | CapRGB,
	0x34: CapOnOff | CapBrightness | CapWhite | CapRGB,
	0x35: CapOnOff | CapBrightness | CapColorTemperature | CapRGB,
	0x36: CapOnOff, // DTW
	0x37: CapOnOff, // channel 6 PWM
	0x38: CapOnOff | CapBrightness,
	0x39: CapOnOff | CapBrightness | CapColorTemperature,
	0x3A: 0,
}

// DeviceType is the (type, sub type) pair advertised by a node.
// It is immutable; Category and Capabilities are table lookups.
type DeviceType struct {
	RawType    uint8
	RawSubType uint8
}

// NewDeviceType returns the device type for the raw pair.
func NewDeviceType(rawType, rawSubType uint8) DeviceType {
	return DeviceType{RawType: rawType, RawSubType: rawSubType}
}

// Category returns the device family.
func (d DeviceType) Category() Category {
	switch {
	case d.RawType == RawTypeLight && d.RawSubType == LightSubTypeRFPA:
		return CategoryRFPA
	case d.RawType == RawTypeLight:
		return CategoryLight
	case remoteTypes[d.RawType]:
		return CategoryRemote
	}
	switch d.RawType {
	case RawTypeSensor:
		return CategorySensor
	case RawTypeTransmitter:
		return CategoryTransmitter
	case RawTypePeripheral:
		return CategoryPeripheral
	case RawTypeCurtain:
		return CategoryCurtain
	case RawTypeOutlet:
		return CategoryOutlet
	case RawTypeBridge:
		return CategoryBridge
	case RawTypeCustomPanel:
		return CategoryCustomPanel
	default:
		return CategoryUnsupported
	}
}

// Capabilities returns the light controls of the device. Only lights have any.
func (d DeviceType) Capabilities() Capabilities {
	if d.RawType != RawTypeLight {
		return 0
	}
	return lightCapabilities[d.RawSubType]
}

// IsSafeConnection reports whether the session may connect to the device
// without user action. Battery powered devices are excluded since they sleep.
func (d DeviceType) IsSafeConnection() bool {
	switch d.Category() {
	case CategoryLight, CategoryCurtain, CategoryOutlet, CategoryBridge, CategoryRFPA, CategoryTransmitter, CategoryPeripheral:
		return true
	default:
		return false
	}
}

// SupportsSingleAdd reports whether single device pairing accepts the device.
func (d DeviceType) SupportsSingleAdd() bool {
	return d.Category() != CategoryUnsupported
}

// SupportsMeshAdd reports whether batch pairing accepts the device.
func (d DeviceType) SupportsMeshAdd() bool {
	switch d.Category() {
	case CategoryLight, CategoryCurtain, CategoryOutlet, CategoryBridge, CategoryRFPA, CategoryTransmitter, CategoryPeripheral:
		return true
	default:
		return false
	}
}

// PacingInterval returns the minimum gap between two commands sent through
// a node of this type.
func (d DeviceType) PacingInterval() time.Duration {
	if d.Category() == CategoryRFPA {
		return RFPAPacingInterval
	}
	return DefaultPacingInterval
}

// String returns a compact description such as "LIGHT(0x01/0x35)".
func (d DeviceType) String() string {
	return fmt.Sprintf("%s(0x%02X/0x%02X)", d.Category(), d.RawType, d.RawSubType)
}
