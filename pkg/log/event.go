package log

import (
	"fmt"
	"time"

	"github.com/telinkmesh/telinkmesh-go/pkg/wire"
)

// Event is one captured protocol event.
type Event struct {
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID names one BLE connection. Events outside a connection,
	// such as scanning, carry none.
	ConnectionID string `cbor:"2,keyasint"`

	Direction Direction `cbor:"3,keyasint"`
	Layer     Layer     `cbor:"4,keyasint"`
	Category  Category  `cbor:"5,keyasint"`

	// Node identity as advertised when the connection began.
	PeerAddress string `cbor:"6,keyasint,omitempty"`
	NodeMAC     string `cbor:"7,keyasint,omitempty"`
	Address     uint16 `cbor:"8,keyasint,omitempty"`
	DeviceType  string `cbor:"9,keyasint,omitempty"`

	// Network is the mesh network name in use.
	Network string `cbor:"10,keyasint,omitempty"`

	// Exactly one payload is set.
	Link        *LinkEvent        `cbor:"20,keyasint,omitempty"`
	Command     *CommandEvent     `cbor:"21,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"22,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"23,keyasint,omitempty"`
}

// Kind returns the label of the payload: the tag name for commands.
func (e Event) Kind() string {
	switch {
	case e.Link != nil:
		return e.Link.Characteristic
	case e.Command != nil:
		return e.Command.TagName()
	case e.StateChange != nil:
		return "State"
	case e.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

// Direction of the traffic relative to this host.
type Direction uint8

const (
	DirectionIn  Direction = 0
	DirectionOut Direction = 1
)

func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer is where the event was captured.
type Layer uint8

const (
	// LayerLink is characteristic traffic as written: encrypted commands
	// and notifications, pairing and OTA writes.
	LayerLink Layer = 0
	// LayerFrame is plaintext 20-byte frames.
	LayerFrame Layer = 1
	// LayerSession is the session and the orchestrators on top of it.
	LayerSession Layer = 2
)

func (l Layer) String() string {
	switch l {
	case LayerLink:
		return "LINK"
	case LayerFrame:
		return "FRAME"
	case LayerSession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event.
type Category uint8

const (
	CategoryCommand Category = 0
	CategoryPairing Category = 1
	CategoryState   Category = 2
	CategoryError   Category = 3
	CategoryOTA     Category = 4
)

func (c Category) String() string {
	switch c {
	case CategoryCommand:
		return "COMMAND"
	case CategoryPairing:
		return "PAIRING"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	case CategoryOTA:
		return "OTA"
	default:
		return "UNKNOWN"
	}
}

// categoryOf maps a characteristic role name to the capture category.
func categoryOf(characteristic string) Category {
	switch characteristic {
	case "PAIRING":
		return CategoryPairing
	case "OTA":
		return CategoryOTA
	default:
		return CategoryCommand
	}
}

// MaxLinkCapture bounds the bytes kept in a LinkEvent. Every mesh write
// fits; longer values only come from misbehaving peers.
const MaxLinkCapture = 2 * wire.FrameSize

// LinkEvent is one characteristic write or notification.
type LinkEvent struct {
	// Characteristic is the role name: NOTIFY, COMMAND, PAIRING, OTA or
	// FIRMWARE.
	Characteristic string `cbor:"1,keyasint"`

	Size      int    `cbor:"2,keyasint"`
	Data      []byte `cbor:"3,keyasint,omitempty"`
	Truncated bool   `cbor:"4,keyasint,omitempty"`
}

// NewLinkEvent copies data, keeping at most MaxLinkCapture bytes.
func NewLinkEvent(characteristic string, data []byte) *LinkEvent {
	keep := min(len(data), MaxLinkCapture)
	return &LinkEvent{
		Characteristic: characteristic,
		Size:           len(data),
		Data:           append([]byte(nil), data[:keep]...),
		Truncated:      keep < len(data),
	}
}

// CommandEvent is a plaintext mesh frame. Inbound frames have bytes 5 and 6
// zeroed, where the authentication tag travelled.
type CommandEvent struct {
	Frame []byte `cbor:"1,keyasint"`

	// Sample marks commands that went through the sample queue.
	Sample bool `cbor:"2,keyasint,omitempty"`
}

// NewCommandEvent copies frame.
func NewCommandEvent(frame wire.Frame, sample bool) *CommandEvent {
	return &CommandEvent{Frame: append([]byte(nil), frame[:]...), Sample: sample}
}

// Decode parses the captured frame.
func (c *CommandEvent) Decode() (wire.Command, uint32, bool) {
	return wire.Decode(c.Frame)
}

// Report decodes the notification the frame carries, if any.
func (c *CommandEvent) Report() (wire.Notification, bool) {
	cmd, _, ok := c.Decode()
	if !ok {
		return nil, false
	}
	return wire.ParseNotification(cmd)
}

// TagName returns the symbolic tag, or the raw tag byte when the frame
// does not decode.
func (c *CommandEvent) TagName() string {
	if cmd, _, ok := c.Decode(); ok {
		return cmd.Tag.String()
	}
	if len(c.Frame) == wire.FrameSize {
		return fmt.Sprintf("TAG_0x%02X", c.Frame[7])
	}
	return "INVALID"
}

// StateChangeEvent is a lifecycle transition.
type StateChangeEvent struct {
	Entity   StateEntity `cbor:"1,keyasint"`
	OldState string      `cbor:"2,keyasint,omitempty"`
	NewState string      `cbor:"3,keyasint"`
	Reason   string      `cbor:"4,keyasint,omitempty"`
}

// StateEntity is what changed state.
type StateEntity uint8

const (
	StateEntitySession StateEntity = 0
	StateEntityPairing StateEntity = 1
	StateEntityOTA     StateEntity = 2
)

func (s StateEntity) String() string {
	switch s {
	case StateEntitySession:
		return "SESSION"
	case StateEntityPairing:
		return "PAIRING"
	case StateEntityOTA:
		return "OTA"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData is a failure at any layer.
type ErrorEventData struct {
	Layer   Layer  `cbor:"1,keyasint"`
	Message string `cbor:"2,keyasint"`

	// Context names the operation that failed.
	Context string `cbor:"3,keyasint,omitempty"`
}
