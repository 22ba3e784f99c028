package wire

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"
)

// Frame constants.
const (
	// FrameSize is the size of every application frame.
	FrameSize = 20

	// PayloadSize is the size of the payload field.
	PayloadSize = 9

	// DefaultParam is the param of commands that carry no argument in it.
	// Nodes use it as the number of times the command is repeated over RF.
	DefaultParam uint8 = 0x10

	// MaxSequence is the largest value of the 24-bit sequence counter.
	MaxSequence uint32 = 0xFFFFFF

	vendorHi uint8 = 0x11
	vendorLo uint8 = 0x02
)

// Frame is a raw 20-byte application frame.
type Frame [FrameSize]byte

// Seq returns the sequence number of the frame.
func (f Frame) Seq() uint32 {
	return uint32(f[0])<<16 | uint32(f[1])<<8 | uint32(f[2])
}

// Command is an application frame without its sequence number.
type Command struct {
	Src     uint16
	Dst     uint16
	Tag     Tag
	Param   uint8
	Payload [PayloadSize]byte
}

// newCommand returns a command with the default param.
func newCommand(tag Tag, dst uint16) Command {
	return Command{Tag: tag, Dst: dst, Param: DefaultParam}
}

// Sequence is a 24-bit frame counter that wraps from 0xFFFFFF to 0.
// It is safe for concurrent use.
type Sequence struct {
	v atomic.Uint32
}

// NewSequence returns a counter whose next value follows start.
func NewSequence(start uint32) *Sequence {
	s := &Sequence{}
	s.v.Store(start & MaxSequence)
	return s
}

// Next advances the counter and returns the new value.
func (s *Sequence) Next() uint32 {
	for {
		cur := s.v.Load()
		next := (cur + 1) & MaxSequence
		if s.v.CompareAndSwap(cur, next) {
			return next
		}
	}
}

// DefaultSequence is the process-wide counter shared by every session.
var DefaultSequence = NewSequence(0)

// Encode stamps the next value of DefaultSequence and returns the frame.
func (c Command) Encode() Frame {
	return c.EncodeWith(DefaultSequence)
}

// EncodeWith stamps the next value of seq and returns the frame.
func (c Command) EncodeWith(seq *Sequence) Frame {
	return c.encodeSeq(seq.Next())
}

func (c Command) encodeSeq(n uint32) Frame {
	var f Frame
	f[0] = byte(n >> 16)
	f[1] = byte(n >> 8)
	f[2] = byte(n)
	binary.LittleEndian.PutUint16(f[3:5], c.Src)
	binary.LittleEndian.PutUint16(f[5:7], c.Dst)
	f[7] = byte(c.Tag)
	f[8] = vendorHi
	f[9] = vendorLo
	f[10] = c.Param
	copy(f[11:], c.Payload[:])
	return f
}

// Decode parses a frame. It returns false when data is not exactly 20
// bytes long, lacks the mesh vendor id or carries an unknown tag.
func Decode(data []byte) (Command, uint32, bool) {
	if !vendorMatches(data) {
		return Command{}, 0, false
	}
	tag := Tag(data[7])
	if !tag.Known() {
		return Command{}, 0, false
	}
	c := Command{
		Src:   binary.LittleEndian.Uint16(data[3:5]),
		Dst:   binary.LittleEndian.Uint16(data[5:7]),
		Tag:   tag,
		Param: data[10],
	}
	copy(c.Payload[:], data[11:FrameSize])
	seq := uint32(data[0])<<16 | uint32(data[1])<<8 | uint32(data[2])
	return c, seq, true
}

// vendorMatches reports whether data is a frame carrying the mesh vendor id.
func vendorMatches(data []byte) bool {
	return len(data) == FrameSize && data[8] == vendorHi && data[9] == vendorLo
}

// SampleKey identifies the logical control a command drives. Two sample
// commands with the same key overwrite each other in the sample queue.
type SampleKey struct {
	Dst     uint16
	Tag     Tag
	Channel uint8
}

// SampleKey returns the coalescing key of the command.
func (c Command) SampleKey() SampleKey {
	k := SampleKey{Dst: c.Dst, Tag: c.Tag}
	switch c.Tag {
	case TagSingleChannel:
		k.Channel = c.Param
		if Channel(c.Param) == ChannelColorTemperature {
			// color temperature and white share the param and differ in payload[1]
			k.Channel = c.Param | c.Payload[1]
		}
	case TagAppToNode:
		k.Channel = c.Payload[0]
	}
	return k
}

// String returns a compact description for logs.
func (c Command) String() string {
	return fmt.Sprintf("%s src=%d dst=0x%04X param=0x%02X payload=% X", c.Tag, c.Src, c.Dst, c.Param, c.Payload[:])
}
