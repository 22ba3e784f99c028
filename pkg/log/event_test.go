package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telinkmesh/telinkmesh-go/pkg/mesh"
	"github.com/telinkmesh/telinkmesh-go/pkg/wire"
)

var light = mesh.Node{
	PeerAddress:  "C4:AC:05:42:11:02",
	MAC:          [4]byte{0xA1, 0xB2, 0xC3, 0xD4},
	ShortAddress: 5,
	DeviceType:   mesh.NewDeviceType(mesh.RawTypeLight, 0x35),
}

// frameAt encodes cmd with sequence number seq.
func frameAt(cmd wire.Command, seq uint32) wire.Frame {
	return cmd.EncodeWith(wire.NewSequence(seq - 1))
}

func statusFrame() wire.Frame {
	cmd := wire.Command{Src: 5, Tag: wire.TagLightStatus, Param: 5}
	cmd.Payload[0], cmd.Payload[1] = 1, 80
	return frameAt(cmd, 42)
}

func TestEventRoundTrip(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 123456789, time.UTC)
	for _, e := range []Event{
		{
			Timestamp:    ts,
			ConnectionID: "abc12345-def6-7890-abcd-ef1234567890",
			Direction:    DirectionIn,
			Layer:        LayerFrame,
			Category:     CategoryCommand,
			PeerAddress:  light.PeerAddress,
			NodeMAC:      light.MACString(),
			Address:      5,
			DeviceType:   light.DeviceType.String(),
			Network:      "home",
			Command:      NewCommandEvent(statusFrame(), false),
		},
		{Timestamp: ts, Layer: LayerSession, Category: CategoryState, StateChange: &StateChangeEvent{Entity: StateEntityPairing, OldState: "CONNECTING", NewState: "ADDRESS_CHANGING", Reason: "timeout"}},
		{Timestamp: ts, Layer: LayerLink, Category: CategoryError, Error: &ErrorEventData{Layer: LayerLink, Message: "write failed", Context: "ota chunk 3"}},
		{Timestamp: ts, Layer: LayerLink, Category: CategoryOTA, Link: NewLinkEvent("OTA", make([]byte, 20))},
	} {
		data, err := EncodeEvent(e)
		require.NoError(t, err)
		got, err := DecodeEvent(data)
		require.NoError(t, err)

		assert.True(t, got.Timestamp.Equal(ts))
		got.Timestamp = ts
		assert.Equal(t, e, got)
	}
}

func TestCommandEventDecodes(t *testing.T) {
	ce := NewCommandEvent(statusFrame(), false)

	cmd, seq, ok := ce.Decode()
	require.True(t, ok)
	assert.Equal(t, uint32(42), seq)
	assert.Equal(t, uint16(5), cmd.Src)
	assert.Equal(t, "LIGHT_STATUS", ce.TagName())

	n, ok := ce.Report()
	require.True(t, ok)
	report, ok := n.(wire.DeviceStatusReport)
	require.True(t, ok)
	require.Len(t, report.Devices, 1)
	assert.Equal(t, wire.DeviceOn, report.Devices[0].State)
	assert.Equal(t, uint8(80), report.Devices[0].Brightness)

	out := NewCommandEvent(frameAt(wire.TurnOnOff(mesh.Broadcast, true, 0), 7), true)
	_, ok = out.Report()
	assert.False(t, ok, "on/off carries no report")
	assert.Equal(t, "ON_OFF", Event{Command: out}.Kind())
}

func TestCommandEventUndecodable(t *testing.T) {
	f := statusFrame()
	f[7] = 0x42
	ce := NewCommandEvent(f, false)
	_, _, ok := ce.Decode()
	assert.False(t, ok)
	assert.Equal(t, "TAG_0x42", ce.TagName())

	assert.Equal(t, "INVALID", (&CommandEvent{Frame: []byte{1, 2}}).TagName())
}

func TestEventKind(t *testing.T) {
	assert.Equal(t, "PAIRING", Event{Link: NewLinkEvent("PAIRING", nil)}.Kind())
	assert.Equal(t, "State", Event{StateChange: &StateChangeEvent{}}.Kind())
	assert.Equal(t, "Error", Event{Error: &ErrorEventData{}}.Kind())
	assert.Equal(t, "Unknown", Event{}.Kind())
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "IN", DirectionIn.String())
	assert.Equal(t, "OUT", DirectionOut.String())
	assert.Equal(t, "UNKNOWN", Direction(9).String())

	assert.Equal(t, "LINK", LayerLink.String())
	assert.Equal(t, "FRAME", LayerFrame.String())
	assert.Equal(t, "SESSION", LayerSession.String())
	assert.Equal(t, "UNKNOWN", Layer(9).String())

	assert.Equal(t, "COMMAND", CategoryCommand.String())
	assert.Equal(t, "PAIRING", CategoryPairing.String())
	assert.Equal(t, "STATE", CategoryState.String())
	assert.Equal(t, "ERROR", CategoryError.String())
	assert.Equal(t, "OTA", CategoryOTA.String())
	assert.Equal(t, "UNKNOWN", Category(9).String())

	assert.Equal(t, "SESSION", StateEntitySession.String())
	assert.Equal(t, "PAIRING", StateEntityPairing.String())
	assert.Equal(t, "OTA", StateEntityOTA.String())
}

func TestNewLinkEventTruncates(t *testing.T) {
	le := NewLinkEvent("OTA", make([]byte, 100))
	assert.Equal(t, 100, le.Size)
	assert.Len(t, le.Data, MaxLinkCapture)
	assert.True(t, le.Truncated)

	src := []byte{1, 2, 3}
	le = NewLinkEvent("COMMAND", src)
	src[0] = 9
	assert.Equal(t, []byte{1, 2, 3}, le.Data, "data is copied")
	assert.False(t, le.Truncated)
}

type recordingLogger struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingLogger) Log(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func TestTee(t *testing.T) {
	assert.Equal(t, NoopLogger{}, Tee())
	assert.Equal(t, NoopLogger{}, Tee(nil, nil))

	a, b := &recordingLogger{}, &recordingLogger{}
	assert.Same(t, a, Tee(nil, a))

	Tee(a, nil, NoopLogger{}, b).Log(Event{ConnectionID: "x"})
	require.Len(t, a.events, 1)
	require.Len(t, b.events, 1)
	assert.Equal(t, "x", b.events[0].ConnectionID)
}

func TestCaptureStampsConnection(t *testing.T) {
	rec := &recordingLogger{}
	c := NewCapture(rec)

	c.State(StateEntitySession, "IDLE", "SCANNING", "")
	id := c.Begin(light, "home")
	assert.Equal(t, id, c.ConnectionID())
	c.Link(DirectionOut, "PAIRING", []byte{0x0C})
	c.Command(DirectionOut, frameAt(wire.TurnOnOff(5, true, 0), 42), true)
	c.Error(LayerLink, "write", errors.New("boom"))
	c.Error(LayerLink, "ignored", nil)
	c.End()
	c.State(StateEntitySession, "READY", "IDLE", "disconnect")

	require.Len(t, rec.events, 5)
	assert.Empty(t, rec.events[0].ConnectionID)
	assert.Empty(t, rec.events[0].NodeMAC)

	link := rec.events[1]
	assert.Equal(t, id, link.ConnectionID)
	assert.Equal(t, CategoryPairing, link.Category)
	assert.Equal(t, "A1B2C3D4", link.NodeMAC)
	assert.Equal(t, uint16(5), link.Address)
	assert.Equal(t, light.DeviceType.String(), link.DeviceType)
	assert.Equal(t, "home", link.Network)

	ce := rec.events[2].Command
	require.NotNil(t, ce)
	cmd, seq, ok := ce.Decode()
	require.True(t, ok)
	assert.Equal(t, uint32(42), seq)
	assert.Equal(t, wire.TagOnOff, cmd.Tag)
	assert.Equal(t, uint16(5), cmd.Dst)
	assert.True(t, ce.Sample)

	assert.Equal(t, "boom", rec.events[3].Error.Message)

	after := rec.events[4]
	assert.Empty(t, after.ConnectionID)
	assert.Empty(t, after.PeerAddress)
	assert.Zero(t, after.Address)
	assert.Equal(t, "home", after.Network, "network survives the connection")
	assert.False(t, after.Timestamp.IsZero())
}

func TestCaptureWithNilLogger(t *testing.T) {
	c := NewCapture(nil)
	c.Begin(light, "home")
	c.Link(DirectionIn, "NOTIFY", []byte{1})
}

func TestSlogAdapterLogsCommand(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	adapter := NewSlogAdapter(slog.New(handler))

	adapter.Log(Event{
		ConnectionID: "conn-123",
		Direction:    DirectionIn,
		Layer:        LayerFrame,
		Category:     CategoryCommand,
		NodeMAC:      "A1B2C3D4",
		Address:      5,
		Command:      NewCommandEvent(statusFrame(), false),
	})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "protocol", entry["msg"])
	assert.Equal(t, "conn-123", entry["conn_id"])
	assert.Equal(t, "FRAME", entry["layer"])
	assert.Equal(t, "LIGHT_STATUS", entry["tag"])
	assert.Equal(t, "A1B2C3D4", entry["mac"])
	assert.Equal(t, float64(5), entry["addr"])
	assert.Equal(t, float64(42), entry["seq"])
	assert.Equal(t, float64(5), entry["src"])
}

func TestSlogAdapterLogsStateAndError(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	adapter := NewSlogAdapter(slog.New(handler))

	adapter.Log(Event{Layer: LayerSession, Category: CategoryState, StateChange: &StateChangeEvent{Entity: StateEntityOTA, NewState: "DATA_SENDING"}})
	adapter.Log(Event{Layer: LayerLink, Category: CategoryError, Error: &ErrorEventData{Layer: LayerLink, Message: "gone"}})

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)

	var state, fail map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &state))
	require.NoError(t, json.Unmarshal(lines[1], &fail))
	assert.Equal(t, "OTA", state["entity"])
	assert.Equal(t, "DATA_SENDING", state["new_state"])
	assert.Equal(t, "gone", fail["error_msg"])
}

func TestSlogAdapterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})
	NewSlogAdapter(slog.New(handler)).Log(Event{ConnectionID: "x"})
	assert.Zero(t, buf.Len())
}
