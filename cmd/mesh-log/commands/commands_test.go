package commands

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telinkmesh/telinkmesh-go/pkg/log"
	"github.com/telinkmesh/telinkmesh-go/pkg/mesh"
	"github.com/telinkmesh/telinkmesh-go/pkg/wire"
)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.mlog")

	logger, err := log.NewFileLogger(path)
	require.NoError(t, err)
	for _, e := range events {
		logger.Log(e)
	}
	require.NoError(t, logger.Close())
	return path
}

var ts = time.Date(2026, 3, 14, 9, 30, 0, 250000000, time.UTC)

const conn = "abc12345-6789-0123-4567-890abcdef012"

func frameAt(cmd wire.Command, seq uint32) wire.Frame {
	return cmd.EncodeWith(wire.NewSequence(seq - 1))
}

func statusFrame() wire.Frame {
	cmd := wire.Command{Src: 5, Tag: wire.TagLightStatus, Param: 5}
	cmd.Payload[0], cmd.Payload[1] = 1, 80
	return frameAt(cmd, 43)
}

func sampleEvents() []log.Event {
	node := func(e log.Event) log.Event {
		e.ConnectionID = conn
		e.PeerAddress = "A1:B2:C3:D4:E5:01"
		e.NodeMAC = "C3D4E501"
		e.Address = 5
		e.DeviceType = "LIGHT(0x01/0x35)"
		e.Network = "home"
		return e
	}
	return []log.Event{
		{
			Timestamp: ts,
			Layer:     log.LayerSession,
			Category:  log.CategoryState,
			Network:   "home",
			StateChange: &log.StateChangeEvent{
				Entity:   log.StateEntitySession,
				OldState: "IDLE",
				NewState: "SCANNING",
				Reason:   "scan",
			},
		},
		node(log.Event{
			Timestamp: ts.Add(time.Second),
			Direction: log.DirectionOut,
			Layer:     log.LayerLink,
			Category:  log.CategoryPairing,
			Link:      log.NewLinkEvent("PAIRING", []byte{0x0C, 0x01, 0x02}),
		}),
		node(log.Event{
			Timestamp: ts.Add(2 * time.Second),
			Direction: log.DirectionOut,
			Layer:     log.LayerFrame,
			Category:  log.CategoryCommand,
			Command:   log.NewCommandEvent(frameAt(wire.TurnOnOff(mesh.Broadcast, true, 0), 42), false),
		}),
		node(log.Event{
			Timestamp: ts.Add(3 * time.Second),
			Direction: log.DirectionIn,
			Layer:     log.LayerFrame,
			Category:  log.CategoryCommand,
			Command:   log.NewCommandEvent(statusFrame(), false),
		}),
		node(log.Event{
			Timestamp: ts.Add(4 * time.Second),
			Direction: log.DirectionOut,
			Layer:     log.LayerLink,
			Category:  log.CategoryOTA,
			Link:      log.NewLinkEvent("OTA", make([]byte, 20)),
		}),
		node(log.Event{
			Timestamp: ts.Add(5 * time.Second),
			Direction: log.DirectionOut,
			Layer:     log.LayerFrame,
			Category:  log.CategoryCommand,
			Command:   log.NewCommandEvent(frameAt(wire.SetBrightness(5, 40), 44), true),
		}),
		node(log.Event{
			Timestamp: ts.Add(6 * time.Second),
			Layer:     log.LayerSession,
			Category:  log.CategoryError,
			Error: &log.ErrorEventData{
				Layer:   log.LayerSession,
				Message: "login timed out",
				Context: "login",
			},
		}),
	}
}

func TestFormatEvent(t *testing.T) {
	events := sampleEvents()

	var buf bytes.Buffer
	formatEvent(&buf, events[2])
	for _, want := range []string{
		"2026-03-14T09:30:02.250000Z", "[conn:abc12345]", "OUT", "FRAME", "ON_OFF",
		"Node: A1:B2:C3:D4:E5:01", "Address: 5", "Seq: 42", "Dst: broadcast", "Param: 0x01",
	} {
		assert.Contains(t, buf.String(), want)
	}

	buf.Reset()
	formatEvent(&buf, events[3])
	assert.Contains(t, buf.String(), "LIGHT_STATUS")
	assert.Contains(t, buf.String(), "DeviceStatusReport:")
	assert.Contains(t, buf.String(), "Brightness:80")

	buf.Reset()
	formatEvent(&buf, events[5])
	assert.Contains(t, buf.String(), "Dst: 0x0005  Param: 0x28  (sample)")
	assert.NotContains(t, buf.String(), "Report")

	buf.Reset()
	formatEvent(&buf, events[0])
	assert.Contains(t, buf.String(), "SESSION: IDLE -> SCANNING")

	buf.Reset()
	formatEvent(&buf, events[6])
	assert.Contains(t, buf.String(), "login timed out")
	assert.Contains(t, buf.String(), "While: login")
}

func TestFormatUndecodableFrame(t *testing.T) {
	f := statusFrame()
	f[8], f[9] = 0, 0
	event := log.Event{Timestamp: ts, Command: log.NewCommandEvent(f, false)}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	assert.Contains(t, buf.String(), "Undecodable frame")
}

func TestFormatTruncatedLink(t *testing.T) {
	event := log.Event{Timestamp: ts, Link: log.NewLinkEvent("OTA", make([]byte, log.MaxLinkCapture+10))}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	assert.Contains(t, buf.String(), "(truncated)")
	assert.Contains(t, buf.String(), "50 bytes")
}

func TestRunViewFilters(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	require.NoError(t, RunView(path, FilterOptions{Layer: "link"}, &buf))
	assert.Equal(t, 2, strings.Count(buf.String(), "[conn:"))
	assert.NotContains(t, buf.String(), "SCANNING")

	buf.Reset()
	require.NoError(t, RunView(path, FilterOptions{Tag: "brightness", Dst: "5"}, &buf))
	assert.Equal(t, 1, strings.Count(buf.String(), "[conn:"))
	assert.Contains(t, buf.String(), "BRIGHTNESS")

	assert.Error(t, RunView(path, FilterOptions{Tag: "dim"}, io.Discard))
}

func TestFilterOptions(t *testing.T) {
	f, err := FilterOptions{
		Layer:     "FRAME",
		Direction: "in",
		Category:  "ota",
		Tag:       "0xD0",
		Dst:       "0xFFFF",
		TimeStart: "2026-03-14T09:30:00Z",
	}.Filter()
	require.NoError(t, err)
	assert.Equal(t, log.LayerFrame, *f.Layer)
	assert.Equal(t, log.DirectionIn, *f.Direction)
	assert.Equal(t, log.CategoryOTA, *f.Category)
	assert.Equal(t, wire.TagOnOff, *f.Tag)
	assert.Equal(t, mesh.Broadcast, *f.Dst)
	assert.True(t, f.TimeStart.Equal(ts.Truncate(time.Second)))
	assert.Nil(t, f.TimeEnd)

	for _, bad := range []FilterOptions{
		{Layer: "wire"},
		{Direction: "up"},
		{Category: "message"},
		{Tag: "dim"},
		{Dst: "65536"},
		{Dst: "node5"},
		{TimeStart: "yesterday"},
		{TimeEnd: "tomorrow"},
	} {
		_, err := bad.Filter()
		assert.Error(t, err, "%+v", bad)
	}
}

func TestExportJSONL(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	reader, err := log.NewReader(path)
	require.NoError(t, err)
	defer reader.Close()

	var buf bytes.Buffer
	require.NoError(t, export(reader, "jsonl", &buf))

	var records []map[string]any
	dec := json.NewDecoder(&buf)
	for {
		var m map[string]any
		if err := dec.Decode(&m); err == io.EOF {
			break
		} else {
			require.NoError(t, err)
		}
		records = append(records, m)
	}
	require.Len(t, records, len(sampleEvents()))

	status := records[3]
	assert.Equal(t, "LIGHT_STATUS", status["kind"])
	assert.Equal(t, "43", status["sequence"])
	assert.Equal(t, "0x0005", status["src"])
	assert.Equal(t, "DeviceStatusReport", status["report"])
	assert.Equal(t, "5", status["address"])
	assert.NotContains(t, records[0], "sequence")
}

func TestExportCSV(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	reader, err := log.NewReader(path)
	require.NoError(t, err)
	defer reader.Close()

	var buf bytes.Buffer
	require.NoError(t, export(reader, "csv", &buf))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, len(sampleEvents())+1)
	assert.Equal(t, csvHeader, rows[0])

	col := func(row []string, name string) string {
		for i, h := range csvHeader {
			if h == name {
				return row[i]
			}
		}
		t.Fatalf("no column %s", name)
		return ""
	}
	onOff := rows[3]
	assert.Equal(t, "ON_OFF", col(onOff, "kind"))
	assert.Equal(t, "42", col(onOff, "sequence"))
	assert.Equal(t, "broadcast", col(onOff, "dst"))
	assert.Equal(t, "0x01", col(onOff, "param"))
	assert.Equal(t, "IDLE -> SCANNING", col(rows[1], "detail"))
	assert.Equal(t, "0c0102", col(rows[2], "payload"))
}

func TestExportUnknownFormat(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	reader, err := log.NewReader(path)
	require.NoError(t, err)
	defer reader.Close()

	assert.Error(t, export(reader, "xml", io.Discard))
}

func TestRunExportFiltered(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "frames.csv")

	require.NoError(t, RunExport(path, "csv", out, FilterOptions{Layer: "frame"}))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 4, "header and three frames")
}

func TestRunFilter(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	out := filepath.Join(t.TempDir(), "out", "node.mlog")

	n, err := RunFilter(path, out, FilterOptions{NodeMAC: "c3d4e501"})
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	stats, err := Collect(out)
	require.NoError(t, err)
	assert.Equal(t, 6, stats.TotalEvents)

	broadcast := filepath.Join(t.TempDir(), "broadcast.mlog")
	n, err = RunFilter(path, broadcast, FilterOptions{Dst: "0xFFFF"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = RunFilter(path, out, FilterOptions{TimeStart: "yesterday"})
	assert.Error(t, err)
}

func TestStats(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	stats, err := Collect(path)
	require.NoError(t, err)
	assert.Equal(t, 7, stats.TotalEvents)
	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, map[string]int{"ON_OFF": 1, "LIGHT_STATUS": 1, "BRIGHTNESS": 1}, stats.Tags)
	assert.Equal(t, map[uint16]int{mesh.Broadcast: 1, 5: 1}, stats.Destinations)
	assert.Equal(t, map[string]int{"DeviceStatusReport": 1}, stats.Reports)

	require.Len(t, stats.Connections, 1)
	c := stats.Connections[conn]
	require.NotNil(t, c)
	assert.Equal(t, 6, c.Events)
	assert.Equal(t, 1, c.OtaWrites)
	assert.Equal(t, uint16(5), c.Address)
	assert.Equal(t, "LIGHT(0x01/0x35)", c.DeviceType)

	var buf bytes.Buffer
	require.NoError(t, RunStats(path, &buf))
	for _, want := range []string{
		"Total Events: 7", "LINK:", "OTA:", "Commands by Destination:", "broadcast:",
		"Reports:", "DeviceStatusReport:", "Connections: 1", "address 5", "Network: home", "Errors: 1",
	} {
		assert.Contains(t, buf.String(), want)
	}
}
