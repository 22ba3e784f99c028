package commands

import (
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/telinkmesh/telinkmesh-go/pkg/log"
)

// record is one exported row. Frame fields are filled from the decoded
// plaintext frame and stay empty for other events.
type record struct {
	Timestamp    string `json:"timestamp"`
	ConnectionID string `json:"connection_id,omitempty"`
	Direction    string `json:"direction"`
	Layer        string `json:"layer"`
	Category     string `json:"category"`
	Peer         string `json:"peer,omitempty"`
	NodeMAC      string `json:"node_mac,omitempty"`
	Address      string `json:"address,omitempty"`
	Network      string `json:"network,omitempty"`
	Kind         string `json:"kind"`
	Sequence     string `json:"sequence,omitempty"`
	Src          string `json:"src,omitempty"`
	Dst          string `json:"dst,omitempty"`
	Param        string `json:"param,omitempty"`
	Payload      string `json:"payload,omitempty"`
	Report       string `json:"report,omitempty"`
	Detail       string `json:"detail,omitempty"`
}

var csvHeader = []string{
	"timestamp", "connection_id", "direction", "layer", "category", "peer", "node_mac", "address",
	"network", "kind", "sequence", "src", "dst", "param", "payload", "report", "detail",
}

func (r record) row() []string {
	return []string{
		r.Timestamp, r.ConnectionID, r.Direction, r.Layer, r.Category, r.Peer, r.NodeMAC, r.Address,
		r.Network, r.Kind, r.Sequence, r.Src, r.Dst, r.Param, r.Payload, r.Report, r.Detail,
	}
}

func newRecord(e log.Event) record {
	r := record{
		Timestamp:    e.Timestamp.UTC().Format(timeLayout),
		ConnectionID: e.ConnectionID,
		Direction:    e.Direction.String(),
		Layer:        e.Layer.String(),
		Category:     e.Category.String(),
		Peer:         e.PeerAddress,
		NodeMAC:      e.NodeMAC,
		Network:      e.Network,
		Kind:         e.Kind(),
	}
	if e.PeerAddress != "" {
		r.Address = strconv.Itoa(int(e.Address))
	}

	switch {
	case e.Link != nil:
		r.Payload = hex.EncodeToString(e.Link.Data)
	case e.Command != nil:
		cmd, seq, ok := e.Command.Decode()
		if !ok {
			r.Payload = hex.EncodeToString(e.Command.Frame)
			break
		}
		r.Sequence = strconv.FormatUint(uint64(seq), 10)
		r.Src = address(cmd.Src)
		r.Dst = address(cmd.Dst)
		r.Param = fmt.Sprintf("0x%02X", cmd.Param)
		r.Payload = hex.EncodeToString(cmd.Payload[:])
		if n, ok := e.Command.Report(); ok && e.Direction == log.DirectionIn {
			r.Report = reportName(n)
			r.Detail = fmt.Sprintf("%+v", n)
		}
	case e.StateChange != nil:
		r.Detail = orDash(e.StateChange.OldState) + " -> " + e.StateChange.NewState
	case e.Error != nil:
		r.Detail = e.Error.Message
	}
	return r
}

// RunExport writes the matching events of the capture at path as JSON lines
// or CSV to output, or to stdout when output is empty.
func RunExport(path, format, output string, opts FilterOptions) error {
	reader, err := openCapture(path, opts)
	if err != nil {
		return err
	}
	defer reader.Close()

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	return export(reader, format, w)
}

func export(reader *log.Reader, format string, w io.Writer) error {
	switch format {
	case "jsonl":
		enc := json.NewEncoder(w)
		return reader.Each(func(e log.Event) error {
			return enc.Encode(newRecord(e))
		})
	case "csv":
		cw := csv.NewWriter(w)
		if err := cw.Write(csvHeader); err != nil {
			return err
		}
		err := reader.Each(func(e log.Event) error {
			return cw.Write(newRecord(e).row())
		})
		cw.Flush()
		if err != nil {
			return err
		}
		return cw.Error()
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}
}
