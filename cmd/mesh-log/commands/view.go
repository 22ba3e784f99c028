// Package commands implements the mesh-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/telinkmesh/telinkmesh-go/pkg/log"
	"github.com/telinkmesh/telinkmesh-go/pkg/mesh"
	"github.com/telinkmesh/telinkmesh-go/pkg/wire"
)

const timeLayout = "2006-01-02T15:04:05.000000Z"

// RunView prints the matching events of the capture at path.
func RunView(path string, opts FilterOptions, w io.Writer) error {
	reader, err := openCapture(path, opts)
	if err != nil {
		return err
	}
	defer reader.Close()

	return reader.Each(func(e log.Event) error {
		formatEvent(w, e)
		return nil
	})
}

func openCapture(path string, opts FilterOptions) (*log.Reader, error) {
	filter, err := opts.Filter()
	if err != nil {
		return nil, err
	}
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture: %w", err)
	}
	return reader, nil
}

func formatEvent(w io.Writer, e log.Event) {
	fmt.Fprintf(w, "%s [conn:%s] %-3s %s %s\n",
		e.Timestamp.UTC().Format(timeLayout), shortenConnID(e.ConnectionID), e.Direction, e.Layer, e.Kind())

	if e.PeerAddress != "" {
		fmt.Fprintf(w, "  Node: %s  MAC: %s  Address: %d  Type: %s\n", e.PeerAddress, e.NodeMAC, e.Address, e.DeviceType)
	}
	if e.Network != "" && e.ConnectionID != "" {
		fmt.Fprintf(w, "  Network: %s\n", e.Network)
	}

	switch {
	case e.Link != nil:
		fmt.Fprintf(w, "  %d bytes: % X", e.Link.Size, e.Link.Data)
		if e.Link.Truncated {
			fmt.Fprint(w, " (truncated)")
		}
		fmt.Fprintln(w)
	case e.Command != nil:
		formatCommand(w, e.Direction, e.Command)
	case e.StateChange != nil:
		sc := e.StateChange
		fmt.Fprintf(w, "  %s: %s -> %s\n", sc.Entity, orDash(sc.OldState), sc.NewState)
		if sc.Reason != "" {
			fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
		}
	case e.Error != nil:
		fmt.Fprintf(w, "  %s error: %s\n", e.Error.Layer, e.Error.Message)
		if e.Error.Context != "" {
			fmt.Fprintf(w, "  While: %s\n", e.Error.Context)
		}
	}
	fmt.Fprintln(w)
}

func formatCommand(w io.Writer, dir log.Direction, ce *log.CommandEvent) {
	cmd, seq, ok := ce.Decode()
	if !ok {
		fmt.Fprintf(w, "  Undecodable frame: % X\n", ce.Frame)
		return
	}
	fmt.Fprintf(w, "  Seq: %d  Src: %s  Dst: %s  Param: 0x%02X", seq, address(cmd.Src), address(cmd.Dst), cmd.Param)
	if ce.Sample {
		fmt.Fprint(w, "  (sample)")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Payload: % X\n", cmd.Payload[:])
	if dir != log.DirectionIn {
		return
	}
	if n, ok := ce.Report(); ok {
		fmt.Fprintf(w, "  %s: %+v\n", reportName(n), n)
	}
}

// address formats a mesh source or destination.
func address(a uint16) string {
	switch {
	case a == mesh.Broadcast:
		return "broadcast"
	case mesh.IsGroupAddress(a):
		return fmt.Sprintf("group 0x%04X", a)
	}
	return fmt.Sprintf("0x%04X", a)
}

// reportName returns the notification type without its package.
func reportName(n wire.Notification) string {
	name := fmt.Sprintf("%T", n)
	return name[strings.LastIndexByte(name, '.')+1:]
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func shortenConnID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}
