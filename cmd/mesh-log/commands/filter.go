package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/telinkmesh/telinkmesh-go/pkg/log"
	"github.com/telinkmesh/telinkmesh-go/pkg/wire"
)

// FilterOptions holds the selection flags shared by view, export and
// filter, as typed on the command line.
type FilterOptions struct {
	ConnID    string
	NodeMAC   string
	Network   string
	TimeStart string
	TimeEnd   string
	Layer     string
	Direction string
	Category  string

	// Tag is a tag name such as ON_OFF or a raw byte such as 0xD0.
	Tag string
	// Dst is a mesh address in decimal or 0x hex. 0xFFFF is broadcast.
	Dst string
}

// Filter parses the options.
func (o FilterOptions) Filter() (log.Filter, error) {
	f := log.Filter{ConnectionID: o.ConnID, NodeMAC: o.NodeMAC, Network: o.Network}

	if o.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, o.TimeStart)
		if err != nil {
			return f, fmt.Errorf("invalid time-start: %w", err)
		}
		f.TimeStart = &t
	}
	if o.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, o.TimeEnd)
		if err != nil {
			return f, fmt.Errorf("invalid time-end: %w", err)
		}
		f.TimeEnd = &t
	}
	if o.Layer != "" {
		l, err := parseLayer(o.Layer)
		if err != nil {
			return f, err
		}
		f.Layer = &l
	}
	if o.Direction != "" {
		d, err := parseDirection(o.Direction)
		if err != nil {
			return f, err
		}
		f.Direction = &d
	}
	if o.Category != "" {
		c, err := parseCategory(o.Category)
		if err != nil {
			return f, err
		}
		f.Category = &c
	}
	if o.Tag != "" {
		tag, err := wire.ParseTag(o.Tag)
		if err != nil {
			return f, err
		}
		f.Tag = &tag
	}
	if o.Dst != "" {
		v, err := strconv.ParseUint(o.Dst, 0, 16)
		if err != nil {
			return f, fmt.Errorf("invalid dst %q: %w", o.Dst, err)
		}
		dst := uint16(v)
		f.Dst = &dst
	}
	return f, nil
}

func parseLayer(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "link":
		return log.LayerLink, nil
	case "frame":
		return log.LayerFrame, nil
	case "session":
		return log.LayerSession, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be link, frame, or session)", s)
	}
}

func parseDirection(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

func parseCategory(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "command":
		return log.CategoryCommand, nil
	case "pairing":
		return log.CategoryPairing, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	case "ota":
		return log.CategoryOTA, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be command, pairing, state, error, or ota)", s)
	}
}

// RunFilter copies the matching events of the capture at path into output
// and returns how many were written.
func RunFilter(path, output string, opts FilterOptions) (int, error) {
	filter, err := opts.Filter()
	if err != nil {
		return 0, err
	}
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to open capture: %w", err)
	}
	defer reader.Close()

	out, err := log.NewFileLogger(output)
	if err != nil {
		return 0, err
	}
	err = reader.Each(func(e log.Event) error {
		out.Log(e)
		return out.Err()
	})
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return out.Written(), err
}
