package commands

import (
	"cmp"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/telinkmesh/telinkmesh-go/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Tags              map[string]int
	Destinations      map[uint16]int // outbound frames per destination
	Reports           map[string]int // decoded inbound notifications by type
	Connections       map[string]*ConnectionStats
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// ConnectionStats holds statistics for a single connection.
type ConnectionStats struct {
	FirstSeen  time.Time
	LastSeen   time.Time
	Events     int
	Peer       string
	NodeMAC    string
	Address    uint16
	DeviceType string
	Network    string
	OtaWrites  int
}

// Collect reads every event of the file into Stats.
func Collect(path string) (*Stats, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Tags:              make(map[string]int),
		Destinations:      make(map[uint16]int),
		Reports:           make(map[string]int),
		Connections:       make(map[string]*ConnectionStats),
	}

	err = reader.Each(func(event log.Event) error {
		stats.add(event)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read event: %w", err)
	}
	return stats, nil
}

func (stats *Stats) add(event log.Event) {
	stats.TotalEvents++
	stats.EventsByLayer[event.Layer]++
	stats.EventsByCategory[event.Category]++
	stats.EventsByDirection[event.Direction]++

	if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
		stats.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(stats.TimeRange.End) {
		stats.TimeRange.End = event.Timestamp
	}

	if event.Command != nil {
		stats.Tags[event.Kind()]++
		if cmd, _, ok := event.Command.Decode(); ok && event.Direction == log.DirectionOut {
			stats.Destinations[cmd.Dst]++
		}
		if n, ok := event.Command.Report(); ok && event.Direction == log.DirectionIn {
			stats.Reports[reportName(n)]++
		}
	}
	if event.Error != nil {
		stats.Errors++
	}

	if event.ConnectionID == "" {
		return
	}
	conn, ok := stats.Connections[event.ConnectionID]
	if !ok {
		conn = &ConnectionStats{
			FirstSeen:  event.Timestamp,
			LastSeen:   event.Timestamp,
			Peer:       event.PeerAddress,
			NodeMAC:    event.NodeMAC,
			Address:    event.Address,
			DeviceType: event.DeviceType,
			Network:    event.Network,
		}
		stats.Connections[event.ConnectionID] = conn
	}
	conn.Events++
	if event.Timestamp.After(conn.LastSeen) {
		conn.LastSeen = event.Timestamp
	}
	if event.Category == log.CategoryOTA && event.Link != nil {
		conn.OtaWrites++
	}
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	stats, err := Collect(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Mesh Capture Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		start, end := stats.TimeRange.Start, stats.TimeRange.End
		fmt.Fprintf(w, "Time Range: %s to %s (%s)\n", start.Format(time.RFC3339), end.Format(time.RFC3339), end.Sub(start).Round(time.Second))
	}
	fmt.Fprintf(w, "Total Events: %d\n\n", stats.TotalEvents)

	printCounts(w, "Events by Layer", stats.EventsByLayer, log.Layer.String)
	printCounts(w, "Events by Category", stats.EventsByCategory, log.Category.String)
	printCounts(w, "Events by Direction", stats.EventsByDirection, log.Direction.String)
	printCounts(w, "Commands by Tag", stats.Tags, identity)
	printCounts(w, "Commands by Destination", stats.Destinations, address)
	printCounts(w, "Reports", stats.Reports, identity)

	fmt.Fprintf(w, "Connections: %d\n", len(stats.Connections))
	ids := slices.SortedFunc(maps.Keys(stats.Connections), func(a, b string) int {
		return stats.Connections[a].FirstSeen.Compare(stats.Connections[b].FirstSeen)
	})
	for _, id := range ids {
		c := stats.Connections[id]
		fmt.Fprintf(w, "  [%s] %d events over %s\n", shortenConnID(id), c.Events, c.LastSeen.Sub(c.FirstSeen).Round(time.Millisecond))
		if c.Peer != "" {
			fmt.Fprintf(w, "    %s  MAC %s  address %d  %s\n", c.Peer, c.NodeMAC, c.Address, c.DeviceType)
		}
		if c.Network != "" {
			fmt.Fprintf(w, "    Network: %s\n", c.Network)
		}
		if c.OtaWrites > 0 {
			fmt.Fprintf(w, "    OTA writes: %d\n", c.OtaWrites)
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintf(w, "\nErrors: %d\n", stats.Errors)
	}
}

// printCounts prints the counts of m under title in key order. Empty maps
// print nothing.
func printCounts[K cmp.Ordered](w io.Writer, title string, m map[K]int, label func(K) string) {
	if len(m) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	for _, k := range slices.Sorted(maps.Keys(m)) {
		fmt.Fprintf(w, "  %-24s %d\n", label(k)+":", m[k])
	}
	fmt.Fprintln(w)
}

func identity(s string) string { return s }
