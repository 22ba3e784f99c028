package log

import (
	"context"
	"fmt"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger.
// Useful for development when you want to see protocol events in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("conn_id", event.ConnectionID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}

	if event.NodeMAC != "" {
		attrs = append(attrs, slog.String("mac", event.NodeMAC), slog.Uint64("addr", uint64(event.Address)))
	}
	if event.Network != "" {
		attrs = append(attrs, slog.String("network", event.Network))
	}

	switch {
	case event.Link != nil:
		attrs = append(attrs,
			slog.String("characteristic", event.Link.Characteristic),
			slog.Int("size", event.Link.Size),
			slog.String("data", fmt.Sprintf("% X", event.Link.Data)),
		)
		if event.Link.Truncated {
			attrs = append(attrs, slog.Bool("truncated", true))
		}
	case event.Command != nil:
		cmd, seq, ok := event.Command.Decode()
		if !ok {
			attrs = append(attrs, slog.String("frame", fmt.Sprintf("% X", event.Command.Frame)))
			break
		}
		attrs = append(attrs,
			slog.Uint64("seq", uint64(seq)),
			slog.String("tag", cmd.Tag.String()),
			slog.Uint64("src", uint64(cmd.Src)),
			slog.Uint64("dst", uint64(cmd.Dst)),
			slog.Uint64("param", uint64(cmd.Param)),
			slog.String("payload", fmt.Sprintf("% X", cmd.Payload[:])),
		)
		if event.Command.Sample {
			attrs = append(attrs, slog.Bool("sample", true))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "protocol", attrs...)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
