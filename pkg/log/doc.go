// Package log provides structured protocol capture for mesh sessions.
//
// It is separate from operational logging (slog): a capture is a complete,
// machine-readable trace of what went over the air, for debugging pairing
// and control problems after the fact.
//
// # Basic Usage
//
//	file, _ := log.NewFileLogger("/var/log/meshctl/session.mlog")
//	defer file.Close()
//	cfg.ProtocolLogger = log.Tee(file, log.NewSlogAdapter(logger))
//
// # Event Types
//
//   - Link: characteristic bytes as written (LinkEvent), still encrypted
//   - Frame: plaintext 20-byte frames (CommandEvent), decoded with pkg/wire
//     when read back
//   - Session: state changes of the session, pairing runs and OTA
//
// Events inside a connection carry the node's peer address, MAC, mesh
// address and device type as seen when the connection began.
//
// # File Format
//
// Capture files are a stream of CBOR events with the .mlog extension.
// The mesh-log CLI views, filters, summarizes and exports them.
package log
