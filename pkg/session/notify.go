package session

import (
	"github.com/telinkmesh/telinkmesh-go/pkg/log"
	"github.com/telinkmesh/telinkmesh-go/pkg/transport"
	"github.com/telinkmesh/telinkmesh-go/pkg/wire"
)

// onNotify decodes a notification of generation gen and queues the event
// it maps to. Frames that fail any check are dropped.
func (s *Session) onNotify(gen uint64, data []byte) {
	if len(data) != wire.FrameSize {
		s.logger.Debug("Session: dropping notification", "size", len(data))
		return
	}
	// Nodes emit an all-zero sequence while settling after login.
	if data[0]|data[1]|data[2] == 0 {
		return
	}

	s.mu.Lock()
	if s.gen != gen || !s.loggedIn {
		s.mu.Unlock()
		return
	}
	key, node := s.key, s.node
	s.mu.Unlock()

	s.capture.Link(log.DirectionIn, transport.RoleNotify.String(), data)

	frame, ok := s.crypto.DecryptNotification(data, node.CryptoMAC(), key)
	if !ok {
		s.logger.Debug("Session: notification failed authentication")
		return
	}
	// Bytes 5 and 6 carry the authentication tag, not a destination.
	frame[5], frame[6] = 0, 0

	cmd, _, ok := wire.Decode(frame[:])
	if !ok {
		s.logger.Debug("Session: unknown notification", "tag", frame[7])
		return
	}
	s.capture.Command(log.DirectionIn, frame, false)

	n, ok := wire.ParseNotification(cmd)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return
	}
	s.enqueueLocked(Event{Type: eventTypeFor(n), Node: node, Notification: n})
}
