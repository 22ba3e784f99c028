package session

import (
	"context"
	"time"

	"github.com/telinkmesh/telinkmesh-go/pkg/log"
	"github.com/telinkmesh/telinkmesh-go/pkg/meshcrypto"
	"github.com/telinkmesh/telinkmesh-go/pkg/transport"
	"github.com/telinkmesh/telinkmesh-go/pkg/wire"
)

// outbound is a command taken off a queue together with the link state it
// is sent under.
type outbound struct {
	cmd    wire.Command
	sample bool
	link   transport.Link
	key    meshcrypto.Key
	mac    []byte
	pacing time.Duration
}

// Send queues cmd for transmission. Commands are sent in order, one per
// pacing interval. Commands sent while not Ready are dropped.
func (s *Session) Send(cmd wire.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.readyLocked(); err != nil {
		s.logger.Debug("Session: dropping command", "cmd", cmd, "error", err)
		return err
	}
	s.queue = append(s.queue, cmd)
	s.signalLocked()
	return nil
}

// SendSample queues cmd as a sample. A sample that has not been sent yet is
// replaced by a later sample with the same key, keeping its place in line.
// Samples go out after all ordinary commands.
func (s *Session) SendSample(cmd wire.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.readyLocked(); err != nil {
		return err
	}
	key := cmd.SampleKey()
	if _, pending := s.samples[key]; !pending {
		s.order = append(s.order, key)
	}
	s.samples[key] = cmd
	s.signalLocked()
	return nil
}

func (s *Session) readyLocked() error {
	if s.closed {
		return ErrClosed
	}
	if s.state != StateReady {
		return ErrNotReady
	}
	return nil
}

func (s *Session) signalLocked() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// sendLoop transmits queued commands, pausing after each write.
func (s *Session) sendLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.wake:
		case <-s.done:
			return
		}
		for {
			out, ok := s.nextOutbound()
			if !ok {
				break
			}
			s.transmit(out)

			t := time.NewTimer(out.pacing)
			select {
			case <-t.C:
			case <-s.done:
				t.Stop()
				return
			}
		}
	}
}

// nextOutbound pops the next command, ordinary commands first.
func (s *Session) nextOutbound() (outbound, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateReady || s.link == nil {
		return outbound{}, false
	}

	var out outbound
	switch {
	case len(s.queue) > 0:
		out.cmd = s.queue[0]
		s.queue = s.queue[1:]
	case len(s.order) > 0:
		key := s.order[0]
		s.order = s.order[1:]
		out.cmd = s.samples[key]
		out.sample = true
		delete(s.samples, key)
	default:
		return outbound{}, false
	}

	out.link = s.link
	out.key = s.key
	out.mac = s.node.CryptoMAC()
	out.pacing = s.pacingLocked()
	return out, true
}

func (s *Session) transmit(out outbound) {
	frame := out.cmd.EncodeWith(s.seq)
	s.capture.Command(log.DirectionOut, frame, out.sample)

	data := s.crypto.EncryptCommand(frame, out.mac, out.key)
	s.capture.Link(log.DirectionOut, transport.RoleCommand.String(), data)

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.WriteTimeout)
	defer cancel()
	if err := out.link.Write(ctx, transport.RoleCommand, data, false); err != nil {
		s.logger.Warn("Session: command write failed", "cmd", out.cmd, "error", err)
		s.capture.Error(log.LayerLink, "command write", err)
	}
}
