package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/telinkmesh/telinkmesh-go/pkg/log"
	"github.com/telinkmesh/telinkmesh-go/pkg/mesh"
	"github.com/telinkmesh/telinkmesh-go/pkg/meshcrypto"
	"github.com/telinkmesh/telinkmesh-go/pkg/transport"
)

// readyLink returns the link of a Ready session with its generation.
func (s *Session) readyLink() (transport.Link, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readyLocked(); err != nil {
		return nil, 0, err
	}
	return s.link, s.gen, nil
}

// SetNetwork moves the connected node into network. The writes run in the
// background and end with EventNetworkSet. isMesh marks the node as part of
// a batch being moved together.
func (s *Session) SetNetwork(network mesh.Network, isMesh bool) error {
	if err := network.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if err := s.readyLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.provisioning {
		s.mu.Unlock()
		return ErrProvisionPending
	}
	s.provisioning = true
	link, key, gen := s.link, s.key, s.gen
	s.mu.Unlock()

	go s.provision(gen, link, key, network, isMesh)
	return nil
}

func (s *Session) provision(gen uint64, link transport.Link, key meshcrypto.Key, network mesh.Network, isMesh bool) {
	err := s.writeNetwork(link, key, network, isMesh)

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.provisioning = false
	if err != nil {
		s.logger.Warn("Session: set network failed", "network", network.Name, "error", err)
		s.capture.Error(log.LayerSession, "set network", err)
	} else {
		s.logger.Info("Session: network set", "network", network.Name, "node", s.node)
		s.network = network
	}
	s.enqueueLocked(Event{Type: EventNetworkSet, Node: s.node, Network: network, Err: err})
	s.mu.Unlock()

	// Nodes report their firmware once the new network is in place.
	s.readFirmware(gen, link)
}

func (s *Session) writeNetwork(link transport.Link, key meshcrypto.Key, network mesh.Network, isMesh bool) error {
	for i, p := range meshcrypto.NetworkPackets(s.crypto, key, network, isMesh) {
		if i > 0 && s.cfg.NetworkWriteInterval > 0 {
			t := time.NewTimer(s.cfg.NetworkWriteInterval)
			select {
			case <-t.C:
			case <-s.done:
				t.Stop()
				return ErrClosed
			}
		}
		if err := s.pairingWrite(link, p); err != nil {
			return fmt.Errorf("network write %d: %w", i, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.WriteTimeout)
	defer cancel()
	resp, err := link.Read(ctx, transport.RolePairing)
	if err != nil {
		return fmt.Errorf("network confirm: %w", err)
	}
	s.capture.Link(log.DirectionIn, transport.RolePairing.String(), resp)
	if !meshcrypto.NetworkConfirmed(resp) {
		return ErrNetworkRejected
	}
	return nil
}

func (s *Session) pairingWrite(link transport.Link, data []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.WriteTimeout)
	defer cancel()
	s.capture.Link(log.DirectionOut, transport.RolePairing.String(), data)
	return link.Write(ctx, transport.RolePairing, data, true)
}

// ReadFirmware reads the firmware revision of the connected node in the
// background. The result arrives as EventFirmwareRead.
func (s *Session) ReadFirmware() error {
	link, gen, err := s.readyLink()
	if err != nil {
		return err
	}
	go s.readFirmware(gen, link)
	return nil
}

func (s *Session) readFirmware(gen uint64, link transport.Link) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.WriteTimeout)
	defer cancel()

	b, err := link.Read(ctx, transport.RoleFirmware)
	if err != nil {
		s.logger.Debug("Session: firmware read failed", "error", err)
		return
	}
	version := strings.TrimRight(string(b), "\x00 ")

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return
	}
	s.enqueueLocked(Event{Type: EventFirmwareRead, Node: s.node, Firmware: version})
}

// ScanMeshDevices asks every node of the mesh to report its status. The
// reports arrive as EventDevicesUpdated.
func (s *Session) ScanMeshDevices() error {
	link, _, err := s.readyLink()
	if err != nil {
		return err
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.WriteTimeout)
		defer cancel()
		data := []byte{0x01}
		s.capture.Link(log.DirectionOut, transport.RoleNotify.String(), data)
		if err := link.Write(ctx, transport.RoleNotify, data, true); err != nil {
			s.logger.Warn("Session: device scan request failed", "error", err)
		}
	}()
	return nil
}

// WriteOta writes one OTA frame to the connected node.
func (s *Session) WriteOta(ctx context.Context, data []byte) error {
	link, _, err := s.readyLink()
	if err != nil {
		return err
	}
	s.capture.Link(log.DirectionOut, transport.RoleOTA.String(), data)
	if err := link.Write(ctx, transport.RoleOTA, data, false); err != nil {
		return fmt.Errorf("ota write: %w", err)
	}
	return nil
}
