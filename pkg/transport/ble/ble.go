// Package ble implements transport.Transport on the host Bluetooth adapter
// through tinygo.org/x/bluetooth.
package ble

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"tinygo.org/x/bluetooth"

	"github.com/telinkmesh/telinkmesh-go/pkg/mesh"
	"github.com/telinkmesh/telinkmesh-go/pkg/transport"
)

// readBufferSize fits the largest characteristic value nodes return.
const readBufferSize = 64

// scanner is the scanning half of bluetooth.Adapter.
type scanner interface {
	Scan(callback func(*bluetooth.Adapter, bluetooth.ScanResult)) error
	StopScan() error
}

// Adapter is a transport.Transport backed by a bluetooth.Adapter.
type Adapter struct {
	adapter *bluetooth.Adapter
	scanner scanner
	logger  *slog.Logger

	mu      sync.Mutex
	seen    map[string]bluetooth.Address
	handler transport.ScanHandler
	links   map[string]*Link

	// scanDone is closed when the running Scan call returns. It is nil
	// while no scan runs.
	scanDone chan struct{}
	stopping bool
}

var _ transport.Transport = (*Adapter)(nil)

// New enables the default host adapter. A nil logger discards output.
func New(logger *slog.Logger) (*Adapter, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	adapter := bluetooth.DefaultAdapter
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("enable adapter: %w", err)
	}
	a := &Adapter{
		adapter: adapter,
		scanner: adapter,
		logger:  logger,
		seen:    make(map[string]bluetooth.Address),
		links:   make(map[string]*Link),
	}
	adapter.SetConnectHandler(a.onConnectChange)
	return a, nil
}

// StartScan runs a scan in the background until StopScan. A scan that is
// still winding down is waited for and started again.
func (a *Adapter) StartScan(handler transport.ScanHandler) error {
	a.mu.Lock()
	for a.scanDone != nil && a.stopping {
		done := a.scanDone
		a.mu.Unlock()
		<-done
		a.mu.Lock()
	}
	a.handler = handler
	if a.scanDone != nil {
		a.mu.Unlock()
		return nil
	}
	done := make(chan struct{})
	a.scanDone = done
	a.mu.Unlock()

	go func() {
		err := a.scanner.Scan(a.onScanResult)
		a.mu.Lock()
		a.scanDone = nil
		a.stopping = false
		a.mu.Unlock()
		close(done)
		if err != nil {
			a.logger.Warn("BLE: scan ended", "error", err)
		}
	}()
	return nil
}

// StopScan stops a running scan and returns once it has ended.
func (a *Adapter) StopScan() error {
	a.mu.Lock()
	done := a.scanDone
	a.handler = nil
	if done != nil {
		a.stopping = true
	}
	a.mu.Unlock()
	if done == nil {
		return nil
	}
	if err := a.scanner.StopScan(); err != nil {
		a.mu.Lock()
		if a.scanDone == done {
			a.stopping = false
		}
		a.mu.Unlock()
		return err
	}
	<-done
	return nil
}

func (a *Adapter) onScanResult(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
	var data []byte
	for _, el := range result.ManufacturerData() {
		if el.CompanyID == vendorCompanyID {
			data = append([]byte{byte(el.CompanyID), byte(el.CompanyID >> 8)}, el.Data...)
			break
		}
	}
	if data == nil {
		return
	}

	peer := result.Address.String()
	a.mu.Lock()
	a.seen[peer] = result.Address
	handler := a.handler
	a.mu.Unlock()

	if handler != nil {
		handler(transport.Advertisement{
			PeerAddress:      peer,
			Name:             result.LocalName(),
			RSSI:             int(result.RSSI),
			ManufacturerData: data,
		})
	}
}

// vendorCompanyID is the company id of the 0x11 0x02 prefix nodes put on
// air, read little-endian.
const vendorCompanyID uint16 = 0x0211

// Connect opens a link to a peer seen in an earlier scan.
func (a *Adapter) Connect(ctx context.Context, peerAddress string) (transport.Link, error) {
	a.mu.Lock()
	addr, ok := a.seen[peerAddress]
	a.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", transport.ErrUnknownPeer, peerAddress)
	}

	var device bluetooth.Device
	err := call(ctx, func() error {
		var err error
		device, err = a.adapter.Connect(addr, bluetooth.ConnectionParams{})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", peerAddress, err)
	}

	l := &Link{
		peer:    peerAddress,
		device:  device,
		logger:  a.logger,
		chars:   make(map[transport.Role]bluetooth.DeviceCharacteristic),
		done:    make(chan struct{}),
		release: a.forget,
	}
	a.mu.Lock()
	a.links[peerAddress] = l
	a.mu.Unlock()
	a.logger.Debug("BLE: connected", "peer", peerAddress)
	return l, nil
}

func (a *Adapter) onConnectChange(device bluetooth.Device, connected bool) {
	if connected {
		return
	}
	peer := device.Address.String()
	a.mu.Lock()
	l := a.links[peer]
	a.mu.Unlock()
	if l != nil {
		a.logger.Debug("BLE: peer dropped", "peer", peer)
		l.markClosed()
	}
}

func (a *Adapter) forget(peer string) {
	a.mu.Lock()
	delete(a.links, peer)
	a.mu.Unlock()
}

// call runs a blocking adapter call and gives up when ctx ends first.
func call(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Link is one connected peripheral.
type Link struct {
	peer    string
	device  bluetooth.Device
	logger  *slog.Logger
	release func(string)

	mu     sync.Mutex
	chars  map[transport.Role]bluetooth.DeviceCharacteristic
	closed bool
	done   chan struct{}
}

var _ transport.Link = (*Link)(nil)

// Discover resolves the mesh service and device information characteristics.
func (l *Link) Discover(ctx context.Context) error {
	want := make(map[string]transport.Role, len(transport.Roles))
	for _, r := range transport.Roles {
		want[r.UUID()] = r
	}

	var services []bluetooth.DeviceService
	err := call(ctx, func() error {
		var err error
		services, err = l.device.DiscoverServices(nil)
		return err
	})
	if err != nil {
		return fmt.Errorf("discover services: %w", err)
	}

	found := make(map[transport.Role]bluetooth.DeviceCharacteristic)
	for _, svc := range services {
		uuid := strings.ToLower(svc.UUID().String())
		if uuid != mesh.ServiceUUID && uuid != mesh.DeviceInformationServiceUUID {
			continue
		}
		var chars []bluetooth.DeviceCharacteristic
		err := call(ctx, func() error {
			var err error
			chars, err = svc.DiscoverCharacteristics(nil)
			return err
		})
		if err != nil {
			return fmt.Errorf("discover characteristics of %s: %w", uuid, err)
		}
		for _, c := range chars {
			if r, ok := want[strings.ToLower(c.UUID().String())]; ok {
				found[r] = c
			}
		}
	}

	for _, r := range transport.Roles {
		if _, ok := found[r]; !ok {
			return fmt.Errorf("%w: %s", transport.ErrMissingCharacteristic, r)
		}
	}

	l.mu.Lock()
	l.chars = found
	l.mu.Unlock()
	return nil
}

func (l *Link) char(role transport.Role) (bluetooth.DeviceCharacteristic, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return bluetooth.DeviceCharacteristic{}, transport.ErrLinkClosed
	}
	c, ok := l.chars[role]
	if !ok {
		return bluetooth.DeviceCharacteristic{}, fmt.Errorf("%w: %s", transport.ErrMissingCharacteristic, role)
	}
	return c, nil
}

// Write writes data to the characteristic of role.
func (l *Link) Write(ctx context.Context, role transport.Role, data []byte, withResponse bool) error {
	c, err := l.char(role)
	if err != nil {
		return err
	}
	return call(ctx, func() error {
		if withResponse {
			_, err := c.Write(data)
			return err
		}
		_, err := c.WriteWithoutResponse(data)
		return err
	})
}

// Read reads the value of the characteristic of role.
func (l *Link) Read(ctx context.Context, role transport.Role) ([]byte, error) {
	c, err := l.char(role)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, readBufferSize)
	var n int
	err = call(ctx, func() error {
		var err error
		n, err = c.Read(buf)
		return err
	})
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// Subscribe enables notifications on role.
func (l *Link) Subscribe(role transport.Role, handler transport.NotifyHandler) error {
	c, err := l.char(role)
	if err != nil {
		return err
	}
	return c.EnableNotifications(func(data []byte) {
		// the adapter reuses its buffer
		handler(append([]byte(nil), data...))
	})
}

// Disconnected is closed once the link drops.
func (l *Link) Disconnected() <-chan struct{} {
	return l.done
}

// Close disconnects the peripheral.
func (l *Link) Close() error {
	if !l.markClosed() {
		return nil
	}
	return l.device.Disconnect()
}

func (l *Link) markClosed() bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.closed = true
	close(l.done)
	l.mu.Unlock()
	l.release(l.peer)
	return true
}
