package ble

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tinygo.org/x/bluetooth"

	"github.com/telinkmesh/telinkmesh-go/pkg/transport"
)

// slowScanner returns from Scan a while after StopScan, as host stacks do.
type slowScanner struct {
	mu      sync.Mutex
	starts  int
	running bool
	stop    chan struct{}
}

func (s *slowScanner) Scan(func(*bluetooth.Adapter, bluetooth.ScanResult)) error {
	s.mu.Lock()
	s.starts++
	s.running = true
	stop := make(chan struct{})
	s.stop = stop
	s.mu.Unlock()

	<-stop
	time.Sleep(20 * time.Millisecond)

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return nil
}

func (s *slowScanner) StopScan() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	return nil
}

func (s *slowScanner) state() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts, s.running
}

func newTestAdapter(sc scanner) *Adapter {
	return &Adapter{
		scanner: sc,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		seen:    make(map[string]bluetooth.Address),
		links:   make(map[string]*Link),
	}
}

func waitStarted(t *testing.T, sc *slowScanner, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		starts, running := sc.state()
		return starts == n && running
	}, time.Second, time.Millisecond)
}

func TestRestartAfterStopScan(t *testing.T) {
	sc := &slowScanner{}
	a := newTestAdapter(sc)
	handler := func(transport.Advertisement) {}

	require.NoError(t, a.StartScan(handler))
	waitStarted(t, sc, 1)

	require.NoError(t, a.StopScan())
	_, running := sc.state()
	assert.False(t, running, "StopScan returned before the scan ended")

	require.NoError(t, a.StartScan(handler))
	waitStarted(t, sc, 2)

	require.NoError(t, a.StopScan())
}

func TestStartScanWaitsForStoppingScan(t *testing.T) {
	sc := &slowScanner{}
	a := newTestAdapter(sc)
	handler := func(transport.Advertisement) {}

	require.NoError(t, a.StartScan(handler))
	waitStarted(t, sc, 1)

	stopped := make(chan error, 1)
	go func() { stopped <- a.StopScan() }()
	require.Eventually(t, func() bool {
		a.mu.Lock()
		defer a.mu.Unlock()
		return a.stopping
	}, time.Second, time.Millisecond)

	require.NoError(t, a.StartScan(handler))
	require.NoError(t, <-stopped)
	waitStarted(t, sc, 2)

	require.NoError(t, a.StopScan())
}

func TestStopScanIdle(t *testing.T) {
	sc := &slowScanner{}
	a := newTestAdapter(sc)
	assert.NoError(t, a.StopScan())
	starts, _ := sc.state()
	assert.Zero(t, starts)
}
