package ota

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telinkmesh/telinkmesh-go/internal/meshsim"
	"github.com/telinkmesh/telinkmesh-go/pkg/mesh"
	"github.com/telinkmesh/telinkmesh-go/pkg/session"
	"github.com/telinkmesh/telinkmesh-go/pkg/wire"
)

var home = mesh.Network{Name: "home", Password: "secret"}

func testConfig() Config {
	return Config{
		ConnectTimeout:  time.Second,
		FirstChunkDelay: 5 * time.Millisecond,
		ChunkInterval:   time.Millisecond,
		SettleDelay:     20 * time.Millisecond,
	}
}

func newSession(t *testing.T, m *meshsim.Mesh) *session.Session {
	t.Helper()
	cfg := session.DefaultConfig()
	cfg.Sequence = wire.NewSequence(0)
	cfg.ConnectTimeout = time.Second
	cfg.WriteTimeout = time.Second
	cfg.NetworkWriteInterval = time.Millisecond
	s, err := session.New(m, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handle(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) terminal(t *testing.T, timeout time.Duration) Event {
	t.Helper()
	var last Event
	require.Eventually(t, func() bool {
		for _, e := range r.snapshot() {
			if e.Type == EventCompleted || e.Type == EventFailed {
				last = e
				return true
			}
		}
		return false
	}, timeout, 5*time.Millisecond, "waiting for a terminal event")
	return last
}

func (r *recorder) progress() []float64 {
	var out []float64
	for _, e := range r.snapshot() {
		if e.Type == EventProgress {
			out = append(out, e.Progress)
		}
	}
	return out
}

func homeLight(addr uint8) meshsim.NodeConfig {
	return meshsim.NodeConfig{
		MAC:     [6]byte{0xA1, 0xB2, 0xC3, 0xD4, 0xE5, addr},
		Address: addr,
		Network: home,
	}
}

func TestTransferSendsImage(t *testing.T) {
	m := meshsim.New()
	m.Add(homeLight(3))
	target := m.Add(homeLight(5))
	s := newSession(t, m)

	path := writeImage(t, t.TempDir(), "01#35#V1.10.bin", 100)
	f, err := ParseFile(path)
	require.NoError(t, err)

	rec := &recorder{}
	tr, err := NewTransfer(s, testConfig(), rec.handle)
	require.NoError(t, err)

	id, err := tr.Start(5, home, f)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	done := rec.terminal(t, 3*time.Second)
	require.Equal(t, EventCompleted, done.Type, "err: %v", done.Err)
	assert.Equal(t, id, done.ID)
	assert.Equal(t, StateStopped, tr.State())

	assert.Equal(t, 7, target.OtaChunks())
	total, ok := target.OtaEnd()
	require.True(t, ok)
	assert.Equal(t, 7, total)

	image := target.OtaImage()
	require.Len(t, image, 7*16)
	data, err := f.Load()
	require.NoError(t, err)
	assert.Equal(t, data, image[:100])
	for _, b := range image[100:] {
		assert.Equal(t, byte(0xFF), b)
	}

	progress := rec.progress()
	require.NotEmpty(t, progress)
	for _, p := range []float64{ProgressConnecting, ProgressConnected, ProgressLoggedIn, ProgressDataEnd, ProgressEndMarker} {
		assert.Contains(t, progress, p)
	}
	assert.Equal(t, ProgressComplete, progress[len(progress)-1])
	seen := make(map[float64]bool)
	for _, p := range progress {
		assert.False(t, seen[p], "progress %v reported twice", p)
		seen[p] = true
	}
	for _, e := range rec.snapshot() {
		assert.Equal(t, id, e.ID)
	}
}

func TestTransferLinkDropped(t *testing.T) {
	m := meshsim.New()
	cfg := homeLight(5)
	cfg.DropAfterOtaWrites = 3
	target := m.Add(cfg)
	s := newSession(t, m)

	f, err := ParseFile(writeImage(t, t.TempDir(), "01#35#V1.10.bin", 160))
	require.NoError(t, err)

	rec := &recorder{}
	tr, err := NewTransfer(s, testConfig(), rec.handle)
	require.NoError(t, err)
	_, err = tr.Start(5, home, f)
	require.NoError(t, err)

	done := rec.terminal(t, 3*time.Second)
	require.Equal(t, EventFailed, done.Type)
	assert.ErrorIs(t, done.Err, ErrDisconnected)
	assert.Equal(t, StateStopped, tr.State())
	assert.Equal(t, 3, target.OtaChunks())
	_, ended := target.OtaEnd()
	assert.False(t, ended)
}

func TestTransferConnectOvertime(t *testing.T) {
	m := meshsim.New()
	m.Add(homeLight(3))
	s := newSession(t, m)

	f, err := ParseFile(writeImage(t, t.TempDir(), "01#35#V1.10.bin", 32))
	require.NoError(t, err)

	cfg := testConfig()
	cfg.ConnectTimeout = 100 * time.Millisecond
	rec := &recorder{}
	tr, err := NewTransfer(s, cfg, rec.handle)
	require.NoError(t, err)
	_, err = tr.Start(9, home, f)
	require.NoError(t, err)

	done := rec.terminal(t, 2*time.Second)
	assert.ErrorIs(t, done.Err, ErrConnectOvertime)
	assert.Equal(t, StateStopped, tr.State())
	assert.False(t, m.Scanning())
}

func TestTransferInvalidFile(t *testing.T) {
	m := meshsim.New()
	s := newSession(t, m)

	rec := &recorder{}
	tr, err := NewTransfer(s, testConfig(), rec.handle)
	require.NoError(t, err)

	missing := File{Name: "01#35#V1.10.bin", Path: filepath.Join(t.TempDir(), "01#35#V1.10.bin")}
	id, err := tr.Start(5, home, missing)
	require.NoError(t, err)

	events := rec.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, EventFailed, events[0].Type)
	assert.Equal(t, id, events[0].ID)
	assert.ErrorIs(t, events[0].Err, ErrInvalidOtaFile)
	assert.Equal(t, 0, m.Scans())
}

func TestTransferStop(t *testing.T) {
	m := meshsim.New()
	s := newSession(t, m)

	f, err := ParseFile(writeImage(t, t.TempDir(), "01#35#V1.10.bin", 32))
	require.NoError(t, err)

	rec := &recorder{}
	tr, err := NewTransfer(s, testConfig(), rec.handle)
	require.NoError(t, err)
	_, err = tr.Start(5, home, f)
	require.NoError(t, err)
	assert.Equal(t, StateConnecting, tr.State())

	_, err = tr.Start(5, home, f)
	assert.ErrorIs(t, err, ErrRunning)

	tr.Stop()
	assert.Equal(t, StateStopped, tr.State())
	time.Sleep(50 * time.Millisecond)
	for _, e := range rec.snapshot() {
		assert.NotEqual(t, EventFailed, e.Type)
	}
}

func TestTransferConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, 6*time.Second, cfg.SettleDelay)

	cfg.ConnectTimeout = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	_, err := NewTransfer(nil, DefaultConfig(), nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	assert.Equal(t, "DATA_SENDING", StateDataSending.String())
	assert.Equal(t, "COMPLETED", EventCompleted.String())
}
