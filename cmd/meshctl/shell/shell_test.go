package shell

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telinkmesh/telinkmesh-go/internal/meshsim"
	"github.com/telinkmesh/telinkmesh-go/pkg/entertainment"
	"github.com/telinkmesh/telinkmesh-go/pkg/ledger"
	"github.com/telinkmesh/telinkmesh-go/pkg/mesh"
	"github.com/telinkmesh/telinkmesh-go/pkg/ota"
	"github.com/telinkmesh/telinkmesh-go/pkg/pairing"
	"github.com/telinkmesh/telinkmesh-go/pkg/session"
	"github.com/telinkmesh/telinkmesh-go/pkg/wire"
)

var home = mesh.Network{Name: "home", Password: "secret"}

// syncBuffer collects output written from event goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestShell(t *testing.T, m *meshsim.Mesh) (*Shell, *session.Session, *syncBuffer) {
	t.Helper()
	cfg := session.DefaultConfig()
	cfg.Sequence = wire.NewSequence(0)
	cfg.PacingInterval = 5 * time.Millisecond
	cfg.ConnectTimeout = time.Second
	cfg.NetworkWriteInterval = time.Millisecond
	sess, err := session.New(m, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })

	pcfg := pairing.DefaultConfig()
	pcfg.ConnectTimeout = time.Second
	pcfg.DeviceTypeTimeout = 500 * time.Millisecond
	pcfg.AddressChangeTimeout = 300 * time.Millisecond
	pcfg.AddressSetTimeout = 500 * time.Millisecond
	pcfg.NetworkSetTimeout = 200 * time.Millisecond
	pcfg.ScanWindow = 150 * time.Millisecond

	on := true
	out := &syncBuffer{}
	s := newShell(Options{
		Session: sess,
		Ledger:  ledger.NewMemory(),
		Network: home,
		Pairing: pcfg,
		OTA:     ota.DefaultConfig(),
		Effects: map[string][]entertainment.Action{
			"blink": {{Target: mesh.Broadcast, Delay: 10 * time.Millisecond, On: &on}},
		},
	}, out)
	t.Cleanup(s.Close)
	return s, sess, out
}

func TestExecGeneral(t *testing.T) {
	s, _, out := newTestShell(t, meshsim.New())
	ctx := context.Background()

	assert.True(t, s.Exec(ctx, "help"))
	assert.Contains(t, out.String(), "pair auto")

	assert.True(t, s.Exec(ctx, "frobnicate"))
	assert.Contains(t, out.String(), "Unknown command: frobnicate")

	assert.True(t, s.Exec(ctx, "   "))
	assert.False(t, s.Exec(ctx, "quit"))
}

func TestExecArguments(t *testing.T) {
	s, _, out := newTestShell(t, meshsim.New())
	ctx := context.Background()

	tests := []struct {
		line string
		want string
	}{
		{"bright 5 300", "out of range"},
		{"bright zz 50", "invalid address"},
		{"rgb 5 nothex", "invalid color"},
		{"connect 7", "node not found"},
		{"pair single 1234", "run 'pair single' first"},
		{"pair fast", "unknown pairing mode"},
		{"play disco", "unknown effect"},
		{"play", "configured: blink"},
		{"ota 5", "node not found"},
	}
	for _, tt := range tests {
		s.Exec(ctx, tt.line)
		assert.Contains(t, out.String(), tt.want, tt.line)
	}
}

func TestExecFree(t *testing.T) {
	s, _, out := newTestShell(t, meshsim.New())
	s.Exec(context.Background(), "free")
	assert.Contains(t, out.String(), "255 free addresses in home")
}

func TestExecControl(t *testing.T) {
	m := meshsim.New()
	node := m.Add(meshsim.NodeConfig{
		MAC:     [6]byte{0xA1, 0xB2, 0xC3, 0xD4, 0xE5, 0x05},
		Address: 5,
		Network: home,
	})
	s, sess, out := newTestShell(t, m)
	ctx := context.Background()

	s.Exec(ctx, "login")
	require.Eventually(t, sess.IsLoggedIn, 2*time.Second, 5*time.Millisecond)
	assert.Contains(t, out.String(), "Logged in")

	s.Exec(ctx, "on 5")
	require.Eventually(t, node.On, time.Second, 5*time.Millisecond)

	s.Exec(ctx, "bright 0x0005 40")
	require.Eventually(t, func() bool { return node.Brightness() == 40 }, time.Second, 5*time.Millisecond)

	s.Exec(ctx, "status")
	assert.Contains(t, out.String(), "Network:  home")

	s.Exec(ctx, "play blink")
	require.Eventually(t, func() bool {
		n := 0
		for _, r := range node.Received() {
			if r.Command.Tag == wire.TagOnOff {
				n++
			}
		}
		return n >= 3
	}, time.Second, 5*time.Millisecond)
	s.Exec(ctx, "stop")
	assert.False(t, s.player.Running())
}

func TestExecPairAuto(t *testing.T) {
	m := meshsim.New()
	node := m.Add(meshsim.NodeConfig{
		MAC:     [6]byte{0xA1, 0xB2, 0xC3, 0xD4, 0xE5, 0x01},
		Address: 1,
	})
	s, _, out := newTestShell(t, m)

	s.Exec(context.Background(), "pair auto")
	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "[PAIR] Added address 2")
	}, 3*time.Second, 10*time.Millisecond, out.String())
	assert.Equal(t, home, node.Network())
	assert.Equal(t, uint8(2), node.Address())

	// Auto pairing keeps scanning for the next node.
	s.Exec(context.Background(), "status")
	assert.Contains(t, out.String(), "Pairing:")
}
