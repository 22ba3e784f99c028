package pairing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/telinkmesh/telinkmesh-go/internal/meshsim"
	"github.com/telinkmesh/telinkmesh-go/pkg/address"
	"github.com/telinkmesh/telinkmesh-go/pkg/ledger"
	"github.com/telinkmesh/telinkmesh-go/pkg/mesh"
	"github.com/telinkmesh/telinkmesh-go/pkg/pairing/mocks"
	"github.com/telinkmesh/telinkmesh-go/pkg/session"
	"github.com/telinkmesh/telinkmesh-go/pkg/wire"
)

func discover(t *testing.T, p *Single, rec *recorder) mesh.Node {
	t.Helper()
	require.NoError(t, p.StartScanning())
	return rec.waitFor(t, EventDiscovered, 1, 3*time.Second)[0].Node
}

func TestSinglePairsNode(t *testing.T) {
	m := meshsim.New()
	n := m.Add(factoryLight(0x01, 1))
	s := newSession(t, m)
	l := ledger.NewMemory()

	rec := &recorder{}
	p, err := NewSingle(s, l, testConfig(), rec.handle)
	require.NoError(t, err)
	t.Cleanup(p.Stop)

	node := discover(t, p, rec)
	assert.Equal(t, n.MACValue(), node.MACValue())

	require.NoError(t, p.Start(context.Background(), home, node))
	end := rec.terminal(t, 5*time.Second)
	require.Equal(t, EventFinished, end.Type, "err: %v", end.Err)

	added := rec.all(EventAdded)
	require.Len(t, added, 1)
	assert.Equal(t, uint16(2), added[0].Address)
	assert.Equal(t, uint8(2), n.Address())
	assert.Equal(t, home, n.Network())
	assert.Equal(t, []uint16{2}, l.Used(home))
	assert.Equal(t, StateStopped, p.State())

	// The address change carried the node's MAC.
	var changes int
	for _, r := range n.Received() {
		if r.Command.Tag == wire.TagReplaceAddress {
			changes++
			assert.Equal(t, uint8(2), r.Command.Param)
		}
	}
	assert.Equal(t, 1, changes)
}

func TestSingleWithoutScanning(t *testing.T) {
	m := meshsim.New()
	n := m.Add(factoryLight(0x01, 7))
	s := newSession(t, m)

	rec := &recorder{}
	p, err := NewSingle(s, ledger.NewMemory(), testConfig(), rec.handle)
	require.NoError(t, err)
	t.Cleanup(p.Stop)

	node := mesh.Node{
		PeerAddress:  n.Peer(),
		Name:         mesh.FactoryNetwork.Name,
		ShortAddress: 7,
		DeviceType:   mesh.NewDeviceType(mesh.RawTypeLight, 0x35),
	}
	mac := n.MAC()
	copy(node.MAC[:], mac[2:])

	require.NoError(t, p.Start(context.Background(), home, node))
	end := rec.terminal(t, 5*time.Second)
	require.Equal(t, EventFinished, end.Type, "err: %v", end.Err)
	assert.Equal(t, uint8(1), n.Address())
}

func TestSingleLoginRejected(t *testing.T) {
	m := meshsim.New()
	cfg := factoryLight(0x01, 1)
	cfg.RejectLogin = true
	n := m.Add(cfg)
	s := newSession(t, m)

	rec := &recorder{}
	p, err := NewSingle(s, ledger.NewMemory(), testConfig(), rec.handle)
	require.NoError(t, err)
	t.Cleanup(p.Stop)

	node := discover(t, p, rec)
	require.NoError(t, p.Start(context.Background(), home, node))

	end := rec.terminal(t, 5*time.Second)
	assert.Equal(t, EventFailed, end.Type)
	assert.ErrorIs(t, end.Err, ErrLoginFailed)
	assert.Equal(t, mesh.FactoryNetwork, n.Network())
}

func TestSingleDeviceTypeTimeout(t *testing.T) {
	m := meshsim.New()
	cfg := factoryLight(0x01, 1)
	cfg.Mute = true
	m.Add(cfg)
	s := newSession(t, m)

	rec := &recorder{}
	p, err := NewSingle(s, ledger.NewMemory(), testConfig(), rec.handle)
	require.NoError(t, err)
	t.Cleanup(p.Stop)

	node := discover(t, p, rec)
	require.NoError(t, p.Start(context.Background(), home, node))

	end := rec.terminal(t, 5*time.Second)
	assert.ErrorIs(t, end.Err, ErrLoginFailed)
	assert.Empty(t, rec.all(EventAdded))
}

func TestSingleUnsupportedNode(t *testing.T) {
	// Rejected before the session is touched.
	sess := mocks.NewMockSession(t)

	rec := &recorder{}
	p, err := NewSingle(sess, ledger.NewMemory(), testConfig(), rec.handle)
	require.NoError(t, err)

	node := mesh.Node{DeviceType: mesh.NewDeviceType(0x09, 0x00)}
	require.NoError(t, p.Start(context.Background(), home, node))

	require.Len(t, rec.all(EventUnsupported), 1)
	failed := rec.all(EventFailed)
	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed[0].Err, ErrUnsupportedDevice)
}

func TestSingleNoAddresses(t *testing.T) {
	sess := mocks.NewMockSession(t)
	sess.EXPECT().Acquire(mock.Anything).Return().Once()
	sess.EXPECT().Scan(mesh.FactoryNetwork, false, false).Return(nil).Once()
	sess.EXPECT().StopScan().Return(nil).Once()
	sess.EXPECT().Disconnect().Return(nil).Once()
	sess.EXPECT().Release(mock.Anything).Return().Once()

	l := ledger.NewMemory()
	_, err := l.RecordUsed(context.Background(), home, address.Free(nil)...)
	require.NoError(t, err)

	rec := &recorder{}
	p, err := NewSingle(sess, l, testConfig(), rec.handle)
	require.NoError(t, err)

	require.NoError(t, p.StartScanning())
	node := mesh.Node{DeviceType: mesh.NewDeviceType(mesh.RawTypeLight, 0x31)}
	require.NoError(t, p.Start(context.Background(), home, node))

	failed := rec.all(EventFailed)
	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed[0].Err, ErrNoMoreNewAddresses)
	assert.Equal(t, StateStopped, p.State())
}

func TestSingleStaleTimerIgnored(t *testing.T) {
	sess := mocks.NewMockSession(t)
	sess.EXPECT().Acquire(mock.Anything).Return()
	sess.EXPECT().Scan(mesh.FactoryNetwork, false, false).Return(nil)
	sess.EXPECT().Connect(mock.Anything).Return(nil).Once()
	sess.EXPECT().StopScan().Return(nil)
	sess.EXPECT().Disconnect().Return(nil)
	sess.EXPECT().Release(mock.Anything).Return()

	cfg := testConfig()
	cfg.ConnectTimeout = 30 * time.Millisecond

	rec := &recorder{}
	p, err := NewSingle(sess, ledger.NewMemory(), cfg, rec.handle)
	require.NoError(t, err)

	node := mesh.Node{ShortAddress: 1, DeviceType: mesh.NewDeviceType(mesh.RawTypeLight, 0x31)}
	require.NoError(t, p.Start(context.Background(), home, node))
	p.Stop()

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, rec.all(EventFailed), "connect timer fired after Stop")
}

func TestSingleUnconfirmedAddressStillProvisions(t *testing.T) {
	sess := mocks.NewMockSession(t)
	sess.EXPECT().Acquire(mock.Anything).Return().Once()
	sess.EXPECT().Scan(mesh.FactoryNetwork, false, false).Return(nil).Once()
	sess.EXPECT().Connect(factoryNode).Return(nil).Once()
	sess.EXPECT().Send(mock.Anything).Return(nil).Twice()
	sess.EXPECT().SetNetwork(home, false).Return(nil).Once()
	sess.EXPECT().StopScan().Return(nil).Once()
	sess.EXPECT().Disconnect().Return(nil).Once()
	sess.EXPECT().Release(mock.Anything).Return().Once()

	cfg := testConfig()
	cfg.AddressChangeTimeout = 50 * time.Millisecond
	cfg.NetworkSetTimeout = 50 * time.Millisecond
	l := ledger.NewMemory()

	rec := &recorder{}
	p, err := NewSingle(sess, l, cfg, rec.handle)
	require.NoError(t, err)

	require.NoError(t, p.Start(context.Background(), home, factoryNode))
	p.HandleSessionEvent(session.Event{Type: session.EventLoginSucceeded, Node: factoryNode})
	require.Equal(t, StateDeviceTypeGetting, p.State())

	p.HandleSessionEvent(session.Event{
		Type: session.EventMACReported,
		Node: factoryNode,
		Notification: wire.MACReport{
			Source:     wire.Source{Address: 1},
			DeviceType: factoryNode.DeviceType,
			MAC:        [6]byte{0xA1, 0xB2, 0xC3, 0xD4, 0xE5, 0x01},
		},
	})
	require.Equal(t, StateAddressChanging, p.State())

	// The node never confirms the change: provisioning starts anyway.
	require.Eventually(t, func() bool {
		return p.State() == StateNetworkSetting
	}, time.Second, 5*time.Millisecond)
	sess.AssertCalled(t, "SetNetwork", home, false)

	// Nothing confirms the network either, and the run still succeeds.
	end := rec.terminal(t, time.Second)
	assert.Equal(t, EventFinished, end.Type)
	added := rec.all(EventAdded)
	require.Len(t, added, 1)
	assert.Equal(t, uint16(2), added[0].Address)
	assert.Equal(t, []uint16{2}, l.Used(home))
	assert.Equal(t, StateStopped, p.State())
}

func TestSinglePhaseRemaining(t *testing.T) {
	sess := mocks.NewMockSession(t)
	sess.EXPECT().Acquire(mock.Anything).Return().Once()
	sess.EXPECT().Scan(mesh.FactoryNetwork, false, false).Return(nil).Once()
	sess.EXPECT().Connect(factoryNode).Return(nil).Once()
	sess.EXPECT().StopScan().Return(nil).Once()
	sess.EXPECT().Disconnect().Return(nil).Once()
	sess.EXPECT().Release(mock.Anything).Return().Once()

	cfg := testConfig()
	p, err := NewSingle(sess, ledger.NewMemory(), cfg, (&recorder{}).handle)
	require.NoError(t, err)

	_, ok := p.PhaseRemaining()
	assert.False(t, ok)

	require.NoError(t, p.Start(context.Background(), home, factoryNode))
	left, ok := p.PhaseRemaining()
	require.True(t, ok)
	assert.Greater(t, left, time.Duration(0))
	assert.LessOrEqual(t, left, cfg.ConnectTimeout)

	p.Stop()
	_, ok = p.PhaseRemaining()
	assert.False(t, ok)
}
