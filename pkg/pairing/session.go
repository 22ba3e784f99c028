package pairing

import (
	"time"

	"github.com/telinkmesh/telinkmesh-go/pkg/mesh"
	"github.com/telinkmesh/telinkmesh-go/pkg/session"
	"github.com/telinkmesh/telinkmesh-go/pkg/wire"
)

// Session is the part of *session.Session the orchestrators drive.
type Session interface {
	Scan(network mesh.Network, autoLogin, ignoreName bool) error
	StopScan() error
	Connect(node mesh.Node) error
	Disconnect() error
	Send(cmd wire.Command) error
	SetNetwork(network mesh.Network, isMesh bool) error
	ScanMeshDevices() error
	Acquire(sink session.Sink)
	Release(sink session.Sink)
	PacingInterval() time.Duration
}

var _ Session = (*session.Session)(nil)
