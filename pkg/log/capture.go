package log

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/telinkmesh/telinkmesh-go/pkg/mesh"
	"github.com/telinkmesh/telinkmesh-go/pkg/wire"
)

// Capture stamps events with the identity of the current connection before
// passing them to a Logger. A nil Logger disables capture. Capture is safe
// for concurrent use.
type Capture struct {
	logger Logger

	mu      sync.Mutex
	connID  string
	node    mesh.Node
	network string
}

// NewCapture wraps logger. A nil logger yields a capture that drops events.
func NewCapture(logger Logger) *Capture {
	if logger == nil {
		logger = NoopLogger{}
	}
	return &Capture{logger: logger}
}

// Begin starts a connection scope for node and returns its id.
func (c *Capture) Begin(node mesh.Node, network string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connID = uuid.New().String()
	c.node = node
	c.network = network
	return c.connID
}

// End closes the connection scope. Later events carry no connection id.
func (c *Capture) End() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connID = ""
	c.node = mesh.Node{}
}

// ConnectionID returns the id of the current scope.
func (c *Capture) ConnectionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connID
}

func (c *Capture) emit(e Event) {
	c.mu.Lock()
	e.Timestamp = time.Now()
	e.ConnectionID = c.connID
	e.Network = c.network
	if c.connID != "" {
		e.PeerAddress = c.node.PeerAddress
		e.NodeMAC = c.node.MACString()
		e.Address = c.node.ShortAddress
		e.DeviceType = c.node.DeviceType.String()
	}
	c.mu.Unlock()
	c.logger.Log(e)
}

// Link records characteristic traffic as it went over the air.
func (c *Capture) Link(dir Direction, characteristic string, data []byte) {
	c.emit(Event{
		Direction: dir,
		Layer:     LayerLink,
		Category:  categoryOf(characteristic),
		Link:      NewLinkEvent(characteristic, data),
	})
}

// Command records a plaintext frame.
func (c *Capture) Command(dir Direction, frame wire.Frame, sample bool) {
	c.emit(Event{
		Direction: dir,
		Layer:     LayerFrame,
		Category:  CategoryCommand,
		Command:   NewCommandEvent(frame, sample),
	})
}

// State records a state transition.
func (c *Capture) State(entity StateEntity, oldState, newState, reason string) {
	c.emit(Event{
		Layer:    LayerSession,
		Category: CategoryState,
		StateChange: &StateChangeEvent{
			Entity:   entity,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

// Error records a failure.
func (c *Capture) Error(layer Layer, context string, err error) {
	if err == nil {
		return
	}
	c.emit(Event{
		Layer:    layer,
		Category: CategoryError,
		Error: &ErrorEventData{
			Layer:   layer,
			Message: err.Error(),
			Context: context,
		},
	})
}
