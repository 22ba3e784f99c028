package ota

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/telinkmesh/telinkmesh-go/pkg/mesh"
	"github.com/telinkmesh/telinkmesh-go/pkg/meshcrypto"
	"github.com/telinkmesh/telinkmesh-go/pkg/phase"
	"github.com/telinkmesh/telinkmesh-go/pkg/session"
)

// Transfer errors.
var (
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrRunning         = errors.New("ota transfer already running")
	ErrConnectOvertime = errors.New("connect overtime")
	ErrDisconnected    = errors.New("disconnected during transfer")
)

// Progress milestones.
const (
	ProgressConnecting = 0.1
	ProgressConnected  = 0.2
	ProgressLoggedIn   = 0.3
	ProgressDataEnd    = 0.9
	ProgressEndMarker  = 0.95
	ProgressComplete   = 1.0
)

// State is the transfer phase.
type State uint8

const (
	StateStopped State = iota
	StateConnecting
	StateDataSending
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "STOPPED"
	case StateConnecting:
		return "CONNECTING"
	case StateDataSending:
		return "DATA_SENDING"
	default:
		return "UNKNOWN"
	}
}

// EventType identifies a transfer event.
type EventType uint8

const (
	EventProgress EventType = iota
	EventCompleted
	EventFailed
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventProgress:
		return "PROGRESS"
	case EventCompleted:
		return "COMPLETED"
	case EventFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Event reports transfer progress. ID identifies the transfer Start
// returned.
type Event struct {
	Type     EventType
	ID       string
	Progress float64
	Err      error
}

// Handler receives transfer events.
type Handler func(Event)

// Session is the part of *session.Session a Transfer drives.
type Session interface {
	Scan(network mesh.Network, autoLogin, ignoreName bool) error
	StopScan() error
	Connect(node mesh.Node) error
	WriteOta(ctx context.Context, data []byte) error
	Crypto() meshcrypto.Primitives
	Acquire(sink session.Sink)
	Release(sink session.Sink)
}

var _ Session = (*session.Session)(nil)

// Config configures a Transfer.
type Config struct {
	// ConnectTimeout bounds scanning for the node and logging in.
	ConnectTimeout time.Duration

	// FirstChunkDelay follows the first chunk, giving the node time to
	// prepare its flash.
	FirstChunkDelay time.Duration

	// ChunkInterval follows every other chunk.
	ChunkInterval time.Duration

	// SettleDelay is the wait after the end marker before the transfer
	// counts as complete.
	SettleDelay time.Duration

	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger
}

// DefaultConfig returns the timings nodes accept.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout:  8 * time.Second,
		FirstChunkDelay: 300 * time.Millisecond,
		ChunkInterval:   10 * time.Millisecond,
		SettleDelay:     6 * time.Second,
	}
}

// Validate checks if the config is valid.
func (c *Config) Validate() error {
	if c.ConnectTimeout <= 0 {
		return ErrInvalidConfig
	}
	if c.FirstChunkDelay < 0 || c.ChunkInterval < 0 || c.SettleDelay < 0 {
		return ErrInvalidConfig
	}
	return nil
}

// Transfer sends firmware images to nodes, one at a time.
type Transfer struct {
	sess    Session
	cfg     Config
	logger  *slog.Logger
	handler Handler

	timer phase.Timer

	mu         sync.Mutex
	state      State
	id         string
	address    uint16
	image      []byte
	connecting bool
	progress   float64
	cancel     context.CancelFunc
	out        []Event
}

var _ session.Sink = (*Transfer)(nil)

// NewTransfer creates an idle transfer.
func NewTransfer(sess Session, cfg Config, handler Handler) (*Transfer, error) {
	if sess == nil {
		return nil, ErrInvalidConfig
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Transfer{sess: sess, cfg: cfg, logger: logger, handler: handler}, nil
}

// Start loads file and updates the node at address on network. It returns
// the transfer id carried by every event of this run. An unreadable file
// fails the run with ErrInvalidOtaFile before anything is sent.
func (t *Transfer) Start(address uint16, network mesh.Network, file File) (string, error) {
	if err := network.Validate(); err != nil {
		return "", err
	}

	t.mu.Lock()
	defer t.unlock()

	if t.state != StateStopped {
		return "", ErrRunning
	}
	t.id = uuid.NewString()
	t.address = address
	t.progress = 0
	t.connecting = false

	image, err := file.Load()
	if err != nil {
		t.emitLocked(Event{Type: EventFailed, ID: t.id, Err: err})
		return t.id, nil
	}
	t.image = image

	t.logger.Debug("OTA: starting", "id", t.id, "file", file.Name, "address", address, "bytes", len(image))
	t.sess.Acquire(t)
	t.state = StateConnecting
	t.timer.Arm(t.cfg.ConnectTimeout, t.connectTimeout)
	if err := t.sess.Scan(network, false, false); err != nil {
		t.finishLocked(fmt.Errorf("scan: %w", err))
		return t.id, nil
	}
	t.progressLocked(ProgressConnecting)
	return t.id, nil
}

// Stop aborts the transfer without an event.
func (t *Transfer) Stop() {
	t.mu.Lock()
	defer t.unlock()
	if t.state == StateStopped {
		return
	}
	t.logger.Debug("OTA: stop", "id", t.id)
	t.stopLocked()
}

// State returns the current phase.
func (t *Transfer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// HandleSessionEvent implements session.Sink.
func (t *Transfer) HandleSessionEvent(e session.Event) {
	t.mu.Lock()
	defer t.unlock()

	if t.state != StateConnecting {
		return
	}
	switch e.Type {
	case session.EventNodeDiscovered:
		if t.connecting || e.Node.ShortAddress != t.address {
			return
		}
		t.connecting = true
		if err := t.sess.Connect(e.Node); err != nil {
			t.logger.Warn("OTA: connect", "error", err)
			t.connecting = false
			return
		}
		t.progressLocked(ProgressConnected)

	case session.EventConnectFailed, session.EventLoginFailed:
		// Keep scanning until the connect timer runs out.
		t.connecting = false

	case session.EventLoginSucceeded:
		t.timer.Cancel()
		t.state = StateDataSending
		t.progressLocked(ProgressLoggedIn)

		ctx, cancel := context.WithCancel(context.Background())
		t.cancel = cancel
		go t.send(ctx, t.id, t.image)
	}
}

func (t *Transfer) connectTimeout(id uint64) {
	t.mu.Lock()
	defer t.unlock()
	if !t.timer.Claim(id) || t.state != StateConnecting {
		return
	}
	t.finishLocked(ErrConnectOvertime)
}

// send streams image as chunks and the end marker.
func (t *Transfer) send(ctx context.Context, id string, image []byte) {
	crypto := t.sess.Crypto()
	delay := t.cfg.FirstChunkDelay
	index := 0

	for offset := 0; offset < len(image); offset += meshcrypto.OtaChunkSize {
		t.reportSent(id, offset, len(image))

		end := min(offset+meshcrypto.OtaChunkSize, len(image))
		if err := t.sess.WriteOta(ctx, crypto.BuildOtaChunk(image[offset:end], index)); err != nil {
			t.writeFailed(id, err)
			return
		}
		index++
		if !sleep(ctx, delay) {
			return
		}
		delay = t.cfg.ChunkInterval
	}
	t.reportSent(id, len(image), len(image))

	if err := t.sess.WriteOta(ctx, crypto.BuildOtaEndMarker(index)); err != nil {
		t.writeFailed(id, err)
		return
	}
	t.logger.Debug("OTA: image sent", "id", id, "chunks", index)
	t.report(id, ProgressEndMarker)

	if !sleep(ctx, t.cfg.SettleDelay) {
		return
	}

	t.mu.Lock()
	defer t.unlock()
	if t.id != id || t.state != StateDataSending {
		return
	}
	t.logger.Debug("OTA: completed", "id", id)
	t.progressLocked(ProgressComplete)
	t.stopLocked()
	t.emitLocked(Event{Type: EventCompleted, ID: id, Progress: ProgressComplete})
}

// reportSent maps sent bytes onto 0.3..0.9 in whole percents.
func (t *Transfer) reportSent(id string, sent, total int) {
	pct := math.Round(float64(sent)*60/float64(total)) + 30
	t.report(id, pct/100)
}

func (t *Transfer) report(id string, p float64) {
	t.mu.Lock()
	defer t.unlock()
	if t.id == id && t.state == StateDataSending {
		t.progressLocked(p)
	}
}

func (t *Transfer) writeFailed(id string, err error) {
	t.mu.Lock()
	defer t.unlock()
	if t.id != id || t.state != StateDataSending {
		return
	}
	t.finishLocked(fmt.Errorf("%w: %v", ErrDisconnected, err))
}

// progressLocked emits p if it moves progress forward.
func (t *Transfer) progressLocked(p float64) {
	if p <= t.progress {
		return
	}
	t.progress = p
	t.emitLocked(Event{Type: EventProgress, ID: t.id, Progress: p})
}

func (t *Transfer) finishLocked(err error) {
	t.logger.Debug("OTA: failed", "id", t.id, "error", err)
	t.stopLocked()
	t.emitLocked(Event{Type: EventFailed, ID: t.id, Err: err})
}

func (t *Transfer) stopLocked() {
	t.timer.Cancel()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	if t.state == StateConnecting {
		_ = t.sess.StopScan()
	}
	t.state = StateStopped
	t.image = nil
	t.sess.Release(t)
}

func (t *Transfer) emitLocked(e Event) {
	t.out = append(t.out, e)
}

func (t *Transfer) unlock() {
	out := t.out
	t.out = nil
	t.mu.Unlock()

	if t.handler == nil {
		return
	}
	for _, e := range out {
		t.handler(e)
	}
}

// sleep waits for d and reports whether ctx is still live.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
