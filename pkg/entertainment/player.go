package entertainment

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/telinkmesh/telinkmesh-go/pkg/session"
	"github.com/telinkmesh/telinkmesh-go/pkg/wire"
)

// ErrInvalidAction is returned by Start for actions out of range.
var ErrInvalidAction = errors.New("invalid entertainment action")

// Limits for action values.
const (
	MaxDelay     = 60 * time.Second
	DefaultDelay = time.Second
)

// Action is one step of an effect. Nil values are left unchanged on the
// target.
type Action struct {
	Target uint16
	Delay  time.Duration

	On               *bool
	Brightness       *int // 0..100
	White            *int // 0..255
	ColorTemperature *int // 0..100
	RGB              *int // 0xRRGGBB
}

// NewAction returns an action for target with the default delay.
func NewAction(target uint16) Action {
	return Action{Target: target, Delay: DefaultDelay}
}

// Validate checks the delay and every set value.
func (a Action) Validate() error {
	if a.Delay < 0 || a.Delay > MaxDelay {
		return fmt.Errorf("%w: delay %v", ErrInvalidAction, a.Delay)
	}
	checks := []struct {
		name   string
		v      *int
		lo, hi int
	}{
		{"brightness", a.Brightness, 0, 100},
		{"white", a.White, 0, 255},
		{"color temperature", a.ColorTemperature, 0, 100},
		{"rgb", a.RGB, 0, 0xFFFFFF},
	}
	for _, c := range checks {
		if c.v != nil && (*c.v < c.lo || *c.v > c.hi) {
			return fmt.Errorf("%w: %s %d", ErrInvalidAction, c.name, *c.v)
		}
	}
	return nil
}

// Commands returns the commands the action sends: color, color
// temperature, white, brightness, then on/off.
func (a Action) Commands() []wire.Command {
	var out []wire.Command
	if a.RGB != nil {
		rgb := *a.RGB
		out = append(out, wire.SetRGB(a.Target, (rgb>>16)&0xFF, (rgb>>8)&0xFF, rgb&0xFF))
	}
	if a.ColorTemperature != nil {
		out = append(out, wire.SetColorTemperature(a.Target, *a.ColorTemperature))
	}
	if a.White != nil {
		out = append(out, wire.SetWhite(a.Target, *a.White))
	}
	if a.Brightness != nil {
		out = append(out, wire.SetBrightness(a.Target, *a.Brightness))
	}
	if a.On != nil {
		out = append(out, wire.TurnOnOff(a.Target, *a.On, 0))
	}
	return out
}

// Sender queues commands for the connected node.
type Sender interface {
	Send(cmd wire.Command) error
}

var _ Sender = (*session.Session)(nil)

// Player loops actions through a Sender.
type Player struct {
	sender Sender
	logger *slog.Logger

	mu      sync.Mutex
	actions []Action
	index   int
	gen     uint64
	running bool
	wake    chan struct{}
	stop    chan struct{}
	done    chan struct{}
}

// NewPlayer creates a stopped player. A nil logger disables logging.
func NewPlayer(sender Sender, logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Player{sender: sender, logger: logger}
}

// Start plays actions from index. Calling Start on a running player
// replaces the list and position.
func (p *Player) Start(actions []Action, index int) error {
	for i, a := range actions {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
	}
	if len(actions) > 0 && (index < 0 || index >= len(actions)) {
		return fmt.Errorf("%w: index %d of %d", ErrInvalidAction, index, len(actions))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.actions = append([]Action(nil), actions...)
	p.index = index
	p.gen++

	if p.running {
		select {
		case p.wake <- struct{}{}:
		default:
		}
		return nil
	}
	if len(p.actions) == 0 {
		return nil
	}
	p.running = true
	p.wake = make(chan struct{}, 1)
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go p.run(p.wake, p.stop, p.done)
	p.logger.Debug("Entertainment: started", "actions", len(actions), "index", index)
	return nil
}

// Stop ends playback. No command is sent after Stop returns.
func (p *Player) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.actions = nil
	close(p.stop)
	done := p.done
	p.mu.Unlock()

	<-done
	p.logger.Debug("Entertainment: stopped")
}

// Running reports whether the player is looping.
func (p *Player) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Index returns the position of the next action.
func (p *Player) Index() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.index
}

func (p *Player) run(wake, stop, done chan struct{}) {
	defer close(done)

	for {
		p.mu.Lock()
		if len(p.actions) == 0 {
			p.running = false
			p.mu.Unlock()
			return
		}
		gen := p.gen
		a := p.actions[p.index]
		p.mu.Unlock()

		timer := time.NewTimer(a.Delay)
		select {
		case <-stop:
			timer.Stop()
			return
		case <-wake:
			timer.Stop()
			continue
		case <-timer.C:
		}

		p.mu.Lock()
		if p.gen != gen {
			p.mu.Unlock()
			continue
		}
		p.index = (p.index + 1) % len(p.actions)
		p.mu.Unlock()

		select {
		case <-stop:
			return
		default:
		}
		for _, cmd := range a.Commands() {
			if err := p.sender.Send(cmd); err != nil {
				p.logger.Warn("Entertainment: send failed", "target", a.Target, "tag", cmd.Tag, "error", err)
			}
		}
	}
}
