// Package interrupt lets an operator pause, steer and stop a running
// simulation from a side channel. Directives never take effect mid-round; the
// controller acts only when the turn runtime reaches a round boundary and
// asks for a resolution.
package interrupt

import (
	"context"
	"sync"

	"github.com/hupe1980/crewsim/core"
	"github.com/hupe1980/crewsim/logging"
	"github.com/hupe1980/crewsim/turn"
)

// State is the controller's execution state.
type State string

const (
	// StateRunning lets rounds proceed without blocking.
	StateRunning State = "running"
	// StatePaused blocks the runtime at the next round boundary.
	StatePaused State = "paused"
	// StateStopped terminates the active task.
	StateStopped State = "stopped"
)

// Source supplies operator directives. Directives returns a channel the
// controller drains until it is closed or the context ends.
type Source interface {
	Directives() <-chan core.Directive
	Close() error
}

// StatusFunc renders a status snapshot on demand.
type StatusFunc func() string

// Options configures a Controller.
type Options struct {
	Logger logging.Logger
	// Status is invoked for status directives; nil falls back to the
	// controller's own state.
	Status StatusFunc
}

// Controller is the interrupt state machine. It implements turn.Checkpoint;
// a nil source degrades it to a no-op so execution proceeds as if no
// interrupt capability existed.
type Controller struct {
	src    Source
	logger logging.Logger
	status StatusFunc

	mu         sync.Mutex
	state      State
	unpaused   chan struct{}
	inject     []core.Event
	terminated bool
}

var _ turn.Checkpoint = (*Controller)(nil)

// New builds a Controller over the given directive source. Passing a nil
// source is allowed and yields a controller whose Wait never blocks; the
// degraded mode is logged once.
func New(src Source, optFns ...func(o *Options)) *Controller {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	c := &Controller{
		src:    src,
		logger: opts.Logger,
		status: opts.Status,
		state:  StateRunning,
	}
	if src == nil {
		c.logger.Warn("interrupt control disabled", "error", core.ErrInterruptUnavailable.Error())
	}
	return c
}

// Start drains the directive source until the context ends or the source
// closes. It returns immediately for a degraded controller.
func (c *Controller) Start(ctx context.Context) {
	if c.src == nil {
		return
	}
	go func() {
		defer func() { _ = c.src.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-c.src.Directives():
				if !ok {
					return
				}
				c.Apply(d)
			}
		}
	}()
}

// State returns the controller's current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Apply feeds one directive through the state machine. Unknown directives are
// logged and ignored.
func (c *Controller) Apply(d core.Directive) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.terminated {
		return
	}

	switch d.Kind {
	case core.DirectivePause:
		if c.state == StateRunning {
			c.state = StatePaused
			c.unpaused = make(chan struct{})
			c.logger.Info("execution paused")
		}
	case core.DirectiveResume:
		c.resumeLocked()
		c.logger.Info("execution resumed")
	case core.DirectiveRedirect:
		if d.Payload != "" {
			c.inject = append(c.inject, core.NewDirectiveEvent(d.Payload))
		}
		c.resumeLocked()
		c.logger.Info("execution redirected", "message", d.Payload)
	case core.DirectiveTerminate:
		c.terminated = true
		c.state = StateStopped
		c.resumeLocked()
		c.logger.Info("execution terminated by operator")
	case core.DirectiveStatus:
		if c.status != nil {
			c.logger.Info("status", "report", c.status())
		} else {
			c.logger.Info("status", "state", string(c.state))
		}
	default:
		c.logger.Warn("unknown directive ignored", "kind", string(d.Kind))
	}
}

// resumeLocked unblocks any waiter. Caller holds the mutex.
func (c *Controller) resumeLocked() {
	if c.state == StatePaused {
		close(c.unpaused)
		c.unpaused = nil
	}
	if !c.terminated {
		c.state = StateRunning
	}
}

// Wait implements turn.Checkpoint. It blocks while paused, and on return
// hands the runtime any steering events accepted since the last boundary.
// Publishing them is the runtime's job; each steering event reaches the bus
// exactly once, and never mid-round.
func (c *Controller) Wait(ctx context.Context) (turn.Resolution, error) {
	if c.src == nil {
		return turn.Resolution{}, nil
	}
	for {
		c.mu.Lock()
		if c.terminated {
			c.mu.Unlock()
			return turn.Resolution{Terminate: true}, nil
		}
		if c.state != StatePaused {
			inj := c.inject
			c.inject = nil
			c.mu.Unlock()
			return turn.Resolution{Inject: inj}, nil
		}
		ch := c.unpaused
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return turn.Resolution{}, ctx.Err()
		case <-ch:
		}
	}
}
