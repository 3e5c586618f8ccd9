// Package teleop drives the insect robot from a control loop: manual
// commands from the operator, or one of the reactive behaviors.
package teleop

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/gwillem/insectbot/pkg/gait"
	"github.com/gwillem/insectbot/pkg/insect"
)

var log = logrus.WithFields(logrus.Fields{
	"pkg": "teleop",
})

var ErrRunning = errors.New("already running")

// Behavior selects who decides the next move.
type Behavior int

const (
	// Manual repeats the last operator command until Stop.
	Manual Behavior = iota
	// Avoid walks forward and turns left away from obstacles.
	Avoid
	// SeekLight turns toward the brighter side and backs off obstacles.
	SeekLight
)

func (b Behavior) String() string {
	switch b {
	case Manual:
		return "manual"
	case Avoid:
		return "avoid"
	case SeekLight:
		return "seek-light"
	}
	return fmt.Sprintf("behavior(%d)", int(b))
}

// ParseBehavior accepts the names returned by Behavior.String.
func ParseBehavior(s string) (Behavior, error) {
	for _, b := range []Behavior{Manual, Avoid, SeekLight} {
		if strings.EqualFold(s, b.String()) {
			return b, nil
		}
	}
	return Manual, fmt.Errorf("unknown behavior %q", s)
}

// Command is an operator input.
type Command int

const (
	Forward Command = iota
	Backward
	Left
	Right
	Stop
	Walk
	Run
)

var commandNames = [...]string{"forward", "backward", "left", "right", "stop", "walk", "run"}

func (c Command) String() string {
	if c < 0 || int(c) >= len(commandNames) {
		return fmt.Sprintf("command(%d)", int(c))
	}
	return commandNames[c]
}

// primitive returns the locomotion primitive of a move command.
func (c Command) primitive() (gait.Primitive, bool) {
	switch c {
	case Forward:
		return gait.Forward, true
	case Backward:
		return gait.Backward, true
	case Left:
		return gait.TurnLeft, true
	case Right:
		return gait.TurnRight, true
	}
	return 0, false
}

// Idle is the State.Action of a tick that didn't move.
const Idle = "idle"

// State is published after every tick.
type State struct {
	Pose     gait.Pose
	Distance int
	Left     int
	Right    int

	// Primitive run this tick, or Idle.
	Action   string
	Behavior Behavior
	Mode     string

	Timestamp time.Time
	Error     error
}

// Config holds configuration for the controller.
type Config struct {
	Hz       int
	Behavior Behavior

	// Defaults to the wall clock.
	Clock clock.Clock
}

// Controller manages the control loop.
type Controller struct {
	bot   *insect.Bot
	hz    int
	clock clock.Clock

	mu       sync.RWMutex
	running  bool
	behavior Behavior
	manual   *gait.Primitive

	cmdCh   chan Command
	stateCh chan State
	logCh   chan string
}

// NewController creates a controller for bot. The bot is not touched until
// Start.
func NewController(bot *insect.Bot, cfg Config) *Controller {
	if cfg.Hz <= 0 {
		cfg.Hz = 5
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}

	return &Controller{
		bot:      bot,
		hz:       cfg.Hz,
		clock:    cfg.Clock,
		behavior: cfg.Behavior,
		cmdCh:    make(chan Command, 16),
		stateCh:  make(chan State, 1),
		logCh:    make(chan string, 10),
	}
}

// States returns a channel that receives state updates.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Hz returns the control frequency.
func (c *Controller) Hz() int {
	return c.hz
}

func (c *Controller) Behavior() Behavior {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.behavior
}

// SetBehavior switches behavior at the next tick. Leaving Manual forgets the
// repeated command.
func (c *Controller) SetBehavior(b Behavior) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.behavior == b {
		return
	}
	c.behavior = b
	c.manual = nil
	log.Infof("behavior: %s", b)
}

// Send queues an operator command for the next tick. A move command takes
// over from any reactive behavior. Commands are dropped while the queue is
// full.
func (c *Controller) Send(cmd Command) {
	select {
	case c.cmdCh <- cmd:
	default:
		log.Warnf("command queue full, dropped %s", cmd)
	}
}

// Start runs the control loop until ctx ends.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrRunning
	}
	c.running = true
	c.mu.Unlock()

	log.Infof("control loop started at %d Hz, %s", c.hz, c.Behavior())

	ticker := c.clock.Ticker(time.Second / time.Duration(c.hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case <-ticker.C:
			c.step(ctx)
		}
	}
}

func (c *Controller) step(ctx context.Context) {
	action, err := c.act(ctx)
	errs := []error{err}

	s := State{
		Pose:      c.bot.Pose(),
		Action:    action,
		Behavior:  c.Behavior(),
		Mode:      c.bot.Mode(),
		Timestamp: c.clock.Now(),
	}
	s.Distance, err = c.bot.DistanceFromObstacle(ctx)
	errs = append(errs, err)
	s.Left, err = c.bot.BrightnessOnLeft(ctx)
	errs = append(errs, err)
	s.Right, err = c.bot.BrightnessOnRight(ctx)
	errs = append(errs, err)

	s.Error = multierr.Combine(errs...)
	if s.Error != nil {
		log.WithError(s.Error).Warn("tick failed")
	}
	c.sendState(s)
}

// drain applies every queued command.
func (c *Controller) drain() error {
	for {
		select {
		case cmd := <-c.cmdCh:
			if err := c.apply(cmd); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (c *Controller) apply(cmd Command) error {
	switch cmd {
	case Walk:
		return c.bot.WalkMode()
	case Run:
		return c.bot.RunMode()
	case Stop:
		c.SetBehavior(Manual)
		c.mu.Lock()
		c.manual = nil
		c.mu.Unlock()
		return nil
	}

	p, ok := cmd.primitive()
	if !ok {
		return fmt.Errorf("unknown command %d", int(cmd))
	}
	c.SetBehavior(Manual)
	c.mu.Lock()
	c.manual = &p
	c.mu.Unlock()
	return nil
}

// act applies the queued commands, then runs at most one primitive chosen by
// the current behavior. It returns the primitive's name or Idle.
func (c *Controller) act(ctx context.Context) (string, error) {
	cmdErr := c.drain()

	p, ok, err := c.decide(ctx)
	if err != nil || !ok {
		return Idle, multierr.Append(cmdErr, err)
	}
	return p.String(), multierr.Append(cmdErr, c.bot.Do(ctx, p))
}

func (c *Controller) decide(ctx context.Context) (gait.Primitive, bool, error) {
	c.mu.RLock()
	behavior, manual := c.behavior, c.manual
	c.mu.RUnlock()

	switch behavior {
	case Avoid:
		danger, err := c.bot.IsInDanger(ctx)
		if err != nil {
			return 0, false, err
		}
		if danger {
			return gait.TurnLeft, true, nil
		}
		return gait.Forward, true, nil

	case SeekLight:
		danger, err := c.bot.IsInDanger(ctx)
		if err != nil {
			return 0, false, err
		}
		if danger {
			return gait.Backward, true, nil
		}
		left, err := c.bot.IsBrighterOnLeft(ctx)
		if err != nil {
			return 0, false, err
		}
		if left {
			return gait.TurnLeft, true, nil
		}
		right, err := c.bot.IsBrighterOnRight(ctx)
		if err != nil {
			return 0, false, err
		}
		if right {
			return gait.TurnRight, true, nil
		}
		return gait.Forward, true, nil
	}

	if manual == nil {
		return 0, false, nil
	}
	return *manual, true, nil
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		c.stateCh <- s
	}
}

func (c *Controller) shutdown() {
	c.mu.Lock()
	c.running = false
	c.manual = nil
	c.mu.Unlock()

	log.Info("control loop stopped")
}

// LogHook returns a logrus hook that copies entries to Logs. Entries are
// dropped while the channel is full.
func (c *Controller) LogHook() logrus.Hook {
	return &logHook{ch: c.logCh}
}

type logHook struct {
	ch chan<- string
}

func (h *logHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *logHook) Fire(e *logrus.Entry) error {
	msg := fmt.Sprintf("[%s] %s", e.Time.Format("15:04:05"), e.Message)
	if err, ok := e.Data[logrus.ErrorKey].(error); ok {
		msg += ": " + err.Error()
	}
	select {
	case h.ch <- msg:
	default:
	}
	return nil
}
