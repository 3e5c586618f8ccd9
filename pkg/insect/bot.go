// Package insect is the public surface of the insect robot: locomotion,
// speed presets and sensor queries behind a single mutex, with the hardware
// brought up lazily on first use.
package insect

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gwillem/insectbot/pkg/gait"
	"github.com/gwillem/insectbot/pkg/robot"
	"github.com/gwillem/insectbot/pkg/sensing"
)

// DefaultSettleDelay is how long setup waits for the servos to reach center.
const DefaultSettleDelay = 2000 * time.Millisecond

var log = logrus.WithFields(logrus.Fields{
	"pkg": "insect",
})

// Option configures a Bot.
type Option func(*Bot)

// WithGait replaces the default gait geometry. An invalid cfg makes every
// call fail before the hardware is touched.
func WithGait(cfg gait.Config) Option {
	return func(b *Bot) { b.gait = cfg }
}

// WithSensorChannels replaces the stock sensor wiring.
func WithSensorChannels(ch robot.SensorChannels) Option {
	return func(b *Bot) { b.channels = ch }
}

func WithSettleDelay(d time.Duration) Option {
	return func(b *Bot) { b.settle = d }
}

// Bot is safe for concurrent use. Calls are serialized, so a locomotion call
// finishes before any other call starts.
type Bot struct {
	mu sync.Mutex

	actuator robot.Actuator
	sleeper  robot.Sleeper
	channels robot.SensorChannels
	settle   time.Duration
	gait     gait.Config
	mode     string
	ready    bool

	mover  *gait.Mover
	walker *gait.Walker
	cache  *sensing.Cache
}

// New creates a bot in walk mode. No hardware is touched until the first
// call.
func New(actuator robot.Actuator, sensor robot.Sensor, sleeper robot.Sleeper, opts ...Option) *Bot {
	b := &Bot{
		actuator: actuator,
		sleeper:  sleeper,
		channels: robot.DefaultSensorChannels(),
		settle:   DefaultSettleDelay,
		gait:     gait.DefaultConfig(),
		mode:     robot.ModeWalk,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.cache = sensing.New(sensor, b.channels)
	b.mover = gait.NewMover(actuator, sleeper, &b.gait, b.cache.Invalidate)
	b.walker = gait.NewWalker(&b.gait, b.mover)
	return b
}

// setup centers every joint and waits for the servos to settle. It runs once;
// a failed attempt is repeated on the next call. Caller must hold mu.
func (b *Bot) setup(ctx context.Context) error {
	if b.ready {
		return nil
	}
	if err := b.gait.Validate(); err != nil {
		return fmt.Errorf("setup: %w", err)
	}

	center := b.gait.Center
	b.mover.Reset(gait.RestPose(center))
	for _, ch := range robot.AllChannels() {
		if err := b.actuator.Attach(ctx, ch); err != nil {
			return fmt.Errorf("setup: attach %s: %w", ch, err)
		}
		if err := b.actuator.CommandAngle(ctx, ch, center); err != nil {
			return fmt.Errorf("setup: center %s: %w", ch, err)
		}
	}
	b.sleeper.Sleep(b.settle)
	b.cache.Invalidate()
	b.ready = true

	log.Infof("setup done, joints at %d", center)
	return nil
}

// Ready reports whether setup has completed.
func (b *Bot) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ready
}

// WalkMode selects the slow preset.
func (b *Bot) WalkMode() error {
	return b.setMode(robot.ModeWalk)
}

// RunMode selects the fast preset.
func (b *Bot) RunMode() error {
	return b.setMode(robot.ModeRun)
}

func (b *Bot) setMode(mode string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.setup(context.Background()); err != nil {
		return err
	}
	if mode == robot.ModeRun {
		b.gait.Run()
	} else {
		b.gait.Walk()
	}
	if b.mode != mode {
		log.Infof("%s mode", mode)
	}
	b.mode = mode
	return nil
}

// Mode returns robot.ModeWalk or robot.ModeRun.
func (b *Bot) Mode() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mode
}

// Pose returns the last commanded angles.
func (b *Bot) Pose() gait.Pose {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mover.Pose()
}

func (b *Bot) GoForward(ctx context.Context) error {
	return b.Do(ctx, gait.Forward)
}

func (b *Bot) GoBackward(ctx context.Context) error {
	return b.Do(ctx, gait.Backward)
}

func (b *Bot) TurnLeft(ctx context.Context) error {
	return b.Do(ctx, gait.TurnLeft)
}

func (b *Bot) TurnRight(ctx context.Context) error {
	return b.Do(ctx, gait.TurnRight)
}

// Do runs p to completion. Cancelling ctx does not interrupt it; a half
// finished stroke would leave the legs in an unplanned pose.
func (b *Bot) Do(ctx context.Context, p gait.Primitive) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	if err := b.setup(ctx); err != nil {
		return err
	}
	_, err := b.walker.Do(ctx, p)
	if err != nil {
		log.WithError(err).Warnf("%s failed at %s", p, b.mover.Pose())
	}
	return err
}

// DistanceFromObstacle returns the distance to the nearest obstacle in cm.
func (b *Bot) DistanceFromObstacle(ctx context.Context) (int, error) {
	return query(ctx, b, b.cache.Distance)
}

// IsInDanger reports whether an obstacle is closer than 30 cm.
func (b *Bot) IsInDanger(ctx context.Context) (bool, error) {
	return query(ctx, b, b.cache.InDanger)
}

func (b *Bot) BrightnessOnLeft(ctx context.Context) (int, error) {
	return query(ctx, b, b.cache.BrightnessLeft)
}

func (b *Bot) BrightnessOnRight(ctx context.Context) (int, error) {
	return query(ctx, b, b.cache.BrightnessRight)
}

func (b *Bot) IsBrighterOnLeft(ctx context.Context) (bool, error) {
	return query(ctx, b, b.cache.BrighterOnLeft)
}

func (b *Bot) IsBrighterOnRight(ctx context.Context) (bool, error) {
	return query(ctx, b, b.cache.BrighterOnRight)
}

// IsBrightnessEqual reports whether both sides are within the brightness
// threshold of each other.
func (b *Bot) IsBrightnessEqual(ctx context.Context) (bool, error) {
	return query(ctx, b, b.cache.BrightnessEqual)
}

// query runs a sensor reading under the lock, after setup.
func query[T any](ctx context.Context, b *Bot, read func(context.Context) (T, error)) (T, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.setup(ctx); err != nil {
		var zero T
		return zero, err
	}
	return read(ctx)
}
