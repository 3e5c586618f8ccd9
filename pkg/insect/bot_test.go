package insect

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/insectbot/pkg/gait"
	"github.com/gwillem/insectbot/pkg/robot"
	"github.com/gwillem/insectbot/pkg/sensing"
)

type sleepRecorder struct {
	mu    sync.Mutex
	slept []time.Duration
}

func (s *sleepRecorder) Sleep(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slept = append(s.slept, d)
}

func (s *sleepRecorder) durations() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.slept...)
}

type rig struct {
	bot      *Bot
	actuator *robot.FakeActuator
	sensor   *robot.FakeSensor
	sleeper  *sleepRecorder
	channels robot.SensorChannels
}

func newRig(opts ...Option) *rig {
	r := &rig{
		actuator: robot.NewFakeActuator(),
		sensor:   robot.NewFakeSensor(),
		sleeper:  &sleepRecorder{},
		channels: robot.DefaultSensorChannels(),
	}
	r.sensor.Set(r.channels.Distance, 50)
	r.sensor.Set(r.channels.LightLeft, 300)
	r.sensor.Set(r.channels.LightRight, 300)
	r.bot = New(r.actuator, r.sensor, r.sleeper, opts...)
	return r
}

var setupCommands = []robot.Command{
	{Channel: robot.Front, Degrees: 90},
	{Channel: robot.Middle, Degrees: 90},
	{Channel: robot.Rear, Degrees: 90},
}

func TestNewTouchesNothing(t *testing.T) {
	r := newRig()

	assert.False(t, r.bot.Ready())
	assert.Empty(t, r.actuator.Commands())
	assert.Empty(t, r.sleeper.durations())
	assert.Equal(t, gait.RestPose(90), r.bot.Pose())
	assert.Equal(t, robot.ModeWalk, r.bot.Mode())
}

func TestSetupRunsOnFirstCall(t *testing.T) {
	ctx := context.Background()
	calls := map[string]func(*Bot) error{
		"WalkMode": func(b *Bot) error { return b.WalkMode() },
		"RunMode":  func(b *Bot) error { return b.RunMode() },
		"IsInDanger": func(b *Bot) error {
			_, err := b.IsInDanger(ctx)
			return err
		},
		"DistanceFromObstacle": func(b *Bot) error {
			_, err := b.DistanceFromObstacle(ctx)
			return err
		},
		"IsBrighterOnLeft": func(b *Bot) error {
			_, err := b.IsBrighterOnLeft(ctx)
			return err
		},
		"IsBrighterOnRight": func(b *Bot) error {
			_, err := b.IsBrighterOnRight(ctx)
			return err
		},
		"IsBrightnessEqual": func(b *Bot) error {
			_, err := b.IsBrightnessEqual(ctx)
			return err
		},
		"BrightnessOnLeft": func(b *Bot) error {
			_, err := b.BrightnessOnLeft(ctx)
			return err
		},
		"BrightnessOnRight": func(b *Bot) error {
			_, err := b.BrightnessOnRight(ctx)
			return err
		},
	}

	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			r := newRig()
			require.NoError(t, call(r.bot))
			require.NoError(t, call(r.bot))

			assert.True(t, r.bot.Ready())
			for _, ch := range robot.AllChannels() {
				assert.True(t, r.actuator.Attached(ch), "%s attached", ch)
			}
			assert.Equal(t, setupCommands, r.actuator.Commands())
			assert.Equal(t, []time.Duration{DefaultSettleDelay}, r.sleeper.durations())
		})
	}
}

func TestSetupBeforeLocomotion(t *testing.T) {
	r := newRig()
	require.NoError(t, r.bot.GoForward(context.Background()))

	cmds := r.actuator.Commands()
	require.Greater(t, len(cmds), len(setupCommands))
	assert.Equal(t, setupCommands, cmds[:len(setupCommands)])

	slept := r.sleeper.durations()
	assert.Equal(t, DefaultSettleDelay, slept[0])
	for _, d := range slept[1:] {
		assert.Equal(t, gait.WalkStepDelay, d)
	}
}

func TestSetupFailureIsRetried(t *testing.T) {
	r := newRig()
	boom := errors.New("bus down")
	r.actuator.Fail(robot.Middle, boom)

	_, err := r.bot.IsInDanger(context.Background())
	require.ErrorIs(t, err, boom)
	assert.False(t, r.bot.Ready())
	assert.Empty(t, r.sleeper.durations())
	assert.Zero(t, r.sensor.Reads(r.channels.Distance))

	r.actuator.Fail(robot.Middle, nil)
	r.actuator.ResetCommands()

	danger, err := r.bot.IsInDanger(context.Background())
	require.NoError(t, err)
	assert.False(t, danger)
	assert.True(t, r.bot.Ready())
	assert.Equal(t, setupCommands, r.actuator.Commands())
}

func TestGaitPresets(t *testing.T) {
	r := newRig()
	ctx := context.Background()

	require.NoError(t, r.bot.RunMode())
	assert.Equal(t, robot.ModeRun, r.bot.Mode())
	require.NoError(t, r.bot.TurnRight(ctx))
	for _, d := range r.sleeper.durations()[1:] {
		assert.Equal(t, gait.RunStepDelay, d)
	}

	require.NoError(t, r.bot.WalkMode())
	assert.Equal(t, robot.ModeWalk, r.bot.Mode())
	n := len(r.sleeper.durations())
	require.NoError(t, r.bot.TurnLeft(ctx))
	slept := r.sleeper.durations()
	require.Greater(t, len(slept), n)
	for _, d := range slept[n:] {
		assert.Equal(t, gait.WalkStepDelay, d)
	}
}

func TestLocomotionEndsOnLastSwing(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		move func(*Bot) error
		want gait.Pose
	}{
		{"forward", func(b *Bot) error { return b.GoForward(ctx) }, gait.Pose{Front: 110, Middle: 70, Rear: 110}},
		{"backward", func(b *Bot) error { return b.GoBackward(ctx) }, gait.Pose{Front: 70, Middle: 70, Rear: 70}},
		{"turn left", func(b *Bot) error { return b.TurnLeft(ctx) }, gait.Pose{Front: 110, Middle: 110, Rear: 110}},
		{"turn right", func(b *Bot) error { return b.TurnRight(ctx) }, gait.Pose{Front: 70, Middle: 70, Rear: 70}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRig()
			require.NoError(t, tt.move(r.bot))
			assert.Equal(t, tt.want, r.bot.Pose())
			for _, ch := range robot.AllChannels() {
				assert.Equal(t, tt.want.Angle(ch), r.actuator.Angle(ch), "%s", ch)
			}
		})
	}
}

func TestMoveInvalidatesReadings(t *testing.T) {
	r := newRig()
	ctx := context.Background()

	r.sensor.Set(r.channels.Distance, 500)
	danger, err := r.bot.IsInDanger(ctx)
	require.NoError(t, err)
	assert.True(t, danger)
	_, err = r.bot.BrightnessOnLeft(ctx)
	require.NoError(t, err)

	// Cached until the legs move.
	r.sensor.Set(r.channels.Distance, 50)
	danger, err = r.bot.IsInDanger(ctx)
	require.NoError(t, err)
	assert.True(t, danger)
	assert.Equal(t, sensing.DistanceSamples, r.sensor.Reads(r.channels.Distance))

	require.NoError(t, r.bot.GoBackward(ctx))

	danger, err = r.bot.IsInDanger(ctx)
	require.NoError(t, err)
	assert.False(t, danger)
	assert.Equal(t, 2*sensing.DistanceSamples, r.sensor.Reads(r.channels.Distance))

	_, err = r.bot.BrightnessOnRight(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2*sensing.BrightnessSamples, r.sensor.Reads(r.channels.LightRight))
}

func TestBrightnessQueries(t *testing.T) {
	r := newRig()
	ctx := context.Background()
	r.sensor.Set(r.channels.LightLeft, 400)
	r.sensor.Set(r.channels.LightRight, 300)

	left, err := r.bot.BrightnessOnLeft(ctx)
	require.NoError(t, err)
	assert.Equal(t, 400, left)

	right, err := r.bot.BrightnessOnRight(ctx)
	require.NoError(t, err)
	assert.Equal(t, 300, right)

	onLeft, err := r.bot.IsBrighterOnLeft(ctx)
	require.NoError(t, err)
	assert.True(t, onLeft)

	onRight, err := r.bot.IsBrighterOnRight(ctx)
	require.NoError(t, err)
	assert.False(t, onRight)

	equal, err := r.bot.IsBrightnessEqual(ctx)
	require.NoError(t, err)
	assert.False(t, equal)
}

func TestDistanceFromObstacle(t *testing.T) {
	r := newRig()
	r.sensor.Set(r.channels.Distance, 200)

	cm, err := r.bot.DistanceFromObstacle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 30, cm)
}

func TestLocomotionIgnoresCancel(t *testing.T) {
	r := newRig()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, r.bot.GoForward(ctx))
	assert.Equal(t, gait.Pose{Front: 110, Middle: 70, Rear: 110}, r.bot.Pose())
}

func TestLocomotionFailure(t *testing.T) {
	r := newRig()
	ctx := context.Background()
	require.NoError(t, r.bot.WalkMode())

	r.actuator.Fail(robot.Front, robot.ErrActuatorUnreachable)
	err := r.bot.GoForward(ctx)
	require.ErrorIs(t, err, robot.ErrActuatorUnreachable)

	// Forward from rest straightens the body first, then fails on the front leg.
	assert.Equal(t, gait.RestPose(90), r.bot.Pose())
}

func TestOptions(t *testing.T) {
	cfg := gait.DefaultConfig()
	cfg.Center = 100
	cfg.MovingMin, cfg.MovingMax = 80, 120
	cfg.BendingMin, cfg.BendingMax = 80, 120

	channels := robot.SensorChannels{Distance: robot.A0, LightLeft: robot.A1, LightRight: robot.A2}
	act := robot.NewFakeActuator()
	sensor := robot.NewFakeSensor()
	sensor.Set(robot.A0, 500)
	sleeper := &sleepRecorder{}

	bot := New(act, sensor, sleeper,
		WithGait(cfg),
		WithSensorChannels(channels),
		WithSettleDelay(time.Second),
	)

	danger, err := bot.IsInDanger(context.Background())
	require.NoError(t, err)
	assert.True(t, danger)
	assert.Equal(t, []time.Duration{time.Second}, sleeper.durations())
	assert.Equal(t, 100, act.Angle(robot.Middle))
	assert.Equal(t, gait.RestPose(100), bot.Pose())
}

func TestInvalidGaitFailsSetup(t *testing.T) {
	cfg := gait.DefaultConfig()
	cfg.MovingMin, cfg.MovingMax = 110, 70
	r := newRig(WithGait(cfg))
	ctx := context.Background()

	err := r.bot.GoForward(ctx)
	require.ErrorIs(t, err, gait.ErrInvalidConfig)
	_, err = r.bot.IsInDanger(ctx)
	require.ErrorIs(t, err, gait.ErrInvalidConfig)

	assert.False(t, r.bot.Ready())
	assert.Empty(t, r.actuator.Commands())
	assert.False(t, r.actuator.Attached(robot.Front))
	assert.Empty(t, r.sleeper.durations())
	assert.Zero(t, r.sensor.Reads(r.channels.Distance))
}

func TestUnknownPrimitive(t *testing.T) {
	r := newRig()

	err := r.bot.Do(context.Background(), gait.Primitive(9))
	require.ErrorIs(t, err, gait.ErrUnknownPrimitive)

	// Setup still ran, but nothing moved after it.
	assert.True(t, r.bot.Ready())
	assert.Equal(t, setupCommands, r.actuator.Commands())
	assert.Equal(t, gait.RestPose(90), r.bot.Pose())
}

func TestConcurrentCallsDoNotInterleave(t *testing.T) {
	r := newRig()
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, r.bot.GoForward(ctx))
			_, err := r.bot.IsInDanger(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Each move walks one joint by a single degree from the previous command.
	last := map[robot.Channel]int{robot.Front: 90, robot.Middle: 90, robot.Rear: 90}
	for _, c := range r.actuator.Commands()[len(setupCommands):] {
		assert.LessOrEqual(t, abs(c.Degrees-last[c.Channel]), 1, "%+v", c)
		last[c.Channel] = c.Degrees
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
