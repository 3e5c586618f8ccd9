// Package gait sequences the leg and body moves of the insect robot.
//
// The robot has three joints: the front and rear legs, which swing forward
// and backward, and the middle joint, which bends the body to one side and
// lifts the legs of the other side off the ground. The two legs on each side
// form a bundle. Every locomotion primitive is two bundle strokes, ordered by
// a cost estimate so the robot wastes as little motion as possible.
package gait

import (
	"errors"
	"fmt"
	"time"
)

// Step delays of the two presets.
const (
	WalkStepDelay = 5 * time.Millisecond
	RunStepDelay  = 2 * time.Millisecond
)

var (
	ErrInvalidConfig    = errors.New("invalid gait config")
	ErrUnknownPrimitive = errors.New("unknown primitive")
)

// Config holds the gait geometry and speed. Angles are in degrees.
type Config struct {
	// Delay after every commanded step.
	StepDelay time.Duration

	// Rest angle of all three joints.
	Center int

	// Degrees moved per commanded step.
	Step int

	// Front and rear swing bounds. MovingMin puts the right legs forward,
	// MovingMax the left legs.
	MovingMin int
	MovingMax int

	// Middle joint bounds. BendingMin bends right, BendingMax bends left.
	BendingMin int
	BendingMax int
}

// DefaultConfig returns the stock geometry in walk mode.
func DefaultConfig() Config {
	const center = 90
	return Config{
		StepDelay:  WalkStepDelay,
		Center:     center,
		Step:       1,
		MovingMin:  center - 20,
		MovingMax:  center + 20,
		BendingMin: center - 20,
		BendingMax: center + 20,
	}
}

// Walk switches to the slow preset.
func (c *Config) Walk() {
	c.StepDelay = WalkStepDelay
	c.Step = 1
}

// Run switches to the fast preset. Only the delay changes.
func (c *Config) Run() {
	c.StepDelay = RunStepDelay
	c.Step = 1
}

// Validate checks that the bounds straddle the center.
func (c Config) Validate() error {
	switch {
	case c.Step < 1:
		return fmt.Errorf("%w: step %d < 1", ErrInvalidConfig, c.Step)
	case c.StepDelay < 0:
		return fmt.Errorf("%w: negative step delay %s", ErrInvalidConfig, c.StepDelay)
	case !(c.MovingMin < c.Center && c.Center < c.MovingMax):
		return fmt.Errorf("%w: moving bounds %d..%d around center %d", ErrInvalidConfig, c.MovingMin, c.MovingMax, c.Center)
	case !(c.BendingMin < c.Center && c.Center < c.BendingMax):
		return fmt.Errorf("%w: bending bounds %d..%d around center %d", ErrInvalidConfig, c.BendingMin, c.BendingMax, c.Center)
	}
	return nil
}
