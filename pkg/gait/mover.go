package gait

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/gwillem/insectbot/pkg/robot"
)

var log = logrus.WithFields(logrus.Fields{
	"pkg": "gait",
})

// Mover is the motion primitive: it walks one joint to a target angle in
// fixed steps and keeps the pose of all three joints.
type Mover struct {
	actuator robot.Actuator
	sleeper  robot.Sleeper
	cfg      *Config
	pose     Pose

	// Called after every move that changed an angle.
	onMove func()
}

// NewMover creates a mover starting at the rest pose. cfg is read on every
// move, so preset changes apply to the next one.
func NewMover(a robot.Actuator, s robot.Sleeper, cfg *Config, onMove func()) *Mover {
	return &Mover{
		actuator: a,
		sleeper:  s,
		cfg:      cfg,
		pose:     RestPose(cfg.Center),
		onMove:   onMove,
	}
}

// Pose returns the last commanded angles.
func (m *Mover) Pose() Pose {
	return m.pose
}

// Reset records p as the current pose without commanding anything.
func (m *Mover) Reset(p Pose) {
	m.pose = p
}

// Move steps ch from its current angle to target, commanding the actuator
// and sleeping after every step. The last command is exactly target.
func (m *Mover) Move(ctx context.Context, ch robot.Channel, target int) error {
	current := m.pose.Angle(ch)
	if current == target {
		return nil
	}

	size := m.cfg.Step
	if size < 1 {
		size = 1
	}
	step := size
	if target < current {
		step = -size
	}

	moved := false
	defer func() {
		if moved && m.onMove != nil {
			m.onMove()
		}
	}()

	for abs(target-current) > size {
		current += step
		if err := m.command(ctx, ch, current); err != nil {
			return err
		}
		moved = true
	}
	if err := m.command(ctx, ch, target); err != nil {
		return err
	}
	moved = true
	return nil
}

func (m *Mover) command(ctx context.Context, ch robot.Channel, angle int) error {
	if err := m.actuator.CommandAngle(ctx, ch, angle); err != nil {
		log.WithError(err).Errorf("command %s to %d", ch, angle)
		return fmt.Errorf("move %s to %d: %w", ch, angle, err)
	}
	m.pose.set(ch, angle)
	m.sleeper.Sleep(m.cfg.StepDelay)
	return nil
}
