package gait

import (
	"context"
	"fmt"
)

// Walker executes locomotion primitives through a Mover.
type Walker struct {
	cfg   *Config
	mover *Mover
}

func NewWalker(cfg *Config, mover *Mover) *Walker {
	return &Walker{cfg: cfg, mover: mover}
}

// Pose returns the last commanded angles.
func (w *Walker) Pose() Pose {
	return w.mover.Pose()
}

// Plan previews the moves of p from the current pose.
func (w *Walker) Plan(p Primitive) (Plan, error) {
	return w.cfg.Plan(p, w.mover.Pose())
}

// Do plans p once from the current pose and runs every step. It stops at the
// first failing step; the pose then reflects what was actually commanded.
// An unknown primitive moves nothing.
func (w *Walker) Do(ctx context.Context, p Primitive) (Plan, error) {
	plan, err := w.Plan(p)
	if err != nil {
		return plan, err
	}
	log.Debugf("%s: costA=%d costB=%d first=%s prepared=%v from %s",
		p, plan.CostA, plan.CostB, plan.First, plan.Prepared, w.mover.Pose())

	for _, step := range plan.Steps {
		if err := w.mover.Move(ctx, step.Channel, step.Angle); err != nil {
			return plan, fmt.Errorf("%s: %w", p, err)
		}
	}
	return plan, nil
}

func (w *Walker) Forward(ctx context.Context) (Plan, error) {
	return w.Do(ctx, Forward)
}

func (w *Walker) Backward(ctx context.Context) (Plan, error) {
	return w.Do(ctx, Backward)
}

func (w *Walker) TurnLeft(ctx context.Context) (Plan, error) {
	return w.Do(ctx, TurnLeft)
}

func (w *Walker) TurnRight(ctx context.Context) (Plan, error) {
	return w.Do(ctx, TurnRight)
}
