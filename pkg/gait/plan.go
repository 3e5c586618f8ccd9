package gait

import (
	"fmt"

	"github.com/gwillem/insectbot/pkg/robot"
)

// Bundle is the front and rear leg pair of one side.
type Bundle int

const (
	Left Bundle = iota
	Right
)

func (b Bundle) String() string {
	if b == Left {
		return "left"
	}
	return "right"
}

// Direction is the end of the swing a bundle is driven to.
type Direction int

const (
	ToFront Direction = iota
	ToRear
)

func (d Direction) String() string {
	if d == ToFront {
		return "tofront"
	}
	return "torear"
}

// LegAngle returns the front/rear angle that puts bundle b at end d. The
// bundles are mirrored: left legs reach the front at MovingMax, right legs
// at MovingMin.
func (c Config) LegAngle(b Bundle, d Direction) int {
	front, rear := c.MovingMax, c.MovingMin
	if b == Right {
		front, rear = rear, front
	}
	if d == ToFront {
		return front
	}
	return rear
}

// BendAngle returns the middle angle that bends the body toward b.
func (c Config) BendAngle(b Bundle) int {
	if b == Left {
		return c.BendingMax
	}
	return c.BendingMin
}

// Stroke swings one bundle from one end to the other while the body is bent
// toward it.
type Stroke struct {
	Bundle Bundle
	From   Direction
	To     Direction
}

func (s Stroke) String() string {
	return fmt.Sprintf("%s %s->%s", s.Bundle, s.From, s.To)
}

// Primitive is one of the four locomotion primitives.
type Primitive int

const (
	Forward Primitive = iota
	Backward
	TurnLeft
	TurnRight
)

func (p Primitive) String() string {
	switch p {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	case TurnLeft:
		return "turn-left"
	case TurnRight:
		return "turn-right"
	}
	return fmt.Sprintf("primitive(%d)", int(p))
}

// Valid reports whether p is one of the four primitives.
func (p Primitive) Valid() bool {
	return p >= Forward && p <= TurnRight
}

// AllPrimitives lists the primitives in declaration order.
func AllPrimitives() []Primitive {
	return []Primitive{Forward, Backward, TurnLeft, TurnRight}
}

// stroke pair of each primitive. Turns drive the bundles to opposite ends,
// so the second stroke can't reuse the pose the first one left behind and
// has to be prepared from scratch.
var strokes = [...]struct {
	a, b      Stroke
	reprepare bool
}{
	Forward: {
		a: Stroke{Left, ToFront, ToRear},
		b: Stroke{Right, ToFront, ToRear},
	},
	Backward: {
		a: Stroke{Left, ToRear, ToFront},
		b: Stroke{Right, ToRear, ToFront},
	},
	TurnLeft: {
		a:         Stroke{Right, ToFront, ToRear},
		b:         Stroke{Left, ToRear, ToFront},
		reprepare: true,
	},
	TurnRight: {
		a:         Stroke{Left, ToFront, ToRear},
		b:         Stroke{Right, ToRear, ToFront},
		reprepare: true,
	},
}

// Step is one motion primitive call.
type Step struct {
	Channel robot.Channel
	Angle   int
}

// Plan is the ordered sequence of moves for one locomotion call.
type Plan struct {
	Primitive Primitive
	CostA     int
	CostB     int

	// "A" or "B", whichever stroke runs first.
	First string

	// Whether the first stroke needed preparing.
	Prepared bool

	Steps []Step
}

// Start returns the pose a stroke begins from: legs at its From end, body
// bent toward its bundle.
func (c Config) Start(s Stroke) Pose {
	leg := c.LegAngle(s.Bundle, s.From)
	return Pose{Front: leg, Middle: c.BendAngle(s.Bundle), Rear: leg}
}

// Plan computes the moves of p from pose. Stroke A runs first unless it
// costs strictly more than B.
func (c Config) Plan(p Primitive, pose Pose) (Plan, error) {
	if !p.Valid() {
		return Plan{Primitive: p}, fmt.Errorf("%w %d", ErrUnknownPrimitive, int(p))
	}
	s := strokes[p]
	plan := Plan{
		Primitive: p,
		CostA:     Cost(pose, c.Start(s.a), c.Center),
		CostB:     Cost(pose, c.Start(s.b), c.Center),
		First:     "A",
	}

	first, second, cost := s.a, s.b, plan.CostA
	if plan.CostA > plan.CostB {
		first, second, cost = s.b, s.a, plan.CostB
		plan.First = "B"
	}

	if cost != 0 {
		plan.Steps = c.prepare(plan.Steps, first)
		plan.Prepared = true
	}
	plan.Steps = c.swing(plan.Steps, first)

	if s.reprepare {
		plan.Steps = c.prepare(plan.Steps, second)
	} else {
		plan.Steps = append(plan.Steps, Step{robot.Middle, c.BendAngle(second.Bundle)})
	}
	plan.Steps = c.swing(plan.Steps, second)

	return plan, nil
}

// prepare straightens the body, brings the bundle to the start of the stroke
// and bends toward it.
func (c Config) prepare(steps []Step, s Stroke) []Step {
	leg := c.LegAngle(s.Bundle, s.From)
	return append(steps,
		Step{robot.Middle, c.Center},
		Step{robot.Front, leg},
		Step{robot.Rear, leg},
		Step{robot.Middle, c.BendAngle(s.Bundle)},
	)
}

func (c Config) swing(steps []Step, s Stroke) []Step {
	leg := c.LegAngle(s.Bundle, s.To)
	return append(steps,
		Step{robot.Front, leg},
		Step{robot.Rear, leg},
	)
}
