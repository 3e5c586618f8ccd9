package gait

import (
	"fmt"

	"github.com/gwillem/insectbot/pkg/robot"
)

// Pose is the last commanded angle of each joint.
type Pose struct {
	Front  int
	Middle int
	Rear   int
}

// RestPose has every joint at center.
func RestPose(center int) Pose {
	return Pose{Front: center, Middle: center, Rear: center}
}

// Angle returns the angle of ch.
func (p Pose) Angle(ch robot.Channel) int {
	switch ch {
	case robot.Front:
		return p.Front
	case robot.Middle:
		return p.Middle
	case robot.Rear:
		return p.Rear
	}
	panic(fmt.Sprintf("gait: unknown channel %q", ch))
}

func (p *Pose) set(ch robot.Channel, angle int) {
	switch ch {
	case robot.Front:
		p.Front = angle
	case robot.Middle:
		p.Middle = angle
	case robot.Rear:
		p.Rear = angle
	default:
		panic(fmt.Sprintf("gait: unknown channel %q", ch))
	}
}

func (p Pose) String() string {
	return fmt.Sprintf("front=%d middle=%d rear=%d", p.Front, p.Middle, p.Rear)
}

// Cost estimates the degrees of travel needed to get from current to target.
// It never moves anything and is only used to order two plans.
//
// Repositioning a loaded front or rear leg means straightening the body
// first, swinging the legs, then bending into the target. When both legs
// are already in place only the middle joint moves.
func Cost(current, target Pose, center int) int {
	if target.Front != current.Front || target.Rear != current.Rear {
		return abs(center-current.Middle) +
			abs(target.Front-current.Front) +
			abs(target.Rear-current.Rear) +
			abs(target.Middle-center)
	}
	return abs(target.Middle - current.Middle)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
