// Package robot provides the hardware capabilities of the insect robot: the
// three joint actuators, the analog sensors, and their configuration.
package robot

import (
	"context"
	"fmt"
	"time"
)

// Channel identifies one of the three joint actuators.
type Channel string

// Joint channels of the insect robot.
const (
	Front  Channel = "front"
	Middle Channel = "middle"
	Rear   Channel = "rear"
)

// AllChannels returns all channels in order (matching servo IDs 1-3).
func AllChannels() []Channel {
	return []Channel{
		Front,
		Middle,
		Rear,
	}
}

// ParseChannel converts a channel name into a Channel.
func ParseChannel(s string) (Channel, error) {
	for _, ch := range AllChannels() {
		if string(ch) == s {
			return ch, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownChannel, s)
}

// SensorChannel identifies one analog input of the sensor board.
type SensorChannel int

// Analog inputs wired on the stock board.
const (
	A0 SensorChannel = 0
	A1 SensorChannel = 1
	A2 SensorChannel = 2
)

func (c SensorChannel) String() string {
	return fmt.Sprintf("A%d", int(c))
}

// Actuator drives the joint servos. Commanded angles are whole degrees and
// are not range checked here.
type Actuator interface {
	Attach(ctx context.Context, ch Channel) error
	CommandAngle(ctx context.Context, ch Channel, degrees int) error
}

// Sensor supplies single raw analog samples. Averaging is up to the caller.
type Sensor interface {
	ReadRaw(ctx context.Context, ch SensorChannel) (int, error)
}

// Sleeper blocks the calling goroutine. clock.Clock satisfies it.
type Sleeper interface {
	Sleep(d time.Duration)
}
