package robot

import (
	"context"
	"fmt"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.uber.org/multierr"
)

// Feetech bus settings shared by NewLegs and port discovery.
const (
	BusBaudRate = 1_000_000
	BusTimeout  = 100 * time.Millisecond
)

// Legs drives the three joint servos over a Feetech STS bus. It implements
// Actuator.
type Legs struct {
	bus         *feetech.Bus
	group       *feetech.ServoGroup
	joints      map[Channel]*feetech.ServoGroup
	attached    map[Channel]bool
	calibration Calibration
}

var _ Actuator = (*Legs)(nil)

// NewLegs opens the servo bus on port.
func NewLegs(port string, cal Calibration) (*Legs, error) {
	if err := cal.Validate(); err != nil {
		return nil, fmt.Errorf("calibration: %w", err)
	}

	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: BusBaudRate,
		Protocol: feetech.ProtocolSTS,
		Timeout:  BusTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open bus: %w", ErrActuatorUnreachable, err)
	}

	joints := make(map[Channel]*feetech.ServoGroup, len(cal))
	for ch, cc := range cal {
		joints[ch] = feetech.NewServoGroupByIDs(bus, cc.ID)
	}

	return &Legs{
		bus:         bus,
		group:       feetech.NewServoGroupByIDs(bus, cal.ChannelIDs()...),
		joints:      joints,
		attached:    make(map[Channel]bool, len(cal)),
		calibration: cal,
	}, nil
}

// Close disables torque on all servos and closes the bus.
func (l *Legs) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var err error
	if len(l.attached) > 0 {
		err = l.group.DisableAll(ctx)
	}
	return multierr.Combine(err, l.bus.Close())
}

// Attach enables torque on the servo driving ch.
func (l *Legs) Attach(ctx context.Context, ch Channel) error {
	joint, ok := l.joints[ch]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownChannel, ch)
	}
	if err := joint.EnableAll(ctx); err != nil {
		return fmt.Errorf("%w: enable %s: %w", ErrActuatorUnreachable, ch, err)
	}
	l.attached[ch] = true
	return nil
}

// CommandAngle writes the goal position of ch.
func (l *Legs) CommandAngle(ctx context.Context, ch Channel, degrees int) error {
	joint, ok := l.joints[ch]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownChannel, ch)
	}
	if !l.attached[ch] {
		return fmt.Errorf("%w: %s", ErrNotAttached, ch)
	}

	cc := l.calibration[ch]
	if err := joint.SetPositions(ctx, feetech.PositionMap{cc.ID: cc.Raw(degrees)}); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrActuatorUnreachable, ch, err)
	}
	return nil
}

// ReadAngles reads the present angle of every channel. The gait never uses
// this; it assumes commanded angles are reached.
func (l *Legs) ReadAngles(ctx context.Context) (map[Channel]int, error) {
	rawPositions, err := l.group.Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: read positions: %w", ErrActuatorUnreachable, err)
	}

	angles := make(map[Channel]int, len(rawPositions))
	for id, raw := range rawPositions {
		ch, cc, ok := l.calibration.ByID(id)
		if !ok {
			continue
		}
		angles[ch] = cc.Degrees(raw)
	}
	return angles, nil
}
