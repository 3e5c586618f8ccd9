package robot

import (
	"fmt"
	"math"
)

// MaxDegrees is the angle reached at RangeMax (RangeMin is 0 degrees).
const MaxDegrees = 180

// ChannelCalibration maps the degrees used by the gait onto the raw positions
// of one servo.
type ChannelCalibration struct {
	ID        int `json:"id" yaml:"id"`
	DriveMode int `json:"drive_mode" yaml:"drive_mode"`
	RangeMin  int `json:"range_min" yaml:"range_min"`
	RangeMax  int `json:"range_max" yaml:"range_max"`
}

// Calibration holds calibration data for all channels.
type Calibration map[Channel]ChannelCalibration

// DefaultCalibration returns the calibration of a stock robot: servo IDs 1-3
// and a 180 degree span centered on the middle of an STS 0..4095 range.
func DefaultCalibration() Calibration {
	cal := make(Calibration, 3)
	for i, ch := range AllChannels() {
		cal[ch] = ChannelCalibration{
			ID:       i + 1,
			RangeMin: 1024,
			RangeMax: 3072,
		}
	}
	return cal
}

// Raw converts an angle in degrees to a raw servo position.
func (c ChannelCalibration) Raw(degrees int) int {
	if c.DriveMode == 1 {
		degrees = MaxDegrees - degrees
	}
	rangeSize := float64(c.RangeMax - c.RangeMin)
	return int(math.Round(float64(degrees)/MaxDegrees*rangeSize)) + c.RangeMin
}

// Degrees converts a raw servo position to an angle in degrees.
func (c ChannelCalibration) Degrees(raw int) int {
	rangeSize := float64(c.RangeMax - c.RangeMin)
	if rangeSize == 0 {
		return 0
	}
	degrees := int(math.Round(float64(raw-c.RangeMin) / rangeSize * MaxDegrees))
	if c.DriveMode == 1 {
		degrees = MaxDegrees - degrees
	}
	return degrees
}

// ChannelIDs returns the servo IDs for all channels in the calibration.
func (c Calibration) ChannelIDs() []int {
	ids := make([]int, 0, len(c))
	// Use AllChannels() to ensure consistent ordering
	for _, ch := range AllChannels() {
		if cc, ok := c[ch]; ok {
			ids = append(ids, cc.ID)
		}
	}
	return ids
}

// ByID returns the channel and calibration for a given servo ID.
func (c Calibration) ByID(id int) (Channel, ChannelCalibration, bool) {
	for ch, cc := range c {
		if cc.ID == id {
			return ch, cc, true
		}
	}
	return "", ChannelCalibration{}, false
}

// Validate checks that every channel is calibrated with a distinct servo ID.
func (c Calibration) Validate() error {
	seen := make(map[int]Channel, len(c))
	for _, ch := range AllChannels() {
		cc, ok := c[ch]
		if !ok {
			return fmt.Errorf("%w: %s not calibrated", ErrUnknownChannel, ch)
		}
		if other, dup := seen[cc.ID]; dup {
			return fmt.Errorf("servo id %d used by both %s and %s", cc.ID, other, ch)
		}
		seen[cc.ID] = ch
	}
	return nil
}
