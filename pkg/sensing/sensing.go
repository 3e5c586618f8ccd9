// Package sensing caches the distance and brightness readings of the insect
// robot. Readings are sampled lazily and kept until the next leg movement,
// since moving changes what the sensors point at.
package sensing

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/gwillem/insectbot/pkg/robot"
)

const (
	// Samples averaged per reading.
	DistanceSamples   = 5
	BrightnessSamples = 10

	// Reported when the average is below every DistanceTable threshold.
	FarDistance = 80

	// Closer than this (in cm) is dangerous.
	DangerDistance = 30

	// Sides whose raw averages differ by less than this are equally lit.
	BrightnessThreshold = 50
)

var log = logrus.WithFields(logrus.Fields{
	"pkg": "sensing",
})

// Mark maps a raw sensor threshold to a distance in centimeters.
type Mark struct {
	Raw         int
	Centimeters int
}

// DistanceTable is ordered from closest to farthest range.
var DistanceTable = []Mark{
	{600, 5},
	{450, 10},
	{300, 15},
	{250, 20},
	{170, 30},
	{130, 40},
	{100, 50},
}

// Centimeters maps an averaged raw reading onto DistanceTable: the first
// mark whose threshold the reading exceeds, or FarDistance.
func Centimeters(raw int) int {
	for _, m := range DistanceTable {
		if raw > m.Raw {
			return m.Centimeters
		}
	}
	return FarDistance
}

// Brightness is one pair of averaged light readings.
type Brightness struct {
	Left  int
	Right int
}

// Equal reports whether the sides differ by less than BrightnessThreshold.
func (b Brightness) Equal() bool {
	return abs(b.Right-b.Left) < BrightnessThreshold
}

// BrighterOnLeft and BrighterOnRight are false when the sides are Equal.
func (b Brightness) BrighterOnLeft() bool {
	return !b.Equal() && b.Left > b.Right
}

func (b Brightness) BrighterOnRight() bool {
	return !b.Equal() && b.Right > b.Left
}

// reading is a value that is either unknown or cached.
type reading[T any] struct {
	value T
	known bool
}

func (r *reading[T]) get(compute func() (T, error)) (T, error) {
	if r.known {
		return r.value, nil
	}
	v, err := compute()
	if err != nil {
		var zero T
		return zero, err
	}
	r.value, r.known = v, true
	return v, nil
}

func (r *reading[T]) forget() {
	var zero T
	r.value, r.known = zero, false
}

// Cache holds the distance and brightness readings. It is not safe for
// concurrent use.
type Cache struct {
	sensor     robot.Sensor
	channels   robot.SensorChannels
	distance   reading[int]
	brightness reading[Brightness]
}

func New(sensor robot.Sensor, channels robot.SensorChannels) *Cache {
	return &Cache{
		sensor:   sensor,
		channels: channels,
	}
}

// Invalidate forgets both readings.
func (c *Cache) Invalidate() {
	c.distance.forget()
	c.brightness.forget()
}

// Valid reports which readings are currently cached.
func (c *Cache) Valid() (distance, brightness bool) {
	return c.distance.known, c.brightness.known
}

// Distance returns the distance to the nearest obstacle in centimeters.
func (c *Cache) Distance(ctx context.Context) (int, error) {
	return c.distance.get(func() (int, error) {
		return c.computeDistance(ctx)
	})
}

// InDanger reports whether an obstacle is closer than DangerDistance.
func (c *Cache) InDanger(ctx context.Context) (bool, error) {
	d, err := c.Distance(ctx)
	if err != nil {
		return false, err
	}
	return d < DangerDistance, nil
}

// Brightness returns the averaged light readings.
func (c *Cache) Brightness(ctx context.Context) (Brightness, error) {
	return c.brightness.get(func() (Brightness, error) {
		return c.computeBrightness(ctx)
	})
}

func (c *Cache) BrightnessLeft(ctx context.Context) (int, error) {
	b, err := c.Brightness(ctx)
	return b.Left, err
}

func (c *Cache) BrightnessRight(ctx context.Context) (int, error) {
	b, err := c.Brightness(ctx)
	return b.Right, err
}

func (c *Cache) BrighterOnLeft(ctx context.Context) (bool, error) {
	b, err := c.Brightness(ctx)
	return b.BrighterOnLeft(), err
}

func (c *Cache) BrighterOnRight(ctx context.Context) (bool, error) {
	b, err := c.Brightness(ctx)
	return b.BrighterOnRight(), err
}

// BrightnessEqual is false when the reading fails.
func (c *Cache) BrightnessEqual(ctx context.Context) (bool, error) {
	b, err := c.Brightness(ctx)
	if err != nil {
		return false, err
	}
	return b.Equal(), nil
}

func (c *Cache) computeDistance(ctx context.Context) (int, error) {
	sum := 0
	for i := 0; i < DistanceSamples; i++ {
		v, err := c.sensor.ReadRaw(ctx, c.channels.Distance)
		if err != nil {
			return 0, fmt.Errorf("sample distance: %w", err)
		}
		sum += v
	}
	avg := sum / DistanceSamples
	cm := Centimeters(avg)

	log.Debugf("distance: raw=%d ~> %d cm", avg, cm)
	return cm, nil
}

func (c *Cache) computeBrightness(ctx context.Context) (Brightness, error) {
	var left, right int
	for i := 0; i < BrightnessSamples; i++ {
		l, err := c.sensor.ReadRaw(ctx, c.channels.LightLeft)
		if err != nil {
			return Brightness{}, fmt.Errorf("sample left light: %w", err)
		}
		r, err := c.sensor.ReadRaw(ctx, c.channels.LightRight)
		if err != nil {
			return Brightness{}, fmt.Errorf("sample right light: %w", err)
		}
		left += l
		right += r
	}
	b := Brightness{Left: left / BrightnessSamples, Right: right / BrightnessSamples}

	log.Debugf("brightness: left=%d right=%d", b.Left, b.Right)
	return b, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
