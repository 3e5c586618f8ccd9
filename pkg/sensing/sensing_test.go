package sensing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/insectbot/pkg/robot"
)

func newCache() (*Cache, *robot.FakeSensor) {
	s := robot.NewFakeSensor()
	ch := robot.DefaultSensorChannels()
	s.Set(ch.Distance, 0)
	s.Set(ch.LightLeft, 0)
	s.Set(ch.LightRight, 0)
	return New(s, ch), s
}

func TestCentimeters(t *testing.T) {
	tests := []struct {
		raw  int
		want int
	}{
		{1023, 5},
		{601, 5},
		{600, 10},
		{500, 10},
		{451, 10},
		{450, 15},
		{301, 15},
		{300, 20},
		{251, 20},
		{250, 30},
		{200, 30},
		{171, 30},
		{170, 40},
		{131, 40},
		{130, 50},
		{101, 50},
		{100, 80},
		{50, 80},
		{0, 80},
	}

	for _, tt := range tests {
		if got := Centimeters(tt.raw); got != tt.want {
			t.Errorf("Centimeters(%d) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestDanger(t *testing.T) {
	tests := []struct {
		raw    int
		cm     int
		danger bool
	}{
		{500, 10, true},
		{200, 30, false},
		{260, 20, true},
		{50, 80, false},
	}

	for _, tt := range tests {
		c, s := newCache()
		s.Set(robot.DefaultSensorChannels().Distance, tt.raw)

		cm, err := c.Distance(context.Background())
		require.NoError(t, err)
		assert.Equal(t, tt.cm, cm, "raw %d", tt.raw)

		danger, err := c.InDanger(context.Background())
		require.NoError(t, err)
		assert.Equal(t, tt.danger, danger, "raw %d", tt.raw)
	}
}

func TestDistanceAveragesFiveSamples(t *testing.T) {
	c, s := newCache()
	ch := robot.DefaultSensorChannels()

	// (700+0+0+0+0)/5 = 140 lands on 40 cm, not the 5 cm of the first sample.
	s.SetSequence(ch.Distance, 700, 0, 0, 0, 0)

	cm, err := c.Distance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 40, cm)
	assert.Equal(t, DistanceSamples, s.Reads(ch.Distance))
}

func TestDistanceTruncatesAverage(t *testing.T) {
	c, s := newCache()
	ch := robot.DefaultSensorChannels()

	// 504/5 = 100 after truncation, which is not above the 100 mark.
	s.SetSequence(ch.Distance, 101, 101, 101, 101, 100)

	cm, err := c.Distance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, FarDistance, cm)
}

func TestBrightness(t *testing.T) {
	tests := []struct {
		name        string
		left, right int
		onLeft      bool
		onRight     bool
		equal       bool
	}{
		{"left brighter", 400, 300, true, false, false},
		{"right brighter", 300, 400, false, true, false},
		{"just equal", 349, 300, false, false, true},
		{"threshold", 350, 300, true, false, false},
		{"same", 512, 512, false, false, true},
		{"dark", 0, 0, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, s := newCache()
			ch := robot.DefaultSensorChannels()
			s.Set(ch.LightLeft, tt.left)
			s.Set(ch.LightRight, tt.right)

			b, err := c.Brightness(context.Background())
			require.NoError(t, err)
			assert.Equal(t, Brightness{Left: tt.left, Right: tt.right}, b)
			assert.Equal(t, tt.onLeft, b.BrighterOnLeft())
			assert.Equal(t, tt.onRight, b.BrighterOnRight())
			assert.Equal(t, tt.equal, b.Equal())
		})
	}
}

func TestBrightnessPartition(t *testing.T) {
	for left := 0; left <= 1023; left += 31 {
		for right := 0; right <= 1023; right += 29 {
			b := Brightness{Left: left, Right: right}
			n := 0
			for _, v := range []bool{b.BrighterOnLeft(), b.BrighterOnRight(), b.Equal()} {
				if v {
					n++
				}
			}
			if n != 1 {
				t.Fatalf("%+v: %d of left/right/equal hold, want exactly 1", b, n)
			}
		}
	}
}

func TestBrightnessAveragesTenSamplesPerSide(t *testing.T) {
	c, s := newCache()
	ch := robot.DefaultSensorChannels()
	s.SetSequence(ch.LightLeft, 100, 200, 100, 200, 100, 200, 100, 200, 100, 200)
	s.SetSequence(ch.LightRight, 9)

	b, err := c.Brightness(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 150, b.Left)
	assert.Equal(t, 9, b.Right)
	assert.Equal(t, BrightnessSamples, s.Reads(ch.LightLeft))
	assert.Equal(t, BrightnessSamples, s.Reads(ch.LightRight))
}

func TestCacheHit(t *testing.T) {
	c, s := newCache()
	ch := robot.DefaultSensorChannels()
	ctx := context.Background()

	s.Set(ch.Distance, 500)
	for range 3 {
		cm, err := c.Distance(ctx)
		require.NoError(t, err)
		assert.Equal(t, 10, cm)
		_, err = c.InDanger(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, DistanceSamples, s.Reads(ch.Distance))

	// Changing the sensor doesn't change a cached reading.
	s.Set(ch.Distance, 0)
	cm, err := c.Distance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, cm)

	for range 3 {
		_, err := c.Brightness(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, BrightnessSamples, s.Reads(ch.LightLeft))
	assert.Equal(t, BrightnessSamples, s.Reads(ch.LightRight))
}

func TestCacheReadingsAreIndependent(t *testing.T) {
	c, s := newCache()
	ch := robot.DefaultSensorChannels()
	ctx := context.Background()

	_, err := c.Distance(ctx)
	require.NoError(t, err)
	distance, brightness := c.Valid()
	assert.True(t, distance)
	assert.False(t, brightness)
	assert.Zero(t, s.Reads(ch.LightLeft))

	_, err = c.Brightness(ctx)
	require.NoError(t, err)
	assert.Equal(t, DistanceSamples, s.Reads(ch.Distance))
}

func TestInvalidate(t *testing.T) {
	c, s := newCache()
	ch := robot.DefaultSensorChannels()
	ctx := context.Background()

	s.Set(ch.Distance, 500)
	_, err := c.Distance(ctx)
	require.NoError(t, err)
	_, err = c.Brightness(ctx)
	require.NoError(t, err)

	c.Invalidate()
	distance, brightness := c.Valid()
	assert.False(t, distance)
	assert.False(t, brightness)

	s.Set(ch.Distance, 50)
	cm, err := c.Distance(ctx)
	require.NoError(t, err)
	assert.Equal(t, FarDistance, cm)
	assert.Equal(t, 2*DistanceSamples, s.Reads(ch.Distance))

	_, err = c.Brightness(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2*BrightnessSamples, s.Reads(ch.LightLeft))
}

func TestSensorFailureLeavesReadingUnknown(t *testing.T) {
	c, s := newCache()
	ch := robot.DefaultSensorChannels()
	ctx := context.Background()
	boom := errors.New("boom")

	s.Fail(ch.Distance, boom)
	_, err := c.Distance(ctx)
	require.ErrorIs(t, err, boom)
	_, err = c.InDanger(ctx)
	require.ErrorIs(t, err, boom)

	distance, _ := c.Valid()
	assert.False(t, distance)

	s.Fail(ch.Distance, nil)
	s.Set(ch.Distance, 500)
	danger, err := c.InDanger(ctx)
	require.NoError(t, err)
	assert.True(t, danger)
}

func TestBrightnessFailure(t *testing.T) {
	c, s := newCache()
	ch := robot.DefaultSensorChannels()
	s.Fail(ch.LightRight, robot.ErrSensorUnavailable)

	_, err := c.Brightness(context.Background())
	require.ErrorIs(t, err, robot.ErrSensorUnavailable)

	_, brightness := c.Valid()
	assert.False(t, brightness)
}

func TestCacheBrightnessQueries(t *testing.T) {
	c, s := newCache()
	ch := robot.DefaultSensorChannels()
	ctx := context.Background()
	s.Set(ch.LightLeft, 400)
	s.Set(ch.LightRight, 300)

	left, err := c.BrightnessLeft(ctx)
	require.NoError(t, err)
	assert.Equal(t, 400, left)

	right, err := c.BrightnessRight(ctx)
	require.NoError(t, err)
	assert.Equal(t, 300, right)

	onLeft, err := c.BrighterOnLeft(ctx)
	require.NoError(t, err)
	assert.True(t, onLeft)

	onRight, err := c.BrighterOnRight(ctx)
	require.NoError(t, err)
	assert.False(t, onRight)

	equal, err := c.BrightnessEqual(ctx)
	require.NoError(t, err)
	assert.False(t, equal)

	// One sampling round for all five queries.
	assert.Equal(t, BrightnessSamples, s.Reads(ch.LightLeft))
}
