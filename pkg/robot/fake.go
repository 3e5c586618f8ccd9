package robot

import (
	"context"
	"fmt"
	"sync"
)

// Command is one angle written to a FakeActuator.
type Command struct {
	Channel Channel
	Degrees int
}

// FakeActuator records commands in memory, for tests and simulation.
type FakeActuator struct {
	mu       sync.Mutex
	attached map[Channel]bool
	angles   map[Channel]int
	commands []Command
	failures map[Channel]error
}

var _ Actuator = (*FakeActuator)(nil)

func NewFakeActuator() *FakeActuator {
	return &FakeActuator{
		attached: make(map[Channel]bool),
		angles:   make(map[Channel]int),
		failures: make(map[Channel]error),
	}
}

func (f *FakeActuator) Attach(ctx context.Context, ch Channel) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := ParseChannel(string(ch)); err != nil {
		return err
	}
	if err := f.failures[ch]; err != nil {
		return err
	}
	f.attached[ch] = true
	return nil
}

func (f *FakeActuator) CommandAngle(ctx context.Context, ch Channel, degrees int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failures[ch]; err != nil {
		return err
	}
	if !f.attached[ch] {
		return fmt.Errorf("%w: %s", ErrNotAttached, ch)
	}
	f.angles[ch] = degrees
	f.commands = append(f.commands, Command{Channel: ch, Degrees: degrees})
	return nil
}

// Fail makes every later call on ch return err. A nil err clears it.
func (f *FakeActuator) Fail(ch Channel, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[ch] = err
}

// Commands returns a copy of every command written so far.
func (f *FakeActuator) Commands() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Command(nil), f.commands...)
}

// ResetCommands forgets the recorded commands but keeps the angles.
func (f *FakeActuator) ResetCommands() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = nil
}

// Angle returns the last angle written to ch.
func (f *FakeActuator) Angle(ch Channel) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.angles[ch]
}

func (f *FakeActuator) Attached(ch Channel) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attached[ch]
}

// FakeSensor serves configured samples, for tests and simulation.
type FakeSensor struct {
	mu       sync.Mutex
	values   map[SensorChannel][]int
	reads    map[SensorChannel]int
	failures map[SensorChannel]error
}

var _ Sensor = (*FakeSensor)(nil)

func NewFakeSensor() *FakeSensor {
	return &FakeSensor{
		values:   make(map[SensorChannel][]int),
		reads:    make(map[SensorChannel]int),
		failures: make(map[SensorChannel]error),
	}
}

// Set makes ch return v on every read.
func (f *FakeSensor) Set(ch SensorChannel, v int) {
	f.SetSequence(ch, v)
}

// SetSequence makes ch return vals in order, repeating the last one.
func (f *FakeSensor) SetSequence(ch SensorChannel, vals ...int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[ch] = append([]int(nil), vals...)
}

// Fail makes every later read of ch return err. A nil err clears it.
func (f *FakeSensor) Fail(ch SensorChannel, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[ch] = err
}

// Reads returns how many samples ch has served.
func (f *FakeSensor) Reads(ch SensorChannel) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads[ch]
}

func (f *FakeSensor) ReadRaw(ctx context.Context, ch SensorChannel) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failures[ch]; err != nil {
		return 0, err
	}
	vals, ok := f.values[ch]
	if !ok || len(vals) == 0 {
		return 0, fmt.Errorf("%w: %s", ErrSensorChannel, ch)
	}

	f.reads[ch]++
	v := vals[0]
	if len(vals) > 1 {
		f.values[ch] = vals[1:]
	}
	return v, nil
}
