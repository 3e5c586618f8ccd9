package main

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"

	"github.com/gwillem/insectbot/pkg/insect"
	"github.com/gwillem/insectbot/pkg/robot"
)

// Simulated sensor samples: nothing in range, both sides equally lit.
const (
	simDistanceRaw = 60
	simLightRaw    = 400
)

type hardware struct {
	legs   *robot.Legs
	sensor *robot.SensorBoard
}

func (h *hardware) Close() error {
	var err error
	if h.legs != nil {
		err = multierr.Append(err, h.legs.Close())
	}
	if h.sensor != nil {
		err = multierr.Append(err, h.sensor.Close())
	}
	return err
}

func openHardware(cfg *robot.Config) (*hardware, error) {
	if cfg.Servos.Port == "" || cfg.Sensors.Port == "" {
		return nil, fmt.Errorf("ports not configured, run 'insectbot setup' first")
	}
	if !cfg.Servos.IsCalibrated() {
		return nil, fmt.Errorf("servos not identified, run 'insectbot setup' first")
	}

	legs, err := robot.NewLegs(cfg.Servos.Port, cfg.Servos.Calibration)
	if err != nil {
		return nil, err
	}
	sensor, err := robot.OpenSensorBoard(cfg.Sensors.Port, cfg.Sensors.BaudRate)
	if err != nil {
		legs.Close()
		return nil, err
	}
	return &hardware{legs: legs, sensor: sensor}, nil
}

// openBot returns a bot on the configured hardware, or on in-memory fakes
// when sim is set. The returned func releases the hardware.
func openBot(cfg *robot.Config, sim bool) (*insect.Bot, func() error, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	botOpts := []insect.Option{insect.WithSensorChannels(cfg.Sensors.Channels)}

	var (
		actuator robot.Actuator
		sensor   robot.Sensor
		closeFn  = func() error { return nil }
	)
	if sim {
		fs := robot.NewFakeSensor()
		fs.Set(cfg.Sensors.Channels.Distance, simDistanceRaw)
		fs.Set(cfg.Sensors.Channels.LightLeft, simLightRaw)
		fs.Set(cfg.Sensors.Channels.LightRight, simLightRaw)
		actuator, sensor = robot.NewFakeActuator(), fs
		botOpts = append(botOpts, insect.WithSettleDelay(200*time.Millisecond))
	} else {
		hw, err := openHardware(cfg)
		if err != nil {
			return nil, nil, err
		}
		actuator, sensor, closeFn = hw.legs, hw.sensor, hw.Close
	}

	bot := insect.New(actuator, sensor, clock.New(), botOpts...)
	return bot, closeFn, nil
}
