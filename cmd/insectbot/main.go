package main

import (
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"

	"github.com/gwillem/insectbot/pkg/robot"
)

type Options struct {
	Config  string `short:"c" long:"config" default:"insectbot.json" description:"Configuration file (.json, .yaml or .yml)"`
	Verbose bool   `short:"v" long:"verbose" description:"Log debug messages"`

	Setup       SetupCommand       `command:"setup" description:"Find the servo bus and sensor board and identify the joints"`
	Teleoperate TeleoperateCommand `command:"teleoperate" alias:"teleop" description:"Drive the robot from the keyboard or let a behavior drive it"`
	Info        InfoCommand        `command:"info" description:"Show the configuration, servo angles and sensor samples"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "InsectBot - gait sequencer for the three servo insect robot"
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		if opts.Verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
		if cmd == nil {
			return nil
		}
		return cmd.Execute(args)
	}

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}

// loadConfig reads the --config file, falling back to defaults when it
// doesn't exist yet.
func loadConfig() (*robot.Config, error) {
	if !robot.ConfigExistsAt(opts.Config) {
		return robot.DefaultConfig(), nil
	}
	return robot.LoadConfigFrom(opts.Config)
}
