package robot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const DefaultConfigFile = "insectbot.json"

// Gait presets accepted in Config.Mode.
const (
	ModeWalk = "walk"
	ModeRun  = "run"
)

// Config holds the robot configuration
type Config struct {
	Servos  ServoConfig  `json:"servos" yaml:"servos"`
	Sensors SensorConfig `json:"sensors" yaml:"sensors"`
	Mode    string       `json:"mode,omitempty" yaml:"mode,omitempty"`
}

// ServoConfig holds configuration for the servo bus
type ServoConfig struct {
	Port        string      `json:"port" yaml:"port"`
	Calibration Calibration `json:"calibration,omitempty" yaml:"calibration,omitempty"`
}

// SensorConfig holds configuration for the sensor board
type SensorConfig struct {
	Port     string         `json:"port" yaml:"port"`
	BaudRate int            `json:"baud_rate,omitempty" yaml:"baud_rate,omitempty"`
	Channels SensorChannels `json:"channels" yaml:"channels"`
}

// SensorChannels maps each sensor to its analog input.
type SensorChannels struct {
	Distance   SensorChannel `json:"distance" yaml:"distance"`
	LightLeft  SensorChannel `json:"light_left" yaml:"light_left"`
	LightRight SensorChannel `json:"light_right" yaml:"light_right"`
}

// DefaultSensorChannels returns the wiring of the stock board.
func DefaultSensorChannels() SensorChannels {
	return SensorChannels{
		Distance:   A1,
		LightLeft:  A2,
		LightRight: A0,
	}
}

// DefaultConfig returns a configuration with no ports and stock wiring.
func DefaultConfig() *Config {
	return &Config{
		Servos: ServoConfig{
			Calibration: DefaultCalibration(),
		},
		Sensors: SensorConfig{
			BaudRate: DefaultSensorBaudRate,
			Channels: DefaultSensorChannels(),
		},
		Mode: ModeWalk,
	}
}

// IsCalibrated returns true if every channel has calibration data
func (s *ServoConfig) IsCalibrated() bool {
	return s.Calibration.Validate() == nil
}

// Validate checks the mode and calibration.
func (c *Config) Validate() error {
	switch c.Mode {
	case "", ModeWalk, ModeRun:
	default:
		return fmt.Errorf("unknown mode %q (want %s or %s)", c.Mode, ModeWalk, ModeRun)
	}
	if err := c.Servos.Calibration.Validate(); err != nil {
		return fmt.Errorf("servo calibration: %w", err)
	}
	return nil
}

// LoadConfig loads configuration from the default config file
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(DefaultConfigFile)
}

// LoadConfigFrom loads configuration from a specific file. Fields missing
// from the file keep their defaults. Files ending in .yaml or .yml are read
// as YAML, anything else as JSON.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(DefaultConfigFile)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ConfigExists returns true if the default config file exists
func ConfigExists() bool {
	return ConfigExistsAt(DefaultConfigFile)
}

// ConfigExistsAt returns true if a config file exists at path
func ConfigExistsAt(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
