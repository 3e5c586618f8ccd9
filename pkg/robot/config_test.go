package robot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_SaveLoad(t *testing.T) {
	for _, name := range []string{"insectbot.json", "insectbot.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			cfg := DefaultConfig()
			cfg.Servos.Port = "/dev/ttyACM0"
			cfg.Servos.Calibration[Middle] = ChannelCalibration{ID: 2, DriveMode: 1, RangeMin: 900, RangeMax: 3100}
			cfg.Sensors.Port = "/dev/ttyUSB0"
			cfg.Mode = ModeRun

			require.NoError(t, cfg.SaveTo(path))
			assert.True(t, ConfigExistsAt(path))

			loaded, err := LoadConfigFrom(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
			assert.True(t, loaded.Servos.IsCalibrated())
		})
	}
}

func TestConfig_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"servos": {"port": "/dev/ttyACM1"}}`), 0644))

	cfg, err := LoadConfigFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyACM1", cfg.Servos.Port)
	assert.Equal(t, DefaultCalibration(), cfg.Servos.Calibration)
	assert.Equal(t, DefaultSensorChannels(), cfg.Sensors.Channels)
	assert.Equal(t, DefaultSensorBaudRate, cfg.Sensors.BaudRate)
	assert.Equal(t, ModeWalk, cfg.Mode)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Mode = "sprint"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	delete(cfg.Servos.Calibration, Front)
	assert.ErrorIs(t, cfg.Validate(), ErrUnknownChannel)
	assert.False(t, cfg.Servos.IsCalibrated())
}

func TestLoadConfigFrom_Errors(t *testing.T) {
	_, err := LoadConfigFrom(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"servos":`), 0644))
	_, err = LoadConfigFrom(path)
	assert.Error(t, err)
}
