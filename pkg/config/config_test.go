package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, "COM3", cfg.Serial.Port)
	assert.Equal(t, 115200, cfg.Serial.Baud)
	assert.Equal(t, [NumChannels]float64{30, 30}, cfg.Settings.CouplerDB)
	assert.Equal(t, float64(2), cfg.Settings.AttackMs)
	assert.Equal(t, float64(2000), cfg.Settings.DecayMs)
	assert.Equal(t, float64(2000), cfg.Settings.PeakHoldMs)
	assert.Equal(t, float64(128), cfg.Settings.Backlight)
	assert.Equal(t, 5*time.Second, cfg.Mock.KeyPeriod)

	// Defaults must already be in range, so clamping them is the identity.
	clamped := cfg.Settings
	clamped.Clamp()
	assert.Equal(t, cfg.Settings, clamped)
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, "COM3", cfg.Serial.Port)
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
serial:
  port: "/dev/ttyACM0"
  baud: 57600

settings:
  coupler_db: [40, 40]
  bar_full_scale_w: [1500, 150]
  meter_full_scale_w: [1500, 150]
  limit_w: [1200, 0]
  attack_ms: 4
  decay_ms: 1000
  peak_hold_ms: 1500
  backlight: 200

mock:
  carrier_w: 100
  key_down: 1s
  key_period: 4s
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 57600, cfg.Serial.Baud)
	assert.Equal(t, [NumChannels]float64{40, 40}, cfg.Settings.CouplerDB)
	assert.Equal(t, float64(1200), cfg.Settings.LimitW[Forward])
	assert.Equal(t, float64(4), cfg.Settings.AttackMs)
	assert.Equal(t, float64(200), cfg.Settings.Backlight)
	assert.Equal(t, 100.0, cfg.Mock.CarrierW)
	assert.Equal(t, 4*time.Second, cfg.Mock.KeyPeriod)
}

func TestLoad_MissingFieldsKeepDefaults(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	_, err = tmpfile.WriteString("serial:\n  port: \"/dev/ttyUSB0\"\n")
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB0", cfg.Serial.Port)
	assert.Equal(t, 115200, cfg.Serial.Baud)
	assert.Equal(t, Default().Settings, cfg.Settings)
}

func TestLoad_CorruptSettingsClamped(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
settings:
  coupler_db: [999, -5]
  attack_ms: -100
  decay_ms: 99999
  backlight: 400
`
	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)

	assert.Equal(t, CouplerDBRange.Max, cfg.Settings.CouplerDB[Forward])
	assert.Equal(t, CouplerDBRange.Min, cfg.Settings.CouplerDB[Reverse])
	assert.Equal(t, AttackMsRange.Min, cfg.Settings.AttackMs)
	assert.Equal(t, DecayMsRange.Max, cfg.Settings.DecayMs)
	assert.Equal(t, BacklightRange.Max, cfg.Settings.Backlight)
}

func TestSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Default()
	cfg.Settings.CouplerDB[Forward] = 42.5
	cfg.Settings.LimitW[Reverse] = 7
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Settings, loaded.Settings)
}

func TestRangeClamp_Idempotent(t *testing.T) {
	r := Range{Min: 1, Max: 100}

	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{name: "below min", in: -5, want: 1},
		{name: "at min", in: 1, want: 1},
		{name: "in range", in: 42, want: 42},
		{name: "at max", in: 100, want: 100},
		{name: "above max", in: 1e9, want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			once := r.Clamp(tt.in)
			assert.Equal(t, tt.want, once)
			// clamp(clamp(x)) == clamp(x)
			assert.Equal(t, once, r.Clamp(once))
		})
	}
}

func TestSettingsClamp_Idempotent(t *testing.T) {
	s := Settings{
		CouplerDB: [NumChannels]float64{-10, 70},
		AttackMs:  -1,
		DecayMs:   1e12,
		Backlight: 300,
	}

	s.Clamp()
	once := s
	s.Clamp()
	assert.Equal(t, once, s)
}
