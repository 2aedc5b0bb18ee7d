package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Channel indices for the two measured directions.
const (
	Forward = 0
	Reverse = 1
	// NumChannels is the number of measured RF directions.
	NumChannels = 2
)

// Config represents the application configuration: the persisted meter
// settings record plus host-side device configuration.
type Config struct {
	Serial   SerialConfig `yaml:"serial"`
	Settings Settings     `yaml:"settings"`
	Mock     MockConfig   `yaml:"mock"`
}

// SerialConfig contains serial port configuration for the meter head.
type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// Settings is the persisted meter settings record. It is loaded once at
// startup, live-edited in configuration mode, and written back only on a
// confirmed configuration exit. Out-of-range values (corrupt or uninitialized
// storage) are clamped on every use, never rejected.
type Settings struct {
	// CouplerDB is the directional coupler attenuation in dB per channel.
	CouplerDB [NumChannels]float64 `yaml:"coupler_db"`
	// BarFullScaleW is the bar-graph full-scale power in watts per channel.
	BarFullScaleW [NumChannels]float64 `yaml:"bar_full_scale_w"`
	// MeterFullScaleW is the analog meter drive full-scale in watts per channel.
	MeterFullScaleW [NumChannels]float64 `yaml:"meter_full_scale_w"`
	// LimitW is the power limit threshold in watts per channel (0 = disabled).
	LimitW [NumChannels]float64 `yaml:"limit_w"`
	// AttackMs and DecayMs are the display filter time constants in ms.
	AttackMs float64 `yaml:"attack_ms"`
	DecayMs  float64 `yaml:"decay_ms"`
	// PeakHoldMs is the peak hold duration in ms before peak decay begins.
	PeakHoldMs float64 `yaml:"peak_hold_ms"`
	// Backlight is the display backlight PWM level (0-255).
	Backlight float64 `yaml:"backlight"`
}

// MockConfig contains mock meter head configuration.
type MockConfig struct {
	CarrierW    float64       `yaml:"carrier_w"`    // Simulated carrier power (W)
	ReflectedDB float64       `yaml:"reflected_db"` // Return loss of the simulated load (dB)
	NoiseLevel  float64       `yaml:"noise_level"`  // Detector noise level (V)
	KeyDown     time.Duration `yaml:"key_down"`     // Carrier on time
	KeyPeriod   time.Duration `yaml:"key_period"`   // Time between carrier onsets
}

// Range declares the valid [Min,Max] interval of a settings field.
type Range struct {
	Min, Max float64
}

// Clamp forces v into the range. Clamping is idempotent and is the identity
// for in-range values.
func (r Range) Clamp(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// Valid ranges for every persisted settings field. The menu pages and the
// self-healing clamp share these, so an edit and a corrupt load recover
// identically.
var (
	CouplerDBRange      = Range{Min: 0, Max: 60}
	BarFullScaleWRange  = Range{Min: 1, Max: 5000}
	MeterFullScaleRange = Range{Min: 1, Max: 5000}
	LimitWRange         = Range{Min: 0, Max: 5000}
	AttackMsRange       = Range{Min: 1, Max: 5000}
	DecayMsRange        = Range{Min: 1, Max: 10000}
	PeakHoldMsRange     = Range{Min: 0, Max: 10000}
	BacklightRange      = Range{Min: 0, Max: 255}
)

// Clamp forces every settings field into its valid range. It runs at load,
// after every edit, and at the start of every display cycle so corrupt
// persisted state heals itself instead of propagating.
func (s *Settings) Clamp() {
	for ch := 0; ch < NumChannels; ch++ {
		s.CouplerDB[ch] = CouplerDBRange.Clamp(s.CouplerDB[ch])
		s.BarFullScaleW[ch] = BarFullScaleWRange.Clamp(s.BarFullScaleW[ch])
		s.MeterFullScaleW[ch] = MeterFullScaleRange.Clamp(s.MeterFullScaleW[ch])
		s.LimitW[ch] = LimitWRange.Clamp(s.LimitW[ch])
	}
	s.AttackMs = AttackMsRange.Clamp(s.AttackMs)
	s.DecayMs = DecayMsRange.Clamp(s.DecayMs)
	s.PeakHoldMs = PeakHoldMsRange.Clamp(s.PeakHoldMs)
	s.Backlight = BacklightRange.Clamp(s.Backlight)
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port: "COM3", // Default for Windows, should be "/dev/ttyACM0" on Linux/Mac
			Baud: 115200,
		},
		Settings: Settings{
			CouplerDB:       [NumChannels]float64{30, 30},
			BarFullScaleW:   [NumChannels]float64{100, 10},
			MeterFullScaleW: [NumChannels]float64{100, 10},
			LimitW:          [NumChannels]float64{0, 0},
			AttackMs:        2,
			DecayMs:         2000,
			PeakHoldMs:      2000,
			Backlight:       128,
		},
		Mock: MockConfig{
			CarrierW:    50.0,
			ReflectedDB: 20.0,
			NoiseLevel:  0.002,
			KeyDown:     2 * time.Second,
			KeyPeriod:   5 * time.Second,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values. Settings fields are clamped to
// their valid ranges so a corrupt file never produces out-of-range state.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()
	cfg.Settings.Clamp()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults fills host-side fields a hand-edited file may omit.
// Settings fields need no handling here: unmarshal starts from Default, so
// omitted keys keep their defaults and out-of-range values are clamped.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.Baud == 0 {
		c.Serial.Baud = def.Serial.Baud
	}

	if c.Mock.CarrierW == 0 {
		c.Mock.CarrierW = def.Mock.CarrierW
	}
	if c.Mock.ReflectedDB == 0 {
		c.Mock.ReflectedDB = def.Mock.ReflectedDB
	}
	if c.Mock.NoiseLevel == 0 {
		c.Mock.NoiseLevel = def.Mock.NoiseLevel
	}
	if c.Mock.KeyDown == 0 {
		c.Mock.KeyDown = def.Mock.KeyDown
	}
	if c.Mock.KeyPeriod == 0 {
		c.Mock.KeyPeriod = def.Mock.KeyPeriod
	}
}
