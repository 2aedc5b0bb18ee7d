package hw

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rfmeter/gowm/pkg/config"
	"github.com/rfmeter/gowm/pkg/watts"
)

// Mock simulates a meter head for testing and development: a keyed RF
// carrier into an imperfect load, seen through the directional coupler and
// the LTC5507 detectors. Readings are computed on demand from wall-clock
// phase, so ReadChannel behaves like a live ADC register.
type Mock struct {
	cfg *config.MockConfig

	mu        sync.RWMutex
	connected bool
	startTime time.Time

	// Ladder level injected by the virtual front panel.
	buttonLevel int

	// Last commanded output states, observable for tests and the panel.
	meterDrive [config.NumChannels]uint8
	limit      [config.NumChannels]bool
	backlight  uint8
}

// detectorOffsetV is the simulated zero-RF detector output. The real LTC5507
// sits around a quarter volt with no input; the core measures it at startup.
const detectorOffsetV = 0.27

// NewMock creates a new mocked meter head.
func NewMock(cfg *config.MockConfig) *Mock {
	if cfg == nil {
		cfg = &config.Default().Mock
	}

	return &Mock{
		cfg:         cfg,
		buttonLevel: ADCMax,
	}
}

// Connect starts the simulation clock.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}

	m.connected = true
	m.startTime = time.Now()

	return nil
}

// Close stops the mocked device.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.connected = false
	return nil
}

// IsConnected returns whether the device is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// SetButtonLevel injects a ladder ADC level, pressed or released, from the
// virtual front panel.
func (m *Mock) SetButtonLevel(adc int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if adc < 0 {
		adc = 0
	}
	if adc > ADCMax {
		adc = ADCMax
	}
	m.buttonLevel = adc
}

// ReadChannel returns a simulated raw ADC reading for the channel.
func (m *Mock) ReadChannel(id int) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.connected {
		return 0
	}

	switch id {
	case ChannelForward:
		return m.detectorADC(m.carrierW())
	case ChannelReverse:
		// Reflected power is the carrier reduced by the load return loss.
		return m.detectorADC(m.carrierW() * math.Pow(10, -m.cfg.ReflectedDB/10))
	case ChannelButtons:
		return m.buttonLevel
	default:
		return 0
	}
}

// carrierW returns the keyed carrier power at the current simulation phase.
func (m *Mock) carrierW() float64 {
	elapsed := time.Since(m.startTime)
	phase := elapsed % m.cfg.KeyPeriod
	if phase < m.cfg.KeyDown {
		return m.cfg.CarrierW
	}
	return 0
}

// detectorADC maps a line power to a raw detector ADC count, including the
// zero-RF offset and a little deterministic pseudo-noise.
func (m *Mock) detectorADC(lineW float64) int {
	// The simulated coupler matches the default coupler attenuation setting;
	// the conversion layer scales by whatever the user has configured.
	const couplerGainDB = -30

	v := float64(watts.VoltageFromWatts(couplerGainDB, float32(lineW))) + detectorOffsetV

	t := float64(time.Since(m.startTime).Nanoseconds())
	noise := (math.Sin(t*0.001) + math.Cos(t*0.0013)) * m.cfg.NoiseLevel * 0.5
	v += noise

	counts := (v / VRef) * ADCMax
	if counts < 0 {
		counts = 0
	} else if counts > ADCMax {
		counts = ADCMax
	}
	return int(counts)
}

// SetMeterDrive records the commanded analog meter duty cycle.
func (m *Mock) SetMeterDrive(channel int, duty uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if channel >= 0 && channel < config.NumChannels {
		m.meterDrive[channel] = duty
	}
}

// SetLimitIndicator records the commanded limit indicator state.
func (m *Mock) SetLimitIndicator(channel int, on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if channel >= 0 && channel < config.NumChannels {
		m.limit[channel] = on
	}
}

// SetBacklight records the commanded backlight level.
func (m *Mock) SetBacklight(level uint8) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backlight = level
}

// SetCursor is a no-op; the mock has no local display.
func (m *Mock) SetCursor(col, row int) {}

// Print is a no-op; the mock has no local display.
func (m *Mock) Print(text string) {}

// Write is a no-op; the mock has no local display.
func (m *Mock) Write(glyph byte) {}

// MeterDrive returns the last commanded meter duty cycle for a channel.
func (m *Mock) MeterDrive(channel int) uint8 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if channel < 0 || channel >= config.NumChannels {
		return 0
	}
	return m.meterDrive[channel]
}

// Limit returns the last commanded limit indicator state for a channel.
func (m *Mock) Limit(channel int) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if channel < 0 || channel >= config.NumChannels {
		return false
	}
	return m.limit[channel]
}

// Backlight returns the last commanded backlight level.
func (m *Mock) Backlight() uint8 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.backlight
}
