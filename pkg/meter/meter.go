// Package meter wires the wattmeter core together: the sampling scheduler in
// its own tick-driven context, and the cooperative main loop that converts,
// renders, and runs the menu once per display period.
package meter

import (
	"context"
	"log"
	"time"

	"github.com/rfmeter/gowm/pkg/buttons"
	"github.com/rfmeter/gowm/pkg/config"
	"github.com/rfmeter/gowm/pkg/hw"
	"github.com/rfmeter/gowm/pkg/menu"
	"github.com/rfmeter/gowm/pkg/render"
	"github.com/rfmeter/gowm/pkg/sampler"
	"github.com/rfmeter/gowm/pkg/watts"
)

const (
	// SamplePeriod is the detector sampling cadence.
	SamplePeriod = 2 * time.Millisecond
	// DisplayDivider raises the display-ready signal every N-th sampling
	// tick, giving the 50 ms display cadence.
	DisplayDivider = 25

	sampleMs  = 2
	displayMs = sampleMs * DisplayDivider

	// calibrationSamples is how many quiet samples are averaged at startup
	// to measure each detector's zero-RF offset.
	calibrationSamples = 64
)

// counts-to-volts scale of the 10-bit ADC, fixed at initialization.
const voltsPerCount = hw.VRef / hw.ADCMax

// Meter is the assembled instrument core.
type Meter struct {
	cfg   *config.Config
	adc   hw.AnalogReader
	sched *sampler.Scheduler
	dec   *buttons.Decoder
	menu  *menu.Machine
	pipe  *render.Pipeline
	out   hw.Outputs

	// Detector output at zero RF power, in volts, measured once at startup.
	offsetV [config.NumChannels]float64

	// Alternate power-display view showing forward dBm and SWR, toggled by
	// the down button while outside configuration mode.
	swrView bool
}

// New assembles a meter over the collaborators. adc is the meter head; disp
// and out are the display and output surfaces to drive, which may be the
// head itself or a virtual front panel. store receives the settings record
// on a confirmed configuration exit.
func New(cfg *config.Config, adc hw.AnalogReader, disp hw.Display, out hw.Outputs, store menu.Store, opts ...menu.Option) *Meter {
	m := &Meter{
		cfg:   cfg,
		adc:   adc,
		sched: sampler.New(adc, sampleMs, DisplayDivider),
		dec:   buttons.NewDecoder(displayMs, 0),
		pipe:  render.New(disp, out),
		out:   out,
	}

	opts = append(opts,
		menu.OnFilterChange(func(attackMs, decayMs, peakHoldMs float64) {
			m.sched.SetTimeConstants(attackMs, decayMs)
			m.sched.SetPeakHold(peakHoldMs)
		}),
		menu.OnBacklight(func(level uint8) {
			m.out.SetBacklight(level)
		}),
	)
	m.menu = menu.New(&cfg.Settings, store, displayMs, opts...)

	return m
}

// Calibrate measures the zero-RF detector offsets and applies the persisted
// settings to the runtime state. Run once before the loop, with no RF
// applied.
func (m *Meter) Calibrate() {
	counts := m.sched.CalibrateOffsets(calibrationSamples)
	for ch := range counts {
		m.offsetV[ch] = counts[ch] * voltsPerCount
	}

	s := &m.cfg.Settings
	s.Clamp()
	m.sched.SetTimeConstants(s.AttackMs, s.DecayMs)
	m.sched.SetPeakHold(s.PeakHoldMs)
	m.out.SetBacklight(uint8(s.Backlight))
}

// Run starts the sampling ticker and runs the main loop until the context is
// cancelled. The sampling goroutine owns the filter state; the loop consumes
// the display-ready signal and performs its full unit of work per signal.
func (m *Meter) Run(ctx context.Context) error {
	m.Calibrate()

	samplingDone := make(chan struct{})
	go func() {
		defer close(samplingDone)
		ticker := time.NewTicker(SamplePeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sched.Tick()
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			<-samplingDone
			return ctx.Err()
		case <-m.sched.DisplayReady():
			m.DisplayCycle()
		}
	}
}

// DisplayCycle performs one main-loop unit of work: snapshot the sampling
// state under the critical section, convert to watts, decode buttons, tick
// the menu, and render. Exported so tests and alternative tick sources can
// drive the loop deterministically.
func (m *Meter) DisplayCycle() {
	s := &m.cfg.Settings
	s.Clamp()

	snap := m.sched.Snapshot()
	views := m.convert(snap)

	bs := m.dec.Update(m.adc.ReadChannel(hw.ChannelButtons))

	// Down toggles the SWR view on the power display. The menu ignores down
	// outside configuration mode, so the press is free to claim here.
	if pending, _ := m.menu.CommitPending(); !pending &&
		m.menu.Mode() == menu.PowerDisplay &&
		bs.Button == buttons.Down && bs.LeadingEdge() {
		m.swrView = !m.swrView
	}
	m.menu.Tick(bs)

	if pending, remaining := m.menu.CommitPending(); pending {
		m.pipe.CommitScreen(remaining)
	} else if m.menu.Mode() == menu.Configuration {
		m.pipe.ConfigScreen(m.menu.PageTitle(), m.menu.PageValue())
	} else if m.swrView {
		m.pipe.SWRScreen(views)
	} else {
		m.pipe.PowerScreen(views, s)
	}

	m.pipe.UpdateOutputs(views, s)
}

// convert derives the two watts values of each channel: the bar from the
// filtered average and the number from the held peak, both of the same
// physical channel.
func (m *Meter) convert(snap [config.NumChannels]sampler.Reading) [config.NumChannels]render.ChannelView {
	var views [config.NumChannels]render.ChannelView
	for ch := range views {
		// Settings hold the coupler loss as a positive attenuation; the
		// converter takes the signed line-to-detector gain.
		db := float32(-m.cfg.Settings.CouplerDB[ch])
		offset := float32(m.offsetV[ch])
		views[ch] = render.ChannelView{
			BarW:    float64(watts.FromVoltage(db, offset, float32(snap[ch].Average*voltsPerCount))),
			NumberW: float64(watts.FromVoltage(db, offset, float32(snap[ch].Peak*voltsPerCount))),
		}
	}
	return views
}

// Scheduler exposes the sampling scheduler for deterministic test drivers.
func (m *Meter) Scheduler() *sampler.Scheduler { return m.sched }

// FileStore persists the settings record by saving the whole configuration
// file it lives in.
type FileStore struct {
	cfg  *config.Config
	path string
}

// NewFileStore creates a settings store writing cfg to path.
func NewFileStore(cfg *config.Config, path string) *FileStore {
	return &FileStore{cfg: cfg, path: path}
}

// Save writes the configuration file. The settings record is embedded in the
// meter's config, so the pointer is only sanity-logged.
func (f *FileStore) Save(s *config.Settings) error {
	if s != &f.cfg.Settings {
		log.Printf("Saving a settings record outside the active config")
	}
	return f.cfg.Save(f.path)
}
