package menu

import (
	"fmt"

	"github.com/rfmeter/gowm/pkg/config"
)

// page is one configuration page: a settings field with its valid range,
// base adjustment step, display formatting, and an optional apply hook that
// re-derives dependent runtime state immediately after the field changes.
// The page set is fixed at build time; there is no dynamic registration.
type page struct {
	title  string
	step   float64
	rng    config.Range
	get    func(s *config.Settings) float64
	set    func(s *config.Settings, v float64)
	format func(v float64) string
	apply  func(m *Machine)
}

func formatDB(v float64) string    { return fmt.Sprintf("%5.1f dB", v) }
func formatWatts(v float64) string { return fmt.Sprintf("%6.0f W", v) }
func formatMs(v float64) string    { return fmt.Sprintf("%7.0f ms", v) }
func formatLevel(v float64) string { return fmt.Sprintf("%3.0f", v) }

func formatLimit(v float64) string {
	if v == 0 {
		return "   OFF"
	}
	return formatWatts(v)
}

func applyFilter(m *Machine) {
	if m.onFilterChange != nil {
		m.onFilterChange(m.settings.AttackMs, m.settings.DecayMs, m.settings.PeakHoldMs)
	}
}

func applyBacklight(m *Machine) {
	if m.onBacklight != nil {
		m.onBacklight(uint8(m.settings.Backlight))
	}
}

// couplerPage, scalePage and limitPage build the per-channel page variants.
func couplerPage(ch int, name string) page {
	return page{
		title:  name + " COUPLER",
		step:   0.1,
		rng:    config.CouplerDBRange,
		get:    func(s *config.Settings) float64 { return s.CouplerDB[ch] },
		set:    func(s *config.Settings, v float64) { s.CouplerDB[ch] = v },
		format: formatDB,
	}
}

func barScalePage(ch int, name string) page {
	return page{
		title:  name + " BAR SCALE",
		step:   1,
		rng:    config.BarFullScaleWRange,
		get:    func(s *config.Settings) float64 { return s.BarFullScaleW[ch] },
		set:    func(s *config.Settings, v float64) { s.BarFullScaleW[ch] = v },
		format: formatWatts,
	}
}

func meterScalePage(ch int, name string) page {
	return page{
		title:  name + " MTR SCALE",
		step:   1,
		rng:    config.MeterFullScaleRange,
		get:    func(s *config.Settings) float64 { return s.MeterFullScaleW[ch] },
		set:    func(s *config.Settings, v float64) { s.MeterFullScaleW[ch] = v },
		format: formatWatts,
	}
}

func limitPage(ch int, name string) page {
	return page{
		title:  name + " LIMIT",
		step:   1,
		rng:    config.LimitWRange,
		get:    func(s *config.Settings) float64 { return s.LimitW[ch] },
		set:    func(s *config.Settings, v float64) { s.LimitW[ch] = v },
		format: formatLimit,
	}
}

// defaultPages is the closed page set, in navigation order.
func defaultPages() []page {
	return []page{
		couplerPage(config.Forward, "FWD"),
		couplerPage(config.Reverse, "REV"),
		barScalePage(config.Forward, "FWD"),
		barScalePage(config.Reverse, "REV"),
		meterScalePage(config.Forward, "FWD"),
		meterScalePage(config.Reverse, "REV"),
		{
			title:  "FILTER ATTACK",
			step:   1,
			rng:    config.AttackMsRange,
			get:    func(s *config.Settings) float64 { return s.AttackMs },
			set:    func(s *config.Settings, v float64) { s.AttackMs = v },
			format: formatMs,
			apply:  applyFilter,
		},
		{
			title:  "FILTER DECAY",
			step:   10,
			rng:    config.DecayMsRange,
			get:    func(s *config.Settings) float64 { return s.DecayMs },
			set:    func(s *config.Settings, v float64) { s.DecayMs = v },
			format: formatMs,
			apply:  applyFilter,
		},
		{
			title:  "PEAK HOLD",
			step:   10,
			rng:    config.PeakHoldMsRange,
			get:    func(s *config.Settings) float64 { return s.PeakHoldMs },
			set:    func(s *config.Settings, v float64) { s.PeakHoldMs = v },
			format: formatMs,
			apply:  applyFilter,
		},
		{
			title:  "BACKLIGHT",
			step:   1,
			rng:    config.BacklightRange,
			get:    func(s *config.Settings) float64 { return s.Backlight },
			set:    func(s *config.Settings, v float64) { s.Backlight = v },
			format: formatLevel,
			apply:  applyBacklight,
		},
		limitPage(config.Forward, "FWD"),
		limitPage(config.Reverse, "REV"),
	}
}
