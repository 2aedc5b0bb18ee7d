// Package channel implements the per-channel signal conditioning of the
// wattmeter: a dual-time-constant recursive filter for bar-graph dynamics
// and a peak hold with timed decay for the numeric readout.
package channel

// Filter conditions raw ADC samples for one measured direction. Update runs
// in the sampling context once per tick; everything is plain arithmetic on
// fixed-size state with no allocation.
type Filter struct {
	tickMs float64

	attackCoeff float64
	decayCoeff  float64
	holdMs      float64

	average float64
	peak    float64
	ageMs   float64
}

// New creates a filter for the given sampling tick period in milliseconds.
// Time constants and hold duration start at values that pass input through
// unfiltered until configured.
func New(tickMs float64) *Filter {
	f := &Filter{tickMs: tickMs}
	f.SetTimeConstants(tickMs, tickMs)
	return f
}

// SetTimeConstants re-derives the attack and decay coefficients from time
// constants in milliseconds. A coefficient is tick/timeConstant clamped to
// [0,1]; a time constant at or below the tick period tracks the input
// exactly. Called immediately whenever the corresponding setting changes.
func (f *Filter) SetTimeConstants(attackMs, decayMs float64) {
	f.attackCoeff = coefficient(f.tickMs, attackMs)
	f.decayCoeff = coefficient(f.tickMs, decayMs)
}

// SetPeakHold sets the peak hold duration in milliseconds.
func (f *Filter) SetPeakHold(holdMs float64) {
	if holdMs < 0 {
		holdMs = 0
	}
	f.holdMs = holdMs
}

func coefficient(tickMs, timeConstantMs float64) float64 {
	if timeConstantMs <= 0 {
		return 1
	}
	c := tickMs / timeConstantMs
	if c > 1 {
		c = 1
	}
	return c
}

// Update feeds one raw sample through the filter. Rising input moves the
// average with the attack coefficient, falling input with the (typically much
// slower) decay coefficient, giving the fast-rise/slow-fall bar dynamics of a
// peak program meter. A new peak is adopted immediately and held for the
// configured duration before it is allowed to decay toward the input; the
// decayed peak never moves away from the input and never undershoots it.
func (f *Filter) Update(raw float64) {
	if raw > f.average {
		f.average += (raw - f.average) * f.attackCoeff
	} else {
		f.average += (raw - f.average) * f.decayCoeff
	}

	if raw > f.peak {
		f.peak = raw
		f.ageMs = 0
		return
	}

	f.ageMs += f.tickMs
	if f.ageMs <= f.holdMs {
		return
	}
	f.peak += (raw - f.peak) * f.decayCoeff
	if f.peak < raw {
		f.peak = raw
	}
}

// Average returns the recursively filtered sample.
func (f *Filter) Average() float64 { return f.average }

// Peak returns the current held peak.
func (f *Filter) Peak() float64 { return f.peak }

// PeakAgeMs returns the elapsed time since the last new peak, in ms.
func (f *Filter) PeakAgeMs() float64 { return f.ageMs }

// Reset clears the filter state.
func (f *Filter) Reset() {
	f.average = 0
	f.peak = 0
	f.ageMs = 0
}
