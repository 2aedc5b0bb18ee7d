// Package watts converts calibrated LTC5507 detector voltages to RF power.
package watts

import (
	"github.com/chewxy/math32"
)

// Knee is the detector voltage at which the curve fit switches from the low
// cubic regime to the high quadratic regime. The two fits were derived from
// the LTC5507 datasheet transfer curve and agree at the knee to within the
// fit residual.
const Knee = 0.421

// Curve fit coefficients. These are fixed calibration constants produced by
// offline curve fitting against datasheet data; do not re-derive them.
const (
	lowC3 = 7.346069
	lowC2 = -3.656032
	lowC1 = 1.032727
	lowC0 = 0.017345

	highC2 = 0.036838
	highC1 = 1.739364
	highC0 = -0.384399
)

// refLoad is the reference load the power is computed into, in ohms.
const refLoad = 50.0

// FromVoltage maps an offset-corrected detector voltage to power in watts.
//
// couplerGainDB is the gain from the measured RF line to the detector input
// in dB, negative for a lossy directional coupler (a 30 dB coupler is -30);
// offsetVoltage is the detector output at zero RF, measured once at startup;
// measuredVoltage is the calibrated detector reading.
//
// The function is total: negative inputs clamp to zero, nothing divides by
// zero, and the result is monotonically non-decreasing in the voltage over
// the calibrated range.
func FromVoltage(couplerGainDB, offsetVoltage, measuredVoltage float32) float32 {
	v := measuredVoltage - offsetVoltage
	if v < 0 {
		v = 0
	}

	// Piecewise fit from detector voltage to detector-referred input Vpp.
	var vinpp float32
	if v >= Knee {
		vinpp = highC2*v*v + highC1*v + highC0
	} else {
		vinpp = lowC3*v*v*v + lowC2*v*v + lowC1*v + lowC0
	}

	gain := math32.Pow(10, -couplerGainDB/10)

	// P = E^2/R for a peak-to-peak voltage into the reference load.
	vrms := vinpp / 2.818
	return gain * vrms * vrms / refLoad
}

// VoltageFromWatts inverts FromVoltage: it returns the offset-corrected
// detector voltage that produces the given line power for the given coupler
// gain. FromVoltage is monotone over the calibrated range, so a
// bisection over [0, maxDetectorV] converges; the result is within one ADC
// count of voltage resolution. Used by the simulated meter head and by tests.
func VoltageFromWatts(couplerGainDB, w float32) float32 {
	const maxDetectorV = 3.6
	if w <= FromVoltage(couplerGainDB, 0, 0) {
		return 0
	}
	lo, hi := float32(0), float32(maxDetectorV)
	for i := 0; i < 24; i++ {
		mid := (lo + hi) / 2
		if FromVoltage(couplerGainDB, 0, mid) < w {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}

// DBm expresses a power in watts as dBm. Powers at or below zero map to the
// bottom of the displayable range instead of -Inf.
func DBm(w float32) float32 {
	const floor = -60
	if w <= 0 {
		return floor
	}
	dbm := 10 * math32.Log10(w*1000)
	if dbm < floor {
		return floor
	}
	return dbm
}

// VSWR computes the voltage standing wave ratio from forward and reverse
// power. It returns 1 when there is no meaningful forward power and saturates
// at 99.9 when the reflection coefficient approaches unity, so the result is
// always displayable.
func VSWR(forwardW, reverseW float32) float32 {
	const max = 99.9
	if forwardW <= 0 {
		return 1
	}
	if reverseW < 0 {
		reverseW = 0
	}
	if reverseW >= forwardW {
		return max
	}
	rho := math32.Sqrt(reverseW / forwardW)
	swr := (1 + rho) / (1 - rho)
	if swr > max {
		return max
	}
	return swr
}
