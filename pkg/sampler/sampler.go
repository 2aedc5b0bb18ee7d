// Package sampler implements the periodic sampling scheduler: the hosted
// equivalent of the 2 ms timer interrupt that reads the detector channels,
// drives the per-channel filters, and raises the lower-frequency
// display-ready signal for the main loop.
package sampler

import (
	"sync"

	"github.com/rfmeter/gowm/pkg/channel"
	"github.com/rfmeter/gowm/pkg/config"
	"github.com/rfmeter/gowm/pkg/hw"
)

// Reading is a consistent snapshot of one channel's sampling state.
type Reading struct {
	Raw     int
	Average float64
	Peak    float64
}

// Scheduler owns the sampling-context state. Tick is called from exactly one
// goroutine (the tick source); Snapshot and the setting updates are called
// from the main loop. The mutex is the hosted stand-in for the
// interrupts-disabled critical section: it bounds every multi-field access so
// the loop never observes a torn mid-tick state.
type Scheduler struct {
	adc     hw.AnalogReader
	divider int

	mu      sync.Mutex
	filters [config.NumChannels]*channel.Filter
	raw     [config.NumChannels]int
	ticks   int

	displayReady chan struct{}
}

// New creates a scheduler sampling via adc every tickMs milliseconds and
// raising the display-ready signal every divider-th tick.
func New(adc hw.AnalogReader, tickMs float64, divider int) *Scheduler {
	if divider < 1 {
		divider = 1
	}
	s := &Scheduler{
		adc:          adc,
		divider:      divider,
		displayReady: make(chan struct{}, 1),
	}
	for ch := range s.filters {
		s.filters[ch] = channel.New(tickMs)
	}
	return s
}

// Tick performs one sampling period: read both RF channels, update the
// filters, and raise the display-ready signal on every divider-th tick. The
// send is non-blocking with a one-slot channel, so a slow consumer coalesces
// signals instead of stalling the sampling cadence.
func (s *Scheduler) Tick() {
	fwd := s.adc.ReadChannel(hw.ChannelForward)
	rev := s.adc.ReadChannel(hw.ChannelReverse)

	s.mu.Lock()
	s.raw[config.Forward] = fwd
	s.raw[config.Reverse] = rev
	s.filters[config.Forward].Update(float64(fwd))
	s.filters[config.Reverse].Update(float64(rev))
	s.ticks++
	ready := s.ticks%s.divider == 0
	s.mu.Unlock()

	if ready {
		select {
		case s.displayReady <- struct{}{}:
		default:
		}
	}
}

// DisplayReady returns the display-ready signal channel.
func (s *Scheduler) DisplayReady() <-chan struct{} {
	return s.displayReady
}

// Snapshot returns a consistent copy of both channels' raw/filtered/peak
// state, taken inside the critical section.
func (s *Scheduler) Snapshot() [config.NumChannels]Reading {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out [config.NumChannels]Reading
	for ch := range out {
		out[ch] = Reading{
			Raw:     s.raw[ch],
			Average: s.filters[ch].Average(),
			Peak:    s.filters[ch].Peak(),
		}
	}
	return out
}

// SetTimeConstants re-derives both channels' filter coefficients from attack
// and decay time constants in milliseconds. Called immediately when the
// corresponding setting changes.
func (s *Scheduler) SetTimeConstants(attackMs, decayMs float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.filters {
		s.filters[ch].SetTimeConstants(attackMs, decayMs)
	}
}

// SetPeakHold sets both channels' peak hold duration in milliseconds.
func (s *Scheduler) SetPeakHold(holdMs float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.filters {
		s.filters[ch].SetPeakHold(holdMs)
	}
}

// CalibrateOffsets averages n raw samples per RF channel and returns the
// mean ADC counts. Run once at startup before the sampling loop starts, with
// no RF applied, to measure each detector's zero-power output.
func (s *Scheduler) CalibrateOffsets(n int) [config.NumChannels]float64 {
	if n < 1 {
		n = 1
	}

	var sums [config.NumChannels]float64
	for i := 0; i < n; i++ {
		sums[config.Forward] += float64(s.adc.ReadChannel(hw.ChannelForward))
		sums[config.Reverse] += float64(s.adc.ReadChannel(hw.ChannelReverse))
	}

	var out [config.NumChannels]float64
	for ch := range out {
		out[ch] = sums[ch] / float64(n)
	}
	return out
}
