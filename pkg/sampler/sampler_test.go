package sampler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfmeter/gowm/pkg/config"
	"github.com/rfmeter/gowm/pkg/hw"
)

// scriptedADC returns per-channel values from a script, repeating the last
// entry once the script runs out.
type scriptedADC struct {
	values [hw.NumADCChannels][]int
	reads  [hw.NumADCChannels]int
}

func (a *scriptedADC) ReadChannel(id int) int {
	script := a.values[id]
	if len(script) == 0 {
		return 0
	}
	i := a.reads[id]
	a.reads[id]++
	if i >= len(script) {
		i = len(script) - 1
	}
	return script[i]
}

func constADC(fwd, rev int) *scriptedADC {
	return &scriptedADC{values: [hw.NumADCChannels][]int{{fwd}, {rev}, {}}}
}

func drained(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestTick_SnapshotTracksBothChannels(t *testing.T) {
	s := New(constADC(800, 120), 2, 25)
	s.Tick()

	snap := s.Snapshot()
	assert.Equal(t, 800, snap[config.Forward].Raw)
	assert.Equal(t, 120, snap[config.Reverse].Raw)
	// Unconfigured filters track the input exactly.
	assert.Equal(t, 800.0, snap[config.Forward].Average)
	assert.Equal(t, 800.0, snap[config.Forward].Peak)
	assert.Equal(t, 120.0, snap[config.Reverse].Average)
}

func TestTick_DisplayReadyEveryDividerTicks(t *testing.T) {
	s := New(constADC(0, 0), 2, 25)

	for i := 0; i < 24; i++ {
		s.Tick()
		require.False(t, drained(s.DisplayReady()), "early signal at tick %d", i+1)
	}
	s.Tick()
	assert.True(t, drained(s.DisplayReady()))

	// Next window: 25 more ticks raise exactly one more signal.
	for i := 0; i < 25; i++ {
		s.Tick()
	}
	assert.True(t, drained(s.DisplayReady()))
	assert.False(t, drained(s.DisplayReady()))
}

func TestTick_SlowConsumerCoalescesSignals(t *testing.T) {
	s := New(constADC(0, 0), 2, 1)

	// Three ready ticks with nobody listening leave one pending signal
	// rather than blocking the sampling cadence.
	s.Tick()
	s.Tick()
	s.Tick()
	assert.True(t, drained(s.DisplayReady()))
	assert.False(t, drained(s.DisplayReady()))
}

func TestSetTimeConstants_AppliesToBothChannels(t *testing.T) {
	s := New(&scriptedADC{values: [hw.NumADCChannels][]int{
		{0, 1000, 0}, {0, 500, 0}, {},
	}}, 2, 25)
	s.SetTimeConstants(2, 1000)

	s.Tick() // zeros
	s.Tick() // step up: fast attack tracks immediately
	snap := s.Snapshot()
	assert.InDelta(t, 1000, snap[config.Forward].Average, 1e-9)
	assert.InDelta(t, 500, snap[config.Reverse].Average, 1e-9)

	s.Tick() // step down: slow decay moves ~2/1000 of the delta
	snap = s.Snapshot()
	assert.InDelta(t, 1000*(1-0.002), snap[config.Forward].Average, 1e-9)
	assert.InDelta(t, 500*(1-0.002), snap[config.Reverse].Average, 1e-9)
}

func TestSetPeakHold_AppliesToBothChannels(t *testing.T) {
	s := New(&scriptedADC{values: [hw.NumADCChannels][]int{
		{900, 0}, {400, 0}, {},
	}}, 2, 25)
	s.SetTimeConstants(2, 1000)
	s.SetPeakHold(1000)

	s.Tick()
	s.Tick()
	snap := s.Snapshot()
	// Averages fall slowly, peaks hold.
	assert.Equal(t, 900.0, snap[config.Forward].Peak)
	assert.Equal(t, 400.0, snap[config.Reverse].Peak)
}

func TestCalibrateOffsets(t *testing.T) {
	adc := &scriptedADC{values: [hw.NumADCChannels][]int{
		{50, 60, 70, 80}, {10, 10, 10, 10}, {},
	}}
	s := New(adc, 2, 25)

	out := s.CalibrateOffsets(4)
	assert.InDelta(t, 65, out[config.Forward], 1e-9)
	assert.InDelta(t, 10, out[config.Reverse], 1e-9)
}

func TestCalibrateOffsets_MinimumOneSample(t *testing.T) {
	s := New(constADC(123, 45), 2, 25)
	out := s.CalibrateOffsets(0)
	assert.Equal(t, 123.0, out[config.Forward])
	assert.Equal(t, 45.0, out[config.Reverse])
}

func TestNew_DividerFloor(t *testing.T) {
	s := New(constADC(0, 0), 2, 0)
	s.Tick()
	assert.True(t, drained(s.DisplayReady()))
}
