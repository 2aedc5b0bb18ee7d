package meter

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfmeter/gowm/pkg/buttons"
	"github.com/rfmeter/gowm/pkg/config"
	"github.com/rfmeter/gowm/pkg/hw"
)

// fakeHead is a deterministic meter head: fixed ADC registers, a recorded
// 16x2 display, and recorded outputs.
type fakeHead struct {
	fwd, rev, btn int

	cells    [hw.DisplayRows][hw.DisplayCols]byte
	col, row int

	meterDrive [config.NumChannels]uint8
	limit      [config.NumChannels]bool
	backlight  uint8
}

func newFakeHead() *fakeHead {
	h := &fakeHead{btn: buttons.LevelNone}
	for r := range h.cells {
		for c := range h.cells[r] {
			h.cells[r][c] = ' '
		}
	}
	return h
}

func (h *fakeHead) ReadChannel(id int) int {
	switch id {
	case hw.ChannelForward:
		return h.fwd
	case hw.ChannelReverse:
		return h.rev
	case hw.ChannelButtons:
		return h.btn
	default:
		return 0
	}
}

func (h *fakeHead) SetCursor(col, row int) { h.col, h.row = col, row }

func (h *fakeHead) Print(text string) {
	for i := 0; i < len(text); i++ {
		h.put(text[i])
	}
}

func (h *fakeHead) Write(glyph byte) { h.put('0' + glyph) }

func (h *fakeHead) put(b byte) {
	if h.row < hw.DisplayRows && h.col < hw.DisplayCols {
		h.cells[h.row][h.col] = b
	}
	h.col++
}

func (h *fakeHead) line(row int) string { return string(h.cells[row][:]) }

func (h *fakeHead) SetMeterDrive(ch int, d uint8)     { h.meterDrive[ch] = d }
func (h *fakeHead) SetLimitIndicator(ch int, on bool) { h.limit[ch] = on }
func (h *fakeHead) SetBacklight(level uint8)          { h.backlight = level }

type countingStore struct {
	saves int
}

func (s *countingStore) Save(*config.Settings) error {
	s.saves++
	return nil
}

func newTestMeter(t *testing.T) (*Meter, *fakeHead, *countingStore) {
	t.Helper()
	cfg := config.Default()
	head := newFakeHead()
	store := &countingStore{}
	return New(cfg, head, head, head, store), head, store
}

// cycle injects a ladder level and runs one display period.
func cycle(m *Meter, head *fakeHead, level int) {
	head.btn = level
	m.DisplayCycle()
}

// pressOnce is a press-and-release seen across two display periods.
func pressOnce(m *Meter, head *fakeHead, level int) {
	cycle(m, head, level)
	cycle(m, head, buttons.LevelNone)
}

func TestCalibrate_MeasuresOffsetsAndAppliesSettings(t *testing.T) {
	m, head, _ := newTestMeter(t)
	head.fwd = 55
	head.rev = 60

	m.Calibrate()
	assert.InDelta(t, 55*voltsPerCount, m.offsetV[config.Forward], 1e-9)
	assert.InDelta(t, 60*voltsPerCount, m.offsetV[config.Reverse], 1e-9)
	// The persisted backlight level is pushed to the head.
	assert.Equal(t, uint8(128), head.backlight)
}

func TestDisplayCycle_PowerScreenAtZeroRF(t *testing.T) {
	m, head, _ := newTestMeter(t)
	head.fwd, head.rev = 55, 55
	m.Calibrate()

	m.Scheduler().Tick()
	m.DisplayCycle()

	// Quiet detectors render the fit's sub-milliwatt floor on both rows.
	assert.Equal(t, "  0.8mW", head.line(0)[9:])
	assert.Equal(t, "  0.8mW", head.line(1)[9:])
	assert.Equal(t, uint8(0), head.meterDrive[config.Forward])
}

func TestDisplayCycle_PowerDrivesOutputs(t *testing.T) {
	m, head, _ := newTestMeter(t)
	head.fwd, head.rev = 55, 55
	m.Calibrate()

	// Carrier on: forward detector well above the offset.
	head.fwd = 618
	m.Scheduler().Tick()
	m.DisplayCycle()

	top := strings.TrimSpace(head.line(0))
	assert.NotEmpty(t, top)
	assert.Contains(t, top, "W")
	assert.Greater(t, head.meterDrive[config.Forward], uint8(0))
	assert.False(t, head.limit[config.Forward], "limit defaults to disabled")
}

func TestDisplayCycle_LimitIndicator(t *testing.T) {
	m, head, _ := newTestMeter(t)
	head.fwd, head.rev = 55, 55
	m.Calibrate()
	m.cfg.Settings.LimitW[config.Forward] = 1

	head.fwd = 618
	m.Scheduler().Tick()
	m.DisplayCycle()
	assert.True(t, head.limit[config.Forward])

	// Power back below the threshold clears the indicator.
	head.fwd = 55
	for i := 0; i < 5000; i++ {
		m.Scheduler().Tick()
	}
	m.DisplayCycle()
	assert.False(t, head.limit[config.Forward])
}

func TestDisplayCycle_SWRViewToggle(t *testing.T) {
	m, head, _ := newTestMeter(t)
	head.fwd, head.rev = 55, 55
	m.Calibrate()

	head.fwd = 618
	m.Scheduler().Tick()

	// Down on the power display switches to the standing-wave view.
	cycle(m, head, buttons.LevelDown)
	assert.True(t, strings.HasPrefix(head.line(0), "FWD "))
	assert.Contains(t, head.line(0), "dBm")
	assert.True(t, strings.HasPrefix(head.line(1), "SWR "))

	// The view sticks across released cycles.
	cycle(m, head, buttons.LevelNone)
	assert.True(t, strings.HasPrefix(head.line(1), "SWR "))

	// A second press returns to the bar display.
	cycle(m, head, buttons.LevelDown)
	assert.NotContains(t, head.line(0), "dBm")

	// Down inside configuration mode edits the page, never toggles the view.
	cycle(m, head, buttons.LevelNone)
	pressOnce(m, head, buttons.LevelSelect)
	cycle(m, head, buttons.LevelDown)
	assert.Equal(t, "FWD COUPLER", strings.TrimSpace(head.line(0)))
}

func TestDisplayCycle_MenuNavigation(t *testing.T) {
	m, head, _ := newTestMeter(t)
	m.Calibrate()

	pressOnce(m, head, buttons.LevelSelect)
	assert.Equal(t, "FWD COUPLER", strings.TrimSpace(head.line(0)))
	assert.Equal(t, "30.0 dB", strings.TrimSpace(head.line(1)))

	pressOnce(m, head, buttons.LevelRight)
	assert.Equal(t, "REV COUPLER", strings.TrimSpace(head.line(0)))
}

func TestDisplayCycle_BacklightEditReachesHead(t *testing.T) {
	m, head, _ := newTestMeter(t)
	m.Calibrate()
	require.Equal(t, uint8(128), head.backlight)

	pressOnce(m, head, buttons.LevelSelect)
	for strings.TrimSpace(head.line(0)) != "BACKLIGHT" {
		pressOnce(m, head, buttons.LevelRight)
	}

	pressOnce(m, head, buttons.LevelUp)
	assert.Equal(t, uint8(129), head.backlight)
}

func TestDisplayCycle_CommitHoldSavesOnce(t *testing.T) {
	m, head, store := newTestMeter(t)
	m.Calibrate()

	pressOnce(m, head, buttons.LevelSelect)
	pressOnce(m, head, buttons.LevelUp)

	// Fresh select arms the countdown banner.
	cycle(m, head, buttons.LevelSelect)
	assert.Equal(t, "HOLD TO SAVE", strings.TrimSpace(head.line(0)))
	assert.Equal(t, 0, store.saves)

	// Hold select through the countdown: one write, power display after.
	for i := 0; i < 25; i++ {
		cycle(m, head, buttons.LevelSelect)
	}
	assert.Equal(t, 1, store.saves)

	// Still held: no further writes.
	cycle(m, head, buttons.LevelSelect)
	cycle(m, head, buttons.LevelSelect)
	assert.Equal(t, 1, store.saves)
}

func TestDisplayCycle_CommitAbortOnRelease(t *testing.T) {
	m, head, store := newTestMeter(t)
	m.Calibrate()

	pressOnce(m, head, buttons.LevelSelect)
	cycle(m, head, buttons.LevelSelect)
	cycle(m, head, buttons.LevelSelect)
	cycle(m, head, buttons.LevelNone)

	// Back on the configuration page, nothing written.
	assert.Equal(t, "FWD COUPLER", strings.TrimSpace(head.line(0)))
	assert.Equal(t, 0, store.saves)
}

func TestRun_StopsOnCancel(t *testing.T) {
	m, _, _ := newTestMeter(t)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- m.Run(ctx) }()

	// Let the loop render a few frames before stopping it.
	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop after cancel")
	}
}

func TestFileStore_Save(t *testing.T) {
	cfg := config.Default()
	path := t.TempDir() + "/config.yaml"
	store := NewFileStore(cfg, path)

	require.NoError(t, store.Save(&cfg.Settings))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Settings, loaded.Settings)
}
