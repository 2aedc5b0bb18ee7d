// Package render formats measurement and menu state for the 16x2 character
// display collaborator and drives the PWM/GPIO outputs. All numeric fields
// are fixed width so a shrinking digit count never leaves stale glyphs
// behind.
package render

import (
	"fmt"
	"strings"

	"github.com/rfmeter/gowm/pkg/config"
	"github.com/rfmeter/gowm/pkg/hw"
	"github.com/rfmeter/gowm/pkg/watts"
)

// barCols is the number of display columns used by the bar graph; the rest
// of the row holds the fixed-width numeric field.
const barCols = 9

// numberWidth is the width of the numeric field, including the unit.
const numberWidth = hw.DisplayCols - barCols

// ChannelView is the converted power of one channel for a display cycle:
// the smoothed bar value and the peak-hold number value, both in watts and
// both derived from the same physical channel.
type ChannelView struct {
	BarW    float64
	NumberW float64
}

// Pipeline renders frames to the display and mirrors power onto the analog
// meter, limit indicator, and backlight outputs.
type Pipeline struct {
	disp hw.Display
	out  hw.Outputs
}

// New creates a render pipeline over the display and output collaborators.
func New(disp hw.Display, out hw.Outputs) *Pipeline {
	return &Pipeline{disp: disp, out: out}
}

// PowerScreen renders the power display: one row per channel, a bar graph of
// the smoothed average on the left and the fixed-width peak number on the
// right.
func (p *Pipeline) PowerScreen(views [config.NumChannels]ChannelView, s *config.Settings) {
	for ch := 0; ch < config.NumChannels; ch++ {
		p.disp.SetCursor(0, ch)
		p.bar(views[ch].BarW, views[ch].NumberW, s.BarFullScaleW[ch])
		p.disp.Print(FormatWatts(views[ch].NumberW, numberWidth))
	}
}

// SWRScreen renders the standing-wave view: forward peak power in dBm on the
// top row, the voltage standing wave ratio of the two directional channels on
// the bottom.
func (p *Pipeline) SWRScreen(views [config.NumChannels]ChannelView) {
	fwd := float32(views[config.Forward].NumberW)
	rev := float32(views[config.Reverse].NumberW)

	p.disp.SetCursor(0, 0)
	p.disp.Print(pad(fmt.Sprintf("FWD %6.1f dBm", watts.DBm(fwd)), hw.DisplayCols))
	p.disp.SetCursor(0, 1)
	p.disp.Print(pad(fmt.Sprintf("SWR %5.2f", watts.VSWR(fwd, rev)), hw.DisplayCols))
}

// ConfigScreen renders a configuration page: title on the top row, the
// formatted value on the bottom row.
func (p *Pipeline) ConfigScreen(title, value string) {
	p.disp.SetCursor(0, 0)
	p.disp.Print(pad(title, hw.DisplayCols))
	p.disp.SetCursor(0, 1)
	p.disp.Print(pad(value, hw.DisplayCols))
}

// CommitScreen renders the deferred-commit countdown banner.
func (p *Pipeline) CommitScreen(remainingMs float64) {
	p.disp.SetCursor(0, 0)
	p.disp.Print(pad("HOLD TO SAVE", hw.DisplayCols))
	p.disp.SetCursor(0, 1)
	p.disp.Print(pad(fmt.Sprintf("SAVING IN %3.1fs", remainingMs/1000), hw.DisplayCols))
}

// UpdateOutputs mirrors the converted powers onto the analog meter drives
// and limit indicators. The meter tracks the peak number against its own
// full scale; a limit threshold of zero disables the indicator.
func (p *Pipeline) UpdateOutputs(views [config.NumChannels]ChannelView, s *config.Settings) {
	for ch := 0; ch < config.NumChannels; ch++ {
		p.out.SetMeterDrive(ch, duty(views[ch].NumberW, s.MeterFullScaleW[ch]))
		p.out.SetLimitIndicator(ch, s.LimitW[ch] > 0 && views[ch].NumberW > s.LimitW[ch])
	}
}

// bar emits barCols cells: sub-character-resolution fill for the smoothed
// value via glyph codes 0-5, with the peak marker glyph overlaid where the
// held peak sits beyond the filled portion.
func (p *Pipeline) bar(avgW, peakW, fullScaleW float64) {
	fill := barSubCells(avgW, fullScaleW)
	peakCell := -1
	if cell := (barSubCells(peakW, fullScaleW) - 1) / hw.GlyphBarMax; cell > fill/hw.GlyphBarMax {
		peakCell = cell
	}

	for cell := 0; cell < barCols; cell++ {
		switch {
		case cell == peakCell:
			p.disp.Write(hw.GlyphPeakMark)
		case fill >= (cell+1)*hw.GlyphBarMax:
			p.disp.Write(hw.GlyphBarMax)
		case fill > cell*hw.GlyphBarMax:
			p.disp.Write(byte(fill - cell*hw.GlyphBarMax))
		default:
			p.disp.Print(" ")
		}
	}
}

// barSubCells maps a power to the number of filled sub-cells, 0 to
// barCols*GlyphBarMax, clamping at the bar full scale.
func barSubCells(w, fullScaleW float64) int {
	if w <= 0 || fullScaleW <= 0 {
		return 0
	}
	frac := w / fullScaleW
	if frac > 1 {
		frac = 1
	}
	return int(frac*float64(barCols*hw.GlyphBarMax) + 0.5)
}

// FormatWatts renders a power right-aligned in the given width with an
// autoranged unit: milliwatts below one watt, kilowatts at and above a
// thousand. The width is constant for any value so successive frames never
// need a clearing pass.
func FormatWatts(w float64, width int) string {
	var text string
	switch {
	case w < 0:
		text = "0.0mW"
	case w < 0.0995:
		text = fmt.Sprintf("%.1fmW", w*1000)
	case w < 1:
		text = fmt.Sprintf("%.0fmW", w*1000)
	case w < 99.95:
		text = fmt.Sprintf("%.1fW", w)
	case w < 1000:
		text = fmt.Sprintf("%.0fW", w)
	default:
		text = fmt.Sprintf("%.2fkW", w/1000)
	}
	if len(text) > width {
		text = fmt.Sprintf("%.1fkW", w/1000)
	}
	return leftPad(text, width)
}

// duty maps a power against a full scale into a PWM duty cycle 0-255.
func duty(w, fullScaleW float64) uint8 {
	if w <= 0 || fullScaleW <= 0 {
		return 0
	}
	frac := w / fullScaleW
	if frac > 1 {
		frac = 1
	}
	return uint8(frac*255 + 0.5)
}

func pad(text string, width int) string {
	if len(text) >= width {
		return text[:width]
	}
	return text + strings.Repeat(" ", width-len(text))
}

func leftPad(text string, width int) string {
	if len(text) >= width {
		return text[len(text)-width:]
	}
	return strings.Repeat(" ", width-len(text)) + text
}
