// Package hw declares the external collaborator interfaces of the wattmeter
// core (analog input, character display, PWM/GPIO outputs) and provides the
// serial meter-head and mock implementations.
package hw

// Analog channel IDs exposed by the meter head.
const (
	ChannelForward = 0
	ChannelReverse = 1
	ChannelButtons = 2
	NumADCChannels = 3
)

// ADCMax is the full-scale ADC count of the 10-bit converter.
const ADCMax = 1023

// VRef is the ADC reference voltage of the meter head.
const VRef = 5.0

// Display rows and columns of the character display.
const (
	DisplayCols = 16
	DisplayRows = 2
)

// Custom display glyph codes. Codes 0-5 render a cell with that many filled
// pixel columns; GlyphPeakMark renders the held-peak position marker.
const (
	GlyphBarMax   = 5
	GlyphPeakMark = 6
)

// AnalogReader exposes the latest raw ADC reading of a channel, 0..ADCMax.
type AnalogReader interface {
	ReadChannel(id int) int
}

// Display is the 16x2 character display collaborator. The core formats
// fixed-width fields itself; the display only positions the cursor and emits
// text or custom glyphs. The collaborator offers no failure signal.
type Display interface {
	SetCursor(col, row int)
	Print(text string)
	Write(glyph byte)
}

// Outputs is the PWM/GPIO output collaborator.
type Outputs interface {
	SetMeterDrive(channel int, duty uint8)
	SetLimitIndicator(channel int, on bool)
	SetBacklight(level uint8)
}

// Device is a complete meter head: analog input plus display and outputs,
// with a connection lifecycle.
type Device interface {
	Connect() error
	Close() error
	IsConnected() bool
	AnalogReader
	Display
	Outputs
}

var _ Device = (*Serial)(nil)
var _ Device = (*Mock)(nil)
