package main

import (
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	"github.com/rfmeter/gowm/pkg/hw"
)

// glyphRunes maps the custom display glyph codes to block-drawing runes for
// the virtual LCD. Codes 0-5 are bar fill levels, 6 is the peak marker.
var glyphRunes = [7]rune{' ', '▏', '▎', '▌', '▊', '█', '╽'}

// LCDWidget is a virtual 16x2 character LCD implementing the display
// collaborator interface. Display operations arrive from the meter loop
// goroutine; the cell buffer is mutated under a mutex and the canvas refresh
// is scheduled onto the Fyne main thread.
type LCDWidget struct {
	widget.BaseWidget

	mu        sync.Mutex
	cells     [hw.DisplayRows][hw.DisplayCols]rune
	col, row  int
	backlight uint8
}

var _ hw.Display = (*LCDWidget)(nil)

// NewLCD creates a blank virtual LCD.
func NewLCD() *LCDWidget {
	w := &LCDWidget{backlight: 128}
	for r := range w.cells {
		for c := range w.cells[r] {
			w.cells[r][c] = ' '
		}
	}
	w.ExtendBaseWidget(w)
	return w
}

// SetCursor positions the cursor.
func (w *LCDWidget) SetCursor(col, row int) {
	w.mu.Lock()
	w.col, w.row = col, row
	w.mu.Unlock()
}

// Print writes text at the cursor, advancing it. Text past the row edge is
// discarded, as on the real module.
func (w *LCDWidget) Print(text string) {
	w.mu.Lock()
	for _, r := range text {
		w.putRune(r)
	}
	w.mu.Unlock()
	w.refresh()
}

// Write emits one custom glyph at the cursor.
func (w *LCDWidget) Write(glyph byte) {
	r := rune('?')
	if int(glyph) < len(glyphRunes) {
		r = glyphRunes[glyph]
	}
	w.mu.Lock()
	w.putRune(r)
	w.mu.Unlock()
	w.refresh()
}

// SetBacklightLevel tints the virtual backlight.
func (w *LCDWidget) SetBacklightLevel(level uint8) {
	w.mu.Lock()
	w.backlight = level
	w.mu.Unlock()
	w.refresh()
}

// putRune stores a rune at the cursor and advances. Caller holds the mutex.
func (w *LCDWidget) putRune(r rune) {
	if w.row < 0 || w.row >= hw.DisplayRows {
		return
	}
	if w.col >= 0 && w.col < hw.DisplayCols {
		w.cells[w.row][w.col] = r
	}
	w.col++
}

// refresh schedules a canvas refresh on the Fyne main thread.
func (w *LCDWidget) refresh() {
	fyne.Do(func() {
		w.Refresh()
	})
}

// rowText returns one display row as a string.
func (w *LCDWidget) rowText(row int) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return string(w.cells[row][:])
}

// backlightColor derives the panel tint from the backlight level.
func (w *LCDWidget) backlightColor() color.Color {
	w.mu.Lock()
	level := w.backlight
	w.mu.Unlock()
	// Classic yellow-green STN panel, dimmed by the PWM level.
	scale := func(c uint8) uint8 {
		return uint8(uint16(c) * (64 + uint16(level)/2) / 192)
	}
	return color.RGBA{R: scale(154), G: scale(205), B: scale(50), A: 255}
}

// CreateRenderer creates the widget renderer.
func (w *LCDWidget) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(w.backlightColor())

	lines := make([]*canvas.Text, hw.DisplayRows)
	for i := range lines {
		lines[i] = canvas.NewText(w.rowText(i), color.RGBA{R: 20, G: 30, B: 20, A: 255})
		lines[i].TextStyle = fyne.TextStyle{Monospace: true}
		lines[i].TextSize = 22
	}

	objects := []fyne.CanvasObject{bg}
	for _, l := range lines {
		objects = append(objects, l)
	}

	return &lcdRenderer{lcd: w, bg: bg, lines: lines, objects: objects}
}

// lcdRenderer renders the LCD widget.
type lcdRenderer struct {
	lcd     *LCDWidget
	bg      *canvas.Rectangle
	lines   []*canvas.Text
	objects []fyne.CanvasObject
}

func (r *lcdRenderer) MinSize() fyne.Size {
	return fyne.NewSize(280, 76)
}

func (r *lcdRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	rowHeight := (size.Height - 16) / float32(len(r.lines))
	for i, l := range r.lines {
		l.Move(fyne.NewPos(12, 8+float32(i)*rowHeight))
	}
}

func (r *lcdRenderer) Refresh() {
	r.bg.FillColor = r.lcd.backlightColor()
	r.bg.Refresh()
	for i, l := range r.lines {
		l.Text = r.lcd.rowText(i)
		l.Refresh()
	}
}

func (r *lcdRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

func (r *lcdRenderer) Destroy() {}
