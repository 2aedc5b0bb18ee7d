package main

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	"github.com/rfmeter/gowm/pkg/buttons"
	"github.com/rfmeter/gowm/pkg/config"
	"github.com/rfmeter/gowm/pkg/hw"
)

// panelOutputs implements the PWM/GPIO output collaborator against the
// virtual front panel: meter drives become progress bars, limit indicators
// become warning labels, and the backlight tints the LCD. Calls arrive from
// the meter loop goroutine; widget updates are scheduled onto the Fyne main
// thread.
type panelOutputs struct {
	lcd    *LCDWidget
	meters [config.NumChannels]*widget.ProgressBar
	limits [config.NumChannels]*widget.Label
}

var _ hw.Outputs = (*panelOutputs)(nil)

// newPanelOutputs builds the output widgets for both channels.
func newPanelOutputs(lcd *LCDWidget) *panelOutputs {
	p := &panelOutputs{lcd: lcd}
	for ch := 0; ch < config.NumChannels; ch++ {
		p.meters[ch] = widget.NewProgressBar()
		p.limits[ch] = widget.NewLabel("")
	}
	return p
}

// container lays out the meter drive bars and limit indicators.
func (p *panelOutputs) container() fyne.CanvasObject {
	return container.NewVBox(
		container.NewBorder(nil, nil, widget.NewLabel("FWD"), p.limits[config.Forward], p.meters[config.Forward]),
		container.NewBorder(nil, nil, widget.NewLabel("REV"), p.limits[config.Reverse], p.meters[config.Reverse]),
	)
}

// SetMeterDrive mirrors the analog meter PWM duty onto the progress bar.
func (p *panelOutputs) SetMeterDrive(channel int, duty uint8) {
	if channel < 0 || channel >= config.NumChannels {
		return
	}
	fyne.Do(func() {
		p.meters[channel].SetValue(float64(duty) / 255)
	})
}

// SetLimitIndicator shows or clears the over-limit warning.
func (p *panelOutputs) SetLimitIndicator(channel int, on bool) {
	if channel < 0 || channel >= config.NumChannels {
		return
	}
	fyne.Do(func() {
		if on {
			p.limits[channel].SetText("LIMIT")
		} else {
			p.limits[channel].SetText("")
		}
	})
}

// SetBacklight tints the virtual LCD.
func (p *panelOutputs) SetBacklight(level uint8) {
	p.lcd.SetBacklightLevel(level)
}

// holdButton is a button that reports press and release separately, so a
// held panel button accelerates value editing the same way the hardware
// ladder buttons do.
type holdButton struct {
	widget.Button
	onPress   func()
	onRelease func()
}

var _ desktop.Mouseable = (*holdButton)(nil)

func newHoldButton(label string, onPress, onRelease func()) *holdButton {
	b := &holdButton{onPress: onPress, onRelease: onRelease}
	b.Text = label
	b.ExtendBaseWidget(b)
	return b
}

func (b *holdButton) MouseDown(e *desktop.MouseEvent) {
	if b.onPress != nil {
		b.onPress()
	}
}

func (b *holdButton) MouseUp(e *desktop.MouseEvent) {
	if b.onRelease != nil {
		b.onRelease()
	}
}

// buttonRow builds the five front-panel buttons. Each press injects the
// button's nominal ladder level into the mock meter head; release returns
// the ladder to its open level.
func buttonRow(mock *hw.Mock) fyne.CanvasObject {
	ladder := func(level int) (func(), func()) {
		return func() { mock.SetButtonLevel(level) },
			func() { mock.SetButtonLevel(buttons.LevelNone) }
	}

	mk := func(label string, level int) *holdButton {
		press, release := ladder(level)
		return newHoldButton(label, press, release)
	}

	return container.NewHBox(
		mk("Select", buttons.LevelSelect),
		mk("◀", buttons.LevelLeft),
		mk("▲", buttons.LevelUp),
		mk("▼", buttons.LevelDown),
		mk("▶", buttons.LevelRight),
	)
}
