package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/rfmeter/gowm/pkg/config"
	"github.com/rfmeter/gowm/pkg/hw"
	"github.com/rfmeter/gowm/pkg/meter"
)

func main() {
	var (
		portFlag   = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag   = flag.Bool("mock", false, "Use mocked meter head instead of serial port")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}

	application := app.NewWithID("com.rfmeter.gowm")

	window := application.NewWindow("RF Power Meter")
	window.Resize(fyne.NewSize(420, 320))
	window.CenterOnScreen()

	lcd := NewLCD()
	outputs := newPanelOutputs(lcd)

	state := &appState{
		cfg:        cfg,
		configPath: *configFlag,
		window:     window,
		lcd:        lcd,
		outputs:    outputs,
		useMock:    *mockFlag,
	}

	toolbar := createToolbar(state)

	state.buttonBox = container.NewCenter(widget.NewLabel("Connect a meter head to enable the panel buttons"))

	window.SetContent(container.NewBorder(
		toolbar,
		state.buttonBox,
		nil,
		nil,
		container.NewVBox(lcd, outputs.container()),
	))

	window.SetOnClosed(func() {
		state.disconnect()
	})

	window.ShowAndRun()
}

// appState holds the application state.
type appState struct {
	cfg        *config.Config
	configPath string
	window     fyne.Window
	lcd        *LCDWidget
	outputs    *panelOutputs
	buttonBox  *fyne.Container
	connectBtn *widget.Button
	useMock    bool

	device hw.Device
	cancel context.CancelFunc
	done   chan struct{}
}

// createToolbar creates the toolbar with connect and settings buttons.
func createToolbar(state *appState) fyne.CanvasObject {
	connectBtn := widget.NewButtonWithIcon("", theme.LoginIcon(), func() {
		handleConnect(state)
	})
	state.connectBtn = connectBtn

	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showPortDialog(state)
	})

	return container.NewHBox(connectBtn, settingsBtn)
}

// handleConnect toggles the meter head connection and the core loop with it.
func handleConnect(state *appState) {
	if state.device != nil && state.device.IsConnected() {
		state.disconnect()
		fmt.Println("Disconnected")
		return
	}

	var device hw.Device
	if state.useMock {
		device = hw.NewMock(&state.cfg.Mock)
		fmt.Println("Using mocked meter head")
	} else {
		device = hw.New(state.cfg.Serial.Port, state.cfg.Serial.Baud)
	}

	if err := device.Connect(); err != nil {
		dialog.ShowError(fmt.Errorf("failed to connect: %w", err), state.window)
		return
	}
	state.device = device
	if !state.useMock {
		fmt.Printf("Connected to serial port: %s\n", state.cfg.Serial.Port)
	}

	// Panel buttons drive the ladder only on the mock head; with real
	// hardware the physical buttons stream in over serial.
	if mock, ok := device.(*hw.Mock); ok {
		state.buttonBox.Objects = []fyne.CanvasObject{container.NewCenter(buttonRow(mock))}
		state.buttonBox.Refresh()
	}

	store := meter.NewFileStore(state.cfg, state.configPath)
	core := meter.New(state.cfg, device, state.lcd, state.outputs, store)

	ctx, cancel := context.WithCancel(context.Background())
	state.cancel = cancel
	state.done = make(chan struct{})

	go func() {
		defer close(state.done)
		if err := core.Run(ctx); err != nil && ctx.Err() == nil {
			log.Printf("Meter loop stopped: %v", err)
		}
	}()
}

// disconnect stops the core loop and closes the device, in that order, so
// the loop never reads a closed port.
func (state *appState) disconnect() {
	if state.cancel != nil {
		state.cancel()
		<-state.done
		state.cancel = nil
	}
	if state.device != nil {
		state.device.Close()
		state.device = nil
	}
	state.buttonBox.Objects = []fyne.CanvasObject{
		container.NewCenter(widget.NewLabel("Connect a meter head to enable the panel buttons")),
	}
	state.buttonBox.Refresh()
}

// showPortDialog displays the serial port selection dialog.
func showPortDialog(state *appState) {
	ports, err := hw.Ports()
	options := []string{}
	if err == nil {
		for _, p := range ports {
			options = append(options, p.Name)
		}
	}

	found := false
	for _, opt := range options {
		if opt == state.cfg.Serial.Port {
			found = true
			break
		}
	}
	if !found && state.cfg.Serial.Port != "" {
		options = append(options, state.cfg.Serial.Port)
	}

	portSelect := widget.NewSelect(options, nil)
	portSelect.SetSelected(state.cfg.Serial.Port)

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Serial Port", Widget: portSelect},
		},
		OnSubmit: func() {
			if portSelect.Selected == "" {
				return
			}
			state.cfg.Serial.Port = portSelect.Selected
			if err := state.cfg.Save(state.configPath); err != nil {
				dialog.ShowError(fmt.Errorf("failed to save config: %w", err), state.window)
			}
		},
	}

	d := dialog.NewCustom("Settings", "Close", form, state.window)
	d.Resize(fyne.NewSize(360, 160))
	d.Show()
}
