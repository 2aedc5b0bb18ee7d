//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"machine"
	"time"
)

var (
	adcForward machine.ADC
	adcReverse machine.ADC
	adcButtons machine.ADC
	uart       = machine.UART0

	pwmBacklight machine.PWM
	pwmMeterFwd  machine.PWM
	pwmMeterRev  machine.PWM

	// Timing
	lastRead    time.Time
	sampleCount int

	// Serial buffer for reading command lines
	serialBuffer [24]byte
	serialPos    int
)

func main() {
	// Limit LEDs as plain outputs
	PIN_LIMIT_FWD.Configure(machine.PinConfig{Mode: machine.PinOutput})
	PIN_LIMIT_REV.Configure(machine.PinConfig{Mode: machine.PinOutput})

	// Configure ADC pins
	PIN_ADC_FORWARD.Configure(machine.PinConfig{Mode: machine.PinInput})
	PIN_ADC_REVERSE.Configure(machine.PinConfig{Mode: machine.PinInput})
	PIN_ADC_BUTTONS.Configure(machine.PinConfig{Mode: machine.PinInput})

	adcForward = machine.ADC{Pin: PIN_ADC_FORWARD}
	adcReverse = machine.ADC{Pin: PIN_ADC_REVERSE}
	adcButtons = machine.ADC{Pin: PIN_ADC_BUTTONS}

	adcConfig := machine.ADCConfig{
		Reference:  ADC_REFERENCE_MV,
		Resolution: ADC_RESOLUTION,
	}

	adcForward.Configure(adcConfig)
	adcReverse.Configure(adcConfig)
	adcButtons.Configure(adcConfig)

	// PWM outputs for backlight and the two analog meter drives
	pwmBacklight = machine.PWM{Pin: PIN_BACKLIGHT}
	pwmMeterFwd = machine.PWM{Pin: PIN_METER_FWD}
	pwmMeterRev = machine.PWM{Pin: PIN_METER_REV}
	pwmBacklight.Configure()
	pwmMeterFwd.Configure()
	pwmMeterRev.Configure()

	// Configure UART for frame streaming and host commands
	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	lastRead = time.Now()

	// Main loop
	for {
		now := time.Now()

		// Check for serial commands (non-blocking)
		processSerial()

		// Sample at the base cadence, emit every FRAME_DIVIDER-th frame
		if now.Sub(lastRead) >= time.Duration(SAMPLE_INTERVAL_MS)*time.Millisecond {
			lastRead = now
			sampleCount++
			if sampleCount >= FRAME_DIVIDER {
				sampleCount = 0
				outputFrame()
			}
		}

		// Small delay to prevent tight loop (but still allow precise timing)
		time.Sleep(100 * time.Microsecond)
	}
}

func outputFrame() {
	forward := adcForward.Get()
	reverse := adcReverse.Get()
	ladder := adcButtons.Get()

	timestampMicros := time.Now().UnixNano() / 1000

	// Output format: "unix_micros,forward,reverse,buttons\n"
	// Example: "1234567890123,512,48,1023\n"
	print(timestampMicros)
	print(",")
	print(forward)
	print(",")
	print(reverse)
	print(",")
	print(ladder)
	print("\n")
}

func processSerial() {
	// Read available bytes from serial
	for uart.Buffered() > 0 {
		data, err := uart.ReadByte()
		if err != nil {
			break
		}

		// Check for newline (end of command)
		if data == '\n' || data == '\r' {
			if serialPos > 0 {
				handleCommand(serialBuffer[:serialPos])
			}
			serialPos = 0
			continue
		}

		if serialPos < len(serialBuffer) {
			serialBuffer[serialPos] = data
			serialPos++
		}
		// Oversized commands are truncated; the parser rejects them
	}
}

// handleCommand parses one host command line.
//
//	Bnnn   backlight PWM level 0-255
//	Mc,nnn analog meter drive for channel c, duty 0-255
//	Lc,b   limit indicator for channel c, b in {0,1}
//
// Display commands (C/P/G) are accepted and ignored for now.
// TODO: wire an hd44780 driver (tinygo.org/x/drivers) for the C/P/G
// cursor/print/glyph passthrough so the head can run standalone.
func handleCommand(cmd []byte) {
	if len(cmd) < 2 {
		return
	}

	switch cmd[0] {
	case 'B':
		if v, ok := parseUint8(cmd[1:]); ok {
			pwmBacklight.Set(uint16(v) << 8)
		}
	case 'M':
		ch, v, ok := parseChannelValue(cmd[1:])
		if !ok {
			return
		}
		if ch == 0 {
			pwmMeterFwd.Set(uint16(v) << 8)
		} else if ch == 1 {
			pwmMeterRev.Set(uint16(v) << 8)
		}
	case 'L':
		ch, v, ok := parseChannelValue(cmd[1:])
		if !ok {
			return
		}
		pin := PIN_LIMIT_FWD
		if ch == 1 {
			pin = PIN_LIMIT_REV
		} else if ch != 0 {
			return
		}
		if v != 0 {
			pin.High()
		} else {
			pin.Low()
		}
	case 'C', 'P', 'G':
		// Display passthrough not wired yet
	}
}

// parseUint8 parses a decimal 0-255.
func parseUint8(b []byte) (uint8, bool) {
	v := 0
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		v = v*10 + int(c-'0')
		if v > 255 {
			return 0, false
		}
	}
	if len(b) == 0 {
		return 0, false
	}
	return uint8(v), true
}

// parseChannelValue parses "c,nnn" with a single-digit channel.
func parseChannelValue(b []byte) (int, uint8, bool) {
	if len(b) < 3 || b[1] != ',' || b[0] < '0' || b[0] > '9' {
		return 0, 0, false
	}
	v, ok := parseUint8(b[2:])
	if !ok {
		return 0, 0, false
	}
	return int(b[0] - '0'), v, true
}
