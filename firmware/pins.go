//go:build tinygo

package main

import "machine"

const (
	// Sampling configuration
	SAMPLE_INTERVAL_MS = 2 // ADC read interval in milliseconds (all three channels)

	// ADC configuration
	ADC_REFERENCE_MV = 5000 // Reference voltage in millivolts (5V)
	ADC_RESOLUTION   = 10   // ADC resolution in bits (10-bit = 0-1023)

	// Detector ADC pins
	PIN_ADC_FORWARD = machine.A1
	PIN_ADC_REVERSE = machine.A2
	// Button resistor ladder pin
	PIN_ADC_BUTTONS = machine.A3

	// PWM output pins
	PIN_BACKLIGHT   = machine.D5
	PIN_METER_FWD   = machine.D6
	PIN_METER_REV   = machine.D7
	// Limit indicator LEDs
	PIN_LIMIT_FWD = machine.D8
	PIN_LIMIT_REV = machine.D9

	// Serial configuration
	// Format "unix_micros,forward,reverse,buttons\n"
	// Example: "1234567890123456,1023,1023,1023\n" = ~33 bytes max per line
	// 500 frames/sec * 33 bytes/line = 16,500 bytes/sec
	// UART 8N1: 10 bits/byte = 165,000 baud minimum is too tight at 115200,
	// so frames are emitted every other sample (250/sec, ~2.7x headroom).
	UART_BAUD_RATE = 115200
	FRAME_DIVIDER  = 2 // Emit a frame every FRAME_DIVIDER-th sample
)
