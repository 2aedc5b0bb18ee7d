package hw

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"

	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the standard baud rate for the meter head MCU.
	DefaultBaudRate = 115200
)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial is a serial-attached meter head. The MCU streams ADC frames at the
// sampling cadence; the latest frame is held in per-channel registers so
// ReadChannel is a plain register read, same as it would be against local
// hardware. Display and output operations are sent as one-letter command
// lines. The collaborator contract has no failure signal, so command write
// errors are logged and otherwise trusted.
type Serial struct {
	port     string
	baudRate int

	conn      serial.Port
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	connected bool

	// Latest raw ADC registers, written only by the read goroutine.
	latest [NumADCChannels]int
}

// New creates a new serial meter head for the given port and baud rate.
func New(port string, baudRate int) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Serial{
		port:     port,
		baudRate: baudRate,
		ctx:      ctx,
		cancel:   cancel,
	}
	// No button pressed reads full scale on the ladder.
	s.latest[ChannelButtons] = ADCMax
	return s
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{
			Name:        name,
			Description: name,
		})
	}

	return result, nil
}

// Connect opens the serial port and starts reading frames.
func (s *Serial) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return fmt.Errorf("already connected")
	}

	mode := &serial.Mode{
		BaudRate: s.baudRate,
	}

	port, err := serial.Open(s.port, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", s.port, err)
	}

	s.conn = port
	s.connected = true

	go s.readFrames()

	return nil
}

// Close closes the connection and stops reading frames.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil
	}

	s.cancel()

	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			log.Printf("Error closing serial port: %v", err)
		}
		s.conn = nil
	}

	s.connected = false

	return nil
}

// IsConnected returns whether the device is currently connected.
func (s *Serial) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

// ReadChannel returns the latest raw ADC reading of the channel.
func (s *Serial) ReadChannel(id int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id < 0 || id >= NumADCChannels {
		return 0
	}
	return s.latest[id]
}

// SetCursor positions the display cursor.
func (s *Serial) SetCursor(col, row int) {
	s.command(fmt.Sprintf("C%d,%d\n", col, row))
}

// Print writes text at the display cursor.
func (s *Serial) Print(text string) {
	s.command("P" + text + "\n")
}

// Write emits a custom glyph at the display cursor.
func (s *Serial) Write(glyph byte) {
	s.command(fmt.Sprintf("G%d\n", glyph))
}

// SetMeterDrive sets the analog meter PWM duty cycle for a channel.
func (s *Serial) SetMeterDrive(channel int, duty uint8) {
	s.command(fmt.Sprintf("M%d,%d\n", channel, duty))
}

// SetLimitIndicator switches a power limit indicator on or off.
func (s *Serial) SetLimitIndicator(channel int, on bool) {
	v := 0
	if on {
		v = 1
	}
	s.command(fmt.Sprintf("L%d,%d\n", channel, v))
}

// SetBacklight sets the display backlight PWM level.
func (s *Serial) SetBacklight(level uint8) {
	s.command(fmt.Sprintf("B%d\n", level))
}

// command sends one command line to the MCU.
func (s *Serial) command(line string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.connected || s.conn == nil {
		return
	}

	if _, err := s.conn.Write([]byte(line)); err != nil {
		log.Printf("Failed to send command %q: %v", strings.TrimSpace(line), err)
	}
}

// readFrames reads lines from the serial port and latches them into the
// channel registers.
func (s *Serial) readFrames() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Panic in readFrames: %v", r)
		}
	}()

	scanner := bufio.NewScanner(s.conn)
	for {
		select {
		case <-s.ctx.Done():
			return
		default:
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil && err != io.EOF {
					log.Printf("Error reading from serial port: %v", err)
				}
				return
			}

			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			frame, err := parseFrame(line)
			if err != nil {
				log.Printf("Failed to parse frame '%s': %v", line, err)
				continue
			}

			s.mu.Lock()
			s.latest = frame
			s.mu.Unlock()
		}
	}
}

// parseFrame parses one streamed line from the MCU.
// Format: unix_micros,forward,reverse,buttons with 10-bit ADC counts.
// Example: 1234567890123,512,48,1023
func parseFrame(line string) ([NumADCChannels]int, error) {
	var frame [NumADCChannels]int

	parts := strings.Split(line, ",")
	if len(parts) != 4 {
		return frame, fmt.Errorf("invalid frame format: expected 4 comma-separated values, got %d", len(parts))
	}

	// The timestamp is only checked for well-formedness; the host scheduler
	// keeps its own time base.
	if _, err := strconv.ParseInt(parts[0], 10, 64); err != nil {
		return frame, fmt.Errorf("invalid timestamp: %w", err)
	}

	for i := 0; i < NumADCChannels; i++ {
		v, err := strconv.ParseUint(parts[i+1], 10, 16)
		if err != nil {
			return frame, fmt.Errorf("invalid channel %d reading: %w", i, err)
		}
		if v > ADCMax {
			return frame, fmt.Errorf("channel %d reading out of range: %d (max %d)", i, v, ADCMax)
		}
		frame[i] = int(v)
	}

	return frame, nil
}
