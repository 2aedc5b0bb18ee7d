// Package buttons decodes the front-panel resistor-ladder analog input into
// debounced, held-duration-aware button states.
package buttons

// Button identifies one of the five mutually exclusive front-panel buttons.
type Button int

const (
	None Button = iota
	Select
	Left
	Right
	Up
	Down
)

func (b Button) String() string {
	switch b {
	case Select:
		return "select"
	case Left:
		return "left"
	case Right:
		return "right"
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "none"
	}
}

// Nominal ADC counts produced by the resistor ladder for each pressed button.
// The virtual front panel and the decoder tests inject these.
const (
	LevelRight  = 0
	LevelUp     = 144
	LevelDown   = 329
	LevelLeft   = 505
	LevelSelect = 741
	LevelNone   = 1023
)

// Decode maps a single ladder reading to a button via ascending thresholds.
// Readings between the nominal levels (noise, contact bounce, a reading taken
// mid-transition) resolve to the nearest band; anything above the select band
// is no button at all, so a transient invalid reading is never an error.
func Decode(adc int) Button {
	switch {
	case adc < 50:
		return Right
	case adc < 195:
		return Up
	case adc < 380:
		return Down
	case adc < 555:
		return Left
	case adc < 790:
		return Select
	default:
		return None
	}
}

// State is the decoded button with the time it has been held. HeldMs is 0 on
// the tick the button identity changed (the leading edge) and accumulates by
// the tick period after that, saturating at the decoder maximum.
type State struct {
	Button Button
	HeldMs float64
}

// LeadingEdge reports whether this is the first tick of a fresh press.
func (s State) LeadingEdge() bool {
	return s.Button != None && s.HeldMs == 0
}

// Decoder tracks button identity and held duration across display ticks.
type Decoder struct {
	tickMs float64
	maxMs  float64
	active Button
	heldMs float64
}

// DefaultMaxHeldMs saturates the held duration so arithmetic cannot overflow
// and "held forever" behaves identically to "held past the maximum".
const DefaultMaxHeldMs = 60_000

// NewDecoder creates a decoder evaluated once per display tick of tickMs
// milliseconds. maxHeldMs <= 0 selects DefaultMaxHeldMs.
func NewDecoder(tickMs, maxHeldMs float64) *Decoder {
	if maxHeldMs <= 0 {
		maxHeldMs = DefaultMaxHeldMs
	}
	return &Decoder{tickMs: tickMs, maxMs: maxHeldMs, active: None}
}

// Update decodes one ladder reading and advances the held duration. A change
// of decoded identity resets the duration to zero; an unchanged identity
// accumulates it by the tick period.
func (d *Decoder) Update(adc int) State {
	b := Decode(adc)
	if b != d.active {
		d.active = b
		d.heldMs = 0
	} else {
		d.heldMs += d.tickMs
		if d.heldMs > d.maxMs {
			d.heldMs = d.maxMs
		}
	}
	return State{Button: d.active, HeldMs: d.heldMs}
}
