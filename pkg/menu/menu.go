// Package menu implements the top-level mode state machine of the wattmeter:
// power display versus configuration, page navigation with wraparound, value
// editing with press-and-hold acceleration, and the time-gated deferred
// commit of settings to persistent storage.
package menu

import (
	"log"

	"github.com/rfmeter/gowm/pkg/buttons"
	"github.com/rfmeter/gowm/pkg/config"
)

// Mode is the top-level display mode.
type Mode int

const (
	PowerDisplay Mode = iota
	Configuration
)

// Store persists the settings record. The write fires only on a confirmed
// configuration exit, never on every edit, to bound storage write-wear.
type Store interface {
	Save(s *config.Settings) error
}

// Default timing. The commit hold is how long select must stay down to
// confirm a save; the idle timeout reverts an abandoned configuration
// session to the power display without a write.
const (
	DefaultCommitHoldMs  = 1000
	DefaultIdleTimeoutMs = 30_000
)

// accelRefMs scales hold acceleration: a button held this long sweeps at one
// base step per display tick, and proportionally faster beyond it.
const accelRefMs = 500

// maxAccelFactor caps the sweep rate for very long holds.
const maxAccelFactor = 100

// Machine is the menu state machine, ticked once per display period from the
// main loop. It owns the settings record while in configuration mode.
type Machine struct {
	settings *config.Settings
	store    Store
	tickMs   float64

	commitHoldMs  float64
	idleTimeoutMs float64

	mode      Mode
	pageIndex int

	commitActive      bool
	commitRemainingMs float64
	idleRemainingMs   float64

	pages []page

	onFilterChange func(attackMs, decayMs, peakHoldMs float64)
	onBacklight    func(level uint8)
}

// Option configures a Machine.
type Option func(*Machine)

// WithCommitHold overrides the select-hold duration required to commit.
func WithCommitHold(ms float64) Option {
	return func(m *Machine) { m.commitHoldMs = ms }
}

// WithIdleTimeout overrides the configuration-mode inactivity timeout.
func WithIdleTimeout(ms float64) Option {
	return func(m *Machine) { m.idleTimeoutMs = ms }
}

// OnFilterChange registers the hook that re-derives the runtime filter
// coefficients. It runs immediately after an attack/decay/peak-hold edit,
// not lazily.
func OnFilterChange(fn func(attackMs, decayMs, peakHoldMs float64)) Option {
	return func(m *Machine) { m.onFilterChange = fn }
}

// OnBacklight registers the hook applying an edited backlight level.
func OnBacklight(fn func(level uint8)) Option {
	return func(m *Machine) { m.onBacklight = fn }
}

// New creates a menu state machine ticked every tickMs milliseconds.
func New(settings *config.Settings, store Store, tickMs float64, opts ...Option) *Machine {
	m := &Machine{
		settings:      settings,
		store:         store,
		tickMs:        tickMs,
		commitHoldMs:  DefaultCommitHoldMs,
		idleTimeoutMs: DefaultIdleTimeoutMs,
		mode:          PowerDisplay,
		pages:         defaultPages(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Mode returns the current top-level mode.
func (m *Machine) Mode() Mode { return m.mode }

// PageCount returns the number of configuration pages.
func (m *Machine) PageCount() int { return len(m.pages) }

// PageIndex returns the active configuration page index.
func (m *Machine) PageIndex() int { return m.pageIndex }

// PageTitle returns the active page's display title.
func (m *Machine) PageTitle() string { return m.pages[m.pageIndex].title }

// PageValue returns the active page's formatted current value.
func (m *Machine) PageValue() string {
	p := m.pages[m.pageIndex]
	return p.format(p.get(m.settings))
}

// CommitPending reports whether the deferred-commit countdown is running,
// with the remaining time in ms.
func (m *Machine) CommitPending() (bool, float64) {
	return m.commitActive, m.commitRemainingMs
}

// Tick advances the state machine by one display period with the current
// button state. Transitions follow the mode table: select enters
// configuration from the power display; in configuration, a fresh select
// press shows the power display and starts the commit countdown, holding it
// to zero persists the settings exactly once, and releasing early aborts
// back to configuration without a write.
func (m *Machine) Tick(bs buttons.State) {
	m.settings.Clamp()

	if m.commitActive {
		m.tickCommit(bs)
		return
	}

	switch m.mode {
	case PowerDisplay:
		if bs.Button == buttons.Select && bs.LeadingEdge() {
			m.mode = Configuration
			m.idleRemainingMs = m.idleTimeoutMs
		}
	case Configuration:
		m.tickConfiguration(bs)
	}
}

// tickCommit runs the deferred-commit countdown. The machine already shows
// the power display; select must stay held for the full countdown to
// confirm the write.
func (m *Machine) tickCommit(bs buttons.State) {
	if bs.Button != buttons.Select {
		// Released before the countdown completed: abort, no write.
		m.commitActive = false
		m.mode = Configuration
		m.idleRemainingMs = m.idleTimeoutMs
		return
	}

	m.commitRemainingMs -= m.tickMs
	if m.commitRemainingMs > 0 {
		return
	}

	m.commitActive = false
	m.mode = PowerDisplay
	if err := m.store.Save(m.settings); err != nil {
		// The storage collaborator offers no retry path; log and move on.
		log.Printf("Failed to persist settings: %v", err)
	}
}

func (m *Machine) tickConfiguration(bs buttons.State) {
	if bs.Button == buttons.None {
		m.idleRemainingMs -= m.tickMs
		if m.idleRemainingMs <= 0 {
			// Abandoned session: back to the power display without a write.
			// Edits already applied stay live until power-off.
			m.mode = PowerDisplay
		}
		return
	}
	m.idleRemainingMs = m.idleTimeoutMs

	switch bs.Button {
	case buttons.Select:
		if bs.LeadingEdge() {
			m.mode = PowerDisplay
			m.commitActive = true
			m.commitRemainingMs = m.commitHoldMs
		}
	case buttons.Left:
		if bs.LeadingEdge() {
			m.pageIndex--
			if m.pageIndex < 0 {
				m.pageIndex = len(m.pages) - 1
			}
		}
	case buttons.Right:
		if bs.LeadingEdge() {
			m.pageIndex = (m.pageIndex + 1) % len(m.pages)
		}
	case buttons.Up:
		m.adjust(bs, +1)
	case buttons.Down:
		m.adjust(bs, -1)
	}
}

// adjust applies the uniform value-adjust policy to the active page: a small
// fixed step on a fresh press, then per-tick changes proportional to the
// held duration so sustained holds sweep the value. The field is clamped to
// its declared range after every change and the page's apply hook re-derives
// any dependent runtime state immediately.
func (m *Machine) adjust(bs buttons.State, direction float64) {
	p := m.pages[m.pageIndex]

	factor := 1.0
	if bs.HeldMs > 0 {
		factor = bs.HeldMs / accelRefMs
		if factor > maxAccelFactor {
			factor = maxAccelFactor
		}
	}

	v := p.get(m.settings) + direction*p.step*factor
	p.set(m.settings, p.rng.Clamp(v))
	m.settings.Clamp()

	if p.apply != nil {
		p.apply(m)
	}
}
