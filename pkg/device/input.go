package device

import (
	"reacher-mcu/pkg/hal"
)

// Edge is the outcome of sampling a debounced input.
type Edge int

const (
	NoEdge Edge = iota
	Pressed
	Released
)

func (e Edge) String() string {
	switch e {
	case Pressed:
		return "pressed"
	case Released:
		return "released"
	default:
		return "none"
	}
}

// Input is a debounced digital input. The stable level only changes after
// the raw level has held a new value for the debounce interval.
type Input struct {
	name     string
	pin      hal.InputPin
	armed    bool
	debounce uint64

	prevRaw    bool
	stable     bool
	lastChange uint64

	pressedAt  uint64
	releasedAt uint64
}

func newInput(name string, pin hal.InputPin, debounce uint64) Input {
	return Input{name: name, pin: pin, debounce: debounce}
}

// Name returns the component id used in event records.
func (in *Input) Name() string { return in.name }

// Armed reports whether the input produces events.
func (in *Input) Armed() bool { return in.armed }

// SetArmed arms or disarms the input. Disarming forgets the sampled
// levels, so a press held across re-arming starts a fresh debounce and a
// release that happened while disarmed is never reported.
func (in *Input) SetArmed(armed bool) {
	if !armed {
		in.prevRaw = false
		in.stable = false
	}
	in.armed = armed
}

// Debounce returns the debounce interval in ms.
func (in *Input) Debounce() uint64 { return in.debounce }

// SetDebounce changes the debounce interval.
func (in *Input) SetDebounce(ms uint64) { in.debounce = ms }

// Stable returns the debounced level.
func (in *Input) Stable() bool { return in.stable }

// PressedAt returns the time of the last committed press.
func (in *Input) PressedAt() uint64 { return in.pressedAt }

// ReleasedAt returns the time of the last committed release.
func (in *Input) ReleasedAt() uint64 { return in.releasedAt }

// Sample reads the pin once and returns the committed transition, if any.
func (in *Input) Sample(now uint64) Edge {
	raw := in.pin.Read()
	if raw != in.prevRaw {
		in.lastChange = now
		in.prevRaw = raw
	}

	if now-in.lastChange < in.debounce || raw == in.stable {
		return NoEdge
	}

	in.stable = raw
	if raw {
		in.pressedAt = now
		return Pressed
	}
	in.releasedAt = now
	return Released
}

// Label is the classification assigned to a lever press.
type Label int

const (
	LabelNone Label = iota
	LabelActive
	LabelTimeout
	LabelInactive
)

func (l Label) String() string {
	switch l {
	case LabelActive:
		return "ACTIVE"
	case LabelTimeout:
		return "TIMEOUT"
	case LabelInactive:
		return "INACTIVE"
	default:
		return "NONE"
	}
}

// Event returns the record event name, e.g. "ACTIVE_PRESS".
func (l Label) Event() string {
	return l.String() + "_PRESS"
}

// Lever is a debounced lever carrying the label of its current press.
type Lever struct {
	Input
	label Label
}

// NewLever creates a disarmed lever.
func NewLever(name string, pin hal.InputPin, debounce uint64) *Lever {
	return &Lever{Input: newInput(name, pin, debounce)}
}

// Label returns the classification of the current or last press.
func (l *Lever) Label() Label { return l.label }

// SetLabel records the classification made at press time.
func (l *Lever) SetLabel(label Label) { l.label = label }

// LickCircuit is the debounced lick sensor.
type LickCircuit struct {
	Input
}

// NewLickCircuit creates a disarmed lick sensor.
func NewLickCircuit(name string, pin hal.InputPin, debounce uint64) *LickCircuit {
	return &LickCircuit{Input: newInput(name, pin, debounce)}
}
