package device

import (
	"reacher-mcu/pkg/hal"
)

// Pump is the syringe pump. Its infusion window follows the cue window by
// the trace interval.
type Pump struct {
	pin           hal.OutputPin
	armed         bool
	running       bool
	testing       bool
	traceInterval uint64
	duration      uint64
	window        Window
}

// NewPump creates a disarmed pump.
func NewPump(pin hal.OutputPin, traceInterval, duration uint64) *Pump {
	return &Pump{pin: pin, traceInterval: traceInterval, duration: duration}
}

func (p *Pump) Armed() bool                { return p.armed }
func (p *Pump) SetArmed(armed bool)        { p.armed = armed }
func (p *Pump) Running() bool              { return p.running }
func (p *Pump) Testing() bool              { return p.testing }
func (p *Pump) TraceInterval() uint64      { return p.traceInterval }
func (p *Pump) SetTraceInterval(ms uint64) { p.traceInterval = ms }
func (p *Pump) Duration() uint64           { return p.duration }
func (p *Pump) SetDuration(ms uint64)      { p.duration = ms }
func (p *Pump) Window() Window             { return p.window }

// Schedule opens the infusion window after a cue ending at cueOff.
func (p *Pump) Schedule(cueOff uint64) Window {
	p.window = NewWindow(cueOff+p.traceInterval, p.duration)
	return p.window
}

// SetTesting latches the pump on for priming regardless of window or arm
// state, until cleared.
func (p *Pump) SetTesting(on bool) { p.testing = on }

// Update drives the pump for the current time.
func (p *Pump) Update(now uint64) error {
	p.running = p.armed && p.window.Contains(now)
	return p.pin.Set(p.running || p.testing)
}

// Stop clears the test latch and drives the pump low.
func (p *Pump) Stop() error {
	p.testing = false
	p.running = false
	return p.pin.Set(false)
}
