package device

import (
	"reacher-mcu/pkg/hal"
)

// Laser is a free-running square-wave stimulator. While gated on it flips
// phase every pulse duration; the gate is armed AND session running.
type Laser struct {
	pin      hal.OutputPin
	armed    bool
	running  bool
	lastFlip uint64
	pulse    uint64
}

// NewLaser creates a disarmed laser.
func NewLaser(pin hal.OutputPin, pulse uint64) *Laser {
	return &Laser{pin: pin, pulse: pulse}
}

func (l *Laser) Armed() bool         { return l.armed }
func (l *Laser) SetArmed(armed bool) { l.armed = armed }
func (l *Laser) Running() bool       { return l.running }
func (l *Laser) Pulse() uint64       { return l.pulse }
func (l *Laser) SetPulse(ms uint64)  { l.pulse = ms }

// Update advances the oscillator. When the phase flips low to high it
// returns the predicted stimulation window [flip, flip+pulse] and true.
// With the gate off the laser is forced dark on this call.
func (l *Laser) Update(now uint64, sessionRunning bool) (Window, bool, error) {
	if !l.armed || !sessionRunning {
		l.running = false
		return Window{}, false, l.pin.Set(false)
	}

	var stim Window
	started := false
	if now-l.lastFlip >= l.pulse {
		l.running = !l.running
		l.lastFlip = now
		if l.running {
			stim = NewWindow(now, l.pulse)
			started = true
		}
	}
	return stim, started, l.pin.Set(l.running)
}
