package device

import (
	"reacher-mcu/pkg/hal"
)

// Cue is the tone generator paired with the active lever.
type Cue struct {
	pin       hal.TonePin
	armed     bool
	running   bool
	frequency uint32
	duration  uint64
	window    Window
}

// NewCue creates a disarmed cue.
func NewCue(pin hal.TonePin, frequency uint32, duration uint64) *Cue {
	return &Cue{pin: pin, frequency: frequency, duration: duration}
}

func (c *Cue) Armed() bool            { return c.armed }
func (c *Cue) SetArmed(armed bool)    { c.armed = armed }
func (c *Cue) Running() bool          { return c.running }
func (c *Cue) Frequency() uint32      { return c.frequency }
func (c *Cue) SetFrequency(hz uint32) { c.frequency = hz }
func (c *Cue) Duration() uint64       { return c.duration }
func (c *Cue) SetDuration(ms uint64)  { c.duration = ms }
func (c *Cue) Window() Window         { return c.window }

// Schedule opens the tone window at now and returns it.
func (c *Cue) Schedule(now uint64) Window {
	c.window = NewWindow(now, c.duration)
	return c.window
}

// Update drives the speaker for the current time: the tone plays while the
// cue is armed and now lies in its window. Pin writes happen only on
// changes of the running state.
func (c *Cue) Update(now uint64) error {
	want := c.armed && c.window.Contains(now)
	if want == c.running {
		return nil
	}
	c.running = want
	if want {
		return c.pin.Tone(c.frequency)
	}
	return c.pin.NoTone()
}

// Play sounds a fixed tone immediately, bypassing the window. Used by the
// link acknowledgement jingles.
func (c *Cue) Play(hz uint32) error {
	return c.pin.Tone(hz)
}

// Silence stops any tone and clears the running flag.
func (c *Cue) Silence() error {
	c.running = false
	return c.pin.NoTone()
}
