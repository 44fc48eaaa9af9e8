package session

import "reacher-mcu/pkg/device"

// Context is the session-wide mutable state shared by the tick stages: the
// reward schedule, the timeout window and the session start offset.
type Context struct {
	State State

	// RequiredPresses is the current ratio; PressCount counts the ACTIVE
	// presses made toward it.
	RequiredPresses uint64
	ProgressiveStep uint64
	PressCount      uint64
	Rewards         uint64

	TimeoutLength uint64
	Timeout       device.Window

	startOffset uint64
	offsetSet   bool
}

// NewContext creates a context with the given schedule.
func NewContext(ratio, step, timeout uint64) *Context {
	if ratio == 0 {
		ratio = 1
	}
	return &Context{
		RequiredPresses: ratio,
		ProgressiveStep: step,
		TimeoutLength:   timeout,
	}
}

// Linked reports whether a host is attached.
func (c *Context) Linked() bool { return c.State != Idle }

// Running reports whether a session is in progress.
func (c *Context) Running() bool { return c.State == Running }

// SetStartOffset latches the session start offset.
func (c *Context) SetStartOffset(t uint64) {
	c.startOffset = t
	c.offsetSet = true
}

// StartOffset returns the session start offset and whether it is set.
func (c *Context) StartOffset() (uint64, bool) {
	return c.startOffset, c.offsetSet
}

// Adjust converts a raw clock value to a reported timestamp. Before the
// first session start raw values pass through unchanged. Instants before
// the offset (a press held across START-PROGRAM) report as 0.
func (c *Context) Adjust(t uint64) uint64 {
	if !c.offsetSet {
		return t
	}
	if t < c.startOffset {
		return 0
	}
	return t - c.startOffset
}

// Satisfies reports whether one more ACTIVE press meets the ratio. A ratio
// lowered below the current count is met by the next press.
func (c *Context) Satisfies() bool {
	return c.PressCount+1 >= c.RequiredPresses
}

// Reward resets the press count and advances the ratio.
func (c *Context) Reward() {
	c.PressCount = 0
	c.RequiredPresses += c.ProgressiveStep
	c.Rewards++
}
