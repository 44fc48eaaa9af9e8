// Package device models the rig's physical components: debounced inputs
// (levers, lick circuit) and timed outputs (cue, pump, laser).
package device

// Window is a closed millisecond interval [On, Off]. The zero Window has
// never been opened and contains no instant.
type Window struct {
	On  uint64
	Off uint64
	set bool
}

// NewWindow opens a window starting at on and lasting duration ms.
func NewWindow(on, duration uint64) Window {
	return Window{On: on, Off: on + duration, set: true}
}

// Span returns the window [on, off].
func Span(on, off uint64) Window {
	return Window{On: on, Off: off, set: true}
}

// IsSet reports whether the window was ever opened.
func (w Window) IsSet() bool {
	return w.set
}

// Contains reports whether t lies inside the window, bounds included.
func (w Window) Contains(t uint64) bool {
	return w.set && t >= w.On && t <= w.Off
}
