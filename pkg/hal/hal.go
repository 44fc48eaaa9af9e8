// Package hal abstracts the rig's GPIO lines. Session code only sees the
// interfaces here; the periph.io backend drives real pins and the simulated
// backend serves tests and the mock rig.
package hal

import "time"

// InputPin reads a digital line. The value is the logical level after any
// configured inversion: true means pressed/touched/asserted.
type InputPin interface {
	Read() bool
}

// OutputPin drives a digital line.
type OutputPin interface {
	Set(high bool) error
}

// TonePin is an output that can also emit a square wave at a given
// frequency (the cue speaker).
type TonePin interface {
	OutputPin
	Tone(hz uint32) error
	NoTone() error
}

// EdgePin waits for a rising edge. It is the interrupt source for frame
// timestamp capture.
type EdgePin interface {
	// WaitForEdge blocks until an edge arrives or the timeout elapses and
	// reports whether an edge arrived.
	WaitForEdge(timeout time.Duration) bool
}

// Rig is the fixed set of pins the controller drives.
type Rig struct {
	RHLever        InputPin
	LHLever        InputPin
	Lick           InputPin
	Cue            TonePin
	Pump           OutputPin
	Laser          OutputPin
	ImagingTrigger OutputPin
	FrameInput     EdgePin
}
