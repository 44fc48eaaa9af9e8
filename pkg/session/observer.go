package session

import "reacher-mcu/pkg/device"

// Observer receives session events for instrumentation. Implementations must
// be cheap; they are called from the tick.
type Observer interface {
	Press(lever string, label device.Label)
	Lick()
	Reward(requiredPresses uint64)
	Infusion()
	Stim()
	Frame(lost uint64)
	Command(keyword string)
	CommandRejected(code string)
	OutputError(component string)
	StateChanged(s State)
}

type nopObserver struct{}

func (nopObserver) Press(string, device.Label) {}
func (nopObserver) Lick()                      {}
func (nopObserver) Reward(uint64)              {}
func (nopObserver) Infusion()                  {}
func (nopObserver) Stim()                      {}
func (nopObserver) Frame(uint64)               {}
func (nopObserver) Command(string)             {}
func (nopObserver) CommandRejected(string)     {}
func (nopObserver) OutputError(string)         {}
func (nopObserver) StateChanged(State)         {}
