package hal

import (
	"time"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/host"

	"reacher-mcu/pkg/config"
	"reacher-mcu/pkg/errors"
)

// InitPeriph loads the periph.io host drivers. It must run before any
// Open* call.
func InitPeriph() error {
	if _, err := host.Init(); err != nil {
		return errors.HardwareInitError(err)
	}
	return nil
}

func lookup(p config.Pin) (gpio.PinIO, error) {
	pin := gpioreg.ByName(p.Name)
	if pin == nil {
		return nil, errors.PinError(p.Name, "no such GPIO", nil)
	}
	return pin, nil
}

func pullOf(p config.Pin) gpio.Pull {
	switch p.Pullup {
	case 1:
		return gpio.PullUp
	case -1:
		return gpio.PullDown
	default:
		return gpio.Float
	}
}

// PeriphInput is a periph.io GPIO configured as input.
type PeriphInput struct {
	pin    gpio.PinIO
	invert bool
}

// OpenInput configures p as a polled input.
func OpenInput(p config.Pin) (*PeriphInput, error) {
	return openInput(p, gpio.NoEdge)
}

// OpenEdgeInput configures p as an input with rising-edge detection.
func OpenEdgeInput(p config.Pin) (*PeriphInput, error) {
	edge := gpio.RisingEdge
	if p.Invert {
		edge = gpio.FallingEdge
	}
	return openInput(p, edge)
}

func openInput(p config.Pin, edge gpio.Edge) (*PeriphInput, error) {
	pin, err := lookup(p)
	if err != nil {
		return nil, err
	}
	if err := pin.In(pullOf(p), edge); err != nil {
		return nil, errors.PinError(p.Name, "configure input", err)
	}
	return &PeriphInput{pin: pin, invert: p.Invert}, nil
}

// Read returns the logical level.
func (in *PeriphInput) Read() bool {
	return (in.pin.Read() == gpio.High) != in.invert
}

// WaitForEdge blocks until the configured edge or the timeout.
func (in *PeriphInput) WaitForEdge(timeout time.Duration) bool {
	return in.pin.WaitForEdge(timeout)
}

// PeriphOutput is a periph.io GPIO configured as output.
type PeriphOutput struct {
	pin    gpio.PinIO
	invert bool
}

// OpenOutput configures p as an output driven to its inactive level.
func OpenOutput(p config.Pin) (*PeriphOutput, error) {
	pin, err := lookup(p)
	if err != nil {
		return nil, err
	}
	out := &PeriphOutput{pin: pin, invert: p.Invert}
	if err := out.Set(false); err != nil {
		return nil, err
	}
	return out, nil
}

// Set drives the logical level.
func (o *PeriphOutput) Set(high bool) error {
	if err := o.pin.Out(gpio.Level(high != o.invert)); err != nil {
		return errors.PinError(o.pin.Name(), "write", err)
	}
	return nil
}

// Tone emits a 50% duty square wave at hz.
func (o *PeriphOutput) Tone(hz uint32) error {
	if err := o.pin.PWM(gpio.DutyHalf, physic.Frequency(hz)*physic.Hertz); err != nil {
		return errors.PinError(o.pin.Name(), "tone", err)
	}
	return nil
}

// NoTone stops the square wave and leaves the pin inactive.
func (o *PeriphOutput) NoTone() error {
	return o.Set(false)
}

// OpenRig opens every pin of the rig.
func OpenRig(pins config.ParsedPins) (*Rig, error) {
	var rig Rig
	var err error

	inputs := []struct {
		pin config.Pin
		dst *InputPin
	}{
		{pins.RHLever, &rig.RHLever},
		{pins.LHLever, &rig.LHLever},
		{pins.Lick, &rig.Lick},
	}
	for _, in := range inputs {
		if *in.dst, err = OpenInput(in.pin); err != nil {
			return nil, err
		}
	}

	outputs := []struct {
		pin config.Pin
		dst *OutputPin
	}{
		{pins.Pump, &rig.Pump},
		{pins.Laser, &rig.Laser},
		{pins.ImagingTrigger, &rig.ImagingTrigger},
	}
	for _, out := range outputs {
		if *out.dst, err = OpenOutput(out.pin); err != nil {
			return nil, err
		}
	}

	if rig.Cue, err = OpenOutput(pins.Cue); err != nil {
		return nil, err
	}
	if rig.FrameInput, err = OpenEdgeInput(pins.FrameInput); err != nil {
		return nil, err
	}
	return &rig, nil
}
