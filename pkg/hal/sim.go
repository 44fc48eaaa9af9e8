package hal

import (
	"sync"
	"sync/atomic"
	"time"
)

// SimInput is an input whose level is set programmatically.
type SimInput struct {
	level atomic.Bool
}

// NewSimInput creates a released input.
func NewSimInput() *SimInput {
	return &SimInput{}
}

// Read returns the current level.
func (s *SimInput) Read() bool {
	return s.level.Load()
}

// Drive sets the level seen by the next Read.
func (s *SimInput) Drive(high bool) {
	s.level.Store(high)
}

// SimOutput records the level written by the controller.
type SimOutput struct {
	mu     sync.Mutex
	high   bool
	writes int
	edges  []bool
	err    error
}

// NewSimOutput creates a low output.
func NewSimOutput() *SimOutput {
	return &SimOutput{}
}

// Set records the level. Only level changes are kept in the edge history.
func (s *SimOutput) Set(high bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.writes++
	if high != s.high {
		s.edges = append(s.edges, high)
	}
	s.high = high
	return nil
}

// High returns the last written level.
func (s *SimOutput) High() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.high
}

// Edges returns the sequence of level changes.
func (s *SimOutput) Edges() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]bool, len(s.edges))
	copy(out, s.edges)
	return out
}

// FailWith makes every following write return err. Pass nil to recover.
func (s *SimOutput) FailWith(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// SimTone is a simulated cue speaker.
type SimTone struct {
	SimOutput
	freq  atomic.Uint32
	tones []uint32
	tmu   sync.Mutex
}

// NewSimTone creates a silent speaker.
func NewSimTone() *SimTone {
	return &SimTone{}
}

// Tone starts a tone at hz.
func (s *SimTone) Tone(hz uint32) error {
	if err := s.SimOutput.Set(true); err != nil {
		return err
	}
	s.freq.Store(hz)
	s.tmu.Lock()
	s.tones = append(s.tones, hz)
	s.tmu.Unlock()
	return nil
}

// NoTone silences the speaker.
func (s *SimTone) NoTone() error {
	s.freq.Store(0)
	return s.SimOutput.Set(false)
}

// Frequency returns the current tone frequency, 0 when silent.
func (s *SimTone) Frequency() uint32 {
	return s.freq.Load()
}

// Tones returns every frequency started so far.
func (s *SimTone) Tones() []uint32 {
	s.tmu.Lock()
	defer s.tmu.Unlock()
	out := make([]uint32, len(s.tones))
	copy(out, s.tones)
	return out
}

// SimEdge delivers programmatic edges to a waiting capture goroutine.
type SimEdge struct {
	ch chan struct{}
}

// NewSimEdge creates an edge source that buffers up to 64 pulses.
func NewSimEdge() *SimEdge {
	return &SimEdge{ch: make(chan struct{}, 64)}
}

// Pulse queues one rising edge. It never blocks; pulses beyond the buffer
// are dropped like edges arriving while the line is already latched.
func (s *SimEdge) Pulse() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// WaitForEdge blocks until a pulse or the timeout.
func (s *SimEdge) WaitForEdge(timeout time.Duration) bool {
	select {
	case <-s.ch:
		return true
	case <-time.After(timeout):
		return false
	}
}

// SimRig bundles simulated pins with typed access for tests.
type SimRig struct {
	RHLever        *SimInput
	LHLever        *SimInput
	Lick           *SimInput
	Cue            *SimTone
	Pump           *SimOutput
	Laser          *SimOutput
	ImagingTrigger *SimOutput
	FrameInput     *SimEdge
}

// NewSimRig creates a rig with every pin released and low.
func NewSimRig() *SimRig {
	return &SimRig{
		RHLever:        NewSimInput(),
		LHLever:        NewSimInput(),
		Lick:           NewSimInput(),
		Cue:            NewSimTone(),
		Pump:           NewSimOutput(),
		Laser:          NewSimOutput(),
		ImagingTrigger: NewSimOutput(),
		FrameInput:     NewSimEdge(),
	}
}

// Rig returns the interface view consumed by the controller.
func (s *SimRig) Rig() *Rig {
	return &Rig{
		RHLever:        s.RHLever,
		LHLever:        s.LHLever,
		Lick:           s.Lick,
		Cue:            s.Cue,
		Pump:           s.Pump,
		Laser:          s.Laser,
		ImagingTrigger: s.ImagingTrigger,
		FrameInput:     s.FrameInput,
	}
}
