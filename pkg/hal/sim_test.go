package hal

import (
	"errors"
	"testing"
	"time"
)

func TestSimOutputEdges(t *testing.T) {
	out := NewSimOutput()
	out.Set(false)
	out.Set(true)
	out.Set(true)
	out.Set(false)

	if out.High() {
		t.Error("High() should be false")
	}
	edges := out.Edges()
	if len(edges) != 2 || !edges[0] || edges[1] {
		t.Errorf("Edges() = %v, want [true false]", edges)
	}
}

func TestSimOutputFailure(t *testing.T) {
	out := NewSimOutput()
	boom := errors.New("boom")
	out.FailWith(boom)
	if err := out.Set(true); !errors.Is(err, boom) {
		t.Errorf("Set() error = %v, want boom", err)
	}
	out.FailWith(nil)
	if err := out.Set(true); err != nil {
		t.Errorf("Set() error = %v after recovery", err)
	}
}

func TestSimTone(t *testing.T) {
	tone := NewSimTone()
	tone.Tone(8000)
	if !tone.High() || tone.Frequency() != 8000 {
		t.Errorf("after Tone: high=%v freq=%d", tone.High(), tone.Frequency())
	}
	tone.NoTone()
	if tone.High() || tone.Frequency() != 0 {
		t.Errorf("after NoTone: high=%v freq=%d", tone.High(), tone.Frequency())
	}
	if got := tone.Tones(); len(got) != 1 || got[0] != 8000 {
		t.Errorf("Tones() = %v, want [8000]", got)
	}
}

func TestSimEdge(t *testing.T) {
	edge := NewSimEdge()
	if edge.WaitForEdge(5 * time.Millisecond) {
		t.Error("WaitForEdge should time out with no pulse")
	}
	edge.Pulse()
	if !edge.WaitForEdge(5 * time.Millisecond) {
		t.Error("WaitForEdge should see the pulse")
	}
}

func TestSimRigView(t *testing.T) {
	sim := NewSimRig()
	rig := sim.Rig()

	sim.RHLever.Drive(true)
	if !rig.RHLever.Read() {
		t.Error("rig view should observe the driven lever")
	}
	rig.Pump.Set(true)
	if !sim.Pump.High() {
		t.Error("sim pump should observe the write")
	}
}
