package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"reacher-mcu/pkg/hal"
)

func TestCheckOutputs(t *testing.T) {
	sim := hal.NewSimRig()
	var out bytes.Buffer

	if err := checkOutputs(&out, sim.Rig(), 8000, time.Millisecond); err != nil {
		t.Fatalf("checkOutputs: %v", err)
	}

	for name, o := range map[string]*hal.SimOutput{
		"pump": sim.Pump, "laser": sim.Laser, "trigger": sim.ImagingTrigger,
	} {
		edges := o.Edges()
		if len(edges) != 2 || !edges[0] || edges[1] {
			t.Errorf("%s edges = %v, want [true false]", name, edges)
		}
	}
	if tones := sim.Cue.Tones(); len(tones) != 1 || tones[0] != 8000 {
		t.Errorf("cue tones = %v, want [8000]", tones)
	}
	if sim.Cue.Frequency() != 0 {
		t.Error("cue left playing")
	}
}

func TestCheckOutputsFailure(t *testing.T) {
	sim := hal.NewSimRig()
	sim.Laser.FailWith(errors.New("busy"))

	if err := checkOutputs(&bytes.Buffer{}, sim.Rig(), 8000, time.Millisecond); err == nil {
		t.Error("expected laser failure")
	}
}

func TestCheckInputs(t *testing.T) {
	sim := hal.NewSimRig()
	go func() {
		time.Sleep(20 * time.Millisecond)
		sim.RHLever.Drive(true)
	}()

	var out bytes.Buffer
	if err := checkInputs(context.Background(), &out, sim.Rig(), 200*time.Millisecond); err != nil {
		t.Fatalf("checkInputs: %v", err)
	}
	if !bytes.Contains(out.Bytes(), []byte("rh_lever -> true")) {
		t.Errorf("output = %q", out.String())
	}
}

func TestCheckInputsNoActivity(t *testing.T) {
	sim := hal.NewSimRig()
	if err := checkInputs(context.Background(), &bytes.Buffer{}, sim.Rig(), 20*time.Millisecond); err == nil {
		t.Error("expected failure with idle inputs")
	}
}

func TestCheckFrames(t *testing.T) {
	sim := hal.NewSimRig()
	for i := 0; i < 3; i++ {
		sim.FrameInput.Pulse()
	}

	var out bytes.Buffer
	if err := checkFrames(context.Background(), &out, sim.FrameInput, 100*time.Millisecond); err != nil {
		t.Fatalf("checkFrames: %v", err)
	}
	if !bytes.Contains(out.Bytes(), []byte("3 frames")) {
		t.Errorf("output = %q", out.String())
	}
}
