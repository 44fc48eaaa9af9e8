// Unit tests for the session collectors
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"reacher-mcu/pkg/device"
	"reacher-mcu/pkg/session"
)

func TestPressCounters(t *testing.T) {
	m := New()
	m.Press("RH_LEVER", device.LabelActive)
	m.Press("RH_LEVER", device.LabelActive)
	m.Press("LH_LEVER", device.LabelInactive)

	if got := testutil.ToFloat64(m.Presses.WithLabelValues("RH_LEVER", "ACTIVE")); got != 2 {
		t.Errorf("RH ACTIVE = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Presses.WithLabelValues("LH_LEVER", "INACTIVE")); got != 1 {
		t.Errorf("LH INACTIVE = %v, want 1", got)
	}
}

func TestRewardSetsRatio(t *testing.T) {
	m := New()
	m.Reward(3)
	m.Reward(5)

	if got := testutil.ToFloat64(m.Rewards); got != 2 {
		t.Errorf("rewards = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.RequiredPresses); got != 5 {
		t.Errorf("required presses = %v, want 5", got)
	}
}

func TestFrameLoss(t *testing.T) {
	m := New()
	m.Frame(0)
	m.Frame(2)

	if got := testutil.ToFloat64(m.Frames); got != 2 {
		t.Errorf("frames = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.FramesLost); got != 2 {
		t.Errorf("lost = %v, want 2", got)
	}
}

func TestStateGauge(t *testing.T) {
	m := New()
	if got := testutil.ToFloat64(m.State.WithLabelValues("idle")); got != 1 {
		t.Errorf("idle = %v, want 1 initially", got)
	}

	m.StateChanged(session.Running)
	if got := testutil.ToFloat64(m.State.WithLabelValues("running")); got != 1 {
		t.Errorf("running = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.State.WithLabelValues("idle")); got != 0 {
		t.Errorf("idle = %v, want 0", got)
	}
}

func TestCommandCounters(t *testing.T) {
	m := New()
	m.Command("LINK")
	m.CommandRejected("COMMAND_UNKNOWN")
	m.OutputError("pump")

	if got := testutil.ToFloat64(m.Commands.WithLabelValues("LINK")); got != 1 {
		t.Errorf("LINK = %v", got)
	}
	if got := testutil.ToFloat64(m.CommandsRejected.WithLabelValues("COMMAND_UNKNOWN")); got != 1 {
		t.Errorf("rejected = %v", got)
	}
	if got := testutil.ToFloat64(m.OutputErrors.WithLabelValues("pump")); got != 1 {
		t.Errorf("output errors = %v", got)
	}
}

func TestIndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.Lick()
	if got := testutil.ToFloat64(b.Licks); got != 0 {
		t.Errorf("registries share state: %v", got)
	}
}
