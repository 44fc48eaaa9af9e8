package main

import (
	"context"
	"time"

	"reacher-mcu/pkg/hal"
)

// Script drives the simulated inputs. Zero intervals disable a generator.
type Script struct {
	RHPress  time.Duration
	LHPress  time.Duration
	Hold     time.Duration
	Lick     time.Duration
	LickHold time.Duration
	FrameHz  float64
}

// Run starts every enabled generator and returns once all of them have
// stopped, which happens when ctx is done.
func (s Script) Run(ctx context.Context, sim *hal.SimRig) {
	done := make(chan struct{})
	n := 0
	start := func(fn func()) {
		n++
		go func() {
			fn()
			done <- struct{}{}
		}()
	}

	if s.RHPress > 0 {
		start(func() { toggle(ctx, sim.RHLever, s.RHPress, s.Hold) })
	}
	if s.LHPress > 0 {
		start(func() { toggle(ctx, sim.LHLever, s.LHPress, s.Hold) })
	}
	if s.Lick > 0 {
		start(func() { toggle(ctx, sim.Lick, s.Lick, s.LickHold) })
	}
	if s.FrameHz > 0 {
		start(func() { pulse(ctx, sim.FrameInput, s.FrameHz) })
	}

	for ; n > 0; n-- {
		<-done
	}
}

// toggle asserts in every interval and holds it for hold, releasing it when
// ctx ends mid-press.
func toggle(ctx context.Context, in *hal.SimInput, interval, hold time.Duration) {
	if hold >= interval {
		hold = interval / 2
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer in.Drive(false)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		in.Drive(true)
		select {
		case <-ctx.Done():
			return
		case <-time.After(hold):
		}
		in.Drive(false)
	}
}

// pulse emits frame edges at hz.
func pulse(ctx context.Context, edge *hal.SimEdge, hz float64) {
	ticker := time.NewTicker(time.Duration(float64(time.Second) / hz))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			edge.Pulse()
		}
	}
}
