package session

import (
	"context"
	"sync/atomic"
	"time"

	"reacher-mcu/pkg/clock"
	"reacher-mcu/pkg/hal"
)

// FrameMailbox is the single-slot hand-off between the frame capture
// goroutine and the tick. The capture side stores the adjusted timestamp;
// the tick drains it. A second edge arriving before a drain overwrites the
// first (last write wins) and is counted.
type FrameMailbox struct {
	// slot holds ts+1, or 0 when empty.
	slot atomic.Uint64
	// offset holds the session start offset +1, or 0 before any start.
	offset     atomic.Uint64
	overwrites atomic.Uint64
	captured   atomic.Uint64
}

// SetOffset publishes the session start offset to the capture side.
func (m *FrameMailbox) SetOffset(t uint64) {
	m.offset.Store(t + 1)
}

// Capture records a frame edge seen at raw clock value now.
func (m *FrameMailbox) Capture(now uint64) {
	ts := now
	if off := m.offset.Load(); off != 0 {
		if start := off - 1; now >= start {
			ts = now - start
		} else {
			ts = 0
		}
	}
	if m.slot.Swap(ts+1) != 0 {
		m.overwrites.Add(1)
	}
	m.captured.Add(1)
}

// Drain takes the pending timestamp, if any.
func (m *FrameMailbox) Drain() (uint64, bool) {
	v := m.slot.Swap(0)
	if v == 0 {
		return 0, false
	}
	return v - 1, true
}

// Overwrites returns how many captured frames were lost to a later edge.
func (m *FrameMailbox) Overwrites() uint64 { return m.overwrites.Load() }

// Captured returns the number of edges seen.
func (m *FrameMailbox) Captured() uint64 { return m.captured.Load() }

// Watch waits for rising edges on pin and captures each into the mailbox
// until ctx is done.
func (m *FrameMailbox) Watch(ctx context.Context, pin hal.EdgePin, clk clock.Clock) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if pin.WaitForEdge(50 * time.Millisecond) {
			m.Capture(clk.Millis())
		}
	}
}
