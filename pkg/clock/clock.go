// Package clock provides the millisecond timebase shared by every session
// component, plus a controllable fake for tests.
package clock

import (
	"sync"
	"sync/atomic"
	"time"
)

// Clock is a monotonic millisecond counter.
type Clock interface {
	Millis() uint64
}

// Pauser blocks the caller for a bounded number of milliseconds. It is only
// used at explicit transition points (trigger pulses, jingles, command
// settle), never inside the steady-state tick.
type Pauser interface {
	Pause(ms uint64)
}

// Source combines a Clock and a Pauser.
type Source interface {
	Clock
	Pauser
}

// Monotonic is a Source backed by the process monotonic clock.
type Monotonic struct {
	start time.Time
}

// NewMonotonic creates a Monotonic clock starting at zero.
func NewMonotonic() *Monotonic {
	return &Monotonic{start: time.Now()}
}

// Millis returns milliseconds elapsed since the clock was created.
func (m *Monotonic) Millis() uint64 {
	return uint64(time.Since(m.start).Milliseconds())
}

// Pause sleeps for ms milliseconds.
func (m *Monotonic) Pause(ms uint64) {
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

// Fake is a manually advanced Source. Pause advances the clock instead of
// sleeping, so transition handlers stay deterministic under test.
type Fake struct {
	now atomic.Uint64

	mu     sync.Mutex
	pauses []uint64
}

// NewFake creates a Fake clock reading start.
func NewFake(start uint64) *Fake {
	f := &Fake{}
	f.now.Store(start)
	return f
}

// Millis returns the current fake time.
func (f *Fake) Millis() uint64 {
	return f.now.Load()
}

// Set moves the clock to an absolute time.
func (f *Fake) Set(ms uint64) {
	f.now.Store(ms)
}

// Advance moves the clock forward by ms and returns the new time.
func (f *Fake) Advance(ms uint64) uint64 {
	return f.now.Add(ms)
}

// Pause records the pause and advances the clock by ms.
func (f *Fake) Pause(ms uint64) {
	f.mu.Lock()
	f.pauses = append(f.pauses, ms)
	f.mu.Unlock()
	f.now.Add(ms)
}

// Pauses returns every pause requested so far.
func (f *Fake) Pauses() []uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]uint64, len(f.pauses))
	copy(out, f.pauses)
	return out
}
