package reactor

import (
	"sync/atomic"
	"testing"
	"time"

	"reacher-mcu/pkg/clock"
)

func TestNew(t *testing.T) {
	r := New()
	if r == nil {
		t.Fatal("New() returned nil")
	}
	defer r.End()
}

func TestMillis(t *testing.T) {
	r := New()
	defer r.End()

	t1 := r.Millis()
	time.Sleep(20 * time.Millisecond)
	t2 := r.Millis()

	if t2 <= t1 {
		t.Errorf("Millis not increasing: %d <= %d", t2, t1)
	}
	if elapsed := t2 - t1; elapsed < 15 || elapsed > 200 {
		t.Errorf("Unexpected elapsed time: %d ms (expected ~20)", elapsed)
	}
}

func TestTimer(t *testing.T) {
	r := New()

	var called atomic.Int32
	timer := r.RegisterTimer(func(now uint64) uint64 {
		called.Add(1)
		return NEVER
	}, NOW)
	if timer == nil {
		t.Fatal("RegisterTimer returned nil")
	}

	r.Run()
	time.Sleep(50 * time.Millisecond)
	r.End()
	r.Wait()

	if called.Load() != 1 {
		t.Errorf("Timer callback called %d times, expected 1", called.Load())
	}
	if timer.Waketime() != NEVER {
		t.Errorf("Waketime = %d, want NEVER", timer.Waketime())
	}
}

func TestTimerRepeat(t *testing.T) {
	r := New()

	var called atomic.Int32
	r.RegisterTimer(func(now uint64) uint64 {
		if called.Add(1) < 3 {
			return now + 10
		}
		return NEVER
	}, NOW)

	r.Run()
	time.Sleep(150 * time.Millisecond)
	r.End()
	r.Wait()

	if called.Load() != 3 {
		t.Errorf("Timer callback called %d times, expected 3", called.Load())
	}
}

func TestEvery(t *testing.T) {
	r := New()

	var ticks atomic.Int32
	r.Every(5, func(uint64) { ticks.Add(1) })

	r.Run()
	time.Sleep(100 * time.Millisecond)
	r.End()
	r.Wait()

	if n := ticks.Load(); n < 5 {
		t.Errorf("Every fired %d times in 100ms at 5ms, expected many more", n)
	}
}

func TestUnregisterTimer(t *testing.T) {
	r := New()

	var called atomic.Int32
	timer := r.RegisterTimer(func(now uint64) uint64 {
		called.Add(1)
		return NEVER
	}, r.Millis()+100)
	r.UnregisterTimer(timer)

	r.Run()
	time.Sleep(150 * time.Millisecond)
	r.End()
	r.Wait()

	if called.Load() != 0 {
		t.Errorf("Timer callback called %d times after unregister, expected 0", called.Load())
	}
}

func TestUnregisterFromOwnCallback(t *testing.T) {
	r := New()

	var calls atomic.Int32
	var timer *Timer
	timer = r.Every(1, func(now uint64) {
		if calls.Add(1) == 3 {
			r.UnregisterTimer(timer)
		}
	})

	r.Run()
	time.Sleep(50 * time.Millisecond)
	r.End()
	r.Wait()

	if n := calls.Load(); n != 3 {
		t.Errorf("callback ran %d times, want 3", n)
	}
}

func TestAsyncCallback(t *testing.T) {
	r := New()
	r.Run()
	defer func() {
		r.End()
		r.Wait()
	}()

	comp := r.RegisterAsyncCallback(func(now uint64) interface{} {
		return "done"
	})
	if got := comp.Wait(time.Second, "timeout"); got != "done" {
		t.Errorf("async result = %v, want done", got)
	}
}

func TestCompletion(t *testing.T) {
	r := New()
	defer r.End()

	comp := r.Completion()
	if result := comp.Wait(10*time.Millisecond, "pending"); result != "pending" {
		t.Errorf("Wait before Complete = %v, want pending", result)
	}

	comp.Complete("result")
	comp.Complete("ignored")
	if result := comp.Wait(time.Second, nil); result != "result" {
		t.Errorf("Expected 'result', got %v", result)
	}
}

func TestCompletionWaitTimeout(t *testing.T) {
	r := New()
	defer r.End()

	comp := r.Completion()

	start := time.Now()
	result := comp.Wait(50*time.Millisecond, "timeout")
	elapsed := time.Since(start)

	if result != "timeout" {
		t.Errorf("Expected 'timeout', got %v", result)
	}
	if elapsed < 40*time.Millisecond || elapsed > 500*time.Millisecond {
		t.Errorf("Unexpected wait time: %v", elapsed)
	}
}

func TestPause(t *testing.T) {
	r := New()
	defer r.End()

	start := time.Now()
	r.Pause(30)
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Errorf("Pause returned too early: %v", elapsed)
	}
}

func TestPauseAbortsOnEnd(t *testing.T) {
	r := New()

	go func() {
		time.Sleep(20 * time.Millisecond)
		r.End()
	}()

	start := time.Now()
	r.Pause(10000)
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Pause not interrupted by End: %v", elapsed)
	}
}

func TestFakeClockCheckTimers(t *testing.T) {
	clk := clock.NewFake(1000)
	r := NewWithClock(clk)
	defer r.End()

	var fired []uint64
	r.RegisterTimer(func(now uint64) uint64 {
		fired = append(fired, now)
		return now + 10
	}, 1005)

	if d := r.checkTimers(clk.Millis()); d != 5 {
		t.Errorf("delay = %d, want 5", d)
	}
	clk.Set(1005)
	if d := r.checkTimers(clk.Millis()); d != 10 {
		t.Errorf("delay after fire = %d, want 10", d)
	}
	if len(fired) != 1 || fired[0] != 1005 {
		t.Errorf("fired = %v, want [1005]", fired)
	}
}

func TestConstants(t *testing.T) {
	if NOW != 0 {
		t.Errorf("NOW should be 0, got %d", NOW)
	}
	if NEVER < 1<<62 {
		t.Errorf("NEVER should be very large, got %d", NEVER)
	}
}
