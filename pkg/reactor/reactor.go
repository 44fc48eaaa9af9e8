// Package reactor runs the controller's cooperative timer loop. Every timer
// callback and async callback executes on the single dispatch goroutine, so
// the state they touch needs no locking.
package reactor

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"reacher-mcu/pkg/clock"
)

// Wake times are milliseconds on the reactor clock.
const (
	NOW   uint64 = 0
	NEVER uint64 = math.MaxUint64
)

// maxSleep bounds a single idle wait so End is noticed promptly.
const maxSleep = 100 * time.Millisecond

// TimerCallback is called when a timer fires with the current time and
// returns the next wake time. Return NEVER to park the timer.
type TimerCallback func(now uint64) uint64

// Timer is a registered timer.
type Timer struct {
	id        uint64
	callback  TimerCallback
	waketime  uint64
	isRunning bool
	mu        sync.Mutex
}

// Waketime returns the timer's current wake time.
func (t *Timer) Waketime() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.waketime
}

// Completion is the result of a callback run on the dispatch goroutine.
type Completion struct {
	reactor *Reactor
	result  interface{}
	done    chan struct{}
	once    sync.Once
}

// Complete sets the result and wakes any waiters.
func (c *Completion) Complete(result interface{}) {
	c.once.Do(func() {
		c.result = result
		close(c.done)
	})
}

// Wait blocks until the completion is done or the timeout expires, returning
// timeoutResult in the latter case.
func (c *Completion) Wait(timeout time.Duration, timeoutResult interface{}) interface{} {
	select {
	case <-c.done:
		return c.result
	case <-time.After(timeout):
		return timeoutResult
	case <-c.reactor.ctx.Done():
		return timeoutResult
	}
}

// Reactor manages timers and cross-goroutine callbacks.
type Reactor struct {
	mu          sync.RWMutex
	timers      []*Timer
	nextTimerID uint64
	nextWake    uint64

	asyncQueue chan func()
	wake       chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	running atomic.Bool
	wg      sync.WaitGroup

	clock clock.Clock
}

// New creates a reactor on the process monotonic clock.
func New() *Reactor {
	return NewWithClock(clock.NewMonotonic())
}

// NewWithClock creates a reactor reading time from clk.
func NewWithClock(clk clock.Clock) *Reactor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Reactor{
		timers:     make([]*Timer, 0),
		nextWake:   NEVER,
		asyncQueue: make(chan func(), 1000),
		wake:       make(chan struct{}, 1),
		ctx:        ctx,
		cancel:     cancel,
		clock:      clk,
	}
}

// Millis returns the reactor time in milliseconds.
func (r *Reactor) Millis() uint64 {
	return r.clock.Millis()
}

// Pause blocks for ms milliseconds or until the reactor ends. It satisfies
// clock.Pauser, so transition handlers abort their pauses on shutdown.
func (r *Reactor) Pause(ms uint64) {
	if ms == 0 {
		return
	}
	t := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer t.Stop()
	select {
	case <-t.C:
	case <-r.ctx.Done():
	}
}

// Done is closed when the reactor ends.
func (r *Reactor) Done() <-chan struct{} {
	return r.ctx.Done()
}

// RegisterTimer registers callback to first fire at waketime.
func (r *Reactor) RegisterTimer(callback TimerCallback, waketime uint64) *Timer {
	r.mu.Lock()
	defer r.mu.Unlock()

	timer := &Timer{
		id:       atomic.AddUint64(&r.nextTimerID, 1),
		callback: callback,
		waketime: waketime,
	}

	r.timers = append(r.timers, timer)
	if waketime < r.nextWake {
		r.nextWake = waketime
	}
	r.poke()

	return timer
}

// UnregisterTimer removes a timer.
func (r *Reactor) UnregisterTimer(timer *Timer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	timer.mu.Lock()
	timer.waketime = NEVER
	timer.mu.Unlock()

	for i, t := range r.timers {
		if t.id == timer.id {
			r.timers = append(r.timers[:i], r.timers[i+1:]...)
			break
		}
	}
}

// Completion creates a new Completion.
func (r *Reactor) Completion() *Completion {
	return &Completion{
		reactor: r,
		done:    make(chan struct{}),
	}
}

// RegisterAsyncCallback runs callback on the dispatch goroutine as soon as
// possible. It is safe to call from any goroutine. If the queue is full the
// completion resolves to nil without running the callback.
func (r *Reactor) RegisterAsyncCallback(callback func(now uint64) interface{}) *Completion {
	completion := r.Completion()

	select {
	case r.asyncQueue <- func() {
		completion.Complete(callback(r.Millis()))
	}:
		r.poke()
	default:
		completion.Complete(nil)
	}

	return completion
}

func (r *Reactor) poke() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Run starts the dispatch loop.
func (r *Reactor) Run() {
	if r.running.Swap(true) {
		return
	}

	r.wg.Add(1)
	go r.dispatchLoop()
}

// End signals the reactor to stop.
func (r *Reactor) End() {
	r.running.Store(false)
	r.cancel()
}

// Wait waits for the dispatch loop to exit.
func (r *Reactor) Wait() {
	r.wg.Wait()
}

func (r *Reactor) dispatchLoop() {
	defer r.wg.Done()

	for r.running.Load() {
		r.processAsyncCallbacks()

		delay := r.checkTimers(r.Millis())
		if delay == 0 {
			continue
		}

		d := maxSleep
		if delay < uint64(maxSleep/time.Millisecond) {
			d = time.Duration(delay) * time.Millisecond
		}
		t := time.NewTimer(d)
		select {
		case <-t.C:
		case <-r.wake:
		case <-r.ctx.Done():
			t.Stop()
			return
		}
		t.Stop()
	}
}

func (r *Reactor) processAsyncCallbacks() {
	for {
		select {
		case fn := <-r.asyncQueue:
			fn()
		default:
			return
		}
	}
}

// checkTimers fires due timers and returns the milliseconds until the next
// one is due.
func (r *Reactor) checkTimers(now uint64) uint64 {
	r.mu.Lock()
	if now < r.nextWake {
		delay := r.nextWake - now
		r.mu.Unlock()
		return delay
	}

	timers := make([]*Timer, len(r.timers))
	copy(timers, r.timers)
	r.nextWake = NEVER
	r.mu.Unlock()

	for _, timer := range timers {
		timer.mu.Lock()
		if now >= timer.waketime {
			timer.waketime = NEVER
			timer.isRunning = true
			timer.mu.Unlock()

			next := timer.callback(now)

			timer.mu.Lock()
			timer.isRunning = false
			if next < timer.waketime {
				timer.waketime = next
			}
		}
		waketime := timer.waketime
		timer.mu.Unlock()

		r.mu.Lock()
		if waketime < r.nextWake {
			r.nextWake = waketime
		}
		r.mu.Unlock()
	}

	r.mu.RLock()
	next := r.nextWake
	r.mu.RUnlock()

	if next <= now {
		return 0
	}
	return next - now
}

// Every registers fn to run every interval ms, starting now. It returns the
// timer so the caller can unregister it.
func (r *Reactor) Every(interval uint64, fn func(now uint64)) *Timer {
	if interval == 0 {
		interval = 1
	}
	return r.RegisterTimer(func(now uint64) uint64 {
		fn(now)
		return now + interval
	}, NOW)
}
