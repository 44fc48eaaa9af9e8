package session

import (
	"strings"
	"testing"

	"reacher-mcu/pkg/clock"
	"reacher-mcu/pkg/config"
	"reacher-mcu/pkg/device"
	"reacher-mcu/pkg/hal"
	"reacher-mcu/pkg/log"
)

type queue struct {
	lines []string
}

func (q *queue) Next() (string, bool) {
	if len(q.lines) == 0 {
		return "", false
	}
	line := q.lines[0]
	q.lines = q.lines[1:]
	return line, true
}

type sink struct {
	lines []string
}

func (s *sink) WriteLine(line string) error {
	s.lines = append(s.lines, line)
	return nil
}

// recorder is an Observer that counts events.
type recorder struct {
	presses  map[device.Label]int
	rewards  int
	infusion int
	stims    int
	frames   int
	lost     uint64
	commands []string
	rejected []string
	states   []State
}

func newRecorder() *recorder {
	return &recorder{presses: make(map[device.Label]int)}
}

func (r *recorder) Press(_ string, l device.Label) { r.presses[l]++ }
func (r *recorder) Lick()                          {}
func (r *recorder) Reward(uint64)                  { r.rewards++ }
func (r *recorder) Infusion()                      { r.infusion++ }
func (r *recorder) Stim()                          { r.stims++ }
func (r *recorder) Frame(lost uint64)              { r.frames++; r.lost += lost }
func (r *recorder) Command(k string)               { r.commands = append(r.commands, k) }
func (r *recorder) CommandRejected(code string)    { r.rejected = append(r.rejected, code) }
func (r *recorder) OutputError(string)             {}
func (r *recorder) StateChanged(s State)           { r.states = append(r.states, s) }

type harness struct {
	t   *testing.T
	clk *clock.Fake
	rig *hal.SimRig
	in  *queue
	out *sink
	obs *recorder
	c   *Controller
	cfg config.SessionConfig
}

func testSessionConfig() config.SessionConfig {
	cfg := config.Default().Session
	cfg.CommandSettleMs = 0
	cfg.BootDelayMs = 0
	return cfg
}

func newHarness(t *testing.T, mutate func(*config.SessionConfig)) *harness {
	t.Helper()
	cfg := testSessionConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	h := &harness{
		t:   t,
		clk: clock.NewFake(0),
		rig: hal.NewSimRig(),
		in:  &queue{},
		out: &sink{},
		obs: newRecorder(),
		cfg: cfg,
	}
	h.c = New(cfg, Options{
		Rig:      h.rig.Rig(),
		Clock:    h.clk,
		Commands: h.in,
		Output:   h.out,
		Logger:   log.Nop(),
		Observer: h.obs,
		Baud:     115200,
	})
	return h
}

// send applies each command on its own tick.
func (h *harness) send(lines ...string) {
	for _, line := range lines {
		h.in.lines = append(h.in.lines, line)
		h.c.Tick()
	}
}

func (h *harness) tick() { h.c.Tick() }

// advance ticks once per millisecond for ms milliseconds.
func (h *harness) advance(ms uint64) {
	for i := uint64(0); i < ms; i++ {
		h.clk.Advance(1)
		h.c.Tick()
	}
}

// press holds pin down until the press commits and returns the commit time.
func (h *harness) press(pin *hal.SimInput) uint64 {
	pin.Drive(true)
	h.tick()
	h.advance(h.cfg.LeverDebounceMs)
	return h.clk.Millis()
}

// release lets go of pin and waits for the release to commit.
func (h *harness) release(pin *hal.SimInput) uint64 {
	pin.Drive(false)
	h.tick()
	h.advance(h.cfg.LeverDebounceMs)
	return h.clk.Millis()
}

func (h *harness) lines(prefix string) []string {
	var out []string
	for _, l := range h.out.lines {
		if strings.HasPrefix(l, prefix) {
			out = append(out, l)
		}
	}
	return out
}

func (h *harness) reset() { h.out.lines = nil }
