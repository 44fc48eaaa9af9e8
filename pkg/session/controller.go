package session

import (
	"github.com/rs/zerolog"

	"reacher-mcu/pkg/clock"
	"reacher-mcu/pkg/config"
	"reacher-mcu/pkg/device"
	"reacher-mcu/pkg/hal"
	"reacher-mcu/pkg/protocol"
)

// LineSource yields at most one host line per call without blocking.
type LineSource interface {
	Next() (string, bool)
}

// LineSink writes one line to the host.
type LineSink interface {
	WriteLine(line string) error
}

// Options carries the controller's collaborators.
type Options struct {
	Rig      *hal.Rig
	Clock    clock.Source
	Commands LineSource
	Output   LineSink
	Logger   zerolog.Logger
	Observer Observer
	// Baud is reported in the configuration snapshot.
	Baud int
	// OnOutputFault is called once when the pump or laser has failed
	// outputFaultStreak writes in a row.
	OnOutputFault func(component string, err error)
}

// outputFaultStreak is the run of failed writes after which a pump or laser
// failure is treated as persistent.
const outputFaultStreak = 100

// Controller owns every session component and runs the tick.
type Controller struct {
	cfg  config.SessionConfig
	baud int

	ctx    *Context
	levers [2]*device.Lever
	active LeverID
	lick   *device.LickCircuit
	cue    *device.Cue
	pump   *device.Pump
	laser  *device.Laser

	trigger hal.OutputPin
	frames  *FrameMailbox

	clock clock.Source
	in    LineSource
	out   LineSink
	log   zerolog.Logger
	obs   Observer

	lastPing  uint64
	lostSeen  uint64
	failing   map[string]int
	onFault   func(component string, err error)
	lastError error
}

// New builds a controller in the Idle state with every component disarmed
// and the right-hand lever active.
func New(cfg config.SessionConfig, opts Options) *Controller {
	rig := opts.Rig
	obs := opts.Observer
	if obs == nil {
		obs = nopObserver{}
	}

	c := &Controller{
		cfg:  cfg,
		baud: opts.Baud,
		ctx:  NewContext(uint64(cfg.Ratio), uint64(cfg.ProgressiveStep), cfg.TimeoutMs),
		levers: [2]*device.Lever{
			RH: device.NewLever(protocol.ComponentRHLever, rig.RHLever, cfg.LeverDebounceMs),
			LH: device.NewLever(protocol.ComponentLHLever, rig.LHLever, cfg.LeverDebounceMs),
		},
		active:  RH,
		lick:    device.NewLickCircuit(protocol.ComponentLick, rig.Lick, cfg.LickDebounceMs),
		cue:     device.NewCue(rig.Cue, cfg.CueFrequencyHz, cfg.CueDurationMs),
		pump:    device.NewPump(rig.Pump, cfg.TraceIntervalMs, cfg.InfusionDurationMs),
		laser:   device.NewLaser(rig.Laser, cfg.LaserPulseMs),
		trigger: rig.ImagingTrigger,
		frames:  &FrameMailbox{},
		clock:   opts.Clock,
		in:      opts.Commands,
		out:     opts.Output,
		log:     opts.Logger,
		obs:     obs,
		failing: make(map[string]int),
		onFault: opts.OnOutputFault,
	}
	return c
}

// Context returns the session context.
func (c *Controller) Context() *Context { return c.ctx }

// State returns the current link/run state.
func (c *Controller) State() State { return c.ctx.State }

// Frames returns the frame mailbox fed by the capture goroutine.
func (c *Controller) Frames() *FrameMailbox { return c.frames }

// ActiveLever returns the lever paired with the cue and pump.
func (c *Controller) ActiveLever() LeverID { return c.active }

// RoleOf returns the role lever id currently plays.
func (c *Controller) RoleOf(id LeverID) Role {
	if id == c.active {
		return RoleActive
	}
	return RoleInactive
}

// Lever returns a lever by id.
func (c *Controller) Lever(id LeverID) *device.Lever { return c.levers[id] }

// Lick returns the lick sensor.
func (c *Controller) Lick() *device.LickCircuit { return c.lick }

// Cue returns the cue.
func (c *Controller) Cue() *device.Cue { return c.cue }

// Pump returns the pump.
func (c *Controller) Pump() *device.Pump { return c.pump }

// Laser returns the laser.
func (c *Controller) Laser() *device.Laser { return c.laser }

// Boot waits out the post-boot delay before the first write to the host.
func (c *Controller) Boot() {
	c.log.Info().Uint64("delay_ms", c.cfg.BootDelayMs).Msg("boot delay")
	c.clock.Pause(c.cfg.BootDelayMs)
}

// Tick runs one pass of the scheduler: inputs, outputs, frame drain,
// keep-alive, then at most one host command. Inputs and outputs are only
// evaluated while a host is linked.
func (c *Controller) Tick() {
	now := c.clock.Millis()

	if c.ctx.Linked() {
		c.monitorInputs(now)
		c.updateOutputs(now)
		c.drainFrames()
		c.ping(now)
	} else {
		c.frames.Drain()
	}

	c.processCommand()
}

func (c *Controller) monitorInputs(now uint64) {
	for id, lever := range c.levers {
		if !lever.Armed() {
			continue
		}
		switch lever.Sample(now) {
		case device.Pressed:
			label := c.classify(now, LeverID(id))
			lever.SetLabel(label)
			c.obs.Press(lever.Name(), label)
			c.log.Debug().Str("lever", lever.Name()).Stringer("label", label).
				Uint64("at", now).Msg("press")
		case device.Released:
			c.emit(protocol.Record{
				Component: lever.Name(),
				Event:     lever.Label().Event(),
				Start:     c.ctx.Adjust(lever.PressedAt()),
				End:       c.ctx.Adjust(lever.ReleasedAt()),
			}.String())
		}
	}

	if c.lick.Armed() && c.lick.Sample(now) == device.Released {
		c.obs.Lick()
		c.emit(protocol.Record{
			Component: c.lick.Name(),
			Event:     protocol.EventLick,
			Start:     c.ctx.Adjust(c.lick.PressedAt()),
			End:       c.ctx.Adjust(c.lick.ReleasedAt()),
		}.String())
	}
}

func (c *Controller) updateOutputs(now uint64) {
	c.checkOutput("cue", c.cue.Update(now))
	c.checkOutput("pump", c.pump.Update(now))

	stim, started, err := c.laser.Update(now, c.ctx.Running())
	c.checkOutput("laser", err)
	if started {
		c.obs.Stim()
		c.emit(protocol.Record{
			Component: protocol.ComponentLaser,
			Event:     protocol.EventStim,
			Start:     c.ctx.Adjust(stim.On),
			End:       c.ctx.Adjust(stim.Off),
		}.String())
	}
}

// checkOutput logs an output pin failure once per failing streak and
// reports a pump or laser that keeps failing.
func (c *Controller) checkOutput(component string, err error) {
	if err == nil {
		if c.failing[component] > 0 {
			c.failing[component] = 0
			c.log.Info().Str("component", component).Msg("output recovered")
		}
		return
	}
	c.obs.OutputError(component)
	c.lastError = err
	c.failing[component]++

	switch n := c.failing[component]; {
	case n == 1:
		c.log.Error().Err(err).Str("component", component).Msg("output write failed")
	case n == outputFaultStreak && (component == "pump" || component == "laser"):
		c.log.Error().Err(err).Str("component", component).Int("writes", n).Msg("output failing persistently")
		if c.onFault != nil {
			c.onFault(component, err)
		}
	}
}

func (c *Controller) drainFrames() {
	ts, ok := c.frames.Drain()
	if !ok {
		return
	}
	lost := c.frames.Overwrites() - c.lostSeen
	c.lostSeen += lost
	c.obs.Frame(lost)
	c.emit(protocol.FrameLine(ts))
}

func (c *Controller) ping(now uint64) {
	if now-c.lastPing < c.cfg.PingIntervalMs {
		return
	}
	c.lastPing = now
	c.emit(protocol.PingLine)
}

func (c *Controller) emit(line string) {
	if c.out == nil {
		return
	}
	if err := c.out.WriteLine(line); err != nil {
		c.lastError = err
		c.log.Error().Err(err).Str("line", line).Msg("host write failed")
		return
	}
	c.log.Debug().Str("line", line).Msg("emit")
}

// LastError returns the most recent output or link error seen by the tick.
func (c *Controller) LastError() error { return c.lastError }
