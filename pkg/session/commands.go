package session

import (
	"strings"

	"reacher-mcu/pkg/errors"
	"reacher-mcu/pkg/protocol"
)

// Jingle tones played on link (ascending) and unlink (descending).
var jingleTones = []uint32{500, 1000, 1500}

const jingleNoteMs = 150

// processCommand applies at most one queued host line.
func (c *Controller) processCommand() {
	if c.in == nil {
		return
	}
	line, ok := c.in.Next()
	if !ok || strings.TrimSpace(line) == "" {
		return
	}

	cmd, err := protocol.Parse(line)
	if err == nil {
		err = c.Apply(cmd)
	}
	if err != nil {
		c.reject(line, err)
	} else {
		c.obs.Command(cmd.Kind.Keyword())
		c.log.Debug().Stringer("command", cmd).Msg("command applied")
	}

	if c.cfg.CommandSettleMs > 0 {
		c.clock.Pause(c.cfg.CommandSettleMs)
	}
}

func (c *Controller) reject(line string, err error) {
	c.obs.CommandRejected(string(errors.CodeOf(err)))
	c.log.Warn().Err(err).Str("line", line).Msg("command rejected")
	c.emit(protocol.ErrorLine(err))
}

// Apply executes one command. Parameter changes take effect on the next
// tick; commands that do not fit the current state return a command state
// error and change nothing.
func (c *Controller) Apply(cmd protocol.Command) error {
	v := cmd.Value

	switch cmd.Kind {
	case protocol.Link:
		if c.ctx.Linked() {
			return c.stateError(cmd)
		}
		c.link()
	case protocol.Unlink:
		if !c.ctx.Linked() {
			return c.stateError(cmd)
		}
		c.unlink()
	case protocol.StartProgram:
		if c.ctx.State != Linked {
			return c.stateError(cmd)
		}
		c.start()
	case protocol.EndProgram:
		if c.ctx.State != Running {
			return c.stateError(cmd)
		}
		c.stop()

	case protocol.SetRatio:
		c.ctx.RequiredPresses = v
	case protocol.SetProgressiveRatio:
		c.ctx.ProgressiveStep = v
	case protocol.SetTimeoutLength:
		c.ctx.TimeoutLength = v

	case protocol.ArmLeverRH:
		c.levers[RH].SetArmed(true)
	case protocol.DisarmLeverRH:
		c.levers[RH].SetArmed(false)
	case protocol.ArmLeverLH:
		c.levers[LH].SetArmed(true)
	case protocol.DisarmLeverLH:
		c.levers[LH].SetArmed(false)
	case protocol.ActiveLeverRH:
		c.active = RH
	case protocol.ActiveLeverLH:
		c.active = LH

	case protocol.ArmCue:
		c.cue.SetArmed(true)
	case protocol.DisarmCue:
		c.cue.SetArmed(false)
	case protocol.SetCueFrequency:
		c.cue.SetFrequency(uint32(v))
	case protocol.SetCueDuration:
		c.cue.SetDuration(v)

	case protocol.ArmPump:
		c.pump.SetArmed(true)
	case protocol.DisarmPump:
		c.pump.SetArmed(false)
	case protocol.SetTraceInterval:
		c.pump.SetTraceInterval(v)
	case protocol.SetInfusionDuration:
		c.pump.SetDuration(v)
	case protocol.PumpTestOn, protocol.PumpTestOff:
		c.pump.SetTesting(cmd.Kind == protocol.PumpTestOn)
		c.checkOutput("pump", c.pump.Update(c.clock.Millis()))

	case protocol.ArmLaser:
		c.laser.SetArmed(true)
	case protocol.DisarmLaser:
		c.laser.SetArmed(false)
		_, _, err := c.laser.Update(c.clock.Millis(), c.ctx.Running())
		c.checkOutput("laser", err)
	case protocol.SetLaserPulse:
		c.laser.SetPulse(v)

	case protocol.ArmLick:
		c.lick.SetArmed(true)
	case protocol.DisarmLick:
		c.lick.SetArmed(false)

	case protocol.SetLeverDebounce:
		c.levers[RH].SetDebounce(v)
		c.levers[LH].SetDebounce(v)
	case protocol.SetLickDebounce:
		c.lick.SetDebounce(v)

	default:
		return errors.CommandUnknownError(cmd.Kind.Keyword())
	}
	return nil
}

func (c *Controller) stateError(cmd protocol.Command) error {
	return errors.CommandStateError(cmd.Kind.Keyword(), c.ctx.State.String())
}

func (c *Controller) setState(s State) {
	c.log.Info().Stringer("from", c.ctx.State).Stringer("to", s).Msg("state change")
	c.ctx.State = s
	c.obs.StateChanged(s)
}

func (c *Controller) link() {
	c.playJingle(jingleTones, false)
	c.setState(Linked)
	c.lastPing = c.clock.Millis()
}

func (c *Controller) unlink() {
	if c.ctx.Running() {
		c.stop()
	}
	c.setState(Idle)
	c.playJingle(jingleTones, true)

	c.checkOutput("pump", c.pump.Stop())
	_, _, err := c.laser.Update(c.clock.Millis(), false)
	c.checkOutput("laser", err)
}

func (c *Controller) start() {
	c.pulseTrigger(1)

	now := c.clock.Millis()
	c.ctx.SetStartOffset(now)
	c.frames.SetOffset(now)
	c.setState(Running)
	c.emitSnapshot()
}

func (c *Controller) stop() {
	c.pulseTrigger(2)
	c.setState(Linked)

	_, _, err := c.laser.Update(c.clock.Millis(), false)
	c.checkOutput("laser", err)
	c.clock.Pause(c.cfg.StopFlushMs)
}

// pulseTrigger drives n pulses of the configured width on the imaging
// trigger. One pulse marks a session start, two mark the end.
func (c *Controller) pulseTrigger(n int) {
	width := c.cfg.TriggerPulseMs
	for i := 0; i < n; i++ {
		if i > 0 {
			c.clock.Pause(width)
		}
		c.checkOutput("imaging_trigger", c.trigger.Set(true))
		c.clock.Pause(width)
		c.checkOutput("imaging_trigger", c.trigger.Set(false))
	}
}

func (c *Controller) playJingle(tones []uint32, descending bool) {
	for i := range tones {
		hz := tones[i]
		if descending {
			hz = tones[len(tones)-1-i]
		}
		c.checkOutput("cue", c.cue.Play(hz))
		c.clock.Pause(jingleNoteMs)
	}
	c.checkOutput("cue", c.cue.Silence())
}
