package session

import (
	"reacher-mcu/pkg/device"
	"reacher-mcu/pkg/protocol"
)

// classify labels a press on lever id committed at now. Only the active
// lever with an armed cue can earn ACTIVE or TIMEOUT; everything else is
// INACTIVE. An ACTIVE press runs the ratio step.
func (c *Controller) classify(now uint64, id LeverID) device.Label {
	if id != c.active || !c.cue.Armed() {
		return device.LabelInactive
	}

	withPump := c.pump.Armed()
	if c.blocked(now, withPump) {
		return device.LabelTimeout
	}
	c.ratioStep(now, withPump)
	return device.LabelActive
}

// blocked reports whether now falls inside the reward presentation (the cue
// window, extended to the end of infusion when the pump is paired) or the
// timeout window.
func (c *Controller) blocked(now uint64, withPump bool) bool {
	if c.ctx.Timeout.Contains(now) {
		return true
	}
	cw := c.cue.Window()
	if !cw.IsSet() {
		return false
	}
	end := cw.Off
	if withPump {
		if pw := c.pump.Window(); pw.IsSet() && pw.Off > end {
			end = pw.Off
		}
	}
	return device.Span(cw.On, end).Contains(now)
}

// ratioStep counts an ACTIVE press and, when it satisfies the ratio, opens
// the reward windows anchored at now.
func (c *Controller) ratioStep(now uint64, withPump bool) {
	if !c.ctx.Satisfies() {
		c.ctx.PressCount++
		return
	}

	c.ctx.Reward()
	cw := c.cue.Schedule(now)

	if withPump {
		pw := c.pump.Schedule(cw.Off)
		c.obs.Infusion()
		c.emit(protocol.Record{
			Component: protocol.ComponentPump,
			Event:     protocol.EventInfusion,
			Start:     c.ctx.Adjust(pw.On),
			End:       c.ctx.Adjust(pw.Off),
		}.String())
	}

	if c.ctx.Running() {
		c.ctx.Timeout = device.NewWindow(cw.Off, c.ctx.TimeoutLength)
	}

	c.obs.Reward(c.ctx.RequiredPresses)
	c.log.Info().Uint64("at", now).Uint64("next_ratio", c.ctx.RequiredPresses).
		Bool("infusion", withPump).Msg("reward")
}
