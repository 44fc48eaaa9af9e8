package session

import (
	"encoding/json"
)

// Snapshot is the configuration record sent to the host at session start.
type Snapshot struct {
	Sketch             string `json:"sketch"`
	Version            string `json:"version"`
	Baud               int    `json:"baud"`
	StartOffset        uint64 `json:"start_offset"`
	Ratio              uint64 `json:"ratio"`
	ProgressiveStep    uint64 `json:"progressive_step"`
	TimeoutLength      uint64 `json:"timeout_length"`
	TraceInterval      uint64 `json:"trace_interval"`
	CueFrequency       uint32 `json:"cue_frequency"`
	CueDuration        uint64 `json:"cue_duration"`
	InfusionDuration   uint64 `json:"infusion_duration"`
	LaserPulseDuration uint64 `json:"laser_pulse_duration"`
	ActiveLever        string `json:"active_lever"`
}

// Snapshot captures the current configuration.
func (c *Controller) Snapshot() Snapshot {
	offset, _ := c.ctx.StartOffset()
	return Snapshot{
		Sketch:             c.cfg.Sketch,
		Version:            c.cfg.Version,
		Baud:               c.baud,
		StartOffset:        offset,
		Ratio:              c.ctx.RequiredPresses,
		ProgressiveStep:    c.ctx.ProgressiveStep,
		TimeoutLength:      c.ctx.TimeoutLength,
		TraceInterval:      c.pump.TraceInterval(),
		CueFrequency:       c.cue.Frequency(),
		CueDuration:        c.cue.Duration(),
		InfusionDuration:   c.pump.Duration(),
		LaserPulseDuration: c.laser.Pulse(),
		ActiveLever:        c.levers[c.active].Name(),
	}
}

// MarshalLine renders the snapshot as a single JSON line.
func (s Snapshot) MarshalLine() (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (c *Controller) emitSnapshot() {
	line, err := c.Snapshot().MarshalLine()
	if err != nil {
		c.log.Error().Err(err).Msg("snapshot encode failed")
		return
	}
	c.emit(line)
}
