// Prometheus collectors for the rig controller
//
// SessionMetrics counts every classified press, reward, infusion, laser
// stimulation, frame and host command. It implements session.Observer so
// the controller reports into it directly from the tick.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"reacher-mcu/pkg/device"
	"reacher-mcu/pkg/session"
)

const namespace = "reacher"

// SessionMetrics holds the controller's collectors on a private registry.
type SessionMetrics struct {
	registry *prometheus.Registry

	Presses          *prometheus.CounterVec
	Licks            prometheus.Counter
	Rewards          prometheus.Counter
	RequiredPresses  prometheus.Gauge
	Infusions        prometheus.Counter
	Stims            prometheus.Counter
	Frames           prometheus.Counter
	FramesLost       prometheus.Counter
	Commands         *prometheus.CounterVec
	CommandsRejected *prometheus.CounterVec
	OutputErrors     *prometheus.CounterVec
	State            *prometheus.GaugeVec
	TickDuration     prometheus.Histogram
}

// New creates and registers the collectors.
func New() *SessionMetrics {
	m := &SessionMetrics{
		registry: prometheus.NewRegistry(),

		Presses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lever_presses_total",
				Help:      "Lever presses by lever and classification",
			},
			[]string{"lever", "label"},
		),
		Licks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "licks_total",
			Help:      "Completed lick contacts",
		}),
		Rewards: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rewards_total",
			Help:      "Presses that satisfied the ratio",
		}),
		RequiredPresses: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "required_presses",
			Help:      "Current ratio after the last reward",
		}),
		Infusions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "infusions_total",
			Help:      "Scheduled pump infusions",
		}),
		Stims: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "laser_stims_total",
			Help:      "Laser high phases started",
		}),
		Frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_total",
			Help:      "Frame timestamps emitted",
		}),
		FramesLost: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_lost_total",
			Help:      "Frame edges overwritten before the tick drained them",
		}),
		Commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "Host commands applied",
			},
			[]string{"command"},
		),
		CommandsRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_rejected_total",
				Help:      "Host lines rejected, by error code",
			},
			[]string{"code"},
		),
		OutputErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "output_errors_total",
				Help:      "Failed output pin writes",
			},
			[]string{"component"},
		),
		State: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "session_state",
				Help:      "1 for the controller's current state",
			},
			[]string{"state"},
		),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Time spent in one controller tick",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05, .1, .5, 1, 2},
		}),
	}

	m.registry.MustRegister(
		m.Presses,
		m.Licks,
		m.Rewards,
		m.RequiredPresses,
		m.Infusions,
		m.Stims,
		m.Frames,
		m.FramesLost,
		m.Commands,
		m.CommandsRejected,
		m.OutputErrors,
		m.State,
		m.TickDuration,
		collectors.NewGoCollector(),
	)
	m.StateChanged(session.Idle)
	return m
}

// Registry returns the registry the collectors live on.
func (m *SessionMetrics) Registry() *prometheus.Registry { return m.registry }

// ObserveTick records how long one tick took.
func (m *SessionMetrics) ObserveTick(d time.Duration) {
	m.TickDuration.Observe(d.Seconds())
}

func (m *SessionMetrics) Press(lever string, label device.Label) {
	m.Presses.WithLabelValues(lever, label.String()).Inc()
}

func (m *SessionMetrics) Lick() { m.Licks.Inc() }

func (m *SessionMetrics) Reward(requiredPresses uint64) {
	m.Rewards.Inc()
	m.RequiredPresses.Set(float64(requiredPresses))
}

func (m *SessionMetrics) Infusion() { m.Infusions.Inc() }

func (m *SessionMetrics) Stim() { m.Stims.Inc() }

func (m *SessionMetrics) Frame(lost uint64) {
	m.Frames.Inc()
	m.FramesLost.Add(float64(lost))
}

func (m *SessionMetrics) Command(keyword string) {
	m.Commands.WithLabelValues(keyword).Inc()
}

func (m *SessionMetrics) CommandRejected(code string) {
	m.CommandsRejected.WithLabelValues(code).Inc()
}

func (m *SessionMetrics) OutputError(component string) {
	m.OutputErrors.WithLabelValues(component).Inc()
}

func (m *SessionMetrics) StateChanged(s session.State) {
	for _, st := range []session.State{session.Idle, session.Linked, session.Running} {
		v := 0.0
		if st == s {
			v = 1
		}
		m.State.WithLabelValues(st.String()).Set(v)
	}
}

var _ session.Observer = (*SessionMetrics)(nil)
