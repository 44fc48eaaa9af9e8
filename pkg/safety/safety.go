// Package safety drives the rig to a safe state when the controller stops.
// Registered outputs (pump, laser, cue, imaging trigger) are forced low on
// shutdown, and a watchdog fed from the tick shuts the rig down if the loop
// stalls.
package safety

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"reacher-mcu/pkg/hal"
)

// ShutdownState represents the rig's shutdown state.
type ShutdownState int

const (
	// StateRunning indicates normal operation.
	StateRunning ShutdownState = iota

	// StateShuttingDown indicates outputs are being forced low.
	StateShuttingDown

	// StateShutdown indicates an orderly shutdown completed.
	StateShutdown

	// StateError indicates a fault-triggered shutdown.
	StateError
)

func (s ShutdownState) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	case StateShutdown:
		return "shutdown"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// ShutdownReason describes why the rig was shut down.
type ShutdownReason string

const (
	ReasonUserRequest  ShutdownReason = "user_request"
	ReasonTickStall    ShutdownReason = "tick_stall"
	ReasonLinkLost     ShutdownReason = "link_lost"
	ReasonOutputFailed ShutdownReason = "output_failed"
)

// ErrShutdown is returned by CheckOperational after a shutdown.
var ErrShutdown = errors.New("safety: rig is shut down")

type output struct {
	name string
	pin  hal.OutputPin
}

// Manager tracks shutdown state and the outputs to force low.
type Manager struct {
	mu sync.RWMutex

	state          ShutdownState
	shutdownReason ShutdownReason
	shutdownMsg    string
	shutdownTime   time.Time

	outputs []output
	tones   []hal.TonePin

	watchdogCtx     context.Context
	watchdogCancel  context.CancelFunc
	watchdogTimeout time.Duration
	lastHeartbeat   time.Time
	watchdogMu      sync.Mutex

	onShutdown []func(reason ShutdownReason, msg string)

	log zerolog.Logger
}

// New creates a Manager in the running state.
func New(logger zerolog.Logger) *Manager {
	return &Manager{
		state:           StateRunning,
		watchdogTimeout: 5 * time.Second,
		log:             logger,
	}
}

// Config holds configuration for the safety manager.
type Config struct {
	// WatchdogTimeout must exceed the longest blocking pause in a tick
	// (jingle, stop flush).
	WatchdogTimeout time.Duration
}

// Configure applies configuration to the manager.
func (m *Manager) Configure(cfg Config) {
	m.watchdogMu.Lock()
	defer m.watchdogMu.Unlock()

	if cfg.WatchdogTimeout > 0 {
		m.watchdogTimeout = cfg.WatchdogTimeout
	}
}

// RegisterOutput adds an output to force low on shutdown.
func (m *Manager) RegisterOutput(name string, pin hal.OutputPin) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outputs = append(m.outputs, output{name: name, pin: pin})
}

// RegisterTone adds a tone pin to silence on shutdown.
func (m *Manager) RegisterTone(pin hal.TonePin) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tones = append(m.tones, pin)
}

// RegisterRig registers every output of rig.
func (m *Manager) RegisterRig(rig *hal.Rig) {
	m.RegisterTone(rig.Cue)
	m.RegisterOutput("pump", rig.Pump)
	m.RegisterOutput("laser", rig.Laser)
	m.RegisterOutput("imaging_trigger", rig.ImagingTrigger)
}

// OnShutdown registers a callback for when shutdown occurs.
func (m *Manager) OnShutdown(fn func(reason ShutdownReason, msg string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onShutdown = append(m.onShutdown, fn)
}

// GetState returns the current shutdown state.
func (m *Manager) GetState() ShutdownState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// GetShutdownInfo returns shutdown details.
func (m *Manager) GetShutdownInfo() (ShutdownReason, string, time.Time) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.shutdownReason, m.shutdownMsg, m.shutdownTime
}

// IsOperational reports whether the rig is running normally.
func (m *Manager) IsOperational() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateRunning
}

// CheckOperational returns an error if the rig is not operational.
func (m *Manager) CheckOperational() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.state != StateRunning {
		return fmt.Errorf("%w: %s - %s", ErrShutdown, m.shutdownReason, m.shutdownMsg)
	}
	return nil
}

// RequestShutdown performs an orderly shutdown.
func (m *Manager) RequestShutdown(msg string) error {
	return m.invokeShutdown(ReasonUserRequest, msg)
}

// TickStall shuts down because the tick loop stopped feeding the watchdog.
func (m *Manager) TickStall() error {
	return m.invokeShutdown(ReasonTickStall, "tick loop heartbeat timeout")
}

// LinkLost shuts down because the host link failed.
func (m *Manager) LinkLost(err error) error {
	return m.invokeShutdown(ReasonLinkLost, err.Error())
}

// OutputFailed shuts down because an output keeps rejecting writes.
func (m *Manager) OutputFailed(component string, err error) error {
	return m.invokeShutdown(ReasonOutputFailed, fmt.Sprintf("%s: %v", component, err))
}

// invokeShutdown forces every registered output low. Write failures are
// logged and reported; the remaining outputs are still driven.
func (m *Manager) invokeShutdown(reason ShutdownReason, msg string) error {
	m.mu.Lock()

	if m.state != StateRunning {
		m.mu.Unlock()
		return nil
	}

	m.state = StateShuttingDown
	m.shutdownReason = reason
	m.shutdownMsg = msg
	m.shutdownTime = time.Now()

	outputs := make([]output, len(m.outputs))
	copy(outputs, m.outputs)
	tones := make([]hal.TonePin, len(m.tones))
	copy(tones, m.tones)

	m.mu.Unlock()

	m.StopWatchdog()

	var errs []error
	for _, tone := range tones {
		if err := tone.NoTone(); err != nil {
			errs = append(errs, fmt.Errorf("cue: %w", err))
		}
	}
	for _, out := range outputs {
		if err := out.pin.Set(false); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", out.name, err))
		}
	}

	finalState := StateShutdown
	if reason != ReasonUserRequest {
		finalState = StateError
	}
	if len(errs) > 0 {
		finalState = StateError
	}

	m.mu.Lock()
	m.state = finalState
	onShutdown := make([]func(ShutdownReason, string), len(m.onShutdown))
	copy(onShutdown, m.onShutdown)
	m.mu.Unlock()

	ev := m.log.Info()
	if finalState == StateError {
		ev = m.log.Error()
	}
	ev.Str("reason", string(reason)).Str("msg", msg).Msg("outputs forced low")

	for _, fn := range onShutdown {
		fn(reason, msg)
	}

	return errors.Join(errs...)
}

// StartWatchdog starts the tick watchdog.
func (m *Manager) StartWatchdog() {
	m.watchdogMu.Lock()
	defer m.watchdogMu.Unlock()

	if m.watchdogCancel != nil {
		return
	}

	m.watchdogCtx, m.watchdogCancel = context.WithCancel(context.Background())
	m.lastHeartbeat = time.Now()

	go m.watchdogLoop(m.watchdogCtx)
}

// StopWatchdog stops the tick watchdog.
func (m *Manager) StopWatchdog() {
	m.watchdogMu.Lock()
	defer m.watchdogMu.Unlock()

	if m.watchdogCancel != nil {
		m.watchdogCancel()
		m.watchdogCancel = nil
	}
}

// Heartbeat feeds the watchdog. Call it from every tick.
func (m *Manager) Heartbeat() {
	m.watchdogMu.Lock()
	defer m.watchdogMu.Unlock()
	m.lastHeartbeat = time.Now()
}

func (m *Manager) watchdogLoop(ctx context.Context) {
	m.watchdogMu.Lock()
	period := m.watchdogTimeout / 4
	m.watchdogMu.Unlock()
	if period <= 0 {
		period = time.Millisecond
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.watchdogMu.Lock()
			elapsed := time.Since(m.lastHeartbeat)
			timeout := m.watchdogTimeout
			m.watchdogMu.Unlock()

			if elapsed > timeout {
				_ = m.TickStall()
				return
			}
		}
	}
}
