package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"reacher-mcu/pkg/config"
	"reacher-mcu/pkg/errors"
	"reacher-mcu/pkg/hal"
	"reacher-mcu/pkg/log"
	"reacher-mcu/pkg/metrics"
	"reacher-mcu/pkg/protocol"
	"reacher-mcu/pkg/reactor"
	"reacher-mcu/pkg/safety"
	"reacher-mcu/pkg/serial"
	"reacher-mcu/pkg/session"
	"reacher-mcu/pkg/systemd"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the controller on the configured GPIO pins and serial link",
	RunE:  runController,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	lc := log.Config{Level: cfg.Level, Format: cfg.Format}
	log.ConfigureFromEnv(&lc)
	if logLevel != "" {
		lc.Level = logLevel
	}
	return log.Setup(lc)
}

// openLink opens the host link: the Unix socket when one is configured,
// otherwise the serial device.
func openLink(cfg config.SerialConfig) (*serial.Port, error) {
	if cfg.Socket != "" {
		port, err := serial.OpenSocket(cfg.Socket, 0)
		if err != nil {
			return nil, errors.LinkOpenError(cfg.Socket, err)
		}
		return port, nil
	}

	device, err := serial.ResolveDevice(cfg.Device)
	if err != nil {
		return nil, errors.LinkOpenError(cfg.Device, err)
	}
	sc := serial.DefaultConfig()
	sc.Device = device
	sc.BaudRate = cfg.Baud
	port, err := serial.Open(sc)
	if err != nil {
		return nil, errors.LinkOpenError(device, err)
	}
	// Drop whatever the host queued before the rig came up.
	if err := port.Flush(); err != nil {
		port.Close()
		return nil, errors.LinkOpenError(device, err)
	}
	return port, nil
}

func runController(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := setupLogger(cfg.Logging)
	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Str("sketch", cfg.Session.Sketch).
		Msg("starting reacher-mcu")

	pins, err := cfg.Pins.Parse()
	if err != nil {
		return fmt.Errorf("invalid pins: %w", err)
	}
	if err := hal.InitPeriph(); err != nil {
		return err
	}
	rig, err := hal.OpenRig(pins)
	if err != nil {
		return fmt.Errorf("failed to open rig: %w", err)
	}
	guard := safety.New(log.New("safety"))
	guard.Configure(safety.Config{WatchdogTimeout: stallTimeout(cfg.Session)})
	guard.RegisterRig(rig)
	faulted := make(chan safety.ShutdownReason, 1)
	guard.OnShutdown(func(reason safety.ShutdownReason, msg string) {
		if reason == safety.ReasonTickStall || reason == safety.ReasonOutputFailed {
			faulted <- reason
		}
	})

	port, err := openLink(cfg.Serial)
	if err != nil {
		return err
	}
	defer func() {
		if err := port.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close link")
		}
	}()
	logger.Info().
		Str("device", port.Device()).
		Bool("socket", port.IsSocket()).
		Int("baud", cfg.Serial.Baud).
		Msg("link open")

	reader := protocol.NewLineReader(port, log.New("link"))
	writer := protocol.NewLineWriter(port)
	sm := metrics.New()
	r := reactor.New()

	ctrl := session.New(cfg.Session, session.Options{
		Rig:      rig,
		Clock:    r,
		Commands: reader,
		Output:   writer,
		Logger:   log.New("session"),
		Observer: sm,
		Baud:     cfg.Serial.Baud,
		OnOutputFault: func(component string, err error) {
			_ = guard.OutputFailed(component, err)
		},
	})

	var server *metrics.Server
	if cfg.Metrics.Enabled {
		sc := metrics.DefaultServerConfig()
		sc.Address = cfg.Metrics.Address
		server = metrics.NewServer(sm, sc, logger)
		server.SetHealthCheck(guard.CheckOperational)
		ln, err := systemd.MetricsListener()
		if err != nil {
			return err
		}
		if ln != nil {
			logger.Info().Msg("metrics socket activated by systemd")
			server.SetListener(ln)
		}
		server.Start()
	}

	ctrl.Boot()
	reader.Start()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go ctrl.Frames().Watch(ctx, rig.FrameInput, r)

	linkLost := make(chan error, 1)
	var tick *reactor.Timer
	tick = r.Every(cfg.Session.TickIntervalMs, func(now uint64) {
		// Outputs are already forced low; ticking on would drive them again.
		if !guard.IsOperational() {
			r.UnregisterTimer(tick)
			return
		}
		start := time.Now()
		guard.Heartbeat()
		ctrl.Tick()
		sm.ObserveTick(time.Since(start))

		if err := reader.Err(); err != nil {
			select {
			case linkLost <- err:
			default:
			}
		}
	})

	wd, err := systemd.WatchdogInterval()
	if err != nil {
		logger.Warn().Err(err).Msg("watchdog disabled")
	}
	if wd > 0 {
		r.Every(uint64(wd.Milliseconds()), func(now uint64) {
			if err := systemd.NotifyWatchdog(); err != nil {
				logger.Warn().Err(err).Msg("watchdog notify failed")
			}
		})
	}

	r.Run()
	guard.StartWatchdog()
	if server != nil {
		server.SetReady(true)
	}
	if err := systemd.NotifyReady(); err != nil {
		logger.Warn().Err(err).Msg("sd_notify ready failed")
	}
	logger.Info().Uint64("tick_ms", cfg.Session.TickIntervalMs).Msg("controller running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1)
	defer signal.Stop(sigCh)

	var runErr, lostErr error
loop:
	for {
		select {
		case sig := <-sigCh:
			if sig == syscall.SIGUSR1 {
				logSnapshot(r, ctrl, logger)
				continue
			}
			logger.Info().Stringer("signal", sig).Msg("shutdown signal received")
			break loop
		case err := <-linkLost:
			logger.Error().Err(err).Msg("host link lost")
			lostErr = err
			runErr = errors.LinkIOError("read", err)
			break loop
		case reason := <-faulted:
			runErr = fmt.Errorf("safety shutdown: %s", reason)
			break loop
		case <-ctx.Done():
			break loop
		}
	}

	if err := systemd.NotifyStopping(); err != nil {
		logger.Warn().Err(err).Msg("sd_notify stopping failed")
	}
	if runErr != nil {
		// The tick may be stuck writing to the link; closing it unblocks
		// the write so the reactor can exit.
		if err := port.Close(); err != nil {
			logger.Debug().Err(err).Msg("closing link")
		}
	}
	r.End()
	if !waitReactor(r, reactorStopTimeout) {
		logger.Warn().Dur("timeout", reactorStopTimeout).Msg("tick did not return, abandoning it")
	}
	cancel()

	if lostErr != nil {
		_ = guard.LinkLost(lostErr)
	} else if err := guard.RequestShutdown("controller stopped"); err != nil {
		logger.Error().Err(err).Msg("failed to force outputs low")
	}

	if server != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("error stopping metrics server")
		}
		done()
	}

	if err := port.Close(); err != nil {
		logger.Debug().Err(err).Msg("closing link")
	}
	_ = reader.Stop()

	reason, msg, _ := guard.GetShutdownInfo()
	logger.Info().
		Str("reason", string(reason)).
		Str("detail", msg).
		Uint64("lines_out", writer.Lines()).
		Int("lines_dropped", reader.Dropped()).
		Msg("reacher-mcu stopped")
	return runErr
}

// reactorStopTimeout bounds the wait for the last tick after End.
const reactorStopTimeout = 2 * time.Second

// waitReactor waits up to d for the dispatch loop to exit and reports
// whether it did.
func waitReactor(r *reactor.Reactor, d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		r.Wait()
		close(done)
	}()
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-done:
		return true
	case <-t.C:
		return false
	}
}

// stallTimeout bounds how long one tick may block before the watchdog
// forces the outputs low. Transition pauses count against it.
func stallTimeout(cfg config.SessionConfig) time.Duration {
	blocking := cfg.StopFlushMs + cfg.CommandSettleMs + 3*cfg.TriggerPulseMs + 1000
	return 5*time.Second + time.Duration(blocking)*time.Millisecond
}

type snapshotResult struct {
	snap  session.Snapshot
	state session.State
}

// logSnapshot reads the configuration snapshot on the reactor goroutine so
// it never races the tick.
func logSnapshot(r *reactor.Reactor, ctrl *session.Controller, logger zerolog.Logger) {
	c := r.RegisterAsyncCallback(func(now uint64) interface{} {
		return snapshotResult{snap: ctrl.Snapshot(), state: ctrl.State()}
	})
	res, ok := c.Wait(time.Second, nil).(snapshotResult)
	if !ok {
		logger.Warn().Msg("snapshot timed out")
		return
	}
	line, err := res.snap.MarshalLine()
	if err != nil {
		logger.Error().Err(err).Msg("snapshot encoding failed")
		return
	}
	logger.Info().
		Stringer("state", res.state).
		RawJSON("snapshot", []byte(line)).
		Msg("configuration snapshot")
}
