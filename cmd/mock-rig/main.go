// mock-rig runs the controller on simulated pins behind a Unix socket so a
// host can be exercised without hardware. Scripted generators press the
// levers, touch the lick sensor and pulse the frame input; every line sent
// to the host is echoed to the console.
//
// Usage:
//
//	mock-rig --socket /tmp/reacher_rig [--press 5s] [--lick 2s] [--frame-hz 30]
//
// Connect the host application to the socket in place of the serial
// device, e.g. through socat PTY bridging.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"reacher-mcu/pkg/clock"
	"reacher-mcu/pkg/config"
	"reacher-mcu/pkg/hal"
	"reacher-mcu/pkg/log"
	"reacher-mcu/pkg/protocol"
	"reacher-mcu/pkg/reactor"
	"reacher-mcu/pkg/serial"
	"reacher-mcu/pkg/session"
)

var (
	socketPath string
	configPath string
	trace      bool
	script     = Script{LickHold: lickHold}
)

var rootCmd = &cobra.Command{
	Use:          "mock-rig",
	Short:        "Simulated rig served over a Unix socket",
	SilenceUsage: true,
	RunE:         runMock,
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&socketPath, "socket", "s", "/tmp/reacher_rig", "Unix socket path")
	f.StringVarP(&configPath, "config", "c", "", "Controller configuration file (session section is used)")
	f.BoolVar(&trace, "trace", false, "Enable debug logging")
	f.DurationVar(&script.RHPress, "press", 5*time.Second, "Interval between right-lever presses (0 disables)")
	f.DurationVar(&script.LHPress, "press-lh", 0, "Interval between left-lever presses (0 disables)")
	f.DurationVar(&script.Hold, "hold", 300*time.Millisecond, "How long each press is held")
	f.DurationVar(&script.Lick, "lick", 0, "Interval between lick touches (0 disables)")
	f.Float64Var(&script.FrameHz, "frame-hz", 0, "Frame pulse rate (0 disables)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runMock(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	level := cfg.Logging.Level
	if trace {
		level = "debug"
	}
	log.Setup(log.Config{Level: level, Format: cfg.Logging.Format})

	listener, err := serial.Listen(socketPath)
	if err != nil {
		return err
	}
	defer listener.Close()

	bold := color.New(color.Bold)
	bold.Printf("Mock rig listening on %s\n", listener.Path())
	fmt.Printf("Sketch: %s %s\n", cfg.Session.Sketch, cfg.Session.Version)
	fmt.Println("Press Ctrl+C to stop")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for ctx.Err() == nil {
		port, err := listener.Accept(200 * time.Millisecond)
		if errors.Is(err, serial.ErrTimeout) {
			continue
		}
		if err != nil {
			return fmt.Errorf("accept: %w", err)
		}

		color.Green("Host connected")
		serve(ctx, port, cfg, script)
		color.Yellow("Host disconnected")
	}
	fmt.Println("\nShutting down...")
	return nil
}

// lickHold is how long each scripted lick contact lasts.
const lickHold = 60 * time.Millisecond

// serve runs one controller session over port until the host hangs up or
// ctx is cancelled.
// newController builds a controller on the simulated rig. The snapshot
// reports the configured baud as the hardware controller would.
func newController(cfg *config.Config, sim *hal.SimRig, clk clock.Source, in session.LineSource, out session.LineSink) *session.Controller {
	return session.New(cfg.Session, session.Options{
		Rig:      sim.Rig(),
		Clock:    clk,
		Commands: in,
		Output:   out,
		Logger:   log.New("session"),
		Baud:     cfg.Serial.Baud,
	})
}

func serve(ctx context.Context, port *serial.Port, cfg *config.Config, script Script) {
	defer port.Close()

	sim := hal.NewSimRig()
	r := reactor.New()
	reader := protocol.NewLineReader(port, log.New("link"))
	sink := newEchoSink(protocol.NewLineWriter(port), os.Stdout)

	ctrl := newController(cfg, sim, r, reader, sink)
	ctrl.Boot()
	reader.Start()

	sctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go ctrl.Frames().Watch(sctx, sim.FrameInput, r)
	go script.Run(sctx, sim)

	hungUp := make(chan struct{})
	r.Every(cfg.Session.TickIntervalMs, func(now uint64) {
		ctrl.Tick()
		if reader.Err() != nil {
			select {
			case <-hungUp:
			default:
				close(hungUp)
			}
		}
	})
	r.Run()

	select {
	case <-ctx.Done():
	case <-hungUp:
	}

	r.End()
	r.Wait()
	cancel()
	port.Close()
	_ = reader.Stop()
}
