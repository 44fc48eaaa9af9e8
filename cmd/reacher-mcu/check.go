package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"reacher-mcu/pkg/config"
	"reacher-mcu/pkg/hal"
)

var (
	checkTest     string
	checkDuration time.Duration
	checkPulse    time.Duration
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Exercise the rig's pins without a host",
	Long: `check verifies the wiring of a rig. "inputs" reports lever and lick
transitions for --duration, "outputs" pulses the pump, laser and imaging
trigger and plays the cue, "frames" counts frame edges. "all" runs each in
turn.`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&checkTest, "test", "t", "all", "Test to run: inputs, outputs, frames, all")
	checkCmd.Flags().DurationVarP(&checkDuration, "duration", "d", 10*time.Second, "How long to watch inputs and frames")
	checkCmd.Flags().DurationVar(&checkPulse, "pulse", 200*time.Millisecond, "How long each output is held high")
	rootCmd.AddCommand(checkCmd)
}

var (
	passLabel = color.New(color.FgGreen, color.Bold).Sprint("PASS")
	failLabel = color.New(color.FgRed, color.Bold).Sprint("FAIL")
)

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	setupLogger(cfg.Logging)

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

	out := cmd.OutOrStdout()
	ctx := cmd.Context()
	tests := map[string]func() error{
		"inputs":  func() error { return checkInputs(ctx, out, rig, checkDuration) },
		"outputs": func() error { return checkOutputs(out, rig, cfg.Session.CueFrequencyHz, checkPulse) },
		"frames":  func() error { return checkFrames(ctx, out, rig.FrameInput, checkDuration) },
	}

	order := []string{"outputs", "inputs", "frames"}
	if checkTest != "all" {
		if _, ok := tests[checkTest]; !ok {
			return fmt.Errorf("unknown test %q", checkTest)
		}
		order = []string{checkTest}
	}

	failed := 0
	for _, name := range order {
		fmt.Fprintf(out, "=== Test: %s ===\n", name)
		if err := tests[name](); err != nil {
			fmt.Fprintf(out, "%s %s: %v\n", failLabel, name, err)
			failed++
			continue
		}
		fmt.Fprintf(out, "%s %s\n", passLabel, name)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(order))
	}
	return nil
}

// checkOutputs holds each output high for pulse, then low, and plays the
// cue at hz for the same time.
func checkOutputs(w io.Writer, rig *hal.Rig, hz uint32, pulse time.Duration) error {
	outputs := []struct {
		name string
		pin  hal.OutputPin
	}{
		{"pump", rig.Pump},
		{"laser", rig.Laser},
		{"imaging_trigger", rig.ImagingTrigger},
	}
	for _, o := range outputs {
		if err := o.pin.Set(true); err != nil {
			return fmt.Errorf("%s high: %w", o.name, err)
		}
		time.Sleep(pulse)
		if err := o.pin.Set(false); err != nil {
			return fmt.Errorf("%s low: %w", o.name, err)
		}
		fmt.Fprintf(w, "  %s pulsed %v\n", o.name, pulse)
	}

	if err := rig.Cue.Tone(hz); err != nil {
		return fmt.Errorf("cue tone: %w", err)
	}
	time.Sleep(pulse)
	if err := rig.Cue.NoTone(); err != nil {
		return fmt.Errorf("cue silence: %w", err)
	}
	fmt.Fprintf(w, "  cue played %d Hz\n", hz)
	return nil
}

// checkInputs polls the levers and lick sensor every millisecond for d and
// prints each level change. It fails when no input changed at all.
func checkInputs(ctx context.Context, w io.Writer, rig *hal.Rig, d time.Duration) error {
	inputs := []struct {
		name string
		pin  hal.InputPin
	}{
		{"rh_lever", rig.RHLever},
		{"lh_lever", rig.LHLever},
		{"lick", rig.Lick},
	}
	last := make([]bool, len(inputs))
	for i, in := range inputs {
		last[i] = in.pin.Read()
	}

	fmt.Fprintf(w, "  press each lever and touch the spout within %v\n", d)
	changes := 0
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	deadline := time.After(d)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			if changes == 0 {
				return fmt.Errorf("no input changed in %v", d)
			}
			return nil
		case <-ticker.C:
		}
		for i, in := range inputs {
			if v := in.pin.Read(); v != last[i] {
				last[i] = v
				changes++
				fmt.Fprintf(w, "  %s -> %v\n", in.name, v)
			}
		}
	}
}

// checkFrames counts frame edges for d and reports the rate.
func checkFrames(ctx context.Context, w io.Writer, edge hal.EdgePin, d time.Duration) error {
	start := time.Now()
	count := 0
	for time.Since(start) < d {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if edge.WaitForEdge(50 * time.Millisecond) {
			count++
		}
	}
	if count == 0 {
		return fmt.Errorf("no frame edges in %v", d)
	}
	fmt.Fprintf(w, "  %d frames, %.1f Hz\n", count, float64(count)/d.Seconds())
	return nil
}
