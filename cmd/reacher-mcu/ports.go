package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"reacher-mcu/pkg/serial"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial devices the host link can use",
	RunE:  runPorts,
}

func init() {
	rootCmd.AddCommand(portsCmd)
}

func runPorts(cmd *cobra.Command, args []string) error {
	ports, err := serial.ListPorts()
	if err != nil {
		return fmt.Errorf("failed to list serial ports: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(ports) == 0 {
		color.New(color.FgYellow).Fprintln(out, "no serial devices found")
		return nil
	}

	ok := color.New(color.FgGreen).SprintFunc()
	busy := color.New(color.FgRed).SprintFunc()
	for _, p := range ports {
		status := ok("available")
		if !serial.IsDeviceAvailable(p) {
			status = busy("unavailable")
		}
		fmt.Fprintf(out, "%-40s %s\n", p, status)
	}
	return nil
}
