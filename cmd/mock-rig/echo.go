package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"reacher-mcu/pkg/protocol"
	"reacher-mcu/pkg/session"
)

// echoSink forwards every line to the host and prints a colored copy.
type echoSink struct {
	mu   sync.Mutex
	next session.LineSink
	out  io.Writer
}

func newEchoSink(next session.LineSink, out io.Writer) *echoSink {
	return &echoSink{next: next, out: out}
}

func (e *echoSink) WriteLine(line string) error {
	e.mu.Lock()
	fmt.Fprintln(e.out, colorize(line))
	e.mu.Unlock()
	return e.next.WriteLine(line)
}

var (
	pressColor = color.New(color.FgCyan)
	pumpColor  = color.New(color.FgMagenta)
	laserColor = color.New(color.FgBlue)
	frameColor = color.New(color.FgHiBlack)
	errColor   = color.New(color.FgRed, color.Bold)
	infoColor  = color.New(color.FgGreen)
)

// colorize picks a color from the record's component.
func colorize(line string) string {
	component, _, _ := strings.Cut(line, ",")
	switch {
	case strings.HasPrefix(line, "ERROR,"):
		return errColor.Sprint(line)
	case strings.HasPrefix(line, "{"):
		return infoColor.Sprint(line)
	case line == protocol.PingLine:
		return frameColor.Sprint(line)
	}
	switch component {
	case protocol.ComponentRHLever, protocol.ComponentLHLever, protocol.ComponentLick:
		return pressColor.Sprint(line)
	case protocol.ComponentPump:
		return pumpColor.Sprint(line)
	case protocol.ComponentLaser:
		return laserColor.Sprint(line)
	case protocol.ComponentFrame:
		return frameColor.Sprint(line)
	default:
		return line
	}
}
