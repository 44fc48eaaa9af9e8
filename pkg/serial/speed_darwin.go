//go:build darwin

package serial

import "golang.org/x/sys/unix"

// setSpeed stores the line speed in both directions.
func setSpeed(termios *unix.Termios, speed uint32) {
	termios.Ispeed = uint64(speed)
	termios.Ospeed = uint64(speed)
}
