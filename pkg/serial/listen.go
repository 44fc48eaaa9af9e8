package serial

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Listener accepts host connections on a Unix socket. The simulated rig
// uses it to expose its link the way a USB serial gadget would.
type Listener struct {
	mu     sync.Mutex
	fd     int
	path   string
	closed bool
}

// Listen creates a Unix socket at path, replacing a stale one.
func Listen(path string) (*Listener, error) {
	if path == "" {
		return nil, errors.New("serial: socket path required")
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("serial: remove stale socket %s: %w", path, err)
	}

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("serial: create socket: %w", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("serial: bind %s: %w", path, err)
	}
	if err := unix.Listen(fd, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("serial: listen %s: %w", path, err)
	}

	return &Listener{fd: fd, path: path}, nil
}

// Path returns the socket path.
func (l *Listener) Path() string { return l.path }

// Accept waits up to timeout for one connection. It returns ErrTimeout when
// none arrives and ErrClosed once the listener is closed.
func (l *Listener) Accept(timeout time.Duration) (*Port, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, ErrClosed
	}
	fd := l.fd
	l.mu.Unlock()

	pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	n, err := unix.Poll(pfd, int(timeout.Milliseconds()))
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("serial: poll: %w", err)
	}
	if n == 0 {
		return nil, ErrTimeout
	}

	conn, _, err := unix.Accept(fd)
	if err != nil {
		return nil, fmt.Errorf("serial: accept: %w", err)
	}
	return newSocketPort(conn, l.path), nil
}

// Close closes the listener and removes the socket file.
func (l *Listener) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	err := unix.Close(l.fd)
	os.Remove(l.path)
	return err
}
