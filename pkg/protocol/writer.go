package protocol

import (
	"io"
	"sync"

	"reacher-mcu/pkg/errors"
)

// LineWriter writes newline-terminated lines to the host link. It is safe
// for concurrent use.
type LineWriter struct {
	mu    sync.Mutex
	w     io.Writer
	lines uint64
	buf   []byte
}

// NewLineWriter wraps w.
func NewLineWriter(w io.Writer) *LineWriter {
	return &LineWriter{w: w}
}

// WriteLine writes line followed by a newline.
func (lw *LineWriter) WriteLine(line string) error {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	lw.buf = append(lw.buf[:0], line...)
	lw.buf = append(lw.buf, '\n')
	if _, err := lw.w.Write(lw.buf); err != nil {
		return errors.LinkIOError("write", err)
	}
	lw.lines++
	return nil
}

// Lines returns the number of lines written.
func (lw *LineWriter) Lines() uint64 {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.lines
}
