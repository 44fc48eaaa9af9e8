package protocol

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"reacher-mcu/pkg/serial"
)

// MaxLineLength bounds a single command line. Longer input is discarded up
// to the next newline.
const MaxLineLength = 256

// ErrReaderClosed is returned by Err once the reader has been stopped.
var ErrReaderClosed = stderrors.New("protocol: reader closed")

// timeoutSetter is implemented by serial.Port.
type timeoutSetter interface {
	SetReadTimeout(d time.Duration)
}

// LineReader splits the host link into lines on a background goroutine and
// hands them to the tick loop one at a time.
type LineReader struct {
	src   io.Reader
	lines chan string
	log   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	closeErr error
	dropped  int

	readBuf []byte
}

// NewLineReader creates a reader over src. Call Start to begin reading.
func NewLineReader(src io.Reader, logger zerolog.Logger) *LineReader {
	ctx, cancel := context.WithCancel(context.Background())
	return &LineReader{
		src:     src,
		lines:   make(chan string, 64),
		log:     logger,
		ctx:     ctx,
		cancel:  cancel,
		readBuf: make([]byte, 512),
	}
}

// Start begins the background read goroutine.
func (r *LineReader) Start() {
	r.wg.Add(1)
	go r.readLoop()
}

// Stop stops the reader and waits for the goroutine to exit. The source
// must be closed first if its Read can block without a timeout.
func (r *LineReader) Stop() error {
	r.cancel()
	r.wg.Wait()
	return r.Err()
}

// Next returns the next complete line without blocking.
func (r *LineReader) Next() (string, bool) {
	select {
	case line := <-r.lines:
		return line, true
	default:
		return "", false
	}
}

// Err returns the error that ended the read loop, if any.
func (r *LineReader) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeErr
}

// Dropped returns the number of overlong lines discarded.
func (r *LineReader) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

func (r *LineReader) readLoop() {
	defer r.wg.Done()

	if ts, ok := r.src.(timeoutSetter); ok {
		ts.SetReadTimeout(100 * time.Millisecond)
	}

	var buffer []byte
	discarding := false

	for {
		select {
		case <-r.ctx.Done():
			r.setErr(ErrReaderClosed)
			return
		default:
		}

		n, err := r.src.Read(r.readBuf)
		if n > 0 {
			buffer = append(buffer, r.readBuf[:n]...)
		}

		for {
			idx := bytes.IndexByte(buffer, '\n')
			if idx < 0 {
				break
			}
			line := buffer[:idx]
			buffer = buffer[idx+1:]
			if discarding {
				discarding = false
				continue
			}
			if len(line) > MaxLineLength {
				r.drop(len(line))
				continue
			}
			if !r.deliver(string(bytes.TrimRight(line, "\r"))) {
				return
			}
		}
		if len(buffer) > MaxLineLength {
			r.drop(len(buffer))
			buffer = buffer[:0]
			discarding = true
		}

		if err != nil {
			if stderrors.Is(err, serial.ErrTimeout) {
				continue
			}
			if stderrors.Is(err, io.EOF) || stderrors.Is(err, serial.ErrClosed) ||
				stderrors.Is(err, io.ErrClosedPipe) {
				r.setErr(err)
				return
			}
			r.log.Debug().Err(err).Msg("link read error")
		}
	}
}

func (r *LineReader) deliver(line string) bool {
	select {
	case r.lines <- line:
		return true
	case <-r.ctx.Done():
		r.setErr(ErrReaderClosed)
		return false
	}
}

func (r *LineReader) drop(n int) {
	r.mu.Lock()
	r.dropped++
	r.mu.Unlock()
	r.log.Warn().Int("bytes", n).Msg("discarding overlong line")
}

func (r *LineReader) setErr(err error) {
	r.mu.Lock()
	if r.closeErr == nil {
		r.closeErr = err
	}
	r.mu.Unlock()
}
