package protocol

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"reacher-mcu/pkg/log"
)

func drain(t *testing.T, r *LineReader, want int) []string {
	t.Helper()
	var got []string
	deadline := time.Now().Add(2 * time.Second)
	for len(got) < want && time.Now().Before(deadline) {
		if line, ok := r.Next(); ok {
			got = append(got, line)
			continue
		}
		time.Sleep(time.Millisecond)
	}
	return got
}

func waitErr(t *testing.T, r *LineReader) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for r.Err() == nil && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
}

func TestLineReaderSplitsLines(t *testing.T) {
	src := strings.NewReader("LINK\r\nARM_CS\n\nSET_RATIO:3\npartial")
	r := NewLineReader(src, log.Nop())
	r.Start()

	got := drain(t, r, 4)
	want := []string{"LINK", "ARM_CS", "", "SET_RATIO:3"}
	if len(got) != len(want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}

	waitErr(t, r)
	if err := r.Stop(); err != io.EOF {
		t.Errorf("Stop() = %v, want EOF", err)
	}
	if _, ok := r.Next(); ok {
		t.Error("partial trailing line must not be delivered")
	}
}

func TestLineReaderDropsOverlongLines(t *testing.T) {
	long := strings.Repeat("X", MaxLineLength+10)
	src := strings.NewReader(long + "\nLINK\n")
	r := NewLineReader(src, log.Nop())
	r.Start()

	got := drain(t, r, 1)
	if len(got) != 1 || got[0] != "LINK" {
		t.Fatalf("got %q, want [LINK]", got)
	}
	r.Stop()
	if r.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", r.Dropped())
	}
}

func TestLineReaderPipe(t *testing.T) {
	pr, pw := io.Pipe()
	r := NewLineReader(pr, log.Nop())
	r.Start()

	go func() {
		pw.Write([]byte("STA"))
		pw.Write([]byte("RT-PROGRAM\n"))
		pw.Close()
	}()

	got := drain(t, r, 1)
	if len(got) != 1 || got[0] != "START-PROGRAM" {
		t.Fatalf("got %q", got)
	}
	r.Stop()
}

func TestLineWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewLineWriter(&buf)

	w.WriteLine(PingLine)
	w.WriteLine(Record{ComponentLick, EventLick, 1, 2}.String())

	if got := buf.String(); got != "ping\nLICK_CIRCUIT,LICK,1,2\n" {
		t.Errorf("output = %q", got)
	}
	if w.Lines() != 2 {
		t.Errorf("Lines() = %d, want 2", w.Lines())
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestLineWriterError(t *testing.T) {
	w := NewLineWriter(failingWriter{})
	if err := w.WriteLine("ping"); err == nil {
		t.Error("expected write error")
	}
}
