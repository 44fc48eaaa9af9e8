package serial

import (
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"
)

func TestBaudRateToSpeed(t *testing.T) {
	for _, baud := range []int{9600, 57600, 115200, 230400} {
		if _, custom, err := baudRateToSpeed(baud); err != nil || custom != 0 {
			t.Errorf("baudRateToSpeed(%d) = custom %d, err %v", baud, custom, err)
		}
	}
}

func TestOpenRequiresDevice(t *testing.T) {
	if _, err := Open(Config{}); err == nil {
		t.Error("Open with empty device should fail")
	}
	if _, err := OpenSocket("", 0); err == nil {
		t.Error("OpenSocket with empty path should fail")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.BaudRate != 115200 {
		t.Errorf("BaudRate = %d, want 115200", cfg.BaudRate)
	}
	if cfg.ReadTimeout != 100*time.Millisecond {
		t.Errorf("ReadTimeout = %v, want 100ms", cfg.ReadTimeout)
	}
}

func TestResolveDevicePassThrough(t *testing.T) {
	got, err := ResolveDevice("/dev/ttyACM0")
	if err != nil || got != "/dev/ttyACM0" {
		t.Errorf("ResolveDevice = %s, %v", got, err)
	}
}

func TestSocketRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rig.sock")
	l, err := Listen(path)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer l.Close()

	if _, err := l.Accept(10 * time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Fatalf("Accept with no client = %v, want ErrTimeout", err)
	}

	type result struct {
		p   *Port
		err error
	}
	accepted := make(chan result, 1)
	go func() {
		p, err := l.Accept(2 * time.Second)
		accepted <- result{p, err}
	}()

	client, err := OpenSocket(path, time.Second)
	if err != nil {
		t.Fatalf("OpenSocket: %v", err)
	}
	defer client.Close()

	res := <-accepted
	if res.err != nil {
		t.Fatalf("Accept: %v", res.err)
	}
	server := res.p
	if !server.IsSocket() || server.Device() != path {
		t.Errorf("server port = %s socket=%v", server.Device(), server.IsSocket())
	}

	if _, err := client.Write([]byte("LINK\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	buf := make([]byte, 16)
	server.SetReadTimeout(time.Second)
	n, err := server.Read(buf)
	if err != nil || string(buf[:n]) != "LINK\n" {
		t.Fatalf("Read = %q, %v", buf[:n], err)
	}

	server.SetReadTimeout(10 * time.Millisecond)
	if _, err := server.Read(buf); !errors.Is(err, ErrTimeout) {
		t.Errorf("idle Read = %v, want ErrTimeout", err)
	}

	client.Close()
	server.SetReadTimeout(time.Second)
	if _, err := server.Read(buf); err != io.EOF {
		t.Errorf("Read after hangup = %v, want EOF", err)
	}

	server.Close()
	if _, err := server.Read(buf); !errors.Is(err, ErrClosed) {
		t.Errorf("Read after Close = %v, want ErrClosed", err)
	}
	if err := server.Flush(); !errors.Is(err, ErrClosed) {
		t.Errorf("Flush after Close = %v, want ErrClosed", err)
	}
}

func TestCloseUnblocksSocketWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rig.sock")
	l, err := Listen(path)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer l.Close()

	accepted := make(chan *Port, 1)
	go func() {
		p, _ := l.Accept(2 * time.Second)
		accepted <- p
	}()
	client, err := OpenSocket(path, time.Second)
	if err != nil {
		t.Fatalf("OpenSocket: %v", err)
	}
	defer client.Close()
	server := <-accepted
	if server == nil {
		t.Fatal("Accept failed")
	}

	// The client never reads, so the server eventually blocks in Write.
	done := make(chan error, 1)
	go func() {
		chunk := make([]byte, 64*1024)
		for {
			if _, err := server.Write(chunk); err != nil {
				done <- err
				return
			}
		}
	}()

	time.Sleep(100 * time.Millisecond)
	server.Close()
	select {
	case err := <-done:
		if err == nil {
			t.Error("Write after Close should fail")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not unblock a pending Write")
	}
}
