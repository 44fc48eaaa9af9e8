// Unit tests for metrics HTTP server
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"reacher-mcu/pkg/device"
	"reacher-mcu/pkg/log"
)

func newTestServer(cfg ServerConfig) (*Server, *SessionMetrics) {
	sm := New()
	return NewServer(sm, cfg, log.Nop()), sm
}

func TestDefaultServerConfig(t *testing.T) {
	cfg := DefaultServerConfig()
	if cfg.Address != "127.0.0.1:9110" {
		t.Errorf("expected default address 127.0.0.1:9110, got %s", cfg.Address)
	}
}

func TestHandleMetrics(t *testing.T) {
	s, sm := newTestServer(DefaultServerConfig())
	sm.Press("RH_LEVER", device.LabelTimeout)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body, _ := io.ReadAll(w.Body)
	want := `reacher_lever_presses_total{label="TIMEOUT",lever="RH_LEVER"} 1`
	if !strings.Contains(string(body), want) {
		t.Errorf("body missing %q", want)
	}
}

func TestHandleMetricsMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(DefaultServerConfig())

	req := httptest.NewRequest(http.MethodPost, "/metrics", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	s, _ := newTestServer(DefaultServerConfig())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK || w.Body.String() != "OK\n" {
		t.Errorf("health = %d %q", w.Code, w.Body.String())
	}
}

func TestHealthCheckFailure(t *testing.T) {
	s, _ := newTestServer(DefaultServerConfig())
	var fault error
	s.SetHealthCheck(func() error { return fault })

	get := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)
		return w
	}

	if w := get(); w.Code != http.StatusOK {
		t.Errorf("health = %d, want 200", w.Code)
	}
	fault = errors.New("rig is shut down: tick_stall")
	if w := get(); w.Code != http.StatusServiceUnavailable || w.Body.String() != "rig is shut down: tick_stall\n" {
		t.Errorf("health = %d %q", w.Code, w.Body.String())
	}
}

func TestHandleReady(t *testing.T) {
	s, _ := newTestServer(DefaultServerConfig())

	check := func(want int) {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, "/ready", nil)
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)
		if w.Code != want {
			t.Errorf("ready = %d, want %d", w.Code, want)
		}
	}

	check(http.StatusServiceUnavailable)
	s.SetReady(true)
	check(http.StatusOK)
}

func TestBasicAuth(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.Username = "admin"
	cfg.Password = "secret"
	s, _ := newTestServer(cfg)

	tests := []struct {
		name       string
		user, pass string
		setAuth    bool
		want       int
	}{
		{"no credentials", "", "", false, http.StatusUnauthorized},
		{"wrong password", "admin", "nope", true, http.StatusUnauthorized},
		{"correct", "admin", "secret", true, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			if tt.setAuth {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			w := httptest.NewRecorder()
			s.Handler().ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestServerLifecycle(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.Address = "127.0.0.1:0"
	s, _ := newTestServer(cfg)

	if s.IsRunning() {
		t.Error("server should not be running before Start")
	}
	errCh := s.Start()
	if !s.IsRunning() {
		t.Error("server should be running after Start")
	}
	if err := s.Shutdown(t.Context()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
	if err, ok := <-errCh; ok && err != nil {
		t.Errorf("server error: %v", err)
	}
	if s.IsRunning() {
		t.Error("server should not be running after Shutdown")
	}
}
