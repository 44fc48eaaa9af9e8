// HTTP server for the Prometheus endpoint
//
// Serves /metrics from a SessionMetrics registry, plus /health and /ready
// probes. Basic authentication is optional.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// ServerConfig holds server configuration
type ServerConfig struct {
	// Address to listen on (e.g., "127.0.0.1:9110")
	Address string

	// Optional basic auth credentials
	Username string
	Password string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Address:      "127.0.0.1:9110",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Server serves the metrics endpoint.
type Server struct {
	sm       *SessionMetrics
	addr     string
	server   *http.Server
	mux      *http.ServeMux
	logger   zerolog.Logger
	listener net.Listener

	username string
	password string

	mu        sync.RWMutex
	running   bool
	ready     bool
	health    func() error
	startTime time.Time
}

// NewServer creates a server for sm with the given config.
func NewServer(sm *SessionMetrics, config ServerConfig, logger zerolog.Logger) *Server {
	s := &Server{
		sm:       sm,
		addr:     config.Address,
		mux:      http.NewServeMux(),
		logger:   logger.With().Str("component", "metrics").Logger(),
		username: config.Username,
		password: config.Password,
	}

	metricsHandler := promhttp.HandlerFor(sm.Registry(), promhttp.HandlerOpts{})
	s.mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		if !s.checkAuth(w, r) {
			return
		}
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		metricsHandler.ServeHTTP(w, r)
	})
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/ready", s.handleReady)

	s.server = &http.Server{
		Addr:         config.Address,
		Handler:      s.mux,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return s
}

// SetListener makes Start serve on ln, e.g. a systemd socket-activated
// listener, instead of binding Address.
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start serves in a goroutine. Errors other than a normal shutdown are
// logged and sent on the returned channel.
func (s *Server) Start() <-chan error {
	s.mu.Lock()
	s.running = true
	s.startTime = time.Now()
	s.mu.Unlock()

	errCh := make(chan error, 1)
	s.logger.Info().Str("addr", s.addr).Msg("starting metrics server")
	go func() {
		defer close(errCh)
		var err error
		if s.listener != nil {
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("metrics server error")
			errCh <- fmt.Errorf("metrics server error: %w", err)
		}
	}()
	return errCh
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info().Msg("stopping metrics server")
	return s.server.Shutdown(ctx)
}

// SetHealthCheck installs fn behind /health. A non-nil error answers 503
// with the error text.
func (s *Server) SetHealthCheck(fn func() error) {
	s.mu.Lock()
	s.health = fn
	s.mu.Unlock()
}

// SetReady flips the /ready probe. The controller is ready once the boot
// delay has passed and the tick loop runs.
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	s.ready = ready
	s.mu.Unlock()
}

// Handler returns the server's mux, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.mux }

// Address returns the configured address.
func (s *Server) Address() string { return s.addr }

// IsRunning reports whether Start was called and Shutdown was not.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	check := s.health
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "text/plain")
	if check != nil {
		if err := check(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(err.Error() + "\n"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK\n"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	ready := s.ready
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "text/plain")
	if ready {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Ready\n"))
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("Not Ready\n"))
	}
}

// checkAuth verifies basic auth if configured
func (s *Server) checkAuth(w http.ResponseWriter, r *http.Request) bool {
	if s.username == "" && s.password == "" {
		return true
	}

	username, password, ok := r.BasicAuth()
	if ok &&
		subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1 &&
		subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) == 1 {
		return true
	}

	w.Header().Set("WWW-Authenticate", `Basic realm="Rig Metrics"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
	return false
}
