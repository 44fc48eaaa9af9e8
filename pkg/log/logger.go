// Structured logging for the rig controller
//
// Thin layer over zerolog providing:
// - Level and format selection (text console or JSON)
// - Environment overrides (REACHER_LOG_LEVEL, REACHER_LOG_FORMAT, NO_COLOR)
// - Per-component loggers tagged with a "component" field
//
// Logs always go to a writer distinct from the host link; protocol lines
// are never interleaved with log output.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package log

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config selects the logger level, format, and destination.
type Config struct {
	Level   string
	Format  string // "text" or "json"
	NoColor bool
	Writer  io.Writer // defaults to os.Stderr
}

var (
	mu   sync.RWMutex
	base = zerolog.New(os.Stderr).With().Timestamp().Logger()
)

// ParseLevel parses a string into a zerolog level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// ConfigureFromEnv applies environment overrides to cfg.
// Environment variables:
//   - REACHER_LOG_LEVEL: debug, info, warn, error
//   - REACHER_LOG_FORMAT: text, json
//   - NO_COLOR: any non-empty value disables colors
func ConfigureFromEnv(cfg *Config) {
	if level := os.Getenv("REACHER_LOG_LEVEL"); level != "" {
		cfg.Level = level
	}
	if format := os.Getenv("REACHER_LOG_FORMAT"); format != "" {
		cfg.Format = strings.ToLower(format)
	}
	if os.Getenv("NO_COLOR") != "" {
		cfg.NoColor = true
	}
}

// Setup builds the base logger from cfg and installs it for New.
func Setup(cfg Config) zerolog.Logger {
	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}

	var logger zerolog.Logger
	if cfg.Format == "json" {
		logger = zerolog.New(w)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        w,
			NoColor:    cfg.NoColor,
			TimeFormat: "15:04:05.000",
		})
	}
	logger = logger.Level(ParseLevel(cfg.Level)).With().Timestamp().Logger()

	mu.Lock()
	base = logger
	mu.Unlock()
	return logger
}

// New returns a logger tagged with the given component name.
func New(component string) zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base.With().Str("component", component).Logger()
}

// Nop returns a disabled logger, for tests and tools that stay quiet.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
}
