package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the complete controller configuration
type Config struct {
	Serial  SerialConfig  `mapstructure:"serial"`
	Pins    PinsConfig    `mapstructure:"pins"`
	Session SessionConfig `mapstructure:"session"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// SerialConfig defines the host link
type SerialConfig struct {
	Device string `mapstructure:"device"`
	Baud   int    `mapstructure:"baud"`
	Socket string `mapstructure:"socket"` // Unix socket path, used instead of Device when set
}

// PinsConfig maps each rig role to a pin specification
type PinsConfig struct {
	RHLever        string `mapstructure:"rh_lever"`
	LHLever        string `mapstructure:"lh_lever"`
	Cue            string `mapstructure:"cue"`
	Pump           string `mapstructure:"pump"`
	Lick           string `mapstructure:"lick"`
	Laser          string `mapstructure:"laser"`
	ImagingTrigger string `mapstructure:"imaging_trigger"`
	FrameInput     string `mapstructure:"frame_input"`
}

// SessionConfig holds the power-on values of every runtime parameter.
// All durations are in milliseconds.
type SessionConfig struct {
	Sketch             string `mapstructure:"sketch"`
	Version            string `mapstructure:"version"`
	Ratio              uint32 `mapstructure:"ratio"`
	ProgressiveStep    uint32 `mapstructure:"progressive_step"`
	TimeoutMs          uint64 `mapstructure:"timeout_ms"`
	TraceIntervalMs    uint64 `mapstructure:"trace_interval_ms"`
	CueFrequencyHz     uint32 `mapstructure:"cue_frequency_hz"`
	CueDurationMs      uint64 `mapstructure:"cue_duration_ms"`
	InfusionDurationMs uint64 `mapstructure:"infusion_duration_ms"`
	LaserPulseMs       uint64 `mapstructure:"laser_pulse_ms"`
	PingIntervalMs     uint64 `mapstructure:"ping_interval_ms"`
	LeverDebounceMs    uint64 `mapstructure:"lever_debounce_ms"`
	LickDebounceMs     uint64 `mapstructure:"lick_debounce_ms"`
	TickIntervalMs     uint64 `mapstructure:"tick_interval_ms"`
	BootDelayMs        uint64 `mapstructure:"boot_delay_ms"`
	CommandSettleMs    uint64 `mapstructure:"command_settle_ms"`
	TriggerPulseMs     uint64 `mapstructure:"trigger_pulse_ms"`
	StopFlushMs        uint64 `mapstructure:"stop_flush_ms"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig defines the Prometheus exposition endpoint
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// Load loads configuration from file and environment variables.
// An empty path loads defaults and environment only.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("REACHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns the built-in configuration without consulting the
// environment or any file.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	// Defaults always decode cleanly.
	_ = v.Unmarshal(&config)
	return &config
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("serial.device", "/dev/ttyACM0")
	v.SetDefault("serial.baud", 115200)
	v.SetDefault("serial.socket", "")

	// Raspberry Pi header numbering
	v.SetDefault("pins.rh_lever", "^!GPIO17")
	v.SetDefault("pins.lh_lever", "^!GPIO27")
	v.SetDefault("pins.cue", "GPIO12")
	v.SetDefault("pins.pump", "GPIO23")
	v.SetDefault("pins.lick", "^!GPIO22")
	v.SetDefault("pins.laser", "GPIO24")
	v.SetDefault("pins.imaging_trigger", "GPIO25")
	v.SetDefault("pins.frame_input", "~GPIO5")

	v.SetDefault("session.sketch", "operant_PR")
	v.SetDefault("session.version", "1.0.0")
	v.SetDefault("session.ratio", 1)
	v.SetDefault("session.progressive_step", 2)
	v.SetDefault("session.timeout_ms", 20000)
	v.SetDefault("session.trace_interval_ms", 0)
	v.SetDefault("session.cue_frequency_hz", 8000)
	v.SetDefault("session.cue_duration_ms", 1600)
	v.SetDefault("session.infusion_duration_ms", 2000)
	v.SetDefault("session.laser_pulse_ms", 3000)
	v.SetDefault("session.ping_interval_ms", 10000)
	v.SetDefault("session.lever_debounce_ms", 100)
	v.SetDefault("session.lick_debounce_ms", 25)
	v.SetDefault("session.tick_interval_ms", 1)
	v.SetDefault("session.boot_delay_ms", 2000)
	v.SetDefault("session.command_settle_ms", 10)
	v.SetDefault("session.trigger_pulse_ms", 100)
	v.SetDefault("session.stop_flush_ms", 1000)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.address", "127.0.0.1:9110")
}

// validate checks config values that would leave the rig in an unusable state
func validate(c *Config) error {
	if c.Serial.Device == "" && c.Serial.Socket == "" {
		return missing("serial", "device")
	}
	if c.Serial.Baud <= 0 {
		return outOfRange("serial", "baud", int64(c.Serial.Baud), "must be positive")
	}

	if _, err := c.Pins.Parse(); err != nil {
		return err
	}

	s := c.Session
	if s.Ratio < 1 {
		return outOfRange("session", "ratio", int64(s.Ratio), "must be at least 1")
	}
	positive := []struct {
		option string
		value  uint64
	}{
		{"laser_pulse_ms", s.LaserPulseMs},
		{"ping_interval_ms", s.PingIntervalMs},
		{"tick_interval_ms", s.TickIntervalMs},
		{"trigger_pulse_ms", s.TriggerPulseMs},
		{"lever_debounce_ms", s.LeverDebounceMs},
		{"lick_debounce_ms", s.LickDebounceMs},
	}
	for _, p := range positive {
		if p.value == 0 {
			return outOfRange("session", p.option, 0, "must be positive")
		}
	}
	if s.CueFrequencyHz == 0 {
		return outOfRange("session", "cue_frequency_hz", 0, "must be positive")
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return notOneOf("logging", "format", c.Logging.Format, []string{"text", "json"})
	}

	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return missing("metrics", "address")
	}

	return nil
}

// ParsedPins is PinsConfig with every specification parsed.
type ParsedPins struct {
	RHLever        Pin
	LHLever        Pin
	Cue            Pin
	Pump           Pin
	Lick           Pin
	Laser          Pin
	ImagingTrigger Pin
	FrameInput     Pin
}

// Parse parses every pin specification. Inputs accept pull prefixes,
// outputs only inversion.
func (p PinsConfig) Parse() (ParsedPins, error) {
	var out ParsedPins
	specs := []struct {
		option string
		desc   string
		opts   PinOptions
		dst    *Pin
	}{
		{"rh_lever", p.RHLever, InputPinOptions, &out.RHLever},
		{"lh_lever", p.LHLever, InputPinOptions, &out.LHLever},
		{"lick", p.Lick, InputPinOptions, &out.Lick},
		{"frame_input", p.FrameInput, InputPinOptions, &out.FrameInput},
		{"cue", p.Cue, OutputPinOptions, &out.Cue},
		{"pump", p.Pump, OutputPinOptions, &out.Pump},
		{"laser", p.Laser, OutputPinOptions, &out.Laser},
		{"imaging_trigger", p.ImagingTrigger, OutputPinOptions, &out.ImagingTrigger},
	}

	seen := make(map[string]string, len(specs))
	for _, s := range specs {
		if strings.TrimSpace(s.desc) == "" {
			return ParsedPins{}, missing("pins", s.option)
		}
		pin, err := ParsePin(s.desc, s.opts)
		if err != nil {
			return ParsedPins{}, badPin("pins", s.option, err)
		}
		if other, dup := seen[pin.Name]; dup {
			return ParsedPins{}, settingError("pins", s.option,
				fmt.Sprintf("pin %s already assigned to %s", pin.Name, other))
		}
		seen[pin.Name] = s.option
		*s.dst = pin
	}
	return out, nil
}
