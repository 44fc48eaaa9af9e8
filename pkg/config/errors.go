// Package config loads controller settings from a YAML file and the
// environment, and parses pin specifications.
package config

import (
	"fmt"
	"strings"
)

// ConfigError reports an invalid setting. Section and Option are empty for
// errors in a bare pin specification.
type ConfigError struct {
	Section string
	Option  string
	Reason  string
	Err     error
}

// Key returns the dotted key used in the YAML file, e.g. "session.ratio".
func (e *ConfigError) Key() string {
	if e.Option == "" {
		return e.Section
	}
	return e.Section + "." + e.Option
}

// EnvVar returns the environment variable overriding the setting.
func (e *ConfigError) EnvVar() string {
	return "REACHER_" + strings.ToUpper(strings.ReplaceAll(e.Key(), ".", "_"))
}

func (e *ConfigError) Error() string {
	msg := e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Section == "" {
		return "config: " + msg
	}
	return fmt.Sprintf("config %s (%s): %s", e.Key(), e.EnvVar(), msg)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func settingError(section, option, reason string) *ConfigError {
	return &ConfigError{Section: section, Option: option, Reason: reason}
}

func missing(section, option string) *ConfigError {
	return settingError(section, option, "required")
}

func outOfRange(section, option string, value int64, constraint string) *ConfigError {
	return settingError(section, option, fmt.Sprintf("%d %s", value, constraint))
}

func notOneOf(section, option, value string, choices []string) *ConfigError {
	return settingError(section, option,
		fmt.Sprintf("%q is not one of %s", value, strings.Join(choices, ", ")))
}

func badPin(section, option string, err error) *ConfigError {
	return &ConfigError{Section: section, Option: option, Reason: "bad pin", Err: err}
}
