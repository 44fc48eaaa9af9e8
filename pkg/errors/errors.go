// Unified error handling for the rig controller
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents the category of error
type ErrorCode string

const (
	// Host command errors
	ErrCommandParse   ErrorCode = "COMMAND_PARSE"
	ErrCommandUnknown ErrorCode = "COMMAND_UNKNOWN"
	ErrCommandParam   ErrorCode = "COMMAND_PARAM"
	ErrCommandState   ErrorCode = "COMMAND_STATE"

	// Hardware errors
	ErrHardwareInit ErrorCode = "HARDWARE_INIT"
	ErrHardwarePin  ErrorCode = "HARDWARE_PIN"

	// Host link errors
	ErrLinkOpen ErrorCode = "LINK_OPEN"
	ErrLinkIO   ErrorCode = "LINK_IO"
)

// HostError is the unified error type for the controller
type HostError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Subject names the command, pin, or device involved
	Subject string

	// Err wraps the underlying error
	Err error
}

// Error implements the error interface
func (e *HostError) Error() string {
	msg := fmt.Sprintf("[%s:%s] %s", e.Code, e.Subject, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *HostError) Unwrap() error {
	return e.Err
}

// SetSubject sets the subject
func (e *HostError) SetSubject(subject string) *HostError {
	e.Subject = subject
	return e
}

// New creates a new HostError
func New(code ErrorCode, message string) *HostError {
	return &HostError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, code ErrorCode, message string) *HostError {
	return &HostError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Command errors

// CommandParseError creates an error for a line that is not a command
func CommandParseError(line string, reason string) *HostError {
	return New(ErrCommandParse, reason).SetSubject(line)
}

// CommandUnknownError creates an error for an unrecognised command keyword
func CommandUnknownError(keyword string) *HostError {
	return New(ErrCommandUnknown, "unknown command").SetSubject(keyword)
}

// CommandParamError creates an error for an invalid command argument
func CommandParamError(keyword, value string, err error) *HostError {
	return Wrap(err, ErrCommandParam, fmt.Sprintf("invalid argument '%s'", value)).SetSubject(keyword)
}

// CommandStateError creates an error for a command not valid in the current state
func CommandStateError(keyword, state string) *HostError {
	return New(ErrCommandState, "not allowed while "+state).SetSubject(keyword)
}

// Hardware errors

// HardwareInitError creates an error for a failed hardware driver init
func HardwareInitError(err error) *HostError {
	return Wrap(err, ErrHardwareInit, "hardware driver initialization failed")
}

// PinError creates an error for a pin that cannot be opened or driven
func PinError(pin string, reason string, err error) *HostError {
	return Wrap(err, ErrHardwarePin, reason).SetSubject(pin)
}

// Link errors

// LinkOpenError creates an error for a host link that cannot be opened
func LinkOpenError(device string, err error) *HostError {
	return Wrap(err, ErrLinkOpen, "unable to open host link").SetSubject(device)
}

// LinkIOError creates an error for a failed read or write on the host link
func LinkIOError(op string, err error) *HostError {
	return Wrap(err, ErrLinkIO, op+" failed")
}

// Is checks if error matches given error code
func Is(err error, code ErrorCode) bool {
	var hostErr *HostError
	if stderrors.As(err, &hostErr) {
		return hostErr.Code == code
	}
	return false
}

// CodeOf returns the code of the first HostError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var hostErr *HostError
	if stderrors.As(err, &hostErr) {
		return hostErr.Code
	}
	return ""
}

// SubjectOf returns the subject of the first HostError in err's chain.
func SubjectOf(err error) string {
	var hostErr *HostError
	if stderrors.As(err, &hostErr) {
		return hostErr.Subject
	}
	return ""
}

// IsCommand checks if error is a host command error
func IsCommand(err error) bool {
	return Is(err, ErrCommandParse) ||
		Is(err, ErrCommandUnknown) ||
		Is(err, ErrCommandParam) ||
		Is(err, ErrCommandState)
}
