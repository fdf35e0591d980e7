// Package model defines the domain types for the homematic-exporter CLI.
package model

import (
	"fmt"
	"strings"
)

// ParameterType represents the TYPE field of a Homematic paramset
// description entry. The CCU interface daemon reports one of these for
// every parameter in a VALUES paramset, and the legacy collector uses it
// to decide how a parameter is turned into a metric.
type ParameterType string

const (
	// TypeFloat is a floating point parameter (e.g. ACTUAL_TEMPERATURE).
	TypeFloat ParameterType = "FLOAT"

	// TypeInteger is an integer parameter (e.g. RSSI_DEVICE).
	TypeInteger ParameterType = "INTEGER"

	// TypeBool is a boolean parameter (e.g. LOW_BAT). Exported as 0/1.
	TypeBool ParameterType = "BOOL"

	// TypeEnum is an enumerated parameter (e.g. ERROR_CODE). The paramset
	// description carries the VALUE_LIST with one name per ordinal value.
	TypeEnum ParameterType = "ENUM"

	// TypeAction is a write-only trigger parameter. Not exported.
	TypeAction ParameterType = "ACTION"

	// TypeString is a free-form string parameter (e.g. PARTY_TIME_START).
	// Not exported.
	TypeString ParameterType = "STRING"
)

// String returns the string representation of ParameterType.
func (t ParameterType) String() string {
	return string(t)
}

// IsNumeric reports whether parameters of this type carry a value that can
// be exported directly as a gauge (FLOAT, INTEGER and BOOL, where BOOL maps
// to 0/1).
func (t ParameterType) IsNumeric() bool {
	switch t {
	case TypeFloat, TypeInteger, TypeBool:
		return true
	default:
		return false
	}
}

// ParseParameterType converts a string from a paramset description into a
// ParameterType. Unknown types are returned as-is so callers can log them;
// the collector only acts on the known ones.
func ParseParameterType(s string) ParameterType {
	return ParameterType(strings.ToUpper(s))
}

// ExitCode defines the CLI exit codes. These codes allow scripts, container
// orchestrators and CI systems to programmatically determine the outcome of
// a command — in particular the healthcheck command, whose exit status is
// the liveness signal.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitConfigError indicates the config file could not be read or parsed.
	ExitConfigError ExitCode = 2

	// ExitCCUUnreachable indicates the CCU did not answer on the configured
	// host/port.
	ExitCCUUnreachable ExitCode = 3

	// ExitInvalidArgument indicates a flag or argument failed validation.
	ExitInvalidArgument ExitCode = 4
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
