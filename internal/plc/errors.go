package plc

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes simulator errors.
type ErrorCode string

const (
	// ErrCodeConfiguration indicates an invalid preset, period or declaration.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"

	// ErrCodeUnknownSignal indicates access to an undeclared input or output.
	ErrCodeUnknownSignal ErrorCode = "UNKNOWN_SIGNAL"

	// ErrCodeUnknownTimer indicates a snapshot request for an undeclared timer.
	ErrCodeUnknownTimer ErrorCode = "UNKNOWN_TIMER"

	// ErrCodeUnknownCounter indicates a snapshot request for an undeclared counter.
	ErrCodeUnknownCounter ErrorCode = "UNKNOWN_COUNTER"

	// ErrCodeAlreadyRunning is reported when Start is called on a running engine.
	// Start treats it as a no-op.
	ErrCodeAlreadyRunning ErrorCode = "ENGINE_ALREADY_RUNNING"

	// ErrCodeNotRunning is reported when Stop is called on an idle engine.
	// Stop treats it as a no-op.
	ErrCodeNotRunning ErrorCode = "ENGINE_NOT_RUNNING"

	// ErrCodeStepFault indicates a program step failed or panicked.
	ErrCodeStepFault ErrorCode = "STEP_FAULT"
)

// Error is the structured error returned by the plc, program and engine packages.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Signal names the offending signal, timer or counter, if any.
	Signal string

	// Program names the program that was active, if any.
	Program string

	// Tick is the scan number a step fault happened on.
	Tick uint64

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)

	var details []string
	if e.Signal != "" {
		details = append(details, "signal="+e.Signal)
	}
	if e.Program != "" {
		details = append(details, "program="+e.Program)
	}
	if e.Tick != 0 {
		details = append(details, fmt.Sprintf("tick=%d", e.Tick))
	}
	if len(details) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(details, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewConfigurationError creates an Error for an invalid construction parameter.
func NewConfigurationError(format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeConfiguration,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewUnknownSignal creates an Error for access to an undeclared signal.
func NewUnknownSignal(dir Direction, name string) *Error {
	return &Error{
		Code:    ErrCodeUnknownSignal,
		Message: fmt.Sprintf("%s signal is not declared", dir),
		Signal:  name,
	}
}

// NewUnknownTimer creates an Error for a snapshot of an undeclared timer.
func NewUnknownTimer(name string) *Error {
	return &Error{
		Code:    ErrCodeUnknownTimer,
		Message: "timer is not declared",
		Signal:  name,
	}
}

// NewUnknownCounter creates an Error for a snapshot of an undeclared counter.
func NewUnknownCounter(name string) *Error {
	return &Error{
		Code:    ErrCodeUnknownCounter,
		Message: "counter is not declared",
		Signal:  name,
	}
}

// NewStepFault wraps a failure raised while a program was scanning.
func NewStepFault(program string, tick uint64, cause error) *Error {
	return &Error{
		Code:    ErrCodeStepFault,
		Message: "program step failed",
		Program: program,
		Tick:    tick,
		Err:     cause,
	}
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code, true
	}
	return "", false
}

// IsConfigurationError returns true if err is a configuration error.
// Uses errors.As to handle wrapped errors.
func IsConfigurationError(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrCodeConfiguration
}

// IsUnknownSignal returns true if err reports an undeclared signal.
func IsUnknownSignal(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrCodeUnknownSignal
}

// IsStepFault returns true if err is a recovered program step failure.
func IsStepFault(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrCodeStepFault
}
