// Package errors defines the stable error code system for mpytest.
package errors

import (
	"errors"
	"fmt"
	"io"
)

// Code is a stable error code string.
type Code string

// Error codes. Stable public contract for scripts wrapping mpytest.
const (
	EUsage    Code = "E_USAGE"
	EInternal Code = "E_INTERNAL"

	// Plan and device file errors
	EPlanNotFound Code = "E_PLAN_NOT_FOUND"
	EPlanInvalid  Code = "E_PLAN_INVALID"
	EDevsNotFound Code = "E_DEVS_NOT_FOUND"
	EDevsInvalid  Code = "E_DEVS_INVALID"

	// Suite resolution errors
	ESuiteNotFound Code = "E_SUITE_NOT_FOUND" // requested suite name absent from plan

	// Allocation and execution errors
	ENoDevice        Code = "E_NO_DEVICE"         // no free device matches a requirement
	ELaunchFailed    Code = "E_LAUNCH_FAILED"     // harness/tool process could not be started
	ETestFailed      Code = "E_TEST_FAILED"       // harness ran and reported failure
	EStubStartFailed Code = "E_STUB_START_FAILED" // stub script upload/start failed

	// Plan run outcome
	ESuitesFailed Code = "E_SUITES_FAILED" // one or more suites did not pass

	// Device utility errors
	EUhubctlFailed  Code = "E_UHUBCTL_FAILED"  // uhubctl invocation failed
	ESwitchNotFound Code = "E_SWITCH_NOT_FOUND" // no power switch port matches a device uid
	EInvalidQuery   Code = "E_INVALID_QUERY"   // bad devs query attribute or filter
)

// HILError is the standard error type for mpytest errors.
type HILError struct {
	Code    Code
	Msg     string
	Cause   error
	Details map[string]string // optional structured context
}

// Error returns the stable error format: "CODE: message".
func (e *HILError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *HILError) Unwrap() error {
	return e.Cause
}

// New creates a new HILError with the given code and message.
func New(code Code, msg string) error {
	return &HILError{Code: code, Msg: msg}
}

// NewWithDetails creates a new HILError with code, message, and details.
// Details map is defensively copied (nil if empty).
func NewWithDetails(code Code, msg string, details map[string]string) error {
	return &HILError{Code: code, Msg: msg, Details: copyDetails(details)}
}

// Wrap creates a new HILError wrapping an underlying error.
func Wrap(code Code, msg string, err error) error {
	return &HILError{Code: code, Msg: msg, Cause: err}
}

// WrapWithDetails creates a new HILError wrapping an underlying error with details.
func WrapWithDetails(code Code, msg string, err error, details map[string]string) error {
	return &HILError{Code: code, Msg: msg, Cause: err, Details: copyDetails(details)}
}

// GetCode extracts the error code from an error, or empty string if not a HILError.
func GetCode(err error) Code {
	var he *HILError
	if errors.As(err, &he) {
		return he.Code
	}
	return ""
}

// AsHILError returns (*HILError, true) if err is or wraps a HILError.
func AsHILError(err error) (*HILError, bool) {
	var he *HILError
	if errors.As(err, &he) {
		return he, true
	}
	return nil, false
}

// copyDetails returns a defensive copy of the details map, or nil if empty/nil.
func copyDetails(details map[string]string) map[string]string {
	if len(details) == 0 {
		return nil
	}
	cp := make(map[string]string, len(details))
	for k, v := range details {
		cp[k] = v
	}
	return cp
}

// ExitCode returns the appropriate exit code for an error.
// Returns 0 if err is nil, 2 for E_USAGE, 1 for all other errors.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if GetCode(err) == EUsage {
		return 2
	}
	return 1
}

// Print writes the error to w in the stable stderr format:
//
//	error_code: <CODE>
//	<message>
func Print(w io.Writer, err error) {
	PrintWithOptions(w, err, PrintOptions{})
}
