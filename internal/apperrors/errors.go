package apperrors

import (
	"fmt"
	"time"
)

// ErrInvalidInput represents a malformed or missing request field that the caller can correct.
type ErrInvalidInput struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ErrInvalidInput) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid input: %s", e.Reason)
}

// Is allows for error checking with errors.Is().
func (e *ErrInvalidInput) Is(target error) bool {
	_, ok := target.(*ErrInvalidInput)
	return ok
}

// NewInvalidInputError creates a new ErrInvalidInput.
func NewInvalidInputError(field, reason string) *ErrInvalidInput {
	return &ErrInvalidInput{
		Field:  field,
		Reason: reason,
	}
}

// ErrTimeout is returned when the translated image did not render within the request budget.
type ErrTimeout struct {
	Stage   string
	Timeout time.Duration
	Cause   error
}

// Error implements the error interface.
func (e *ErrTimeout) Error() string {
	msg := fmt.Sprintf("timed out after %s", e.Timeout)
	if e.Stage != "" {
		msg = fmt.Sprintf("timed out after %s while %s", e.Timeout, e.Stage)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Is allows for error checking with errors.Is().
func (e *ErrTimeout) Is(target error) bool {
	_, ok := target.(*ErrTimeout)
	return ok
}

func (e *ErrTimeout) Unwrap() error {
	return e.Cause
}

// NewTimeoutError creates a new ErrTimeout.
func NewTimeoutError(stage string, timeout time.Duration, cause error) *ErrTimeout {
	return &ErrTimeout{
		Stage:   stage,
		Timeout: timeout,
		Cause:   cause,
	}
}

// ErrUpstreamUI is returned when the translation page did not have the expected structure
// or navigation to it failed.
type ErrUpstreamUI struct {
	Step       string
	Screenshot string
	Cause      error
}

// Error implements the error interface.
func (e *ErrUpstreamUI) Error() string {
	msg := fmt.Sprintf("upstream UI error during %s", e.Step)
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Screenshot != "" {
		msg = fmt.Sprintf("%s (screenshot: %s)", msg, e.Screenshot)
	}
	return msg
}

// Is allows for error checking with errors.Is().
func (e *ErrUpstreamUI) Is(target error) bool {
	_, ok := target.(*ErrUpstreamUI)
	return ok
}

func (e *ErrUpstreamUI) Unwrap() error {
	return e.Cause
}

// NewUpstreamUIError creates a new ErrUpstreamUI.
func NewUpstreamUIError(step string, cause error) *ErrUpstreamUI {
	return &ErrUpstreamUI{
		Step:  step,
		Cause: cause,
	}
}

// ErrNoTextDetected is returned when the translation page itself reports that it could
// not find translatable text in the image.
type ErrNoTextDetected struct {
	Message    string
	Screenshot string
}

// Error implements the error interface.
func (e *ErrNoTextDetected) Error() string {
	if e.Screenshot != "" {
		return fmt.Sprintf("%s (screenshot: %s)", e.Message, e.Screenshot)
	}
	return e.Message
}

// Is allows for error checking with errors.Is().
func (e *ErrNoTextDetected) Is(target error) bool {
	_, ok := target.(*ErrNoTextDetected)
	return ok
}

// NewNoTextDetectedError creates a new ErrNoTextDetected.
func NewNoTextDetectedError(message string) *ErrNoTextDetected {
	return &ErrNoTextDetected{Message: message}
}

// ErrUnavailable is returned when no browser session could be started: the session pool
// stayed full or the upstream circuit is open.
type ErrUnavailable struct {
	Reason string
	Cause  error
}

// Error implements the error interface.
func (e *ErrUnavailable) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("service unavailable: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("service unavailable: %s", e.Reason)
}

// Is allows for error checking with errors.Is().
func (e *ErrUnavailable) Is(target error) bool {
	_, ok := target.(*ErrUnavailable)
	return ok
}

func (e *ErrUnavailable) Unwrap() error {
	return e.Cause
}

// NewUnavailableError creates a new ErrUnavailable.
func NewUnavailableError(reason string, cause error) *ErrUnavailable {
	return &ErrUnavailable{
		Reason: reason,
		Cause:  cause,
	}
}
