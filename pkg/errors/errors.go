// Package errors defines the error taxonomy of spec.md §7: Configuration,
// Geometry, Topology, Communication, and Invariant-violation errors, each
// carrying a stable code so callers can classify fatal aborts from
// non-fatal, accumulated defects without string-matching messages.
package errors

import (
	"errors"
	"fmt"
)

// Error codes, one per spec.md §7 taxonomy entry.
const (
	CodeUnknown            = "UNKNOWN_ERROR"
	CodeConfigError        = "CONFIG_ERROR"        // (i) Configuration
	CodeGeometryDefect     = "GEOMETRY_DEFECT"      // (ii) Geometry — non-fatal
	CodeTopologyMismatch   = "TOPOLOGY_MISMATCH"    // (iii) Topology
	CodeCommunication      = "COMMUNICATION_ERROR"  // (iv) Communication
	CodeInvariantViolation = "INVARIANT_VIOLATION"  // (v) Invariant violation
	CodeNotReady           = "OPERATOR_NOT_READY"   // state-machine misuse, spec.md §4.5
)

// AppError carries a taxonomy code, a message, and an optional wrapped cause.
type AppError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on code, so errors.Is(err, ErrCommunication) holds for any
// communication error regardless of message or wrapped cause.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError with no wrapped cause.
func New(code string, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap wraps an existing error under the given taxonomy code.
func Wrap(code string, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// Sentinel instances for errors.Is comparisons.
var (
	ErrConfigError        = New(CodeConfigError, "invalid configuration")
	ErrGeometryDefect     = New(CodeGeometryDefect, "target point unlocated")
	ErrTopologyMismatch   = New(CodeTopologyMismatch, "field dimension mismatch between source and target")
	ErrCommunication      = New(CodeCommunication, "communication substrate error")
	ErrInvariantViolation = New(CodeInvariantViolation, "invariant violation")
	ErrNotReady           = New(CodeNotReady, "transfer operator not ready")
)

// IsConfigError reports whether err is a Configuration-taxonomy error.
func IsConfigError(err error) bool { return errors.Is(err, ErrConfigError) }

// IsGeometryDefect reports whether err is a Geometry-taxonomy (non-fatal) error.
func IsGeometryDefect(err error) bool { return errors.Is(err, ErrGeometryDefect) }

// IsTopologyMismatch reports whether err is a Topology-taxonomy error.
func IsTopologyMismatch(err error) bool { return errors.Is(err, ErrTopologyMismatch) }

// IsCommunication reports whether err is a Communication-taxonomy error.
func IsCommunication(err error) bool { return errors.Is(err, ErrCommunication) }

// IsInvariantViolation reports whether err is an Invariant-violation error.
func IsInvariantViolation(err error) bool { return errors.Is(err, ErrInvariantViolation) }

// Fatal reports whether err's taxonomy class aborts the whole collective
// per spec.md §7 propagation rules (everything except Geometry defects).
func Fatal(err error) bool {
	return err != nil && !IsGeometryDefect(err)
}

// GetErrorCode extracts the taxonomy code from err, or CodeUnknown.
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}
