package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "without underlying error",
			err:      New(CodeGeometryDefect, "point unlocated"),
			expected: "[GEOMETRY_DEFECT] point unlocated",
		},
		{
			name:     "with underlying error",
			err:      Wrap(CodeCommunication, "send failed", errors.New("connection reset")),
			expected: "[COMMUNICATION_ERROR] send failed: connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := Wrap(CodeTopologyMismatch, "dimension mismatch", underlying)

	assert.Equal(t, underlying, err.Unwrap())
}

func TestAppError_Is(t *testing.T) {
	err1 := New(CodeConfigError, "error 1")
	err2 := New(CodeConfigError, "error 2")
	err3 := New(CodeCommunication, "error 3")

	assert.True(t, errors.Is(err1, err2))
	assert.False(t, errors.Is(err1, err3))
}

func TestIsGeometryDefect(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "geometry defect", err: ErrGeometryDefect, expected: true},
		{name: "wrapped geometry defect", err: Wrap(CodeGeometryDefect, "unlocated", errors.New("outside box")), expected: true},
		{name: "other error", err: ErrConfigError, expected: false},
		{name: "nil error", err: nil, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsGeometryDefect(tt.err))
		})
	}
}

func TestIsTopologyMismatch(t *testing.T) {
	assert.True(t, IsTopologyMismatch(ErrTopologyMismatch))
	assert.False(t, IsTopologyMismatch(ErrConfigError))
}

func TestIsCommunication(t *testing.T) {
	assert.True(t, IsCommunication(ErrCommunication))
	assert.False(t, IsCommunication(ErrConfigError))
}

func TestIsInvariantViolation(t *testing.T) {
	assert.True(t, IsInvariantViolation(ErrInvariantViolation))
	assert.False(t, IsInvariantViolation(ErrConfigError))
}

func TestFatal(t *testing.T) {
	assert.False(t, Fatal(nil))
	assert.False(t, Fatal(ErrGeometryDefect))
	assert.True(t, Fatal(ErrCommunication))
	assert.True(t, Fatal(ErrConfigError))
	assert.True(t, Fatal(ErrInvariantViolation))
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "app error", err: New(CodeConfigError, "bad option"), expected: CodeConfigError},
		{name: "wrapped app error", err: Wrap(CodeCommunication, "send", errors.New("inner")), expected: CodeCommunication},
		{name: "standard error", err: errors.New("standard error"), expected: CodeUnknown},
		{name: "nil error", err: nil, expected: CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetErrorCode(tt.err))
		})
	}
}
