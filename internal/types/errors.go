package types

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the session manager and trigger engine.
var (
	// ErrDeviceNotFound indicates a start request named a device ID that is
	// not present in the current enumeration.
	ErrDeviceNotFound = errors.New("audio device not found")
	// ErrSessionNotFound indicates a stop request named an unknown or already
	// removed session ID.
	ErrSessionNotFound = errors.New("recording session not found")
	// ErrTriggerNotFound indicates a remove request named an unknown trigger ID.
	ErrTriggerNotFound = errors.New("trigger not found")
	// ErrInvalidFormat indicates an unsupported output format was requested.
	ErrInvalidFormat = errors.New("unsupported audio format")
)

// StorageError wraps a filesystem failure on the recording path (directory
// creation, file creation, disk writes).
type StorageError struct {
	Op   string // Operation that failed (mkdir, create, write)
	Path string // Path involved
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// StreamError wraps a failure in the capture or encode stream of a session.
type StreamError struct {
	Stage string // Pipeline stage that failed (capture, encode)
	Err   error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream %s: %v", e.Stage, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

// FieldError represents a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`   // JSON path to the field (e.g., "silence.threshold_ms")
	Message string `json:"message"` // Human-readable error message
	Value   any    `json:"value"`   // The invalid value that was provided
}

// ValidationError collects multiple field validation errors.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

// NewValidationError creates a new empty ValidationError.
func NewValidationError() *ValidationError {
	return &ValidationError{
		Errors: make([]FieldError, 0),
	}
}

// Add adds a field error to the collection.
func (v *ValidationError) Add(field, message string, value any) {
	v.Errors = append(v.Errors, FieldError{
		Field:   field,
		Message: message,
		Value:   value,
	})
}
