package variant

import (
	"errors"
	"fmt"
)

// ErrAlreadyStarted is returned when Start is called on a job that is not idle.
var ErrAlreadyStarted = errors.New("job already started")

// ErrNotStarted is returned by Wait on a job that was never started.
var ErrNotStarted = errors.New("job not started")

// ErrCancelled is returned by Wait when the run stopped on a cancellation request.
var ErrCancelled = errors.New("job cancelled")

var errRequired = errors.New("is required")

// ConfigurationError reports a request that was rejected before a job existed.
type ConfigurationError struct {
	Field string
	Err   error
}

// Error formats the rejected field and reason.
func (e *ConfigurationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field == "" {
		return fmt.Sprintf("invalid configuration: %v", e.Err)
	}
	return fmt.Sprintf("invalid configuration: %s: %v", e.Field, e.Err)
}

// Unwrap exposes the underlying validation error.
func (e *ConfigurationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ResourceLoadError reports a source image that could not be read or decoded.
// No step runs after it.
type ResourceLoadError struct {
	Path string
	Err  error
}

// Error formats the failing path and reason.
func (e *ResourceLoadError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("failed to load source image %s: %v", e.Path, e.Err)
}

// Unwrap exposes the underlying I/O or decode error.
func (e *ResourceLoadError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// PersistenceError reports a step whose output file could not be written.
type PersistenceError struct {
	Step int
	Path string
	Err  error
}

// Error formats the step, path, and reason.
func (e *PersistenceError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("step %d: failed to write %s: %v", e.Step, e.Path, e.Err)
}

// Unwrap exposes the underlying write error.
func (e *PersistenceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
