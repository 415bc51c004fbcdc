package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDelay is returned when an event is scheduled with a negative
	// (or NaN) delay. It aborts the run.
	ErrInvalidDelay = errors.New("invalid delay")

	// ErrNotHeld is returned when a process releases a pool it holds no grant on.
	ErrNotHeld = errors.New("resource not held")

	// ErrAlreadyHeld is returned when a process requests a pool it already holds.
	// A process holds at most one grant per pool.
	ErrAlreadyHeld = errors.New("resource already held")
)

// ConfigError reports an invalid simulation configuration. It is returned
// before any event runs and is never recovered from.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Field, e.Reason)
}

// NewConfigError builds a ConfigError with a formatted reason.
func NewConfigError(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
