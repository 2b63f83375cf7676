package redisless

import (
	"errors"
	"fmt"
)

// Error types for specific failure scenarios
var (
	// ErrServerStopped indicates the server has been stopped and cannot be restarted
	ErrServerStopped = errors.New("server is stopped")

	// ErrNotStarted indicates an operation that requires a started server
	ErrNotStarted = errors.New("server is not started")

	// ErrInvalidConfig indicates invalid configuration options
	ErrInvalidConfig = errors.New("invalid configuration")
)

// BindError reports that the listening socket could not be opened
type BindError struct {
	Addr string
	Err  error
}

// Error implements the error interface
func (e *BindError) Error() string {
	return fmt.Sprintf("failed to bind %s: %v", e.Addr, e.Err)
}

// Unwrap returns the wrapped error
func (e *BindError) Unwrap() error {
	return e.Err
}

// LifecycleError reports a Start or Stop that is not valid in the
// server's current state
type LifecycleError struct {
	Op    string
	State ServerState
	Err   error
}

// Error implements the error interface
func (e *LifecycleError) Error() string {
	return fmt.Sprintf("cannot %s server in state %s: %v", e.Op, e.State, e.Err)
}

// Unwrap returns the wrapped error
func (e *LifecycleError) Unwrap() error {
	return e.Err
}

// ConfigError reports which option was rejected
type ConfigError struct {
	Option string
	Reason string
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration for %s: %s", e.Option, e.Reason)
}

// Unwrap returns ErrInvalidConfig
func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}
