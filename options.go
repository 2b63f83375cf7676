package redisless

import (
	"net"
	"time"

	"github.com/raniellyferreira/redisless/lua"
)

// config holds the configuration for a Server
type config struct {
	host string

	// Timeouts and limits
	idleTimeout     time.Duration
	shutdownTimeout time.Duration
	maxClients      int
	scriptCacheSize int

	// Observability
	logger  Logger
	metrics MetricsCollector
}

// defaultConfig returns a configuration with sensible defaults
func defaultConfig() *config {
	return &config{
		host:            "127.0.0.1",
		idleTimeout:     0, // disabled
		shutdownTimeout: 10 * time.Second,
		maxClients:      0, // unlimited
		scriptCacheSize: lua.DefaultCacheSize,
		logger:          defaultLogger(),
	}
}

// Option represents a configuration option for a Server
type Option func(*config) error

// WithHost sets the interface to listen on. The default is 127.0.0.1;
// use "0.0.0.0" or "" to listen on all interfaces.
//
// Example:
//
//	WithHost("0.0.0.0")
func WithHost(host string) Option {
	return func(c *config) error {
		if host != "" && net.ParseIP(host) == nil && host != "localhost" {
			return &ConfigError{Option: "host", Reason: "not an IP address: " + host}
		}
		c.host = host
		return nil
	}
}

// WithLogger sets a custom logger for the server
//
// Example:
//
//	WithLogger(redisless.NewZapLogger(zapLogger))
func WithLogger(logger Logger) Option {
	return func(c *config) error {
		if logger == nil {
			return &ConfigError{Option: "logger", Reason: "nil logger"}
		}
		c.logger = logger
		return nil
	}
}

// WithMetrics enables metrics collection with the provided collector
func WithMetrics(collector MetricsCollector) Option {
	return func(c *config) error {
		c.metrics = collector
		return nil
	}
}

// WithIdleTimeout closes client connections that stay silent for longer
// than timeout. Zero disables it.
func WithIdleTimeout(timeout time.Duration) Option {
	return func(c *config) error {
		if timeout < 0 {
			return &ConfigError{Option: "idle timeout", Reason: "negative duration"}
		}
		c.idleTimeout = timeout
		return nil
	}
}

// WithShutdownTimeout bounds how long Stop waits for connection
// goroutines to exit.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(c *config) error {
		if timeout <= 0 {
			return &ConfigError{Option: "shutdown timeout", Reason: "must be positive"}
		}
		c.shutdownTimeout = timeout
		return nil
	}
}

// WithMaxClients limits the number of concurrent connections. Zero means
// unlimited.
func WithMaxClients(n int) Option {
	return func(c *config) error {
		if n < 0 {
			return &ConfigError{Option: "max clients", Reason: "negative limit"}
		}
		c.maxClients = n
		return nil
	}
}

// WithScriptCacheSize sets how many Lua scripts SCRIPT LOAD and EVAL keep
// cached.
func WithScriptCacheSize(n int) Option {
	return func(c *config) error {
		if n <= 0 {
			return &ConfigError{Option: "script cache size", Reason: "must be positive"}
		}
		c.scriptCacheSize = n
		return nil
	}
}
