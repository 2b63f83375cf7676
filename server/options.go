package server

import "time"

// Logger is the logging interface used by the server. fields are
// alternating key/value pairs.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// MetricsCollector receives per-command and per-connection events
type MetricsCollector interface {
	RecordCommandProcessed(cmd string, duration time.Duration)
	RecordError(errorType string)
	RecordConnection()
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the server logger
func WithLogger(logger Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets a metrics collector
func WithMetrics(metrics MetricsCollector) Option {
	return func(s *Server) {
		s.metrics = metrics
	}
}

// WithIdleTimeout closes connections that send nothing for d. Zero
// disables the timeout.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.idleTimeout = d
	}
}

// WithMaxClients limits concurrent connections. Zero means unlimited.
func WithMaxClients(n int) Option {
	return func(s *Server) {
		s.maxClients = n
	}
}

// WithScriptCacheSize bounds the number of cached Lua scripts
func WithScriptCacheSize(n int) Option {
	return func(s *Server) {
		s.scriptCacheSize = n
	}
}

// WithVersion sets the version reported in INFO
func WithVersion(version string) Option {
	return func(s *Server) {
		s.version = version
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
