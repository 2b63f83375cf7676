package redisless

import (
	"context"
	"net"
	"strconv"
	"sync"

	"github.com/raniellyferreira/redisless/server"
	"github.com/raniellyferreira/redisless/storage"
)

// ServerState is the lifecycle state of a Server
type ServerState int

const (
	// StateNotStarted is the state of a new Server, and of one whose
	// Start failed to bind.
	StateNotStarted ServerState = iota
	// StateStarted means the listener is open and accepting clients
	StateStarted
	// StateStopped is final; a stopped Server cannot be started again
	StateStopped
)

// String returns the state name
func (s ServerState) String() string {
	switch s {
	case StateNotStarted:
		return "NotStarted"
	case StateStarted:
		return "Started"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// Server is an embeddable Redis-compatible server backed by a
// storage.Storage.
type Server struct {
	config  *config
	storage storage.Storage
	srv     *server.Server
	addr    string

	mu    sync.Mutex
	state ServerState
}

// New creates a Server that will listen on port once started. Port 0
// picks a free port; Addr reports the one chosen after Start.
//
// The storage stays owned by the caller: Stop does not close it.
func New(stor storage.Storage, port int, opts ...Option) (*Server, error) {
	if stor == nil {
		return nil, &ConfigError{Option: "storage", Reason: "nil storage"}
	}
	if port < 0 || port > 65535 {
		return nil, &ConfigError{Option: "port", Reason: "out of range: " + strconv.Itoa(port)}
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	addr := net.JoinHostPort(cfg.host, strconv.Itoa(port))

	serverOpts := []server.Option{
		server.WithLogger(newServerLogger(cfg.logger)),
		server.WithIdleTimeout(cfg.idleTimeout),
		server.WithMaxClients(cfg.maxClients),
		server.WithScriptCacheSize(cfg.scriptCacheSize),
		server.WithVersion(Version),
	}
	if cfg.metrics != nil {
		serverOpts = append(serverOpts, server.WithMetrics(&metricsAdapter{metrics: cfg.metrics}))
	}

	return &Server{
		config:  cfg,
		storage: stor,
		srv:     server.NewServer(addr, stor, serverOpts...),
		addr:    addr,
		state:   StateNotStarted,
	}, nil
}

// Start opens the listening socket and begins serving clients. It
// returns the state after the call.
//
// Starting a started server is a no-op. Starting a stopped server fails
// with a *LifecycleError wrapping ErrServerStopped. If the port cannot be
// bound, Start returns a *BindError and the server stays NotStarted, so
// the call may be retried.
func (s *Server) Start() (ServerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateStarted:
		return s.state, nil
	case StateStopped:
		return s.state, &LifecycleError{Op: "start", State: s.state, Err: ErrServerStopped}
	}

	if err := s.srv.Start(); err != nil {
		s.config.logger.Error("failed to start server", Field{Key: "addr", Value: s.addr}, Field{Key: "error", Value: err})
		return s.state, &BindError{Addr: s.addr, Err: err}
	}

	s.state = StateStarted
	s.config.logger.Info("redisless started",
		Field{Key: "addr", Value: s.srv.Addr()},
		Field{Key: "version", Value: Version},
	)
	return s.state, nil
}

// Stop closes the listener and all client connections and waits, up to
// the shutdown timeout, for their goroutines to exit. It returns the
// state after the call.
//
// Stopping a stopped server is a no-op. Stopping a server that was never
// started returns a *LifecycleError wrapping ErrNotStarted.
func (s *Server) Stop() (ServerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateStopped:
		return s.state, nil
	case StateNotStarted:
		return s.state, &LifecycleError{Op: "stop", State: s.state, Err: ErrNotStarted}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.shutdownTimeout)
	defer cancel()

	err := s.srv.Stop(ctx)
	s.state = StateStopped
	if err != nil {
		s.config.logger.Error("error during shutdown", Field{Key: "error", Value: err})
		return s.state, err
	}

	s.config.logger.Info("redisless stopped")
	return s.state, nil
}

// State returns the current lifecycle state
func (s *Server) State() ServerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Addr returns the listening address. Before Start it is the configured
// address, which may carry port 0.
func (s *Server) Addr() string {
	s.mu.Lock()
	started := s.state == StateStarted
	s.mu.Unlock()

	if started {
		return s.srv.Addr()
	}
	return s.addr
}

// Storage returns the storage the server serves from
func (s *Server) Storage() storage.Storage {
	return s.storage
}

// Stats returns connection and command counters together with the
// storage summary.
func (s *Server) Stats() map[string]interface{} {
	stats := s.srv.Stats()
	stats["state"] = s.State().String()
	for k, v := range s.storage.Info() {
		stats["storage_"+k] = v
	}
	return stats
}
