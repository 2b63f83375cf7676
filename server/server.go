package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/uuid"

	"github.com/raniellyferreira/redisless/command"
	"github.com/raniellyferreira/redisless/lua"
	"github.com/raniellyferreira/redisless/storage"
)

// Server provides Redis protocol server functionality
type Server struct {
	storage    storage.Storage
	dispatcher *command.Dispatcher

	// Server configuration
	addr            string
	runID           string
	version         string
	idleTimeout     time.Duration
	maxClients      int
	scriptCacheSize int
	logger          Logger
	metrics         MetricsCollector

	// Connection management
	listener net.Listener
	clients  sync.Map // map[*Client]struct{}
	closing  bool

	// Control
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startedAt time.Time

	// Metrics
	connected    atomic.Int64
	connCount    atomic.Int64
	rejectCount  atomic.Int64
	commandCount atomic.Int64
	errorCount   atomic.Int64
	nextID       atomic.Int64
	mu           sync.RWMutex
}

// NewServer creates a new Redis protocol server for addr
func NewServer(addr string, stor storage.Storage, opts ...Option) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		storage:         stor,
		addr:            addr,
		runID:           newRunID(),
		logger:          nopLogger{},
		scriptCacheSize: lua.DefaultCacheSize,
		ctx:             ctx,
		cancel:          cancel,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.dispatcher = command.NewDispatcher(stor,
		command.WithInfoProvider(s),
		command.WithScriptCacheSize(s.scriptCacheSize),
	)
	return s
}

// newRunID returns a random 40 character hex identifier, the shape
// clients expect from INFO run_id.
func newRunID() string {
	var b strings.Builder
	for b.Len() < 40 {
		id, err := uuid.NewV4()
		if err != nil {
			return strconv.FormatInt(time.Now().UnixNano(), 16)
		}
		b.WriteString(strings.ReplaceAll(id.String(), "-", ""))
	}
	return b.String()[:40]
}

// Start binds the listener and starts accepting connections
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("server listening", "addr", listener.Addr().String(), "run_id", s.runID)

	s.wg.Add(1)
	go s.acceptConnections(listener)

	return nil
}

// Stop closes the listener and every client connection, then waits for
// the connection goroutines to exit or ctx to end.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	listener := s.listener
	s.mu.Unlock()

	s.cancel()

	var err error
	if listener != nil {
		if cerr := listener.Close(); cerr != nil && !errors.Is(cerr, net.ErrClosed) {
			err = fmt.Errorf("failed to close listener: %w", cerr)
		}
	}

	// Close all client connections
	s.clients.Range(func(key, _ interface{}) bool {
		key.(*Client).Close()
		return true
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("waiting for connections to close: %w", ctx.Err())
	}

	s.logger.Info("server stopped", "addr", s.Addr())
	return err
}

// Addr returns the server's listening address
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// RunID returns the random identifier of this server instance
func (s *Server) RunID() string {
	return s.runID
}

// Stats returns server statistics
func (s *Server) Stats() map[string]interface{} {
	return map[string]interface{}{
		"connected_clients":    s.connected.Load(),
		"total_commands":       s.commandCount.Load(),
		"total_errors":         s.errorCount.Load(),
		"total_connections":    s.connCount.Load(),
		"rejected_connections": s.rejectCount.Load(),
	}
}

// InfoSections implements command.InfoProvider
func (s *Server) InfoSections() map[string][]command.InfoField {
	s.mu.RLock()
	startedAt := s.startedAt
	s.mu.RUnlock()

	port := 0
	if _, p, err := net.SplitHostPort(s.Addr()); err == nil {
		port, _ = strconv.Atoi(p)
	}

	serverFields := []command.InfoField{
		{Name: "run_id", Value: s.runID},
		{Name: "tcp_port", Value: port},
	}
	if s.version != "" {
		serverFields = append(serverFields, command.InfoField{Name: "redisless_version", Value: s.version})
	}
	if !startedAt.IsZero() {
		serverFields = append(serverFields, command.InfoField{Name: "server_time_usec", Value: time.Now().UnixMicro()})
	}

	return map[string][]command.InfoField{
		"server": serverFields,
		"clients": {
			{Name: "connected_clients", Value: s.connected.Load()},
			{Name: "maxclients", Value: s.maxClients},
		},
		"stats": {
			{Name: "total_connections_received", Value: s.connCount.Load()},
			{Name: "total_commands_processed", Value: s.commandCount.Load()},
			{Name: "total_error_replies", Value: s.errorCount.Load()},
			{Name: "rejected_connections", Value: s.rejectCount.Load()},
		},
	}
}

// acceptConnections accepts new client connections
func (s *Server) acceptConnections(listener net.Listener) {
	defer s.wg.Done()

	var backoff time.Duration
	for {
		conn, err := listener.Accept()
		if err != nil {
			if s.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else if backoff *= 2; backoff > time.Second {
				backoff = time.Second
			}
			s.logger.Error("accept failed", "error", err, "retry_in", backoff)
			select {
			case <-time.After(backoff):
			case <-s.ctx.Done():
				return
			}
			continue
		}
		backoff = 0

		s.handleNewClient(conn)
	}
}

// handleNewClient registers a connection and starts its handler
func (s *Server) handleNewClient(conn net.Conn) {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		conn.Close()
		return
	}

	if s.maxClients > 0 && s.connected.Load() >= int64(s.maxClients) {
		s.mu.Unlock()
		s.rejectCount.Add(1)
		s.logger.Debug("connection rejected", "client", conn.RemoteAddr().String(), "reason", "max clients")
		_, _ = conn.Write([]byte("-ERR max number of clients reached\r\n"))
		conn.Close()
		return
	}

	client := newClient(s, conn)
	s.clients.Store(client, struct{}{})
	s.connected.Add(1)
	s.connCount.Add(1)
	s.wg.Add(1)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.RecordConnection()
	}
	s.logger.Debug("client connected", "client", client.session.Addr, "id", client.session.ID)

	go client.handle()
}

// removeClient forgets a closed connection
func (s *Server) removeClient(c *Client) {
	if _, loaded := s.clients.LoadAndDelete(c); loaded {
		s.connected.Add(-1)
	}
}
