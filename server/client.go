package server

import (
	"context"
	"errors"
	"io"
	"net"
	"runtime/debug"
	"sync"
	"time"

	"github.com/raniellyferreira/redisless/command"
	"github.com/raniellyferreira/redisless/protocol"
)

const (
	// readBufferSize is the size of each socket read
	readBufferSize = 16 * 1024

	// writeBufferSize is the size of the reply buffer
	writeBufferSize = 16 * 1024
)

// Client represents a connected Redis client
type Client struct {
	conn    net.Conn
	decoder *protocol.Decoder
	writer  *protocol.Writer
	server  *Server
	session *command.Session

	// Control
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func newClient(s *Server, conn net.Conn) *Client {
	ctx, cancel := context.WithCancel(s.ctx)
	id := s.nextID.Add(1)

	return &Client{
		conn:    conn,
		decoder: protocol.NewDecoder(),
		writer:  protocol.NewWriterSize(conn, writeBufferSize),
		server:  s,
		session: command.NewSession(id, conn.RemoteAddr().String()),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Close closes the client connection. It is safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.conn.Close()
		c.server.removeClient(c)
	})
}

// handle serves requests until the connection ends
func (c *Client) handle() {
	defer c.server.wg.Done()
	defer c.Close()
	defer func() {
		if r := recover(); r != nil {
			c.server.logger.Error("panic while serving client",
				"client", c.session.Addr,
				"panic", r,
				"stack", string(debug.Stack()))
			c.recordError("panic")
		}
	}()

	buf := make([]byte, readBufferSize)
	for {
		if c.server.idleTimeout > 0 {
			_ = c.conn.SetReadDeadline(time.Now().Add(c.server.idleTimeout))
		}

		n, err := c.conn.Read(buf)
		if n > 0 {
			c.decoder.Feed(buf[:n])
			if !c.processCommands() {
				return
			}
		}
		if err != nil {
			c.logDisconnect(err)
			return
		}
	}
}

// processCommands dispatches every complete request in the decoder and
// flushes the replies. It returns false when the connection must close.
func (c *Client) processCommands() bool {
	for {
		frame, err := c.decoder.Next()
		if errors.Is(err, protocol.ErrIncomplete) {
			break
		}
		if err != nil {
			c.server.logger.Debug("protocol error", "client", c.session.Addr, "error", err)
			c.recordError("protocol")
			_ = c.writer.WriteError("ERR " + err.Error())
			_ = c.writer.Flush()
			return false
		}

		res := c.execute(frame)
		if err := c.writer.WriteValue(res.Value()); err != nil {
			return false
		}
		if c.session.Closing() {
			_ = c.writer.Flush()
			return false
		}
	}

	return c.writer.Flush() == nil
}

// execute parses and dispatches one request
func (c *Client) execute(frame *protocol.Command) command.Result {
	start := time.Now()
	c.server.commandCount.Add(1)

	cmd, err := command.Parse(frame)
	var res command.Result
	if err != nil {
		res = command.ErrorResult(err)
	} else {
		res = c.server.dispatcher.Dispatch(c.ctx, c.session, cmd)
	}

	if c.server.metrics != nil {
		c.server.metrics.RecordCommandProcessed(frame.Name, time.Since(start))
	}
	if res.IsError() {
		c.server.errorCount.Add(1)
		c.recordError(res.Err.Kind.String())
	}
	return res
}

func (c *Client) recordError(kind string) {
	if c.server.metrics != nil {
		c.server.metrics.RecordError(kind)
	}
}

func (c *Client) logDisconnect(err error) {
	var netErr net.Error
	switch {
	case errors.Is(err, io.EOF):
		if pending := c.decoder.Buffered(); pending > 0 {
			c.server.logger.Debug("client disconnected mid-request", "client", c.session.Addr, "pending_bytes", pending)
			return
		}
		c.server.logger.Debug("client disconnected", "client", c.session.Addr)
	case c.ctx.Err() != nil:
		// closed by Stop
	case errors.As(err, &netErr) && netErr.Timeout():
		c.server.logger.Debug("client idle timeout", "client", c.session.Addr, "timeout", c.server.idleTimeout)
	default:
		c.server.logger.Debug("client read failed", "client", c.session.Addr, "error", err)
	}
}
