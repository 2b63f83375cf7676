// Package server accepts RESP client connections and serves them with a
// command.Dispatcher.
//
// Each connection runs in its own goroutine: bytes read from the socket
// are fed to a protocol.Decoder, every complete request is parsed and
// dispatched in order, and replies are buffered and flushed once the
// decoder needs more input, so pipelined requests are answered in one
// write. Malformed input gets a protocol error reply and closes only the
// offending connection.
//
// The server is compatible with Redis clients like github.com/redis/go-redis.
package server
