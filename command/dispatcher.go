package command

import (
	"context"
	"time"

	"github.com/raniellyferreira/redisless/lua"
	"github.com/raniellyferreira/redisless/protocol"
	"github.com/raniellyferreira/redisless/storage"
)

type handlerFunc func(ctx context.Context, d *Dispatcher, sess *Session, args [][]byte) Result

// InfoProvider contributes server-level fields to INFO, keyed by section
// name in lower case (server, clients, stats).
type InfoProvider interface {
	InfoSections() map[string][]InfoField
}

// InfoField is one "name:value" line of an INFO section
type InfoField struct {
	Name  string
	Value interface{}
}

// Dispatcher executes commands against a storage backend
type Dispatcher struct {
	storage storage.Storage
	scripts *lua.Engine
	info    InfoProvider
	started time.Time

	scriptCacheSize int
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithInfoProvider adds server-level sections to INFO
func WithInfoProvider(p InfoProvider) Option {
	return func(d *Dispatcher) {
		d.info = p
	}
}

// WithScriptCacheSize bounds the number of cached Lua scripts
func WithScriptCacheSize(n int) Option {
	return func(d *Dispatcher) {
		d.scriptCacheSize = n
	}
}

// NewDispatcher creates a dispatcher over stor
func NewDispatcher(stor storage.Storage, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		storage:         stor,
		started:         time.Now(),
		scriptCacheSize: lua.DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.scripts = lua.NewEngine(d, d.scriptCacheSize)
	return d
}

// Storage returns the backend commands run against
func (d *Dispatcher) Storage() storage.Storage {
	return d.storage
}

// Dispatch executes cmd. It always returns a Result; failures are error
// results.
func (d *Dispatcher) Dispatch(ctx context.Context, sess *Session, cmd Command) Result {
	if sess.scripting && cmd.Spec.Has(FlagNoScript) {
		return ErrorResult(newError(KindScript, "ERR This Redis command is not allowed from script"))
	}
	return cmd.Spec.handler(ctx, d, sess, cmd.Args)
}

// ExecuteScriptCommand runs a command on behalf of redis.call. It
// implements lua.Executor.
func (d *Dispatcher) ExecuteScriptCommand(ctx context.Context, args [][]byte) protocol.Value {
	cmd, err := Parse(protocol.NewCommand(args))
	if err != nil {
		return ErrorResult(err).Value()
	}
	sess := &Session{scripting: true}
	return d.Dispatch(ctx, sess, cmd).Value()
}
