package lua

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bluele/gcache"
	lua "github.com/yuin/gopher-lua"

	"github.com/raniellyferreira/redisless/protocol"
)

// DefaultCacheSize is the number of scripts kept by NewEngine when no size
// is given.
const DefaultCacheSize = 1024

// ErrNoScript is returned by EvalSHA for an unknown digest.
var ErrNoScript = errors.New("No matching script. Please use EVAL.")

// ScriptError reports a script that failed to compile or raised an error.
type ScriptError struct {
	Msg string
}

// Error implements the error interface
func (e *ScriptError) Error() string {
	return e.Msg
}

// Executor runs one command issued by redis.call or redis.pcall. args[0]
// is the command name. Command failures are reported as error values.
type Executor interface {
	ExecuteScriptCommand(ctx context.Context, args [][]byte) protocol.Value
}

// Engine provides Redis-compatible Lua script execution
type Engine struct {
	exec    Executor
	scripts gcache.Cache

	// mu serialises scripts against each other
	mu sync.Mutex
}

// NewEngine creates a Lua engine that routes redis.call through exec and
// caches up to cacheSize scripts.
func NewEngine(exec Executor, cacheSize int) *Engine {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	return &Engine{
		exec:    exec,
		scripts: gcache.New(cacheSize).LRU().Build(),
	}
}

// Eval runs script with the given KEYS and ARGV and converts its return
// value to a reply. The script is also added to the cache.
func (e *Engine) Eval(ctx context.Context, script string, keys, args [][]byte) (protocol.Value, error) {
	e.Load(script)
	return e.run(ctx, script, keys, args)
}

// EvalSHA runs a previously loaded script by its SHA1 digest
func (e *Engine) EvalSHA(ctx context.Context, sha string, keys, args [][]byte) (protocol.Value, error) {
	script, err := e.scripts.Get(strings.ToLower(sha))
	if err != nil {
		return protocol.Value{}, ErrNoScript
	}
	return e.run(ctx, script.(string), keys, args)
}

// Load caches a script and returns its SHA1 digest
func (e *Engine) Load(script string) string {
	sum := sha1.Sum([]byte(script))
	hash := hex.EncodeToString(sum[:])
	_ = e.scripts.Set(hash, script)
	return hash
}

// Exists reports for each digest whether the script is cached
func (e *Engine) Exists(hashes ...string) []bool {
	results := make([]bool, len(hashes))
	for i, hash := range hashes {
		results[i] = e.scripts.Has(strings.ToLower(hash))
	}
	return results
}

// Flush removes all cached scripts
func (e *Engine) Flush() {
	e.scripts.Purge()
}

func (e *Engine) run(ctx context.Context, script string, keys, args [][]byte) (protocol.Value, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	L.SetContext(ctx)

	if err := openLibs(L); err != nil {
		return protocol.Value{}, &ScriptError{Msg: fmt.Sprintf("ERR Error initializing script: %v", err)}
	}
	e.setupRedisAPI(ctx, L, keys, args)

	fn, err := L.LoadString(script)
	if err != nil {
		return protocol.Value{}, &ScriptError{Msg: fmt.Sprintf("ERR Error compiling script: %v", err)}
	}
	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		return protocol.Value{}, &ScriptError{Msg: scriptErrorMessage(err)}
	}

	return toReply(L.Get(-1)), nil
}

// openLibs loads the subset of the standard library scripts may use
func openLibs(L *lua.LState) error {
	libs := []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	}
	for _, lib := range libs {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			return err
		}
	}
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}
	return nil
}

// setupRedisAPI installs KEYS, ARGV and the redis table
func (e *Engine) setupRedisAPI(ctx context.Context, L *lua.LState, keys, args [][]byte) {
	keysTable := L.NewTable()
	for i, key := range keys {
		keysTable.RawSetInt(i+1, lua.LString(key))
	}
	L.SetGlobal("KEYS", keysTable)

	argvTable := L.NewTable()
	for i, arg := range args {
		argvTable.RawSetInt(i+1, lua.LString(arg))
	}
	L.SetGlobal("ARGV", argvTable)

	redisTable := L.NewTable()
	L.SetFuncs(redisTable, map[string]lua.LGFunction{
		"call": func(L *lua.LState) int {
			return e.redisCall(ctx, L, true)
		},
		"pcall": func(L *lua.LState) int {
			return e.redisCall(ctx, L, false)
		},
		"status_reply": func(L *lua.LState) int {
			t := L.NewTable()
			t.RawSetString("ok", lua.LString(L.CheckString(1)))
			L.Push(t)
			return 1
		},
		"error_reply": func(L *lua.LState) int {
			t := L.NewTable()
			t.RawSetString("err", lua.LString(L.CheckString(1)))
			L.Push(t)
			return 1
		},
	})
	L.SetGlobal("redis", redisTable)
}

// redisCall implements redis.call (raise true) and redis.pcall
func (e *Engine) redisCall(ctx context.Context, L *lua.LState, raise bool) int {
	argc := L.GetTop()
	if argc == 0 {
		return e.callError(L, raise, "ERR Please specify at least one argument for this redis lib call")
	}

	args := make([][]byte, argc)
	for i := 1; i <= argc; i++ {
		switch v := L.Get(i).(type) {
		case lua.LString:
			args[i-1] = []byte(v)
		case lua.LNumber:
			args[i-1] = []byte(v.String())
		default:
			return e.callError(L, raise, "ERR Lua redis lib command arguments must be strings or integers")
		}
	}

	reply := e.exec.ExecuteScriptCommand(ctx, args)
	if reply.IsError() {
		return e.callError(L, raise, reply.Error())
	}
	L.Push(toLua(L, reply))
	return 1
}

func (e *Engine) callError(L *lua.LState, raise bool, msg string) int {
	t := L.NewTable()
	t.RawSetString("err", lua.LString(msg))
	if raise {
		L.Error(t, 0)
		return 0
	}
	L.Push(t)
	return 1
}

// scriptErrorMessage turns a failed PCall into a reply message. Errors
// raised by redis.call carry their reply text in an {err=...} table.
func scriptErrorMessage(err error) string {
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) {
		if t, ok := apiErr.Object.(*lua.LTable); ok {
			if msg, ok := t.RawGetString("err").(lua.LString); ok {
				return string(msg)
			}
		}
		if apiErr.Object != nil {
			return "ERR Error running script: " + apiErr.Object.String()
		}
	}
	return "ERR Error running script: " + err.Error()
}

// toLua converts a command reply to a Lua value
func toLua(L *lua.LState, v protocol.Value) lua.LValue {
	switch v.Type {
	case protocol.TypeInteger:
		return lua.LNumber(v.Integer)
	case protocol.TypeBulkString:
		if v.IsNull {
			return lua.LFalse
		}
		return lua.LString(v.Data)
	case protocol.TypeSimpleString:
		t := L.NewTable()
		t.RawSetString("ok", lua.LString(v.Data))
		return t
	case protocol.TypeError:
		t := L.NewTable()
		t.RawSetString("err", lua.LString(v.Data))
		return t
	case protocol.TypeArray:
		if v.IsNull {
			return lua.LFalse
		}
		t := L.CreateTable(len(v.Array), 0)
		for i, item := range v.Array {
			t.RawSetInt(i+1, toLua(L, item))
		}
		return t
	default:
		return lua.LNil
	}
}

// toReply converts a script's return value to a reply
func toReply(lv lua.LValue) protocol.Value {
	switch v := lv.(type) {
	case lua.LString:
		return protocol.Value{Type: protocol.TypeBulkString, Data: []byte(v)}
	case lua.LNumber:
		return protocol.Value{Type: protocol.TypeInteger, Integer: int64(v)}
	case lua.LBool:
		if v {
			return protocol.Value{Type: protocol.TypeInteger, Integer: 1}
		}
		return protocol.Value{Type: protocol.TypeBulkString, IsNull: true}
	case *lua.LTable:
		if errMsg, ok := v.RawGetString("err").(lua.LString); ok {
			return protocol.Value{Type: protocol.TypeError, Data: []byte(errMsg)}
		}
		if status, ok := v.RawGetString("ok").(lua.LString); ok {
			return protocol.Value{Type: protocol.TypeSimpleString, Data: []byte(status)}
		}
		items := []protocol.Value{}
		for i := 1; ; i++ {
			item := v.RawGetInt(i)
			if item == lua.LNil {
				break
			}
			items = append(items, toReply(item))
		}
		return protocol.Value{Type: protocol.TypeArray, Array: items}
	default:
		return protocol.Value{Type: protocol.TypeBulkString, IsNull: true}
	}
}
