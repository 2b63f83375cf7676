package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/raniellyferreira/redisless/lua"
	"github.com/raniellyferreira/redisless/storage"
)

// Kind categorises a command failure
type Kind int

const (
	KindUnknownCommand Kind = iota + 1
	KindWrongArity
	KindNotInteger
	KindOverflow
	KindSyntax
	KindStorage
	KindScript
	KindNoScript
	KindNoProto
)

var kindNames = map[Kind]string{
	KindUnknownCommand: "unknown_command",
	KindWrongArity:     "wrong_arity",
	KindNotInteger:     "not_integer",
	KindOverflow:       "overflow",
	KindSyntax:         "syntax",
	KindStorage:        "storage",
	KindScript:         "script",
	KindNoScript:       "noscript",
	KindNoProto:        "noproto",
}

// String returns a short snake_case name, suitable as a metrics label
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is a command failure. Msg is the complete reply line, including
// the error code prefix such as ERR or NOSCRIPT.
type Error struct {
	Kind Kind
	Msg  string
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Msg
}

// Is matches errors of the same kind, so errors.Is(err, &Error{Kind: k})
// works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

const (
	msgNotInteger = "ERR value is not an integer or out of range"
	msgOverflow   = "ERR increment or decrement would overflow"
	msgSyntax     = "ERR syntax error"
)

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// unknownCommand formats the Redis unknown command reply
func unknownCommand(name string, args [][]byte) *Error {
	var b strings.Builder
	fmt.Fprintf(&b, "ERR unknown command '%s', with args beginning with: ", truncate(name, 128))
	for _, arg := range args {
		fmt.Fprintf(&b, "'%s' ", truncate(string(arg), 128))
	}
	return &Error{Kind: KindUnknownCommand, Msg: b.String()}
}

func unknownSubcommand(sub, name string) *Error {
	return newError(KindSyntax, "ERR unknown subcommand '%s'. Try %s HELP.", truncate(sub, 128), strings.ToUpper(name))
}

func wrongArity(name string) *Error {
	return newError(KindWrongArity, "ERR wrong number of arguments for '%s' command", strings.ToLower(name))
}

func notInteger() *Error {
	return &Error{Kind: KindNotInteger, Msg: msgNotInteger}
}

func syntaxError() *Error {
	return &Error{Kind: KindSyntax, Msg: msgSyntax}
}

func invalidExpire(name string) *Error {
	return newError(KindSyntax, "ERR invalid expire time in '%s' command", strings.ToLower(name))
}

// storageError maps storage failures onto error kinds
func storageError(err error) *Error {
	switch {
	case errors.Is(err, storage.ErrNotInteger):
		return notInteger()
	case errors.Is(err, storage.ErrOverflow):
		return &Error{Kind: KindOverflow, Msg: msgOverflow}
	default:
		return newError(KindStorage, "ERR %v", err)
	}
}

// scriptError maps lua engine failures onto error kinds
func scriptError(err error) *Error {
	var serr *lua.ScriptError
	switch {
	case errors.Is(err, lua.ErrNoScript):
		return &Error{Kind: KindNoScript, Msg: "NOSCRIPT " + err.Error()}
	case errors.As(err, &serr):
		return &Error{Kind: KindScript, Msg: serr.Msg}
	default:
		return newError(KindScript, "ERR Error running script: %v", err)
	}
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
