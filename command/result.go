package command

import (
	"errors"
	"strconv"

	"github.com/raniellyferreira/redisless/protocol"
)

// ResultKind identifies the shape of a reply
type ResultKind int

const (
	ResultStatus ResultKind = iota
	ResultBulk
	ResultNull
	ResultInteger
	ResultArray
	ResultError
)

// Result is the outcome of dispatching one command
type Result struct {
	Kind  ResultKind
	Str   []byte
	Int   int64
	Array []Result
	Err   *Error
}

var (
	okResult   = Result{Kind: ResultStatus, Str: []byte("OK")}
	nullResult = Result{Kind: ResultNull}
)

// Status returns a simple string result
func Status(s string) Result {
	return Result{Kind: ResultStatus, Str: []byte(s)}
}

// Bulk returns a binary-safe string result
func Bulk(b []byte) Result {
	return Result{Kind: ResultBulk, Str: b}
}

// BulkString returns a bulk result holding s
func BulkString(s string) Result {
	return Result{Kind: ResultBulk, Str: []byte(s)}
}

// Null returns the null bulk result
func Null() Result {
	return nullResult
}

// Integer returns an integer result
func Integer(n int64) Result {
	return Result{Kind: ResultInteger, Int: n}
}

// Array returns an array result
func Array(items ...Result) Result {
	if items == nil {
		items = []Result{}
	}
	return Result{Kind: ResultArray, Array: items}
}

// ErrorResult wraps err as an error result. Errors other than *Error are
// reported as storage failures.
func ErrorResult(err error) Result {
	var cerr *Error
	if !errors.As(err, &cerr) {
		cerr = storageError(err)
	}
	return Result{Kind: ResultError, Err: cerr}
}

// IsError reports whether the result is an error reply
func (r Result) IsError() bool {
	return r.Kind == ResultError
}

// Value converts the result to its wire representation
func (r Result) Value() protocol.Value {
	switch r.Kind {
	case ResultStatus:
		return protocol.Value{Type: protocol.TypeSimpleString, Data: r.Str}
	case ResultBulk:
		return protocol.Value{Type: protocol.TypeBulkString, Data: r.Str}
	case ResultNull:
		return protocol.Value{Type: protocol.TypeBulkString, IsNull: true}
	case ResultInteger:
		return protocol.Value{Type: protocol.TypeInteger, Integer: r.Int}
	case ResultArray:
		items := make([]protocol.Value, len(r.Array))
		for i, item := range r.Array {
			items[i] = item.Value()
		}
		return protocol.Value{Type: protocol.TypeArray, Array: items}
	case ResultError:
		if r.Err == nil {
			return protocol.Value{Type: protocol.TypeError, Data: []byte("ERR unknown error")}
		}
		return protocol.Value{Type: protocol.TypeError, Data: []byte(r.Err.Msg)}
	default:
		return protocol.Value{Type: protocol.TypeError, Data: []byte("ERR unsupported reply kind " + strconv.Itoa(int(r.Kind)))}
	}
}

// String renders the result for logs and tests
func (r Result) String() string {
	return r.Value().String()
}

// resultFromValue converts a script reply back into a Result
func resultFromValue(v protocol.Value) Result {
	switch v.Type {
	case protocol.TypeSimpleString:
		return Result{Kind: ResultStatus, Str: v.Data}
	case protocol.TypeError:
		return Result{Kind: ResultError, Err: &Error{Kind: KindScript, Msg: string(v.Data)}}
	case protocol.TypeInteger:
		return Integer(v.Integer)
	case protocol.TypeArray:
		if v.IsNull {
			return Null()
		}
		items := make([]Result, len(v.Array))
		for i, item := range v.Array {
			items[i] = resultFromValue(item)
		}
		return Array(items...)
	default:
		if v.IsNull {
			return Null()
		}
		return Bulk(v.Data)
	}
}
