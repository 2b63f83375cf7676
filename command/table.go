package command

import (
	"sort"
	"strings"
)

// Flags describe how a command interacts with the server
type Flags uint32

const (
	// FlagWrite marks commands that may modify the keyspace
	FlagWrite Flags = 1 << iota
	// FlagReadOnly marks commands that only read the keyspace
	FlagReadOnly
	// FlagFast marks O(1) or O(log n) commands
	FlagFast
	// FlagNoScript marks commands that may not be called from a script
	FlagNoScript
	// FlagConnection marks commands that act on the connection itself
	FlagConnection
)

// ArgKind declares how a positional argument must be shaped
type ArgKind int

const (
	// ArgAny accepts any byte string
	ArgAny ArgKind = iota
	// ArgKey is a key name
	ArgKey
	// ArgInt must parse as a signed 64-bit decimal integer
	ArgInt
)

// Spec describes one command
type Spec struct {
	Name string
	// Arity counts the name itself. A positive value is exact, a negative
	// value -n means at least n.
	Arity int
	Flags Flags
	// ArgKinds validates leading arguments; arguments past its end are
	// unchecked.
	ArgKinds []ArgKind

	handler handlerFunc
}

// Has reports whether all flags in f are set
func (s *Spec) Has(f Flags) bool {
	return s.Flags&f == f
}

// checkArity validates argc, the argument count including the name
func (s *Spec) checkArity(argc int) bool {
	if s.Arity >= 0 {
		return argc == s.Arity
	}
	return argc >= -s.Arity
}

var table = map[string]*Spec{}

func register(name string, arity int, flags Flags, handler handlerFunc, kinds ...ArgKind) {
	table[name] = &Spec{
		Name:     name,
		Arity:    arity,
		Flags:    flags,
		ArgKinds: kinds,
		handler:  handler,
	}
}

func init() {
	// connection
	register("PING", -1, FlagFast|FlagConnection, cmdPing)
	register("ECHO", 2, FlagFast|FlagConnection, cmdEcho)
	register("QUIT", -1, FlagFast|FlagConnection|FlagNoScript, cmdQuit)
	register("SELECT", 2, FlagFast|FlagConnection, cmdSelect, ArgInt)
	register("HELLO", -1, FlagFast|FlagConnection|FlagNoScript, cmdHello)
	register("CLIENT", -2, FlagConnection|FlagNoScript, cmdClient)

	// server
	register("COMMAND", -1, FlagConnection, cmdCommand)
	register("INFO", -1, 0, cmdInfo)
	register("DBSIZE", 1, FlagReadOnly|FlagFast, cmdDBSize)
	register("FLUSHDB", -1, FlagWrite, cmdFlushAll)
	register("FLUSHALL", -1, FlagWrite, cmdFlushAll)

	// strings
	register("GET", 2, FlagReadOnly|FlagFast, cmdGet, ArgKey)
	register("SET", -3, FlagWrite, cmdSet, ArgKey)
	register("GETSET", 3, FlagWrite|FlagFast, cmdGetSet, ArgKey)
	register("SETNX", 3, FlagWrite|FlagFast, cmdSetNX, ArgKey)
	register("MGET", -2, FlagReadOnly|FlagFast, cmdMGet, ArgKey)
	register("MSET", -3, FlagWrite, cmdMSet, ArgKey)
	register("APPEND", 3, FlagWrite|FlagFast, cmdAppend, ArgKey)
	register("STRLEN", 2, FlagReadOnly|FlagFast, cmdStrLen, ArgKey)
	register("INCR", 2, FlagWrite|FlagFast, cmdIncr, ArgKey)
	register("DECR", 2, FlagWrite|FlagFast, cmdDecr, ArgKey)
	register("INCRBY", 3, FlagWrite|FlagFast, cmdIncrBy, ArgKey, ArgInt)
	register("DECRBY", 3, FlagWrite|FlagFast, cmdDecrBy, ArgKey, ArgInt)

	// keyspace
	register("DEL", -2, FlagWrite, cmdDel, ArgKey)
	register("EXISTS", -2, FlagReadOnly|FlagFast, cmdExists, ArgKey)
	register("EXPIRE", 3, FlagWrite|FlagFast, cmdExpire, ArgKey, ArgInt)
	register("PEXPIRE", 3, FlagWrite|FlagFast, cmdPExpire, ArgKey, ArgInt)
	register("PERSIST", 2, FlagWrite|FlagFast, cmdPersist, ArgKey)
	register("TTL", 2, FlagReadOnly|FlagFast, cmdTTL, ArgKey)
	register("PTTL", 2, FlagReadOnly|FlagFast, cmdPTTL, ArgKey)
	register("TYPE", 2, FlagReadOnly|FlagFast, cmdType, ArgKey)
	register("KEYS", 2, FlagReadOnly, cmdKeys)
	register("SCAN", -2, FlagReadOnly, cmdScan)
	register("OBJECT", -2, FlagReadOnly, cmdObject)

	// scripting
	register("EVAL", -3, FlagNoScript, cmdEval, ArgAny, ArgInt)
	register("EVALSHA", -3, FlagNoScript, cmdEvalSHA, ArgAny, ArgInt)
	register("SCRIPT", -2, FlagNoScript, cmdScript)
}

// Lookup returns the spec for a command name, in any case
func Lookup(name string) (*Spec, bool) {
	spec, ok := table[strings.ToUpper(name)]
	return spec, ok
}

// Names returns every supported command name, sorted
func Names() []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
