package command

import (
	"context"
	"strings"
)

func cmdPing(_ context.Context, _ *Dispatcher, _ *Session, args [][]byte) Result {
	switch len(args) {
	case 0:
		return Status("PONG")
	case 1:
		return Bulk(args[0])
	default:
		return ErrorResult(wrongArity("ping"))
	}
}

func cmdEcho(_ context.Context, _ *Dispatcher, _ *Session, args [][]byte) Result {
	return Bulk(args[0])
}

func cmdQuit(_ context.Context, _ *Dispatcher, sess *Session, _ [][]byte) Result {
	sess.closing = true
	return okResult
}

// cmdSelect accepts only database 0; the keyspace is a single database
func cmdSelect(_ context.Context, _ *Dispatcher, _ *Session, args [][]byte) Result {
	db, _ := parseInt(args[0])
	if db != 0 {
		return ErrorResult(newError(KindSyntax, "ERR DB index is out of range"))
	}
	return okResult
}

// cmdHello implements HELLO [protover [AUTH user pass] [SETNAME name]]
// for protocol version 2 only.
func cmdHello(_ context.Context, _ *Dispatcher, sess *Session, args [][]byte) Result {
	if len(args) > 0 {
		ver, ok := parseInt(args[0])
		if !ok {
			return ErrorResult(newError(KindSyntax, "ERR Protocol version is not an integer or out of range"))
		}
		if ver != 2 {
			return ErrorResult(newError(KindNoProto, "NOPROTO unsupported protocol version"))
		}
		for i := 1; i < len(args); i++ {
			switch strings.ToUpper(string(args[i])) {
			case "SETNAME":
				if i+1 >= len(args) {
					return ErrorResult(syntaxError())
				}
				i++
				if err := validClientName(args[i]); err != nil {
					return ErrorResult(err)
				}
				sess.name = string(args[i])
			case "AUTH":
				return ErrorResult(newError(KindSyntax, "ERR AUTH is not supported"))
			default:
				return ErrorResult(syntaxError())
			}
		}
	}

	return Array(
		BulkString("server"), BulkString("redis"),
		BulkString("version"), BulkString(RedisVersion),
		BulkString("proto"), Integer(2),
		BulkString("id"), Integer(sess.ID),
		BulkString("mode"), BulkString("standalone"),
		BulkString("role"), BulkString("master"),
		BulkString("modules"), Array(),
	)
}

// cmdClient implements CLIENT ID|SETNAME|GETNAME|SETINFO
func cmdClient(_ context.Context, _ *Dispatcher, sess *Session, args [][]byte) Result {
	sub := strings.ToUpper(string(args[0]))
	switch sub {
	case "ID":
		if len(args) != 1 {
			return ErrorResult(wrongArity("client|id"))
		}
		return Integer(sess.ID)
	case "GETNAME":
		if len(args) != 1 {
			return ErrorResult(wrongArity("client|getname"))
		}
		if sess.name == "" {
			return Null()
		}
		return BulkString(sess.name)
	case "SETNAME":
		if len(args) != 2 {
			return ErrorResult(wrongArity("client|setname"))
		}
		if err := validClientName(args[1]); err != nil {
			return ErrorResult(err)
		}
		sess.name = string(args[1])
		return okResult
	case "SETINFO":
		if len(args) != 3 {
			return ErrorResult(wrongArity("client|setinfo"))
		}
		switch strings.ToUpper(string(args[1])) {
		case "LIB-NAME":
			sess.libName = string(args[2])
		case "LIB-VER":
			sess.libVer = string(args[2])
		default:
			return ErrorResult(newError(KindSyntax, "ERR Unrecognized option '%s'", truncate(string(args[1]), 128)))
		}
		return okResult
	default:
		return ErrorResult(unknownSubcommand(string(args[0]), "client"))
	}
}

func validClientName(name []byte) *Error {
	for _, c := range name {
		if c < '!' || c > '~' {
			return newError(KindSyntax, "ERR Client names cannot contain spaces, newlines or special characters.")
		}
	}
	return nil
}

// cmdCommand implements COMMAND, COMMAND COUNT and COMMAND DOCS. Plain
// COMMAND lists names, arities and flags.
func cmdCommand(_ context.Context, _ *Dispatcher, _ *Session, args [][]byte) Result {
	if len(args) == 0 {
		names := Names()
		items := make([]Result, len(names))
		for i, name := range names {
			items[i] = commandEntry(table[name])
		}
		return Array(items...)
	}

	switch strings.ToUpper(string(args[0])) {
	case "COUNT":
		return Integer(int64(len(table)))
	case "DOCS":
		return Array()
	case "INFO":
		items := make([]Result, len(args)-1)
		for i, name := range args[1:] {
			if spec, ok := Lookup(string(name)); ok {
				items[i] = commandEntry(spec)
			} else {
				items[i] = Null()
			}
		}
		return Array(items...)
	default:
		return ErrorResult(unknownSubcommand(string(args[0]), "command"))
	}
}

func commandEntry(spec *Spec) Result {
	var flags []Result
	for _, f := range []struct {
		flag Flags
		name string
	}{
		{FlagWrite, "write"},
		{FlagReadOnly, "readonly"},
		{FlagFast, "fast"},
		{FlagNoScript, "noscript"},
	} {
		if spec.Has(f.flag) {
			flags = append(flags, Status(f.name))
		}
	}

	first, last, step := int64(0), int64(0), int64(0)
	if len(spec.ArgKinds) > 0 && spec.ArgKinds[0] == ArgKey {
		first, last, step = 1, 1, 1
		if spec.Arity < 0 && spec.Name != "SET" {
			last = -1
			if spec.Name == "MSET" {
				step = 2
			}
		}
	}

	return Array(
		BulkString(strings.ToLower(spec.Name)),
		Integer(int64(spec.Arity)),
		Array(flags...),
		Integer(first),
		Integer(last),
		Integer(step),
	)
}
