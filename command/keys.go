package command

import (
	"context"
	"strconv"
	"strings"
	"time"
)

func cmdDel(_ context.Context, d *Dispatcher, _ *Session, args [][]byte) Result {
	return Integer(d.storage.Del(keyStrings(args)...))
}

func cmdExists(_ context.Context, d *Dispatcher, _ *Session, args [][]byte) Result {
	return Integer(d.storage.Exists(keyStrings(args)...))
}

func cmdExpire(_ context.Context, d *Dispatcher, _ *Session, args [][]byte) Result {
	return expire(d, "expire", args, time.Second)
}

func cmdPExpire(_ context.Context, d *Dispatcher, _ *Session, args [][]byte) Result {
	return expire(d, "pexpire", args, time.Millisecond)
}

func expire(d *Dispatcher, name string, args [][]byte, unit time.Duration) Result {
	n, _ := parseInt(args[1])
	limit := int64(maxDuration / unit)
	if n > limit || n < -limit {
		return ErrorResult(invalidExpire(name))
	}
	ok := d.storage.Expire(string(args[0]), time.Now().Add(time.Duration(n)*unit))
	return Integer(boolInt(ok))
}

const maxDuration = time.Duration(1<<63 - 1)

func cmdPersist(_ context.Context, d *Dispatcher, _ *Session, args [][]byte) Result {
	return Integer(boolInt(d.storage.Persist(string(args[0]))))
}

func cmdTTL(_ context.Context, d *Dispatcher, _ *Session, args [][]byte) Result {
	return Integer(ttlIn(d.storage.TTL(string(args[0])), time.Second))
}

func cmdPTTL(_ context.Context, d *Dispatcher, _ *Session, args [][]byte) Result {
	return Integer(ttlIn(d.storage.PTTL(string(args[0])), time.Millisecond))
}

// ttlIn converts a storage TTL to whole units, rounding to nearest. The
// negative markers (-2 missing, -1 persistent) pass through unchanged.
func ttlIn(ttl, unit time.Duration) int64 {
	if ttl < 0 {
		return int64(ttl / unit)
	}
	return int64((ttl + unit/2) / unit)
}

func cmdType(_ context.Context, d *Dispatcher, _ *Session, args [][]byte) Result {
	return Status(d.storage.Type(string(args[0])).String())
}

func cmdKeys(_ context.Context, d *Dispatcher, _ *Session, args [][]byte) Result {
	keys := d.storage.Keys(string(args[0]))
	items := make([]Result, len(keys))
	for i, key := range keys {
		items[i] = BulkString(key)
	}
	return Array(items...)
}

// cmdScan implements SCAN cursor [MATCH pattern] [COUNT count] [TYPE type]
func cmdScan(_ context.Context, d *Dispatcher, _ *Session, args [][]byte) Result {
	cursor, err := strconv.ParseUint(string(args[0]), 10, 64)
	if err != nil {
		return ErrorResult(newError(KindSyntax, "ERR invalid cursor"))
	}

	match := ""
	count := int64(10)
	typeFilter := ""
	for i := 1; i < len(args); i += 2 {
		if i+1 >= len(args) {
			return ErrorResult(syntaxError())
		}
		switch strings.ToUpper(string(args[i])) {
		case "MATCH":
			match = string(args[i+1])
		case "COUNT":
			n, ok := parseInt(args[i+1])
			if !ok {
				return ErrorResult(notInteger())
			}
			if n < 1 {
				return ErrorResult(syntaxError())
			}
			count = n
		case "TYPE":
			typeFilter = strings.ToLower(string(args[i+1]))
		default:
			return ErrorResult(syntaxError())
		}
	}

	next, keys := d.storage.Scan(cursor, match, count)
	items := make([]Result, 0, len(keys))
	for _, key := range keys {
		if typeFilter != "" && d.storage.Type(key).String() != typeFilter {
			continue
		}
		items = append(items, BulkString(key))
	}
	return Array(BulkString(strconv.FormatUint(next, 10)), Array(items...))
}

// cmdObject implements OBJECT ENCODING key and OBJECT HELP
func cmdObject(_ context.Context, d *Dispatcher, _ *Session, args [][]byte) Result {
	switch strings.ToUpper(string(args[0])) {
	case "ENCODING":
		if len(args) != 2 {
			return ErrorResult(wrongArity("object|encoding"))
		}
		enc, ok := d.storage.Encoding(string(args[1]))
		if !ok {
			return Null()
		}
		return BulkString(enc.String())
	case "HELP":
		return Array(
			Status("OBJECT <subcommand> [<arg> [value] [opt] ...]. Subcommands are:"),
			Status("ENCODING <key>"),
			Status("    Return the kind of internal representation used in order to store the value"),
			Status("    associated with a <key>."),
		)
	default:
		return ErrorResult(unknownSubcommand(string(args[0]), "object"))
	}
}

func keyStrings(args [][]byte) []string {
	keys := make([]string, len(args))
	for i, arg := range args {
		keys[i] = string(arg)
	}
	return keys
}
