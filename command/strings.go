package command

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/raniellyferreira/redisless/storage"
)

func cmdGet(_ context.Context, d *Dispatcher, _ *Session, args [][]byte) Result {
	value, ok := d.storage.Get(string(args[0]))
	if !ok {
		return Null()
	}
	return Bulk(value)
}

// setArgs is the parsed option list of SET
type setArgs struct {
	opts storage.SetOptions
	get  bool
}

func parseSetArgs(args [][]byte, now time.Time) (setArgs, *Error) {
	var sa setArgs
	hasExpiry := false

	for i := 0; i < len(args); i++ {
		opt := strings.ToUpper(string(args[i]))
		switch opt {
		case "NX":
			if sa.opts.OnlyIfPresent {
				return sa, syntaxError()
			}
			sa.opts.OnlyIfAbsent = true
		case "XX":
			if sa.opts.OnlyIfAbsent {
				return sa, syntaxError()
			}
			sa.opts.OnlyIfPresent = true
		case "GET":
			sa.get = true
		case "KEEPTTL":
			if hasExpiry {
				return sa, syntaxError()
			}
			sa.opts.KeepTTL = true
		case "EX", "PX", "EXAT", "PXAT":
			if hasExpiry || sa.opts.KeepTTL || i+1 >= len(args) {
				return sa, syntaxError()
			}
			i++
			n, ok := parseInt(args[i])
			if !ok {
				return sa, notInteger()
			}
			expiry, ok := expiryFrom(opt, n, now)
			if !ok {
				return sa, invalidExpire("set")
			}
			sa.opts.Expiry = &expiry
			hasExpiry = true
		default:
			return sa, syntaxError()
		}
	}
	return sa, nil
}

// expiryFrom converts an EX/PX/EXAT/PXAT argument to an absolute time.
// Non-positive values and values that overflow a millisecond timestamp
// are rejected.
func expiryFrom(unit string, n int64, now time.Time) (time.Time, bool) {
	if n <= 0 {
		return time.Time{}, false
	}
	const maxMillis = math.MaxInt64 / int64(time.Millisecond)

	switch unit {
	case "EX":
		if n > maxMillis/1000 {
			return time.Time{}, false
		}
		return now.Add(time.Duration(n) * time.Second), true
	case "PX":
		if n > maxMillis {
			return time.Time{}, false
		}
		return now.Add(time.Duration(n) * time.Millisecond), true
	case "EXAT":
		if n > maxMillis/1000 {
			return time.Time{}, false
		}
		return time.Unix(n, 0), true
	default:
		return time.UnixMilli(n), true
	}
}

func cmdSet(_ context.Context, d *Dispatcher, _ *Session, args [][]byte) Result {
	sa, err := parseSetArgs(args[2:], time.Now())
	if err != nil {
		return ErrorResult(err)
	}

	res, serr := d.storage.SetWithOptions(string(args[0]), args[1], sa.opts)
	if serr != nil {
		return ErrorResult(storageError(serr))
	}

	if sa.get {
		if !res.Existed {
			return Null()
		}
		return Bulk(res.Old)
	}
	if !res.Written {
		return Null()
	}
	return okResult
}

func cmdGetSet(_ context.Context, d *Dispatcher, _ *Session, args [][]byte) Result {
	res, err := d.storage.SetWithOptions(string(args[0]), args[1], storage.SetOptions{})
	if err != nil {
		return ErrorResult(storageError(err))
	}
	if !res.Existed {
		return Null()
	}
	return Bulk(res.Old)
}

func cmdSetNX(_ context.Context, d *Dispatcher, _ *Session, args [][]byte) Result {
	res, err := d.storage.SetWithOptions(string(args[0]), args[1], storage.SetOptions{OnlyIfAbsent: true})
	if err != nil {
		return ErrorResult(storageError(err))
	}
	return Integer(boolInt(res.Written))
}

func cmdMGet(_ context.Context, d *Dispatcher, _ *Session, args [][]byte) Result {
	items := make([]Result, len(args))
	for i, key := range args {
		if value, ok := d.storage.Get(string(key)); ok {
			items[i] = Bulk(value)
		} else {
			items[i] = Null()
		}
	}
	return Array(items...)
}

func cmdMSet(_ context.Context, d *Dispatcher, _ *Session, args [][]byte) Result {
	if len(args)%2 != 0 {
		return ErrorResult(wrongArity("mset"))
	}
	for i := 0; i < len(args); i += 2 {
		if err := d.storage.Set(string(args[i]), args[i+1], nil); err != nil {
			return ErrorResult(storageError(err))
		}
	}
	return okResult
}

func cmdAppend(_ context.Context, d *Dispatcher, _ *Session, args [][]byte) Result {
	n, err := d.storage.Append(string(args[0]), args[1])
	if err != nil {
		return ErrorResult(storageError(err))
	}
	return Integer(n)
}

func cmdStrLen(_ context.Context, d *Dispatcher, _ *Session, args [][]byte) Result {
	return Integer(d.storage.StrLen(string(args[0])))
}

func cmdIncr(_ context.Context, d *Dispatcher, _ *Session, args [][]byte) Result {
	return counterResult(d.storage.IncrBy(string(args[0]), 1))
}

func cmdDecr(_ context.Context, d *Dispatcher, _ *Session, args [][]byte) Result {
	return counterResult(d.storage.DecrBy(string(args[0]), 1))
}

func cmdIncrBy(_ context.Context, d *Dispatcher, _ *Session, args [][]byte) Result {
	delta, _ := parseInt(args[1])
	return counterResult(d.storage.IncrBy(string(args[0]), delta))
}

func cmdDecrBy(_ context.Context, d *Dispatcher, _ *Session, args [][]byte) Result {
	delta, _ := parseInt(args[1])
	return counterResult(d.storage.DecrBy(string(args[0]), delta))
}

func counterResult(n int64, err error) Result {
	if err != nil {
		return ErrorResult(storageError(err))
	}
	return Integer(n)
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
