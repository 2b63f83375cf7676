package command

import (
	"context"
	"strings"
)

func cmdEval(ctx context.Context, d *Dispatcher, _ *Session, args [][]byte) Result {
	keys, argv, err := splitScriptArgs(args)
	if err != nil {
		return ErrorResult(err)
	}
	reply, serr := d.scripts.Eval(ctx, string(args[0]), keys, argv)
	if serr != nil {
		return ErrorResult(scriptError(serr))
	}
	return resultFromValue(reply)
}

func cmdEvalSHA(ctx context.Context, d *Dispatcher, _ *Session, args [][]byte) Result {
	keys, argv, err := splitScriptArgs(args)
	if err != nil {
		return ErrorResult(err)
	}
	reply, serr := d.scripts.EvalSHA(ctx, string(args[0]), keys, argv)
	if serr != nil {
		return ErrorResult(scriptError(serr))
	}
	return resultFromValue(reply)
}

// splitScriptArgs splits "script numkeys key... arg..." into KEYS and ARGV
func splitScriptArgs(args [][]byte) (keys, argv [][]byte, err *Error) {
	numKeys, _ := parseInt(args[1])
	if numKeys < 0 {
		return nil, nil, newError(KindSyntax, "ERR Number of keys can't be negative")
	}
	rest := args[2:]
	if numKeys > int64(len(rest)) {
		return nil, nil, newError(KindSyntax, "ERR Number of keys can't be greater than number of args")
	}
	return rest[:numKeys], rest[numKeys:], nil
}

// cmdScript implements SCRIPT LOAD|EXISTS|FLUSH
func cmdScript(_ context.Context, d *Dispatcher, _ *Session, args [][]byte) Result {
	switch strings.ToUpper(string(args[0])) {
	case "LOAD":
		if len(args) != 2 {
			return ErrorResult(wrongArity("script|load"))
		}
		return BulkString(d.scripts.Load(string(args[1])))
	case "EXISTS":
		if len(args) < 2 {
			return ErrorResult(wrongArity("script|exists"))
		}
		found := d.scripts.Exists(keyStrings(args[1:])...)
		items := make([]Result, len(found))
		for i, ok := range found {
			items[i] = Integer(boolInt(ok))
		}
		return Array(items...)
	case "FLUSH":
		if len(args) > 2 {
			return ErrorResult(wrongArity("script|flush"))
		}
		d.scripts.Flush()
		return okResult
	default:
		return ErrorResult(unknownSubcommand(string(args[0]), "script"))
	}
}
