package command

import (
	"strconv"

	"github.com/raniellyferreira/redisless/protocol"
)

// Command is a validated request ready for dispatch
type Command struct {
	Spec *Spec
	Args [][]byte
}

// Name returns the canonical upper-case command name
func (c Command) Name() string {
	return c.Spec.Name
}

// Parse validates a decoded request against the command table. It reports
// unknown commands, wrong arity and malformed integer arguments as *Error.
// Parse never touches storage.
func Parse(frame *protocol.Command) (Command, error) {
	spec, ok := Lookup(frame.Name)
	if !ok {
		return Command{}, unknownCommand(frame.Name, frame.Args)
	}
	if !spec.checkArity(len(frame.Args) + 1) {
		return Command{}, wrongArity(spec.Name)
	}
	for i, kind := range spec.ArgKinds {
		if i >= len(frame.Args) {
			break
		}
		if kind == ArgInt {
			if _, ok := parseInt(frame.Args[i]); !ok {
				return Command{}, notInteger()
			}
		}
	}
	return Command{Spec: spec, Args: frame.Args}, nil
}

// parseInt parses a strict decimal int64, rejecting spaces and empty input
func parseInt(b []byte) (int64, bool) {
	if len(b) == 0 || len(b) > 20 {
		return 0, false
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	return n, err == nil
}
