package protocol

import (
	"errors"
	"fmt"
)

// ErrIncomplete is returned by Decoder.Next when the buffered bytes do not
// yet hold a complete request. It is not a failure: feed more input and
// call Next again.
var ErrIncomplete = errors.New("incomplete request")

// ProtocolError reports malformed client input. The byte stream cannot be
// resynchronised after one, so the connection must be closed.
type ProtocolError struct {
	Message string
	Data    []byte
}

// Error implements the error interface
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("Protocol error: %s", e.Message)
}

func protocolErrorf(data []byte, format string, args ...interface{}) *ProtocolError {
	const maxSample = 32
	if len(data) > maxSample {
		data = data[:maxSample]
	}
	sample := make([]byte, len(data))
	copy(sample, data)
	return &ProtocolError{Message: fmt.Sprintf(format, args...), Data: sample}
}
