package protocol

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Writer encodes replies onto a buffered stream. Replies accumulate until
// Flush, so a pipeline of requests can be answered with one write.
type Writer struct {
	bw      *bufio.Writer
	scratch []byte
}

// NewWriter creates a reply writer with the default buffer size
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriter(w)}
}

// NewWriterSize creates a reply writer whose buffer holds at least size bytes
func NewWriterSize(w io.Writer, size int) *Writer {
	return &Writer{bw: bufio.NewWriterSize(w, size)}
}

// WriteValue encodes v, including nested arrays, as one reply
func (w *Writer) WriteValue(v Value) error {
	buf, err := appendValue(w.scratch[:0], v)
	if err != nil {
		return err
	}
	w.scratch = buf
	_, err = w.bw.Write(buf)
	return err
}

// WriteError writes an error reply line. CR and LF are replaced with spaces.
func (w *Writer) WriteError(msg string) error {
	return w.WriteValue(Value{Type: TypeError, Data: []byte(msg)})
}

// Flush sends buffered replies to the underlying writer
func (w *Writer) Flush() error {
	return w.bw.Flush()
}

// lineSanitizer keeps a status or error line from breaking the framing
var lineSanitizer = strings.NewReplacer("\r", " ", "\n", " ")

func appendValue(buf []byte, v Value) ([]byte, error) {
	switch v.Type {
	case TypeSimpleString, TypeError:
		buf = append(buf, byte(v.Type))
		buf = append(buf, lineSanitizer.Replace(string(v.Data))...)
		return append(buf, '\r', '\n'), nil

	case TypeInteger:
		buf = append(buf, ':')
		buf = strconv.AppendInt(buf, v.Integer, 10)
		return append(buf, '\r', '\n'), nil

	case TypeBulkString:
		if v.IsNull {
			return append(buf, "$-1\r\n"...), nil
		}
		buf = append(buf, '$')
		buf = strconv.AppendInt(buf, int64(len(v.Data)), 10)
		buf = append(buf, '\r', '\n')
		buf = append(buf, v.Data...)
		return append(buf, '\r', '\n'), nil

	case TypeArray:
		if v.IsNull {
			return append(buf, "*-1\r\n"...), nil
		}
		buf = append(buf, '*')
		buf = strconv.AppendInt(buf, int64(len(v.Array)), 10)
		buf = append(buf, '\r', '\n')
		var err error
		for _, item := range v.Array {
			if buf, err = appendValue(buf, item); err != nil {
				return buf, err
			}
		}
		return buf, nil

	default:
		return buf, fmt.Errorf("unsupported value type: %q", byte(v.Type))
	}
}
