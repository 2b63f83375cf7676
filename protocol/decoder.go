package protocol

import (
	"bytes"
)

const (
	// DefaultMaxBulkSize is the largest accepted bulk argument (512MB)
	DefaultMaxBulkSize = 512 * 1024 * 1024

	// DefaultMaxMultibulkSize is the largest accepted argument count
	DefaultMaxMultibulkSize = 1024 * 1024

	// DefaultMaxInlineSize is the longest accepted inline request or header line
	DefaultMaxInlineSize = 64 * 1024
)

// Decoder incrementally decodes client requests from a byte stream.
//
// Decoder keeps the partially parsed request between calls, so bytes may be
// fed in arbitrarily small pieces. A Decoder is not safe for concurrent use.
type Decoder struct {
	buf []byte
	pos int

	// multibulk state; pending > 0 while inside a multibulk request
	pending int
	bulkLen int
	args    [][]byte

	maxBulk      int
	maxMultibulk int
	maxInline    int
}

// DecoderOption configures a Decoder
type DecoderOption func(*Decoder)

// WithMaxBulkSize overrides the maximum bulk argument length
func WithMaxBulkSize(n int) DecoderOption {
	return func(d *Decoder) {
		d.maxBulk = n
	}
}

// WithMaxMultibulkSize overrides the maximum number of arguments per request
func WithMaxMultibulkSize(n int) DecoderOption {
	return func(d *Decoder) {
		d.maxMultibulk = n
	}
}

// WithMaxInlineSize overrides the maximum inline request length
func WithMaxInlineSize(n int) DecoderOption {
	return func(d *Decoder) {
		d.maxInline = n
	}
}

// NewDecoder creates a Decoder with the default limits
func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{
		bulkLen:      -1,
		maxBulk:      DefaultMaxBulkSize,
		maxMultibulk: DefaultMaxMultibulkSize,
		maxInline:    DefaultMaxInlineSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Feed appends input bytes to the decoder's buffer.
func (d *Decoder) Feed(p []byte) {
	d.compact()
	d.buf = append(d.buf, p...)
}

// Buffered returns the number of bytes fed but not yet consumed.
func (d *Decoder) Buffered() int {
	return len(d.buf) - d.pos
}

// Next returns the next complete request. It returns ErrIncomplete when more
// input is needed and a *ProtocolError when the input is malformed. Empty
// requests (an empty inline line, *0 or *-1) are skipped.
func (d *Decoder) Next() (*Command, error) {
	for {
		if d.pending == 0 {
			if d.pos >= len(d.buf) {
				return nil, ErrIncomplete
			}
			if d.buf[d.pos] != '*' {
				words, err := d.readInline()
				if err != nil {
					return nil, err
				}
				if len(words) == 0 {
					continue
				}
				return NewCommand(words), nil
			}

			n, err := d.readMultibulkHeader()
			if err != nil {
				return nil, err
			}
			if n <= 0 {
				continue
			}
			d.pending = n
			d.bulkLen = -1
			d.args = make([][]byte, 0, min(n, 1024))
		}

		for d.pending > 0 {
			if d.bulkLen < 0 {
				n, err := d.readBulkHeader()
				if err != nil {
					return nil, err
				}
				d.bulkLen = n
			}

			if len(d.buf)-d.pos < d.bulkLen+2 {
				return nil, ErrIncomplete
			}
			end := d.pos + d.bulkLen
			if d.buf[end] != '\r' || d.buf[end+1] != '\n' {
				return nil, protocolErrorf(d.buf[end:end+2], "expected CRLF after bulk argument")
			}

			arg := make([]byte, d.bulkLen)
			copy(arg, d.buf[d.pos:end])
			d.args = append(d.args, arg)
			d.pos = end + 2
			d.bulkLen = -1
			d.pending--
		}

		args := d.args
		d.args = nil
		return NewCommand(args), nil
	}
}

// Reset discards all buffered input and any partially decoded request.
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
	d.pos = 0
	d.pending = 0
	d.bulkLen = -1
	d.args = nil
}

// readLine returns the next CRLF terminated line without its terminator.
// ok is false when the line is not complete yet.
func (d *Decoder) readLine(what string) (line []byte, ok bool, err error) {
	rest := d.buf[d.pos:]
	idx := bytes.IndexByte(rest, '\n')
	if idx < 0 {
		if len(rest) > d.maxInline {
			return nil, false, protocolErrorf(rest, "too big %s", what)
		}
		return nil, false, nil
	}
	if idx > d.maxInline {
		return nil, false, protocolErrorf(rest, "too big %s", what)
	}
	if idx == 0 || rest[idx-1] != '\r' {
		return nil, false, protocolErrorf(rest[:idx], "expected CRLF after %s", what)
	}
	d.pos += idx + 1
	return rest[:idx-1], true, nil
}

func (d *Decoder) readMultibulkHeader() (int, error) {
	line, ok, err := d.readLine("mbulk count string")
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrIncomplete
	}
	n, perr := parseInt64(line[1:])
	if perr != nil || n > int64(d.maxMultibulk) {
		return 0, protocolErrorf(line, "invalid multibulk length")
	}
	return int(n), nil
}

func (d *Decoder) readBulkHeader() (int, error) {
	line, ok, err := d.readLine("bulk count string")
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrIncomplete
	}
	if len(line) == 0 || line[0] != '$' {
		first := byte(' ')
		if len(line) > 0 {
			first = line[0]
		}
		return 0, protocolErrorf(line, "expected '$', got '%c'", first)
	}
	n, perr := parseInt64(line[1:])
	if perr != nil || n < 0 || n > int64(d.maxBulk) {
		return 0, protocolErrorf(line, "invalid bulk length")
	}
	return int(n), nil
}

// readInline consumes one inline request. Both "\r\n" and a bare "\n"
// terminate it.
func (d *Decoder) readInline() ([][]byte, error) {
	rest := d.buf[d.pos:]
	idx := bytes.IndexByte(rest, '\n')
	if idx < 0 {
		if len(rest) > d.maxInline {
			return nil, protocolErrorf(rest, "too big inline request")
		}
		return nil, ErrIncomplete
	}
	if idx > d.maxInline {
		return nil, protocolErrorf(rest, "too big inline request")
	}

	line := rest[:idx]
	if len(line) > 0 && line[len(line)-1] == '\r' {
		line = line[:len(line)-1]
	}
	d.pos += idx + 1

	fields := bytes.Fields(line)
	words := make([][]byte, len(fields))
	for i, f := range fields {
		words[i] = append([]byte(nil), f...)
	}
	return words, nil
}

// compact drops consumed bytes so the buffer does not grow without bound
// on a long-lived connection.
func (d *Decoder) compact() {
	if d.pos == 0 {
		return
	}
	if d.pos == len(d.buf) {
		d.buf = d.buf[:0]
		d.pos = 0
		return
	}
	if d.pos > len(d.buf)/2 {
		n := copy(d.buf, d.buf[d.pos:])
		d.buf = d.buf[:n]
		d.pos = 0
	}
}
