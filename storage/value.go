package storage

import (
	"strconv"
	"time"
)

// ValueType represents the Redis data type
type ValueType int

const (
	ValueTypeNone ValueType = iota
	ValueTypeString
)

// String returns the Redis-compatible type name
func (vt ValueType) String() string {
	switch vt {
	case ValueTypeString:
		return "string"
	default:
		return "none"
	}
}

// Encoding describes how a string value is held in memory
type Encoding int

const (
	// EncodingRaw holds the bytes as written
	EncodingRaw Encoding = iota
	// EncodingInt holds a canonical decimal integer as an int64
	EncodingInt
)

// String returns the name reported by OBJECT ENCODING
func (e Encoding) String() string {
	switch e {
	case EncodingInt:
		return "int"
	default:
		return "raw"
	}
}

// Value represents a stored value with metadata
type Value struct {
	Type     ValueType
	Encoding Encoding
	Expiry   *time.Time

	raw []byte
	num int64
}

// newStringValue builds a string value, choosing the int encoding when the
// bytes are exactly the canonical form of an int64.
func newStringValue(data []byte, expiry *time.Time) *Value {
	v := &Value{
		Type:   ValueTypeString,
		Expiry: expiry,
	}
	if n, ok := canonicalInt(data); ok {
		v.Encoding = EncodingInt
		v.num = n
		return v
	}
	v.Encoding = EncodingRaw
	v.raw = append([]byte(nil), data...)
	return v
}

// newIntValue builds an int-encoded string value
func newIntValue(n int64, expiry *time.Time) *Value {
	return &Value{
		Type:     ValueTypeString,
		Encoding: EncodingInt,
		Expiry:   expiry,
		num:      n,
	}
}

// IsExpired returns true if the value has expired
func (v *Value) IsExpired() bool {
	return v.Expiry != nil && !time.Now().Before(*v.Expiry)
}

// Bytes returns a copy of the textual form of the value
func (v *Value) Bytes() []byte {
	if v.Encoding == EncodingInt {
		return strconv.AppendInt(nil, v.num, 10)
	}
	return append([]byte(nil), v.raw...)
}

// Len returns the length of the textual form without materializing it
func (v *Value) Len() int {
	if v.Encoding == EncodingInt {
		var buf [20]byte
		return len(strconv.AppendInt(buf[:0], v.num, 10))
	}
	return len(v.raw)
}

// Int interprets the value as a signed 64-bit integer
func (v *Value) Int() (int64, error) {
	if v.Encoding == EncodingInt {
		return v.num, nil
	}
	n, err := strconv.ParseInt(string(v.raw), 10, 64)
	if err != nil {
		return 0, ErrNotInteger
	}
	return n, nil
}

// canonicalInt reports whether b is the canonical decimal form of an int64
func canonicalInt(b []byte) (int64, bool) {
	if len(b) == 0 || len(b) > 20 {
		return 0, false
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, false
	}
	var buf [20]byte
	if string(strconv.AppendInt(buf[:0], n, 10)) != string(b) {
		return 0, false
	}
	return n, true
}

// addInt64 adds delta to n, failing instead of wrapping around
func addInt64(n, delta int64) (int64, error) {
	if (delta > 0 && n > maxInt64-delta) || (delta < 0 && n < minInt64-delta) {
		return 0, ErrOverflow
	}
	return n + delta, nil
}

const (
	maxInt64 = 1<<63 - 1
	minInt64 = -1 << 63
)
