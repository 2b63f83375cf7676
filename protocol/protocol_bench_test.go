package protocol

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

// BenchmarkDecoderCommand benchmarks decoding common requests
func BenchmarkDecoderCommand(b *testing.B) {
	commands := []struct {
		name  string
		input []byte
	}{
		{
			name:  "GET",
			input: []byte("*2\r\n$3\r\nGET\r\n$3\r\nkey\r\n"),
		},
		{
			name:  "SET",
			input: []byte("*3\r\n$3\r\nSET\r\n$3\r\nkey\r\n$5\r\nvalue\r\n"),
		},
		{
			name:  "SET_EX",
			input: []byte("*5\r\n$3\r\nSET\r\n$3\r\nkey\r\n$5\r\nvalue\r\n$2\r\nEX\r\n$2\r\n60\r\n"),
		},
		{
			name:  "INCRBY",
			input: []byte("*3\r\n$6\r\nINCRBY\r\n$7\r\ncounter\r\n$2\r\n10\r\n"),
		},
		{
			name:  "Inline_PING",
			input: []byte("PING\r\n"),
		},
	}

	for _, cmd := range commands {
		b.Run(cmd.name, func(b *testing.B) {
			d := NewDecoder()
			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				d.Feed(cmd.input)
				if _, err := d.Next(); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkDecoderPipeline benchmarks draining a pipelined batch
func BenchmarkDecoderPipeline(b *testing.B) {
	input := bytes.Repeat([]byte("*3\r\n$6\r\nINCRBY\r\n$7\r\ncounter\r\n$1\r\n1\r\n"), 100)

	b.ReportAllocs()
	b.SetBytes(int64(len(input)))
	d := NewDecoder()
	for i := 0; i < b.N; i++ {
		d.Feed(input)
		for {
			_, err := d.Next()
			if errors.Is(err, ErrIncomplete) {
				break
			}
			if err != nil {
				b.Fatal(err)
			}
		}
	}
}

// BenchmarkWriterInteger benchmarks writing integer replies
func BenchmarkWriterInteger(b *testing.B) {
	w := NewWriter(io.Discard)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if err := w.WriteValue(Value{Type: TypeInteger, Integer: int64(i)}); err != nil {
			b.Fatal(err)
		}
		if err := w.Flush(); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkWriterArray benchmarks writing array replies
func BenchmarkWriterArray(b *testing.B) {
	values := make([]Value, 10)
	for i := range values {
		values[i] = Value{Type: TypeBulkString, Data: []byte("key")}
	}

	w := NewWriter(io.Discard)
	reply := Value{Type: TypeArray, Array: values}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if err := w.WriteValue(reply); err != nil {
			b.Fatal(err)
		}
		if err := w.Flush(); err != nil {
			b.Fatal(err)
		}
	}
}
