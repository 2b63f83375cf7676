package protocol_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raniellyferreira/redisless/protocol"
)

func encode(t *testing.T, v protocol.Value) string {
	t.Helper()
	var buf bytes.Buffer
	w := protocol.NewWriter(&buf)
	require.NoError(t, w.WriteValue(v))
	require.NoError(t, w.Flush())
	return buf.String()
}

func bulk(s string) protocol.Value {
	return protocol.Value{Type: protocol.TypeBulkString, Data: []byte(s)}
}

func TestWriterReplies(t *testing.T) {
	tests := []struct {
		name  string
		value protocol.Value
		want  string
	}{
		{"status", protocol.Value{Type: protocol.TypeSimpleString, Data: []byte("OK")}, "+OK\r\n"},
		{"error", protocol.Value{Type: protocol.TypeError, Data: []byte("ERR boom")}, "-ERR boom\r\n"},
		{"integer", protocol.Value{Type: protocol.TypeInteger, Integer: 13}, ":13\r\n"},
		{"negative integer", protocol.Value{Type: protocol.TypeInteger, Integer: -9223372036854775808}, ":-9223372036854775808\r\n"},
		{"bulk", bulk("hello"), "$5\r\nhello\r\n"},
		{"empty bulk", bulk(""), "$0\r\n\r\n"},
		{"binary bulk", bulk("a\r\nb"), "$4\r\na\r\nb\r\n"},
		{"null bulk", protocol.Value{Type: protocol.TypeBulkString, IsNull: true}, "$-1\r\n"},
		{"null array", protocol.Value{Type: protocol.TypeArray, IsNull: true}, "*-1\r\n"},
		{"empty array", protocol.Value{Type: protocol.TypeArray}, "*0\r\n"},
		{
			"nested array",
			protocol.Value{Type: protocol.TypeArray, Array: []protocol.Value{
				bulk("0"),
				{Type: protocol.TypeArray, Array: []protocol.Value{bulk("a"), {Type: protocol.TypeInteger, Integer: 1}}},
			}},
			"*2\r\n$1\r\n0\r\n*2\r\n$1\r\na\r\n:1\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, encode(t, tt.value))
		})
	}
}

func TestWriterSanitizesLines(t *testing.T) {
	var buf bytes.Buffer
	w := protocol.NewWriter(&buf)

	require.NoError(t, w.WriteError("ERR bad\r\ninput"))
	require.NoError(t, w.WriteValue(protocol.Value{Type: protocol.TypeSimpleString, Data: []byte("a\nb")}))
	require.NoError(t, w.Flush())

	assert.Equal(t, "-ERR bad  input\r\n+a b\r\n", buf.String())
}

func TestWriterBuffersUntilFlush(t *testing.T) {
	var buf bytes.Buffer
	w := protocol.NewWriterSize(&buf, 4096)

	for i := 0; i < 3; i++ {
		require.NoError(t, w.WriteValue(protocol.Value{Type: protocol.TypeInteger, Integer: int64(i)}))
	}
	assert.Zero(t, buf.Len())

	require.NoError(t, w.Flush())
	assert.Equal(t, ":0\r\n:1\r\n:2\r\n", buf.String())
}

func TestWriterUnknownType(t *testing.T) {
	w := protocol.NewWriter(&bytes.Buffer{})
	assert.Error(t, w.WriteValue(protocol.Value{Type: '?'}))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestWriterFlushError(t *testing.T) {
	w := protocol.NewWriter(failingWriter{})
	require.NoError(t, w.WriteError("ERR x"))
	assert.Error(t, w.Flush())
}

func TestValueString(t *testing.T) {
	tests := []struct {
		value protocol.Value
		want  string
	}{
		{protocol.Value{Type: protocol.TypeSimpleString, Data: []byte("OK")}, "OK"},
		{protocol.Value{Type: protocol.TypeInteger, Integer: 42}, "42"},
		{protocol.Value{Type: protocol.TypeBulkString, IsNull: true}, "(nil)"},
		{protocol.Value{Type: protocol.TypeArray, Array: []protocol.Value{bulk("a"), bulk("b")}}, "[a, b]"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.value.String())
	}

	errValue := protocol.Value{Type: protocol.TypeError, Data: []byte("ERR unknown command")}
	assert.True(t, errValue.IsError())
	assert.Equal(t, "ERR unknown command", errValue.Error())
	assert.Empty(t, bulk("x").Error())
}

func TestNewCommand(t *testing.T) {
	cmd := protocol.NewCommand([][]byte{[]byte("incrBy"), []byte("k"), []byte("5")})
	assert.Equal(t, "INCRBY", cmd.Name)
	require.Len(t, cmd.Args, 2)
	assert.Equal(t, "INCRBY k 5", cmd.String())

	assert.Equal(t, "PING", protocol.NewCommand([][]byte{[]byte("ping")}).String())
}
