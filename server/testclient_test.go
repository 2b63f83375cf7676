package server

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

// testClient speaks just enough RESP to drive the server from tests.
// Replies are rendered as text: statuses and bulks as their content,
// errors with their leading "-", nil as "(nil)" and arrays as "[a, b]".
type testClient struct {
	conn net.Conn
	r    *bufio.Reader
	w    *bufio.Writer
}

func newTestClient(addr string) (*testClient, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &testClient{
		conn: conn,
		r:    bufio.NewReader(conn),
		w:    bufio.NewWriter(conn),
	}, nil
}

func (c *testClient) Close() error {
	return c.conn.Close()
}

// queue buffers a request without sending it
func (c *testClient) queue(cmd string, args ...string) {
	fmt.Fprintf(c.w, "*%d\r\n$%d\r\n%s\r\n", len(args)+1, len(cmd), cmd)
	for _, arg := range args {
		fmt.Fprintf(c.w, "$%d\r\n%s\r\n", len(arg), arg)
	}
}

func (c *testClient) flush() error {
	return c.w.Flush()
}

func (c *testClient) sendCommand(cmd string, args ...string) (string, error) {
	c.queue(cmd, args...)
	if err := c.flush(); err != nil {
		return "", err
	}
	return c.readResponse()
}

func (c *testClient) readResponse() (string, error) {
	_ = c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return c.readReply()
}

func (c *testClient) readReply() (string, error) {
	line, err := c.r.ReadString('\n')
	if err != nil {
		return "", err
	}
	line = strings.TrimSuffix(line, "\r\n")
	if line == "" {
		return "", fmt.Errorf("empty reply line")
	}

	body := line[1:]
	switch line[0] {
	case '+', ':':
		return body, nil
	case '-':
		return line, nil
	case '$':
		n, err := strconv.Atoi(body)
		if err != nil {
			return "", fmt.Errorf("bad bulk length %q", body)
		}
		if n < 0 {
			return "(nil)", nil
		}
		buf := make([]byte, n+2)
		if _, err := io.ReadFull(c.r, buf); err != nil {
			return "", err
		}
		return string(buf[:n]), nil
	case '*':
		n, err := strconv.Atoi(body)
		if err != nil {
			return "", fmt.Errorf("bad array length %q", body)
		}
		if n < 0 {
			return "(nil)", nil
		}
		items := make([]string, n)
		for i := range items {
			if items[i], err = c.readReply(); err != nil {
				return "", err
			}
		}
		return "[" + strings.Join(items, ", ") + "]", nil
	default:
		return "", fmt.Errorf("unexpected reply %q", line)
	}
}
