// Package fake_client is a blocking echo client for integration tests.
package fake_client

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"
)

type Option func(c *Client)

type Client struct {
	network string
	addr    string
	timeout time.Duration
	conn    net.Conn
}

func NewClient(network string, addr string, ops ...Option) *Client {
	client := &Client{network: network, addr: addr, timeout: 5 * time.Second}
	for _, op := range ops {
		op(client)
	}
	return client
}

// WithTimeout bounds every dial and read.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// Dial connects a new client to addr.
func Dial(addr string, ops ...Option) (*Client, error) {
	c := NewClient("tcp", addr, ops...)
	if err := c.Dial(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) Dial() error {
	conn, err := net.DialTimeout(c.network, c.addr, c.timeout)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.addr, err)
	}
	c.conn = conn
	return nil
}

func (c *Client) Conn() net.Conn {
	return c.conn
}

func (c *Client) Send(p []byte) error {
	_, err := c.conn.Write(p)
	return err
}

// Expect reads exactly n bytes.
func (c *Client) Expect(n int) ([]byte, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	_, err := io.ReadFull(c.conn, buf)
	return buf, err
}

// Echo sends p and reads back len(p) bytes.
func (c *Client) Echo(p []byte) ([]byte, error) {
	if err := c.Send(p); err != nil {
		return nil, err
	}
	return c.Expect(len(p))
}

// WaitEOF reads until the server closes, failing if any byte arrives.
func (c *Client) WaitEOF() error {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return err
	}
	var one [1]byte
	n, err := c.conn.Read(one[:])
	if n > 0 {
		return fmt.Errorf("unexpected byte %q before EOF", one[0])
	}
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// Reset aborts the connection so the server reads ECONNRESET.
func (c *Client) Reset() error {
	if tc, ok := c.conn.(*net.TCPConn); ok {
		_ = tc.SetLinger(0)
	}
	return c.conn.Close()
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
