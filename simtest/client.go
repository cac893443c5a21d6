// Package simtest provides helpers for testing simulators and the
// control-port protocol.
//
package simtest

import (
	"bufio"
	"encoding/binary"
	"io"
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/EmilioPeJu/panda-cocotb-based-simulation/internal/wire"
)

// Client speaks the control-port byte protocol over a net.Conn. It is
// a test double for the real control software: every method writes one
// framed command and, where the protocol defines one, reads the exact
// response.
type Client struct {
	conn net.Conn
	r    *bufio.Reader
}

// Dial connects a client to a serving control port.
func Dial(addr string) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", addr)
	}
	return NewClient(conn), nil
}

// NewClient wraps an established connection.
func NewClient(conn net.Conn) *Client {
	return &Client{conn: conn, r: bufio.NewReader(conn)}
}

// Close closes the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) send(req wire.Request) error {
	_, err := c.conn.Write(wire.AppendRequest(nil, req))
	return errors.Wrap(err, "send")
}

// ReadReg reads one register.
func (c *Client) ReadReg(block, num, reg uint8) (uint32, error) {
	if err := c.send(&wire.ReadReg{Block: block, Num: num, Reg: reg}); err != nil {
		return 0, err
	}
	var buf [4]byte
	if _, err := io.ReadFull(c.r, buf[:]); err != nil {
		return 0, errors.Wrap(err, "read value")
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

// WriteReg writes one register. The command is fire-and-forget.
func (c *Client) WriteReg(block, num, reg uint8, value uint32) error {
	return c.send(&wire.WriteReg{Block: block, Num: num, Reg: reg, Value: value})
}

// WriteTable replaces a table-backed register's contents.
func (c *Client) WriteTable(block, num, reg uint8, words []uint32) error {
	return c.send(&wire.WriteTable{Block: block, Num: num, Reg: reg, Words: words})
}

// ReadData drains up to maxWords capture words. end reports the
// end-of-stream sentinel.
func (c *Client) ReadData(maxWords uint32) (words []uint32, end bool, err error) {
	if err := c.send(&wire.ReadData{MaxWords: maxWords}); err != nil {
		return nil, false, err
	}
	var buf [4]byte
	if _, err := io.ReadFull(c.r, buf[:]); err != nil {
		return nil, false, errors.Wrap(err, "read data length")
	}
	n := binary.BigEndian.Uint32(buf[:])
	if n == wire.EndOfStream {
		return nil, true, nil
	}
	raw := make([]byte, 4*n)
	if _, err := io.ReadFull(c.r, raw); err != nil {
		return nil, false, errors.Wrap(err, "read data payload")
	}
	words = make([]uint32, n)
	for i := range words {
		words[i] = binary.BigEndian.Uint32(raw[4*i:])
	}
	return words, false, nil
}
