package comms

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"golang.org/x/net/ipv4"

	"go_dir_sync/networking"
)

// Client is one session's connection to the backup server
type Client struct {
	conn   net.Conn
	stream *networking.Stream
}

// Connect opens TCP connection to target host address.
// A non-zero tos is applied to the socket's IPv4 TOS field (DSCP marking).
// With mptcp set, Multipath TCP is requested and plain TCP is used where the kernel lacks it.
func Connect(ctx context.Context, address string, tos int, mptcp bool) (*Client, error) {
	dial := new(net.Dialer)
	// Set MPTCP.
	dial.SetMultipathTCP(mptcp)
	// Connect to host.
	conn, err := dial.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, &networking.IOError{Op: "connect", Err: err}
	}

	if tcp, ok := conn.(*net.TCPConn); ok {
		// Set TCP_NODELAY so EndFile is not held back waiting for more data.
		tcp.SetNoDelay(true)
	}
	if tos != 0 {
		// NOTE: Has no effect on IPv6 connections and by default on Windows.
		ipv4.NewConn(conn).SetTOS(tos)
	}

	return NewClient(conn), nil
}

// NewClient wraps an established connection
func NewClient(conn net.Conn) *Client {
	return &Client{
		conn:   conn,
		stream: networking.NewStream(conn),
	}
}

// Send frames and writes one message
func (c *Client) Send(msg networking.Message) error {
	return c.stream.Send(msg)
}

// Receive blocks until the server sends the next message
func (c *Client) Receive() (networking.Message, error) {
	return c.stream.Receive()
}

// CloseWrite half-closes the connection, telling the server no more data follows
func (c *Client) CloseWrite() error {
	type closeWriter interface {
		CloseWrite() error
	}
	if cw, ok := c.conn.(closeWriter); ok {
		if err := cw.CloseWrite(); err != nil && !errors.Is(err, net.ErrClosed) {
			return &networking.IOError{Op: "close write", Err: err}
		}
	}
	return nil
}

// AwaitClose blocks until the server closes its end after EndSession.
// Any message arriving instead is returned as an error.
func (c *Client) AwaitClose() error {
	msg, err := c.stream.Receive()
	if err == nil {
		return fmt.Errorf("unexpected %s after end of session", networking.Describe(msg))
	}
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// RemoteAddr returns the server address
func (c *Client) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// Close closes socket
func (c *Client) Close() error {
	return c.conn.Close()
}
