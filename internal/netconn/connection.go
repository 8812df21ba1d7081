// Package netconn wraps one bidirectional TCP stream carrying the
// wire-framed Request/Response protocol. A Connection enforces strict
// request-reply on the controller side: Call holds a mutex around the
// send/recv pair. The agent side never needs this lock, since its
// single dispatch goroutine already alternates recv/handle/send
// without any extra locking.
package netconn

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/firestige/otus-bench/internal/wire"
)

// TransportError marks a connection as non-recoverable within a
// scenario.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport broken: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Connection is a single controller<->agent TCP stream.
type Connection struct {
	conn net.Conn
	mu   sync.Mutex // guards the one-in-flight request/response pair
}

// Dial connects to an agent endpoint. Controller side only.
func Dial(ctx context.Context, addr string, timeout time.Duration) (*Connection, error) {
	var d net.Dialer
	dialCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	conn, err := d.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return nil, &TransportError{Err: fmt.Errorf("dial %s: %w", addr, err)}
	}
	return &Connection{conn: conn}, nil
}

// Accept wraps an already-accepted net.Conn. Agent side only.
func Accept(conn net.Conn) *Connection {
	return &Connection{conn: conn}
}

// Call sends a request and returns the matching response, holding the
// connection's mutex for the full round trip so no other goroutine
// can interleave a request. Not valid for End/Abort, which have no
// response (use Send directly for those).
func (c *Connection) Call(req *wire.Request) (*wire.Response, error) {
	if req.Terminal() {
		return nil, fmt.Errorf("netconn: Call used with terminal request %q; use Send", req.Tag())
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := wire.EncodeRequest(c.conn, req); err != nil {
		return nil, &TransportError{Err: err}
	}
	resp, err := wire.DecodeResponse(c.conn)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	return resp, nil
}

// Send writes a request without waiting for a response. Used for End
// and Abort, which are never acknowledged.
func (c *Connection) Send(req *wire.Request) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := wire.EncodeRequest(c.conn, req); err != nil {
		return &TransportError{Err: err}
	}
	return nil
}

// RecvRequest reads one request. Agent dispatch loop only.
func (c *Connection) RecvRequest() (*wire.Request, error) {
	req, err := wire.DecodeRequest(c.conn)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	return req, nil
}

// SendResponse writes one response. Agent dispatch loop only.
func (c *Connection) SendResponse(resp *wire.Response) error {
	if err := wire.EncodeResponse(c.conn, resp); err != nil {
		return &TransportError{Err: err}
	}
	return nil
}

// Close half-closes both directions of the underlying stream.
func (c *Connection) Close() error {
	return c.conn.Close()
}
