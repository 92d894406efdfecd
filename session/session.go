// Package session implements a single HTTP/1.1 connect/request/read/close
// cycle over either a plain TCP stream or a TLS stream. A session is used
// for exactly one request and is never pooled or reused.
package session

import (
	"bufio"
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	"github.com/adammathes/pagefetch/event"
	"github.com/adammathes/pagefetch/weburl"
)

// DefaultUserAgent is the static client identifier sent with every request
// unless Options.UserAgent overrides it.
const DefaultUserAgent = "Mozilla/5.0 (compatible; pagefetch/1.0)"

const (
	defaultDialTimeout = 30 * time.Second
	defaultReadTimeout = 5 * time.Minute
)

var (
	ErrState             = errors.New("session: operation not valid in current state")
	ErrMalformedResponse = errors.New("session: malformed response")
	ErrBlockedAddress    = errors.New("session: blocked connection to private/local address")
	ErrBodyTooLarge      = errors.New("session: response body exceeds maximum allowed size")
)

// OpError records which step of the session failed and against which
// address.
type OpError struct {
	Op   string // "connect", "handshake", "request", "read" or "close"
	Addr string
	Err  error
}

func (e *OpError) Error() string {
	if e.Addr == "" {
		return fmt.Sprintf("session %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("session %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// State is a position in the session lifecycle.
type State int

const (
	Unconnected State = iota
	Connected
	RequestSent
	ResponseRead
	Closed
	Failed
)

func (s State) String() string {
	switch s {
	case Unconnected:
		return "unconnected"
	case Connected:
		return "connected"
	case RequestSent:
		return "request-sent"
	case ResponseRead:
		return "response-read"
	case Closed:
		return "closed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Session is the uniform contract shared by the plain and TLS variants.
// Calls must be made in order: Connect, Request, Read, then Close. Close
// may be called at any point and more than once.
type Session interface {
	Connect(ctx context.Context, u weburl.URL) error
	Request() error
	Read() (*Response, error)
	Close() error
	State() State
}

// Options tune a session. The zero value is usable.
type Options struct {
	UserAgent string
	// DialTimeout bounds name resolution, TCP connect and the TLS handshake.
	DialTimeout time.Duration
	// ReadTimeout is the overall deadline for writing the request and
	// reading the complete response.
	ReadTimeout time.Duration
	// MaxBodyBytes caps the response body; 0 means unlimited.
	MaxBodyBytes int64
	// BlockPrivate refuses to dial loopback, link-local and private
	// addresses.
	BlockPrivate bool
	Resolver     *net.Resolver
	Observer     event.Observer
}

func (o Options) withDefaults() Options {
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = defaultDialTimeout
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = defaultReadTimeout
	}
	if o.Resolver == nil {
		o.Resolver = net.DefaultResolver
	}
	o.Observer = event.Or(o.Observer)
	return o
}

// Conn is a Session. Its stream decides how the byte stream is
// established on top of the dialed TCP connection.
type Conn struct {
	opts   Options
	stream stream
	state  State
	url    weburl.URL
	conn   net.Conn
	br     *bufio.Reader
}

var _ Session = (*Conn)(nil)

// NewPlain returns an unencrypted session.
func NewPlain(opts Options) *Conn {
	return &Conn{opts: opts.withDefaults(), stream: plainStream{}}
}

// NewTLS returns a TLS session that verifies the server against roots.
// A nil pool falls back to the system roots. The pool is only read, so
// one pool may be shared by any number of concurrent sessions.
func NewTLS(roots *x509.CertPool, opts Options) *Conn {
	return &Conn{opts: opts.withDefaults(), stream: tlsStream{roots: roots}}
}

func (c *Conn) State() State { return c.state }

// Connect resolves u's host, dials the first usable address and, for TLS
// sessions, completes the handshake.
func (c *Conn) Connect(ctx context.Context, u weburl.URL) error {
	if c.state != Unconnected {
		return &OpError{Op: "connect", Addr: u.Address(), Err: ErrState}
	}
	c.url = u
	addr := u.Address()
	event.Infof(c.opts.Observer, u.String(), "connect to %s (%s)", addr, c.stream.name())

	ctx, cancel := context.WithTimeout(ctx, c.opts.DialTimeout)
	defer cancel()

	raw, err := c.dial(ctx, u)
	if err != nil {
		return c.fail("connect", err)
	}
	conn, err := c.stream.open(ctx, raw, u)
	if err != nil {
		_ = raw.Close()
		return c.fail("handshake", err)
	}
	c.conn = conn
	c.br = bufio.NewReader(conn)
	c.state = Connected
	return nil
}

// Request writes a single GET request for the connected URL. The overall
// read deadline starts here.
func (c *Conn) Request() error {
	if c.state != Connected {
		return &OpError{Op: "request", Addr: c.url.Address(), Err: ErrState}
	}
	_ = c.conn.SetDeadline(time.Now().Add(c.opts.ReadTimeout))

	bw := bufio.NewWriter(c.conn)
	if err := writeRequest(bw, c.url, c.opts.UserAgent); err != nil {
		return c.fail("request", err)
	}
	if err := bw.Flush(); err != nil {
		return c.fail("request", err)
	}
	event.Infof(c.opts.Observer, c.url.String(), "GET %s HTTP/1.1", c.url.RequestURI())
	c.state = RequestSent
	return nil
}

// Read blocks until the status line, headers and the complete body have
// arrived or the read deadline expires.
func (c *Conn) Read() (*Response, error) {
	if c.state != RequestSent {
		return nil, &OpError{Op: "read", Addr: c.url.Address(), Err: ErrState}
	}
	resp, err := readResponse(c.br, c.opts.MaxBodyBytes)
	if err != nil {
		return nil, c.fail("read", err)
	}
	obs := c.opts.Observer
	obs.Observe(event.Event{
		Level:   event.Info,
		URL:     c.url.String(),
		Status:  resp.StatusCode,
		Message: fmt.Sprintf("received %s %d %s", resp.Proto, resp.StatusCode, resp.Reason),
	})
	for _, f := range resp.Header {
		event.Infof(obs, c.url.String(), "%s: %s", f.Key, f.Value)
	}
	c.state = ResponseRead
	return resp, nil
}

// Close shuts the stream down. Closing an unconnected, failed or already
// closed session is not an error, nor is finding the peer already gone.
func (c *Conn) Close() error {
	if c.state == Closed {
		return nil
	}
	c.state = Closed
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.br = nil
	if err == nil || isNotConnected(err) {
		return nil
	}
	event.Errorf(c.opts.Observer, c.url.String(), err, "close failed")
	return &OpError{Op: "close", Addr: c.url.Address(), Err: err}
}

func (c *Conn) fail(op string, err error) error {
	c.state = Failed
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
		c.br = nil
	}
	opErr := &OpError{Op: op, Addr: c.url.Address(), Err: err}
	event.Errorf(c.opts.Observer, c.url.String(), err, "%s failed", op)
	return opErr
}

func isNotConnected(err error) bool {
	return errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ENOTCONN) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.ECONNRESET)
}
