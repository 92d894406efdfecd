// Package fetch drives sessions for a URL, following redirects up to a
// fixed hop limit, and hands successful bodies to the decoder.
package fetch

import (
	"bytes"
	"context"
	"crypto/x509"
	"fmt"
	"io"
	"strings"

	"golang.org/x/time/rate"

	"github.com/adammathes/pagefetch/decode"
	"github.com/adammathes/pagefetch/event"
	"github.com/adammathes/pagefetch/session"
	"github.com/adammathes/pagefetch/weburl"
)

// SessionFactory returns a fresh, unconnected session suitable for u.
type SessionFactory func(u weburl.URL) (session.Session, error)

// Option configures a Client at construction.
type Option func(*Client)

// WithObserver routes the client's and its sessions' events to o.
func WithObserver(o event.Observer) Option {
	return func(c *Client) { c.obs = event.Or(o) }
}

// WithRootCAs sets the trust material for https sessions. The pool is
// shared read-only by every session the client creates.
func WithRootCAs(pool *x509.CertPool) Option {
	return func(c *Client) { c.roots = pool }
}

// WithSessionFactory replaces scheme-based session selection.
func WithSessionFactory(f SessionFactory) Option {
	return func(c *Client) { c.newSession = f }
}

// Client fetches resources. It holds no per-request state and is safe for
// concurrent use; every attempt gets its own session.
type Client struct {
	cfg        *Config
	obs        event.Observer
	roots      *x509.CertPool
	newSession SessionFactory
	limiter    *rate.Limiter
}

// NewClient returns a Client using a copy of cfg with defaults filled in.
// A nil cfg means all defaults.
func NewClient(cfg *Config, opts ...Option) *Client {
	var cp Config
	if cfg != nil {
		cp = *cfg
	}
	c := &Client{cfg: cp.WithDefaults(), obs: event.Nop{}}
	c.newSession = c.sessionFor
	for _, opt := range opts {
		opt(c)
	}
	if c.cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(c.cfg.RequestsPerSecond), 1)
	}
	return c
}

// Config returns the effective configuration.
func (c *Client) Config() Config { return *c.cfg }

func (c *Client) sessionFor(u weburl.URL) (session.Session, error) {
	opts := c.cfg.sessionOptions()
	opts.Observer = c.obs
	switch u.Protocol {
	case "http":
		return session.NewPlain(opts), nil
	case "https":
		return session.NewTLS(c.roots, opts), nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedScheme, u.Protocol)
	}
}

// Hop is one followed redirect.
type Hop struct {
	URL        string
	StatusCode int
	Location   string
}

// Result is the final response of a redirect chain.
type Result struct {
	// URL is the locator that produced Response.
	URL       weburl.URL
	Response  *session.Response
	Redirects []Hop
}

// Page is a successfully fetched and decoded document.
type Page struct {
	*Result
	Text string
}

// Do runs a single connect/request/read cycle against u without following
// redirects or decoding. Any status is returned as a response.
func (c *Client) Do(ctx context.Context, u weburl.URL) (*session.Response, error) {
	if !u.Valid() {
		return nil, weburl.ErrEmptyHost
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	s, err := c.newSession(u)
	if err != nil {
		event.Errorf(c.obs, u.String(), err, "no session for %s", u.Protocol)
		return nil, err
	}
	defer func() {
		// The response is already complete; a failed close is only reported.
		_ = s.Close()
	}()

	if err := s.Connect(ctx, u); err != nil {
		return nil, err
	}
	if err := s.Request(); err != nil {
		return nil, err
	}
	return s.Read()
}

// Get fetches rawURL, following up to MaxRedirects redirects. The final
// response is returned whatever its status.
func (c *Client) Get(ctx context.Context, rawURL string) (*Result, error) {
	u, err := weburl.Parse(rawURL)
	if err != nil {
		event.Errorf(c.obs, rawURL, err, "invalid URL")
		return nil, err
	}
	origin := u.Host
	res := &Result{}
	for {
		resp, err := c.Do(ctx, u)
		if err != nil {
			return nil, err
		}
		if !resp.IsRedirect() || c.cfg.RedirectPolicy == RedirectNone {
			res.URL = u
			res.Response = resp
			return res, nil
		}

		loc, ok := resp.Location()
		if !ok || strings.TrimSpace(loc) == "" {
			err := fmt.Errorf("%s: HTTP %d: %w", u, resp.StatusCode, ErrMissingLocation)
			event.Errorf(c.obs, u.String(), err, "redirect failed")
			return nil, err
		}
		next, err := u.Resolve(strings.TrimSpace(loc))
		if err != nil {
			err = fmt.Errorf("redirect from %s to %q: %w", u, loc, err)
			event.Errorf(c.obs, u.String(), err, "redirect failed")
			return nil, err
		}
		if len(res.Redirects) >= c.cfg.MaxRedirects {
			err := fmt.Errorf("%s: %w (%d)", rawURL, ErrTooManyRedirects, c.cfg.MaxRedirects)
			event.Errorf(c.obs, u.String(), err, "redirect failed")
			return nil, err
		}
		if c.cfg.RedirectPolicy == RedirectSameHost && !strings.EqualFold(next.Host, origin) {
			err := fmt.Errorf("%s to %s: %w", u, next, ErrRedirectBlocked)
			event.Errorf(c.obs, u.String(), err, "redirect failed")
			return nil, err
		}
		res.Redirects = append(res.Redirects, Hop{URL: u.String(), StatusCode: resp.StatusCode, Location: loc})
		c.obs.Observe(event.Event{
			Level:   event.Info,
			URL:     u.String(),
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("redirect %d of %d to %s", len(res.Redirects), c.cfg.MaxRedirects, next),
		})
		u = next
	}
}

// FetchPage fetches rawURL and decodes the body of a 200 response. The
// body's own charset declaration wins; otherwise defaultEncoding is used,
// falling back to the configured default when it is empty.
func (c *Client) FetchPage(ctx context.Context, rawURL, defaultEncoding string) (*Page, error) {
	res, err := c.success(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if defaultEncoding == "" {
		defaultEncoding = c.cfg.DefaultEncoding
	}
	text, err := decode.Decode(res.Response.Body, defaultEncoding)
	if err != nil {
		event.Errorf(c.obs, res.URL.String(), err, "decode failed")
		return nil, err
	}
	return &Page{Result: res, Text: text}, nil
}

// FetchText is FetchPage returning only the text.
func (c *Client) FetchText(ctx context.Context, rawURL, defaultEncoding string) (string, error) {
	p, err := c.FetchPage(ctx, rawURL, defaultEncoding)
	if err != nil {
		return "", err
	}
	return p.Text, nil
}

// FetchBinary fetches rawURL and writes the body of a 200 response to dst
// unchanged.
func (c *Client) FetchBinary(ctx context.Context, rawURL string, dst io.Writer) (int64, error) {
	res, err := c.success(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(dst, bytes.NewReader(res.Response.Body))
	if err != nil {
		return n, fmt.Errorf("writing body: %w", err)
	}
	return n, nil
}

func (c *Client) success(ctx context.Context, rawURL string) (*Result, error) {
	res, err := c.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if !res.Response.IsSuccess() {
		err := &StatusError{URL: res.URL.String(), StatusCode: res.Response.StatusCode, Reason: res.Response.Reason}
		c.obs.Observe(event.Event{Level: event.Error, URL: err.URL, Status: err.StatusCode, Err: err, Message: "unsuccessful response"})
		return nil, err
	}
	return res, nil
}
