package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/adammathes/pagefetch/decode"
	"github.com/adammathes/pagefetch/session"
	"github.com/adammathes/pagefetch/weburl"
)

var (
	ErrUnsupportedScheme = errors.New("unsupported scheme")
	ErrTooManyRedirects  = errors.New("too many redirects")
	ErrMissingLocation   = errors.New("redirect without Location header")
	ErrRedirectBlocked   = errors.New("redirect leaves the original host")
)

// StatusError is returned for a response that is neither 200 nor a
// followed redirect.
type StatusError struct {
	URL        string
	StatusCode int
	Reason     string
}

func (e *StatusError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s: HTTP %d %s", e.URL, e.StatusCode, e.Reason)
}

// Kind is the broad class of a fetch failure.
type Kind int

const (
	KindUnknown Kind = iota
	// KindURL: the locator could not be parsed or has an unsupported scheme.
	KindURL
	// KindTransport: resolution, connect, handshake or I/O failure.
	KindTransport
	// KindProtocol: the server answered with something that is not HTTP.
	KindProtocol
	// KindStatus: the server answered with a non-success status.
	KindStatus
	// KindRedirect: the redirect chain could not be completed.
	KindRedirect
	// KindDecode: the body could not be converted to text.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindURL:
		return "url"
	case KindTransport:
		return "transport"
	case KindProtocol:
		return "protocol"
	case KindStatus:
		return "status"
	case KindRedirect:
		return "redirect"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// KindOf classifies err. A nil error is KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var (
		portErr   *weburl.PortError
		statusErr *StatusError
		decodeErr *decode.Error
		opErr     *session.OpError
		netErr    net.Error
	)
	switch {
	case errors.Is(err, weburl.ErrEmptyHost), errors.As(err, &portErr), errors.Is(err, ErrUnsupportedScheme):
		return KindURL
	case errors.Is(err, ErrTooManyRedirects), errors.Is(err, ErrMissingLocation), errors.Is(err, ErrRedirectBlocked):
		return KindRedirect
	case errors.As(err, &statusErr):
		return KindStatus
	case errors.As(err, &decodeErr):
		return KindDecode
	case errors.Is(err, session.ErrMalformedResponse):
		return KindProtocol
	case errors.As(err, &opErr), errors.As(err, &netErr),
		errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return KindTransport
	}
	return KindUnknown
}
