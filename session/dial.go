package session

import (
	"context"
	"crypto/x509"
	"fmt"
	"net"
	"strconv"

	utls "github.com/refraction-networking/utls"

	"github.com/adammathes/pagefetch/weburl"
)

var privateIPBlocks []*net.IPNet

func init() {
	for _, cidr := range []string{
		"127.0.0.0/8",    // IPv4 loopback
		"10.0.0.0/8",     // RFC1918
		"172.16.0.0/12",  // RFC1918
		"192.168.0.0/16", // RFC1918
		"169.254.0.0/16", // RFC3927 link-local
		"::1/128",        // IPv6 loopback
		"fe80::/10",      // IPv6 link-local
		"fc00::/7",       // IPv6 unique local
	} {
		_, block, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Errorf("parse error on %q: %v", cidr, err))
		}
		privateIPBlocks = append(privateIPBlocks, block)
	}
}

func isPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return true
	}
	for _, block := range privateIPBlocks {
		if block.Contains(ip) {
			return true
		}
	}
	return false
}

// dial resolves the host and connects to the first address that accepts.
// Addresses are dialed directly so the name is not re-resolved between the
// policy check and the connect.
func (c *Conn) dial(ctx context.Context, u weburl.URL) (net.Conn, error) {
	addrs, err := c.opts.Resolver.LookupIPAddr(ctx, u.Host)
	if err != nil {
		return nil, err
	}
	port := strconv.Itoa(int(u.Port))

	var d net.Dialer
	var firstErr error
	tried := 0
	for _, a := range addrs {
		if c.opts.BlockPrivate && isPrivateIP(a.IP) {
			continue
		}
		tried++
		conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(a.String(), port))
		if err == nil {
			return conn, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if tried == 0 {
		return nil, fmt.Errorf("%w for %s", ErrBlockedAddress, u.Host)
	}
	return nil, firstErr
}

// stream turns a dialed TCP connection into the session's byte stream.
type stream interface {
	open(ctx context.Context, raw net.Conn, u weburl.URL) (net.Conn, error)
	name() string
}

type plainStream struct{}

func (plainStream) open(_ context.Context, raw net.Conn, _ weburl.URL) (net.Conn, error) {
	return raw, nil
}

func (plainStream) name() string { return "plain" }

type tlsStream struct {
	roots *x509.CertPool
}

// open performs the TLS handshake with SNI set to the URL host. ALPN only
// offers http/1.1 because the session never speaks h2.
func (s tlsStream) open(ctx context.Context, raw net.Conn, u weburl.URL) (net.Conn, error) {
	tlsConn := utls.UClient(raw, &utls.Config{
		ServerName: u.Host,
		RootCAs:    s.roots,
		NextProtos: []string{"http/1.1"},
	}, utls.HelloGolang)

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return nil, err
	}
	return tlsConn, nil
}

func (tlsStream) name() string { return "tls" }
