// Package weburl parses and re-serializes resource locators of the form
//
//	scheme://[user[:password]@]host[:port][/path][?k=v&...]
//
// It is deliberately smaller than net/url: query parameters keep their
// insertion order and duplicates, nothing is percent-decoded, and the
// default port for the scheme is filled in at parse time.
package weburl

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// ErrEmptyHost is returned by Parse when the locator has no host.
var ErrEmptyHost = errors.New("weburl: empty host")

// PortError reports an explicit port that is not an unsigned decimal
// number in the 16-bit range.
type PortError struct {
	Port string
	Err  error
}

func (e *PortError) Error() string {
	return fmt.Sprintf("weburl: invalid port %q: %v", e.Port, e.Err)
}

func (e *PortError) Unwrap() error { return e.Err }

var defaultPorts = map[string]uint16{
	"http":  80,
	"https": 443,
	"ftp":   21,
}

// DefaultPort returns the well-known port for protocol, or 0 if the
// protocol is not known.
func DefaultPort(protocol string) uint16 {
	return defaultPorts[protocol]
}

// Credentials is the user[:password] part of the authority.
type Credentials struct {
	Username string
	Password string
}

// Param is a single key=value pair from the query string.
type Param struct {
	Key   string
	Value string
}

// URL is a parsed resource locator. The zero value is not useful; use New
// or Parse.
type URL struct {
	Protocol    string
	Credentials *Credentials
	Host        string
	Port        uint16
	Path        string
	Query       []Param
}

// New returns a URL holding the defaults: http on port 80, path "/".
func New() URL {
	var u URL
	u.Reset()
	return u
}

// Reset restores every field to its default value.
func (u *URL) Reset() {
	u.Protocol = "http"
	u.Credentials = nil
	u.Host = ""
	u.Port = 80
	u.Path = "/"
	u.Query = nil
}

// Valid reports whether the URL has a host.
func (u URL) Valid() bool {
	return u.Host != ""
}

// Parse splits s into its components. The error is ErrEmptyHost when no
// host is present and a *PortError when the explicit port is malformed.
func Parse(s string) (URL, error) {
	u := New()

	rest := s
	if proto, after, ok := strings.Cut(s, "://"); ok {
		u.Protocol = proto
		u.Port = DefaultPort(proto)
		rest = after
	}
	// Fragments never go on the wire.
	if i := strings.IndexByte(rest, '#'); i >= 0 {
		rest = rest[:i]
	}

	authority, tail := rest, ""
	if i := strings.IndexAny(rest, "/?"); i >= 0 {
		authority, tail = rest[:i], rest[i:]
	}

	if at := strings.IndexByte(authority, '@'); at >= 0 {
		user, pass, _ := strings.Cut(authority[:at], ":")
		u.Credentials = &Credentials{Username: user, Password: pass}
		authority = authority[at+1:]
	}

	host, port, hasPort := splitHostPort(authority)
	if hasPort {
		n, err := strconv.ParseUint(port, 10, 16)
		if err != nil {
			return URL{}, &PortError{Port: port, Err: err}
		}
		u.Port = uint16(n)
	}
	u.Host = host

	path, query, hasQuery := strings.Cut(tail, "?")
	if path != "" {
		u.Path = path
	}
	if hasQuery {
		u.Query = parseQuery(query)
	}

	if !u.Valid() {
		return URL{}, ErrEmptyHost
	}
	return u, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) URL {
	u, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}

// splitHostPort separates "host:port". Bracketed IPv6 literals keep their
// inner colons; the brackets themselves are dropped from the host.
func splitHostPort(authority string) (host, port string, hasPort bool) {
	if strings.HasPrefix(authority, "[") {
		if end := strings.IndexByte(authority, ']'); end > 0 {
			host = authority[1:end]
			after := authority[end+1:]
			if p, ok := strings.CutPrefix(after, ":"); ok {
				return host, p, true
			}
			return host, "", false
		}
	}
	if i := strings.IndexByte(authority, ':'); i >= 0 {
		return authority[:i], authority[i+1:], true
	}
	return authority, "", false
}

func parseQuery(q string) []Param {
	var params []Param
	for _, tok := range strings.Split(q, "&") {
		if tok == "" {
			continue
		}
		k, v, _ := strings.Cut(tok, "=")
		params = append(params, Param{Key: k, Value: v})
	}
	return params
}

// hostLiteral returns the host as it appears in an authority, re-adding
// brackets around IPv6 literals.
func (u URL) hostLiteral() string {
	if strings.Contains(u.Host, ":") {
		return "[" + u.Host + "]"
	}
	return u.Host
}

// Authority returns host[:port], eliding the port when it is the default
// for the protocol. This is the value sent in the Host header.
func (u URL) Authority() string {
	if u.Port != DefaultPort(u.Protocol) {
		return u.hostLiteral() + ":" + strconv.Itoa(int(u.Port))
	}
	return u.hostLiteral()
}

// Address returns the host:port pair to dial.
func (u URL) Address() string {
	return net.JoinHostPort(u.Host, strconv.Itoa(int(u.Port)))
}

// RequestURI returns the path followed by the encoded query string.
func (u URL) RequestURI() string {
	path := u.Path
	if path == "" {
		path = "/"
	}
	if len(u.Query) == 0 {
		return path
	}
	var b strings.Builder
	b.WriteString(path)
	for i, p := range u.Query {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(p.Key)
		b.WriteByte('=')
		b.WriteString(p.Value)
	}
	return b.String()
}

// String serializes the URL. Credentials are written only when present,
// the password only when non-empty, and the port only when it differs from
// the protocol default. An invalid URL serializes to "".
func (u URL) String() string {
	if !u.Valid() {
		return ""
	}
	var b strings.Builder
	b.WriteString(u.Protocol)
	b.WriteString("://")
	if c := u.Credentials; c != nil {
		b.WriteString(c.Username)
		if c.Password != "" {
			b.WriteByte(':')
			b.WriteString(c.Password)
		}
		b.WriteByte('@')
	}
	b.WriteString(u.Authority())
	b.WriteString(u.RequestURI())
	return b.String()
}

// Filename returns the last path segment, or false when the path ends
// in "/".
func (u URL) Filename() (string, bool) {
	i := strings.LastIndexByte(u.Path, '/')
	name := u.Path[i+1:]
	if name == "" {
		return "", false
	}
	return name, true
}

// hasScheme reports whether ref starts with "scheme://", where the scheme
// is a letter followed by letters, digits, '+', '-' or '.'. A "://" later
// in the path or query does not count.
func hasScheme(ref string) bool {
	i := strings.Index(ref, "://")
	if i <= 0 || strings.ContainsAny(ref[:i], "/?#") {
		return false
	}
	for j, r := range ref[:i] {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case j > 0 && (r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}

// Resolve interprets ref (typically a Location header) relative to u.
// Absolute references are parsed as-is; "//host/..." inherits the
// protocol; "/path" replaces the path and query; anything else is
// resolved against the directory of the current path. Dot segments are
// not collapsed.
func (u URL) Resolve(ref string) (URL, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return u, nil
	case hasScheme(ref):
		return Parse(ref)
	case strings.HasPrefix(ref, "//"):
		return Parse(u.Protocol + ":" + ref)
	}
	if i := strings.IndexByte(ref, '#'); i >= 0 {
		ref = ref[:i]
	}

	target := ref
	switch {
	case strings.HasPrefix(ref, "/"):
	case strings.HasPrefix(ref, "?"):
		target = u.Path + ref
	default:
		dir := u.Path[:strings.LastIndexByte(u.Path, '/')+1]
		if dir == "" {
			dir = "/"
		}
		target = dir + ref
	}

	next := u
	next.Path = "/"
	next.Query = nil
	path, query, hasQuery := strings.Cut(target, "?")
	if path != "" {
		next.Path = path
	}
	if hasQuery {
		next.Query = parseQuery(query)
	}
	return next, nil
}
