package session

import (
	"bufio"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/adammathes/pagefetch/weburl"
)

const maxLineBytes = 8 << 10

var errLineTooLong = errors.New("session: header line too long")

func writeRequest(w *bufio.Writer, u weburl.URL, userAgent string) error {
	fmt.Fprintf(w, "GET %s HTTP/1.1\r\n", sanitizeHeaderValue(u.RequestURI()))
	writeField(w, "Host", u.Authority())
	writeField(w, "User-Agent", userAgent)
	writeField(w, "Accept", "*/*")
	writeField(w, "Referer", u.Protocol+"://"+u.Authority()+"/")
	if c := u.Credentials; c != nil {
		token := base64.StdEncoding.EncodeToString([]byte(c.Username + ":" + c.Password))
		writeField(w, "Authorization", "Basic "+token)
	}
	writeField(w, "Connection", "close")
	_, err := w.WriteString("\r\n")
	return err
}

func writeField(w *bufio.Writer, k, v string) {
	w.WriteString(k)
	w.WriteString(": ")
	w.WriteString(sanitizeHeaderValue(v))
	w.WriteString("\r\n")
}

// sanitizeHeaderValue drops CR, LF and other control bytes except HTAB.
func sanitizeHeaderValue(v string) string {
	var b strings.Builder
	b.Grow(len(v))
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c == 0x7f || (c < 0x20 && c != '\t') {
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func readResponse(br *bufio.Reader, maxBody int64) (*Response, error) {
	resp := &Response{}
	var err error
	resp.Proto, resp.StatusCode, resp.Reason, err = readStatusLine(br)
	if err != nil {
		return nil, err
	}
	if resp.Header, err = readHeaders(br); err != nil {
		return nil, err
	}
	if !bodyAllowed(resp.StatusCode) {
		return resp, nil
	}
	resp.Body, err = readBody(br, resp.Header, maxBody)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func readStatusLine(br *bufio.Reader) (proto string, code int, reason string, err error) {
	line, err := readLine(br)
	if err != nil {
		return "", 0, "", err
	}
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 || !strings.HasPrefix(parts[0], "HTTP/") {
		return "", 0, "", fmt.Errorf("%w: status line %q", ErrMalformedResponse, line)
	}
	if !isStatusCode(parts[1]) {
		return "", 0, "", fmt.Errorf("%w: status code %q", ErrMalformedResponse, parts[1])
	}
	code, _ = strconv.Atoi(parts[1])
	if len(parts) == 3 {
		reason = parts[2]
	}
	return parts[0], code, reason, nil
}

// isStatusCode reports whether s is exactly three ASCII digits.
func isStatusCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func readHeaders(br *bufio.Reader) (Header, error) {
	var h Header
	for {
		line, err := readLine(br)
		if err != nil {
			return nil, err
		}
		if line == "" {
			return h, nil
		}
		i := strings.IndexByte(line, ':')
		if i <= 0 {
			return nil, fmt.Errorf("%w: header line %q", ErrMalformedResponse, line)
		}
		h = append(h, Field{
			Key:   strings.TrimSpace(line[:i]),
			Value: strings.TrimSpace(line[i+1:]),
		})
	}
}

func readLine(br *bufio.Reader) (string, error) {
	var sb strings.Builder
	for {
		b, err := br.ReadByte()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return "", err
		}
		if b == '\n' {
			return sb.String(), nil
		}
		if b != '\r' {
			sb.WriteByte(b)
		}
		if sb.Len() > maxLineBytes {
			return "", errLineTooLong
		}
	}
}

func bodyAllowed(code int) bool {
	return !(code >= 100 && code < 200) && code != 204 && code != 304
}

func readBody(br *bufio.Reader, h Header, maxBody int64) ([]byte, error) {
	if strings.Contains(strings.ToLower(h.Get("Transfer-Encoding")), "chunked") {
		return readLimited(&chunkedReader{br: br}, maxBody)
	}
	if cl := h.Get("Content-Length"); cl != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(cl), 10, 64)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: content-length %q", ErrMalformedResponse, cl)
		}
		if maxBody > 0 && n > maxBody {
			return nil, ErrBodyTooLarge
		}
		body, err := io.ReadAll(io.LimitReader(br, n))
		if err != nil {
			return nil, err
		}
		if int64(len(body)) < n {
			return nil, io.ErrUnexpectedEOF
		}
		return body, nil
	}
	return readLimited(br, maxBody)
}

// readLimited reads r to EOF, failing once more than limit bytes arrive.
// A limit of 0 means no limit.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrBodyTooLarge
	}
	return data, nil
}

// chunkedReader decodes a chunked transfer-coded body and discards the
// trailer section.
type chunkedReader struct {
	br       *bufio.Reader
	remain   int64
	finished bool
}

func (c *chunkedReader) Read(p []byte) (int, error) {
	if c.finished {
		return 0, io.EOF
	}
	if c.remain == 0 {
		line, err := readLine(c.br)
		if err != nil {
			return 0, err
		}
		if i := strings.IndexByte(line, ';'); i >= 0 {
			line = line[:i]
		}
		n, err := strconv.ParseInt(strings.TrimSpace(line), 16, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: chunk size %q", ErrMalformedResponse, line)
		}
		if n == 0 {
			for {
				l, err := readLine(c.br)
				if err != nil {
					return 0, err
				}
				if l == "" {
					break
				}
			}
			c.finished = true
			return 0, io.EOF
		}
		c.remain = n
	}
	if int64(len(p)) > c.remain {
		p = p[:c.remain]
	}
	n, err := io.ReadFull(c.br, p)
	c.remain -= int64(n)
	if err != nil {
		return n, err
	}
	if c.remain == 0 {
		crlf, err := readLine(c.br)
		if err != nil {
			return n, err
		}
		if crlf != "" {
			return n, fmt.Errorf("%w: missing CRLF after chunk", ErrMalformedResponse)
		}
	}
	return n, nil
}
