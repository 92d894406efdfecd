package session

import "strings"

// Field is one header line as it appeared on the wire.
type Field struct {
	Key   string
	Value string
}

// Header keeps fields in arrival order with their original case.
type Header []Field

// Get returns the first value for key, compared case-insensitively.
func (h Header) Get(key string) string {
	for _, f := range h {
		if strings.EqualFold(f.Key, key) {
			return f.Value
		}
	}
	return ""
}

// Values returns every value for key in arrival order.
func (h Header) Values(key string) []string {
	var vv []string
	for _, f := range h {
		if strings.EqualFold(f.Key, key) {
			vv = append(vv, f.Value)
		}
	}
	return vv
}

// Has reports whether key is present, even with an empty value.
func (h Header) Has(key string) bool {
	for _, f := range h {
		if strings.EqualFold(f.Key, key) {
			return true
		}
	}
	return false
}

// Response is a fully read HTTP/1.x response.
type Response struct {
	Proto      string
	StatusCode int
	Reason     string
	Header     Header
	Body       []byte
}

// IsSuccess reports a 200 response. Other 2xx codes are not treated as
// success by the fetch client.
func (r *Response) IsSuccess() bool { return r.StatusCode == 200 }

// IsRedirect reports a 3xx response.
func (r *Response) IsRedirect() bool { return r.StatusCode >= 300 && r.StatusCode < 400 }

// Location returns the redirect target, checking "Location" before
// "location" and then any other casing.
func (r *Response) Location() (string, bool) {
	for _, f := range r.Header {
		if f.Key == "Location" {
			return f.Value, true
		}
	}
	for _, f := range r.Header {
		if f.Key == "location" {
			return f.Value, true
		}
	}
	for _, f := range r.Header {
		if strings.EqualFold(f.Key, "location") {
			return f.Value, true
		}
	}
	return "", false
}
