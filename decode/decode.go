// Package decode converts a fetched body into text using the character
// encoding the body declares about itself.
package decode

import (
	"bytes"
	"errors"
	"fmt"

	"golang.org/x/net/html/charset"
)

var (
	ErrUnknownEncoding = errors.New("unknown encoding")
	ErrInvalidBytes    = errors.New("invalid byte sequence")
)

// Error reports a body that could not be converted from Encoding.
type Error struct {
	Encoding string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("decode %q: %v", e.Encoding, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

var marker = []byte("charset=")

// Sniff returns the encoding name declared by the first "charset=" marker
// in body. One leading quote or apostrophe is dropped and the name runs to
// the next quote, apostrophe or space. It reports false when there is no
// marker, no terminator, or the name is empty.
func Sniff(body []byte) (string, bool) {
	i := bytes.Index(body, marker)
	if i < 0 {
		return "", false
	}
	rest := body[i+len(marker):]
	if len(rest) > 0 && (rest[0] == '"' || rest[0] == '\'') {
		rest = rest[1:]
	}
	end := bytes.IndexAny(rest, `"' `)
	if end <= 0 {
		return "", false
	}
	return string(rest[:end]), true
}

// Decode converts body to text. The sniffed encoding wins over
// defaultEncoding. An unrecognized name or bytes that are invalid for the
// encoding fail with *Error rather than yielding replacement characters.
func Decode(body []byte, defaultEncoding string) (string, error) {
	name, ok := Sniff(body)
	if !ok {
		name = defaultEncoding
	}
	return DecodeAs(body, name)
}

// DecodeAs converts body from the named encoding, ignoring any declaration
// inside the body.
func DecodeAs(body []byte, name string) (string, error) {
	enc, _ := charset.Lookup(name)
	if enc == nil {
		return "", &Error{Encoding: name, Err: ErrUnknownEncoding}
	}
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", &Error{Encoding: name, Err: err}
	}
	// Decoders substitute U+FFFD for invalid input. Only a replacement
	// character already present in the source is legitimate.
	if bytes.Contains(out, replacement) && !bytes.Contains(body, replacement) {
		return "", &Error{Encoding: name, Err: ErrInvalidBytes}
	}
	return string(out), nil
}

var replacement = []byte("\uFFFD")

// Canonical returns the standard name for an encoding label, e.g.
// "windows-1252" for "latin1". It reports false for unknown labels.
func Canonical(label string) (string, bool) {
	enc, name := charset.Lookup(label)
	return name, enc != nil
}
