// Progress and diagnostics on stderr. Stdout carries page output only.
package main

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/adammathes/pagefetch/weburl"
)

// newLogger returns the console logger used for progress lines. With silent
// set only errors are written, so pipelines see nothing on success.
func newLogger(w io.Writer, silent bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if silent {
		level = zerolog.ErrorLevel
	}
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// shortURL returns a compact display form of a URL: authority + trimmed
// path, no scheme. Truncated to 60 characters with "..." if needed.
func shortURL(rawURL string) string {
	u, err := weburl.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	display := strings.TrimSuffix(u.Authority()+u.Path, "/")
	if len(display) > 60 {
		display = display[:57] + "..."
	}
	return display
}
