package fetch

import (
	"strings"
	"time"

	"github.com/adammathes/pagefetch/session"
)

const (
	DefaultMaxRedirects    = 10
	DefaultDialTimeoutSecs = 30
	DefaultReadTimeoutSecs = 300
	DefaultMaxBodyBytes    = 128 * 1024 * 1024
	DefaultEncoding        = "utf-8"
)

// Redirect policies.
const (
	RedirectFollow   = "follow"
	RedirectSameHost = "same-host"
	RedirectNone     = "none"
)

// Config controls how a Client fetches.
type Config struct {
	UserAgent string `yaml:"user_agent"`
	// MaxRedirects caps followed hops. Zero or less means
	// DefaultMaxRedirects; set RedirectPolicy to RedirectNone to turn
	// redirect following off.
	MaxRedirects    int    `yaml:"max_redirects"`
	RedirectPolicy  string `yaml:"redirect_policy"`
	DialTimeoutSecs int    `yaml:"dial_timeout_seconds"`
	ReadTimeoutSecs int    `yaml:"read_timeout_seconds"`
	MaxBodyBytes    int64  `yaml:"max_body_bytes"`
	DefaultEncoding string `yaml:"default_encoding"`
	BlockPrivate    bool   `yaml:"block_private"`
	// RequestsPerSecond throttles every hop the client makes; 0 disables it.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// WithDefaults fills unset fields in place and returns c. A nil receiver
// yields a fresh default Config.
func (c *Config) WithDefaults() *Config {
	if c == nil {
		c = &Config{}
	}
	if strings.TrimSpace(c.UserAgent) == "" {
		c.UserAgent = session.DefaultUserAgent
	}
	if c.MaxRedirects <= 0 {
		c.MaxRedirects = DefaultMaxRedirects
	}
	switch c.RedirectPolicy {
	case RedirectFollow, RedirectSameHost, RedirectNone:
	default:
		c.RedirectPolicy = RedirectFollow
	}
	if c.DialTimeoutSecs <= 0 {
		c.DialTimeoutSecs = DefaultDialTimeoutSecs
	}
	if c.ReadTimeoutSecs <= 0 {
		c.ReadTimeoutSecs = DefaultReadTimeoutSecs
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if strings.TrimSpace(c.DefaultEncoding) == "" {
		c.DefaultEncoding = DefaultEncoding
	}
	if c.RequestsPerSecond < 0 {
		c.RequestsPerSecond = 0
	}
	return c
}

func (c *Config) sessionOptions() session.Options {
	return session.Options{
		UserAgent:    c.UserAgent,
		DialTimeout:  time.Duration(c.DialTimeoutSecs) * time.Second,
		ReadTimeout:  time.Duration(c.ReadTimeoutSecs) * time.Second,
		MaxBodyBytes: c.MaxBodyBytes,
		BlockPrivate: c.BlockPrivate,
	}
}
