package fetch

import (
	"testing"
	"time"

	"github.com/adammathes/pagefetch/session"
)

func TestConfig_WithDefaults(t *testing.T) {
	var nilCfg *Config
	cfg := nilCfg.WithDefaults()
	if cfg.MaxRedirects != 10 {
		t.Errorf("MaxRedirects = %d, want 10", cfg.MaxRedirects)
	}
	if cfg.ReadTimeoutSecs != 300 || cfg.DialTimeoutSecs != 30 {
		t.Errorf("timeouts = %d/%d", cfg.DialTimeoutSecs, cfg.ReadTimeoutSecs)
	}
	if cfg.UserAgent != session.DefaultUserAgent {
		t.Errorf("UserAgent = %q", cfg.UserAgent)
	}
	if cfg.DefaultEncoding != "utf-8" {
		t.Errorf("DefaultEncoding = %q", cfg.DefaultEncoding)
	}
	if cfg.RedirectPolicy != RedirectFollow {
		t.Errorf("RedirectPolicy = %q", cfg.RedirectPolicy)
	}
	if cfg.MaxBodyBytes != 128*1024*1024 {
		t.Errorf("MaxBodyBytes = %d", cfg.MaxBodyBytes)
	}

	cfg = (&Config{RedirectPolicy: "sideways", MaxRedirects: 3}).WithDefaults()
	if cfg.RedirectPolicy != RedirectFollow || cfg.MaxRedirects != 3 {
		t.Errorf("got policy %q, max %d", cfg.RedirectPolicy, cfg.MaxRedirects)
	}
}

func TestConfig_DisablingRedirects(t *testing.T) {
	// A zero cap reads as unset; the policy is what turns following off.
	cfg := (&Config{MaxRedirects: 0, RedirectPolicy: RedirectNone}).WithDefaults()
	if cfg.MaxRedirects != DefaultMaxRedirects {
		t.Errorf("MaxRedirects = %d, want %d", cfg.MaxRedirects, DefaultMaxRedirects)
	}
	if cfg.RedirectPolicy != RedirectNone {
		t.Errorf("RedirectPolicy = %q, want %q", cfg.RedirectPolicy, RedirectNone)
	}
}

func TestConfig_SessionOptions(t *testing.T) {
	opts := (&Config{ReadTimeoutSecs: 7, BlockPrivate: true}).WithDefaults().sessionOptions()
	if opts.ReadTimeout != 7*time.Second || opts.DialTimeout != 30*time.Second {
		t.Errorf("timeouts = %v/%v", opts.DialTimeout, opts.ReadTimeout)
	}
	if !opts.BlockPrivate {
		t.Error("BlockPrivate not carried over")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PAGEFETCH_USER_AGENT", "env-agent")
	t.Setenv("PAGEFETCH_MAX_REDIRECTS", "4")
	t.Setenv("PAGEFETCH_READ_TIMEOUT_SECONDS", "not-a-number")
	t.Setenv("PAGEFETCH_BLOCK_PRIVATE", "true")

	cfg := ApplyEnv(&Config{UserAgent: "file-agent", ReadTimeoutSecs: 12})
	if cfg.UserAgent != "env-agent" {
		t.Errorf("UserAgent = %q", cfg.UserAgent)
	}
	if cfg.MaxRedirects != 4 {
		t.Errorf("MaxRedirects = %d", cfg.MaxRedirects)
	}
	if cfg.ReadTimeoutSecs != 12 {
		t.Errorf("ReadTimeoutSecs = %d, want the unparsable value ignored", cfg.ReadTimeoutSecs)
	}
	if !cfg.BlockPrivate {
		t.Error("BlockPrivate = false")
	}
}
