package fetch

import (
	"os"
	"strconv"
	"strings"
)

// ApplyEnv overrides cfg with any PAGEFETCH_* variables that are set and
// parse cleanly, then fills the remaining defaults.
func ApplyEnv(cfg *Config) *Config {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.UserAgent = envOr(cfg.UserAgent, os.Getenv("PAGEFETCH_USER_AGENT"))
	cfg.DefaultEncoding = envOr(cfg.DefaultEncoding, os.Getenv("PAGEFETCH_DEFAULT_ENCODING"))
	cfg.RedirectPolicy = envOr(cfg.RedirectPolicy, os.Getenv("PAGEFETCH_REDIRECT_POLICY"))

	if n, ok := envInt("PAGEFETCH_MAX_REDIRECTS"); ok {
		cfg.MaxRedirects = n
	}
	if n, ok := envInt("PAGEFETCH_READ_TIMEOUT_SECONDS"); ok {
		cfg.ReadTimeoutSecs = n
	}
	if v := strings.TrimSpace(os.Getenv("PAGEFETCH_BLOCK_PRIVATE")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.BlockPrivate = b
		}
	}
	return cfg.WithDefaults()
}

func envOr(current, value string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return current
}

func envInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
