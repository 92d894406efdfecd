// Command-line and config file handling.
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/adammathes/pagefetch/decode"
	"github.com/adammathes/pagefetch/fetch"
	"github.com/adammathes/pagefetch/session"
)

const (
	formatText     = "text"
	formatMarkdown = "markdown"
	formatEpub     = "epub"
)

var errHelp = flag.ErrHelp

// cliConfig holds parsed command-line options.
type cliConfig struct {
	fetch       fetch.Config
	caBundle    string
	links       bool
	tag         string
	selector    string
	binary      bool
	readable    bool
	format      string
	output      string
	title       string
	concurrency int
	silent      bool
	image       imageOpts
	args        []string
}

// fileConfig is the YAML document accepted by -config. Flags given on the
// command line win over file values; PAGEFETCH_* variables sit in between.
type fileConfig struct {
	Fetch       fetch.Config `yaml:"fetch"`
	CABundle    string       `yaml:"ca_bundle"`
	Encoding    string       `yaml:"encoding"`
	Concurrency int          `yaml:"concurrency"`
	Image       struct {
		MaxWidth  int  `yaml:"max_width"`
		Quality   int  `yaml:"quality"`
		Grayscale bool `yaml:"grayscale"`
	} `yaml:"image"`
}

func loadConfigFile(path string) (fileConfig, error) {
	var fc fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("reading config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return fc, fmt.Errorf("parsing %s: %w", path, err)
	}
	return fc, nil
}

func parseArgs(args []string, stderr io.Writer) (cliConfig, error) {
	fs := flag.NewFlagSet("pagefetch", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "YAML config file")
	links := fs.Bool("links", false, "Print text<TAB>url for every link")
	tag := fs.String("tag", "", "Print the content of every `NAME` tag")
	selector := fs.String("select", "", "Print the text of every element matching a CSS `SELECTOR`")
	binary := fs.Bool("binary", false, "Save the raw body to a file instead of printing text")
	readable := fs.Bool("readable", false, "Reduce the page to its main article first")
	format := fs.String("format", formatText, "Output format: text, markdown or epub")
	output := fs.String("o", "", "Output file (default: stdout, or the URL's filename with -binary)")
	title := fs.String("title", "", "Override page/book title")
	encoding := fs.String("encoding", fetch.DefaultEncoding, "Encoding to assume when a page declares none")
	timeout := fs.Duration("timeout", fetch.DefaultReadTimeoutSecs*time.Second, "Read timeout per request")
	userAgent := fs.String("user-agent", session.DefaultUserAgent, "HTTP User-Agent header")
	maxRedirects := fs.Int("max-redirects", fetch.DefaultMaxRedirects, "Maximum redirects to follow (0 = default; use -redirects none to disable)")
	redirects := fs.String("redirects", fetch.RedirectFollow, "Redirect policy: follow, same-host or none")
	maxSize := fs.Int64("max-response-size", fetch.DefaultMaxBodyBytes, "Maximum response body in bytes")
	rps := fs.Float64("rate", 0, "Maximum requests per second (0 = unlimited)")
	caBundle := fs.String("ca-bundle", "", "PEM file of trusted CAs for https (default: system roots)")
	blockPrivate := fs.Bool("block-private", false, "Refuse to connect to loopback and private addresses")
	concurrency := fs.Int("concurrency", 4, "Pages fetched at once when several URLs are given")
	maxWidth := fs.Int("max-width", 0, "With -binary: downscale images wider than this (0 = keep size)")
	quality := fs.Int("quality", 60, "JPEG quality 1-95 for re-encoded images")
	grayscale := fs.Bool("grayscale", false, "With -binary: convert images to grayscale")
	silent := fs.Bool("silent", false, "Suppress all output except errors (for pipeline use)")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: pagefetch [options] <URL> [<URL>...]\n")
		fmt.Fprintf(stderr, "       pagefetch [options] -binary [-o file] <URL>\n\n")
		fmt.Fprintf(stderr, "Fetch pages over HTTP/1.1 and print them as decoded text.\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return cliConfig{}, err
	}

	cfg := cliConfig{
		concurrency: 4,
		image:       imageOpts{quality: 60},
	}
	if *configPath != "" {
		fc, err := loadConfigFile(*configPath)
		if err != nil {
			return cliConfig{}, err
		}
		cfg.fetch = fc.Fetch
		cfg.caBundle = fc.CABundle
		if fc.Encoding != "" {
			cfg.fetch.DefaultEncoding = fc.Encoding
		}
		if fc.Concurrency > 0 {
			cfg.concurrency = fc.Concurrency
		}
		cfg.image.maxWidth = fc.Image.MaxWidth
		if fc.Image.Quality > 0 {
			cfg.image.quality = fc.Image.Quality
		}
		cfg.image.grayscale = fc.Image.Grayscale
	}
	fetch.ApplyEnv(&cfg.fetch)

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["user-agent"] {
		cfg.fetch.UserAgent = *userAgent
	}
	if set["max-redirects"] {
		cfg.fetch.MaxRedirects = *maxRedirects
	}
	if set["redirects"] {
		cfg.fetch.RedirectPolicy = *redirects
	}
	if set["timeout"] {
		cfg.fetch.ReadTimeoutSecs = int(math.Ceil(timeout.Seconds()))
	}
	if set["max-response-size"] {
		cfg.fetch.MaxBodyBytes = *maxSize
	}
	if set["rate"] {
		cfg.fetch.RequestsPerSecond = *rps
	}
	if set["block-private"] {
		cfg.fetch.BlockPrivate = *blockPrivate
	}
	if set["ca-bundle"] {
		cfg.caBundle = *caBundle
	}
	if set["encoding"] {
		cfg.fetch.DefaultEncoding = *encoding
	}
	if set["concurrency"] {
		cfg.concurrency = *concurrency
	}
	if set["max-width"] {
		cfg.image.maxWidth = *maxWidth
	}
	if set["quality"] {
		cfg.image.quality = *quality
	}
	if set["grayscale"] {
		cfg.image.grayscale = *grayscale
	}
	cfg.fetch.WithDefaults()

	cfg.links = *links
	cfg.tag = *tag
	cfg.selector = *selector
	cfg.binary = *binary
	cfg.readable = *readable
	cfg.format = *format
	cfg.output = *output
	cfg.title = *title
	cfg.silent = *silent
	cfg.args = fs.Args()

	if cfg.concurrency < 1 {
		cfg.concurrency = 1
	}
	if cfg.image.quality < 1 || cfg.image.quality > 95 {
		return cliConfig{}, fmt.Errorf("-quality must be between 1 and 95, got %d", cfg.image.quality)
	}
	if _, ok := decode.Canonical(cfg.fetch.DefaultEncoding); !ok {
		return cliConfig{}, fmt.Errorf("unknown -encoding %q", cfg.fetch.DefaultEncoding)
	}
	switch cfg.format {
	case formatText, formatMarkdown, formatEpub:
	default:
		return cliConfig{}, fmt.Errorf("unknown -format %q", cfg.format)
	}
	modes := 0
	for _, on := range []bool{cfg.links, cfg.tag != "", cfg.selector != ""} {
		if on {
			modes++
		}
	}
	if modes > 1 {
		return cliConfig{}, errors.New("-links, -tag and -select cannot be combined")
	}
	if cfg.selector != "" {
		if _, err := compileSelector(cfg.selector); err != nil {
			return cliConfig{}, err
		}
	}
	if cfg.binary && (modes > 0 || cfg.readable || cfg.format != formatText) {
		return cliConfig{}, errors.New("-binary cannot be combined with text output options")
	}
	return cfg, nil
}
