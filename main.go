// pagefetch: fetch pages over HTTP/1.1, follow redirects, decode them from
// whatever charset they declare and print text, links, tag contents or
// CSS-selected elements.
//
//	pagefetch [options] <URL> [<URL>...]
//	pagefetch [options] -binary [-o file] <URL>
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/adammathes/pagefetch/event"
	"github.com/adammathes/pagefetch/fetch"
	"github.com/adammathes/pagefetch/scan"
	"github.com/adammathes/pagefetch/weburl"
)

// document is one fetched page after optional readability extraction.
type document struct {
	URL   weburl.URL
	Title string
	Text  string
}

// run executes the main application logic, returning any error.
func run(ctx context.Context, cfg cliConfig, stdout io.Writer, log zerolog.Logger) error {
	if len(cfg.args) == 0 {
		return errors.New("at least one URL argument is required")
	}
	roots, err := loadCABundle(cfg.caBundle)
	if err != nil {
		return err
	}
	client := fetch.NewClient(&cfg.fetch,
		fetch.WithObserver(event.Zerolog(log)),
		fetch.WithRootCAs(roots),
	)

	if cfg.binary {
		return runBinary(ctx, client, cfg, log)
	}
	if cfg.format == formatEpub && cfg.output == "" {
		return errors.New("-format epub requires -o output.epub")
	}

	docs := make([]*document, len(cfg.args))
	errs := make([]error, len(cfg.args))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.concurrency)
	for i, rawURL := range cfg.args {
		g.Go(func() error {
			if len(cfg.args) > 1 {
				log.Info().Msgf("[%d/%d] %s", i+1, len(cfg.args), shortURL(rawURL))
			}
			docs[i], errs[i] = fetchDocument(gctx, client, rawURL, cfg)
			if errs[i] != nil && len(cfg.args) > 1 {
				log.Error().Err(errs[i]).Str("url", rawURL).Msg("skipping")
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(cfg.args) == 1 && errs[0] != nil {
		return errs[0]
	}
	var ok []*document
	var failed int
	for i, d := range docs {
		if errs[i] != nil {
			failed++
			continue
		}
		ok = append(ok, d)
	}
	if len(ok) == 0 {
		return fmt.Errorf("all %d URLs failed: %w", len(cfg.args), firstError(errs))
	}

	if cfg.format == formatEpub {
		title := cfg.title
		if title == "" {
			title = ok[0].Title
		}
		if err := buildEpub(ok, title, cfg.output, log); err != nil {
			return fmt.Errorf("building epub: %w", err)
		}
		log.Info().Msgf("✓ %s (%d pages)", cfg.output, len(ok))
	} else {
		var parts []string
		for _, d := range ok {
			out, err := render(d, cfg)
			if err != nil {
				return err
			}
			parts = append(parts, out)
		}
		if err := writeOutput(cfg.output, stdout, strings.Join(parts, separator(cfg))); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d URLs failed: %w", failed, len(cfg.args), firstError(errs))
	}
	return nil
}

func firstError(errs []error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// fetchDocument fetches and decodes rawURL and, with -readable, reduces it
// to the main article.
func fetchDocument(ctx context.Context, client *fetch.Client, rawURL string, cfg cliConfig) (*document, error) {
	page, err := client.FetchPage(ctx, rawURL, "")
	if err != nil {
		return nil, err
	}
	doc := &document{URL: page.URL, Text: page.Text, Title: pageTitle(page.Text)}
	if cfg.readable {
		content, title, err := extractReadable(page.Text, page.URL)
		if err != nil {
			return nil, err
		}
		doc.Text = content
		if title != "" {
			doc.Title = title
		}
	}
	if cfg.title != "" && len(cfg.args) == 1 {
		doc.Title = cfg.title
	}
	return doc, nil
}

// pageTitle returns the unescaped text of the first <title> tag.
func pageTitle(text string) string {
	tag, ok := scan.FindTag(text, "title", 0)
	if !ok || tag.Content == nil {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(*tag.Content))
}

// render turns one document into the requested textual output.
func render(d *document, cfg cliConfig) (string, error) {
	switch {
	case cfg.links:
		var b strings.Builder
		for l := range scan.Links(d.Text) {
			target := l.URL
			if !hasOpaqueScheme(target) {
				if u, err := d.URL.Resolve(target); err == nil {
					target = u.String()
				}
			}
			fmt.Fprintf(&b, "%s\t%s\n", html.UnescapeString(l.Text), target)
		}
		return strings.TrimSuffix(b.String(), "\n"), nil
	case cfg.tag != "":
		var lines []string
		for t := range scan.Tags(d.Text, cfg.tag) {
			if t.Content != nil {
				lines = append(lines, strings.TrimSpace(*t.Content))
			} else {
				lines = append(lines, d.Text[t.Start:t.End])
			}
		}
		return strings.Join(lines, "\n"), nil
	case cfg.selector != "":
		lines, err := selectText(d.Text, cfg.selector)
		if err != nil {
			return "", err
		}
		return strings.Join(lines, "\n"), nil
	case cfg.format == formatMarkdown:
		return convertToMarkdown(d.Text, d.URL)
	default:
		return d.Text, nil
	}
}

// hasOpaqueScheme reports references like mailto: or javascript: that
// cannot be resolved against a page URL.
func hasOpaqueScheme(ref string) bool {
	i := strings.IndexByte(ref, ':')
	if i <= 0 || strings.Contains(ref, "://") {
		return false
	}
	return !strings.ContainsAny(ref[:i], "/?#")
}

func separator(cfg cliConfig) string {
	if cfg.links || cfg.tag != "" || cfg.selector != "" {
		return "\n"
	}
	return "\n\n---\n\n"
}

func writeOutput(path string, stdout io.Writer, s string) error {
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	if path == "" {
		_, err := io.WriteString(stdout, s)
		return err
	}
	if err := os.WriteFile(path, []byte(s), 0644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

// runBinary saves each URL's raw body to a file, shrinking images when any
// image option is set.
func runBinary(ctx context.Context, client *fetch.Client, cfg cliConfig, log zerolog.Logger) error {
	if cfg.output != "" && len(cfg.args) > 1 {
		return errors.New("-o names a single file; omit it to save several URLs by their own names")
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.concurrency)
	for _, rawURL := range cfg.args {
		g.Go(func() error {
			dst := cfg.output
			if dst == "" {
				u, err := weburl.Parse(rawURL)
				if err != nil {
					return err
				}
				name, ok := u.Filename()
				if !ok {
					return fmt.Errorf("%s: no filename in URL, use -o", rawURL)
				}
				dst = name
			}

			var buf bytes.Buffer
			if _, err := client.FetchBinary(gctx, rawURL, &buf); err != nil {
				return err
			}
			data := buf.Bytes()
			if cfg.image.enabled() {
				if shrunk, ok := shrinkImage(data, cfg.image, log); ok {
					log.Info().Msgf("image %s → %s", humanSize(int64(len(data))), humanSize(int64(len(shrunk))))
					data = shrunk
				}
			}
			if err := os.WriteFile(dst, data, 0644); err != nil {
				return fmt.Errorf("writing %s: %w", dst, err)
			}
			log.Info().Msgf("✓ %s (%s)", dst, humanSize(int64(len(data))))
			return nil
		})
	}
	return g.Wait()
}

// exitCode maps failures to distinct statuses so scripts can tell an
// unreachable server from a refused resource or an unreadable body.
func exitCode(err error) int {
	switch fetch.KindOf(err) {
	case fetch.KindURL:
		return 2
	case fetch.KindTransport, fetch.KindProtocol:
		return 3
	case fetch.KindStatus, fetch.KindRedirect:
		return 4
	case fetch.KindDecode:
		return 5
	default:
		return 1
	}
}

func main() {
	cfg, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, errHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	log := newLogger(os.Stderr, cfg.silent)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, os.Stdout, log); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}
