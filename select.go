package main

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// compileSelector validates a -select expression.
func compileSelector(expr string) (cascadia.Selector, error) {
	sel, err := cascadia.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid -select %q: %w", expr, err)
	}
	return sel, nil
}

// selectText returns the trimmed text of every element in text matching the
// CSS selector expr, in document order. Empty matches are skipped.
func selectText(text, expr string) ([]string, error) {
	sel, err := compileSelector(expr)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}
	var out []string
	doc.FindMatcher(sel).Each(func(_ int, s *goquery.Selection) {
		if t := strings.Join(strings.Fields(s.Text()), " "); t != "" {
			out = append(out, t)
		}
	})
	return out, nil
}
