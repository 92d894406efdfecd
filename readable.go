package main

import (
	"fmt"
	"net/url"
	"strings"

	readability "codeberg.org/readeck/go-readability"

	"github.com/adammathes/pagefetch/weburl"
)

// extractReadable runs go-readability on decoded page text and returns the
// article HTML and its title.
func extractReadable(text string, pageURL weburl.URL) (content string, title string, err error) {
	u, err := url.Parse(pageURL.String())
	if err != nil {
		return "", "", fmt.Errorf("page URL %s: %w", pageURL, err)
	}
	article, err := readability.FromReader(strings.NewReader(text), u)
	if err != nil {
		return "", "", fmt.Errorf("readability extraction failed: %w", err)
	}
	if article.Content == "" {
		return "", "", fmt.Errorf("readability extracted no content from %s", pageURL)
	}
	return article.Content, article.Title, nil
}
